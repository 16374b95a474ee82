package commands

import (
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// Summary returns the plain text of the first paragraph of a markdown document.
// It is used to derive a one-line description from a long markdown description.
func Summary(markdown string) string {
	source := []byte(markdown)
	doc := goldmark.New().Parser().Parse(text.NewReader(source))

	var summary string
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		para, ok := n.(*ast.Paragraph)
		if !ok {
			return ast.WalkContinue, nil
		}

		var b strings.Builder
		collectText(para, source, &b)
		summary = strings.Join(strings.Fields(b.String()), " ")
		if summary == "" {
			return ast.WalkContinue, nil
		}
		return ast.WalkStop, nil
	})
	return summary
}

// collectText appends the text of every inline descendant of n.
func collectText(n ast.Node, source []byte, b *strings.Builder) {
	for child := n.FirstChild(); child != nil; child = child.NextSibling() {
		switch node := child.(type) {
		case *ast.Text:
			b.Write(node.Segment.Value(source))
			if node.SoftLineBreak() || node.HardLineBreak() {
				b.WriteByte(' ')
			}
		case *ast.String:
			b.Write(node.Value)
		default:
			collectText(child, source, b)
		}
	}
}
