package ui

import (
	"strings"

	"github.com/alecthomas/chroma/v2/styles"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/glamour/ansi"
)

// MarkdownRenderMargin is the left margin of rendered help pages.
const MarkdownRenderMargin = 2

const defaultCodeTheme = "monokai"

var markdownCodeTheme = defaultCodeTheme

// ConfigureMarkdownCodeTheme applies the ui.code_theme setting. Names are
// matched case-insensitively against the chroma style registry; unknown or
// empty names restore the default.
func ConfigureMarkdownCodeTheme(theme string) {
	theme = strings.ToLower(strings.TrimSpace(theme))
	if _, ok := styles.Registry[theme]; !ok {
		theme = defaultCodeTheme
	}
	markdownCodeTheme = theme
}

// RenderMarkdown renders a help page for the terminal. Once color is
// disabled the page is laid out without escape sequences.
func RenderMarkdown(content string, width int) (string, error) {
	if width <= 0 {
		width = DefaultTermWidth
	}

	style := glamour.WithStyles(helpStyle())
	if plain {
		style = glamour.WithStandardStyle("notty")
	}
	r, err := glamour.NewTermRenderer(style, glamour.WithWordWrap(width))
	if err != nil {
		return "", err
	}
	rendered, err := r.Render(content)
	if err != nil {
		return "", err
	}
	return strings.TrimRight(rendered, "\n") + "\n", nil
}

// palette holds the colors of a help page.
type palette struct {
	heading *string // nil keeps the terminal's default foreground
	muted   *string
	code    *string
}

func currentPalette() palette {
	p := palette{muted: ptr("8"), code: ptr("203")}
	if color, ok := AccentColor(); ok {
		p.heading = ptr(color)
	}
	return p
}

// helpStyle styles the pieces a help page is made of: headings, the usage
// block, the argument table, inline code and example lists.
func helpStyle() ansi.StyleConfig {
	p := currentPalette()

	heading := func(prefix string, underline bool) ansi.StyleBlock {
		return ansi.StyleBlock{StylePrimitive: ansi.StylePrimitive{Prefix: prefix, Underline: ptr(underline)}}
	}

	return ansi.StyleConfig{
		Document: ansi.StyleBlock{
			StylePrimitive: ansi.StylePrimitive{BlockPrefix: "\n", BlockSuffix: "\n"},
			Margin:         ptr(uint(MarkdownRenderMargin)),
		},
		Heading: ansi.StyleBlock{
			StylePrimitive: ansi.StylePrimitive{BlockSuffix: "\n", Color: p.heading, Bold: ptr(true)},
		},
		H1:          heading("", true),
		H2:          heading("", false),
		H3:          heading("", false),
		Paragraph:   ansi.StyleBlock{},
		List:        ansi.StyleList{LevelIndent: 2},
		Item:        ansi.StylePrimitive{BlockPrefix: "• "},
		Enumeration: ansi.StylePrimitive{BlockPrefix: ". "},
		Emph:        ansi.StylePrimitive{Italic: ptr(true)},
		Strong:      ansi.StylePrimitive{Bold: ptr(true)},
		BlockQuote: ansi.StyleBlock{
			StylePrimitive: ansi.StylePrimitive{Color: p.muted},
			Indent:         ptr(uint(1)),
			IndentToken:    ptr("│ "),
		},
		HorizontalRule: ansi.StylePrimitive{Color: p.muted, Format: "\n--------\n"},
		Link:           ansi.StylePrimitive{Color: p.muted, Underline: ptr(true)},
		LinkText:       ansi.StylePrimitive{Color: p.muted, Bold: ptr(true)},
		Code: ansi.StyleBlock{
			StylePrimitive: ansi.StylePrimitive{Color: p.code},
		},
		CodeBlock: ansi.StyleCodeBlock{
			StyleBlock: ansi.StyleBlock{
				StylePrimitive: ansi.StylePrimitive{Color: p.code},
				Margin:         ptr(uint(MarkdownRenderMargin)),
			},
			Theme: markdownCodeTheme,
		},
		Table: ansi.StyleTable{
			StyleBlock:      ansi.StyleBlock{StylePrimitive: ansi.StylePrimitive{Color: p.muted}},
			CenterSeparator: ptr("┼"),
			ColumnSeparator: ptr("│"),
			RowSeparator:    ptr("─"),
		},
	}
}

func ptr[T any](v T) *T { return &v }
