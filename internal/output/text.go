package output

import (
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/aidanlsb/nounverb/internal/ui"
)

// Texter is implemented by results that render their own text form.
type Texter interface {
	Text() string
}

// WriteText renders data for a terminal:
//
//	nil, empty        nothing
//	string, Texter    as is
//	list of records   table, one column per field
//	list of scalars   one per line
//	record            aligned "key  value" lines, nested values as YAML
func WriteText(w io.Writer, data any, display *ui.DisplayContext) error {
	switch v := data.(type) {
	case nil:
		return nil
	case string:
		return writeLine(w, v)
	case Texter:
		return writeLine(w, v.Text())
	case fmt.Stringer:
		return writeLine(w, v.String())
	}

	node, err := toNode(data)
	if err != nil {
		return err
	}
	if display == nil {
		display = ui.NewDisplayContextFor(w)
	}

	var out string
	switch node.Kind {
	case yaml.ScalarNode:
		if node.Tag == "!!null" {
			return nil
		}
		out = node.Value
	case yaml.SequenceNode:
		out = renderSequence(node, display)
	case yaml.MappingNode:
		out = renderMapping(node, display)
	}
	return writeLine(w, out)
}

func writeLine(w io.Writer, s string) error {
	if s == "" {
		return nil
	}
	if !strings.HasSuffix(s, "\n") {
		s += "\n"
	}
	_, err := io.WriteString(w, s)
	return err
}

func renderSequence(node *yaml.Node, display *ui.DisplayContext) string {
	if len(node.Content) == 0 {
		return ""
	}
	if !allMappings(node.Content) {
		var b strings.Builder
		for _, item := range node.Content {
			b.WriteString(cell(item))
			b.WriteByte('\n')
		}
		return b.String()
	}

	keys := columnKeys(node.Content)
	cols := make([]ui.Column, len(keys))
	for i, k := range keys {
		cols[i] = ui.Column{Header: strings.ToUpper(k), MaxWidth: 40}
	}
	// The last column absorbs the remaining width.
	cols[len(cols)-1] = ui.Column{Header: strings.ToUpper(keys[len(keys)-1]), Flex: true, MinWidth: 10}

	tbl := ui.NewTable(display, cols...)
	for _, item := range node.Content {
		row := make([]string, len(keys))
		for i, k := range keys {
			if v := lookup(item, k); v != nil {
				row[i] = cell(v)
			}
		}
		tbl.AddRow(row...)
	}
	return tbl.Render()
}

func renderMapping(node *yaml.Node, display *ui.DisplayContext) string {
	tbl := ui.NewTable(display,
		ui.Column{Style: &ui.Muted, MaxWidth: 30},
		ui.Column{Flex: true, MinWidth: 10},
	)
	var nested strings.Builder
	for i := 0; i+1 < len(node.Content); i += 2 {
		key, val := node.Content[i], node.Content[i+1]
		if inline(val) {
			tbl.AddRow(key.Value, cell(val))
			continue
		}
		nested.WriteString("\n")
		nested.WriteString(ui.Header(key.Value))
		nested.WriteString("\n")
		nested.WriteString(indent(encodeYAML(val), "  "))
	}
	return tbl.Render() + nested.String()
}

// inline reports whether n fits on one table line.
func inline(n *yaml.Node) bool {
	switch n.Kind {
	case yaml.ScalarNode:
		return true
	case yaml.SequenceNode:
		for _, c := range n.Content {
			if c.Kind != yaml.ScalarNode {
				return false
			}
		}
		return true
	}
	return len(n.Content) == 0
}

func allMappings(nodes []*yaml.Node) bool {
	for _, n := range nodes {
		if n.Kind != yaml.MappingNode {
			return false
		}
	}
	return true
}

// columnKeys returns the union of record keys in first-seen order.
func columnKeys(records []*yaml.Node) []string {
	seen := map[string]bool{}
	var keys []string
	for _, r := range records {
		for i := 0; i+1 < len(r.Content); i += 2 {
			k := r.Content[i].Value
			if !seen[k] {
				seen[k] = true
				keys = append(keys, k)
			}
		}
	}
	return keys
}

func lookup(mapping *yaml.Node, key string) *yaml.Node {
	for i := 0; i+1 < len(mapping.Content); i += 2 {
		if mapping.Content[i].Value == key {
			return mapping.Content[i+1]
		}
	}
	return nil
}

// cell renders a value on one line.
func cell(n *yaml.Node) string {
	switch n.Kind {
	case yaml.ScalarNode:
		if n.Tag == "!!null" {
			return "-"
		}
		return n.Value
	case yaml.SequenceNode:
		parts := make([]string, len(n.Content))
		for i, c := range n.Content {
			parts[i] = cell(c)
		}
		return strings.Join(parts, ", ")
	}
	flow := *n
	flow.Style = yaml.FlowStyle
	return strings.TrimSpace(encodeYAML(&flow))
}

func encodeYAML(n *yaml.Node) string {
	out, err := yaml.Marshal(n)
	if err != nil {
		return ""
	}
	return string(out)
}

func indent(s, prefix string) string {
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	for i, l := range lines {
		lines[i] = prefix + l
	}
	return strings.Join(lines, "\n") + "\n"
}
