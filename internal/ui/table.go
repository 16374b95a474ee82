package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

// Alignment represents column text alignment.
type Alignment int

const (
	AlignLeft Alignment = iota
	AlignRight
)

// Column defines one column of a Table.
type Column struct {
	Header   string
	MinWidth int
	MaxWidth int             // 0 = no limit
	Flex     bool            // takes the width left over by the other columns
	Align    Alignment       // Text alignment
	Style    *lipgloss.Style // Style to apply to cells in this column, nil for plain
}

// Table renders rows in borderless, width-aware columns.
type Table struct {
	display *DisplayContext
	columns []Column
	rows    [][]string
}

const columnGap = 2

// NewTable creates a table for the given display.
func NewTable(display *DisplayContext, columns ...Column) *Table {
	if display == nil {
		display = NewDisplayContextWithWidth(DefaultTermWidth)
	}
	return &Table{display: display, columns: columns}
}

// AddRow adds a row; missing cells render empty and extra cells are dropped.
func (t *Table) AddRow(cells ...string) {
	row := make([]string, len(t.columns))
	copy(row, cells)
	t.rows = append(t.rows, row)
}

// Len returns the number of rows.
func (t *Table) Len() int {
	return len(t.rows)
}

// widths sizes fixed columns to their content and gives flexible columns the rest.
func (t *Table) widths() []int {
	widths := make([]int, len(t.columns))
	used := columnGap * (len(t.columns) - 1)
	flex := 0
	for i, col := range t.columns {
		if col.Flex {
			flex++
			continue
		}
		w := lipgloss.Width(col.Header)
		for _, row := range t.rows {
			if cw := lipgloss.Width(row[i]); cw > w {
				w = cw
			}
		}
		widths[i] = clampWidth(w, col)
		used += widths[i]
	}
	if flex == 0 {
		return widths
	}
	share := (t.display.AvailableWidth(MarkdownRenderMargin) - used) / flex
	for i, col := range t.columns {
		if col.Flex {
			widths[i] = clampWidth(share, col)
		}
	}
	return widths
}

func clampWidth(w int, col Column) int {
	if w < col.MinWidth {
		w = col.MinWidth
	}
	if col.MaxWidth > 0 && w > col.MaxWidth {
		w = col.MaxWidth
	}
	if w < 1 {
		w = 1
	}
	return w
}

// Render generates the table output as a string.
func (t *Table) Render() string {
	if len(t.rows) == 0 {
		return ""
	}
	widths := t.widths()

	headers := make([]string, len(t.columns))
	for i, col := range t.columns {
		headers[i] = col.Header
	}
	rows := make([][]string, len(t.rows))
	for i, row := range t.rows {
		cells := make([]string, len(row))
		for j, cell := range row {
			cells[j] = TruncateWithEllipsis(cell, widths[j])
		}
		rows[i] = cells
	}

	tbl := table.New().
		Border(lipgloss.HiddenBorder()).
		BorderTop(false).
		BorderBottom(false).
		BorderLeft(false).
		BorderRight(false).
		BorderHeader(false).
		BorderColumn(false).
		BorderRow(false).
		StyleFunc(func(row, col int) lipgloss.Style {
			if col >= len(t.columns) {
				return lipgloss.NewStyle()
			}
			def := t.columns[col]
			style := lipgloss.NewStyle()
			switch {
			case row == table.HeaderRow:
				style = Muted.Bold(true)
			case def.Style != nil:
				style = *def.Style
			}
			style = style.Width(widths[col])
			if def.Align == AlignRight {
				style = style.Align(lipgloss.Right)
			}
			if col < len(t.columns)-1 {
				style = style.PaddingRight(columnGap)
				style = style.Width(widths[col] + columnGap)
			}
			return style
		}).
		Headers(headers...).
		Rows(rows...)

	// lipgloss/table drops a data row when no headers are set, so headerless
	// tables render a blank header line and cut it.
	lines := strings.Split(strings.TrimRight(tbl.Render(), "\n"), "\n")
	if !hasHeaders(headers) && len(lines) > 0 {
		lines = lines[1:]
	}
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " ")
	}
	return strings.Join(lines, "\n") + "\n"
}

func hasHeaders(headers []string) bool {
	for _, h := range headers {
		if h != "" {
			return true
		}
	}
	return false
}

// TruncateWithEllipsis truncates a string to maxLen display cells, adding an
// ellipsis if needed. It tries to break at word boundaries.
func TruncateWithEllipsis(s string, maxLen int) string {
	if maxLen <= 0 || lipgloss.Width(s) <= maxLen {
		return s
	}
	runes := []rune(s)
	if maxLen <= 3 {
		return string(runes[:min(maxLen, len(runes))])
	}

	truncated := string(runes[:min(maxLen-3, len(runes))])
	lastSpace := strings.LastIndex(truncated, " ")
	if lastSpace > len(truncated)/2 {
		truncated = truncated[:lastSpace]
	}
	return truncated + "..."
}
