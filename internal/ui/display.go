package ui

import (
	"io"
	"os"

	"github.com/charmbracelet/x/term"
)

// DefaultTermWidth is the fallback terminal width when detection fails.
const DefaultTermWidth = 100

// DisplayContext holds display parameters, auto-detecting terminal width.
// It is the single source of truth for display settings.
type DisplayContext struct {
	TermWidth int  // detected or fallback terminal width
	IsTTY     bool // whether the output is a terminal
}

// NewDisplayContext creates a DisplayContext for stdout.
func NewDisplayContext() *DisplayContext {
	return NewDisplayContextFor(os.Stdout)
}

// NewDisplayContextFor detects the terminal behind w. Writers without a file
// descriptor get the fallback width.
func NewDisplayContextFor(w io.Writer) *DisplayContext {
	d := &DisplayContext{TermWidth: DefaultTermWidth}
	f, ok := w.(interface{ Fd() uintptr })
	if !ok {
		return d
	}
	fd := f.Fd()
	d.IsTTY = term.IsTerminal(fd)
	if d.IsTTY {
		if width, _, err := term.GetSize(fd); err == nil && width > 0 {
			d.TermWidth = width
		}
	}
	return d
}

// NewDisplayContextWithWidth creates a DisplayContext with a fixed width (for testing).
func NewDisplayContextWithWidth(width int) *DisplayContext {
	return &DisplayContext{
		TermWidth: width,
		IsTTY:     true,
	}
}

// AvailableWidth returns the usable width after accounting for left margin.
func (d *DisplayContext) AvailableWidth(leftMargin int) int {
	return d.TermWidth - leftMargin
}
