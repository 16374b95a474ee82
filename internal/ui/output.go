package ui

import (
	"fmt"
	"strings"
)

// Status marks prefix one-line messages. They stay uncolored so meaning
// survives --no-color.
const (
	markSuccess = "✓"
	markError   = "✗"
	markWarning = "⚠"
	markInfo    = "ℹ"
)

func mark(m, msg string) string { return m + " " + msg }

func Success(msg string) string { return mark(markSuccess, msg) }
func Error(msg string) string   { return mark(markError, msg) }
func Warning(msg string) string { return mark(markWarning, msg) }
func Info(msg string) string    { return mark(markInfo, msg) }

// Successf formats msg before marking it.
func Successf(format string, args ...any) string {
	return Success(fmt.Sprintf(format, args...))
}

// Header renders a section title.
func Header(msg string) string { return Bold.Render(msg) }

// CommandName renders a "noun verb" path in the accent color.
func CommandName(name string) string { return Accent.Render(name) }

// Hint renders secondary guidance.
func Hint(msg string) string { return Muted.Render(msg) }

// DidYouMean returns a hint naming the suggested commands, or "" without
// suggestions.
func DidYouMean(names []string) string {
	if len(names) == 0 {
		return ""
	}
	quoted := make([]string, len(names))
	for i, n := range names {
		quoted[i] = fmt.Sprintf("%q", n)
	}
	if len(quoted) == 1 {
		return Hint("Did you mean " + quoted[0] + "?")
	}
	return Hint("Did you mean one of: " + strings.Join(quoted, ", ") + "?")
}
