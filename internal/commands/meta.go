// Package commands provides command metadata, metadata extraction and Cobra command generation.
package commands

import (
	"strings"
)

// Meta describes a single noun-verb command.
// The (Noun, Verb) pair is the command's identity.
type Meta struct {
	Noun        string
	Verb        string
	Description string // one-line about text
	LongDesc    string // optional markdown
	Args        []ArgMeta
	Examples    []string
}

// Name returns the command path as typed on the command line ("services status").
func (m Meta) Name() string {
	return m.Noun + " " + m.Verb
}

// ID returns the underscore form of the command path ("services_status").
func (m Meta) ID() string {
	return m.Noun + "_" + m.Verb
}

// ArgMeta describes a single command argument.
type ArgMeta struct {
	Name        string
	Description string
	Required    bool
	IsFlag      bool
	Multiple    bool
	Positional  bool
	Default     string
	HasDefault  bool
	Short       rune // 0 when the argument has no shorthand
	Kind        ValueKind
	Enum        []string // allowed values for KindEnum
	Completions []string // static completions
}

// ShortName returns the shorthand as a string, or "" when there is none.
func (a ArgMeta) ShortName() string {
	if a.Short == 0 {
		return ""
	}
	return string(a.Short)
}

// Shape returns a short human description of the value the argument expects.
// It is used in validation messages and help output.
func (a ArgMeta) Shape() string {
	var shape string
	switch a.Kind {
	case KindEnum:
		shape = "one of " + strings.Join(a.Enum, "|")
	case KindCount:
		return "repeatable flag"
	case KindBool:
		return "flag"
	default:
		shape = string(a.Kind)
	}
	if a.Multiple {
		shape += " (repeatable)"
	}
	return shape
}

// ValueKind is the kind of value an argument accepts.
type ValueKind string

const (
	KindString ValueKind = "string"
	KindInt    ValueKind = "int"
	KindFloat  ValueKind = "float"
	KindBool   ValueKind = "bool"
	KindPath   ValueKind = "path"
	KindEnum   ValueKind = "enum"
	KindCount  ValueKind = "count"
)

// Path marks a parameter as a filesystem path.
type Path string

// Count marks a parameter as a repeatable counter flag (-vvv).
type Count int

// PositionalArgs returns the positional arguments in declaration order.
func (m Meta) PositionalArgs() []ArgMeta {
	var out []ArgMeta
	for _, a := range m.Args {
		if a.Positional {
			out = append(out, a)
		}
	}
	return out
}

// FlagArgs returns the named (non-positional) arguments in declaration order.
func (m Meta) FlagArgs() []ArgMeta {
	var out []ArgMeta
	for _, a := range m.Args {
		if !a.Positional {
			out = append(out, a)
		}
	}
	return out
}

// Arg returns the argument with the given name.
func (m Meta) Arg(name string) (ArgMeta, bool) {
	for _, a := range m.Args {
		if a.Name == name {
			return a, true
		}
	}
	return ArgMeta{}, false
}

// ResolveCommandPath splits a CLI command path into noun and verb.
// Example: "services status" -> ("services", "status")
// The underscore form "services_status" is accepted as well.
func ResolveCommandPath(path string) (noun, verb string, ok bool) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", "", false
	}
	parts := strings.Fields(trimmed)
	if len(parts) == 1 {
		parts = strings.SplitN(parts[0], "_", 2)
	}
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", false
	}
	return parts[0], parts[1], true
}
