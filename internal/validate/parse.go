// Package validate parses raw command-line arguments against argument metadata
// and exposes the parsed values through typed accessors that never panic.
package validate

import (
	"errors"
	"io"
	"math"
	"reflect"
	"strconv"
	"strings"

	"github.com/spf13/pflag"

	"github.com/aidanlsb/nounverb/internal/commands"
)

func init() {
	commands.ForbidType(reflect.TypeOf(Matches{}))
}

// Matches holds the parsed arguments of one invocation.
type Matches struct {
	args   []commands.ArgMeta
	index  map[string]int
	values map[string][]string // supplied values, or the default
	given  map[string]bool     // supplied on the command line
	counts map[string]int      // occurrences of flag arguments
}

// Args returns the metadata the matches were parsed against.
func (m *Matches) Args() []commands.ArgMeta {
	return m.args
}

// Values returns the raw values of an argument and whether it has any,
// either supplied or defaulted.
func (m *Matches) Values(name string) ([]string, bool) {
	vals, ok := m.values[name]
	return vals, ok
}

// Given reports whether the argument was supplied on the command line.
func (m *Matches) Given(name string) bool {
	return m.given[name]
}

func (m *Matches) arg(name string) (commands.ArgMeta, bool) {
	if m == nil {
		return commands.ArgMeta{}, false
	}
	i, ok := m.index[name]
	if !ok {
		return commands.ArgMeta{}, false
	}
	return m.args[i], true
}

// Parse parses raw against args.
//
// Named arguments are pflag flags: bools are plain flags, counts repeat,
// repeatable arguments collect every occurrence and everything else takes one
// value. Remaining words fill positionals in order; a repeatable positional
// takes the rest. Every value is checked against its argument's kind and
// defaults are applied to whatever was not supplied.
func Parse(args []commands.ArgMeta, raw []string) (*Matches, error) {
	m := &Matches{
		args:   args,
		index:  make(map[string]int, len(args)),
		values: make(map[string][]string),
		given:  make(map[string]bool),
		counts: make(map[string]int),
	}
	for i, a := range args {
		m.index[a.Name] = i
	}

	fs := pflag.NewFlagSet("args", pflag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.Usage = func() {}

	var (
		strs   = map[string]*string{}
		arrays = map[string]*[]string{}
		bools  = map[string]*bool{}
		counts = map[string]*int{}
	)
	for _, a := range args {
		if a.Positional {
			continue
		}
		short := a.ShortName()
		switch {
		case a.Kind == commands.KindCount:
			counts[a.Name] = fs.CountP(a.Name, short, a.Description)
		case a.Kind == commands.KindBool:
			bools[a.Name] = fs.BoolP(a.Name, short, false, a.Description)
		case a.Multiple:
			arrays[a.Name] = fs.StringArrayP(a.Name, short, nil, a.Description)
		default:
			strs[a.Name] = fs.StringP(a.Name, short, "", a.Description)
		}
	}

	if err := fs.Parse(raw); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil, ErrHelp
		}
		return nil, m.parseError(err)
	}

	for name, p := range strs {
		if fs.Changed(name) {
			m.set(name, []string{*p})
		}
	}
	for name, p := range arrays {
		if fs.Changed(name) {
			m.set(name, *p)
		}
	}
	for name, p := range bools {
		if fs.Changed(name) {
			m.set(name, []string{strconv.FormatBool(*p)})
			if *p {
				m.counts[name] = 1
			}
		}
	}
	for name, p := range counts {
		if fs.Changed(name) {
			m.set(name, []string{strconv.Itoa(*p)})
			m.counts[name] = *p
		}
	}

	if err := m.assignPositionals(fs.Args()); err != nil {
		return nil, err
	}

	for _, a := range args {
		for _, v := range m.values[a.Name] {
			if err := checkValue(a, v); err != nil {
				return nil, err
			}
		}
	}

	for _, a := range args {
		if m.given[a.Name] {
			continue
		}
		if a.HasDefault {
			m.values[a.Name] = []string{a.Default}
			continue
		}
		if a.Required {
			return nil, &Error{Kind: MissingRequired, Arg: label(a), Expected: a.Shape()}
		}
	}
	return m, nil
}

func (m *Matches) set(name string, vals []string) {
	m.values[name] = vals
	m.given[name] = true
}

func (m *Matches) assignPositionals(words []string) error {
	i := 0
	for _, a := range m.args {
		if !a.Positional {
			continue
		}
		if i >= len(words) {
			break
		}
		if a.Multiple {
			m.set(a.Name, append([]string(nil), words[i:]...))
			i = len(words)
			break
		}
		m.set(a.Name, []string{words[i]})
		i++
	}
	if i < len(words) {
		return &Error{Kind: UnknownArgument, Arg: strconv.Quote(words[i]), Reason: "unexpected positional argument"}
	}
	return nil
}

// parseError converts a pflag error into an *Error naming the offending flag.
func (m *Matches) parseError(err error) error {
	msg := err.Error()
	name := m.flagInMessage(msg)
	a, known := m.arg(name)
	display := "--" + name
	switch {
	case known:
		display = label(a)
	case len(name) == 1:
		display = "-" + name
	}

	switch {
	case strings.Contains(msg, "unknown flag"), strings.Contains(msg, "unknown shorthand flag"):
		if name == "" {
			return &Error{Kind: UnknownArgument, Arg: msg}
		}
		return &Error{Kind: UnknownArgument, Arg: display}
	case strings.Contains(msg, "needs an argument"):
		return &Error{Kind: MissingRequired, Arg: display, Expected: a.Shape(), Reason: "flag needs a value"}
	case strings.HasPrefix(msg, "invalid argument"):
		return &Error{Kind: TypeMismatch, Arg: display, Expected: a.Shape(), Value: quotedValue(msg)}
	}
	return &Error{Kind: TypeMismatch, Arg: display, Expected: a.Shape(), Reason: msg}
}

// flagInMessage extracts the flag name from a pflag error message, resolving
// shorthands to their long name.
func (m *Matches) flagInMessage(msg string) string {
	if i := strings.LastIndex(msg, "--"); i >= 0 {
		rest := msg[i+2:]
		end := strings.IndexAny(rest, " \"=")
		if end >= 0 {
			rest = rest[:end]
		}
		return rest
	}
	if i := strings.Index(msg, "'"); i >= 0 && i+2 < len(msg) && msg[i+2] == '\'' {
		short := rune(msg[i+1])
		for _, a := range m.args {
			if a.Short == short {
				return a.Name
			}
		}
		return string(short)
	}
	return ""
}

func quotedValue(msg string) string {
	start := strings.Index(msg, "\"")
	if start < 0 {
		return ""
	}
	end := strings.Index(msg[start+1:], "\"")
	if end < 0 {
		return ""
	}
	return msg[start+1 : start+1+end]
}

// label renders an argument the way it is typed: <name> for positionals, --name otherwise.
func label(a commands.ArgMeta) string {
	if a.Positional {
		return "<" + a.Name + ">"
	}
	return "--" + a.Name
}

func checkValue(a commands.ArgMeta, v string) error {
	switch a.Kind {
	case commands.KindInt:
		if _, err := strconv.ParseInt(v, 10, 64); err != nil {
			// Values past MaxInt64 are left to the accessor, which knows
			// whether the destination is unsigned.
			if _, uerr := strconv.ParseUint(v, 10, 64); uerr == nil {
				return nil
			}
			if errors.Is(err, strconv.ErrRange) {
				return &Error{Kind: OutOfRange, Arg: label(a), Expected: a.Shape(), Value: v}
			}
			return &Error{Kind: TypeMismatch, Arg: label(a), Expected: a.Shape(), Value: v}
		}
	case commands.KindFloat:
		f, err := strconv.ParseFloat(v, 64)
		if err != nil && !errors.Is(err, strconv.ErrRange) {
			return &Error{Kind: TypeMismatch, Arg: label(a), Expected: a.Shape(), Value: v}
		}
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return &Error{Kind: OutOfRange, Arg: label(a), Expected: "finite " + a.Shape(), Value: v}
		}
	case commands.KindPath:
		if strings.TrimSpace(v) == "" {
			return &Error{Kind: TypeMismatch, Arg: label(a), Expected: a.Shape(), Value: v}
		}
	case commands.KindEnum:
		for _, allowed := range a.Enum {
			if v == allowed {
				return nil
			}
		}
		return &Error{Kind: OutOfRange, Arg: label(a), Expected: a.Shape(), Value: v}
	}
	return nil
}
