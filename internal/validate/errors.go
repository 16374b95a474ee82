package validate

import (
	"errors"
	"fmt"

	"github.com/spf13/pflag"
)

var (
	// ErrValidation matches every *Error.
	ErrValidation = errors.New("validation failed")
	// ErrHelp is returned by Parse when -h or --help appears before "--".
	ErrHelp = pflag.ErrHelp
)

// ErrorKind classifies a validation failure.
type ErrorKind int

const (
	MissingRequired ErrorKind = iota
	TypeMismatch
	OutOfRange
	UnknownArgument
)

func (k ErrorKind) String() string {
	switch k {
	case MissingRequired:
		return "missing_required"
	case TypeMismatch:
		return "type_mismatch"
	case OutOfRange:
		return "out_of_range"
	case UnknownArgument:
		return "unknown_argument"
	}
	return fmt.Sprintf("ErrorKind(%d)", int(k))
}

// Error is a user-facing argument validation failure.
// Arg is the argument name, Expected the shape the argument accepts and Value
// the offending input, when there is one.
type Error struct {
	Kind     ErrorKind
	Arg      string
	Expected string
	Value    string
	Reason   string // optional detail
}

func (e *Error) Error() string {
	var msg string
	switch e.Kind {
	case MissingRequired:
		msg = fmt.Sprintf("missing required argument %s", e.Arg)
		if e.Expected != "" {
			msg += " (" + e.Expected + ")"
		}
	case TypeMismatch:
		if e.Value != "" {
			msg = fmt.Sprintf("invalid value %q for %s: expected %s", e.Value, e.Arg, e.Expected)
		} else {
			msg = fmt.Sprintf("argument %s is %s", e.Arg, e.Expected)
		}
	case OutOfRange:
		msg = fmt.Sprintf("value %q for %s is out of range: expected %s", e.Value, e.Arg, e.Expected)
	case UnknownArgument:
		msg = fmt.Sprintf("unknown argument %s", e.Arg)
	default:
		msg = "invalid argument " + e.Arg
	}
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	return msg
}

func (e *Error) Is(target error) bool {
	return target == ErrValidation
}
