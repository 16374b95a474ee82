package registry

import (
	"errors"
	"fmt"
)

var (
	// ErrNotReady is returned by every read or insert made before the registry is Ready.
	ErrNotReady = errors.New("registry not ready")
	// ErrAlreadyInitialized is returned when Initialize runs on a registry that left Uninitialized.
	ErrAlreadyInitialized = errors.New("registry already initialized")
	// ErrDuplicate matches *DuplicateError.
	ErrDuplicate = errors.New("duplicate registration")
	// ErrInvalidName is returned for noun or verb names that are not lowercase slugs.
	ErrInvalidName = errors.New("invalid command name")
	// ErrReservedNoun is returned for nouns that collide with built-in entry points.
	ErrReservedNoun = errors.New("reserved noun")
	// ErrReservedFlag is returned for arguments whose flag name or shorthand
	// is taken by a global flag.
	ErrReservedFlag = errors.New("reserved flag")
	// ErrNounConflict is returned when one noun is described twice with different text.
	ErrNounConflict = errors.New("conflicting noun description")
	// ErrNilHandler is returned when a command is registered without a handler.
	ErrNilHandler = errors.New("nil handler")

	// ErrCommandNotFound matches a *LookupError for an unknown noun.
	ErrCommandNotFound = errors.New("command not found")
	// ErrVerbNotFound matches a *LookupError for an unknown verb of a known noun.
	ErrVerbNotFound = errors.New("verb not found")
)

// DuplicateError reports a second registration of the same noun-verb pair.
type DuplicateError struct {
	Noun string
	Verb string
}

func (e *DuplicateError) Error() string {
	return fmt.Sprintf("duplicate registration of %q", e.Noun+" "+e.Verb)
}

func (e *DuplicateError) Is(target error) bool {
	return target == ErrDuplicate
}

// LookupKind says which part of a command path was not found.
type LookupKind int

const (
	CommandNotFound LookupKind = iota
	VerbNotFound
)

func (k LookupKind) String() string {
	if k == VerbNotFound {
		return "verb_not_found"
	}
	return "command_not_found"
}

// LookupError reports an unknown noun or verb.
// Suggestions holds the nearest command names, best first, when the caller attached them.
type LookupError struct {
	Kind        LookupKind
	Noun        string
	Verb        string
	Suggestions []string
}

func (e *LookupError) Error() string {
	if e.Kind == VerbNotFound {
		return fmt.Sprintf("unknown verb %q for %q", e.Verb, e.Noun)
	}
	return fmt.Sprintf("unknown command %q", e.Noun)
}

func (e *LookupError) Is(target error) bool {
	switch target {
	case ErrCommandNotFound:
		return e.Kind == CommandNotFound
	case ErrVerbNotFound:
		return e.Kind == VerbNotFound
	}
	return false
}

// WithSuggestions returns a copy of e carrying the given suggestions.
func (e *LookupError) WithSuggestions(names []string) *LookupError {
	cp := *e
	cp.Suggestions = append([]string(nil), names...)
	return &cp
}

// RegistrationError wraps the reason a single registration was rejected.
type RegistrationError struct {
	Noun string
	Verb string
	Err  error
}

func (e *RegistrationError) Error() string {
	if e.Verb == "" {
		return fmt.Sprintf("register noun %q: %v", e.Noun, e.Err)
	}
	return fmt.Sprintf("register %q: %v", e.Noun+" "+e.Verb, e.Err)
}

func (e *RegistrationError) Unwrap() error {
	return e.Err
}

func joinErrors(errs []error) error {
	if len(errs) == 1 {
		return errs[0]
	}
	return errors.Join(errs...)
}
