package cli

import (
	"errors"
	"fmt"

	"github.com/aidanlsb/nounverb/internal/app"
	"github.com/aidanlsb/nounverb/internal/output"
	"github.com/aidanlsb/nounverb/internal/registry"
	"github.com/aidanlsb/nounverb/internal/validate"
)

// Error codes for structured error responses.
// These codes are stable and can be relied upon by agents.
const (
	// Lookup errors
	ErrCommandNotFound = "COMMAND_NOT_FOUND"
	ErrVerbNotFound    = "VERB_NOT_FOUND"

	// Validation errors
	ErrValidationFailed = "VALIDATION_FAILED"
	ErrMissingArgument  = "MISSING_ARGUMENT"
	ErrInvalidValue     = "INVALID_VALUE"
	ErrUnknownArgument  = "UNKNOWN_ARGUMENT"

	// Startup errors
	ErrRegistryNotReady   = "REGISTRY_NOT_READY"
	ErrRegistrationFailed = "REGISTRATION_FAILED"
	ErrConfigInvalid      = "CONFIG_INVALID"

	// Execution errors
	ErrHandlerError = "HANDLER_ERROR"
	ErrInternal     = "INTERNAL_ERROR"
)

// Warning codes for non-fatal issues.
const (
	WarnSuggestionsOnly = "SUGGESTIONS_ONLY"
)

// Process exit codes.
const (
	ExitOK         = 0
	ExitFailure    = 1
	ExitNotFound   = 2
	ExitValidation = 3
)

// ExitError carries the process exit code of a failed invocation. The error
// has already been reported when it is returned.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("exit status %d", e.Code)
	}
	return e.Err.Error()
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// failure is a classified error ready to be reported.
type failure struct {
	info        output.ErrorInfo
	suggestions []string
	exit        int
}

// classify maps err to a stable code and exit status. command names the
// invocation for usage hints; fromHandler marks errors a handler returned.
func classify(err error, command string, fromHandler bool) failure {
	f := failure{
		info: output.ErrorInfo{Message: err.Error()},
		exit: ExitFailure,
	}

	var (
		lookupErr *registry.LookupError
		valErr    *validate.Error
		cfgErr    *app.ConfigError
		startErr  *app.StartupError
	)
	switch {
	case errors.As(err, &lookupErr):
		f.exit = ExitNotFound
		f.info.Code = ErrCommandNotFound
		if lookupErr.Kind == registry.VerbNotFound {
			f.info.Code = ErrVerbNotFound
		}
		f.suggestions = lookupErr.Suggestions
		if len(lookupErr.Suggestions) > 0 {
			f.info.Details = map[string]any{"suggestions": lookupErr.Suggestions}
			f.info.Suggestion = fmt.Sprintf("Did you mean '%s %s'?", Program, lookupErr.Suggestions[0])
		} else {
			f.info.Suggestion = fmt.Sprintf("Run '%s commands list' to see available commands", Program)
		}

	case errors.As(err, &valErr):
		f.exit = ExitValidation
		switch valErr.Kind {
		case validate.MissingRequired:
			f.info.Code = ErrMissingArgument
		case validate.TypeMismatch, validate.OutOfRange:
			f.info.Code = ErrInvalidValue
		case validate.UnknownArgument:
			f.info.Code = ErrUnknownArgument
		default:
			f.info.Code = ErrValidationFailed
		}
		details := map[string]any{"argument": valErr.Arg, "kind": valErr.Kind.String()}
		if valErr.Expected != "" {
			details["expected"] = valErr.Expected
		}
		if valErr.Value != "" {
			details["value"] = valErr.Value
		}
		f.info.Details = details
		if command != "" {
			f.info.Suggestion = fmt.Sprintf("Run '%s %s --help' for usage", Program, command)
		}

	case errors.Is(err, validate.ErrValidation):
		f.exit = ExitValidation
		f.info.Code = ErrValidationFailed

	case errors.As(err, &cfgErr):
		f.info.Code = ErrConfigInvalid
		f.info.Details = map[string]any{"path": cfgErr.Path}
		f.info.Suggestion = fmt.Sprintf("Run '%s config path' to locate the file", Program)

	case errors.As(err, &startErr):
		f.info.Code = ErrRegistrationFailed

	case errors.Is(err, registry.ErrNotReady):
		f.info.Code = ErrRegistryNotReady

	case fromHandler:
		f.info.Code = ErrHandlerError

	default:
		f.info.Code = ErrInternal
	}
	return f
}
