package registry

import (
	"context"
	"fmt"
	"reflect"

	"github.com/aidanlsb/nounverb/internal/commands"
	"github.com/aidanlsb/nounverb/internal/validate"
)

// Handler executes a command against its validated arguments.
// The returned value is handed to the output layer and must be serializable.
type Handler interface {
	Execute(ctx context.Context, m *validate.Matches) (any, error)
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(ctx context.Context, m *validate.Matches) (any, error)

// Execute calls f(ctx, m).
func (f HandlerFunc) Execute(ctx context.Context, m *validate.Matches) (any, error) {
	return f(ctx, m)
}

// Registration is one command waiting to be registered.
// Err records an extraction failure; it is reported when the registration is applied.
type Registration struct {
	Meta    commands.Meta
	Handler Handler
	Err     error
}

// WithExamples returns a copy of r with usage examples attached.
func (r Registration) WithExamples(examples ...string) Registration {
	r.Meta.Examples = append(append([]string(nil), r.Meta.Examples...), examples...)
	return r
}

// WithLongDesc returns a copy of r with a markdown long description.
// An empty about text is filled from the first paragraph.
func (r Registration) WithLongDesc(markdown string) Registration {
	r.Meta.LongDesc = markdown
	if r.Meta.Description == "" {
		r.Meta.Description = commands.Summary(markdown)
	}
	return r
}

// WithArgHelp returns a copy of r with the description of one argument replaced.
func (r Registration) WithArgHelp(name, help string) Registration {
	args := append([]commands.ArgMeta(nil), r.Meta.Args...)
	for i := range args {
		if args[i].Name == name {
			args[i].Description = help
		}
	}
	r.Meta.Args = args
	return r
}

// WithCompletions returns a copy of r with static completions for one argument.
func (r Registration) WithCompletions(name string, values ...string) Registration {
	args := append([]commands.ArgMeta(nil), r.Meta.Args...)
	for i := range args {
		if args[i].Name == name {
			args[i].Completions = append([]string(nil), values...)
		}
	}
	r.Meta.Args = args
	return r
}

// Command builds a registration from explicit metadata and a handler.
func Command(meta commands.Meta, h Handler) Registration {
	return Registration{Meta: meta, Handler: h}
}

// Func builds a registration from a typed handler. The argument metadata is
// extracted from A's fields and the result type R is checked for serializability.
//
//	type statusArgs struct {
//		Service string `pos:"0" help:"Service name"`
//		Lines   *int   `short:"n" help:"Number of log lines"`
//	}
//	registry.Collect(registry.Func("services", "status", "Show service status", status))
func Func[A any, R any](noun, verb, about string, fn func(context.Context, A) (R, error)) Registration {
	return FuncWithOptions(commands.ExtractOptions{}, noun, verb, about, fn)
}

// FuncWithOptions is Func with explicit extraction options.
func FuncWithOptions[A any, R any](opts commands.ExtractOptions, noun, verb, about string, fn func(context.Context, A) (R, error)) Registration {
	reg := Registration{
		Meta: commands.Meta{Noun: noun, Verb: verb, Description: about},
	}
	if fn == nil {
		reg.Err = ErrNilHandler
		return reg
	}

	argType := reflect.TypeOf((*A)(nil)).Elem()
	if argType.Kind() != reflect.Struct {
		reg.Err = fmt.Errorf("%w: parameters must be a struct, got %s", commands.ErrUnsupportedType, argType)
		return reg
	}
	schema, err := commands.Extract(argType, opts)
	if err != nil {
		reg.Err = err
		return reg
	}
	if err := commands.CheckResult(reflect.TypeOf((*R)(nil)).Elem()); err != nil {
		reg.Err = err
		return reg
	}

	reg.Meta.Args = schema.Args
	reg.Handler = &typedHandler[A, R]{schema: schema, fn: fn}
	return reg
}

type typedHandler[A any, R any] struct {
	schema *commands.Schema
	fn     func(context.Context, A) (R, error)
}

func (h *typedHandler[A, R]) Execute(ctx context.Context, m *validate.Matches) (any, error) {
	var args A
	if err := validate.Bind(m, h.schema, &args); err != nil {
		return nil, err
	}
	out, err := h.fn(ctx, args)
	return out, err
}
