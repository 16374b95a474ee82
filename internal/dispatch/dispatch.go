// Package dispatch routes a parsed invocation to its registered handler.
package dispatch

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/aidanlsb/nounverb/internal/discovery"
	"github.com/aidanlsb/nounverb/internal/registry"
	"github.com/aidanlsb/nounverb/internal/validate"
)

// DefaultSuggestLimit is the number of suggestions attached to a lookup miss.
const DefaultSuggestLimit = 3

// Outcome classifies a finished dispatch.
type Outcome string

const (
	OutcomeOK           Outcome = "ok"
	OutcomeNotFound     Outcome = "not_found"
	OutcomeInvalidArgs  Outcome = "invalid_args"
	OutcomeHandlerError Outcome = "handler_error"
)

// Event describes one dispatch for observers.
type Event struct {
	ID       string
	Noun     string
	Verb     string
	Started  time.Time
	Duration time.Duration
	Outcome  Outcome
	Err      error
}

// Observer is notified after every dispatch that reached a lookup.
// Observers run synchronously on the dispatching goroutine.
type Observer interface {
	Observe(Event)
}

// ObserverFunc adapts a function to the Observer interface.
type ObserverFunc func(Event)

// Observe calls f(ev).
func (f ObserverFunc) Observe(ev Event) {
	f(ev)
}

// Dispatcher looks up, validates and runs commands.
type Dispatcher struct {
	reg          *registry.Registry
	engine       *discovery.Engine
	observers    []Observer
	logger       *zap.Logger
	suggestLimit int
	now          func() time.Time
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithObservers appends observers.
func WithObservers(obs ...Observer) Option {
	return func(d *Dispatcher) {
		for _, o := range obs {
			if o != nil {
				d.observers = append(d.observers, o)
			}
		}
	}
}

// WithEngine sets the discovery engine used for suggestions.
func WithEngine(e *discovery.Engine) Option {
	return func(d *Dispatcher) {
		if e != nil {
			d.engine = e
		}
	}
}

// WithLogger sets the dispatch logger.
func WithLogger(logger *zap.Logger) Option {
	return func(d *Dispatcher) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// WithSuggestLimit sets how many suggestions a lookup miss carries.
func WithSuggestLimit(n int) Option {
	return func(d *Dispatcher) {
		if n > 0 {
			d.suggestLimit = n
		}
	}
}

// New creates a dispatcher over reg. Without WithEngine it suggests with the
// default discovery weights.
func New(reg *registry.Registry, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		reg:          reg,
		logger:       zap.NewNop(),
		suggestLimit: DefaultSuggestLimit,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.engine == nil {
		d.engine = discovery.New(reg)
	}
	return d
}

// Registry returns the registry the dispatcher routes into.
func (d *Dispatcher) Registry() *registry.Registry {
	return d.reg
}

// Dispatch runs the command registered under noun and verb with raw arguments.
//
// A lookup miss returns a *registry.LookupError carrying suggestions. Invalid
// arguments return a *validate.Error, or validate.ErrHelp when help was asked
// for. Whatever the handler returns is passed back unchanged.
func (d *Dispatcher) Dispatch(ctx context.Context, noun, verb string, raw []string) (any, error) {
	ev := Event{ID: uuid.NewString(), Noun: noun, Verb: verb, Started: d.now()}

	entry, err := d.reg.Lookup(noun, verb)
	if err != nil {
		var lerr *registry.LookupError
		if !errors.As(err, &lerr) {
			return nil, err
		}
		err = lerr.WithSuggestions(d.Suggestions(noun, verb))
		d.finish(ev, OutcomeNotFound, err)
		return nil, err
	}

	m, err := validate.Parse(entry.Meta.Args, raw)
	if err != nil {
		if errors.Is(err, validate.ErrHelp) {
			return nil, err
		}
		d.finish(ev, OutcomeInvalidArgs, err)
		return nil, err
	}

	out, err := entry.Handler.Execute(ctx, m)
	switch {
	case err == nil:
		d.finish(ev, OutcomeOK, nil)
	case errors.Is(err, validate.ErrValidation):
		d.finish(ev, OutcomeInvalidArgs, err)
	default:
		d.finish(ev, OutcomeHandlerError, err)
	}
	return out, err
}

// Suggestions returns the names of the commands nearest to "noun verb".
// Lookup failures yield no suggestions rather than an error.
func (d *Dispatcher) Suggestions(noun, verb string) []string {
	input := strings.TrimSpace(noun + " " + verb)
	results, err := d.engine.Suggest(input, d.suggestLimit)
	if err != nil {
		d.logger.Debug("suggest failed", zap.String("input", input), zap.Error(err))
		return nil
	}
	return discovery.Names(results)
}

func (d *Dispatcher) finish(ev Event, outcome Outcome, err error) {
	ev.Duration = d.now().Sub(ev.Started)
	ev.Outcome = outcome
	ev.Err = err

	fields := []zap.Field{
		zap.String("id", ev.ID),
		zap.String("noun", ev.Noun),
		zap.String("verb", ev.Verb),
		zap.String("outcome", string(outcome)),
		zap.Duration("duration", ev.Duration),
	}
	if err != nil {
		fields = append(fields, zap.Error(err))
	}
	d.logger.Debug("dispatch", fields...)

	for _, o := range d.observers {
		o.Observe(ev)
	}
}
