package dispatch

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/aidanlsb/nounverb/internal/registry"
	"github.com/aidanlsb/nounverb/internal/validate"
)

type statusArgs struct {
	Service string `pos:"0" help:"Service name"`
	Lines   *uint  `short:"n" help:"Number of log lines"`
}

type statusResult struct {
	Service string `json:"service"`
	Lines   uint   `json:"lines"`
}

var errServiceDown = errors.New("service is down")

func servicesStatus(_ context.Context, args statusArgs) (statusResult, error) {
	if args.Service == "db" {
		return statusResult{}, errServiceDown
	}
	res := statusResult{Service: args.Service, Lines: 10}
	if args.Lines != nil {
		res.Lines = *args.Lines
	}
	return res, nil
}

type recorder struct {
	events []Event
}

func (r *recorder) Observe(ev Event) {
	r.events = append(r.events, ev)
}

func newDispatcher(t *testing.T, opts ...Option) *Dispatcher {
	t.Helper()
	reg := registry.New()
	require.NoError(t, reg.Initialize([]registry.Registration{
		registry.Func("services", "status", "Show service status", servicesStatus),
		registry.Func("services", "restart", "Restart a service", servicesStatus),
		registry.Func("logs", "tail", "Follow log output", servicesStatus),
	}, nil))
	return New(reg, opts...)
}

func TestDispatchRunsHandler(t *testing.T) {
	rec := &recorder{}
	d := newDispatcher(t, WithObservers(rec))

	out, err := d.Dispatch(context.Background(), "services", "status", []string{"api", "-n", "3"})
	require.NoError(t, err)
	assert.Equal(t, statusResult{Service: "api", Lines: 3}, out)

	require.Len(t, rec.events, 1)
	ev := rec.events[0]
	assert.Equal(t, OutcomeOK, ev.Outcome)
	assert.Equal(t, "services", ev.Noun)
	assert.Equal(t, "status", ev.Verb)
	assert.NotEmpty(t, ev.ID)
	assert.NoError(t, ev.Err)
}

func TestDispatchMisspelledSuggests(t *testing.T) {
	rec := &recorder{}
	d := newDispatcher(t, WithObservers(rec))

	_, err := d.Dispatch(context.Background(), "serv", "stat", nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, registry.ErrCommandNotFound)

	var lerr *registry.LookupError
	require.True(t, errors.As(err, &lerr))
	assert.Equal(t, registry.CommandNotFound, lerr.Kind)
	assert.Contains(t, lerr.Suggestions, "services status")
	assert.Equal(t, "services status", lerr.Suggestions[0])
	assert.LessOrEqual(t, len(lerr.Suggestions), DefaultSuggestLimit)

	require.Len(t, rec.events, 1)
	assert.Equal(t, OutcomeNotFound, rec.events[0].Outcome)
}

func TestDispatchUnknownVerb(t *testing.T) {
	d := newDispatcher(t, WithSuggestLimit(1))

	_, err := d.Dispatch(context.Background(), "services", "stauts", nil)
	var lerr *registry.LookupError
	require.True(t, errors.As(err, &lerr))
	assert.Equal(t, registry.VerbNotFound, lerr.Kind)
	assert.Equal(t, []string{"services status"}, lerr.Suggestions)
}

func TestDispatchInvalidArguments(t *testing.T) {
	rec := &recorder{}
	d := newDispatcher(t, WithObservers(rec))

	_, err := d.Dispatch(context.Background(), "services", "status", []string{"api", "--lines", "many"})
	var verr *validate.Error
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, validate.TypeMismatch, verr.Kind)
	assert.Equal(t, "--lines", verr.Arg)

	_, err = d.Dispatch(context.Background(), "services", "status", nil)
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, validate.MissingRequired, verr.Kind)

	require.Len(t, rec.events, 2)
	for _, ev := range rec.events {
		assert.Equal(t, OutcomeInvalidArgs, ev.Outcome)
	}
}

func TestDispatchHelpIsNotObserved(t *testing.T) {
	rec := &recorder{}
	d := newDispatcher(t, WithObservers(rec))

	_, err := d.Dispatch(context.Background(), "services", "status", []string{"--help"})
	assert.ErrorIs(t, err, validate.ErrHelp)
	assert.Empty(t, rec.events)
}

func TestDispatchPassesHandlerErrorThrough(t *testing.T) {
	rec := &recorder{}
	d := newDispatcher(t, WithObservers(rec))

	_, err := d.Dispatch(context.Background(), "services", "status", []string{"db"})
	assert.Equal(t, errServiceDown, err, "handler error must not be wrapped")

	require.Len(t, rec.events, 1)
	assert.Equal(t, OutcomeHandlerError, rec.events[0].Outcome)
	assert.Equal(t, errServiceDown, rec.events[0].Err)
}

func TestDispatchRegistryNotReady(t *testing.T) {
	rec := &recorder{}
	d := New(registry.New(), WithObservers(rec))

	_, err := d.Dispatch(context.Background(), "services", "status", nil)
	assert.ErrorIs(t, err, registry.ErrNotReady)
	assert.Empty(t, rec.events)
}

func TestDispatchPostReadyRegistration(t *testing.T) {
	d := newDispatcher(t)
	err := d.Registry().Add(registry.Func("services", "stop", "Stop a service",
		func(_ context.Context, args statusArgs) (string, error) {
			return fmt.Sprintf("stopped %s", args.Service), nil
		}))
	require.NoError(t, err)

	out, err := d.Dispatch(context.Background(), "services", "stop", []string{"api"})
	require.NoError(t, err)
	assert.Equal(t, "stopped api", out)
}

func TestDispatchLogsAtDebug(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	d := newDispatcher(t, WithLogger(zap.New(core)))
	clock := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	d.now = func() time.Time {
		clock = clock.Add(5 * time.Millisecond)
		return clock
	}

	_, err := d.Dispatch(context.Background(), "services", "status", []string{"api"})
	require.NoError(t, err)

	entries := logs.FilterMessage("dispatch").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "ok", fields["outcome"])
	assert.Equal(t, "services", fields["noun"])
	assert.Equal(t, 5*time.Millisecond, fields["duration"])
}

func TestObserverFunc(t *testing.T) {
	var got []Outcome
	d := newDispatcher(t, WithObservers(ObserverFunc(func(ev Event) {
		got = append(got, ev.Outcome)
	}), nil))

	_, _ = d.Dispatch(context.Background(), "logs", "tail", []string{"api"})
	_, _ = d.Dispatch(context.Background(), "logs", "head", nil)
	assert.Equal(t, []Outcome{OutcomeOK, OutcomeNotFound}, got)
}
