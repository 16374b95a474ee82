package builtin

import (
	"context"

	"github.com/aidanlsb/nounverb/internal/app"
	"github.com/aidanlsb/nounverb/internal/registry"
	"github.com/aidanlsb/nounverb/internal/telemetry"
	"github.com/aidanlsb/nounverb/internal/ui"
)

type recentArgs struct {
	Limit int      `short:"n" default:"20" help:"Maximum number of events"`
	Noun  []string `required:"false" help:"Only show events of this noun (repeatable)"`
}

func withJournal[T any](ctx context.Context, fn func(*telemetry.Journal) (T, error)) (T, error) {
	var zero T
	rt, err := app.FromContext(ctx)
	if err != nil {
		return zero, err
	}
	j, owned, err := rt.OpenJournal()
	if err != nil {
		return zero, err
	}
	if owned {
		defer j.Close()
	}
	return fn(j)
}

func recentEvents(ctx context.Context, args recentArgs) ([]telemetry.Record, error) {
	return withJournal(ctx, func(j *telemetry.Journal) ([]telemetry.Record, error) {
		recs, err := j.Recent(args.Limit, args.Noun...)
		if recs == nil && err == nil {
			recs = []telemetry.Record{}
		}
		return recs, err
	})
}

func summarizeEvents(ctx context.Context, _ struct{}) ([]telemetry.Stat, error) {
	return withJournal(ctx, func(j *telemetry.Journal) ([]telemetry.Stat, error) {
		stats, err := j.Summary()
		if stats == nil && err == nil {
			stats = []telemetry.Stat{}
		}
		return stats, err
	})
}

type clearResult struct {
	Removed int64 `json:"removed"`
}

func (r clearResult) Text() string {
	if r.Removed == 1 {
		return ui.Success("Removed 1 event")
	}
	return ui.Successf("Removed %d events", r.Removed)
}

func clearEvents(ctx context.Context, _ struct{}) (clearResult, error) {
	return withJournal(ctx, func(j *telemetry.Journal) (clearResult, error) {
		n, err := j.Clear()
		return clearResult{Removed: n}, err
	})
}

func telemetryRegistrations() []registry.Registration {
	return []registry.Registration{
		registry.Func("telemetry", "recent", "Show recent dispatches", recentEvents).
			WithExamples("nv telemetry recent -n 5 --noun config"),
		registry.Func("telemetry", "summary", "Summarize dispatches per command", summarizeEvents),
		registry.Func("telemetry", "clear", "Delete every journaled dispatch", clearEvents),
	}
}
