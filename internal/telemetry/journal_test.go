package telemetry

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/aidanlsb/nounverb/internal/dispatch"
	"github.com/aidanlsb/nounverb/internal/registry"
)

var base = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func event(id, noun, verb string, offset time.Duration, outcome dispatch.Outcome, err error) dispatch.Event {
	return dispatch.Event{
		ID:       id,
		Noun:     noun,
		Verb:     verb,
		Started:  base.Add(offset),
		Duration: 1500 * time.Microsecond,
		Outcome:  outcome,
		Err:      err,
	}
}

func openJournal(t *testing.T) *Journal {
	t.Helper()
	j, err := Open(filepath.Join(t.TempDir(), "state", "telemetry.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = j.Close() })
	return j
}

func TestRecordAndRecent(t *testing.T) {
	j := openJournal(t)

	require.NoError(t, j.Record(event("a", "services", "status", 0, dispatch.OutcomeOK, nil)))
	require.NoError(t, j.Record(event("b", "logs", "tail", time.Second, dispatch.OutcomeHandlerError, errors.New("boom"))))
	require.NoError(t, j.Record(event("c", "services", "restart", 2*time.Second, dispatch.OutcomeOK, nil)))

	recs, err := j.Recent(0)
	require.NoError(t, err)
	require.Len(t, recs, 3)
	assert.Equal(t, []string{"c", "b", "a"}, []string{recs[0].ID, recs[1].ID, recs[2].ID})
	assert.Equal(t, "boom", recs[1].Error)
	assert.Equal(t, "handler_error", recs[1].Outcome)
	assert.Equal(t, 1.5, recs[0].DurationMS)
	assert.True(t, recs[2].Started.Equal(base))

	recs, err = j.Recent(1)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "c", recs[0].ID)

	recs, err = j.Recent(10, "Services")
	require.NoError(t, err)
	require.Len(t, recs, 2)
	for _, r := range recs {
		assert.Equal(t, "services", r.Noun)
	}
}

func TestSummary(t *testing.T) {
	j := openJournal(t)
	require.NoError(t, j.Record(event("1", "services", "status", 0, dispatch.OutcomeOK, nil)))
	require.NoError(t, j.Record(event("2", "services", "status", time.Minute, dispatch.OutcomeInvalidArgs, errors.New("bad"))))
	require.NoError(t, j.Record(event("3", "logs", "tail", 0, dispatch.OutcomeOK, nil)))

	stats, err := j.Summary()
	require.NoError(t, err)
	require.Len(t, stats, 2)

	assert.Equal(t, "services", stats[0].Noun)
	assert.Equal(t, "status", stats[0].Verb)
	assert.Equal(t, 2, stats[0].Count)
	assert.Equal(t, 1, stats[0].Failures)
	assert.Equal(t, 1.5, stats[0].AvgDurationMS)
	assert.True(t, stats[0].LastUsed.Equal(base.Add(time.Minute)))

	assert.Equal(t, "logs", stats[1].Noun)
	assert.Equal(t, 0, stats[1].Failures)
}

func TestClear(t *testing.T) {
	j := openJournal(t)
	require.NoError(t, j.Record(event("1", "services", "status", 0, dispatch.OutcomeOK, nil)))
	require.NoError(t, j.Record(event("2", "services", "status", 0, dispatch.OutcomeOK, nil)))

	n, err := j.Clear()
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	recs, err := j.Recent(0)
	require.NoError(t, err)
	assert.Empty(t, recs)
}

func TestReopenKeepsEvents(t *testing.T) {
	path := filepath.Join(t.TempDir(), "telemetry.db")
	j, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, j.Record(event("1", "services", "status", 0, dispatch.OutcomeOK, nil)))
	require.NoError(t, j.Close())

	j, err = Open(path)
	require.NoError(t, err)
	defer j.Close()
	recs, err := j.Recent(0)
	require.NoError(t, err)
	assert.Len(t, recs, 1)
	assert.Equal(t, path, j.Path())
}

func TestClosedJournal(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	j, err := Open(":memory:", WithLogger(zap.New(core)))
	require.NoError(t, err)
	require.NoError(t, j.Close())
	require.NoError(t, j.Close())

	assert.ErrorIs(t, j.Record(event("1", "services", "status", 0, dispatch.OutcomeOK, nil)), ErrClosed)
	_, err = j.Recent(0)
	assert.ErrorIs(t, err, ErrClosed)
	_, err = j.Summary()
	assert.ErrorIs(t, err, ErrClosed)
	_, err = j.Clear()
	assert.ErrorIs(t, err, ErrClosed)

	j.Observe(event("1", "services", "status", 0, dispatch.OutcomeOK, nil))
	assert.Equal(t, 1, logs.FilterMessage("telemetry write failed").Len())
}

func TestJournalObservesDispatcher(t *testing.T) {
	j, err := Open(":memory:")
	require.NoError(t, err)
	defer j.Close()

	reg := registry.New()
	require.NoError(t, reg.Initialize([]registry.Registration{
		registry.Func("services", "status", "Show service status",
			func(_ context.Context, _ struct{}) (string, error) { return "up", nil }),
	}, nil))
	d := dispatch.New(reg, dispatch.WithObservers(j))

	_, err = d.Dispatch(context.Background(), "services", "status", nil)
	require.NoError(t, err)
	_, err = d.Dispatch(context.Background(), "services", "stats", nil)
	require.Error(t, err)

	recs, err := j.Recent(0)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	outcomes := map[string]bool{}
	for _, r := range recs {
		outcomes[r.Outcome] = true
		assert.NotEmpty(t, r.ID)
	}
	assert.True(t, outcomes["ok"])
	assert.True(t, outcomes["not_found"])
}

func TestNounFilter(t *testing.T) {
	cond, args := nounFilter(nil)
	assert.Equal(t, "noun IN (NULL)", cond)
	assert.Empty(t, args)

	cond, args = nounFilter([]string{"a", " B "})
	assert.Equal(t, "noun IN (?, ?)", cond)
	assert.Equal(t, []any{"a", "b"}, args)
}
