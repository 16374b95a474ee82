// Package telemetry records dispatches in a local sqlite journal.
package telemetry

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/aidanlsb/nounverb/internal/dispatch"
)

// SchemaVersion is the current journal schema version.
const SchemaVersion = 1

// ErrClosed is returned by journal operations after Close.
var ErrClosed = errors.New("telemetry journal is closed")

// Journal is a dispatch.Observer backed by sqlite.
type Journal struct {
	db     *sql.DB
	path   string
	logger *zap.Logger
	closed bool
}

// Option configures a Journal.
type Option func(*Journal)

// WithLogger sets the logger used for write failures.
func WithLogger(logger *zap.Logger) Option {
	return func(j *Journal) {
		if logger != nil {
			j.logger = logger
		}
	}
}

// Record is one journaled dispatch.
type Record struct {
	ID         string    `json:"id"`
	Noun       string    `json:"noun"`
	Verb       string    `json:"verb"`
	Started    time.Time `json:"started"`
	DurationMS float64   `json:"duration_ms"`
	Outcome    string    `json:"outcome"`
	Error      string    `json:"error,omitempty"`
}

// Stat aggregates the journal for one command.
type Stat struct {
	Noun          string    `json:"noun"`
	Verb          string    `json:"verb"`
	Count         int       `json:"count"`
	Failures      int       `json:"failures"`
	AvgDurationMS float64   `json:"avg_duration_ms"`
	LastUsed      time.Time `json:"last_used"`
}

// Open opens or creates the journal at path. ":memory:" opens a private
// in-memory journal.
func Open(path string, opts ...Option) (*Journal, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create telemetry directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open telemetry journal: %w", err)
	}
	// A single connection keeps ":memory:" journals coherent and serializes writers.
	db.SetMaxOpenConns(1)

	j := &Journal{db: db, path: path, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(j)
	}
	if err := j.initialize(); err != nil {
		db.Close()
		return nil, err
	}
	return j, nil
}

// Path returns the journal file path.
func (j *Journal) Path() string {
	return j.path
}

// Close closes the journal.
func (j *Journal) Close() error {
	if j.closed {
		return nil
	}
	j.closed = true
	return j.db.Close()
}

func (j *Journal) initialize() error {
	schema := `
		PRAGMA journal_mode = WAL;
		PRAGMA synchronous = NORMAL;
		PRAGMA temp_store = MEMORY;

		CREATE TABLE IF NOT EXISTS meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);

		CREATE TABLE IF NOT EXISTS events (
			id TEXT PRIMARY KEY,
			noun TEXT NOT NULL,
			verb TEXT NOT NULL,
			started_at INTEGER NOT NULL, -- unix milliseconds
			duration_us INTEGER NOT NULL,
			outcome TEXT NOT NULL,
			error TEXT
		);

		CREATE INDEX IF NOT EXISTS idx_events_started ON events(started_at);
		CREATE INDEX IF NOT EXISTS idx_events_command ON events(noun, verb);
	`
	if _, err := j.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to initialize telemetry schema: %w", err)
	}
	_, err := j.db.Exec(
		`INSERT INTO meta (key, value) VALUES ('version', ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		fmt.Sprint(SchemaVersion),
	)
	if err != nil {
		return fmt.Errorf("failed to record telemetry schema version: %w", err)
	}
	return nil
}

// Observe journals ev. Write failures are logged, never returned, so a
// broken journal cannot fail a command.
func (j *Journal) Observe(ev dispatch.Event) {
	if err := j.Record(ev); err != nil {
		j.logger.Warn("telemetry write failed", zap.String("id", ev.ID), zap.Error(err))
	}
}

// Record journals ev and reports any write failure.
func (j *Journal) Record(ev dispatch.Event) error {
	if j.closed {
		return ErrClosed
	}
	var errText sql.NullString
	if ev.Err != nil {
		errText = sql.NullString{String: ev.Err.Error(), Valid: true}
	}
	_, err := j.db.Exec(
		`INSERT INTO events (id, noun, verb, started_at, duration_us, outcome, error)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		ev.ID, ev.Noun, ev.Verb, ev.Started.UnixMilli(), ev.Duration.Microseconds(), string(ev.Outcome), errText,
	)
	return err
}

// Recent returns up to limit events, newest first. Nouns, when given,
// restrict the result to those nouns. limit <= 0 returns everything.
func (j *Journal) Recent(limit int, nouns ...string) ([]Record, error) {
	if j.closed {
		return nil, ErrClosed
	}

	var (
		where []string
		args  []any
	)
	if len(nouns) > 0 {
		cond, nounArgs := nounFilter(nouns)
		where = append(where, cond)
		args = append(args, nounArgs...)
	}

	query := `SELECT id, noun, verb, started_at, duration_us, outcome, error FROM events`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY started_at DESC, rowid DESC"
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	records, err := queryRows(j.db, query, args, func(rows *sql.Rows) (Record, error) {
		var (
			r         Record
			startedMS int64
			durUS     int64
			errText   sql.NullString
		)
		if err := rows.Scan(&r.ID, &r.Noun, &r.Verb, &startedMS, &durUS, &r.Outcome, &errText); err != nil {
			return Record{}, err
		}
		r.Started = time.UnixMilli(startedMS).UTC()
		r.DurationMS = float64(durUS) / 1000
		r.Error = errText.String
		return r, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query telemetry: %w", err)
	}
	return records, nil
}

// Summary aggregates the journal per command, most used first.
func (j *Journal) Summary() ([]Stat, error) {
	if j.closed {
		return nil, ErrClosed
	}
	stats, err := queryRows(j.db, `
		SELECT noun, verb, COUNT(*),
			SUM(CASE WHEN outcome = 'ok' THEN 0 ELSE 1 END),
			AVG(duration_us),
			MAX(started_at)
		FROM events
		GROUP BY noun, verb
		ORDER BY COUNT(*) DESC, noun, verb
	`, nil, func(rows *sql.Rows) (Stat, error) {
		var (
			s      Stat
			avgUS  float64
			lastMS int64
		)
		if err := rows.Scan(&s.Noun, &s.Verb, &s.Count, &s.Failures, &avgUS, &lastMS); err != nil {
			return Stat{}, err
		}
		s.AvgDurationMS = avgUS / 1000
		s.LastUsed = time.UnixMilli(lastMS).UTC()
		return s, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to summarize telemetry: %w", err)
	}
	return stats, nil
}

// Clear deletes every event and returns how many were removed.
func (j *Journal) Clear() (int64, error) {
	if j.closed {
		return 0, ErrClosed
	}
	res, err := j.db.Exec(`DELETE FROM events`)
	if err != nil {
		return 0, fmt.Errorf("failed to clear telemetry: %w", err)
	}
	return res.RowsAffected()
}
