// Package history persists build outcomes in a local SQLite database so past
// runs stay inspectable after site output and reports rotate.
package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	derrors "git.home.luguber.info/inful/docsite/internal/errors"
	"git.home.luguber.info/inful/docsite/internal/pipeline"
)

// DefaultFileName is the history database filename under the project's state
// directory.
const DefaultFileName = "history.db"

// Run is one recorded build.
type Run struct {
	ID           string    // pipeline run id
	ManifestHash string    // sha256 of the manifest bytes at build time
	StartedAt    time.Time
	DurationMS   int64
	Outcome      string
	Docs         int
	Errors       int
	Warnings     int
	Report       []byte // full serialized report JSON
}

// FromReport composes a Run from a finished pipeline report.
func FromReport(report *pipeline.Report, manifestHash string) (Run, error) {
	data, err := json.Marshal(report.Serializable())
	if err != nil {
		return Run{}, derrors.InternalError("failed to serialize report for history", err)
	}
	return Run{
		ID:           report.RunID,
		ManifestHash: manifestHash,
		StartedAt:    report.Start,
		DurationMS:   report.Duration().Milliseconds(),
		Outcome:      string(report.Outcome),
		Docs:         report.Docs,
		Errors:       len(report.Errors),
		Warnings:     len(report.Warnings),
		Report:       data,
	}, nil
}

// Store wraps the SQLite run log. Use ":memory:" for tests.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// Open opens (or creates) the history database at dbPath.
func Open(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, derrors.WrapError(err, derrors.CategoryStore, "failed to open history database")
	}
	s := &Store{db: db}
	if err := s.initialize(); err != nil {
		_ = db.Close()
		return nil, derrors.WrapError(err, derrors.CategoryStore, "failed to initialize history schema")
	}
	return s, nil
}

func (s *Store) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		manifest_hash TEXT NOT NULL,
		started_at INTEGER NOT NULL,
		duration_ms INTEGER NOT NULL,
		outcome TEXT NOT NULL,
		docs INTEGER NOT NULL,
		errors INTEGER NOT NULL,
		warnings INTEGER NOT NULL,
		report BLOB
	);
	CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at);
	CREATE INDEX IF NOT EXISTS idx_runs_manifest_hash ON runs(manifest_hash);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Append records one build run.
func (s *Store) Append(ctx context.Context, run Run) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, manifest_hash, started_at, duration_ms, outcome, docs, errors, warnings, report)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.ManifestHash, run.StartedAt.Unix(), run.DurationMS,
		run.Outcome, run.Docs, run.Errors, run.Warnings, run.Report,
	)
	if err != nil {
		return derrors.WrapError(err, derrors.CategoryStore, "failed to record build run")
	}
	return nil
}

// Recent returns the newest runs, most recent first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, manifest_hash, started_at, duration_ms, outcome, docs, errors, warnings, report
		 FROM runs ORDER BY started_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, derrors.WrapError(err, derrors.CategoryStore, "failed to query build history")
	}
	defer rows.Close()
	return scanRuns(rows)
}

// ByManifestHash returns runs recorded for a specific manifest revision.
func (s *Store) ByManifestHash(ctx context.Context, hash string, limit int) ([]Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, manifest_hash, started_at, duration_ms, outcome, docs, errors, warnings, report
		 FROM runs WHERE manifest_hash = ? ORDER BY started_at DESC, id DESC LIMIT ?`, hash, limit)
	if err != nil {
		return nil, derrors.WrapError(err, derrors.CategoryStore, "failed to query build history")
	}
	defer rows.Close()
	return scanRuns(rows)
}

// Get looks up a single run by id.
func (s *Store) Get(ctx context.Context, runID string) (Run, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx,
		`SELECT id, manifest_hash, started_at, duration_ms, outcome, docs, errors, warnings, report
		 FROM runs WHERE id = ?`, runID)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, false, nil
	}
	if err != nil {
		return Run{}, false, derrors.WrapError(err, derrors.CategoryStore, "failed to load build run")
	}
	return run, true, nil
}

// Prune deletes everything but the newest keep runs and reports how many
// rows were removed.
func (s *Store) Prune(ctx context.Context, keep int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if keep < 0 {
		keep = 0
	}
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM runs WHERE id NOT IN (
			SELECT id FROM runs ORDER BY started_at DESC, id DESC LIMIT ?
		)`, keep)
	if err != nil {
		return 0, derrors.WrapError(err, derrors.CategoryStore, "failed to prune build history")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, nil
	}
	return int(n), nil
}

// Close closes the database.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (Run, error) {
	var run Run
	var startedUnix int64
	err := row.Scan(&run.ID, &run.ManifestHash, &startedUnix, &run.DurationMS,
		&run.Outcome, &run.Docs, &run.Errors, &run.Warnings, &run.Report)
	if err != nil {
		return Run{}, err
	}
	run.StartedAt = time.Unix(startedUnix, 0).UTC()
	return run, nil
}

func scanRuns(rows *sql.Rows) ([]Run, error) {
	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, derrors.WrapError(err, derrors.CategoryStore, "failed to scan build run")
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, derrors.WrapError(err, derrors.CategoryStore, "failed to iterate build runs")
	}
	return runs, nil
}
