// Package ledger records build runs and per-kernel outcomes in SQLite.
//
// The default driver is modernc.org/sqlite (pure Go). The cgo-based
// mattn/go-sqlite3 driver can be selected with ledger.driver: sqlite3.
package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
	_ "modernc.org/sqlite"
)

// Supported driver names.
const (
	DriverSQLite  = "sqlite"
	DriverSQLite3 = "sqlite3"
)

// SchemaVersion is the current ledger schema version.
const SchemaVersion = 1

// Run statuses.
const (
	StatusOK      = "ok"
	StatusPartial = "partial"
	StatusFailed  = "failed"
)

// Outcome is one kernel's result within a run.
type Outcome struct {
	KernelPath    string
	CanonicalName string
	TopFunction   string
	// Status is StatusOK or StatusFailed.
	Status       string
	ErrorCode    string
	ErrorMessage string
}

// Run is one recorded build.
type Run struct {
	ID           string
	StartedAt    time.Time
	Duration     time.Duration
	Status       string
	ArchivePath  string
	ArchiveBytes int64
	Resolver     string
	Outcomes     []Outcome
}

// Counts returns the number of successful and failed kernels.
func (r Run) Counts() (ok, failed int) {
	for _, o := range r.Outcomes {
		if o.Status == StatusOK {
			ok++
		} else {
			failed++
		}
	}
	return ok, failed
}

// Recorder persists runs.
type Recorder interface {
	RecordRun(ctx context.Context, run Run) error
}

// Store is a SQLite-backed run ledger.
type Store struct {
	db   *sql.DB
	path string
}

// Open opens (creating if needed) the ledger at path with the named driver.
func Open(path, driver string) (*Store, error) {
	if driver == "" {
		driver = DriverSQLite
	}
	if driver != DriverSQLite && driver != DriverSQLite3 {
		return nil, fmt.Errorf("unsupported ledger driver %q", driver)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create ledger directory: %w", err)
	}

	db, err := sql.Open(driver, path)
	if err != nil {
		return nil, fmt.Errorf("failed to open ledger: %w", err)
	}

	// Single writer; concurrent hlsbench processes rely on busy_timeout.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA foreign_keys = ON",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	s := &Store{db: db, path: path}
	if err := s.initSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return s, nil
}

func (s *Store) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER PRIMARY KEY
	);

	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		started_at_ns INTEGER NOT NULL,
		duration_ns INTEGER NOT NULL,
		status TEXT NOT NULL,
		archive_path TEXT NOT NULL DEFAULT '',
		archive_bytes INTEGER NOT NULL DEFAULT 0,
		resolver TEXT NOT NULL DEFAULT ''
	);
	CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at_ns DESC);

	CREATE TABLE IF NOT EXISTS kernel_outcomes (
		run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
		kernel_path TEXT NOT NULL,
		canonical_name TEXT NOT NULL DEFAULT '',
		top_function TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL,
		error_code TEXT NOT NULL DEFAULT '',
		error_message TEXT NOT NULL DEFAULT '',
		PRIMARY KEY (run_id, kernel_path)
	);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return err
	}
	_, err := s.db.Exec(`INSERT OR IGNORE INTO schema_version (version) VALUES (?)`, SchemaVersion)
	return err
}

// RecordRun stores run and its outcomes in one transaction.
func (s *Store) RecordRun(ctx context.Context, run Run) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs (id, started_at_ns, duration_ns, status, archive_path, archive_bytes, resolver)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, run.ID, run.StartedAt.UnixNano(), int64(run.Duration), run.Status, run.ArchivePath, run.ArchiveBytes, run.Resolver)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO kernel_outcomes (run_id, kernel_path, canonical_name, top_function, status, error_code, error_message)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, o := range run.Outcomes {
		if _, err := stmt.ExecContext(ctx, run.ID, o.KernelPath, o.CanonicalName, o.TopFunction,
			o.Status, o.ErrorCode, o.ErrorMessage); err != nil {
			return fmt.Errorf("insert outcome %s: %w", o.KernelPath, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// Recent returns up to limit runs, newest first, with their outcomes.
func (s *Store) Recent(ctx context.Context, limit int) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, started_at_ns, duration_ns, status, archive_path, archive_bytes, resolver
		FROM runs
		ORDER BY started_at_ns DESC, id
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}

	var runs []Run
	for rows.Next() {
		var (
			r                   Run
			startedNs, duration int64
		)
		if err := rows.Scan(&r.ID, &startedNs, &duration, &r.Status, &r.ArchivePath, &r.ArchiveBytes, &r.Resolver); err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("scan run: %w", err)
		}
		r.StartedAt = time.Unix(0, startedNs)
		r.Duration = time.Duration(duration)
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return nil, err
	}
	// Release the single connection before loading outcomes.
	_ = rows.Close()

	for i := range runs {
		if runs[i].Outcomes, err = s.Outcomes(ctx, runs[i].ID); err != nil {
			return nil, err
		}
	}
	return runs, nil
}

// Outcomes returns the kernel outcomes of one run, ordered by kernel path.
func (s *Store) Outcomes(ctx context.Context, runID string) ([]Outcome, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT kernel_path, canonical_name, top_function, status, error_code, error_message
		FROM kernel_outcomes
		WHERE run_id = ?
		ORDER BY kernel_path
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query outcomes: %w", err)
	}
	defer rows.Close()

	var out []Outcome
	for rows.Next() {
		var o Outcome
		if err := rows.Scan(&o.KernelPath, &o.CanonicalName, &o.TopFunction, &o.Status, &o.ErrorCode, &o.ErrorMessage); err != nil {
			return nil, fmt.Errorf("scan outcome: %w", err)
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

var _ Recorder = (*Store)(nil)
