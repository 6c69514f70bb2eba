// Package manifest records what an extraction run wrote in a SQLite
// database: one row per run, per file and per archive.
package manifest

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/banshee-data/nyuv2/internal/timeutil"
)

// Run statuses.
const (
	StatusRunning  = "running"
	StatusComplete = "complete"
	StatusFailed   = "failed"
)

// Run is one recorded extraction.
type Run struct {
	ID         string
	Version    string
	ConfigJSON string
	Status     string
	StartedAt  time.Time
	FinishedAt sql.NullTime
}

// File is one written sample file.
type File struct {
	Category string
	Split    string
	Index    int
	Path     string
	Bytes    int64
	Colored  bool
}

// Archive is one written label archive.
type Archive struct {
	Split   string
	Path    string
	Entries int
	Bytes   int64
}

// Manifest is an open manifest database.
type Manifest struct {
	db *sql.DB
	// Clock stamps run start and finish times.
	Clock timeutil.Clock
}

// Open opens or creates the database at path and brings its schema up to
// date.
func Open(path string) (*Manifest, error) {
	db, err := sql.Open("sqlite", path+"?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open manifest %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("open manifest %s: %w", path, err)
	}
	if err := migrateUp(db); err != nil {
		db.Close()
		return nil, err
	}
	return &Manifest{db: db, Clock: timeutil.RealClock{}}, nil
}

// Close closes the database.
func (m *Manifest) Close() error { return m.db.Close() }

// BeginRun inserts a new run and returns its id.
func (m *Manifest) BeginRun(ctx context.Context, version string, configJSON []byte) (string, error) {
	id := uuid.NewString()
	_, err := m.db.ExecContext(ctx,
		`INSERT INTO runs (run_id, version, config_json, status, started_at) VALUES (?, ?, ?, ?, ?)`,
		id, version, string(configJSON), StatusRunning, m.Clock.Now().UTC())
	if err != nil {
		return "", fmt.Errorf("insert run: %w", err)
	}
	return id, nil
}

// FinishRun marks a run complete, or failed when runErr is not nil.
func (m *Manifest) FinishRun(ctx context.Context, runID string, runErr error) error {
	status := StatusComplete
	if runErr != nil {
		status = StatusFailed
	}
	res, err := m.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, finished_at = ? WHERE run_id = ?`,
		status, m.Clock.Now().UTC(), runID)
	if err != nil {
		return fmt.Errorf("finish run %s: %w", runID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("finish run %s: %w", runID, sql.ErrNoRows)
	}
	return nil
}

// RecordFiles stores the files of one run in a single transaction.
func (m *Manifest) RecordFiles(ctx context.Context, runID string, files []File) error {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO files (run_id, category, split, sample_index, path, bytes, colored)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare: %w", err)
	}
	defer stmt.Close()

	for _, f := range files {
		if _, err := stmt.ExecContext(ctx, runID, f.Category, f.Split, f.Index, f.Path, f.Bytes, f.Colored); err != nil {
			return fmt.Errorf("insert file %s: %w", f.Path, err)
		}
	}
	return tx.Commit()
}

// RecordArchive stores one archive of a run.
func (m *Manifest) RecordArchive(ctx context.Context, runID string, a Archive) error {
	_, err := m.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO archives (run_id, split, path, entries, bytes) VALUES (?, ?, ?, ?, ?)`,
		runID, a.Split, a.Path, a.Entries, a.Bytes)
	if err != nil {
		return fmt.Errorf("insert archive %s: %w", a.Path, err)
	}
	return nil
}

// Runs returns every recorded run, oldest first.
func (m *Manifest) Runs(ctx context.Context) ([]Run, error) {
	rows, err := m.db.QueryContext(ctx,
		`SELECT run_id, version, config_json, status, started_at, finished_at FROM runs ORDER BY started_at, run_id`)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		if err := rows.Scan(&r.ID, &r.Version, &r.ConfigJSON, &r.Status, &r.StartedAt, &r.FinishedAt); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// Files returns the files recorded for a run ordered by path.
func (m *Manifest) Files(ctx context.Context, runID string) ([]File, error) {
	rows, err := m.db.QueryContext(ctx, `
		SELECT category, split, sample_index, path, bytes, colored
		FROM files WHERE run_id = ? ORDER BY path`, runID)
	if err != nil {
		return nil, fmt.Errorf("query files: %w", err)
	}
	defer rows.Close()

	var files []File
	for rows.Next() {
		var f File
		if err := rows.Scan(&f.Category, &f.Split, &f.Index, &f.Path, &f.Bytes, &f.Colored); err != nil {
			return nil, fmt.Errorf("scan file: %w", err)
		}
		files = append(files, f)
	}
	return files, rows.Err()
}

// Archives returns the archives recorded for a run ordered by path.
func (m *Manifest) Archives(ctx context.Context, runID string) ([]Archive, error) {
	rows, err := m.db.QueryContext(ctx,
		`SELECT split, path, entries, bytes FROM archives WHERE run_id = ? ORDER BY path`, runID)
	if err != nil {
		return nil, fmt.Errorf("query archives: %w", err)
	}
	defer rows.Close()

	var out []Archive
	for rows.Next() {
		var a Archive
		if err := rows.Scan(&a.Split, &a.Path, &a.Entries, &a.Bytes); err != nil {
			return nil, fmt.Errorf("scan archive: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
