package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/okian/mmo/internal/domain/model"
	"github.com/okian/mmo/pkg/metrics"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id            TEXT PRIMARY KEY,
	user_name     TEXT NOT NULL,
	file_name     TEXT NOT NULL,
	fingerprint   TEXT NOT NULL,
	model_version TEXT NOT NULL,
	row_count     INTEGER NOT NULL,
	group_count   INTEGER NOT NULL,
	top_count     INTEGER NOT NULL,
	created_at    INTEGER NOT NULL,
	payload       TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS runs_created_at ON runs (created_at DESC);
`

// payload is the part of a run stored as a JSON document.
type payload struct {
	Groups   []model.Group `json:"groups"`
	Top      []model.Group `json:"top"`
	Warnings []string      `json:"warnings,omitempty"`
}

// SQLiteStore keeps runs in a SQLite database file.
type SQLiteStore struct {
	db      *sql.DB
	maxRuns int
}

// NewSQLiteStore opens (creating if needed) the database at dsn. A dsn of
// ":memory:" gives a private in-memory database.
func NewSQLiteStore(ctx context.Context, dsn string, opts ...Option) (*SQLiteStore, error) {
	o := applyOptions(opts)
	if dsn != ":memory:" && !strings.HasPrefix(dsn, "file:") {
		if err := os.MkdirAll(filepath.Dir(dsn), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One connection keeps ":memory:" databases shared and serializes writers.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}
	s := &SQLiteStore{db: db, maxRuns: o.maxRuns}
	metrics.UpdateHistoryRuns(s.Count(ctx))
	return s, nil
}

func (s *SQLiteStore) Save(ctx context.Context, run model.Run) error {
	start := time.Now()
	defer func() {
		metrics.RecordHistoryLatency("save", float64(time.Since(start).Milliseconds()))
	}()
	if run.ID == "" {
		return fmt.Errorf("%w: empty id", ErrInvalidRun)
	}

	doc, err := json.Marshal(payload{Groups: run.Groups, Top: run.Top, Warnings: run.Warnings})
	if err != nil {
		return fmt.Errorf("encode run %s: %w", run.ID, err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin save: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
		INSERT OR REPLACE INTO runs
			(id, user_name, file_name, fingerprint, model_version, row_count, group_count, top_count, created_at, payload)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.User, run.FileName, run.Fingerprint, run.ModelVersion,
		run.Rows, len(run.Groups), len(run.Top), run.CreatedAt.UnixNano(), string(doc))
	if err != nil {
		metrics.RecordErrorByComponent("repository", "save_failed")
		return fmt.Errorf("save run %s: %w", run.ID, err)
	}
	if s.maxRuns > 0 {
		_, err = tx.ExecContext(ctx, `
			DELETE FROM runs WHERE id NOT IN (
				SELECT id FROM runs ORDER BY created_at DESC, id ASC LIMIT ?
			)`, s.maxRuns)
		if err != nil {
			return fmt.Errorf("prune runs: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit save: %w", err)
	}

	metrics.UpdateHistoryRuns(s.Count(ctx))
	return nil
}

func (s *SQLiteStore) Get(ctx context.Context, id string) (model.Run, error) {
	start := time.Now()
	defer func() {
		metrics.RecordHistoryLatency("get", float64(time.Since(start).Milliseconds()))
	}()

	var (
		run     model.Run
		created int64
		doc     string
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, user_name, file_name, fingerprint, model_version, row_count, created_at, payload
		FROM runs WHERE id = ?`, id).
		Scan(&run.ID, &run.User, &run.FileName, &run.Fingerprint, &run.ModelVersion, &run.Rows, &created, &doc)
	if errors.Is(err, sql.ErrNoRows) {
		metrics.RecordErrorByComponent("repository", "not_found")
		return model.Run{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return model.Run{}, fmt.Errorf("load run %s: %w", id, err)
	}

	var p payload
	if err := json.Unmarshal([]byte(doc), &p); err != nil {
		return model.Run{}, fmt.Errorf("decode run %s: %w", id, err)
	}
	run.Groups, run.Top, run.Warnings = p.Groups, p.Top, p.Warnings
	run.CreatedAt = time.Unix(0, created).UTC()
	return run, nil
}

func (s *SQLiteStore) List(ctx context.Context, limit int) ([]model.RunSummary, error) {
	start := time.Now()
	defer func() {
		metrics.RecordHistoryLatency("list", float64(time.Since(start).Milliseconds()))
	}()
	if limit <= 0 {
		metrics.RecordErrorByComponent("repository", "invalid_limit")
		return nil, fmt.Errorf("%w: %d", ErrInvalidLimit, limit)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_name, file_name, model_version, row_count, group_count, top_count, created_at
		FROM runs ORDER BY created_at DESC, id ASC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var out []model.RunSummary
	for rows.Next() {
		var (
			r       model.RunSummary
			created int64
		)
		if err := rows.Scan(&r.ID, &r.User, &r.FileName, &r.ModelVersion, &r.Rows, &r.Groups, &r.Top, &created); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		r.CreatedAt = time.Unix(0, created).UTC()
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) Count(ctx context.Context) int {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM runs`).Scan(&n); err != nil {
		return 0
	}
	return n
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
