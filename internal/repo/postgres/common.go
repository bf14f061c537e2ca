package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/animus-labs/smsc-go/internal/repo"
)

type DB interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

const createStageExecutionsQuery = `CREATE TABLE IF NOT EXISTS stage_executions (
	stage_execution_id TEXT PRIMARY KEY,
	run_id TEXT NOT NULL,
	pipeline TEXT NOT NULL,
	stage_index INTEGER NOT NULL,
	state TEXT NOT NULL,
	outcome TEXT NOT NULL,
	input TEXT,
	message TEXT,
	window_start TIMESTAMPTZ NOT NULL,
	window_end TIMESTAMPTZ NOT NULL,
	started_at TIMESTAMPTZ NOT NULL,
	finished_at TIMESTAMPTZ,
	UNIQUE (run_id, pipeline, stage_index)
)`

// EnsureSchema creates the ledger table when missing.
func EnsureSchema(ctx context.Context, db DB) error {
	if db == nil {
		return errors.New("db is required")
	}
	_, err := db.ExecContext(ctx, createStageExecutionsQuery)
	return err
}

func normalizeTime(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now().UTC()
	}
	return t.UTC()
}

func nullIfEmpty(value string) sql.NullString {
	if value == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: value, Valid: true}
}

func handleNotFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return repo.ErrNotFound
	}
	return err
}
