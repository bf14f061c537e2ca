package repo

import (
	"context"
	"errors"
	"time"
)

var ErrNotFound = errors.New("not found")

// StageExecutionRecord is the ledger row written when a stage reaches a
// terminal state.
type StageExecutionRecord struct {
	ID          string
	RunID       string
	Pipeline    string
	StageIndex  int
	State       string
	Outcome     string
	Input       string
	Message     string
	WindowStart time.Time
	WindowEnd   time.Time
	StartedAt   time.Time
	FinishedAt  *time.Time
}

// StageExecutionRepository stores stage outcomes. Inserts are idempotent
// per (run, pipeline, stage); the bool reports whether a row was created.
type StageExecutionRepository interface {
	Insert(ctx context.Context, record StageExecutionRecord) (StageExecutionRecord, bool, error)
	ListByRun(ctx context.Context, runID, pipeline string) ([]StageExecutionRecord, error)
}
