package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/animus-labs/smsc-go/internal/repo"
)

type StageExecutionStore struct {
	db DB
}

const (
	insertStageExecutionQuery = `INSERT INTO stage_executions (
		stage_execution_id,
		run_id,
		pipeline,
		stage_index,
		state,
		outcome,
		input,
		message,
		window_start,
		window_end,
		started_at,
		finished_at
	) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
	ON CONFLICT (run_id, pipeline, stage_index) DO NOTHING
	RETURNING stage_execution_id, run_id, pipeline, stage_index, state, outcome, input, message, window_start, window_end, started_at, finished_at`

	selectStageExecutionQuery = `SELECT stage_execution_id, run_id, pipeline, stage_index, state, outcome, input, message, window_start, window_end, started_at, finished_at
	 FROM stage_executions
	 WHERE run_id = $1 AND pipeline = $2 AND stage_index = $3`

	listStageExecutionsByRunQuery = `SELECT stage_execution_id, run_id, pipeline, stage_index, state, outcome, input, message, window_start, window_end, started_at, finished_at
	 FROM stage_executions
	 WHERE run_id = $1 AND pipeline = $2
	 ORDER BY stage_index ASC`
)

var _ repo.StageExecutionRepository = (*StageExecutionStore)(nil)

func NewStageExecutionStore(db DB) *StageExecutionStore {
	if db == nil {
		return nil
	}
	return &StageExecutionStore{db: db}
}

func (s *StageExecutionStore) Insert(ctx context.Context, record repo.StageExecutionRecord) (repo.StageExecutionRecord, bool, error) {
	if s == nil || s.db == nil {
		return repo.StageExecutionRecord{}, false, fmt.Errorf("stage execution store not initialized")
	}
	runID := strings.TrimSpace(record.RunID)
	pipeline := strings.TrimSpace(record.Pipeline)
	state := strings.TrimSpace(record.State)
	outcome := strings.TrimSpace(record.Outcome)
	if runID == "" {
		return repo.StageExecutionRecord{}, false, fmt.Errorf("run id is required")
	}
	if pipeline == "" {
		return repo.StageExecutionRecord{}, false, fmt.Errorf("pipeline is required")
	}
	if record.StageIndex < 1 {
		return repo.StageExecutionRecord{}, false, fmt.Errorf("stage index must be >= 1")
	}
	if state == "" {
		return repo.StageExecutionRecord{}, false, fmt.Errorf("state is required")
	}
	if outcome == "" {
		return repo.StageExecutionRecord{}, false, fmt.Errorf("outcome is required")
	}

	var finishedAt sql.NullTime
	if record.FinishedAt != nil && !record.FinishedAt.IsZero() {
		finishedAt = sql.NullTime{Time: record.FinishedAt.UTC(), Valid: true}
	}
	id := record.ID
	if strings.TrimSpace(id) == "" {
		id = uuid.NewString()
	}

	row := s.db.QueryRowContext(
		ctx,
		insertStageExecutionQuery,
		id,
		runID,
		pipeline,
		record.StageIndex,
		state,
		outcome,
		nullIfEmpty(record.Input),
		nullIfEmpty(record.Message),
		record.WindowStart.UTC(),
		record.WindowEnd.UTC(),
		normalizeTime(record.StartedAt),
		finishedAt,
	)
	inserted, err := scanStageExecution(row)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			return repo.StageExecutionRecord{}, false, fmt.Errorf("insert stage execution: %w", err)
		}
		existing, err := s.get(ctx, runID, pipeline, record.StageIndex)
		if err != nil {
			return repo.StageExecutionRecord{}, false, err
		}
		return existing, false, nil
	}
	return inserted, true, nil
}

func (s *StageExecutionStore) ListByRun(ctx context.Context, runID, pipeline string) ([]repo.StageExecutionRecord, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("stage execution store not initialized")
	}
	runID = strings.TrimSpace(runID)
	pipeline = strings.TrimSpace(pipeline)
	if runID == "" {
		return nil, fmt.Errorf("run id is required")
	}
	if pipeline == "" {
		return nil, fmt.Errorf("pipeline is required")
	}

	rows, err := s.db.QueryContext(ctx, listStageExecutionsByRunQuery, runID, pipeline)
	if err != nil {
		return nil, fmt.Errorf("list stage executions: %w", err)
	}
	defer rows.Close()

	records := make([]repo.StageExecutionRecord, 0)
	for rows.Next() {
		record, err := scanStageExecution(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list stage executions: %w", err)
	}
	return records, nil
}

func (s *StageExecutionStore) get(ctx context.Context, runID, pipeline string, stage int) (repo.StageExecutionRecord, error) {
	row := s.db.QueryRowContext(ctx, selectStageExecutionQuery, runID, pipeline, stage)
	record, err := scanStageExecution(row)
	if err != nil {
		return repo.StageExecutionRecord{}, handleNotFound(err)
	}
	return record, nil
}

type stageExecutionScanner interface {
	Scan(dest ...any) error
}

func scanStageExecution(scanner stageExecutionScanner) (repo.StageExecutionRecord, error) {
	var record repo.StageExecutionRecord
	var input, message sql.NullString
	var finishedAt sql.NullTime
	if err := scanner.Scan(
		&record.ID,
		&record.RunID,
		&record.Pipeline,
		&record.StageIndex,
		&record.State,
		&record.Outcome,
		&input,
		&message,
		&record.WindowStart,
		&record.WindowEnd,
		&record.StartedAt,
		&finishedAt,
	); err != nil {
		return repo.StageExecutionRecord{}, err
	}
	record.Input = input.String
	record.Message = message.String
	if finishedAt.Valid {
		t := finishedAt.Time.UTC()
		record.FinishedAt = &t
	}
	return record, nil
}
