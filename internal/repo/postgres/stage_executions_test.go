package postgres

import (
	"context"
	"strings"
	"testing"

	"github.com/animus-labs/smsc-go/internal/repo"
)

func TestStageExecutionQueries(t *testing.T) {
	if !strings.Contains(insertStageExecutionQuery, "ON CONFLICT (run_id, pipeline, stage_index) DO NOTHING") {
		t.Fatalf("expected idempotency conflict clause in insert query")
	}
	if !strings.Contains(createStageExecutionsQuery, "UNIQUE (run_id, pipeline, stage_index)") {
		t.Fatalf("expected unique constraint backing the conflict clause")
	}
	if !strings.Contains(selectStageExecutionQuery, "run_id = $1 AND pipeline = $2") {
		t.Fatalf("expected run and pipeline predicates in select query")
	}
	if !strings.Contains(listStageExecutionsByRunQuery, "ORDER BY stage_index") {
		t.Fatalf("expected ORDER BY in list query")
	}
}

func TestStageExecutionStore_NotInitialized(t *testing.T) {
	if NewStageExecutionStore(nil) != nil {
		t.Fatalf("NewStageExecutionStore(nil) should be nil")
	}
	var s *StageExecutionStore
	if _, _, err := s.Insert(context.Background(), repo.StageExecutionRecord{}); err == nil {
		t.Fatalf("Insert() expected error on nil store")
	}
	if err := EnsureSchema(context.Background(), nil); err == nil {
		t.Fatalf("EnsureSchema(nil) expected error")
	}
}
