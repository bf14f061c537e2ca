package memory

import (
	"context"
	"testing"

	"github.com/animus-labs/smsc-go/internal/repo"
)

func TestInsertIsIdempotent(t *testing.T) {
	s := NewStageExecutionStore()
	ctx := context.Background()
	first, created, err := s.Insert(ctx, repo.StageExecutionRecord{RunID: "r", Pipeline: "forecast", StageIndex: 2, State: "succeeded"})
	if err != nil || !created || first.ID == "" {
		t.Fatalf("Insert() created=%v id=%q err=%v", created, first.ID, err)
	}
	again, created, err := s.Insert(ctx, repo.StageExecutionRecord{RunID: "r", Pipeline: "forecast", StageIndex: 2, State: "failed"})
	if err != nil || created || again.State != "succeeded" {
		t.Fatalf("Insert() duplicate created=%v state=%q err=%v", created, again.State, err)
	}
	_, _, _ = s.Insert(ctx, repo.StageExecutionRecord{RunID: "r", Pipeline: "forecast", StageIndex: 1, State: "succeeded"})
	_, _, _ = s.Insert(ctx, repo.StageExecutionRecord{RunID: "r", Pipeline: "restart", StageIndex: 1, State: "succeeded"})

	list, err := s.ListByRun(ctx, "r", "forecast")
	if err != nil || len(list) != 2 || list[0].StageIndex != 1 {
		t.Fatalf("ListByRun()=%+v err=%v", list, err)
	}
	if _, _, err := s.Insert(ctx, repo.StageExecutionRecord{RunID: "r", Pipeline: "forecast"}); err == nil {
		t.Fatalf("Insert() expected stage index error")
	}
}
