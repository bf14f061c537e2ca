// Package memory keeps the stage ledger in process when no database is
// configured.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/animus-labs/smsc-go/internal/repo"
)

type StageExecutionStore struct {
	mu      sync.Mutex
	records map[string]repo.StageExecutionRecord
}

var _ repo.StageExecutionRepository = (*StageExecutionStore)(nil)

func NewStageExecutionStore() *StageExecutionStore {
	return &StageExecutionStore{records: map[string]repo.StageExecutionRecord{}}
}

func key(runID, pipeline string, stage int) string {
	return fmt.Sprintf("%s/%s/%d", runID, pipeline, stage)
}

func (s *StageExecutionStore) Insert(_ context.Context, record repo.StageExecutionRecord) (repo.StageExecutionRecord, bool, error) {
	if strings.TrimSpace(record.RunID) == "" || strings.TrimSpace(record.Pipeline) == "" {
		return repo.StageExecutionRecord{}, false, fmt.Errorf("run id and pipeline are required")
	}
	if record.StageIndex < 1 {
		return repo.StageExecutionRecord{}, false, fmt.Errorf("stage index must be >= 1")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	k := key(record.RunID, record.Pipeline, record.StageIndex)
	if existing, ok := s.records[k]; ok {
		return existing, false, nil
	}
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	s.records[k] = record
	return record, true, nil
}

func (s *StageExecutionStore) ListByRun(_ context.Context, runID, pipeline string) ([]repo.StageExecutionRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]repo.StageExecutionRecord, 0)
	for _, r := range s.records {
		if r.RunID == runID && r.Pipeline == pipeline {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StageIndex < out[j].StageIndex })
	return out, nil
}
