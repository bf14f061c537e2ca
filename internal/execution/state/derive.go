package state

import (
	"github.com/animus-labs/smsc-go/internal/domain"
	"github.com/animus-labs/smsc-go/internal/repo"
)

// DerivePipelineState computes the pipeline state from its plan and the
// recorded stage outcomes.
func DerivePipelineState(plan domain.SimulationPlan, records []repo.StageExecutionRecord) domain.PipelineState {
	if len(plan.Stages) == 0 || len(records) == 0 {
		return domain.PipelinePending
	}
	byStage := make(map[int]domain.StageState, len(records))
	for _, r := range records {
		byStage[r.StageIndex] = domain.NormalizeStageState(r.State)
	}

	incomplete := false
	for _, stage := range plan.Stages {
		switch byStage[stage.Index] {
		case domain.StageFailed:
			return domain.PipelineFailed
		case domain.StageSucceeded:
		default:
			incomplete = true
		}
	}
	if incomplete {
		return domain.PipelineRunning
	}
	return domain.PipelineSucceeded
}

// LastSucceededStage is the highest contiguous succeeded stage index, or 0.
func LastSucceededStage(plan domain.SimulationPlan, records []repo.StageExecutionRecord) int {
	done := make(map[int]bool, len(records))
	for _, r := range records {
		if domain.NormalizeStageState(r.State) == domain.StageSucceeded {
			done[r.StageIndex] = true
		}
	}
	last := 0
	for _, stage := range plan.Stages {
		if !done[stage.Index] {
			break
		}
		last = stage.Index
	}
	return last
}
