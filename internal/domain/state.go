package domain

import "strings"

// StageState is the lifecycle of one stage run.
type StageState string

const (
	StageIdle      StageState = "idle"
	StagePrepared  StageState = "prepared"
	StageRunning   StageState = "running"
	StageSucceeded StageState = "succeeded"
	StageFailed    StageState = "failed"
)

// PipelineState is derived from the states of all stages.
type PipelineState string

const (
	PipelinePending   PipelineState = "pending"
	PipelineRunning   PipelineState = "running"
	PipelineSucceeded PipelineState = "succeeded"
	PipelineFailed    PipelineState = "failed"
)

func NormalizeStageState(value string) StageState {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case string(StageIdle), "":
		return StageIdle
	case string(StagePrepared):
		return StagePrepared
	case string(StageRunning):
		return StageRunning
	case string(StageSucceeded), "completed":
		return StageSucceeded
	case string(StageFailed), "error":
		return StageFailed
	default:
		return ""
	}
}

// Terminal reports whether no further transition is possible.
func (s StageState) Terminal() bool {
	return s == StageSucceeded || s == StageFailed
}

// CanTransitionStageState enforces forward-only progression. Failure may
// be reached from any non-terminal state.
func CanTransitionStageState(current, next StageState) bool {
	if current == "" || next == "" {
		return false
	}
	if current.Terminal() {
		return false
	}
	if next == StageFailed {
		return true
	}
	return stageStateOrder(next) == stageStateOrder(current)+1
}

func stageStateOrder(state StageState) int {
	switch state {
	case StageIdle:
		return 1
	case StagePrepared:
		return 2
	case StageRunning:
		return 3
	case StageSucceeded, StageFailed:
		return 4
	default:
		return 0
	}
}
