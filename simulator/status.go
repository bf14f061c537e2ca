package main

import (
	"net/http"
	"time"

	"github.com/animus-labs/smsc-go/internal/domain"
	"github.com/animus-labs/smsc-go/internal/execution/state"
	"github.com/animus-labs/smsc-go/internal/platform/httpserver"
	"github.com/animus-labs/smsc-go/internal/repo"
)

type stageStatus struct {
	Index   int    `json:"index"`
	State   string `json:"state"`
	Outcome string `json:"outcome"`
	Input   string `json:"input,omitempty"`
	Message string `json:"message,omitempty"`
	Start   string `json:"start"`
	End     string `json:"end"`
}

type pipelineStatus struct {
	Name          string        `json:"name"`
	State         string        `json:"state"`
	LastSucceeded int           `json:"last_succeeded_stage"`
	Stages        []stageStatus `json:"stages"`
}

// statusHandler reports the ledger-derived state of every pipeline of the
// current run.
func statusHandler(runID string, opdate time.Time, ledger repo.StageExecutionRepository, plans []domain.SimulationPlan) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			httpserver.WriteJSON(w, http.StatusMethodNotAllowed, map[string]any{"error": "method_not_allowed"})
			return
		}
		out := make([]pipelineStatus, 0, len(plans))
		for _, plan := range plans {
			records, err := ledger.ListByRun(r.Context(), runID, plan.Name)
			if err != nil {
				httpserver.WriteJSON(w, http.StatusInternalServerError, map[string]any{"error": "ledger_unavailable"})
				return
			}
			ps := pipelineStatus{
				Name:          plan.Name,
				State:         string(state.DerivePipelineState(plan, records)),
				LastSucceeded: state.LastSucceededStage(plan, records),
				Stages:        make([]stageStatus, 0, len(records)),
			}
			for _, rec := range records {
				ps.Stages = append(ps.Stages, stageStatus{
					Index:   rec.StageIndex,
					State:   rec.State,
					Outcome: rec.Outcome,
					Input:   rec.Input,
					Message: rec.Message,
					Start:   rec.WindowStart.UTC().Format(time.RFC3339),
					End:     rec.WindowEnd.UTC().Format(time.RFC3339),
				})
			}
			out = append(out, ps)
		}
		httpserver.WriteJSON(w, http.StatusOK, map[string]any{
			"run_id":    runID,
			"opdate":    opdate.Format("2006-01-02"),
			"pipelines": out,
		})
	}
}
