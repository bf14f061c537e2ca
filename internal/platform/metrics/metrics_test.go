package metrics

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObserveStage(t *testing.T) {
	m := New()
	m.ObserveStage("forecast", "success", 90*time.Second)
	m.ObserveStage("forecast", "engine_failure", time.Minute)
	m.AddShrunkDays("forecast", 2)
	m.AddShrunkDays("forecast", 0)

	if got := testutil.ToFloat64(m.StageRuns.WithLabelValues("forecast", "success")); got != 1 {
		t.Fatalf("stage_runs_total{success}=%v, want 1", got)
	}
	if got := testutil.ToFloat64(m.ForcingShrink.WithLabelValues("forecast")); got != 2 {
		t.Fatalf("forcing_horizon_shrunk_days_total=%v, want 2", got)
	}
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.ObserveStage("forecast", "success", time.Second)
	m.ObservePipeline("forecast", "completed")
	m.PipelineStarted()
	m.PipelineFinished()
}

func TestHandlerAndTextfile(t *testing.T) {
	m := New()
	m.ObservePipeline("restart", "completed")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if !strings.Contains(rec.Body.String(), `smsc_pipeline_runs_total{pipeline="restart",status="completed"} 1`) {
		t.Fatalf("exposition missing counter:\n%s", rec.Body.String())
	}

	path := filepath.Join(t.TempDir(), "smsc.prom")
	if err := m.WriteTextfile(path); err != nil {
		t.Fatalf("WriteTextfile() err=%v", err)
	}
	raw, _ := os.ReadFile(path)
	if !strings.Contains(string(raw), "smsc_pipeline_runs_total") {
		t.Fatalf("textfile missing counter")
	}
}
