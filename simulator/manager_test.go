package main

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/animus-labs/smsc-go/internal/pipeline"
)

type fakeRunner struct {
	name    string
	started chan struct{}
	// signalAfter closes started after the delay; zero never signals.
	signalAfter time.Duration
	hold        time.Duration
	err         error

	mu    sync.Mutex
	begin time.Time
}

func newFakeRunner(name string) *fakeRunner {
	return &fakeRunner{name: name, started: make(chan struct{})}
}

func (f *fakeRunner) Name() string              { return f.name }
func (f *fakeRunner) Started() <-chan struct{} { return f.started }

func (f *fakeRunner) Run(ctx context.Context, runID string) (pipeline.Summary, error) {
	f.mu.Lock()
	f.begin = time.Now()
	f.mu.Unlock()
	if f.signalAfter > 0 {
		time.Sleep(f.signalAfter)
		close(f.started)
	}
	time.Sleep(f.hold)
	return pipeline.Summary{RunID: runID}, f.err
}

func (f *fakeRunner) startedAt() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.begin
}

func testManager(stagger time.Duration) *manager {
	return &manager{logger: slog.New(slog.NewTextHandler(io.Discard, nil)), runID: "run-1", stagger: stagger}
}

func TestManager_ForecastWaitsForRestartStart(t *testing.T) {
	restart := newFakeRunner("restart")
	restart.signalAfter = 50 * time.Millisecond
	restart.hold = 50 * time.Millisecond
	forecast := newFakeRunner("forecast")

	if err := testManager(time.Minute).run(context.Background(), restart, forecast); err != nil {
		t.Fatalf("run: %v", err)
	}
	if !forecast.startedAt().After(restart.startedAt()) {
		t.Fatalf("forecast started before restart")
	}
	if gap := forecast.startedAt().Sub(restart.startedAt()); gap < 50*time.Millisecond || gap > 30*time.Second {
		t.Fatalf("forecast should start once restart is prepared, gap=%s", gap)
	}
}

func TestManager_StaggerBoundsTheWait(t *testing.T) {
	restart := newFakeRunner("restart")
	restart.hold = 200 * time.Millisecond
	forecast := newFakeRunner("forecast")

	begin := time.Now()
	if err := testManager(20 * time.Millisecond).run(context.Background(), restart, forecast); err != nil {
		t.Fatalf("run: %v", err)
	}
	if forecast.startedAt().Sub(begin) > 150*time.Millisecond {
		t.Fatalf("forecast waited past the stagger")
	}
}

func TestManager_FailureDoesNotStopOtherPipeline(t *testing.T) {
	restart := newFakeRunner("restart")
	restart.err = errors.New("engine failure")
	forecast := newFakeRunner("forecast")
	forecast.hold = 20 * time.Millisecond

	err := testManager(time.Millisecond).run(context.Background(), restart, forecast)
	if err == nil {
		t.Fatalf("expected restart error")
	}
	if forecast.startedAt().IsZero() {
		t.Fatalf("forecast must still run")
	}
}

func TestManager_SinglePipeline(t *testing.T) {
	forecast := newFakeRunner("forecast")
	if err := testManager(time.Hour).run(context.Background(), nil, forecast); err != nil {
		t.Fatalf("run: %v", err)
	}
	if forecast.startedAt().IsZero() {
		t.Fatalf("forecast did not run")
	}
}

func TestManager_ReportsBothFailures(t *testing.T) {
	restartErr := errors.New("restart engine failure")
	forecastErr := errors.New("forecast missing input")
	restart := newFakeRunner("restart")
	restart.err = restartErr
	forecast := newFakeRunner("forecast")
	forecast.err = forecastErr

	err := testManager(time.Millisecond).run(context.Background(), restart, forecast)
	if !errors.Is(err, restartErr) || !errors.Is(err, forecastErr) {
		t.Fatalf("err=%v, want both failures", err)
	}
}
