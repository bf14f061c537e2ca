package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/animus-labs/smsc-go/internal/pipeline"
)

// runner is the part of a pipeline the manager schedules.
type runner interface {
	Name() string
	Started() <-chan struct{}
	Run(ctx context.Context, runID string) (pipeline.Summary, error)
}

// manager starts the restart pipeline before the forecast pipeline. The
// forecast starts once the restart reports its first stage prepared or
// after stagger, whichever comes first. A failing pipeline does not stop
// the other one.
type manager struct {
	logger  *slog.Logger
	runID   string
	stagger time.Duration
}

func (m *manager) run(ctx context.Context, restart, forecast runner) error {
	// The zero Group never cancels siblings, so a failure leaves the other
	// pipeline running. Wait reports the first failure; errs keeps them all.
	var (
		g    errgroup.Group
		errs [2]error
	)
	launch := func(slot int, r runner) {
		g.Go(func() error {
			sum, err := r.Run(ctx, m.runID)
			if err != nil {
				errs[slot] = fmt.Errorf("%s: %w", r.Name(), err)
				return errs[slot]
			}
			m.logger.Info("pipeline finished", "pipeline", r.Name(), "state", string(sum.Report.State), "days", len(sum.Days))
			return nil
		})
	}

	if restart != nil {
		launch(0, restart)
	}
	if forecast != nil {
		if restart != nil {
			m.waitForStart(ctx, restart)
		}
		launch(1, forecast)
	}
	if err := g.Wait(); err != nil {
		return errors.Join(errs[:]...)
	}
	return nil
}

func (m *manager) waitForStart(ctx context.Context, r runner) {
	timer := time.NewTimer(m.stagger)
	defer timer.Stop()
	select {
	case <-r.Started():
		m.logger.Info("restart prepared, starting forecast", "pipeline", r.Name())
	case <-timer.C:
		m.logger.Info("stagger elapsed, starting forecast", "pipeline", r.Name(), "stagger", m.stagger.String())
	case <-ctx.Done():
	}
}
