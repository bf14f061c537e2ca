// Package driver sequences stage preparation, engine execution and
// verification for one simulation plan.
package driver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/animus-labs/smsc-go/internal/domain"
	"github.com/animus-labs/smsc-go/internal/prepare"
	"github.com/animus-labs/smsc-go/internal/platform/metrics"
	"github.com/animus-labs/smsc-go/internal/repo"
	"github.com/animus-labs/smsc-go/internal/runtimeexec"
	"github.com/animus-labs/smsc-go/internal/simerr"
)

// Preparer readies every domain for one stage.
type Preparer interface {
	Prepare(ctx context.Context, plan domain.SimulationPlan, stageIndex int) (prepare.Result, error)
}

type Driver struct {
	preparer    Preparer
	engine      runtimeexec.Executor
	ledger      repo.StageExecutionRepository
	metrics     *metrics.Metrics
	logger      *slog.Logger
	now         func() time.Time
	checkLayout func(domain.SimulationPlan) error
}

type Option func(*Driver)

func WithLedger(ledger repo.StageExecutionRepository) Option {
	return func(d *Driver) { d.ledger = ledger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(d *Driver) { d.metrics = m }
}

func WithClock(now func() time.Time) Option {
	return func(d *Driver) { d.now = now }
}

// WithLayoutCheck replaces the domain directory check run before stage 1.
func WithLayoutCheck(check func(domain.SimulationPlan) error) Option {
	return func(d *Driver) { d.checkLayout = check }
}

func New(preparer Preparer, engine runtimeexec.Executor, logger *slog.Logger, opts ...Option) *Driver {
	if logger == nil {
		logger = slog.Default()
	}
	d := &Driver{
		preparer:    preparer,
		engine:      engine,
		logger:      logger,
		now:         time.Now,
		checkLayout: prepare.CheckLayout,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Input identifies one invocation. OnPrepared, when set, is called once
// after the first stage is prepared and before the engine starts.
type Input struct {
	RunID      string
	Plan       domain.SimulationPlan
	OnPrepared func(domain.Stage)
}

type StageReport struct {
	Index      int
	State      domain.StageState
	Result     domain.ExecutionResult
	Start      time.Time
	End        time.Time
	StartedAt  time.Time
	FinishedAt time.Time
}

type Report struct {
	RunID      string
	Plan       domain.SimulationPlan
	State      domain.PipelineState
	Stages     []StageReport
	ShrunkDays int
}

// Run drives the stages in order and stops at the first failure. The
// returned plan reflects any horizon shrink applied while preparing.
func (d *Driver) Run(ctx context.Context, in Input) (Report, error) {
	if d == nil || d.preparer == nil || d.engine == nil {
		return Report{}, errors.New("driver requires a preparer and an engine")
	}
	plan := in.Plan
	report := Report{RunID: in.RunID, Plan: plan, State: domain.PipelineRunning}
	if len(plan.Stages) == 0 {
		return report, simerr.Config("driver", "plan %s has no stages", plan.Name)
	}

	if err := d.checkLayout(plan); err != nil {
		sr := d.newStage(plan.Stages[0])
		d.finish(ctx, in.RunID, &sr, plan, err)
		report.Stages = append(report.Stages, sr.StageReport)
		report.State = domain.PipelineFailed
		return report, err
	}

	for _, stage := range plan.Stages {
		sr, next, err := d.runStage(ctx, in, plan, stage.Index)
		plan = next
		report.Plan = plan
		report.Stages = append(report.Stages, sr.StageReport)
		if err != nil {
			report.State = domain.PipelineFailed
			return report, err
		}
		report.ShrunkDays += sr.shrunk
	}
	report.State = domain.PipelineSucceeded
	return report, nil
}

type stageRun struct {
	StageReport
	shrunk int
}

func (d *Driver) newStage(stage domain.Stage) stageRun {
	return stageRun{StageReport: StageReport{
		Index:     stage.Index,
		State:     domain.StageIdle,
		Start:     stage.Start,
		End:       stage.End,
		StartedAt: d.now().UTC(),
	}}
}

func (d *Driver) runStage(ctx context.Context, in Input, plan domain.SimulationPlan, index int) (stageRun, domain.SimulationPlan, error) {
	stage, _ := plan.Stage(index)
	sr := d.newStage(stage)
	log := d.logger.With("pipeline", plan.Name, "stage", index)

	res, err := d.preparer.Prepare(ctx, plan, index)
	if err != nil {
		d.finish(ctx, in.RunID, &sr, plan, err)
		return sr, plan, err
	}
	plan = res.Plan
	stage, _ = plan.Stage(index)
	sr.End = stage.End
	sr.shrunk = res.ShrunkDays
	if res.ShrunkDays > 0 {
		d.metrics.AddShrunkDays(plan.Name, res.ShrunkDays)
	}
	if err := sr.advance(domain.StagePrepared); err != nil {
		return sr, plan, err
	}
	if index == 1 && in.OnPrepared != nil {
		in.OnPrepared(stage)
	}

	if err := ctx.Err(); err != nil {
		d.finish(ctx, in.RunID, &sr, plan, err)
		return sr, plan, err
	}
	if err := sr.advance(domain.StageRunning); err != nil {
		return sr, plan, err
	}
	workDir := plan.Domains[0].ExeDir()
	log.Info("engine started", "dir", workDir, "start", stage.Start.Format(time.RFC3339), "end", stage.End.Format(time.RFC3339))
	obs, err := d.engine.Run(ctx, workDir)
	if err != nil {
		d.finish(ctx, in.RunID, &sr, plan, err)
		return sr, plan, err
	}
	log.Info("engine finished", "duration", obs.Duration.String())
	d.finish(ctx, in.RunID, &sr, plan, nil)
	return sr, plan, nil
}

func (s *stageRun) advance(next domain.StageState) error {
	if !domain.CanTransitionStageState(s.State, next) {
		return fmt.Errorf("stage %d: invalid transition %s -> %s", s.Index, s.State, next)
	}
	s.State = next
	return nil
}

// finish moves the stage to its terminal state and records it.
func (d *Driver) finish(ctx context.Context, runID string, sr *stageRun, plan domain.SimulationPlan, stageErr error) {
	sr.Result = ResultOf(stageErr)
	next := domain.StageSucceeded
	if stageErr != nil {
		next = domain.StageFailed
	}
	if err := sr.advance(next); err != nil {
		d.logger.Error("stage state", "pipeline", plan.Name, "error", err)
		sr.State = domain.StageFailed
	}
	sr.FinishedAt = d.now().UTC()

	if stageErr != nil {
		d.logger.Error("stage failed", "pipeline", plan.Name, "stage", sr.Index,
			"outcome", string(sr.Result.Kind), "input", sr.Result.Input, "error", stageErr)
	} else {
		d.logger.Info("stage succeeded", "pipeline", plan.Name, "stage", sr.Index)
	}
	d.metrics.ObserveStage(plan.Name, string(sr.Result.Kind), sr.FinishedAt.Sub(sr.StartedAt))

	if d.ledger == nil {
		return
	}
	finished := sr.FinishedAt
	_, _, err := d.ledger.Insert(context.WithoutCancel(ctx), repo.StageExecutionRecord{
		RunID:       runID,
		Pipeline:    plan.Name,
		StageIndex:  sr.Index,
		State:       string(sr.State),
		Outcome:     string(sr.Result.Kind),
		Input:       sr.Result.Input,
		Message:     sr.Result.Message,
		WindowStart: sr.Start,
		WindowEnd:   sr.End,
		StartedAt:   sr.StartedAt,
		FinishedAt:  &finished,
	})
	if err != nil {
		d.logger.Warn("stage ledger insert failed", "pipeline", plan.Name, "stage", sr.Index, "error", err)
	}
}

// ResultOf maps a stage error onto the outcome taxonomy.
func ResultOf(err error) domain.ExecutionResult {
	if err == nil {
		return domain.ExecutionResult{Kind: domain.OutcomeSuccess}
	}
	if simerr.KindOf(err) == simerr.KindMissingInput {
		return domain.ExecutionResult{Kind: domain.OutcomeMissingInput, Input: simerr.InputOf(err), Message: err.Error()}
	}
	return domain.ExecutionResult{Kind: domain.OutcomeEngineFailure, Message: err.Error()}
}
