// Package pipeline runs one configured simulation end to end: stages,
// output collection, the optional output database and its archive copies,
// with the execution log and operator notification around them.
package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/animus-labs/smsc-go/internal/assemble"
	"github.com/animus-labs/smsc-go/internal/domain"
	"github.com/animus-labs/smsc-go/internal/execlog"
	"github.com/animus-labs/smsc-go/internal/execution/driver"
	"github.com/animus-labs/smsc-go/internal/platform/metrics"
	"github.com/animus-labs/smsc-go/internal/platform/notify"
	"github.com/animus-labs/smsc-go/internal/retention"
	"github.com/animus-labs/smsc-go/internal/simerr"
)

// Settings are the per-pipeline output options.
type Settings struct {
	OutDir      string
	KeepResults int
	LastFins    bool
	Level0      bool
	PostOps     bool
	Archives    []retention.Destination
}

type Deps struct {
	Driver    *driver.Driver
	Assembler *assemble.Assembler
	Notifier  notify.Notifier
	Metrics   *metrics.Metrics
	Logger    *slog.Logger
	Now       func() time.Time
}

type Pipeline struct {
	plan     domain.SimulationPlan
	settings Settings
	deps     Deps

	started   chan struct{}
	startOnce sync.Once
}

func New(plan domain.SimulationPlan, settings Settings, deps Deps) *Pipeline {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Notifier == nil {
		deps.Notifier = notify.NewLogNotifier(deps.Logger)
	}
	return &Pipeline{plan: plan, settings: settings, deps: deps, started: make(chan struct{})}
}

func (p *Pipeline) Name() string {
	return p.plan.Name
}

func (p *Pipeline) Plan() domain.SimulationPlan {
	return p.plan
}

// Started is closed once the first stage is prepared or Run returns,
// whichever happens first.
func (p *Pipeline) Started() <-chan struct{} {
	return p.started
}

func (p *Pipeline) markStarted() {
	p.startOnce.Do(func() { close(p.started) })
}

// Summary describes a finished run.
type Summary struct {
	RunID      string
	Report     driver.Report
	ResultsDir string
	Days       []string
}

// Run executes the pipeline once. The returned error is the first fatal
// condition; it has already been written to the execution log and sent to
// the notifier.
func (p *Pipeline) Run(ctx context.Context, runID string) (Summary, error) {
	defer p.markStarted()
	if p.deps.Driver == nil {
		return Summary{}, errors.New("pipeline requires a driver")
	}
	log := p.deps.Logger.With("pipeline", p.plan.Name, "run_id", runID)
	p.deps.Metrics.PipelineStarted()
	defer p.deps.Metrics.PipelineFinished()

	entry, err := execlog.Open(p.settings.OutDir, p.plan.Span(), p.deps.Now)
	if err != nil {
		return Summary{RunID: runID}, p.fail(ctx, log, nil, simerr.IO("open execution log", err))
	}
	sum := Summary{RunID: runID}

	report, err := p.deps.Driver.Run(ctx, driver.Input{
		RunID:      runID,
		Plan:       p.plan,
		OnPrepared: func(domain.Stage) { p.markStarted() },
	})
	sum.Report = report
	if err != nil {
		return sum, p.fail(ctx, log, entry, err)
	}
	plan := report.Plan

	collected, err := assemble.Collect(log, plan, assemble.CollectOptions{
		OutDir:   p.settings.OutDir,
		Keep:     p.settings.KeepResults,
		LastFins: p.settings.LastFins,
		Now:      p.deps.Now(),
	})
	if err != nil {
		return sum, p.fail(ctx, log, entry, err)
	}
	sum.ResultsDir = collected.ResultsDir

	if !p.settings.PostOps {
		return sum, p.complete(ctx, log, entry, execlog.StatusCompleted, plan)
	}
	if p.deps.Assembler == nil {
		return sum, p.fail(ctx, log, entry, simerr.Config("pipeline", "postops enabled without conversion tools"))
	}

	days, err := p.deps.Assembler.Build(ctx, assemble.BuildInput{
		Plan:       plan,
		ResultsDir: collected.ResultsDir,
		OutDir:     p.settings.OutDir,
		Level0:     p.settings.Level0,
		Keep:       p.settings.KeepResults,
	})
	if err != nil {
		return sum, p.fail(ctx, log, entry, err)
	}
	sum.Days = days

	if len(p.settings.Archives) > 0 {
		if err := retention.Mirror(ctx, log, days, p.settings.Archives); err != nil {
			return sum, p.fail(ctx, log, entry, err)
		}
		p.deps.Metrics.AddArchivedDays(p.plan.Name, len(days))
	}
	return sum, p.complete(ctx, log, entry, execlog.StatusPostCompleted, plan)
}

func (p *Pipeline) complete(ctx context.Context, log *slog.Logger, entry *execlog.Entry, status string, plan domain.SimulationPlan) error {
	if err := entry.Close(status); err != nil {
		log.Warn("execution log close failed", "error", err)
	}
	p.deps.Metrics.ObservePipeline(p.plan.Name, string(domain.PipelineSucceeded))
	log.Info("pipeline completed", "status", status, "span", plan.Span())
	p.send(ctx, log, notify.Message{
		Subject:     p.plan.Name + " COMPLETED",
		Body:        plan.Span() + " " + status,
		Attachments: []string{entry.Path()},
	})
	return nil
}

// fail records cause and reports it. entry is nil when the execution log
// could not be opened; the report then goes out without an attachment.
func (p *Pipeline) fail(ctx context.Context, log *slog.Logger, entry *execlog.Entry, cause error) error {
	msg := notify.Message{Subject: "ERROR", Body: p.plan.Name + ": " + cause.Error()}
	if entry != nil {
		if err := entry.Close(cause.Error()); err != nil {
			log.Warn("execution log close failed", "error", err)
		}
		msg.Attachments = []string{entry.Path()}
	}
	p.deps.Metrics.ObservePipeline(p.plan.Name, string(domain.PipelineFailed))
	log.Error("pipeline failed", "kind", string(simerr.KindOf(cause)), "error", cause)
	p.send(ctx, log, msg)
	return cause
}

func (p *Pipeline) send(ctx context.Context, log *slog.Logger, msg notify.Message) {
	nctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), time.Minute)
	defer cancel()
	if err := p.deps.Notifier.Notify(nctx, msg); err != nil {
		log.Warn("notification failed", "subject", msg.Subject, "error", err)
	}
}
