package main

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/animus-labs/smsc-go/internal/assemble"
	"github.com/animus-labs/smsc-go/internal/config"
	"github.com/animus-labs/smsc-go/internal/domain"
	"github.com/animus-labs/smsc-go/internal/execution/driver"
	"github.com/animus-labs/smsc-go/internal/execution/plan"
	"github.com/animus-labs/smsc-go/internal/forcing"
	"github.com/animus-labs/smsc-go/internal/pipeline"
	"github.com/animus-labs/smsc-go/internal/platform/metrics"
	"github.com/animus-labs/smsc-go/internal/platform/notify"
	"github.com/animus-labs/smsc-go/internal/prepare"
	"github.com/animus-labs/smsc-go/internal/repo"
	"github.com/animus-labs/smsc-go/internal/retention"
	"github.com/animus-labs/smsc-go/internal/runtimeexec"
	"github.com/animus-labs/smsc-go/internal/storage/objectstore"
)

// app holds the collaborators shared by both pipelines.
type app struct {
	cfg      config.Config
	opdate   time.Time
	logger   *slog.Logger
	metrics  *metrics.Metrics
	ledger   repo.StageExecutionRepository
	store    objectstore.Store
	notifier notify.Notifier

	engine    runtimeexec.Executor
	assembler *assemble.Assembler
}

// wireTools builds the engine executor and, when any pipeline post-processes
// its outputs, the assembler driving the conversion tools.
func (a *app) wireTools() error {
	engine, err := runtimeexec.NewProgramExecutor("engine", runtimeexec.Program{
		Dir:              a.cfg.Engine.Dir,
		Executable:       a.cfg.Engine.Executable,
		RequiredFiles:    a.cfg.Engine.RequiredFiles,
		LogName:          a.cfg.Engine.LogName,
		CompletionPhrase: a.cfg.Engine.CompletionPhrase,
	})
	if err != nil {
		return fmt.Errorf("engine: %w", err)
	}
	a.engine = engine

	if !a.postOps() {
		return nil
	}
	extractor, err := toolRunner("extractor", a.cfg.Tools.Extractor, a.cfg.Engine.CompletionPhrase)
	if err != nil {
		return err
	}
	merger, err := toolRunner("merger", a.cfg.Tools.Merger, a.cfg.Engine.CompletionPhrase)
	if err != nil {
		return err
	}
	inventory, err := runtimeexec.NewCommandInventory(a.cfg.Tools.TimeIndex.Program, a.cfg.Tools.TimeIndex.Args...)
	if err != nil {
		return fmt.Errorf("time index: %w", err)
	}
	a.assembler = assemble.NewAssembler(extractor, merger, inventory, a.logger, a.metrics)
	return nil
}

func toolRunner(kind string, tc config.ToolConfig, phrase string) (*runtimeexec.ToolRunner, error) {
	exec, err := runtimeexec.NewProgramExecutor(kind, runtimeexec.Program{
		Dir:              tc.Dir,
		Executable:       tc.Executable,
		RequiredFiles:    tc.RequiredFiles,
		LogName:          tc.LogName,
		CompletionPhrase: phrase,
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", kind, err)
	}
	return runtimeexec.NewToolRunner(exec), nil
}

func (a *app) postOps() bool {
	for _, pc := range []*config.PipelineConfig{a.cfg.Restart, a.cfg.Forecast} {
		if pc != nil && pc.PostOps {
			return true
		}
	}
	return false
}

// buildPipeline plans pc for the operation date and wires its stages.
func (a *app) buildPipeline(pc *config.PipelineConfig) (*pipeline.Pipeline, error) {
	sp, err := plan.BuildPlan(plan.InputFromConfig(*pc, a.opdate, a.cfg.StartOffset()))
	if err != nil {
		return nil, err
	}
	archives := make([]retention.Destination, 0, len(pc.External))
	for _, raw := range pc.External {
		dest, err := retention.ParseDestination(raw, a.store)
		if err != nil {
			return nil, err
		}
		archives = append(archives, dest)
	}

	preparer := prepare.NewPreparer(forcing.NewResolver(a.logger), a.logger)
	drv := driver.New(preparer, a.engine, a.logger, driver.WithLedger(a.ledger), driver.WithMetrics(a.metrics))
	return pipeline.New(sp, pipeline.Settings{
		OutDir:      pc.OutDir,
		KeepResults: pc.KeepResults,
		LastFins:    pc.UseLastFins(),
		Level0:      pc.Level0,
		PostOps:     pc.PostOps,
		Archives:    archives,
	}, pipeline.Deps{
		Driver:    drv,
		Assembler: a.assembler,
		Notifier:  a.notifier,
		Metrics:   a.metrics,
		Logger:    a.logger,
	}), nil
}

func newNotifier(cfg config.NotifyConfig, logger *slog.Logger) (notify.Notifier, error) {
	base := notify.NewLogNotifier(logger)
	if !cfg.Enabled() {
		return base, nil
	}
	smtpNotifier, err := notify.NewSMTPNotifier(notify.SMTPConfig{
		Host:          cfg.Host,
		Port:          cfg.Port,
		Username:      cfg.Username,
		Password:      cfg.Password,
		From:          cfg.From,
		To:            cfg.MailTo,
		SubjectPrefix: cfg.Subject,
	})
	if err != nil {
		return nil, err
	}
	return notify.Multi{base, smtpNotifier}, nil
}

// archiveBuckets lists the buckets named by s3:// archive destinations.
func archiveBuckets(cfg config.Config) []string {
	seen := map[string]struct{}{}
	for _, pc := range []*config.PipelineConfig{cfg.Restart, cfg.Forecast} {
		if pc == nil {
			continue
		}
		for _, raw := range pc.External {
			rest, ok := strings.CutPrefix(strings.TrimSpace(raw), "s3://")
			if !ok {
				continue
			}
			if bucket, _, _ := strings.Cut(rest, "/"); bucket != "" {
				seen[bucket] = struct{}{}
			}
		}
	}
	out := make([]string, 0, len(seen))
	for b := range seen {
		out = append(out, b)
	}
	sort.Strings(out)
	return out
}

func plansOf(pipelines ...*pipeline.Pipeline) []domain.SimulationPlan {
	out := make([]domain.SimulationPlan, 0, len(pipelines))
	for _, p := range pipelines {
		if p != nil {
			out = append(out, p.Plan())
		}
	}
	return out
}
