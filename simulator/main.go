package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/animus-labs/smsc-go/internal/config"
	"github.com/animus-labs/smsc-go/internal/forcing"
	"github.com/animus-labs/smsc-go/internal/pipeline"
	"github.com/animus-labs/smsc-go/internal/platform/env"
	"github.com/animus-labs/smsc-go/internal/platform/httpserver"
	"github.com/animus-labs/smsc-go/internal/platform/metrics"
	"github.com/animus-labs/smsc-go/internal/platform/notify"
	platformstore "github.com/animus-labs/smsc-go/internal/platform/objectstore"
	"github.com/animus-labs/smsc-go/internal/platform/postgres"
	"github.com/animus-labs/smsc-go/internal/repo/memory"
	pgrepo "github.com/animus-labs/smsc-go/internal/repo/postgres"
	"github.com/animus-labs/smsc-go/internal/storage/objectstore"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	configPath := flag.String("config", env.String("SMSC_CONFIG", "smsc.yaml"), "path to the YAML configuration")
	only := flag.String("only", "", "run only the named pipeline (restart or forecast)")
	skipForcing := flag.Bool("skip-forcing", false, "do not download forcing before the simulations")
	flag.Parse()

	ctx := context.Background()
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("invalid config", "path", *configPath, "error", err)
		os.Exit(2)
	}
	now := time.Now()
	if err := cfg.Validate(now); err != nil {
		logger.Error("invalid config", "path", *configPath, "error", err)
		os.Exit(2)
	}
	if *only != "" && *only != "restart" && *only != "forecast" {
		logger.Error("invalid -only value", "value", *only)
		os.Exit(2)
	}
	opdate, err := cfg.OperationDate(now)
	if err != nil {
		logger.Error("invalid operation date", "error", err)
		os.Exit(2)
	}

	metricsAddr := env.String("SMSC_METRICS_ADDR", "")
	metricsTextfile := env.String("SMSC_METRICS_TEXTFILE", "")
	shutdownTimeout, err := env.Duration("SMSC_SHUTDOWN_TIMEOUT", 5*time.Second)
	if err != nil {
		logger.Error("invalid env", "error", err)
		os.Exit(2)
	}

	notifier, err := newNotifier(cfg.Notify, logger)
	if err != nil {
		logger.Error("invalid notify config", "error", err)
		os.Exit(2)
	}

	a := &app{
		cfg:      cfg,
		opdate:   opdate,
		logger:   logger,
		metrics:  metrics.New(),
		ledger:   memory.NewStageExecutionStore(),
		notifier: notifier,
	}
	var checks []httpserver.ReadinessCheck

	dbCfg, err := postgres.ConfigFromEnv()
	if err != nil {
		logger.Error("invalid database config", "error", err)
		os.Exit(2)
	}
	if dbCfg.Enabled() {
		db, err := postgres.Open(ctx, dbCfg)
		if err != nil {
			logger.Error("database unavailable", "error", err)
			os.Exit(1)
		}
		defer func() { _ = db.Close() }()
		schemaCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		if err := pgrepo.EnsureSchema(schemaCtx, db); err != nil {
			cancel()
			logger.Error("stage ledger schema failed", "error", err)
			os.Exit(1)
		}
		cancel()
		a.ledger = pgrepo.NewStageExecutionStore(db)
		checks = append(checks, httpserver.ReadinessCheck{
			Name: "postgres",
			Check: func(ctx context.Context) error {
				checkCtx, cancel := context.WithTimeout(ctx, 750*time.Millisecond)
				defer cancel()
				return db.PingContext(checkCtx)
			},
		})
	}

	storeCfg, err := platformstore.ConfigFromEnv()
	if err != nil {
		logger.Error("invalid object store config", "error", err)
		os.Exit(2)
	}
	if storeCfg.Enabled() {
		store, err := objectstore.NewMinioStore(storeCfg)
		if err != nil {
			logger.Error("object store client init failed", "error", err)
			os.Exit(2)
		}
		startupCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		if err := platformstore.EnsureBuckets(startupCtx, store.Client(), storeCfg.Region, archiveBuckets(cfg)...); err != nil {
			cancel()
			logger.Error("object store unavailable", "error", err)
			os.Exit(1)
		}
		cancel()
		a.store = store
	}

	if err := a.wireTools(); err != nil {
		logger.Error("invalid tool config", "error", err)
		os.Exit(2)
	}

	var restart, forecast *pipeline.Pipeline
	if (*only == "" || *only == "restart") && cfg.RunRestart(opdate) {
		if restart, err = a.buildPipeline(cfg.Restart); err != nil {
			logger.Error("restart plan failed", "error", err)
			os.Exit(2)
		}
	}
	if (*only == "" || *only == "forecast") && cfg.Forecast != nil {
		if forecast, err = a.buildPipeline(cfg.Forecast); err != nil {
			logger.Error("forecast plan failed", "error", err)
			os.Exit(2)
		}
	}
	if restart == nil && forecast == nil {
		logger.Info("nothing scheduled", "opdate", opdate.Format("2006-01-02"))
		return
	}

	runID := uuid.NewString()
	logger.Info("simulation run", "run_id", runID, "opdate", opdate.Format("2006-01-02"))

	srvCtx, stopServer := context.WithCancel(ctx)
	srvDone := make(chan struct{})
	if metricsAddr != "" {
		mux := http.NewServeMux()
		mux.HandleFunc("/healthz", httpserver.Healthz("simulator"))
		mux.HandleFunc("/readyz", httpserver.ReadyzWithChecks("simulator", checks...))
		mux.HandleFunc("/status", statusHandler(runID, opdate, a.ledger, plansOf(restart, forecast)))
		mux.Handle("/metrics", a.metrics.Handler())
		go func() {
			defer close(srvDone)
			srvCfg := httpserver.Config{Service: "simulator", Addr: metricsAddr, ShutdownTimeout: shutdownTimeout}
			if err := httpserver.Run(srvCtx, logger, srvCfg, httpserver.Wrap(logger, mux)); err != nil {
				logger.Error("status server failed", "error", err)
			}
		}()
	} else {
		close(srvDone)
	}

	if !*skipForcing {
		fetchForcing(ctx, logger, cfg, opdate, notifier)
	}

	m := &manager{logger: logger, runID: runID, stagger: cfg.Stagger}
	var r, f runner
	if restart != nil {
		r = restart
	}
	if forecast != nil {
		f = forecast
	}
	runErr := m.run(ctx, r, f)

	stopServer()
	<-srvDone
	if metricsTextfile != "" {
		if err := a.metrics.WriteTextfile(metricsTextfile); err != nil {
			logger.Warn("metrics textfile write failed", "path", metricsTextfile, "error", err)
		}
	}
	if runErr != nil {
		logger.Error("simulation failed", "run_id", runID, "error", runErr)
		os.Exit(1)
	}
	logger.Info("simulation completed", "run_id", runID)
}

// fetchForcing downloads every configured source. A failed source is
// reported and left to the resolver, which may fall back to older files.
func fetchForcing(ctx context.Context, logger *slog.Logger, cfg config.Config, opdate time.Time, notifier notify.Notifier) {
	if len(cfg.Forcing.Sources) == 0 {
		return
	}
	fetcher := forcing.NewFetcher(&http.Client{Timeout: 30 * time.Minute}, logger)
	for _, src := range cfg.Forcing.Sources {
		if _, err := fetcher.Fetch(ctx, src, opdate, cfg.Forcing.Keep); err != nil {
			logger.Error("forcing acquisition failed", "source", src.Name, "error", err)
			nctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), time.Minute)
			if nerr := notifier.Notify(nctx, notify.Message{Subject: "ERROR", Body: "forcing " + src.Name + ": " + err.Error()}); nerr != nil {
				logger.Warn("notification failed", "error", nerr)
			}
			cancel()
		}
	}
}
