// Package assemble copies finished results out of the domain directories
// and builds the per-day output database from the last stage.
package assemble

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/animus-labs/smsc-go/internal/domain"
	"github.com/animus-labs/smsc-go/internal/platform/fileutil"
	"github.com/animus-labs/smsc-go/internal/retention"
	"github.com/animus-labs/smsc-go/internal/simerr"
)

const (
	ResultsDir  = "results"
	FinsDir     = "fins"
	DatabaseDir = "database"
)

type CollectOptions struct {
	OutDir string
	// Keep bounds the run directories kept under results/ and fins/.
	Keep int
	// LastFins selects the final-state files of the last stage; otherwise
	// the dated files written one day after the plan start are kept.
	LastFins bool
	Now      time.Time
}

// Collected reports where Collect put its copies.
type Collected struct {
	ResultsDir string
	FinsDir    string
}

// Collect copies every domain's res/*.hdf5 and res/Run* into a new run
// directory under results/ and the selected final-state files into
// fins/<YYMMDD>/<domain>/, replacing an existing day.
func Collect(logger *slog.Logger, plan domain.SimulationPlan, opts CollectOptions) (Collected, error) {
	if len(plan.Stages) == 0 {
		return Collected{}, simerr.Config("collect", "plan %s has no stages", plan.Name)
	}
	if opts.Now.IsZero() {
		opts.Now = time.Now()
	}
	resultsRoot := filepath.Join(opts.OutDir, ResultsDir)
	finsRoot := filepath.Join(opts.OutDir, FinsDir)

	runDir := filepath.Join(resultsRoot, opts.Now.Format("20060102T1504")+"_"+plan.Start().Format("20060102"))
	finDay := plan.Start().AddDate(0, 0, 1)
	finPattern := "*_" + finDay.Format("20060102-150405") + ".fin*"
	if opts.LastFins {
		finDay = plan.End()
		finPattern = fmt.Sprintf("*_%d.fin*", len(plan.Stages))
	}
	finDir := filepath.Join(finsRoot, finDay.Format(retention.DayLayout))
	if err := fileutil.ResetDir(finDir); err != nil {
		return Collected{}, simerr.IO("reset fins dir", err)
	}

	for _, d := range plan.Domains {
		outDir := filepath.Join(runDir, d.ID)
		if err := os.MkdirAll(outDir, 0o755); err != nil {
			return Collected{}, simerr.IO("create results dir", err)
		}
		hdfs, err := fileutil.Glob(filepath.Join(d.ResultDir(), "*.hdf5"))
		if err != nil {
			return Collected{}, simerr.Config("collect", "%v", err)
		}
		for _, f := range hdfs {
			if err := fileutil.CopyFile(f, filepath.Join(outDir, filepath.Base(f))); err != nil {
				return Collected{}, simerr.IO("copy results", err)
			}
		}
		runs, err := filepath.Glob(filepath.Join(d.ResultDir(), "Run*"))
		if err != nil {
			return Collected{}, simerr.Config("collect", "%v", err)
		}
		for _, r := range runs {
			if !fileutil.IsDir(r) {
				continue
			}
			if err := fileutil.CopyDir(r, filepath.Join(outDir, filepath.Base(r))); err != nil {
				return Collected{}, simerr.IO("copy time series", err)
			}
		}

		fins, err := fileutil.Glob(filepath.Join(d.ResultDir(), finPattern))
		if err != nil {
			return Collected{}, simerr.Config("collect", "%v", err)
		}
		if len(fins) == 0 {
			logger.Warn("no final-state files to keep", "pipeline", plan.Name, "domain", d.ID, "pattern", finPattern)
		}
		for _, f := range fins {
			if err := fileutil.CopyFile(f, filepath.Join(finDir, d.ID, filepath.Base(f))); err != nil {
				return Collected{}, simerr.IO("copy final-state files", err)
			}
		}
	}

	for _, root := range []string{resultsRoot, finsRoot} {
		removed, err := retention.RemoveOld(root, opts.Keep)
		if err != nil {
			return Collected{}, simerr.IO("remove old outputs", err)
		}
		if len(removed) > 0 {
			logger.Info("old outputs removed", "pipeline", plan.Name, "dir", root, "count", len(removed))
		}
	}
	logger.Info("outputs collected", "pipeline", plan.Name, "results", runDir, "fins", finDir)
	return Collected{ResultsDir: runDir, FinsDir: finDir}, nil
}
