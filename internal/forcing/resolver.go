// Package forcing locates, places and downloads boundary-condition files.
package forcing

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/animus-labs/smsc-go/internal/domain"
	"github.com/animus-labs/smsc-go/internal/platform/fileutil"
	"github.com/animus-labs/smsc-go/internal/simerr"
)

// BoundaryDir is the general-data sub-directory forcing is placed into.
const BoundaryDir = "Boundary Conditions"

type Resolver struct {
	logger *slog.Logger
}

func NewResolver(logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{logger: logger}
}

// Resolution is the forcing selected for one stage.
type Resolution struct {
	Plan  domain.SimulationPlan
	Files []domain.ForcingCandidate
	// ShrunkDays counts days removed from the horizon by keep-alive.
	ShrunkDays int
}

// Candidates lists parseable forcing files matching pattern.
func (r *Resolver) Candidates(pattern string) ([]domain.ForcingCandidate, error) {
	matches, err := fileutil.Glob(pattern)
	if err != nil {
		return nil, simerr.Config("forcing", "%v", err)
	}
	out := make([]domain.ForcingCandidate, 0, len(matches))
	for _, path := range matches {
		c, err := ParseName(path)
		if err != nil {
			r.logger.Warn("skipping forcing file", "path", path, "error", err)
			continue
		}
		c, err = statCandidate(c)
		if err != nil {
			return nil, simerr.IO("stat forcing", err)
		}
		out = append(out, c)
	}
	return out, nil
}

// Resolve selects one file per configured pattern for the given stage. For
// a single-stage keep-alive plan a miss shortens the stage end one day at a
// time until a file matches or the end reaches the start.
func (r *Resolver) Resolve(ctx context.Context, plan domain.SimulationPlan, stageIndex int) (Resolution, error) {
	stage, ok := plan.Stage(stageIndex)
	if !ok {
		return Resolution{}, simerr.Config("forcing", "stage %d not in plan", stageIndex)
	}
	res := Resolution{Plan: plan}
	if len(plan.ForcingPatterns) == 0 {
		r.logger.Warn("no forcing patterns configured", "pipeline", plan.Name, "stage", stageIndex)
		return res, nil
	}

	end := stage.End
	for _, pattern := range plan.ForcingPatterns {
		if err := ctx.Err(); err != nil {
			return Resolution{}, err
		}
		cands, err := r.Candidates(pattern)
		if err != nil {
			return Resolution{}, err
		}
		for {
			if c, found := Select(cands, stage.Start, end); found {
				r.logger.Info("forcing selected", "pipeline", plan.Name, "stage", stageIndex, "file", c.Path)
				res.Files = append(res.Files, c)
				break
			}
			if !plan.DegradeAllowed() || !end.After(stage.Start) {
				return Resolution{}, simerr.MissingInput(simerr.InputForcing,
					"no file matching %s covers %s..%s", pattern,
					stage.Start.Format("2006-01-02"), end.Format("2006-01-02"))
			}
			end = end.Add(-24 * time.Hour)
			if end.Before(stage.Start) {
				end = stage.Start
			}
			res.ShrunkDays++
			r.logger.Warn("forcing not found, shortening horizon", "pipeline", plan.Name, "pattern", pattern, "end", end.Format("2006-01-02"))
		}
	}
	if !end.Equal(stage.End) {
		res.Plan = plan.WithFinalEnd(end)
	}
	return res, nil
}

// Place copies each file into dir named without its coverage suffix.
func Place(files []domain.ForcingCandidate, dir string) ([]string, error) {
	placed := make([]string, 0, len(files))
	for _, f := range files {
		dst := filepath.Join(dir, f.PlacedName())
		if err := fileutil.CopyFile(f.Path, dst); err != nil {
			return placed, simerr.IO("place forcing", err)
		}
		placed = append(placed, dst)
	}
	return placed, nil
}
