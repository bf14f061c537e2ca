package assemble

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"github.com/animus-labs/smsc-go/internal/descriptor"
	"github.com/animus-labs/smsc-go/internal/domain"
	"github.com/animus-labs/smsc-go/internal/platform/fileutil"
	"github.com/animus-labs/smsc-go/internal/platform/metrics"
	"github.com/animus-labs/smsc-go/internal/retention"
	"github.com/animus-labs/smsc-go/internal/runtimeexec"
	"github.com/animus-labs/smsc-go/internal/simerr"
)

const (
	classHydrodynamic    = "HD"
	classWaterProperties = "WP"
	snapshotExt          = ".hdf5"
)

// Tool runs one conversion action to completion.
type Tool interface {
	Apply(ctx context.Context, action []byte) error
}

type Assembler struct {
	extractor Tool
	merger    Tool
	inventory runtimeexec.Inventorier
	logger    *slog.Logger
	metrics   *metrics.Metrics
}

func NewAssembler(extractor, merger Tool, inventory runtimeexec.Inventorier, logger *slog.Logger, m *metrics.Metrics) *Assembler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Assembler{extractor: extractor, merger: merger, inventory: inventory, logger: logger, metrics: m}
}

type BuildInput struct {
	Plan domain.SimulationPlan
	// ResultsDir is the run directory written by Collect.
	ResultsDir string
	OutDir     string
	// Level0 excludes the first (tide-only) domain.
	Level0 bool
	Keep   int
}

// Build extracts every instant of the last stage's merged outputs, glues
// hydrodynamic and water-property snapshots per instant and distributes
// them into database/<YYMMDD> directories shared by all domains. It
// returns the day directories written, sorted.
func (a *Assembler) Build(ctx context.Context, in BuildInput) ([]string, error) {
	plan := in.Plan
	if len(plan.Stages) == 0 {
		return nil, simerr.Config("assemble", "plan %s has no stages", plan.Name)
	}
	domains := plan.Domains
	if in.Level0 {
		domains = domains[min(1, len(domains)):]
	}
	if len(domains) == 0 {
		return nil, simerr.Config("assemble", "no domains left to assemble in %s", plan.Name)
	}

	root := filepath.Join(in.OutDir, DatabaseDir)
	tmp := filepath.Join(root, "tmp")
	if err := os.RemoveAll(tmp); err != nil {
		return nil, simerr.IO("remove database tmp", err)
	}
	// Older days are pruned before this run writes any, so keep never
	// reaches the days produced here.
	if _, err := retention.RemoveOld(root, in.Keep); err != nil {
		return nil, simerr.IO("remove old database days", err)
	}
	if err := fileutil.ResetDir(tmp); err != nil {
		return nil, simerr.IO("reset database tmp", err)
	}

	last := plan.Stages[len(plan.Stages)-1]
	written := map[string]struct{}{}
	for _, d := range domains {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		glued, err := a.domainSnapshots(ctx, d, last.Index, in.ResultsDir, tmp)
		if err != nil {
			return nil, err
		}
		groups, err := Bucket(glued)
		if err != nil {
			return nil, fmt.Errorf("domain %s: %w", d.ID, err)
		}
		for i, group := range groups {
			dayDir := filepath.Join(root, last.Start.AddDate(0, 0, i).Format(retention.DayLayout))
			if _, seen := written[dayDir]; !seen {
				if err := fileutil.ResetDir(dayDir); err != nil {
					return nil, simerr.IO("reset database day", err)
				}
				written[dayDir] = struct{}{}
			}
			for _, snap := range group {
				if err := fileutil.CopyFile(snap.Path, filepath.Join(dayDir, filepath.Base(snap.Path))); err != nil {
					return nil, simerr.IO("copy snapshot", err)
				}
			}
		}
		a.metrics.AddSnapshots(plan.Name, d.ID, len(glued))
		a.logger.Info("domain assembled", "pipeline", plan.Name, "domain", d.ID, "snapshots", len(glued), "days", len(groups))
	}

	if err := os.RemoveAll(tmp); err != nil {
		return nil, simerr.IO("remove database tmp", err)
	}

	days := make([]string, 0, len(written))
	for dir := range written {
		days = append(days, dir)
	}
	sort.Strings(days)
	return days, nil
}

func (a *Assembler) domainSnapshots(ctx context.Context, d domain.Domain, stage int, resultsDir, tmp string) ([]domain.OutputSnapshot, error) {
	hdSrc := filepath.Join(resultsDir, d.ID, fmt.Sprintf("Hydrodynamic_%d%s", stage, snapshotExt))
	wpSrc := filepath.Join(resultsDir, d.ID, fmt.Sprintf("WaterProperties_%d%s", stage, snapshotExt))
	for _, src := range []string{hdSrc, wpSrc} {
		if !fileutil.Exists(src) {
			return nil, simerr.MissingInput(simerr.InputOutputs, "stage output not found: %s", src)
		}
	}

	hd, err := a.extract(ctx, hdSrc, tmp, classHydrodynamic)
	if err != nil {
		return nil, err
	}
	wp, err := a.extract(ctx, wpSrc, tmp, classWaterProperties)
	if err != nil {
		return nil, err
	}
	return a.glue(ctx, d.ID, hd, wp, tmp)
}

// extract writes one {class}-{instant} file per instant of src.
func (a *Assembler) extract(ctx context.Context, src, tmp, class string) ([]domain.OutputSnapshot, error) {
	inv, err := a.inventory.Inventory(ctx, src)
	if err != nil {
		return nil, simerr.Engine("extract", "%v", err)
	}
	if len(inv.Instants) == 0 {
		return nil, simerr.Engine("extract", "%s has no instants", src)
	}
	out := make([]domain.OutputSnapshot, 0, len(inv.Instants))
	for _, instant := range inv.Instants {
		dst := filepath.Join(tmp, domain.SnapshotName(class, instant, snapshotExt))
		if err := a.extractor.Apply(ctx, descriptor.ExtractAction(src, dst, instant, inv.Fields)); err != nil {
			return nil, simerr.Engine("extract", "%s at %s: %v", filepath.Base(src), instant.Format("2006-01-02T15:04"), err)
		}
		if !fileutil.Exists(dst) {
			return nil, simerr.Engine("extract", "extractor produced no %s", dst)
		}
		out = append(out, domain.OutputSnapshot{Class: class, Instant: instant, Path: dst})
	}
	return out, nil
}

// glue pairs snapshots by instant and merges each pair into
// {domainID}-{instant}, removing the sources.
func (a *Assembler) glue(ctx context.Context, domainID string, hd, wp []domain.OutputSnapshot, tmp string) ([]domain.OutputSnapshot, error) {
	if len(hd) != len(wp) {
		return nil, simerr.Engine("glue", "domain %s: %d %s snapshots but %d %s snapshots",
			domainID, len(hd), classHydrodynamic, len(wp), classWaterProperties)
	}
	sortSnapshots(hd)
	sortSnapshots(wp)
	out := make([]domain.OutputSnapshot, 0, len(hd))
	for i := range hd {
		if !hd[i].Instant.Equal(wp[i].Instant) {
			return nil, simerr.Engine("glue", "domain %s: %s and %s do not share an instant",
				domainID, filepath.Base(hd[i].Path), filepath.Base(wp[i].Path))
		}
		dst := filepath.Join(tmp, domain.SnapshotName(domainID, hd[i].Instant, snapshotExt))
		if err := a.merger.Apply(ctx, descriptor.GlueAction(dst, hd[i].Path, wp[i].Path)); err != nil {
			return nil, simerr.Engine("glue", "%s: %v", filepath.Base(dst), err)
		}
		if !fileutil.Exists(dst) {
			return nil, simerr.Engine("glue", "merger produced no %s", dst)
		}
		for _, src := range []string{hd[i].Path, wp[i].Path} {
			if err := os.Remove(src); err != nil {
				return nil, simerr.IO("remove glued source", err)
			}
		}
		out = append(out, domain.OutputSnapshot{Class: domainID, Instant: hd[i].Instant, Path: dst})
	}
	return out, nil
}

func sortSnapshots(s []domain.OutputSnapshot) {
	sort.Slice(s, func(i, j int) bool { return s[i].Instant.Before(s[j].Instant) })
}
