// Package prepare lays out the per-domain inputs of a stage.
package prepare

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/animus-labs/smsc-go/internal/descriptor"
	"github.com/animus-labs/smsc-go/internal/domain"
	"github.com/animus-labs/smsc-go/internal/forcing"
	"github.com/animus-labs/smsc-go/internal/platform/fileutil"
	"github.com/animus-labs/smsc-go/internal/simerr"
)

const (
	// InitialsDir holds month-indexed initial-condition files.
	InitialsDir = "Initial Conditions"
	// TreeFile lists the nested domains for the engine.
	TreeFile = "Tree.dat"
	// NomfichFile is the engine's file index inside exe/.
	NomfichFile = "Nomfich.dat"
)

// Result describes what a stage preparation produced.
type Result struct {
	Plan       domain.SimulationPlan
	Forcing    []string
	ShrunkDays int
}

type Preparer struct {
	resolver *forcing.Resolver
	logger   *slog.Logger
}

func NewPreparer(resolver *forcing.Resolver, logger *slog.Logger) *Preparer {
	if logger == nil {
		logger = slog.Default()
	}
	if resolver == nil {
		resolver = forcing.NewResolver(logger)
	}
	return &Preparer{resolver: resolver, logger: logger}
}

// CheckLayout validates the domain directories and resets every res/.
func CheckLayout(plan domain.SimulationPlan) error {
	if len(plan.Domains) == 0 {
		return simerr.Config("prepare", "plan has no domains")
	}
	for i, d := range plan.Domains {
		if !fileutil.IsDir(d.Path) {
			return simerr.Config("prepare", "domain directory missing: %s", d.Path)
		}
		if i == 0 && !fileutil.IsDir(d.ExeDir()) {
			return simerr.Config("prepare", "first domain has no exe directory: %s", d.ExeDir())
		}
		if err := os.MkdirAll(d.ExeDir(), 0o755); err != nil {
			return simerr.IO("create exe dir", err)
		}
		if !fileutil.IsDir(d.DataDir()) {
			return simerr.Config("prepare", "domain data directory missing: %s", d.DataDir())
		}
		if err := fileutil.ResetDir(d.ResultDir()); err != nil {
			return simerr.IO("reset result dir", err)
		}
	}
	return nil
}

// Prepare readies every domain for stage stageIndex. Forcing is resolved
// first so the descriptors carry the final window; the returned plan may
// have a shorter final stage.
func (p *Preparer) Prepare(ctx context.Context, plan domain.SimulationPlan, stageIndex int) (Result, error) {
	res, err := p.resolver.Resolve(ctx, plan, stageIndex)
	if err != nil {
		return Result{}, err
	}
	plan = res.Plan
	stage, _ := plan.Stage(stageIndex)
	if !stage.Start.Before(stage.End) {
		return Result{}, simerr.MissingInput(simerr.InputForcing,
			"forcing horizon collapsed to %s", stage.Start.Format("2006-01-02"))
	}

	for _, d := range plan.Domains {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}
		if err := p.prepareDomain(plan, stage, d); err != nil {
			return Result{}, err
		}
	}

	if stageIndex == 1 {
		switch {
		case plan.IsContinuous():
			if err := p.loadContinuation(plan, stage); err != nil {
				return Result{}, err
			}
		case plan.Initials:
			if err := p.loadInitials(plan, stage); err != nil {
				return Result{}, err
			}
		}
	}

	placed, err := forcing.Place(res.Files, filepath.Join(plan.GeneralData, forcing.BoundaryDir))
	if err != nil {
		return Result{}, err
	}

	exeDirs := make([]string, 0, len(plan.Domains))
	for _, d := range plan.Domains {
		exeDirs = append(exeDirs, d.ExeDir())
	}
	if err := descriptor.WriteTree(filepath.Join(plan.Domains[0].ExeDir(), TreeFile), exeDirs); err != nil {
		return Result{}, simerr.IO("write tree", err)
	}

	p.logger.Info("stage prepared", "pipeline", plan.Name, "stage", stageIndex,
		"start", stage.Start.Format("2006-01-02T15:04"), "end", stage.End.Format("2006-01-02T15:04"), "days", stage.Days())
	return Result{Plan: plan, Forcing: placed, ShrunkDays: res.ShrunkDays}, nil
}

func (p *Preparer) prepareDomain(plan domain.SimulationPlan, stage domain.Stage, d domain.Domain) error {
	template := filepath.Join(d.DataDir(), descriptor.NomfichTemplateName(stage.Index))
	if !fileutil.Exists(template) {
		return simerr.MissingInput(simerr.InputNomfich, "nomfich file not found: %s", template)
	}
	entries, err := descriptor.ReadFile(template)
	if err != nil {
		return simerr.IO("read nomfich", err)
	}
	if len(entries) == 0 {
		return simerr.MissingInput(simerr.InputNomfich, "nomfich file has no entries: %s", template)
	}
	if err := fileutil.CopyFile(template, filepath.Join(d.ExeDir(), NomfichFile)); err != nil {
		return simerr.IO("copy nomfich", err)
	}

	dt, ok := stage.Timesteps[d.ID]
	if !ok {
		return simerr.Config("prepare", "no timestep for domain %s in stage %d", d.ID, stage.Index)
	}
	model := filepath.Join(d.DataDir(), descriptor.ModelFileName(stage.Index))
	if err := descriptor.WriteFile(model, descriptor.ModelEntries(stage.Start, stage.End, dt, plan.GMTReference)); err != nil {
		return simerr.IO("write model descriptor", err)
	}

	if err := os.MkdirAll(filepath.Join(d.ResultDir(), fmt.Sprintf("Run%d", stage.Index)), 0o755); err != nil {
		return simerr.IO("create run dir", err)
	}
	return nil
}

// loadContinuation copies the previous run's final-state files of every
// domain into res/ as <prefix>_0<ext>. Search dirs are tried in order; the
// first one serving all domains wins.
func (p *Preparer) loadContinuation(plan domain.SimulationPlan, stage domain.Stage) error {
	day := stage.Start.Format("060102")
	for _, root := range plan.Continuous {
		sets := make([][]string, 0, len(plan.Domains))
		complete := true
		for _, d := range plan.Domains {
			files, err := fileutil.Glob(filepath.Join(root, day, d.ID, "*.fin*"))
			if err != nil {
				return simerr.Config("prepare", "%v", err)
			}
			if len(files) == 0 {
				p.logger.Warn("final-state files not found", "dir", filepath.Join(root, day, d.ID))
				complete = false
				break
			}
			sets = append(sets, files)
		}
		if !complete {
			continue
		}
		for i, d := range plan.Domains {
			for _, f := range sets[i] {
				if err := fileutil.CopyFile(f, filepath.Join(d.ResultDir(), ContinuationName(f))); err != nil {
					return simerr.IO("copy final-state file", err)
				}
			}
		}
		p.logger.Info("continuation loaded", "pipeline", plan.Name, "dir", filepath.Join(root, day))
		return nil
	}
	return simerr.MissingInput(simerr.InputFins, "no final-state files for %s in %s", day, strings.Join(plan.Continuous, ", "))
}

// loadInitials copies <prefix>_MM.<ext> for the stage month to <prefix>.<ext>.
func (p *Preparer) loadInitials(plan domain.SimulationPlan, stage domain.Stage) error {
	dir := filepath.Join(plan.GeneralData, InitialsDir)
	month := stage.Start.Format("01")
	files, err := fileutil.Glob(filepath.Join(dir, "*_"+month+".*"))
	if err != nil {
		return simerr.Config("prepare", "%v", err)
	}
	if len(files) == 0 {
		return simerr.MissingInput(simerr.InputInitials, "initial conditions for month %s not found in %s", month, dir)
	}
	for _, f := range files {
		ext := filepath.Ext(f)
		stem := strings.TrimSuffix(f, ext)
		dst := strings.TrimSuffix(stem, "_"+month) + ext
		if err := fileutil.CopyFile(f, dst); err != nil {
			return simerr.IO("copy initial conditions", err)
		}
	}
	return nil
}

// ContinuationName maps Hydrodynamic_3.fin to Hydrodynamic_0.fin.
func ContinuationName(path string) string {
	base := filepath.Base(path)
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)
	prefix, _, _ := strings.Cut(stem, "_")
	return prefix + "_0" + ext
}
