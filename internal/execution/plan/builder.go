// Package plan turns hindcast/forecast day offsets into a staged plan.
package plan

import (
	"sort"
	"strings"
	"time"

	"github.com/animus-labs/smsc-go/internal/config"
	"github.com/animus-labs/smsc-go/internal/domain"
	"github.com/animus-labs/smsc-go/internal/simerr"
)

const op = "plan"

// Input is everything the planner needs. OpDate is a calendar date.
type Input struct {
	Name        string
	OpDate      time.Time
	StartOffset time.Duration
	Hindcast    []int
	Forecast    []int
	Domains     []string
	// Timesteps holds one row per domain and one column per stage.
	Timesteps       [][]float64
	Continuous      []string
	Initials        bool
	KeepAlive       bool
	ForcingPatterns []string
	GeneralData     string
	GMTReference    int
	KeepResults     int
}

// InputFromConfig maps a pipeline section onto planner input.
func InputFromConfig(pc config.PipelineConfig, opdate time.Time, startOffset time.Duration) Input {
	return Input{
		Name:            pc.Name,
		OpDate:          opdate,
		StartOffset:     startOffset,
		Hindcast:        pc.Hindcast,
		Forecast:        pc.Forecast,
		Domains:         pc.Domains,
		Timesteps:       pc.DomainTimesteps,
		Continuous:      pc.Continuous,
		Initials:        pc.Initials,
		KeepAlive:       pc.KeepAlive,
		ForcingPatterns: pc.ForcingPatterns,
		GeneralData:     pc.GeneralData,
		GMTReference:    pc.GMTReference,
		KeepResults:     pc.KeepResults,
	}
}

// Boundaries returns the N+1 ordered stage boundaries. Hindcast offsets are
// consumed last-to-first going back from the anchor, forecast offsets
// first-to-last going forward.
func Boundaries(anchor time.Time, hindcast, forecast []int) ([]time.Time, error) {
	if len(hindcast) == 0 && len(forecast) == 0 {
		return nil, simerr.Config(op, "null simulation range")
	}
	for _, v := range hindcast {
		if v < 1 {
			return nil, simerr.Config(op, "hindcast offsets must be >= 1, got %d", v)
		}
	}
	for _, v := range forecast {
		if v < 1 {
			return nil, simerr.Config(op, "forecast offsets must be >= 1, got %d", v)
		}
	}

	out := make([]time.Time, 0, len(hindcast)+len(forecast)+1)
	back := 0
	for i := len(hindcast) - 1; i >= 0; i-- {
		back += hindcast[i]
		out = append(out, anchor.AddDate(0, 0, -back))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	out = append(out, anchor)

	ahead := 0
	for _, v := range forecast {
		ahead += v
		out = append(out, anchor.AddDate(0, 0, ahead))
	}
	return out, nil
}

// BuildPlan is deterministic: the same input always yields the same plan.
func BuildPlan(in Input) (domain.SimulationPlan, error) {
	if len(in.Domains) == 0 {
		return domain.SimulationPlan{}, simerr.Config(op, "at least one domain is required")
	}
	anchor := in.OpDate.Add(in.StartOffset)
	bounds, err := Boundaries(anchor, in.Hindcast, in.Forecast)
	if err != nil {
		return domain.SimulationPlan{}, err
	}
	nStages := len(bounds) - 1

	domains := make([]domain.Domain, 0, len(in.Domains))
	for _, path := range in.Domains {
		if strings.TrimSpace(path) == "" {
			return domain.SimulationPlan{}, simerr.Config(op, "empty domain path")
		}
		domains = append(domains, domain.NewDomain(path))
	}
	if len(in.Timesteps) != len(domains) {
		return domain.SimulationPlan{}, simerr.Config(op, "timestep table has %d rows for %d domains", len(in.Timesteps), len(domains))
	}
	for i, row := range in.Timesteps {
		if len(row) != nStages {
			return domain.SimulationPlan{}, simerr.Config(op, "domain %s has %d timesteps for %d stages", domains[i].ID, len(row), nStages)
		}
		for _, dt := range row {
			if dt <= 0 {
				return domain.SimulationPlan{}, simerr.Config(op, "domain %s timestep must be positive, got %v", domains[i].ID, dt)
			}
		}
	}

	stages := make([]domain.Stage, 0, nStages)
	for i := 0; i < nStages; i++ {
		dts := make(map[string]float64, len(domains))
		for d, dom := range domains {
			dts[dom.ID] = in.Timesteps[d][i]
		}
		stages = append(stages, domain.Stage{
			Index:     i + 1,
			Start:     bounds[i],
			End:       bounds[i+1],
			Timesteps: dts,
		})
	}

	return domain.SimulationPlan{
		Name:            in.Name,
		Stages:          stages,
		Domains:         domains,
		Continuous:      append([]string(nil), in.Continuous...),
		Initials:        in.Initials,
		KeepAlive:       in.KeepAlive,
		ForcingPatterns: append([]string(nil), in.ForcingPatterns...),
		GeneralData:     in.GeneralData,
		GMTReference:    in.GMTReference,
		KeepResults:     in.KeepResults,
	}, nil
}
