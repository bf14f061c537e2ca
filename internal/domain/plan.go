package domain

import (
	"path/filepath"
	"strings"
	"time"
)

const day = 24 * time.Hour

// Stage is one contiguous engine run. Index is 1-based.
type Stage struct {
	Index     int                `json:"index"`
	Start     time.Time          `json:"start"`
	End       time.Time          `json:"end"`
	Timesteps map[string]float64 `json:"timesteps"`
}

// Days is the whole number of days the stage spans.
func (s Stage) Days() int {
	return int(s.End.Sub(s.Start) / day)
}

// Domain is a model grid with exe/, data/ and res/ below Path.
type Domain struct {
	ID   string `json:"id"`
	Path string `json:"path"`
}

func NewDomain(path string) Domain {
	clean := filepath.Clean(strings.TrimSpace(path))
	return Domain{ID: filepath.Base(clean), Path: clean}
}

func (d Domain) ExeDir() string    { return filepath.Join(d.Path, "exe") }
func (d Domain) DataDir() string   { return filepath.Join(d.Path, "data") }
func (d Domain) ResultDir() string { return filepath.Join(d.Path, "res") }

// SimulationPlan is built once per pipeline. Values are treated as
// immutable; WithFinalEnd is the only sanctioned change.
type SimulationPlan struct {
	Name            string   `json:"name"`
	Stages          []Stage  `json:"stages"`
	Domains         []Domain `json:"domains"`
	Continuous      []string `json:"continuous,omitempty"`
	Initials        bool     `json:"initials"`
	KeepAlive       bool     `json:"keep_alive"`
	ForcingPatterns []string `json:"forcing_patterns,omitempty"`
	GeneralData     string   `json:"general_data"`
	GMTReference    int      `json:"gmt_reference"`
	KeepResults     int      `json:"keep_results"`
}

func (p SimulationPlan) Start() time.Time {
	if len(p.Stages) == 0 {
		return time.Time{}
	}
	return p.Stages[0].Start
}

func (p SimulationPlan) End() time.Time {
	if len(p.Stages) == 0 {
		return time.Time{}
	}
	return p.Stages[len(p.Stages)-1].End
}

// IsContinuous reports whether stage 1 starts from carried-over state files.
func (p SimulationPlan) IsContinuous() bool {
	return len(p.Continuous) > 0
}

// DegradeAllowed reports whether forcing lookup may shrink the horizon.
func (p SimulationPlan) DegradeAllowed() bool {
	return p.KeepAlive && len(p.Stages) == 1
}

// Stage returns the stage with the given 1-based index.
func (p SimulationPlan) Stage(index int) (Stage, bool) {
	if index < 1 || index > len(p.Stages) {
		return Stage{}, false
	}
	return p.Stages[index-1], true
}

// WithFinalEnd returns a copy whose last stage ends at end.
func (p SimulationPlan) WithFinalEnd(end time.Time) SimulationPlan {
	if len(p.Stages) == 0 {
		return p
	}
	out := p
	out.Stages = make([]Stage, len(p.Stages))
	copy(out.Stages, p.Stages)
	out.Stages[len(out.Stages)-1].End = end
	return out
}

// Span is the covered window rendered as YYYYMMDD->YYYYMMDD.
func (p SimulationPlan) Span() string {
	return p.Start().Format("20060102") + "->" + p.End().Format("20060102")
}
