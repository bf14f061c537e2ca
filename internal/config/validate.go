package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

// ValidationError aggregates configuration issues.
type ValidationError struct {
	Issues []string
}

func (e *ValidationError) Error() string {
	if len(e.Issues) == 0 {
		return "config validation failed"
	}
	return "config validation failed: " + strings.Join(e.Issues, "; ")
}

func (e *ValidationError) Add(issue string) {
	if strings.TrimSpace(issue) == "" {
		return
	}
	e.Issues = append(e.Issues, issue)
}

func (e *ValidationError) Addf(format string, args ...any) {
	e.Add(fmt.Sprintf(format, args...))
}

func (e *ValidationError) OrNil() error {
	if e == nil || len(e.Issues) == 0 {
		return nil
	}
	return e
}

// Validate performs static checks. Filesystem layout is checked when a
// plan is prepared.
func (c Config) Validate(now time.Time) error {
	verr := &ValidationError{}

	if _, err := c.OperationDate(now); err != nil {
		verr.Add(err.Error())
	}
	if c.StartTime < 0 || c.StartTime >= 24 {
		verr.Addf("startime must be within [0,24): %v", c.StartTime)
	}
	if strings.TrimSpace(c.RestartWeekday) != "" {
		if _, ok := parseWeekday(c.RestartWeekday); !ok {
			verr.Addf("restart_weekday %q is not a weekday", c.RestartWeekday)
		}
	}
	if c.Restart == nil && c.Forecast == nil {
		verr.Add("at least one of restart or forecast is required")
	}
	if !c.Engine.Configured() {
		verr.Add("engine.dir and engine.executable are required")
	}

	postops := false
	names := map[string]struct{}{}
	for _, p := range []*PipelineConfig{c.Restart, c.Forecast} {
		if p == nil {
			continue
		}
		if _, dup := names[p.Name]; dup {
			verr.Addf("pipeline name %q is used twice", p.Name)
		}
		names[p.Name] = struct{}{}
		p.validate(verr)
		postops = postops || p.PostOps
	}
	if postops {
		if !c.Tools.Extractor.Configured() {
			verr.Add("tools.extractor is required when postops is enabled")
		}
		if !c.Tools.Merger.Configured() {
			verr.Add("tools.merger is required when postops is enabled")
		}
		if strings.TrimSpace(c.Tools.TimeIndex.Program) == "" {
			verr.Add("tools.time_index.program is required when postops is enabled")
		}
	}

	if c.Notify.Enabled() && strings.TrimSpace(c.Notify.From) == "" {
		verr.Add("notify.from is required when notify.host is set")
	}

	for i, src := range c.Forcing.Sources {
		prefix := fmt.Sprintf("forcing.sources[%d]", i)
		if strings.TrimSpace(src.Name) == "" {
			verr.Addf("%s.name is required", prefix)
		} else if strings.ContainsAny(src.Name, "-_/") {
			verr.Addf("%s.name %q must not contain '-', '_' or '/'", prefix, src.Name)
		}
		if strings.TrimSpace(src.DestDir) == "" {
			verr.Addf("%s.dest_dir is required", prefix)
		}
		if len(src.URLs) == 0 {
			verr.Addf("%s.urls must not be empty", prefix)
		}
		if src.PublishHour < 0 || src.PublishHour >= 24 {
			verr.Addf("%s.publish_hour must be within [0,24)", prefix)
		}
		if src.Hindcast < 0 || src.Forecast < 0 {
			verr.Addf("%s.hindcast and forecast must be >= 0", prefix)
		}
	}

	return verr.OrNil()
}

func (p PipelineConfig) validate(verr *ValidationError) {
	prefix := p.Name
	if strings.TrimSpace(p.OutDir) == "" {
		verr.Addf("%s.outdir is required", prefix)
	}
	if strings.TrimSpace(p.GeneralData) == "" {
		verr.Addf("%s.generaldata is required", prefix)
	}
	if len(p.Domains) == 0 {
		verr.Addf("%s.domains must not be empty", prefix)
	}
	ids := map[string]struct{}{}
	for _, d := range p.Domains {
		id := filepath.Base(filepath.Clean(strings.TrimSpace(d)))
		if _, dup := ids[id]; dup {
			verr.Addf("%s.domains: duplicate domain name %q", prefix, id)
		}
		ids[id] = struct{}{}
	}
	if p.KeepResults < 0 {
		verr.Addf("%s.keepres must be >= 0", prefix)
	}
	for _, dest := range p.External {
		if strings.TrimSpace(dest) == "" {
			verr.Addf("%s.extdisk entries must not be empty", prefix)
		}
	}
}
