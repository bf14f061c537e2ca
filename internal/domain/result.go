package domain

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

// OutcomeKind tags an ExecutionResult.
type OutcomeKind string

const (
	OutcomeSuccess       OutcomeKind = "success"
	OutcomeEngineFailure OutcomeKind = "engine_failure"
	OutcomeMissingInput  OutcomeKind = "missing_input"
)

// ExecutionResult is the outcome of one stage.
type ExecutionResult struct {
	Kind    OutcomeKind `json:"kind"`
	Input   string      `json:"input,omitempty"`
	Message string      `json:"message,omitempty"`
}

func (r ExecutionResult) OK() bool {
	return r.Kind == OutcomeSuccess
}

// ForcingCandidate is a boundary-condition file with its declared coverage.
type ForcingCandidate struct {
	Path          string
	Prefix        string
	Ext           string
	CoverageStart time.Time
	CoverageEnd   time.Time
	ModTime       time.Time
}

// Covers reports whether the coverage encloses [start, end] on whole dates.
func (c ForcingCandidate) Covers(start, end time.Time) bool {
	return !truncateDay(c.CoverageStart).After(truncateDay(start)) &&
		!truncateDay(c.CoverageEnd).Before(truncateDay(end))
}

// PlacedName is the file name with the coverage suffix removed.
func (c ForcingCandidate) PlacedName() string {
	return c.Prefix + c.Ext
}

const snapshotLayout = "20060102T1504"

// OutputSnapshot is one single-instant output file.
type OutputSnapshot struct {
	Class   string
	Instant time.Time
	Path    string
}

// SnapshotName renders {class}-{YYYYMMDDThhmm}{ext}.
func SnapshotName(class string, instant time.Time, ext string) string {
	return class + "-" + instant.Format(snapshotLayout) + ext
}

// ParseSnapshot reads class and instant back from a snapshot path.
func ParseSnapshot(path string) (OutputSnapshot, error) {
	base := filepath.Base(path)
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)
	idx := strings.LastIndex(stem, "-")
	if idx <= 0 || idx == len(stem)-1 {
		return OutputSnapshot{}, fmt.Errorf("snapshot name %q: missing class or instant", base)
	}
	instant, err := time.ParseInLocation(snapshotLayout, stem[idx+1:], time.UTC)
	if err != nil {
		return OutputSnapshot{}, fmt.Errorf("snapshot name %q: %w", base, err)
	}
	return OutputSnapshot{Class: stem[:idx], Instant: instant, Path: path}, nil
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
