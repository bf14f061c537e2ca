package domain

import (
	"testing"
	"time"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestCanTransitionStageState(t *testing.T) {
	tests := []struct {
		from, to StageState
		want     bool
	}{
		{StageIdle, StagePrepared, true},
		{StagePrepared, StageRunning, true},
		{StageRunning, StageSucceeded, true},
		{StageIdle, StageFailed, true},
		{StageIdle, StageRunning, false},
		{StageSucceeded, StageFailed, false},
		{StageFailed, StageRunning, false},
		{StageRunning, StagePrepared, false},
		{"", StageIdle, false},
	}
	for _, tc := range tests {
		if got := CanTransitionStageState(tc.from, tc.to); got != tc.want {
			t.Fatalf("CanTransitionStageState(%s,%s)=%v, want %v", tc.from, tc.to, got, tc.want)
		}
	}
}

func TestNormalizeStageState(t *testing.T) {
	if NormalizeStageState(" Succeeded ") != StageSucceeded {
		t.Fatalf("expected succeeded")
	}
	if NormalizeStageState("bogus") != "" {
		t.Fatalf("expected empty state for unknown value")
	}
}

func TestWithFinalEndDoesNotMutate(t *testing.T) {
	plan := SimulationPlan{Stages: []Stage{{Index: 1, Start: date(2024, 6, 10), End: date(2024, 6, 13)}}}
	shrunk := plan.WithFinalEnd(date(2024, 6, 12))
	if !plan.End().Equal(date(2024, 6, 13)) {
		t.Fatalf("original plan mutated: %v", plan.End())
	}
	if !shrunk.End().Equal(date(2024, 6, 12)) {
		t.Fatalf("shrunk end=%v", shrunk.End())
	}
	if shrunk.Stages[0].Days() != 2 {
		t.Fatalf("Days()=%d, want 2", shrunk.Stages[0].Days())
	}
}

func TestDegradeAllowed(t *testing.T) {
	one := SimulationPlan{KeepAlive: true, Stages: []Stage{{Index: 1}}}
	two := SimulationPlan{KeepAlive: true, Stages: []Stage{{Index: 1}, {Index: 2}}}
	if !one.DegradeAllowed() || two.DegradeAllowed() {
		t.Fatalf("keep-alive degrade only applies to single-stage plans")
	}
}

func TestCandidateCovers(t *testing.T) {
	c := ForcingCandidate{CoverageStart: date(2024, 6, 9), CoverageEnd: date(2024, 6, 12)}
	if !c.Covers(date(2024, 6, 10).Add(12*time.Hour), date(2024, 6, 12).Add(12*time.Hour)) {
		t.Fatalf("expected coverage on whole dates")
	}
	if c.Covers(date(2024, 6, 8), date(2024, 6, 10)) {
		t.Fatalf("start before coverage should not match")
	}
}

func TestSnapshotNameRoundTrip(t *testing.T) {
	instant := time.Date(2024, 6, 10, 13, 30, 0, 0, time.UTC)
	name := SnapshotName("HD", instant, ".hdf5")
	if name != "HD-20240610T1330.hdf5" {
		t.Fatalf("SnapshotName()=%q", name)
	}
	snap, err := ParseSnapshot("/tmp/" + name)
	if err != nil {
		t.Fatalf("ParseSnapshot() err=%v", err)
	}
	if snap.Class != "HD" || !snap.Instant.Equal(instant) {
		t.Fatalf("ParseSnapshot()=%+v", snap)
	}
	if _, err := ParseSnapshot("HD.hdf5"); err == nil {
		t.Fatalf("ParseSnapshot() expected error")
	}
}

func TestNewDomain(t *testing.T) {
	d := NewDomain("/models/Tagus/level1/")
	if d.ID != "level1" || d.ExeDir() != "/models/Tagus/level1/exe" {
		t.Fatalf("NewDomain()=%+v exe=%s", d, d.ExeDir())
	}
}
