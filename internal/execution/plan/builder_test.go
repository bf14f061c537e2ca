package plan

import (
	"testing"
	"time"

	"github.com/animus-labs/smsc-go/internal/simerr"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func table(domains, stages int) [][]float64 {
	out := make([][]float64, domains)
	for i := range out {
		out[i] = make([]float64, stages)
		for j := range out[i] {
			out[i][j] = 60
		}
	}
	return out
}

func TestBuildPlan_HindcastForecastScenario(t *testing.T) {
	p, err := BuildPlan(Input{
		OpDate:    date(2024, 6, 10),
		Hindcast:  []int{2, 3},
		Forecast:  []int{1},
		Domains:   []string{"/models/level1"},
		Timesteps: table(1, 3),
	})
	if err != nil {
		t.Fatalf("BuildPlan() err=%v", err)
	}
	want := [][2]time.Time{
		{date(2024, 6, 5), date(2024, 6, 7)},
		{date(2024, 6, 7), date(2024, 6, 10)},
		{date(2024, 6, 10), date(2024, 6, 11)},
	}
	if len(p.Stages) != len(want) {
		t.Fatalf("stages=%d, want %d", len(p.Stages), len(want))
	}
	for i, w := range want {
		s := p.Stages[i]
		if s.Index != i+1 || !s.Start.Equal(w[0]) || !s.End.Equal(w[1]) {
			t.Fatalf("stage %d = %d %v..%v, want %v..%v", i, s.Index, s.Start, s.End, w[0], w[1])
		}
		if s.Timesteps["level1"] != 60 {
			t.Fatalf("stage %d timestep=%v", i, s.Timesteps["level1"])
		}
	}
}

func TestBuildPlan_Properties(t *testing.T) {
	cases := []struct {
		hindcast, forecast []int
	}{
		{nil, []int{3}},
		{[]int{1}, nil},
		{[]int{1, 1, 1}, []int{2, 5}},
		{[]int{7}, []int{1, 1, 1, 1}},
	}
	opdate := date(2024, 3, 30)
	offset := 6 * time.Hour
	for _, tc := range cases {
		n := len(tc.hindcast) + len(tc.forecast)
		p, err := BuildPlan(Input{
			OpDate: opdate, StartOffset: offset,
			Hindcast: tc.hindcast, Forecast: tc.forecast,
			Domains: []string{"/d/a", "/d/b"}, Timesteps: table(2, n),
		})
		if err != nil {
			t.Fatalf("BuildPlan(%v,%v) err=%v", tc.hindcast, tc.forecast, err)
		}
		if len(p.Stages) != n {
			t.Fatalf("stages=%d, want %d", len(p.Stages), n)
		}
		back, ahead := 0, 0
		for _, v := range tc.hindcast {
			back += v
		}
		for _, v := range tc.forecast {
			ahead += v
		}
		anchor := opdate.Add(offset)
		if !p.Start().Equal(anchor.AddDate(0, 0, -back)) || !p.End().Equal(anchor.AddDate(0, 0, ahead)) {
			t.Fatalf("span=%v..%v for %v/%v", p.Start(), p.End(), tc.hindcast, tc.forecast)
		}
		for i, s := range p.Stages {
			if !s.Start.Before(s.End) {
				t.Fatalf("stage %d start %v not before end %v", s.Index, s.Start, s.End)
			}
			if i > 0 && !p.Stages[i-1].End.Equal(s.Start) {
				t.Fatalf("stage %d not contiguous", s.Index)
			}
		}
	}
}

func TestBuildPlan_ConfigErrors(t *testing.T) {
	cases := []struct {
		name string
		in   Input
	}{
		{"null range", Input{Domains: []string{"/d/a"}}},
		{"zero offset", Input{Forecast: []int{0}, Domains: []string{"/d/a"}, Timesteps: table(1, 1)}},
		{"negative hindcast", Input{Hindcast: []int{-1}, Domains: []string{"/d/a"}, Timesteps: table(1, 1)}},
		{"no domains", Input{Forecast: []int{1}}},
		{"timestep rows", Input{Forecast: []int{1}, Domains: []string{"/d/a", "/d/b"}, Timesteps: table(1, 1)}},
		{"timestep columns", Input{Forecast: []int{1, 1}, Domains: []string{"/d/a"}, Timesteps: table(1, 1)}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tc.in.OpDate = date(2024, 6, 10)
			_, err := BuildPlan(tc.in)
			if err == nil {
				t.Fatalf("BuildPlan() expected error")
			}
			if simerr.KindOf(err) != simerr.KindConfig {
				t.Fatalf("KindOf()=%q, want config", simerr.KindOf(err))
			}
		})
	}
}

func TestBuildPlan_Deterministic(t *testing.T) {
	in := Input{OpDate: date(2024, 6, 10), Hindcast: []int{1, 2}, Forecast: []int{3}, Domains: []string{"/d/a"}, Timesteps: table(1, 3)}
	a, err := BuildPlan(in)
	if err != nil {
		t.Fatalf("BuildPlan() err=%v", err)
	}
	b, _ := BuildPlan(in)
	for i := range a.Stages {
		if !a.Stages[i].Start.Equal(b.Stages[i].Start) || !a.Stages[i].End.Equal(b.Stages[i].End) {
			t.Fatalf("stage %d differs between builds", i+1)
		}
	}
}
