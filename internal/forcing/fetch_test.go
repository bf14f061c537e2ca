package forcing

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/animus-labs/smsc-go/internal/config"
)

func TestWaitForPublish(t *testing.T) {
	now := time.Date(2024, 6, 10, 3, 0, 0, 0, time.UTC)
	tests := []struct {
		name     string
		rangeEnd time.Time
		hour     float64
		want     time.Duration
	}{
		{name: "today waits", rangeEnd: date(2024, 6, 13), hour: 5.5, want: 150 * time.Minute},
		{name: "already published", rangeEnd: date(2024, 6, 13), hour: 2},
		{name: "past range", rangeEnd: date(2024, 6, 9), hour: 5.5},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var slept time.Duration
			err := WaitForPublish(context.Background(), now, tc.rangeEnd, tc.hour, func(_ context.Context, d time.Duration) error {
				slept = d
				return nil
			})
			if err != nil {
				t.Fatalf("WaitForPublish() err=%v", err)
			}
			if slept != tc.want {
				t.Fatalf("slept=%v, want %v", slept, tc.want)
			}
		})
	}
}

func TestWaitForPublish_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	now := time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC)
	if err := WaitForPublish(ctx, now, now, 1, sleepContext); !errors.Is(err, context.Canceled) {
		t.Fatalf("WaitForPublish() err=%v, want context.Canceled", err)
	}
}

func TestFetch_MirrorsAndNaming(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/gfs/20240610.nc" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte("forcing-bytes"))
	}))
	defer srv.Close()

	dest := t.TempDir()
	src := config.ForcingSource{
		Name:     "gfs",
		DestDir:  dest,
		Ext:      ".nc",
		Forecast: 3,
		URLs: []string{
			srv.URL + "/missing/{{.Date.Format \"20060102\"}}.nc",
			srv.URL + "/gfs/{{.Date.Format \"20060102\"}}.nc",
		},
	}
	clock := func() time.Time { return time.Date(2024, 6, 12, 12, 0, 0, 0, time.UTC) }
	f := NewFetcher(srv.Client(), testLogger(), WithClock(clock))

	path, err := f.Fetch(context.Background(), src, date(2024, 6, 10), 5)
	if err != nil {
		t.Fatalf("Fetch() err=%v", err)
	}
	if filepath.Base(path) != "gfs-20240610_20240613.nc" {
		t.Fatalf("Fetch() path=%s", path)
	}
	body, _ := os.ReadFile(path)
	if string(body) != "forcing-bytes" {
		t.Fatalf("body=%q", body)
	}
	if _, err := ParseName(path); err != nil {
		t.Fatalf("downloaded name not resolvable: %v", err)
	}
}

func TestFetch_AllMirrorsFail(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", "100")
		_, _ = w.Write([]byte("short"))
	}))
	defer srv.Close()

	dest := t.TempDir()
	src := config.ForcingSource{Name: "gfs", DestDir: dest, Ext: ".nc", URLs: []string{srv.URL + "/a"}}
	clock := func() time.Time { return time.Date(2024, 6, 12, 12, 0, 0, 0, time.UTC) }
	f := NewFetcher(srv.Client(), testLogger(), WithClock(clock))

	if _, err := f.Fetch(context.Background(), src, date(2024, 6, 10), 0); err == nil {
		t.Fatalf("Fetch() expected error on truncated body")
	}
	entries, _ := os.ReadDir(dest)
	if len(entries) != 0 {
		t.Fatalf("partial download left behind: %d entries", len(entries))
	}
}
