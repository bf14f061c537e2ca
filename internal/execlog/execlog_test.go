package execlog

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestEntryLines(t *testing.T) {
	dir := t.TempDir()
	clock := time.Date(2024, 6, 10, 3, 0, 0, 0, time.UTC)
	now := func() time.Time {
		clock = clock.Add(time.Minute)
		return clock
	}

	first, err := Open(dir, "20240605->20240611", now)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := first.Close(StatusCompleted); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := first.Close("ignored"); err != nil {
		t.Fatalf("second Close: %v", err)
	}

	second, err := Open(dir, "20240610->20240611", now)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := second.Close("engine failed;\nsee log"); err != nil {
		t.Fatalf("Close: %v", err)
	}

	raw, err := os.ReadFile(filepath.Join(dir, FileName))
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	lines := strings.Split(strings.TrimRight(string(raw), "\n"), "\n")
	want := []string{
		Header,
		"2024-06-10T03:01:00;20240605->20240611;2024-06-10T03:02:00;[COMPLETED]",
		"2024-06-10T03:03:00;20240610->20240611;2024-06-10T03:04:00;engine failed, see log",
	}
	if len(lines) != len(want) {
		t.Fatalf("expected %d lines, got %q", len(want), lines)
	}
	for i := range want {
		if lines[i] != want[i] {
			t.Fatalf("line %d: expected %q got %q", i, want[i], lines[i])
		}
	}
}
