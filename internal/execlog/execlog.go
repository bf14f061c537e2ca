// Package execlog appends one line per pipeline invocation to the
// operator-facing execution log in the output directory.
package execlog

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

const (
	FileName = "smslog.dat"
	Header   = "runtime;simdates;endtime;status"

	StatusCompleted     = "[COMPLETED]"
	StatusPostCompleted = "post-processing [COMPLETED]"
)

const timeLayout = "2006-01-02T15:04:05"

// Entry is an open log line. Close finishes it exactly once.
type Entry struct {
	path string
	now  func() time.Time

	mu     sync.Mutex
	closed bool
}

// Open creates the log with its header if needed and writes the start of a
// line: the current time and the simulated span.
func Open(outDir, span string, now func() time.Time) (*Entry, error) {
	if now == nil {
		now = time.Now
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, fmt.Errorf("create log dir: %w", err)
	}
	path := filepath.Join(outDir, FileName)
	prefix := ""
	if _, err := os.Stat(path); os.IsNotExist(err) {
		prefix = Header + "\n"
	}
	if err := appendText(path, prefix+now().Format(timeLayout)+";"+span+";"); err != nil {
		return nil, err
	}
	return &Entry{path: path, now: now}, nil
}

func (e *Entry) Path() string {
	return e.path
}

// Close writes the end time and status, terminating the line.
func (e *Entry) Close(status string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil
	}
	e.closed = true
	status = strings.NewReplacer("\n", " ", "\r", " ", ";", ",").Replace(strings.TrimSpace(status))
	return appendText(e.path, e.now().Format(timeLayout)+";"+status+"\n")
}

func appendText(path, text string) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open execution log: %w", err)
	}
	if _, err := f.WriteString(text); err != nil {
		_ = f.Close()
		return fmt.Errorf("write execution log: %w", err)
	}
	return f.Close()
}
