// Package descriptor reads and writes the "KEY : value" run files consumed
// by the engine and its tools.
package descriptor

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// TimeLayout is the engine date layout, e.g. "2024 06 10 00 00 00".
const TimeLayout = "2006 01 02 15 04 05"

type Entry struct {
	Key   string
	Value string
}

// Format renders entries with keys padded to a common width.
func Format(entries []Entry) []byte {
	width := 0
	for _, e := range entries {
		if len(e.Key) > width {
			width = len(e.Key)
		}
	}
	var buf bytes.Buffer
	for _, e := range entries {
		fmt.Fprintf(&buf, "%-*s : %s\n", width, e.Key, e.Value)
	}
	return buf.Bytes()
}

// Parse reads KEY : value lines. Blank lines, comments and block markers
// (lines starting with '<') are skipped.
func Parse(r io.Reader) ([]Entry, error) {
	out := make([]Entry, 0)
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "!") || strings.HasPrefix(line, "<") {
			continue
		}
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		out = append(out, Entry{Key: strings.TrimSpace(key), Value: strings.TrimSpace(value)})
	}
	return out, sc.Err()
}

// Lookup returns the first value stored under key.
func Lookup(entries []Entry, key string) (string, bool) {
	for _, e := range entries {
		if e.Key == key {
			return e.Value, true
		}
	}
	return "", false
}

func ReadFile(path string) ([]Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Parse(f)
}

func WriteFile(path string, entries []Entry) error {
	return writeFile(path, Format(entries))
}

// ModelEntries is the stage window descriptor for one domain.
func ModelEntries(start, end time.Time, dt float64, gmtReference int) []Entry {
	return []Entry{
		{Key: "START", Value: start.Format(TimeLayout)},
		{Key: "END", Value: end.Format(TimeLayout)},
		{Key: "DT", Value: formatFloat(dt)},
		{Key: "VARIABLEDT", Value: "0"},
		{Key: "GMTREFERENCE", Value: fmt.Sprintf("%d", gmtReference)},
	}
}

// ModelFileName is data/Model_{i}.dat for stage i.
func ModelFileName(stage int) string {
	return fmt.Sprintf("Model_%d.dat", stage)
}

// NomfichTemplateName is data/Nomfich_{i}.dat for stage i.
func NomfichTemplateName(stage int) string {
	return fmt.Sprintf("Nomfich_%d.dat", stage)
}

// ToolNomfich points a tool at its action file.
func ToolNomfich(action string) []Entry {
	return []Entry{
		{Key: "ROOT_SRT", Value: "." + string(filepath.Separator)},
		{Key: "IN_MODEL", Value: action},
	}
}

// WriteTree writes the nested-domain file read by the engine: two comment
// lines then one '+'-prefixed exe directory per nesting level.
func WriteTree(path string, exeDirs []string) error {
	var buf bytes.Buffer
	buf.WriteString("Model and submodel configuration\n")
	buf.WriteString("Generated for the current stage\n")
	for i, dir := range exeDirs {
		buf.WriteString(strings.Repeat("+", i+1))
		buf.WriteString(strings.TrimSuffix(dir, string(filepath.Separator)) + string(filepath.Separator))
		buf.WriteByte('\n')
	}
	return writeFile(path, buf.Bytes())
}

func formatFloat(v float64) string {
	s := fmt.Sprintf("%g", v)
	if !strings.ContainsAny(s, ".e") {
		s += ".0"
	}
	return s
}

func writeFile(path string, body []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, body, 0o644)
}
