package forcing

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/animus-labs/smsc-go/internal/domain"
)

const coverageLayout = "20060102"

// FileName renders {prefix}-{YYYYMMDD}_{YYYYMMDD}{ext}.
func FileName(prefix string, start, end time.Time, ext string) string {
	return prefix + "-" + start.Format(coverageLayout) + "_" + end.Format(coverageLayout) + ext
}

// ParseName reads prefix, coverage and extension from a forcing file name.
func ParseName(path string) (domain.ForcingCandidate, error) {
	base := filepath.Base(path)
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)
	idx := strings.LastIndex(stem, "-")
	if idx <= 0 {
		return domain.ForcingCandidate{}, fmt.Errorf("forcing name %q: missing prefix", base)
	}
	span := strings.Split(stem[idx+1:], "_")
	if len(span) != 2 {
		return domain.ForcingCandidate{}, fmt.Errorf("forcing name %q: coverage must be YYYYMMDD_YYYYMMDD", base)
	}
	start, err := time.ParseInLocation(coverageLayout, span[0], time.UTC)
	if err != nil {
		return domain.ForcingCandidate{}, fmt.Errorf("forcing name %q: %w", base, err)
	}
	end, err := time.ParseInLocation(coverageLayout, span[1], time.UTC)
	if err != nil {
		return domain.ForcingCandidate{}, fmt.Errorf("forcing name %q: %w", base, err)
	}
	if end.Before(start) {
		return domain.ForcingCandidate{}, fmt.Errorf("forcing name %q: coverage ends before it starts", base)
	}
	return domain.ForcingCandidate{
		Path:          path,
		Prefix:        stem[:idx],
		Ext:           ext,
		CoverageStart: start,
		CoverageEnd:   end,
	}, nil
}

// Select returns the most recently modified candidate whose coverage
// encloses [start, end]. Ties on modification time go to the lexically
// smaller path.
func Select(cands []domain.ForcingCandidate, start, end time.Time) (domain.ForcingCandidate, bool) {
	sorted := make([]domain.ForcingCandidate, len(cands))
	copy(sorted, cands)
	sort.SliceStable(sorted, func(i, j int) bool {
		if !sorted[i].ModTime.Equal(sorted[j].ModTime) {
			return sorted[i].ModTime.After(sorted[j].ModTime)
		}
		return sorted[i].Path < sorted[j].Path
	})
	for _, c := range sorted {
		if c.Covers(start, end) {
			return c, true
		}
	}
	return domain.ForcingCandidate{}, false
}

func statCandidate(c domain.ForcingCandidate) (domain.ForcingCandidate, error) {
	info, err := os.Stat(c.Path)
	if err != nil {
		return c, err
	}
	c.ModTime = info.ModTime()
	return c, nil
}
