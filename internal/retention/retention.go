// Package retention prunes old outputs and mirrors finished days to
// external archives.
package retention

import (
	"os"
	"path/filepath"
	"sort"
	"time"
)

type entry struct {
	path    string
	name    string
	modTime time.Time
}

// RemoveOld keeps the keep most recently modified entries of dir and
// removes the rest. Equal modification times order by name, newest name
// first. keep <= 0 disables pruning.
func RemoveOld(dir string, keep int) ([]string, error) {
	if keep <= 0 {
		return nil, nil
	}
	items, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	entries := make([]entry, 0, len(items))
	for _, item := range items {
		info, err := item.Info()
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry{path: filepath.Join(dir, item.Name()), name: item.Name(), modTime: info.ModTime()})
	}
	return prune(entries, keep)
}

// RemoveOldGlob applies the RemoveOld ordering to the matches of pattern.
func RemoveOldGlob(pattern string, keep int) ([]string, error) {
	if keep <= 0 {
		return nil, nil
	}
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return nil, err
	}
	entries := make([]entry, 0, len(matches))
	for _, m := range matches {
		info, err := os.Stat(m)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry{path: m, name: filepath.Base(m), modTime: info.ModTime()})
	}
	return prune(entries, keep)
}

func prune(entries []entry, keep int) ([]string, error) {
	if len(entries) <= keep {
		return nil, nil
	}
	sort.Slice(entries, func(i, j int) bool {
		if !entries[i].modTime.Equal(entries[j].modTime) {
			return entries[i].modTime.After(entries[j].modTime)
		}
		return entries[i].name > entries[j].name
	})
	removed := make([]string, 0, len(entries)-keep)
	for _, e := range entries[keep:] {
		if err := os.RemoveAll(e.path); err != nil {
			return removed, err
		}
		removed = append(removed, e.path)
	}
	return removed, nil
}
