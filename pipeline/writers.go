// Package pipeline implements the offline stages of the crawl: state
// extraction, payment aggregation, and the final transform. Every stage reads
// the prior stage's output directory and exclusively owns its own.
package pipeline

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// writeJSONFile marshals v with two-space indentation and writes it to path,
// creating parent directories as needed. The indentation matches the files
// the downstream consumers already ship with.
func writeJSONFile(path string, v any) error {
	if err := ensureDir(path); err != nil {
		return err
	}

	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", filepath.Base(path), err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	return nil
}

func ensureDir(filename string) error {
	dir := filepath.Dir(filename)
	if dir == "" || dir == "." {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create directory %q: %w", dir, err)
	}
	return nil
}

// listFiles returns the names in dir with the given suffix, sorted. Directory
// listing order is the tie-breaker for every first-seen-wins rule in the
// pipeline, so sorting keeps runs deterministic across filesystems.
func listFiles(dir, suffix string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read directory %q: %w", dir, err)
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if filepath.Ext(name) == suffix {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names, nil
}
