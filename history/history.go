package history

// This file contains run history persistence. Every harness invocation
// records its summary under <root>/.tpdiff/history so earlier runs can
// be listed and compared.

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/tpdiff/tpdiff/model"
)

const runFile = "run.json"

type Entry struct {
	Run      model.Run
	FullPath string
}

// Root returns the history directory under the suite root.
func Root(rootDir string) string {
	return filepath.Join(rootDir, ".tpdiff", "history")
}

// Record writes the run summary to a fresh <timestamp>-<short id>
// directory under the history root.
func Record(logger zerolog.Logger, rootDir string, run model.Run) error {
	timestamp := run.Timestamp.Format("20060102-150405")
	shortID := run.ID
	if len(shortID) > 8 {
		shortID = shortID[:8]
	}

	runDir := filepath.Join(Root(rootDir), fmt.Sprintf("%s-%s", timestamp, shortID))
	if err := os.MkdirAll(runDir, 0755); err != nil {
		return fmt.Errorf("failed to create run directory: %w", err)
	}

	raw, err := json.MarshalIndent(run, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal run: %w", err)
	}
	if err := os.WriteFile(filepath.Join(runDir, runFile), raw, 0644); err != nil {
		return fmt.Errorf("failed to write run metadata: %w", err)
	}

	logger.Debug().Str("dir", runDir).Str("id", run.ID).Msg("Recorded test run")
	return nil
}

// LoadEntries loads every recorded run under the history root. Entries
// that fail to parse are skipped with a warning.
func LoadEntries(logger zerolog.Logger, rootDir string) ([]Entry, error) {
	root := Root(rootDir)
	if _, err := os.Stat(root); os.IsNotExist(err) {
		return nil, fmt.Errorf("no recorded runs in %s", root)
	}

	var entries []Entry
	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}

		runPath := filepath.Join(path, runFile)
		if _, err := os.Stat(runPath); err != nil {
			return nil
		}
		run, err := parseRunJSON(runPath)
		if err != nil {
			logger.Warn().Err(err).Str("path", runPath).Msg("Failed to parse run.json")
			return nil
		}

		entries = append(entries, Entry{Run: run, FullPath: path})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk history directory: %w", err)
	}

	return entries, nil
}

func parseRunJSON(path string) (model.Run, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return model.Run{}, err
	}

	var run model.Run
	if err := json.Unmarshal(data, &run); err != nil {
		return model.Run{}, err
	}

	return run, nil
}
