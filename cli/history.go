package cli

// This file contains the history list command for displaying previous
// test runs.

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/tpdiff/tpdiff/history"
)

func (a *App) historyList(ctx *cli.Context) error {
	limit := ctx.Int("limit")

	rootDir := ctx.String("root-dir")
	if rootDir == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("failed to resolve working directory: %w", err)
		}
		rootDir = cwd
	}

	entries, err := history.LoadEntries(a.logger, rootDir)
	if err != nil {
		return err
	}

	if len(entries) == 0 {
		fmt.Println("No recorded runs found")
		return nil
	}

	// Sort by timestamp (newest first)
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Run.Timestamp.After(entries[j].Run.Timestamp)
	})

	displayRuns := entries
	if limit > 0 && limit < len(displayRuns) {
		displayRuns = displayRuns[:limit]
	}

	fmt.Printf("\n=== History (%d total) ===\n\n", len(entries))

	for _, entry := range displayRuns {
		run := entry.Run
		timestamp := run.Timestamp.Format("2006-01-02 15:04:05")
		duration := run.Duration.Round(time.Millisecond)

		status := "✓"
		if run.ExitCode != 0 {
			status = "✗"
		}

		// Show short ID (first 8 chars)
		shortID := run.ID
		if len(shortID) > 8 {
			shortID = shortID[:8]
		}

		fmt.Printf("%s  %s  [%s]  exit=%d  id=%s\n", status, timestamp, duration, run.ExitCode, shortID)
		fmt.Printf("   Tests: %d total, %d passed, %d failed", run.Total, run.Passed, run.Failed)
		if run.Rebased > 0 {
			fmt.Printf(", %d rebased", run.Rebased)
		}
		fmt.Println()
		if len(run.Args) > 1 {
			fmt.Printf("   Args: %s\n", strings.Join(run.Args[1:], " "))
		}
		if len(run.Failures) > 0 {
			names := run.Failures
			if len(names) > 5 {
				names = names[:5]
			}
			fmt.Printf("   Failed: %s", strings.Join(names, ", "))
			if rest := len(run.Failures) - len(names); rest > 0 {
				fmt.Printf(" (+%d more)", rest)
			}
			fmt.Println()
		}
		fmt.Printf("   %s\n", entry.FullPath)
		fmt.Println()
	}

	return nil
}
