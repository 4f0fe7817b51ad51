package cli

// This file contains the history show command for displaying one
// recorded test run in detail.

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/tpdiff/tpdiff/history"
	"github.com/tpdiff/tpdiff/report"
)

// selectEntry resolves a run reference against entries sorted newest
// first. "0" is the latest run, "-1" the one before it, and so on; any
// other string is matched as a case-insensitive ID prefix.
func selectEntry(entries []history.Entry, arg string) (*history.Entry, error) {
	if parsed, err := strconv.ParseInt(arg, 10, 64); err == nil {
		if parsed > 0 {
			return nil, fmt.Errorf("invalid index: %s (use 0 for last, -1 for second-to-last, etc.)", arg)
		}
		index := int(-parsed)
		if index >= len(entries) {
			return nil, fmt.Errorf("index %s out of range (only %d recorded runs)", arg, len(entries))
		}
		return &entries[index], nil
	}

	prefix := strings.ToLower(arg)
	for i := range entries {
		if strings.HasPrefix(strings.ToLower(entries[i].Run.ID), prefix) {
			return &entries[i], nil
		}
	}
	return nil, fmt.Errorf("no recorded run found matching ID: %s", arg)
}

func (a *App) historyShow(ctx *cli.Context) error {
	arg := ctx.Args().First()
	if arg == "" {
		arg = "0"
	}

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
		return fmt.Errorf("no recorded runs found in %s", rootDir)
	}

	// Sort by timestamp (newest first)
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Run.Timestamp.After(entries[j].Run.Timestamp)
	})

	entry, err := selectEntry(entries, arg)
	if err != nil {
		return err
	}
	a.showEntry(entry, ctx.Int("slowest"))
	return nil
}

func (a *App) showEntry(entry *history.Entry, slowest int) {
	run := entry.Run

	shortID := run.ID
	if len(shortID) > 8 {
		shortID = shortID[:8]
	}

	fmt.Printf("=== Test Run: %s ===\n", shortID)
	fmt.Printf("Time: %s\n", run.Timestamp.Format("2006-01-02 15:04:05"))
	fmt.Printf("Duration: %s\n", run.Duration.Round(time.Millisecond))
	fmt.Printf("Exit Code: %d\n", run.ExitCode)
	fmt.Printf("Binary: %s\n", run.Binary)
	fmt.Printf("Root Dir: %s\n", run.RootDir)
	if run.Git != nil && run.Git.Commit != "" {
		commit := run.Git.Commit
		if len(commit) > 8 {
			commit = commit[:8]
		}
		fmt.Printf("Git Commit: %s", commit)
		if run.Git.Branch != "" {
			fmt.Printf(" (%s)", run.Git.Branch)
		}
		fmt.Println()
	}
	fmt.Printf("Tests: %d total, %d passed, %d failed", run.Total, run.Passed, run.Failed)
	if run.Rebased > 0 {
		fmt.Printf(", %d rebased", run.Rebased)
	}
	fmt.Println()
	if len(run.Failures) > 0 {
		fmt.Println("Failed:")
		for _, name := range run.Failures {
			fmt.Printf("   %s\n", name)
		}
	}
	fmt.Println()

	if len(run.Perf) > 0 {
		report.WriteSlowest(os.Stdout, run.RootDir, run.Perf, slowest)
	}
	fmt.Printf("History directory: %s\n", entry.FullPath)
}
