package cli

// This file snapshots the state of the suite checkout for run history.

import (
	"os/exec"
	"strings"

	"github.com/tpdiff/tpdiff/model"
)

// gitInfo returns the commit and branch of the checkout at dir, or nil
// when dir is not inside a git repository.
func gitInfo(dir string) *model.Git {
	commit, err := gitOutput(dir, "rev-parse", "HEAD")
	if err != nil {
		return nil
	}
	branch, err := gitOutput(dir, "rev-parse", "--abbrev-ref", "HEAD")
	if err != nil {
		return nil
	}
	return &model.Git{Commit: commit, Branch: branch}
}

func gitOutput(dir string, args ...string) (string, error) {
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	out, err := cmd.Output()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}
