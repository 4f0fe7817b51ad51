package model

import "time"

// Git snapshots the suite checkout state at the time of a run.
type Git struct {
	// Commit hash of the suite checkout
	Commit string `json:"commit,omitempty"`
	// Branch name of the suite checkout
	Branch string `json:"branch,omitempty"`
}

// Run records one harness invocation for the history directory.
type Run struct {
	// Unique ID for this run
	ID string `json:"id"`
	// Timestamp when the run started
	Timestamp time.Time `json:"timestamp"`
	// Command-line arguments (including command name)
	Args []string `json:"args"`
	// Path of the trace_processor binary under test
	Binary string `json:"binary"`
	// Suite root directory the indexes were read from
	RootDir string `json:"root_dir"`
	// Git state of the suite checkout, if it is a repository
	Git *Git `json:"git,omitempty"`
	// Exit code of the run
	ExitCode int `json:"exit_code"`
	// Duration of the whole run
	Duration time.Duration `json:"duration"`
	// Number of tests executed
	Total int `json:"total"`
	// Number of tests that passed
	Passed int `json:"passed"`
	// Number of tests that failed
	Failed int `json:"failed"`
	// Number of goldens rewritten in rebase mode
	Rebased int `json:"rebased"`
	// Display names of failing tests
	Failures []string `json:"failures,omitempty"`
	// Timing measurements of passing tests
	Perf []PerfResult `json:"perf,omitempty"`
}
