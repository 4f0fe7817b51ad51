package model

// Outcome is the completion record of one test, handed from the worker
// pool to the aggregator.
type Outcome struct {
	// Display name of the test
	Name string
	// Passed is true when the run exited cleanly and matched the golden
	Passed bool
	// Rebased is true when a clean-exit mismatch rewrote the golden
	Rebased bool
	// Rendered progress block, written to stderr as the test completes
	Rendered string
	// Perf measurements, set for passing tests only
	Perf *PerfResult
}
