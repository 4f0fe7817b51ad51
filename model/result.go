package model

import "strings"

// TestResult captures the outcome of a single trace_processor invocation
// after decoding, before the pass/fail verdict is rendered.
type TestResult struct {
	// Test this result belongs to
	Test Test `json:"test"`
	// Full command line used to invoke trace_processor
	Cmd []string `json:"cmd"`
	// Golden output, decoded to comparable text
	Expected string `json:"-"`
	// Actual output, decoded to comparable text
	Actual string `json:"-"`
	// Captured stderr of the invocation
	Stderr string `json:"-"`
	// Exit code of the invocation
	ExitCode int `json:"exit_code"`
}

// Passed reports whether the invocation exited cleanly and produced
// output identical to the golden after line ending normalization.
// Goldens written on Windows checkouts may carry CRLF endings.
func (r TestResult) Passed() bool {
	return r.ExitCode == 0 && NormalizeLineEndings(r.Expected) == NormalizeLineEndings(r.Actual)
}

// NormalizeLineEndings collapses CRLF sequences to plain LF.
func NormalizeLineEndings(s string) string {
	return strings.ReplaceAll(s, "\r\n", "\n")
}

// PerfResult holds the timing side-channel measurements of a passing test.
type PerfResult struct {
	// Kind of the measured test
	Kind TestKind `json:"test_type"`
	// Absolute path of the trace input
	Trace string `json:"trace"`
	// Query path for query tests, metric name for metric tests
	Query string `json:"query"`
	// Nanoseconds spent ingesting the trace
	IngestTimeNs int64 `json:"ingest_time_ns"`
	// Nanoseconds spent resolving the query or metric
	RealTimeNs int64 `json:"real_time_ns"`
}
