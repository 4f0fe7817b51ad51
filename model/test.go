package model

import "path/filepath"

// TestKind distinguishes query tests from metric tests. The values are
// the wire strings used in the perf report ("queries" / "metrics").
type TestKind string

const (
	TestKindQuery  TestKind = "queries"
	TestKindMetric TestKind = "metrics"
)

// MetricOutputFormat selects the output encoding requested from
// trace_processor for a metric test.
type MetricOutputFormat uint8

const (
	MetricOutputBinary MetricOutputFormat = iota
	MetricOutputJSON
)

func (f MetricOutputFormat) String() string {
	if f == MetricOutputJSON {
		return "json"
	}
	return "binary"
}

// Test is a single differential test case parsed from an index file.
// All paths are absolute; for metric tests Query holds the metric name
// unchanged.
type Test struct {
	// Kind of the test (query or metric)
	Kind TestKind `json:"kind"`
	// Absolute path to the trace input (.py, .textproto or native format)
	Trace string `json:"trace"`
	// Absolute path to the query file, or the metric name for metric tests
	Query string `json:"query"`
	// Absolute path to the golden expected output
	Expected string `json:"expected"`
	// Output format for metric tests (ignored for query tests)
	MetricFormat MetricOutputFormat `json:"metric_format,omitempty"`
}

// Name returns the display name used in progress output and failure
// summaries: the query (or metric) basename followed by the trace basename.
func (t Test) Name() string {
	return filepath.Base(t.Query) + " " + filepath.Base(t.Trace)
}
