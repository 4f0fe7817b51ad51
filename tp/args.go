package tp

// args.go contains helpers for building trace_processor_shell command
// lines.

import (
	"strings"

	"al.essio.dev/pkg/shellescape"

	"github.com/tpdiff/tpdiff/model"
)

// QueryArgs builds the argument list for running a query test. perfPath
// receives the one-line timing side channel written by trace_processor.
func QueryArgs(queryPath, perfPath, tracePath string) []string {
	return []string{"-q", queryPath, "--perf-file", perfPath, tracePath}
}

// MetricArgs builds the argument list for running a metric test.
func MetricArgs(metric string, format model.MetricOutputFormat, perfPath, tracePath string) []string {
	return []string{
		"--run-metrics", metric,
		"--metrics-output=" + format.String(),
		"--perf-file", perfPath,
		tracePath,
	}
}

// Command renders a binary and its arguments as a copy-pasteable shell
// command line with proper escaping.
func Command(binary string, args []string) string {
	parts := make([]string, 0, len(args)+1)
	parts = append(parts, shellescape.Quote(binary))
	for _, arg := range args {
		parts = append(parts, shellescape.Quote(arg))
	}
	return strings.Join(parts, " ")
}
