package tp

// descriptors.go locates the proto descriptor files generated into the
// build output directory next to the trace_processor binary.

import (
	"os"
	"path/filepath"
)

// TraceDescriptorPath returns the generated trace.descriptor under the
// build output directory, falling back to the gcc_like_host secondary
// toolchain output when the primary location is missing.
func TraceDescriptorPath(outDir string) string {
	primary := filepath.Join(outDir, "gen", "protos", "perfetto", "trace", "trace.descriptor")
	if _, err := os.Stat(primary); err == nil {
		return primary
	}
	return filepath.Join(outDir, "gcc_like_host", "gen", "protos", "perfetto", "trace", "trace.descriptor")
}

// MetricsDescriptorPaths returns the descriptor sets that together
// describe the TraceMetrics message, including the chrome extensions.
func MetricsDescriptorPaths(outDir string) []string {
	metricsDir := filepath.Join(outDir, "gen", "protos", "perfetto", "metrics")
	return []string{
		filepath.Join(metricsDir, "metrics.descriptor"),
		filepath.Join(metricsDir, "chrome", "all_chrome_metrics.descriptor"),
	}
}

// ExtensionDescriptorPaths returns the descriptor extensions handed to
// the trace serializer for textproto traces.
func ExtensionDescriptorPaths(outDir string) []string {
	return []string{
		filepath.Join(outDir, "gen", "protos", "third_party", "chromium", "chrome_track_event.descriptor"),
		filepath.Join(outDir, "gen", "protos", "perfetto", "trace", "test_extensions.descriptor"),
	}
}
