package report

// perfjson.go contains the aggregate performance report written after a
// fully green run.

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/tpdiff/tpdiff/model"
)

type perfMetric struct {
	Metric string            `json:"metric"`
	Value  float64           `json:"value"`
	Unit   string            `json:"unit"`
	Tags   map[string]string `json:"tags"`
	Labels map[string]string `json:"labels"`
}

type perfReport struct {
	Metrics []perfMetric `json:"metrics"`
}

// WritePerfFile writes the perf report to path. Every sample yields one
// ingest_time and one real_time metric in seconds; samples are sorted
// by (kind, trace, query) so reruns of the same suite produce identical
// documents regardless of completion order.
func WritePerfFile(path, rootDir string, perf []model.PerfResult) error {
	doc := perfReport{Metrics: make([]perfMetric, 0, 2*len(perf))}
	for _, p := range sortedPerf(perf) {
		traceShort, queryShort := shortNames(rootDir, p)
		tags := map[string]string{
			"test_name": traceShort + "-" + queryShort,
			"test_type": string(p.Kind),
		}
		doc.Metrics = append(doc.Metrics,
			perfMetric{
				Metric: "ingest_time",
				Value:  float64(p.IngestTimeNs) / 1e9,
				Unit:   "s",
				Tags:   tags,
				Labels: map[string]string{},
			},
			perfMetric{
				Metric: "real_time",
				Value:  float64(p.RealTimeNs) / 1e9,
				Unit:   "s",
				Tags:   tags,
				Labels: map[string]string{},
			})
	}

	raw, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal perf report: %w", err)
	}
	if err := os.WriteFile(path, raw, 0644); err != nil {
		return fmt.Errorf("failed to write perf report: %w", err)
	}
	return nil
}

func sortedPerf(perf []model.PerfResult) []model.PerfResult {
	out := make([]model.PerfResult, len(perf))
	copy(out, perf)
	sort.Slice(out, func(i, j int) bool {
		if out[i].Kind != out[j].Kind {
			return out[i].Kind < out[j].Kind
		}
		if out[i].Trace != out[j].Trace {
			return out[i].Trace < out[j].Trace
		}
		return out[i].Query < out[j].Query
	})
	return out
}

// shortNames shortens a sample's trace and query paths the way they
// appear in report test names: traces relative to <root>/test, query
// files relative to <root>/test/trace_processor. Metric names pass
// through untouched.
func shortNames(rootDir string, p model.PerfResult) (string, string) {
	testDir := filepath.Join(rootDir, "test")
	traceShort := relTo(testDir, p.Trace)
	queryShort := p.Query
	if p.Kind == model.TestKindQuery {
		queryShort = relTo(filepath.Join(testDir, "trace_processor"), p.Query)
	}
	return traceShort, queryShort
}

func relTo(base, path string) string {
	rel, err := filepath.Rel(base, path)
	if err != nil {
		return path
	}
	return rel
}
