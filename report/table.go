package report

// table.go contains the --slowest table listing the tests with the
// largest query wall time.

import (
	"fmt"
	"io"
	"sort"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/tpdiff/tpdiff/model"
)

// WriteSlowest renders the n slowest tests by query wall time as an
// ASCII table. Nothing is written when n is zero or no samples were
// collected.
func WriteSlowest(w io.Writer, rootDir string, perf []model.PerfResult, n int) {
	if n <= 0 || len(perf) == 0 {
		return
	}

	slowest := make([]model.PerfResult, len(perf))
	copy(slowest, perf)
	sort.SliceStable(slowest, func(i, j int) bool {
		return slowest[i].RealTimeNs > slowest[j].RealTimeNs
	})
	if n < len(slowest) {
		slowest = slowest[:n]
	}

	var ingestNs, realNs int64
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetTitle("Slowest tests")
	t.AppendHeader(table.Row{"Type", "Trace", "Query/Metric", "Ingest (ms)", "Query (ms)"})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Name: "Ingest (ms)", Align: text.AlignRight},
		{Name: "Query (ms)", Align: text.AlignRight},
	})
	for _, p := range slowest {
		traceShort, queryShort := shortNames(rootDir, p)
		t.AppendRow(table.Row{
			string(p.Kind),
			traceShort,
			queryShort,
			formatMs(p.IngestTimeNs),
			formatMs(p.RealTimeNs),
		})
		ingestNs += p.IngestTimeNs
		realNs += p.RealTimeNs
	}
	t.AppendFooter(table.Row{"", "", "Total", formatMs(ingestNs), formatMs(realNs)})
	t.Render()
}

func formatMs(ns int64) string {
	return fmt.Sprintf("%.2f", float64(ns)/1e6)
}
