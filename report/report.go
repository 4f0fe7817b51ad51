package report

// report.go contains the aggregator that turns per-test outcomes into
// live progress output and the end-of-run summary.

import (
	"fmt"
	"io"
	"time"

	"github.com/tpdiff/tpdiff/model"
)

// Aggregator consumes test outcomes in completion order. Rendered
// blocks are forwarded to the sink as they arrive; counters and perf
// samples accumulate for the summary and the reports. Not safe for
// concurrent use; the pool serializes outcome delivery.
type Aggregator struct {
	sink    io.Writer
	palette Palette
	rebase  bool

	total    int
	passed   int
	failed   int
	rebased  int
	failures []string
	perf     []model.PerfResult
}

func NewAggregator(sink io.Writer, palette Palette, rebase bool) *Aggregator {
	return &Aggregator{sink: sink, palette: palette, rebase: rebase}
}

// Banner announces the run size before the first test starts.
func (a *Aggregator) Banner(total int) {
	a.total = total
	fmt.Fprintf(a.sink, "[==========] Running %d tests.\n", total)
}

// Handle records one completed test. Output follows completion order;
// the summary and reports are independent of it. A rebased test counts
// as neither passed nor failed: the golden was corrected instead.
func (a *Aggregator) Handle(out model.Outcome) {
	io.WriteString(a.sink, out.Rendered)
	switch {
	case out.Rebased:
		a.rebased++
	case out.Passed:
		a.passed++
		if out.Perf != nil {
			a.perf = append(a.perf, *out.Perf)
		}
	default:
		a.failed++
		a.failures = append(a.failures, out.Name)
	}
}

// Summary writes the end-of-run block.
func (a *Aggregator) Summary(elapsed time.Duration) {
	fmt.Fprintf(a.sink, "[==========] %d tests ran. (%d ms total)\n", a.total, elapsed.Milliseconds())
	if a.failed > 0 {
		fmt.Fprintf(a.sink, "%s[  PASSED  ]%s %d tests.\n", a.palette.Red, a.palette.Reset, a.total-a.failed)
	} else {
		fmt.Fprintf(a.sink, "%s[  PASSED  ]%s %d tests.\n", a.palette.Green, a.palette.Reset, a.total)
	}
	if a.rebase {
		fmt.Fprintf(a.sink, "\n%d tests rebased.\n", a.rebased)
	}
}

// PrintFailures lists failed test names, in completion order, after the
// summary block.
func (a *Aggregator) PrintFailures() {
	for _, name := range a.failures {
		fmt.Fprintf(a.sink, "[  FAILED  ] %s\n", name)
	}
}

func (a *Aggregator) Total() int   { return a.total }
func (a *Aggregator) Passed() int  { return a.passed }
func (a *Aggregator) Failed() int  { return a.failed }
func (a *Aggregator) Rebased() int { return a.rebased }

func (a *Aggregator) Failures() []string { return a.failures }

// Perf returns the collected samples in completion order. Reports sort
// before rendering.
func (a *Aggregator) Perf() []model.PerfResult { return a.perf }
