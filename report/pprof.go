package report

// pprof.go contains the pprof export of per-test timings. Each test
// becomes one sample with a synthetic stack (query leaf, then trace,
// then kind), so the standard pprof views group timings the way the
// suite is organized.

import (
	"fmt"
	"os"
	"time"

	"github.com/google/pprof/profile"

	"github.com/tpdiff/tpdiff/model"
)

type pprofBuilder struct {
	profile   *profile.Profile
	functions map[string]*profile.Function
	locations map[string]*profile.Location
}

func newPprofBuilder() *pprofBuilder {
	return &pprofBuilder{
		profile: &profile.Profile{
			TimeNanos: time.Now().UnixNano(),
			SampleType: []*profile.ValueType{
				{Type: "ingest_time", Unit: "nanoseconds"},
				{Type: "real_time", Unit: "nanoseconds"},
			},
		},
		functions: make(map[string]*profile.Function),
		locations: make(map[string]*profile.Location),
	}
}

func (b *pprofBuilder) getOrCreateFunction(name string) *profile.Function {
	if fn, exists := b.functions[name]; exists {
		return fn
	}
	fn := &profile.Function{
		ID:   uint64(len(b.profile.Function) + 1),
		Name: name,
	}
	b.functions[name] = fn
	b.profile.Function = append(b.profile.Function, fn)
	return fn
}

func (b *pprofBuilder) getOrCreateLocation(name string) *profile.Location {
	if loc, exists := b.locations[name]; exists {
		return loc
	}
	loc := &profile.Location{
		ID: uint64(len(b.profile.Location) + 1),
		Line: []profile.Line{
			{Function: b.getOrCreateFunction(name)},
		},
	}
	b.locations[name] = loc
	b.profile.Location = append(b.profile.Location, loc)
	return loc
}

func (b *pprofBuilder) addSample(rootDir string, p model.PerfResult) {
	traceShort, queryShort := shortNames(rootDir, p)
	b.profile.Sample = append(b.profile.Sample, &profile.Sample{
		Location: []*profile.Location{
			b.getOrCreateLocation(queryShort),
			b.getOrCreateLocation(traceShort),
			b.getOrCreateLocation(string(p.Kind)),
		},
		Value: []int64{p.IngestTimeNs, p.RealTimeNs},
	})
}

// WritePprofFile writes per-test ingest and query wall times as a
// gzip-compressed pprof profile.
func WritePprofFile(path, rootDir string, perf []model.PerfResult) error {
	b := newPprofBuilder()
	for _, p := range sortedPerf(perf) {
		b.addSample(rootDir, p)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create pprof file: %w", err)
	}
	defer f.Close()
	if err := b.profile.Write(f); err != nil {
		return fmt.Errorf("failed to write pprof file: %w", err)
	}
	return nil
}
