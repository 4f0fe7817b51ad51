package runner

// pool.go contains the worker pool that fans tests out across
// goroutines. Completions reach the aggregator in completion order;
// nothing downstream may depend on submission order.

import (
	"context"
	"runtime"
	"sync"

	"github.com/tpdiff/tpdiff/model"
)

// Pool runs tests concurrently with a fixed number of workers.
type Pool struct {
	// Workers is the goroutine count; zero means one per CPU
	Workers int
}

type poolResult struct {
	outcome model.Outcome
	err     error
}

// Run executes run for every test and calls handle once per completed
// test. The first internal error cancels the remaining work and is
// returned once in-flight tests have drained.
func (p *Pool) Run(ctx context.Context, tests []model.Test, run func(context.Context, model.Test) (model.Outcome, error), handle func(model.Outcome)) error {
	workers := p.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	buffer := workers * 2
	if buffer > 100 {
		buffer = 100
	}
	workChan := make(chan model.Test, buffer)
	resultChan := make(chan poolResult, buffer)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for test := range workChan {
				if ctx.Err() != nil {
					continue
				}
				outcome, err := run(ctx, test)
				resultChan <- poolResult{outcome: outcome, err: err}
			}
		}()
	}

	go func() {
		defer close(workChan)
		for _, test := range tests {
			select {
			case workChan <- test:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(resultChan)
	}()

	var firstErr error
	for res := range resultChan {
		switch {
		case res.err != nil:
			if firstErr == nil {
				firstErr = res.err
				cancel()
			}
		case firstErr == nil:
			handle(res.outcome)
		}
	}
	return firstErr
}
