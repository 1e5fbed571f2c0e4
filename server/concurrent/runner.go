package concurrent

import (
	"context"
	"fmt"
	"sync"

	"github.com/gofiber/fiber/v2/log"
)

// WorkerFunc is the unit of work executed for one item. Workers report
// progress on messages, completed values on results, and failures on
// errors; they never share mutable state directly.
type WorkerFunc[T any, R any] func(ctx context.Context, item T, messages chan<- string, results chan<- R, errors chan<- error)

// RunnerConfig configures a concurrent runner.
type RunnerConfig struct {
	MaxConcurrency int    // 0 means unlimited
	LogPrefix      string // prefix for progress log lines
}

// Runner dispatches independent items across a bounded set of workers
// and merges their results through channels.
type Runner[T any, R any] struct {
	config RunnerConfig
}

// NewRunner creates a runner with the given configuration.
func NewRunner[T any, R any](config RunnerConfig) *Runner[T, R] {
	if config.LogPrefix == "" {
		config.LogPrefix = "Runner"
	}
	return &Runner[T, R]{config: config}
}

// RunResult aggregates a run's results and errors.
type RunResult[R any] struct {
	Results []R
	Errors  []error
}

// Run executes the worker for every item and blocks until all workers
// finish. Each item is handed to exactly one worker. When ctx is
// cancelled, items not yet dispatched are recorded as errors and
// in-flight workers are left to observe ctx themselves.
func (r *Runner[T, R]) Run(ctx context.Context, items []T, worker WorkerFunc[T, R]) RunResult[R] {
	if len(items) == 0 {
		return RunResult[R]{Results: []R{}, Errors: []error{}}
	}

	var collectorsWG sync.WaitGroup

	messages := make(chan string)
	collectorsWG.Add(1)
	go func() {
		defer collectorsWG.Done()
		for message := range messages {
			log.Info(fmt.Sprintf("%s: %s", r.config.LogPrefix, message))
		}
	}()

	results := make(chan R)
	var resultsList []R
	collectorsWG.Add(1)
	go func() {
		defer collectorsWG.Done()
		for result := range results {
			resultsList = append(resultsList, result)
		}
	}()

	errs := make(chan error)
	var errorsList []error
	collectorsWG.Add(1)
	go func() {
		defer collectorsWG.Done()
		for err := range errs {
			errorsList = append(errorsList, err)
		}
	}()

	var workersWG sync.WaitGroup

	var throttle chan struct{}
	if r.config.MaxConcurrency > 0 {
		throttle = make(chan struct{}, r.config.MaxConcurrency)
	}

	for _, item := range items {
		if ctx.Err() != nil {
			errs <- fmt.Errorf("run cancelled before dispatch: %w", ctx.Err())
			break
		}

		workersWG.Add(1)
		if throttle != nil {
			throttle <- struct{}{}
		}

		go func(item T) {
			defer workersWG.Done()
			if throttle != nil {
				defer func() { <-throttle }()
			}
			worker(ctx, item, messages, results, errs)
		}(item)
	}

	workersWG.Wait()

	close(messages)
	close(results)
	close(errs)
	collectorsWG.Wait()

	return RunResult[R]{Results: resultsList, Errors: errorsList}
}
