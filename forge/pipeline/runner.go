package pipeline

import (
	"context"
	"errors"
	"sync"

	"github.com/ZanzyTHEbar/tokenizer-forge/forge/common"

	"github.com/sourcegraph/conc"
	"github.com/sourcegraph/conc/panics"
)

// ErrRunnerClosed is returned for requests submitted after Close.
var ErrRunnerClosed = errors.New("runner is closed")

// Outcome is the terminal result of a submitted run.
type Outcome struct {
	Request Request
	Report  *Report
	Err     error
}

type job struct {
	req Request
	out chan Outcome
}

// Runner executes submitted runs one at a time on a single background
// worker, so a caller never blocks on training.
type Runner struct {
	ctx  context.Context
	deps Deps
	jobs chan job
	wg   conc.WaitGroup

	mu     sync.Mutex
	closed bool
}

// NewRunner starts the worker. queue is the number of requests that can
// wait while one is running.
func NewRunner(ctx context.Context, deps Deps, queue int) *Runner {
	if queue < 0 {
		queue = 0
	}
	r := &Runner{ctx: ctx, deps: deps, jobs: make(chan job, queue)}
	r.wg.Go(r.loop)
	return r
}

// Submit queues req. The returned channel receives exactly one Outcome.
func (r *Runner) Submit(req Request) <-chan Outcome {
	out := make(chan Outcome, 1)

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		out <- Outcome{Request: req, Err: ErrRunnerClosed}
		close(out)
		return out
	}
	r.jobs <- job{req: req, out: out}
	return out
}

// Close runs whatever is queued, then stops the worker.
func (r *Runner) Close() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	close(r.jobs)
	r.mu.Unlock()

	r.wg.Wait()
}

func (r *Runner) loop() {
	for j := range r.jobs {
		j.out <- r.run(j.req)
		close(j.out)
	}
}

func (r *Runner) run(req Request) Outcome {
	var (
		rep *Report
		err error
		pc  panics.Catcher
	)
	pc.Try(func() { rep, err = Run(r.ctx, req, r.deps) })
	if rec := pc.Recovered(); rec != nil {
		r.deps.Logger.Error().Interface("panic", rec.Value).Msg("run panicked")
		return Outcome{Request: req, Err: common.TrainingFailed(rec.AsError())}
	}
	return Outcome{Request: req, Report: rep, Err: err}
}
