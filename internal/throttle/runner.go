package throttle

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

// Runner fans work out to at most Concurrency goroutines while pacing task
// starts so that no more than Concurrency tasks begin per BatchDelay. The two
// knobs are independent: concurrency bounds in-flight calls, the limiter bounds
// the request rate seen by the upstream.
type Runner struct {
	concurrency int
	limiter     *rate.Limiter
}

func NewRunner(concurrency int, batchDelay time.Duration) *Runner {
	if concurrency < 1 {
		concurrency = 1
	}
	limit := rate.Inf
	if batchDelay > 0 {
		limit = rate.Every(batchDelay / time.Duration(concurrency))
	}
	return &Runner{
		concurrency: concurrency,
		limiter:     rate.NewLimiter(limit, concurrency),
	}
}

// Run calls task for every index in [0, n) and returns the error of each call
// at the same index. A failing task never stops its siblings. When ctx ends
// before a task could start, that task's slot holds the context error.
func (r *Runner) Run(ctx context.Context, n int, task func(ctx context.Context, i int) error) []error {
	errs := make([]error, n)

	var g errgroup.Group
	g.SetLimit(r.concurrency)

	for i := range n {
		if err := r.limiter.Wait(ctx); err != nil {
			for j := i; j < n; j++ {
				errs[j] = err
			}
			break
		}
		g.Go(func() error {
			errs[i] = task(ctx, i)
			return nil
		})
	}

	// tasks report through errs, never through the group
	_ = g.Wait()
	return errs
}
