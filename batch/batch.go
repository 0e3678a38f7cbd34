package batch

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bep/debounce"
	"github.com/jsphweid/midigen/file"
	"go.uber.org/zap"
)

var progressInterval = 500 * time.Millisecond

type Result[T any] struct {
	Job   file.Job
	Value T
	Err   error
}

func (r Result[T]) OK() bool {
	return r.Err == nil
}

// Run processes jobs on a fixed pool of workers. Results come back in
// job order. A failing job is logged and skipped; it never stops the
// others. Once ctx is done no new jobs are started and the remaining
// results carry ctx.Err().
func Run[T any](ctx context.Context, log *zap.Logger, jobs []file.Job, workers int, fn func(context.Context, file.Job) (T, error)) []Result[T] {
	log = log.Named("batch")
	if workers < 1 {
		workers = 1
	}

	results := make([]Result[T], len(jobs))
	for i, job := range jobs {
		results[i].Job = job
	}

	var done atomic.Int64
	// finished is guarded by mu so a late debounced call cannot log once
	// the final line is out
	var mu sync.Mutex
	finished := false
	debounced := debounce.New(progressInterval)
	progress := func() {
		mu.Lock()
		defer mu.Unlock()
		if !finished {
			log.Info("Progress", zap.Int64("done", done.Load()), zap.Int("total", len(jobs)))
		}
	}

	idxs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range idxs {
				results[i] = process(ctx, log, jobs[i], fn)
				done.Add(1)
				debounced(progress)
			}
		}()
	}

	next := 0
feed:
	for ; next < len(jobs); next++ {
		if ctx.Err() != nil {
			break
		}
		select {
		case <-ctx.Done():
			break feed
		case idxs <- next:
		}
	}
	close(idxs)
	wg.Wait()

	for i := next; i < len(jobs); i++ {
		results[i].Err = ctx.Err()
	}

	// replaces any pending progress call with a no-op
	debounced(func() {})
	mu.Lock()
	finished = true
	log.Info("Finished", zap.Int64("done", done.Load()), zap.Int("total", len(jobs)))
	mu.Unlock()
	return results
}

func process[T any](ctx context.Context, log *zap.Logger, job file.Job, fn func(context.Context, file.Job) (T, error)) Result[T] {
	res := Result[T]{Job: job}
	log.Debug("Processing", zap.String("file", job.Input), zap.Uint32("num", job.Num))
	res.Value, res.Err = fn(ctx, job)
	if res.Err != nil {
		log.Warn("Skipping", zap.String("file", job.Input), zap.Error(res.Err))
	}
	return res
}

// Failed returns the results that carry an error.
func Failed[T any](results []Result[T]) []Result[T] {
	var res []Result[T]
	for _, r := range results {
		if !r.OK() {
			res = append(res, r)
		}
	}
	return res
}
