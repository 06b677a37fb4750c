package throttle

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"

	"github.com/bobmcallan/surge/internal/common"
)

// Queue runs keyed tasks on a bounded pool of workers.
// It knows nothing about what the tasks do; pacing is the job of the Limiter
// that guards the upstream client, so adding workers never exceeds the quota.
type Queue struct {
	workers int
	logger  *common.Logger
}

// NewQueue creates a queue with the given worker count (minimum 1)
func NewQueue(workers int, logger *common.Logger) *Queue {
	if workers < 1 {
		workers = 1
	}
	if logger == nil {
		logger = common.NewSilentLogger()
	}
	return &Queue{workers: workers, logger: logger}
}

// Workers returns the size of the worker pool
func (q *Queue) Workers() int {
	return q.workers
}

// Outcome is the result of one task, reported at the index of its key
type Outcome[T any] struct {
	Key   string
	Value T
	Err   error
}

// Run executes fn once per key and returns outcomes in key order.
// A task error only affects its own outcome. When ctx is cancelled, tasks not
// yet started are skipped with ctx's error and Run returns that error too.
// A panicking task is recovered and reported as its outcome's error.
func Run[T any](ctx context.Context, q *Queue, keys []string, fn func(ctx context.Context, key string) (T, error)) ([]Outcome[T], error) {
	outcomes := make([]Outcome[T], len(keys))
	for i, k := range keys {
		outcomes[i].Key = k
	}

	jobs := make(chan int)
	var wg sync.WaitGroup

	workers := q.workers
	if workers > len(keys) {
		workers = len(keys)
	}
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				if err := ctx.Err(); err != nil {
					outcomes[i].Err = err
					continue
				}
				outcomes[i].Value, outcomes[i].Err = runTask(ctx, q, keys[i], fn)
			}
		}()
	}

	next := 0
dispatch:
	for ; next < len(keys); next++ {
		select {
		case <-ctx.Done():
			break dispatch
		case jobs <- next:
		}
	}
	close(jobs)
	wg.Wait()

	if err := ctx.Err(); err != nil {
		for i := next; i < len(keys); i++ {
			outcomes[i].Err = err
		}
		return outcomes, err
	}
	return outcomes, nil
}

func runTask[T any](ctx context.Context, q *Queue, key string, fn func(ctx context.Context, key string) (T, error)) (value T, err error) {
	defer func() {
		if r := recover(); r != nil {
			q.logger.Error().
				Str("key", key).
				Str("panic", fmt.Sprintf("%v", r)).
				Str("stack", string(debug.Stack())).
				Msg("Recovered from panic in queued task")
			err = fmt.Errorf("task %s panicked: %v", key, r)
		}
	}()
	return fn(ctx, key)
}
