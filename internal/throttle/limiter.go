// Package throttle paces calls to rate-limited upstream APIs and runs
// per-symbol work through a bounded worker queue.
package throttle

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Limiter is a token bucket with one token refilled every interval, plus an
// extra pause after every batchSize calls. The pause adds to the interval.
// Waiters are served one at a time so the batch accounting stays exact.
type Limiter struct {
	bucket     *rate.Limiter
	interval   time.Duration
	batchSize  int
	batchPause time.Duration

	waitMu sync.Mutex // serialises waiters

	mu    sync.Mutex // guards calls and last
	calls int
	last  time.Time
	now   func() time.Time
}

// LimiterOption configures a Limiter
type LimiterOption func(*Limiter)

// WithBatchPause holds the call after every multiple of size calls for an
// extra pause on top of the regular interval
func WithBatchPause(size int, pause time.Duration) LimiterOption {
	return func(l *Limiter) {
		l.batchSize = size
		l.batchPause = pause
	}
}

// NewLimiter creates a limiter allowing one call per interval.
// A non-positive interval disables spacing.
func NewLimiter(interval time.Duration, opts ...LimiterOption) *Limiter {
	limit := rate.Inf
	if interval > 0 {
		limit = rate.Every(interval)
	}
	l := &Limiter{
		bucket:   rate.NewLimiter(limit, 1),
		interval: interval,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// PerMinute creates a limiter allowing n calls per minute
func PerMinute(n int, opts ...LimiterOption) *Limiter {
	if n <= 0 {
		return NewLimiter(0, opts...)
	}
	return NewLimiter(time.Minute/time.Duration(n), opts...)
}

// Wait blocks until the next call may proceed or ctx is done
func (l *Limiter) Wait(ctx context.Context) error {
	l.waitMu.Lock()
	defer l.waitMu.Unlock()

	l.mu.Lock()
	calls, last := l.calls, l.last
	l.mu.Unlock()

	if l.batchSize > 0 && l.batchPause > 0 && calls > 0 && calls%l.batchSize == 0 {
		resume := last.Add(l.interval + l.batchPause)
		if err := sleep(ctx, resume.Sub(l.now())); err != nil {
			return fmt.Errorf("batch pause: %w", err)
		}
	}

	if err := l.bucket.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}

	l.mu.Lock()
	l.calls++
	l.last = l.now()
	l.mu.Unlock()
	return nil
}

// Interval returns the minimum spacing between calls
func (l *Limiter) Interval() time.Duration {
	return l.interval
}

// Calls returns the number of calls admitted so far
func (l *Limiter) Calls() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.calls
}

// LastCall returns when the most recent call was admitted (zero if none)
func (l *Limiter) LastCall() time.Time {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.last
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
