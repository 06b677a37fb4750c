package app

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/bobmcallan/surge/internal/common"
	"github.com/bobmcallan/surge/internal/interfaces"
	"github.com/bobmcallan/surge/internal/models"
)

// runEvery calls fn on a fixed interval until ctx is done.
// A tick that fires while fn is still running is dropped by the ticker.
func runEvery(ctx context.Context, interval time.Duration, name string, logger *common.Logger, fn func(ctx context.Context)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	logger.Info().Str("task", name).Dur("interval", interval).Msg("Scheduler: started")

	for {
		select {
		case <-ctx.Done():
			logger.Info().Str("task", name).Msg("Scheduler: stopped")
			return
		case <-ticker.C:
			safeRun(ctx, name, logger, fn)
		}
	}
}

func safeRun(ctx context.Context, name string, logger *common.Logger, fn func(ctx context.Context)) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error().
				Str("task", name).
				Str("panic", fmt.Sprintf("%v", r)).
				Str("stack", string(debug.Stack())).
				Msg("Scheduler: recovered from panic")
		}
	}()
	fn(ctx)
}

// refresher holds the periodic jobs
type refresher struct {
	screener interfaces.ScreenerService
	newsSvc  interfaces.NewsService
	logger   *common.Logger
}

func newRefresher(screener interfaces.ScreenerService, news interfaces.NewsService, logger *common.Logger) *refresher {
	return &refresher{screener: screener, newsSvc: news, logger: logger}
}

func (r *refresher) screen(ctx context.Context) {
	start := time.Now()
	result, err := r.screener.Screen(ctx, models.ScreenRequest{})
	if err != nil {
		if ctx.Err() == nil {
			r.logger.Warn().Err(err).Msg("Screen refresh: failed")
		}
		return
	}

	r.logger.Info().
		Str("run_id", result.RunID).
		Str("source", result.Source).
		Int("screened", result.Screened).
		Int("matches", len(result.Stocks)).
		Int("failed", len(result.Failed)).
		Dur("elapsed", time.Since(start)).
		Msg("Screen refresh: complete")
}

func (r *refresher) news(ctx context.Context) {
	start := time.Now()
	feed, err := r.newsSvc.GetNews(ctx, models.NewsQuery{})
	if err != nil {
		if ctx.Err() == nil {
			r.logger.Warn().Err(err).Msg("News refresh: failed")
		}
		return
	}

	r.logger.Info().
		Str("source", feed.Source).
		Int("items", len(feed.Items)).
		Dur("elapsed", time.Since(start)).
		Msg("News refresh: complete")
}
