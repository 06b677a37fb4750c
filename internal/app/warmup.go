package app

import (
	"context"
	"os"
	"time"

	"github.com/bobmcallan/surge/internal/common"
	"github.com/bobmcallan/surge/internal/interfaces"
	"github.com/bobmcallan/surge/internal/models"
)

// warmup runs one screen and one news fetch on startup so the first request is fast.
func warmup(ctx context.Context, screener interfaces.ScreenerService, news interfaces.NewsService, logger *common.Logger) {
	if os.Getenv("SURGE_WARMUP") == "off" {
		logger.Info().Msg("Warmup: disabled via SURGE_WARMUP=off")
		return
	}

	start := time.Now()
	logger.Info().Msg("Warmup: starting")

	if feed, err := news.GetNews(ctx, models.NewsQuery{}); err != nil {
		logger.Warn().Err(err).Msg("Warmup: news fetch failed")
	} else {
		logger.Info().Str("source", feed.Source).Int("items", len(feed.Items)).Msg("Warmup: news ready")
	}

	result, err := screener.Screen(ctx, models.ScreenRequest{})
	if err != nil {
		logger.Warn().Err(err).Msg("Warmup: screen failed")
		return
	}

	logger.Info().
		Str("source", result.Source).
		Int("matches", len(result.Stocks)).
		Dur("elapsed", time.Since(start)).
		Msg("Warmup: complete")
}
