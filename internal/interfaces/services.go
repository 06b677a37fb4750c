package interfaces

import (
	"context"

	"github.com/bobmcallan/surge/internal/models"
)

// ScreenerService runs momentum screens over a symbol universe
type ScreenerService interface {
	// Screen runs a screen. Concurrent calls share one in-flight run.
	Screen(ctx context.Context, req models.ScreenRequest) (*models.ScreenResult, error)

	// Latest returns the most recent completed result, or nil
	Latest() *models.ScreenResult

	// OnComplete registers fn to be called with every completed result
	OnComplete(fn func(*models.ScreenResult))

	// RenderScoreChart renders the AI scores of a result as a PNG bar chart
	RenderScoreChart(result *models.ScreenResult) ([]byte, error)
}

// NewsService produces classified market news
type NewsService interface {
	// GetNews returns news items for the query, newest first
	GetNews(ctx context.Context, query models.NewsQuery) (*models.NewsFeed, error)

	// Latest returns the most recently fetched default feed, or nil
	Latest() *models.NewsFeed
}

// AnalysisService builds per-symbol analysis cards
type AnalysisService interface {
	// Analyze builds an analysis for one symbol
	Analyze(ctx context.Context, symbol string) (*models.Analysis, error)
}
