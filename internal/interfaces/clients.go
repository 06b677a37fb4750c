// Package interfaces defines service contracts for Surge
package interfaces

import (
	"context"

	"github.com/bobmcallan/surge/internal/models"
)

// QuoteProvider returns a current quote for one symbol
type QuoteProvider interface {
	// GetQuote retrieves the latest quote snapshot
	GetQuote(ctx context.Context, symbol string) (*models.SymbolQuote, error)

	// Configured reports whether the provider has the credentials it needs
	Configured() bool
}

// MarketDataClient provides access to the Alpha Vantage API
type MarketDataClient interface {
	QuoteProvider

	// GetOverview retrieves company fundamentals
	GetOverview(ctx context.Context, symbol string) (*models.CompanyOverview, error)

	// GetRSI retrieves the latest daily RSI value
	GetRSI(ctx context.Context, symbol string, period int) (*models.IndicatorValue, error)

	// GetMACD retrieves the latest daily MACD value
	GetMACD(ctx context.Context, symbol string) (*models.MACDValue, error)

	// GetNews retrieves raw news items with sentiment scores
	GetNews(ctx context.Context, query models.NewsQuery) ([]models.RawNewsItem, error)
}
