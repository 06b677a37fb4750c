// Package alpaca provides a fallback quote provider backed by Alpaca market data snapshots
package alpaca

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"
	"golang.org/x/time/rate"

	"github.com/bobmcallan/surge/internal/common"
	"github.com/bobmcallan/surge/internal/interfaces"
	"github.com/bobmcallan/surge/internal/models"
)

const (
	DefaultFeed      = "iex"
	DefaultRateLimit = 3 // requests per second, well under the free plan's 200/min
)

// ErrNoData is returned when a snapshot carries no usable price
var ErrNoData = errors.New("alpaca: no snapshot data")

var _ interfaces.QuoteProvider = (*Client)(nil)

// snapshotGetter is the subset of the market data client used here
type snapshotGetter interface {
	GetSnapshot(symbol string, req marketdata.GetSnapshotRequest) (*marketdata.Snapshot, error)
}

// Client implements QuoteProvider using Alpaca snapshots
type Client struct {
	data    snapshotGetter
	feed    string
	logger  *common.Logger
	limiter *rate.Limiter
}

// ClientOption configures the client
type ClientOption func(*Client)

// WithFeed selects the data feed ("iex" or "sip")
func WithFeed(feed string) ClientOption {
	return func(c *Client) {
		if feed != "" {
			c.feed = feed
		}
	}
}

// WithLogger sets the logger
func WithLogger(logger *common.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithRateLimit sets the rate limit
func WithRateLimit(requestsPerSecond int) ClientOption {
	return func(c *Client) {
		c.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), requestsPerSecond)
	}
}

// NewClient creates a client from configuration. BaseURL may be empty for the
// production data endpoint.
func NewClient(cfg common.AlpacaConfig, opts ...ClientOption) *Client {
	mdOpts := marketdata.ClientOpts{
		APIKey:    cfg.APIKey,
		APISecret: cfg.APISecret,
	}
	if cfg.BaseURL != "" {
		mdOpts.BaseURL = cfg.BaseURL
	}
	return newClient(marketdata.NewClient(mdOpts), append([]ClientOption{WithFeed(cfg.Feed)}, opts...)...)
}

func newClient(data snapshotGetter, opts ...ClientOption) *Client {
	c := &Client{
		data:    data,
		feed:    DefaultFeed,
		logger:  common.NewSilentLogger(),
		limiter: rate.NewLimiter(rate.Limit(DefaultRateLimit), DefaultRateLimit),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// GetQuote retrieves the latest snapshot and converts it to a quote
func (c *Client) GetQuote(ctx context.Context, symbol string) (*models.SymbolQuote, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	symbol = strings.ToUpper(symbol)
	c.logger.Debug().Str("symbol", symbol).Str("feed", c.feed).Msg("Alpaca snapshot request")

	snap, err := c.data.GetSnapshot(symbol, marketdata.GetSnapshotRequest{Feed: c.feed})
	if err != nil {
		return nil, fmt.Errorf("alpaca snapshot %s: %w", symbol, err)
	}
	return quoteFromSnapshot(symbol, snap)
}

// quoteFromSnapshot derives a quote from today's and the previous daily bar.
// The latest trade price is preferred over the daily close when present.
func quoteFromSnapshot(symbol string, snap *marketdata.Snapshot) (*models.SymbolQuote, error) {
	if snap == nil || snap.DailyBar == nil {
		return nil, fmt.Errorf("%w: %s", ErrNoData, symbol)
	}

	day := snap.DailyBar
	price := day.Close
	if snap.LatestTrade != nil && snap.LatestTrade.Price > 0 {
		price = snap.LatestTrade.Price
	}
	if price <= 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoData, symbol)
	}

	q := &models.SymbolQuote{
		Symbol:           symbol,
		Price:            price,
		Volume:           int64(day.Volume),
		Open:             day.Open,
		High:             day.High,
		Low:              day.Low,
		LatestTradingDay: day.Timestamp,
		Source:           "alpaca",
	}
	if prev := snap.PrevDailyBar; prev != nil && prev.Close > 0 {
		q.PreviousClose = prev.Close
		q.Change = price - prev.Close
		q.ChangePercent = q.Change / prev.Close * 100
	}
	return q, nil
}

// Configured reports true; credentials are checked by the API on first use
func (c *Client) Configured() bool {
	return true
}
