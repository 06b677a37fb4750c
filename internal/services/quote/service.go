// Package quote provides a quote service with automatic fallback
package quote

import (
	"context"
	"errors"
	"time"

	"github.com/bobmcallan/surge/internal/common"
	"github.com/bobmcallan/surge/internal/interfaces"
	"github.com/bobmcallan/surge/internal/models"
)

// StalenessThreshold is the age of a primary quote's trading day beyond which
// the fallback is tried during US market hours.
var StalenessThreshold = 24 * time.Hour

// ErrNotConfigured is returned when no provider has credentials
var ErrNotConfigured = errors.New("quote: no provider configured")

// newYorkLocation handles EST/EDT automatically.
var newYorkLocation = mustLoadLocation("America/New_York")

func mustLoadLocation(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.FixedZone("EST", -5*60*60)
	}
	return loc
}

// Service implements QuoteProvider with a primary provider and an optional fallback.
type Service struct {
	primary  interfaces.QuoteProvider
	fallback interfaces.QuoteProvider
	logger   *common.Logger
	now      func() time.Time // injectable clock for testing
}

// NewService creates a new quote service.
// fallback may be nil, in which case primary errors are returned as-is.
func NewService(primary, fallback interfaces.QuoteProvider, logger *common.Logger) *Service {
	if logger == nil {
		logger = common.NewSilentLogger()
	}
	return &Service{
		primary:  primary,
		fallback: fallback,
		logger:   logger,
		now:      time.Now,
	}
}

// Configured reports whether any provider can serve quotes
func (s *Service) Configured() bool {
	return s.primary.Configured() || (s.fallback != nil && s.fallback.Configured())
}

// GetQuote retrieves a quote from the primary provider, falling back when the
// primary fails or, during US market hours, returns a stale trading day.
// When both fail the primary error is kept in the chain so rate-limit notices
// remain detectable with errors.As.
func (s *Service) GetQuote(ctx context.Context, symbol string) (*models.SymbolQuote, error) {
	var quote *models.SymbolQuote
	primaryErr := ErrNotConfigured
	if s.primary.Configured() {
		quote, primaryErr = s.primary.GetQuote(ctx, symbol)
	}

	if s.fallback == nil || !s.fallback.Configured() {
		return quote, primaryErr
	}

	if primaryErr == nil && quote != nil {
		if !s.isStale(quote.LatestTradingDay) || !isUSMarketHours(s.now()) {
			return quote, nil
		}
	}

	if ctx.Err() != nil {
		if primaryErr != nil {
			return nil, primaryErr
		}
		return quote, nil
	}

	s.logger.Info().
		Str("symbol", symbol).
		Bool("primary_failed", primaryErr != nil).
		Msg("Attempting fallback quote provider")

	fbQuote, fbErr := s.fallback.GetQuote(ctx, symbol)
	if fbErr != nil {
		s.logger.Warn().Err(fbErr).Str("symbol", symbol).Msg("Fallback quote provider failed")
		if primaryErr != nil {
			return nil, errors.Join(primaryErr, fbErr)
		}
		return quote, nil
	}

	s.logger.Info().
		Str("symbol", symbol).
		Str("source", fbQuote.Source).
		Float64("price", fbQuote.Price).
		Msg("Fallback quote succeeded")
	return fbQuote, nil
}

// isStale returns true when the trading day is older than StalenessThreshold.
func (s *Service) isStale(day time.Time) bool {
	if day.IsZero() {
		return true
	}
	return s.now().Sub(day) > StalenessThreshold
}

// isUSMarketHours returns true during regular NYSE/Nasdaq hours:
// 09:30-16:00 New York time, Monday-Friday. Holidays are not considered.
func isUSMarketHours(t time.Time) bool {
	ny := t.In(newYorkLocation)
	weekday := ny.Weekday()
	if weekday == time.Saturday || weekday == time.Sunday {
		return false
	}
	hour, min, _ := ny.Clock()
	minuteOfDay := hour*60 + min
	return minuteOfDay >= 570 && minuteOfDay < 960
}

var _ interfaces.QuoteProvider = (*Service)(nil)
