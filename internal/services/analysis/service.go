// Package analysis builds rule-based analysis cards for single symbols
package analysis

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/bobmcallan/surge/internal/common"
	"github.com/bobmcallan/surge/internal/interfaces"
	"github.com/bobmcallan/surge/internal/models"
	"github.com/bobmcallan/surge/internal/sample"
	"github.com/bobmcallan/surge/internal/universe"
)

// ErrInvalidSymbol is returned for symbols that cannot be a ticker
var ErrInvalidSymbol = errors.New("invalid symbol")

var symbolPattern = regexp.MustCompile(`^[A-Z0-9][A-Z0-9.\-]{0,9}$`)

const maxCatalysts = 3

// Service implements AnalysisService
type Service struct {
	client   interfaces.MarketDataClient
	quotes   interfaces.QuoteProvider
	universe *universe.Universe
	logger   *common.Logger
	now      func() time.Time
}

// NewService creates an analysis service. quotes may be nil to use client for quotes.
func NewService(client interfaces.MarketDataClient, quotes interfaces.QuoteProvider, u *universe.Universe, logger *common.Logger) *Service {
	if quotes == nil {
		quotes = client
	}
	if logger == nil {
		logger = common.NewSilentLogger()
	}
	return &Service{
		client:   client,
		quotes:   quotes,
		universe: u,
		logger:   logger,
		now:      time.Now,
	}
}

// NormalizeSymbol upper-cases and validates a ticker symbol
func NormalizeSymbol(symbol string) (string, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if !symbolPattern.MatchString(symbol) {
		return "", fmt.Errorf("%w: %q", ErrInvalidSymbol, symbol)
	}
	return symbol, nil
}

// Analyze builds the analysis card for a symbol. The quote is required;
// overview, indicators and headlines are used when available. When no quote
// can be fetched the sample card is returned with a notice.
func (s *Service) Analyze(ctx context.Context, symbol string) (*models.Analysis, error) {
	symbol, err := NormalizeSymbol(symbol)
	if err != nil {
		return nil, err
	}

	if !s.quotes.Configured() {
		return s.sampleCard(symbol, "Market data API key not configured; showing sample analysis"), nil
	}

	quote, err := s.quotes.GetQuote(ctx, symbol)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		s.logger.Warn().Err(err).Str("symbol", symbol).Msg("Quote unavailable for analysis")
		return s.sampleCard(symbol, fmt.Sprintf("Quote unavailable (%v); showing sample analysis", err)), nil
	}

	in := Inputs{Quote: *quote}
	if s.universe != nil {
		in.Profile, _ = s.universe.Profile(symbol)
	}

	if s.client.Configured() {
		if ov, err := s.client.GetOverview(ctx, symbol); err == nil {
			in.Overview = ov
		} else {
			s.logger.Debug().Err(err).Str("symbol", symbol).Msg("Overview unavailable")
		}
		if rsi, err := s.client.GetRSI(ctx, symbol, 0); err == nil {
			in.RSI = rsi
		} else {
			s.logger.Debug().Err(err).Str("symbol", symbol).Msg("RSI unavailable")
		}
		if macd, err := s.client.GetMACD(ctx, symbol); err == nil {
			in.MACD = macd
		} else {
			s.logger.Debug().Err(err).Str("symbol", symbol).Msg("MACD unavailable")
		}
		if items, err := s.client.GetNews(ctx, models.NewsQuery{Symbols: []string{symbol}, Limit: maxCatalysts}); err == nil {
			for _, item := range items {
				in.Headlines = append(in.Headlines, item.Title)
			}
		} else {
			s.logger.Debug().Err(err).Str("symbol", symbol).Msg("Headlines unavailable")
		}
	}

	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	card := Build(in)
	card.Timestamp = s.now().UTC()

	s.logger.Info().
		Str("symbol", symbol).
		Str("action", string(card.Recommendation.Action)).
		Int("confidence", card.Recommendation.Confidence).
		Msg("Analysis built")
	return card, nil
}

func (s *Service) sampleCard(symbol, notice string) *models.Analysis {
	card := sample.Analysis(symbol, s.now())
	card.Notice = notice
	return card
}

var _ interfaces.AnalysisService = (*Service)(nil)
