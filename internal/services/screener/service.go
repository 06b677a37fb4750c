// Package screener runs momentum screens over the symbol universe
package screener

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/bobmcallan/surge/internal/common"
	"github.com/bobmcallan/surge/internal/interfaces"
	"github.com/bobmcallan/surge/internal/models"
	"github.com/bobmcallan/surge/internal/sample"
	"github.com/bobmcallan/surge/internal/signals"
	"github.com/bobmcallan/surge/internal/throttle"
	"github.com/bobmcallan/surge/internal/universe"
)

// OverviewProvider supplies company fundamentals for enrichment
type OverviewProvider interface {
	GetOverview(ctx context.Context, symbol string) (*models.CompanyOverview, error)
}

// Config holds the defaults applied to requests that do not override them
type Config struct {
	Symbols       []string // subset of the universe; empty means all of it
	Criteria      models.Criteria
	FetchOverview bool
	RunTimeout    time.Duration // limit on one run; defaults to 15 minutes
}

// Service implements ScreenerService
type Service struct {
	quotes    interfaces.QuoteProvider
	overviews OverviewProvider
	universe  *universe.Universe
	queue     *throttle.Queue
	config    Config
	logger    *common.Logger
	now       func() time.Time

	flight singleflight.Group
	runMu  sync.Mutex // distinct runs execute one after another

	mu        sync.RWMutex
	latest    *models.ScreenResult
	listeners []func(*models.ScreenResult)
}

// NewService creates a screener. overviews may be nil.
func NewService(quotes interfaces.QuoteProvider, overviews OverviewProvider, u *universe.Universe, queue *throttle.Queue, config Config, logger *common.Logger) *Service {
	if logger == nil {
		logger = common.NewSilentLogger()
	}
	if queue == nil {
		queue = throttle.NewQueue(1, logger)
	}
	config.Criteria = signals.NormalizeCriteria(config.Criteria, models.DefaultCriteria())
	config.Symbols = universe.Normalize(config.Symbols)
	if config.RunTimeout <= 0 {
		config.RunTimeout = 15 * time.Minute
	}
	return &Service{
		quotes:    quotes,
		overviews: overviews,
		universe:  u,
		queue:     queue,
		config:    config,
		logger:    logger,
		now:       time.Now,
	}
}

// OnComplete registers fn to be called with every completed result
func (s *Service) OnComplete(fn func(*models.ScreenResult)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

// Latest returns the most recent completed result, or nil
func (s *Service) Latest() *models.ScreenResult {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.latest
}

// DefaultCriteria returns the criteria applied when a request has none
func (s *Service) DefaultCriteria() models.Criteria {
	return s.config.Criteria
}

// Screen runs a screen. Callers with the same symbols and criteria while a run
// is in flight share its result instead of starting another. The run outlives
// the caller that started it: a cancelled ctx only stops that caller waiting.
func (s *Service) Screen(ctx context.Context, req models.ScreenRequest) (*models.ScreenResult, error) {
	symbols := s.resolveSymbols(req.Symbols)
	criteria := s.config.Criteria
	if req.Criteria != nil {
		criteria = signals.NormalizeCriteria(*req.Criteria, s.config.Criteria)
	}

	key := fmt.Sprintf("%s|%+v", strings.Join(symbols, ","), criteria)
	ch := s.flight.DoChan(key, func() (interface{}, error) {
		runCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.config.RunTimeout)
		defer cancel()
		return s.run(runCtx, symbols, criteria)
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		if res.Shared {
			s.logger.Debug().Str("key", key).Msg("Joined in-flight screening run")
		}
		return res.Val.(*models.ScreenResult), nil
	}
}

func (s *Service) resolveSymbols(requested []string) []string {
	if symbols := universe.Normalize(requested); len(symbols) > 0 {
		return symbols
	}
	if len(s.config.Symbols) > 0 {
		return s.config.Symbols
	}
	return s.universe.Symbols()
}

func (s *Service) run(ctx context.Context, symbols []string, criteria models.Criteria) (*models.ScreenResult, error) {
	s.runMu.Lock()
	defer s.runMu.Unlock()

	result := &models.ScreenResult{
		RunID:     uuid.NewString(),
		Criteria:  criteria,
		StartedAt: s.now().UTC(),
	}

	s.logger.Info().
		Str("run_id", result.RunID).
		Int("symbols", len(symbols)).
		Msg("Screening run started")

	if !s.quotes.Configured() {
		s.useSample(result, "Market data API key not configured; showing sample data")
		return s.complete(result), nil
	}

	outcomes, err := throttle.Run(ctx, s.queue, symbols, s.screenSymbol)
	if err != nil {
		s.logger.Warn().Err(err).Str("run_id", result.RunID).Msg("Screening run aborted")
		return nil, fmt.Errorf("screening run aborted: %w", err)
	}

	stocks := make([]models.ScreenedStock, 0, len(outcomes))
	rateLimited := 0
	for _, o := range outcomes {
		if o.Err != nil {
			limited := isRateLimited(o.Err)
			if limited {
				rateLimited++
			}
			result.Failed = append(result.Failed, models.SymbolError{
				Symbol:      o.Key,
				Error:       o.Err.Error(),
				RateLimited: limited,
			})
			s.logger.Warn().Err(o.Err).Str("symbol", o.Key).Bool("rate_limited", limited).Msg("Symbol dropped from run")
			continue
		}
		stocks = append(stocks, o.Value)
	}

	if len(stocks) == 0 && len(symbols) > 0 {
		s.useSample(result, fmt.Sprintf("All %d quote fetches failed (%d rate limited); showing sample data", len(symbols), rateLimited))
		return s.complete(result), nil
	}

	result.Source = models.SourceLive
	result.Screened = len(stocks)
	if n := len(result.Failed); n > 0 {
		result.Notice = fmt.Sprintf("%d of %d symbols skipped (%d rate limited)", n, len(symbols), rateLimited)
	}
	result.Stocks = signals.Filter(stocks, criteria)
	signals.Rank(result.Stocks)
	return s.complete(result), nil
}

// screenSymbol fetches and scores one symbol. Overview failures are logged
// and the universe profile is used instead.
func (s *Service) screenSymbol(ctx context.Context, symbol string) (models.ScreenedStock, error) {
	quote, err := s.quotes.GetQuote(ctx, symbol)
	if err != nil {
		return models.ScreenedStock{}, err
	}

	profile, _ := s.universe.Profile(symbol)
	if s.config.FetchOverview && s.overviews != nil {
		ov, err := s.overviews.GetOverview(ctx, symbol)
		if err != nil {
			s.logger.Debug().Err(err).Str("symbol", symbol).Msg("Overview unavailable, using universe profile")
		} else {
			profile = mergeOverview(profile, ov)
		}
	}

	return signals.Build(*quote, profile), nil
}

func mergeOverview(p models.SymbolProfile, ov *models.CompanyOverview) models.SymbolProfile {
	if ov.Name != "" {
		p.Name = ov.Name
	}
	if ov.MarketCap > 0 {
		p.MarketCap = ov.MarketCap
	}
	if ov.SharesOutstanding > 0 {
		p.SharesOutstanding = ov.SharesOutstanding
	}
	return p
}

func (s *Service) useSample(result *models.ScreenResult, notice string) {
	stocks := sample.Stocks()
	result.Source = models.SourceSample
	result.Notice = notice
	result.Screened = len(stocks)
	result.Stocks = signals.Filter(stocks, result.Criteria)
	signals.Rank(result.Stocks)
	s.logger.Warn().Str("run_id", result.RunID).Str("notice", notice).Msg("Serving sample screening data")
}

func (s *Service) complete(result *models.ScreenResult) *models.ScreenResult {
	result.CompletedAt = s.now().UTC()

	s.mu.Lock()
	s.latest = result
	listeners := append([]func(*models.ScreenResult){}, s.listeners...)
	s.mu.Unlock()

	s.logger.Info().
		Str("run_id", result.RunID).
		Str("source", result.Source).
		Int("screened", result.Screened).
		Int("matched", len(result.Stocks)).
		Int("failed", len(result.Failed)).
		Dur("elapsed", result.CompletedAt.Sub(result.StartedAt)).
		Msg("Screening run complete")

	for _, fn := range listeners {
		fn(result)
	}
	return result
}

// isRateLimited reports whether err carries an upstream quota notice
func isRateLimited(err error) bool {
	var rl interface{ RateLimited() bool }
	return errors.As(err, &rl) && rl.RateLimited()
}

var _ interfaces.ScreenerService = (*Service)(nil)
