// Package news produces the classified news catalyst feed
package news

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/bobmcallan/surge/internal/common"
	"github.com/bobmcallan/surge/internal/interfaces"
	"github.com/bobmcallan/surge/internal/models"
	"github.com/bobmcallan/surge/internal/sample"
)

// Sentiment and impact bands applied to provider sentiment scores in [-1, 1]
const (
	SentimentThreshold  = 0.15
	HighImpactThreshold = 0.35
	DefaultLimit        = 10
)

// DefaultTopics are used when a query names neither symbols nor topics
var DefaultTopics = []string{"technology", "financial_markets"}

// Source is the subset of the market data client used for news
type Source interface {
	GetNews(ctx context.Context, query models.NewsQuery) ([]models.RawNewsItem, error)
	Configured() bool
}

// Config holds feed defaults
type Config struct {
	Topics []string
	Limit  int
}

// Service implements NewsService
type Service struct {
	source Source
	config Config
	logger *common.Logger
	now    func() time.Time

	mu     sync.RWMutex
	latest *models.NewsFeed
}

// NewService creates a news service
func NewService(source Source, config Config, logger *common.Logger) *Service {
	if logger == nil {
		logger = common.NewSilentLogger()
	}
	if len(config.Topics) == 0 {
		config.Topics = DefaultTopics
	}
	if config.Limit <= 0 {
		config.Limit = DefaultLimit
	}
	return &Service{
		source: source,
		config: config,
		logger: logger,
		now:    time.Now,
	}
}

// Latest returns the most recently fetched default feed, or nil
func (s *Service) Latest() *models.NewsFeed {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.latest
}

// GetNews returns classified news for the query, newest first. Upstream
// failures fall back to the sample feed with a notice.
func (s *Service) GetNews(ctx context.Context, query models.NewsQuery) (*models.NewsFeed, error) {
	isDefault := len(query.Symbols) == 0 && len(query.Topics) == 0 && query.Limit <= 0
	query = s.normalize(query)

	feed := &models.NewsFeed{FetchedAt: s.now().UTC()}

	if !s.source.Configured() {
		s.useSample(feed, query, "Market data API key not configured; showing sample news")
	} else if raw, err := s.source.GetNews(ctx, query); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		s.logger.Warn().Err(err).Msg("News fetch failed")
		s.useSample(feed, query, fmt.Sprintf("News unavailable (%v); showing sample news", err))
	} else {
		feed.Source = models.SourceLive
		feed.Items = make([]models.NewsItem, 0, len(raw))
		for _, r := range raw {
			feed.Items = append(feed.Items, Classify(r))
		}
	}

	sortNewest(feed.Items)
	if len(feed.Items) > query.Limit {
		feed.Items = feed.Items[:query.Limit]
	}

	s.logger.Info().
		Str("source", feed.Source).
		Int("items", len(feed.Items)).
		Strs("symbols", query.Symbols).
		Msg("News feed fetched")

	if isDefault {
		s.mu.Lock()
		s.latest = feed
		s.mu.Unlock()
	}
	return feed, nil
}

func (s *Service) normalize(q models.NewsQuery) models.NewsQuery {
	symbols := make([]string, 0, len(q.Symbols))
	for _, sym := range q.Symbols {
		if sym = strings.ToUpper(strings.TrimSpace(sym)); sym != "" {
			symbols = append(symbols, sym)
		}
	}
	q.Symbols = symbols
	if len(q.Symbols) == 0 && len(q.Topics) == 0 {
		q.Topics = s.config.Topics
	}
	if q.Limit <= 0 {
		q.Limit = s.config.Limit
	}
	return q
}

func (s *Service) useSample(feed *models.NewsFeed, query models.NewsQuery, notice string) {
	feed.Source = models.SourceSample
	feed.Notice = notice
	feed.Items = make([]models.NewsItem, 0)
	for _, item := range sample.News(s.now()) {
		if len(query.Symbols) > 0 && !mentionsAny(item, query.Symbols) {
			continue
		}
		item.ID = ItemID(item.URL, item.Title)
		feed.Items = append(feed.Items, item)
	}
}

// Classify converts a raw provider item into a feed item
func Classify(r models.RawNewsItem) models.NewsItem {
	symbols := make([]string, 0, len(r.Tickers))
	for _, t := range r.Tickers {
		// Crypto and forex tickers are reported as "CRYPTO:BTC" / "FOREX:USD".
		if t.Symbol == "" || strings.Contains(t.Symbol, ":") {
			continue
		}
		symbols = append(symbols, t.Symbol)
	}
	return models.NewsItem{
		ID:          ItemID(r.URL, r.Title),
		Title:       r.Title,
		Summary:     r.Summary,
		Source:      r.Source,
		PublishedAt: r.PublishedAt.UTC(),
		Symbols:     symbols,
		Sentiment:   SentimentFor(r.SentimentScore),
		Impact:      ImpactFor(r.SentimentScore),
		URL:         r.URL,
	}
}

// SentimentFor maps a sentiment score to POSITIVE, NEGATIVE or NEUTRAL
func SentimentFor(score float64) models.Sentiment {
	switch {
	case score >= SentimentThreshold:
		return models.SentimentPositive
	case score <= -SentimentThreshold:
		return models.SentimentNegative
	default:
		return models.SentimentNeutral
	}
}

// ImpactFor maps the strength of a sentiment score to HIGH, MEDIUM or LOW
func ImpactFor(score float64) models.Impact {
	switch abs := math.Abs(score); {
	case abs >= HighImpactThreshold:
		return models.ImpactHigh
	case abs >= SentimentThreshold:
		return models.ImpactMedium
	default:
		return models.ImpactLow
	}
}

// ItemID derives a stable id from the article URL, or the title when there is none
func ItemID(url, title string) string {
	name := url
	if name == "" {
		name = title
	}
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(name)).String()
}

func mentionsAny(item models.NewsItem, symbols []string) bool {
	for _, have := range item.Symbols {
		for _, want := range symbols {
			if have == want {
				return true
			}
		}
	}
	return false
}

func sortNewest(items []models.NewsItem) {
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].PublishedAt.After(items[j].PublishedAt)
	})
}

var _ interfaces.NewsService = (*Service)(nil)
