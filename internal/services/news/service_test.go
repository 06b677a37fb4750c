package news

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bobmcallan/surge/internal/models"
)

type fakeSource struct {
	items      []models.RawNewsItem
	err        error
	configured bool
	got        models.NewsQuery
}

func (f *fakeSource) GetNews(_ context.Context, q models.NewsQuery) ([]models.RawNewsItem, error) {
	f.got = q
	return f.items, f.err
}

func (f *fakeSource) Configured() bool { return f.configured }

var fixedNow = time.Date(2024, 3, 28, 15, 0, 0, 0, time.UTC)

func newTestService(src *fakeSource, cfg Config) *Service {
	svc := NewService(src, cfg, nil)
	svc.now = func() time.Time { return fixedNow }
	return svc
}

func TestSentimentFor(t *testing.T) {
	tests := []struct {
		score float64
		want  models.Sentiment
	}{
		{0.5, models.SentimentPositive},
		{0.15, models.SentimentPositive},
		{0.149, models.SentimentNeutral},
		{0, models.SentimentNeutral},
		{-0.149, models.SentimentNeutral},
		{-0.15, models.SentimentNegative},
		{-0.9, models.SentimentNegative},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, SentimentFor(tt.score), "score %v", tt.score)
	}
}

func TestImpactFor(t *testing.T) {
	tests := []struct {
		score float64
		want  models.Impact
	}{
		{0.35, models.ImpactHigh},
		{-0.6, models.ImpactHigh},
		{0.2, models.ImpactMedium},
		{-0.15, models.ImpactMedium},
		{0.1, models.ImpactLow},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ImpactFor(tt.score), "score %v", tt.score)
	}
}

func TestItemID_Deterministic(t *testing.T) {
	a := ItemID("https://example.com/a", "A")
	assert.Equal(t, a, ItemID("https://example.com/a", "other title"))
	assert.NotEqual(t, a, ItemID("https://example.com/b", "A"))
	assert.Equal(t, ItemID("", "Title"), ItemID("", "Title"))
}

func TestClassify_SkipsNonEquityTickers(t *testing.T) {
	item := Classify(models.RawNewsItem{
		Title:          "Crypto and chips",
		URL:            "https://example.com/x",
		SentimentScore: -0.4,
		Tickers: []models.TickerSentiment{
			{Symbol: "CRYPTO:BTC"},
			{Symbol: "SOXL"},
			{Symbol: "FOREX:USD"},
		},
	})
	assert.Equal(t, []string{"SOXL"}, item.Symbols)
	assert.Equal(t, models.SentimentNegative, item.Sentiment)
	assert.Equal(t, models.ImpactHigh, item.Impact)
	assert.NotEmpty(t, item.ID)
}

func TestGetNews_Live(t *testing.T) {
	src := &fakeSource{configured: true, items: []models.RawNewsItem{
		{Title: "Older", URL: "https://example.com/1", PublishedAt: fixedNow.Add(-2 * time.Hour), SentimentScore: 0.05},
		{Title: "Newer", URL: "https://example.com/2", PublishedAt: fixedNow.Add(-time.Hour), SentimentScore: 0.4},
		{Title: "Oldest", URL: "https://example.com/3", PublishedAt: fixedNow.Add(-3 * time.Hour), SentimentScore: -0.2},
	}}
	svc := newTestService(src, Config{Limit: 2})

	feed, err := svc.GetNews(context.Background(), models.NewsQuery{})
	require.NoError(t, err)

	assert.Equal(t, models.SourceLive, feed.Source)
	assert.Empty(t, feed.Notice)
	assert.Equal(t, DefaultTopics, src.got.Topics)
	assert.Equal(t, 2, src.got.Limit)
	require.Len(t, feed.Items, 2)
	assert.Equal(t, "Newer", feed.Items[0].Title)
	assert.Equal(t, models.SentimentPositive, feed.Items[0].Sentiment)
	assert.Equal(t, "Older", feed.Items[1].Title)
	assert.Equal(t, models.SentimentNeutral, feed.Items[1].Sentiment)
	assert.Same(t, feed, svc.Latest())
}

func TestGetNews_SymbolQueryNotStoredAsLatest(t *testing.T) {
	src := &fakeSource{configured: true}
	svc := newTestService(src, Config{})

	_, err := svc.GetNews(context.Background(), models.NewsQuery{Symbols: []string{" soxl "}})
	require.NoError(t, err)

	assert.Equal(t, []string{"SOXL"}, src.got.Symbols)
	assert.Empty(t, src.got.Topics)
	assert.Nil(t, svc.Latest())
}

func TestGetNews_NotConfiguredServesSample(t *testing.T) {
	svc := newTestService(&fakeSource{}, Config{})

	feed, err := svc.GetNews(context.Background(), models.NewsQuery{})
	require.NoError(t, err)

	assert.Equal(t, models.SourceSample, feed.Source)
	assert.NotEmpty(t, feed.Notice)
	require.Len(t, feed.Items, 5)
	assert.Equal(t, fixedNow.Add(-time.Hour), feed.Items[0].PublishedAt)
	for _, item := range feed.Items {
		assert.NotEmpty(t, item.ID)
	}
}

func TestGetNews_UpstreamErrorServesFilteredSample(t *testing.T) {
	src := &fakeSource{configured: true, err: errors.New("call frequency exceeded")}
	svc := newTestService(src, Config{})

	feed, err := svc.GetNews(context.Background(), models.NewsQuery{Symbols: []string{"YINN"}})
	require.NoError(t, err)

	assert.Equal(t, models.SourceSample, feed.Source)
	assert.Contains(t, feed.Notice, "call frequency exceeded")
	require.Len(t, feed.Items, 1)
	assert.Equal(t, []string{"YINN"}, feed.Items[0].Symbols)
}

func TestGetNews_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	src := &fakeSource{configured: true, err: context.Canceled}

	_, err := newTestService(src, Config{}).GetNews(ctx, models.NewsQuery{})
	assert.ErrorIs(t, err, context.Canceled)
}
