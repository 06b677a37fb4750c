package alphavantage

import (
	"context"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/bobmcallan/surge/internal/models"
)

const newsTimeLayout = "20060102T150405"

type newsResponse struct {
	Feed []struct {
		Title                 string      `json:"title"`
		URL                   string      `json:"url"`
		TimePublished         string      `json:"time_published"`
		Summary               string      `json:"summary"`
		Source                string      `json:"source"`
		OverallSentimentScore flexFloat64 `json:"overall_sentiment_score"`
		TickerSentiment       []struct {
			Ticker         string      `json:"ticker"`
			RelevanceScore flexFloat64 `json:"relevance_score"`
			SentimentScore flexFloat64 `json:"ticker_sentiment_score"`
		} `json:"ticker_sentiment"`
	} `json:"feed"`
}

// GetNews retrieves news via NEWS_SENTIMENT, newest first
func (c *Client) GetNews(ctx context.Context, query models.NewsQuery) ([]models.RawNewsItem, error) {
	params := url.Values{}
	if len(query.Symbols) > 0 {
		params.Set("tickers", strings.Join(query.Symbols, ","))
	}
	if len(query.Topics) > 0 {
		params.Set("topics", strings.Join(query.Topics, ","))
	}
	if query.Limit > 0 {
		params.Set("limit", strconv.Itoa(query.Limit))
	}
	params.Set("sort", "LATEST")

	var resp newsResponse
	if err := c.get(ctx, "NEWS_SENTIMENT", params, &resp); err != nil {
		return nil, err
	}

	items := make([]models.RawNewsItem, 0, len(resp.Feed))
	for _, f := range resp.Feed {
		item := models.RawNewsItem{
			Title:          f.Title,
			Summary:        f.Summary,
			Source:         f.Source,
			URL:            f.URL,
			SentimentScore: float64(f.OverallSentimentScore),
		}
		if t, err := time.Parse(newsTimeLayout, f.TimePublished); err == nil {
			item.PublishedAt = t
		}
		for _, ts := range f.TickerSentiment {
			item.Tickers = append(item.Tickers, models.TickerSentiment{
				Symbol:         ts.Ticker,
				Relevance:      float64(ts.RelevanceScore),
				SentimentScore: float64(ts.SentimentScore),
			})
		}
		items = append(items, item)
	}

	if query.Limit > 0 && len(items) > query.Limit {
		items = items[:query.Limit]
	}
	return items, nil
}
