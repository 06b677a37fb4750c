package models

import "time"

// Sentiment classifies the tone of a news item
type Sentiment string

const (
	SentimentPositive Sentiment = "POSITIVE"
	SentimentNegative Sentiment = "NEGATIVE"
	SentimentNeutral  Sentiment = "NEUTRAL"
)

// Impact classifies how strongly a news item is expected to move its symbols
type Impact string

const (
	ImpactHigh   Impact = "HIGH"
	ImpactMedium Impact = "MEDIUM"
	ImpactLow    Impact = "LOW"
)

// NewsItem is one entry of the news catalyst feed
type NewsItem struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Summary     string    `json:"summary"`
	Source      string    `json:"source"`
	PublishedAt time.Time `json:"published_at"`
	Symbols     []string  `json:"symbols"`
	Sentiment   Sentiment `json:"sentiment"`
	Impact      Impact    `json:"impact"`
	URL         string    `json:"url"`
}

// RawNewsItem is a provider news entry before classification
type RawNewsItem struct {
	Title          string
	Summary        string
	Source         string
	URL            string
	PublishedAt    time.Time
	SentimentScore float64
	Tickers        []TickerSentiment
}

// TickerSentiment is the per-symbol relevance attached to a raw news entry
type TickerSentiment struct {
	Symbol         string
	Relevance      float64
	SentimentScore float64
}

// NewsQuery selects the news feed to fetch
type NewsQuery struct {
	Symbols []string `json:"symbols,omitempty"`
	Topics  []string `json:"topics,omitempty"`
	Limit   int      `json:"limit,omitempty"`
}

// NewsFeed is the result of a news fetch
type NewsFeed struct {
	Items     []NewsItem `json:"items"`
	Source    string     `json:"source"`
	Notice    string     `json:"notice,omitempty"`
	FetchedAt time.Time  `json:"fetched_at"`
}
