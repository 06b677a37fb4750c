// Package models defines data structures for Surge
package models

import "time"

// SymbolQuote is a point-in-time quote snapshot for one symbol.
// No history is retained; each fetch produces a new value.
type SymbolQuote struct {
	Symbol           string    `json:"symbol"`
	Price            float64   `json:"price"`
	Change           float64   `json:"change"`
	ChangePercent    float64   `json:"change_percent"`
	Volume           int64     `json:"volume"`
	Open             float64   `json:"open,omitempty"`
	High             float64   `json:"high,omitempty"`
	Low              float64   `json:"low,omitempty"`
	PreviousClose    float64   `json:"previous_close,omitempty"`
	LatestTradingDay time.Time `json:"latest_trading_day,omitempty"`
	Source           string    `json:"source,omitempty"` // "alphavantage" or "alpaca"
}

// CompanyOverview holds the fundamentals used to enrich a screened stock
type CompanyOverview struct {
	Symbol            string  `json:"symbol"`
	Name              string  `json:"name"`
	Sector            string  `json:"sector,omitempty"`
	Industry          string  `json:"industry,omitempty"`
	MarketCap         float64 `json:"market_cap"`
	SharesOutstanding int64   `json:"shares_outstanding"`
	PERatio           float64 `json:"pe_ratio,omitempty"` // zero when the provider reports none
}

// IndicatorValue is the latest point of a provider-computed indicator series
type IndicatorValue struct {
	Date  time.Time `json:"date"`
	Value float64   `json:"value"`
}

// MACDValue is the latest point of a provider-computed MACD series
type MACDValue struct {
	Date      time.Time `json:"date"`
	MACD      float64   `json:"macd"`
	Signal    float64   `json:"signal"`
	Histogram float64   `json:"histogram"`
}

// SymbolProfile is the static reference data known for a symbol before any
// fetch: display name, estimated market cap and share count, and a headline.
type SymbolProfile struct {
	Symbol            string  `json:"symbol" yaml:"symbol"`
	Name              string  `json:"name" yaml:"name"`
	MarketCap         float64 `json:"market_cap" yaml:"market_cap"`
	SharesOutstanding int64   `json:"shares_outstanding" yaml:"shares_outstanding"`
	Headline          string  `json:"headline" yaml:"headline"`
}
