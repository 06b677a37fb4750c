package models

import "time"

// Recommendation is the three-valued trade call attached to a screened stock
type Recommendation string

const (
	RecommendationBuy  Recommendation = "BUY"
	RecommendationSell Recommendation = "SELL"
	RecommendationHold Recommendation = "HOLD"
)

// Data sources reported on screening, news and analysis results
const (
	SourceLive   = "live"
	SourceSample = "sample"
)

// ScreenedStock is the derived record produced for one symbol by a screening run.
// Fields suffixed with Estimated flag values that are heuristics rather than
// measurements (there is no historical volume or float source).
type ScreenedStock struct {
	Symbol                  string         `json:"symbol"`
	Name                    string         `json:"name"`
	Price                   float64        `json:"price"`
	Change                  float64        `json:"change"`
	ChangePercent           float64        `json:"change_percent"`
	Volume                  int64          `json:"volume"`
	AvgVolume               float64        `json:"avg_volume"`
	AvgVolumeEstimated      bool           `json:"avg_volume_estimated"`
	RelativeVolume          float64        `json:"relative_volume"`
	RelativeVolumeEstimated bool           `json:"relative_volume_estimated"`
	MarketCap               float64        `json:"market_cap"`
	Float                   float64        `json:"float"`
	FloatEstimated          bool           `json:"float_estimated"`
	GapUp                   float64        `json:"gap_up"`
	News                    string         `json:"news"`
	AIScore                 int            `json:"ai_score"`
	Recommendation          Recommendation `json:"recommendation"`
	ChartPattern            string         `json:"chart_pattern"`
}

// Criteria are the thresholds a screened stock must satisfy.
// MaxPrice, MinAbsChangePercent and MinVolume always apply; the remaining
// thresholds are disabled when zero.
type Criteria struct {
	MaxPrice            float64 `json:"max_price"`              // price < MaxPrice
	MinAbsChangePercent float64 `json:"min_abs_change_percent"` // |change%| >= MinAbsChangePercent
	MinVolume           int64   `json:"min_volume"`             // volume > MinVolume
	MinGapUp            float64 `json:"min_gap_up,omitempty"`
	MinRelativeVolume   float64 `json:"min_relative_volume,omitempty"`
	MaxFloat            float64 `json:"max_float,omitempty"`
	MinMarketCap        float64 `json:"min_market_cap,omitempty"`
}

// DefaultCriteria returns the standard momentum thresholds:
// price under $5, at least an 8% move either way, over 1M shares traded.
func DefaultCriteria() Criteria {
	return Criteria{
		MaxPrice:            5.00,
		MinAbsChangePercent: 8,
		MinVolume:           1_000_000,
	}
}

// ScreenRequest customises a single screening run. Zero values fall back to the
// configured universe and criteria.
type ScreenRequest struct {
	Symbols  []string  `json:"symbols,omitempty"`
	Criteria *Criteria `json:"criteria,omitempty"`
}

// SymbolError records a symbol dropped from a run because its fetch failed
type SymbolError struct {
	Symbol      string `json:"symbol"`
	Error       string `json:"error"`
	RateLimited bool   `json:"rate_limited,omitempty"`
}

// ScreenResult is the outcome of one screening run
type ScreenResult struct {
	RunID       string          `json:"run_id"`
	Stocks      []ScreenedStock `json:"stocks"`
	Source      string          `json:"source"` // SourceLive or SourceSample
	Notice      string          `json:"notice,omitempty"`
	Screened    int             `json:"screened"` // symbols with a usable quote
	Failed      []SymbolError   `json:"failed,omitempty"`
	Criteria    Criteria        `json:"criteria"`
	StartedAt   time.Time       `json:"started_at"`
	CompletedAt time.Time       `json:"completed_at"`
}
