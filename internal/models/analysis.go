package models

import "time"

// Analysis is the rule-based analysis card for one symbol
type Analysis struct {
	Symbol              string              `json:"symbol"`
	TechnicalAnalysis   TechnicalAnalysis   `json:"technical_analysis"`
	FundamentalAnalysis FundamentalAnalysis `json:"fundamental_analysis"`
	Recommendation      AnalysisCall        `json:"recommendation"`
	RiskFactors         []string            `json:"risk_factors"`
	Source              string              `json:"source"`
	Notice              string              `json:"notice,omitempty"`
	Timestamp           time.Time           `json:"timestamp"`
}

// TechnicalAnalysis summarises price action. RSI and MACD values are passed
// through from the provider; only their labels are derived here.
type TechnicalAnalysis struct {
	Trend      string   `json:"trend"` // BULLISH, BEARISH, NEUTRAL
	Support    float64  `json:"support"`
	Resistance float64  `json:"resistance"`
	RSI        *float64 `json:"rsi,omitempty"`
	RSISignal  string   `json:"rsi_signal,omitempty"` // OVERBOUGHT, OVERSOLD, NEUTRAL
	MACD       string   `json:"macd"`                 // BULLISH_CROSSOVER, BEARISH_CROSSOVER, NEUTRAL, UNAVAILABLE
	Volume     string   `json:"volume"`               // ABOVE_AVERAGE, AVERAGE, BELOW_AVERAGE
	Pattern    string   `json:"pattern"`
}

// FundamentalAnalysis summarises company context
type FundamentalAnalysis struct {
	Sector    string   `json:"sector"`
	MarketCap float64  `json:"market_cap"`
	PERatio   *float64 `json:"pe_ratio"` // nil for funds and unprofitable companies
	Momentum  string   `json:"momentum"` // STRONG, MODERATE, WEAK
	Catalysts []string `json:"catalysts"`
}

// AnalysisCall is the actionable part of an analysis card
type AnalysisCall struct {
	Action      Recommendation `json:"action"`
	Confidence  int            `json:"confidence"`
	PriceTarget float64        `json:"price_target"`
	StopLoss    float64        `json:"stop_loss"`
	TimeHorizon string         `json:"time_horizon"`
	Reasoning   string         `json:"reasoning"`
}
