// Package sample serves the built-in dataset used when live market data is
// unavailable. Every value returned is a fresh copy.
package sample

import (
	_ "embed"
	"fmt"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/bobmcallan/surge/internal/models"
)

//go:embed sample.yaml
var sampleYAML []byte

type stockRecord struct {
	Symbol         string  `yaml:"symbol"`
	Name           string  `yaml:"name"`
	Price          float64 `yaml:"price"`
	Change         float64 `yaml:"change"`
	ChangePercent  float64 `yaml:"change_percent"`
	Volume         int64   `yaml:"volume"`
	AvgVolume      float64 `yaml:"avg_volume"`
	RelativeVolume float64 `yaml:"relative_volume"`
	MarketCap      float64 `yaml:"market_cap"`
	Float          float64 `yaml:"float"`
	GapUp          float64 `yaml:"gap_up"`
	News           string  `yaml:"news"`
	AIScore        int     `yaml:"ai_score"`
	Recommendation string  `yaml:"recommendation"`
	ChartPattern   string  `yaml:"chart_pattern"`
}

type newsRecord struct {
	Title     string        `yaml:"title"`
	Summary   string        `yaml:"summary"`
	Source    string        `yaml:"source"`
	Age       time.Duration `yaml:"age"`
	Symbols   []string      `yaml:"symbols"`
	Sentiment string        `yaml:"sentiment"`
	Impact    string        `yaml:"impact"`
	URL       string        `yaml:"url"`
}

type analysisRecord struct {
	Technical struct {
		Trend      string  `yaml:"trend"`
		Support    float64 `yaml:"support"`
		Resistance float64 `yaml:"resistance"`
		RSI        float64 `yaml:"rsi"`
		MACD       string  `yaml:"macd"`
		Volume     string  `yaml:"volume"`
		Pattern    string  `yaml:"pattern"`
	} `yaml:"technical"`
	Fundamental struct {
		Sector    string   `yaml:"sector"`
		MarketCap float64  `yaml:"market_cap"`
		Momentum  string   `yaml:"momentum"`
		Catalysts []string `yaml:"catalysts"`
	} `yaml:"fundamental"`
	Recommendation struct {
		Action      string  `yaml:"action"`
		Confidence  int     `yaml:"confidence"`
		PriceTarget float64 `yaml:"price_target"`
		StopLoss    float64 `yaml:"stop_loss"`
		TimeHorizon string  `yaml:"time_horizon"`
		Reasoning   string  `yaml:"reasoning"`
	} `yaml:"recommendation"`
	RiskFactors []string `yaml:"risk_factors"`
}

type dataset struct {
	Stocks   []stockRecord  `yaml:"stocks"`
	News     []newsRecord   `yaml:"news"`
	Analysis analysisRecord `yaml:"analysis"`
}

var load = sync.OnceValues(func() (*dataset, error) {
	return parse(sampleYAML)
})

func parse(data []byte) (*dataset, error) {
	var ds dataset
	if err := yaml.Unmarshal(data, &ds); err != nil {
		return nil, fmt.Errorf("failed to parse sample dataset: %w", err)
	}
	if len(ds.Stocks) == 0 {
		return nil, fmt.Errorf("sample dataset has no stocks")
	}
	return &ds, nil
}

func mustLoad() *dataset {
	ds, err := load()
	if err != nil {
		panic(err)
	}
	return ds
}

// Stocks returns the sample screened stocks in dataset order, unfiltered.
// Their derived fields are recorded values, so no estimate flags are set.
func Stocks() []models.ScreenedStock {
	ds := mustLoad()
	out := make([]models.ScreenedStock, len(ds.Stocks))
	for i, r := range ds.Stocks {
		out[i] = models.ScreenedStock{
			Symbol:         r.Symbol,
			Name:           r.Name,
			Price:          r.Price,
			Change:         r.Change,
			ChangePercent:  r.ChangePercent,
			Volume:         r.Volume,
			AvgVolume:      r.AvgVolume,
			RelativeVolume: r.RelativeVolume,
			MarketCap:      r.MarketCap,
			Float:          r.Float,
			GapUp:          r.GapUp,
			News:           r.News,
			AIScore:        r.AIScore,
			Recommendation: models.Recommendation(r.Recommendation),
			ChartPattern:   r.ChartPattern,
		}
	}
	return out
}

// News returns the sample news feed, newest first, timestamped relative to now.
// IDs are left empty for the caller to assign.
func News(now time.Time) []models.NewsItem {
	ds := mustLoad()
	out := make([]models.NewsItem, len(ds.News))
	for i, r := range ds.News {
		out[i] = models.NewsItem{
			Title:       r.Title,
			Summary:     r.Summary,
			Source:      r.Source,
			PublishedAt: now.Add(-r.Age).UTC(),
			Symbols:     append([]string(nil), r.Symbols...),
			Sentiment:   models.Sentiment(r.Sentiment),
			Impact:      models.Impact(r.Impact),
			URL:         r.URL,
		}
	}
	return out
}

// Analysis returns the sample analysis card for a symbol
func Analysis(symbol string, now time.Time) *models.Analysis {
	a := mustLoad().Analysis
	rsi := a.Technical.RSI
	return &models.Analysis{
		Symbol: strings.ToUpper(symbol),
		TechnicalAnalysis: models.TechnicalAnalysis{
			Trend:      a.Technical.Trend,
			Support:    a.Technical.Support,
			Resistance: a.Technical.Resistance,
			RSI:        &rsi,
			RSISignal:  "NEUTRAL",
			MACD:       a.Technical.MACD,
			Volume:     a.Technical.Volume,
			Pattern:    a.Technical.Pattern,
		},
		FundamentalAnalysis: models.FundamentalAnalysis{
			Sector:    a.Fundamental.Sector,
			MarketCap: a.Fundamental.MarketCap,
			Momentum:  a.Fundamental.Momentum,
			Catalysts: append([]string(nil), a.Fundamental.Catalysts...),
		},
		Recommendation: models.AnalysisCall{
			Action:      models.Recommendation(a.Recommendation.Action),
			Confidence:  a.Recommendation.Confidence,
			PriceTarget: a.Recommendation.PriceTarget,
			StopLoss:    a.Recommendation.StopLoss,
			TimeHorizon: a.Recommendation.TimeHorizon,
			Reasoning:   a.Recommendation.Reasoning,
		},
		RiskFactors: append([]string(nil), a.RiskFactors...),
		Source:      models.SourceSample,
		Timestamp:   now.UTC(),
	}
}
