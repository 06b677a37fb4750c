package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bobmcallan/surge/internal/models"
)

func soxlInputs() Inputs {
	return Inputs{
		Quote: models.SymbolQuote{
			Symbol: "SOXL", Price: 4.85, Change: 0.45, ChangePercent: 10.2,
			Volume: 25_400_000, High: 4.91, Low: 4.40,
		},
		Profile: models.SymbolProfile{
			Symbol: "SOXL", Name: "Direxion Daily Semiconductor Bull 3X",
			MarketCap: 890_000_000, Headline: "Semiconductor sector rallies on AI chip demand surge",
		},
	}
}

func TestBuild_SOXL(t *testing.T) {
	in := soxlInputs()
	in.RSI = &models.IndicatorValue{Value: 72.4}
	in.MACD = &models.MACDValue{MACD: 0.15, Signal: 0.10, Histogram: 0.05}
	in.Headlines = []string{"Chip rally", "", "AI demand", "Earnings", "Fourth"}

	a := Build(in)

	assert.Equal(t, "SOXL", a.Symbol)
	assert.Equal(t, models.SourceLive, a.Source)

	tech := a.TechnicalAnalysis
	assert.Equal(t, "BULLISH", tech.Trend)
	assert.Equal(t, 4.40, tech.Support)
	assert.Equal(t, 4.91, tech.Resistance)
	require.NotNil(t, tech.RSI)
	assert.Equal(t, 72.4, *tech.RSI)
	assert.Equal(t, "OVERBOUGHT", tech.RSISignal)
	assert.Equal(t, "BULLISH_CROSSOVER", tech.MACD)
	assert.Equal(t, "ABOVE_AVERAGE", tech.Volume)
	assert.Equal(t, "Bullish breakout above resistance", tech.Pattern)

	fund := a.FundamentalAnalysis
	assert.Equal(t, "Unknown", fund.Sector)
	assert.Equal(t, 890_000_000.0, fund.MarketCap)
	assert.Nil(t, fund.PERatio)
	assert.Equal(t, "STRONG", fund.Momentum)
	assert.Equal(t, []string{"Chip rally", "AI demand", "Earnings"}, fund.Catalysts)

	call := a.Recommendation
	assert.Equal(t, models.RecommendationBuy, call.Action)
	assert.Equal(t, 100, call.Confidence)
	assert.Equal(t, 5.24, call.PriceTarget)
	assert.InDelta(t, 4.365, call.StopLoss, 0.011)
	assert.Equal(t, "SHORT_TERM", call.TimeHorizon)
	assert.Contains(t, call.Reasoning, "Direxion Daily Semiconductor Bull 3X moved +10.20%")
	assert.Contains(t, call.Reasoning, "RSI is overbought")

	assert.Equal(t, []string{
		"High volatility due to 3x leverage",
		"Extreme daily move of 10.2%",
		"RSI indicates overbought conditions",
		"Low-priced security with wide spreads",
		"Market correction risk",
	}, a.RiskFactors)
}

func TestBuild_OverviewAndMissingIndicators(t *testing.T) {
	in := Inputs{
		Quote: models.SymbolQuote{Symbol: "AAPL", Price: 180, ChangePercent: -3, Volume: 50_000_000},
		Overview: &models.CompanyOverview{
			Name: "Apple Inc", Sector: "TECHNOLOGY", MarketCap: 2.8e12, PERatio: 29.5,
		},
	}

	a := Build(in)

	assert.Equal(t, "BEARISH", a.TechnicalAnalysis.Trend)
	assert.Nil(t, a.TechnicalAnalysis.RSI)
	assert.Empty(t, a.TechnicalAnalysis.RSISignal)
	assert.Equal(t, "UNAVAILABLE", a.TechnicalAnalysis.MACD)
	assert.Equal(t, 171.0, a.TechnicalAnalysis.Support)
	assert.Equal(t, 189.0, a.TechnicalAnalysis.Resistance)
	assert.Equal(t, "TECHNOLOGY", a.FundamentalAnalysis.Sector)
	require.NotNil(t, a.FundamentalAnalysis.PERatio)
	assert.Equal(t, 29.5, *a.FundamentalAnalysis.PERatio)
	assert.Equal(t, "MODERATE", a.FundamentalAnalysis.Momentum)
	assert.Empty(t, a.FundamentalAnalysis.Catalysts)
	assert.Equal(t, models.RecommendationHold, a.Recommendation.Action)
	assert.Equal(t, []string{"Market correction risk"}, a.RiskFactors)
}

func TestLabels(t *testing.T) {
	assert.Equal(t, "NEUTRAL", Trend(2))
	assert.Equal(t, "BULLISH", Trend(2.01))
	assert.Equal(t, "BEARISH", Trend(-2.01))

	assert.Equal(t, "NEUTRAL", RSISignal(70))
	assert.Equal(t, "OVERBOUGHT", RSISignal(70.1))
	assert.Equal(t, "OVERSOLD", RSISignal(29.9))

	assert.Equal(t, "BEARISH_CROSSOVER", MACDSignal(&models.MACDValue{MACD: -0.2, Signal: 0.1, Histogram: -0.3}))
	assert.Equal(t, "NEUTRAL", MACDSignal(&models.MACDValue{}))
	assert.Equal(t, "UNAVAILABLE", MACDSignal(nil))

	assert.Equal(t, "ABOVE_AVERAGE", VolumeLabel(1_000_001))
	assert.Equal(t, "AVERAGE", VolumeLabel(1_000_000))
	assert.Equal(t, "BELOW_AVERAGE", VolumeLabel(249_999))

	assert.Equal(t, "STRONG", Momentum(-8))
	assert.Equal(t, "MODERATE", Momentum(3))
	assert.Equal(t, "WEAK", Momentum(2.99))
}

func TestRiskFactors_TwoXLeverage(t *testing.T) {
	risks := RiskFactors("Direxion Daily Energy Bull 2X", models.SymbolQuote{Price: 12, ChangePercent: 1}, nil)
	assert.Equal(t, []string{"High volatility due to 2x leverage", "Market correction risk"}, risks)
}
