package analysis

import (
	"fmt"
	"math"
	"strings"

	"github.com/bobmcallan/surge/internal/models"
	"github.com/bobmcallan/surge/internal/signals"
)

// Heuristic bands
const (
	trendThreshold     = 2.0
	rsiOverbought      = 70.0
	rsiOversold        = 30.0
	aboveAverageVolume = 1_000_000
	belowAverageVolume = 250_000
	strongMomentum     = 8.0
	moderateMomentum   = 3.0
	priceTargetFactor  = 1.08
	stopLossFactor     = 0.90
	extremeMovePercent = 10.0
	lowPriceThreshold  = 5.0
	defaultTimeHorizon = "SHORT_TERM"
	unavailableLabel   = "UNAVAILABLE"
	neutralLabel       = "NEUTRAL"
	defaultSectorLabel = "Unknown"
)

// Inputs is everything an analysis card is derived from. Only Quote is required.
type Inputs struct {
	Quote     models.SymbolQuote
	Profile   models.SymbolProfile
	Overview  *models.CompanyOverview
	RSI       *models.IndicatorValue
	MACD      *models.MACDValue
	Headlines []string
}

// Build derives an analysis card from its inputs
func Build(in Inputs) *models.Analysis {
	q := in.Quote
	name := displayName(in)

	tech := models.TechnicalAnalysis{
		Trend:      Trend(q.ChangePercent),
		Support:    q.Low,
		Resistance: q.High,
		MACD:       MACDSignal(in.MACD),
		Volume:     VolumeLabel(q.Volume),
		Pattern:    signals.ChartPattern(q.ChangePercent),
	}
	if tech.Support <= 0 {
		tech.Support = roundCents(q.Price * 0.95)
	}
	if tech.Resistance <= 0 {
		tech.Resistance = roundCents(q.Price * 1.05)
	}
	if in.RSI != nil {
		v := in.RSI.Value
		tech.RSI = &v
		tech.RSISignal = RSISignal(v)
	}

	fund := models.FundamentalAnalysis{
		Sector:    defaultSectorLabel,
		MarketCap: in.Profile.MarketCap,
		Momentum:  Momentum(q.ChangePercent),
		Catalysts: catalysts(in),
	}
	if ov := in.Overview; ov != nil {
		if ov.Sector != "" {
			fund.Sector = ov.Sector
		}
		if ov.MarketCap > 0 {
			fund.MarketCap = ov.MarketCap
		}
		if ov.PERatio > 0 {
			pe := ov.PERatio
			fund.PERatio = &pe
		}
	}

	score := signals.Evaluate(q.ChangePercent, q.Volume)
	call := models.AnalysisCall{
		Action:      score.Recommendation,
		Confidence:  score.AIScore,
		PriceTarget: roundCents(q.Price * priceTargetFactor),
		StopLoss:    roundCents(q.Price * stopLossFactor),
		TimeHorizon: defaultTimeHorizon,
	}
	call.Reasoning = reasoning(name, q, tech, score)

	return &models.Analysis{
		Symbol:              q.Symbol,
		TechnicalAnalysis:   tech,
		FundamentalAnalysis: fund,
		Recommendation:      call,
		RiskFactors:         RiskFactors(name, q, in.RSI),
		Source:              models.SourceLive,
	}
}

// Trend labels the day's move
func Trend(changePercent float64) string {
	switch {
	case changePercent > trendThreshold:
		return "BULLISH"
	case changePercent < -trendThreshold:
		return "BEARISH"
	default:
		return neutralLabel
	}
}

// RSISignal labels an RSI value
func RSISignal(rsi float64) string {
	switch {
	case rsi > rsiOverbought:
		return "OVERBOUGHT"
	case rsi < rsiOversold:
		return "OVERSOLD"
	default:
		return neutralLabel
	}
}

// MACDSignal labels the latest MACD point
func MACDSignal(m *models.MACDValue) string {
	switch {
	case m == nil:
		return unavailableLabel
	case m.Histogram > 0 && m.MACD > m.Signal:
		return "BULLISH_CROSSOVER"
	case m.Histogram < 0 && m.MACD < m.Signal:
		return "BEARISH_CROSSOVER"
	default:
		return neutralLabel
	}
}

// VolumeLabel labels the day's share volume
func VolumeLabel(volume int64) string {
	switch {
	case volume > aboveAverageVolume:
		return "ABOVE_AVERAGE"
	case volume >= belowAverageVolume:
		return "AVERAGE"
	default:
		return "BELOW_AVERAGE"
	}
}

// Momentum labels the size of the day's move
func Momentum(changePercent float64) string {
	switch abs := math.Abs(changePercent); {
	case abs >= strongMomentum:
		return "STRONG"
	case abs >= moderateMomentum:
		return "MODERATE"
	default:
		return "WEAK"
	}
}

// RiskFactors lists the risks that apply to a symbol
func RiskFactors(name string, q models.SymbolQuote, rsi *models.IndicatorValue) []string {
	var risks []string
	upper := strings.ToUpper(name)
	switch {
	case strings.Contains(upper, "3X"):
		risks = append(risks, "High volatility due to 3x leverage")
	case strings.Contains(upper, "2X"):
		risks = append(risks, "High volatility due to 2x leverage")
	}
	if math.Abs(q.ChangePercent) > extremeMovePercent {
		risks = append(risks, fmt.Sprintf("Extreme daily move of %.1f%%", q.ChangePercent))
	}
	if rsi != nil && rsi.Value > rsiOverbought {
		risks = append(risks, "RSI indicates overbought conditions")
	}
	if q.Price > 0 && q.Price < lowPriceThreshold {
		risks = append(risks, "Low-priced security with wide spreads")
	}
	return append(risks, "Market correction risk")
}

func displayName(in Inputs) string {
	if in.Overview != nil && in.Overview.Name != "" {
		return in.Overview.Name
	}
	if in.Profile.Name != "" {
		return in.Profile.Name
	}
	return in.Quote.Symbol
}

func catalysts(in Inputs) []string {
	out := make([]string, 0, maxCatalysts)
	for _, h := range in.Headlines {
		if h = strings.TrimSpace(h); h != "" && len(out) < maxCatalysts {
			out = append(out, h)
		}
	}
	if len(out) == 0 && in.Profile.Headline != "" {
		out = append(out, in.Profile.Headline)
	}
	return out
}

func reasoning(name string, q models.SymbolQuote, tech models.TechnicalAnalysis, score signals.Score) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s moved %+.2f%% on %s volume", name, q.ChangePercent, strings.ToLower(strings.ReplaceAll(tech.Volume, "_", " ")))
	fmt.Fprintf(&b, " with a %s.", strings.ToLower(score.ChartPattern))
	if tech.RSISignal != "" && tech.RSISignal != neutralLabel {
		fmt.Fprintf(&b, " RSI is %s.", strings.ToLower(tech.RSISignal))
	}
	if tech.MACD == "BULLISH_CROSSOVER" || tech.MACD == "BEARISH_CROSSOVER" {
		fmt.Fprintf(&b, " MACD shows a %s.", strings.ToLower(strings.ReplaceAll(tech.MACD, "_", " ")))
	}
	fmt.Fprintf(&b, " AI score %d supports a %s call.", score.AIScore, score.Recommendation)
	return b.String()
}

func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}
