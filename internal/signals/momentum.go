// Package signals provides the momentum scoring heuristics
package signals

import (
	"math"
	"sort"

	"github.com/bobmcallan/surge/internal/models"
)

const (
	// AvgVolumeFactor estimates average volume from today's volume.
	// There is no trailing-window volume source, so the result is flagged as estimated.
	AvgVolumeFactor = 0.7

	// FloatFactor estimates the tradable float from shares outstanding.
	FloatFactor = 0.8

	baseScore        = 50.0
	maxMomentumBonus = 30.0
	volatilityBonus  = 15.0
)

// Score is the output of the scoring function for one quote
type Score struct {
	AIScore        int
	Recommendation models.Recommendation
	ChartPattern   string
}

// Evaluate scores a quote's percent change and volume
func Evaluate(changePercent float64, volume int64) Score {
	return Score{
		AIScore:        AIScore(changePercent, volume),
		Recommendation: RecommendationFor(changePercent),
		ChartPattern:   ChartPattern(changePercent),
	}
}

// AIScore is a 0-100 composite of momentum and volume.
// 50 base, plus twice the percent change capped at +30, plus a volume tier
// bonus, plus 15 when the move exceeds 10% either way.
func AIScore(changePercent float64, volume int64) int {
	if math.IsNaN(changePercent) {
		changePercent = 0
	}

	score := baseScore
	score += math.Min(changePercent*2, maxMomentumBonus)
	score += volumeBonus(volume)
	if math.Abs(changePercent) > 10 {
		score += volatilityBonus
	}

	score = math.Max(0, math.Min(100, score))
	return int(math.Floor(score))
}

func volumeBonus(volume int64) float64 {
	switch {
	case volume >= 5_000_000:
		return 20
	case volume >= 2_000_000:
		return 15
	case volume >= 1_000_000:
		return 10
	default:
		return 0
	}
}

// RecommendationFor maps percent change to BUY (up), SELL (down more than 5%) or HOLD
func RecommendationFor(changePercent float64) models.Recommendation {
	switch {
	case changePercent > 0:
		return models.RecommendationBuy
	case changePercent < -5:
		return models.RecommendationSell
	default:
		return models.RecommendationHold
	}
}

// patternBand labels moves above (or, for negative bands, below) a threshold.
type patternBand struct {
	above     bool
	threshold float64
	label     string
}

// Evaluated in order; the first matching band wins.
var patternBands = []patternBand{
	{true, 8, "Bullish breakout above resistance"},
	{true, 5, "Ascending triangle breakout"},
	{true, 2, "Cup and handle formation"},
	{false, -8, "Bearish breakdown below support"},
	{false, -5, "Descending triangle breakdown"},
}

// SidewaysPattern is the label used when no percent-change band matches
const SidewaysPattern = "Sideways consolidation pattern"

// ChartPattern returns the chart-pattern label for a percent change
func ChartPattern(changePercent float64) string {
	for _, b := range patternBands {
		if b.above && changePercent > b.threshold {
			return b.label
		}
		if !b.above && changePercent < b.threshold {
			return b.label
		}
	}
	return SidewaysPattern
}

// EstimateAvgVolume returns the crude average-volume estimate for today's volume
func EstimateAvgVolume(volume int64) float64 {
	return float64(volume) * AvgVolumeFactor
}

// RelativeVolume returns volume/avgVolume, or 0 when no baseline exists
func RelativeVolume(volume int64, avgVolume float64) float64 {
	if avgVolume <= 0 {
		return 0
	}
	return float64(volume) / avgVolume
}

// EstimateFloat returns the tradable-float estimate for a share count
func EstimateFloat(sharesOutstanding int64) float64 {
	return float64(sharesOutstanding) * FloatFactor
}

// Build derives the screened record for a quote. The profile supplies the
// display name, market cap, share count and headline; any of them may be empty.
func Build(q models.SymbolQuote, p models.SymbolProfile) models.ScreenedStock {
	avg := EstimateAvgVolume(q.Volume)
	score := Evaluate(q.ChangePercent, q.Volume)

	name := p.Name
	if name == "" {
		name = q.Symbol + " ETF"
	}
	headline := p.Headline
	if headline == "" {
		headline = "Market momentum continues with strong volume"
	}

	stock := models.ScreenedStock{
		Symbol:                  q.Symbol,
		Name:                    name,
		Price:                   q.Price,
		Change:                  q.Change,
		ChangePercent:           q.ChangePercent,
		Volume:                  q.Volume,
		AvgVolume:               avg,
		AvgVolumeEstimated:      true,
		RelativeVolume:          RelativeVolume(q.Volume, avg),
		RelativeVolumeEstimated: true,
		MarketCap:               p.MarketCap,
		GapUp:                   q.ChangePercent,
		News:                    headline,
		AIScore:                 score.AIScore,
		Recommendation:          score.Recommendation,
		ChartPattern:            score.ChartPattern,
	}
	if p.SharesOutstanding > 0 {
		stock.Float = EstimateFloat(p.SharesOutstanding)
		stock.FloatEstimated = true
	}
	return stock
}

// NormalizeCriteria fills the mandatory thresholds of c that are zero from base
func NormalizeCriteria(c, base models.Criteria) models.Criteria {
	if c.MaxPrice <= 0 {
		c.MaxPrice = base.MaxPrice
	}
	if c.MinAbsChangePercent <= 0 {
		c.MinAbsChangePercent = base.MinAbsChangePercent
	}
	if c.MinVolume <= 0 {
		c.MinVolume = base.MinVolume
	}
	return c
}

// Matches reports whether a screened stock satisfies the criteria
func Matches(s models.ScreenedStock, c models.Criteria) bool {
	if !(s.Price < c.MaxPrice) {
		return false
	}
	if math.Abs(s.ChangePercent) < c.MinAbsChangePercent {
		return false
	}
	if s.Volume <= c.MinVolume {
		return false
	}
	if c.MinGapUp > 0 && s.GapUp < c.MinGapUp {
		return false
	}
	if c.MinRelativeVolume > 0 && s.RelativeVolume < c.MinRelativeVolume {
		return false
	}
	if c.MaxFloat > 0 && s.Float > c.MaxFloat {
		return false
	}
	if c.MinMarketCap > 0 && s.MarketCap < c.MinMarketCap {
		return false
	}
	return true
}

// Filter returns the stocks that satisfy the criteria, preserving order
func Filter(stocks []models.ScreenedStock, c models.Criteria) []models.ScreenedStock {
	out := make([]models.ScreenedStock, 0, len(stocks))
	for _, s := range stocks {
		if Matches(s, c) {
			out = append(out, s)
		}
	}
	return out
}

// Rank sorts stocks by AI score, highest first. Ties keep their input order.
func Rank(stocks []models.ScreenedStock) {
	sort.SliceStable(stocks, func(i, j int) bool {
		return stocks[i].AIScore > stocks[j].AIScore
	})
}
