package screener

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/bobmcallan/surge/internal/models"
)

// ErrNothingToChart is returned when a result has no stocks
var ErrNothingToChart = errors.New("no screened stocks to chart")

// maxChartBars limits the chart to the top-ranked stocks
const maxChartBars = 20

var recommendationColors = map[models.Recommendation]drawing.Color{
	models.RecommendationBuy:  drawing.ColorFromHex("16a34a"), // green-600
	models.RecommendationHold: drawing.ColorFromHex("ca8a04"), // yellow-600
	models.RecommendationSell: drawing.ColorFromHex("dc2626"), // red-600
}

// RenderScoreChart renders a PNG bar chart of AI scores, one bar per stock in
// ranked order, coloured by recommendation.
func (s *Service) RenderScoreChart(result *models.ScreenResult) ([]byte, error) {
	return RenderScoreChart(result)
}

// RenderScoreChart renders a result's AI scores as PNG bytes
func RenderScoreChart(result *models.ScreenResult) ([]byte, error) {
	if result == nil || len(result.Stocks) == 0 {
		return nil, ErrNothingToChart
	}

	stocks := result.Stocks
	if len(stocks) > maxChartBars {
		stocks = stocks[:maxChartBars]
	}

	bars := make([]chart.Value, len(stocks))
	for i, st := range stocks {
		color, ok := recommendationColors[st.Recommendation]
		if !ok {
			color = drawing.ColorFromHex("6b7280") // gray-500
		}
		bars[i] = chart.Value{
			Label: st.Symbol,
			Value: float64(st.AIScore),
			Style: chart.Style{
				FillColor:   color,
				StrokeColor: color,
				StrokeWidth: 1,
			},
		}
	}

	title := "AI Score"
	if result.Source == models.SourceSample {
		title = "AI Score (sample data)"
	}

	graph := chart.BarChart{
		Title:  title,
		Width:  900,
		Height: 400,
		Background: chart.Style{
			Padding: chart.Box{Top: 40, Left: 10, Right: 20, Bottom: 10},
		},
		BarWidth: 30,
		YAxis: chart.YAxis{
			Range: &chart.ContinuousRange{Min: 0, Max: 100},
			ValueFormatter: func(v interface{}) string {
				if f, ok := v.(float64); ok {
					return fmt.Sprintf("%.0f", f)
				}
				return ""
			},
		},
		Bars: bars,
	}

	var buf bytes.Buffer
	if err := graph.Render(chart.PNG, &buf); err != nil {
		return nil, fmt.Errorf("chart render failed: %w", err)
	}
	return buf.Bytes(), nil
}
