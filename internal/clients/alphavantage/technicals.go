package alphavantage

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"time"

	"github.com/bobmcallan/surge/internal/models"
)

// DefaultRSIPeriod is used when GetRSI is called with a non-positive period
const DefaultRSIPeriod = 14

type rsiResponse struct {
	Series map[string]struct {
		RSI string `json:"RSI"`
	} `json:"Technical Analysis: RSI"`
}

type macdResponse struct {
	Series map[string]struct {
		MACD   string `json:"MACD"`
		Signal string `json:"MACD_Signal"`
		Hist   string `json:"MACD_Hist"`
	} `json:"Technical Analysis: MACD"`
}

// GetRSI retrieves the most recent daily RSI value
func (c *Client) GetRSI(ctx context.Context, symbol string, period int) (*models.IndicatorValue, error) {
	if period <= 0 {
		period = DefaultRSIPeriod
	}
	params := url.Values{}
	params.Set("symbol", symbol)
	params.Set("interval", "daily")
	params.Set("time_period", strconv.Itoa(period))
	params.Set("series_type", "close")

	var resp rsiResponse
	if err := c.get(ctx, "RSI", params, &resp); err != nil {
		return nil, err
	}

	key, date, ok := latestDate(keys(resp.Series))
	if !ok {
		return nil, fmt.Errorf("%w: RSI for %s", ErrNoData, symbol)
	}
	value, err := parseFloat("RSI", resp.Series[key].RSI)
	if err != nil {
		return nil, err
	}
	return &models.IndicatorValue{Date: date, Value: value}, nil
}

// GetMACD retrieves the most recent daily MACD value
func (c *Client) GetMACD(ctx context.Context, symbol string) (*models.MACDValue, error) {
	params := url.Values{}
	params.Set("symbol", symbol)
	params.Set("interval", "daily")
	params.Set("series_type", "close")

	var resp macdResponse
	if err := c.get(ctx, "MACD", params, &resp); err != nil {
		return nil, err
	}

	key, date, ok := latestDate(keys(resp.Series))
	if !ok {
		return nil, fmt.Errorf("%w: MACD for %s", ErrNoData, symbol)
	}
	point := resp.Series[key]

	v := &models.MACDValue{Date: date}
	var err error
	if v.MACD, err = parseFloat("MACD", point.MACD); err != nil {
		return nil, err
	}
	if v.Signal, err = parseFloat("MACD_Signal", point.Signal); err != nil {
		return nil, err
	}
	if v.Histogram, err = parseFloat("MACD_Hist", point.Hist); err != nil {
		return nil, err
	}
	return v, nil
}

func keys[V any](m map[string]V) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}

// latestDate returns the most recent of the series keys. Keys are either
// dates or date-times; unparseable keys are ignored.
func latestDate(series []string) (string, time.Time, bool) {
	sort.Strings(series)
	for i := len(series) - 1; i >= 0; i-- {
		for _, layout := range []string{"2006-01-02", "2006-01-02 15:04", "2006-01-02 15:04:05"} {
			if t, err := time.Parse(layout, series[i]); err == nil {
				return series[i], t, true
			}
		}
	}
	return "", time.Time{}, false
}
