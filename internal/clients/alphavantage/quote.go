package alphavantage

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/bobmcallan/surge/internal/models"
)

type globalQuoteResponse struct {
	GlobalQuote struct {
		Symbol           string `json:"01. symbol"`
		Open             string `json:"02. open"`
		High             string `json:"03. high"`
		Low              string `json:"04. low"`
		Price            string `json:"05. price"`
		Volume           string `json:"06. volume"`
		LatestTradingDay string `json:"07. latest trading day"`
		PreviousClose    string `json:"08. previous close"`
		Change           string `json:"09. change"`
		ChangePercent    string `json:"10. change percent"`
	} `json:"Global Quote"`
}

// GetQuote retrieves the latest quote via GLOBAL_QUOTE
func (c *Client) GetQuote(ctx context.Context, symbol string) (*models.SymbolQuote, error) {
	params := url.Values{}
	params.Set("symbol", symbol)

	var resp globalQuoteResponse
	if err := c.get(ctx, "GLOBAL_QUOTE", params, &resp); err != nil {
		return nil, err
	}

	gq := resp.GlobalQuote
	if gq.Price == "" {
		return nil, fmt.Errorf("%w: quote for %s", ErrNoData, symbol)
	}

	quote := &models.SymbolQuote{
		Symbol: strings.ToUpper(symbol),
		Source: "alphavantage",
	}
	if gq.Symbol != "" {
		quote.Symbol = gq.Symbol
	}

	var err error
	if quote.Price, err = parseFloat("05. price", gq.Price); err != nil {
		return nil, err
	}
	if quote.Change, err = parseFloat("09. change", gq.Change); err != nil {
		return nil, err
	}
	if quote.ChangePercent, err = parsePercent("10. change percent", gq.ChangePercent); err != nil {
		return nil, err
	}
	if quote.Volume, err = strconv.ParseInt(strings.TrimSpace(gq.Volume), 10, 64); err != nil {
		return nil, fmt.Errorf("%w: field %q: %q is not an integer", ErrMalformedResponse, "06. volume", gq.Volume)
	}

	quote.Open, _ = parseOptionalFloat(gq.Open)
	quote.High, _ = parseOptionalFloat(gq.High)
	quote.Low, _ = parseOptionalFloat(gq.Low)
	quote.PreviousClose, _ = parseOptionalFloat(gq.PreviousClose)
	if day, err := time.Parse("2006-01-02", gq.LatestTradingDay); err == nil {
		quote.LatestTradingDay = day
	}

	return quote, nil
}

type overviewResponse struct {
	Symbol               string      `json:"Symbol"`
	Name                 string      `json:"Name"`
	Sector               string      `json:"Sector"`
	Industry             string      `json:"Industry"`
	MarketCapitalization flexFloat64 `json:"MarketCapitalization"`
	SharesOutstanding    flexFloat64 `json:"SharesOutstanding"`
	PERatio              flexFloat64 `json:"PERatio"`
}

// GetOverview retrieves company fundamentals via OVERVIEW.
// Most leveraged ETFs have no overview; those return ErrNoData.
func (c *Client) GetOverview(ctx context.Context, symbol string) (*models.CompanyOverview, error) {
	params := url.Values{}
	params.Set("symbol", symbol)

	var resp overviewResponse
	if err := c.get(ctx, "OVERVIEW", params, &resp); err != nil {
		return nil, err
	}
	if resp.Symbol == "" && resp.Name == "" {
		return nil, fmt.Errorf("%w: overview for %s", ErrNoData, symbol)
	}

	return &models.CompanyOverview{
		Symbol:            strings.ToUpper(symbol),
		Name:              resp.Name,
		Sector:            noneToEmpty(resp.Sector),
		Industry:          noneToEmpty(resp.Industry),
		MarketCap:         float64(resp.MarketCapitalization),
		SharesOutstanding: int64(resp.SharesOutstanding),
		PERatio:           float64(resp.PERatio),
	}, nil
}

func noneToEmpty(s string) string {
	if s == "None" || s == "-" {
		return ""
	}
	return s
}
