// Package alphavantage provides a client for the Alpha Vantage API
package alphavantage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/bobmcallan/surge/internal/common"
	"github.com/bobmcallan/surge/internal/interfaces"
	"github.com/bobmcallan/surge/internal/throttle"
)

const (
	DefaultBaseURL     = "https://www.alphavantage.co/query"
	DefaultTimeout     = 30 * time.Second
	DefaultMinInterval = 12 * time.Second // free tier allows 5 calls per minute
	DefaultBatchSize   = 5
	DefaultBatchPause  = 12 * time.Second

	maxBodyBytes = 8 << 20
)

var (
	// ErrNoAPIKey is returned before any request is made when no key is configured
	ErrNoAPIKey = errors.New("alphavantage: api key not configured")

	// ErrMalformedResponse is returned when a body cannot be parsed as the expected shape
	ErrMalformedResponse = errors.New("alphavantage: malformed response")

	// ErrNoData is returned when a well-formed response carries no data for the symbol
	ErrNoData = errors.New("alphavantage: no data")
)

var _ interfaces.MarketDataClient = (*Client)(nil)

// Client implements the MarketDataClient interface
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *common.Logger
	limiter    *throttle.Limiter
}

// ClientOption configures the client
type ClientOption func(*Client)

// WithBaseURL sets the base URL
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		c.baseURL = baseURL
	}
}

// WithLogger sets the logger
func WithLogger(logger *common.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithLimiter sets the limiter every request waits on. The limiter may be
// shared with other callers of the same quota.
func WithLimiter(limiter *throttle.Limiter) ClientOption {
	return func(c *Client) {
		c.limiter = limiter
	}
}

// WithTimeout sets the HTTP timeout
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// NewClient creates a new Alpha Vantage client
func NewClient(apiKey string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: DefaultBaseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		limiter: throttle.NewLimiter(DefaultMinInterval, throttle.WithBatchPause(DefaultBatchSize, DefaultBatchPause)),
		logger:  common.NewSilentLogger(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Configured reports whether an API key is available
func (c *Client) Configured() bool {
	return c.apiKey != ""
}

// APIError represents a non-200 HTTP response
type APIError struct {
	StatusCode int
	Message    string
	Function   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("Alpha Vantage API error: %s (status: %d, function: %s)", e.Message, e.StatusCode, e.Function)
}

// NoticeError is an error the API reports inside an HTTP 200 body
type NoticeError struct {
	Kind     string // "Error Message", "Note" or "Information"
	Message  string
	Function string
}

func (e *NoticeError) Error() string {
	return fmt.Sprintf("Alpha Vantage %s: %s (function: %s)", strings.ToLower(e.Kind), e.Message, e.Function)
}

// RateLimited reports whether the notice is a quota or call-frequency message
func (e *NoticeError) RateLimited() bool {
	if e.Kind == "Note" {
		return true
	}
	msg := strings.ToLower(e.Message)
	return strings.Contains(msg, "rate limit") ||
		strings.Contains(msg, "call frequency") ||
		strings.Contains(msg, "requests per")
}

// IsRateLimited reports whether err carries an upstream rate-limit notice
func IsRateLimited(err error) bool {
	var notice *NoticeError
	return errors.As(err, &notice) && notice.RateLimited()
}

type noticeEnvelope struct {
	ErrorMessage string `json:"Error Message"`
	Note         string `json:"Note"`
	Information  string `json:"Information"`
}

func (n noticeEnvelope) err(function string) error {
	switch {
	case n.ErrorMessage != "":
		return &NoticeError{Kind: "Error Message", Message: n.ErrorMessage, Function: function}
	case n.Note != "":
		return &NoticeError{Kind: "Note", Message: n.Note, Function: function}
	case n.Information != "":
		return &NoticeError{Kind: "Information", Message: n.Information, Function: function}
	}
	return nil
}

// get performs a rate-limited query and decodes the body into result
func (c *Client) get(ctx context.Context, function string, params url.Values, result interface{}) error {
	if !c.Configured() {
		return ErrNoAPIKey
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	if params == nil {
		params = url.Values{}
	}
	params.Set("function", function)
	params.Set("apikey", c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	c.logger.Debug().Str("function", function).Str("symbol", params.Get("symbol")).Msg("Alpha Vantage API request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return &APIError{
			StatusCode: resp.StatusCode,
			Message:    strings.TrimSpace(string(body)),
			Function:   function,
		}
	}

	var notice noticeEnvelope
	if err := json.Unmarshal(body, &notice); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrMalformedResponse, function, err)
	}
	if err := notice.err(function); err != nil {
		c.logger.Warn().Str("function", function).Str("notice", err.Error()).Msg("Alpha Vantage returned a notice")
		return err
	}

	if err := json.Unmarshal(body, result); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrMalformedResponse, function, err)
	}
	return nil
}

// flexFloat64 handles JSON values that may be either a number or a string.
// The API reports missing values as "None", "-" or an empty string.
type flexFloat64 float64

func (f *flexFloat64) UnmarshalJSON(data []byte) error {
	var num float64
	if err := json.Unmarshal(data, &num); err == nil {
		*f = flexFloat64(num)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		num, ok := parseOptionalFloat(s)
		if !ok {
			*f = 0
			return nil
		}
		*f = flexFloat64(num)
		return nil
	}
	return fmt.Errorf("cannot unmarshal %s into float64", string(data))
}

func parseOptionalFloat(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	switch s {
	case "", "None", "-", "N/A":
		return 0, false
	}
	num, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return num, true
}

// parseFloat parses a required numeric field
func parseFloat(field, s string) (float64, error) {
	num, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, fmt.Errorf("%w: field %q: %q is not a number", ErrMalformedResponse, field, s)
	}
	return num, nil
}

// parsePercent parses values such as "10.20%"
func parsePercent(field, s string) (float64, error) {
	return parseFloat(field, strings.TrimSuffix(strings.TrimSpace(s), "%"))
}
