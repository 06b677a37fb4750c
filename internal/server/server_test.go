package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/bobmcallan/surge/internal/app"
	"github.com/bobmcallan/surge/internal/common"
	"github.com/bobmcallan/surge/internal/models"
	"github.com/bobmcallan/surge/internal/services/analysis"
	"github.com/bobmcallan/surge/internal/services/screener"
	"github.com/bobmcallan/surge/internal/universe"
)

// --- fakes ---

type fakeScreener struct {
	mu        sync.Mutex
	latest    *models.ScreenResult
	result    *models.ScreenResult
	err       error
	requests  []models.ScreenRequest
	listeners []func(*models.ScreenResult)
}

func (f *fakeScreener) Screen(_ context.Context, req models.ScreenRequest) (*models.ScreenResult, error) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	result, err := f.result, f.err
	listeners := append([]func(*models.ScreenResult){}, f.listeners...)
	f.mu.Unlock()
	if err != nil {
		return nil, err
	}
	for _, fn := range listeners {
		fn(result)
	}
	return result, nil
}

func (f *fakeScreener) Latest() *models.ScreenResult {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.latest
}

func (f *fakeScreener) OnComplete(fn func(*models.ScreenResult)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listeners = append(f.listeners, fn)
}

func (f *fakeScreener) RenderScoreChart(result *models.ScreenResult) ([]byte, error) {
	return screener.RenderScoreChart(result)
}

func (f *fakeScreener) calls() []models.ScreenRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.ScreenRequest{}, f.requests...)
}

type fakeNews struct {
	latest  *models.NewsFeed
	feed    *models.NewsFeed
	err     error
	queries []models.NewsQuery
}

func (f *fakeNews) GetNews(_ context.Context, q models.NewsQuery) (*models.NewsFeed, error) {
	f.queries = append(f.queries, q)
	return f.feed, f.err
}

func (f *fakeNews) Latest() *models.NewsFeed { return f.latest }

type fakeAnalysis struct {
	symbols []string
	err     error
}

func (f *fakeAnalysis) Analyze(_ context.Context, symbol string) (*models.Analysis, error) {
	if f.err != nil {
		return nil, f.err
	}
	norm, err := analysis.NormalizeSymbol(symbol)
	if err != nil {
		return nil, err
	}
	f.symbols = append(f.symbols, norm)
	return &models.Analysis{Symbol: norm, Source: models.SourceLive}, nil
}

func sampleResult() *models.ScreenResult {
	now := time.Date(2026, 3, 2, 15, 0, 0, 0, time.UTC)
	return &models.ScreenResult{
		RunID: "run-1",
		Stocks: []models.ScreenedStock{
			{Symbol: "SOXL", Price: 4.85, ChangePercent: 10.2, Volume: 25_400_000, AIScore: 100, Recommendation: models.RecommendationBuy},
			{Symbol: "LABU", Price: 3.2, ChangePercent: 9.1, Volume: 2_000_000, AIScore: 83, Recommendation: models.RecommendationBuy},
		},
		Source:      models.SourceLive,
		Screened:    20,
		Criteria:    models.DefaultCriteria(),
		StartedAt:   now.Add(-time.Minute),
		CompletedAt: now,
	}
}

type testServer struct {
	*Server
	screener *fakeScreener
	news     *fakeNews
	analysis *fakeAnalysis
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	u, err := universe.Default()
	if err != nil {
		t.Fatalf("universe.Default failed: %v", err)
	}
	ts := &testServer{
		screener: &fakeScreener{result: sampleResult()},
		news: &fakeNews{feed: &models.NewsFeed{
			Items:  []models.NewsItem{{ID: "n1", Title: "Chips rally", Sentiment: models.SentimentPositive, Impact: models.ImpactHigh}},
			Source: models.SourceLive,
		}},
		analysis: &fakeAnalysis{},
	}
	a := &app.App{
		Config:          common.NewDefaultConfig(),
		Logger:          common.NewSilentLogger(),
		Universe:        u,
		ScreenerService: ts.screener,
		NewsService:     ts.news,
		AnalysisService: ts.analysis,
		StartupTime:     time.Now(),
	}
	ts.Server = NewServer(a)
	t.Cleanup(ts.hub.Stop)
	return ts
}

func (ts *testServer) do(method, target string, body string) *httptest.ResponseRecorder {
	var r *http.Request
	if body == "" {
		r = httptest.NewRequest(method, target, nil)
	} else {
		r = httptest.NewRequest(method, target, strings.NewReader(body))
		r.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	ts.Handler().ServeHTTP(rr, r)
	return rr
}

type envelopeResponse struct {
	Success   bool            `json:"success"`
	Data      json.RawMessage `json:"data"`
	Meta      json.RawMessage `json:"meta"`
	Timestamp time.Time       `json:"timestamp"`
	Source    string          `json:"source"`
	Notice    string          `json:"notice"`
	Error     string          `json:"error"`
}

func decodeEnvelope(t *testing.T, rr *httptest.ResponseRecorder) envelopeResponse {
	t.Helper()
	var env envelopeResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &env); err != nil {
		t.Fatalf("Failed to decode envelope: %v (body %s)", err, rr.Body.String())
	}
	return env
}

// --- system ---

func TestHealth(t *testing.T) {
	ts := newTestServer(t)
	rr := ts.do(http.MethodGet, "/api/health", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), `"ok"`) {
		t.Errorf("Expected ok status, got %s", rr.Body.String())
	}
}

func TestVersion(t *testing.T) {
	ts := newTestServer(t)
	rr := ts.do(http.MethodGet, "/api/version", "")
	var info common.VersionInfo
	if err := json.Unmarshal(rr.Body.Bytes(), &info); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if info.Version == "" {
		t.Error("Expected a version string")
	}
}

func TestConfig_DoesNotExposeCredentials(t *testing.T) {
	ts := newTestServer(t)
	ts.app.Config.Clients.AlphaVantage.APIKey = "secret-av-key"
	ts.app.Config.Clients.Alpaca.APISecret = "secret-alpaca"

	rr := ts.do(http.MethodGet, "/api/config", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rr.Code)
	}
	body := rr.Body.String()
	if strings.Contains(body, "secret-av-key") || strings.Contains(body, "secret-alpaca") {
		t.Errorf("Config response leaked a credential: %s", body)
	}
	if !strings.Contains(body, "SOXL") {
		t.Errorf("Expected universe symbols in config response")
	}
}

func TestShutdown_ForbiddenInProduction(t *testing.T) {
	ts := newTestServer(t)
	ts.app.Config.Environment = "production"
	rr := ts.do(http.MethodPost, "/api/shutdown", "")
	if rr.Code != http.StatusForbidden {
		t.Errorf("Expected 403, got %d", rr.Code)
	}
}

func TestShutdown_SignalsChannel(t *testing.T) {
	ts := newTestServer(t)
	ch := make(chan struct{}, 1)
	ts.SetShutdownChannel(ch)

	rr := ts.do(http.MethodPost, "/api/shutdown", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rr.Code)
	}
	select {
	case <-ch:
	case <-time.After(2 * time.Second):
		t.Fatal("Shutdown channel not signalled")
	}
}

func TestMethodNotAllowed(t *testing.T) {
	ts := newTestServer(t)
	rr := ts.do(http.MethodDelete, "/api/screen", "")
	if rr.Code != http.StatusMethodNotAllowed {
		t.Fatalf("Expected 405, got %d", rr.Code)
	}
	if got := rr.Header().Get("Allow"); got != "GET, POST" {
		t.Errorf("Allow = %q, want %q", got, "GET, POST")
	}
	env := decodeEnvelope(t, rr)
	if env.Success || env.Error == "" {
		t.Errorf("Expected error envelope, got %+v", env)
	}
}

// --- screen ---

func TestScreen_GetRunsWhenNoLatest(t *testing.T) {
	ts := newTestServer(t)
	rr := ts.do(http.MethodGet, "/api/screen", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rr.Code, rr.Body.String())
	}

	env := decodeEnvelope(t, rr)
	if !env.Success || env.Source != models.SourceLive {
		t.Errorf("Unexpected envelope: %+v", env)
	}
	var stocks []models.ScreenedStock
	if err := json.Unmarshal(env.Data, &stocks); err != nil {
		t.Fatalf("decode stocks: %v", err)
	}
	if len(stocks) != 2 || stocks[0].Symbol != "SOXL" {
		t.Errorf("Unexpected stocks: %+v", stocks)
	}
	var meta screenMeta
	if err := json.Unmarshal(env.Meta, &meta); err != nil {
		t.Fatalf("decode meta: %v", err)
	}
	if meta.RunID != "run-1" || meta.Screened != 20 || meta.Matches != 2 {
		t.Errorf("Unexpected meta: %+v", meta)
	}
	if len(ts.screener.calls()) != 1 {
		t.Errorf("Expected one screen run, got %d", len(ts.screener.calls()))
	}
}

func TestScreen_GetServesLatestWithoutRunning(t *testing.T) {
	ts := newTestServer(t)
	latest := sampleResult()
	latest.Source = models.SourceSample
	latest.Notice = "sample"
	ts.screener.latest = latest

	env := decodeEnvelope(t, ts.do(http.MethodGet, "/api/screen", ""))
	if env.Source != models.SourceSample || env.Notice != "sample" {
		t.Errorf("Expected latest sample result, got %+v", env)
	}
	if n := len(ts.screener.calls()); n != 0 {
		t.Errorf("Expected no screen run, got %d", n)
	}
}

func TestScreen_GetWithSymbolsRuns(t *testing.T) {
	ts := newTestServer(t)
	ts.screener.latest = sampleResult()

	ts.do(http.MethodGet, "/api/screen?symbols=soxl,%20tqqq,", "")
	calls := ts.screener.calls()
	if len(calls) != 1 {
		t.Fatalf("Expected one screen run, got %d", len(calls))
	}
	if got := calls[0].Symbols; len(got) != 2 || got[0] != "soxl" || got[1] != "tqqq" {
		t.Errorf("Symbols = %v", got)
	}
}

func TestScreen_PostPassesCriteria(t *testing.T) {
	ts := newTestServer(t)
	rr := ts.do(http.MethodPost, "/api/screen", `{"symbols":["SOXL"],"criteria":{"max_price":10,"min_abs_change_percent":5,"min_volume":500000,"min_gap_up":6}}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rr.Code, rr.Body.String())
	}

	calls := ts.screener.calls()
	if len(calls) != 1 || calls[0].Criteria == nil {
		t.Fatalf("Expected criteria to be passed, got %+v", calls)
	}
	c := calls[0].Criteria
	if c.MaxPrice != 10 || c.MinAbsChangePercent != 5 || c.MinVolume != 500_000 || c.MinGapUp != 6 {
		t.Errorf("Unexpected criteria: %+v", c)
	}
}

func TestScreen_PostEmptyBody(t *testing.T) {
	ts := newTestServer(t)
	rr := ts.do(http.MethodPost, "/api/screen", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rr.Code)
	}
}

func TestScreen_PostInvalidJSON(t *testing.T) {
	ts := newTestServer(t)
	rr := ts.do(http.MethodPost, "/api/screen", `{"symbols":`)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("Expected 400, got %d", rr.Code)
	}
}

func TestScreen_NegativeCriteriaRejected(t *testing.T) {
	ts := newTestServer(t)
	rr := ts.do(http.MethodPost, "/api/screen", `{"criteria":{"max_price":-1}}`)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("Expected 400, got %d", rr.Code)
	}
	if n := len(ts.screener.calls()); n != 0 {
		t.Errorf("Expected no screen run, got %d", n)
	}
}

func TestScreen_ErrorMapping(t *testing.T) {
	tests := []struct {
		err  error
		code int
	}{
		{context.Canceled, http.StatusServiceUnavailable},
		{fmt.Errorf("run: %w", context.DeadlineExceeded), http.StatusServiceUnavailable},
		{errors.New("upstream down"), http.StatusBadGateway},
	}
	for _, tt := range tests {
		ts := newTestServer(t)
		ts.screener.err = tt.err
		rr := ts.do(http.MethodPost, "/api/screen", "")
		if rr.Code != tt.code {
			t.Errorf("err %v: expected %d, got %d", tt.err, tt.code, rr.Code)
		}
	}
}

func TestScreenChart_PNG(t *testing.T) {
	ts := newTestServer(t)
	ts.screener.latest = sampleResult()

	rr := ts.do(http.MethodGet, "/api/screen/chart", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if ct := rr.Header().Get("Content-Type"); ct != "image/png" {
		t.Errorf("Content-Type = %q", ct)
	}
	if !bytes.HasPrefix(rr.Body.Bytes(), []byte("\x89PNG")) {
		t.Error("Body is not a PNG")
	}
}

func TestScreenChart_NothingToChart(t *testing.T) {
	ts := newTestServer(t)
	empty := sampleResult()
	empty.Stocks = nil
	ts.screener.latest = empty

	rr := ts.do(http.MethodGet, "/api/screen/chart", "")
	if rr.Code != http.StatusNotFound {
		t.Errorf("Expected 404, got %d", rr.Code)
	}
}

// --- news ---

func TestNews_QueryPassthrough(t *testing.T) {
	ts := newTestServer(t)
	rr := ts.do(http.MethodGet, "/api/news?symbols=soxl,tqqq&topics=technology&limit=5", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rr.Code)
	}
	if len(ts.news.queries) != 1 {
		t.Fatalf("Expected one news query, got %d", len(ts.news.queries))
	}
	q := ts.news.queries[0]
	if len(q.Symbols) != 2 || q.Symbols[0] != "SOXL" || q.Limit != 5 || len(q.Topics) != 1 {
		t.Errorf("Unexpected query: %+v", q)
	}

	env := decodeEnvelope(t, rr)
	var items []models.NewsItem
	if err := json.Unmarshal(env.Data, &items); err != nil {
		t.Fatalf("decode items: %v", err)
	}
	if len(items) != 1 || items[0].Sentiment != models.SentimentPositive {
		t.Errorf("Unexpected items: %+v", items)
	}
}

func TestNews_DefaultServesLatest(t *testing.T) {
	ts := newTestServer(t)
	ts.news.latest = &models.NewsFeed{Source: models.SourceSample, Notice: "sample news"}

	env := decodeEnvelope(t, ts.do(http.MethodGet, "/api/news", ""))
	if env.Source != models.SourceSample || env.Notice != "sample news" {
		t.Errorf("Expected latest feed, got %+v", env)
	}
	if len(ts.news.queries) != 0 {
		t.Errorf("Expected no fetch, got %d", len(ts.news.queries))
	}
}

func TestNews_InvalidLimit(t *testing.T) {
	ts := newTestServer(t)
	for _, v := range []string{"0", "51", "abc"} {
		rr := ts.do(http.MethodGet, "/api/news?limit="+v, "")
		if rr.Code != http.StatusBadRequest {
			t.Errorf("limit=%s: expected 400, got %d", v, rr.Code)
		}
	}
}

// --- analysis ---

func TestAnalysis_PathSymbol(t *testing.T) {
	ts := newTestServer(t)
	rr := ts.do(http.MethodGet, "/api/analysis/soxl", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	var card models.Analysis
	if err := json.Unmarshal(decodeEnvelope(t, rr).Data, &card); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if card.Symbol != "SOXL" {
		t.Errorf("Symbol = %q, want SOXL", card.Symbol)
	}
}

func TestAnalysis_PostBody(t *testing.T) {
	ts := newTestServer(t)
	rr := ts.do(http.MethodPost, "/api/analysis", `{"symbol":"tqqq"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rr.Code)
	}
	if len(ts.analysis.symbols) != 1 || ts.analysis.symbols[0] != "TQQQ" {
		t.Errorf("Analyzed %v", ts.analysis.symbols)
	}
}

func TestAnalysis_BadRequests(t *testing.T) {
	ts := newTestServer(t)
	tests := []struct {
		method, target, body string
	}{
		{http.MethodGet, "/api/analysis", ""},
		{http.MethodPost, "/api/analysis", `{}`},
		{http.MethodGet, "/api/analysis/BAD;DROP", ""},
	}
	for _, tt := range tests {
		rr := ts.do(tt.method, tt.target, tt.body)
		if rr.Code != http.StatusBadRequest {
			t.Errorf("%s %s: expected 400, got %d", tt.method, tt.target, rr.Code)
		}
	}
}

func TestAnalysis_UpstreamError(t *testing.T) {
	ts := newTestServer(t)
	ts.analysis.err = errors.New("boom")
	rr := ts.do(http.MethodGet, "/api/analysis/SOXL", "")
	if rr.Code != http.StatusBadGateway {
		t.Errorf("Expected 502, got %d", rr.Code)
	}
}

// --- middleware ---

func TestCORSPreflight(t *testing.T) {
	ts := newTestServer(t)
	rr := ts.do(http.MethodOptions, "/api/screen", "")
	if rr.Code != http.StatusNoContent {
		t.Errorf("Expected 204, got %d", rr.Code)
	}
	if rr.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Error("Missing CORS header")
	}
}

func TestCorrelationID(t *testing.T) {
	ts := newTestServer(t)

	r := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	r.Header.Set("X-Request-ID", "abc123")
	rr := httptest.NewRecorder()
	ts.Handler().ServeHTTP(rr, r)
	if got := rr.Header().Get("X-Correlation-ID"); got != "abc123" {
		t.Errorf("X-Correlation-ID = %q, want abc123", got)
	}

	rr = ts.do(http.MethodGet, "/api/health", "")
	if got := rr.Header().Get("X-Correlation-ID"); len(got) != 8 {
		t.Errorf("Expected generated 8 char correlation ID, got %q", got)
	}
}

func TestRecoveryMiddleware(t *testing.T) {
	handler := recoveryMiddleware(common.NewSilentLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/screen", nil))
	if rr.Code != http.StatusInternalServerError {
		t.Errorf("Expected 500, got %d", rr.Code)
	}
}

func TestPathParam(t *testing.T) {
	tests := []struct {
		path, want string
	}{
		{"/api/analysis/SOXL", "SOXL"},
		{"/api/analysis/SOXL/extra", "SOXL"},
		{"/api/analysis/", ""},
		{"/api/other", ""},
	}
	for _, tt := range tests {
		r := httptest.NewRequest(http.MethodGet, tt.path, nil)
		if got := PathParam(r, "/api/analysis/", ""); got != tt.want {
			t.Errorf("PathParam(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}

// --- websocket ---

func TestWebSocket_ReceivesLatestThenBroadcasts(t *testing.T) {
	ts := newTestServer(t)
	ts.screener.latest = sampleResult()

	srv := httptest.NewServer(ts.Handler())
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	defer conn.Close()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	var first ScreenEvent
	if err := conn.ReadJSON(&first); err != nil {
		t.Fatalf("Read initial event: %v", err)
	}
	if first.Type != "screen" || first.RunID != "run-1" || len(first.Stocks) != 2 {
		t.Errorf("Unexpected initial event: %+v", first)
	}

	deadline := time.Now().Add(2 * time.Second)
	for ts.Hub().ClientCount() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}

	next := sampleResult()
	next.RunID = "run-2"
	ts.screener.result = next
	if rr := ts.do(http.MethodPost, "/api/screen", ""); rr.Code != http.StatusOK {
		t.Fatalf("Screen failed: %d", rr.Code)
	}

	var second ScreenEvent
	if err := conn.ReadJSON(&second); err != nil {
		t.Fatalf("Read broadcast event: %v", err)
	}
	if second.RunID != "run-2" {
		t.Errorf("Expected run-2 broadcast, got %q", second.RunID)
	}
}

func TestHub_StopDisconnectsClients(t *testing.T) {
	ts := newTestServer(t)
	srv := httptest.NewServer(ts.Handler())
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	defer conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for ts.Hub().ClientCount() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if ts.Hub().ClientCount() != 1 {
		t.Fatalf("Expected 1 client, got %d", ts.Hub().ClientCount())
	}

	ts.Hub().Stop()

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	if _, _, err := conn.ReadMessage(); err == nil {
		t.Error("Expected connection to close after hub stop")
	}
}
