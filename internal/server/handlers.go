package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/bobmcallan/surge/internal/models"
	"github.com/bobmcallan/surge/internal/services/analysis"
	"github.com/bobmcallan/surge/internal/services/screener"
)

// screenMeta accompanies the ranked stocks of a screen response
type screenMeta struct {
	RunID       string               `json:"run_id"`
	Screened    int                  `json:"screened"`
	Matches     int                  `json:"matches"`
	Failed      []models.SymbolError `json:"failed,omitempty"`
	Criteria    models.Criteria      `json:"criteria"`
	StartedAt   time.Time            `json:"started_at"`
	CompletedAt time.Time            `json:"completed_at"`
}

func writeScreenResult(w http.ResponseWriter, result *models.ScreenResult) {
	stocks := result.Stocks
	if stocks == nil {
		stocks = []models.ScreenedStock{}
	}
	WriteJSON(w, http.StatusOK, Envelope{
		Success: true,
		Data:    stocks,
		Meta: screenMeta{
			RunID:       result.RunID,
			Screened:    result.Screened,
			Matches:     len(stocks),
			Failed:      result.Failed,
			Criteria:    result.Criteria,
			StartedAt:   result.StartedAt.UTC(),
			CompletedAt: result.CompletedAt.UTC(),
		},
		Timestamp: result.CompletedAt.UTC(),
		Source:    result.Source,
		Notice:    result.Notice,
	})
}

// writeRunError maps a failed run to a response: 503 when cancelled, 502 otherwise
func (s *Server) writeRunError(w http.ResponseWriter, what string, err error) {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		WriteError(w, http.StatusServiceUnavailable, fmt.Sprintf("%s cancelled: %v", what, err))
		return
	}
	s.logger.Error().Err(err).Str("operation", what).Msg("Request failed")
	WriteError(w, http.StatusBadGateway, fmt.Sprintf("%s failed: %v", what, err))
}

// handleScreen serves GET (latest result, running one if none exists or when
// ?symbols= is given) and POST (run now with an optional body).
func (s *Server) handleScreen(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet, http.MethodPost) {
		return
	}

	var req models.ScreenRequest
	if r.Method == http.MethodPost {
		if !DecodeJSON(w, r, &req) {
			return
		}
	} else {
		req.Symbols = splitList(r.URL.Query().Get("symbols"))
		if len(req.Symbols) == 0 {
			if latest := s.app.ScreenerService.Latest(); latest != nil {
				writeScreenResult(w, latest)
				return
			}
		}
	}

	if c := req.Criteria; c != nil {
		if c.MaxPrice < 0 || c.MinAbsChangePercent < 0 || c.MinVolume < 0 {
			WriteError(w, http.StatusBadRequest, "Criteria thresholds must not be negative")
			return
		}
	}

	result, err := s.app.ScreenerService.Screen(r.Context(), req)
	if err != nil {
		s.writeRunError(w, "Screen", err)
		return
	}
	writeScreenResult(w, result)
}

// handleScreenChart renders the AI scores of the latest result as a PNG
func (s *Server) handleScreenChart(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	result := s.app.ScreenerService.Latest()
	if result == nil {
		var err error
		result, err = s.app.ScreenerService.Screen(r.Context(), models.ScreenRequest{})
		if err != nil {
			s.writeRunError(w, "Screen", err)
			return
		}
	}

	png, err := s.app.ScreenerService.RenderScoreChart(result)
	if err != nil {
		if errors.Is(err, screener.ErrNothingToChart) {
			WriteError(w, http.StatusNotFound, "No screened stocks to chart")
			return
		}
		s.logger.Error().Err(err).Msg("Chart render failed")
		WriteError(w, http.StatusInternalServerError, "Chart render failed")
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	w.Write(png)
}

// handleNews serves the catalyst feed. Query: symbols, topics, limit.
func (s *Server) handleNews(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	q := r.URL.Query()
	query := models.NewsQuery{
		Symbols: splitList(strings.ToUpper(q.Get("symbols"))),
		Topics:  splitList(q.Get("topics")),
	}
	if v := q.Get("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit < 1 || limit > 50 {
			WriteError(w, http.StatusBadRequest, "limit must be between 1 and 50")
			return
		}
		query.Limit = limit
	}

	if query.Symbols == nil && query.Topics == nil && query.Limit == 0 {
		if latest := s.app.NewsService.Latest(); latest != nil {
			WriteData(w, latest.Items, latest.Source, latest.Notice)
			return
		}
	}

	feed, err := s.app.NewsService.GetNews(r.Context(), query)
	if err != nil {
		s.writeRunError(w, "News", err)
		return
	}
	items := feed.Items
	if items == nil {
		items = []models.NewsItem{}
	}
	WriteData(w, items, feed.Source, feed.Notice)
}

// handleAnalysis serves /api/analysis/{symbol} and POST /api/analysis with
// a {"symbol": "..."} body.
func (s *Server) handleAnalysis(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet, http.MethodPost) {
		return
	}

	symbol := PathParam(r, "/api/analysis/", "")
	if symbol == "" && r.Method == http.MethodPost {
		var body struct {
			Symbol string `json:"symbol"`
		}
		if !DecodeJSON(w, r, &body) {
			return
		}
		symbol = body.Symbol
	}
	if symbol == "" {
		WriteError(w, http.StatusBadRequest, "symbol is required")
		return
	}

	card, err := s.app.AnalysisService.Analyze(r.Context(), symbol)
	if err != nil {
		if errors.Is(err, analysis.ErrInvalidSymbol) {
			WriteError(w, http.StatusBadRequest, err.Error())
			return
		}
		s.writeRunError(w, "Analysis", err)
		return
	}
	WriteData(w, card, card.Source, card.Notice)
}

// handleWS upgrades to a websocket that receives every completed screen,
// starting with the latest one.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	s.hub.ServeWS(w, r, s.app.ScreenerService.Latest())
}
