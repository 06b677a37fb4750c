package server

import (
	"net/http"
	"runtime"
	"time"

	"github.com/bobmcallan/surge/internal/common"
)

// registerRoutes sets up all REST API routes on the mux.
func (s *Server) registerRoutes(mux *http.ServeMux) {
	// System
	mux.HandleFunc("/api/health", s.handleHealth)
	mux.HandleFunc("/api/version", s.handleVersion)
	mux.HandleFunc("/api/config", s.handleConfig)
	mux.HandleFunc("/api/shutdown", s.handleShutdown)

	// Screening
	mux.HandleFunc("/api/screen", s.handleScreen)
	mux.HandleFunc("/api/screen/chart", s.handleScreenChart)
	mux.HandleFunc("/api/ws", s.handleWS)

	// News and analysis
	mux.HandleFunc("/api/news", s.handleNews)
	mux.HandleFunc("/api/analysis/", s.handleAnalysis)
	mux.HandleFunc("/api/analysis", s.handleAnalysis)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet, http.MethodHead) {
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet, http.MethodHead) {
		return
	}
	WriteJSON(w, http.StatusOK, common.GetVersionInfo())
}

// handleConfig reports the effective runtime settings. Credentials are
// reported only as present or absent.
func (s *Server) handleConfig(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	cfg := s.app.Config

	WriteData(w, map[string]interface{}{
		"environment": cfg.Environment,
		"live":        s.app.QuoteService != nil && s.app.QuoteService.Configured(),
		"alpaca":      cfg.Clients.Alpaca.Enabled,
		"symbols":     s.screenSymbols(),
		"screener": map[string]interface{}{
			"refresh_interval": cfg.Screener.GetRefreshInterval().String(),
			"workers":          cfg.Screener.Workers,
			"fetch_overview":   cfg.Screener.FetchOverview,
		},
		"rate_limit": map[string]interface{}{
			"min_interval": cfg.Clients.AlphaVantage.GetMinInterval().String(),
			"batch_size":   cfg.Clients.AlphaVantage.BatchSize,
			"batch_pause":  cfg.Clients.AlphaVantage.GetBatchPause().String(),
		},
		"news": map[string]interface{}{
			"topics":           cfg.News.Topics,
			"limit":            cfg.News.Limit,
			"refresh_interval": cfg.News.GetRefreshInterval().String(),
		},
		"uptime":     time.Since(s.app.StartupTime).Round(time.Second).String(),
		"goroutines": runtime.NumGoroutine(),
		"ws_clients": s.hub.ClientCount(),
	}, "", "")
}

func (s *Server) screenSymbols() []string {
	if len(s.app.Config.Screener.Symbols) > 0 {
		return s.app.Config.Screener.Symbols
	}
	if s.app.Universe != nil {
		return s.app.Universe.Symbols()
	}
	return nil
}

// handleShutdown handles POST /api/shutdown (dev mode only).
func (s *Server) handleShutdown(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	if s.app.Config.IsProduction() {
		WriteError(w, http.StatusForbidden, "Shutdown endpoint disabled in production")
		return
	}

	s.logger.Info().Msg("Shutdown requested via HTTP endpoint")

	w.WriteHeader(http.StatusOK)
	w.Write([]byte("Shutting down gracefully...\n"))

	if flusher, ok := w.(http.Flusher); ok {
		flusher.Flush()
	}

	if s.shutdownChan != nil {
		go func() {
			time.Sleep(100 * time.Millisecond)
			s.shutdownChan <- struct{}{}
		}()
	}
}
