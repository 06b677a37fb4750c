// Package server exposes the screener, news and analysis services over HTTP
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/bobmcallan/surge/internal/app"
	"github.com/bobmcallan/surge/internal/common"
)

// Server wraps the HTTP server and application reference.
type Server struct {
	app          *app.App
	server       *http.Server
	hub          *Hub
	logger       *common.Logger
	shutdownChan chan struct{}
}

// SetShutdownChannel sets the channel that will be signaled when HTTP shutdown is requested.
func (s *Server) SetShutdownChannel(ch chan struct{}) {
	s.shutdownChan = ch
}

// NewServer creates the REST API server and starts its websocket hub.
// Every completed screen is pushed to websocket subscribers.
func NewServer(a *app.App) *Server {
	s := &Server{
		app:    a,
		hub:    NewHub(a.Logger),
		logger: a.Logger,
	}
	go s.hub.Run()
	a.ScreenerService.OnComplete(s.hub.PublishScreen)

	mux := http.NewServeMux()
	s.registerRoutes(mux)

	handler := applyMiddleware(mux, a.Logger)

	s.server = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", a.Config.Server.Host, a.Config.Server.Port),
		Handler:      handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 10 * time.Minute, // a cold screen of the full universe waits on the rate limiter
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// Handler returns the HTTP handler for testing.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// Hub returns the websocket hub.
func (s *Server) Hub() *Hub {
	return s.hub
}

// Start starts the HTTP server (blocking).
func (s *Server) Start() error {
	s.logger.Info().
		Str("addr", s.server.Addr).
		Msg("Starting REST API server")
	return s.server.ListenAndServe()
}

// Shutdown disconnects websocket clients and gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.hub.Stop()
	return s.server.Shutdown(ctx)
}
