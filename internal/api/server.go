// Package api exposes the HTTP surface: session generation, audio
// delivery, history management, and the live playback event channel.
package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/kikitori-app/kikitori-go/internal/config"
	"github.com/kikitori-app/kikitori-go/internal/observability"
	"github.com/kikitori-app/kikitori-go/internal/session"
)

// Server handles HTTP API requests.
type Server struct {
	cfg      *config.Config
	logger   *slog.Logger
	server   *http.Server
	sessions *session.Manager
	upgrader websocket.Upgrader
}

// New creates a new API server.
func New(cfg *config.Config, logger *slog.Logger, sessions *session.Manager) *Server {
	s := &Server{
		cfg:      cfg,
		logger:   logger,
		sessions: sessions,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// The playback surface is a local client, not a browser
			// with a matching origin.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /v1/healthz", s.handleHealthz)
	mux.Handle("GET /metrics", observability.MetricsHandler())
	mux.HandleFunc("POST /v1/read", s.withAuth(s.handleRead))
	mux.HandleFunc("GET /v1/audio", s.withAuth(s.handleAudio))
	mux.HandleFunc("GET /v1/history", s.withAuth(s.handleHistory))
	mux.HandleFunc("POST /v1/history/{id}/resume", s.withAuth(s.handleResume))
	mux.HandleFunc("DELETE /v1/history/{id}", s.withAuth(s.handleDelete))
	mux.HandleFunc("GET /v1/events", s.withAuth(s.handleEvents))

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// Start begins listening for HTTP requests.
func (s *Server) Start() error {
	s.logger.Info("starting HTTP server", "addr", s.server.Addr)
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("http server error: %w", err)
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")
	return s.server.Shutdown(ctx)
}
