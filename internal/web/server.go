// Package web exposes the observer's registry and write-back shim over
// HTTP and a gorilla/websocket push channel. This surface sits outside the
// observation engine's core scope; CORS, auth, and TLS are explicitly not
// implemented here.
package web

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/Eren-Nevin/tmux-observer/internal/controlmode"
	"github.com/Eren-Nevin/tmux-observer/internal/logging"
	"github.com/Eren-Nevin/tmux-observer/internal/observer"
	"github.com/Eren-Nevin/tmux-observer/internal/registry"
)

// Config defines runtime options for the web server.
type Config struct {
	ListenAddr string
}

// Server wraps an HTTP server exposing the pane registry and push channel.
type Server struct {
	cfg        Config
	httpServer *http.Server
	registry   *registry.Registry
	shim       *controlmode.Shim
	hub        *Hub

	baseCtx    context.Context
	cancelBase context.CancelFunc
}

// NewServer creates a web server wired to a registry, capture/command shim,
// and the observer's event hub.
func NewServer(cfg Config, reg *registry.Registry, shim *controlmode.Shim) *Server {
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = "127.0.0.1:7890"
	}

	s := &Server{
		cfg:      cfg,
		registry: reg,
		shim:     shim,
		hub:      newHub(reg),
	}
	s.baseCtx, s.cancelBase = context.WithCancel(context.Background())

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.handleHealthz)
	mux.HandleFunc("/api/panes", s.handlePanes)
	mux.HandleFunc("/api/panes/", s.handlePaneByID)
	mux.HandleFunc("/ws", s.handleWS)

	handler := withRecover(mux)

	s.httpServer = &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           handler,
		BaseContext:       func(_ net.Listener) context.Context { return s.baseCtx },
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	return s
}

// OnEvent is the observer.EventFunc to wire into observer.New, relaying
// every emitted event into the websocket hub.
func (s *Server) OnEvent(ev observer.Event) {
	s.hub.Broadcast(ev)
}

// Addr returns the configured listen address.
func (s *Server) Addr() string {
	return s.httpServer.Addr
}

// Start starts the HTTP server and blocks until shutdown or error.
func (s *Server) Start() error {
	err := s.httpServer.ListenAndServe()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully stops the server and closes all websocket connections.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.cancelBase != nil {
		s.cancelBase()
	}
	s.hub.CloseAll()

	err := s.httpServer.Shutdown(ctx)
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		if closeErr := s.httpServer.Close(); closeErr == nil {
			return nil
		} else {
			return fmt.Errorf("graceful shutdown timed out and force close failed: %w", closeErr)
		}
	}
	return err
}

func withRecover(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				logging.ForComponent(logging.CompWeb).Error("panic",
					slog.String("recover", fmt.Sprintf("%v", rec)),
					slog.String("path", r.URL.Path))
				http.Error(w, "internal server error", http.StatusInternalServerError)
			}
		}()
		next.ServeHTTP(w, r)
	})
}
