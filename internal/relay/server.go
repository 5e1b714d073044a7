package relay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/muurk/omd/internal/logging"
)

// DefaultListen is where the relay listens unless configured otherwise
const DefaultListen = "127.0.0.1:8765"

const shutdownTimeout = 10 * time.Second

// Config holds the server configuration
type Config struct {
	Listen string
}

// Server exposes a Hub over HTTP: websocket clients connect on /events.
type Server struct {
	config     *Config
	hub        *Hub
	httpServer *http.Server

	mu       sync.Mutex
	listener net.Listener
	ready    chan struct{}
}

// NewServer creates a relay server for hub
func NewServer(config *Config, hub *Hub) *Server {
	if config.Listen == "" {
		config.Listen = DefaultListen
	}

	s := &Server{config: config, hub: hub, ready: make(chan struct{})}

	mux := http.NewServeMux()
	mux.Handle("/events", hub)
	mux.HandleFunc("/healthz", s.handleHealth)

	s.httpServer = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"status":  "ok",
		"clients": s.hub.ClientCount(),
	})
}

// Start listens and serves until ctx is cancelled or SIGINT/SIGTERM arrives,
// then shuts down.
func (s *Server) Start(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.config.Listen)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.config.Listen, err)
	}

	s.mu.Lock()
	s.listener = listener
	s.mu.Unlock()
	close(s.ready)

	logging.Info("Relay listening", zap.String("addr", listener.Addr().String()))

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errChan := make(chan error, 1)
	go func() {
		errChan <- s.httpServer.Serve(listener)
	}()

	select {
	case <-ctx.Done():
		logging.Info("Shutdown signal received, stopping relay...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return s.Shutdown(shutdownCtx)
	case err := <-errChan:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// Ready is closed once the server is listening
func (s *Server) Ready() <-chan struct{} {
	return s.ready
}

// Addr returns the listening address, or nil before Start
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Shutdown disconnects clients and stops the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	logging.Info("Shutting down relay...", zap.Int("clients", s.hub.ClientCount()))

	s.hub.Close()
	if err := s.httpServer.Shutdown(ctx); err != nil {
		logging.Warn("Shutdown timeout, forcing close", zap.Error(err))
		return s.httpServer.Close()
	}

	logging.Sync()
	return nil
}
