package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strconv"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"
	"golang.org/x/sync/errgroup"
)

// Server accepts WebSocket clients and hands them to the engine. It owns the
// HTTP listener; the engine owns all game state.
type Server struct {
	addr     string
	upgrader websocket.Upgrader
	engine   *Engine
	logger   *log.Logger

	listener net.Listener
	ready    chan struct{}
}

// NewServer creates the WebSocket front end for an engine.
func NewServer(addr string, engine *Engine, logger *log.Logger) *Server {
	return &Server{
		addr: addr,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				// For development, allow all origins
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		engine: engine,
		logger: logger.WithPrefix("server"),
		ready:  make(chan struct{}),
	}
}

// Run serves until ctx is cancelled. The engine's serializer runs alongside
// the HTTP listener; either failing stops both.
func (s *Server) Run(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.addr, err)
	}
	s.listener = listener
	close(s.ready)

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/hands", s.handleHands)
	httpServer := &http.Server{Handler: mux}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return s.engine.Run(ctx)
	})
	g.Go(func() error {
		s.logger.Info("Listening", "addr", listener.Addr().String())
		if err := httpServer.Serve(listener); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		return httpServer.Close()
	})

	err = g.Wait()
	if err == context.Canceled {
		return nil
	}
	return err
}

// Addr returns the bound listen address, useful when the configured port
// was zero.
func (s *Server) Addr() string {
	if s.listener == nil {
		return s.addr
	}
	return s.listener.Addr().String()
}

// handleWebSocket handles WebSocket upgrade requests
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("Failed to upgrade connection", "error", err)
		return
	}

	client := NewConnection(conn, s.logger, s.engine)
	s.engine.Connected(client)
	client.Start()
	s.logger.Info("Client connected", "conn", client.ID())

	go func() {
		<-client.ctx.Done()
		s.logger.Info("Client disconnected", "conn", client.ID())
		s.engine.Disconnected(client)
	}()
}

// handleHealth handles health check requests
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = fmt.Fprintf(w, "OK")
}

// handleHands serves the recent hand history as JSON.
func (s *Server) handleHands(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 100 {
			limit = n
		}
	}

	hands, err := s.engine.HandHistory(r.Context(), limit)
	if err != nil {
		s.logger.Error("Failed to list hand history", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(hands); err != nil {
		s.logger.Error("Failed to encode hand history", "error", err)
	}
}
