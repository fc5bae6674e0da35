// Package transport exposes the host over websockets and a small HTTP API.
package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/gridclash/arena/internal/authority"
	"github.com/gridclash/arena/internal/dispatcher"
	"github.com/gridclash/arena/internal/worker"
	"github.com/gridclash/arena/pkg/core"
)

// Config holds transport settings.
type Config struct {
	ListenAddr   string
	WriteTimeout time.Duration
	RateLimit    float64
	RateBurst    int
	ReadLimit    int64
}

// Registry is the part of the host sessions attach to.
type Registry interface {
	RegisterEndpoint(ctx context.Context, playerID string, ep authority.Endpoint)
	Disconnect(ctx context.Context, playerID string, ep authority.Endpoint)
}

// Dispatcher routes client commands to their handlers.
type Dispatcher interface {
	Dispatch(e dispatcher.Event) (any, error)
}

// Server accepts client websocket sessions.
type Server struct {
	cfg        Config
	registry   Registry
	dispatcher Dispatcher
	log        *slog.Logger
	upgrader   websocket.Upgrader
	router     *mux.Router
	httpServer *http.Server

	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.Mutex
	sessions map[*session]struct{}
	wg       sync.WaitGroup
}

// New creates a Server. Zero config values fall back to defaults.
func New(cfg Config, registry Registry, d Dispatcher, logger *slog.Logger) *Server {
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = authority.DefaultDeliveryTimeout
	}
	if cfg.RateLimit <= 0 {
		cfg.RateLimit = 20
	}
	if cfg.RateBurst <= 0 {
		cfg.RateBurst = 40
	}
	if cfg.ReadLimit <= 0 {
		cfg.ReadLimit = 64 * 1024
	}
	if logger == nil {
		logger = slog.Default()
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{
		cfg:        cfg,
		registry:   registry,
		dispatcher: d,
		log:        logger.With("component", "transport"),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		ctx:      ctx,
		cancel:   cancel,
		sessions: make(map[*session]struct{}),
	}

	r := mux.NewRouter()
	r.HandleFunc("/ws", s.handleWS).Methods(http.MethodGet)
	r.HandleFunc("/api/players", s.handlePlayers).Methods(http.MethodGet)
	r.HandleFunc("/healthcheck", s.handleHealth).Methods(http.MethodGet)
	s.router = r
	return s
}

// Handler returns the HTTP handler, for embedding or tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe serves until Shutdown is called.
func (s *Server) ListenAndServe() error {
	ln, err := net.Listen("tcp", s.cfg.ListenAddr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.cfg.ListenAddr, err)
	}
	return s.Serve(ln)
}

// Serve serves on ln until Shutdown is called.
func (s *Server) Serve(ln net.Listener) error {
	s.mu.Lock()
	s.httpServer = &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	srv := s.httpServer
	s.mu.Unlock()

	s.log.Info("Transport listening", "addr", ln.Addr().String())
	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting connections, closes every session and waits for
// their read loops to finish.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	srv := s.httpServer
	open := make([]*session, 0, len(s.sessions))
	for sess := range s.sessions {
		open = append(open, sess)
	}
	s.mu.Unlock()

	var err error
	if srv != nil {
		err = srv.Shutdown(ctx)
	}
	for _, sess := range open {
		sess.conn.Close()
	}
	s.wg.Wait()
	s.cancel()
	return err
}

// Sessions returns the number of connected sessions.
func (s *Server) Sessions() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

func (s *Server) dispatch(e dispatcher.Event) (any, error) {
	e.Timestamp = time.Now()
	return s.dispatcher.Dispatch(e)
}

func (s *Server) forget(sess *session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sess)
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("Websocket upgrade failed", "error", err)
		return
	}

	sess := newSession(s, conn)
	s.mu.Lock()
	s.sessions[sess] = struct{}{}
	s.mu.Unlock()

	s.log.Info("Session opened", "remote", conn.RemoteAddr().String())
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		sess.run(s.ctx)
	}()
}

func (s *Server) handlePlayers(w http.ResponseWriter, r *http.Request) {
	result, err := s.dispatch(dispatcher.Event{Command: worker.CmdPlayers})
	if err != nil {
		http.Error(w, "players unavailable", http.StatusInternalServerError)
		return
	}
	players, _ := result.([]core.Player)
	if players == nil {
		players = []core.Player{}
	}
	writeJSON(w, http.StatusOK, players)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "sessions": s.Sessions()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
