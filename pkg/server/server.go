// Package server is a live preview server for way pages.
//
// It serves one HTML page. Every browser connection gets its own hydrated
// copy of the page: user events travel over a WebSocket, are replayed
// against the server-side document, and the re-rendered body is sent back.
// When the page file changes, connected browsers are told to reload.
package server

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vango-dev/way"
	"github.com/vango-dev/way/pkg/dom"
	"github.com/vango-dev/way/pkg/metrics"
)

// SetupFunc registers the components, forms and stores a page uses. It runs
// once for every engine the server creates.
type SetupFunc func(e *way.Engine) error

// Server serves a page and its live sessions.
type Server struct {
	config   *Config
	setup    SetupFunc
	logger   *slog.Logger
	metrics  *metrics.Collector
	gatherer prometheus.Gatherer
	props    map[string]any
	engOpts  []way.Option
	upgrader websocket.Upgrader
	router   chi.Router

	// mu serializes all work on engines. The reactive runtime is single
	// threaded, so events from different sessions take turns.
	mu sync.Mutex

	sessMu   sync.Mutex
	sessions map[string]*Session

	httpServer *http.Server
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		s.logger = l
	}
}

// WithSetup sets the function that registers the page's components.
func WithSetup(fn SetupFunc) Option {
	return func(s *Server) {
		s.setup = fn
	}
}

// WithMetrics records runtime and session metrics on c and serves g at
// /metrics.
func WithMetrics(c *metrics.Collector, g prometheus.Gatherer) Option {
	return func(s *Server) {
		s.metrics = c
		s.gatherer = g
	}
}

// WithProps sets the initial properties of every page's root scope.
func WithProps(props map[string]any) Option {
	return func(s *Server) {
		s.props = props
	}
}

// WithEngineOptions adds options applied to every engine the server
// creates.
func WithEngineOptions(opts ...way.Option) Option {
	return func(s *Server) {
		s.engOpts = append(s.engOpts, opts...)
	}
}

// New creates a new Server.
func New(config *Config, opts ...Option) *Server {
	cfg := config.withDefaults()
	s := &Server{
		config:   cfg,
		sessions: make(map[string]*Session),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	s.logger = s.logger.With("component", "server")

	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  cfg.ReadBufferSize,
		WriteBufferSize: cfg.WriteBufferSize,
		CheckOrigin:     cfg.CheckOrigin,
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get("/", s.handlePage)
	r.Get("/ws", s.handleWebSocket)
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})
	r.Get(ClientPath, s.serveClient)
	r.Head(ClientPath, s.serveClient)
	if s.gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}
	s.router = r
	return s
}

// Handler returns the server's HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Config returns a copy of the server's configuration.
func (s *Server) Config() *Config {
	return s.config.Clone()
}

// loadPage parses the page file and hydrates it with a fresh engine.
// The caller must hold s.mu.
func (s *Server) loadPage(ctx context.Context) (*way.Engine, error) {
	data, err := os.ReadFile(s.config.Page)
	if err != nil {
		return nil, fmt.Errorf("read page: %w", err)
	}
	doc, err := dom.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("parse page: %w", err)
	}

	opts := append([]way.Option{
		way.WithLogger(s.logger),
		way.WithMetrics(s.metrics),
	}, s.engOpts...)
	eng := way.New(doc, opts...)
	if s.setup != nil {
		if err := s.setup(eng); err != nil {
			eng.Dispose()
			return nil, fmt.Errorf("setup: %w", err)
		}
	}
	if err := eng.Render(ctx, doc.Body(), s.props); err != nil {
		eng.Dispose()
		return nil, fmt.Errorf("render: %w", err)
	}
	return eng, nil
}

// handlePage renders the hydrated page with the client script appended.
func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	eng, err := s.loadPage(r.Context())
	var out string
	if err == nil {
		doc := eng.Document()
		script := doc.CreateElement("script")
		script.SetAttribute("src", ClientPath)
		doc.Body().AppendChild(script)
		out, err = dom.RenderString(doc.Root())
		eng.Dispose()
	}
	s.mu.Unlock()

	if err != nil {
		s.logger.Error("page render failed", "error", err)
		http.Error(w, "page render failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write([]byte(out))
}

// handleWebSocket upgrades the request and runs a session until the
// connection closes.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "error", err)
		s.metrics.WebSocketError("upgrade")
		return
	}

	s.mu.Lock()
	eng, err := s.loadPage(r.Context())
	s.mu.Unlock()
	if err != nil {
		s.logger.Error("session start failed", "error", err)
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseInternalServerErr, "page failed"),
			deadline(s.config.WriteTimeout))
		_ = conn.Close()
		return
	}

	sess := newSession(s, conn, eng)
	s.addSession(sess)
	sess.Start()
	sess.ReadLoop()
}

func (s *Server) addSession(sess *Session) {
	s.sessMu.Lock()
	s.sessions[sess.ID] = sess
	s.sessMu.Unlock()
	s.metrics.SessionOpened()
	s.logger.Info("session opened", "session_id", sess.ID)
}

func (s *Server) removeSession(sess *Session) {
	s.sessMu.Lock()
	_, ok := s.sessions[sess.ID]
	delete(s.sessions, sess.ID)
	s.sessMu.Unlock()
	if ok {
		s.metrics.SessionClosed()
		s.logger.Info("session closed", "session_id", sess.ID)
	}
}

// SessionCount returns the number of connected sessions.
func (s *Server) SessionCount() int {
	s.sessMu.Lock()
	defer s.sessMu.Unlock()
	return len(s.sessions)
}

// Broadcast sends m to every connected session.
func (s *Server) Broadcast(m Message) {
	s.sessMu.Lock()
	list := make([]*Session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		list = append(list, sess)
	}
	s.sessMu.Unlock()

	for _, sess := range list {
		if err := sess.Send(m); err != nil && !errors.Is(err, ErrSessionClosed) {
			s.logger.Warn("broadcast failed", "session_id", sess.ID, "error", err)
		}
	}
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
// When Watch is enabled, page changes reload every connected session.
func (s *Server) ListenAndServe(ctx context.Context) error {
	s.httpServer = &http.Server{
		Addr:              s.config.Address,
		Handler:           s.router,
		ReadHeaderTimeout: s.config.ReadHeaderTimeout,
	}

	if s.config.Watch {
		if err := s.Watch(ctx); err != nil {
			return err
		}
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "address", s.config.Address, "page", s.config.Page)
		errCh <- s.httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
	defer cancel()
	s.closeSessions()
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func (s *Server) closeSessions() {
	s.sessMu.Lock()
	list := make([]*Session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		list = append(list, sess)
	}
	s.sessMu.Unlock()
	for _, sess := range list {
		sess.Close()
	}
}
