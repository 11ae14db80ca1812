package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vango-dev/routeagent/pkg/agent"
	httpmw "github.com/vango-dev/routeagent/pkg/middleware"
	"github.com/vango-dev/routeagent/pkg/route"
	"github.com/vango-dev/routeagent/pkg/routepath"
	"github.com/vango-dev/routeagent/pkg/routing"
	"github.com/vango-dev/routeagent/pkg/view"
)

// App describes the application a server hosts.
type App[T any] struct {
	// Title is the document title of the page shell.
	Title string

	// Options returns the route options for a new session. It is called
	// once per session and once per page request.
	Options func() []routing.Option[T]

	// Codec serializes route state into history entries. Default: JSON.
	Codec route.Codec[T]
}

// Server serves the page shell, the thin client and one websocket session
// per connected tab.
type Server[T any] struct {
	cfg          *Config
	app          App[T]
	codec        route.Codec[T]
	logger       *slog.Logger
	metrics      *Metrics
	agentMetrics *agent.Metrics
	httpMetrics  *httpmw.Metrics
	upgrader     websocket.Upgrader
	handler      http.Handler

	active atomic.Int64

	mu         sync.Mutex
	sessions   map[string]*session[T]
	closing    bool
	httpServer *http.Server
}

// New creates a Server. A nil cfg means DefaultConfig.
func New[T any](cfg *Config, app App[T]) *Server[T] {
	cfg = cfg.withDefaults()

	s := &Server[T]{
		cfg:          cfg,
		app:          app,
		codec:        app.Codec,
		logger:       cfg.Logger.With("component", "server"),
		metrics:      newMetrics(cfg.Registry, cfg.Namespace),
		agentMetrics: agent.NewMetrics(cfg.Registry, agent.WithNamespace(cfg.Namespace)),
		httpMetrics: httpmw.NewMetrics(
			httpmw.WithRegistry(cfg.Registry),
			httpmw.WithNamespace(cfg.Namespace),
		),
		sessions: make(map[string]*session[T]),
	}
	if s.codec == nil {
		s.codec = route.JSONCodec[T]{}
	}
	s.upgrader = websocket.Upgrader{
		HandshakeTimeout: cfg.HandshakeTimeout,
		CheckOrigin:      originChecker(cfg.AllowedOrigins),
	}
	s.handler = s.routes()
	return s
}

func (s *Server[T]) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(httpmw.Tracing(httpmw.WithTracer(s.cfg.Tracer), httpmw.WithFilter(s.traced)))
	r.Use(s.httpMetrics.Handler)
	r.Use(s.logRequests)
	r.Use(middleware.Recoverer)

	r.Get(HealthPath, s.serveHealth)
	r.Get(ClientPath, serveClient)
	r.Head(ClientPath, serveClient)
	r.Get(WebSocketPath, s.handleWebSocket)
	if s.cfg.MetricsPath != "" {
		r.Method(http.MethodGet, s.cfg.MetricsPath,
			promhttp.HandlerFor(s.cfg.Registry, promhttp.HandlerOpts{Registry: s.cfg.Registry}))
	}
	r.Get("/*", s.servePage)
	return r
}

// traced skips the health check and the metrics scrape.
func (s *Server[T]) traced(r *http.Request) bool {
	return r.URL.Path != HealthPath && (s.cfg.MetricsPath == "" || r.URL.Path != s.cfg.MetricsPath)
}

// Handler returns the server's HTTP handler.
func (s *Server[T]) Handler() http.Handler {
	return s.handler
}

// ServeHTTP implements http.Handler.
func (s *Server[T]) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// Sessions returns the number of open sessions.
func (s *Server[T]) Sessions() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Metrics returns the agent metrics shared by every session.
func (s *Server[T]) Metrics() *agent.Metrics {
	return s.agentMetrics
}

func (s *Server[T]) options() []routing.Option[T] {
	if s.app.Options == nil {
		return nil
	}
	return s.app.Options()
}

func (s *Server[T]) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()))
	})
}

func (s *Server[T]) serveHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"status":   "ok",
		"sessions": s.Sessions(),
	})
}

// servePage renders the route for the request URL into the page shell.
// The first render over the websocket replaces it. Non-canonical paths are
// redirected.
func (s *Server[T]) servePage(w http.ResponseWriter, r *http.Request) {
	query := ""
	if r.URL.RawQuery != "" {
		query = "?" + r.URL.RawQuery
	}
	canon, err := routepath.Canonicalize(r.URL.EscapedPath() + query)
	if err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}
	if canon.Changed {
		http.Redirect(w, r, canon.String(), http.StatusPermanentRedirect)
		return
	}
	rt := route.New[T](canon.String())

	status := http.StatusOK
	node, _, ok := routing.Resolve(s.options(), rt)
	if !ok {
		s.logger.Error(routing.NoMatchMessage, "path", rt.Path)
		s.agentMetrics.RecordRoutingMiss()
		status = http.StatusNotFound
	}

	var buf bytes.Buffer
	buf.WriteString("<!DOCTYPE html>")
	if err := view.WriteHTML(&buf, s.shell(node)); err != nil {
		s.logger.Error("page render failed", "path", rt.Path, "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
}

func (s *Server[T]) shell(body *view.Node) *view.Node {
	title := s.app.Title
	if title == "" {
		title = "routeagent"
	}
	return view.Element("html", view.Attr{Key: "lang", Value: "en"},
		view.Element("head",
			view.Element("meta", view.Attr{Key: "charset", Value: "utf-8"}),
			view.Element("meta",
				view.Attr{Key: "name", Value: "viewport"},
				view.Attr{Key: "content", Value: "width=device-width, initial-scale=1"}),
			view.Element("title", title),
		),
		view.Element("body",
			view.Element("div", view.ID(RootElementID), body),
			view.Element("script",
				view.Attr{Key: "src", Value: ClientPath},
				view.Attr{Key: "defer", Value: true}),
		),
	)
}

// reserve claims a session slot.
func (s *Server[T]) reserve() bool {
	n := s.active.Add(1)
	if s.cfg.MaxSessions > 0 && n > int64(s.cfg.MaxSessions) {
		s.active.Add(-1)
		return false
	}
	return true
}

func (s *Server[T]) release() {
	s.active.Add(-1)
}

func (s *Server[T]) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	if !s.reserve() {
		s.metrics.handshakeFailed("limit")
		s.logger.Warn("session rejected", "error", ErrMaxSessionsReached)
		http.Error(w, ErrMaxSessionsReached.Error(), http.StatusServiceUnavailable)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.release()
		s.metrics.handshakeFailed("upgrade")
		s.logger.Warn("websocket upgrade failed", "error", err)
		return
	}

	sess, err := s.accept(conn)
	if err != nil {
		s.release()
		s.logger.Warn("handshake failed", "error", err, "remote_addr", r.RemoteAddr)
		conn.Close()
		return
	}

	go sess.pingLoop()
	sess.readLoop()
}

// register adds sess unless the server is shutting down.
func (s *Server[T]) register(sess *session[T]) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closing {
		return false
	}
	s.sessions[sess.id] = sess
	return true
}

func (s *Server[T]) unregister(id string) {
	s.mu.Lock()
	_, ok := s.sessions[id]
	delete(s.sessions, id)
	s.mu.Unlock()
	if ok {
		s.release()
		s.metrics.sessionClosed()
	}
}

// Run listens on the configured address until ctx is cancelled, then shuts
// down gracefully.
func (s *Server[T]) Run(ctx context.Context) error {
	l, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("server: listen %s: %w", s.cfg.Addr, err)
	}
	return s.Serve(ctx, l)
}

// Serve accepts connections on l until ctx is cancelled.
func (s *Server[T]) Serve(ctx context.Context, l net.Listener) error {
	srv := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	s.mu.Lock()
	s.httpServer = srv
	s.mu.Unlock()

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server starting", "address", l.Addr().String())
		errCh <- srv.Serve(l)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		s.logger.Info("shutting down...")
		return s.Shutdown(context.Background())
	}
}

// Shutdown closes every session and stops the HTTP server.
func (s *Server[T]) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.ShutdownTimeout)
	defer cancel()

	s.mu.Lock()
	s.closing = true
	sessions := make([]*session[T], 0, len(s.sessions))
	for _, sess := range s.sessions {
		sessions = append(sessions, sess)
	}
	srv := s.httpServer
	s.mu.Unlock()

	for _, sess := range sessions {
		sess.closeWith(websocket.CloseGoingAway, "server shutting down")
	}

	if srv != nil {
		if err := srv.Shutdown(ctx); err != nil {
			s.logger.Error("shutdown error", "error", err)
			return err
		}
	}

	s.logger.Info("server shutdown complete")
	return nil
}

// originChecker returns nil, gorilla's same-origin check, when allowed is
// empty.
func originChecker(allowed []string) func(*http.Request) bool {
	if len(allowed) == 0 {
		return nil
	}
	set := make(map[string]bool, len(allowed))
	for _, o := range allowed {
		set[strings.TrimSuffix(strings.ToLower(o), "/")] = true
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		u, err := url.Parse(origin)
		if err != nil {
			return false
		}
		return set["*"] || set[strings.ToLower(u.Scheme+"://"+u.Host)]
	}
}
