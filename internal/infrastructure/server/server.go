package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"go.uber.org/multierr"

	"github.com/FreePeak/track-commands-ws/internal/domain"
	"github.com/FreePeak/track-commands-ws/internal/infrastructure/logging"
)

// WebSocketServer accepts WebSocket connections and runs one ConnectionSession
// per connection.
type WebSocketServer struct {
	session   SessionConfig
	logger    *logging.Logger
	path      string
	readLimit int64
	upgrader  websocket.Upgrader

	mu       sync.Mutex
	srv      *http.Server
	listener net.Listener
	sessions sync.WaitGroup
}

// Option defines a function type for configuring WebSocketServer
type Option func(*WebSocketServer)

// WithPath sets the path connections are accepted on. "/" accepts every path.
func WithPath(path string) Option {
	return func(s *WebSocketServer) {
		if path != "" {
			s.path = path
		}
	}
}

// WithReadLimit sets the maximum size of an inbound message. Zero means no limit.
func WithReadLimit(limit int64) Option {
	return func(s *WebSocketServer) {
		s.readLimit = limit
	}
}

// WithCheckOrigin sets the origin check used during the upgrade.
func WithCheckOrigin(fn func(r *http.Request) bool) Option {
	return func(s *WebSocketServer) {
		s.upgrader.CheckOrigin = fn
	}
}

// WithHTTPServer sets the HTTP server instance
func WithHTTPServer(srv *http.Server) Option {
	return func(s *WebSocketServer) {
		s.srv = srv
	}
}

// NewWebSocketServer creates a server whose sessions share cfg.
func NewWebSocketServer(cfg SessionConfig, opts ...Option) *WebSocketServer {
	if cfg.Logger == nil {
		cfg.Logger = logging.Default()
	}
	if cfg.Registry == nil {
		cfg.Registry = NewConnectionRegistry(cfg.Logger)
	}
	if cfg.Sink == nil {
		cfg.Sink = NewLogSink(cfg.Logger)
	}

	s := &WebSocketServer{
		session: cfg,
		logger:  cfg.Logger,
		path:    "/",
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Registry returns the registry of open connections.
func (s *WebSocketServer) Registry() domain.ConnectionRegistry {
	return s.session.Registry
}

// ServeHTTP implements the http.Handler interface.
func (s *WebSocketServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if s.path != "/" && r.URL.Path != s.path {
		http.NotFound(w, r)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// The upgrader has already written the HTTP error response.
		s.logger.Warn("WebSocket upgrade failed", logging.Fields{
			"remote": r.RemoteAddr,
			"error":  err,
		})
		return
	}
	if s.readLimit > 0 {
		conn.SetReadLimit(s.readLimit)
	}

	s.sessions.Add(1)
	defer s.sessions.Done()

	// The request context is not used: hijacked connections outlive it and
	// sessions run until the transport reports closure.
	NewConnectionSession(newWSConnection(conn), s.session).Run(context.Background())
	_ = conn.Close()
}

// Start listens on addr and serves connections until Shutdown is called.
// It returns nil after a graceful shutdown.
func (s *WebSocketServer) Start(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.Serve(ln)
}

// Serve accepts connections on ln.
func (s *WebSocketServer) Serve(ln net.Listener) error {
	s.mu.Lock()
	if s.listener != nil {
		s.mu.Unlock()
		_ = ln.Close()
		return ErrServerStarted
	}
	if s.srv == nil {
		s.srv = &http.Server{}
	}
	s.srv.Handler = s
	s.listener = ln
	srv := s.srv
	s.mu.Unlock()

	s.logger.Infof("Server started on %s", ln.Addr())

	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Addr returns the listening address, or nil before Start.
func (s *WebSocketServer) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Shutdown stops accepting connections, closes every open connection and
// waits for their sessions to finish or ctx to expire.
func (s *WebSocketServer) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	srv := s.srv
	started := s.listener != nil
	s.mu.Unlock()

	if !started {
		return ErrServerNotStarted
	}

	err := srv.Shutdown(ctx)
	s.session.Registry.CloseAll()

	done := make(chan struct{})
	go func() {
		s.sessions.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		err = multierr.Append(err, ctx.Err())
	}

	return err
}
