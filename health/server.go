package health

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/waltti/apcprofiler/errors"
)

const (
	// HealthPath answers liveness probes
	HealthPath = "/healthz"
	// MetricsPath serves Prometheus metrics when a metrics handler is set
	MetricsPath = "/metrics"

	unhealthyBody = `{"error":"Service is unhealthy"}`
)

// Server answers liveness probes for the duration of one invocation.
// It reports unhealthy until SetHealthy(true) is called.
type Server struct {
	port           int
	metricsHandler http.Handler
	logger         *slog.Logger
	onStatus       func(healthy bool)

	healthy  atomic.Bool
	mu       sync.Mutex // protects server and listener
	server   *http.Server
	listener net.Listener
}

// Option configures a Server
type Option func(*Server)

// WithMetricsHandler serves h at /metrics on the health listener
func WithMetricsHandler(h http.Handler) Option {
	return func(s *Server) {
		s.metricsHandler = h
	}
}

// WithLogger sets the logger
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithStatusCallback is called on every SetHealthy
func WithStatusCallback(fn func(healthy bool)) Option {
	return func(s *Server) {
		s.onStatus = fn
	}
}

// NewServer creates a health server for port. Port 0 picks a free port.
func NewServer(port int, opts ...Option) *Server {
	s := &Server{
		port:   port,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns the HTTP handler of the server
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc(HealthPath, s.handleHealth)
	if s.metricsHandler != nil {
		mux.Handle(MetricsPath, s.metricsHandler)
	}
	return mux
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	if s.healthy.Load() {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusInternalServerError)
	_, _ = w.Write([]byte(unhealthyBody))
}

// Start binds the listener and serves in the background.
// Bind errors are returned before Start returns.
func (s *Server) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.server != nil {
		return errors.WrapInvalid(fmt.Errorf("already started"), "HealthServer", "Start", "start server")
	}

	listener, err := net.Listen("tcp", fmt.Sprintf(":%d", s.port))
	if err != nil {
		return errors.WrapFatal(err, "HealthServer", "Start", "bind listener")
	}

	s.listener = listener
	s.server = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func(srv *http.Server, l net.Listener) {
		if err := srv.Serve(l); err != nil && !stderrors.Is(err, http.ErrServerClosed) {
			s.logger.Error("Health check server stopped", "error", err)
		}
	}(s.server, listener)

	s.logger.Debug("Health check server started", "address", listener.Addr().String())
	return nil
}

// Addr returns the bound address, or "" before Start
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// SetHealthy sets the reported status
func (s *Server) SetHealthy(healthy bool) {
	s.healthy.Store(healthy)
	if s.onStatus != nil {
		s.onStatus(healthy)
	}
}

// IsHealthy returns the reported status
func (s *Server) IsHealthy() bool {
	return s.healthy.Load()
}

// Close stops the server. Closing a server that never started is a no-op.
func (s *Server) Close(ctx context.Context) error {
	s.mu.Lock()
	srv := s.server
	s.server = nil
	s.listener = nil
	s.mu.Unlock()

	if srv == nil {
		return nil
	}
	if err := srv.Shutdown(ctx); err != nil {
		_ = srv.Close()
		return errors.WrapTransient(err, "HealthServer", "Close", "shutdown server")
	}
	return nil
}
