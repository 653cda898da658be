// Package httpapi serves the read-only status API of a running forwarder.
//
// Endpoints:
//   - GET /api/v1/health: lifecycle state, no authentication
//   - GET /api/v1/lpars: forwarded partitions, JWT required
//   - GET /api/v1/admin/stats: forwarding counters, admin JWT required
//   - GET /metrics: Prometheus metrics, when a gatherer is configured
package httpapi

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rmacdonaldsmith/lpar-forwarder/pkg/forwarder"
)

var (
	// ErrMissingListenAddress is returned when Config.ListenAddress is empty
	ErrMissingListenAddress = errors.New("listen address cannot be empty")
	// ErrMissingSecretKey is returned when Config.SecretKey is empty
	ErrMissingSecretKey = errors.New("secret key cannot be empty")
)

// Config holds server configuration
type Config struct {
	ListenAddress string
	SecretKey     string

	// Gatherer backs /metrics; nil disables the endpoint
	Gatherer prometheus.Gatherer

	Logger *slog.Logger
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.ListenAddress == "" {
		return ErrMissingListenAddress
	}
	if c.SecretKey == "" {
		return ErrMissingSecretKey
	}
	return nil
}

// SetDefaults sets sensible default values for unset configuration fields
func (c *Config) SetDefaults() {
	if c.Logger == nil {
		c.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
}

// Server represents the HTTP API server
type Server struct {
	config     Config
	tokens     *Tokens
	handlers   *Handlers
	middleware *Middleware
	server     *http.Server
}

// NewServer creates a new HTTP API server for fwd
func NewServer(fwd forwarder.Forwarder, config Config) (*Server, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	config.SetDefaults()

	tokens := NewTokens(config.SecretKey, 0)
	s := &Server{
		config:     config,
		tokens:     tokens,
		handlers:   NewHandlers(fwd),
		middleware: NewMiddleware(tokens, config.Logger),
	}

	s.server = &http.Server{
		Addr:              config.ListenAddress,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}
	return s, nil
}

// Handler returns the routed handler with global middleware applied
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	m := s.middleware

	mux.Handle("/api/v1/health", m.MethodGet(s.handlers.Health))
	mux.Handle("/api/v1/lpars", m.MethodGet(m.AuthRequired(s.handlers.ListLpars)))
	mux.Handle("/api/v1/admin/stats", m.MethodGet(m.AdminRequired(s.handlers.AdminGetStats)))
	if s.config.Gatherer != nil {
		mux.Handle("/metrics", promhttp.HandlerFor(s.config.Gatherer, promhttp.HandlerOpts{}))
	}
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		writeError(w, "Not found", http.StatusNotFound)
	})

	return m.Recovery(m.Logging(mux))
}

// Start listens on the configured address and serves until Stop.
// It returns http.ErrServerClosed after a graceful Stop.
func (s *Server) Start() error {
	lis, err := net.Listen("tcp", s.config.ListenAddress)
	if err != nil {
		return err
	}
	return s.Serve(lis)
}

// Serve serves on an existing listener
func (s *Server) Serve(lis net.Listener) error {
	s.config.Logger.Info("status API listening", "address", lis.Addr().String())
	return s.server.Serve(lis)
}

// Stop gracefully stops the HTTP server
func (s *Server) Stop(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// Tokens returns the issuer and verifier of the server's tokens
func (s *Server) Tokens() *Tokens {
	return s.tokens
}
