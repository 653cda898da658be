// Package health exposes the forwarder lifecycle through the standard
// grpc.health.v1.Health service.
//
// The service reports SERVING while the forwarder is Running and
// NOT_SERVING in every other state, both for the overall server ("") and
// for ServiceName.
package health

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"google.golang.org/grpc"
	grpchealth "google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/rmacdonaldsmith/lpar-forwarder/pkg/forwarder"
)

// ServiceName is the health service name of the forwarder
const ServiceName = "lpar-forwarder"

// StateSource reports the lifecycle state of a forwarder
type StateSource interface {
	State() forwarder.State
}

// Server serves gRPC health checks for a forwarder
type Server struct {
	config *Config
	source StateSource

	grpcServer *grpc.Server
	health     *grpchealth.Server

	mu       sync.Mutex
	listener net.Listener
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	last     healthpb.HealthCheckResponse_ServingStatus
}

// NewServer creates a health server for source
func NewServer(config *Config, source StateSource) (*Server, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if source == nil {
		return nil, fmt.Errorf("state source cannot be nil")
	}

	configCopy := *config
	configCopy.SetDefaults()

	s := &Server{
		config:     &configCopy,
		source:     source,
		grpcServer: grpc.NewServer(),
		health:     grpchealth.NewServer(),
		last:       healthpb.HealthCheckResponse_UNKNOWN,
	}
	healthpb.RegisterHealthServer(s.grpcServer, s.health)
	s.update()
	return s, nil
}

// Start listens on the configured address and serves until Stop or until
// ctx is cancelled
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.listener != nil {
		return fmt.Errorf("health server already started")
	}

	var lc net.ListenConfig
	lis, err := lc.Listen(ctx, "tcp", s.config.ListenAddress)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.config.ListenAddress, err)
	}
	s.listener = lis

	watchCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	s.wg.Add(2)
	go func() {
		defer s.wg.Done()
		if err := s.grpcServer.Serve(lis); err != nil {
			s.config.Logger.Error("gRPC health server stopped", "error", err)
		}
	}()
	go func() {
		defer s.wg.Done()
		s.watch(watchCtx)
	}()

	s.config.Logger.Info("gRPC health service listening", "address", lis.Addr().String())
	return nil
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

// Drain marks every service NOT_SERVING for good while the server keeps
// answering checks
func (s *Server) Drain() {
	s.health.Shutdown()
}

// Stop marks every service NOT_SERVING and stops the server
func (s *Server) Stop() {
	s.mu.Lock()
	cancel := s.cancel
	s.mu.Unlock()

	s.health.Shutdown()
	if cancel != nil {
		cancel()
	}
	s.grpcServer.GracefulStop()
	s.wg.Wait()
}

func (s *Server) watch(ctx context.Context) {
	ticker := time.NewTicker(s.config.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.update()
		}
	}
}

// update publishes the serving status derived from the forwarder state
func (s *Server) update() {
	status := healthpb.HealthCheckResponse_NOT_SERVING
	if s.source.State() == forwarder.Running {
		status = healthpb.HealthCheckResponse_SERVING
	}
	if status == s.last {
		return
	}
	s.last = status
	s.health.SetServingStatus("", status)
	s.health.SetServingStatus(ServiceName, status)
	s.config.Logger.Debug("health status changed", "status", status.String())
}
