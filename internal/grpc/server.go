// Package grpc exposes the standard gRPC health service for the flood
// alert process.
package grpc

import (
	"context"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// ServiceName is the health service entry tracking database reachability.
const ServiceName = "floodalerts.AlertEngine"

type Pinger interface {
	Ping(ctx context.Context) error
}

type Server struct {
	health     *health.Server
	grpcServer *grpc.Server
	clock      clockwork.Clock
	wg         sync.WaitGroup
}

func NewServer(clock clockwork.Clock) *Server {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	s := &Server{
		health:     health.NewServer(),
		grpcServer: grpc.NewServer(),
		clock:      clock,
	}
	healthpb.RegisterHealthServer(s.grpcServer, s.health)
	s.health.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	s.health.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_NOT_SERVING)
	return s
}

func (s *Server) Start(addr string) error {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	slog.Info("gRPC server listening", "addr", addr)
	return s.Serve(lis)
}

func (s *Server) Serve(lis net.Listener) error {
	return s.grpcServer.Serve(lis)
}

// Watch checks the pinger every interval and mirrors the result into the
// ServiceName status until ctx is done.
func (s *Server) Watch(ctx context.Context, p Pinger, interval time.Duration) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		ticker := s.clock.NewTicker(interval)
		defer ticker.Stop()

		s.check(ctx, p)
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.Chan():
				s.check(ctx, p)
			}
		}
	}()
}

func (s *Server) check(ctx context.Context, p Pinger) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	status := healthpb.HealthCheckResponse_SERVING
	if err := p.Ping(ctx); err != nil {
		if ctx.Err() != nil {
			return
		}
		slog.Warn("health check failed", "service", ServiceName, "error", err)
		status = healthpb.HealthCheckResponse_NOT_SERVING
	}
	s.health.SetServingStatus(ServiceName, status)
}

// Stop marks every service NOT_SERVING and drains in-flight RPCs. Cancel the
// Watch context before calling it.
func (s *Server) Stop() {
	s.health.Shutdown()
	s.wg.Wait()
	s.grpcServer.GracefulStop()
}
