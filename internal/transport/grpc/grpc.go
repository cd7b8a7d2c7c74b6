// Package grpc implements the gRPC transport for soundofsilence.
//
// The render API itself is served over HTTP because its output is a single
// binary attachment. This transport exposes the standard gRPC health
// checking service so that gRPC-native infrastructure (Kubernetes gRPC
// probes, Envoy, grpc-health-probe) can watch the daemon.
package grpc

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"sync"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/nadzzz/soundofsilence/internal/transport"
)

// ServiceName is the name reported by the health service for the render pipeline.
const ServiceName = "soundofsilence.Render"

// Transport implements transport.Transport over gRPC.
type Transport struct {
	port   int
	health *health.Server

	mu     sync.Mutex
	server *grpc.Server
}

// New creates a new gRPC transport on the given port.
func New(port int) *Transport {
	hs := health.NewServer()
	hs.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
	hs.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_NOT_SERVING)
	return &Transport{port: port, health: hs}
}

// Name returns the transport identifier.
func (t *Transport) Name() string { return "grpc" }

// SetServing flips the reported health of the daemon and the render service.
func (t *Transport) SetServing(serving bool) {
	status := healthpb.HealthCheckResponse_NOT_SERVING
	if serving {
		status = healthpb.HealthCheckResponse_SERVING
	}
	t.health.SetServingStatus("", status)
	t.health.SetServingStatus(ServiceName, status)
}

// Register attaches the transport's services to server.
func (t *Transport) Register(server *grpc.Server) {
	healthpb.RegisterHealthServer(server, t.health)
	reflection.Register(server)
}

// Listen starts the gRPC server. The handler is unused: no render RPC is
// exposed over gRPC.
func (t *Transport) Listen(ctx context.Context, _ transport.Handler) error {
	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", t.port))
	if err != nil {
		return fmt.Errorf("grpc listen: %w", err)
	}
	return t.Serve(ctx, lis)
}

// Serve runs the gRPC server on lis until ctx is cancelled.
func (t *Transport) Serve(ctx context.Context, lis net.Listener) error {
	server := grpc.NewServer()
	t.Register(server)

	t.mu.Lock()
	t.server = server
	t.mu.Unlock()

	t.SetServing(true)
	slog.Info("grpc transport listening", "addr", lis.Addr().String())

	go func() {
		<-ctx.Done()
		slog.Info("grpc transport shutting down")
		t.health.Shutdown()
		server.GracefulStop()
	}()

	if err := server.Serve(lis); err != nil {
		return fmt.Errorf("grpc serve: %w", err)
	}
	return nil
}

// Close marks the services as not serving and gracefully stops the server.
func (t *Transport) Close() error {
	t.health.Shutdown()

	t.mu.Lock()
	server := t.server
	t.mu.Unlock()
	if server != nil {
		server.GracefulStop()
	}
	return nil
}
