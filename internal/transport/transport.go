// Package transport defines the interface for pluggable request transports.
//
// Each transport (HTTP, gRPC) implements this interface and is handed the
// renderer's Render method. The renderer doesn't care how requests arrive;
// it only works with the Handler contract.
package transport

import (
	"context"

	"github.com/nadzzz/soundofsilence/internal/message"
)

// Handler is a function that processes an incoming request and returns the
// finished deliverable. The renderer provides this handler to each transport.
type Handler func(ctx context.Context, req *message.GenerateRequest) (*message.RenderResult, error)

// Transport is the interface that every transport adapter must implement.
type Transport interface {
	// Name returns the transport identifier (e.g., "grpc", "http").
	Name() string

	// Listen starts accepting incoming requests and passes them to the handler.
	// It blocks until the context is cancelled.
	Listen(ctx context.Context, handler Handler) error

	// Close gracefully shuts down the transport, draining in-flight work.
	Close() error
}
