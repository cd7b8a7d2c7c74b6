package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	_ "github.com/nadzzz/soundofsilence/docs"
	"github.com/nadzzz/soundofsilence/internal/config"
	"github.com/nadzzz/soundofsilence/internal/health"
	"github.com/nadzzz/soundofsilence/internal/transport"
	grpctransport "github.com/nadzzz/soundofsilence/internal/transport/grpc"
	httptransport "github.com/nadzzz/soundofsilence/internal/transport/http"
)

func newServeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP render service",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			return serve(cmd.Context(), cfg)
		},
	}
}

func serve(parent context.Context, cfg *config.Config) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	slog.Info("soundofsilence starting", "version", version)

	// Create root context with signal handling for graceful shutdown.
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	p, err := newPipeline(cfg)
	if err != nil {
		return err
	}
	defer p.Close()

	// Initialize enabled transports.
	var transports []transport.Transport
	var grpcT *grpctransport.Transport

	if cfg.Transports.GRPC.Enabled {
		grpcT = grpctransport.New(cfg.Transports.GRPC.Port)
		transports = append(transports, grpcT)
	}
	if cfg.Transports.HTTP.Enabled {
		transports = append(transports, httptransport.New(cfg.Transports.HTTP))
	}

	if len(transports) == 0 {
		return errors.New("no transports enabled, enable at least one in config")
	}

	// Start health check server.
	healthServer := health.New(cfg.Server.HealthPort)
	if cfg.Mix.BedPath != "" {
		healthServer.AddCheck("bed", func(context.Context) error {
			_, err := os.Stat(cfg.Mix.BedPath)
			return err
		})
	}
	if p.ffmpeg != nil {
		healthServer.AddCheck("ffmpeg", func(context.Context) error {
			if !p.ffmpeg.Available() {
				return fmt.Errorf("%s not found", p.ffmpeg.Path)
			}
			return nil
		})
	}
	go func() {
		if err := healthServer.ListenAndServe(ctx); err != nil {
			slog.Error("health server failed", "error", err)
		}
	}()

	// Start all transports.
	var wg sync.WaitGroup
	failures := make(chan error, len(transports))
	for _, t := range transports {
		wg.Add(1)
		go func(t transport.Transport) {
			defer wg.Done()
			slog.Info("starting transport", "name", t.Name())
			if err := t.Listen(ctx, p.renderer.Render); err != nil {
				slog.Error("transport failed", "name", t.Name(), "error", err)
				failures <- fmt.Errorf("%s transport: %w", t.Name(), err)
				cancel()
			}
		}(t)
	}

	// Mark as ready once all transports are started.
	healthServer.SetReady(true)
	slog.Info("soundofsilence ready",
		"transports", len(transports),
		"health_port", cfg.Server.HealthPort,
		"formats", p.renderer.Formats(),
		"bed", cfg.Mix.BedPath)

	// Block until shutdown signal.
	<-ctx.Done()
	slog.Info("shutdown signal received, draining...")
	healthServer.SetReady(false)
	if grpcT != nil {
		grpcT.SetServing(false)
	}

	// Close all transports gracefully.
	for _, t := range transports {
		if err := t.Close(); err != nil {
			slog.Error("transport close error", "name", t.Name(), "error", err)
		}
	}

	wg.Wait()
	close(failures)
	slog.Info("soundofsilence stopped")
	return <-failures
}
