// Package main provides the consultd API daemon.
//
// The daemon serves the schedule and recording endpoints, dispatches
// pipeline workflows to Temporal, and runs the stale transcription
// sweeper. Speech-to-text and report work executes on consultd-worker
// processes, not here.
//
// Usage:
//
//	consultd -config /etc/consultd/config.yaml
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"go.temporal.io/sdk/client"
	"go.uber.org/zap"

	"github.com/clinicore/consultd/internal/config"
	"github.com/clinicore/consultd/internal/logging"
	"github.com/clinicore/consultd/internal/orchestrator"
	"github.com/clinicore/consultd/internal/server"
	"github.com/clinicore/consultd/internal/store"
	"github.com/clinicore/consultd/internal/telemetry"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "", "path to YAML config file")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger, err := logging.NewLogger(&cfg.Logging)
	if err != nil {
		return fmt.Errorf("initializing logger: %w", err)
	}
	defer func() { _ = logging.Sync(logger) }()

	logger.Info("consultd starting",
		zap.String("addr", cfg.Server.Addr),
		zap.String("temporal", cfg.Temporal.HostPort))

	tel, err := telemetry.New(ctx, telemetry.Options{
		Enabled:        cfg.Telemetry.Enabled,
		Endpoint:       cfg.Telemetry.Endpoint,
		Protocol:       cfg.Telemetry.Protocol,
		Insecure:       cfg.Telemetry.Insecure,
		ServiceName:    cfg.Telemetry.ServiceName,
		ServiceVersion: cfg.Telemetry.ServiceVersion,
	})
	if err != nil {
		return fmt.Errorf("initializing telemetry: %w", err)
	}
	defer func() {
		if err := tel.Shutdown(context.Background()); err != nil {
			logger.Warn("telemetry shutdown failed", zap.Error(err))
		}
	}()

	st, err := store.Connect(store.Options{
		Host:       cfg.Database.Host,
		Port:       cfg.Database.Port,
		User:       cfg.Database.User,
		Password:   cfg.Database.Password.Value(),
		Name:       cfg.Database.Name,
		DataDir:    cfg.Database.DataDir,
		LogQueries: cfg.Database.LogQueries,
	})
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer func() {
		if err := st.Close(); err != nil {
			logger.Warn("store close failed", zap.Error(err))
		}
	}()

	temporalClient, err := client.Dial(client.Options{
		HostPort:  cfg.Temporal.HostPort,
		Namespace: cfg.Temporal.Namespace,
	})
	if err != nil {
		return fmt.Errorf("unable to create Temporal client: %w", err)
	}
	defer temporalClient.Close()

	orch, err := orchestrator.New(temporalClient, st, logger,
		orchestrator.WithTaskQueue(cfg.Temporal.TaskQueue))
	if err != nil {
		return fmt.Errorf("creating orchestrator: %w", err)
	}

	if cfg.Sweep.Enabled {
		sweeper, err := orchestrator.NewSweeper(st, logger,
			orchestrator.WithStaleAfter(cfg.Sweep.StaleAfter.Duration()),
			orchestrator.WithInterval(cfg.Sweep.Interval.Duration()))
		if err != nil {
			return fmt.Errorf("creating sweeper: %w", err)
		}
		if err := sweeper.Start(); err != nil {
			return fmt.Errorf("starting sweeper: %w", err)
		}
		defer sweeper.Stop()
	}

	srv, err := server.NewServer(st, orch, logger, &server.Config{
		Addr:      cfg.Server.Addr,
		RateLimit: cfg.Server.RateLimit,
		RateBurst: cfg.Server.RateBurst,
	})
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutdown signal received")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout.Duration())
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	logger.Info("consultd stopped")
	return nil
}
