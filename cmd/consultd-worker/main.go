// Package main provides the Temporal worker for the consultation
// pipeline.
//
// The worker executes transcription and report workflows dispatched by
// the consultd API daemon. It shares the daemon's configuration so both
// processes agree on the database, the Temporal namespace and the task
// queue.
//
// Usage:
//
//	consultd-worker -config /etc/consultd/config.yaml
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"
	"go.uber.org/zap"

	"github.com/clinicore/consultd/internal/config"
	"github.com/clinicore/consultd/internal/logging"
	"github.com/clinicore/consultd/internal/store"
	"github.com/clinicore/consultd/internal/telemetry"
	"github.com/clinicore/consultd/internal/transcribe"
	"github.com/clinicore/consultd/internal/workflows"
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

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger, err := logging.NewLogger(&cfg.Logging)
	if err != nil {
		return fmt.Errorf("initializing logger: %w", err)
	}
	defer func() { _ = logging.Sync(logger) }()

	logger.Info("consultd worker starting",
		zap.String("temporal", cfg.Temporal.HostPort),
		zap.String("task_queue", cfg.Temporal.TaskQueue),
		zap.String("transcriber", cfg.Transcriber.BaseURL))

	tel, err := telemetry.New(context.Background(), telemetry.Options{
		Enabled:        cfg.Telemetry.Enabled,
		Endpoint:       cfg.Telemetry.Endpoint,
		Protocol:       cfg.Telemetry.Protocol,
		Insecure:       cfg.Telemetry.Insecure,
		ServiceName:    cfg.Telemetry.ServiceName + "-worker",
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

	transcriber, err := transcribe.NewClient(transcribe.ClientConfig{
		BaseURL: cfg.Transcriber.BaseURL,
		Model:   cfg.Transcriber.Model,
		Timeout: cfg.Transcriber.Timeout.Duration(),
	}, logger)
	if err != nil {
		return fmt.Errorf("creating transcriber client: %w", err)
	}

	activities, err := workflows.NewActivities(st, transcriber, logger)
	if err != nil {
		return fmt.Errorf("creating activities: %w", err)
	}

	temporalClient, err := client.Dial(client.Options{
		HostPort:  cfg.Temporal.HostPort,
		Namespace: cfg.Temporal.Namespace,
	})
	if err != nil {
		return fmt.Errorf("unable to create Temporal client: %w", err)
	}
	defer temporalClient.Close()

	w := worker.New(temporalClient, cfg.Temporal.TaskQueue, worker.Options{})

	w.RegisterWorkflow(workflows.TranscriptionWorkflow)
	w.RegisterWorkflow(workflows.ReportWorkflow)
	w.RegisterActivity(activities)

	logger.Info("worker registered, polling for tasks")

	// Run blocks until the interrupt channel closes.
	if err := w.Run(worker.InterruptCh()); err != nil {
		return fmt.Errorf("worker stopped: %w", err)
	}

	logger.Info("consultd worker stopped")
	return nil
}
