// Copyright (c) 2025 Autograding Contributors
//
// This software is released under the MIT License.
// See LICENSE file in the repository for details.

package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/illinois/autograding/internal/config"
	"github.com/illinois/autograding/internal/feedback"
	"github.com/illinois/autograding/internal/ghstatus"
	"github.com/illinois/autograding/internal/gotest"
	"github.com/illinois/autograding/internal/results"
	"github.com/illinois/autograding/internal/sandbox"
	"github.com/illinois/autograding/internal/telemetry"
	"github.com/illinois/autograding/internal/temporal"
	"github.com/illinois/autograding/internal/worklock"
)

func main() {
	configPath := flag.String("config", "", "path to autograding.yaml (defaults to the working directory)")
	flag.Parse()

	setupLogging()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("Invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()

	tp, err := telemetry.NewTracerProvider(ctx, &telemetry.Config{
		ServiceName:    "grading-worker",
		ServiceVersion: "1.0.0",
		CollectorURL:   "localhost:4318",
		Environment:    "development",
		SamplingRate:   1.0,
	})
	if err != nil {
		slog.Warn("Tracing disabled", "error", err)
	} else {
		defer func() {
			if err := tp.Shutdown(ctx); err != nil {
				slog.Warn("Tracer shutdown failed", "error", err)
			}
		}()
	}

	store, err := results.Open(cfg.Storage.Path)
	if err != nil {
		slog.Error("Failed to open results store", "path", cfg.Storage.Path, "error", err)
		os.Exit(1)
	}
	defer store.Close()

	locks := worklock.NewRegistry(0)
	go sweepClaims(locks)

	activities := &temporal.Activities{
		ManifestDir: cfg.Assignments.Dir,
		Store:       store,
		Feedback:    buildFeedback(cfg),
		Tests:       gotest.NewRunner(),
		Locks:       locks,
	}
	if cfg.GitHub.Enabled() {
		activities.Publisher = ghstatus.NewClient(cfg.GitHub.Token(), cfg.GitHub.Repository, cfg.GitHub.BaseURL)
		slog.Info("GitHub publishing enabled", "repository", cfg.GitHub.Repository)
	}
	if cfg.Sandbox.Enabled {
		runner, err := sandbox.NewRunner(cfg.Sandbox.Image)
		if err != nil {
			slog.Error("Failed to initialize sandbox", "image", cfg.Sandbox.Image, "error", err)
			os.Exit(1)
		}
		activities.Sandbox = runner
		slog.Info("Sandboxed grading enabled", "image", cfg.Sandbox.Image)
	}

	w, err := temporal.NewWorker(ctx, temporal.WorkerOptions{
		HostPort:  cfg.Temporal.HostPort,
		Namespace: cfg.Temporal.Namespace,
		TaskQueue: cfg.Temporal.TaskQueue,
	}, activities)
	if err != nil {
		slog.Error("Failed to create worker", "error", err)
		os.Exit(1)
	}
	defer w.Close()

	if err := w.Start(ctx); err != nil {
		slog.Error("Failed to start worker", "error", err)
		os.Exit(1)
	}
	slog.Info("Worker listening", "task_queue", cfg.Temporal.TaskQueue, "host_port", cfg.Temporal.HostPort)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	slog.Info("Shutdown signal received")
	if err := w.Stop(ctx); err != nil {
		slog.Error("Worker stop failed", "error", err)
	}
	slog.Info("Worker stopped")
}

// loadConfig reads the named file, or falls back to built-in defaults when no
// path is given and no autograding.yaml exists in the working directory.
func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.Load(path)
	}
	if _, err := os.Stat(config.DefaultPath); os.IsNotExist(err) {
		slog.Info("No configuration file found, using defaults")
		return config.Default(), nil
	}
	return config.Load("")
}

// sweepClaims periodically drops expired submission claims left behind by
// crashed grading runs.
func sweepClaims(locks *worklock.Registry) {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()
	for range ticker.C {
		if n := locks.Sweep(); n > 0 {
			slog.Info("Dropped expired submission claims", "count", n)
		}
	}
}

func buildFeedback(cfg *config.Config) feedback.Generator {
	if !cfg.Feedback.Enabled {
		return feedback.Disabled{}
	}
	slog.Info("Feedback generation enabled", "url", cfg.Feedback.OpencodeURL, "model", cfg.Feedback.Model)
	return feedback.NewClient(cfg.Feedback.OpencodeURL, cfg.Feedback.Model)
}

func setupLogging() {
	logFormat := os.Getenv("LOG_FORMAT")
	var handler slog.Handler
	if logFormat == "json" {
		handler = slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})
	} else {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})
	}
	slog.SetDefault(slog.New(handler))
}
