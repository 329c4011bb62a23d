// Copyright (c) 2025 Autograding Contributors
//
// This software is released under the MIT License.
// See LICENSE file in the repository for details.

package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.temporal.io/sdk/client"

	"github.com/illinois/autograding/internal/config"
	"github.com/illinois/autograding/internal/httpapi"
	"github.com/illinois/autograding/internal/results"
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

	store, err := results.Open(cfg.Storage.Path)
	if err != nil {
		slog.Error("Failed to open results store", "path", cfg.Storage.Path, "error", err)
		os.Exit(1)
	}
	defer store.Close()

	// The server stays up without Temporal; POST /api/grade returns 503
	// until a cluster is reachable at the next restart.
	var temporalClient client.Client
	c, err := client.Dial(client.Options{
		HostPort:  cfg.Temporal.HostPort,
		Namespace: cfg.Temporal.Namespace,
	})
	if err != nil {
		slog.Warn("Temporal unavailable, grade submission disabled", "host_port", cfg.Temporal.HostPort, "error", err)
	} else {
		temporalClient = c
		defer c.Close()
	}

	api := httpapi.NewServer(store, temporalClient, cfg.Temporal.TaskQueue)
	srv := &http.Server{
		Addr:              cfg.Server.ListenAddr,
		Handler:           api.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("Results server listening", "addr", cfg.Server.ListenAddr)
		errCh <- srv.ListenAndServe()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server failed", "error", err)
			os.Exit(1)
		}
	case <-sigCh:
		slog.Info("Shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("Server shutdown failed", "error", err)
		}
	}
	slog.Info("Server stopped")
}

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
