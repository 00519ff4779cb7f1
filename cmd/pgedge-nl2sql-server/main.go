//-------------------------------------------------------------------------
//
// pgEdge NL2SQL Server
//
// Portions copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pgEdge/pgedge-nl2sql-server/internal/config"
	"github.com/pgEdge/pgedge-nl2sql-server/internal/pipeline"
	"github.com/pgEdge/pgedge-nl2sql-server/internal/server"
)

// Version information - set via ldflags during build
var (
	version   = "1.0.0-alpha1"
	buildTime = "unknown"
	gitCommit = "unknown"
)

// Exit codes for -ask mode.
const (
	exitOK        = 0
	exitFailure   = 1
	exitSoftError = 2
)

func main() {
	var (
		showVersion = flag.Bool("version", false, "Show version information")
		showHelp    = flag.Bool("help", false, "Show help message")
		showOpenAPI = flag.Bool("openapi", false, "Output OpenAPI specification and exit")
		configPath  = flag.String("config", "", "Path to configuration file")
		question    = flag.String("ask", "", "Answer a single question and exit")
		connection  = flag.String("connection", "", "Connection to use with -ask")
		visualize   = flag.Bool("visualize", false, "Include a chart recommendation with -ask")
		debug       = flag.Bool("debug", false, "Enable debug logging")
	)

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, `pgEdge NL2SQL Server - Natural-language questions answered with SQL for PostgreSQL

Usage:
    pgedge-nl2sql-server [options]

Options:
    -config string
        Path to configuration file. If not specified, searches:
        1. /etc/pgedge/pgedge-nl2sql-server.yaml
        2. pgedge-nl2sql-server.yaml (in binary directory)

    -ask string
        Answer a single question, print the result as JSON and exit.
        Exits with status 2 if the question could not be answered.

    -connection string
        Name of the connection to query with -ask. Optional when only
        one connection is configured.

    -visualize
        Include a chart recommendation with -ask

    -debug
        Enable debug logging

    -openapi
        Output OpenAPI v3 specification as JSON and exit

    -version
        Show version information and exit

    -help
        Show this help message and exit

For more information, visit: https://github.com/pgEdge/pgedge-nl2sql-server
`)
	}

	flag.Parse()

	if *showHelp {
		flag.Usage()
		os.Exit(0)
	}

	if *showVersion {
		fmt.Printf("pgEdge NL2SQL Server\n")
		fmt.Printf("  Version:    %s\n", version)
		fmt.Printf("  Build Time: %s\n", buildTime)
		fmt.Printf("  Git Commit: %s\n", gitCommit)
		os.Exit(0)
	}

	if *showOpenAPI {
		if err := writeJSON(os.Stdout, server.BuildOpenAPISpec()); err != nil {
			fmt.Fprintf(os.Stderr, "failed to encode OpenAPI spec: %v\n", err)
			os.Exit(1)
		}
		os.Exit(0)
	}

	level := slog.LevelInfo
	if *debug {
		level = slog.LevelDebug
	}

	// In -ask mode stdout carries the result, so logs go to stderr.
	logOut := os.Stdout
	if *question != "" {
		logOut = os.Stderr
	}
	logger := slog.New(slog.NewTextHandler(logOut, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	if *question != "" {
		os.Exit(ask(*configPath, pipeline.QueryRequest{
			Question:   *question,
			Connection: *connection,
			Visualize:  *visualize,
		}, logger))
	}

	// Run the server
	if err := run(*configPath, logger); err != nil {
		logger.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func newManager(configPath string, logger *slog.Logger) (*config.Config, *pipeline.Manager, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger.Info("configuration loaded",
		"connections", len(cfg.Connections),
		"provider", cfg.LLM.Provider)

	qm, err := pipeline.NewManagerWithLogger(pipeline.ManagerConfig{
		Config: cfg,
		Logger: logger,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create query manager: %w", err)
	}
	return cfg, qm, nil
}

// ask answers one question and returns the process exit code.
func ask(configPath string, req pipeline.QueryRequest, logger *slog.Logger) int {
	_, qm, err := newManager(configPath, logger)
	if err != nil {
		logger.Error("startup failed", "error", err)
		return exitFailure
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	resp, err := qm.Execute(ctx, req)
	if err != nil {
		var fatal *pipeline.FatalError
		if errors.As(err, &fatal) {
			logger.Error("inference service unavailable",
				"stage", fatal.Stage,
				"error", fatal.Err)
		} else {
			logger.Error("query failed", "error", err)
		}
		return exitFailure
	}

	if err := writeJSON(os.Stdout, resp); err != nil {
		logger.Error("failed to encode response", "error", err)
		return exitFailure
	}

	if resp.HasError {
		return exitSoftError
	}
	return exitOK
}

func run(configPath string, logger *slog.Logger) error {
	cfg, qm, err := newManager(configPath, logger)
	if err != nil {
		return err
	}

	logger.Info("query manager ready", "model", qm.ModelName())

	// Create and start server
	srv := server.New(cfg, qm, logger)

	// Handle graceful shutdown
	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, os.Interrupt, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	// Wait for shutdown signal or server error
	select {
	case err := <-errCh:
		return err
	case sig := <-shutdownCh:
		logger.Info("received shutdown signal", "signal", sig)

		// Give 30 seconds for graceful shutdown
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		return srv.Shutdown(ctx)
	}
}

func writeJSON(w io.Writer, v any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}
