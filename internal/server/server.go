//-------------------------------------------------------------------------
//
// pgEdge NL2SQL Server
//
// Copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

// Package server provides the HTTP server for the NL2SQL API.
package server

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/pgEdge/pgedge-nl2sql-server/internal/config"
	"github.com/pgEdge/pgedge-nl2sql-server/internal/pipeline"
)

// QueryManager defines the interface the server uses to answer questions.
type QueryManager interface {
	Connections() []pipeline.ConnectionInfo
	Execute(ctx context.Context, req pipeline.QueryRequest) (*pipeline.QueryResponse, error)
}

// Server is the HTTP server for the NL2SQL API.
type Server struct {
	config  *config.Config
	queries QueryManager
	logger  *slog.Logger
	server  *http.Server
	mux     *http.ServeMux
}

// New creates a new HTTP server.
func New(cfg *config.Config, qm QueryManager, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		config:  cfg,
		queries: qm,
		logger:  logger,
		mux:     http.NewServeMux(),
	}

	// Set up routes
	s.setupRoutes()

	return s
}

// Handler returns the routes wrapped in the server's middleware.
func (s *Server) Handler() http.Handler {
	return s.applyMiddleware(s.mux)
}

// writeTimeout bounds a whole request: every inference call and database
// call of one run, with some slack for the response itself.
func (s *Server) writeTimeout() time.Duration {
	const inferenceCalls, databaseCalls = 6, 3
	d := time.Duration(inferenceCalls)*s.config.LLM.Timeout() +
		time.Duration(databaseCalls)*s.config.Query.Timeout()
	if d <= 0 {
		return 60 * time.Second
	}
	return d + 10*time.Second
}

// ListenAndServe starts the HTTP server.
func (s *Server) ListenAndServe() error {
	addr := fmt.Sprintf("%s:%d", s.config.Server.ListenAddress, s.config.Server.Port)

	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: s.writeTimeout(),
		IdleTimeout:  120 * time.Second,
	}

	s.logger.Info("starting server",
		"address", addr,
		"tls", s.config.Server.TLS.Enabled)

	if s.config.Server.TLS.Enabled {
		return s.serveTLS()
	}

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}

	return s.server.Serve(listener)
}

// serveTLS starts the server with TLS.
func (s *Server) serveTLS() error {
	tlsCfg := &tls.Config{
		MinVersion: tls.VersionTLS12,
	}
	s.server.TLSConfig = tlsCfg

	return s.server.ListenAndServeTLS(
		s.config.Server.TLS.CertFile,
		s.config.Server.TLS.KeyFile,
	)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down server")

	if s.server != nil {
		return s.server.Shutdown(ctx)
	}

	return nil
}

// Addr returns the server's address. Returns empty string if not started.
func (s *Server) Addr() string {
	if s.server != nil {
		return s.server.Addr
	}
	return ""
}
