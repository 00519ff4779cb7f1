//-------------------------------------------------------------------------
//
// pgEdge NL2SQL Server
//
// Copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

package server

import "github.com/pgEdge/pgedge-nl2sql-server/internal/metrics"

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	// API v1 routes
	s.mux.HandleFunc("GET /v1/openapi.json", s.handleOpenAPI)
	s.mux.HandleFunc("GET /v1/health", s.handleHealth)
	s.mux.HandleFunc("GET /v1/connections", s.handleListConnections)
	s.mux.HandleFunc("POST /v1/query", s.handleQuery)
	s.mux.Handle("GET /v1/metrics", metrics.Handler())
}
