//-------------------------------------------------------------------------
//
// pgEdge NL2SQL Server
//
// Copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/pgEdge/pgedge-nl2sql-server/internal/pipeline"
)

// maxRequestBody limits the size of a query request body.
const maxRequestBody = 1 << 20

// HealthResponse represents the health check response.
type HealthResponse struct {
	Status string `json:"status"`
}

// ConnectionsResponse represents the list connections response.
type ConnectionsResponse struct {
	Connections []pipeline.ConnectionInfo `json:"connections"`
}

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains error details.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// handleHealth handles the GET /v1/health endpoint.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, HealthResponse{Status: "healthy"})
}

// handleListConnections handles the GET /v1/connections endpoint.
func (s *Server) handleListConnections(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, ConnectionsResponse{
		Connections: s.queries.Connections(),
	})
}

// handleQuery handles the POST /v1/query endpoint. Soft errors are part of
// a 200 response; only fatal errors produce 503.
func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	var req pipeline.QueryRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody))
	if err := dec.Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "INVALID_REQUEST",
			"invalid request body: "+err.Error())
		return
	}

	if strings.TrimSpace(req.Question) == "" {
		s.respondError(w, http.StatusBadRequest, "INVALID_REQUEST", "question is required")
		return
	}

	resp, err := s.queries.Execute(r.Context(), req)
	if err != nil {
		s.respondExecuteError(w, req, err)
		return
	}

	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) respondExecuteError(w http.ResponseWriter, req pipeline.QueryRequest, err error) {
	var fatal *pipeline.FatalError
	switch {
	case errors.Is(err, pipeline.ErrInvalidRequest):
		s.respondError(w, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
	case errors.Is(err, pipeline.ErrConnectionNotFound):
		s.respondError(w, http.StatusNotFound, "CONNECTION_NOT_FOUND",
			"connection not found: "+req.Connection)
	case errors.As(err, &fatal):
		s.logger.Error("query failed",
			"stage", fatal.Stage,
			"error", err)
		s.respondError(w, http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE",
			"service unavailable")
	default:
		s.logger.Error("query failed", "error", err)
		s.respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", err.Error())
	}
}

// respondJSON writes a JSON response. The body is encoded before the
// status line goes out so an unencodable value becomes a 500.
func (s *Server) respondJSON(w http.ResponseWriter, status int, data any) {
	var body bytes.Buffer
	if err := json.NewEncoder(&body).Encode(data); err != nil {
		s.logger.Error("failed to encode response", "error", err)
		body.Reset()
		status = http.StatusInternalServerError
		_ = json.NewEncoder(&body).Encode(ErrorResponse{
			Error: ErrorDetail{
				Code:    "INTERNAL_ERROR",
				Message: "failed to encode response",
			},
		})
	}

	w.Header().Set("Content-Type", "application/json")
	// RFC 8631: Link header for API documentation discovery
	w.Header().Set("Link", `</v1/openapi.json>; rel="service-desc"`)
	w.WriteHeader(status)
	_, _ = w.Write(body.Bytes())
}

// respondError writes an error response.
func (s *Server) respondError(w http.ResponseWriter, status int, code, message string) {
	s.respondJSON(w, status, ErrorResponse{
		Error: ErrorDetail{
			Code:    code,
			Message: message,
		},
	})
}
