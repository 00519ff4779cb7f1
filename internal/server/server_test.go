//-------------------------------------------------------------------------
//
// pgEdge NL2SQL Server
//
// Portions copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/pgEdge/pgedge-nl2sql-server/internal/config"
	"github.com/pgEdge/pgedge-nl2sql-server/internal/database"
	"github.com/pgEdge/pgedge-nl2sql-server/internal/pipeline"
)

// mockQueryManager implements QueryManager for testing.
type mockQueryManager struct {
	connections []pipeline.ConnectionInfo
	execute     func(ctx context.Context, req pipeline.QueryRequest) (*pipeline.QueryResponse, error)
	requests    []pipeline.QueryRequest
}

func newMockQueryManager() *mockQueryManager {
	return &mockQueryManager{
		connections: []pipeline.ConnectionInfo{
			{
				Name:        "store",
				Description: "Online store",
				Host:        "db.internal",
				Port:        5432,
				Database:    "online_store",
			},
		},
		execute: func(_ context.Context, req pipeline.QueryRequest) (*pipeline.QueryResponse, error) {
			return &pipeline.QueryResponse{
				RequestID:      "req-1",
				GeneratedQuery: "SELECT count(*) AS total FROM users",
				Columns:        []string{"total"},
				RowCount:       1,
				Explanation:    "There are 42 users.",
			}, nil
		},
	}
}

func (m *mockQueryManager) Connections() []pipeline.ConnectionInfo {
	return m.connections
}

func (m *mockQueryManager) Execute(ctx context.Context, req pipeline.QueryRequest) (*pipeline.QueryResponse, error) {
	m.requests = append(m.requests, req)
	return m.execute(ctx, req)
}

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{
			ListenAddress: "127.0.0.1",
			Port:          8080,
		},
	}
}

func testServer(qm *mockQueryManager) *Server {
	return New(testConfig(), qm, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func postQuery(t *testing.T, srv *Server, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/v1/query", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) ErrorDetail {
	t.Helper()
	var resp ErrorResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode error response: %v", err)
	}
	return resp.Error
}

func TestHealthEndpoint(t *testing.T) {
	srv := testServer(newMockQueryManager())

	req := httptest.NewRequest(http.MethodGet, "/v1/health", nil)
	w := httptest.NewRecorder()

	srv.mux.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected status %d, got %d", http.StatusOK, w.Code)
	}

	var resp HealthResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	if resp.Status != "healthy" {
		t.Errorf("expected status 'healthy', got '%s'", resp.Status)
	}
}

func TestHealthEndpoint_MethodNotAllowed(t *testing.T) {
	srv := testServer(newMockQueryManager())

	req := httptest.NewRequest(http.MethodPost, "/v1/health", nil)
	w := httptest.NewRecorder()

	srv.mux.ServeHTTP(w, req)

	if w.Code != http.StatusMethodNotAllowed {
		t.Errorf("expected status %d, got %d", http.StatusMethodNotAllowed, w.Code)
	}
}

func TestListConnectionsEndpoint(t *testing.T) {
	srv := testServer(newMockQueryManager())

	req := httptest.NewRequest(http.MethodGet, "/v1/connections", nil)
	w := httptest.NewRecorder()

	srv.mux.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected status %d, got %d", http.StatusOK, w.Code)
	}

	var resp ConnectionsResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	if len(resp.Connections) != 1 {
		t.Fatalf("expected 1 connection, got %d", len(resp.Connections))
	}
	if resp.Connections[0].Name != "store" {
		t.Errorf("expected connection name 'store', got '%s'", resp.Connections[0].Name)
	}
}

func TestQueryEndpoint(t *testing.T) {
	qm := newMockQueryManager()
	srv := testServer(qm)

	w := postQuery(t, srv, `{"question": "how many users are there?", "connection": "store", "visualize": true}`)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d: %s", http.StatusOK, w.Code, w.Body.String())
	}

	var resp pipeline.QueryResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.GeneratedQuery != "SELECT count(*) AS total FROM users" || resp.Explanation != "There are 42 users." {
		t.Errorf("unexpected response: %+v", resp)
	}

	if len(qm.requests) != 1 {
		t.Fatalf("expected 1 request, got %d", len(qm.requests))
	}
	got := qm.requests[0]
	if got.Question != "how many users are there?" || got.Connection != "store" || !got.Visualize {
		t.Errorf("request not passed through: %+v", got)
	}
}

func TestQueryEndpoint_SoftErrorIsOK(t *testing.T) {
	qm := newMockQueryManager()
	qm.execute = func(context.Context, pipeline.QueryRequest) (*pipeline.QueryResponse, error) {
		return &pipeline.QueryResponse{
			RequestID:        "req-2",
			HasError:         true,
			ErrorExplanation: "Only read-only questions are supported.",
		}, nil
	}
	srv := testServer(qm)

	w := postQuery(t, srv, `{"question": "drop the users table"}`)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, w.Code)
	}

	var body map[string]any
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if body["has_error"] != true {
		t.Errorf("expected has_error true, got %v", body["has_error"])
	}
	if _, ok := body["rows"]; ok {
		t.Error("soft error response should not include rows")
	}
}

func TestQueryEndpoint_Errors(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		err        error
		wantStatus int
		wantCode   string
		wantCalled bool
	}{
		{
			name:       "invalid json",
			body:       `invalid json`,
			wantStatus: http.StatusBadRequest,
			wantCode:   "INVALID_REQUEST",
		},
		{
			name:       "empty question",
			body:       `{"question": "   "}`,
			wantStatus: http.StatusBadRequest,
			wantCode:   "INVALID_REQUEST",
		},
		{
			name:       "invalid request from manager",
			body:       `{"question": "list users"}`,
			err:        fmt.Errorf("%w: no connection specified", pipeline.ErrInvalidRequest),
			wantStatus: http.StatusBadRequest,
			wantCode:   "INVALID_REQUEST",
			wantCalled: true,
		},
		{
			name:       "unknown connection",
			body:       `{"question": "list users", "connection": "nope"}`,
			err:        fmt.Errorf("%w: nope", pipeline.ErrConnectionNotFound),
			wantStatus: http.StatusNotFound,
			wantCode:   "CONNECTION_NOT_FOUND",
			wantCalled: true,
		},
		{
			name: "inference unavailable",
			body: `{"question": "list users"}`,
			err: &pipeline.FatalError{
				Stage: pipeline.StageGenerateQuery,
				Err:   errors.New("rate limited"),
			},
			wantStatus: http.StatusServiceUnavailable,
			wantCode:   "SERVICE_UNAVAILABLE",
			wantCalled: true,
		},
		{
			name:       "unexpected error",
			body:       `{"question": "list users"}`,
			err:        errors.New("boom"),
			wantStatus: http.StatusInternalServerError,
			wantCode:   "INTERNAL_ERROR",
			wantCalled: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			qm := newMockQueryManager()
			qm.execute = func(context.Context, pipeline.QueryRequest) (*pipeline.QueryResponse, error) {
				return nil, tt.err
			}
			srv := testServer(qm)

			w := postQuery(t, srv, tt.body)

			if w.Code != tt.wantStatus {
				t.Errorf("expected status %d, got %d", tt.wantStatus, w.Code)
			}
			if detail := decodeError(t, w); detail.Code != tt.wantCode {
				t.Errorf("expected code %s, got %s", tt.wantCode, detail.Code)
			}
			if called := len(qm.requests) > 0; called != tt.wantCalled {
				t.Errorf("manager called = %v, want %v", called, tt.wantCalled)
			}
		})
	}
}

func TestQueryEndpoint_FatalErrorHidesDetails(t *testing.T) {
	qm := newMockQueryManager()
	qm.execute = func(context.Context, pipeline.QueryRequest) (*pipeline.QueryResponse, error) {
		return nil, &pipeline.FatalError{
			Stage: pipeline.StageValidateInput,
			Err:   errors.New("invalid api key sk-123"),
		}
	}
	srv := testServer(qm)

	w := postQuery(t, srv, `{"question": "list users"}`)

	if strings.Contains(w.Body.String(), "sk-123") {
		t.Errorf("fatal error details must not reach the client: %s", w.Body.String())
	}
}

func TestOpenAPIEndpoint(t *testing.T) {
	srv := testServer(newMockQueryManager())

	req := httptest.NewRequest(http.MethodGet, "/v1/openapi.json", nil)
	w := httptest.NewRecorder()

	srv.mux.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected status %d, got %d", http.StatusOK, w.Code)
	}

	// Check Content-Type
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("expected Content-Type 'application/json', got '%s'", ct)
	}

	var spec OpenAPISpec
	if err := json.NewDecoder(w.Body).Decode(&spec); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	if spec.OpenAPI != "3.0.3" {
		t.Errorf("expected OpenAPI version '3.0.3', got '%v'", spec.OpenAPI)
	}
	for _, path := range []string{"/health", "/connections", "/query", "/metrics"} {
		if _, ok := spec.Paths[path]; !ok {
			t.Errorf("OpenAPI spec missing path %s", path)
		}
	}
}

func TestOpenAPISpec_ReferencesResolve(t *testing.T) {
	spec := BuildOpenAPISpec()

	var refs []string
	var collect func(OpenAPISchema)
	collect = func(s OpenAPISchema) {
		if s.Ref != "" {
			refs = append(refs, s.Ref)
		}
		if s.Items != nil {
			collect(*s.Items)
		}
		for _, p := range s.Properties {
			collect(p)
		}
	}
	for _, schema := range spec.Components.Schemas {
		collect(schema)
	}
	for _, path := range spec.Paths {
		for _, op := range []*OpenAPIOperation{path.Get, path.Post, path.Put, path.Delete} {
			if op == nil {
				continue
			}
			if op.RequestBody != nil {
				for _, mt := range op.RequestBody.Content {
					collect(mt.Schema)
				}
			}
			for _, resp := range op.Responses {
				for _, mt := range resp.Content {
					collect(mt.Schema)
				}
			}
		}
	}

	for _, ref := range refs {
		name := strings.TrimPrefix(ref, "#/components/schemas/")
		if _, ok := spec.Components.Schemas[name]; !ok {
			t.Errorf("unresolved reference %s", ref)
		}
	}
}

func TestRFC8631LinkHeader(t *testing.T) {
	srv := testServer(newMockQueryManager())

	// Test that Link header is present on all API responses
	endpoints := []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/v1/health"},
		{http.MethodGet, "/v1/connections"},
		{http.MethodGet, "/v1/openapi.json"},
	}

	for _, ep := range endpoints {
		req := httptest.NewRequest(ep.method, ep.path, nil)
		w := httptest.NewRecorder()
		srv.mux.ServeHTTP(w, req)

		link := w.Header().Get("Link")
		if !strings.Contains(link, "</v1/openapi.json>") || !strings.Contains(link, `rel="service-desc"`) {
			t.Errorf("%s %s: unexpected Link header %q", ep.method, ep.path, link)
		}
	}
}

func TestMetricsEndpoint(t *testing.T) {
	srv := testServer(newMockQueryManager())
	handler := srv.Handler()

	req := httptest.NewRequest(http.MethodGet, "/v1/health", nil)
	handler.ServeHTTP(httptest.NewRecorder(), req)

	req = httptest.NewRequest(http.MethodGet, "/v1/metrics", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, w.Code)
	}
	body := w.Body.String()
	if !strings.Contains(body, "pgedge_nl2sql_http_requests_total") {
		t.Error("expected HTTP request counter in metrics output")
	}
	if !strings.Contains(body, `path="GET /v1/health"`) {
		t.Error("expected requests to be labelled by route pattern")
	}
}

func TestCORSMiddleware(t *testing.T) {
	cfg := testConfig()
	cfg.Server.CORS = config.CORSConfig{
		Enabled:        true,
		AllowedOrigins: []string{"https://app.example.com"},
	}
	srv := New(cfg, newMockQueryManager(), slog.New(slog.NewTextHandler(io.Discard, nil)))

	tests := []struct {
		origin string
		want   string
	}{
		{"https://app.example.com", "https://app.example.com"},
		{"https://evil.example.com", ""},
	}

	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodOptions, "/v1/query", nil)
		req.Header.Set("Origin", tt.origin)
		w := httptest.NewRecorder()
		srv.Handler().ServeHTTP(w, req)

		if w.Code != http.StatusNoContent {
			t.Errorf("%s: expected preflight status %d, got %d", tt.origin, http.StatusNoContent, w.Code)
		}
		if got := w.Header().Get("Access-Control-Allow-Origin"); got != tt.want {
			t.Errorf("%s: expected allowed origin %q, got %q", tt.origin, tt.want, got)
		}
	}
}

func TestRecoveryMiddleware(t *testing.T) {
	srv := testServer(newMockQueryManager())
	srv.mux.HandleFunc("GET /v1/panic", func(http.ResponseWriter, *http.Request) {
		panic("unexpected")
	})

	req := httptest.NewRequest(http.MethodGet, "/v1/panic", nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusInternalServerError {
		t.Errorf("expected status %d, got %d", http.StatusInternalServerError, w.Code)
	}
	if detail := decodeError(t, w); detail.Code != "INTERNAL_ERROR" {
		t.Errorf("expected INTERNAL_ERROR, got %s", detail.Code)
	}
}

func TestWriteTimeout(t *testing.T) {
	cfg := testConfig()
	cfg.LLM.TimeoutSeconds = 10
	cfg.Query.TimeoutSeconds = 5
	srv := New(cfg, newMockQueryManager(), nil)

	want := 6*10*time.Second + 3*5*time.Second + 10*time.Second
	if got := srv.writeTimeout(); got != want {
		t.Errorf("writeTimeout() = %v, want %v", got, want)
	}
}

func TestQueryEndpoint_NonFiniteValues(t *testing.T) {
	qm := newMockQueryManager()
	qm.execute = func(_ context.Context, _ pipeline.QueryRequest) (*pipeline.QueryResponse, error) {
		return &pipeline.QueryResponse{
			RequestID: "req-1",
			Columns:   []string{"x"},
			Rows: []database.Row{
				{{Name: "x", Value: math.NaN()}},
				{{Name: "x", Value: 1.5}},
			},
			RowCount: 2,
		}, nil
	}
	srv := testServer(qm)

	w := postQuery(t, srv, `{"question": "list the ratios"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d: %s", http.StatusOK, w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), `"rows":[{"x":"NaN"},{"x":1.5}]`) {
		t.Errorf("unexpected body: %s", w.Body.String())
	}
}

func TestRespondJSON_EncodeFailure(t *testing.T) {
	srv := testServer(newMockQueryManager())

	w := httptest.NewRecorder()
	srv.respondJSON(w, http.StatusOK, map[string]float64{"x": math.Inf(1)})

	if w.Code != http.StatusInternalServerError {
		t.Errorf("expected status %d, got %d", http.StatusInternalServerError, w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("expected JSON content type, got %q", ct)
	}
	if detail := decodeError(t, w); detail.Code != "INTERNAL_ERROR" {
		t.Errorf("expected INTERNAL_ERROR, got %q", detail.Code)
	}
}
