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
	"net/http"
)

// OpenAPISpec represents the OpenAPI v3 specification.
type OpenAPISpec struct {
	OpenAPI    string                 `json:"openapi"`
	Info       OpenAPIInfo            `json:"info"`
	Servers    []OpenAPIServer        `json:"servers"`
	Paths      map[string]OpenAPIPath `json:"paths"`
	Components OpenAPIComponents      `json:"components"`
}

// OpenAPIInfo contains API metadata.
type OpenAPIInfo struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Version     string `json:"version"`
}

// OpenAPIServer describes a server.
type OpenAPIServer struct {
	URL         string `json:"url"`
	Description string `json:"description"`
}

// OpenAPIPath contains operations for a path.
type OpenAPIPath struct {
	Get    *OpenAPIOperation `json:"get,omitempty"`
	Post   *OpenAPIOperation `json:"post,omitempty"`
	Put    *OpenAPIOperation `json:"put,omitempty"`
	Delete *OpenAPIOperation `json:"delete,omitempty"`
}

// OpenAPIOperation describes an API operation.
type OpenAPIOperation struct {
	Summary     string                     `json:"summary"`
	Description string                     `json:"description,omitempty"`
	OperationID string                     `json:"operationId"`
	Tags        []string                   `json:"tags,omitempty"`
	Parameters  []OpenAPIParameter         `json:"parameters,omitempty"`
	RequestBody *OpenAPIRequestBody        `json:"requestBody,omitempty"`
	Responses   map[string]OpenAPIResponse `json:"responses"`
}

// OpenAPIParameter describes a parameter.
type OpenAPIParameter struct {
	Name        string        `json:"name"`
	In          string        `json:"in"`
	Description string        `json:"description,omitempty"`
	Required    bool          `json:"required"`
	Schema      OpenAPISchema `json:"schema"`
}

// OpenAPIRequestBody describes a request body.
type OpenAPIRequestBody struct {
	Description string                      `json:"description,omitempty"`
	Required    bool                        `json:"required"`
	Content     map[string]OpenAPIMediaType `json:"content"`
}

// OpenAPIResponse describes a response.
type OpenAPIResponse struct {
	Description string                      `json:"description"`
	Content     map[string]OpenAPIMediaType `json:"content,omitempty"`
}

// OpenAPIMediaType describes a media type.
type OpenAPIMediaType struct {
	Schema OpenAPISchema `json:"schema"`
}

// OpenAPISchema describes a schema.
type OpenAPISchema struct {
	Type        string                   `json:"type,omitempty"`
	Format      string                   `json:"format,omitempty"`
	Description string                   `json:"description,omitempty"`
	Properties  map[string]OpenAPISchema `json:"properties,omitempty"`
	Items       *OpenAPISchema           `json:"items,omitempty"`
	Required    []string                 `json:"required,omitempty"`
	Default     any                      `json:"default,omitempty"`
	Ref         string                   `json:"$ref,omitempty"`
}

// OpenAPIComponents contains reusable components.
type OpenAPIComponents struct {
	Schemas map[string]OpenAPISchema `json:"schemas"`
}

// handleOpenAPI handles the GET /v1/openapi.json endpoint.
func (s *Server) handleOpenAPI(w http.ResponseWriter, r *http.Request) {
	spec := BuildOpenAPISpec()
	s.respondJSON(w, http.StatusOK, spec)
}

// BuildOpenAPISpec constructs the OpenAPI v3 specification.
// This is exported so it can be used to generate static documentation.
func BuildOpenAPISpec() OpenAPISpec {
	return OpenAPISpec{
		OpenAPI: "3.0.3",
		Info: OpenAPIInfo{
			Title:       "pgEdge NL2SQL Server API",
			Description: "REST API for answering natural-language questions with SQL against PostgreSQL",
			Version:     "1.0.0",
		},
		Servers: []OpenAPIServer{
			{
				URL:         "/v1",
				Description: "API v1",
			},
		},
		Paths: map[string]OpenAPIPath{
			"/health": {
				Get: &OpenAPIOperation{
					Summary:     "Health check",
					Description: "Check if the server is running and healthy",
					OperationID: "getHealth",
					Tags:        []string{"System"},
					Responses: map[string]OpenAPIResponse{
						"200": jsonResponse("Server is healthy", "HealthResponse"),
					},
				},
			},
			"/connections": {
				Get: &OpenAPIOperation{
					Summary:     "List connections",
					Description: "Get the configured database connection profiles. Credentials are never included.",
					OperationID: "listConnections",
					Tags:        []string{"Connections"},
					Responses: map[string]OpenAPIResponse{
						"200": jsonResponse("List of connections", "ConnectionsResponse"),
					},
				},
			},
			"/query": {
				Post: &OpenAPIOperation{
					Summary: "Answer a question",
					Description: "Translate a natural-language question into a read-only SQL query, " +
						"run it and explain the result. Questions that cannot be answered are " +
						"reported with has_error set and an explanation.",
					OperationID: "query",
					Tags:        []string{"Query"},
					RequestBody: &OpenAPIRequestBody{
						Description: "Query request",
						Required:    true,
						Content: map[string]OpenAPIMediaType{
							"application/json": {
								Schema: OpenAPISchema{Ref: "#/components/schemas/QueryRequest"},
							},
						},
					},
					Responses: map[string]OpenAPIResponse{
						"200": jsonResponse("Query response", "QueryResponse"),
						"400": jsonResponse("Invalid request", "ErrorResponse"),
						"404": jsonResponse("Connection not found", "ErrorResponse"),
						"500": jsonResponse("Internal server error", "ErrorResponse"),
						"503": jsonResponse("Inference service unavailable", "ErrorResponse"),
					},
				},
			},
			"/metrics": {
				Get: &OpenAPIOperation{
					Summary:     "Metrics",
					Description: "Prometheus metrics in the text exposition format",
					OperationID: "getMetrics",
					Tags:        []string{"System"},
					Responses: map[string]OpenAPIResponse{
						"200": {
							Description: "Metrics",
							Content: map[string]OpenAPIMediaType{
								"text/plain": {Schema: OpenAPISchema{Type: "string"}},
							},
						},
					},
				},
			},
		},
		Components: OpenAPIComponents{
			Schemas: map[string]OpenAPISchema{
				"HealthResponse": {
					Type: "object",
					Properties: map[string]OpenAPISchema{
						"status": {Type: "string", Description: "Health status"},
					},
					Required: []string{"status"},
				},
				"ConnectionInfo": {
					Type: "object",
					Properties: map[string]OpenAPISchema{
						"name":        {Type: "string", Description: "Connection name"},
						"description": {Type: "string", Description: "Connection description"},
						"host":        {Type: "string"},
						"port":        {Type: "integer"},
						"database":    {Type: "string"},
					},
					Required: []string{"name", "host", "port", "database"},
				},
				"ConnectionsResponse": {
					Type: "object",
					Properties: map[string]OpenAPISchema{
						"connections": {
							Type:  "array",
							Items: &OpenAPISchema{Ref: "#/components/schemas/ConnectionInfo"},
						},
					},
					Required: []string{"connections"},
				},
				"DatabaseConfig": {
					Type:        "object",
					Description: "Connection parameters supplied with the request",
					Properties: map[string]OpenAPISchema{
						"host":        {Type: "string"},
						"port":        {Type: "integer", Default: 5432},
						"database":    {Type: "string"},
						"username":    {Type: "string"},
						"password":    {Type: "string", Format: "password"},
						"ssl_mode":    {Type: "string", Default: "prefer"},
						"ssl_cert":    {Type: "string"},
						"ssl_key":     {Type: "string"},
						"ssl_root_ca": {Type: "string"},
					},
					Required: []string{"host", "database", "username"},
				},
				"QueryRequest": {
					Type: "object",
					Properties: map[string]OpenAPISchema{
						"question": {Type: "string", Description: "The natural-language question"},
						"connection": {
							Type:        "string",
							Description: "Name of a configured connection. Optional when only one is configured.",
						},
						"database": {
							Ref: "#/components/schemas/DatabaseConfig",
						},
						"visualize": {
							Type:        "boolean",
							Description: "Include a chart recommendation",
							Default:     false,
						},
					},
					Required: []string{"question"},
				},
				"Chart": {
					Type: "object",
					Properties: map[string]OpenAPISchema{
						"is_visualization_possible": {Type: "boolean"},
						"chart_type":                {Type: "string"},
						"explanation":               {Type: "string"},
						"x_axis":                    {Type: "string"},
						"y_axis":                    {Type: "array", Items: &OpenAPISchema{Type: "string"}},
						"tooltip":                   {Type: "array", Items: &OpenAPISchema{Type: "string"}},
					},
					Required: []string{"is_visualization_possible"},
				},
				"QueryResponse": {
					Type: "object",
					Properties: map[string]OpenAPISchema{
						"request_id":        {Type: "string", Format: "uuid"},
						"has_error":         {Type: "boolean", Description: "The question could not be answered"},
						"error_explanation": {Type: "string", Description: "Why the question could not be answered"},
						"generated_query":   {Type: "string", Description: "The SQL that was run"},
						"columns":           {Type: "array", Items: &OpenAPISchema{Type: "string"}},
						"rows": {
							Type:        "array",
							Description: "Result rows keyed by column, in column order",
							Items:       &OpenAPISchema{Type: "object"},
						},
						"row_count":   {Type: "integer"},
						"truncated":   {Type: "boolean", Description: "More rows were returned than kept"},
						"explanation": {Type: "string", Description: "Plain-language explanation of the result"},
						"chart":       {Ref: "#/components/schemas/Chart"},
					},
					Required: []string{"request_id", "has_error", "row_count"},
				},
				"ErrorResponse": {
					Type: "object",
					Properties: map[string]OpenAPISchema{
						"error": {
							Type: "object",
							Properties: map[string]OpenAPISchema{
								"code":    {Type: "string", Description: "Error code"},
								"message": {Type: "string", Description: "Error message"},
							},
							Required: []string{"code", "message"},
						},
					},
					Required: []string{"error"},
				},
			},
		},
	}
}

func jsonResponse(description, schema string) OpenAPIResponse {
	return OpenAPIResponse{
		Description: description,
		Content: map[string]OpenAPIMediaType{
			"application/json": {
				Schema: OpenAPISchema{Ref: "#/components/schemas/" + schema},
			},
		},
	}
}
