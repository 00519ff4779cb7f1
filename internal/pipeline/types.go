//-------------------------------------------------------------------------
//
// pgEdge NL2SQL Server
//
// Portions copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

// Package pipeline turns a natural-language question into SQL, runs it and
// explains the result.
package pipeline

import (
	"github.com/pgEdge/pgedge-nl2sql-server/internal/config"
	"github.com/pgEdge/pgedge-nl2sql-server/internal/database"
	"github.com/pgEdge/pgedge-nl2sql-server/internal/llm"
	"github.com/pgEdge/pgedge-nl2sql-server/internal/schema"
	"github.com/pgEdge/pgedge-nl2sql-server/internal/visualize"
)

// ConnectionInfo describes a configured connection profile for listing.
// Credentials are never included.
type ConnectionInfo struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Host        string `json:"host"`
	Port        int    `json:"port"`
	Database    string `json:"database"`
}

// QueryRequest is a question to answer against one database. The database
// is either a named connection profile or inline connection parameters.
type QueryRequest struct {
	Question   string                 `json:"question"`
	Connection string                 `json:"connection,omitempty"`
	Database   *config.DatabaseConfig `json:"database,omitempty"`
	Visualize  bool                   `json:"visualize,omitempty"`
}

// QueryResponse is the outcome of a completed run. Soft errors are reported
// in-band through HasError and ErrorExplanation.
type QueryResponse struct {
	RequestID        string           `json:"request_id"`
	HasError         bool             `json:"has_error"`
	ErrorExplanation string           `json:"error_explanation,omitempty"`
	GeneratedQuery   string           `json:"generated_query,omitempty"`
	Columns          []string         `json:"columns,omitempty"`
	Rows             []database.Row   `json:"rows,omitempty"`
	RowCount         int              `json:"row_count"`
	Truncated        bool             `json:"truncated,omitempty"`
	Explanation      string           `json:"explanation,omitempty"`
	Chart            *visualize.Chart `json:"chart,omitempty"`
}

// ConversationLog is the ordered record of turns exchanged during a run.
// Entries can only be appended.
type ConversationLog struct {
	entries []llm.Message
}

// Append adds a turn to the end of the log.
func (l *ConversationLog) Append(role, content string) {
	l.entries = append(l.entries, llm.Message{Role: role, Content: content})
}

// Messages returns a copy of the log.
func (l *ConversationLog) Messages() []llm.Message {
	out := make([]llm.Message, len(l.entries))
	copy(out, l.entries)
	return out
}

// Len returns the number of turns in the log.
func (l *ConversationLog) Len() int {
	return len(l.entries)
}

// RequestContext carries the state of a single run. Stages read the fields
// set by earlier stages and fill in their own.
type RequestContext struct {
	RequestID  string
	Question   string
	Connection config.DatabaseConfig
	Log        ConversationLog

	HasError         bool
	ErrorExplanation string

	RawSchemaText    string
	Catalog          *database.Catalog
	NormalizedSchema *schema.Schema
	GeneratedQuery   string
	Result           *database.ResultSet
	Explanation      string
}

// NewRequestContext creates the context for one run. The question becomes
// the first turn of the log.
func NewRequestContext(requestID, question string, conn config.DatabaseConfig) *RequestContext {
	rc := &RequestContext{
		RequestID:  requestID,
		Question:   question,
		Connection: conn,
	}
	rc.Log.Append(llm.RoleUser, question)
	return rc
}

// Response builds the API response for a finished run.
func (rc *RequestContext) Response() *QueryResponse {
	resp := &QueryResponse{
		RequestID:        rc.RequestID,
		HasError:         rc.HasError,
		ErrorExplanation: rc.ErrorExplanation,
		GeneratedQuery:   rc.GeneratedQuery,
		Explanation:      rc.Explanation,
	}
	if rc.Result != nil && !rc.HasError {
		resp.Columns = rc.Result.Columns
		resp.Rows = rc.Result.Rows
		resp.RowCount = len(rc.Result.Rows)
		resp.Truncated = rc.Result.Truncated
	}
	return resp
}
