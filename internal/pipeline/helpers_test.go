//-------------------------------------------------------------------------
//
// pgEdge NL2SQL Server
//
// Portions copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

package pipeline

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/pgEdge/pgedge-nl2sql-server/internal/config"
	"github.com/pgEdge/pgedge-nl2sql-server/internal/database"
	"github.com/pgEdge/pgedge-nl2sql-server/internal/inference"
	"github.com/pgEdge/pgedge-nl2sql-server/internal/llm/llmtest"
)

// System prompt fragments used to route scripted replies.
const (
	promptValidate   = "understanding natural language database queries"
	promptConnection = "troubleshooting assistant specializing in PostgreSQL"
	promptStatement  = "A read-only SQL query generated"
	promptFormat     = "database schema analyzer"
	promptGenerate   = "generating PostgreSQL SQL queries"
	promptExplain    = "analyzing and explaining tabular data"
)

const fixtureQuery = `SELECT u.user_id, u.first_name, u.last_name, COUNT(o.order_id) AS order_count
FROM users u
JOIN orders o ON o.user_id = u.user_id
GROUP BY u.user_id, u.first_name, u.last_name
HAVING COUNT(o.order_id) > 1`

// fakeData is a DataSource backed by fixed values.
type fakeData struct {
	PingErr   error
	Catalog    *database.Catalog
	CatalogErr error
	Result     *database.ResultSet
	ExecErr    error

	mu      sync.Mutex
	pings  int
	fetches int
	queries []string
}

func (f *fakeData) Ping(_ context.Context, _ config.DatabaseConfig) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pings++
	return f.PingErr
}

func (f *fakeData) FetchCatalog(_ context.Context, _ config.DatabaseConfig, _ []string) (*database.Catalog, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetches++
	if f.CatalogErr != nil {
		return nil, f.CatalogErr
	}
	return f.Catalog, nil
}

func (f *fakeData) Execute(_ context.Context, _ config.DatabaseConfig, query string) (*database.ResultSet, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, query)
	if f.ExecErr != nil {
		return nil, f.ExecErr
	}
	return f.Result, nil
}

func (f *fakeData) calls() (pings, fetches, executes int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pings, f.fetches, len(f.queries)
}

func storeCatalog() *database.Catalog {
	return &database.Catalog{Tables: []database.Table{
		{
			Schema:     "public",
			Name:       "orders",
			Kind:       "BASE TABLE",
			PrimaryKey: []string{"order_id"},
			Columns: []database.Column{
				{Name: "order_id", Type: "integer"},
				{Name: "user_id", Type: "integer"},
				{Name: "total_amount", Type: "numeric"},
			},
			ForeignKeys: []database.ForeignKey{
				{Column: "user_id", RefSchema: "public", RefTable: "users", RefColumn: "user_id"},
			},
		},
		{
			Schema:     "public",
			Name:       "users",
			Kind:       "BASE TABLE",
			PrimaryKey: []string{"user_id"},
			Columns: []database.Column{
				{Name: "user_id", Type: "integer"},
				{Name: "first_name", Type: "character varying"},
				{Name: "last_name", Type: "character varying"},
			},
		},
	}}
}

func repeatCustomers() *database.ResultSet {
	cols := []string{"user_id", "first_name", "last_name", "order_count"}
	row := func(id int64, first, last string, n int64) database.Row {
		return database.Row{
			{Name: "user_id", Value: id},
			{Name: "first_name", Value: first},
			{Name: "last_name", Value: last},
			{Name: "order_count", Value: n},
		}
	}
	return &database.ResultSet{
		Columns: cols,
		Rows: []database.Row{
			row(1, "John", "Doe", 3),
			row(2, "Jane", "Smith", 2),
		},
	}
}

const formatReply = `{"tables": [
	{"table_name": "orders", "description": "Customer orders",
	 "columns": [
		{"name": "total_amount", "type": "NUMERIC", "explanation": "Order value"},
		{"name": "order_id", "type": "INT", "explanation": "Order id"},
		{"name": "user_id", "type": "INT", "explanation": "Customer"}
	 ],
	 "relation_ship": "users"},
	{"table_name": "users", "description": "Customers",
	 "columns": [
		{"name": "user_id", "type": "INT", "explanation": "Customer id"},
		{"name": "first_name", "type": "VARCHAR", "explanation": "Given name"},
		{"name": "last_name", "type": "VARCHAR", "explanation": "Family name"}
	 ],
	 "relation_ship": "None"}
]}`

// happyProvider scripts a provider that answers the fixture question.
func happyProvider() *llmtest.MockCompletionProvider {
	return (&llmtest.MockCompletionProvider{}).
		On(promptValidate, llmtest.Text(`{"is_error": false, "error_explanation": "N/A"}`)).
		On(promptFormat, llmtest.Text(formatReply)).
		On(promptGenerate, llmtest.Text(`{"query": "`+jsonEscape(fixtureQuery)+`", "is_error": false}`)).
		On(promptExplain, llmtest.Text(`{"explanation": "Two customers placed more than one order."}`))
}

func jsonEscape(s string) string {
	out := make([]rune, 0, len(s))
	for _, r := range s {
		if r == '\n' {
			out = append(out, '\\', 'n')
			continue
		}
		if r == '"' {
			out = append(out, '\\', '"')
			continue
		}
		out = append(out, r)
	}
	return string(out)
}

func newTestOrchestrator(t *testing.T, provider *llmtest.MockCompletionProvider, data *fakeData) *Orchestrator {
	t.Helper()
	gw := inference.NewGateway(inference.Config{Provider: provider})
	o, err := NewOrchestrator(OrchestratorConfig{
		Stages: NewStages(StagesConfig{Inference: gw, Data: data}),
	})
	if err != nil {
		t.Fatalf("NewOrchestrator() error = %v", err)
	}
	return o
}

func newTestContext(question string) *RequestContext {
	return NewRequestContext("test-request", question, config.DatabaseConfig{
		Host:     "localhost",
		Port:     5432,
		Database: "online_store",
		Username: "admin",
	})
}

var errRefused = errors.New(`failed to connect to host=localhost user=admin database=online_store: dial error (dial tcp 127.0.0.1:5432: connect: connection refused)`)
