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
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/pgEdge/pgedge-nl2sql-server/internal/config"
	"github.com/pgEdge/pgedge-nl2sql-server/internal/database"
	"github.com/pgEdge/pgedge-nl2sql-server/internal/inference"
	"github.com/pgEdge/pgedge-nl2sql-server/internal/llm"
	"github.com/pgEdge/pgedge-nl2sql-server/internal/schema"
)

// Stage names, also used as graph node names and metric labels.
const (
	StageValidateInput   = "validate_input"
	StageCheckConnection = "check_connection"
	StageFetchSchema     = "fetch_schema"
	StageFormatSchema    = "format_schema"
	StageGenerateQuery   = "generate_query"
	StageFetchData       = "fetch_data"
	StageExplainData     = "explain_data"
)

// Fallback texts used when the model gives no explanation.
const (
	mutationFallback   = "The question asks to modify data. Only questions that read data are supported."
	unmappableFallback = "The question could not be answered from the tables in this database."
)

// Invoker is the part of the inference gateway the stages use.
type Invoker interface {
	Invoke(ctx context.Context, inst inference.Instruction, messages []llm.Message, out inference.Validator) error
}

// DataSource is the part of the database gateway the stages use.
type DataSource interface {
	Ping(ctx context.Context, params config.DatabaseConfig) error
	FetchCatalog(ctx context.Context, params config.DatabaseConfig, schemas []string) (*database.Catalog, error)
	Execute(ctx context.Context, params config.DatabaseConfig, query string) (*database.ResultSet, error)
}

// Stages holds the collaborators shared by the pipeline stages.
type Stages struct {
	inference   Invoker
	data        DataSource
	formatter   *schema.Formatter
	schemas     []string
	maxTables   int
	tokenBudget int
	logger      *slog.Logger
}

// StagesConfig configures the pipeline stages.
type StagesConfig struct {
	Inference   Invoker
	Data        DataSource
	Schemas     []string // Schemas read by fetch_schema; empty means public
	MaxTables   int      // Tables kept by fetch_schema, most relevant first; 0 keeps all
	TokenBudget int      // Approximate tokens of row data sent to explain_data
	Logger      *slog.Logger
}

// NewStages creates the pipeline stages.
func NewStages(cfg StagesConfig) *Stages {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	schemas := cfg.Schemas
	if len(schemas) == 0 {
		schemas = []string{config.DefaultSchema}
	}
	budget := cfg.TokenBudget
	if budget <= 0 {
		budget = config.DefaultTokenBudget
	}
	return &Stages{
		inference:   cfg.Inference,
		data:        cfg.Data,
		formatter:   schema.NewFormatter(cfg.Inference, logger),
		schemas:     schemas,
		maxTables:   cfg.MaxTables,
		tokenBudget: budget,
		logger:      logger,
	}
}

// ValidateInput rejects questions that ask to modify data.
func (s *Stages) ValidateInput(ctx context.Context, rc *RequestContext) StageResult {
	var v verdict
	err := s.inference.Invoke(ctx, validateInstruction,
		[]llm.Message{llm.UserMessage("User question: \n\n " + rc.Question)}, &v)
	if err != nil {
		return Fatal(err)
	}
	if v.IsError.value {
		return SoftError(orDefault(v.explanation(), mutationFallback))
	}
	return Success()
}

// CheckConnection verifies the database is reachable. A failed connection
// is always a soft error, explained by the model.
func (s *Stages) CheckConnection(ctx context.Context, rc *RequestContext) StageResult {
	err := s.data.Ping(ctx, rc.Connection)
	if err == nil {
		rc.HasError = false
		return Success()
	}
	return s.diagnose(ctx, rc, err)
}

// FetchSchema reads the catalog and adds its DDL rendering to the log.
// Large catalogs are cut down to the tables most relevant to the question.
func (s *Stages) FetchSchema(ctx context.Context, rc *RequestContext) StageResult {
	catalog, err := s.data.FetchCatalog(ctx, rc.Connection, s.schemas)
	if err != nil {
		rc.Log.Append(llm.RoleUser, err.Error())
		return s.diagnose(ctx, rc, err)
	}

	if selected := schema.SelectTables(catalog, rc.Question, s.maxTables); selected != catalog {
		s.logger.Debug("schema reduced to relevant tables",
			"request_id", rc.RequestID,
			"tables", len(catalog.Tables),
			"kept", len(selected.Tables))
		catalog = selected
	}

	rc.Catalog = catalog
	rc.RawSchemaText = catalog.Render()
	if len(catalog.Tables) == 0 {
		rc.Log.Append(llm.RoleUser, fmt.Sprintf(
			"The database has no tables in schema %s.", strings.Join(s.schemas, ", ")))
	} else {
		rc.Log.Append(llm.RoleUser, rc.RawSchemaText)
	}
	return Success()
}

// FormatSchema describes the catalog and adds the result to the log.
func (s *Stages) FormatSchema(ctx context.Context, rc *RequestContext) StageResult {
	normalized, err := s.formatter.Format(ctx, rc.Catalog, rc.RawSchemaText)
	if err != nil {
		return Fatal(err)
	}
	rc.NormalizedSchema = normalized
	rc.Log.Append(llm.RoleUser, normalized.JSON())
	return Success()
}

// GenerateQuery asks the model for SQL answering the question.
func (s *Stages) GenerateQuery(ctx context.Context, rc *RequestContext) StageResult {
	var g generated
	if err := s.inference.Invoke(ctx, generateInstruction, rc.Log.Messages(), &g); err != nil {
		return Fatal(err)
	}
	if g.IsError.value {
		return SoftError(orDefault(strings.TrimSpace(g.ErrorExplanation), unmappableFallback))
	}

	rc.GeneratedQuery = inference.StripCodeFence(*g.Query)
	rc.Log.Append(llm.RoleAssistant, rc.GeneratedQuery)
	return Success()
}

// FetchData runs the generated query. A failing statement is a soft error
// explained by the model. The query is never repaired or retried.
func (s *Stages) FetchData(ctx context.Context, rc *RequestContext) StageResult {
	result, err := s.data.Execute(ctx, rc.Connection, rc.GeneratedQuery)
	if err != nil {
		rc.Log.Append(llm.RoleUser, err.Error())
		return s.diagnose(ctx, rc, err)
	}
	rc.Result = result
	return Success()
}

// ExplainData describes the result in prose.
func (s *Stages) ExplainData(ctx context.Context, rc *RequestContext) StageResult {
	var rows []database.Row
	if rc.Result != nil {
		rows = rc.Result.Rows
	}

	data, included := encodeRows(rows, s.tokenBudget)
	content := "Data is " + data
	if included < len(rows) {
		content += fmt.Sprintf("\n\n(showing %d of %d rows)", included, len(rows))
	}
	messages := append(rc.Log.Messages(), llm.UserMessage(content))

	var e explained
	if err := s.inference.Invoke(ctx, explainInstruction, messages, &e); err != nil {
		return Fatal(err)
	}

	text := strings.TrimSpace(e.Explanation)
	if len(rows) == 0 && !mentionsNoData(text) {
		text = fmt.Sprintf("No data was found for the question %q. %s", rc.Question, text)
	}
	rc.Explanation = text
	return Success()
}

// diagnose asks the model to explain a database error and turns the answer
// into a soft error. Only a failing inference call is fatal.
func (s *Stages) diagnose(ctx context.Context, rc *RequestContext, dbErr error) StageResult {
	inst := diagnoseConnectionInstruction
	prompt := "Error message: \n\n " + dbErr.Error()

	var stmtErr *database.StatementError
	if errors.As(dbErr, &stmtErr) {
		inst = diagnoseStatementInstruction
		prompt = "SQL Query: " + stmtErr.Query + "\n\n" + prompt
	}

	s.logger.Debug("diagnosing database error",
		"request_id", rc.RequestID,
		"instruction", inst.Name,
		"sql_state", database.SQLState(dbErr),
		"error", dbErr,
	)

	var v verdict
	if err := s.inference.Invoke(ctx, inst, []llm.Message{llm.UserMessage(prompt)}, &v); err != nil {
		return Fatal(err)
	}
	return SoftError(orDefault(v.explanation(), dbErr.Error()))
}

// encodeRows serializes rows as a JSON array, stopping before the estimated
// size exceeds the token budget. It returns the array and the number of rows
// it contains.
func encodeRows(rows []database.Row, budget int) (string, int) {
	var buf bytes.Buffer
	buf.WriteByte('[')
	included := 0
	for _, row := range rows {
		encoded, err := json.Marshal(row)
		if err != nil {
			encoded, _ = json.Marshal(fmt.Sprint(row))
		}
		// Rough token estimate: ~4 characters per token
		if included > 0 && (buf.Len()+len(encoded))/4 > budget {
			break
		}
		if included > 0 {
			buf.WriteByte(',')
		}
		buf.Write(encoded)
		included++
	}
	buf.WriteByte(']')
	return buf.String(), included
}

var noDataPhrases = []string{
	"no data", "no rows", "no records", "no results", "no matching",
	"empty", "not find any", "nothing was found",
}

// mentionsNoData reports whether an explanation already says the result
// was empty.
func mentionsNoData(text string) bool {
	lower := strings.ToLower(text)
	for _, p := range noDataPhrases {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}

func orDefault(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}
