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
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/pgEdge/pgedge-nl2sql-server/internal/config"
	"github.com/pgEdge/pgedge-nl2sql-server/internal/database"
	"github.com/pgEdge/pgedge-nl2sql-server/internal/inference"
	"github.com/pgEdge/pgedge-nl2sql-server/internal/llm"
	"github.com/pgEdge/pgedge-nl2sql-server/internal/llm/factory"
	"github.com/pgEdge/pgedge-nl2sql-server/internal/visualize"
)

var (
	// ErrConnectionNotFound is returned when a request names a connection
	// profile that is not configured.
	ErrConnectionNotFound = errors.New("connection not found")

	// ErrInvalidRequest is returned for requests that cannot be run.
	ErrInvalidRequest = errors.New("invalid request")
)

// Manager builds the pipeline from configuration and executes requests.
type Manager struct {
	config       *config.Config
	orchestrator *Orchestrator
	recommender  *visualize.Recommender
	modelName    string
	logger       *slog.Logger
}

// ManagerConfig contains configuration for creating a Manager.
type ManagerConfig struct {
	Config *config.Config
	Logger *slog.Logger

	// Provider replaces the provider built from the llm section.
	Provider llm.CompletionProvider

	// Data replaces the database gateway built from the query section.
	Data DataSource
}

// NewManager creates a new manager from configuration.
func NewManager(cfg *config.Config) (*Manager, error) {
	return NewManagerWithLogger(ManagerConfig{
		Config: cfg,
		Logger: slog.Default(),
	})
}

// NewManagerWithLogger creates a new manager with a custom logger and
// optional collaborator overrides.
func NewManagerWithLogger(cfg ManagerConfig) (*Manager, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	provider := cfg.Provider
	if provider == nil {
		// Load API keys from config file paths, environment variables, or defaults
		keyLoader := config.NewAPIKeyLoader(cfg.Config.APIKeys)
		apiKeys, err := keyLoader.LoadKeysForProvider(cfg.Config.LLM.Provider)
		if err != nil {
			return nil, fmt.Errorf("failed to load API keys: %w", err)
		}

		provider, err = factory.NewCompletionProvider(cfg.Config.LLM, apiKeys)
		if err != nil {
			return nil, fmt.Errorf("failed to create completion provider: %w", err)
		}
	}

	gateway := inference.NewGateway(inference.Config{
		Provider:  provider,
		Timeout:   cfg.Config.LLM.Timeout(),
		MaxTokens: cfg.Config.LLM.MaxTokens,
		Logger:    logger,
	})

	data := cfg.Data
	if data == nil {
		data = database.NewGateway(database.GatewayConfig{
			Timeout:  cfg.Config.Query.Timeout(),
			ReadOnly: cfg.Config.Query.IsReadOnly(),
			MaxRows:  cfg.Config.Query.MaxRows,
			Logger:   logger,
		})
	}

	orchestrator, err := NewOrchestrator(OrchestratorConfig{
		Stages: NewStages(StagesConfig{
			Inference:   gateway,
			Data:        data,
			Schemas:     cfg.Config.Query.Schemas,
			MaxTables:   cfg.Config.Query.MaxTables,
			TokenBudget: cfg.Config.Query.TokenBudget,
			Logger:      logger,
		}),
		Logger: logger,
	})
	if err != nil {
		return nil, err
	}

	logger.Info("pipeline ready",
		"provider", cfg.Config.LLM.Provider,
		"model", provider.ModelName(),
		"connections", len(cfg.Config.Connections),
	)

	return &Manager{
		config:       cfg.Config,
		orchestrator: orchestrator,
		recommender:  visualize.NewRecommender(gateway, logger),
		modelName:    provider.ModelName(),
		logger:       logger,
	}, nil
}

// Connections returns the configured connection profiles.
func (m *Manager) Connections() []ConnectionInfo {
	infos := make([]ConnectionInfo, 0, len(m.config.Connections))
	for _, c := range m.config.Connections {
		infos = append(infos, ConnectionInfo{
			Name:        c.Name,
			Description: c.Description,
			Host:        c.Database.Host,
			Port:        c.Database.Port,
			Database:    c.Database.Database,
		})
	}
	return infos
}

// ModelName returns the model answering requests.
func (m *Manager) ModelName() string {
	return m.modelName
}

// Execute runs a request through the pipeline. It returns
// ErrInvalidRequest or ErrConnectionNotFound for requests that cannot run
// and *FatalError when a collaborator fails. Soft errors are reported in
// the response.
func (m *Manager) Execute(ctx context.Context, req QueryRequest) (*QueryResponse, error) {
	question := strings.TrimSpace(req.Question)
	if question == "" {
		return nil, fmt.Errorf("%w: question is required", ErrInvalidRequest)
	}

	params, err := m.resolveConnection(req)
	if err != nil {
		return nil, err
	}

	rc := NewRequestContext(uuid.NewString(), question, params)
	logger := m.logger.With("request_id", rc.RequestID)
	logger.Debug("executing request",
		"question", question,
		"connection", req.Connection,
	)

	if _, err := m.orchestrator.Run(ctx, rc); err != nil {
		return nil, err
	}

	resp := rc.Response()
	if req.Visualize && !rc.HasError && resp.RowCount > 0 {
		chart, err := m.recommender.Recommend(ctx, rc.GeneratedQuery, rc.Result)
		if err != nil {
			logger.Warn("chart recommendation failed", "error", err)
		} else {
			resp.Chart = chart
		}
	}
	return resp, nil
}

// resolveConnection picks the connection parameters for a request: inline
// parameters, then the named profile, then the only configured profile.
func (m *Manager) resolveConnection(req QueryRequest) (config.DatabaseConfig, error) {
	if req.Database != nil {
		params := *req.Database
		config.ApplyDatabaseDefaults(&params)
		if errs := config.ValidateDatabase("database", params); len(errs) > 0 {
			return config.DatabaseConfig{}, fmt.Errorf("%w: %v", ErrInvalidRequest, errs)
		}
		return params, nil
	}

	if req.Connection != "" {
		conn, ok := m.config.FindConnection(req.Connection)
		if !ok {
			return config.DatabaseConfig{}, fmt.Errorf("%w: %s", ErrConnectionNotFound, req.Connection)
		}
		return conn.Database, nil
	}

	if len(m.config.Connections) == 1 {
		return m.config.Connections[0].Database, nil
	}
	return config.DatabaseConfig{}, fmt.Errorf(
		"%w: a connection name or database parameters are required", ErrInvalidRequest)
}
