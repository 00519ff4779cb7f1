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
	"fmt"
	"log/slog"
	"time"

	"github.com/pgEdge/pgedge-nl2sql-server/internal/metrics"
)

// Orchestrator runs a request through the stage graph.
type Orchestrator struct {
	graph  *Graph
	logger *slog.Logger
}

// OrchestratorConfig contains the configuration for creating an orchestrator.
type OrchestratorConfig struct {
	Stages *Stages
	Logger *slog.Logger
}

// NewOrchestrator creates an orchestrator over the standard stage graph:
//
//	validate_input -> check_connection -> fetch_schema -> format_schema
//	  -> generate_query -> fetch_data -> explain_data -> END
//
// validate_input, check_connection and generate_query end the run when
// the context carries a soft error.
func NewOrchestrator(cfg OrchestratorConfig) (*Orchestrator, error) {
	s := cfg.Stages
	graph, err := NewGraphBuilder(StageValidateInput).
		AddNode(StageValidateInput, s.ValidateInput).
		AddNode(StageCheckConnection, s.CheckConnection).
		AddNode(StageFetchSchema, s.FetchSchema).
		AddNode(StageFormatSchema, s.FormatSchema).
		AddNode(StageGenerateQuery, s.GenerateQuery).
		AddNode(StageFetchData, s.FetchData).
		AddNode(StageExplainData, s.ExplainData).
		AddConditionalEdge(StageValidateInput,
			continueUnlessError(StageCheckConnection), StageCheckConnection, End).
		AddConditionalEdge(StageCheckConnection,
			continueUnlessError(StageFetchSchema), StageFetchSchema, End).
		AddEdge(StageFetchSchema, StageFormatSchema).
		AddEdge(StageFormatSchema, StageGenerateQuery).
		AddConditionalEdge(StageGenerateQuery,
			continueUnlessError(StageFetchData), StageFetchData, End).
		AddEdge(StageFetchData, StageExplainData).
		AddEdge(StageExplainData, End).
		Build()
	if err != nil {
		return nil, fmt.Errorf("invalid stage graph: %w", err)
	}
	return NewOrchestratorForGraph(graph, cfg.Logger), nil
}

// NewOrchestratorForGraph creates an orchestrator over a custom graph.
func NewOrchestratorForGraph(graph *Graph, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{graph: graph, logger: logger}
}

// Run executes the graph from its entry until END. Soft errors are left on
// the context; a fatal stage result aborts the run with *FatalError.
func (o *Orchestrator) Run(ctx context.Context, rc *RequestContext) (*RequestContext, error) {
	logger := o.logger.With("request_id", rc.RequestID)
	runStart := time.Now()

	current := o.graph.entry
	for current != End {
		if err := ctx.Err(); err != nil {
			return o.abort(logger, rc, current, err, runStart)
		}

		n := o.graph.nodes[current]
		logger.Debug("running stage", "stage", current)

		start := time.Now()
		result := n.run(ctx, rc)
		elapsed := time.Since(start)
		metrics.ObserveStage(current, result.Outcome.String(), elapsed)

		switch result.Outcome {
		case OutcomeFatal:
			return o.abort(logger, rc, current, result.Err, runStart)
		case OutcomeSoft:
			rc.HasError = true
			rc.ErrorExplanation = result.Explanation
			logger.Info("stage reported an error",
				"stage", current,
				"duration", elapsed,
				"explanation", result.Explanation,
			)
		default:
			logger.Debug("stage completed", "stage", current, "duration", elapsed)
		}

		next, err := o.graph.next(n, rc)
		if err != nil {
			return o.abort(logger, rc, current, err, runStart)
		}
		// A soft error ends the run even on an unconditional edge.
		if rc.HasError {
			next = End
		}
		if next != End {
			logger.Debug("transition", "from", current, "to", next)
		}
		current = next
	}

	outcome := metrics.OutcomeSuccess
	if rc.HasError {
		outcome = metrics.OutcomeSoft
	}
	elapsed := time.Since(runStart)
	metrics.ObservePipelineRun(outcome, elapsed)
	logger.Info("pipeline finished",
		"has_error", rc.HasError,
		"duration", elapsed,
	)
	return rc, nil
}

func (o *Orchestrator) abort(
	logger *slog.Logger,
	rc *RequestContext,
	stage string,
	err error,
	runStart time.Time,
) (*RequestContext, error) {
	elapsed := time.Since(runStart)
	metrics.ObservePipelineRun(metrics.OutcomeFatal, elapsed)
	logger.Error("pipeline aborted",
		"stage", stage,
		"duration", elapsed,
		"error", err,
	)
	return rc, &FatalError{Stage: stage, Err: err}
}
