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
	"fmt"

	"github.com/pgEdge/pgedge-nl2sql-server/internal/metrics"
)

// Outcome tags a stage result.
type Outcome int

const (
	// OutcomeSuccess means the stage completed and the run continues.
	OutcomeSuccess Outcome = iota

	// OutcomeSoft means the stage hit a user-facing problem. The run ends
	// with an explanation for the user.
	OutcomeSoft

	// OutcomeFatal means a collaborator failed. The run is aborted.
	OutcomeFatal
)

// String returns the metrics label for the outcome.
func (o Outcome) String() string {
	switch o {
	case OutcomeSoft:
		return metrics.OutcomeSoft
	case OutcomeFatal:
		return metrics.OutcomeFatal
	default:
		return metrics.OutcomeSuccess
	}
}

// StageResult is returned by every stage.
type StageResult struct {
	Outcome     Outcome
	Explanation string // Set for OutcomeSoft
	Err         error  // Set for OutcomeFatal
}

// Success reports a completed stage.
func Success() StageResult {
	return StageResult{Outcome: OutcomeSuccess}
}

// SoftError reports a problem the user can act on.
func SoftError(explanation string) StageResult {
	return StageResult{Outcome: OutcomeSoft, Explanation: explanation}
}

// Fatal reports a failure that aborts the run.
func Fatal(err error) StageResult {
	return StageResult{Outcome: OutcomeFatal, Err: err}
}

// FatalError is returned by Orchestrator.Run when a stage fails fatally.
type FatalError struct {
	Stage string
	Err   error
}

func (e *FatalError) Error() string {
	return fmt.Sprintf("stage %s failed: %v", e.Stage, e.Err)
}

func (e *FatalError) Unwrap() error {
	return e.Err
}
