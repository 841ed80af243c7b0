// Package execution defines the execution-service collaborator contract, a
// local in-process runner for test runs, and the run-request relay used when
// workers run as a separate service. The editor core never performs steps on
// its own behalf; it hands a draft snapshot to a Runner and follows the
// status stream.
package execution

import (
	"context"
	"errors"

	"github.com/flowgrid/flowgrid/pkg/models"
)

// ErrExecutionNotFound indicates an unknown execution id.
var ErrExecutionNotFound = errors.New("execution not found")

// Runner is the execution-service collaborator: create a run from a draft
// snapshot and read its current state. Status updates flow separately,
// through the per-execution stream the monitor subscribes to.
type Runner interface {
	// Start creates an execution for the draft with the given inputs, under
	// the caller-assigned id. The caller mints the id so it can open its
	// status subscription before the run publishes anything; a non-retaining
	// transport would otherwise drop the earliest events. The draft is a
	// snapshot owned by the runner from this point on; later editor changes
	// do not affect the run.
	Start(ctx context.Context, executionID string, draft *models.WorkflowDraft, inputData map[string]any) error

	// Get reads the current state of an execution.
	Get(ctx context.Context, executionID string) (*models.Execution, error)
}
