package execution

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/flowgrid/flowgrid/pkg/eventbus"
	"github.com/flowgrid/flowgrid/pkg/events"
	"github.com/flowgrid/flowgrid/pkg/models"
)

// BusRunner relays run requests onto the event bus for an out-of-process
// worker. It only tracks the request-side view of each execution; the
// authoritative state lives with the worker and reaches the monitor through
// the status stream.
type BusRunner struct {
	publisher eventbus.EventPublisher

	mu       sync.RWMutex
	requests map[string]*models.Execution
}

// NewBusRunner creates a relay publishing on the given bus.
func NewBusRunner(publisher eventbus.EventPublisher) *BusRunner {
	return &BusRunner{
		publisher: publisher,
		requests:  make(map[string]*models.Execution),
	}
}

// Start publishes the run request with the draft snapshot embedded, under
// the caller-assigned execution id.
func (r *BusRunner) Start(ctx context.Context, executionID string, draft *models.WorkflowDraft, inputData map[string]any) error {
	event := &events.ExecutionRequested{
		ExecutionID: executionID,
		WorkflowID:  draft.ID,
		Draft:       draft.Clone(),
		InputData:   inputData,
		RequestedAt: time.Now().UTC(),
	}

	if err := r.publisher.Publish(ctx, executionID, event); err != nil {
		return fmt.Errorf("publish run request: %w", err)
	}

	r.mu.Lock()
	r.requests[executionID] = &models.Execution{
		ID:         executionID,
		WorkflowID: draft.ID,
		Status:     models.ExecutionStatusPending,
		InputData:  inputData,
		StartedAt:  event.RequestedAt,
	}
	r.mu.Unlock()

	return nil
}

// Get returns the request-side record.
func (r *BusRunner) Get(_ context.Context, executionID string) (*models.Execution, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	exec, ok := r.requests[executionID]
	if !ok {
		return nil, fmt.Errorf("execution %q: %w", executionID, ErrExecutionNotFound)
	}

	copied := *exec

	return &copied, nil
}
