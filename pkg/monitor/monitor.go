// Package monitor follows test runs: it starts an execution against the
// runner collaborator, consumes its status stream, and maintains a read-only
// view per execution. The view's progress is monotonic regardless of event
// duplication or reordering, and terminal states latch.
package monitor

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/flowgrid/flowgrid/pkg/execution"
	"github.com/flowgrid/flowgrid/pkg/models"
)

// StatusSubscriber opens the per-execution status stream. The returned cancel
// function is the unsubscribe primitive; the channel closes when the stream
// ends, which also happens on transport disconnect.
type StatusSubscriber interface {
	Subscribe(ctx context.Context, executionID string) (<-chan models.StatusEvent, func(), error)
}

const (
	defaultMaxReconnects = 5
	defaultBaseBackoff   = 500 * time.Millisecond
)

// View is the read-only state of a followed execution.
type View struct {
	ExecutionID  string                 `json:"execution_id"`
	WorkflowID   string                 `json:"workflow_id"`
	Status       models.ExecutionStatus `json:"status"`
	Progress     int                    `json:"progress"`
	OutputData   map[string]any         `json:"output_data,omitempty"`
	ErrorMessage string                 `json:"error_message,omitempty"`

	// ConnectionLost is set when the stream could not be re-established
	// within the reconnect budget while the execution was still live. It is
	// a connectivity statement, not an execution failure: the run may still
	// be progressing server-side.
	ConnectionLost bool `json:"connection_lost,omitempty"`
}

// Monitor starts and follows test executions.
type Monitor struct {
	runner  execution.Runner
	streams StatusSubscriber
	logger  *slog.Logger

	maxReconnects int
	baseBackoff   time.Duration

	mu      sync.RWMutex
	views   map[string]*View
	cancels map[string]context.CancelFunc
}

// Option configures a Monitor.
type Option func(*Monitor)

// WithReconnectPolicy bounds stream reconnection attempts and sets the
// initial backoff, which doubles per attempt.
func WithReconnectPolicy(maxAttempts int, baseBackoff time.Duration) Option {
	return func(m *Monitor) {
		m.maxReconnects = maxAttempts
		m.baseBackoff = baseBackoff
	}
}

// NewMonitor creates a monitor over the given runner and stream source.
func NewMonitor(logger *slog.Logger, runner execution.Runner, streams StatusSubscriber, opts ...Option) *Monitor {
	m := &Monitor{
		runner:        runner,
		streams:       streams,
		logger:        logger.With("module", "monitor"),
		maxReconnects: defaultMaxReconnects,
		baseBackoff:   defaultBaseBackoff,
		views:         make(map[string]*View),
		cancels:       make(map[string]context.CancelFunc),
	}

	for _, opt := range opts {
		opt(m)
	}

	return m
}

// StartTest snapshots the draft, starts an execution, and opens exactly one
// status subscription for it. The monitor mints the execution id and
// subscribes before handing the snapshot to the runner, so the earliest
// events cannot slip past on a non-retaining transport. A second call starts
// an independent execution with its own subscription. The returned id keys
// View and Unsubscribe.
func (m *Monitor) StartTest(ctx context.Context, d *models.WorkflowDraft, inputData map[string]any) (string, error) {
	executionID := uuid.New().String()
	snapshot := d.Clone()

	watchCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))

	events, cancelStream, err := m.streams.Subscribe(watchCtx, executionID)
	if err != nil {
		cancel()

		return "", fmt.Errorf("open status stream: %w", err)
	}

	if err := m.runner.Start(ctx, executionID, snapshot, inputData); err != nil {
		cancelStream()
		cancel()

		return "", fmt.Errorf("start test run: %w", err)
	}

	m.mu.Lock()
	m.views[executionID] = &View{
		ExecutionID: executionID,
		WorkflowID:  d.ID,
		Status:      models.ExecutionStatusPending,
	}
	m.cancels[executionID] = cancel
	m.mu.Unlock()

	go m.watch(watchCtx, executionID, events, cancelStream)

	return executionID, nil
}

// View returns a copy of the current read view for an execution.
func (m *Monitor) View(executionID string) (View, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	view, ok := m.views[executionID]
	if !ok {
		return View{}, false
	}

	return *view, true
}

// Unsubscribe stops consuming the status stream for an execution. It is
// fire-and-forget: the underlying run is not aborted.
func (m *Monitor) Unsubscribe(executionID string) {
	m.mu.Lock()
	cancel, ok := m.cancels[executionID]
	delete(m.cancels, executionID)
	m.mu.Unlock()

	if ok {
		cancel()
	}
}

// watch consumes the stream until a terminal event, applying bounded
// reconnection with doubling backoff on disconnects. The first subscription
// is opened by StartTest; watch only reopens it after drops.
func (m *Monitor) watch(ctx context.Context, executionID string, events <-chan models.StatusEvent, cancelStream func()) {
	attempts := 0
	backoff := m.baseBackoff

	for {
		if events != nil {
			for event := range events {
				m.apply(executionID, event)

				if event.Type == models.StatusEventCompleted || event.Type == models.StatusEventFailed {
					cancelStream()

					return
				}
			}

			cancelStream()
		}

		if ctx.Err() != nil {
			return
		}

		if m.isTerminal(executionID) {
			return
		}

		attempts++
		if attempts > m.maxReconnects {
			m.markConnectionLost(executionID)

			return
		}

		m.logger.Info("Reconnecting status stream",
			"execution_id", executionID, "attempt", attempts, "backoff", backoff)

		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return
		}

		backoff *= 2

		var err error

		events, cancelStream, err = m.streams.Subscribe(ctx, executionID)
		if err != nil {
			m.logger.Warn("Status subscription failed", "execution_id", executionID, "error", err)

			events, cancelStream = nil, nil
		}
	}
}

// apply folds one status event into the view. Events after a terminal state
// are ignored; progress never decreases.
func (m *Monitor) apply(executionID string, event models.StatusEvent) {
	m.mu.Lock()
	defer m.mu.Unlock()

	view, ok := m.views[executionID]
	if !ok || view.Status.IsTerminal() {
		return
	}

	switch event.Type {
	case models.StatusEventStarted:
		view.Status = models.ExecutionStatusRunning
	case models.StatusEventProgress:
		// A progress event implies the run started even if the started
		// event was reordered past it.
		view.Status = models.ExecutionStatusRunning
		view.Progress = max(view.Progress, clampProgress(event.Progress))
	case models.StatusEventCompleted:
		view.Status = models.ExecutionStatusCompleted
		view.Progress = 100
		view.OutputData = event.OutputData
	case models.StatusEventFailed:
		view.Status = models.ExecutionStatusFailed
		view.ErrorMessage = event.ErrorMessage
	}
}

func (m *Monitor) isTerminal(executionID string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	view, ok := m.views[executionID]

	return ok && view.Status.IsTerminal()
}

func (m *Monitor) markConnectionLost(executionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if view, ok := m.views[executionID]; ok && !view.Status.IsTerminal() {
		view.ConnectionLost = true
	}

	m.logger.Error("Status stream lost after exhausting reconnect attempts",
		"execution_id", executionID, "attempts", m.maxReconnects)
}

func clampProgress(p int) int {
	if p < 0 {
		return 0
	}

	if p > 100 {
		return 100
	}

	return p
}
