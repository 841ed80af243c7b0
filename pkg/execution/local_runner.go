package execution

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/flowgrid/flowgrid/pkg/eventbus"
	"github.com/flowgrid/flowgrid/pkg/events"
	"github.com/flowgrid/flowgrid/pkg/models"
	"github.com/flowgrid/flowgrid/pkg/otelhelper"
)

// LocalRunner executes test runs in-process, publishing status events on the
// bus as it walks the draft. Step bodies are simulated: a test run exercises
// the graph's structure and data flow, not the step integrations themselves.
type LocalRunner struct {
	logger    *slog.Logger
	publisher eventbus.EventPublisher
	tracer    trace.Tracer

	// StepDelay spaces out step completion so progress is observable in the
	// tester UI. Zero in tests.
	StepDelay time.Duration

	mu         sync.RWMutex
	executions map[string]*models.Execution
}

// NewLocalRunner creates a runner publishing on the given bus.
func NewLocalRunner(logger *slog.Logger, publisher eventbus.EventPublisher) *LocalRunner {
	return &LocalRunner{
		logger:     logger.With("module", "local-runner"),
		publisher:  publisher,
		tracer:     noop.NewTracerProvider().Tracer("flowgrid-runner"),
		executions: make(map[string]*models.Execution),
	}
}

// WithTracer replaces the no-op tracer.
func (r *LocalRunner) WithTracer(tracer trace.Tracer) *LocalRunner {
	r.tracer = tracer

	return r
}

// Start registers a pending execution under the given id and launches the
// run in the background. The run outlives the caller's context; cancelling an
// editor request must not abort an execution already handed over.
func (r *LocalRunner) Start(ctx context.Context, executionID string, draft *models.WorkflowDraft, inputData map[string]any) error {
	exec := &models.Execution{
		ID:         executionID,
		WorkflowID: draft.ID,
		Status:     models.ExecutionStatusPending,
		InputData:  inputData,
		StartedAt:  time.Now().UTC(),
	}

	r.mu.Lock()
	r.executions[executionID] = exec
	r.mu.Unlock()

	go func() {
		runCtx := context.WithoutCancel(ctx)
		if err := r.Run(runCtx, executionID, draft.Clone(), inputData); err != nil {
			r.logger.Error("Test run failed", "execution_id", executionID, "error", err)
		}
	}()

	return nil
}

// Get returns a copy of the execution's current state.
func (r *LocalRunner) Get(_ context.Context, executionID string) (*models.Execution, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	exec, ok := r.executions[executionID]
	if !ok {
		return nil, fmt.Errorf("execution %q: %w", executionID, ErrExecutionNotFound)
	}

	copied := *exec
	copied.Logs = append([]models.ExecutionLog(nil), exec.Logs...)

	return &copied, nil
}

// Run walks the draft synchronously under the given execution id, emitting
// started, per-step progress and logs, and a terminal event. Exported so a
// worker consuming run requests off the bus can execute with the id minted by
// the requesting side.
func (r *LocalRunner) Run(ctx context.Context, executionID string, draft *models.WorkflowDraft, inputData map[string]any) error {
	ctx, span := otelhelper.StartSpan(ctx, r.tracer, "execution.run",
		attribute.String(otelhelper.ExecutionIDKey, executionID),
		attribute.String(otelhelper.WorkflowIDKey, draft.ID),
	)
	defer span.End()

	r.ensureRecord(executionID, draft, inputData)
	r.setStatus(executionID, models.ExecutionStatusRunning)

	if err := r.publish(ctx, executionID, &events.ExecutionStarted{
		ExecutionID: executionID,
		WorkflowID:  draft.ID,
		Timestamp:   time.Now().UTC(),
	}); err != nil {
		return err
	}

	order := stepOrder(draft)
	results := make(map[string]any, len(order))

	for i, step := range order {
		select {
		case <-ctx.Done():
			return r.fail(ctx, executionID, span, ctx.Err())
		default:
		}

		if r.StepDelay > 0 {
			time.Sleep(r.StepDelay)
		}

		result, err := r.runStep(ctx, executionID, step, inputData)
		if err != nil {
			return r.fail(ctx, executionID, span, err)
		}

		results[step.ID] = result

		progress := (i + 1) * 100 / len(order)
		if err := r.publish(ctx, executionID, &events.ExecutionProgress{
			ExecutionID: executionID,
			Progress:    progress,
			StepID:      step.ID,
			Timestamp:   time.Now().UTC(),
		}); err != nil {
			return err
		}
	}

	outputData := map[string]any{
		"input": inputData,
		"steps": results,
	}

	r.complete(executionID, outputData)

	return r.publish(ctx, executionID, &events.ExecutionCompleted{
		ExecutionID: executionID,
		OutputData:  outputData,
		Timestamp:   time.Now().UTC(),
	})
}

func (r *LocalRunner) runStep(ctx context.Context, executionID string, step *models.WorkflowStep, inputData map[string]any) (map[string]any, error) {
	_, span := otelhelper.StartSpan(ctx, r.tracer, "execution.step",
		attribute.String(otelhelper.StepIDKey, step.ID),
		attribute.String(otelhelper.StepTypeKey, step.Type),
	)
	defer span.End()

	message := fmt.Sprintf("executing step %q (%s)", step.Name, step.Type)

	r.appendLog(executionID, "info", message)

	if err := r.publish(ctx, executionID, &events.ExecutionLogLine{
		ExecutionID: executionID,
		Level:       "info",
		Message:     message,
		Timestamp:   time.Now().UTC(),
	}); err != nil {
		return nil, err
	}

	result := map[string]any{
		"step":   step.Name,
		"type":   step.Type,
		"status": "ok",
	}

	// Triggers feed the run input downstream.
	if strings.HasPrefix(step.Type, "trigger:") {
		result["payload"] = maps.Clone(inputData)
	}

	return result, nil
}

func (r *LocalRunner) fail(ctx context.Context, executionID string, span trace.Span, cause error) error {
	otelhelper.SetError(span, cause)
	r.appendLog(executionID, "error", cause.Error())

	r.mu.Lock()

	if exec, ok := r.executions[executionID]; ok && !exec.Status.IsTerminal() {
		now := time.Now().UTC()
		duration := now.Sub(exec.StartedAt).Milliseconds()
		exec.Status = models.ExecutionStatusFailed
		exec.ErrorMessage = cause.Error()
		exec.CompletedAt = &now
		exec.DurationMS = &duration
	}

	r.mu.Unlock()

	return r.publish(ctx, executionID, &events.ExecutionFailed{
		ExecutionID:  executionID,
		ErrorMessage: cause.Error(),
		Timestamp:    time.Now().UTC(),
	})
}

func (r *LocalRunner) complete(executionID string, outputData map[string]any) {
	r.mu.Lock()
	defer r.mu.Unlock()

	exec, ok := r.executions[executionID]
	if !ok || exec.Status.IsTerminal() {
		return
	}

	now := time.Now().UTC()
	duration := now.Sub(exec.StartedAt).Milliseconds()
	exec.Status = models.ExecutionStatusCompleted
	exec.OutputData = outputData
	exec.CompletedAt = &now
	exec.DurationMS = &duration
}

func (r *LocalRunner) ensureRecord(executionID string, draft *models.WorkflowDraft, inputData map[string]any) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.executions[executionID]; ok {
		return
	}

	r.executions[executionID] = &models.Execution{
		ID:         executionID,
		WorkflowID: draft.ID,
		Status:     models.ExecutionStatusPending,
		InputData:  inputData,
		StartedAt:  time.Now().UTC(),
	}
}

func (r *LocalRunner) setStatus(executionID string, status models.ExecutionStatus) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if exec, ok := r.executions[executionID]; ok && !exec.Status.IsTerminal() {
		exec.Status = status
	}
}

func (r *LocalRunner) appendLog(executionID string, level, message string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if exec, ok := r.executions[executionID]; ok {
		exec.Logs = append(exec.Logs, models.ExecutionLog{
			Timestamp: time.Now().UTC(),
			Level:     level,
			Message:   message,
		})
	}
}

func (r *LocalRunner) publish(ctx context.Context, executionID string, event eventbus.Event) error {
	if err := r.publisher.Publish(ctx, executionID, event); err != nil {
		return fmt.Errorf("publish %s: %w", event.GetType(), err)
	}

	return nil
}

// stepOrder walks the draft breadth-first from its trigger steps, then
// appends any steps the walk never reached (orphans still execute last so a
// test run shows their simulated output). Ties break on step id, keeping runs
// deterministic.
func stepOrder(draft *models.WorkflowDraft) []*models.WorkflowStep {
	byID := make(map[string]*models.WorkflowStep, len(draft.Steps))
	for _, step := range draft.Steps {
		byID[step.ID] = step
	}

	outgoing := make(map[string][]string)
	for _, connection := range draft.Connections {
		outgoing[connection.Source] = append(outgoing[connection.Source], connection.Target)
	}

	for _, targets := range outgoing {
		slices.Sort(targets)
	}

	roots := append([]string(nil), draft.Triggers...)
	if len(roots) == 0 {
		// No trigger list: fall back to steps without incoming connections.
		incoming := make(map[string]int)
		for _, connection := range draft.Connections {
			incoming[connection.Target]++
		}

		for _, step := range draft.Steps {
			if incoming[step.ID] == 0 {
				roots = append(roots, step.ID)
			}
		}
	}

	slices.Sort(roots)

	var order []*models.WorkflowStep

	visited := make(map[string]bool, len(byID))
	queue := roots

	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]

		if visited[id] {
			continue
		}

		visited[id] = true

		if step, ok := byID[id]; ok {
			order = append(order, step)
		}

		queue = append(queue, outgoing[id]...)
	}

	remaining := make([]string, 0)

	for id := range byID {
		if !visited[id] {
			remaining = append(remaining, id)
		}
	}

	slices.Sort(remaining)

	for _, id := range remaining {
		order = append(order, byID[id])
	}

	return order
}
