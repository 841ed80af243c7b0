// Package main provides the Flowgrid worker: it consumes run requests from
// the bus and executes them, publishing status events back.
package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/flowgrid/flowgrid/pkg/eventbus"
	"github.com/flowgrid/flowgrid/pkg/events"
	"github.com/flowgrid/flowgrid/pkg/execution"
	"github.com/flowgrid/flowgrid/pkg/otelhelper"
)

type Worker struct {
	id       string
	logger   *slog.Logger
	eventBus *eventbus.WatermillEventBus
	runner   *execution.LocalRunner
}

func NewWorker(id string, logger *slog.Logger, eventBus *eventbus.WatermillEventBus) *Worker {
	return &Worker{
		id:       id,
		logger:   logger,
		eventBus: eventBus,
		runner:   execution.NewLocalRunner(logger, eventBus),
	}
}

// Start registers the run-request handler and blocks until the context is
// cancelled.
func (w *Worker) Start(ctx context.Context) error {
	tracer, err := otelhelper.NewTracer(ctx, "flowgrid-worker")
	if err != nil {
		return fmt.Errorf("initialize tracer: %w", err)
	}

	w.runner.WithTracer(tracer)

	err = w.eventBus.Handle(events.ExecutionRequestedEvent, func(ctx context.Context, event any) error {
		request, ok := event.(*events.ExecutionRequested)
		if !ok {
			return fmt.Errorf("unexpected event payload %T", event)
		}

		w.logger.InfoContext(ctx, "Executing run request",
			"execution_id", request.ExecutionID, "workflow_id", request.WorkflowID)

		return w.runner.Run(ctx, request.ExecutionID, request.Draft, request.InputData)
	})
	if err != nil {
		return fmt.Errorf("register run request handler: %w", err)
	}

	if err := w.eventBus.Subscribe(ctx); err != nil {
		return fmt.Errorf("subscribe to event bus: %w", err)
	}

	w.logger.InfoContext(ctx, "Worker started")

	<-ctx.Done()

	w.logger.Info("Worker shutting down")

	return nil
}
