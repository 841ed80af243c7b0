// Package events defines the typed messages exchanged over the execution
// status bus.
package events

import (
	"time"

	"github.com/flowgrid/flowgrid/pkg/models"
)

// EventType identifies the kind of a bus message.
type EventType string

const (
	ExecutionRequestedEvent EventType = "execution.requested"
	ExecutionStartedEvent   EventType = "execution.started"
	ExecutionProgressEvent  EventType = "execution.progress"
	ExecutionCompletedEvent EventType = "execution.completed"
	ExecutionFailedEvent    EventType = "execution.failed"
	ExecutionLogEvent       EventType = "execution.log"
)

// Topic is the bus topic carrying all execution events.
const Topic = "flowgrid.executions"

// Message metadata keys. The execution id rides in metadata so subscribers
// can filter without decoding payloads.
const (
	EventMetadataKey     = "execution_id"
	EventTypeMetadataKey = "event_type"
)

// ExecutionRequested asks a worker to run a draft snapshot. The draft is
// embedded so the worker never reads mutable editor state.
type ExecutionRequested struct {
	ExecutionID string                `json:"execution_id"`
	WorkflowID  string                `json:"workflow_id"`
	Draft       *models.WorkflowDraft `json:"draft"`
	InputData   map[string]any        `json:"input_data,omitempty"`
	RequestedAt time.Time             `json:"requested_at"`
}

func (e *ExecutionRequested) GetType() EventType { return ExecutionRequestedEvent }

// ExecutionStarted marks the transition from pending to running.
type ExecutionStarted struct {
	ExecutionID string    `json:"execution_id"`
	WorkflowID  string    `json:"workflow_id"`
	Timestamp   time.Time `json:"timestamp"`
}

func (e *ExecutionStarted) GetType() EventType { return ExecutionStartedEvent }

// ExecutionProgress reports completion percentage in [0,100]. Delivery may be
// out of order or duplicated; consumers must treat progress as monotonic.
type ExecutionProgress struct {
	ExecutionID string    `json:"execution_id"`
	Progress    int       `json:"progress"`
	StepID      string    `json:"step_id,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

func (e *ExecutionProgress) GetType() EventType { return ExecutionProgressEvent }

// ExecutionCompleted is terminal: no further events follow for the id.
type ExecutionCompleted struct {
	ExecutionID string         `json:"execution_id"`
	OutputData  map[string]any `json:"output_data,omitempty"`
	Timestamp   time.Time      `json:"timestamp"`
}

func (e *ExecutionCompleted) GetType() EventType { return ExecutionCompletedEvent }

// ExecutionFailed is terminal: no further events follow for the id.
type ExecutionFailed struct {
	ExecutionID  string    `json:"execution_id"`
	ErrorMessage string    `json:"error_message"`
	Timestamp    time.Time `json:"timestamp"`
}

func (e *ExecutionFailed) GetType() EventType { return ExecutionFailedEvent }

// ExecutionLogLine carries one run log line.
type ExecutionLogLine struct {
	ExecutionID string    `json:"execution_id"`
	Level       string    `json:"level"`
	Message     string    `json:"message"`
	Timestamp   time.Time `json:"timestamp"`
}

func (e *ExecutionLogLine) GetType() EventType { return ExecutionLogEvent }
