package models

import "time"

// ExecutionStatus defines the lifecycle states of a test run.
type ExecutionStatus string

const (
	ExecutionStatusPending   ExecutionStatus = "pending"
	ExecutionStatusRunning   ExecutionStatus = "running"
	ExecutionStatusCompleted ExecutionStatus = "completed"
	ExecutionStatusFailed    ExecutionStatus = "failed"
)

// IsTerminal reports whether the status is final. Terminal executions are
// immutable; status events arriving afterwards are ignored.
func (s ExecutionStatus) IsTerminal() bool {
	return s == ExecutionStatusCompleted || s == ExecutionStatusFailed
}

// ExecutionLog is a single log line recorded during a run.
type ExecutionLog struct {
	Timestamp time.Time `json:"timestamp"`
	Level     string    `json:"level"`
	Message   string    `json:"message"`
}

// StatusEventType is the kind of a status stream message.
type StatusEventType string

const (
	StatusEventStarted   StatusEventType = "started"
	StatusEventProgress  StatusEventType = "progress"
	StatusEventCompleted StatusEventType = "completed"
	StatusEventFailed    StatusEventType = "failed"
)

// StatusEvent is one message on an execution's status stream, as delivered by
// the execution-service collaborator.
type StatusEvent struct {
	Type         StatusEventType `json:"type"`
	Progress     int             `json:"progress,omitempty"`
	OutputData   map[string]any  `json:"output_data,omitempty"`
	ErrorMessage string          `json:"error_message,omitempty"`
}

// Execution is a single test/run instance of a workflow draft. It is owned by
// the execution service; the editor only holds a read view updated from the
// status stream.
type Execution struct {
	ID           string          `json:"id"`
	WorkflowID   string          `json:"workflow_id"`
	Status       ExecutionStatus `json:"status"`
	InputData    map[string]any  `json:"input_data,omitempty"`
	OutputData   map[string]any  `json:"output_data,omitempty"`
	ErrorMessage string          `json:"error_message,omitempty"`
	StartedAt    time.Time       `json:"started_at"`
	CompletedAt  *time.Time      `json:"completed_at,omitempty"`
	DurationMS   *int64          `json:"duration_ms,omitempty"`
	Logs         []ExecutionLog  `json:"logs,omitempty"`
}
