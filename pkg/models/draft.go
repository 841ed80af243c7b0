package models

import "time"

// DraftStatus represents the lifecycle state of a workflow draft.
type DraftStatus string

const (
	DraftStatusDraft    DraftStatus = "draft"    // Editable, not executable outside test runs
	DraftStatusActive   DraftStatus = "active"   // Validated and runnable
	DraftStatusArchived DraftStatus = "archived" // Historical, read-only
)

// Variable is a named workflow-level input with a default value.
type Variable struct {
	Name         string `json:"name"        validate:"required"`
	Type         string `json:"type"        validate:"required"`
	DefaultValue any    `json:"defaultValue,omitempty"`
	Description  string `json:"description,omitempty"`
}

// WorkflowStep is the persisted form of a graph node.
type WorkflowStep struct {
	ID          string         `json:"id"          validate:"required"`
	Type        string         `json:"type"        validate:"required"`
	Name        string         `json:"name"        validate:"required,min=1"`
	Description string         `json:"description,omitempty"`
	Config      map[string]any `json:"config"`
	Position    Position       `json:"position"`
}

// Connection is the persisted form of a graph edge.
type Connection struct {
	ID     string `json:"id"`
	Source string `json:"source" validate:"required"`
	Target string `json:"target" validate:"required"`
	Label  string `json:"label,omitempty"`
}

// WorkflowDraft is the serialized, persistable representation of a canvas
// graph. It is the unit handed to the persistence and execution collaborators;
// the editor never auto-saves it.
type WorkflowDraft struct {
	ID          string          `json:"id,omitempty"`
	Name        string          `json:"name"        validate:"required,min=3"`
	Description string          `json:"description"`
	Category    string          `json:"category"`
	Steps       []*WorkflowStep `json:"steps"`
	Connections []*Connection   `json:"connections"`
	Triggers    []string        `json:"triggers"` // Step ids of trigger-category steps
	Variables   []Variable      `json:"variables"`
	Version     int             `json:"version"`
	Status      DraftStatus     `json:"status"      validate:"required"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// Clone returns a deep copy of the draft. Test runs execute against a clone
// taken at start time so later edits do not leak into an in-flight run.
func (d *WorkflowDraft) Clone() *WorkflowDraft {
	if d == nil {
		return nil
	}

	out := *d

	out.Steps = make([]*WorkflowStep, len(d.Steps))
	for i, s := range d.Steps {
		sc := *s
		sc.Config = CloneConfig(s.Config)
		out.Steps[i] = &sc
	}

	out.Connections = make([]*Connection, len(d.Connections))
	for i, c := range d.Connections {
		cc := *c
		out.Connections[i] = &cc
	}

	out.Triggers = append([]string(nil), d.Triggers...)
	out.Variables = append([]Variable(nil), d.Variables...)

	return &out
}

// CloneConfig deep-copies a config map, descending into nested maps and
// slices. Scalar values are shared.
func CloneConfig(in map[string]any) map[string]any {
	return cloneMap(in)
}

func cloneMap(in map[string]any) map[string]any {
	if in == nil {
		return nil
	}

	out := make(map[string]any, len(in))

	for k, v := range in {
		if nested, ok := v.(map[string]any); ok {
			out[k] = cloneMap(nested)

			continue
		}

		if list, ok := v.([]any); ok {
			out[k] = cloneSlice(list)

			continue
		}

		out[k] = v
	}

	return out
}

func cloneSlice(in []any) []any {
	out := make([]any, len(in))

	for i, v := range in {
		if nested, ok := v.(map[string]any); ok {
			out[i] = cloneMap(nested)

			continue
		}

		out[i] = v
	}

	return out
}
