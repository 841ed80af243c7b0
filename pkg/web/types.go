// Package web provides the REST API over drafts, validation, and test runs.
package web

import (
	"github.com/flowgrid/flowgrid/pkg/draft"
	"github.com/flowgrid/flowgrid/pkg/models"
	"github.com/flowgrid/flowgrid/pkg/validation"
)

// CreateDraftRequest is the request body for creating a draft. The canvas
// submits the whole serialized graph in one document.
type CreateDraftRequest struct {
	Name        string                 `json:"name"        validate:"required,min=3"`
	Description string                 `json:"description"`
	Category    string                 `json:"category"`
	Steps       []*models.WorkflowStep `json:"steps"`
	Connections []*models.Connection   `json:"connections"`
	Triggers    []string               `json:"triggers"`
	Variables   []models.Variable      `json:"variables"`
}

// UpdateDraftRequest replaces a draft's content. Version carries the version
// the editor loaded; a stale value is rejected with 409.
type UpdateDraftRequest struct {
	Name        string                 `json:"name"        validate:"required,min=3"`
	Description string                 `json:"description"`
	Category    string                 `json:"category"`
	Steps       []*models.WorkflowStep `json:"steps"`
	Connections []*models.Connection   `json:"connections"`
	Triggers    []string               `json:"triggers"`
	Variables   []models.Variable      `json:"variables"`
	Version     int                    `json:"version"`
}

// ValidateDraftResponse is the outcome of an on-demand validation pass.
type ValidateDraftResponse struct {
	Valid    bool               `json:"valid"`
	Errors   []validation.Issue `json:"errors"`
	Warnings []validation.Issue `json:"warnings"`

	// LoadWarnings surface steps the serializer kept as opaque placeholders.
	LoadWarnings []draft.Warning `json:"load_warnings,omitempty"`
}

// StartExecutionRequest is the request body for starting a test run.
type StartExecutionRequest struct {
	InputData map[string]any `json:"input_data"`
}

// StartExecutionResponse returns the id of the created run.
type StartExecutionResponse struct {
	ExecutionID string `json:"execution_id"`
}

func (r CreateDraftRequest) toDraft() *models.WorkflowDraft {
	return &models.WorkflowDraft{
		Name:        r.Name,
		Description: r.Description,
		Category:    r.Category,
		Steps:       r.Steps,
		Connections: r.Connections,
		Triggers:    r.Triggers,
		Variables:   r.Variables,
	}
}

func (r UpdateDraftRequest) toDraft() *models.WorkflowDraft {
	return &models.WorkflowDraft{
		Name:        r.Name,
		Description: r.Description,
		Category:    r.Category,
		Steps:       r.Steps,
		Connections: r.Connections,
		Triggers:    r.Triggers,
		Variables:   r.Variables,
		Version:     r.Version,
	}
}
