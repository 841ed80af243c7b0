// Package draft maps between the in-memory graph model and the persisted
// WorkflowDraft DSL. The mapping is lossless in both directions except for
// ephemeral UI state (selection, in-progress gestures), which never reaches
// the draft.
package draft

import (
	"fmt"
	"time"

	"github.com/flowgrid/flowgrid/pkg/graph"
	"github.com/flowgrid/flowgrid/pkg/models"
	"github.com/flowgrid/flowgrid/pkg/registry"
)

// WarningCodeUnknownStepType flags a step whose type is not in the template
// catalog. The step is preserved opaquely rather than rejected so drafts
// written by newer releases still load.
const WarningCodeUnknownStepType = "unknown_step_type"

// Warning is a non-fatal finding produced while hydrating a draft.
type Warning struct {
	Code    string `json:"code"`
	StepID  string `json:"step_id,omitempty"`
	Message string `json:"message"`
}

// Metadata carries the draft fields that do not live in the graph.
type Metadata struct {
	ID          string
	Name        string
	Description string
	Category    string
	Variables   []models.Variable
	Version     int
	Status      models.DraftStatus
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Serializer converts graph models to workflow drafts and back.
type Serializer struct {
	registry *registry.Registry
}

// NewSerializer creates a serializer bound to a template catalog.
func NewSerializer(r *registry.Registry) *Serializer {
	return &Serializer{registry: r}
}

// ToWorkflowDraft serializes a graph model. Steps and connections are emitted
// in id order so serializing the same graph always yields the same draft. The
// trigger list is recomputed from the catalog's trigger-category templates.
func (s *Serializer) ToWorkflowDraft(g *graph.Model, meta Metadata) *models.WorkflowDraft {
	nodes := g.Nodes()

	steps := make([]*models.WorkflowStep, 0, len(nodes))
	triggers := make([]string, 0)

	for _, node := range nodes {
		steps = append(steps, &models.WorkflowStep{
			ID:          node.ID,
			Type:        node.Type,
			Name:        node.Data.Label,
			Description: node.Data.Description,
			Config:      models.CloneConfig(node.Data.Config),
			Position:    node.Position,
		})

		if s.registry.IsTriggerType(node.Type) {
			triggers = append(triggers, node.ID)
		}
	}

	edges := g.Edges()

	connections := make([]*models.Connection, 0, len(edges))
	for _, edge := range edges {
		connections = append(connections, &models.Connection{
			ID:     edge.ID,
			Source: edge.Source,
			Target: edge.Target,
			Label:  edge.Label,
		})
	}

	status := meta.Status
	if status == "" {
		status = models.DraftStatusDraft
	}

	return &models.WorkflowDraft{
		ID:          meta.ID,
		Name:        meta.Name,
		Description: meta.Description,
		Category:    meta.Category,
		Steps:       steps,
		Connections: connections,
		Triggers:    triggers,
		Variables:   append([]models.Variable(nil), meta.Variables...),
		Version:     meta.Version,
		Status:      status,
		CreatedAt:   meta.CreatedAt,
		UpdatedAt:   meta.UpdatedAt,
	}
}

// FromWorkflowDraft hydrates a graph model from a draft. A step whose type is
// missing from the catalog is kept as an opaque placeholder with its config
// intact, reported through an unknown-step-type warning. Structural violations
// (duplicate ids, dangling or duplicate connections) are hard errors since the
// draft does not represent a graph the editor can own.
func (s *Serializer) FromWorkflowDraft(d *models.WorkflowDraft) (*graph.Model, []Warning, error) {
	g := graph.NewModel()

	var warnings []Warning

	for _, step := range d.Steps {
		node := &models.GraphNode{
			ID:       step.ID,
			Type:     step.Type,
			Position: step.Position,
			Data: models.NodeData{
				Label:       step.Name,
				Description: step.Description,
				Config:      models.CloneConfig(step.Config),
			},
		}

		if err := g.InsertNode(node); err != nil {
			return nil, nil, fmt.Errorf("step %s: %w", step.ID, err)
		}

		if _, known := s.registry.Get(step.Type); !known {
			warnings = append(warnings, Warning{
				Code:    WarningCodeUnknownStepType,
				StepID:  step.ID,
				Message: fmt.Sprintf("step type %q is not in the template catalog; kept as-is for forward compatibility", step.Type),
			})
		}
	}

	for _, connection := range d.Connections {
		edge := &models.GraphEdge{
			ID:     connection.ID,
			Source: connection.Source,
			Target: connection.Target,
			Label:  connection.Label,
		}

		if err := g.InsertEdge(edge); err != nil {
			return nil, nil, fmt.Errorf("connection %s: %w", connection.ID, err)
		}
	}

	return g, warnings, nil
}

// MetadataOf extracts the non-graph fields of a draft, for re-serializing an
// edited graph back into it.
func MetadataOf(d *models.WorkflowDraft) Metadata {
	return Metadata{
		ID:          d.ID,
		Name:        d.Name,
		Description: d.Description,
		Category:    d.Category,
		Variables:   append([]models.Variable(nil), d.Variables...),
		Version:     d.Version,
		Status:      d.Status,
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
	}
}
