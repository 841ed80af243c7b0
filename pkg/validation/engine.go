// Package validation implements the pure structural validation of a canvas
// graph. Validation is on demand: nothing here schedules itself, and a result
// never blocks further editing — errors only gate execution readiness.
package validation

import (
	"fmt"

	"github.com/xeipuuv/gojsonschema"

	"github.com/flowgrid/flowgrid/pkg/graph"
	"github.com/flowgrid/flowgrid/pkg/models"
	"github.com/flowgrid/flowgrid/pkg/registry"
)

// Issue codes. Errors block execution readiness; warnings do not.
const (
	CodeCyclicGraph          = "cyclic_graph"
	CodeMissingRequiredField = "missing_required_field"
	CodeNoTriggerDefined     = "no_trigger_defined"
	CodeInvalidConfigValue   = "invalid_config_value"
	CodeOrphanNode           = "orphan_node"
	CodeUnknownStepType      = "unknown_step_type"
)

// Issue is a single validation finding, anchored to a node when applicable.
type Issue struct {
	Code    string `json:"code"`
	NodeID  string `json:"node_id,omitempty"`
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
}

// Result is the outcome of validating a graph.
type Result struct {
	Errors   []Issue `json:"errors"`
	Warnings []Issue `json:"warnings"`
}

// Valid reports whether the graph is eligible to execute.
func (r Result) Valid() bool {
	return len(r.Errors) == 0
}

// HasCode reports whether any error or warning carries the given code.
func (r Result) HasCode(code string) bool {
	for _, issue := range r.Errors {
		if issue.Code == code {
			return true
		}
	}

	for _, issue := range r.Warnings {
		if issue.Code == code {
			return true
		}
	}

	return false
}

// Engine validates graphs against the template catalog.
type Engine struct {
	registry *registry.Registry
}

// NewEngine creates a validation engine bound to a template catalog.
func NewEngine(r *registry.Registry) *Engine {
	return &Engine{registry: r}
}

// Validate runs every rule over the graph and collects the findings. The
// graph is not modified.
func (e *Engine) Validate(g *graph.Model) Result {
	var result Result

	e.checkTriggers(g, &result)
	e.checkCycles(g, &result)
	e.checkOrphans(g, &result)
	e.checkConfigs(g, &result)

	return result
}

// Apply writes each node's error messages into its ValidationErrors so the
// rendering layer can annotate the canvas. Nodes without findings are reset.
func Apply(g *graph.Model, result Result) {
	byNode := make(map[string][]string)

	for _, issue := range result.Errors {
		if issue.NodeID != "" {
			byNode[issue.NodeID] = append(byNode[issue.NodeID], issue.Message)
		}
	}

	for _, node := range g.Nodes() {
		node.Data.ValidationErrors = byNode[node.ID]
	}
}

func (e *Engine) checkTriggers(g *graph.Model, result *Result) {
	for _, node := range g.Nodes() {
		if e.registry.IsTriggerType(node.Type) {
			return
		}
	}

	result.Errors = append(result.Errors, Issue{
		Code:    CodeNoTriggerDefined,
		Message: "workflow has no trigger step; add one to make it runnable",
	})
}

// checkCycles runs a colored depth-first traversal from every trigger node.
// Any back edge is a cycle, regardless of graph size.
func (e *Engine) checkCycles(g *graph.Model, result *Result) {
	const (
		white = 0 // unvisited
		gray  = 1 // on the current path
		black = 2 // fully explored
	)

	color := make(map[string]int, g.NodeCount())

	var visit func(id string) *models.GraphEdge

	visit = func(id string) *models.GraphEdge {
		color[id] = gray

		for _, edge := range g.Outgoing(id) {
			switch color[edge.Target] {
			case gray:
				return edge
			case white:
				if back := visit(edge.Target); back != nil {
					return back
				}
			}
		}

		color[id] = black

		return nil
	}

	for _, node := range g.Nodes() {
		if !e.registry.IsTriggerType(node.Type) || color[node.ID] != white {
			continue
		}

		if back := visit(node.ID); back != nil {
			result.Errors = append(result.Errors, Issue{
				Code:   CodeCyclicGraph,
				NodeID: back.Target,
				Message: fmt.Sprintf(
					"cycle detected: edge from %s back to %s", back.Source, back.Target),
			})

			return
		}
	}
}

// checkOrphans warns on non-trigger nodes with no incoming edge. A graph with
// exactly one node total is exempt: a lone step is a workflow being born, not
// a mistake.
func (e *Engine) checkOrphans(g *graph.Model, result *Result) {
	if g.NodeCount() <= 1 {
		return
	}

	for _, node := range g.Nodes() {
		if e.registry.IsTriggerType(node.Type) {
			continue
		}

		if len(g.Incoming(node.ID)) == 0 {
			result.Warnings = append(result.Warnings, Issue{
				Code:    CodeOrphanNode,
				NodeID:  node.ID,
				Message: fmt.Sprintf("step %q is unreachable: it has no incoming connection", node.Data.Label),
			})
		}
	}
}

func (e *Engine) checkConfigs(g *graph.Model, result *Result) {
	for _, node := range g.Nodes() {
		template, known := e.registry.Get(node.Type)
		if !known {
			result.Warnings = append(result.Warnings, Issue{
				Code:    CodeUnknownStepType,
				NodeID:  node.ID,
				Message: fmt.Sprintf("step type %q is not in the template catalog", node.Type),
			})

			continue
		}

		e.checkRequiredFields(node, template, result)
		e.checkSchema(node, template, result)

		if err := e.registry.CheckConfig(node.Type, node.Data.Config); err != nil {
			result.Errors = append(result.Errors, Issue{
				Code:    CodeInvalidConfigValue,
				NodeID:  node.ID,
				Message: err.Error(),
			})
		}
	}
}

// checkRequiredFields enforces presence and non-emptiness of the schema's
// required fields. JSON Schema alone treats "" as present, which is not good
// enough for a field the operator left blank in a form.
func (e *Engine) checkRequiredFields(node *models.GraphNode, template *models.NodeTemplate, result *Result) {
	required, ok := template.ConfigSchema["required"].([]any)
	if !ok {
		return
	}

	for _, raw := range required {
		field, ok := raw.(string)
		if !ok {
			continue
		}

		value, present := node.Data.Config[field]
		if present && value != nil {
			if s, isString := value.(string); !isString || s != "" {
				continue
			}
		}

		result.Errors = append(result.Errors, Issue{
			Code:    CodeMissingRequiredField,
			NodeID:  node.ID,
			Field:   field,
			Message: fmt.Sprintf("step %q is missing required field %q", node.Data.Label, field),
		})
	}
}

// checkSchema validates the config document against the template schema,
// reporting violations other than the required fields already covered.
func (e *Engine) checkSchema(node *models.GraphNode, template *models.NodeTemplate, result *Result) {
	if template.ConfigSchema == nil {
		return
	}

	config := node.Data.Config
	if config == nil {
		config = map[string]any{}
	}

	schemaLoader := gojsonschema.NewGoLoader(template.ConfigSchema)
	documentLoader := gojsonschema.NewGoLoader(config)

	outcome, err := gojsonschema.Validate(schemaLoader, documentLoader)
	if err != nil {
		result.Errors = append(result.Errors, Issue{
			Code:    CodeInvalidConfigValue,
			NodeID:  node.ID,
			Message: fmt.Sprintf("config schema for %q could not be evaluated: %v", node.Type, err),
		})

		return
	}

	for _, violation := range outcome.Errors() {
		if violation.Type() == "required" {
			continue // reported as missing_required_field above
		}

		result.Errors = append(result.Errors, Issue{
			Code:    CodeInvalidConfigValue,
			NodeID:  node.ID,
			Field:   violation.Field(),
			Message: fmt.Sprintf("step %q: %s", node.Data.Label, violation.Description()),
		})
	}
}
