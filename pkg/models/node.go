// Package models defines the core domain models for the workflow canvas editor.
package models

// CategoryType represents the category of a node template.
type CategoryType string

const (
	CategoryTypeTrigger   CategoryType = "trigger"   // Nodes that may originate a workflow run
	CategoryTypeAction    CategoryType = "action"    // Regular action nodes (http, transform, log, etc.)
	CategoryTypeCondition CategoryType = "condition" // Branching nodes
	CategoryTypeAI        CategoryType = "ai"        // AI-assisted steps
)

// Built-in node types.
const (
	NodeTypeTriggerWebhook   = "trigger:webhook"
	NodeTypeTriggerScheduler = "trigger:scheduler"
	NodeTypeTriggerQueue     = "trigger:queue"
	NodeTypeHTTPRequest      = "action:http_request"
	NodeTypeTransform        = "action:transform"
	NodeTypeLog              = "action:log"
	NodeTypeCondition        = "condition"
	NodeTypeAICompletion     = "ai:completion"
)

// Position is a free-form canvas coordinate. No ordering or uniqueness is
// implied; two nodes may share a position.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// NodeData holds the editable payload of a graph node.
type NodeData struct {
	Label            string         `json:"label"`
	Description      string         `json:"description,omitempty"`
	Config           map[string]any `json:"config"`
	ValidationErrors []string       `json:"validation_errors,omitempty"`
}

// GraphNode is an in-memory node instance manipulated during editing. Nodes
// are owned exclusively by the graph model; ids are assigned at creation and
// never reused.
type GraphNode struct {
	ID       string   `json:"id"`
	Type     string   `json:"type"`
	Position Position `json:"position"`
	Data     NodeData `json:"data"`
}

// GraphEdge is a directed connection between two nodes. Both endpoints must
// exist and source != target.
type GraphEdge struct {
	ID     string `json:"id"`
	Source string `json:"source"`
	Target string `json:"target"`
	Label  string `json:"label,omitempty"`
}

// PortSpec describes an input or output port declared by a node template.
type PortSpec struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// NodeTemplate is a registry-owned, immutable description of a step type:
// its category, ports, and the JSON schema its config must satisfy.
type NodeTemplate struct {
	Type         string         `json:"type"`
	Category     CategoryType   `json:"category"`
	Name         string         `json:"name"`
	Description  string         `json:"description"`
	Inputs       []PortSpec     `json:"inputs"`
	Outputs      []PortSpec     `json:"outputs"`
	ConfigSchema map[string]any `json:"config_schema"`
}

// IsTrigger reports whether the template belongs to the trigger category.
func (t *NodeTemplate) IsTrigger() bool {
	return t.Category == CategoryTypeTrigger
}
