package graph

import (
	"slices"
	"strings"

	"github.com/google/uuid"

	"github.com/flowgrid/flowgrid/pkg/models"
)

// Model is the mutable node/edge collection driven by the canvas. All
// operations are synchronous and total: client misuse is reported through the
// documented error sentinels, and a failed call leaves the model exactly as it
// was.
//
// Model is not safe for concurrent mutation; the editor runs it on a single
// event loop.
type Model struct {
	nodes map[string]*models.GraphNode
	edges map[string]*models.GraphEdge
}

// NewModel creates an empty graph model.
func NewModel() *Model {
	return &Model{
		nodes: make(map[string]*models.GraphNode),
		edges: make(map[string]*models.GraphEdge),
	}
}

// AddNode instantiates a node from a template at the given canvas position
// and returns its id. The node's label and config defaults come from the
// template.
func (m *Model) AddNode(template *models.NodeTemplate, position models.Position) string {
	node := &models.GraphNode{
		ID:       uuid.New().String(),
		Type:     template.Type,
		Position: position,
		Data: models.NodeData{
			Label:       template.Name,
			Description: template.Description,
			Config:      defaultConfig(template),
		},
	}

	m.nodes[node.ID] = node

	return node.ID
}

// InsertNode adds a fully formed node, used when hydrating a model from a
// persisted draft. Fails with ErrDuplicateID if the id is taken.
func (m *Model) InsertNode(node *models.GraphNode) error {
	if _, exists := m.nodes[node.ID]; exists {
		return &ModelError{Op: "InsertNode", NodeID: node.ID, Err: ErrDuplicateID}
	}

	m.nodes[node.ID] = node

	return nil
}

// RemoveNode deletes a node and every edge incident to it in one step. It is
// a silent no-op when the id is absent.
func (m *Model) RemoveNode(id string) {
	if _, exists := m.nodes[id]; !exists {
		return
	}

	for edgeID, edge := range m.edges {
		if edge.Source == id || edge.Target == id {
			delete(m.edges, edgeID)
		}
	}

	delete(m.nodes, id)
}

// AddEdge connects source to target and returns the new edge id. It fails
// with ErrInvalidEdge when source == target, either endpoint is missing, or an
// identical edge (same source, target, and label) already exists.
func (m *Model) AddEdge(source, target, label string) (string, error) {
	if source == target {
		return "", &ModelError{Op: "AddEdge", NodeID: source, Err: ErrInvalidEdge}
	}

	if _, exists := m.nodes[source]; !exists {
		return "", &ModelError{Op: "AddEdge", NodeID: source, Err: ErrInvalidEdge}
	}

	if _, exists := m.nodes[target]; !exists {
		return "", &ModelError{Op: "AddEdge", NodeID: target, Err: ErrInvalidEdge}
	}

	for _, edge := range m.edges {
		if edge.Source == source && edge.Target == target && edge.Label == label {
			return "", &ModelError{Op: "AddEdge", EdgeID: edge.ID, Err: ErrInvalidEdge}
		}
	}

	edge := &models.GraphEdge{
		ID:     uuid.New().String(),
		Source: source,
		Target: target,
		Label:  label,
	}

	m.edges[edge.ID] = edge

	return edge.ID, nil
}

// InsertEdge adds a fully formed edge during hydration, enforcing the same
// invariants as AddEdge plus id uniqueness.
func (m *Model) InsertEdge(edge *models.GraphEdge) error {
	if _, exists := m.edges[edge.ID]; exists {
		return &ModelError{Op: "InsertEdge", EdgeID: edge.ID, Err: ErrDuplicateID}
	}

	if edge.Source == edge.Target {
		return &ModelError{Op: "InsertEdge", EdgeID: edge.ID, Err: ErrInvalidEdge}
	}

	if _, exists := m.nodes[edge.Source]; !exists {
		return &ModelError{Op: "InsertEdge", EdgeID: edge.ID, Err: ErrInvalidEdge}
	}

	if _, exists := m.nodes[edge.Target]; !exists {
		return &ModelError{Op: "InsertEdge", EdgeID: edge.ID, Err: ErrInvalidEdge}
	}

	for _, existing := range m.edges {
		if existing.Source == edge.Source && existing.Target == edge.Target && existing.Label == edge.Label {
			return &ModelError{Op: "InsertEdge", EdgeID: edge.ID, Err: ErrInvalidEdge}
		}
	}

	m.edges[edge.ID] = edge

	return nil
}

// RemoveEdge deletes a single edge. Silent no-op when absent.
func (m *Model) RemoveEdge(id string) {
	delete(m.edges, id)
}

// UpdateNodeConfig merges a patch into the node's config. Keys present in the
// patch overwrite existing keys; a nil value deletes the key. Fails with
// ErrNotFound when the id is absent.
func (m *Model) UpdateNodeConfig(id string, patch map[string]any) error {
	node, exists := m.nodes[id]
	if !exists {
		return &ModelError{Op: "UpdateNodeConfig", NodeID: id, Err: ErrNotFound}
	}

	if node.Data.Config == nil {
		node.Data.Config = make(map[string]any, len(patch))
	}

	for key, value := range patch {
		if value == nil {
			delete(node.Data.Config, key)

			continue
		}

		node.Data.Config[key] = value
	}

	return nil
}

// SetNodePosition moves a node. Fails with ErrNotFound when the id is absent.
func (m *Model) SetNodePosition(id string, position models.Position) error {
	node, exists := m.nodes[id]
	if !exists {
		return &ModelError{Op: "SetNodePosition", NodeID: id, Err: ErrNotFound}
	}

	node.Position = position

	return nil
}

// Node returns the node with the given id.
func (m *Model) Node(id string) (*models.GraphNode, bool) {
	node, ok := m.nodes[id]

	return node, ok
}

// Nodes returns all nodes sorted by id for deterministic iteration.
func (m *Model) Nodes() []*models.GraphNode {
	out := make([]*models.GraphNode, 0, len(m.nodes))
	for _, node := range m.nodes {
		out = append(out, node)
	}

	slices.SortFunc(out, func(a, b *models.GraphNode) int {
		return strings.Compare(a.ID, b.ID)
	})

	return out
}

// Edges returns all edges sorted by id for deterministic iteration.
func (m *Model) Edges() []*models.GraphEdge {
	out := make([]*models.GraphEdge, 0, len(m.edges))
	for _, edge := range m.edges {
		out = append(out, edge)
	}

	slices.SortFunc(out, func(a, b *models.GraphEdge) int {
		return strings.Compare(a.ID, b.ID)
	})

	return out
}

// NodeCount returns the number of nodes.
func (m *Model) NodeCount() int {
	return len(m.nodes)
}

// EdgeCount returns the number of edges.
func (m *Model) EdgeCount() int {
	return len(m.edges)
}

// ConnectedNodes returns the ids of every node connected to the given node in
// either direction, sorted for deterministic output.
func (m *Model) ConnectedNodes(id string) []string {
	seen := make(map[string]struct{})

	for _, edge := range m.edges {
		if edge.Source == id {
			seen[edge.Target] = struct{}{}
		}

		if edge.Target == id {
			seen[edge.Source] = struct{}{}
		}
	}

	out := make([]string, 0, len(seen))
	for nodeID := range seen {
		out = append(out, nodeID)
	}

	slices.Sort(out)

	return out
}

// Incoming returns the edges whose target is the given node.
func (m *Model) Incoming(id string) []*models.GraphEdge {
	var out []*models.GraphEdge

	for _, edge := range m.edges {
		if edge.Target == id {
			out = append(out, edge)
		}
	}

	slices.SortFunc(out, func(a, b *models.GraphEdge) int {
		return strings.Compare(a.ID, b.ID)
	})

	return out
}

// Outgoing returns the edges whose source is the given node.
func (m *Model) Outgoing(id string) []*models.GraphEdge {
	var out []*models.GraphEdge

	for _, edge := range m.edges {
		if edge.Source == id {
			out = append(out, edge)
		}
	}

	slices.SortFunc(out, func(a, b *models.GraphEdge) int {
		return strings.Compare(a.ID, b.ID)
	})

	return out
}

// Clone returns a deep copy of the model, used to snapshot the graph for a
// test run.
func (m *Model) Clone() *Model {
	out := NewModel()

	for id, node := range m.nodes {
		copied := *node
		copied.Data.Config = models.CloneConfig(node.Data.Config)
		copied.Data.ValidationErrors = append([]string(nil), node.Data.ValidationErrors...)
		out.nodes[id] = &copied
	}

	for id, edge := range m.edges {
		copied := *edge
		out.edges[id] = &copied
	}

	return out
}

// defaultConfig seeds a node config with the schema's declared defaults.
func defaultConfig(template *models.NodeTemplate) map[string]any {
	config := make(map[string]any)

	properties, ok := template.ConfigSchema["properties"].(map[string]any)
	if !ok {
		return config
	}

	for name, raw := range properties {
		property, ok := raw.(map[string]any)
		if !ok {
			continue
		}

		if def, ok := property["default"]; ok {
			config[name] = def
		}
	}

	return config
}
