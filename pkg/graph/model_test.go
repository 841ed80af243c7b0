package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowgrid/flowgrid/pkg/models"
)

func triggerTemplate() *models.NodeTemplate {
	return &models.NodeTemplate{
		Type:     models.NodeTypeTriggerWebhook,
		Category: models.CategoryTypeTrigger,
		Name:     "Webhook Trigger",
	}
}

func actionTemplate() *models.NodeTemplate {
	return &models.NodeTemplate{
		Type:     models.NodeTypeLog,
		Category: models.CategoryTypeAction,
		Name:     "Log",
		ConfigSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"level": map[string]any{
					"type":    "string",
					"default": "info",
				},
				"message": map[string]any{
					"type": "string",
				},
			},
			"required": []any{"message"},
		},
	}
}

func TestModel_AddNode(t *testing.T) {
	model := NewModel()

	id := model.AddNode(actionTemplate(), models.Position{X: 100, Y: 50})
	require.NotEmpty(t, id)

	node, ok := model.Node(id)
	require.True(t, ok)
	assert.Equal(t, models.NodeTypeLog, node.Type)
	assert.Equal(t, "Log", node.Data.Label)
	assert.InDelta(t, 100.0, node.Position.X, 0.001)

	// Schema defaults are seeded into the config.
	assert.Equal(t, "info", node.Data.Config["level"])
	_, hasMessage := node.Data.Config["message"]
	assert.False(t, hasMessage)
}

func TestModel_AddNode_UniqueIDs(t *testing.T) {
	model := NewModel()
	template := actionTemplate()

	seen := make(map[string]bool)

	for range 50 {
		id := model.AddNode(template, models.Position{})
		assert.False(t, seen[id])
		seen[id] = true
	}

	assert.Equal(t, 50, model.NodeCount())
}

func TestModel_AddEdge(t *testing.T) {
	model := NewModel()
	a := model.AddNode(triggerTemplate(), models.Position{})
	b := model.AddNode(actionTemplate(), models.Position{X: 200})

	edgeID, err := model.AddEdge(a, b, "")
	require.NoError(t, err)
	require.NotEmpty(t, edgeID)
	assert.Equal(t, 1, model.EdgeCount())
}

func TestModel_AddEdge_SelfLoop(t *testing.T) {
	model := NewModel()
	a := model.AddNode(triggerTemplate(), models.Position{})

	_, err := model.AddEdge(a, a, "")
	require.ErrorIs(t, err, ErrInvalidEdge)
	assert.Equal(t, 0, model.EdgeCount())
}

func TestModel_AddEdge_MissingEndpoint(t *testing.T) {
	model := NewModel()
	a := model.AddNode(triggerTemplate(), models.Position{})

	_, err := model.AddEdge(a, "missing", "")
	require.ErrorIs(t, err, ErrInvalidEdge)

	_, err = model.AddEdge("missing", a, "")
	require.ErrorIs(t, err, ErrInvalidEdge)

	assert.Equal(t, 0, model.EdgeCount())
}

func TestModel_AddEdge_Duplicate(t *testing.T) {
	model := NewModel()
	a := model.AddNode(triggerTemplate(), models.Position{})
	b := model.AddNode(actionTemplate(), models.Position{})

	_, err := model.AddEdge(a, b, "ok")
	require.NoError(t, err)

	_, err = model.AddEdge(a, b, "ok")
	require.ErrorIs(t, err, ErrInvalidEdge)
	assert.Equal(t, 1, model.EdgeCount())

	// Same endpoints with a different label is a distinct edge.
	_, err = model.AddEdge(a, b, "fallback")
	require.NoError(t, err)
	assert.Equal(t, 2, model.EdgeCount())
}

func TestModel_RemoveNode_CascadesEdges(t *testing.T) {
	model := NewModel()
	a := model.AddNode(triggerTemplate(), models.Position{})
	b := model.AddNode(actionTemplate(), models.Position{})
	c := model.AddNode(actionTemplate(), models.Position{})

	_, err := model.AddEdge(a, b, "")
	require.NoError(t, err)
	_, err = model.AddEdge(b, c, "")
	require.NoError(t, err)

	keptID, err := model.AddEdge(a, c, "")
	require.NoError(t, err)

	model.RemoveNode(b)

	assert.Equal(t, 2, model.NodeCount())
	require.Equal(t, 1, model.EdgeCount())
	assert.Equal(t, keptID, model.Edges()[0].ID)
}

func TestModel_RemoveNode_AbsentIsNoOp(t *testing.T) {
	model := NewModel()
	model.AddNode(triggerTemplate(), models.Position{})

	model.RemoveNode("missing")

	assert.Equal(t, 1, model.NodeCount())
}

func TestModel_UpdateNodeConfig(t *testing.T) {
	model := NewModel()
	id := model.AddNode(actionTemplate(), models.Position{})

	err := model.UpdateNodeConfig(id, map[string]any{
		"message": "hello",
		"level":   "warn",
	})
	require.NoError(t, err)

	node, _ := model.Node(id)
	assert.Equal(t, "hello", node.Data.Config["message"])
	assert.Equal(t, "warn", node.Data.Config["level"])

	// Nil values delete keys.
	err = model.UpdateNodeConfig(id, map[string]any{"level": nil})
	require.NoError(t, err)

	node, _ = model.Node(id)
	_, hasLevel := node.Data.Config["level"]
	assert.False(t, hasLevel)
}

func TestModel_UpdateNodeConfig_NotFound(t *testing.T) {
	model := NewModel()

	err := model.UpdateNodeConfig("missing", map[string]any{"a": 1})
	require.ErrorIs(t, err, ErrNotFound)
}

func TestModel_ConnectedNodes(t *testing.T) {
	model := NewModel()
	a := model.AddNode(triggerTemplate(), models.Position{})
	b := model.AddNode(actionTemplate(), models.Position{})
	c := model.AddNode(actionTemplate(), models.Position{})
	d := model.AddNode(actionTemplate(), models.Position{})

	_, err := model.AddEdge(a, b, "")
	require.NoError(t, err)
	_, err = model.AddEdge(c, b, "")
	require.NoError(t, err)

	connected := model.ConnectedNodes(b)
	assert.ElementsMatch(t, []string{a, c}, connected)
	assert.Empty(t, model.ConnectedNodes(d))
}

func TestModel_Clone_IsIndependent(t *testing.T) {
	model := NewModel()
	id := model.AddNode(actionTemplate(), models.Position{X: 1})
	require.NoError(t, model.UpdateNodeConfig(id, map[string]any{"message": "original"}))

	snapshot := model.Clone()

	require.NoError(t, model.UpdateNodeConfig(id, map[string]any{"message": "changed"}))
	model.RemoveNode(id)

	node, ok := snapshot.Node(id)
	require.True(t, ok)
	assert.Equal(t, "original", node.Data.Config["message"])
}

func TestModel_InsertEdge_Invariants(t *testing.T) {
	model := NewModel()

	node := &models.GraphNode{ID: "n1", Type: models.NodeTypeLog}
	require.NoError(t, model.InsertNode(node))
	require.ErrorIs(t, model.InsertNode(node), ErrDuplicateID)

	err := model.InsertEdge(&models.GraphEdge{ID: "e1", Source: "n1", Target: "n1"})
	require.ErrorIs(t, err, ErrInvalidEdge)

	err = model.InsertEdge(&models.GraphEdge{ID: "e1", Source: "n1", Target: "ghost"})
	require.ErrorIs(t, err, ErrInvalidEdge)
}
