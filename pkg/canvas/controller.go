// Package canvas implements the interaction state machine that turns user
// gestures (drag, drop, connect, select, delete) into graph mutations. The
// controller holds no duplicate graph state and can be driven by any
// rendering layer, including a headless test harness.
package canvas

import (
	"errors"
	"fmt"

	"github.com/flowgrid/flowgrid/pkg/graph"
	"github.com/flowgrid/flowgrid/pkg/models"
	"github.com/flowgrid/flowgrid/pkg/registry"
)

// State identifies the single active interaction.
type State int

const (
	StateIdle State = iota
	StateDragging
	StateConnecting
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateDragging:
		return "dragging"
	case StateConnecting:
		return "connecting"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

var (
	// ErrInvalidTransition indicates a gesture that is not legal in the
	// current state.
	ErrInvalidTransition = errors.New("invalid interaction transition")

	// ErrUnknownTemplate indicates a palette drag for an unregistered type.
	ErrUnknownTemplate = errors.New("unknown node template")

	// ErrNoSelection indicates a selection-dependent gesture with nothing
	// selected.
	ErrNoSelection = errors.New("no node selected")
)

// Viewport describes the pan/zoom transform between pointer space and canvas
// space.
type Viewport struct {
	OffsetX float64
	OffsetY float64
	Zoom    float64
}

// Controller is the canvas interaction state machine. At most one interaction
// (drag or connect) is active at a time; selection is single-node.
type Controller struct {
	graph    *graph.Model
	registry *registry.Registry

	state         State
	dragTemplate  *models.NodeTemplate
	connectSource string
	connectHandle string
	selected      string
	viewport      Viewport
}

// NewController creates a controller over the given graph model.
func NewController(g *graph.Model, r *registry.Registry) *Controller {
	return &Controller{
		graph:    g,
		registry: r,
		state:    StateIdle,
		viewport: Viewport{Zoom: 1},
	}
}

// State returns the current interaction state.
func (c *Controller) State() State {
	return c.state
}

// SetViewport updates the pan/zoom transform. A zero zoom is coerced to 1 so
// coordinate translation stays defined.
func (c *Controller) SetViewport(v Viewport) {
	if v.Zoom == 0 {
		v.Zoom = 1
	}

	c.viewport = v
}

// ToCanvas translates a pointer-space position into canvas space.
func (c *Controller) ToCanvas(pointer models.Position) models.Position {
	return models.Position{
		X: (pointer.X - c.viewport.OffsetX) / c.viewport.Zoom,
		Y: (pointer.Y - c.viewport.OffsetY) / c.viewport.Zoom,
	}
}

// BeginDrag starts a palette drag of the given template type.
func (c *Controller) BeginDrag(templateType string) error {
	if c.state != StateIdle {
		return fmt.Errorf("begin drag in %s: %w", c.state, ErrInvalidTransition)
	}

	template, ok := c.registry.Get(templateType)
	if !ok {
		return fmt.Errorf("begin drag for %q: %w", templateType, ErrUnknownTemplate)
	}

	c.state = StateDragging
	c.dragTemplate = template

	return nil
}

// CancelDrag abandons an in-progress palette drag.
func (c *Controller) CancelDrag() {
	if c.state != StateDragging {
		return
	}

	c.state = StateIdle
	c.dragTemplate = nil
}

// Drop completes a palette drag: the node is created at the pointer position
// translated into canvas space, and becomes the selection.
func (c *Controller) Drop(pointer models.Position) (string, error) {
	if c.state != StateDragging {
		return "", fmt.Errorf("drop in %s: %w", c.state, ErrInvalidTransition)
	}

	nodeID := c.graph.AddNode(c.dragTemplate, c.ToCanvas(pointer))

	c.state = StateIdle
	c.dragTemplate = nil
	c.selected = nodeID

	return nodeID, nil
}

// BeginConnect starts an edge drag from an output handle of a node.
func (c *Controller) BeginConnect(sourceNodeID, sourceHandle string) error {
	if c.state != StateIdle {
		return fmt.Errorf("begin connect in %s: %w", c.state, ErrInvalidTransition)
	}

	if _, ok := c.graph.Node(sourceNodeID); !ok {
		return fmt.Errorf("begin connect from %q: %w", sourceNodeID, graph.ErrNotFound)
	}

	c.state = StateConnecting
	c.connectSource = sourceNodeID
	c.connectHandle = sourceHandle

	return nil
}

// CancelConnect abandons an in-progress edge drag.
func (c *Controller) CancelConnect() {
	if c.state != StateConnecting {
		return
	}

	c.state = StateIdle
	c.connectSource = ""
	c.connectHandle = ""
}

// CompleteConnect finishes an edge drag on the target node's input handle.
// The edge label is the source handle name for secondary handles (a condition
// node's "false" branch), empty for the conventional default handle. When the
// graph rejects the edge the attempt is discarded and no artifact persists;
// the controller returns to idle either way.
func (c *Controller) CompleteConnect(targetNodeID string) (string, error) {
	if c.state != StateConnecting {
		return "", fmt.Errorf("complete connect in %s: %w", c.state, ErrInvalidTransition)
	}

	source := c.connectSource
	label := c.connectHandle

	if label == "output" || label == "out" {
		label = ""
	}

	c.state = StateIdle
	c.connectSource = ""
	c.connectHandle = ""

	edgeID, err := c.graph.AddEdge(source, targetNodeID, label)
	if err != nil {
		return "", err
	}

	return edgeID, nil
}

// Select makes the node the single selection, replacing any prior one.
func (c *Controller) Select(nodeID string) error {
	if _, ok := c.graph.Node(nodeID); !ok {
		return fmt.Errorf("select %q: %w", nodeID, graph.ErrNotFound)
	}

	c.selected = nodeID

	return nil
}

// ClearSelection deselects, as when clicking empty canvas.
func (c *Controller) ClearSelection() {
	c.selected = ""
}

// Selected returns the selected node id, if any.
func (c *Controller) Selected() (string, bool) {
	return c.selected, c.selected != ""
}

// HandleDeleteKey deletes the selected node unless a text input owns the
// keyboard focus. Returns the deleted node id.
func (c *Controller) HandleDeleteKey(inputFocused bool) (string, error) {
	if inputFocused {
		return "", nil
	}

	if c.selected == "" {
		return "", ErrNoSelection
	}

	deleted := c.selected
	c.graph.RemoveNode(deleted)
	c.selected = ""

	return deleted, nil
}
