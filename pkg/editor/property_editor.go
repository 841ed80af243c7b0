// Package editor provides the per-node configuration edit buffer behind the
// property panel. The buffer is seeded from the node on open and written back
// only on explicit save, so typing never mutates the graph directly.
package editor

import (
	"errors"
	"fmt"

	"github.com/flowgrid/flowgrid/pkg/graph"
	"github.com/flowgrid/flowgrid/pkg/models"
)

var (
	// ErrNoNodeOpen indicates an edit with no node loaded into the buffer.
	ErrNoNodeOpen = errors.New("no node open in the editor")

	// ErrUnsavedChanges indicates an open of a different node while the
	// current buffer is dirty. The caller decides whether to save, cancel,
	// or force-discard; the editor only refuses to lose the buffer silently.
	ErrUnsavedChanges = errors.New("unsaved changes in the editor")
)

// PropertyEditor maintains the edit buffer for the selected node.
type PropertyEditor struct {
	graph *graph.Model

	nodeID string
	buffer map[string]any
	dirty  bool
}

// NewPropertyEditor creates an editor over the given graph model.
func NewPropertyEditor(g *graph.Model) *PropertyEditor {
	return &PropertyEditor{graph: g}
}

// Open seeds the buffer from a node's data. Opening the already-open node is
// a no-op and keeps any in-progress edits. Opening a different node while
// dirty fails with ErrUnsavedChanges.
func (e *PropertyEditor) Open(nodeID string) error {
	if e.nodeID == nodeID {
		return nil
	}

	if e.dirty {
		return fmt.Errorf("open %q while editing %q: %w", nodeID, e.nodeID, ErrUnsavedChanges)
	}

	node, ok := e.graph.Node(nodeID)
	if !ok {
		return fmt.Errorf("open %q: %w", nodeID, graph.ErrNotFound)
	}

	e.nodeID = nodeID
	e.buffer = models.CloneConfig(node.Data.Config)
	e.dirty = false

	if e.buffer == nil {
		e.buffer = make(map[string]any)
	}

	return nil
}

// NodeID returns the id of the node loaded into the buffer, if any.
func (e *PropertyEditor) NodeID() (string, bool) {
	return e.nodeID, e.nodeID != ""
}

// Dirty reports whether the buffer has uncommitted edits.
func (e *PropertyEditor) Dirty() bool {
	return e.dirty
}

// SetField edits one config field in the buffer. A nil value marks the field
// for deletion on save.
func (e *PropertyEditor) SetField(name string, value any) error {
	if e.nodeID == "" {
		return ErrNoNodeOpen
	}

	e.buffer[name] = value
	e.dirty = true

	return nil
}

// Field reads one field from the buffer.
func (e *PropertyEditor) Field(name string) (any, bool) {
	value, ok := e.buffer[name]

	return value, ok
}

// Buffer returns a copy of the current edit buffer.
func (e *PropertyEditor) Buffer() map[string]any {
	return models.CloneConfig(e.buffer)
}

// Save commits the buffer to the node via the graph model and transitions
// back to clean. The buffer stays loaded so editing can continue.
func (e *PropertyEditor) Save() error {
	if e.nodeID == "" {
		return ErrNoNodeOpen
	}

	if !e.dirty {
		return nil
	}

	if err := e.graph.UpdateNodeConfig(e.nodeID, e.buffer); err != nil {
		return err
	}

	node, _ := e.graph.Node(e.nodeID)
	e.buffer = models.CloneConfig(node.Data.Config)
	e.dirty = false

	return nil
}

// Cancel discards uncommitted edits and reseeds the buffer from the node.
func (e *PropertyEditor) Cancel() error {
	if e.nodeID == "" {
		return ErrNoNodeOpen
	}

	node, ok := e.graph.Node(e.nodeID)
	if !ok {
		// The node was deleted under the editor; just close.
		e.Close()

		return nil
	}

	e.buffer = models.CloneConfig(node.Data.Config)
	e.dirty = false

	return nil
}

// ForceDiscard drops the buffer regardless of the dirty flag, for callers
// that surfaced the unsaved-changes signal and got confirmation.
func (e *PropertyEditor) ForceDiscard() {
	e.Close()
}

// Close unloads the buffer. Fails silently when nothing is open.
func (e *PropertyEditor) Close() {
	e.nodeID = ""
	e.buffer = nil
	e.dirty = false
}
