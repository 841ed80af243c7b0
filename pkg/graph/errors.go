// Package graph provides the in-memory node/edge model behind the workflow
// canvas. Nodes and edges live in id-indexed maps so cascade deletion is
// atomic and serialization never has to chase object references.
package graph

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound indicates the referenced node does not exist in the model.
	ErrNotFound = errors.New("node not found")

	// ErrInvalidEdge indicates an edge that would violate a structural
	// invariant: self-loop, missing endpoint, or duplicate.
	ErrInvalidEdge = errors.New("invalid edge")

	// ErrDuplicateID indicates an insert with an id already present.
	ErrDuplicateID = errors.New("duplicate id")
)

// ModelError wraps graph mutation failures with the operation and the ids
// involved.
type ModelError struct {
	Op     string
	NodeID string
	EdgeID string
	Err    error
}

func (e *ModelError) Error() string {
	target := e.NodeID
	if e.EdgeID != "" {
		target = "edge " + e.EdgeID
	}

	return fmt.Sprintf("%s failed for %s: %v", e.Op, target, e.Err)
}

func (e *ModelError) Unwrap() error {
	return e.Err
}
