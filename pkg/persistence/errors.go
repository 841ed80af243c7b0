package persistence

import (
	"errors"
	"fmt"
)

// Standard persistence error types that all implementations use.
var (
	// ErrDraftNotFound indicates no draft exists under the given identifier.
	ErrDraftNotFound = errors.New("draft not found")

	// ErrInvalidSortField indicates a sort field outside the allowlist.
	ErrInvalidSortField = errors.New("invalid sort field")

	// ErrInvalidDraftStatus indicates a status value outside the known set.
	ErrInvalidDraftStatus = errors.New("invalid draft status")
)

// DraftError wraps draft storage errors with operation context.
type DraftError struct {
	Op      string // Operation being performed (e.g. "Save", "Delete")
	DraftID string
	Err     error
}

func (e *DraftError) Error() string {
	return fmt.Sprintf("%s operation failed for draft %s: %v", e.Op, e.DraftID, e.Err)
}

func (e *DraftError) Unwrap() error {
	return e.Err
}

func (e *DraftError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewDraftError creates a draft error with context.
func NewDraftError(op, draftID string, err error) *DraftError {
	return &DraftError{Op: op, DraftID: draftID, Err: err}
}

// IsDraftNotFound checks if an error indicates a missing draft.
func IsDraftNotFound(err error) bool {
	return errors.Is(err, ErrDraftNotFound)
}
