// Package file provides file-based draft persistence, one JSON document per
// draft. It is the development and single-user backend.
package file

import (
	"context"
	"os"
	"strings"

	"github.com/flowgrid/flowgrid/pkg/persistence"
)

// Persistence implements persistence.Persistence on the file system.
type Persistence struct {
	root      string
	draftRepo *DraftRepository
}

// NewPersistence creates a file persistence rooted at the given directory.
// The root may carry a file:// prefix.
func NewPersistence(root string) *Persistence {
	cleanRoot := strings.Replace(root, "file://", "", 1)

	return &Persistence{
		root:      cleanRoot,
		draftRepo: NewDraftRepository(cleanRoot),
	}
}

// Drafts returns the draft repository.
func (fp *Persistence) Drafts() persistence.DraftRepository {
	return fp.draftRepo
}

// HealthCheck verifies the root directory exists.
func (fp *Persistence) HealthCheck(_ context.Context) error {
	if _, err := os.Stat(fp.root); os.IsNotExist(err) {
		return os.ErrNotExist
	}

	return nil
}

// Close performs any necessary cleanup. Nothing to release for files.
func (fp *Persistence) Close(_ context.Context) error {
	return nil
}
