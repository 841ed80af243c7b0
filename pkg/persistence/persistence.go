// Package persistence provides the storage abstraction layer for workflow
// drafts.
package persistence

import (
	"context"

	"github.com/flowgrid/flowgrid/pkg/models"
)

// Persistence is the storage backend contract. Implementations live in the
// file, postgresql, and redis subpackages.
type Persistence interface {
	Drafts() DraftRepository
	HealthCheck(ctx context.Context) error
	Close(ctx context.Context) error
}

// DraftRepository stores workflow drafts. GetByID returns (nil, nil) when no
// draft exists under the id; callers translate that into their own not-found
// handling.
type DraftRepository interface {
	Save(ctx context.Context, draft *models.WorkflowDraft) error
	GetByID(ctx context.Context, id string) (*models.WorkflowDraft, error)
	List(ctx context.Context, opts ListOptions) (*ListResult, error)
	Delete(ctx context.Context, id string) error
}

// ListOptions filters, sorts, and paginates draft listings.
type ListOptions struct {
	Status    *models.DraftStatus
	SortBy    string // created_at, updated_at, or name
	SortOrder string // asc or desc
	Limit     int
	Offset    int
}

// ListResult is one page of drafts.
type ListResult struct {
	Drafts      []*models.WorkflowDraft `json:"drafts"`
	TotalCount  int64                   `json:"total_count"`
	HasNextPage bool                    `json:"has_next_page"`
}
