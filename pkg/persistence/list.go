package persistence

import (
	"fmt"
	"sort"

	"github.com/flowgrid/flowgrid/pkg/models"
)

const (
	defaultListLimit = 20
	maxListLimit     = 100
)

// NormalizeListOptions applies defaults and validates the sort allowlist.
func NormalizeListOptions(opts ListOptions) (ListOptions, error) {
	if opts.Limit <= 0 || opts.Limit > maxListLimit {
		opts.Limit = defaultListLimit
	}

	if opts.Offset < 0 {
		opts.Offset = 0
	}

	if opts.SortBy == "" {
		opts.SortBy = "created_at"
	}

	if opts.SortOrder == "" {
		opts.SortOrder = "desc"
	}

	allowedSorts := map[string]bool{
		"created_at": true,
		"updated_at": true,
		"name":       true,
	}
	if !allowedSorts[opts.SortBy] {
		return opts, fmt.Errorf("%w: %s", ErrInvalidSortField, opts.SortBy)
	}

	if opts.SortOrder != "asc" && opts.SortOrder != "desc" {
		return opts, fmt.Errorf("invalid sort order: %s", opts.SortOrder)
	}

	return opts, nil
}

// FilterSortPage applies ListOptions in memory. Backends without native query
// support (file, redis) load everything and delegate here.
func FilterSortPage(drafts []*models.WorkflowDraft, opts ListOptions) (*ListResult, error) {
	opts, err := NormalizeListOptions(opts)
	if err != nil {
		return nil, err
	}

	filtered := make([]*models.WorkflowDraft, 0, len(drafts))

	for _, draft := range drafts {
		if opts.Status != nil && draft.Status != *opts.Status {
			continue
		}

		filtered = append(filtered, draft)
	}

	sortDrafts(filtered, opts.SortBy, opts.SortOrder)

	totalCount := int64(len(filtered))

	startIdx := opts.Offset
	if startIdx >= len(filtered) {
		return &ListResult{
			Drafts:      make([]*models.WorkflowDraft, 0),
			TotalCount:  totalCount,
			HasNextPage: false,
		}, nil
	}

	endIdx := min(opts.Offset+opts.Limit, len(filtered))

	return &ListResult{
		Drafts:      filtered[startIdx:endIdx],
		TotalCount:  totalCount,
		HasNextPage: endIdx < len(filtered),
	}, nil
}

func sortDrafts(drafts []*models.WorkflowDraft, sortBy, sortOrder string) {
	sort.Slice(drafts, func(i, j int) bool {
		var less bool

		switch sortBy {
		case "updated_at":
			less = drafts[i].UpdatedAt.Before(drafts[j].UpdatedAt)
		case "name":
			less = drafts[i].Name < drafts[j].Name
		default:
			less = drafts[i].CreatedAt.Before(drafts[j].CreatedAt)
		}

		if sortOrder == "desc" {
			return !less
		}

		return less
	})
}
