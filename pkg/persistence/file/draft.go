package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/flowgrid/flowgrid/pkg/models"
	"github.com/flowgrid/flowgrid/pkg/persistence"
)

const draftFileMode = 0o644

// DraftRepository stores each draft as <root>/drafts/<id>.json.
type DraftRepository struct {
	root string
}

// NewDraftRepository creates a draft repository under the given root.
func NewDraftRepository(root string) *DraftRepository {
	return &DraftRepository{root: root}
}

func (dr *DraftRepository) draftsDir() string {
	return filepath.Join(dr.root, "drafts")
}

func (dr *DraftRepository) draftPath(id string) string {
	return filepath.Join(dr.draftsDir(), id+".json")
}

// Save writes the draft document, creating the drafts directory on first use.
func (dr *DraftRepository) Save(_ context.Context, draft *models.WorkflowDraft) error {
	if err := os.MkdirAll(dr.draftsDir(), 0o755); err != nil {
		return persistence.NewDraftError("Save", draft.ID, fmt.Errorf("create drafts directory: %w", err))
	}

	data, err := json.MarshalIndent(draft, "", "  ")
	if err != nil {
		return persistence.NewDraftError("Save", draft.ID, fmt.Errorf("marshal draft: %w", err))
	}

	if err := os.WriteFile(dr.draftPath(draft.ID), data, draftFileMode); err != nil {
		return persistence.NewDraftError("Save", draft.ID, fmt.Errorf("write draft file: %w", err))
	}

	return nil
}

// GetByID loads a draft document. A missing file yields (nil, nil).
func (dr *DraftRepository) GetByID(_ context.Context, id string) (*models.WorkflowDraft, error) {
	data, err := os.ReadFile(dr.draftPath(id))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}

		return nil, persistence.NewDraftError("GetByID", id, fmt.Errorf("read draft file: %w", err))
	}

	var draft models.WorkflowDraft
	if err := json.Unmarshal(data, &draft); err != nil {
		return nil, persistence.NewDraftError("GetByID", id, fmt.Errorf("unmarshal draft: %w", err))
	}

	return &draft, nil
}

// List loads every draft document and filters in memory.
func (dr *DraftRepository) List(ctx context.Context, opts persistence.ListOptions) (*persistence.ListResult, error) {
	entries, err := os.ReadDir(dr.draftsDir())
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return &persistence.ListResult{Drafts: make([]*models.WorkflowDraft, 0)}, nil
		}

		return nil, fmt.Errorf("list draft files: %w", err)
	}

	drafts := make([]*models.WorkflowDraft, 0, len(entries))

	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}

		draft, err := dr.GetByID(ctx, strings.TrimSuffix(name, ".json"))
		if err != nil {
			return nil, err
		}

		if draft != nil {
			drafts = append(drafts, draft)
		}
	}

	return persistence.FilterSortPage(drafts, opts)
}

// Delete removes the draft document.
func (dr *DraftRepository) Delete(_ context.Context, id string) error {
	err := os.Remove(dr.draftPath(id))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return persistence.NewDraftError("Delete", id, persistence.ErrDraftNotFound)
		}

		return persistence.NewDraftError("Delete", id, fmt.Errorf("remove draft file: %w", err))
	}

	return nil
}
