package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/flowgrid/flowgrid/pkg/models"
	"github.com/flowgrid/flowgrid/pkg/persistence"
)

// DraftRepository stores drafts in the workflow_drafts table. The graph
// payload (steps, connections, triggers, variables) lives in JSONB columns;
// the fields the API filters and sorts on are real columns.
type DraftRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewDraftRepository creates a PostgreSQL draft repository.
func NewDraftRepository(db *sql.DB, logger *slog.Logger) *DraftRepository {
	return &DraftRepository{db: db, logger: logger}
}

// Save upserts the draft by id.
func (dr *DraftRepository) Save(ctx context.Context, draft *models.WorkflowDraft) error {
	steps, err := json.Marshal(draft.Steps)
	if err != nil {
		return persistence.NewDraftError("Save", draft.ID, fmt.Errorf("marshal steps: %w", err))
	}

	connections, err := json.Marshal(draft.Connections)
	if err != nil {
		return persistence.NewDraftError("Save", draft.ID, fmt.Errorf("marshal connections: %w", err))
	}

	triggers, err := json.Marshal(draft.Triggers)
	if err != nil {
		return persistence.NewDraftError("Save", draft.ID, fmt.Errorf("marshal triggers: %w", err))
	}

	variables, err := json.Marshal(draft.Variables)
	if err != nil {
		return persistence.NewDraftError("Save", draft.ID, fmt.Errorf("marshal variables: %w", err))
	}

	_, err = dr.db.ExecContext(ctx, `
		INSERT INTO workflow_drafts
			(id, name, description, category, steps, connections, triggers, variables, version, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			description = EXCLUDED.description,
			category = EXCLUDED.category,
			steps = EXCLUDED.steps,
			connections = EXCLUDED.connections,
			triggers = EXCLUDED.triggers,
			variables = EXCLUDED.variables,
			version = EXCLUDED.version,
			status = EXCLUDED.status,
			updated_at = EXCLUDED.updated_at
	`, draft.ID, draft.Name, draft.Description, draft.Category,
		steps, connections, triggers, variables,
		draft.Version, draft.Status, draft.CreatedAt, draft.UpdatedAt)
	if err != nil {
		return persistence.NewDraftError("Save", draft.ID, err)
	}

	return nil
}

// GetByID loads a draft. A missing row yields (nil, nil).
func (dr *DraftRepository) GetByID(ctx context.Context, id string) (*models.WorkflowDraft, error) {
	row := dr.db.QueryRowContext(ctx, `
		SELECT id, name, description, category, steps, connections, triggers, variables, version, status, created_at, updated_at
		FROM workflow_drafts
		WHERE id = $1
	`, id)

	draft, err := scanDraft(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}

		return nil, persistence.NewDraftError("GetByID", id, err)
	}

	return draft, nil
}

// List queries with native filtering, sorting, and pagination.
func (dr *DraftRepository) List(ctx context.Context, opts persistence.ListOptions) (*persistence.ListResult, error) {
	opts, err := persistence.NormalizeListOptions(opts)
	if err != nil {
		return nil, err
	}

	where := ""
	args := []any{}

	if opts.Status != nil {
		where = "WHERE status = $1"
		args = append(args, *opts.Status)
	}

	var totalCount int64
	if err := dr.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM workflow_drafts "+where, args...).Scan(&totalCount); err != nil {
		return nil, fmt.Errorf("count drafts: %w", err)
	}

	// SortBy and SortOrder passed the allowlist in NormalizeListOptions, so
	// interpolating them is safe.
	query := fmt.Sprintf(`
		SELECT id, name, description, category, steps, connections, triggers, variables, version, status, created_at, updated_at
		FROM workflow_drafts
		%s
		ORDER BY %s %s
		LIMIT $%d OFFSET $%d
	`, where, opts.SortBy, opts.SortOrder, len(args)+1, len(args)+2)

	args = append(args, opts.Limit, opts.Offset)

	rows, err := dr.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query drafts: %w", err)
	}
	defer rows.Close()

	drafts := make([]*models.WorkflowDraft, 0, opts.Limit)

	for rows.Next() {
		draft, err := scanDraft(rows)
		if err != nil {
			return nil, fmt.Errorf("scan draft row: %w", err)
		}

		drafts = append(drafts, draft)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate draft rows: %w", err)
	}

	return &persistence.ListResult{
		Drafts:      drafts,
		TotalCount:  totalCount,
		HasNextPage: int64(opts.Offset+len(drafts)) < totalCount,
	}, nil
}

// Delete removes the draft row.
func (dr *DraftRepository) Delete(ctx context.Context, id string) error {
	result, err := dr.db.ExecContext(ctx, "DELETE FROM workflow_drafts WHERE id = $1", id)
	if err != nil {
		return persistence.NewDraftError("Delete", id, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return persistence.NewDraftError("Delete", id, err)
	}

	if affected == 0 {
		return persistence.NewDraftError("Delete", id, persistence.ErrDraftNotFound)
	}

	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDraft(row rowScanner) (*models.WorkflowDraft, error) {
	var (
		draft       models.WorkflowDraft
		steps       []byte
		connections []byte
		triggers    []byte
		variables   []byte
	)

	err := row.Scan(&draft.ID, &draft.Name, &draft.Description, &draft.Category,
		&steps, &connections, &triggers, &variables,
		&draft.Version, &draft.Status, &draft.CreatedAt, &draft.UpdatedAt)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(steps, &draft.Steps); err != nil {
		return nil, fmt.Errorf("unmarshal steps: %w", err)
	}

	if err := json.Unmarshal(connections, &draft.Connections); err != nil {
		return nil, fmt.Errorf("unmarshal connections: %w", err)
	}

	if err := json.Unmarshal(triggers, &draft.Triggers); err != nil {
		return nil, fmt.Errorf("unmarshal triggers: %w", err)
	}

	if err := json.Unmarshal(variables, &draft.Variables); err != nil {
		return nil, fmt.Errorf("unmarshal variables: %w", err)
	}

	return &draft, nil
}
