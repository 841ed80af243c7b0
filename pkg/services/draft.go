package services

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/flowgrid/flowgrid/pkg/draft"
	"github.com/flowgrid/flowgrid/pkg/models"
	"github.com/flowgrid/flowgrid/pkg/persistence"
	"github.com/flowgrid/flowgrid/pkg/registry"
	"github.com/flowgrid/flowgrid/pkg/validation"
)

// ErrDraftNotFound is returned when a draft is not found.
var ErrDraftNotFound = persistence.ErrDraftNotFound

// Draft is the draft service: persistence-backed CRUD plus the validation
// and lifecycle rules the storage layer does not know about.
type Draft struct {
	persistence persistence.Persistence
	serializer  *draft.Serializer
	engine      *validation.Engine
	validate    *validator.Validate
}

// NewDraft creates a draft service over the given backend and template
// registry.
func NewDraft(p persistence.Persistence, r *registry.Registry) *Draft {
	return &Draft{
		persistence: p,
		serializer:  draft.NewSerializer(r),
		engine:      validation.NewEngine(r),
		validate:    validator.New(),
	}
}

// HealthCheck checks the health of the persistence layer.
func (s *Draft) HealthCheck(ctx context.Context) (string, bool) {
	if s.persistence == nil {
		return "Persistence layer not initialized", false
	}

	if err := s.persistence.HealthCheck(ctx); err != nil {
		return "Persistence layer is unhealthy: " + err.Error(), false
	}

	return "Persistence layer is healthy", true
}

// ListDraftsRequest contains options for listing drafts.
type ListDraftsRequest struct {
	Limit  int
	Offset int

	Status *models.DraftStatus

	SortBy    string
	SortOrder string
}

// ListDrafts retrieves drafts with filtering, sorting, and pagination.
func (s *Draft) ListDrafts(ctx context.Context, req ListDraftsRequest) (*persistence.ListResult, error) {
	if err := s.validateListRequest(&req); err != nil {
		return nil, err
	}

	result, err := s.persistence.Drafts().List(ctx, persistence.ListOptions{
		Limit:     req.Limit,
		Offset:    req.Offset,
		Status:    req.Status,
		SortBy:    req.SortBy,
		SortOrder: req.SortOrder,
	})
	if err != nil {
		return nil, fmt.Errorf("list drafts: %w", err)
	}

	return result, nil
}

func (s *Draft) validateListRequest(req *ListDraftsRequest) error {
	if req.Limit <= 0 {
		req.Limit = 20
	}

	if req.Limit > 100 {
		req.Limit = 100
	}

	if req.Offset < 0 {
		req.Offset = 0
	}

	if req.SortBy == "" {
		req.SortBy = "created_at"
	}

	if req.SortOrder == "" {
		req.SortOrder = "desc"
	}

	allowedSorts := []string{"created_at", "updated_at", "name"}
	if !slices.Contains(allowedSorts, req.SortBy) {
		return NewValidationError("ListDrafts", "INVALID_SORT_FIELD",
			fmt.Sprintf("invalid sort field %q", req.SortBy), ErrInvalidSortField)
	}

	if req.SortOrder != "asc" && req.SortOrder != "desc" {
		return NewValidationError("ListDrafts", "INVALID_SORT_ORDER",
			fmt.Sprintf("invalid sort order %q", req.SortOrder), ErrInvalidSortOrder)
	}

	if req.Status != nil {
		allowedStatuses := []models.DraftStatus{
			models.DraftStatusDraft,
			models.DraftStatusActive,
			models.DraftStatusArchived,
		}
		if !slices.Contains(allowedStatuses, *req.Status) {
			return NewValidationError("ListDrafts", "INVALID_STATUS",
				fmt.Sprintf("invalid status %q", *req.Status), ErrInvalidStatus)
		}
	}

	return nil
}

// FetchByID retrieves a draft by its ID.
func (s *Draft) FetchByID(ctx context.Context, id string) (*models.WorkflowDraft, error) {
	d, err := s.persistence.Drafts().GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if d == nil {
		return nil, ErrDraftNotFound
	}

	return d, nil
}

// Create stores a new draft. The service owns the identity and bookkeeping
// fields; values the caller set there are overwritten.
func (s *Draft) Create(ctx context.Context, d *models.WorkflowDraft) (*models.WorkflowDraft, error) {
	if d == nil {
		return nil, ErrDraftNil
	}

	now := time.Now().UTC()
	d.ID = uuid.New().String()
	d.Version = 1
	d.CreatedAt = now
	d.UpdatedAt = now

	if d.Status == "" {
		d.Status = models.DraftStatusDraft
	}

	if err := s.validate.Struct(d); err != nil {
		return nil, NewValidationError("Create", "INVALID_DRAFT", err.Error(), ErrInvalidRequest)
	}

	if err := s.persistence.Drafts().Save(ctx, d); err != nil {
		return nil, fmt.Errorf("create draft: %w", err)
	}

	return d, nil
}

// Update replaces an existing draft's content and bumps its version. A stale
// incoming version is rejected so concurrent editors cannot silently clobber
// each other.
func (s *Draft) Update(ctx context.Context, id string, d *models.WorkflowDraft) (*models.WorkflowDraft, error) {
	if d == nil {
		return nil, ErrDraftNil
	}

	existing, err := s.FetchByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if existing.Status == models.DraftStatusArchived {
		return nil, ErrDraftArchived
	}

	if d.Version != 0 && d.Version != existing.Version {
		return nil, ErrVersionMismatch
	}

	d.ID = id
	d.Version = existing.Version + 1
	d.Status = existing.Status
	d.CreatedAt = existing.CreatedAt
	d.UpdatedAt = time.Now().UTC()

	if err := s.validate.Struct(d); err != nil {
		return nil, NewValidationError("Update", "INVALID_DRAFT", err.Error(), ErrInvalidRequest)
	}

	if err := s.persistence.Drafts().Save(ctx, d); err != nil {
		return nil, fmt.Errorf("update draft: %w", err)
	}

	return d, nil
}

// Validate runs the structural and config checks against the stored draft.
func (s *Draft) Validate(ctx context.Context, id string) (validation.Result, []draft.Warning, error) {
	d, err := s.FetchByID(ctx, id)
	if err != nil {
		return validation.Result{}, nil, err
	}

	g, warnings, err := s.serializer.FromWorkflowDraft(d)
	if err != nil {
		return validation.Result{}, nil, fmt.Errorf("load draft graph: %w", err)
	}

	return s.engine.Validate(g), warnings, nil
}

// CheckRunnable loads a draft and verifies it is eligible to execute: the
// structural and config checks must report no errors. Warnings do not block a
// run. Callers starting a test run go through here so an invalid draft never
// reaches the execution service.
func (s *Draft) CheckRunnable(ctx context.Context, id string) (*models.WorkflowDraft, error) {
	d, err := s.FetchByID(ctx, id)
	if err != nil {
		return nil, err
	}

	g, _, err := s.serializer.FromWorkflowDraft(d)
	if err != nil {
		return nil, fmt.Errorf("load draft graph: %w", err)
	}

	if result := s.engine.Validate(g); !result.Valid() {
		return nil, NewValidationError("CheckRunnable", "DRAFT_NOT_RUNNABLE",
			fmt.Sprintf("draft has %d validation errors and cannot execute", len(result.Errors)), ErrDraftInvalid)
	}

	return d, nil
}

// Activate marks a draft runnable. Activation requires a clean validation
// pass; warnings do not block it.
func (s *Draft) Activate(ctx context.Context, id string) (*models.WorkflowDraft, error) {
	d, err := s.FetchByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if d.Status == models.DraftStatusArchived {
		return nil, ErrDraftArchived
	}

	result, _, err := s.Validate(ctx, id)
	if err != nil {
		return nil, err
	}

	if !result.Valid() {
		return nil, NewValidationError("Activate", "DRAFT_INVALID",
			fmt.Sprintf("draft has %d validation errors", len(result.Errors)), ErrDraftInvalid)
	}

	d.Status = models.DraftStatusActive
	d.UpdatedAt = time.Now().UTC()

	if err := s.persistence.Drafts().Save(ctx, d); err != nil {
		return nil, fmt.Errorf("activate draft: %w", err)
	}

	return d, nil
}

// Archive retires a draft. Archived drafts are read-only.
func (s *Draft) Archive(ctx context.Context, id string) (*models.WorkflowDraft, error) {
	d, err := s.FetchByID(ctx, id)
	if err != nil {
		return nil, err
	}

	d.Status = models.DraftStatusArchived
	d.UpdatedAt = time.Now().UTC()

	if err := s.persistence.Drafts().Save(ctx, d); err != nil {
		return nil, fmt.Errorf("archive draft: %w", err)
	}

	return d, nil
}

// Delete removes a draft by its ID.
func (s *Draft) Delete(ctx context.Context, id string) error {
	existing, err := s.persistence.Drafts().GetByID(ctx, id)
	if err != nil {
		return err
	}

	if existing == nil {
		return ErrDraftNotFound
	}

	if err := s.persistence.Drafts().Delete(ctx, id); err != nil {
		return fmt.Errorf("delete draft: %w", err)
	}

	return nil
}
