package services_test

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowgrid/flowgrid/pkg/models"
	"github.com/flowgrid/flowgrid/pkg/persistence"
	"github.com/flowgrid/flowgrid/pkg/persistence/file"
	"github.com/flowgrid/flowgrid/pkg/registry"
	"github.com/flowgrid/flowgrid/pkg/services"
	"github.com/flowgrid/flowgrid/pkg/validation"
)

func newService(t *testing.T) *services.Draft {
	t.Helper()

	r := registry.NewRegistry(slog.Default())
	r.RegisterDefaultTemplates()

	return services.NewDraft(file.NewPersistence(t.TempDir()), r)
}

func validDraft() *models.WorkflowDraft {
	return &models.WorkflowDraft{
		Name:   "Lead intake",
		Status: models.DraftStatusDraft,
		Steps: []*models.WorkflowStep{
			{ID: "t1", Type: models.NodeTypeTriggerWebhook, Name: "Webhook", Config: map[string]any{"path": "/hook"}},
			{ID: "s1", Type: models.NodeTypeLog, Name: "Log", Config: map[string]any{"message": "hi"}},
		},
		Connections: []*models.Connection{
			{ID: "c1", Source: "t1", Target: "s1"},
		},
		Triggers: []string{"t1"},
	}
}

func TestDraftService_CreateAssignsIdentity(t *testing.T) {
	s := newService(t)

	created, err := s.Create(t.Context(), validDraft())
	require.NoError(t, err)

	assert.NotEmpty(t, created.ID)
	assert.Equal(t, 1, created.Version)
	assert.Equal(t, models.DraftStatusDraft, created.Status)
	assert.False(t, created.CreatedAt.IsZero())

	loaded, err := s.FetchByID(t.Context(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Lead intake", loaded.Name)
}

func TestDraftService_CreateRejectsShortName(t *testing.T) {
	s := newService(t)

	d := validDraft()
	d.Name = "ab"

	_, err := s.Create(t.Context(), d)
	require.Error(t, err)
	assert.True(t, services.IsValidationError(err))
}

func TestDraftService_FetchByID_NotFound(t *testing.T) {
	s := newService(t)

	_, err := s.FetchByID(t.Context(), "missing")
	require.ErrorIs(t, err, services.ErrDraftNotFound)
}

func TestDraftService_UpdateBumpsVersion(t *testing.T) {
	s := newService(t)

	created, err := s.Create(t.Context(), validDraft())
	require.NoError(t, err)

	updated := validDraft()
	updated.Name = "Lead intake v2"
	updated.Version = created.Version

	result, err := s.Update(t.Context(), created.ID, updated)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Version)
	assert.Equal(t, created.CreatedAt, result.CreatedAt)
	assert.Equal(t, "Lead intake v2", result.Name)
}

func TestDraftService_UpdateRejectsStaleVersion(t *testing.T) {
	s := newService(t)

	created, err := s.Create(t.Context(), validDraft())
	require.NoError(t, err)

	first := validDraft()
	first.Version = created.Version
	_, err = s.Update(t.Context(), created.ID, first)
	require.NoError(t, err)

	stale := validDraft()
	stale.Version = created.Version

	_, err = s.Update(t.Context(), created.ID, stale)
	require.ErrorIs(t, err, services.ErrVersionMismatch)
	assert.True(t, services.IsConflictError(err))
}

func TestDraftService_UpdateRejectsArchived(t *testing.T) {
	s := newService(t)

	created, err := s.Create(t.Context(), validDraft())
	require.NoError(t, err)

	_, err = s.Archive(t.Context(), created.ID)
	require.NoError(t, err)

	_, err = s.Update(t.Context(), created.ID, validDraft())
	require.ErrorIs(t, err, services.ErrDraftArchived)
}

func TestDraftService_ValidateReportsIssues(t *testing.T) {
	s := newService(t)

	d := validDraft()
	// Drop the trigger so validation has something to complain about.
	d.Steps = d.Steps[1:]
	d.Connections = nil
	d.Triggers = nil

	created, err := s.Create(t.Context(), d)
	require.NoError(t, err)

	result, warnings, err := s.Validate(t.Context(), created.ID)
	require.NoError(t, err)
	assert.Empty(t, warnings)
	assert.False(t, result.Valid())
	assert.True(t, result.HasCode(validation.CodeNoTriggerDefined))
}

func TestDraftService_ActivateRequiresValidDraft(t *testing.T) {
	s := newService(t)

	invalid := validDraft()
	invalid.Steps = invalid.Steps[1:]
	invalid.Connections = nil
	invalid.Triggers = nil

	created, err := s.Create(t.Context(), invalid)
	require.NoError(t, err)

	_, err = s.Activate(t.Context(), created.ID)
	require.ErrorIs(t, err, services.ErrDraftInvalid)
}

func TestDraftService_CheckRunnableRefusesInvalidDraft(t *testing.T) {
	s := newService(t)

	triggerless := validDraft()
	triggerless.Steps = triggerless.Steps[1:]
	triggerless.Connections = nil
	triggerless.Triggers = nil

	created, err := s.Create(t.Context(), triggerless)
	require.NoError(t, err)

	_, err = s.CheckRunnable(t.Context(), created.ID)
	require.ErrorIs(t, err, services.ErrDraftInvalid)
	assert.True(t, services.IsValidationError(err))
}

func TestDraftService_CheckRunnableReturnsValidDraft(t *testing.T) {
	s := newService(t)

	created, err := s.Create(t.Context(), validDraft())
	require.NoError(t, err)

	d, err := s.CheckRunnable(t.Context(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, d.ID)
}

func TestDraftService_CheckRunnableNotFound(t *testing.T) {
	s := newService(t)

	_, err := s.CheckRunnable(t.Context(), "missing")
	require.ErrorIs(t, err, services.ErrDraftNotFound)
}

func TestDraftService_ActivateValidDraft(t *testing.T) {
	s := newService(t)

	created, err := s.Create(t.Context(), validDraft())
	require.NoError(t, err)

	activated, err := s.Activate(t.Context(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, models.DraftStatusActive, activated.Status)
}

func TestDraftService_ListFiltersByStatus(t *testing.T) {
	s := newService(t)

	first, err := s.Create(t.Context(), validDraft())
	require.NoError(t, err)

	second := validDraft()
	second.Name = "Order sync"
	_, err = s.Create(t.Context(), second)
	require.NoError(t, err)

	_, err = s.Activate(t.Context(), first.ID)
	require.NoError(t, err)

	status := models.DraftStatusActive
	result, err := s.ListDrafts(t.Context(), services.ListDraftsRequest{Status: &status})
	require.NoError(t, err)
	require.Len(t, result.Drafts, 1)
	assert.Equal(t, first.ID, result.Drafts[0].ID)
}

func TestDraftService_ListRejectsBadSort(t *testing.T) {
	s := newService(t)

	_, err := s.ListDrafts(t.Context(), services.ListDraftsRequest{SortBy: "owner"})
	require.ErrorIs(t, err, services.ErrInvalidSortField)
}

func TestDraftService_Delete(t *testing.T) {
	s := newService(t)

	created, err := s.Create(t.Context(), validDraft())
	require.NoError(t, err)

	require.NoError(t, s.Delete(t.Context(), created.ID))
	require.ErrorIs(t, s.Delete(t.Context(), created.ID), services.ErrDraftNotFound)
}

func TestDraftService_HealthCheck(t *testing.T) {
	s := newService(t)

	msg, healthy := s.HealthCheck(t.Context())
	assert.True(t, healthy)
	assert.NotEmpty(t, msg)

	var nilService services.Draft

	_, healthy = nilService.HealthCheck(t.Context())
	assert.False(t, healthy)
}

var _ persistence.Persistence = (*file.Persistence)(nil)
