package redis

import (
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowgrid/flowgrid/pkg/models"
	"github.com/flowgrid/flowgrid/pkg/persistence"
)

func setupRedis(t *testing.T) *Persistence {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return NewPersistenceWithClient(client)
}

func sampleDraft(id, name string, status models.DraftStatus, createdAt time.Time) *models.WorkflowDraft {
	return &models.WorkflowDraft{
		ID:     id,
		Name:   name,
		Status: status,
		Steps: []*models.WorkflowStep{
			{ID: "t1", Type: models.NodeTypeTriggerWebhook, Name: "Webhook", Config: map[string]any{"path": "/hook"}},
		},
		Triggers:  []string{"t1"},
		Version:   1,
		CreatedAt: createdAt,
		UpdatedAt: createdAt,
	}
}

func TestRedisPersistence_SaveAndGet(t *testing.T) {
	p := setupRedis(t)

	draft := sampleDraft("wf-1", "Lead intake", models.DraftStatusDraft, time.Now().UTC())
	require.NoError(t, p.Drafts().Save(t.Context(), draft))

	loaded, err := p.Drafts().GetByID(t.Context(), "wf-1")
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, "Lead intake", loaded.Name)
	require.Len(t, loaded.Steps, 1)
	assert.Equal(t, map[string]any{"path": "/hook"}, loaded.Steps[0].Config)
}

func TestRedisPersistence_GetMissingReturnsNil(t *testing.T) {
	p := setupRedis(t)

	loaded, err := p.Drafts().GetByID(t.Context(), "missing")
	require.NoError(t, err)
	assert.Nil(t, loaded)
}

func TestRedisPersistence_ListFiltersAndSorts(t *testing.T) {
	p := setupRedis(t)
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, p.Drafts().Save(t.Context(), sampleDraft("wf-1", "Alpha", models.DraftStatusDraft, base)))
	require.NoError(t, p.Drafts().Save(t.Context(), sampleDraft("wf-2", "Beta", models.DraftStatusActive, base.Add(time.Hour))))
	require.NoError(t, p.Drafts().Save(t.Context(), sampleDraft("wf-3", "Gamma", models.DraftStatusDraft, base.Add(2*time.Hour))))

	status := models.DraftStatusDraft
	result, err := p.Drafts().List(t.Context(), persistence.ListOptions{Status: &status, SortBy: "created_at", SortOrder: "desc"})
	require.NoError(t, err)

	require.Len(t, result.Drafts, 2)
	assert.Equal(t, "Gamma", result.Drafts[0].Name)
	assert.Equal(t, "Alpha", result.Drafts[1].Name)
}

func TestRedisPersistence_Delete(t *testing.T) {
	p := setupRedis(t)

	require.NoError(t, p.Drafts().Save(t.Context(), sampleDraft("wf-1", "Alpha", models.DraftStatusDraft, time.Now().UTC())))
	require.NoError(t, p.Drafts().Delete(t.Context(), "wf-1"))

	loaded, err := p.Drafts().GetByID(t.Context(), "wf-1")
	require.NoError(t, err)
	assert.Nil(t, loaded)

	result, err := p.Drafts().List(t.Context(), persistence.ListOptions{})
	require.NoError(t, err)
	assert.Empty(t, result.Drafts)

	err = p.Drafts().Delete(t.Context(), "wf-1")
	require.Error(t, err)
	assert.True(t, persistence.IsDraftNotFound(err))
}

func TestRedisPersistence_HealthCheck(t *testing.T) {
	p := setupRedis(t)

	require.NoError(t, p.HealthCheck(t.Context()))
}
