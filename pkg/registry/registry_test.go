package registry

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowgrid/flowgrid/pkg/models"
)

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()

	r := NewRegistry(slog.Default())
	r.RegisterDefaultTemplates()

	return r
}

func TestRegistry_Defaults(t *testing.T) {
	r := newTestRegistry(t)

	templates := r.List()
	assert.Len(t, templates, 8)

	for _, nodeType := range []string{
		models.NodeTypeTriggerWebhook,
		models.NodeTypeTriggerScheduler,
		models.NodeTypeTriggerQueue,
		models.NodeTypeHTTPRequest,
		models.NodeTypeTransform,
		models.NodeTypeLog,
		models.NodeTypeCondition,
		models.NodeTypeAICompletion,
	} {
		template, ok := r.Get(nodeType)
		require.True(t, ok, nodeType)
		assert.NotEmpty(t, template.Name)
		assert.NotNil(t, template.ConfigSchema)
	}
}

func TestRegistry_ByCategory(t *testing.T) {
	r := newTestRegistry(t)

	triggers := r.ByCategory(models.CategoryTypeTrigger)
	assert.Len(t, triggers, 3)

	for _, template := range triggers {
		assert.True(t, template.IsTrigger())
		assert.True(t, r.IsTriggerType(template.Type))
	}

	assert.False(t, r.IsTriggerType(models.NodeTypeLog))
	assert.False(t, r.IsTriggerType("future_step"))
}

func TestRegistry_Get_Unknown(t *testing.T) {
	r := newTestRegistry(t)

	_, ok := r.Get("future_step")
	assert.False(t, ok)
}

func TestRegistry_CheckConfig_Cron(t *testing.T) {
	r := newTestRegistry(t)

	err := r.CheckConfig(models.NodeTypeTriggerScheduler, map[string]any{"cron": "0 9 * * 1-5"})
	require.NoError(t, err)

	err = r.CheckConfig(models.NodeTypeTriggerScheduler, map[string]any{"cron": "not a cron"})
	require.Error(t, err)

	err = r.CheckConfig(models.NodeTypeTriggerScheduler, map[string]any{"cron": 42})
	require.Error(t, err)
}

func TestRegistry_CheckConfig_Expression(t *testing.T) {
	r := newTestRegistry(t)

	err := r.CheckConfig(models.NodeTypeCondition, map[string]any{"expression": `status == "won"`})
	require.NoError(t, err)

	err = r.CheckConfig(models.NodeTypeCondition, map[string]any{"expression": `status ==`})
	require.Error(t, err)
}

func TestRegistry_CheckConfig_NoCheckRegistered(t *testing.T) {
	r := newTestRegistry(t)

	assert.NoError(t, r.CheckConfig(models.NodeTypeLog, map[string]any{"message": "hi"}))
	assert.NoError(t, r.CheckConfig("future_step", nil))
}
