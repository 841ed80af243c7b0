package execution

import (
	"log/slog"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowgrid/flowgrid/pkg/channels/gochannel"
	"github.com/flowgrid/flowgrid/pkg/eventbus"
	"github.com/flowgrid/flowgrid/pkg/models"
)

func testDraft() *models.WorkflowDraft {
	return &models.WorkflowDraft{
		ID:   "wf-1",
		Name: "Lead intake",
		Steps: []*models.WorkflowStep{
			{ID: "t1", Type: models.NodeTypeTriggerWebhook, Name: "Webhook", Config: map[string]any{"path": "/x"}},
			{ID: "s1", Type: models.NodeTypeLog, Name: "Log", Config: map[string]any{"message": "hi"}},
			{ID: "s2", Type: models.NodeTypeTransform, Name: "Transform", Config: map[string]any{"mapping": map[string]any{}}},
		},
		Connections: []*models.Connection{
			{ID: "c1", Source: "t1", Target: "s1"},
			{ID: "c2", Source: "s1", Target: "s2"},
		},
		Triggers: []string{"t1"},
		Status:   models.DraftStatusDraft,
	}
}

func TestLocalRunner_RunEmitsOrderedEvents(t *testing.T) {
	pub, sub, err := gochannel.CreateTestChannel(watermill.NopLogger{})
	require.NoError(t, err)

	bus := eventbus.NewWatermillEventBus(pub, sub)
	stream := eventbus.NewExecutionStream(sub)
	runner := NewLocalRunner(slog.Default(), bus)

	const executionID = "exec-ordered-events"

	// Attach the stream before running: the in-memory transport does not
	// retain messages for late subscribers.
	events, cancel, err := stream.Subscribe(t.Context(), executionID)
	require.NoError(t, err)
	defer cancel()

	go func() {
		_ = runner.Run(t.Context(), executionID, testDraft(), map[string]any{"customer_name": "Jane"})
	}()

	var (
		sawStarted bool
		progresses []int
		completed  *models.StatusEvent
	)

	timeout := time.After(5 * time.Second)

	for completed == nil {
		select {
		case event := <-events:
			switch event.Type {
			case models.StatusEventStarted:
				sawStarted = true
			case models.StatusEventProgress:
				progresses = append(progresses, event.Progress)
			case models.StatusEventCompleted:
				captured := event
				completed = &captured
			case models.StatusEventFailed:
				t.Fatalf("unexpected failure: %s", event.ErrorMessage)
			}
		case <-timeout:
			t.Fatal("timed out waiting for completion")
		}
	}

	assert.True(t, sawStarted)
	assert.Equal(t, []int{33, 66, 100}, progresses)
	require.NotNil(t, completed)
	assert.NotEmpty(t, completed.OutputData)

	steps, ok := completed.OutputData["steps"].(map[string]any)
	require.True(t, ok)
	assert.Len(t, steps, 3)
}

func TestLocalRunner_GetTracksLifecycle(t *testing.T) {
	pub, sub, err := gochannel.CreateTestChannel(watermill.NopLogger{})
	require.NoError(t, err)

	bus := eventbus.NewWatermillEventBus(pub, sub)
	runner := NewLocalRunner(slog.Default(), bus)

	const executionID = "exec-lifecycle"

	require.NoError(t, runner.Start(t.Context(), executionID, testDraft(), nil))

	require.Eventually(t, func() bool {
		exec, err := runner.Get(t.Context(), executionID)

		return err == nil && exec.Status == models.ExecutionStatusCompleted
	}, 5*time.Second, 10*time.Millisecond)

	exec, err := runner.Get(t.Context(), executionID)
	require.NoError(t, err)
	assert.NotNil(t, exec.CompletedAt)
	assert.NotNil(t, exec.DurationMS)
	assert.NotEmpty(t, exec.Logs)
	assert.NotEmpty(t, exec.OutputData)
}

func TestLocalRunner_Get_Unknown(t *testing.T) {
	pub, sub, err := gochannel.CreateTestChannel(watermill.NopLogger{})
	require.NoError(t, err)

	runner := NewLocalRunner(slog.Default(), eventbus.NewWatermillEventBus(pub, sub))

	_, err = runner.Get(t.Context(), "missing")
	require.ErrorIs(t, err, ErrExecutionNotFound)
}

func TestStepOrder_FollowsConnections(t *testing.T) {
	draft := testDraft()

	order := stepOrder(draft)
	require.Len(t, order, 3)
	assert.Equal(t, "t1", order[0].ID)
	assert.Equal(t, "s1", order[1].ID)
	assert.Equal(t, "s2", order[2].ID)
}

func TestStepOrder_IncludesUnreachableSteps(t *testing.T) {
	draft := testDraft()
	draft.Steps = append(draft.Steps, &models.WorkflowStep{ID: "island", Type: models.NodeTypeLog, Name: "Island"})

	order := stepOrder(draft)
	require.Len(t, order, 4)
	assert.Equal(t, "island", order[3].ID)
}
