package monitor

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowgrid/flowgrid/pkg/channels/gochannel"
	"github.com/flowgrid/flowgrid/pkg/eventbus"
	"github.com/flowgrid/flowgrid/pkg/execution"
	"github.com/flowgrid/flowgrid/pkg/models"
)

type fakeRunner struct {
	startErr error
}

func (r *fakeRunner) Start(_ context.Context, _ string, _ *models.WorkflowDraft, _ map[string]any) error {
	return r.startErr
}

func (r *fakeRunner) Get(_ context.Context, _ string) (*models.Execution, error) {
	return nil, execution.ErrExecutionNotFound
}

// fakeStream hands out scripted channels, one per Subscribe call. A nil
// script entry simulates a subscribe failure.
type fakeStream struct {
	mu         sync.Mutex
	script     []chan models.StatusEvent
	subscribes int
}

func (s *fakeStream) Subscribe(_ context.Context, _ string) (<-chan models.StatusEvent, func(), error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.subscribes++

	if len(s.script) == 0 {
		return nil, nil, errors.New("stream unavailable")
	}

	ch := s.script[0]
	s.script = s.script[1:]

	if ch == nil {
		return nil, nil, errors.New("stream unavailable")
	}

	return ch, func() {}, nil
}

func (s *fakeStream) subscribeCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.subscribes
}

func testDraft() *models.WorkflowDraft {
	return &models.WorkflowDraft{
		ID:   "wf-1",
		Name: "Lead intake",
		Steps: []*models.WorkflowStep{
			{ID: "t1", Type: models.NodeTypeTriggerWebhook, Name: "Webhook"},
			{ID: "s1", Type: models.NodeTypeLog, Name: "Log"},
			{ID: "s2", Type: models.NodeTypeTransform, Name: "Transform"},
			{ID: "s3", Type: models.NodeTypeHTTPRequest, Name: "Notify"},
		},
		Connections: []*models.Connection{
			{ID: "c1", Source: "t1", Target: "s1"},
			{ID: "c2", Source: "s1", Target: "s2"},
			{ID: "c3", Source: "s2", Target: "s3"},
		},
		Triggers: []string{"t1"},
		Status:   models.DraftStatusDraft,
	}
}

func eventually(t *testing.T, condition func() bool) {
	t.Helper()
	require.Eventually(t, condition, 5*time.Second, 5*time.Millisecond)
}

func TestMonitor_ProgressIsMonotonic(t *testing.T) {
	ch := make(chan models.StatusEvent, 16)
	stream := &fakeStream{script: []chan models.StatusEvent{ch}}
	m := NewMonitor(slog.Default(), &fakeRunner{}, stream)

	id, err := m.StartTest(t.Context(), testDraft(), nil)
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	ch <- models.StatusEvent{Type: models.StatusEventStarted}
	// Out of order plus a duplicate: the displayed value must never drop.
	ch <- models.StatusEvent{Type: models.StatusEventProgress, Progress: 75}
	ch <- models.StatusEvent{Type: models.StatusEventProgress, Progress: 25}
	ch <- models.StatusEvent{Type: models.StatusEventProgress, Progress: 75}
	ch <- models.StatusEvent{Type: models.StatusEventProgress, Progress: 50}

	eventually(t, func() bool {
		view, ok := m.View(id)

		return ok && view.Status == models.ExecutionStatusRunning && view.Progress == 75
	})

	ch <- models.StatusEvent{Type: models.StatusEventCompleted, OutputData: map[string]any{"result": "ok"}}

	eventually(t, func() bool {
		view, _ := m.View(id)

		return view.Status == models.ExecutionStatusCompleted
	})

	view, ok := m.View(id)
	require.True(t, ok)
	assert.Equal(t, 100, view.Progress)
	assert.Equal(t, map[string]any{"result": "ok"}, view.OutputData)
	assert.False(t, view.ConnectionLost)
}

func TestMonitor_ClampsOutOfRangeProgress(t *testing.T) {
	ch := make(chan models.StatusEvent, 16)
	stream := &fakeStream{script: []chan models.StatusEvent{ch}}
	m := NewMonitor(slog.Default(), &fakeRunner{}, stream)

	id, err := m.StartTest(t.Context(), testDraft(), nil)
	require.NoError(t, err)

	ch <- models.StatusEvent{Type: models.StatusEventProgress, Progress: -10}

	eventually(t, func() bool {
		view, _ := m.View(id)

		return view.Status == models.ExecutionStatusRunning
	})

	view, _ := m.View(id)
	assert.Equal(t, 0, view.Progress)

	ch <- models.StatusEvent{Type: models.StatusEventProgress, Progress: 250}

	eventually(t, func() bool {
		view, _ := m.View(id)

		return view.Progress == 100
	})
}

func TestMonitor_TerminalStateLatches(t *testing.T) {
	ch := make(chan models.StatusEvent, 16)
	stream := &fakeStream{script: []chan models.StatusEvent{ch}}
	m := NewMonitor(slog.Default(), &fakeRunner{}, stream)

	id, err := m.StartTest(t.Context(), testDraft(), nil)
	require.NoError(t, err)

	ch <- models.StatusEvent{Type: models.StatusEventFailed, ErrorMessage: "step s2 exploded"}

	eventually(t, func() bool {
		view, _ := m.View(id)

		return view.Status == models.ExecutionStatusFailed
	})

	// Stragglers after the terminal event must not change anything. The
	// watcher already returned, so fold them in directly.
	m.apply(id, models.StatusEvent{Type: models.StatusEventProgress, Progress: 90})
	m.apply(id, models.StatusEvent{Type: models.StatusEventStarted})

	view, _ := m.View(id)
	assert.Equal(t, models.ExecutionStatusFailed, view.Status)
	assert.Equal(t, "step s2 exploded", view.ErrorMessage)
	assert.Equal(t, 0, view.Progress)
}

func TestMonitor_ReconnectsAfterStreamDrop(t *testing.T) {
	first := make(chan models.StatusEvent, 16)
	second := make(chan models.StatusEvent, 16)
	stream := &fakeStream{script: []chan models.StatusEvent{first, second}}
	m := NewMonitor(slog.Default(), &fakeRunner{}, stream,
		WithReconnectPolicy(3, time.Millisecond))

	id, err := m.StartTest(t.Context(), testDraft(), nil)
	require.NoError(t, err)

	first <- models.StatusEvent{Type: models.StatusEventProgress, Progress: 40}
	close(first)

	eventually(t, func() bool {
		return stream.subscribeCount() == 2
	})

	second <- models.StatusEvent{Type: models.StatusEventCompleted, OutputData: map[string]any{"done": true}}

	eventually(t, func() bool {
		view, _ := m.View(id)

		return view.Status == models.ExecutionStatusCompleted
	})

	view, _ := m.View(id)
	assert.Equal(t, 100, view.Progress)
	assert.False(t, view.ConnectionLost)
}

func TestMonitor_MarksConnectionLostAfterExhaustedReconnects(t *testing.T) {
	ch := make(chan models.StatusEvent, 16)
	stream := &fakeStream{script: []chan models.StatusEvent{ch}}
	m := NewMonitor(slog.Default(), &fakeRunner{}, stream,
		WithReconnectPolicy(2, time.Millisecond))

	id, err := m.StartTest(t.Context(), testDraft(), nil)
	require.NoError(t, err)

	ch <- models.StatusEvent{Type: models.StatusEventProgress, Progress: 60}
	close(ch)

	eventually(t, func() bool {
		view, _ := m.View(id)

		return view.ConnectionLost
	})

	// Lost connectivity is not a failed run: the last known state stands.
	view, _ := m.View(id)
	assert.Equal(t, models.ExecutionStatusRunning, view.Status)
	assert.Equal(t, 60, view.Progress)
	assert.Empty(t, view.ErrorMessage)

	// Initial subscribe plus the two allowed reconnects.
	assert.Equal(t, 3, stream.subscribeCount())
}

func TestMonitor_UnsubscribeStopsFollowing(t *testing.T) {
	ch := make(chan models.StatusEvent, 16)
	stream := &fakeStream{script: []chan models.StatusEvent{ch}}
	m := NewMonitor(slog.Default(), &fakeRunner{}, stream,
		WithReconnectPolicy(100, time.Millisecond))

	id, err := m.StartTest(t.Context(), testDraft(), nil)
	require.NoError(t, err)

	ch <- models.StatusEvent{Type: models.StatusEventProgress, Progress: 30}

	eventually(t, func() bool {
		view, _ := m.View(id)

		return view.Progress == 30
	})

	m.Unsubscribe(id)
	close(ch)

	// The watcher must exit instead of reconnecting forever.
	time.Sleep(20 * time.Millisecond)
	count := stream.subscribeCount()
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, count, stream.subscribeCount())

	view, ok := m.View(id)
	require.True(t, ok)
	assert.Equal(t, 30, view.Progress)
	assert.False(t, view.ConnectionLost)
}

func TestMonitor_StartTestPropagatesRunnerError(t *testing.T) {
	ch := make(chan models.StatusEvent)
	stream := &fakeStream{script: []chan models.StatusEvent{ch}}
	m := NewMonitor(slog.Default(), &fakeRunner{startErr: errors.New("service down")}, stream)

	_, err := m.StartTest(t.Context(), testDraft(), nil)
	require.ErrorContains(t, err, "service down")
}

func TestMonitor_StartTestPropagatesSubscribeError(t *testing.T) {
	runner := &fakeRunner{}
	m := NewMonitor(slog.Default(), runner, &fakeStream{})

	_, err := m.StartTest(t.Context(), testDraft(), nil)
	require.ErrorContains(t, err, "open status stream")
}

func TestMonitor_View_Unknown(t *testing.T) {
	m := NewMonitor(slog.Default(), &fakeRunner{}, &fakeStream{})

	_, ok := m.View("missing")
	assert.False(t, ok)
}

// End-to-end over the in-memory bus: a real local runner publishing status
// events, the monitor following them through the stream adapter.
func TestMonitor_FollowsLocalRun(t *testing.T) {
	pub, sub, err := gochannel.CreateTestChannel(watermill.NopLogger{})
	require.NoError(t, err)

	bus := eventbus.NewWatermillEventBus(pub, sub)
	stream := eventbus.NewExecutionStream(sub)

	runner := execution.NewLocalRunner(slog.Default(), bus)
	runner.StepDelay = 50 * time.Millisecond

	m := NewMonitor(slog.Default(), runner, stream)

	id, err := m.StartTest(t.Context(), testDraft(), map[string]any{"customer_name": "Jane"})
	require.NoError(t, err)

	var sawRunning bool

	eventually(t, func() bool {
		view, ok := m.View(id)
		if !ok {
			return false
		}

		if view.Status == models.ExecutionStatusRunning {
			sawRunning = true
		}

		return view.Status == models.ExecutionStatusCompleted
	})

	view, _ := m.View(id)
	assert.True(t, sawRunning)
	assert.Equal(t, 100, view.Progress)
	assert.Equal(t, "wf-1", view.WorkflowID)
	assert.NotEmpty(t, view.OutputData)
	assert.False(t, view.ConnectionLost)
}

// A run with no pacing publishes immediately after Start; the subscription
// opened inside StartTest must already be attached, since the in-memory
// transport drops events for late subscribers.
func TestMonitor_FollowsInstantLocalRun(t *testing.T) {
	pub, sub, err := gochannel.CreateTestChannel(watermill.NopLogger{})
	require.NoError(t, err)

	bus := eventbus.NewWatermillEventBus(pub, sub)
	stream := eventbus.NewExecutionStream(sub)
	runner := execution.NewLocalRunner(slog.Default(), bus)
	m := NewMonitor(slog.Default(), runner, stream)

	for range 10 {
		id, err := m.StartTest(t.Context(), testDraft(), nil)
		require.NoError(t, err)

		eventually(t, func() bool {
			view, ok := m.View(id)

			return ok && view.Status == models.ExecutionStatusCompleted
		})

		view, _ := m.View(id)
		assert.Equal(t, 100, view.Progress)
	}
}
