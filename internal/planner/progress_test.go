package planner

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTrackerLifecycle(t *testing.T) {
	tracker := NewTracker("job-1")
	assert.Equal(t, StateIdle, tracker.Snapshot().State)

	tracker.Begin(4)
	tracker.StartWeek("S42 2025 — 13/10 → 19/10")
	tracker.NoteSession(SessionNote{Course: "Networks", ClassLabel: "A2", Time: "Mon 13/10 08:00–10:00"})
	tracker.Advance(true)
	tracker.Advance(false)
	tracker.NoteRelocation()

	snap := tracker.Snapshot()
	assert.Equal(t, StateRunning, snap.State)
	assert.InDelta(t, 50.0, snap.Percent, 0.01)
	assert.Equal(t, "S42 2025 — 13/10 → 19/10", snap.CurrentWeek)
	require.Len(t, snap.Weeks, 1)
	assert.Equal(t, WeekRow{Label: "S42 2025 — 13/10 → 19/10", Placed: 1, Failed: 1, Relocated: 1}, snap.Weeks[0])
	require.Len(t, snap.WeekSessions, 1)
	assert.Equal(t, "Networks", snap.WeekSessions[0].Course)
	require.NotNil(t, snap.ETASeconds)

	tracker.Finish(StateSuccess, "2 sessions placed")
	snap = tracker.Snapshot()
	assert.Equal(t, StateSuccess, snap.State)
	assert.Equal(t, "2 sessions placed", snap.Message)
	assert.Nil(t, snap.ETASeconds)
	require.NotNil(t, snap.FinishedAt)
}

func TestTrackerSnapshotIsACopy(t *testing.T) {
	tracker := NewTracker("job-1")
	tracker.Begin(2)
	tracker.StartWeek("w1")
	snap := tracker.Snapshot()
	require.Len(t, snap.Weeks, 1)

	snap.Weeks[0].Placed = 99
	assert.Equal(t, 0, tracker.Snapshot().Weeks[0].Placed)
}

func TestTrackerPercentClamped(t *testing.T) {
	tracker := NewTracker("job-1")
	tracker.Begin(1)
	tracker.Advance(true)
	tracker.Advance(true)
	assert.Equal(t, 100.0, tracker.Snapshot().Percent)
}

func TestRegistryPurge(t *testing.T) {
	registry := NewRegistry()
	finished := registry.Create("done")
	finished.Begin(1)
	finished.Finish(StateSuccess, "")
	running := registry.Create("running")
	running.Begin(1)

	time.Sleep(2 * time.Millisecond)
	removed := registry.Purge(time.Millisecond)
	assert.Equal(t, 1, removed)
	assert.Nil(t, registry.Get("done"))
	assert.NotNil(t, registry.Get("running"))

	assert.Nil(t, registry.Get("unknown"))
}

func TestRegistryCreateReplaces(t *testing.T) {
	registry := NewRegistry()
	first := registry.Create("job")
	second := registry.Create("job")
	assert.NotSame(t, first, second)
	assert.Same(t, second, registry.Get("job"))
}
