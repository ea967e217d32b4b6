package monitor

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type staticSource struct {
	status CircuitStatus
}

func (s staticSource) CircuitStatus() CircuitStatus { return s.status }

func TestBoardFoldsSessionEvents(t *testing.T) {
	board := NewBoard(staticSource{}, NewCollector())

	board.UpdateFromEvent(Event{Type: EventSessionStarted, MissionID: "demo/basics/echo"})
	snap := board.Snapshot()
	assert.True(t, snap.Session.Active)
	assert.Equal(t, "demo/basics/echo", snap.Session.MissionID)

	board.UpdateFromEvent(Event{Type: EventStepPassed, StepID: "write-ready"})
	assert.Equal(t, "write-ready", board.Snapshot().Session.StepID)

	board.UpdateFromEvent(Event{Type: EventMissionCompleted, MissionID: "demo/basics/echo"})
	snap = board.Snapshot()
	assert.False(t, snap.Session.Active)
	assert.Empty(t, snap.Session.MissionID)
}

func TestBoardSnapshotCarriesCircuitAndStats(t *testing.T) {
	lastSuccess := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	source := staticSource{status: CircuitStatus{
		Open:                true,
		ConsecutiveFailures: 5,
		LastSuccess:         lastSuccess,
	}}
	collector := NewCollector()
	collector.Publish(Event{Type: EventRetryScheduled})

	snap := NewBoard(source, collector).Snapshot()
	assert.True(t, snap.Circuit.Open)
	assert.Equal(t, 5, snap.Circuit.ConsecutiveFailures)
	assert.Equal(t, lastSuccess, snap.Circuit.LastSuccess)
	assert.Equal(t, 1, snap.Stats.Retries)
	assert.False(t, snap.Time.IsZero())
}

func TestBoardAbandonClearsSession(t *testing.T) {
	board := NewBoard(nil, NewCollector())
	board.UpdateFromEvent(Event{Type: EventSessionStarted, MissionID: "m"})
	board.UpdateFromEvent(Event{Type: EventMissionAbandoned, MissionID: "m"})
	assert.False(t, board.Snapshot().Session.Active)
}
