package monitor

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) (*httptest.Server, *Collector) {
	t.Helper()
	collector := NewCollector()
	board := NewBoard(staticSource{}, collector)
	srv := NewServer("", collector, board)

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts, collector
}

func TestServerHealth(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestServerStatus(t *testing.T) {
	ts, collector := newTestServer(t)
	collector.Publish(Event{Type: EventSessionStarted, MissionID: "demo/basics/echo"})

	resp, err := http.Get(ts.URL + "/status")
	require.NoError(t, err)
	defer resp.Body.Close()

	var snap Snapshot
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&snap))
	assert.True(t, snap.Session.Active)
	assert.Equal(t, "demo/basics/echo", snap.Session.MissionID)
	assert.Equal(t, 1, snap.Stats.Total)
}

func TestServerWebSocketStream(t *testing.T) {
	ts, collector := newTestServer(t)

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	if resp != nil {
		resp.Body.Close()
	}
	defer conn.Close()

	// The first frame is the snapshot.
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	var snap Snapshot
	require.NoError(t, json.Unmarshal(data, &snap))
	assert.False(t, snap.Session.Active)

	// Subsequent frames are events as they happen.
	collector.Publish(Event{Type: EventStepPassed, MissionID: "demo/basics/echo", StepID: "s1"})

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, data, err = conn.ReadMessage()
	require.NoError(t, err)
	var event Event
	require.NoError(t, json.Unmarshal(data, &event))
	assert.Equal(t, EventStepPassed, event.Type)
	assert.Equal(t, "s1", event.StepID)
}
