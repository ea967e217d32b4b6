package runtime

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// fakeClock lets tests drive the breaker's notion of time.
type fakeClock struct {
	t time.Time
}

func (c *fakeClock) now() time.Time { return c.t }

func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestHealth(threshold int, timeout time.Duration) (*Health, *fakeClock) {
	clock := &fakeClock{t: time.Unix(1_700_000_000, 0)}
	h := NewHealth(threshold, timeout)
	h.now = clock.now
	return h, clock
}

func TestHealthOpensAtThreshold(t *testing.T) {
	h, _ := newTestHealth(3, 30*time.Second)

	assert.False(t, h.RecordFailure())
	assert.False(t, h.RecordFailure())
	assert.False(t, h.IsOpen())

	assert.True(t, h.RecordFailure(), "third failure opens the circuit")
	assert.True(t, h.IsOpen())
	assert.False(t, h.Allow())
}

func TestHealthSuccessResets(t *testing.T) {
	h, _ := newTestHealth(3, 30*time.Second)

	h.RecordFailure()
	h.RecordFailure()
	h.RecordSuccess()

	snap := h.Snapshot()
	assert.Equal(t, 0, snap.ConsecutiveFailures)
	assert.False(t, snap.Open)

	// The streak restarts from zero after a success.
	assert.False(t, h.RecordFailure())
	assert.False(t, h.RecordFailure())
	assert.True(t, h.RecordFailure())
}

func TestHealthSuccessClosesOpenCircuit(t *testing.T) {
	h, _ := newTestHealth(1, 30*time.Second)

	h.RecordFailure()
	assert.True(t, h.IsOpen())

	assert.True(t, h.RecordSuccess(), "success reports circuit transition")
	assert.False(t, h.IsOpen())
	assert.True(t, h.Allow())
}

func TestHealthHalfOpenProbeAfterTimeout(t *testing.T) {
	h, clock := newTestHealth(1, 30*time.Second)

	h.RecordSuccess()
	h.RecordFailure()
	assert.False(t, h.Allow(), "open circuit rejects before the timeout")

	clock.advance(31 * time.Second)
	assert.True(t, h.Allow(), "one probe is allowed after the timeout")
	assert.True(t, h.IsOpen(), "the probe does not close the circuit by itself")

	// The probe consumed the window; the next caller waits again.
	assert.False(t, h.Allow())

	clock.advance(31 * time.Second)
	assert.True(t, h.Allow(), "a failed probe restarts the window, not forever")
}

func TestHealthSnapshotCarriesLastSuccess(t *testing.T) {
	h, clock := newTestHealth(5, 30*time.Second)

	h.RecordSuccess()
	want := clock.t
	h.RecordFailure()

	snap := h.Snapshot()
	assert.Equal(t, want, snap.LastSuccess)
	assert.Equal(t, 1, snap.ConsecutiveFailures)
	assert.False(t, snap.Open)
}
