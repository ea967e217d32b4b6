package progress

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"digital.vasic.missions/pkg/mission"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLite(filepath.Join(t.TempDir(), "progress.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	require.NoError(t, store.EnsureSchema(context.Background()))
	return store
}

func sampleRecord() CompletionRecord {
	return CompletionRecord{
		Steps:       []string{"write-file", "read-file"},
		Points:      50,
		Unlocks:     []mission.ID{"demo/basics/pipes"},
		CompletedAt: time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestSQLiteRecordAndQuery(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	done, err := store.GetCompletionStatus(ctx, "alice", "demo/basics/echo")
	require.NoError(t, err)
	assert.False(t, done)

	require.NoError(t, store.RecordCompletion(ctx, "alice", "demo/basics/echo", sampleRecord()))

	done, err = store.GetCompletionStatus(ctx, "alice", "demo/basics/echo")
	require.NoError(t, err)
	assert.True(t, done)

	points, err := store.TotalPoints(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, 50, points)

	steps, err := store.CompletedSteps(ctx, "alice", "demo/basics/echo")
	require.NoError(t, err)
	assert.Equal(t, []string{"write-file", "read-file"}, steps)

	unlocked, err := store.Unlocked(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, []mission.ID{"demo/basics/pipes"}, unlocked)
}

func TestSQLiteDuplicateCompletionKeepsFirstAward(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	require.NoError(t, store.RecordCompletion(ctx, "alice", "demo/basics/echo", sampleRecord()))

	second := sampleRecord()
	second.Points = 500
	second.Steps = []string{"different"}
	require.NoError(t, store.RecordCompletion(ctx, "alice", "demo/basics/echo", second))

	points, err := store.TotalPoints(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, 50, points, "repeat completions must not award again")

	steps, err := store.CompletedSteps(ctx, "alice", "demo/basics/echo")
	require.NoError(t, err)
	assert.Equal(t, []string{"write-file", "read-file"}, steps)
}

func TestSQLitePointsAccumulateAcrossMissions(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	first := sampleRecord()
	require.NoError(t, store.RecordCompletion(ctx, "alice", "demo/basics/echo", first))

	second := CompletionRecord{Steps: []string{"s1"}, Points: 30}
	require.NoError(t, store.RecordCompletion(ctx, "alice", "demo/basics/pipes", second))

	points, err := store.TotalPoints(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, 80, points)
}

func TestSQLiteUsersAreIsolated(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	require.NoError(t, store.RecordCompletion(ctx, "alice", "demo/basics/echo", sampleRecord()))

	done, err := store.GetCompletionStatus(ctx, "bob", "demo/basics/echo")
	require.NoError(t, err)
	assert.False(t, done)

	points, err := store.TotalPoints(ctx, "bob")
	require.NoError(t, err)
	assert.Zero(t, points)

	unlocked, err := store.Unlocked(ctx, "bob")
	require.NoError(t, err)
	assert.Empty(t, unlocked)
}

func TestSQLiteCompletedStepsMissing(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	steps, err := store.CompletedSteps(ctx, "alice", "demo/never")
	require.NoError(t, err)
	assert.Nil(t, steps)
}

func TestMemoryStoreMirrorsSQLiteSemantics(t *testing.T) {
	ctx := context.Background()
	store := NewMemory()

	require.NoError(t, store.RecordCompletion(ctx, "alice", "demo/basics/echo", sampleRecord()))

	dup := sampleRecord()
	dup.Points = 500
	require.NoError(t, store.RecordCompletion(ctx, "alice", "demo/basics/echo", dup))

	points, err := store.TotalPoints(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, 50, points)

	done, err := store.GetCompletionStatus(ctx, "alice", "demo/basics/echo")
	require.NoError(t, err)
	assert.True(t, done)

	unlocked, err := store.Unlocked(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, []mission.ID{"demo/basics/pipes"}, unlocked)
}
