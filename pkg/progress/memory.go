package progress

import (
	"context"
	"sort"
	"sync"
	"time"

	"digital.vasic.missions/pkg/mission"
)

// MemoryStore is an in-process Store. It backs tests and single-run
// sessions where persistence is not wanted.
type MemoryStore struct {
	mu          sync.RWMutex
	completions map[string]map[mission.ID]CompletionRecord
	unlocks     map[string]map[mission.ID]bool
}

// NewMemory creates an empty MemoryStore.
func NewMemory() *MemoryStore {
	return &MemoryStore{
		completions: make(map[string]map[mission.ID]CompletionRecord),
		unlocks:     make(map[string]map[mission.ID]bool),
	}
}

func (m *MemoryStore) RecordCompletion(_ context.Context, userID string, missionID mission.ID, rec CompletionRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.completions[userID] == nil {
		m.completions[userID] = make(map[mission.ID]CompletionRecord)
	}
	if _, done := m.completions[userID][missionID]; !done {
		if rec.CompletedAt.IsZero() {
			rec.CompletedAt = time.Now().UTC()
		}
		m.completions[userID][missionID] = rec
	}

	if m.unlocks[userID] == nil {
		m.unlocks[userID] = make(map[mission.ID]bool)
	}
	for _, id := range rec.Unlocks {
		if id != "" {
			m.unlocks[userID][id] = true
		}
	}
	return nil
}

func (m *MemoryStore) GetCompletionStatus(_ context.Context, userID string, missionID mission.ID) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, done := m.completions[userID][missionID]
	return done, nil
}

func (m *MemoryStore) TotalPoints(_ context.Context, userID string) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	total := 0
	for _, rec := range m.completions[userID] {
		total += rec.Points
	}
	return total, nil
}

func (m *MemoryStore) Unlocked(_ context.Context, userID string) ([]mission.ID, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var ids []mission.ID
	for id := range m.unlocks[userID] {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}
