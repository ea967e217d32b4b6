// Package progress persists mission completion records and the
// points ledger per user.
package progress

import (
	"context"
	"time"

	"digital.vasic.missions/pkg/mission"
)

// CompletionRecord is what the engine hands to the store when a
// mission's final step passes.
type CompletionRecord struct {
	// Steps are the IDs of the validated steps, in completion order.
	Steps []string

	// Points awarded by the mission definition.
	Points int

	// Unlocks are missions made available by this completion.
	Unlocks []mission.ID

	CompletedAt time.Time
}

// Store records mission completions. A repeated completion of the
// same mission keeps the first record: points are awarded exactly
// once per user and mission.
type Store interface {
	RecordCompletion(ctx context.Context, userID string, missionID mission.ID, rec CompletionRecord) error

	// GetCompletionStatus reports whether userID has completed
	// missionID.
	GetCompletionStatus(ctx context.Context, userID string, missionID mission.ID) (bool, error)

	// TotalPoints returns the user's cumulative awarded points.
	TotalPoints(ctx context.Context, userID string) (int, error)

	// Unlocked returns the missions unlocked for the user by past
	// completions, sorted.
	Unlocked(ctx context.Context, userID string) ([]mission.ID, error)
}
