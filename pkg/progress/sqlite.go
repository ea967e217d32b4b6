package progress

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	_ "modernc.org/sqlite"

	"digital.vasic.missions/pkg/mission"
)

const timeLayout = "2006-01-02T15:04:05Z07:00"

// SQLiteStore is a Store backed by a local SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens (creating if needed) the database at path.
func NewSQLite(path string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	return &SQLiteStore{db: db}, nil
}

// EnsureSchema creates the progress tables if they do not exist.
func (s *SQLiteStore) EnsureSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS mission_completions (
			user_id TEXT NOT NULL,
			mission_id TEXT NOT NULL,
			steps_json TEXT NOT NULL DEFAULT '[]',
			points INTEGER NOT NULL DEFAULT 0,
			completed_at TEXT NOT NULL,
			PRIMARY KEY(user_id, mission_id)
		);`,
		`CREATE TABLE IF NOT EXISTS mission_unlocks (
			user_id TEXT NOT NULL,
			mission_id TEXT NOT NULL,
			source_mission_id TEXT NOT NULL,
			created_at TEXT NOT NULL DEFAULT (datetime('now')),
			UNIQUE(user_id, mission_id)
		);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

// RecordCompletion inserts the completion row and the unlock rows.
// An existing completion for the same user and mission is kept
// untouched, so points are awarded once.
func (s *SQLiteStore) RecordCompletion(ctx context.Context, userID string, missionID mission.ID, rec CompletionRecord) error {
	completedAt := rec.CompletedAt
	if completedAt.IsZero() {
		completedAt = time.Now().UTC()
	}
	stepsJSON, err := json.Marshal(rec.Steps)
	if err != nil {
		return fmt.Errorf("encode completed steps: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `
		INSERT OR IGNORE INTO mission_completions(user_id, mission_id, steps_json, points, completed_at)
		VALUES(?, ?, ?, ?, ?)
	`, userID, string(missionID), string(stepsJSON), rec.Points, completedAt.UTC().Format(timeLayout)); err != nil {
		return err
	}

	for _, unlocked := range rec.Unlocks {
		if unlocked == "" {
			continue
		}
		if _, err = tx.ExecContext(ctx, `
			INSERT OR IGNORE INTO mission_unlocks(user_id, mission_id, source_mission_id)
			VALUES(?, ?, ?)
		`, userID, string(unlocked), string(missionID)); err != nil {
			return err
		}
	}

	if err = tx.Commit(); err != nil {
		return err
	}
	return nil
}

// GetCompletionStatus reports whether the user completed the mission.
func (s *SQLiteStore) GetCompletionStatus(ctx context.Context, userID string, missionID mission.ID) (bool, error) {
	var count int
	row := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM mission_completions
		WHERE user_id = ? AND mission_id = ?
	`, userID, string(missionID))
	if err := row.Scan(&count); err != nil {
		return false, err
	}
	return count > 0, nil
}

// TotalPoints returns the user's cumulative awarded points.
func (s *SQLiteStore) TotalPoints(ctx context.Context, userID string) (int, error) {
	var total int
	row := s.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(points), 0) FROM mission_completions
		WHERE user_id = ?
	`, userID)
	if err := row.Scan(&total); err != nil {
		return 0, err
	}
	return total, nil
}

// Unlocked returns the missions unlocked for the user, sorted.
func (s *SQLiteStore) Unlocked(ctx context.Context, userID string) ([]mission.ID, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT mission_id FROM mission_unlocks
		WHERE user_id = ?
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []mission.ID
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, mission.ID(id))
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

// CompletedSteps returns the recorded step IDs for a completion, or
// nil if the mission was never completed.
func (s *SQLiteStore) CompletedSteps(ctx context.Context, userID string, missionID mission.ID) ([]string, error) {
	var stepsJSON string
	row := s.db.QueryRowContext(ctx, `
		SELECT steps_json FROM mission_completions
		WHERE user_id = ? AND mission_id = ?
	`, userID, string(missionID))
	if err := row.Scan(&stepsJSON); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	var steps []string
	if err := json.Unmarshal([]byte(stepsJSON), &steps); err != nil {
		return nil, fmt.Errorf("decode completed steps: %w", err)
	}
	return steps, nil
}

// Close releases the database handle.
func (s *SQLiteStore) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}
