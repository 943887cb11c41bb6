package database

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"github.com/SahilKashid/FlashcardLM/pkg/models"
)

// ProgressRepository persists resumable session snapshots keyed by the
// opaque session key the bot derives (deckID:mode). It satisfies the
// session engine's ProgressStore interface.
type ProgressRepository struct{}

// NewProgressRepository creates a new repository instance
func NewProgressRepository() *ProgressRepository {
	return &ProgressRepository{}
}

// progressRow is the stored shape; card IDs are a JSON column
type progressRow struct {
	SessionKey string `db:"session_key"`
	CardIDs    string `db:"card_ids"`
	Position   int    `db:"position"`
	Shuffled   bool   `db:"shuffled"`
}

// LoadProgress returns the stored snapshot for a session key, or false if
// none exists or the stored row cannot be decoded. A corrupt row is
// treated the same as an absent one — the engine falls back to a fresh
// build either way.
func (r *ProgressRepository) LoadProgress(key string) (models.SessionProgress, bool) {
	var row progressRow

	query := "SELECT session_key, card_ids, position, shuffled FROM session_progress WHERE session_key = ?"
	if DB.DriverName() == "postgres" {
		query = strings.Replace(query, "?", "$1", -1)
	}

	err := DB.Get(&row, query, key)
	if err == sql.ErrNoRows {
		return models.SessionProgress{}, false
	}
	if err != nil {
		log.Printf("failed to load session progress for %s: %v", key, err)
		return models.SessionProgress{}, false
	}

	var ids []int64
	if err := json.Unmarshal([]byte(row.CardIDs), &ids); err != nil {
		log.Printf("corrupt session progress for %s: %v", key, err)
		return models.SessionProgress{}, false
	}

	return models.SessionProgress{
		CardIDs:  ids,
		Position: row.Position,
		Shuffled: row.Shuffled,
	}, true
}

// SaveProgress upserts the snapshot for a session key
func (r *ProgressRepository) SaveProgress(key string, progress models.SessionProgress) error {
	data, err := json.Marshal(progress.CardIDs)
	if err != nil {
		return fmt.Errorf("failed to marshal card IDs: %v", err)
	}

	query := `
		INSERT INTO session_progress (session_key, card_ids, position, shuffled, updated_at)
		VALUES (?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(session_key) DO UPDATE SET
			card_ids = excluded.card_ids,
			position = excluded.position,
			shuffled = excluded.shuffled,
			updated_at = CURRENT_TIMESTAMP
	`
	if DB.DriverName() == "postgres" {
		query = `
			INSERT INTO session_progress (session_key, card_ids, position, shuffled, updated_at)
			VALUES ($1, $2, $3, $4, NOW())
			ON CONFLICT(session_key) DO UPDATE SET
				card_ids = excluded.card_ids,
				position = excluded.position,
				shuffled = excluded.shuffled,
				updated_at = NOW()
		`
	}

	_, err = DB.Exec(query, key, string(data), progress.Position, progress.Shuffled)
	if err != nil {
		return fmt.Errorf("failed to save session progress: %v", err)
	}
	return nil
}

// ClearProgress deletes the snapshot for a session key
func (r *ProgressRepository) ClearProgress(key string) error {
	query := "DELETE FROM session_progress WHERE session_key = ?"
	if DB.DriverName() == "postgres" {
		query = "DELETE FROM session_progress WHERE session_key = $1"
	}

	_, err := DB.Exec(query, key)
	if err != nil {
		return fmt.Errorf("failed to clear session progress: %v", err)
	}
	return nil
}
