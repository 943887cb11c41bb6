package database

import (
	"fmt"
	"strings"
	"time"

	"github.com/SahilKashid/FlashcardLM/pkg/models"
)

// CardRepository handles database operations for cards
type CardRepository struct{}

// NewCardRepository creates a new repository instance
func NewCardRepository() *CardRepository {
	return &CardRepository{}
}

// GetByDeck returns every card of a deck ordered by creation time — the
// order the session engine expects for a fresh queue.
func (r *CardRepository) GetByDeck(deckID int64) ([]models.Card, error) {
	var cards []models.Card

	query := "SELECT * FROM cards WHERE deck_id = ? ORDER BY created_at, id"

	// Replace ? with $ for PostgreSQL if needed
	if DB.DriverName() == "postgres" {
		query = strings.Replace(query, "?", "$1", -1)
	}

	err := DB.Select(&cards, query, deckID)
	if err != nil {
		return nil, fmt.Errorf("failed to get cards by deck: %v", err)
	}
	return cards, nil
}

// GetByID returns a card by ID
func (r *CardRepository) GetByID(id int64) (*models.Card, error) {
	var card models.Card

	query := "SELECT * FROM cards WHERE id = ?"
	if DB.DriverName() == "postgres" {
		query = strings.Replace(query, "?", "$1", -1)
	}

	err := DB.Get(&card, query, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get card by ID: %v", err)
	}
	return &card, nil
}

// Create inserts a new card
func (r *CardRepository) Create(card *models.Card) error {
	if DB.DriverName() == "postgres" {
		query := `
			INSERT INTO cards (deck_id, card_type, front, back, cloze_text, cloze_index,
				image_path, occlusions, hint, interval, repetitions, easiness_factor, due_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
			RETURNING id, created_at, updated_at
		`
		return DB.QueryRow(
			query,
			card.DeckID,
			card.Type,
			card.Front,
			card.Back,
			card.ClozeText,
			card.ClozeIndex,
			card.ImagePath,
			card.Occlusions,
			card.Hint,
			card.Interval,
			card.Repetitions,
			card.EasinessFactor,
			card.DueAt,
		).Scan(&card.ID, &card.CreatedAt, &card.UpdatedAt)
	}

	// SQLite (no RETURNING)
	query := `
		INSERT INTO cards (deck_id, card_type, front, back, cloze_text, cloze_index,
			image_path, occlusions, hint, interval, repetitions, easiness_factor, due_at,
			created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
	`
	result, err := DB.Exec(
		query,
		card.DeckID,
		card.Type,
		card.Front,
		card.Back,
		card.ClozeText,
		card.ClozeIndex,
		card.ImagePath,
		card.Occlusions,
		card.Hint,
		card.Interval,
		card.Repetitions,
		card.EasinessFactor,
		card.DueAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create card: %v", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert ID: %v", err)
	}
	card.ID = id

	// Scan the DB-assigned timestamps back so the in-memory card carries the
	// same ordering key GetByDeck will return for this row.
	err = DB.QueryRow("SELECT created_at, updated_at FROM cards WHERE id = ?", id).
		Scan(&card.CreatedAt, &card.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to read back card timestamps: %v", err)
	}

	return nil
}

// Update modifies an existing card, content and schedule alike
func (r *CardRepository) Update(card *models.Card) error {
	query := `
		UPDATE cards SET
			card_type = ?,
			front = ?,
			back = ?,
			cloze_text = ?,
			cloze_index = ?,
			image_path = ?,
			occlusions = ?,
			hint = ?,
			interval = ?,
			repetitions = ?,
			easiness_factor = ?,
			due_at = ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`

	if DB.DriverName() == "postgres" {
		query = `
			UPDATE cards SET
				card_type = $1,
				front = $2,
				back = $3,
				cloze_text = $4,
				cloze_index = $5,
				image_path = $6,
				occlusions = $7,
				hint = $8,
				interval = $9,
				repetitions = $10,
				easiness_factor = $11,
				due_at = $12,
				updated_at = NOW()
			WHERE id = $13
		`
	}

	_, err := DB.Exec(
		query,
		card.Type,
		card.Front,
		card.Back,
		card.ClozeText,
		card.ClozeIndex,
		card.ImagePath,
		card.Occlusions,
		card.Hint,
		card.Interval,
		card.Repetitions,
		card.EasinessFactor,
		card.DueAt,
		card.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update card: %v", err)
	}
	return nil
}

// Delete removes a card
func (r *CardRepository) Delete(id int64) error {
	query := "DELETE FROM cards WHERE id = ?"
	if DB.DriverName() == "postgres" {
		query = "DELETE FROM cards WHERE id = $1"
	}

	_, err := DB.Exec(query, id)
	if err != nil {
		return fmt.Errorf("failed to delete card: %v", err)
	}
	return nil
}

// CountByDeck returns the total and due card counts for a deck
func (r *CardRepository) CountByDeck(deckID int64, now time.Time) (total int, due int, err error) {
	query := "SELECT COUNT(*) FROM cards WHERE deck_id = ?"
	dueQuery := "SELECT COUNT(*) FROM cards WHERE deck_id = ? AND due_at <= ?"
	if DB.DriverName() == "postgres" {
		query = "SELECT COUNT(*) FROM cards WHERE deck_id = $1"
		dueQuery = "SELECT COUNT(*) FROM cards WHERE deck_id = $1 AND due_at <= $2"
	}

	if err = DB.Get(&total, query, deckID); err != nil {
		return 0, 0, fmt.Errorf("failed to count cards: %v", err)
	}
	if err = DB.Get(&due, dueQuery, deckID, now); err != nil {
		return 0, 0, fmt.Errorf("failed to count due cards: %v", err)
	}
	return total, due, nil
}

// CountDue returns the number of due cards across all decks
func (r *CardRepository) CountDue(now time.Time) (int, error) {
	query := "SELECT COUNT(*) FROM cards WHERE due_at <= ?"
	if DB.DriverName() == "postgres" {
		query = "SELECT COUNT(*) FROM cards WHERE due_at <= $1"
	}

	var due int
	if err := DB.Get(&due, query, now); err != nil {
		return 0, fmt.Errorf("failed to count due cards: %v", err)
	}
	return due, nil
}
