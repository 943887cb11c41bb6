package database

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/SahilKashid/FlashcardLM/pkg/models"
)

// DeckRepository handles database operations for decks
type DeckRepository struct{}

// NewDeckRepository creates a new repository instance
func NewDeckRepository() *DeckRepository {
	return &DeckRepository{}
}

// GetAll returns all decks
func (r *DeckRepository) GetAll() ([]models.Deck, error) {
	var decks []models.Deck
	err := DB.Select(&decks, "SELECT * FROM decks ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("failed to get decks: %v", err)
	}
	return decks, nil
}

// GetByID returns a deck by ID
func (r *DeckRepository) GetByID(id int64) (*models.Deck, error) {
	var deck models.Deck

	query := "SELECT * FROM decks WHERE id = ?"
	if DB.DriverName() == "postgres" {
		query = strings.Replace(query, "?", "$1", -1)
	}

	err := DB.Get(&deck, query, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get deck by ID: %v", err)
	}
	return &deck, nil
}

// GetByName returns a deck by its unique name
func (r *DeckRepository) GetByName(name string) (*models.Deck, error) {
	var deck models.Deck

	query := "SELECT * FROM decks WHERE name = ?"
	if DB.DriverName() == "postgres" {
		query = strings.Replace(query, "?", "$1", -1)
	}

	err := DB.Get(&deck, query, name)
	if err != nil {
		return nil, err
	}
	return &deck, nil
}

// GetByFolder returns the decks filed under a folder
func (r *DeckRepository) GetByFolder(folderID int64) ([]models.Deck, error) {
	var decks []models.Deck

	query := "SELECT * FROM decks WHERE folder_id = ? ORDER BY name"
	if DB.DriverName() == "postgres" {
		query = strings.Replace(query, "?", "$1", -1)
	}

	err := DB.Select(&decks, query, folderID)
	if err != nil {
		return nil, fmt.Errorf("failed to get decks by folder: %v", err)
	}
	return decks, nil
}

// Create inserts a new deck
func (r *DeckRepository) Create(deck *models.Deck) error {
	if DB.DriverName() == "postgres" {
		query := `
			INSERT INTO decks (folder_id, name)
			VALUES ($1, $2)
			RETURNING id, created_at, updated_at
		`
		return DB.QueryRow(query, deck.FolderID, deck.Name).
			Scan(&deck.ID, &deck.CreatedAt, &deck.UpdatedAt)
	}

	// SQLite (no RETURNING)
	query := `
		INSERT INTO decks (folder_id, name, created_at, updated_at)
		VALUES (?, ?, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
	`
	result, err := DB.Exec(query, deck.FolderID, deck.Name)
	if err != nil {
		return fmt.Errorf("failed to create deck: %v", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert ID: %v", err)
	}
	deck.ID = id
	return nil
}

// Rename changes a deck's name
func (r *DeckRepository) Rename(id int64, name string) error {
	query := "UPDATE decks SET name = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?"
	if DB.DriverName() == "postgres" {
		query = "UPDATE decks SET name = $1, updated_at = NOW() WHERE id = $2"
	}

	_, err := DB.Exec(query, name, id)
	if err != nil {
		return fmt.Errorf("failed to rename deck: %v", err)
	}
	return nil
}

// MoveToFolder files a deck under a folder; a zero folder ID unfiles it
func (r *DeckRepository) MoveToFolder(id int64, folderID int64) error {
	var folder sql.NullInt64
	if folderID != 0 {
		folder = sql.NullInt64{Int64: folderID, Valid: true}
	}

	query := "UPDATE decks SET folder_id = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?"
	if DB.DriverName() == "postgres" {
		query = "UPDATE decks SET folder_id = $1, updated_at = NOW() WHERE id = $2"
	}

	_, err := DB.Exec(query, folder, id)
	if err != nil {
		return fmt.Errorf("failed to move deck: %v", err)
	}
	return nil
}

// Delete removes a deck and its cards
func (r *DeckRepository) Delete(id int64) error {
	cardQuery := "DELETE FROM cards WHERE deck_id = ?"
	deckQuery := "DELETE FROM decks WHERE id = ?"
	if DB.DriverName() == "postgres" {
		cardQuery = "DELETE FROM cards WHERE deck_id = $1"
		deckQuery = "DELETE FROM decks WHERE id = $1"
	}

	if _, err := DB.Exec(cardQuery, id); err != nil {
		return fmt.Errorf("failed to delete deck cards: %v", err)
	}
	if _, err := DB.Exec(deckQuery, id); err != nil {
		return fmt.Errorf("failed to delete deck: %v", err)
	}
	return nil
}
