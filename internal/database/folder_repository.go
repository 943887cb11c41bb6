package database

import (
	"fmt"
	"strings"

	"github.com/SahilKashid/FlashcardLM/pkg/models"
)

// FolderRepository handles database operations for folders
type FolderRepository struct{}

// NewFolderRepository creates a new repository instance
func NewFolderRepository() *FolderRepository {
	return &FolderRepository{}
}

// GetAll returns all folders
func (r *FolderRepository) GetAll() ([]models.Folder, error) {
	var folders []models.Folder
	err := DB.Select(&folders, "SELECT * FROM folders ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("failed to get folders: %v", err)
	}
	return folders, nil
}

// GetByID returns a folder by ID
func (r *FolderRepository) GetByID(id int64) (*models.Folder, error) {
	var folder models.Folder

	query := "SELECT * FROM folders WHERE id = ?"
	if DB.DriverName() == "postgres" {
		query = strings.Replace(query, "?", "$1", -1)
	}

	err := DB.Get(&folder, query, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get folder by ID: %v", err)
	}
	return &folder, nil
}

// Create inserts a new folder
func (r *FolderRepository) Create(folder *models.Folder) error {
	if DB.DriverName() == "postgres" {
		query := `
			INSERT INTO folders (name)
			VALUES ($1)
			RETURNING id, created_at, updated_at
		`
		return DB.QueryRow(query, folder.Name).
			Scan(&folder.ID, &folder.CreatedAt, &folder.UpdatedAt)
	}

	// SQLite (no RETURNING)
	query := `
		INSERT INTO folders (name, created_at, updated_at)
		VALUES (?, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
	`
	result, err := DB.Exec(query, folder.Name)
	if err != nil {
		return fmt.Errorf("failed to create folder: %v", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert ID: %v", err)
	}
	folder.ID = id
	return nil
}

// Delete removes a folder; its decks are unfiled, not deleted
func (r *FolderRepository) Delete(id int64) error {
	unfileQuery := "UPDATE decks SET folder_id = NULL WHERE folder_id = ?"
	folderQuery := "DELETE FROM folders WHERE id = ?"
	if DB.DriverName() == "postgres" {
		unfileQuery = "UPDATE decks SET folder_id = NULL WHERE folder_id = $1"
		folderQuery = "DELETE FROM folders WHERE id = $1"
	}

	if _, err := DB.Exec(unfileQuery, id); err != nil {
		return fmt.Errorf("failed to unfile decks: %v", err)
	}
	if _, err := DB.Exec(folderQuery, id); err != nil {
		return fmt.Errorf("failed to delete folder: %v", err)
	}
	return nil
}
