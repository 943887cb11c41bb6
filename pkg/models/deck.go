package models

import (
	"database/sql"
	"time"
)

// Deck is a named collection of cards, optionally filed under a folder
type Deck struct {
	ID        int64         `json:"id" db:"id"`
	FolderID  sql.NullInt64 `json:"folder_id" db:"folder_id"`
	Name      string        `json:"name" db:"name"`
	CreatedAt time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt time.Time     `json:"updated_at" db:"updated_at"`
}
