package database

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

// DB is the global database connection
var DB *sqlx.DB

// Connect establishes a connection to the database. When DATABASE_URL is
// set a PostgreSQL connection is used; otherwise a local SQLite file under
// data/ is created.
func Connect() error {
	if url := os.Getenv("DATABASE_URL"); url != "" {
		db, err := sqlx.Connect("postgres", url)
		if err != nil {
			return fmt.Errorf("failed to connect to postgres: %v", err)
		}
		DB = db
		return initializeSchema()
	}

	// Create data directory if it doesn't exist
	dataDir := "data"
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return fmt.Errorf("failed to create data directory: %v", err)
	}

	dbPath := filepath.Join(dataDir, "flashcards.db")
	db, err := sqlx.Connect("sqlite3", dbPath)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %v", err)
	}

	// Enable foreign keys
	_, err = db.Exec("PRAGMA foreign_keys = ON")
	if err != nil {
		return fmt.Errorf("failed to enable foreign keys: %v", err)
	}

	// SQLite doesn't support multiple writers
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	DB = db

	return initializeSchema()
}

// autoincrementPK returns the auto-increment primary key column definition
// for the given driver. PostgreSQL rejects SQLite's AUTOINCREMENT keyword.
func autoincrementPK(driver string) string {
	if driver == "postgres" {
		return "BIGSERIAL PRIMARY KEY"
	}
	return "INTEGER PRIMARY KEY AUTOINCREMENT"
}

// Close closes the database connection
func Close() error {
	if DB != nil {
		return DB.Close()
	}
	return nil
}

// initializeSchema creates necessary tables if they don't exist. The
// auto-increment primary key spelling differs between the drivers, so it is
// substituted per DriverName the same way the repositories branch their
// queries.
func initializeSchema() error {
	pk := autoincrementPK(DB.DriverName())

	// Create folders table
	_, err := DB.Exec(fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS folders (
			id %s,
			name TEXT NOT NULL UNIQUE,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)
	`, pk))
	if err != nil {
		return fmt.Errorf("failed to create folders table: %v", err)
	}

	// Create decks table
	_, err = DB.Exec(fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS decks (
			id %s,
			folder_id INTEGER,
			name TEXT NOT NULL UNIQUE,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (folder_id) REFERENCES folders(id)
		)
	`, pk))
	if err != nil {
		return fmt.Errorf("failed to create decks table: %v", err)
	}

	// Create cards table; schedule columns live inline on the card row
	_, err = DB.Exec(fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS cards (
			id %s,
			deck_id INTEGER NOT NULL,
			card_type TEXT NOT NULL DEFAULT 'basic',
			front TEXT DEFAULT '',
			back TEXT DEFAULT '',
			cloze_text TEXT DEFAULT '',
			cloze_index INTEGER DEFAULT 0,
			image_path TEXT DEFAULT '',
			occlusions TEXT DEFAULT '[]',
			hint TEXT DEFAULT '',
			interval INTEGER DEFAULT 0,
			repetitions INTEGER DEFAULT 0,
			easiness_factor REAL DEFAULT 2.5,
			due_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (deck_id) REFERENCES decks(id)
		)
	`, pk))
	if err != nil {
		return fmt.Errorf("failed to create cards table: %v", err)
	}

	// Create session_progress table; one resumable snapshot per session key
	_, err = DB.Exec(`
		CREATE TABLE IF NOT EXISTS session_progress (
			session_key TEXT PRIMARY KEY,
			card_ids TEXT NOT NULL,
			position INTEGER NOT NULL DEFAULT 0,
			shuffled BOOLEAN NOT NULL DEFAULT false,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create session_progress table: %v", err)
	}

	return nil
}
