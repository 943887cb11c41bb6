package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// CardType discriminates the content variant of a card
type CardType string

const (
	// CardTypeBasic is a plain front/back card
	CardTypeBasic CardType = "basic"
	// CardTypeCloze is a fill-in-the-blank card; one card per deletion index
	CardTypeCloze CardType = "cloze"
	// CardTypeImageOcclusion is an image with masked rectangles
	CardTypeImageOcclusion CardType = "image_occlusion"
)

// OcclusionRect is a masked rectangle on an image-occlusion card
type OcclusionRect struct {
	ID     int64  `json:"id"`
	X      int    `json:"x"`
	Y      int    `json:"y"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Label  string `json:"label,omitempty"`
}

// OcclusionList is stored as a JSON column
type OcclusionList []OcclusionRect

// Value implements driver.Valuer so sqlx can write the list as JSON.
func (o OcclusionList) Value() (driver.Value, error) {
	if len(o) == 0 {
		return "[]", nil
	}
	data, err := json.Marshal(o)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal occlusions: %v", err)
	}
	return string(data), nil
}

// Scan implements sql.Scanner for the JSON column.
func (o *OcclusionList) Scan(src interface{}) error {
	if src == nil {
		*o = nil
		return nil
	}
	var data []byte
	switch v := src.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("cannot scan occlusions from %T", src)
	}
	if len(data) == 0 {
		*o = nil
		return nil
	}
	return json.Unmarshal(data, o)
}

// Card represents a single reviewable flashcard.
// The Type field selects which content fields are meaningful:
// Front/Back for basic cards, ClozeText/ClozeIndex for cloze cards,
// ImagePath/Occlusions for image-occlusion cards.
type Card struct {
	ID         int64         `json:"id" db:"id"`
	DeckID     int64         `json:"deck_id" db:"deck_id"`
	Type       CardType      `json:"type" db:"card_type"`
	Front      string        `json:"front" db:"front"`
	Back       string        `json:"back" db:"back"`
	ClozeText  string        `json:"cloze_text" db:"cloze_text"`
	ClozeIndex int           `json:"cloze_index" db:"cloze_index"` // Which numbered blank this card reveals
	ImagePath  string        `json:"image_path" db:"image_path"`
	Occlusions OcclusionList `json:"occlusions" db:"occlusions"`
	Hint       string        `json:"hint" db:"hint"`
	ScheduleState
	CreatedAt time.Time `json:"created_at" db:"created_at"` // Stable ordering key for fresh queues
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}
