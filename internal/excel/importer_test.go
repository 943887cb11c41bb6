package excel

import (
	"testing"
	"time"

	"github.com/SahilKashid/FlashcardLM/pkg/models"
)

var importNow = time.Date(2025, 4, 2, 8, 0, 0, 0, time.UTC)

func TestCardFromRow(t *testing.T) {
	config := DefaultImportConfig()

	tests := []struct {
		name    string
		row     []string
		want    models.CardType
		wantErr bool
	}{
		{name: "basic with blank type", row: []string{"capital of France?", "Paris"}, want: models.CardTypeBasic},
		{name: "basic explicit", row: []string{"2+2", "4", "basic", "", "arithmetic"}, want: models.CardTypeBasic},
		{name: "cloze", row: []string{"The {{c1::mitochondria}} is the powerhouse", "", "cloze", "1"}, want: models.CardTypeCloze},
		{name: "basic missing back", row: []string{"front only"}, wantErr: true},
		{name: "cloze missing index", row: []string{"text {{c1::x}}", "", "cloze", ""}, wantErr: true},
		{name: "cloze zero index", row: []string{"text {{c1::x}}", "", "cloze", "0"}, wantErr: true},
		{name: "unknown type", row: []string{"a", "b", "image"}, wantErr: true},
		{name: "empty row", row: nil, wantErr: true},
	}

	for _, tt := range tests {
		card, err := CardFromRow(tt.row, config, 7, importNow)
		if tt.wantErr {
			if err == nil {
				t.Errorf("%s: expected error, got card %+v", tt.name, card)
			}
			continue
		}
		if err != nil {
			t.Errorf("%s: unexpected error: %v", tt.name, err)
			continue
		}
		if card.Type != tt.want {
			t.Errorf("%s: type = %s, want %s", tt.name, card.Type, tt.want)
		}
		if card.DeckID != 7 {
			t.Errorf("%s: deck = %d, want 7", tt.name, card.DeckID)
		}
		if card.EasinessFactor != 2.5 || card.Interval != 0 || card.Repetitions != 0 {
			t.Errorf("%s: imported card not given a fresh schedule: %+v", tt.name, card.ScheduleState)
		}
		if !card.DueAt.Equal(importNow) {
			t.Errorf("%s: imported card not due immediately", tt.name)
		}
	}
}

func TestCardFromRowClozeTextAndHint(t *testing.T) {
	config := DefaultImportConfig()
	row := []string{"Go was released in {{c2::2009}} by {{c1::Google}}", "", "cloze", "2", "language history"}

	card, err := CardFromRow(row, config, 1, importNow)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if card.ClozeText != row[0] {
		t.Fatalf("cloze text = %q", card.ClozeText)
	}
	if card.ClozeIndex != 2 {
		t.Fatalf("cloze index = %d, want 2", card.ClozeIndex)
	}
	if card.Hint != "language history" {
		t.Fatalf("hint = %q", card.Hint)
	}
}
