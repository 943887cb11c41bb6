package excel

import (
	"fmt"

	"github.com/SahilKashid/FlashcardLM/internal/database"
	"github.com/SahilKashid/FlashcardLM/pkg/models"
	"github.com/xuri/excelize/v2"
)

// ExportDeck writes a deck's cards to an xlsx file in the same column
// layout the importer reads, so an exported deck round-trips.
func ExportDeck(deckID int64, filePath string) (int, error) {
	cardRepo := database.NewCardRepository()
	cards, err := cardRepo.GetByDeck(deckID)
	if err != nil {
		return 0, fmt.Errorf("failed to load deck: %v", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	sheet := "Sheet1"
	header := []interface{}{"Front", "Back", "Type", "Cloze Index", "Hint"}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return 0, fmt.Errorf("failed to write header: %v", err)
	}

	for i, card := range cards {
		front := card.Front
		var clozeIndex interface{}
		if card.Type == models.CardTypeCloze {
			front = card.ClozeText
			clozeIndex = card.ClozeIndex
		}
		row := []interface{}{front, card.Back, string(card.Type), clozeIndex, card.Hint}
		cell := fmt.Sprintf("A%d", i+2)
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return 0, fmt.Errorf("failed to write row %d: %v", i+2, err)
		}
	}

	if err := f.SaveAs(filePath); err != nil {
		return 0, fmt.Errorf("failed to save file: %v", err)
	}
	return len(cards), nil
}
