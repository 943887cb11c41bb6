package excel

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/SahilKashid/FlashcardLM/internal/database"
	"github.com/SahilKashid/FlashcardLM/pkg/models"
	"github.com/xuri/excelize/v2"
)

// ImportConfig defines the import configuration
type ImportConfig struct {
	FilePath         string // Path to the Excel or CSV file
	FrontColumn      string // Column with the front / question text
	BackColumn       string // Column with the back / answer text
	TypeColumn       string // Column with the card type (defaults to basic when blank)
	ClozeIndexColumn string // Column with the cloze deletion index
	HintColumn       string // Column with the optional hint
	SheetName        string // Name of the sheet to import
	StartRow         int    // The row to start importing from (1-based index)
}

// DefaultImportConfig returns the default import configuration
func DefaultImportConfig() ImportConfig {
	return ImportConfig{
		FrontColumn:      "A",
		BackColumn:       "B",
		TypeColumn:       "C",
		ClozeIndexColumn: "D",
		HintColumn:       "E",
		SheetName:        "Sheet1",
		StartRow:         2, // By default, start from the second row (skip header)
	}
}

// ImportResult holds the result of an import operation
type ImportResult struct {
	TotalProcessed int
	Created        int
	Skipped        int
	Errors         []string
}

// ImportCards imports cards into a deck from an Excel or CSV file
func ImportCards(config ImportConfig, deckID int64) (*ImportResult, error) {
	ext := strings.ToLower(filepath.Ext(config.FilePath))

	if ext == ".csv" {
		return importFromCSV(config, deckID)
	}

	return importFromExcel(config, deckID)
}

// importFromExcel imports cards from an Excel file
func importFromExcel(config ImportConfig, deckID int64) (*ImportResult, error) {
	f, err := excelize.OpenFile(config.FilePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel file: %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows(config.SheetName)
	if err != nil {
		return nil, fmt.Errorf("failed to get rows: %v", err)
	}

	return importRows(rows, config, deckID)
}

// importFromCSV imports cards from a CSV file
func importFromCSV(config ImportConfig, deckID int64) (*ImportResult, error) {
	file, err := os.Open(config.FilePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open CSV file: %v", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1 // rows may have trailing blanks trimmed

	var rows [][]string
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read CSV: %v", err)
		}
		rows = append(rows, record)
	}

	return importRows(rows, config, deckID)
}

// importRows runs the shared row loop over spreadsheet or CSV rows
func importRows(rows [][]string, config ImportConfig, deckID int64) (*ImportResult, error) {
	cardRepo := database.NewCardRepository()
	result := &ImportResult{Errors: make([]string, 0)}
	now := time.Now()

	for i, row := range rows {
		// Skip header rows
		if i < config.StartRow-1 {
			continue
		}

		result.TotalProcessed++

		card, err := CardFromRow(row, config, deckID, now)
		if err != nil {
			result.Skipped++
			result.Errors = append(result.Errors, fmt.Sprintf("Row %d: %v", i+1, err))
			continue
		}

		if err := cardRepo.Create(&card); err != nil {
			result.Skipped++
			result.Errors = append(result.Errors, fmt.Sprintf("Row %d: %v", i+1, err))
			continue
		}
		result.Created++
	}

	return result, nil
}

// CardFromRow builds an unscheduled card from one spreadsheet row.
// Blank type means basic; cloze rows take their text from the front column.
func CardFromRow(row []string, config ImportConfig, deckID int64, now time.Time) (models.Card, error) {
	front := strings.TrimSpace(cellValue(row, config.FrontColumn))
	back := strings.TrimSpace(cellValue(row, config.BackColumn))
	cardType := strings.ToLower(strings.TrimSpace(cellValue(row, config.TypeColumn)))
	hint := strings.TrimSpace(cellValue(row, config.HintColumn))

	card := models.Card{
		DeckID:        deckID,
		Hint:          hint,
		ScheduleState: models.NewScheduleState(now),
	}

	switch cardType {
	case "", "basic":
		if front == "" || back == "" {
			return models.Card{}, fmt.Errorf("basic card needs both front and back")
		}
		card.Type = models.CardTypeBasic
		card.Front = front
		card.Back = back
	case "cloze":
		if front == "" {
			return models.Card{}, fmt.Errorf("cloze card needs text")
		}
		indexStr := strings.TrimSpace(cellValue(row, config.ClozeIndexColumn))
		index, err := strconv.Atoi(indexStr)
		if err != nil || index < 1 {
			return models.Card{}, fmt.Errorf("invalid cloze index %q", indexStr)
		}
		card.Type = models.CardTypeCloze
		card.ClozeText = front
		card.ClozeIndex = index
	default:
		return models.Card{}, fmt.Errorf("unknown card type %q", cardType)
	}

	return card, nil
}

// cellValue reads a row cell by its column letter, tolerating short rows
func cellValue(row []string, column string) string {
	if column == "" {
		return ""
	}
	idx, err := excelize.ColumnNameToNumber(column)
	if err != nil || idx < 1 || idx > len(row) {
		return ""
	}
	return row[idx-1]
}
