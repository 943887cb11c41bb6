package bot

import (
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/SahilKashid/FlashcardLM/internal/excel"
	"github.com/SahilKashid/FlashcardLM/internal/session"
	"github.com/SahilKashid/FlashcardLM/pkg/models"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const helpText = `FlashcardLM commands:
/decks — list decks and folders
/newdeck — create a deck
/newfolder — create a folder
/newcard — add a card to a deck
/study — review due cards in a deck
/cram — review every card in a deck
/import — import cards from xlsx or csv
/export — export a deck to xlsx
/generate — AI-generate cards for a deck
/stats — card counts per deck
/cancel — abandon the current dialog`

// handleCommand handles slash commands
func (b *Bot) handleCommand(message *tgbotapi.Message) {
	chatID := message.Chat.ID

	switch message.Command() {
	case "start":
		b.clearState(chatID)
		b.send(chatID, "Welcome to FlashcardLM! 🧠\n\n"+helpText)

	case "help":
		b.send(chatID, helpText)

	case "cancel":
		b.clearState(chatID)
		b.send(chatID, "Okay, cancelled.")

	case "decks":
		b.sendDeckList(chatID)

	case "newdeck":
		b.setState(chatID, "awaiting_deck_name", nil)
		b.send(chatID, "What should the new deck be called?")

	case "newfolder":
		b.setState(chatID, "awaiting_folder_name", nil)
		b.send(chatID, "What should the new folder be called?")

	case "newcard":
		b.sendDeckPicker(chatID, "newcard_deck", "Which deck should the card go into?")

	case "study":
		b.sendDeckPicker(chatID, "study_deck", "Which deck do you want to study?")

	case "cram":
		b.sendDeckPicker(chatID, "cram_deck", "Which deck do you want to cram?")

	case "import":
		b.sendDeckPicker(chatID, "import_deck", "Which deck should the cards be imported into?")

	case "export":
		b.sendDeckPicker(chatID, "export_deck", "Which deck do you want to export?")

	case "generate":
		if !b.openAiEnabled {
			b.send(chatID, "AI generation is not configured (OPENAI_API_KEY is missing).")
			return
		}
		b.sendDeckPicker(chatID, "gen_deck", "Which deck should the generated cards go into?")

	case "stats":
		b.sendStats(chatID)

	default:
		b.send(chatID, "Unknown command. "+helpText)
	}
}

// handleText handles free-form text according to the chat's dialog state
func (b *Bot) handleText(message *tgbotapi.Message) {
	chatID := message.Chat.ID
	text := strings.TrimSpace(message.Text)

	state, ok := b.getState(chatID)
	if !ok {
		b.send(chatID, "Send /help to see what I can do.")
		return
	}

	switch state.State {
	case "awaiting_deck_name":
		b.clearState(chatID)
		if text == "" {
			b.send(chatID, "A deck needs a name. Try /newdeck again.")
			return
		}
		deck := &models.Deck{Name: text}
		if err := b.deckRepo.Create(deck); err != nil {
			log.Printf("Error creating deck: %v", err)
			b.send(chatID, "Could not create the deck — maybe the name is taken?")
			return
		}
		b.send(chatID, fmt.Sprintf("Deck “%s” created. Add cards with /newcard.", deck.Name))

	case "awaiting_folder_name":
		b.clearState(chatID)
		if text == "" {
			b.send(chatID, "A folder needs a name. Try /newfolder again.")
			return
		}
		folder := &models.Folder{Name: text}
		if err := b.folderRepo.Create(folder); err != nil {
			log.Printf("Error creating folder: %v", err)
			b.send(chatID, "Could not create the folder — maybe the name is taken?")
			return
		}
		b.send(chatID, fmt.Sprintf("Folder “%s” created.", folder.Name))

	case "awaiting_card":
		deckID, _ := state.Data["deck_id"].(int64)
		created, err := b.createCardsFromText(deckID, text)
		if err != nil {
			b.send(chatID, err.Error())
			return
		}
		b.clearState(chatID)
		b.reconcileSessions(deckID)
		if created == 1 {
			b.send(chatID, "Card added. Send /newcard to add another, or /study to review.")
		} else {
			b.send(chatID, fmt.Sprintf("%d cloze cards added, one per deletion index.", created))
		}

	case "awaiting_generate":
		b.clearState(chatID)
		deckID, _ := state.Data["deck_id"].(int64)
		b.generateCards(chatID, deckID, text)

	default:
		b.clearState(chatID)
		b.send(chatID, "Send /help to see what I can do.")
	}
}

// createCardsFromText parses the /newcard input format:
// "Front | Back" creates a basic card; a message containing {{cN::...}}
// spans creates one cloze card per distinct index.
func (b *Bot) createCardsFromText(deckID int64, text string) (int, error) {
	now := time.Now()

	if indexes := ClozeIndexes(text); len(indexes) > 0 {
		for _, index := range indexes {
			card := models.Card{
				DeckID:        deckID,
				Type:          models.CardTypeCloze,
				ClozeText:     text,
				ClozeIndex:    index,
				ScheduleState: models.NewScheduleState(now),
			}
			if err := b.cardRepo.Create(&card); err != nil {
				log.Printf("Error creating cloze card: %v", err)
				return 0, fmt.Errorf("could not save the card, try again")
			}
		}
		return len(indexes), nil
	}

	parts := strings.SplitN(text, "|", 2)
	if len(parts) != 2 || strings.TrimSpace(parts[0]) == "" || strings.TrimSpace(parts[1]) == "" {
		return 0, fmt.Errorf("send the card as “Front | Back”, or cloze text with {{c1::hidden}} spans")
	}

	card := models.Card{
		DeckID:        deckID,
		Type:          models.CardTypeBasic,
		Front:         strings.TrimSpace(parts[0]),
		Back:          strings.TrimSpace(parts[1]),
		ScheduleState: models.NewScheduleState(now),
	}
	if err := b.cardRepo.Create(&card); err != nil {
		log.Printf("Error creating card: %v", err)
		return 0, fmt.Errorf("could not save the card, try again")
	}
	return 1, nil
}

// generateCards asks the AI client for drafts and saves them
func (b *Bot) generateCards(chatID int64, deckID int64, request string) {
	topic := request
	count := b.config.DefaultGenerateCount

	// Optional "topic | count" form
	if parts := strings.SplitN(request, "|", 2); len(parts) == 2 {
		topic = strings.TrimSpace(parts[0])
		if n, err := strconv.Atoi(strings.TrimSpace(parts[1])); err == nil && n > 0 {
			count = n
		}
	}
	if count > b.config.MaxGenerateCount {
		count = b.config.MaxGenerateCount
	}
	if topic == "" {
		b.send(chatID, "Tell me a topic, e.g. “photosynthesis | 8”.")
		return
	}

	b.send(chatID, fmt.Sprintf("Generating %d cards about “%s”…", count, topic))

	cards, err := b.chatGPT.GenerateCards(topic, count, deckID)
	if err != nil {
		log.Printf("Error generating cards: %v", err)
		b.send(chatID, "Generation failed, try again later.")
		return
	}

	created := 0
	for i := range cards {
		if err := b.cardRepo.Create(&cards[i]); err != nil {
			log.Printf("Error saving generated card: %v", err)
			continue
		}
		created++
	}

	b.reconcileSessions(deckID)
	b.send(chatID, fmt.Sprintf("Added %d generated cards. Review them with /cram before trusting them!", created))
}

// handleDocument handles an uploaded spreadsheet during an import dialog
func (b *Bot) handleDocument(message *tgbotapi.Message) {
	chatID := message.Chat.ID

	state, ok := b.getState(chatID)
	if !ok || state.State != "awaiting_import" {
		b.send(chatID, "Use /import first to pick a deck, then send the file.")
		return
	}
	deckID, _ := state.Data["deck_id"].(int64)
	b.clearState(chatID)

	url, err := b.api.GetFileDirectURL(message.Document.FileID)
	if err != nil {
		log.Printf("Error resolving file URL: %v", err)
		b.send(chatID, "Could not download the file, try again.")
		return
	}

	localPath, err := downloadFile(url, message.Document.FileName)
	if err != nil {
		log.Printf("Error downloading import file: %v", err)
		b.send(chatID, "Could not download the file, try again.")
		return
	}
	defer os.Remove(localPath)

	config := excel.DefaultImportConfig()
	config.FilePath = localPath

	result, err := excel.ImportCards(config, deckID)
	if err != nil {
		log.Printf("Error importing cards: %v", err)
		b.send(chatID, "Import failed: "+err.Error())
		return
	}

	b.reconcileSessions(deckID)

	summary := fmt.Sprintf("Import finished: %d rows processed, %d cards created, %d skipped.",
		result.TotalProcessed, result.Created, result.Skipped)
	if len(result.Errors) > 0 {
		max := len(result.Errors)
		if max > 5 {
			max = 5
		}
		summary += "\n" + strings.Join(result.Errors[:max], "\n")
	}
	b.send(chatID, summary)
}

// downloadFile fetches a Telegram file into data/imports
func downloadFile(url, name string) (string, error) {
	dir := filepath.Join("data", "imports")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create import directory: %v", err)
	}

	resp, err := http.Get(url)
	if err != nil {
		return "", fmt.Errorf("failed to fetch file: %v", err)
	}
	defer resp.Body.Close()

	path := filepath.Join(dir, fmt.Sprintf("%d_%s", time.Now().UnixNano(), filepath.Base(name)))
	out, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create file: %v", err)
	}
	defer out.Close()

	if _, err := io.Copy(out, resp.Body); err != nil {
		return "", fmt.Errorf("failed to write file: %v", err)
	}
	return path, nil
}

// handleCallback routes inline-keyboard presses
func (b *Bot) handleCallback(callback *tgbotapi.CallbackQuery) {
	chatID := callback.Message.Chat.ID
	data := callback.Data

	// Acknowledge so the button stops spinning
	if _, err := b.api.Request(tgbotapi.NewCallback(callback.ID, "")); err != nil {
		log.Printf("Error acknowledging callback: %v", err)
	}

	if strings.HasPrefix(data, "study:") {
		b.handleStudyCallback(chatID, data)
		return
	}

	prefix, deckID, ok := ParseDeckCallback(data)
	if !ok {
		return
	}

	switch prefix {
	case "study_deck":
		b.startStudy(chatID, deckID, session.ModeStandard)
	case "cram_deck":
		b.startStudy(chatID, deckID, session.ModeCram)
	case "newcard_deck":
		b.setState(chatID, "awaiting_card", map[string]interface{}{"deck_id": deckID})
		b.send(chatID, "Send the card as “Front | Back”, or cloze text with {{c1::hidden}} spans.")
	case "gen_deck":
		b.setState(chatID, "awaiting_generate", map[string]interface{}{"deck_id": deckID})
		b.send(chatID, "What topic? Optionally add a count: “ancient Rome | 10”.")
	case "import_deck":
		b.setState(chatID, "awaiting_import", map[string]interface{}{"deck_id": deckID})
		b.send(chatID, "Send me the .xlsx or .csv file. Columns: Front, Back, Type, Cloze Index, Hint.")
	case "export_deck":
		b.exportDeck(chatID, deckID)
	}
}

// ParseDeckCallback splits "<prefix>:<deckID>" callback data
func ParseDeckCallback(data string) (prefix string, deckID int64, ok bool) {
	idx := strings.LastIndex(data, ":")
	if idx < 0 {
		return "", 0, false
	}
	id, err := strconv.ParseInt(data[idx+1:], 10, 64)
	if err != nil {
		return "", 0, false
	}
	return data[:idx], id, true
}

// exportDeck writes the deck to a temp xlsx and sends it as a document
func (b *Bot) exportDeck(chatID int64, deckID int64) {
	deck, err := b.deckRepo.GetByID(deckID)
	if err != nil {
		b.send(chatID, "Deck not found.")
		return
	}

	dir := filepath.Join("data", "exports")
	if err := os.MkdirAll(dir, 0755); err != nil {
		log.Printf("Error creating export directory: %v", err)
		b.send(chatID, "Export failed, try again.")
		return
	}

	path := filepath.Join(dir, fmt.Sprintf("%s.xlsx", strings.ReplaceAll(deck.Name, " ", "_")))
	count, err := excel.ExportDeck(deckID, path)
	if err != nil {
		log.Printf("Error exporting deck %d: %v", deckID, err)
		b.send(chatID, "Export failed, try again.")
		return
	}
	defer os.Remove(path)

	doc := tgbotapi.NewDocument(chatID, tgbotapi.FilePath(path))
	doc.Caption = fmt.Sprintf("“%s” — %d cards", deck.Name, count)
	if _, err := b.api.Send(doc); err != nil {
		log.Printf("Error sending export: %v", err)
		b.send(chatID, "Export failed, try again.")
	}
}

// sendDeckList shows the library grouped by folder
func (b *Bot) sendDeckList(chatID int64) {
	decks, err := b.deckRepo.GetAll()
	if err != nil {
		log.Printf("Error loading decks: %v", err)
		b.send(chatID, "Could not load decks, try again.")
		return
	}
	if len(decks) == 0 {
		b.send(chatID, "No decks yet. Create one with /newdeck.")
		return
	}

	folders, err := b.folderRepo.GetAll()
	if err != nil {
		log.Printf("Error loading folders: %v", err)
		b.send(chatID, "Could not load folders, try again.")
		return
	}
	folderNames := make(map[int64]string, len(folders))
	for _, f := range folders {
		folderNames[f.ID] = f.Name
	}

	grouped := make(map[string][]models.Deck)
	for _, d := range decks {
		group := "Unfiled"
		if d.FolderID.Valid {
			if name, ok := folderNames[d.FolderID.Int64]; ok {
				group = name
			}
		}
		grouped[group] = append(grouped[group], d)
	}

	groups := make([]string, 0, len(grouped))
	for g := range grouped {
		groups = append(groups, g)
	}
	sort.Strings(groups)

	var text strings.Builder
	for _, g := range groups {
		text.WriteString("📁 " + g + "\n")
		for _, d := range grouped[g] {
			text.WriteString("   • " + d.Name + "\n")
		}
	}
	text.WriteString("\nStart with /study or /cram.")
	b.send(chatID, text.String())
}

// sendDeckPicker shows one button per deck with the given callback prefix
func (b *Bot) sendDeckPicker(chatID int64, prefix, prompt string) {
	decks, err := b.deckRepo.GetAll()
	if err != nil {
		log.Printf("Error loading decks: %v", err)
		b.send(chatID, "Could not load decks, try again.")
		return
	}
	if len(decks) == 0 {
		b.send(chatID, "No decks yet. Create one with /newdeck.")
		return
	}

	var rows [][]MenuButton
	for _, deck := range decks {
		rows = append(rows, []MenuButton{{
			Text:         deck.Name,
			CallbackData: fmt.Sprintf("%s:%d", prefix, deck.ID),
		}})
	}
	b.sendWithKeyboard(chatID, prompt, createKeyboard(rows))
}

// sendStats reports total and due card counts per deck
func (b *Bot) sendStats(chatID int64) {
	decks, err := b.deckRepo.GetAll()
	if err != nil {
		log.Printf("Error loading decks: %v", err)
		b.send(chatID, "Could not load decks, try again.")
		return
	}
	if len(decks) == 0 {
		b.send(chatID, "No decks yet. Create one with /newdeck.")
		return
	}

	now := time.Now()
	var text strings.Builder
	text.WriteString("📊 Your decks:\n")
	for _, deck := range decks {
		total, due, err := b.cardRepo.CountByDeck(deck.ID, now)
		if err != nil {
			log.Printf("Error counting cards for deck %d: %v", deck.ID, err)
			continue
		}
		text.WriteString(fmt.Sprintf("• %s — %d cards, %d due\n", deck.Name, total, due))
	}
	b.send(chatID, text.String())
}
