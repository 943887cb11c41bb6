package bot

import (
	"fmt"
	"log"
	"strconv"
	"strings"

	"github.com/SahilKashid/FlashcardLM/internal/session"
	"github.com/SahilKashid/FlashcardLM/internal/spaced_repetition"
	"github.com/SahilKashid/FlashcardLM/pkg/models"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// SessionKey derives the progress-store key for a deck and study mode.
// The engine treats it as opaque.
func SessionKey(deckID int64, mode session.Mode) string {
	return fmt.Sprintf("%d:%s", deckID, mode)
}

// startStudy builds (or resumes) a session for a deck and shows the first card
func (b *Bot) startStudy(chatID int64, deckID int64, mode session.Mode) {
	deck, err := b.deckRepo.GetByID(deckID)
	if err != nil {
		b.send(chatID, "Deck not found.")
		return
	}

	cards, err := b.cardRepo.GetByDeck(deckID)
	if err != nil {
		log.Printf("Error loading cards for deck %d: %v", deckID, err)
		b.send(chatID, "Could not load the deck, try again.")
		return
	}

	engine := session.New(SessionKey(deckID, mode), &cardStore{cards: b.cardRepo}, b.progressRepo)
	engine.Initialize(cards, mode)
	b.setSession(chatID, &studySession{engine: engine, deckID: deckID, mode: mode})

	switch {
	case engine.DeckEmpty():
		b.send(chatID, fmt.Sprintf("“%s” has no cards yet. Create your first card with /newcard or /import.", deck.Name))
	case engine.NothingDue():
		b.send(chatID, fmt.Sprintf("Nothing due in “%s” right now — you're caught up! Use /cram to review everything anyway.", deck.Name))
	default:
		b.sendCurrentCard(chatID)
	}
}

// sendCurrentCard renders the current card with the study keyboard
func (b *Bot) sendCurrentCard(chatID int64) {
	s, ok := b.getSession(chatID)
	if !ok {
		b.send(chatID, "No study session is active. Send /study to start one.")
		return
	}

	engine := s.engine
	card, ok := engine.Current()
	if !ok {
		b.sendSessionDone(chatID)
		return
	}

	var text strings.Builder
	text.WriteString(fmt.Sprintf("Card %d of %d\n\n", engine.Position()+1, engine.Len()))

	if engine.Revealed() {
		text.WriteString(renderFront(card))
		text.WriteString("\n\n———\n\n")
		text.WriteString(renderBack(card))
		if card.Hint != "" {
			text.WriteString("\n\n💡 " + card.Hint)
		}
		b.sendWithKeyboard(chatID, text.String(), gradeKeyboard())
		return
	}

	text.WriteString(renderFront(card))
	b.sendWithKeyboard(chatID, text.String(), questionKeyboard(engine, card))
}

// questionKeyboard builds the navigation keyboard for an unrevealed card
func questionKeyboard(engine *session.Engine, card models.Card) tgbotapi.InlineKeyboardMarkup {
	rows := [][]MenuButton{
		{{Text: "👁 Reveal", CallbackData: "study:reveal"}},
	}

	// Per-rectangle disclosure for image-occlusion cards
	if card.Type == models.CardTypeImageOcclusion {
		var regionRow []MenuButton
		for _, rect := range card.Occlusions {
			label := rect.Label
			if label == "" {
				label = fmt.Sprintf("region %d", rect.ID)
			}
			if engine.RegionShown(rect.ID) {
				label = "✅ " + label
			}
			regionRow = append(regionRow, MenuButton{
				Text:         label,
				CallbackData: fmt.Sprintf("study:region:%d", rect.ID),
			})
			if len(regionRow) == 3 {
				rows = append(rows, regionRow)
				regionRow = nil
			}
		}
		if len(regionRow) > 0 {
			rows = append(rows, regionRow)
		}
	}

	rows = append(rows, []MenuButton{
		{Text: "◀️ Prev", CallbackData: "study:prev"},
		{Text: "Next ▶️", CallbackData: "study:next"},
	})

	shuffle := MenuButton{Text: "🔀 Shuffle", CallbackData: "study:shuffle:on"}
	if engine.Shuffled() {
		shuffle = MenuButton{Text: "➡️ In order", CallbackData: "study:shuffle:off"}
	}
	rows = append(rows, []MenuButton{
		shuffle,
		{Text: "🗑 Delete", CallbackData: "study:delete"},
	})

	// Direct seek across the queue
	rows = append(rows, []MenuButton{
		{Text: "⏮", CallbackData: "study:jump:0"},
		{Text: "¼", CallbackData: "study:jump:25"},
		{Text: "½", CallbackData: "study:jump:50"},
		{Text: "¾", CallbackData: "study:jump:75"},
		{Text: "⏭", CallbackData: "study:jump:100"},
	})

	return createKeyboard(rows)
}

func gradeKeyboard() tgbotapi.InlineKeyboardMarkup {
	return createKeyboard([][]MenuButton{
		{
			{Text: "🔁 Again", CallbackData: "study:grade:1"},
			{Text: "😬 Hard", CallbackData: "study:grade:3"},
			{Text: "🙂 Good", CallbackData: "study:grade:4"},
			{Text: "😎 Easy", CallbackData: "study:grade:5"},
		},
		{
			{Text: "◀️ Prev", CallbackData: "study:prev"},
			{Text: "Next ▶️", CallbackData: "study:next"},
		},
	})
}

// handleStudyCallback routes "study:*" callback data to the engine
func (b *Bot) handleStudyCallback(chatID int64, data string) {
	s, ok := b.getSession(chatID)
	if !ok {
		b.send(chatID, "No study session is active. Send /study to start one.")
		return
	}
	engine := s.engine

	parts := strings.Split(data, ":")
	action := parts[1]

	switch action {
	case "reveal":
		engine.Reveal()

	case "region":
		if len(parts) < 3 {
			return
		}
		rectID, err := strconv.ParseInt(parts[2], 10, 64)
		if err != nil {
			return
		}
		engine.RevealRegion(rectID)

	case "grade":
		if len(parts) < 3 {
			return
		}
		q, err := strconv.Atoi(parts[2])
		if err != nil {
			return
		}
		if completed := engine.Grade(spaced_repetition.Quality(q)); completed {
			b.sendSessionDone(chatID)
			return
		}

	case "next":
		engine.Advance(session.Next)

	case "prev":
		engine.Advance(session.Previous)

	case "jump":
		if len(parts) < 3 {
			return
		}
		percent, err := strconv.Atoi(parts[2])
		if err != nil {
			return
		}
		engine.JumpTo(float64(percent) / 100)

	case "shuffle":
		if len(parts) < 3 {
			return
		}
		engine.SetShuffle(parts[2] == "on")

	case "delete":
		engine.Delete()
		if engine.Exhausted() {
			b.sendSessionDone(chatID)
			return
		}

	case "restart":
		engine.Restart()
		b.dropSession(chatID)
		b.startStudy(chatID, s.deckID, s.mode)
		return

	default:
		return
	}

	b.sendCurrentCard(chatID)
}

// sendSessionDone congratulates the learner when the queue is finished
func (b *Bot) sendSessionDone(chatID int64) {
	keyboard := createKeyboard([][]MenuButton{
		{{Text: "🔄 Study again", CallbackData: "study:restart"}},
	})
	b.sendWithKeyboard(chatID, "🎉 Session complete! Every card has been reviewed.", keyboard)
}
