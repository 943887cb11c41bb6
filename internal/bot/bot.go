package bot

import (
	"context"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/SahilKashid/FlashcardLM/internal/ai"
	"github.com/SahilKashid/FlashcardLM/internal/database"
	"github.com/SahilKashid/FlashcardLM/internal/session"
	"github.com/SahilKashid/FlashcardLM/pkg/models"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// MenuButton represents a button in the menu
type MenuButton struct {
	Text         string
	CallbackData string
}

// createKeyboard creates a keyboard from menu buttons
func createKeyboard(buttons [][]MenuButton) tgbotapi.InlineKeyboardMarkup {
	var keyboard [][]tgbotapi.InlineKeyboardButton
	for _, row := range buttons {
		var keyboardRow []tgbotapi.InlineKeyboardButton
		for _, button := range row {
			keyboardRow = append(keyboardRow, tgbotapi.NewInlineKeyboardButtonData(button.Text, button.CallbackData))
		}
		keyboard = append(keyboard, keyboardRow)
	}
	return tgbotapi.NewInlineKeyboardMarkup(keyboard...)
}

// UserState represents the current state of a chat in conversation with the bot
type UserState struct {
	State     string
	Timestamp time.Time
	Data      map[string]interface{}
}

// studySession pairs a session engine with the deck it was built from, so
// store updates can be reconciled back into it.
type studySession struct {
	engine *session.Engine
	deckID int64
	mode   session.Mode
}

// Bot represents the Telegram bot application
type Bot struct {
	api           *tgbotapi.BotAPI
	cardRepo      *database.CardRepository
	deckRepo      *database.DeckRepository
	folderRepo    *database.FolderRepository
	progressRepo  *database.ProgressRepository
	chatGPT       *ai.ChatGPT
	openAiEnabled bool
	config        *BotConfig

	mu         sync.Mutex
	userStates map[int64]UserState
	sessions   map[int64]*studySession
}

// New creates a new bot instance
func New() (*Bot, error) {
	token := os.Getenv("TELEGRAM_BOT_TOKEN")
	if token == "" {
		return nil, fmt.Errorf("TELEGRAM_BOT_TOKEN environment variable is not set")
	}

	if database.DB == nil {
		return nil, fmt.Errorf("database connection is not established")
	}

	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot API: %v", err)
	}

	openAiEnabled := os.Getenv("OPENAI_API_KEY") != ""
	var chatGPT *ai.ChatGPT
	if openAiEnabled {
		chatGPT, err = ai.New()
		if err != nil {
			log.Printf("Warning: Unable to initialize OpenAI client: %v", err)
			openAiEnabled = false
		}
	}

	config := DefaultConfig()
	if ownerStr := os.Getenv("OWNER_CHAT_ID"); ownerStr != "" {
		id, err := strconv.ParseInt(strings.TrimSpace(ownerStr), 10, 64)
		if err != nil {
			log.Printf("Warning: Invalid OWNER_CHAT_ID: %s", ownerStr)
		} else {
			config.OwnerChatID = id
		}
	}

	return &Bot{
		api:           api,
		cardRepo:      database.NewCardRepository(),
		deckRepo:      database.NewDeckRepository(),
		folderRepo:    database.NewFolderRepository(),
		progressRepo:  database.NewProgressRepository(),
		chatGPT:       chatGPT,
		openAiEnabled: openAiEnabled,
		config:        config,
		userStates:    make(map[int64]UserState),
		sessions:      make(map[int64]*studySession),
	}, nil
}

// Start begins processing Telegram updates until the context is cancelled
func (b *Bot) Start(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30

	updates := b.api.GetUpdatesChan(u)
	log.Printf("Authorized on account %s", b.api.Self.UserName)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			b.handleUpdate(update)
		}
	}
}

// Stop shuts the update channel down
func (b *Bot) Stop(ctx context.Context) error {
	b.api.StopReceivingUpdates()
	return nil
}

// handleUpdate dispatches a single update
func (b *Bot) handleUpdate(update tgbotapi.Update) {
	switch {
	case update.CallbackQuery != nil:
		b.handleCallback(update.CallbackQuery)
	case update.Message != nil:
		if update.Message.IsCommand() {
			b.handleCommand(update.Message)
		} else if update.Message.Document != nil {
			b.handleDocument(update.Message)
		} else {
			b.handleText(update.Message)
		}
	}
}

// SendDueReminder implements the reminder scheduler's Notifier interface
func (b *Bot) SendDueReminder(count int) error {
	if b.config.OwnerChatID == 0 {
		return nil
	}
	text := fmt.Sprintf("📚 You have %d cards due for review. Send /study to start.", count)
	return b.send(b.config.OwnerChatID, text)
}

// session helpers

func (b *Bot) getSession(chatID int64) (*studySession, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	s, ok := b.sessions[chatID]
	return s, ok
}

func (b *Bot) setSession(chatID int64, s *studySession) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sessions[chatID] = s
}

func (b *Bot) dropSession(chatID int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.sessions, chatID)
}

// reconcileSessions pushes a deck's current card list into every live
// session built from it, so external edits show up mid-session.
func (b *Bot) reconcileSessions(deckID int64) {
	cards, err := b.cardRepo.GetByDeck(deckID)
	if err != nil {
		log.Printf("Error loading deck %d for reconcile: %v", deckID, err)
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	for _, s := range b.sessions {
		if s.deckID == deckID {
			s.engine.Reconcile(cards)
		}
	}
}

// user state helpers

func (b *Bot) getState(chatID int64) (UserState, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	s, ok := b.userStates[chatID]
	return s, ok
}

func (b *Bot) setState(chatID int64, state string, data map[string]interface{}) {
	if data == nil {
		data = make(map[string]interface{})
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.userStates[chatID] = UserState{State: state, Timestamp: time.Now(), Data: data}
}

func (b *Bot) clearState(chatID int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.userStates, chatID)
}

// send helpers

func (b *Bot) send(chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	_, err := b.api.Send(msg)
	if err != nil {
		log.Printf("Error sending message to %d: %v", chatID, err)
	}
	return err
}

func (b *Bot) sendWithKeyboard(chatID int64, text string, keyboard tgbotapi.InlineKeyboardMarkup) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = keyboard
	_, err := b.api.Send(msg)
	if err != nil {
		log.Printf("Error sending message to %d: %v", chatID, err)
	}
	return err
}

// cardStore adapts the repositories to the engine's CardStore interface
type cardStore struct {
	cards *database.CardRepository
}

func (s *cardStore) RequestCardUpdate(card models.Card) error {
	return s.cards.Update(&card)
}

func (s *cardStore) RequestCardDeletion(cardID int64) error {
	return s.cards.Delete(cardID)
}
