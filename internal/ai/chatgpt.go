package ai

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/SahilKashid/FlashcardLM/pkg/models"
)

// ChatGPT represents a client for the OpenAI ChatGPT API
type ChatGPT struct {
	apiKey      string
	apiURL      string
	maxTokens   int
	temperature float64
}

// New creates a new ChatGPT client
func New() (*ChatGPT, error) {
	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY environment variable is not set")
	}

	return &ChatGPT{
		apiKey:      apiKey,
		apiURL:      "https://api.openai.com/v1/chat/completions",
		maxTokens:   1200,
		temperature: 0.7,
	}, nil
}

// Message represents a message in the ChatGPT conversation
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest represents a request to the ChatGPT API
type ChatRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	MaxTokens   int       `json:"max_tokens"`
	Temperature float64   `json:"temperature"`
}

// ChatResponse represents a response from the ChatGPT API
type ChatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// cardDraft is the JSON shape the model is asked to produce
type cardDraft struct {
	Type       string `json:"type"`
	Front      string `json:"front"`
	Back       string `json:"back"`
	ClozeText  string `json:"cloze_text"`
	ClozeIndex int    `json:"cloze_index"`
	Hint       string `json:"hint"`
}

// GenerateCards asks the model for flashcard drafts on the given topic and
// returns them as unsaved cards for the target deck. Only basic and cloze
// drafts are requested; image-occlusion cards need an image and are always
// authored by hand.
func (c *ChatGPT) GenerateCards(topic string, count int, deckID int64) ([]models.Card, error) {
	if count < 1 {
		count = 1
	}
	if count > 20 {
		count = 20
	}

	prompt := fmt.Sprintf(
		"Create %d flashcards about the topic: %s.\n"+
			"Return ONLY a JSON array, no prose. Each element must be one of:\n"+
			"{\"type\":\"basic\",\"front\":\"question\",\"back\":\"answer\",\"hint\":\"optional\"}\n"+
			"{\"type\":\"cloze\",\"cloze_text\":\"text with a {{c1::hidden span}}\",\"cloze_index\":1}\n"+
			"Cloze cards may share one text with several numbered spans; emit one element per index.",
		count, topic,
	)

	messages := []Message{
		{Role: "system", Content: "You are a study assistant. You create concise, accurate flashcards and answer with strict JSON."},
		{Role: "user", Content: prompt},
	}

	request := ChatRequest{
		Model:       "gpt-3.5-turbo",
		Messages:    messages,
		MaxTokens:   c.maxTokens,
		Temperature: c.temperature,
	}

	requestData, err := json.Marshal(request)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %v", err)
	}

	req, err := http.NewRequest("POST", c.apiURL, bytes.NewBuffer(requestData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %v", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	client := &http.Client{}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %v", err)
	}
	defer resp.Body.Close()

	var response ChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, fmt.Errorf("failed to decode response: %v", err)
	}

	if response.Error != nil {
		return nil, fmt.Errorf("API error: %s", response.Error.Message)
	}

	if len(response.Choices) == 0 {
		return nil, fmt.Errorf("no response choices returned")
	}

	content := strings.TrimSpace(response.Choices[0].Message.Content)
	return parseDrafts(content, deckID)
}

// parseDrafts converts the model's JSON output into cards. Drafts the
// model got wrong (unknown type, missing fields) are skipped rather than
// failing the whole batch.
func parseDrafts(content string, deckID int64) ([]models.Card, error) {
	// Models sometimes wrap JSON in a markdown fence despite instructions
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")
	content = strings.TrimSpace(content)

	var drafts []cardDraft
	if err := json.Unmarshal([]byte(content), &drafts); err != nil {
		return nil, fmt.Errorf("failed to parse generated cards: %v", err)
	}

	now := time.Now()
	cards := make([]models.Card, 0, len(drafts))
	for _, d := range drafts {
		card := models.Card{
			DeckID:        deckID,
			Hint:          strings.TrimSpace(d.Hint),
			ScheduleState: models.NewScheduleState(now),
		}
		switch d.Type {
		case "basic":
			if d.Front == "" || d.Back == "" {
				continue
			}
			card.Type = models.CardTypeBasic
			card.Front = strings.TrimSpace(d.Front)
			card.Back = strings.TrimSpace(d.Back)
		case "cloze":
			if d.ClozeText == "" || d.ClozeIndex < 1 {
				continue
			}
			card.Type = models.CardTypeCloze
			card.ClozeText = strings.TrimSpace(d.ClozeText)
			card.ClozeIndex = d.ClozeIndex
		default:
			continue
		}
		cards = append(cards, card)
	}

	if len(cards) == 0 {
		return nil, fmt.Errorf("no usable cards in generated output")
	}
	return cards, nil
}
