package bot

// BotConfig represents the configuration for the bot
type BotConfig struct {
	// Chat that receives due-card reminders
	OwnerChatID int64
	// Default number of cards requested from the AI generator
	DefaultGenerateCount int
	// Largest AI generation batch a single command may request
	MaxGenerateCount int
}

// DefaultConfig returns the default bot configuration
func DefaultConfig() *BotConfig {
	return &BotConfig{
		DefaultGenerateCount: 5,
		MaxGenerateCount:     20,
	}
}
