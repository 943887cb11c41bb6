package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/SahilKashid/FlashcardLM/internal/bot"
	"github.com/SahilKashid/FlashcardLM/internal/database"
	"github.com/SahilKashid/FlashcardLM/internal/scheduler"
	"github.com/joho/godotenv"
)

func main() {
	// .env is optional; real deployments set the environment directly
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := database.Connect(); err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close()

	b, err := bot.New()
	if err != nil {
		log.Fatalf("Failed to create bot: %v", err)
	}

	// Due-card reminder loop
	var reminders *scheduler.Scheduler
	if os.Getenv("ENABLE_REMINDERS") != "false" {
		reminders = scheduler.New(b)
		reminders.Start()
		defer reminders.Stop()
	}

	done := make(chan struct{})

	go func() {
		sig := <-sigChan
		log.Printf("Received signal: %v\n", sig)
		cancel()

		if err := b.Stop(context.Background()); err != nil {
			log.Printf("Error during shutdown: %v", err)
		}

		close(done)
	}()

	log.Println("Bot started. Press Ctrl+C to stop.")
	go func() {
		if err := b.Start(ctx); err != nil && err != context.Canceled {
			log.Printf("Bot error: %v", err)
		}
	}()

	<-done
	log.Println("Bot stopped successfully")
}
