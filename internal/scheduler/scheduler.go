package scheduler

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/SahilKashid/FlashcardLM/internal/database"
	"github.com/go-co-op/gocron"
)

// Default notification window
const (
	DefaultNotificationStartHour = 8
	DefaultNotificationEndHour   = 22
)

// Scheduler manages scheduled tasks for the application
type Scheduler struct {
	scheduler *gocron.Scheduler
	notifier  Notifier
}

// Notifier interface for sending due-card reminders
type Notifier interface {
	SendDueReminder(count int) error
}

// New creates a new scheduler instance
func New(notifier Notifier) *Scheduler {
	s := gocron.NewScheduler(time.Local)
	return &Scheduler{
		scheduler: s,
		notifier:  notifier,
	}
}

// Start begins running all scheduled tasks
func (s *Scheduler) Start() {
	// Schedule hourly check for due cards
	s.scheduler.Every(1).Hour().Do(s.checkAndSendReminder)

	// Start the scheduler in a non-blocking manner
	s.scheduler.StartAsync()
}

// Stop terminates all scheduled tasks
func (s *Scheduler) Stop() {
	s.scheduler.Stop()
}

// checkAndSendReminder counts due cards and pings the notifier when the
// current hour is inside the notification window
func (s *Scheduler) checkAndSendReminder() {
	currentHour := time.Now().Hour()

	startHour := DefaultNotificationStartHour
	endHour := DefaultNotificationEndHour

	if startHourStr := os.Getenv("NOTIFICATION_START_HOUR"); startHourStr != "" {
		if h, err := strconv.Atoi(startHourStr); err == nil && h >= 0 && h <= 23 {
			startHour = h
		}
	}

	if endHourStr := os.Getenv("NOTIFICATION_END_HOUR"); endHourStr != "" {
		if h, err := strconv.Atoi(endHourStr); err == nil && h >= 0 && h <= 23 {
			endHour = h
		}
	}

	if currentHour < startHour || currentHour > endHour {
		log.Printf("Current hour %d is outside notification hours (%d-%d), skipping reminder",
			currentHour, startHour, endHour)
		return
	}

	cardRepo := database.NewCardRepository()
	due, err := cardRepo.CountDue(time.Now())
	if err != nil {
		log.Printf("Error counting due cards: %v", err)
		return
	}

	if due > 0 {
		if err := s.notifier.SendDueReminder(due); err != nil {
			log.Printf("Error sending due reminder: %v", err)
		}
	}
}

// RunManualCheck forces an immediate due-card check
func (s *Scheduler) RunManualCheck() error {
	cardRepo := database.NewCardRepository()
	due, err := cardRepo.CountDue(time.Now())
	if err != nil {
		return err
	}

	if due > 0 {
		return s.notifier.SendDueReminder(due)
	}
	return nil
}
