package spaced_repetition

import (
	"math"
	"time"

	"github.com/SahilKashid/FlashcardLM/pkg/models"
)

// Quality is a self-reported recall grade on the SM-2 0..5 scale.
// The study UI only ever sends Again/Hard/Good/Easy.
type Quality int

const (
	// Complete blackout, unable to recall
	QualityBlackout Quality = 0
	// Incorrect response, "again"
	QualityAgain Quality = 1
	// Incorrect response but the answer felt familiar
	QualityFamiliar Quality = 2
	// Correct response that required significant effort, "hard"
	QualityHard Quality = 3
	// Correct response after some hesitation, "good"
	QualityGood Quality = 4
	// Perfect response, "easy"
	QualityEasy Quality = 5
)

// PassThreshold is the lowest quality counted as a successful recall
const PassThreshold = QualityHard

// MinEasinessFactor is the floor the easiness factor is clamped to
const MinEasinessFactor = 1.3

// ComputeNextSchedule applies the SM-2 algorithm to the current schedule and
// returns the updated one. The easiness factor is recomputed on every review
// and clamped to 1.3; a passing review advances the repetition count and
// grows the interval (1 day, then 6, then interval * EF), a failing review
// resets both. The due date moves forward by whole calendar days from now.
// Always returns a valid state.
func ComputeNextSchedule(current models.ScheduleState, quality Quality, now time.Time) models.ScheduleState {
	next := current

	q := float64(quality)
	ef := current.EasinessFactor + (0.1 - (5.0-q)*(0.08+(5.0-q)*0.02))
	if ef < MinEasinessFactor {
		ef = MinEasinessFactor
	}
	next.EasinessFactor = ef

	if quality >= PassThreshold {
		switch current.Repetitions {
		case 0:
			next.Interval = 1
		case 1:
			next.Interval = 6
		default:
			next.Interval = int(math.Round(float64(current.Interval) * ef))
		}
		next.Repetitions = current.Repetitions + 1
	} else {
		next.Repetitions = 0
		next.Interval = 1
	}

	next.DueAt = now.AddDate(0, 0, next.Interval)
	return next
}
