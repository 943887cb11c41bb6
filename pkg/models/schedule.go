package models

import "time"

// ScheduleState holds the SM-2 scheduling data for a single card
type ScheduleState struct {
	Interval       int       `json:"interval" db:"interval"`                 // Current interval in days
	Repetitions    int       `json:"repetitions" db:"repetitions"`           // Number of consecutive passing reviews
	EasinessFactor float64   `json:"easiness_factor" db:"easiness_factor"`   // SM-2 EF parameter, never below 1.3
	DueAt          time.Time `json:"due_at" db:"due_at"`                     // When the card is next due for review
}

// NewScheduleState returns the schedule for a freshly created card:
// due immediately, default easiness factor.
func NewScheduleState(now time.Time) ScheduleState {
	return ScheduleState{
		Interval:       0,
		Repetitions:    0,
		EasinessFactor: 2.5,
		DueAt:          now,
	}
}

// IsDue reports whether the card should be reviewed at the given time.
func (s ScheduleState) IsDue(now time.Time) bool {
	return !s.DueAt.After(now)
}
