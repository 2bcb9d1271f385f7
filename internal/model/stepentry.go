package model

import "time"

// StepEntry records a number of steps a user logged for one calendar day.
//
// Date carries no time-of-day component — it is always midnight UTC, and all
// comparisons are date-only. A user may log several entries for the same day;
// the statistics aggregator sums them, so there is no uniqueness on
// (user_id, date).
type StepEntry struct {
	ID        string    `json:"id"        db:"id"`
	UserID    string    `json:"userId"    db:"user_id"`
	Date      time.Time `json:"date"      db:"date"`
	Steps     int       `json:"steps"     db:"steps"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}

// Day truncates t to its calendar day in UTC. Every StepEntry.Date and every
// date comparison in the service layer goes through this, so "same day" is
// never confused by time zones or times of day.
func Day(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
