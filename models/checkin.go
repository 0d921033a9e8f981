package models

import "time"

// CheckInRecord stores one daily reflection per (user, calendar date). The
// date key is immutable; edits overwrite the three answers in place and
// restamp UpdatedAt. Points is always the count of non-empty answers (0-3).
type CheckInRecord struct {
	UserID    string     `json:"userId"`
	Date      string     `json:"date"`
	Help      string     `json:"help,omitempty"`
	Learn     string     `json:"learn,omitempty"`
	Thank     string     `json:"thank,omitempty"`
	Points    int        `json:"points"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt *time.Time `json:"updatedAt,omitempty"`
}

// CheckInStats aggregates a user's check-in history for the profile screen.
type CheckInStats struct {
	TotalPoints   int    `json:"totalPoints"`
	TotalCheckins int    `json:"totalCheckins"`
	TotalHelps    int    `json:"totalHelps"`
	TotalLearns   int    `json:"totalLearns"`
	TotalThanks   int    `json:"totalThanks"`
	LastCheckin   string `json:"lastCheckin,omitempty"`
}
