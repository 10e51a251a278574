package profile

import "time"

// Profile carries the denormalized reading aggregates of one user.
//
// Every field besides UserID is derived from the session table and refreshed
// inside the transaction of the session write that changed it, so a read here
// never requires touching the sessions.
type Profile struct {
	UserID                  string     `json:"user_id"`
	LastActivity            *time.Time `json:"last_activity"`
	NumberOfReadingSessions int        `json:"number_of_reading_sessions"`
	TotalReadingSeconds     int64      `json:"total_reading_seconds"`
	LastBookReadID          *string    `json:"last_book_read_id"`
	UpdatedAt               time.Time  `json:"updated_at"`
}
