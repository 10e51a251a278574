package session

import (
	"encoding/json"
	"time"
)

// Session represents one timed reading of a book.
//
// A null EndTime means the session is open (the user is currently reading).
// The owning user never has more than one open session; starting a new one
// force-closes the previous one inside the same database transaction.
type Session struct {
	ID        string     `json:"id"`
	UserID    string     `json:"user_id"`
	BookID    string     `json:"book_id"`
	StartTime time.Time  `json:"start_time"`
	EndTime   *time.Time `json:"end_time"`
}

// IsOpen reports whether the session is still in progress.
func (s *Session) IsOpen() bool {
	return s.EndTime == nil
}

// Duration returns the elapsed reading time, or nil while the session is open.
func (s *Session) Duration() *time.Duration {
	if s.EndTime == nil {
		return nil
	}
	d := s.EndTime.Sub(s.StartTime)
	return &d
}

// MarshalJSON augments the wire shape with a derived duration_seconds field,
// null while the session is open.
func (s Session) MarshalJSON() ([]byte, error) {
	type alias Session
	payload := struct {
		alias
		DurationSeconds *int64 `json:"duration_seconds"`
	}{alias: alias(s)}

	if s.EndTime != nil {
		seconds := int64(s.EndTime.Sub(s.StartTime) / time.Second)
		payload.DurationSeconds = &seconds
	}

	return json.Marshal(payload)
}

// ChangeKind classifies a session lifecycle event for the post-commit hook.
type ChangeKind string

const (
	ChangeStarted    ChangeKind = "started"
	ChangeAutoClosed ChangeKind = "auto_closed"
	ChangeStopped    ChangeKind = "stopped"
	ChangeDeleted    ChangeKind = "deleted"
)

// Global field names for validation
const (
	FieldBookID = "book_id"
)
