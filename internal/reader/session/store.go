package session

import (
	"context"
	"time"
)

// Repository persists reading sessions together with the denormalized
// profile aggregates that depend on them.
//
// Every mutating method runs as a single database transaction guarded by a
// per-user advisory lock, so concurrent lifecycle calls for the same user
// serialize and the one-open-session invariant holds. The profile row of the
// owning user is recomputed inside the same transaction.
type Repository interface {
	// StartSession force-closes any open session owned by s.UserID at
	// s.StartTime, then inserts s as the new open session. The auto-closed
	// session is returned when one existed.
	StartSession(ctx context.Context, s *Session) (autoClosed *Session, err error)

	// StopSession sets the end time of an open session. It returns a
	// conflict error when the session has already ended and a not-found
	// error when the session does not exist or belongs to another user.
	StopSession(ctx context.Context, id, userID string, endTime time.Time) (*Session, error)

	// DeleteSession removes a session, open or closed, and returns the
	// deleted row.
	DeleteSession(ctx context.Context, id, userID string) (*Session, error)

	GetSession(ctx context.Context, id, userID string) (*Session, error)
	OpenSession(ctx context.Context, userID string) (*Session, error)
	ListSessions(ctx context.Context, userID string, limit, offset int) ([]*Session, int, error)
}
