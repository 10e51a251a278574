package profile

import "context"

// Repository persists reading profiles.
//
// Rows are provisioned at registration and only ever read afterwards; the
// aggregate refresh happens inside the session repository's transactions.
type Repository interface {
	CreateProfile(ctx context.Context, userID string) error
	GetProfile(ctx context.Context, userID string) (*Profile, error)
}
