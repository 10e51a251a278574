package book

import (
	"context"
	"time"
)

// Repository defines the data access contract for the book catalogue.
type Repository interface {
	ListBooks(context context.Context, f Filter, limit, offset int) ([]*Summary, int, error)
	GetBook(context context.Context, id string) (*Book, error)
	CreateBook(context context.Context, b *Book) error
	UpdateBook(context context.Context, b *Book) error
	DeleteBook(context context.Context, id string) error

	// BookStats computes the global aggregates for one book directly from
	// the session table (never from denormalized profile fields).
	BookStats(context context.Context, bookID string) (*Stats, error)

	// UserBookStats computes one user's total reading time on a book.
	UserBookStats(context context.Context, bookID, userID string) (*UserStats, error)
}

// StatsCache is the volatile store for global book aggregates.
//
// A miss is reported as [apperr.NotFound]; entries expire on their own and
// are invalidated eagerly whenever a session on the book ends or is deleted.
type StatsCache interface {
	Get(context context.Context, bookID string) (*Stats, error)
	Set(context context.Context, stats *Stats, ttl time.Duration) error
	Invalidate(context context.Context, bookID string) error
}
