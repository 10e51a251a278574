package book

import (
	"context"
	"log/slog"
	"time"

	"github.com/readfolio/api/internal/platform/metrics"
	"github.com/readfolio/api/internal/platform/validate"
	"github.com/readfolio/api/pkg/uuid"
)

// statsCacheTTL bounds staleness of the global aggregates between eager
// invalidations.
const statsCacheTTL = 5 * time.Minute

type Service struct {
	repo   Repository
	cache  StatsCache
	logger *slog.Logger
}

func NewService(repo Repository, cache StatsCache, logger *slog.Logger) *Service {
	return &Service{
		repo:   repo,
		cache:  cache,
		logger: logger,
	}
}

func (service *Service) ListBooks(context context.Context, filter Filter, limit, offset int) ([]*Summary, int, error) {
	return service.repo.ListBooks(context, filter, limit, offset)
}

func (service *Service) GetBook(context context.Context, id string) (*Book, error) {
	return service.repo.GetBook(context, id)
}

// Exists reports whether a book is in the catalogue, as a not-found error
// when it is not. The session lifecycle checks referenced books through this.
func (service *Service) Exists(context context.Context, id string) error {
	_, err := service.repo.GetBook(context, id)
	return err
}

func (service *Service) CreateBook(context context.Context, book *Book) error {
	if err := service.validateBook(book); err != nil {
		return err
	}

	if book.Author == "" {
		book.Author = DefaultAuthor
	}

	book.ID = uuid.New()
	// Never trust a client-supplied read timestamp on the way in.
	book.LastTimeRead = nil

	if err := service.repo.CreateBook(context, book); err != nil {
		return err
	}

	service.logger.Info("book_created", slog.String("book_id", book.ID), slog.String("title", book.Title))
	return nil
}

func (service *Service) UpdateBook(context context.Context, id string, book *Book) error {
	book.ID = id
	if err := service.validateBook(book); err != nil {
		return err
	}

	if book.Author == "" {
		book.Author = DefaultAuthor
	}

	if err := service.repo.UpdateBook(context, book); err != nil {
		return err
	}

	service.logger.Info("book_updated", slog.String("book_id", book.ID))
	return nil
}

func (service *Service) DeleteBook(context context.Context, id string) error {
	if err := service.repo.DeleteBook(context, id); err != nil {
		return err
	}

	if err := service.cache.Invalidate(context, id); err != nil {
		service.logger.Warn("book_stats_cache_invalidate_failed", slog.String("book_id", id), slog.Any("error", err))
	}

	service.logger.Info("book_deleted", slog.String("book_id", id))
	return nil
}

// GetStats returns the global aggregates for a book, served from the cache
// when warm.
func (service *Service) GetStats(context context.Context, bookID string) (*Stats, error) {
	if cached, err := service.cache.Get(context, bookID); err == nil {
		metrics.RecordBookStatsCache(true)
		return cached, nil
	}
	metrics.RecordBookStatsCache(false)

	// The book must exist; a stats query on a missing id returns zero rows
	// of sessions, not an error, so check explicitly.
	if _, err := service.repo.GetBook(context, bookID); err != nil {
		return nil, err
	}

	stats, err := service.repo.BookStats(context, bookID)
	if err != nil {
		return nil, err
	}

	if err := service.cache.Set(context, stats, statsCacheTTL); err != nil {
		service.logger.Warn("book_stats_cache_set_failed", slog.String("book_id", bookID), slog.Any("error", err))
	}

	return stats, nil
}

// GetUserStats returns the caller's total reading time on a book.
//
// Per-user aggregates are cheap single-user scans and are not cached.
func (service *Service) GetUserStats(context context.Context, bookID, userID string) (*UserStats, error) {
	if _, err := service.repo.GetBook(context, bookID); err != nil {
		return nil, err
	}
	return service.repo.UserBookStats(context, bookID, userID)
}

func (service *Service) validateBook(book *Book) error {
	validator := &validate.Validator{}

	validator.Required(FieldTitle, book.Title).MaxLen(FieldTitle, book.Title, 255)
	validator.MaxLen(FieldAuthor, book.Author, 255)

	if book.YearOfPublishing != nil {
		validator.Range(FieldYearOfPublishing, *book.YearOfPublishing, 0, time.Now().Year())
	}

	return validator.Err()
}
