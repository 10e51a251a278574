package session

import (
	"context"
	"log/slog"
	"time"

	"github.com/readfolio/api/internal/platform/metrics"
	"github.com/readfolio/api/internal/platform/validate"
	"github.com/readfolio/api/pkg/uuid"
)

// BookCatalog answers existence checks against the book catalogue.
type BookCatalog interface {
	Exists(ctx context.Context, bookID string) error
}

// StatsInvalidator drops cached per-book aggregates after a lifecycle change.
type StatsInvalidator interface {
	Invalidate(ctx context.Context, bookID string) error
}

type Service struct {
	repo   Repository
	books  BookCatalog
	stats  StatsInvalidator
	logger *slog.Logger
}

func NewService(repo Repository, books BookCatalog, stats StatsInvalidator, logger *slog.Logger) *Service {
	return &Service{
		repo:   repo,
		books:  books,
		stats:  stats,
		logger: logger,
	}
}

// Start opens a new reading session on a book. Any prior open session of the
// user ends at the new session's start time, in the same transaction, so the
// two never overlap and no time is double counted.
func (service *Service) Start(context context.Context, userID, bookID string) (*Session, error) {
	validator := &validate.Validator{}
	validator.Required(FieldBookID, bookID).UUID(FieldBookID, bookID)
	if err := validator.Err(); err != nil {
		return nil, err
	}

	if err := service.books.Exists(context, bookID); err != nil {
		return nil, err
	}

	s := &Session{
		ID:        uuid.New(),
		UserID:    userID,
		BookID:    bookID,
		StartTime: time.Now().UTC(),
	}

	autoClosed, err := service.repo.StartSession(context, s)
	if err != nil {
		return nil, err
	}

	if autoClosed != nil {
		service.onSessionChanged(context, autoClosed, ChangeAutoClosed)
	}
	service.onSessionChanged(context, s, ChangeStarted)

	return s, nil
}

// Stop ends an open session at the current time. Stopping a session that has
// already ended is a conflict, not an idempotent no-op, so clients learn
// their view of the session state is stale.
func (service *Service) Stop(context context.Context, id, userID string) (*Session, error) {
	s, err := service.repo.StopSession(context, id, userID, time.Now().UTC())
	if err != nil {
		return nil, err
	}

	service.onSessionChanged(context, s, ChangeStopped)
	return s, nil
}

// Delete removes a session and recomputes every derived profile field from
// the surviving rows.
func (service *Service) Delete(context context.Context, id, userID string) error {
	s, err := service.repo.DeleteSession(context, id, userID)
	if err != nil {
		return err
	}

	service.onSessionChanged(context, s, ChangeDeleted)
	return nil
}

func (service *Service) Get(context context.Context, id, userID string) (*Session, error) {
	return service.repo.GetSession(context, id, userID)
}

// Current returns the caller's open session, if any.
func (service *Service) Current(context context.Context, userID string) (*Session, error) {
	return service.repo.OpenSession(context, userID)
}

func (service *Service) List(context context.Context, userID string, limit, offset int) ([]*Session, int, error) {
	return service.repo.ListSessions(context, userID, limit, offset)
}

// onSessionChanged runs the non-transactional side effects of a committed
// lifecycle change: the structured log event, the Prometheus counter and the
// cached book aggregates. Failures here are logged, never surfaced; the
// database is already the source of truth.
func (service *Service) onSessionChanged(context context.Context, s *Session, kind ChangeKind) {
	service.logger.Info("session_"+string(kind),
		slog.String("session_id", s.ID),
		slog.String("user_id", s.UserID),
		slog.String("book_id", s.BookID),
	)
	metrics.RecordSessionEvent(string(kind))

	if err := service.stats.Invalidate(context, s.BookID); err != nil {
		service.logger.Warn("book_stats_cache_invalidate_failed",
			slog.String("book_id", s.BookID), slog.Any("error", err))
	}
}
