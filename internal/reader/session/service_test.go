package session_test

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/readfolio/api/internal/platform/apperr"
	"github.com/readfolio/api/internal/reader/session"
	"github.com/readfolio/api/pkg/uuid"
)

// fakeRepository is an in-memory Repository honoring the store contract:
// starting force-closes open sessions at the new start time, stopping a
// stopped session is a conflict, and foreign ids are invisible.
type fakeRepository struct {
	sessions map[string]*session.Session
}

func newFakeRepository() *fakeRepository {
	return &fakeRepository{sessions: map[string]*session.Session{}}
}

func (f *fakeRepository) StartSession(_ context.Context, s *session.Session) (*session.Session, error) {
	var autoClosed *session.Session
	for _, existing := range f.sessions {
		if existing.UserID == s.UserID && existing.EndTime == nil {
			end := s.StartTime
			existing.EndTime = &end
			autoClosed = existing
		}
	}

	stored := *s
	f.sessions[s.ID] = &stored
	return autoClosed, nil
}

func (f *fakeRepository) StopSession(_ context.Context, id, userID string, endTime time.Time) (*session.Session, error) {
	s, ok := f.sessions[id]
	if !ok || s.UserID != userID {
		return nil, apperr.NotFound("Reading session")
	}
	if s.EndTime != nil {
		return nil, apperr.Conflict("Reading session has already ended")
	}
	s.EndTime = &endTime
	return s, nil
}

func (f *fakeRepository) DeleteSession(_ context.Context, id, userID string) (*session.Session, error) {
	s, ok := f.sessions[id]
	if !ok || s.UserID != userID {
		return nil, apperr.NotFound("Reading session")
	}
	delete(f.sessions, id)
	return s, nil
}

func (f *fakeRepository) GetSession(_ context.Context, id, userID string) (*session.Session, error) {
	s, ok := f.sessions[id]
	if !ok || s.UserID != userID {
		return nil, apperr.NotFound("Reading session")
	}
	return s, nil
}

func (f *fakeRepository) OpenSession(_ context.Context, userID string) (*session.Session, error) {
	for _, s := range f.sessions {
		if s.UserID == userID && s.EndTime == nil {
			return s, nil
		}
	}
	return nil, apperr.NotFound("Reading session")
}

func (f *fakeRepository) ListSessions(_ context.Context, userID string, limit, offset int) ([]*session.Session, int, error) {
	var owned []*session.Session
	for _, s := range f.sessions {
		if s.UserID == userID {
			owned = append(owned, s)
		}
	}
	return owned, len(owned), nil
}

// fakeCatalog knows a fixed set of book ids.
type fakeCatalog struct {
	known map[string]bool
}

func (f *fakeCatalog) Exists(_ context.Context, bookID string) error {
	if !f.known[bookID] {
		return apperr.NotFound("Book")
	}
	return nil
}

// fakeInvalidator records which book caches were dropped.
type fakeInvalidator struct {
	invalidated []string
}

func (f *fakeInvalidator) Invalidate(_ context.Context, bookID string) error {
	f.invalidated = append(f.invalidated, bookID)
	return nil
}

func newTestService(bookIDs ...string) (*session.Service, *fakeRepository, *fakeInvalidator) {
	known := map[string]bool{}
	for _, id := range bookIDs {
		known[id] = true
	}

	repo := newFakeRepository()
	invalidator := &fakeInvalidator{}
	service := session.NewService(repo, &fakeCatalog{known: known}, invalidator, slog.Default())
	return service, repo, invalidator
}

/*
TestService_Start_ForceClosesPriorSession verifies the single-open-session
invariant: starting a new session silently closes the previous one, and the
old end time equals the new start time so no gap or overlap exists.
*/
func TestService_Start_ForceClosesPriorSession(t *testing.T) {
	bookA, bookB := uuid.New(), uuid.New()
	service, repo, invalidator := newTestService(bookA, bookB)
	ctx := context.Background()

	first, err := service.Start(ctx, "user-1", bookA)
	require.NoError(t, err)
	assert.True(t, first.IsOpen())

	second, err := service.Start(ctx, "user-1", bookB)
	require.NoError(t, err)

	closed := repo.sessions[first.ID]
	require.NotNil(t, closed.EndTime)
	assert.Equal(t, second.StartTime, *closed.EndTime)

	// Exactly one session remains open.
	open, err := repo.OpenSession(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, second.ID, open.ID)

	// Both books had their cached aggregates dropped.
	assert.Contains(t, invalidator.invalidated, bookA)
	assert.Contains(t, invalidator.invalidated, bookB)
}

/*
TestService_Start_IndependentUsers verifies that one user's start never
touches another user's open session.
*/
func TestService_Start_IndependentUsers(t *testing.T) {
	bookA := uuid.New()
	service, repo, _ := newTestService(bookA)
	ctx := context.Background()

	alice, err := service.Start(ctx, "alice", bookA)
	require.NoError(t, err)

	_, err = service.Start(ctx, "bob", bookA)
	require.NoError(t, err)

	assert.True(t, repo.sessions[alice.ID].IsOpen())
}

/*
TestService_Start_Validation verifies book id validation and existence checks.
*/
func TestService_Start_Validation(t *testing.T) {
	service, _, _ := newTestService(uuid.New())
	ctx := context.Background()

	t.Run("missing_book_id", func(t *testing.T) {
		_, err := service.Start(ctx, "user-1", "")
		require.Error(t, err)
		assert.Equal(t, "VALIDATION_ERROR", apperr.As(err).Code)
	})

	t.Run("malformed_book_id", func(t *testing.T) {
		_, err := service.Start(ctx, "user-1", "not-a-uuid")
		require.Error(t, err)
		assert.Equal(t, "VALIDATION_ERROR", apperr.As(err).Code)
	})

	t.Run("unknown_book", func(t *testing.T) {
		_, err := service.Start(ctx, "user-1", uuid.New())
		require.Error(t, err)
		assert.Equal(t, "NOT_FOUND", apperr.As(err).Code)
	})
}

/*
TestService_Stop verifies the stop flow and the conflict on double stop.
*/
func TestService_Stop(t *testing.T) {
	bookA := uuid.New()
	service, _, invalidator := newTestService(bookA)
	ctx := context.Background()

	started, err := service.Start(ctx, "user-1", bookA)
	require.NoError(t, err)

	stopped, err := service.Stop(ctx, started.ID, "user-1")
	require.NoError(t, err)
	require.NotNil(t, stopped.EndTime)
	assert.False(t, stopped.EndTime.Before(stopped.StartTime))
	assert.Contains(t, invalidator.invalidated, bookA)

	// A second stop reports the stale client state instead of silently
	// succeeding.
	_, err = service.Stop(ctx, started.ID, "user-1")
	require.Error(t, err)
	ae := apperr.As(err)
	require.NotNil(t, ae)
	assert.Equal(t, "CONFLICT", ae.Code)
	assert.Equal(t, 409, ae.HTTPStatus)
}

/*
TestService_OwnerScoping verifies that foreign session ids behave as missing.
*/
func TestService_OwnerScoping(t *testing.T) {
	bookA := uuid.New()
	service, _, _ := newTestService(bookA)
	ctx := context.Background()

	started, err := service.Start(ctx, "alice", bookA)
	require.NoError(t, err)

	_, err = service.Stop(ctx, started.ID, "mallory")
	assert.Equal(t, "NOT_FOUND", apperr.As(err).Code)

	_, err = service.Get(ctx, started.ID, "mallory")
	assert.Equal(t, "NOT_FOUND", apperr.As(err).Code)

	err = service.Delete(ctx, started.ID, "mallory")
	assert.Equal(t, "NOT_FOUND", apperr.As(err).Code)
}

/*
TestService_Delete verifies removal of open and closed sessions.
*/
func TestService_Delete(t *testing.T) {
	bookA := uuid.New()
	service, repo, invalidator := newTestService(bookA)
	ctx := context.Background()

	started, err := service.Start(ctx, "user-1", bookA)
	require.NoError(t, err)

	require.NoError(t, service.Delete(ctx, started.ID, "user-1"))
	assert.Empty(t, repo.sessions)
	assert.Contains(t, invalidator.invalidated, bookA)

	// Deleting again is a 404, the row is gone.
	err = service.Delete(ctx, started.ID, "user-1")
	assert.Equal(t, "NOT_FOUND", apperr.As(err).Code)
}
