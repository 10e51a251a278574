package session_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/readfolio/api/internal/platform/apperr"
	"github.com/readfolio/api/internal/platform/database/dbtest"
	"github.com/readfolio/api/internal/platform/sec"
	"github.com/readfolio/api/internal/reader/book"
	"github.com/readfolio/api/internal/reader/profile"
	"github.com/readfolio/api/internal/reader/session"
	"github.com/readfolio/api/internal/users/auth"
	"github.com/readfolio/api/pkg/uuid"
)

// seedUser creates an account and its profile row directly through the
// repositories, the same sequence registration performs.
func seedUser(t *testing.T, pool *pgxpool.Pool) string {
	t.Helper()

	id := uuid.New()
	user := &auth.User{
		ID:           id,
		Username:     "reader-" + id[:8],
		Email:        fmt.Sprintf("%s@example.com", id),
		PasswordHash: "irrelevant",
		Role:         sec.RoleMember,
	}
	require.NoError(t, auth.NewPostgresUserRepository(pool).Create(context.Background(), user))
	require.NoError(t, profile.NewPostgresRepository(pool).CreateProfile(context.Background(), id))
	return id
}

func seedBook(t *testing.T, pool *pgxpool.Pool, title string) string {
	t.Helper()

	b := &book.Book{ID: uuid.New(), Title: title, Author: "Tester"}
	require.NoError(t, book.NewPostgresRepository(pool).CreateBook(context.Background(), b))
	return b.ID
}

// requireProfileReconciles asserts that the denormalized profile row matches
// an independent recomputation straight from the session table.
func requireProfileReconciles(t *testing.T, pool *pgxpool.Pool, userID string) *profile.Profile {
	t.Helper()
	ctx := context.Background()

	stored, err := profile.NewPostgresRepository(pool).GetProfile(ctx, userID)
	require.NoError(t, err)

	var (
		count        int
		totalSeconds int64
		lastActivity *time.Time
	)
	const aggregates = `
		SELECT
			count(*),
			COALESCE(SUM(EXTRACT(EPOCH FROM (endtime - starttime)))
				FILTER (WHERE endtime IS NOT NULL), 0)::BIGINT,
			MAX(starttime)
		FROM reader.session WHERE userid = $1`
	require.NoError(t, pool.QueryRow(ctx, aggregates, userID).Scan(&count, &totalSeconds, &lastActivity))

	var lastBookID *string
	const lastBook = `
		SELECT bookid FROM reader.session
		WHERE userid = $1 AND endtime IS NOT NULL
		ORDER BY endtime DESC, id DESC
		LIMIT 1`
	if err := pool.QueryRow(ctx, lastBook, userID).Scan(&lastBookID); err != nil {
		require.ErrorIs(t, err, pgx.ErrNoRows)
	}

	assert.Equal(t, count, stored.NumberOfReadingSessions)
	assert.Equal(t, totalSeconds, stored.TotalReadingSeconds)
	if lastActivity == nil {
		assert.Nil(t, stored.LastActivity)
	} else {
		require.NotNil(t, stored.LastActivity)
		assert.WithinDuration(t, *lastActivity, *stored.LastActivity, time.Microsecond)
	}
	if lastBookID == nil {
		assert.Nil(t, stored.LastBookReadID)
	} else {
		require.NotNil(t, stored.LastBookReadID)
		assert.Equal(t, *lastBookID, *stored.LastBookReadID)
	}

	return stored
}

func TestPostgresRepository_LifecycleReconciliation(t *testing.T) {
	pool := dbtest.NewPool(t)
	ctx := context.Background()

	userID := seedUser(t, pool)
	bookA := seedBook(t, pool, "Book A")
	bookB := seedBook(t, pool, "Book B")

	sessions := session.NewPostgresRepository(pool)
	books := book.NewPostgresRepository(pool)

	base := time.Now().UTC().Truncate(time.Microsecond)

	// Start the first session: no prior open session to close.
	first := &session.Session{ID: uuid.New(), UserID: userID, BookID: bookA, StartTime: base}
	autoClosed, err := sessions.StartSession(ctx, first)
	require.NoError(t, err)
	assert.Nil(t, autoClosed)

	stored := requireProfileReconciles(t, pool, userID)
	assert.Equal(t, 1, stored.NumberOfReadingSessions)
	assert.Equal(t, int64(0), stored.TotalReadingSeconds)
	assert.Nil(t, stored.LastBookReadID)

	// Starting a second session force-closes the first at the new start time.
	secondStart := base.Add(10 * time.Minute)
	second := &session.Session{ID: uuid.New(), UserID: userID, BookID: bookB, StartTime: secondStart}
	autoClosed, err = sessions.StartSession(ctx, second)
	require.NoError(t, err)
	require.NotNil(t, autoClosed)
	assert.Equal(t, first.ID, autoClosed.ID)
	require.NotNil(t, autoClosed.EndTime)
	assert.WithinDuration(t, secondStart, *autoClosed.EndTime, time.Microsecond)

	open, err := sessions.OpenSession(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, second.ID, open.ID)

	stored = requireProfileReconciles(t, pool, userID)
	assert.Equal(t, 2, stored.NumberOfReadingSessions)
	assert.Equal(t, int64(600), stored.TotalReadingSeconds)
	require.NotNil(t, stored.LastBookReadID)
	assert.Equal(t, bookA, *stored.LastBookReadID)

	// The closed session advanced its book's last read marker.
	storedBookA, err := books.GetBook(ctx, bookA)
	require.NoError(t, err)
	require.NotNil(t, storedBookA.LastTimeRead)
	assert.WithinDuration(t, secondStart, *storedBookA.LastTimeRead, time.Microsecond)

	// Stop the second session 90 seconds in.
	stopTime := secondStart.Add(90 * time.Second)
	stopped, err := sessions.StopSession(ctx, second.ID, userID, stopTime)
	require.NoError(t, err)
	require.NotNil(t, stopped.EndTime)
	assert.WithinDuration(t, stopTime, *stopped.EndTime, time.Microsecond)

	// Stopping again is a conflict, not a silent overwrite.
	_, err = sessions.StopSession(ctx, second.ID, userID, stopTime.Add(time.Minute))
	require.Error(t, err)
	assert.Equal(t, 409, apperr.As(err).HTTPStatus)

	stored = requireProfileReconciles(t, pool, userID)
	assert.Equal(t, 2, stored.NumberOfReadingSessions)
	assert.Equal(t, int64(690), stored.TotalReadingSeconds)
	require.NotNil(t, stored.LastBookReadID)
	assert.Equal(t, bookB, *stored.LastBookReadID)

	stats, err := books.BookStats(ctx, bookA)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.SessionCount)
	assert.Equal(t, int64(600), stats.TotalReadingSeconds)

	userStats, err := books.UserBookStats(ctx, bookB, userID)
	require.NoError(t, err)
	assert.Equal(t, int64(90), userStats.TotalReadingSeconds)

	// Deleting the first session shrinks every aggregate, book stats included.
	deleted, err := sessions.DeleteSession(ctx, first.ID, userID)
	require.NoError(t, err)
	assert.Equal(t, first.ID, deleted.ID)

	stored = requireProfileReconciles(t, pool, userID)
	assert.Equal(t, 1, stored.NumberOfReadingSessions)
	assert.Equal(t, int64(90), stored.TotalReadingSeconds)
	require.NotNil(t, stored.LastBookReadID)
	assert.Equal(t, bookB, *stored.LastBookReadID)
	require.NotNil(t, stored.LastActivity)
	assert.WithinDuration(t, secondStart, *stored.LastActivity, time.Microsecond)

	stats, err = books.BookStats(ctx, bookA)
	require.NoError(t, err)
	assert.Equal(t, 0, stats.SessionCount)
	assert.Equal(t, int64(0), stats.TotalReadingSeconds)
}

func TestPostgresRepository_LastBookReadTieBreak(t *testing.T) {
	pool := dbtest.NewPool(t)
	ctx := context.Background()

	userID := seedUser(t, pool)
	bookA := seedBook(t, pool, "Book A")
	bookB := seedBook(t, pool, "Book B")

	sessions := session.NewPostgresRepository(pool)

	base := time.Now().UTC().Truncate(time.Microsecond)
	sharedEnd := base.Add(time.Minute)

	// Two sessions ending at the exact same instant. Ids are time-ordered, so
	// the tie must resolve to the later-created session's book.
	first := &session.Session{ID: uuid.New(), UserID: userID, BookID: bookA, StartTime: base}
	_, err := sessions.StartSession(ctx, first)
	require.NoError(t, err)
	_, err = sessions.StopSession(ctx, first.ID, userID, sharedEnd)
	require.NoError(t, err)

	second := &session.Session{ID: uuid.New(), UserID: userID, BookID: bookB, StartTime: base.Add(30 * time.Second)}
	_, err = sessions.StartSession(ctx, second)
	require.NoError(t, err)
	_, err = sessions.StopSession(ctx, second.ID, userID, sharedEnd)
	require.NoError(t, err)

	stored := requireProfileReconciles(t, pool, userID)
	require.NotNil(t, stored.LastBookReadID)
	assert.Equal(t, bookB, *stored.LastBookReadID)
	assert.Equal(t, int64(90), stored.TotalReadingSeconds)
}

func TestPostgresRepository_OpenSessionUniqueIndex(t *testing.T) {
	pool := dbtest.NewPool(t)
	ctx := context.Background()

	userID := seedUser(t, pool)
	bookID := seedBook(t, pool, "Book A")

	sessions := session.NewPostgresRepository(pool)

	open := &session.Session{ID: uuid.New(), UserID: userID, BookID: bookID, StartTime: time.Now().UTC()}
	_, err := sessions.StartSession(ctx, open)
	require.NoError(t, err)

	// A second open row for the same user must be rejected by the partial
	// unique index, even when inserted past the repository.
	const insert = `
		INSERT INTO reader.session (id, userid, bookid, starttime)
		VALUES ($1, $2, $3, $4)`
	_, err = pool.Exec(ctx, insert, uuid.New(), userID, bookID, time.Now().UTC())
	require.Error(t, err)
}
