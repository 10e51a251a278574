package book_test

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/readfolio/api/internal/platform/apperr"
	"github.com/readfolio/api/internal/reader/book"
)

type fakeRepository struct {
	books map[string]*book.Book
	stats map[string]*book.Stats

	statsQueries int
}

func newFakeRepository() *fakeRepository {
	return &fakeRepository{
		books: map[string]*book.Book{},
		stats: map[string]*book.Stats{},
	}
}

func (f *fakeRepository) ListBooks(_ context.Context, filter book.Filter, limit, offset int) ([]*book.Summary, int, error) {
	var summaries []*book.Summary
	for _, b := range f.books {
		s := b.Summary()
		summaries = append(summaries, &s)
	}
	return summaries, len(summaries), nil
}

func (f *fakeRepository) GetBook(_ context.Context, id string) (*book.Book, error) {
	b, ok := f.books[id]
	if !ok {
		return nil, apperr.NotFound("Book")
	}
	return b, nil
}

func (f *fakeRepository) CreateBook(_ context.Context, b *book.Book) error {
	f.books[b.ID] = b
	return nil
}

func (f *fakeRepository) UpdateBook(_ context.Context, b *book.Book) error {
	if _, ok := f.books[b.ID]; !ok {
		return apperr.NotFound("Book")
	}
	f.books[b.ID] = b
	return nil
}

func (f *fakeRepository) DeleteBook(_ context.Context, id string) error {
	if _, ok := f.books[id]; !ok {
		return apperr.NotFound("Book")
	}
	delete(f.books, id)
	return nil
}

func (f *fakeRepository) BookStats(_ context.Context, bookID string) (*book.Stats, error) {
	f.statsQueries++
	if s, ok := f.stats[bookID]; ok {
		return s, nil
	}
	return &book.Stats{BookID: bookID}, nil
}

func (f *fakeRepository) UserBookStats(_ context.Context, bookID, userID string) (*book.UserStats, error) {
	return &book.UserStats{BookID: bookID, UserID: userID, TotalReadingSeconds: 1200}, nil
}

// fakeCache is a TTL-less in-memory StatsCache.
type fakeCache struct {
	entries map[string]*book.Stats
}

func newFakeCache() *fakeCache {
	return &fakeCache{entries: map[string]*book.Stats{}}
}

func (f *fakeCache) Get(_ context.Context, bookID string) (*book.Stats, error) {
	if s, ok := f.entries[bookID]; ok {
		return s, nil
	}
	return nil, apperr.NotFound("Book stats cache entry")
}

func (f *fakeCache) Set(_ context.Context, stats *book.Stats, _ time.Duration) error {
	f.entries[stats.BookID] = stats
	return nil
}

func (f *fakeCache) Invalidate(_ context.Context, bookID string) error {
	delete(f.entries, bookID)
	return nil
}

func newTestService() (*book.Service, *fakeRepository, *fakeCache) {
	repo := newFakeRepository()
	cache := newFakeCache()
	return book.NewService(repo, cache, slog.Default()), repo, cache
}

/*
TestService_CreateBook verifies validation rules and the author default.
*/
func TestService_CreateBook(t *testing.T) {
	futureYear := time.Now().Year() + 1

	tests := []struct {
		name     string
		book     book.Book
		wantCode string
	}{
		{"valid", book.Book{Title: "Solaris", Author: "Stanisław Lem"}, ""},
		{"missing_title", book.Book{Author: "Anonymous"}, "VALIDATION_ERROR"},
		{"future_year", book.Book{Title: "Prophecies", YearOfPublishing: &futureYear}, "VALIDATION_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service, _, _ := newTestService()
			input := tt.book

			err := service.CreateBook(context.Background(), &input)
			if tt.wantCode == "" {
				require.NoError(t, err)
				assert.NotEmpty(t, input.ID)
			} else {
				require.Error(t, err)
				assert.Equal(t, tt.wantCode, apperr.As(err).Code)
			}
		})
	}

	t.Run("blank_author_defaults", func(t *testing.T) {
		service, repo, _ := newTestService()
		input := book.Book{Title: "Beowulf"}

		require.NoError(t, service.CreateBook(context.Background(), &input))
		assert.Equal(t, book.DefaultAuthor, repo.books[input.ID].Author)
	})

	t.Run("client_supplied_read_timestamp_discarded", func(t *testing.T) {
		service, repo, _ := newTestService()
		sneaky := time.Now()
		input := book.Book{Title: "Solaris", LastTimeRead: &sneaky}

		require.NoError(t, service.CreateBook(context.Background(), &input))
		assert.Nil(t, repo.books[input.ID].LastTimeRead)
	})
}

/*
TestService_GetStats verifies the cache-aside behavior of the aggregates.
*/
func TestService_GetStats(t *testing.T) {
	service, repo, cache := newTestService()
	ctx := context.Background()

	seed := &book.Book{Title: "Solaris"}
	require.NoError(t, service.CreateBook(ctx, seed))
	repo.stats[seed.ID] = &book.Stats{BookID: seed.ID, SessionCount: 4, TotalReadingSeconds: 3600}

	// Cold read computes and populates the cache.
	stats, err := service.GetStats(ctx, seed.ID)
	require.NoError(t, err)
	assert.Equal(t, 4, stats.SessionCount)
	assert.Equal(t, 1, repo.statsQueries)

	// Warm read is served from the cache.
	_, err = service.GetStats(ctx, seed.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, repo.statsQueries)

	// Invalidation forces a recompute.
	require.NoError(t, cache.Invalidate(ctx, seed.ID))
	_, err = service.GetStats(ctx, seed.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, repo.statsQueries)
}

/*
TestService_GetStats_UnknownBook ensures a missing book is a 404, not a zero
row of aggregates.
*/
func TestService_GetStats_UnknownBook(t *testing.T) {
	service, _, _ := newTestService()

	_, err := service.GetStats(context.Background(), "missing")
	require.Error(t, err)
	assert.Equal(t, "NOT_FOUND", apperr.As(err).Code)

	_, err = service.GetUserStats(context.Background(), "missing", "user-1")
	require.Error(t, err)
	assert.Equal(t, "NOT_FOUND", apperr.As(err).Code)
}

/*
TestService_DeleteBook verifies the cache entry dies with the book.
*/
func TestService_DeleteBook(t *testing.T) {
	service, _, cache := newTestService()
	ctx := context.Background()

	seed := &book.Book{Title: "Solaris"}
	require.NoError(t, service.CreateBook(ctx, seed))
	require.NoError(t, cache.Set(ctx, &book.Stats{BookID: seed.ID}, 0))

	require.NoError(t, service.DeleteBook(ctx, seed.ID))

	_, err := cache.Get(ctx, seed.ID)
	assert.Equal(t, "NOT_FOUND", apperr.As(err).Code)

	err = service.DeleteBook(ctx, seed.ID)
	assert.Equal(t, "NOT_FOUND", apperr.As(err).Code)
}

// recordingHandler captures log records so tests can assert on event levels.
type recordingHandler struct {
	records []slog.Record
}

func (h *recordingHandler) Enabled(context.Context, slog.Level) bool { return true }
func (h *recordingHandler) Handle(_ context.Context, r slog.Record) error {
	h.records = append(h.records, r)
	return nil
}
func (h *recordingHandler) WithAttrs([]slog.Attr) slog.Handler { return h }
func (h *recordingHandler) WithGroup(string) slog.Handler      { return h }

// Routine lifecycle events log at Info; Warn is reserved for degraded paths
// like cache failures.
func TestService_DeleteBook_LogsAtInfo(t *testing.T) {
	handler := &recordingHandler{}
	service := book.NewService(newFakeRepository(), newFakeCache(), slog.New(handler))
	ctx := context.Background()

	seed := &book.Book{Title: "Solaris"}
	require.NoError(t, service.CreateBook(ctx, seed))
	require.NoError(t, service.DeleteBook(ctx, seed.ID))

	var found bool
	for _, record := range handler.records {
		if record.Message == "book_deleted" {
			found = true
			assert.Equal(t, slog.LevelInfo, record.Level)
		}
	}
	require.True(t, found, "book_deleted event was not logged")
}
