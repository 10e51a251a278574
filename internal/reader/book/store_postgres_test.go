package book_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/readfolio/api/internal/platform/database/dbtest"
	"github.com/readfolio/api/internal/reader/book"
	"github.com/readfolio/api/pkg/uuid"
)

func TestPostgresRepository_UpdateBookKeepsTimestamps(t *testing.T) {
	pool := dbtest.NewPool(t)
	ctx := context.Background()

	books := book.NewPostgresRepository(pool)

	created := &book.Book{ID: uuid.New(), Title: "First Edition", Author: "Tester"}
	require.NoError(t, books.CreateBook(ctx, created))
	require.False(t, created.CreatedAt.IsZero())

	updated := &book.Book{ID: created.ID, Title: "Second Edition", Author: "Tester"}
	require.NoError(t, books.UpdateBook(ctx, updated))

	// The update response must carry the original creation timestamp, not a
	// zero value, alongside the refreshed updatedat.
	assert.True(t, updated.CreatedAt.Equal(created.CreatedAt),
		"createdat changed across update: %v != %v", updated.CreatedAt, created.CreatedAt)
	assert.False(t, updated.UpdatedAt.Before(created.UpdatedAt))
	assert.Nil(t, updated.LastTimeRead)

	stored, err := books.GetBook(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Second Edition", stored.Title)
	assert.True(t, stored.CreatedAt.Equal(created.CreatedAt))
}
