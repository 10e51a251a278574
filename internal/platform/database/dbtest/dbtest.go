// Copyright (c) 2026 Folio. All rights reserved.
// Author: dev@readfolio.app

// Package dbtest spins up a disposable PostgreSQL instance for repository
// integration tests.
//
// It starts a real postgres container via testcontainers, applies the
// project migrations, and hands back a connected pool. Tests that use it are
// skipped under -short so the unit suite stays docker-free.
package dbtest

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	postgresTC "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/readfolio/api/internal/platform/migration"
)

const containerImage = "postgres:16-alpine"

// NewPool starts a PostgreSQL container, runs all migrations against it, and
// returns a pool connected to the fresh database. The container and the pool
// are torn down via t.Cleanup.
func NewPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping: requires docker")
	}

	ctx := context.Background()

	container, err := postgresTC.Run(ctx, containerImage,
		postgresTC.WithDatabase("folio_test"),
		postgresTC.WithUsername("folio"),
		postgresTC.WithPassword("folio"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	require.NoError(t, err, "failed to start postgres container")
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	quiet := slog.New(slog.NewTextHandler(io.Discard, nil))
	require.NoError(t, migration.RunUp(dsn, migrationsDir(t), quiet))

	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	return pool
}

// migrationsDir resolves data/migrations relative to this source file, so
// tests work regardless of the package they run from.
func migrationsDir(t *testing.T) string {
	t.Helper()
	_, thisFile, _, ok := runtime.Caller(0)
	require.True(t, ok, "failed to resolve caller path")
	return filepath.Join(filepath.Dir(thisFile), "..", "..", "..", "..", "data", "migrations")
}
