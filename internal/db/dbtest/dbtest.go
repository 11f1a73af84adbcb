// Package dbtest opens migrated in-memory databases for tests.
package dbtest

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"

	"github.com/steemit/discussion/internal/db"
)

var seq atomic.Int64

// New returns a migrated sqlite database private to the test. The pool
// holds a single connection, so transactions are serialized.
func New(t testing.TB) *db.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:discussion_%d_%d?mode=memory&cache=shared", time.Now().UnixNano(), seq.Add(1))
	database, err := db.Open(sqlite.Open(dsn), "error")
	require.NoError(t, err)

	sqlDB, err := database.DB.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)
	sqlDB.SetConnMaxLifetime(0)

	require.NoError(t, database.Migrate(context.Background()))
	t.Cleanup(func() { _ = database.Close() })
	return database
}

// Repository returns a repository over a fresh database
func Repository(t testing.TB) *db.Repository {
	t.Helper()
	return db.NewRepository(New(t).DB)
}
