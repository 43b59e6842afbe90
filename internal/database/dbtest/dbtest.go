// Package dbtest opens a throwaway SQLite database for package tests.
package dbtest

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/ThanhMiracle/ecommerce-lambda-aws/internal/config"
	"github.com/ThanhMiracle/ecommerce-lambda-aws/internal/database"
)

// Open returns a migrated database living in t.TempDir().
func Open(t testing.TB, models ...any) *gorm.DB {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), "test.db") + "?_busy_timeout=5000&_foreign_keys=on"
	db, err := database.Open(config.DBConfig{Driver: "sqlite", DSN: dsn, DisablePool: true}, nil)
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db, models...))

	t.Cleanup(func() { _ = database.Close(db) })
	return db
}
