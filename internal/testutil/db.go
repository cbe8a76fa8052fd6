// Package testutil opens throwaway SQLite databases with the library schema
// for package tests. Foreign keys are enforced like on PostgreSQL.
package testutil

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"xenith/internal/database"
)

// NewDB returns a migrated database stored under t.TempDir and closed on cleanup.
// The pool holds one connection so concurrent tests serialize on it.
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := filepath.Join(t.TempDir(), name+".db") + "?_foreign_keys=on&_busy_timeout=5000"

	db, err := gorm.Open(sqlite.Open(dsn), database.GormConfig(false, nil))
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, database.Migrate(db))

	t.Cleanup(func() {
		_ = database.Close(db)
	})
	return db
}
