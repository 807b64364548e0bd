// Package testdb opens migrated in-memory SQLite databases for tests.
package testdb

import (
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/bitelog/bitelog-api/internal/repository"
)

// New returns an empty, fully migrated database that is closed when t ends.
func New(t testing.TB) *repository.DB {
	t.Helper()

	gdb, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("Failed to open in-memory database: %v", err)
	}

	// Every connection to ":memory:" is a separate database.
	sqlDB, err := gdb.DB()
	if err != nil {
		t.Fatalf("Failed to get database instance: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	db := &repository.DB{DB: gdb}
	if err := db.AutoMigrate(); err != nil {
		t.Fatalf("Failed to auto-migrate tables: %v", err)
	}

	t.Cleanup(func() { _ = db.Close() })
	return db
}
