package database

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// ConnectSQLite opens the single-node SQLite store at path, creating the parent
// directory when needed. Foreign keys are enabled so student deletes cascade.
func ConnectSQLite(path string) (*gorm.DB, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("sqlite path must not be empty")
	}

	if dir := filepath.Dir(path); dir != "." && !strings.HasPrefix(path, "file:") {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create sqlite directory: %w", err)
		}
	}

	dsn := path
	if strings.Contains(dsn, "?") {
		dsn += "&_foreign_keys=1&_busy_timeout=5000"
	} else {
		dsn += "?_foreign_keys=1&_busy_timeout=5000"
	}

	db, err := gorm.Open(sqlite.Open(dsn), gormConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to access sqlite pool: %w", err)
	}
	// SQLite has a single writer; one connection keeps transactions serialised.
	sqlDB.SetMaxOpenConns(1)

	return db, nil
}

// Connect picks Postgres when a DSN is configured and falls back to SQLite.
func Connect(postgresDSN, sqlitePath string) (*gorm.DB, error) {
	if strings.TrimSpace(postgresDSN) != "" {
		return ConnectPostgres(postgresDSN)
	}
	return ConnectSQLite(sqlitePath)
}
