// Package db stores the watched-folder registry, scan run history and app
// settings in SQLite.
package db

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// ErrDuplicate is returned when a unique value (such as a folder path) is
// already stored
var ErrDuplicate = errors.New("already exists")

// DB wraps the SQL connection pool
type DB struct {
	*sql.DB
}

// Open opens (creating if needed) the database at path and runs migrations
func Open(path string) (*DB, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	dsn := path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)"
	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// SQLite allows a single writer; one connection avoids SQLITE_BUSY churn
	conn.SetMaxOpenConns(1)

	db := &DB{DB: conn}
	if err := db.Migrate(); err != nil {
		conn.Close()
		return nil, err
	}
	return db, nil
}
