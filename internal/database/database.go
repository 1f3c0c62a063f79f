// Package database provides database abstraction and management for go-preprint
package database

import (
	"database/sql"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/jmoiron/sqlx"
)

// GetMainDB returns the main database connection for direct access
// This should only be used by tests and one-off maintenance queries
func (db *Database) GetMainDB() *sqlx.DB {
	return db.mainDB
}

// IsDBshutdown reports whether Shutdown has been called
func (db *Database) IsDBshutdown() bool {
	if db == nil {
		return true
	}
	select {
	case <-db.StopChan:
		return true
	default:
		return false
	}
}

// Shutdown closes the main database
func (db *Database) Shutdown() error {
	if db.IsDBshutdown() {
		return nil
	}
	close(db.StopChan)
	if err := db.mainDB.Close(); err != nil {
		return fmt.Errorf("failed to close main database: %w", err)
	}
	log.Printf("[DB]: main database closed")
	return nil
}

// now returns the current time in UTC; all timestamps are stored in UTC so
// the driver's text encoding compares chronologically.
func now() time.Time {
	return time.Now().UTC()
}

// notFound translates sql.ErrNoRows into ErrNotFound and wraps everything else
func notFound(err error, what string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", what, ErrNotFound)
	}
	return fmt.Errorf("failed to get %s: %w", what, err)
}
