package database

import (
	"database/sql"
	"log"
	"math/rand"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
)

const (
	maxRetries = 100
	baseDelay  = 10 * time.Millisecond
	maxDelay   = 25 * time.Millisecond
)

// isRetryableError checks if the error is a retryable SQLite error
func isRetryableError(err error) bool {
	if err == nil {
		return false
	}

	errStr := strings.ToLower(err.Error())
	return strings.Contains(errStr, "database is locked") ||
		strings.Contains(errStr, "database table is locked") ||
		strings.Contains(errStr, "busy")
}

// backoff sleeps before the next attempt: linear growth capped at maxDelay, plus up to 50% jitter
func backoff(attempt int) {
	delay := time.Duration(attempt+1) * baseDelay
	if delay > maxDelay {
		delay = maxDelay
	}
	jitter := time.Duration(rand.Int63n(int64(delay) / 2))
	time.Sleep(delay + jitter)
}

// retryableExec executes a SQL statement with retry logic for lock conflicts
func retryableExec(db sqlx.Execer, query string, args ...interface{}) (sql.Result, error) {
	var result sql.Result
	var err error

	for attempt := 0; attempt < maxRetries; attempt++ {
		result, err = db.Exec(query, args...)
		if !isRetryableError(err) {
			return result, err
		}
		if attempt < maxRetries-1 {
			log.Printf("[WARN] SQLite retry attempt %d/%d for query (first 50 chars): %s... Error: %v",
				attempt+1, maxRetries, truncateString(query, 50), err)
			backoff(attempt)
		}
	}
	return result, err
}

// retryableGet scans a single row into dest with retry logic
func retryableGet(db sqlx.Queryer, dest interface{}, query string, args ...interface{}) error {
	var err error
	for attempt := 0; attempt < maxRetries; attempt++ {
		err = sqlx.Get(db, dest, query, args...)
		if !isRetryableError(err) {
			return err
		}
		if attempt < maxRetries-1 {
			log.Printf("SQLite retry attempt %d/%d for get (first 50 chars): %s... Error: %v",
				attempt+1, maxRetries, truncateString(query, 50), err)
			backoff(attempt)
		}
	}
	return err
}

// retryableSelect scans all rows into dest with retry logic
func retryableSelect(db sqlx.Queryer, dest interface{}, query string, args ...interface{}) error {
	var err error
	for attempt := 0; attempt < maxRetries; attempt++ {
		err = sqlx.Select(db, dest, query, args...)
		if !isRetryableError(err) {
			return err
		}
		if attempt < maxRetries-1 {
			log.Printf("SQLite retry attempt %d/%d for select (first 50 chars): %s... Error: %v",
				attempt+1, maxRetries, truncateString(query, 50), err)
			backoff(attempt)
		}
	}
	return err
}

// retryableTransactionExec executes a transaction with retry logic.
// txFunc may run more than once and must not keep state between attempts.
func retryableTransactionExec(db *sqlx.DB, txFunc func(*sqlx.Tx) error) error {
	var err error

	for attempt := 0; attempt < maxRetries; attempt++ {
		var tx *sqlx.Tx
		tx, err = db.Beginx()
		if err != nil {
			if !isRetryableError(err) {
				return err
			}
			backoff(attempt)
			continue
		}

		if err = txFunc(tx); err != nil {
			tx.Rollback()
			if !isRetryableError(err) {
				return err
			}
			log.Printf("SQLite retry attempt %d/%d for transaction: %v", attempt+1, maxRetries, err)
			backoff(attempt)
			continue
		}

		err = tx.Commit()
		if !isRetryableError(err) {
			return err
		}
		log.Printf("SQLite retry attempt %d/%d for transaction commit: %v", attempt+1, maxRetries, err)
		backoff(attempt)
	}

	return err
}

// truncateString truncates a string to the specified length
func truncateString(s string, length int) string {
	if len(s) <= length {
		return s
	}
	return s[:length]
}
