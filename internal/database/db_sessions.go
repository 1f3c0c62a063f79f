package database

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log"
	"time"

	"github.com/go-while/go-preprint/internal/models"
)

// Session security constants
const (
	SessionIDLength  = 64               // 64 character session ID
	SessionTimeout   = 3 * time.Hour    // 3 hour sliding timeout
	MaxLoginAttempts = 5                // Max failed login attempts
	LoginLockoutTime = 15 * time.Minute // Lockout time after max attempts
)

// GenerateSecureSessionID creates a cryptographically secure session ID
func GenerateSecureSessionID() (string, error) {
	bytes := make([]byte, SessionIDLength/2) // hex encoding doubles the length
	if _, err := rand.Read(bytes); err != nil {
		return "", fmt.Errorf("failed to generate secure session ID: %w", err)
	}
	return hex.EncodeToString(bytes), nil
}

// CreateAccountSession creates a new session for the account and invalidates any existing one
func (db *Database) CreateAccountSession(accountID int64, remoteIP string) (string, error) {
	sessionID, err := GenerateSecureSessionID()
	if err != nil {
		return "", err
	}

	ts := now()
	query := `UPDATE accounts SET
		session_id = ?,
		last_login_ip = ?,
		session_expires_at = ?,
		login_attempts = 0,
		updated_at = ?
		WHERE id = ?`

	if _, err = retryableExec(db.mainDB, query, sessionID, remoteIP, ts.Add(SessionTimeout), ts, accountID); err != nil {
		return "", fmt.Errorf("failed to create account session: %w", err)
	}
	return sessionID, nil
}

// ValidateAccountSession checks if the session is valid and extends expiration
func (db *Database) ValidateAccountSession(sessionID string) (*models.Account, error) {
	if sessionID == "" {
		return nil, fmt.Errorf("empty session ID")
	}

	ts := now()
	var account models.Account
	err := retryableGet(db.mainDB, &account,
		`SELECT `+accountColumns+` FROM accounts
		WHERE session_id = ? AND session_expires_at > ? AND is_active = 1`, sessionID, ts)
	if err != nil {
		return nil, fmt.Errorf("invalid or expired session")
	}

	// Sliding timeout
	newExpiresAt := ts.Add(SessionTimeout)
	if _, err := retryableExec(db.mainDB, `UPDATE accounts SET session_expires_at = ? WHERE id = ?`, newExpiresAt, account.ID); err != nil {
		log.Printf("[DB]: Warning: failed to extend session expiration: %v", err)
	}
	account.SessionExpiresAt = &newExpiresAt
	return &account, nil
}

// InvalidateAccountSession clears the account's session
func (db *Database) InvalidateAccountSession(accountID int64) error {
	_, err := retryableExec(db.mainDB, `UPDATE accounts SET
		session_id = '',
		session_expires_at = NULL,
		updated_at = ?
		WHERE id = ?`, now(), accountID)
	return err
}

// InvalidateSessionBySessionID clears a session by its id
func (db *Database) InvalidateSessionBySessionID(sessionID string) error {
	if sessionID == "" {
		return nil
	}
	_, err := retryableExec(db.mainDB, `UPDATE accounts SET
		session_id = '',
		session_expires_at = NULL,
		updated_at = ?
		WHERE session_id = ?`, now(), sessionID)
	return err
}

// IncrementLoginAttempts increases the failed login counter
func (db *Database) IncrementLoginAttempts(username string) error {
	_, err := retryableExec(db.mainDB, `UPDATE accounts SET
		login_attempts = login_attempts + 1,
		updated_at = ?
		WHERE username = ?`, now(), username)
	return err
}

// IsAccountLockedOut checks if an account is temporarily locked out due to failed attempts
func (db *Database) IsAccountLockedOut(username string) (bool, error) {
	var row struct {
		LoginAttempts int       `db:"login_attempts"`
		UpdatedAt     time.Time `db:"updated_at"`
	}
	err := retryableGet(db.mainDB, &row, `SELECT login_attempts, updated_at FROM accounts WHERE username = ?`, username)
	if err != nil {
		return false, notFound(err, "account")
	}

	if row.LoginAttempts >= MaxLoginAttempts {
		if now().Before(row.UpdatedAt.Add(LoginLockoutTime)) {
			return true, nil
		}
		// Lockout period expired, reset attempts
		if _, err := retryableExec(db.mainDB, `UPDATE accounts SET login_attempts = 0, updated_at = ? WHERE username = ?`, now(), username); err != nil {
			log.Printf("[DB]: Warning: failed to reset login attempts for '%s': %v", username, err)
		}
	}
	return false, nil
}

// CleanupExpiredSessions clears expired sessions and returns how many were cleared
func (db *Database) CleanupExpiredSessions() (int64, error) {
	ts := now()
	result, err := retryableExec(db.mainDB, `UPDATE accounts SET
		session_id = '',
		session_expires_at = NULL,
		updated_at = ?
		WHERE session_expires_at IS NOT NULL AND session_expires_at < ?`, ts, ts)
	if err != nil {
		return 0, err
	}
	rowsAffected, _ := result.RowsAffected()
	return rowsAffected, nil
}

// ActiveSessionIDs returns the ids of all sessions that have not expired
func (db *Database) ActiveSessionIDs() (map[string]bool, error) {
	var ids []string
	if err := retryableSelect(db.mainDB, &ids,
		`SELECT session_id FROM accounts WHERE session_id != '' AND session_expires_at > ?`, now()); err != nil {
		return nil, fmt.Errorf("failed to list active sessions: %w", err)
	}
	active := make(map[string]bool, len(ids))
	for _, id := range ids {
		active[id] = true
	}
	return active, nil
}
