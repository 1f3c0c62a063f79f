package database

import (
	"fmt"
	"strings"

	"github.com/go-while/go-preprint/internal/models"
)

const accountColumns = `id, username, email, password_hash, first_name, middle_name, last_name,
	institution, department, orcid, is_active, session_id, last_login_ip,
	session_expires_at, login_attempts, created_at, updated_at`

// InsertAccount creates a new account. Email is normalized; username defaults to the email.
func (db *Database) InsertAccount(a *models.Account) error {
	a.Email = NormalizeEmail(a.Email)
	if a.Username == "" {
		a.Username = a.Email
	}
	ts := now()
	a.CreatedAt = ts
	a.UpdatedAt = ts
	a.IsActive = true

	res, err := retryableExec(db.mainDB, `INSERT INTO accounts
		(username, email, password_hash, first_name, middle_name, last_name,
		 institution, department, orcid, is_active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, 1, ?, ?)`,
		a.Username, a.Email, a.PasswordHash, a.FirstName, a.MiddleName, a.LastName,
		a.Institution, a.Department, a.ORCID, ts, ts)
	if err != nil {
		return fmt.Errorf("failed to insert account '%s': %w", a.Email, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get account id: %w", err)
	}
	a.ID = id
	return nil
}

// GetAccountByID retrieves an account by id
func (db *Database) GetAccountByID(id int64) (*models.Account, error) {
	var a models.Account
	if err := retryableGet(db.mainDB, &a, `SELECT `+accountColumns+` FROM accounts WHERE id = ?`, id); err != nil {
		return nil, notFound(err, "account")
	}
	return &a, nil
}

// GetAccountByEmail retrieves an account by email, matched case-insensitively
func (db *Database) GetAccountByEmail(email string) (*models.Account, error) {
	var a models.Account
	if err := retryableGet(db.mainDB, &a, `SELECT `+accountColumns+` FROM accounts WHERE lower(email) = ?`, NormalizeEmail(email)); err != nil {
		return nil, notFound(err, "account")
	}
	return &a, nil
}

// GetAccountByUsername retrieves an account by username
func (db *Database) GetAccountByUsername(username string) (*models.Account, error) {
	var a models.Account
	if err := retryableGet(db.mainDB, &a, `SELECT `+accountColumns+` FROM accounts WHERE username = ?`, username); err != nil {
		return nil, notFound(err, "account")
	}
	return &a, nil
}

// FindAccountsByEmailOrORCID returns accounts whose email or ORCID equals the search text.
// Email is compared case-insensitively. Empty text matches nothing.
func (db *Database) FindAccountsByEmailOrORCID(text string) ([]*models.Account, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, nil
	}
	var accounts []*models.Account
	err := retryableSelect(db.mainDB, &accounts,
		`SELECT `+accountColumns+` FROM accounts
		WHERE lower(email) = ? OR (orcid != '' AND orcid = ?)
		ORDER BY id`, NormalizeEmail(text), text)
	if err != nil {
		return nil, fmt.Errorf("failed to search accounts: %w", err)
	}
	return accounts, nil
}

// ListAccounts returns all accounts ordered by id
func (db *Database) ListAccounts() ([]*models.Account, error) {
	var accounts []*models.Account
	if err := retryableSelect(db.mainDB, &accounts, `SELECT `+accountColumns+` FROM accounts ORDER BY id`); err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	return accounts, nil
}

// UpdateAccountPassword stores a new password hash
func (db *Database) UpdateAccountPassword(accountID int64, passwordHash string) error {
	res, err := retryableExec(db.mainDB, `UPDATE accounts SET password_hash = ?, updated_at = ? WHERE id = ?`, passwordHash, now(), accountID)
	if err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("account %d: %w", accountID, ErrNotFound)
	}
	return nil
}

// DeleteAccount removes an account; associations cascade, owned articles are kept ownerless
func (db *Database) DeleteAccount(accountID int64) error {
	res, err := retryableExec(db.mainDB, `DELETE FROM accounts WHERE id = ?`, accountID)
	if err != nil {
		return fmt.Errorf("failed to delete account: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("account %d: %w", accountID, ErrNotFound)
	}
	return nil
}
