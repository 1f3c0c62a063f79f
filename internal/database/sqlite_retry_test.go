package database

import (
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-while/go-preprint/internal/models"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { mockDB.Close() })
	return sqlx.NewDb(mockDB, "sqlmock"), mock
}

func TestIsRetryableError(t *testing.T) {
	assert.False(t, isRetryableError(nil))
	assert.True(t, isRetryableError(errors.New("database is locked")))
	assert.True(t, isRetryableError(errors.New("SQLITE_BUSY: busy")))
	assert.False(t, isRetryableError(errors.New("UNIQUE constraint failed")))
}

func TestRetryableExecRetriesOnLock(t *testing.T) {
	db, mock := newMockDB(t)
	q := regexp.QuoteMeta(`UPDATE accounts SET login_attempts = 0`)

	mock.ExpectExec(q).WillReturnError(errors.New("database is locked"))
	mock.ExpectExec(q).WillReturnError(errors.New("database is locked"))
	mock.ExpectExec(q).WillReturnResult(sqlmock.NewResult(0, 1))

	res, err := retryableExec(db, `UPDATE accounts SET login_attempts = 0`)
	require.NoError(t, err)
	n, _ := res.RowsAffected()
	assert.Equal(t, int64(1), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRetryableExecStopsOnOtherErrors(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectExec("INSERT").WillReturnError(errors.New("UNIQUE constraint failed"))

	_, err := retryableExec(db, `INSERT INTO keywords (word) VALUES (?)`, "x")
	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRetryableTransactionExecRetriesWholeTransaction(t *testing.T) {
	db, mock := newMockDB(t)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT").WillReturnError(errors.New("database is locked"))
	mock.ExpectRollback()
	mock.ExpectBegin()
	mock.ExpectExec("INSERT").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	calls := 0
	err := retryableTransactionExec(db, func(tx *sqlx.Tx) error {
		calls++
		_, err := tx.Exec(`INSERT INTO keywords (word) VALUES (?)`, "x")
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStoreErrorsAreWrapped(t *testing.T) {
	sqlxDB, mock := newMockDB(t)
	db := &Database{mainDB: sqlxDB, StopChan: make(chan struct{})}

	mock.ExpectQuery("SELECT COUNT").WillReturnError(errors.New("disk I/O error"))
	_, err := db.CountPublishedPreprints()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to count published preprints")
	assert.False(t, errors.Is(err, ErrNotFound))

	mock.ExpectQuery("SELECT").WillReturnRows(sqlmock.NewRows([]string{"id"}))
	_, err = db.GetAccountByID(1)
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTruncateString(t *testing.T) {
	assert.Equal(t, "abc", truncateString("abc", 5))
	assert.Equal(t, "ab", truncateString("abc", 2))
}

func TestSaveArticleRetryKeepsCommittedID(t *testing.T) {
	mdb, mock := newMockDB(t)
	db := &Database{mainDB: mdb, StopChan: make(chan struct{})}
	insert := regexp.QuoteMeta(`INSERT INTO articles`)
	clearKeywords := regexp.QuoteMeta(`DELETE FROM article_keywords`)

	// first attempt inserts row 5, then hits a lock and is rolled back
	mock.ExpectBegin()
	mock.ExpectExec(insert).WillReturnResult(sqlmock.NewResult(5, 1))
	mock.ExpectExec(clearKeywords).WillReturnError(errors.New("database is locked"))
	mock.ExpectRollback()
	// the retry must insert again rather than update the rolled back row
	mock.ExpectBegin()
	mock.ExpectExec(insert).WillReturnResult(sqlmock.NewResult(6, 1))
	mock.ExpectExec(clearKeywords).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	a := &models.Article{Title: "Retried", IsPreprint: true}
	require.NoError(t, db.SaveArticle(a))
	assert.Equal(t, int64(6), a.ID)
	assert.False(t, a.DateSubmitted.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveArticleFailureLeavesNewArticleUnsaved(t *testing.T) {
	mdb, mock := newMockDB(t)
	db := &Database{mainDB: mdb, StopChan: make(chan struct{})}

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO articles`)).WillReturnResult(sqlmock.NewResult(9, 1))
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM article_keywords`)).WillReturnError(errors.New("disk I/O error"))
	mock.ExpectRollback()

	a := &models.Article{Title: "Lost"}
	assert.Error(t, db.SaveArticle(a))
	assert.Equal(t, int64(0), a.ID)
	assert.True(t, a.DateSubmitted.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}
