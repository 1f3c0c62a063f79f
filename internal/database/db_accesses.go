package database

import (
	"fmt"

	"github.com/go-while/go-preprint/internal/models"
)

// InsertArticleAccess records one access event; AccessedAt defaults to now
func (db *Database) InsertArticleAccess(access *models.ArticleAccess) error {
	if access.AccessedAt.IsZero() {
		access.AccessedAt = now()
	}
	res, err := retryableExec(db.mainDB, `INSERT INTO article_accesses (article_id, type, ip, user_agent, accessed_at) VALUES (?, ?, ?, ?, ?)`,
		access.ArticleID, access.Type, access.IP, access.UserAgent, access.AccessedAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to insert article access: %w", err)
	}
	if id, err := res.LastInsertId(); err == nil {
		access.ID = id
	}
	return nil
}

// CountArticleAccesses returns the number of recorded accesses of a type for an article
func (db *Database) CountArticleAccesses(articleID int64, accessType string) (int, error) {
	var n int
	if err := retryableGet(db.mainDB, &n, `SELECT COUNT(*) FROM article_accesses WHERE article_id = ? AND type = ?`, articleID, accessType); err != nil {
		return 0, fmt.Errorf("failed to count article accesses: %w", err)
	}
	return n, nil
}
