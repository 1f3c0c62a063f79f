package database

import (
	"errors"
	"fmt"

	"github.com/go-while/go-preprint/internal/models"
	"github.com/jmoiron/sqlx"
)

// ErrIncompleteAuthorList is returned by ReorderAuthors when a current author is missing from the new order
var ErrIncompleteAuthorList = errors.New("author list does not contain every author of the article")

// GetArticleAuthors returns the authors of an article by display order.
// Authors without an order record sort last, by account id.
func (db *Database) GetArticleAuthors(articleID int64) ([]*models.Account, error) {
	var authors []*models.Account
	err := retryableSelect(db.mainDB, &authors,
		`SELECT `+prefixed("ac", accountColumns)+` FROM accounts ac
		JOIN article_authors aa ON aa.account_id = ac.id
		LEFT JOIN article_author_orders o ON o.article_id = aa.article_id AND o.account_id = ac.id
		WHERE aa.article_id = ?
		ORDER BY o.author_order IS NULL, o.author_order, ac.id`, articleID)
	if err != nil {
		return nil, fmt.Errorf("failed to get authors of article %d: %w", articleID, err)
	}
	return authors, nil
}

// IsArticleAuthor reports whether the account is associated with the article
func (db *Database) IsArticleAuthor(articleID, accountID int64) (bool, error) {
	var n int
	err := retryableGet(db.mainDB, &n, `SELECT COUNT(*) FROM article_authors WHERE article_id = ? AND account_id = ?`, articleID, accountID)
	if err != nil {
		return false, fmt.Errorf("failed to check author: %w", err)
	}
	return n > 0, nil
}

// NextAuthorOrder returns max(order)+1 over the article's order records, or 0 if there are none
func (db *Database) NextAuthorOrder(articleID int64) (int, error) {
	var next int
	err := retryableGet(db.mainDB, &next,
		`SELECT COALESCE(MAX(author_order) + 1, 0) FROM article_author_orders WHERE article_id = ?`, articleID)
	if err != nil {
		return 0, fmt.Errorf("failed to get next author order: %w", err)
	}
	return next, nil
}

// GetAuthorOrder returns the order record for an author of an article
func (db *Database) GetAuthorOrder(articleID, accountID int64) (*models.ArticleAuthorOrder, error) {
	var o models.ArticleAuthorOrder
	err := retryableGet(db.mainDB, &o,
		`SELECT id, article_id, account_id, author_order FROM article_author_orders
		WHERE article_id = ? AND account_id = ?`, articleID, accountID)
	if err != nil {
		return nil, notFound(err, "author order")
	}
	return &o, nil
}

// GetAuthorOrders returns all order records of an article, lowest order first
func (db *Database) GetAuthorOrders(articleID int64) ([]*models.ArticleAuthorOrder, error) {
	var orders []*models.ArticleAuthorOrder
	err := retryableSelect(db.mainDB, &orders,
		`SELECT id, article_id, account_id, author_order FROM article_author_orders
		WHERE article_id = ? ORDER BY author_order, id`, articleID)
	if err != nil {
		return nil, fmt.Errorf("failed to get author orders: %w", err)
	}
	return orders, nil
}

// AddArticleAuthor associates the account with the article and ensures an order record exists.
// A new order record gets the next order; an existing one is left untouched. Idempotent.
func (db *Database) AddArticleAuthor(articleID, accountID int64) (*models.ArticleAuthorOrder, error) {
	err := retryableTransactionExec(db.mainDB, func(tx *sqlx.Tx) error {
		if _, err := tx.Exec(`INSERT OR IGNORE INTO article_authors (article_id, account_id) VALUES (?, ?)`, articleID, accountID); err != nil {
			return fmt.Errorf("failed to associate author: %w", err)
		}
		_, err := tx.Exec(`INSERT OR IGNORE INTO article_author_orders (article_id, account_id, author_order)
			SELECT ?, ?, COALESCE(MAX(author_order) + 1, 0) FROM article_author_orders WHERE article_id = ?`,
			articleID, accountID, articleID)
		if err != nil {
			return fmt.Errorf("failed to create author order: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return db.GetAuthorOrder(articleID, accountID)
}

// ReorderAuthors sets each author's order to the index of its first occurrence in accountIDs,
// in one transaction. Every current author must be present; otherwise nothing is written.
func (db *Database) ReorderAuthors(articleID int64, accountIDs []int64) error {
	authors, err := db.GetArticleAuthors(articleID)
	if err != nil {
		return err
	}
	position := make(map[int64]int, len(accountIDs))
	for i, id := range accountIDs {
		if _, seen := position[id]; !seen {
			position[id] = i
		}
	}
	orders := make(map[int64]int, len(authors))
	for _, a := range authors {
		order, ok := position[a.ID]
		if !ok {
			return ErrIncompleteAuthorList
		}
		// ids of non-authors carry no order record
		orders[a.ID] = order
	}

	return retryableTransactionExec(db.mainDB, func(tx *sqlx.Tx) error {
		for _, a := range authors {
			_, err := tx.Exec(`INSERT INTO article_author_orders (article_id, account_id, author_order)
				VALUES (?, ?, ?)
				ON CONFLICT(article_id, account_id) DO UPDATE SET author_order = excluded.author_order`,
				articleID, a.ID, orders[a.ID])
			if err != nil {
				return fmt.Errorf("failed to set order of author %d: %w", a.ID, err)
			}
		}
		return nil
	})
}

// RemoveArticleAuthor deletes the author's order record and association
func (db *Database) RemoveArticleAuthor(articleID, accountID int64) error {
	return retryableTransactionExec(db.mainDB, func(tx *sqlx.Tx) error {
		if _, err := tx.Exec(`DELETE FROM article_author_orders WHERE article_id = ? AND account_id = ?`, articleID, accountID); err != nil {
			return fmt.Errorf("failed to delete author order: %w", err)
		}
		res, err := tx.Exec(`DELETE FROM article_authors WHERE article_id = ? AND account_id = ?`, articleID, accountID)
		if err != nil {
			return fmt.Errorf("failed to remove author: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return fmt.Errorf("author %d of article %d: %w", accountID, articleID, ErrNotFound)
		}
		return nil
	})
}
