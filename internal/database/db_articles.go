package database

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-while/go-preprint/internal/models"
	"github.com/jmoiron/sqlx"
)

const articleColumns = `a.id, a.title, a.subtitle, a.abstract, a.stage, a.date_published,
	a.owner_id, a.correspondence_author_id, a.current_step, a.is_preprint,
	a.date_submitted, a.updated_at`

// publishedClause restricts to publicly visible preprints; takes one time argument
const publishedClause = `a.is_preprint = 1 AND a.stage = 'published'
	AND a.date_published IS NOT NULL AND a.date_published <= ?`

// GetLatestPreprints returns the most recent preprints whose publication date has passed,
// regardless of stage.
func (db *Database) GetLatestPreprints(limit int) ([]*models.Article, error) {
	var articles []*models.Article
	err := retryableSelect(db.mainDB, &articles,
		`SELECT `+articleColumns+` FROM articles a
		WHERE a.is_preprint = 1 AND a.date_published IS NOT NULL AND a.date_published <= ?
		ORDER BY a.date_published DESC, a.id DESC
		LIMIT ?`, now(), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get latest preprints: %w", err)
	}
	return articles, db.loadAuthors(articles)
}

// CountPublishedPreprints returns the number of published preprints
func (db *Database) CountPublishedPreprints() (int, error) {
	var count int
	if err := retryableGet(db.mainDB, &count, `SELECT COUNT(*) FROM articles a WHERE `+publishedClause, now()); err != nil {
		return 0, fmt.Errorf("failed to count published preprints: %w", err)
	}
	return count, nil
}

// GetPublishedPreprints returns one page of published preprints, newest first
func (db *Database) GetPublishedPreprints(offset, limit int) ([]*models.Article, error) {
	var articles []*models.Article
	err := retryableSelect(db.mainDB, &articles,
		`SELECT `+articleColumns+` FROM articles a
		WHERE `+publishedClause+`
		ORDER BY a.date_published DESC, a.id DESC
		LIMIT ? OFFSET ?`, now(), limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to get published preprints: %w", err)
	}
	return articles, db.loadAuthors(articles)
}

// GetAllPreprints returns every preprint regardless of publication state
func (db *Database) GetAllPreprints() ([]*models.Article, error) {
	var articles []*models.Article
	err := retryableSelect(db.mainDB, &articles,
		`SELECT `+articleColumns+` FROM articles a
		WHERE a.is_preprint = 1
		ORDER BY a.date_published IS NULL, a.date_published DESC, a.id DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to get preprints: %w", err)
	}
	return articles, db.loadAuthors(articles)
}

// GetPublishedPreprint returns a published preprint with its authors and keywords
func (db *Database) GetPublishedPreprint(id int64) (*models.Article, error) {
	var article models.Article
	err := retryableGet(db.mainDB, &article,
		`SELECT `+articleColumns+` FROM articles a WHERE a.id = ? AND `+publishedClause, id, now())
	if err != nil {
		return nil, notFound(err, "preprint")
	}
	return &article, db.loadArticleDetails(&article)
}

// GetOwnedPreprint returns a preprint owned by the given account
func (db *Database) GetOwnedPreprint(id, ownerID int64) (*models.Article, error) {
	var article models.Article
	err := retryableGet(db.mainDB, &article,
		`SELECT `+articleColumns+` FROM articles a WHERE a.id = ? AND a.is_preprint = 1 AND a.owner_id = ?`, id, ownerID)
	if err != nil {
		return nil, notFound(err, "preprint")
	}
	return &article, db.loadArticleDetails(&article)
}

// GetArticleByID returns any article by id, without ownership or publication checks
func (db *Database) GetArticleByID(id int64) (*models.Article, error) {
	var article models.Article
	if err := retryableGet(db.mainDB, &article, `SELECT `+articleColumns+` FROM articles a WHERE a.id = ?`, id); err != nil {
		return nil, notFound(err, "article")
	}
	return &article, db.loadArticleDetails(&article)
}

// SaveArticle inserts a new article (ID == 0) or updates an existing one, then replaces its keywords.
// a.ID and timestamps are set only once the transaction has committed.
func (db *Database) SaveArticle(a *models.Article) error {
	ts := now()
	if a.Stage == "" {
		a.Stage = models.StageUnsubmitted
	}
	isNew := a.ID == 0
	var savedID int64
	err := retryableTransactionExec(db.mainDB, func(tx *sqlx.Tx) error {
		id := a.ID
		if isNew {
			res, err := tx.Exec(`INSERT INTO articles
				(title, subtitle, abstract, stage, date_published, owner_id, correspondence_author_id,
				 current_step, is_preprint, date_submitted, updated_at)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				a.Title, a.Subtitle, a.Abstract, a.Stage, a.DatePublished, a.OwnerID, a.CorrespondenceAuthorID,
				a.CurrentStep, a.IsPreprint, ts, ts)
			if err != nil {
				return fmt.Errorf("failed to insert article: %w", err)
			}
			id, err = res.LastInsertId()
			if err != nil {
				return fmt.Errorf("failed to get article id: %w", err)
			}
		} else {
			_, err := tx.Exec(`UPDATE articles SET
				title = ?, subtitle = ?, abstract = ?, stage = ?, date_published = ?,
				owner_id = ?, correspondence_author_id = ?, current_step = ?, is_preprint = ?,
				updated_at = ?
				WHERE id = ?`,
				a.Title, a.Subtitle, a.Abstract, a.Stage, a.DatePublished,
				a.OwnerID, a.CorrespondenceAuthorID, a.CurrentStep, a.IsPreprint, ts, id)
			if err != nil {
				return fmt.Errorf("failed to update article %d: %w", id, err)
			}
		}
		savedID = id
		return replaceKeywords(tx, id, a.Keywords)
	})
	if err != nil {
		return err
	}
	if isNew {
		a.ID = savedID
		a.DateSubmitted = ts
	}
	a.UpdatedAt = ts
	return nil
}

// PublishArticle moves an article to the published stage at the given time
func (db *Database) PublishArticle(id int64, at time.Time) error {
	at = at.UTC()
	res, err := retryableExec(db.mainDB, `UPDATE articles SET stage = ?, date_published = ?, updated_at = ? WHERE id = ?`,
		models.StagePublished, at, now(), id)
	if err != nil {
		return fmt.Errorf("failed to publish article %d: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("article %d: %w", id, ErrNotFound)
	}
	return nil
}

// ParseKeywords splits a comma separated keyword field, dropping blanks and duplicates
func ParseKeywords(raw string) []string {
	return uniqueStrings(strings.Split(raw, ","))
}

// replaceKeywords sets the article's keyword set to words, creating missing keywords
func replaceKeywords(tx *sqlx.Tx, articleID int64, words []string) error {
	if _, err := tx.Exec(`DELETE FROM article_keywords WHERE article_id = ?`, articleID); err != nil {
		return fmt.Errorf("failed to clear keywords: %w", err)
	}
	for _, word := range uniqueStrings(words) {
		if _, err := tx.Exec(`INSERT OR IGNORE INTO keywords (word) VALUES (?)`, word); err != nil {
			return fmt.Errorf("failed to insert keyword '%s': %w", word, err)
		}
		if _, err := tx.Exec(`INSERT OR IGNORE INTO article_keywords (article_id, keyword_id)
			SELECT ?, id FROM keywords WHERE word = ?`, articleID, word); err != nil {
			return fmt.Errorf("failed to link keyword '%s': %w", word, err)
		}
	}
	return nil
}

// GetArticleKeywords returns the keyword words of an article in insertion order
func (db *Database) GetArticleKeywords(articleID int64) ([]string, error) {
	var words []string
	err := retryableSelect(db.mainDB, &words,
		`SELECT k.word FROM keywords k
		JOIN article_keywords ak ON ak.keyword_id = k.id
		WHERE ak.article_id = ?
		ORDER BY ak.rowid`, articleID)
	if err != nil {
		return nil, fmt.Errorf("failed to get keywords for article %d: %w", articleID, err)
	}
	return words, nil
}

func (db *Database) loadArticleDetails(a *models.Article) error {
	authors, err := db.GetArticleAuthors(a.ID)
	if err != nil {
		return err
	}
	a.Authors = authors
	keywords, err := db.GetArticleKeywords(a.ID)
	if err != nil {
		return err
	}
	a.Keywords = keywords
	return nil
}

// loadAuthors fills the author lists of listing results
func (db *Database) loadAuthors(articles []*models.Article) error {
	for _, a := range articles {
		authors, err := db.GetArticleAuthors(a.ID)
		if err != nil {
			return err
		}
		a.Authors = authors
	}
	return nil
}
