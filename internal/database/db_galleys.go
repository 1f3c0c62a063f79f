package database

import (
	"fmt"

	"github.com/go-while/go-preprint/internal/models"
)

const galleyColumns = `id, article_id, type, label, file_url, created_at`

// GetGalleys returns all galleys of an article in creation order
func (db *Database) GetGalleys(articleID int64) ([]*models.Galley, error) {
	var galleys []*models.Galley
	if err := retryableSelect(db.mainDB, &galleys, `SELECT `+galleyColumns+` FROM galleys WHERE article_id = ? ORDER BY id`, articleID); err != nil {
		return nil, fmt.Errorf("failed to get galleys of article %d: %w", articleID, err)
	}
	return galleys, nil
}

// FirstGalleyOfType returns the lowest-id galley of the given type; ErrNotFound if there is none
func (db *Database) FirstGalleyOfType(articleID int64, galleyType string) (*models.Galley, error) {
	var g models.Galley
	err := retryableGet(db.mainDB, &g,
		`SELECT `+galleyColumns+` FROM galleys WHERE article_id = ? AND type = ? ORDER BY id LIMIT 1`, articleID, galleyType)
	if err != nil {
		return nil, notFound(err, "galley")
	}
	return &g, nil
}

// InsertGalley stores a new galley for an existing article
func (db *Database) InsertGalley(g *models.Galley) error {
	g.CreatedAt = now()
	res, err := retryableExec(db.mainDB, `INSERT INTO galleys (article_id, type, label, file_url, created_at) VALUES (?, ?, ?, ?, ?)`,
		g.ArticleID, g.Type, g.Label, g.FileURL, g.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert galley: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get galley id: %w", err)
	}
	g.ID = id
	return nil
}
