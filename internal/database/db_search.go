package database

import (
	"fmt"
	"strings"

	"github.com/go-while/go-preprint/internal/models"
	"github.com/jmoiron/sqlx"
)

// SearchPreprints finds preprints matching term.
//
// An article matches when its casefolded title or subtitle contains the whole term, or one of
// its keywords equals a whitespace separated token. Preprints authored by an account whose
// first or last name equals a token, or whose institution contains every token, match as well.
// Results are distinct, newest publication first. A blank term returns every preprint.
func (db *Database) SearchPreprints(term string) ([]*models.Article, error) {
	term = strings.TrimSpace(term)
	if term == "" {
		return db.GetAllPreprints()
	}
	tokens := strings.Fields(term)

	institution := make([]string, len(tokens))
	args := []interface{}{term, term, tokens, tokens, tokens}
	for i, tok := range tokens {
		institution[i] = `instr(casefold(ac.institution), casefold(?)) > 0`
		args = append(args, tok)
	}

	query, args, err := sqlx.In(`SELECT `+articleColumns+` FROM articles a
		WHERE a.is_preprint = 1 AND (
			instr(casefold(a.title), casefold(?)) > 0
			OR instr(casefold(a.subtitle), casefold(?)) > 0
			OR a.id IN (
				SELECT ak.article_id FROM article_keywords ak
				JOIN keywords k ON k.id = ak.keyword_id
				WHERE k.word IN (?))
			OR a.id IN (
				SELECT aa.article_id FROM article_authors aa
				JOIN accounts ac ON ac.id = aa.account_id
				WHERE ac.first_name IN (?) OR ac.last_name IN (?)
				OR (`+strings.Join(institution, " AND ")+`))
		)
		ORDER BY a.date_published DESC, a.id DESC`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to build search query: %w", err)
	}

	var articles []*models.Article
	if err := retryableSelect(db.mainDB, &articles, db.mainDB.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("failed to search preprints: %w", err)
	}
	return articles, db.loadAuthors(articles)
}
