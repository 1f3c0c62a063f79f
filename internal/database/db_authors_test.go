package database

import (
	"errors"
	"testing"

	"github.com/go-while/go-preprint/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func authorIDs(authors []*models.Account) []int64 {
	ids := make([]int64, 0, len(authors))
	for _, a := range authors {
		ids = append(ids, a.ID)
	}
	return ids
}

func TestAddArticleAuthorIsIdempotent(t *testing.T) {
	db := newTestDB(t)
	owner := mustAccount(t, db, "owner@example.org", "Olive", "Owner", "Lab")
	coauthor := mustAccount(t, db, "co@example.org", "Cora", "Author", "Lab")
	article := mustPreprint(t, db, "Paper", nil, owner)

	next, err := db.NextAuthorOrder(article.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, next)

	first, err := db.AddArticleAuthor(article.ID, owner.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, first.Order)

	second, err := db.AddArticleAuthor(article.ID, coauthor.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, second.Order)

	again, err := db.AddArticleAuthor(article.ID, owner.ID)
	require.NoError(t, err)
	assert.Equal(t, first.ID, again.ID)
	assert.Equal(t, 0, again.Order)

	authors, err := db.GetArticleAuthors(article.ID)
	require.NoError(t, err)
	assert.Equal(t, []int64{owner.ID, coauthor.ID}, authorIDs(authors))

	next, err = db.NextAuthorOrder(article.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, next)
}

func TestReorderAuthors(t *testing.T) {
	db := newTestDB(t)
	a := mustAccount(t, db, "a@example.org", "Ann", "A", "Lab")
	b := mustAccount(t, db, "b@example.org", "Ben", "B", "Lab")
	c := mustAccount(t, db, "c@example.org", "Cat", "C", "Lab")
	article := mustPreprint(t, db, "Paper", nil, a)
	for _, acc := range []*models.Account{a, b, c} {
		_, err := db.AddArticleAuthor(article.ID, acc.ID)
		require.NoError(t, err)
	}

	require.NoError(t, db.ReorderAuthors(article.ID, []int64{c.ID, a.ID, b.ID}))
	authors, err := db.GetArticleAuthors(article.ID)
	require.NoError(t, err)
	assert.Equal(t, []int64{c.ID, a.ID, b.ID}, authorIDs(authors))

	orders, err := db.GetAuthorOrders(article.ID)
	require.NoError(t, err)
	require.Len(t, orders, 3)
	for i, o := range orders {
		assert.Equal(t, i, o.Order)
	}

	// missing author: rejected, nothing changes
	err = db.ReorderAuthors(article.ID, []int64{b.ID, a.ID})
	assert.True(t, errors.Is(err, ErrIncompleteAuthorList))
	authors, err = db.GetArticleAuthors(article.ID)
	require.NoError(t, err)
	assert.Equal(t, []int64{c.ID, a.ID, b.ID}, authorIDs(authors))
}

func TestReorderAuthorsDuplicateIDsUseFirstPosition(t *testing.T) {
	db := newTestDB(t)
	a := mustAccount(t, db, "a@example.org", "Ann", "A", "Lab")
	b := mustAccount(t, db, "b@example.org", "Ben", "B", "Lab")
	article := mustPreprint(t, db, "Paper", nil, a)
	for _, acc := range []*models.Account{a, b} {
		_, err := db.AddArticleAuthor(article.ID, acc.ID)
		require.NoError(t, err)
	}

	require.NoError(t, db.ReorderAuthors(article.ID, []int64{b.ID, a.ID, b.ID}))

	ob, err := db.GetAuthorOrder(article.ID, b.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, ob.Order)
	oa, err := db.GetAuthorOrder(article.ID, a.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, oa.Order)

	authors, err := db.GetArticleAuthors(article.ID)
	require.NoError(t, err)
	assert.Equal(t, []int64{b.ID, a.ID}, authorIDs(authors))

	orders, err := db.GetAuthorOrders(article.ID)
	require.NoError(t, err)
	assert.Len(t, orders, 2)
}

func TestReorderCreatesMissingOrderRecord(t *testing.T) {
	db := newTestDB(t)
	a := mustAccount(t, db, "a@example.org", "Ann", "A", "Lab")
	b := mustAccount(t, db, "b@example.org", "Ben", "B", "Lab")
	article := mustPreprint(t, db, "Paper", nil, a)
	_, err := db.AddArticleAuthor(article.ID, a.ID)
	require.NoError(t, err)

	// association without order record
	_, err = db.GetMainDB().Exec(`INSERT INTO article_authors (article_id, account_id) VALUES (?, ?)`, article.ID, b.ID)
	require.NoError(t, err)

	require.NoError(t, db.ReorderAuthors(article.ID, []int64{b.ID, a.ID}))
	o, err := db.GetAuthorOrder(article.ID, b.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, o.Order)
}

func TestRemoveArticleAuthor(t *testing.T) {
	db := newTestDB(t)
	a := mustAccount(t, db, "a@example.org", "Ann", "A", "Lab")
	b := mustAccount(t, db, "b@example.org", "Ben", "B", "Lab")
	article := mustPreprint(t, db, "Paper", nil, a)
	for _, acc := range []*models.Account{a, b} {
		_, err := db.AddArticleAuthor(article.ID, acc.ID)
		require.NoError(t, err)
	}

	require.NoError(t, db.RemoveArticleAuthor(article.ID, b.ID))

	is, err := db.IsArticleAuthor(article.ID, b.ID)
	require.NoError(t, err)
	assert.False(t, is)
	_, err = db.GetAuthorOrder(article.ID, b.ID)
	assert.True(t, errors.Is(err, ErrNotFound))

	err = db.RemoveArticleAuthor(article.ID, b.ID)
	assert.True(t, errors.Is(err, ErrNotFound))
}
