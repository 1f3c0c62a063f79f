package web

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/go-while/go-preprint/internal/database"
	"github.com/go-while/go-preprint/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestSubmitRequiresLogin(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.get("/preprints/submit/start", "")
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/login?redirect="+url.QueryEscape("/preprints/submit/start"), rec.Header().Get("Location"))

	rec = env.get("/preprints/authors/1", "")
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.True(t, strings.HasPrefix(rec.Header().Get("Location"), "/login?redirect="))
}

func TestSubmitStart(t *testing.T) {
	env := newTestEnv(t, nil)
	owner := env.account("owner@example.org", "olive", "owner")
	sid := env.session(owner)

	rec := env.get("/preprints/submit/start", sid)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Submit a preprint")

	rec = env.post("/preprints/submit/start", sid, url.Values{"title": {"   "}, "abstract": {"kept"}})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "This field is required.")
	assert.Contains(t, rec.Body.String(), "kept")
	all, err := env.db.GetAllPreprints()
	require.NoError(t, err)
	assert.Empty(t, all)

	rec = env.post("/preprints/submit/start", sid, url.Values{
		"title":    {" Quantum sheep "},
		"abstract": {"Counting them."},
		"keywords": {"sleep, quantum,, sleep"},
	})
	require.Equal(t, http.StatusSeeOther, rec.Code)
	var id int64
	_, err = fmt.Sscanf(rec.Header().Get("Location"), "/preprints/authors/%d", &id)
	require.NoError(t, err)

	article, err := env.db.GetOwnedPreprint(id, owner.ID)
	require.NoError(t, err)
	assert.Equal(t, "Quantum sheep", article.Title)
	assert.True(t, article.IsPreprint)
	assert.Equal(t, 1, article.CurrentStep)
	require.NotNil(t, article.CorrespondenceAuthorID)
	assert.Equal(t, owner.ID, *article.CorrespondenceAuthorID)
	assert.Equal(t, []string{"sleep", "quantum"}, article.Keywords)
	require.Len(t, article.Authors, 1)
	assert.Equal(t, owner.ID, article.Authors[0].ID)

	// editing keeps the article and its single author
	rec = env.post(fmt.Sprintf("/preprints/submit/start/%d", id), sid, url.Values{"title": {"Quantum goats"}})
	require.Equal(t, http.StatusSeeOther, rec.Code)
	article, err = env.db.GetOwnedPreprint(id, owner.ID)
	require.NoError(t, err)
	assert.Equal(t, "Quantum goats", article.Title)
	assert.Empty(t, article.Keywords)
	assert.Len(t, article.Authors, 1)

	other := env.account("other@example.org", "otto", "other")
	rec = env.get(fmt.Sprintf("/preprints/submit/start/%d", id), env.session(other))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAuthorsPageOwnerOnly(t *testing.T) {
	env := newTestEnv(t, nil)
	owner := env.account("owner@example.org", "olive", "owner")
	article := env.preprint("Owned", owner, false)
	other := env.account("other@example.org", "otto", "other")

	rec := env.get(fmt.Sprintf("/preprints/authors/%d", article.ID), env.session(other))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.get(fmt.Sprintf("/preprints/authors/%d", article.ID), env.session(owner))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Olive Owner")
	assert.NotContains(t, rec.Body.String(), "data-open")
}

func TestAuthorsAddByForm(t *testing.T) {
	env := newTestEnv(t, nil)
	owner := env.account("owner@example.org", "olive", "owner")
	sid := env.session(owner)
	article := env.preprint("Owned", owner, false)
	path := fmt.Sprintf("/preprints/authors/%d", article.ID)

	rec := env.post(path, sid, url.Values{
		"add_author":  {"1"},
		"first_name":  {"ada"},
		"last_name":   {"lovelace"},
		"email":       {"Ada@Example.org"},
		"institution": {"Analytical Engines"},
	})
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, path, rec.Header().Get("Location"))

	ada, err := env.db.GetAccountByEmail("ada@example.org")
	require.NoError(t, err)
	assert.Equal(t, "ada@example.org", ada.Email)
	assert.True(t, strings.HasPrefix(ada.PasswordHash, "$2"))
	_, err = bcrypt.Cost([]byte(ada.PasswordHash))
	assert.NoError(t, err)

	authors, err := env.db.GetArticleAuthors(article.ID)
	require.NoError(t, err)
	require.Len(t, authors, 2)
	assert.Equal(t, ada.ID, authors[1].ID)

	// the success notice shows on the next page only
	rec = env.get(path, sid)
	assert.Contains(t, rec.Body.String(), "Ada Lovelace added to the article")
	rec = env.get(path, sid)
	assert.NotContains(t, rec.Body.String(), "added to the article")

	// an existing email is added even when the rest of the form is incomplete
	env.account("known@example.org", "kim", "known")
	rec = env.post(path, sid, url.Values{"add_author": {"1"}, "email": {"known@example.org"}})
	require.Equal(t, http.StatusSeeOther, rec.Code)
	authors, err = env.db.GetArticleAuthors(article.ID)
	require.NoError(t, err)
	assert.Len(t, authors, 3)
}

func TestSubmitStartEditIsOwnerOnly(t *testing.T) {
	env := newTestEnv(t, nil)
	owner := env.account("owner@example.org", "olive", "owner")
	coauthor := env.account("co@example.org", "cora", "author")
	article := env.preprint("Owned", owner, false)
	_, err := env.db.AddArticleAuthor(article.ID, coauthor.ID)
	require.NoError(t, err)
	path := fmt.Sprintf("/preprints/submit/start/%d", article.ID)
	sid := env.session(coauthor)

	rec := env.get(path, sid)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = env.post(path, sid, url.Values{"title": {"Taken over"}})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	got, err := env.db.GetOwnedPreprint(article.ID, owner.ID)
	require.NoError(t, err)
	assert.Equal(t, "Owned", got.Title)
}

func TestAuthorsAddByFormTwiceKeepsOneAuthor(t *testing.T) {
	env := newTestEnv(t, nil)
	owner := env.account("owner@example.org", "olive", "owner")
	sid := env.session(owner)
	article := env.preprint("Owned", owner, false)
	path := fmt.Sprintf("/preprints/authors/%d", article.ID)
	form := url.Values{
		"add_author":  {"1"},
		"first_name":  {"ada"},
		"last_name":   {"lovelace"},
		"email":       {"ada@example.org"},
		"institution": {"Analytical Engines"},
	}

	for i := 0; i < 2; i++ {
		rec := env.post(path, sid, form)
		require.Equal(t, http.StatusSeeOther, rec.Code)
	}

	accounts, err := env.db.ListAccounts()
	require.NoError(t, err)
	assert.Len(t, accounts, 2)

	ada, err := env.db.GetAccountByEmail("ada@example.org")
	require.NoError(t, err)
	authors, err := env.db.GetArticleAuthors(article.ID)
	require.NoError(t, err)
	require.Len(t, authors, 2)
	assert.Equal(t, []int64{owner.ID, ada.ID}, []int64{authors[0].ID, authors[1].ID})

	orders, err := env.db.GetAuthorOrders(article.ID)
	require.NoError(t, err)
	assert.Len(t, orders, 2)
}

func TestAuthorsAddByFormInvalid(t *testing.T) {
	env := newTestEnv(t, nil)
	owner := env.account("owner@example.org", "olive", "owner")
	article := env.preprint("Owned", owner, false)

	rec := env.post(fmt.Sprintf("/preprints/authors/%d", article.ID), env.session(owner), url.Values{
		"add_author": {"1"},
		"first_name": {"nobody"},
		"email":      {"not-an-email"},
	})
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `data-open="true"`)
	assert.Contains(t, body, "Enter a valid email address.")
	assert.Contains(t, body, "This field is required.")
	assert.Contains(t, body, `value="nobody"`)

	_, err := env.db.GetAccountByEmail("not-an-email")
	assert.ErrorIs(t, err, database.ErrNotFound)
}

func TestAuthorsAddBySearch(t *testing.T) {
	env := newTestEnv(t, nil)
	owner := env.account("owner@example.org", "olive", "owner")
	sid := env.session(owner)
	article := env.preprint("Owned", owner, false)
	path := fmt.Sprintf("/preprints/authors/%d", article.ID)

	found := &models.Account{Email: "found@example.org", FirstName: "fiona", LastName: "found", ORCID: "0000-0002-1825-0097"}
	require.NoError(t, env.db.InsertAccount(found))

	rec := env.post(path, sid, url.Values{"search_authors": {"1"}, "author_search_text": {"nobody@example.org"}})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), noAuthorFoundMsg)

	rec = env.post(path, sid, url.Values{"search_authors": {"1"}, "author_search_text": {"0000-0002-1825-0097"}})
	require.Equal(t, http.StatusSeeOther, rec.Code)

	ok, err := env.db.IsArticleAuthor(article.ID, found.ID)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestAuthorsReorder(t *testing.T) {
	env := newTestEnv(t, nil)
	owner := env.account("owner@example.org", "olive", "owner")
	sid := env.session(owner)
	article := env.preprint("Owned", owner, false)
	path := fmt.Sprintf("/preprints/authors/%d", article.ID)
	second := env.account("second@example.org", "sam", "second")
	_, err := env.db.AddArticleAuthor(article.ID, second.ID)
	require.NoError(t, err)

	rec := env.post(path, sid, url.Values{"authors[]": {fmt.Sprint(second.ID), fmt.Sprint(owner.ID)}})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Complete", rec.Body.String())

	authors, err := env.db.GetArticleAuthors(article.ID)
	require.NoError(t, err)
	require.Len(t, authors, 2)
	assert.Equal(t, second.ID, authors[0].ID)
	assert.Equal(t, owner.ID, authors[1].ID)

	// a list missing a current author changes nothing
	rec = env.post(path, sid, url.Values{"authors[]": {fmt.Sprint(owner.ID)}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	authors, err = env.db.GetArticleAuthors(article.ID)
	require.NoError(t, err)
	assert.Equal(t, second.ID, authors[0].ID)

	rec = env.post(path, sid, url.Values{"authors[]": {"abc", fmt.Sprint(owner.ID)}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAuthorsDelete(t *testing.T) {
	env := newTestEnv(t, nil)
	owner := env.account("owner@example.org", "olive", "owner")
	sid := env.session(owner)
	article := env.preprint("Owned", owner, false)
	path := fmt.Sprintf("/preprints/authors/%d", article.ID)
	second := env.account("second@example.org", "sam", "second")
	_, err := env.db.AddArticleAuthor(article.ID, second.ID)
	require.NoError(t, err)
	stranger := env.account("stranger@example.org", "stan", "stranger")

	for _, v := range []string{fmt.Sprint(stranger.ID), "abc"} {
		rec := env.post(path, sid, url.Values{"delete_author": {v}})
		assert.Equal(t, http.StatusNotFound, rec.Code, v)
	}

	rec := env.post(path, sid, url.Values{"delete_author": {fmt.Sprint(second.ID)}})
	require.Equal(t, http.StatusSeeOther, rec.Code)
	ok, err := env.db.IsArticleAuthor(article.ID, second.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	rec = env.get(path, sid)
	assert.Contains(t, rec.Body.String(), "Author removed from article.")

	// the account itself survives
	_, err = env.db.GetAccountByID(second.ID)
	assert.NoError(t, err)
}

func TestParseAuthorIntentPriority(t *testing.T) {
	gin.SetMode(gin.TestMode)
	parse := func(form url.Values) (AuthorIntent, error) {
		rec := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(rec)
		c.Request = httptest.NewRequest(http.MethodPost, "/preprints/authors/1", strings.NewReader(form.Encode()))
		c.Request.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		return parseAuthorIntent(c)
	}

	intent, err := parse(url.Values{"search_authors": {"1"}, "author_search_text": {" x@example.org "}, "authors[]": {"1"}, "delete_author": {"2"}})
	require.NoError(t, err)
	assert.Equal(t, AddAuthorBySearch{Text: "x@example.org"}, intent)

	intent, err = parse(url.Values{"add_author": {"1"}, "search_authors": {"1"}})
	require.NoError(t, err)
	assert.IsType(t, AddAuthorByForm{}, intent)

	intent, err = parse(url.Values{"authors[]": {"3", "1"}, "delete_author": {"2"}})
	require.NoError(t, err)
	assert.Equal(t, ReorderAuthors{AccountIDs: []int64{3, 1}}, intent)

	intent, err = parse(url.Values{"delete_author": {"x"}})
	require.NoError(t, err)
	assert.Equal(t, DeleteAuthor{AccountID: 0}, intent)

	intent, err = parse(url.Values{"unrelated": {"1"}})
	require.NoError(t, err)
	assert.Equal(t, ViewAuthors{}, intent)

	_, err = parse(url.Values{"authors[]": {"1", "two"}})
	assert.ErrorIs(t, err, ErrBadAuthorList)
}
