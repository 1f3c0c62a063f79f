package web

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
)

// ErrBadAuthorList is returned for an author order containing a non-integer id
var ErrBadAuthorList = errors.New("author order contains an invalid id")

// AuthorIntent is what a request to the author management page asks for
type AuthorIntent interface {
	authorIntent()
}

// ViewAuthors shows the author list with an empty add-author form
type ViewAuthors struct{}

// AddAuthorByForm adds the author described by the form, creating an account if needed
type AddAuthorByForm struct {
	Form   AuthorForm
	Errors FieldErrors
}

// AddAuthorBySearch adds the single account whose email or ORCID equals Text
type AddAuthorBySearch struct {
	Text string
}

// ReorderAuthors sets author order to list position
type ReorderAuthors struct {
	AccountIDs []int64
}

// DeleteAuthor removes an author from the article. AccountID is 0 when the posted value is not a number.
type DeleteAuthor struct {
	AccountID int64
}

func (ViewAuthors) authorIntent()       {}
func (AddAuthorByForm) authorIntent()   {}
func (AddAuthorBySearch) authorIntent() {}
func (ReorderAuthors) authorIntent()    {}
func (DeleteAuthor) authorIntent()      {}

// parseAuthorIntent decodes the request once. The first marker present wins, in this order:
// add_author, search_authors, authors[], delete_author.
func parseAuthorIntent(c *gin.Context) (AuthorIntent, error) {
	if c.Request.Method != http.MethodPost {
		return ViewAuthors{}, nil
	}
	if err := c.Request.ParseForm(); err != nil {
		return nil, err
	}
	form := c.Request.PostForm

	if _, ok := form["add_author"]; ok {
		intent := AddAuthorByForm{}
		fieldErrors, err := bindForm(c, &intent.Form)
		if err != nil {
			return nil, err
		}
		intent.Errors = fieldErrors
		return intent, nil
	}

	if _, ok := form["search_authors"]; ok {
		return AddAuthorBySearch{Text: strings.TrimSpace(form.Get("author_search_text"))}, nil
	}

	if raw, ok := form["authors[]"]; ok {
		ids := make([]int64, 0, len(raw))
		for _, r := range raw {
			id, err := strconv.ParseInt(strings.TrimSpace(r), 10, 64)
			if err != nil {
				return nil, ErrBadAuthorList
			}
			ids = append(ids, id)
		}
		return ReorderAuthors{AccountIDs: ids}, nil
	}

	if _, ok := form["delete_author"]; ok {
		id, err := strconv.ParseInt(strings.TrimSpace(form.Get("delete_author")), 10, 64)
		if err != nil {
			id = 0
		}
		return DeleteAuthor{AccountID: id}, nil
	}

	return ViewAuthors{}, nil
}
