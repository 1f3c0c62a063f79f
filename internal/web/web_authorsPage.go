package web

import (
	"errors"
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-while/go-preprint/internal/database"
	"github.com/go-while/go-preprint/internal/models"
)

const noAuthorFoundMsg = "No author found with those details."

// authorsPage manages the authors of a preprint owned by the current account
func (s *WebServer) authorsPage(c *gin.Context, account *models.Account) {
	id, ok := parseArticleID(c)
	if !ok {
		s.renderError(c, http.StatusNotFound, "Preprint not found", "invalid article id: "+c.Param("article_id"))
		return
	}
	article, err := s.DB.GetOwnedPreprint(id, account.ID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			s.renderError(c, http.StatusNotFound, "Preprint not found", err.Error())
			return
		}
		s.renderError(c, http.StatusInternalServerError, "Database error", err.Error())
		return
	}

	intent, err := parseAuthorIntent(c)
	if err != nil {
		if errors.Is(err, ErrBadAuthorList) {
			c.String(http.StatusBadRequest, "Bad Request")
			return
		}
		s.renderError(c, http.StatusBadRequest, "Bad Request", err.Error())
		return
	}

	self := fmt.Sprintf("/preprints/authors/%d", article.ID)

	switch in := intent.(type) {
	case ViewAuthors:
		s.renderAuthors(c, article, AuthorForm{}, nil, "")

	case AddAuthorByForm:
		author, err := s.DB.GetAccountByEmail(in.Form.Email)
		switch {
		case err == nil:
		case !errors.Is(err, database.ErrNotFound):
			s.renderError(c, http.StatusInternalServerError, "Database error", err.Error())
			return
		case len(in.Errors) > 0:
			s.renderAuthors(c, article, in.Form, in.Errors, "author")
			return
		default:
			author, err = s.createPlaceholderAccount(in.Form)
			if err != nil {
				s.renderError(c, http.StatusInternalServerError, "Failed to create author", err.Error())
				return
			}
		}
		if !s.addAuthor(c, article, author) {
			return
		}
		seeOther(c, self)

	case AddAuthorBySearch:
		matches, err := s.DB.FindAccountsByEmailOrORCID(in.Text)
		if err != nil {
			s.renderError(c, http.StatusInternalServerError, "Database error", err.Error())
			return
		}
		if len(matches) != 1 {
			s.renderAuthors(c, article, AuthorForm{}, nil, "", Notice{Level: NoticeWarning, Message: noAuthorFoundMsg})
			return
		}
		if !s.addAuthor(c, article, matches[0]) {
			return
		}
		seeOther(c, self)

	case ReorderAuthors:
		if err := s.DB.ReorderAuthors(article.ID, in.AccountIDs); err != nil {
			if errors.Is(err, database.ErrIncompleteAuthorList) {
				c.String(http.StatusBadRequest, "Bad Request")
				return
			}
			log.Printf("[WEB]: reorder authors of article %d failed: %v", article.ID, err)
			c.String(http.StatusInternalServerError, "Internal Server Error")
			return
		}
		c.String(http.StatusOK, "Complete")

	case DeleteAuthor:
		isAuthor, err := s.DB.IsArticleAuthor(article.ID, in.AccountID)
		if err != nil {
			s.renderError(c, http.StatusInternalServerError, "Database error", err.Error())
			return
		}
		if !isAuthor {
			s.renderError(c, http.StatusNotFound, "Author not found", fmt.Sprintf("account %d is not an author of article %d", in.AccountID, article.ID))
			return
		}
		if err := s.DB.RemoveArticleAuthor(article.ID, in.AccountID); err != nil {
			s.renderError(c, http.StatusInternalServerError, "Failed to remove author", err.Error())
			return
		}
		flash(c, NoticeSuccess, "Author removed from article.")
		seeOther(c, self)

	default:
		s.renderError(c, http.StatusBadRequest, "Bad Request", fmt.Sprintf("unhandled author intent %T", intent))
	}
}

// addAuthor associates author with article and flashes success; false means an error page was rendered
func (s *WebServer) addAuthor(c *gin.Context, article *models.Article, author *models.Account) bool {
	if _, err := s.DB.AddArticleAuthor(article.ID, author.ID); err != nil {
		s.renderError(c, http.StatusInternalServerError, "Failed to add author", err.Error())
		return false
	}
	flash(c, NoticeSuccess, fmt.Sprintf("%s added to the article", author.FullName()))
	return true
}

// createPlaceholderAccount creates an account for an author who never registered
func (s *WebServer) createPlaceholderAccount(form AuthorForm) (*models.Account, error) {
	password, err := randomPassword()
	if err != nil {
		return nil, err
	}
	hash, err := hashPassword(password)
	if err != nil {
		return nil, err
	}
	author := &models.Account{
		Email:        form.Email,
		PasswordHash: hash,
		FirstName:    form.FirstName,
		MiddleName:   form.MiddleName,
		LastName:     form.LastName,
		Institution:  form.Institution,
		Department:   form.Department,
		ORCID:        form.ORCID,
	}
	if err := s.DB.InsertAccount(author); err != nil {
		return nil, err
	}
	log.Printf("[WEB]: created placeholder account %d for %s", author.ID, author.Email)
	return author, nil
}

// renderAuthors renders the author management page; inline notices are shown on this render only
func (s *WebServer) renderAuthors(c *gin.Context, article *models.Article, form AuthorForm, fieldErrors FieldErrors, modal string, inline ...Notice) {
	authors, err := s.DB.GetArticleAuthors(article.ID)
	if err != nil {
		s.renderError(c, http.StatusInternalServerError, "Database error", err.Error())
		return
	}
	data := AuthorsPageData{
		TemplateData: s.getBaseTemplateData(c, "Authors"),
		Article:      article,
		Authors:      authors,
		Form:         form,
		Errors:       fieldErrors,
		Modal:        modal,
	}
	data.Notices = append(data.Notices, inline...)
	s.renderTemplate(c, "authors.html", data)
}
