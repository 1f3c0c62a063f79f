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

// submitStartPage creates a new preprint or edits the metadata of one the account owns.
// A valid post saves the article and continues to author management.
// Only the owner may edit an existing preprint; any other id answers 404, even for a listed co-author.
func (s *WebServer) submitStartPage(c *gin.Context, account *models.Account) {
	article := &models.Article{}
	if c.Param("article_id") != "" {
		id, ok := parseArticleID(c)
		if !ok {
			s.renderError(c, http.StatusNotFound, "Preprint not found", "invalid article id: "+c.Param("article_id"))
			return
		}
		owned, err := s.DB.GetOwnedPreprint(id, account.ID)
		if err != nil {
			if errors.Is(err, database.ErrNotFound) {
				s.renderError(c, http.StatusNotFound, "Preprint not found", err.Error())
				return
			}
			s.renderError(c, http.StatusInternalServerError, "Database error", err.Error())
			return
		}
		article = owned
	}

	data := SubmitPageData{
		TemplateData: s.getBaseTemplateData(c, "Submit a preprint"),
		Article:      article,
		Form: SubmitForm{
			Title:    article.Title,
			Subtitle: article.Subtitle,
			Abstract: article.Abstract,
			Keywords: article.KeywordString(),
		},
	}

	if c.Request.Method != http.MethodPost {
		s.renderTemplate(c, "submit_start.html", data)
		return
	}

	var form SubmitForm
	fieldErrors, err := bindForm(c, &form)
	if err != nil {
		s.renderError(c, http.StatusBadRequest, "Bad Request", err.Error())
		return
	}
	if len(fieldErrors) > 0 {
		data.Form = form
		data.Errors = fieldErrors
		s.renderTemplate(c, "submit_start.html", data)
		return
	}

	if err := s.saveSubmission(article, form, account); err != nil {
		s.renderError(c, http.StatusInternalServerError, "Failed to save preprint", err.Error())
		return
	}
	log.Printf("[WEB]: account %d saved preprint %d", account.ID, article.ID)
	seeOther(c, fmt.Sprintf("/preprints/authors/%d", article.ID))
}

// saveSubmission applies the form to article, stores it and makes the account its first author
func (s *WebServer) saveSubmission(article *models.Article, form SubmitForm, account *models.Account) error {
	article.Title = form.Title
	article.Subtitle = form.Subtitle
	article.Abstract = form.Abstract
	article.Keywords = database.ParseKeywords(form.Keywords)
	article.OwnerID = &account.ID
	article.CorrespondenceAuthorID = &account.ID
	article.IsPreprint = true
	article.CurrentStep = 1
	if article.ID == 0 {
		article.Stage = models.StageUnsubmitted
	}

	if err := s.DB.SaveArticle(article); err != nil {
		return err
	}
	if _, err := s.DB.AddArticleAuthor(article.ID, account.ID); err != nil {
		return err
	}
	return nil
}
