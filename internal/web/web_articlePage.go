package web

import (
	"errors"
	"html/template"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-while/go-preprint/internal/database"
	"github.com/go-while/go-preprint/internal/models"
)

// articlePage shows a published preprint with its authors, keywords and galleys
func (s *WebServer) articlePage(c *gin.Context, account *models.Account) {
	id, ok := parseArticleID(c)
	if !ok {
		s.renderError(c, http.StatusNotFound, "Preprint not found", "invalid article id: "+c.Param("article_id"))
		return
	}

	article, err := s.DB.GetPublishedPreprint(id)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			s.renderError(c, http.StatusNotFound, "Preprint not found", err.Error())
			return
		}
		s.renderError(c, http.StatusInternalServerError, "Database error", err.Error())
		return
	}

	galleys, err := s.DB.GetGalleys(article.ID)
	if err != nil {
		s.renderError(c, http.StatusInternalServerError, "Database error", err.Error())
		return
	}
	pdf, err := s.DB.FirstGalleyOfType(article.ID, models.GalleyTypePDF)
	if err != nil {
		if !errors.Is(err, database.ErrNotFound) {
			s.renderError(c, http.StatusInternalServerError, "Database error", err.Error())
			return
		}
		pdf = nil
	}

	if err := s.Metrics.RecordAccess(article, models.AccessView, c.ClientIP(), c.Request.UserAgent()); err != nil {
		log.Printf("[WEB]: failed to record view of article %d: %v", article.ID, err)
	}

	abstract := s.abstracts.GetOrRender(article.ID, article.UpdatedAt.UnixNano(), func() template.HTML {
		return renderAbstract(article.Abstract)
	})
	s.renderTemplate(c, "article.html", ArticlePageData{
		TemplateData: s.getBaseTemplateData(c, article.Title),
		Article:      article,
		Galleys:      galleys,
		PDF:          pdf,
		Abstract:     abstract,
	})
}

// pdfPage renders the PDF viewer for the file given in the query, unvalidated
func (s *WebServer) pdfPage(c *gin.Context, account *models.Account) {
	s.renderTemplate(c, "pdf.html", PDFPageData{
		TemplateData: s.getBaseTemplateData(c, "PDF"),
		ArticleID:    c.Param("article_id"),
		PDFURL:       c.Query("file"),
	})
}
