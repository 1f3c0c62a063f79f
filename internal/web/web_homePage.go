package web

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-while/go-preprint/internal/models"
)

// homePage shows the most recently published preprints
func (s *WebServer) homePage(c *gin.Context, account *models.Account) {
	preprints, err := s.DB.GetLatestPreprints(s.Preprint.HomeLatest)
	if err != nil {
		s.renderError(c, http.StatusInternalServerError, "Database error", err.Error())
		return
	}
	s.renderTemplate(c, "home.html", HomePageData{
		TemplateData: s.getBaseTemplateData(c, "Preprints"),
		Preprints:    preprints,
	})
}

// aboutPage is static
func (s *WebServer) aboutPage(c *gin.Context, account *models.Account) {
	s.renderTemplate(c, "about.html", s.getBaseTemplateData(c, "About"))
}
