package web

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-while/go-preprint/internal/models"
)

// searchSubmit turns a posted search form into a bookmarkable search URL
func (s *WebServer) searchSubmit(c *gin.Context) {
	term := strings.TrimSpace(c.PostForm("search_term"))
	if term == "" {
		seeOther(c, "/preprints/search")
		return
	}
	seeOther(c, "/preprints/search/"+url.PathEscape(term))
}

// searchPage lists preprints matching the path or query term; without a term it lists all preprints
func (s *WebServer) searchPage(c *gin.Context, account *models.Account) {
	term := c.Param("search_term")
	if term == "" {
		term = c.Query("search_term")
	}
	term = strings.TrimSpace(term)

	articles, err := s.DB.SearchPreprints(term)
	if err != nil {
		s.renderError(c, http.StatusInternalServerError, "Search failed", err.Error())
		return
	}

	title := "Search"
	if term != "" {
		title = "Search: " + term
	}
	s.renderTemplate(c, "search.html", SearchPageData{
		TemplateData: s.getBaseTemplateData(c, title),
		SearchTerm:   term,
		Articles:     articles,
	})
}
