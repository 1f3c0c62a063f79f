package web

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-while/go-preprint/internal/models"
)

// listPage shows all published preprints, newest first, one page at a time.
// A non-numeric page shows page 1; an out of range page shows the last page.
func (s *WebServer) listPage(c *gin.Context, account *models.Account) {
	total, err := s.DB.CountPublishedPreprints()
	if err != nil {
		s.renderError(c, http.StatusInternalServerError, "Database error", err.Error())
		return
	}

	pagination := models.ResolvePage(c.Query("page"), s.Preprint.ListPerPage, total)
	articles, err := s.DB.GetPublishedPreprints(pagination.Offset(), pagination.PageSize)
	if err != nil {
		s.renderError(c, http.StatusInternalServerError, "Database error", err.Error())
		return
	}

	s.renderTemplate(c, "list.html", ListPageData{
		TemplateData: s.getBaseTemplateData(c, "All preprints"),
		Articles:     articles,
		Pagination:   pagination,
	})
}
