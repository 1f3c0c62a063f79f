package web

import (
	"bytes"
	"html/template"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-while/go-preprint/internal/config"
	"gitlab.com/golang-commonmark/markdown"
)

// abstractRenderer renders abstracts; raw HTML in the source is not passed through
var abstractRenderer = markdown.New(markdown.HTML(false), markdown.Linkify(true), markdown.Typographer(false))

// renderAbstract converts a Markdown abstract to safe HTML
func renderAbstract(src string) template.HTML {
	if strings.TrimSpace(src) == "" {
		return ""
	}
	return template.HTML(abstractRenderer.RenderToString([]byte(src)))
}

// templateFuncs are available in every page template
var templateFuncs = template.FuncMap{
	"formatDate": func(t *time.Time) string {
		if t == nil {
			return ""
		}
		return t.Format("2 January 2006")
	},
	"join": strings.Join,
	"add":  func(a, b int) int { return a + b },
}

// getBaseTemplateData creates a TemplateData struct with common information including the account
func (s *WebServer) getBaseTemplateData(c *gin.Context, title string) TemplateData {
	data := TemplateData{
		Title:       template.HTML(template.HTMLEscapeString(title)),
		CurrentTime: time.Now().Format("2006-01-02 15:04:05"),
		CurrentPath: c.Request.URL.Path,
		AppVersion:  config.AppVersion,
		Account:     accountFromContext(c),
	}
	if sessionID := c.GetString(ctxSessionID); sessionID != "" {
		data.Notices = PopNotices(sessionID)
	}
	return data
}

// parseTemplate loads base.html plus one page template from the embedded templates
func parseTemplate(templateName string) (*template.Template, error) {
	return template.New("base.html").Funcs(templateFuncs).ParseFS(EmbeddedTemplatesFS,
		"templates/base.html", "templates/"+templateName)
}

// renderError renders an error page
func (s *WebServer) renderError(c *gin.Context, statusCode int, message string, errstring string) {
	errorData := struct {
		TemplateData
		Error      string
		StatusCode int
	}{
		TemplateData: s.getBaseTemplateData(c, "Error"),
		Error:        message,
		StatusCode:   statusCode,
	}
	log.Printf("[WEB]: Error %d: %s - %s", statusCode, message, errstring)

	tmpl, err := parseTemplate("error.html")
	var buf bytes.Buffer
	if err == nil {
		err = tmpl.ExecuteTemplate(&buf, "base.html", errorData)
	}
	if err != nil {
		log.Printf("[WEB]: Error rendering error template: %v", err)
		c.String(statusCode, "Error: %s", message)
		return
	}
	c.Data(statusCode, "text/html; charset=utf-8", buf.Bytes())
}

// renderTemplate renders a page template with status 200
func (s *WebServer) renderTemplate(c *gin.Context, templateName string, data interface{}) {
	s.renderTemplateStatus(c, http.StatusOK, templateName, data)
}

// renderTemplateStatus renders a page template; output is buffered so a failing template yields a clean error page
func (s *WebServer) renderTemplateStatus(c *gin.Context, status int, templateName string, data interface{}) {
	tmpl, err := parseTemplate(templateName)
	if err != nil {
		s.renderError(c, http.StatusInternalServerError, "Template error", err.Error())
		return
	}
	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "base.html", data); err != nil {
		log.Printf("[WEB]: Error rendering template %s: %v", templateName, err)
		s.renderError(c, http.StatusInternalServerError, "Template error", err.Error())
		return
	}
	c.Data(status, "text/html; charset=utf-8", buf.Bytes())
}

// parseArticleID reads the :article_id path parameter; ok is false for non-integers
func parseArticleID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("article_id"), 10, 64)
	if err != nil || id < 1 {
		return 0, false
	}
	return id, true
}

// seeOther redirects after a successful form post
func seeOther(c *gin.Context, location string) {
	c.Redirect(http.StatusSeeOther, location)
}
