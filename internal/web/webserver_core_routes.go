// Package web provides the HTTP server and web interface for go-preprint
package web

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"log"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/gin-contrib/secure"
	"github.com/gin-gonic/gin"
	"github.com/go-while/go-preprint/internal/cache"
	"github.com/go-while/go-preprint/internal/config"
	"github.com/go-while/go-preprint/internal/database"
	"github.com/go-while/go-preprint/internal/metrics"
	"github.com/go-while/go-preprint/internal/models"
	"github.com/robfig/cron/v3"
)

// WebServer represents the web server
type WebServer struct {
	DB        *database.Database
	Router    *gin.Engine
	Config    *config.WebConfig
	Preprint  *config.PreprintConfig
	Metrics   metrics.Recorder
	StartTime time.Time // Track server start time for uptime calculations

	limiter       *PostRateLimiter
	abstracts     *cache.AbstractCache
	cron          *cron.Cron
	httpServer    *http.Server
	robotsTxtPath string // Path to robots.txt file if it exists
}

// TemplateData represents common template data
type TemplateData struct {
	Title       template.HTML
	CurrentTime string
	CurrentPath string
	AppVersion  string
	Account     *models.Account
	Notices     []Notice
}

// HomePageData represents data for the portal home page
type HomePageData struct {
	TemplateData
	Preprints []*models.Article
}

// ListPageData represents data for the paginated preprint list
type ListPageData struct {
	TemplateData
	Articles   []*models.Article
	Pagination *models.PaginationInfo
}

// SearchPageData represents data for search page
type SearchPageData struct {
	TemplateData
	SearchTerm string
	Articles   []*models.Article
}

// ArticlePageData represents data for article page
type ArticlePageData struct {
	TemplateData
	Article  *models.Article
	Galleys  []*models.Galley
	PDF      *models.Galley
	Abstract template.HTML
}

// PDFPageData represents data for the PDF viewer page
type PDFPageData struct {
	TemplateData
	ArticleID string
	PDFURL    string
}

// SubmitPageData represents data for the submission start page
type SubmitPageData struct {
	TemplateData
	Article *models.Article
	Form    SubmitForm
	Errors  FieldErrors
}

// AuthorsPageData represents data for the author management page
type AuthorsPageData struct {
	TemplateData
	Article *models.Article
	Authors []*models.Account
	Form    AuthorForm
	Errors  FieldErrors
	Modal   string // "author" reopens the add-author dialog
}

// NewServer creates a new web server instance
func NewServer(db *database.Database, mainConfig *config.MainConfig, recorder metrics.Recorder) *WebServer {
	webconfig := &mainConfig.Web
	if !webconfig.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	// search terms may contain escaped slashes
	router.UseRawPath = true

	// Configure Gin to trust reverse proxy headers
	router.SetTrustedProxies([]string{"127.0.0.1", "::1", "10.0.0.0/8", "172.16.0.0/12", "192.168.0.0/16"})

	secureConfig := secure.Config{
		FrameDeny:          true,
		ContentTypeNosniff: true,
		BrowserXssFilter:   true,
		ReferrerPolicy:     "strict-origin-when-cross-origin",
	}
	// Only add SSL-specific headers if SSL is enabled on the application itself
	// (not when running behind a reverse proxy like nginx with SSL)
	if webconfig.SSL {
		secureConfig.SSLRedirect = true
		secureConfig.STSSeconds = 31536000
		secureConfig.STSIncludeSubdomains = true
	}
	router.Use(secure.New(secureConfig))

	if recorder == nil {
		recorder = metrics.NewStoreRecorder(db)
	}

	server := &WebServer{
		DB:        db,
		Router:    router,
		Config:    webconfig,
		Preprint:  &mainConfig.Preprint,
		Metrics:   recorder,
		limiter:   NewPostRateLimiter(webconfig.PostRate, webconfig.PostBurst),
		abstracts: cache.NewAbstractCache(1000, 30*time.Minute), // 1000 abstracts for 30 minutes
	}

	robotsPath := "./web/robots.txt"
	if _, err := os.Stat(robotsPath); err == nil {
		server.robotsTxtPath = robotsPath
		log.Printf("[WEB]: Found robots.txt file at: %s", robotsPath)
	}

	router.Use(server.ApacheLogFormat())
	router.Use(server.ReverseProxyMiddleware())
	router.Use(metrics.GinMiddleware())
	router.Use(server.SessionMiddleware())
	router.Use(server.limiter.Middleware(server))

	server.setupRoutes()
	return server
}

// setupRoutes configures all HTTP routes
func (s *WebServer) setupRoutes() {
	if s.Config.StaticDir != "" && dirExists(s.Config.StaticDir) {
		s.Router.Static("/static", s.Config.StaticDir)
	} else {
		s.Router.GET("/static/*filepath", EmbeddedStaticHandler("/static"))
	}

	s.Router.GET("/robots.txt", func(c *gin.Context) {
		if s.robotsTxtPath != "" {
			c.File(s.robotsTxtPath)
			return
		}
		c.String(http.StatusOK, "User-agent: *\nDisallow: /preprints/submit/\nDisallow: /preprints/authors/\n")
	})
	s.Router.GET("/ping", func(c *gin.Context) {
		c.String(http.StatusOK, "pong")
	})
	s.Router.GET("/metrics", gin.WrapH(metrics.Handler()))

	// Authentication routes
	s.Router.GET("/login", s.withAccount(s.loginPage))
	s.Router.POST("/login", s.loginSubmit)
	s.Router.GET("/logout", s.withAccount(s.logout))

	s.Router.GET("/", func(c *gin.Context) {
		c.Redirect(http.StatusMovedPermanently, "/preprints")
	})

	preprints := s.Router.Group("/preprints")
	{
		preprints.GET("", s.withAccount(s.homePage))
		preprints.GET("/about", s.withAccount(s.aboutPage))
		preprints.GET("/list", s.withAccount(s.listPage))

		preprints.GET("/search", s.withAccount(s.searchPage))
		preprints.POST("/search", s.searchSubmit)
		preprints.GET("/search/:search_term", s.withAccount(s.searchPage))

		preprints.GET("/article/:article_id", s.withAccount(s.articlePage))
		preprints.GET("/article/:article_id/pdf", s.withAccount(s.pdfPage))

		preprints.GET("/submit/start", s.requireAccount(s.submitStartPage))
		preprints.POST("/submit/start", s.requireAccount(s.submitStartPage))
		preprints.GET("/submit/start/:article_id", s.requireAccount(s.submitStartPage))
		preprints.POST("/submit/start/:article_id", s.requireAccount(s.submitStartPage))

		preprints.GET("/authors/:article_id", s.requireAccount(s.authorsPage))
		preprints.POST("/authors/:article_id", s.requireAccount(s.authorsPage))
	}

	s.Router.NoRoute(func(c *gin.Context) {
		s.renderError(c, http.StatusNotFound, "Page not found", c.Request.URL.Path)
	})
}

// Start starts the web server with SSL support if configured. It blocks until the server stops.
func (s *WebServer) Start() error {
	addr := ":" + strconv.Itoa(s.Config.ListenPort)
	s.StartTime = time.Now()
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	var err error
	if s.Config.SSL {
		if s.Config.CertFile == "" || s.Config.KeyFile == "" {
			return errors.New("SSL enabled but cert_file or key_file not specified in config")
		}
		log.Printf("[WEB]: Starting HTTPS server on %s", addr)
		err = s.httpServer.ListenAndServeTLS(s.Config.CertFile, s.Config.KeyFile)
	} else {
		log.Printf("[WEB]: Starting HTTP server on %s", addr)
		err = s.httpServer.ListenAndServe()
	}
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown stops background jobs and gracefully stops the HTTP server
func (s *WebServer) Shutdown(ctx context.Context) error {
	if s.cron != nil {
		<-s.cron.Stop().Done()
	}
	s.abstracts.Stop()
	log.Printf("[WEB]: abstract cache %s", s.abstracts.Stats())
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

// ReverseProxyMiddleware handles X-Forwarded headers when running behind a reverse proxy
func (s *WebServer) ReverseProxyMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if proto := c.GetHeader("X-Forwarded-Proto"); proto == "https" {
			c.Request.URL.Scheme = "https"
		}
		if host := c.GetHeader("X-Forwarded-Host"); host != "" {
			c.Request.Host = host
		}
		c.Next()
	}
}

// ApacheLogFormat logs requests in Apache combined log format
func (s *WebServer) ApacheLogFormat() gin.HandlerFunc {
	return gin.LoggerWithFormatter(func(param gin.LogFormatterParams) string {
		return fmt.Sprintf(`%s - - [%s] "%s %s %s" %d %d "%s" "%s"`+"\n",
			param.ClientIP,
			param.TimeStamp.Format("02/Jan/2006:15:04:05 -0700"),
			param.Method,
			param.Path,
			param.Request.Proto,
			param.StatusCode,
			param.BodySize,
			param.Request.Referer(),
			param.Request.UserAgent(),
		)
	})
}

func dirExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

// isPathSafe accepts only local absolute paths as redirect targets
func isPathSafe(target string) bool {
	return strings.HasPrefix(target, "/") && !strings.HasPrefix(target, "//") && !strings.HasPrefix(target, "/\\")
}
