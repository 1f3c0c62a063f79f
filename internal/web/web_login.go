package web

import (
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-while/go-preprint/internal/database"
	"github.com/go-while/go-preprint/internal/models"
)

// LoginPageData represents data for login page
type LoginPageData struct {
	TemplateData
	Error       string
	RedirectURL string
}

// loginPage displays the login form
func (s *WebServer) loginPage(c *gin.Context, account *models.Account) {
	redirectURL := c.Query("redirect")
	if !isPathSafe(redirectURL) {
		redirectURL = "/preprints"
	}
	if account != nil {
		c.Redirect(http.StatusSeeOther, redirectURL)
		return
	}

	s.renderTemplate(c, "login.html", LoginPageData{
		TemplateData: s.getBaseTemplateData(c, "Login"),
		RedirectURL:  redirectURL,
	})
}

// loginSubmit processes login form submission
func (s *WebServer) loginSubmit(c *gin.Context) {
	username := strings.TrimSpace(c.PostForm("username"))
	password := c.PostForm("password")
	redirectURL := c.PostForm("redirect")
	if !isPathSafe(redirectURL) {
		redirectURL = "/preprints"
	}

	if username == "" || password == "" {
		s.renderLoginError(c, "Username and password are required", redirectURL)
		return
	}

	// Try to find account by username or email
	var account *models.Account
	var err error
	if strings.Contains(username, "@") {
		account, err = s.DB.GetAccountByEmail(username)
	} else {
		account, err = s.DB.GetAccountByUsername(username)
	}
	if err != nil {
		if !errors.Is(err, database.ErrNotFound) {
			log.Printf("[WEB]: login lookup failed for '%s': %v", username, err)
		}
		s.renderLoginError(c, "Invalid username or password", redirectURL)
		return
	}

	lockedOut, err := s.DB.IsAccountLockedOut(account.Username)
	if err != nil {
		s.renderLoginError(c, "Login error. Please try again.", redirectURL)
		return
	}
	if lockedOut {
		s.renderLoginError(c, "Account temporarily locked due to too many failed attempts. Try again in 15 minutes.", redirectURL)
		return
	}

	if !account.IsActive || !checkPassword(password, account.PasswordHash) {
		if err := s.DB.IncrementLoginAttempts(account.Username); err != nil {
			log.Printf("[WEB]: failed to count login attempt for '%s': %v", account.Username, err)
		}
		s.renderLoginError(c, "Invalid username or password", redirectURL)
		return
	}

	// Successful login - create new session (this invalidates any existing session)
	sessionID, err := s.DB.CreateAccountSession(account.ID, c.ClientIP())
	if err != nil {
		s.renderLoginError(c, "Failed to create session", redirectURL)
		return
	}
	s.setSessionCookie(c, sessionID)
	c.Redirect(http.StatusSeeOther, redirectURL)
}

// logout handles account logout
func (s *WebServer) logout(c *gin.Context, account *models.Account) {
	if account != nil {
		if err := s.DB.InvalidateAccountSession(account.ID); err != nil {
			log.Printf("[WEB]: failed to invalidate session of account %d: %v", account.ID, err)
		}
	}
	if sessionID, err := c.Cookie("session_id"); err == nil {
		DropNotices(sessionID)
	}
	s.clearSessionCookie(c)
	c.Redirect(http.StatusSeeOther, "/login")
}

// renderLoginError renders login page with error
func (s *WebServer) renderLoginError(c *gin.Context, errorMsg, redirectURL string) {
	s.renderTemplateStatus(c, http.StatusBadRequest, "login.html", LoginPageData{
		TemplateData: s.getBaseTemplateData(c, "Login"),
		Error:        errorMsg,
		RedirectURL:  redirectURL,
	})
}
