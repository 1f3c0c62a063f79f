package web

import (
	"crypto/rand"
	"encoding/hex"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/go-while/go-preprint/internal/database"
	"github.com/go-while/go-preprint/internal/models"
	"golang.org/x/crypto/bcrypt"
)

// Notice levels
const (
	NoticeSuccess = "success"
	NoticeWarning = "warning"
	NoticeError   = "error"
)

// gin context keys
const (
	ctxAccount   = "account"
	ctxSessionID = "session_id"
)

// Notice is a one-shot message shown on the next rendered page
type Notice struct {
	Level   string
	Message string
}

// Global flash message map and mutex
var (
	flashMessages   = make(map[string][]Notice)
	flashMessagesMu sync.Mutex
)

// PushNotice queues a notice for a session
func PushNotice(sessionID, level, msg string) {
	if sessionID == "" {
		return
	}
	flashMessagesMu.Lock()
	flashMessages[sessionID] = append(flashMessages[sessionID], Notice{Level: level, Message: msg})
	flashMessagesMu.Unlock()
}

// PopNotices retrieves and clears the queued notices of a session
func PopNotices(sessionID string) []Notice {
	flashMessagesMu.Lock()
	notices := flashMessages[sessionID]
	delete(flashMessages, sessionID)
	flashMessagesMu.Unlock()
	return notices
}

// DropNotices discards the queued notices of a session
func DropNotices(sessionID string) {
	flashMessagesMu.Lock()
	delete(flashMessages, sessionID)
	flashMessagesMu.Unlock()
}

// PruneNotices discards queued notices of every session not in active and returns how many sessions were dropped
func PruneNotices(active map[string]bool) int {
	flashMessagesMu.Lock()
	defer flashMessagesMu.Unlock()
	dropped := 0
	for sessionID := range flashMessages {
		if !active[sessionID] {
			delete(flashMessages, sessionID)
			dropped++
		}
	}
	return dropped
}

// SessionMiddleware resolves the session cookie into the current account, if any
func (s *WebServer) SessionMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		sessionID, err := c.Cookie("session_id")
		if err == nil && sessionID != "" {
			if account, err := s.DB.ValidateAccountSession(sessionID); err == nil {
				c.Set(ctxAccount, account)
				c.Set(ctxSessionID, sessionID)
			}
		}
		c.Next()
	}
}

// accountFromContext returns the account resolved by SessionMiddleware or nil
func accountFromContext(c *gin.Context) *models.Account {
	if v, ok := c.Get(ctxAccount); ok {
		if account, ok := v.(*models.Account); ok {
			return account
		}
	}
	return nil
}

// accountHandler is a page handler receiving the current account explicitly; nil when anonymous
type accountHandler func(c *gin.Context, account *models.Account)

// withAccount adapts an accountHandler for anonymous-capable routes
func (s *WebServer) withAccount(h accountHandler) gin.HandlerFunc {
	return func(c *gin.Context) {
		h(c, accountFromContext(c))
	}
}

// requireAccount adapts an accountHandler for routes that need a login
func (s *WebServer) requireAccount(h accountHandler) gin.HandlerFunc {
	return func(c *gin.Context) {
		account := accountFromContext(c)
		if account == nil {
			c.Redirect(http.StatusSeeOther, "/login?redirect="+url.QueryEscape(c.Request.URL.RequestURI()))
			c.Abort()
			return
		}
		h(c, account)
	}
}

// flash queues a notice for the current request's session
func flash(c *gin.Context, level, msg string) {
	PushNotice(c.GetString(ctxSessionID), level, msg)
}

// hashPassword creates a bcrypt hash of the password
func hashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(bytes), err
}

// checkPassword checks if password matches hash
func checkPassword(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}

// randomPassword returns a random 32 character password for placeholder accounts
func randomPassword() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// isHTTPS detects HTTPS from the current request or a trusted reverse proxy header
func isHTTPS(c *gin.Context) bool {
	return c.Request != nil && (c.Request.TLS != nil || strings.EqualFold(c.GetHeader("X-Forwarded-Proto"), "https"))
}

// Helper function to set session cookie
func (s *WebServer) setSessionCookie(c *gin.Context, sessionID string) {
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     "session_id",
		Value:    sessionID,
		Path:     "/",
		HttpOnly: true,
		Secure:   isHTTPS(c),
		SameSite: http.SameSiteLaxMode, // Works well with reverse proxies
		MaxAge:   int(database.SessionTimeout.Seconds()),
	})
}

// Helper function to clear session cookie
func (s *WebServer) clearSessionCookie(c *gin.Context) {
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     "session_id",
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   isHTTPS(c),
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1, // Delete cookie
	})
}
