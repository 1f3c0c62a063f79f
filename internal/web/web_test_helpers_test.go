package web

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-while/go-preprint/internal/config"
	"github.com/go-while/go-preprint/internal/database"
	"github.com/go-while/go-preprint/internal/metrics"
	"github.com/go-while/go-preprint/internal/models"
	"github.com/stretchr/testify/require"
)

const testPassword = "correct horse battery"

type testEnv struct {
	t   *testing.T
	db  *database.Database
	srv *WebServer
}

func newTestEnv(t *testing.T, recorder metrics.Recorder) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dbcfg := database.DefaultDBConfig()
	dbcfg.DSN = filepath.Join(t.TempDir(), "web.sq3")
	db, err := database.OpenDatabase(dbcfg)
	require.NoError(t, err)
	t.Cleanup(func() { db.Shutdown() })

	cfg := config.NewDefaultConfig()
	cfg.Web.Debug = true // keep gin in test mode
	cfg.Web.StaticDir = ""
	cfg.Web.PostRate = 1000
	cfg.Web.PostBurst = 1000

	return &testEnv{t: t, db: db, srv: NewServer(db, cfg, recorder)}
}

// account creates a login-capable account
func (e *testEnv) account(email, first, last string) *models.Account {
	e.t.Helper()
	hash, err := hashPassword(testPassword)
	require.NoError(e.t, err)
	a := &models.Account{Email: email, FirstName: first, LastName: last, Institution: "Test Lab", PasswordHash: hash}
	require.NoError(e.t, e.db.InsertAccount(a))
	return a
}

// session logs the account in and returns its session id
func (e *testEnv) session(a *models.Account) string {
	e.t.Helper()
	sid, err := e.db.CreateAccountSession(a.ID, "127.0.0.1")
	require.NoError(e.t, err)
	return sid
}

func (e *testEnv) preprint(title string, owner *models.Account, published bool) *models.Article {
	e.t.Helper()
	a := &models.Article{Title: title, IsPreprint: true, CurrentStep: 1}
	if owner != nil {
		a.OwnerID = &owner.ID
	}
	require.NoError(e.t, e.db.SaveArticle(a))
	if owner != nil {
		_, err := e.db.AddArticleAuthor(a.ID, owner.ID)
		require.NoError(e.t, err)
	}
	if published {
		require.NoError(e.t, e.db.PublishArticle(a.ID, time.Now().Add(-time.Hour)))
	}
	return a
}

func (e *testEnv) get(path, sid string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	return e.do(req, sid)
}

func (e *testEnv) post(path, sid string, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return e.do(req, sid)
}

func (e *testEnv) do(req *http.Request, sid string) *httptest.ResponseRecorder {
	if sid != "" {
		req.AddCookie(&http.Cookie{Name: "session_id", Value: sid})
	}
	rec := httptest.NewRecorder()
	e.srv.Router.ServeHTTP(rec, req)
	return rec
}
