package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDefaultConfig(t *testing.T) {
	cfg := NewDefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 6, cfg.Preprint.HomeLatest)
	assert.Equal(t, 15, cfg.Preprint.ListPerPage)
	assert.Equal(t, "sqlite3:data/preprints.sq3", cfg.Database.URL)
}

func TestLoadFileOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "preprint.ini")
	content := "[web]\nlisten_port = 12000\ndebug = true\n\n[database]\nurl = sqlite3:/tmp/other.sq3\n\n[preprint]\nlist_per_page = 20\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg := NewDefaultConfig()
	require.NoError(t, cfg.LoadFile(path))

	assert.Equal(t, 12000, cfg.Web.ListenPort)
	assert.True(t, cfg.Web.Debug)
	assert.Equal(t, "sqlite3:/tmp/other.sq3", cfg.Database.URL)
	assert.Equal(t, 20, cfg.Preprint.ListPerPage)
	assert.Equal(t, 6, cfg.Preprint.HomeLatest, "unset keys keep defaults")
}

func TestLoadFileMissing(t *testing.T) {
	cfg := NewDefaultConfig()
	assert.Error(t, cfg.LoadFile(filepath.Join(t.TempDir(), "nope.ini")))
}

func TestLoadEnv(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("PREPRINT_DB_URL=sqlite3:env.sq3\n"), 0644))
	t.Setenv("PREPRINT_WEB_PORT", "12345")
	t.Cleanup(func() { os.Unsetenv("PREPRINT_DB_URL") })

	cfg := NewDefaultConfig()
	require.NoError(t, cfg.LoadEnv(envFile, filepath.Join(dir, "missing.env")))

	assert.Equal(t, 12345, cfg.Web.ListenPort)
	assert.Equal(t, "sqlite3:env.sq3", cfg.Database.URL)
}

func TestLoadEnvBadPort(t *testing.T) {
	t.Setenv("PREPRINT_WEB_PORT", "abc")
	cfg := NewDefaultConfig()
	assert.Error(t, cfg.LoadEnv())
}

func TestValidate(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Web.ListenPort = 80
	assert.Error(t, cfg.Validate())

	cfg = NewDefaultConfig()
	cfg.Web.SSL = true
	assert.Error(t, cfg.Validate())
}
