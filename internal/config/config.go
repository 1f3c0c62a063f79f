// Package config provides configuration management for go-preprint.
package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/ini.v1"
)

var AppVersion = "-unset-" // will be set at build time

const (
	// Default listing sizes
	DefaultHomeLatest  = 6
	DefaultListPerPage = 15

	// Environment variable prefix for overrides (PREPRINT_WEB_PORT, ...)
	EnvPrefix = "PREPRINT_"
)

// MainConfig holds the main configuration for go-preprint
type MainConfig struct {
	Web      WebConfig      `json:"web"`
	Database DatabaseConfig `json:"database"`
	Preprint PreprintConfig `json:"preprint"`

	AppVersion string `json:"app_version"` // Application version, set at build time
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	URL string `json:"url"` // xo/dburl style, e.g. sqlite3:data/preprints.sq3
}

// WebConfig holds web interface configuration
type WebConfig struct {
	ListenPort  int     `json:"listen_port"`
	SSL         bool    `json:"ssl"`
	CertFile    string  `json:"cert_file,omitempty"`
	KeyFile     string  `json:"key_file,omitempty"`
	StaticDir   string  `json:"static_dir"`
	Debug       bool    `json:"debug"`
	PostRate    float64 `json:"post_rate"`  // form posts per second per client
	PostBurst   int     `json:"post_burst"` // burst allowance for form posts
	PprofListen string  `json:"pprof_listen,omitempty"`
}

// PreprintConfig holds the portal's listing settings
type PreprintConfig struct {
	HomeLatest  int `json:"home_latest"`
	ListPerPage int `json:"list_per_page"`
}

// NewDefaultConfig returns a configuration with sensible defaults
func NewDefaultConfig() *MainConfig {
	return &MainConfig{
		AppVersion: AppVersion,
		Web: WebConfig{
			ListenPort: 11990,
			SSL:        false,
			StaticDir:  "web/static",
			PostRate:   2,
			PostBurst:  10,
		},
		Database: DatabaseConfig{
			URL: "sqlite3:data/preprints.sq3",
		},
		Preprint: PreprintConfig{
			HomeLatest:  DefaultHomeLatest,
			ListPerPage: DefaultListPerPage,
		},
	}
}

// LoadFile applies overrides from an ini file. Keys live in [web], [database] and [preprint].
func (cfg *MainConfig) LoadFile(path string) error {
	file, err := ini.Load(path)
	if err != nil {
		return fmt.Errorf("failed to load config file %s: %w", path, err)
	}

	web := file.Section("web")
	cfg.Web.ListenPort = web.Key("listen_port").MustInt(cfg.Web.ListenPort)
	cfg.Web.SSL = web.Key("ssl").MustBool(cfg.Web.SSL)
	cfg.Web.CertFile = web.Key("cert_file").MustString(cfg.Web.CertFile)
	cfg.Web.KeyFile = web.Key("key_file").MustString(cfg.Web.KeyFile)
	cfg.Web.StaticDir = web.Key("static_dir").MustString(cfg.Web.StaticDir)
	cfg.Web.Debug = web.Key("debug").MustBool(cfg.Web.Debug)
	cfg.Web.PostRate = web.Key("post_rate").MustFloat64(cfg.Web.PostRate)
	cfg.Web.PostBurst = web.Key("post_burst").MustInt(cfg.Web.PostBurst)
	cfg.Web.PprofListen = web.Key("pprof_listen").MustString(cfg.Web.PprofListen)

	cfg.Database.URL = file.Section("database").Key("url").MustString(cfg.Database.URL)

	pp := file.Section("preprint")
	cfg.Preprint.HomeLatest = pp.Key("home_latest").MustInt(cfg.Preprint.HomeLatest)
	cfg.Preprint.ListPerPage = pp.Key("list_per_page").MustInt(cfg.Preprint.ListPerPage)

	log.Printf("[CONFIG]: loaded %s", path)
	return nil
}

// LoadEnv reads an optional .env file and applies PREPRINT_* environment overrides.
func (cfg *MainConfig) LoadEnv(envFiles ...string) error {
	for _, f := range envFiles {
		if _, err := os.Stat(f); err != nil {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return fmt.Errorf("failed to load env file %s: %w", f, err)
		}
	}

	if v := getEnv("WEB_PORT"); v != "" {
		p, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %sWEB_PORT %q: %w", EnvPrefix, v, err)
		}
		cfg.Web.ListenPort = p
	}
	if v := getEnv("WEB_SSL"); v != "" {
		cfg.Web.SSL = strings.EqualFold(v, "true") || v == "1"
	}
	if v := getEnv("DB_URL"); v != "" {
		cfg.Database.URL = v
	}
	return nil
}

// Validate checks the values that would make the server unusable.
func (cfg *MainConfig) Validate() error {
	if cfg.Web.ListenPort < 1024 || cfg.Web.ListenPort > 65535 {
		return fmt.Errorf("invalid port number: %d (must be between 1024 and 65535)", cfg.Web.ListenPort)
	}
	if cfg.Web.SSL && (cfg.Web.CertFile == "" || cfg.Web.KeyFile == "") {
		return fmt.Errorf("SSL enabled but cert_file or key_file not specified")
	}
	if cfg.Database.URL == "" {
		return fmt.Errorf("database url is empty")
	}
	if cfg.Preprint.HomeLatest < 1 || cfg.Preprint.ListPerPage < 1 {
		return fmt.Errorf("listing sizes must be positive")
	}
	return nil
}

func getEnv(key string) string {
	return strings.TrimSpace(os.Getenv(EnvPrefix + key))
}
