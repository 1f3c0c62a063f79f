package database

import (
	"database/sql"
	"errors"
	"fmt"
	"log"
	"path/filepath"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/mattn/go-sqlite3"
	"github.com/xo/dburl"
	"golang.org/x/text/cases"
)

// driverName is go-sqlite3 with per-connection pragmas and the casefold() SQL function
const driverName = "sqlite3_preprint"

// ErrNotFound is returned when a lookup matches no row
var ErrNotFound = errors.New("not found")

func init() {
	sql.Register(driverName, &sqlite3.SQLiteDriver{
		ConnectHook: func(conn *sqlite3.SQLiteConn) error {
			if err := conn.RegisterFunc("casefold", casefold, true); err != nil {
				return fmt.Errorf("failed to register casefold: %w", err)
			}
			for _, pragma := range []string{
				"PRAGMA foreign_keys = ON",
				"PRAGMA busy_timeout = 30000", // 30 seconds
			} {
				if _, err := conn.Exec(pragma, nil); err != nil {
					return fmt.Errorf("failed to execute pragma '%s': %w", pragma, err)
				}
			}
			return nil
		},
	})
}

// casefold is registered as an SQLite function for unicode-aware case-insensitive matching
func casefold(s string) string {
	return cases.Fold().String(s)
}

// Database represents the main database connection
type Database struct {
	mainDB *sqlx.DB

	// Database configuration
	dbconfig *DBConfig

	StopChan chan struct{} // Channel to signal shutdown
}

// DBConfig represents database configuration
type DBConfig struct {
	Driver string // only sqlite3 is supported
	DSN    string

	// Connection pool settings
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration

	// Performance settings
	WALMode   bool   // Write-Ahead Logging
	SyncMode  string // OFF, NORMAL, FULL
	CacheSize int    // KB
	TempStore string // MEMORY, FILE
}

// DefaultDBConfig returns default database configuration
func DefaultDBConfig() *DBConfig {
	return &DBConfig{
		Driver:          "sqlite3",
		DSN:             "data/preprints.sq3",
		MaxOpenConns:    25,
		MaxIdleConns:    5,
		ConnMaxLifetime: 0, // Unlimited for SQLite
		WALMode:         true,
		SyncMode:        "NORMAL",
		CacheSize:       -16384, // 16MB cache
		TempStore:       "MEMORY",
	}
}

// ConfigFromURL builds a DBConfig from a xo/dburl database url, e.g. sqlite3:data/preprints.sq3
func ConfigFromURL(rawURL string) (*DBConfig, error) {
	u, err := dburl.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("could not parse database url: %w", err)
	}
	if u.Driver != "sqlite3" {
		return nil, fmt.Errorf("unsupported database driver: %s", u.Driver)
	}
	cfg := DefaultDBConfig()
	cfg.Driver = u.Driver
	cfg.DSN = u.DSN
	return cfg, nil
}

// OpenDatabase opens the main database and applies migrations
func OpenDatabase(dbconfig *DBConfig) (*Database, error) {
	if dbconfig == nil {
		dbconfig = DefaultDBConfig()
	}
	if dbconfig.Driver != "sqlite3" {
		return nil, fmt.Errorf("unsupported database driver: %s", dbconfig.Driver)
	}

	db := &Database{
		dbconfig: dbconfig,
		StopChan: make(chan struct{}),
	}

	if err := db.initMainDB(); err != nil {
		return nil, fmt.Errorf("failed to initialize main database: %w", err)
	}

	// Run migrations to ensure all tables exist
	if err := db.Migrate(); err != nil {
		db.mainDB.Close()
		return nil, fmt.Errorf("failed to run database migrations: %w", err)
	}

	log.Printf("[DB]: Database initialized: %s", dbconfig.DSN)
	return db, nil
}

// initMainDB initializes the main database connection
func (db *Database) initMainDB() error {
	dsn := db.dbconfig.DSN
	if isFilePath(dsn) {
		if err := createDirIfNotExists(filepath.Dir(dsn)); err != nil {
			return fmt.Errorf("failed to create data directory: %w", err)
		}
	}

	mainDB, err := sqlx.Open(driverName, dsn)
	if err != nil {
		return fmt.Errorf("failed to open main database: %w", err)
	}

	// Configure connection pool
	mainDB.SetMaxOpenConns(db.dbconfig.MaxOpenConns)
	mainDB.SetMaxIdleConns(db.dbconfig.MaxIdleConns)
	mainDB.SetConnMaxLifetime(db.dbconfig.ConnMaxLifetime)

	if err := mainDB.Ping(); err != nil {
		if cerr := mainDB.Close(); cerr != nil {
			return fmt.Errorf("failed to ping main database: %w; also failed to close mainDB: %v", err, cerr)
		}
		return fmt.Errorf("failed to ping main database: %w", err)
	}

	if err := db.applySQLitePragmas(mainDB); err != nil {
		if cerr := mainDB.Close(); cerr != nil {
			return fmt.Errorf("failed to apply SQLite pragmas: %w; also failed to close mainDB: %v", err, cerr)
		}
		return fmt.Errorf("failed to apply SQLite pragmas: %w", err)
	}

	db.mainDB = mainDB
	return nil
}

// applySQLitePragmas applies database-wide pragmas; per-connection ones live in the driver hook
func (db *Database) applySQLitePragmas(conn *sqlx.DB) error {
	pragmas := []string{
		fmt.Sprintf("PRAGMA cache_size = %d", db.dbconfig.CacheSize),
		fmt.Sprintf("PRAGMA synchronous = %s", db.dbconfig.SyncMode),
		fmt.Sprintf("PRAGMA temp_store = %s", db.dbconfig.TempStore),
	}

	if db.dbconfig.WALMode {
		pragmas = append(pragmas, "PRAGMA journal_mode = WAL")
		pragmas = append(pragmas, "PRAGMA wal_autocheckpoint = 1000")
	}

	for _, pragma := range pragmas {
		if _, err := conn.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute pragma '%s': %w", pragma, err)
		}
	}

	return nil
}

func isFilePath(dsn string) bool {
	return dsn != "" && !strings.HasPrefix(dsn, ":memory:") && !strings.HasPrefix(dsn, "file:")
}
