package database

import (
	"fmt"
	"io/fs"
	"log"

	"github.com/jmoiron/sqlx"
)

// Migrate applies pending embedded migrations to the main database
func (db *Database) Migrate() error {
	if err := migrateMainDB(db.mainDB, EmbeddedMigrationsFS); err != nil {
		return fmt.Errorf("failed to migrate main database: %w", err)
	}
	return nil
}

// ensureMigrationsTable creates the schema_migrations table if it doesn't exist
func ensureMigrationsTable(conn *sqlx.DB) error {
	_, err := conn.Exec(`CREATE TABLE IF NOT EXISTS schema_migrations (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		filename TEXT NOT NULL UNIQUE,
		db_type TEXT NOT NULL DEFAULT '',
		applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`)
	if err != nil {
		return fmt.Errorf("failed to create schema_migrations table: %w", err)
	}
	return nil
}

// getAppliedMigrations returns a set of applied migration filenames
func getAppliedMigrations(conn *sqlx.DB, dbType MigrationType) (map[string]bool, error) {
	var names []string
	if err := conn.Select(&names, `SELECT filename FROM schema_migrations WHERE db_type = ?`, string(dbType)); err != nil {
		return nil, fmt.Errorf("failed to query applied migrations for %s: %w", dbType, err)
	}
	applied := make(map[string]bool, len(names))
	for _, n := range names {
		applied[n] = true
	}
	return applied, nil
}

// applyMigration applies a single migration and records it in one transaction
func applyMigration(conn *sqlx.DB, migrationsFS fs.FS, migration *MigrationFile) error {
	content, err := readMigrationContent(migrationsFS, migration)
	if err != nil {
		return err
	}

	return retryableTransactionExec(conn, func(tx *sqlx.Tx) error {
		if _, err := tx.Exec(content); err != nil {
			return fmt.Errorf("failed to execute migration %s: %w", migration.FileName, err)
		}
		if _, err := tx.Exec(`INSERT INTO schema_migrations (filename, db_type) VALUES (?, ?)`, migration.FileName, string(migration.Type)); err != nil {
			return fmt.Errorf("failed to record migration %s: %w", migration.FileName, err)
		}
		return nil
	})
}

// migrateMainDB applies migrations of type main
func migrateMainDB(conn *sqlx.DB, migrationsFS fs.FS) error {
	if err := ensureMigrationsTable(conn); err != nil {
		return err
	}

	migrations, err := getEmbeddedMigrationFiles(migrationsFS)
	if err != nil {
		return err
	}

	applied, err := getAppliedMigrations(conn, MigrationTypeMain)
	if err != nil {
		return err
	}

	for _, migration := range migrations {
		if migration.Type != MigrationTypeMain || applied[migration.FileName] {
			continue
		}
		if err := applyMigration(conn, migrationsFS, migration); err != nil {
			log.Printf("[DB]: Failed to apply migration %s: %v", migration.FileName, err)
			return err
		}
		log.Printf("[DB]: applied migration %s", migration.FileName)
	}
	return nil
}
