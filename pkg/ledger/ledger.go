// Package ledger is the sqlite bookkeeping layer next to the notes tree:
// a locator index (canonical id -> note path), remote inbox entries so a
// crashed sync resumes cleanly, and batch run sessions for stats.
//
// The markdown files stay authoritative; everything in here can be
// rebuilt from a directory scan.
package ledger

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

type Ledger struct {
	*sql.DB
	path string
}

// openDB opens a SQLite database at the given path
func openDB(dbPath string) (*sql.DB, error) {
	sqlDB, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open ledger: %w", err)
	}

	// Enable foreign keys
	if _, err := sqlDB.Exec("PRAGMA foreign_keys = ON"); err != nil {
		_ = sqlDB.Close() // Close error less important than PRAGMA error
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	return sqlDB, nil
}

// Open opens or creates the ledger at the given path.
func Open(path string) (*Ledger, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create ledger dir: %w", err)
	}

	sqlDB, err := openDB(path)
	if err != nil {
		return nil, err
	}

	l := &Ledger{
		DB:   sqlDB,
		path: path,
	}

	// Auto-initialize schema if it doesn't exist
	if err := l.ensureSchemaExists(); err != nil {
		_ = l.Close() // Close error less important than schema error
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return l, nil
}

// ensureSchemaExists checks if the schema exists and initializes it if not
func (l *Ledger) ensureSchemaExists() error {
	var tableName string
	err := l.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name='locators'").Scan(&tableName)

	if err == sql.ErrNoRows {
		return l.InitSchema()
	}

	if err != nil {
		return fmt.Errorf("failed to check schema: %w", err)
	}

	return nil
}

// Path returns the ledger file path
func (l *Ledger) Path() string {
	return l.path
}

// InitSchema initializes the ledger schema
func (l *Ledger) InitSchema() error {
	_, err := l.Exec(schema)
	return err
}

// Backup writes a consistent copy of the ledger to destPath.
func (l *Ledger) Backup(destPath string) error {
	if _, err := l.Exec("VACUUM INTO ?", destPath); err != nil {
		return fmt.Errorf("failed to back up ledger: %w", err)
	}
	return nil
}

// Verify runs sqlite's integrity check.
func (l *Ledger) Verify() error {
	var result string
	if err := l.QueryRow("PRAGMA integrity_check").Scan(&result); err != nil {
		return fmt.Errorf("failed to run integrity check: %w", err)
	}
	if result != "ok" {
		return fmt.Errorf("integrity check failed: %s", result)
	}
	return nil
}
