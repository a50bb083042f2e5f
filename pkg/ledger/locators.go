package ledger

import (
	"database/sql"
	"errors"
	"fmt"
)

// SetLocator records or updates where a canonical id's note lives.
func (l *Ledger) SetLocator(canonicalID, platform, path string) error {
	_, err := l.Exec(`
		INSERT INTO locators (canonical_id, platform, path)
		VALUES (?, ?, ?)
		ON CONFLICT(canonical_id) DO UPDATE SET
			platform = excluded.platform,
			path = excluded.path,
			updated_at = CURRENT_TIMESTAMP
	`, canonicalID, platform, path)
	if err != nil {
		return fmt.Errorf("failed to set locator: %w", err)
	}
	return nil
}

// GetLocator returns the note path for a canonical id. The empty string
// means the index has no entry; callers fall back to a scan.
func (l *Ledger) GetLocator(canonicalID string) (string, error) {
	var path string
	err := l.QueryRow("SELECT path FROM locators WHERE canonical_id = ?", canonicalID).Scan(&path)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to look up locator: %w", err)
	}
	return path, nil
}

// DeleteLocator removes a stale index row.
func (l *Ledger) DeleteLocator(canonicalID string) error {
	if _, err := l.Exec("DELETE FROM locators WHERE canonical_id = ?", canonicalID); err != nil {
		return fmt.Errorf("failed to delete locator: %w", err)
	}
	return nil
}
