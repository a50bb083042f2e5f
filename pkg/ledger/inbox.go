package ledger

import (
	"database/sql"
	"errors"
	"fmt"
)

// UpsertInboxEntry records a pulled remote entry. Re-pulling the same
// entry refreshes the reference but never clears the resolved flag.
func (l *Ledger) UpsertInboxEntry(source, remoteID, reference string) error {
	_, err := l.Exec(`
		INSERT INTO inbox_entries (source, remote_id, reference)
		VALUES (?, ?, ?)
		ON CONFLICT(source, remote_id) DO UPDATE SET
			reference = excluded.reference
	`, source, remoteID, reference)
	if err != nil {
		return fmt.Errorf("failed to upsert inbox entry: %w", err)
	}
	return nil
}

// IsResolved reports whether an entry was already fully processed.
// Unknown entries count as unresolved.
func (l *Ledger) IsResolved(source, remoteID string) (bool, error) {
	var resolved bool
	err := l.QueryRow(
		"SELECT resolved FROM inbox_entries WHERE source = ? AND remote_id = ?",
		source, remoteID,
	).Scan(&resolved)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check inbox entry: %w", err)
	}
	return resolved, nil
}

// MarkResolved flips an entry once its note was captured and the source
// was told.
func (l *Ledger) MarkResolved(source, remoteID string) error {
	_, err := l.Exec(`
		UPDATE inbox_entries
		SET resolved = 1, resolved_at = CURRENT_TIMESTAMP
		WHERE source = ? AND remote_id = ?
	`, source, remoteID)
	if err != nil {
		return fmt.Errorf("failed to mark inbox entry resolved: %w", err)
	}
	return nil
}

// UnresolvedCount returns how many pulled entries still await capture.
func (l *Ledger) UnresolvedCount(source string) (int, error) {
	var count int
	err := l.QueryRow(
		"SELECT COUNT(*) FROM inbox_entries WHERE source = ? AND resolved = 0",
		source,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count unresolved entries: %w", err)
	}
	return count, nil
}
