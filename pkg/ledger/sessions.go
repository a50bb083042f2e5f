package ledger

import (
	"fmt"
	"time"
)

// Session is one recorded batch command run.
type Session struct {
	SessionID  int64
	Command    string
	StartedAt  time.Time
	FinishedAt time.Time
	Succeeded  int
	Failed     int
	Skipped    int
}

// StartSession records the beginning of a batch run and returns its id.
func (l *Ledger) StartSession(command string) (int64, error) {
	result, err := l.Exec("INSERT INTO sessions (command) VALUES (?)", command)
	if err != nil {
		return 0, fmt.Errorf("failed to start session: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get session id: %w", err)
	}
	return id, nil
}

// FinishSession stores the final counters for a run.
func (l *Ledger) FinishSession(sessionID int64, succeeded, failed, skipped int) error {
	_, err := l.Exec(`
		UPDATE sessions
		SET finished_at = CURRENT_TIMESTAMP, succeeded = ?, failed = ?, skipped = ?
		WHERE session_id = ?
	`, succeeded, failed, skipped, sessionID)
	if err != nil {
		return fmt.Errorf("failed to finish session: %w", err)
	}
	return nil
}

// RecentSessions returns the latest runs, newest first.
func (l *Ledger) RecentSessions(limit int) ([]Session, error) {
	rows, err := l.Query(`
		SELECT session_id, command, started_at,
		       COALESCE(finished_at, started_at), succeeded, failed, skipped
		FROM sessions
		ORDER BY started_at DESC, session_id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []Session
	for rows.Next() {
		var s Session
		if err := rows.Scan(&s.SessionID, &s.Command, &s.StartedAt, &s.FinishedAt,
			&s.Succeeded, &s.Failed, &s.Skipped); err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		sessions = append(sessions, s)
	}
	return sessions, rows.Err()
}
