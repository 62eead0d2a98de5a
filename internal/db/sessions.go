package db

import (
	"database/sql"
	"fmt"
	"time"
)

// Session is one activation cycle as recorded in the journal.
type Session struct {
	ID          int64      `json:"id"`
	ActivatedBy string     `json:"activated_by"`
	RemoteAddr  string     `json:"remote_addr"`
	StartedAt   time.Time  `json:"started_at"`
	StoppedAt   *time.Time `json:"stopped_at,omitempty"`
	StopReason  string     `json:"stop_reason,omitempty"`
	ExitCode    *int       `json:"exit_code,omitempty"`
	PeakPlayers int        `json:"peak_players"`
}

// RecordStart inserts a new open session and returns its id.
func (d *Database) RecordStart(activatedBy, remoteAddr string, startedAt time.Time) (int64, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	res, err := d.db.Exec(
		`INSERT INTO sessions (activated_by, remote_addr, started_at) VALUES (?, ?, ?)`,
		activatedBy, remoteAddr, startedAt.UTC(),
	)
	if err != nil {
		return 0, fmt.Errorf("recording session start: %w", err)
	}
	return res.LastInsertId()
}

// RecordPeak bumps the stored peak player count for an open session if
// the sample exceeds it.
func (d *Database) RecordPeak(sessionID int64, players int) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	_, err := d.db.Exec(
		`UPDATE sessions SET peak_players = ? WHERE id = ? AND peak_players < ?`,
		players, sessionID, players,
	)
	if err != nil {
		return fmt.Errorf("recording peak players: %w", err)
	}
	return nil
}

// RecordStop closes a session with its outcome.
func (d *Database) RecordStop(sessionID int64, stoppedAt time.Time, reason string, exitCode int) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	_, err := d.db.Exec(
		`UPDATE sessions SET stopped_at = ?, stop_reason = ?, exit_code = ? WHERE id = ?`,
		stoppedAt.UTC(), reason, exitCode, sessionID,
	)
	if err != nil {
		return fmt.Errorf("recording session stop: %w", err)
	}
	return nil
}

// RecentSessions returns the latest sessions, newest first.
func (d *Database) RecentSessions(limit int) ([]Session, error) {
	rows, err := d.db.Query(
		`SELECT id, activated_by, remote_addr, started_at, stopped_at, stop_reason, exit_code, peak_players
		 FROM sessions ORDER BY started_at DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("querying sessions: %w", err)
	}
	defer rows.Close()

	var sessions []Session
	for rows.Next() {
		var s Session
		var stoppedAt sql.NullTime
		var reason sql.NullString
		var exitCode sql.NullInt64
		if err := rows.Scan(&s.ID, &s.ActivatedBy, &s.RemoteAddr, &s.StartedAt, &stoppedAt, &reason, &exitCode, &s.PeakPlayers); err != nil {
			return nil, fmt.Errorf("scanning session row: %w", err)
		}
		if stoppedAt.Valid {
			t := stoppedAt.Time
			s.StoppedAt = &t
		}
		if reason.Valid {
			s.StopReason = reason.String
		}
		if exitCode.Valid {
			code := int(exitCode.Int64)
			s.ExitCode = &code
		}
		sessions = append(sessions, s)
	}
	return sessions, rows.Err()
}
