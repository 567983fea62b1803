package tracker

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schemaSQL string

// Store persists change history to SQLite so sessions survive restarts.
type Store struct {
	db *sql.DB
}

// OpenStore opens (creating if needed) the history database at path.
func OpenStore(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open history db: %w", err)
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply history schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the database handle.
func (s *Store) Close() error { return s.db.Close() }

// SaveChange inserts one change row.
func (s *Store) SaveChange(ctx context.Context, ch Change) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO changes (id, session_id, path, change_type, intent, impact,
		                     description, warnings, lines_added, lines_removed, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		ch.ID, ch.SessionID, ch.Path, string(ch.Type), string(ch.Intent), string(ch.Impact),
		ch.Description, strings.Join(ch.Warnings, "\n"), ch.LinesAdded, ch.LinesRemoved,
		ch.Timestamp.UTC())
	if err != nil {
		return fmt.Errorf("save change: %w", err)
	}
	return nil
}

// LatestSessionID returns the session that recorded the most recent
// change, or empty when no history exists yet.
func (s *Store) LatestSessionID(ctx context.Context) (string, error) {
	var id string
	err := s.db.QueryRowContext(ctx,
		`SELECT session_id FROM changes ORDER BY created_at DESC LIMIT 1`).Scan(&id)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("latest session: %w", err)
	}
	return id, nil
}

// ListChanges returns up to limit changes, newest first. An empty
// sessionID returns changes across all sessions.
func (s *Store) ListChanges(ctx context.Context, sessionID string, limit int) ([]Change, error) {
	if limit <= 0 {
		limit = recentChangeLimit
	}
	query := `
		SELECT id, session_id, path, change_type, intent, impact,
		       description, warnings, lines_added, lines_removed, created_at
		FROM changes`
	args := []any{}
	if sessionID != "" {
		query += ` WHERE session_id = ?`
		args = append(args, sessionID)
	}
	query += ` ORDER BY created_at DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list changes: %w", err)
	}
	defer rows.Close()

	var out []Change
	for rows.Next() {
		var ch Change
		var typ, intent, impact, warnings string
		var ts time.Time
		if err := rows.Scan(&ch.ID, &ch.SessionID, &ch.Path, &typ, &intent, &impact,
			&ch.Description, &warnings, &ch.LinesAdded, &ch.LinesRemoved, &ts); err != nil {
			return nil, fmt.Errorf("scan change: %w", err)
		}
		ch.Type = ChangeType(typ)
		ch.Intent = ChangeIntent(intent)
		ch.Impact = ImpactLevel(impact)
		if warnings != "" {
			ch.Warnings = strings.Split(warnings, "\n")
		}
		ch.Timestamp = ts
		out = append(out, ch)
	}
	return out, rows.Err()
}
