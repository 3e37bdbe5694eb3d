package history

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jason-riddle/dkr-go"
)

// ErrSessionNotFound is returned for an unknown session ID.
var ErrSessionNotFound = errors.New("session not found")

// Session summarizes one conversation.
type Session struct {
	ID           string    `json:"id"`
	MessageCount int       `json:"message_count"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// NewSessionID returns a fresh session identifier.
func NewSessionID() string {
	return uuid.NewString()
}

// Append stores msgs under sessionID, creating the session if needed.
func (db *DB) Append(sessionID string, msgs ...dkr.Message) error {
	if sessionID == "" {
		return errors.New("session ID is required")
	}

	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`
		INSERT INTO sessions (id) VALUES (?)
		ON CONFLICT(id) DO UPDATE SET updated_at = CURRENT_TIMESTAMP
	`, sessionID); err != nil {
		return fmt.Errorf("failed to upsert session: %w", err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO messages (id, session_id, role, content, sources, agent_steps, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, m := range msgs {
		sources, err := marshalOptional(m.Sources)
		if err != nil {
			return fmt.Errorf("failed to encode sources: %w", err)
		}
		steps, err := marshalOptional(m.AgentSteps)
		if err != nil {
			return fmt.Errorf("failed to encode agent steps: %w", err)
		}
		if _, err := stmt.Exec(m.ID, sessionID, string(m.Role), m.Content, sources, steps,
			m.Timestamp.UTC().Format(time.RFC3339Nano)); err != nil {
			return fmt.Errorf("failed to insert message %s: %w", m.ID, err)
		}
	}

	return tx.Commit()
}

// Messages returns the messages of a session in the order they were stored.
func (db *DB) Messages(sessionID string) ([]dkr.Message, error) {
	if err := db.requireSession(sessionID); err != nil {
		return nil, err
	}

	rows, err := db.conn.Query(`
		SELECT id, role, content, sources, agent_steps, created_at
		FROM messages
		WHERE session_id = ?
		ORDER BY seq
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query messages: %w", err)
	}
	defer rows.Close()

	var msgs []dkr.Message
	for rows.Next() {
		var (
			m              dkr.Message
			role, created  string
			sources, steps sql.NullString
		)
		if err := rows.Scan(&m.ID, &role, &m.Content, &sources, &steps, &created); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		m.Role = dkr.Role(role)
		if m.Timestamp, err = parseTimestamp(created); err != nil {
			return nil, fmt.Errorf("failed to parse messages.created_at: %w", err)
		}
		if sources.Valid {
			if err := json.Unmarshal([]byte(sources.String), &m.Sources); err != nil {
				return nil, fmt.Errorf("failed to decode sources: %w", err)
			}
		}
		if steps.Valid {
			if err := json.Unmarshal([]byte(steps.String), &m.AgentSteps); err != nil {
				return nil, fmt.Errorf("failed to decode agent steps: %w", err)
			}
		}
		msgs = append(msgs, m)
	}

	return msgs, rows.Err()
}

// Sessions lists sessions, most recently updated first.
func (db *DB) Sessions() ([]Session, error) {
	rows, err := db.conn.Query(`
		SELECT s.id, s.created_at, s.updated_at, COUNT(m.seq)
		FROM sessions s
		LEFT JOIN messages m ON m.session_id = s.id
		GROUP BY s.id
		ORDER BY s.updated_at DESC, MAX(m.seq) DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query sessions: %w", err)
	}
	defer rows.Close()

	var sessions []Session
	for rows.Next() {
		var s Session
		var created, updated string
		if err := rows.Scan(&s.ID, &created, &updated, &s.MessageCount); err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		if s.CreatedAt, err = parseTimestamp(created); err != nil {
			return nil, fmt.Errorf("failed to parse sessions.created_at: %w", err)
		}
		if s.UpdatedAt, err = parseTimestamp(updated); err != nil {
			return nil, fmt.Errorf("failed to parse sessions.updated_at: %w", err)
		}
		sessions = append(sessions, s)
	}

	return sessions, rows.Err()
}

// DeleteSession removes a session and its messages.
func (db *DB) DeleteSession(sessionID string) error {
	res, err := db.conn.Exec("DELETE FROM sessions WHERE id = ?", sessionID)
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}
	return nil
}

func (db *DB) requireSession(sessionID string) error {
	var exists int
	err := db.conn.QueryRow("SELECT 1 FROM sessions WHERE id = ?", sessionID).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}
	if err != nil {
		return fmt.Errorf("failed to look up session: %w", err)
	}
	return nil
}

// marshalOptional encodes a slice as JSON, or NULL when it is empty.
func marshalOptional[T any](items []T) (sql.NullString, error) {
	if len(items) == 0 {
		return sql.NullString{}, nil
	}
	data, err := json.Marshal(items)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(data), Valid: true}, nil
}
