// Package sqlite stores audit events in a local SQLite database using the
// pure-Go modernc.org/sqlite driver.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	identity "github.com/MrEthical07/goIdentity"
	_ "modernc.org/sqlite"
)

const schema = `CREATE TABLE IF NOT EXISTS audit_events (
	id          TEXT PRIMARY KEY,
	ts          TEXT NOT NULL,
	action      TEXT NOT NULL,
	user_id     TEXT,
	entity_type TEXT NOT NULL,
	entity_id   TEXT,
	success     INTEGER NOT NULL,
	error       TEXT,
	details     TEXT
);
CREATE INDEX IF NOT EXISTS audit_events_user_ts ON audit_events(user_id, ts);`

const insertSQL = `INSERT INTO audit_events (id, ts, action, user_id, entity_type, entity_id, success, error, details)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO NOTHING`

// Sink appends events to the audit_events table.
type Sink struct {
	db *sql.DB
}

// Open opens or creates the database at path and ensures the schema.
func Open(ctx context.Context, path string) (*Sink, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open audit db: %w", err)
	}
	// A single writer avoids SQLITE_BUSY between pooled connections.
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
	} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("%s: %w", pragma, err)
		}
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create audit schema: %w", err)
	}
	return &Sink{db: db}, nil
}

func (s *Sink) Close() error {
	return s.db.Close()
}

// Emit is idempotent per event id.
func (s *Sink) Emit(ctx context.Context, event identity.AuditEvent) error {
	var details any
	if len(event.Details) > 0 {
		raw, err := json.Marshal(event.Details)
		if err != nil {
			return fmt.Errorf("encode details: %w", err)
		}
		details = string(raw)
	}

	_, err := s.db.ExecContext(ctx, insertSQL,
		event.ID,
		event.Timestamp.UTC().Format(time.RFC3339Nano),
		event.Action,
		nullable(event.UserID),
		event.EntityType,
		nullable(event.EntityID),
		event.Success,
		nullable(event.Error),
		details,
	)
	if err != nil {
		return fmt.Errorf("insert audit event: %w", err)
	}
	return nil
}

// ForUser returns a user's events, oldest first.
func (s *Sink) ForUser(ctx context.Context, userID string) ([]identity.AuditEvent, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, ts, action, user_id, entity_type, entity_id, success, error, details
FROM audit_events WHERE user_id = ? ORDER BY ts, rowid`, userID)
	if err != nil {
		return nil, fmt.Errorf("query audit events: %w", err)
	}
	defer rows.Close()

	var out []identity.AuditEvent
	for rows.Next() {
		var (
			ev                        identity.AuditEvent
			ts                        string
			user, entity, errCode, dt sql.NullString
		)
		if err := rows.Scan(&ev.ID, &ts, &ev.Action, &user, &ev.EntityType, &entity, &ev.Success, &errCode, &dt); err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}
		ev.Timestamp, _ = time.Parse(time.RFC3339Nano, ts)
		ev.UserID, ev.EntityID, ev.Error = user.String, entity.String, errCode.String
		if dt.Valid {
			_ = json.Unmarshal([]byte(dt.String), &ev.Details)
		}
		out = append(out, ev)
	}
	return out, rows.Err()
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
