// Package postgres writes audit events to a PostgreSQL table through pgx.
package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	identity "github.com/MrEthical07/goIdentity"
	"github.com/jackc/pgx/v5/pgconn"
)

// Schema creates the table Sink writes to.
const Schema = `CREATE TABLE IF NOT EXISTS audit_events (
	id          uuid PRIMARY KEY,
	ts          timestamptz NOT NULL,
	action      text NOT NULL,
	user_id     text,
	entity_type text NOT NULL,
	entity_id   text,
	success     boolean NOT NULL,
	error       text,
	details     jsonb
);
CREATE INDEX IF NOT EXISTS audit_events_user_ts ON audit_events (user_id, ts);`

const insertSQL = `INSERT INTO audit_events (id, ts, action, user_id, entity_type, entity_id, success, error, details)
VALUES ($1, $2, $3, NULLIF($4, ''), $5, NULLIF($6, ''), $7, NULLIF($8, ''), $9)
ON CONFLICT (id) DO NOTHING`

// Execer is the subset of *pgxpool.Pool the sink needs.
type Execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

type Sink struct {
	db Execer
}

func New(db Execer) *Sink {
	return &Sink{db: db}
}

// Migrate applies Schema.
func (s *Sink) Migrate(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("create audit schema: %w", err)
	}
	return nil
}

func (s *Sink) Emit(ctx context.Context, event identity.AuditEvent) error {
	var details []byte
	if len(event.Details) > 0 {
		raw, err := json.Marshal(event.Details)
		if err != nil {
			return fmt.Errorf("encode details: %w", err)
		}
		details = raw
	}

	_, err := s.db.Exec(ctx, insertSQL,
		event.ID,
		event.Timestamp.UTC(),
		event.Action,
		event.UserID,
		event.EntityType,
		event.EntityID,
		event.Success,
		event.Error,
		details,
	)
	if err != nil {
		return fmt.Errorf("insert audit event: %w", err)
	}
	return nil
}
