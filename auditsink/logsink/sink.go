// Package logsink writes audit events as structured zerolog records.
package logsink

import (
	"context"

	identity "github.com/MrEthical07/goIdentity"
	"github.com/rs/zerolog"
)

// Sink logs successes at info level and failures at warn level.
type Sink struct {
	log zerolog.Logger
}

func New(log zerolog.Logger) *Sink {
	return &Sink{log: log.With().Str("component", "audit").Logger()}
}

func (s *Sink) Emit(_ context.Context, event identity.AuditEvent) error {
	ev := s.log.Info()
	if !event.Success {
		ev = s.log.Warn()
	}

	ev = ev.
		Str("event_id", event.ID).
		Time("at", event.Timestamp).
		Str("action", event.Action).
		Bool("success", event.Success).
		Str("entity_type", event.EntityType)
	if event.UserID != "" {
		ev = ev.Str("user_id", event.UserID)
	}
	if event.EntityID != "" {
		ev = ev.Str("entity_id", event.EntityID)
	}
	if event.Error != "" {
		ev = ev.Str("error_code", event.Error)
	}
	if len(event.Details) > 0 {
		d := zerolog.Dict()
		for k, v := range event.Details {
			d = d.Str(k, v)
		}
		ev = ev.Dict("details", d)
	}
	ev.Msg("audit")
	return nil
}
