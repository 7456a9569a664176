// Package redisstream appends audit events to a Redis stream.
package redisstream

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	identity "github.com/MrEthical07/goIdentity"
	"github.com/redis/go-redis/v9"
)

const (
	defaultStream = "gi:audit"
	defaultMaxLen = 100_000
)

// Sink writes one stream entry per event. Entries are trimmed approximately
// to MaxLen so the stream stays bounded.
type Sink struct {
	redis  redis.UniversalClient
	stream string
	maxLen int64
}

// New returns a sink writing to stream. Empty stream defaults to "gi:audit";
// maxLen <= 0 keeps about 100k entries.
func New(client redis.UniversalClient, stream string, maxLen int64) *Sink {
	if stream == "" {
		stream = defaultStream
	}
	if maxLen <= 0 {
		maxLen = defaultMaxLen
	}
	return &Sink{redis: client, stream: stream, maxLen: maxLen}
}

func (s *Sink) Emit(ctx context.Context, event identity.AuditEvent) error {
	values := map[string]any{
		"id":          event.ID,
		"ts":          event.Timestamp.UTC().Format(time.RFC3339Nano),
		"action":      event.Action,
		"user_id":     event.UserID,
		"entity_type": event.EntityType,
		"entity_id":   event.EntityID,
		"success":     strconv.FormatBool(event.Success),
		"error":       event.Error,
	}
	if len(event.Details) > 0 {
		details, err := json.Marshal(event.Details)
		if err != nil {
			return fmt.Errorf("encode details: %w", err)
		}
		values["details"] = string(details)
	}

	err := s.redis.XAdd(ctx, &redis.XAddArgs{
		Stream: s.stream,
		MaxLen: s.maxLen,
		Approx: true,
		Values: values,
	}).Err()
	if err != nil {
		return fmt.Errorf("xadd %s: %w", s.stream, err)
	}
	return nil
}

// Read returns up to count of the most recent events, newest first.
func (s *Sink) Read(ctx context.Context, count int64) ([]identity.AuditEvent, error) {
	msgs, err := s.redis.XRevRangeN(ctx, s.stream, "+", "-", count).Result()
	if err != nil {
		return nil, fmt.Errorf("xrevrange %s: %w", s.stream, err)
	}

	out := make([]identity.AuditEvent, 0, len(msgs))
	for _, msg := range msgs {
		out = append(out, decode(msg.Values))
	}
	return out, nil
}

func decode(values map[string]any) identity.AuditEvent {
	str := func(k string) string {
		v, _ := values[k].(string)
		return v
	}
	ev := identity.AuditEvent{
		ID:         str("id"),
		Action:     str("action"),
		UserID:     str("user_id"),
		EntityType: str("entity_type"),
		EntityID:   str("entity_id"),
		Error:      str("error"),
	}
	ev.Success, _ = strconv.ParseBool(str("success"))
	ev.Timestamp, _ = time.Parse(time.RFC3339Nano, str("ts"))
	if raw := str("details"); raw != "" {
		_ = json.Unmarshal([]byte(raw), &ev.Details)
	}
	return ev
}
