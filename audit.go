package goIdentity

import (
	"io"

	"github.com/MrEthical07/goIdentity/internal/audit"
)

// AuditEvent is one append-only record of a security-relevant action.
type AuditEvent = audit.Event

// AuditSink persists audit events. A failing sink never fails the operation
// that produced the event; failures are counted and logged.
type AuditSink = audit.Sink

// NoOpSink discards every event.
type NoOpSink = audit.NoOpSink

// ChannelSink buffers events on a channel; useful in tests.
type ChannelSink = audit.ChannelSink

// JSONWriterSink writes newline-delimited JSON.
type JSONWriterSink = audit.JSONWriterSink

// MultiSink fans out to several sinks.
type MultiSink = audit.MultiSink

func NewChannelSink(buffer int) *ChannelSink {
	return audit.NewChannelSink(buffer)
}

func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return audit.NewJSONWriterSink(w)
}
