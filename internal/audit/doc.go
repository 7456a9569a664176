// Package audit implements async, best-effort delivery of security events.
//
// # Components
//
//   - [Sink]: interface for event consumers (channel, JSON writer, fan-out, no-op).
//   - [Dispatcher]: buffered relay with drop-if-full / block-if-full semantics.
//     Sink errors and panics are counted and handed to an optional callback,
//     never returned to the emitter.
//   - [Event]: write-once record: action tag, acting user, entity, outcome, details.
//
// # Architecture boundaries
//
// This package owns buffering and sink delivery. It does NOT decide which events
// to emit; that responsibility belongs to the manager.
//
// # What this package must NOT do
//
//   - Filter or suppress events based on business logic.
//   - Import goIdentity or any sibling internal package.
//   - Block the emitter on sink I/O.
package audit
