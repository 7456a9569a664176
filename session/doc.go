// Package session holds the current authenticated user for one manager
// instance and publishes every change to subscribers.
//
// # Single writer
//
// All mutations go through [Store.Apply]. Each applied transition advances an
// epoch; guarded sign-ins that started before a later sign-out are rejected
// with [ErrStaleTransition] so a slow login cannot resurrect a session the
// user already left.
//
// # Architecture boundaries
//
// This package owns the state cell and the observer list. It does NOT talk to
// the identity backend, resolve profiles or emit audit events; those belong
// to the manager.
//
// # What this package must NOT do
//
//   - Import goIdentity or backend (no upward imports).
//   - Call observers while holding the state lock.
package session
