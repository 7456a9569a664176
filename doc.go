// Package goIdentity manages the identity and session lifecycle of an
// organization-internal application: who is logged in, whether a TOTP second
// factor is enrolled and verified, and an audit record for every
// security-relevant transition.
//
// The package is built around [Manager], obtained from [Builder.Build]. Manager
// methods are safe to call from multiple goroutines; the session state they
// publish is owned by a single store with one transition function.
//
// # Architecture boundaries
//
// goIdentity is the public surface. It exposes [Manager], [Builder], [Config],
// error sentinels and value types (LoginResult, Factor, Enrollment, AuditEvent,
// MetricsSnapshot). Credential checks, session issuance and MFA cryptography
// are delegated to a [backend.Client]; profiles come from a [profile.Resolver].
// Enrollment state, payload normalization and audit dispatch live under
// internal/ and are never exported.
//
// # What this package must NOT do
//
//   - Hash passwords, generate TOTP secrets or sign tokens.
//   - Let an audit sink failure fail the operation that emitted the event.
//   - Publish a user whose profile could not be resolved.
package goIdentity
