// Package memory is an in-process identity backend implementing
// [backend.Client], [backend.FactorVerifier] and the session-change feed.
//
// It models a single client's view of the backend: one current session, one
// pending step-up principal. Session events are delivered synchronously, on
// the goroutine that caused them, after internal locks are released.
//
// Passwords are stored as Argon2id hashes, TOTP factors are generated and
// checked with github.com/pquerna/otp, and access tokens are HS256 JWTs. Per
// e-mail sign-in throttling uses golang.org/x/time/rate.
//
// Faults can be injected per operation with [Backend.Inject] to exercise
// failure paths of callers.
package memory
