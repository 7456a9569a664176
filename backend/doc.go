// Package backend defines the contract between the identity manager and the
// identity backend that owns credentials, sessions and MFA factors.
//
// # Architecture boundaries
//
// This package owns the [Client] interface, its wire types and the error
// categories adapters map their failures onto. Concrete adapters live in
// sub-packages: [github.com/MrEthical07/goIdentity/backend/memory] is an
// in-process reference implementation and
// [github.com/MrEthical07/goIdentity/backend/gotrue] speaks the GoTrue REST API.
//
// Payload types intentionally mirror the loose shapes backends return (several
// optional fields for the same concept). Callers normalize them at a single
// boundary instead of trusting any one field.
//
// # What this package must NOT do
//
//   - Import goIdentity or any adapter (no upward imports).
//   - Hash passwords, generate TOTP secrets or sign tokens.
package backend
