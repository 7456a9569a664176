// Package profile maps authenticated principals onto application user profiles.
//
// A principal that authenticated at the identity backend is only an application
// user when a [Profile] with the same email exists. [Resolver] implementations
// report absence with [ErrNotFound]; callers must treat that as an
// authentication failure.
//
// Implementations: [Directory] (in memory), rediscache (read-through Redis
// cache in front of any Resolver) and pgdir (PostgreSQL via pgx).
package profile
