// Package gotrue adapts a GoTrue-compatible REST API (Supabase Auth and its
// forks) to [backend.Client] and [backend.FactorVerifier].
//
// The client keeps one session in memory, like a browser tab would. A password
// grant that lands at assurance level aal1 for a user with verified factors is
// held back: SignInWithPassword reports the factors and no session, and the
// aal1 token is only used to authorize the challenge and verify calls that
// complete the step-up.
//
// Error replies are decoded from both the current {"error_code","msg"} shape
// and the older OAuth {"error","error_description"} shape into [*backend.Error].
package gotrue
