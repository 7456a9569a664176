package backend

import "context"

// Client is the identity backend as seen by the manager.
//
// Implementations must be safe for concurrent use. GetSession returns (nil, nil)
// when no principal is signed in.
type Client interface {
	GetSession(ctx context.Context) (*Session, error)
	SignInWithPassword(ctx context.Context, email, password string) (*SignInResult, error)
	SignOut(ctx context.Context) error

	// OnSessionChange registers handler for session transitions. The returned
	// function removes the registration and is safe to call more than once.
	OnSessionChange(handler func(SessionEvent)) (unsubscribe func())

	ResetPasswordForEmail(ctx context.Context, email, redirectTo string) error
	UpdatePassword(ctx context.Context, password string) error

	Challenge(ctx context.Context, factorID string) (*ChallengeResponse, error)
	Verify(ctx context.Context, factorID, challengeID, code string) error
	Enroll(ctx context.Context, req EnrollRequest) (*EnrollResponse, error)
	Unenroll(ctx context.Context, factorID string) error
	ListFactors(ctx context.Context) ([]FactorPayload, error)
}

// FactorVerifier is implemented by backends that can confirm a freshly
// enrolled factor in a single call.
type FactorVerifier interface {
	VerifyFactor(ctx context.Context, factorID, code string) error
}

// LegacyFactorVerifier is the older enrollment confirmation entry point. It is
// only consulted when the backend does not implement [FactorVerifier].
type LegacyFactorVerifier interface {
	VerifyEnrollment(ctx context.Context, factorID, code string) error
}
