package goIdentity

import (
	"context"
	"errors"
	"strings"

	"github.com/MrEthical07/goIdentity/backend"
	"github.com/MrEthical07/goIdentity/internal/enroll"
)

var (
	// ErrInvalidInput reports a missing or empty required argument.
	ErrInvalidInput = errors.New("invalid input")
	// ErrInvalidCredentials reports a rejected email/password pair.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrAccountLocked reports that the backend refuses the principal.
	ErrAccountLocked = errors.New("account locked")
	// ErrRateLimited reports backend throttling.
	ErrRateLimited = errors.New("rate limited")
	// ErrProfileNotFound reports an authenticated principal without an application profile.
	ErrProfileNotFound = errors.New("profile not found")
	// ErrSessionMissing reports a successful backend call that produced no session.
	ErrSessionMissing = errors.New("session missing")
	// ErrSessionSuperseded reports a sign-in discarded because a sign-out happened meanwhile.
	ErrSessionSuperseded = errors.New("session superseded by sign-out")
	// ErrNotAuthenticated reports an operation that needs a signed-in user.
	ErrNotAuthenticated = errors.New("not authenticated")
	// ErrChallengeCreationFailed reports that no MFA challenge could be created.
	ErrChallengeCreationFailed = errors.New("challenge could not be created")
	// ErrChallengeExpired reports an expired or unknown MFA challenge.
	ErrChallengeExpired = errors.New("mfa challenge expired")
	// ErrMFACodeRejected reports a wrong TOTP code.
	ErrMFACodeRejected = errors.New("mfa code rejected")
	// ErrFactorAlreadyExists reports an enrollment blocked by an existing factor.
	ErrFactorAlreadyExists = errors.New("factor already exists")
	// ErrFactorNotFound reports an unknown factor id.
	ErrFactorNotFound = errors.New("factor not found")
	// ErrFactorIDMissing reports an enrollment reply without a factor id.
	ErrFactorIDMissing = errors.New("could not retrieve factor id")
	// ErrEnrollmentExpired reports an enrollment whose challenge expired; restart enrollment.
	ErrEnrollmentExpired = errors.New("enrollment session expired, restart")
	// ErrVerificationUnsupported reports a backend with no factor verification entry point.
	ErrVerificationUnsupported = errors.New("backend does not support factor verification")
	// ErrPartialDisable reports that at least one factor survived a bulk disable.
	ErrPartialDisable = errors.New("not every factor could be disabled")
	// ErrBackendUnavailable reports any other backend failure, including timeouts.
	ErrBackendUnavailable = errors.New("identity backend unavailable")
	// ErrIllegalTransition reports an enrollment step out of order.
	ErrIllegalTransition = enroll.ErrIllegalTransition
	// ErrManagerNotReady reports a manager built without its collaborators.
	ErrManagerNotReady = errors.New("manager not initialized")
)

// OpError wraps a failure with the operation that produced it. errors.Is
// matches both Kind (one of the sentinels above) and the underlying cause.
type OpError struct {
	Op       string
	FactorID string
	Kind     error
	Err      error
}

func (e *OpError) Error() string {
	var b strings.Builder
	b.WriteString("goIdentity: ")
	b.WriteString(e.Op)
	if e.FactorID != "" {
		b.WriteString(" (factor ")
		b.WriteString(e.FactorID)
		b.WriteByte(')')
	}
	if e.Kind != nil {
		b.WriteString(": ")
		b.WriteString(e.Kind.Error())
	}
	if e.Err != nil && e.Err != e.Kind {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *OpError) Unwrap() []error {
	out := make([]error, 0, 2)
	if e.Kind != nil {
		out = append(out, e.Kind)
	}
	if e.Err != nil && e.Err != e.Kind {
		out = append(out, e.Err)
	}
	return out
}

func opError(op, factorID string, kind, cause error) *OpError {
	return &OpError{Op: op, FactorID: factorID, Kind: kind, Err: cause}
}

// classify maps a backend failure onto a manager sentinel.
func classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return ErrBackendUnavailable
	}
	switch backend.Category(err) {
	case backend.ErrInvalidCredentials:
		return ErrInvalidCredentials
	case backend.ErrAccountLocked:
		return ErrAccountLocked
	case backend.ErrRateLimited:
		return ErrRateLimited
	case backend.ErrNoSession:
		return ErrSessionMissing
	case backend.ErrFactorNotFound:
		return ErrFactorNotFound
	case backend.ErrFactorExists:
		return ErrFactorAlreadyExists
	case backend.ErrChallengeExpired:
		return ErrChallengeExpired
	case backend.ErrInvalidCode:
		return ErrMFACodeRejected
	default:
		return ErrBackendUnavailable
	}
}

// withOp re-labels err under op. A sentinel becomes the Kind; an existing
// OpError keeps its Kind and cause.
func withOp(op, factorID string, err error) *OpError {
	var oe *OpError
	if errors.As(err, &oe) {
		return &OpError{Op: op, FactorID: factorID, Kind: oe.Kind, Err: oe.Err}
	}
	return &OpError{Op: op, FactorID: factorID, Kind: err}
}
