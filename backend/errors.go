package backend

import (
	"errors"
	"strings"
)

// Error categories adapters report through [*Error] or return directly.
var (
	ErrInvalidCredentials = errors.New("invalid login credentials")
	ErrAccountLocked      = errors.New("account locked")
	ErrRateLimited        = errors.New("too many requests")
	ErrNoSession          = errors.New("no active session")
	ErrFactorNotFound     = errors.New("factor not found")
	ErrFactorExists       = errors.New("factor already exists")
	ErrChallengeExpired   = errors.New("challenge expired or invalid")
	ErrInvalidCode        = errors.New("invalid totp code")
	ErrUnavailable        = errors.New("identity backend unavailable")
)

// Structured codes recognized on backend replies.
const (
	CodeInvalidCredentials = "invalid_credentials"
	CodeUserLocked         = "user_banned"
	CodeRateLimited        = "over_request_rate_limit"
	CodeSessionMissing     = "session_not_found"
	CodeFactorNotFound     = "mfa_factor_not_found"
	CodeFactorNameConflict = "mfa_factor_name_conflict"
	CodeFactorExists       = "factor_exists"
	CodeChallengeExpired   = "mfa_challenge_expired"
	CodeVerificationFailed = "mfa_verification_failed"
	CodeUnavailable        = "unexpected_failure"
)

// Error is a backend failure carrying the backend's own code and message.
type Error struct {
	Status  int
	Code    string
	Message string
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Code == "" {
		return e.Message
	}
	if e.Message == "" {
		return e.Code
	}
	return e.Code + ": " + e.Message
}

// Is matches e against the category sentinels. The structured code decides
// when present; otherwise the message is inspected for well-known phrases.
func (e *Error) Is(target error) bool {
	if e == nil {
		return false
	}
	return Category(e) == target
}

// Category returns the sentinel for err, or nil when err does not map onto one.
func Category(err error) error {
	if err == nil {
		return nil
	}
	var be *Error
	if !errors.As(err, &be) {
		for _, s := range []error{
			ErrInvalidCredentials, ErrAccountLocked, ErrRateLimited, ErrNoSession,
			ErrFactorNotFound, ErrFactorExists, ErrChallengeExpired, ErrInvalidCode, ErrUnavailable,
		} {
			if errors.Is(err, s) {
				return s
			}
		}
		return nil
	}

	switch be.Code {
	case CodeInvalidCredentials:
		return ErrInvalidCredentials
	case CodeUserLocked:
		return ErrAccountLocked
	case CodeRateLimited:
		return ErrRateLimited
	case CodeSessionMissing:
		return ErrNoSession
	case CodeFactorNotFound:
		return ErrFactorNotFound
	case CodeFactorNameConflict, CodeFactorExists:
		return ErrFactorExists
	case CodeChallengeExpired:
		return ErrChallengeExpired
	case CodeVerificationFailed:
		return ErrInvalidCode
	case CodeUnavailable:
		return ErrUnavailable
	}
	if be.Status >= 500 {
		return ErrUnavailable
	}
	return categoryFromMessage(be.Message)
}

func categoryFromMessage(msg string) error {
	m := strings.ToLower(msg)
	switch {
	case strings.Contains(m, "already exists"):
		return ErrFactorExists
	case strings.Contains(m, "expired"), strings.Contains(m, "challenge") && strings.Contains(m, "invalid"):
		return ErrChallengeExpired
	case strings.Contains(m, "invalid login credentials"):
		return ErrInvalidCredentials
	case strings.Contains(m, "invalid") && strings.Contains(m, "code"):
		return ErrInvalidCode
	default:
		return nil
	}
}
