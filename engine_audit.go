package goIdentity

import (
	"context"
	"errors"

	"github.com/MrEthical07/goIdentity/internal/audit"
	"github.com/google/uuid"
)

// Audit actions. Every state-changing attempt records exactly one of these.
const (
	AuditSignIn                 = "auth.sign_in"
	AuditSignInFailed           = "auth.sign_in_failed"
	AuditSignOut                = "auth.sign_out"
	AuditMFAVerify              = "auth.mfa_verify"
	AuditMFAVerifyFailed        = "auth.mfa_verify_failed"
	AuditMFAEnrollStart         = "auth.mfa_enroll_start"
	AuditMFAEnrollStartFailed   = "auth.mfa_enroll_start_failed"
	AuditMFAEnrollVerify        = "auth.mfa_enroll_verify"
	AuditMFAEnrollVerifyFailed  = "auth.mfa_enroll_verify_failed"
	AuditMFADisable             = "auth.mfa_disable"
	AuditMFADisableFailed       = "auth.mfa_disable_failed"
	AuditPasswordResetRequested = "auth.password_reset_requested"
	AuditPasswordReset          = "auth.password_reset"
)

const (
	entityUser   = "user"
	entityFactor = "mfa_factor"
)

// AuditErrorCode is the stable, storage-friendly form of a failure.
type AuditErrorCode string

const (
	auditErrInvalidInput        AuditErrorCode = "invalid_input"
	auditErrInvalidCredentials  AuditErrorCode = "invalid_credentials"
	auditErrAccountLocked       AuditErrorCode = "account_locked"
	auditErrRateLimited         AuditErrorCode = "rate_limited"
	auditErrProfileNotFound     AuditErrorCode = "profile_not_found"
	auditErrSessionMissing      AuditErrorCode = "session_missing"
	auditErrSessionSuperseded   AuditErrorCode = "session_superseded"
	auditErrNotAuthenticated    AuditErrorCode = "not_authenticated"
	auditErrChallengeFailed     AuditErrorCode = "challenge_failed"
	auditErrChallengeExpired    AuditErrorCode = "challenge_expired"
	auditErrCodeRejected        AuditErrorCode = "code_rejected"
	auditErrFactorExists        AuditErrorCode = "factor_exists"
	auditErrFactorNotFound      AuditErrorCode = "factor_not_found"
	auditErrFactorIDMissing     AuditErrorCode = "factor_id_missing"
	auditErrEnrollmentExpired   AuditErrorCode = "enrollment_expired"
	auditErrUnavailable         AuditErrorCode = "backend_unavailable"
	auditErrIllegalTransition   AuditErrorCode = "illegal_transition"
	auditErrVerificationMissing AuditErrorCode = "verification_unsupported"
	auditErrInternal            AuditErrorCode = "internal_error"
)

// emitAudit hands an event to the dispatcher. It never blocks on the sink and
// never reports a failure to the caller.
func (m *Manager) emitAudit(
	ctx context.Context,
	action string,
	success bool,
	userID string,
	entityType string,
	entityID string,
	err error,
	detailsBuilder func() map[string]string,
) {
	if m == nil || m.audit == nil {
		return
	}

	var details map[string]string
	if detailsBuilder != nil {
		details = detailsBuilder()
	}

	event := audit.Event{
		ID:         uuid.NewString(),
		Timestamp:  m.now().UTC(),
		Action:     action,
		UserID:     userID,
		EntityType: entityType,
		EntityID:   entityID,
		Success:    success,
		Details:    details,
	}
	if code := auditErrorCode(err); code != "" {
		event.Error = string(code)
	}

	// The caller's cancellation must not drop the record of what it did.
	m.audit.Emit(context.WithoutCancel(ctx), event)
}

func (m *Manager) onAuditFailure(event audit.Event, err error) {
	m.metricInc(MetricAuditWriteFailure)
	m.log.Debug().Err(err).Str("action", event.Action).Str("event_id", event.ID).Msg("audit write failed")
}

func auditErrorCode(err error) AuditErrorCode {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, ErrInvalidInput):
		return auditErrInvalidInput
	case errors.Is(err, ErrInvalidCredentials):
		return auditErrInvalidCredentials
	case errors.Is(err, ErrAccountLocked):
		return auditErrAccountLocked
	case errors.Is(err, ErrRateLimited):
		return auditErrRateLimited
	case errors.Is(err, ErrProfileNotFound):
		return auditErrProfileNotFound
	case errors.Is(err, ErrSessionSuperseded):
		return auditErrSessionSuperseded
	case errors.Is(err, ErrSessionMissing):
		return auditErrSessionMissing
	case errors.Is(err, ErrNotAuthenticated):
		return auditErrNotAuthenticated
	case errors.Is(err, ErrChallengeCreationFailed):
		return auditErrChallengeFailed
	case errors.Is(err, ErrEnrollmentExpired):
		return auditErrEnrollmentExpired
	case errors.Is(err, ErrChallengeExpired):
		return auditErrChallengeExpired
	case errors.Is(err, ErrMFACodeRejected):
		return auditErrCodeRejected
	case errors.Is(err, ErrFactorAlreadyExists):
		return auditErrFactorExists
	case errors.Is(err, ErrFactorNotFound):
		return auditErrFactorNotFound
	case errors.Is(err, ErrFactorIDMissing):
		return auditErrFactorIDMissing
	case errors.Is(err, ErrIllegalTransition):
		return auditErrIllegalTransition
	case errors.Is(err, ErrVerificationUnsupported):
		return auditErrVerificationMissing
	case errors.Is(err, ErrBackendUnavailable):
		return auditErrUnavailable
	default:
		return auditErrInternal
	}
}
