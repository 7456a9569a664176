package goIdentity

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/MrEthical07/goIdentity/backend"
	"github.com/MrEthical07/goIdentity/internal/enroll"
	"github.com/MrEthical07/goIdentity/internal/normalize"
)

// StartEnrollTOTP asks the backend for a new pending TOTP factor and returns
// the QR code and otpauth URL to show the user. Starting again while a
// previous enrollment is pending replaces it; starting after a completed
// enrollment begins a fresh one.
func (m *Manager) StartEnrollTOTP(ctx context.Context) (*Enrollment, error) {
	if err := m.ready(); err != nil {
		return nil, err
	}

	current := m.enroll.Snapshot().State
	if current == enroll.Enabled {
		m.enroll.Reset()
		current = enroll.Idle
	}
	if !enroll.Allowed(current, enroll.EventBegin) {
		return nil, opError("enroll_start", "", ErrIllegalTransition, nil)
	}

	name := fmt.Sprintf("%s-%d", m.config.Enrollment.FriendlyNamePrefix, m.now().UnixNano())

	done := m.timeBackend()
	resp, err := m.backend.Enroll(ctx, backend.EnrollRequest{
		FactorType:   backend.FactorTypeTOTP,
		FriendlyName: name,
	})
	done()
	if err != nil {
		return nil, m.enrollStartFailed(ctx, name, opError("enroll_start", "", classify(err), err))
	}

	norm := normalize.EnrollResponse(resp)
	if norm.FactorID == "" {
		return nil, m.enrollStartFailed(ctx, name, opError("enroll_start", "", ErrFactorIDMissing, nil))
	}

	if err := m.enroll.Begin(norm.FactorID, norm.QRCode, norm.OTPAuthURL); err != nil {
		return nil, m.enrollStartFailed(ctx, name, opError("enroll_start", norm.FactorID, ErrIllegalTransition, err))
	}

	m.metricInc(MetricEnrollStart)
	m.emitAudit(ctx, AuditMFAEnrollStart, true, m.currentUserID(), entityFactor, norm.FactorID, nil, func() map[string]string {
		return map[string]string{"factor_id": norm.FactorID, "friendly_name": name}
	})

	return &Enrollment{
		FactorID:     norm.FactorID,
		FriendlyName: name,
		QRCode:       norm.QRCode,
		OTPAuthURL:   norm.OTPAuthURL,
	}, nil
}

func (m *Manager) enrollStartFailed(ctx context.Context, name string, err *OpError) error {
	m.metricInc(MetricEnrollStartFailure)
	m.emitAudit(ctx, AuditMFAEnrollStartFailed, false, m.currentUserID(), entityFactor, err.FactorID, err, func() map[string]string {
		details := map[string]string{"friendly_name": name}
		if err.Err != nil {
			details["error"] = err.Err.Error()
		}
		return details
	})
	return err
}

// VerifyEnrollTOTP confirms the pending factor with a code from the user's
// authenticator. A rejected code keeps the enrollment open for another try;
// an expired enrollment must be restarted with StartEnrollTOTP.
func (m *Manager) VerifyEnrollTOTP(ctx context.Context, code string) error {
	if err := m.ready(); err != nil {
		return err
	}
	if enroll.CleanCode(code) == "" {
		return ErrInvalidInput
	}

	verify := m.factorVerifier()
	if verify == nil {
		return opError("enroll_verify", "", ErrVerificationUnsupported, nil)
	}

	factorID, cleaned, err := m.enroll.Submit(code)
	if err != nil {
		return opError("enroll_verify", "", ErrIllegalTransition, err)
	}

	done := m.timeBackend()
	err = verify(ctx, factorID, cleaned)
	done()
	if err != nil {
		_ = m.enroll.Reject()

		kind := classify(err)
		if errors.Is(kind, ErrChallengeExpired) {
			kind = ErrEnrollmentExpired
		}
		opErr := opError("enroll_verify", factorID, kind, err)

		m.metricInc(MetricEnrollVerifyFailure)
		m.emitAudit(ctx, AuditMFAEnrollVerifyFailed, false, m.currentUserID(), entityFactor, factorID, opErr, func() map[string]string {
			return map[string]string{"factor_id": factorID, "error": err.Error()}
		})
		return opErr
	}

	if err := m.enroll.Accept(); err != nil {
		return opError("enroll_verify", factorID, ErrIllegalTransition, err)
	}

	m.metricInc(MetricEnrollVerifySuccess)
	m.emitAudit(ctx, AuditMFAEnrollVerify, true, m.currentUserID(), entityFactor, factorID, nil, func() map[string]string {
		return map[string]string{"factor_id": factorID}
	})
	return nil
}

// factorVerifier picks the backend's enrollment confirmation entry point.
// The single-call verifier wins; the legacy one is only a fallback.
func (m *Manager) factorVerifier() func(ctx context.Context, factorID, code string) error {
	if v, ok := m.backend.(backend.FactorVerifier); ok {
		return v.VerifyFactor
	}
	if v, ok := m.backend.(backend.LegacyFactorVerifier); ok {
		return v.VerifyEnrollment
	}
	return nil
}

// CancelEnrollTOTP discards the local enrollment session. The pending factor
// stays unverified on the backend and is ignored by login.
func (m *Manager) CancelEnrollTOTP() {
	if m == nil || m.enroll == nil {
		return
	}
	if m.enroll.Snapshot().State != enroll.Idle {
		m.metricInc(MetricEnrollCancelled)
	}
	m.enroll.Reset()
}

// DisableTOTP removes one factor. On success any local enrollment session is
// discarded; on failure it is kept.
func (m *Manager) DisableTOTP(ctx context.Context, factorID string) error {
	if err := m.ready(); err != nil {
		return err
	}
	factorID = strings.TrimSpace(factorID)
	if factorID == "" {
		return ErrInvalidInput
	}

	done := m.timeBackend()
	err := m.backend.Unenroll(ctx, factorID)
	done()
	if err != nil {
		opErr := opError("disable", factorID, classify(err), err)
		m.metricInc(MetricFactorDisableFailure)
		m.emitAudit(ctx, AuditMFADisableFailed, false, m.currentUserID(), entityFactor, factorID, opErr, func() map[string]string {
			return map[string]string{"factor_id": factorID, "error": err.Error()}
		})
		return opErr
	}

	m.enroll.Reset()
	m.metricInc(MetricFactorDisabled)
	m.emitAudit(ctx, AuditMFADisable, true, m.currentUserID(), entityFactor, factorID, nil, func() map[string]string {
		return map[string]string{"factor_id": factorID}
	})
	return nil
}

// DisableAllTOTP removes every TOTP factor of the signed-in principal. Each
// failed removal is retried Config.Enrollment.DisableRetries times. The
// factors that remain afterwards are always returned; when any removal
// failed the error matches ErrPartialDisable and carries every cause.
func (m *Manager) DisableAllTOTP(ctx context.Context) ([]Factor, error) {
	factors, err := m.ListMFAFactors(ctx)
	if err != nil {
		return nil, err
	}

	var errs []error
	for _, f := range factors {
		if f.Type != backend.FactorTypeTOTP {
			continue
		}
		err := m.DisableTOTP(ctx, f.ID)
		for attempt := 0; err != nil && attempt < m.config.Enrollment.DisableRetries; attempt++ {
			if errors.Is(err, ErrFactorNotFound) {
				break
			}
			err = m.DisableTOTP(ctx, f.ID)
		}
		if err != nil && !errors.Is(err, ErrFactorNotFound) {
			errs = append(errs, err)
		}
	}

	remaining, listErr := m.ListMFAFactors(ctx)
	if listErr != nil {
		errs = append(errs, listErr)
	}
	if len(errs) > 0 {
		return remaining, errors.Join(append([]error{ErrPartialDisable}, errs...)...)
	}
	return remaining, nil
}
