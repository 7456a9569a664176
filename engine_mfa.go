package goIdentity

import (
	"context"
	"strings"

	"github.com/MrEthical07/goIdentity/internal/enroll"
	"github.com/MrEthical07/goIdentity/internal/normalize"
	"github.com/MrEthical07/goIdentity/profile"
)

// VerifyMFA completes a login that returned MFARequired. An empty
// challengeID makes the manager create a challenge for factorID first.
// On success the resolved user is published and returned.
func (m *Manager) VerifyMFA(ctx context.Context, factorID, code, challengeID string) (*profile.Profile, error) {
	if err := m.ready(); err != nil {
		return nil, err
	}
	factorID = strings.TrimSpace(factorID)
	code = enroll.CleanCode(code)
	if factorID == "" || code == "" {
		return nil, ErrInvalidInput
	}

	since := m.store.Epoch()

	challengeID = strings.TrimSpace(challengeID)
	if challengeID == "" {
		done := m.timeBackend()
		ch, err := m.backend.Challenge(ctx, factorID)
		done()
		if err != nil || ch == nil || ch.ID == "" {
			m.metricInc(MetricChallengeFailure)
			return nil, opError("mfa_challenge", factorID, ErrChallengeCreationFailed, err)
		}
		challengeID = ch.ID
	}

	done := m.timeBackend()
	err := m.backend.Verify(ctx, factorID, challengeID, code)
	done()
	if err != nil {
		return nil, m.mfaVerifyFailed(ctx, factorID, opError("mfa_verify", factorID, classify(err), err))
	}

	done = m.timeBackend()
	sess, err := m.backend.GetSession(ctx)
	done()
	if err != nil {
		return nil, m.mfaVerifyFailed(ctx, factorID, opError("mfa_verify", factorID, classify(err), err))
	}
	if sess == nil {
		return nil, m.mfaVerifyFailed(ctx, factorID, opError("mfa_verify", factorID, ErrSessionMissing, nil))
	}

	user, err := m.resolveProfile(ctx, sess.Email)
	if err != nil {
		return nil, m.mfaVerifyFailed(ctx, factorID, withOp("mfa_verify", factorID, err))
	}
	if err := m.commitSignIn(ctx, user, since, "mfa_verify", false); err != nil {
		return nil, m.mfaVerifyFailed(ctx, factorID, withOp("mfa_verify", factorID, err))
	}

	m.metricInc(MetricMFAVerifySuccess)
	m.emitAudit(ctx, AuditMFAVerify, true, user.ID, entityFactor, factorID, nil, func() map[string]string {
		return map[string]string{"factor_id": factorID, "challenge_id": challengeID}
	})
	return user, nil
}

func (m *Manager) mfaVerifyFailed(ctx context.Context, factorID string, err *OpError) error {
	m.metricInc(MetricMFAVerifyFailure)
	m.emitAudit(ctx, AuditMFAVerifyFailed, false, m.currentUserID(), entityFactor, factorID, err, func() map[string]string {
		details := map[string]string{"factor_id": factorID}
		if err.Err != nil {
			details["error"] = err.Err.Error()
		}
		return details
	})
	return err
}

// ListMFAFactors returns the signed-in principal's factors sorted by id.
func (m *Manager) ListMFAFactors(ctx context.Context) ([]Factor, error) {
	if err := m.ready(); err != nil {
		return nil, err
	}
	done := m.timeBackend()
	payloads, err := m.backend.ListFactors(ctx)
	done()
	if err != nil {
		return nil, opError("list_factors", "", classify(err), err)
	}
	return toFactors(normalize.FactorList(payloads)), nil
}
