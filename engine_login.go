package goIdentity

import (
	"context"
	"strings"

	"github.com/MrEthical07/goIdentity/internal/normalize"
)

// Login checks email and password with the backend.
//
// When the account has verified second factors the backend issues no session
// yet; Login then returns a result with MFARequired set and the caller
// continues with [Manager.VerifyMFA]. Otherwise the user's profile is
// resolved and published. Failures are never retried.
func (m *Manager) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	if err := m.ready(); err != nil {
		return nil, err
	}
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, ErrInvalidInput
	}

	since := m.store.Epoch()

	done := m.timeBackend()
	res, err := m.backend.SignInWithPassword(ctx, email, password)
	done()
	if err != nil {
		return nil, m.loginFailed(ctx, email, opError("login", "", classify(err), err))
	}

	if res == nil || res.Session == nil {
		var factors []normalize.Factor
		if res != nil {
			factors = normalize.FactorList(res.Factors)
		}
		if len(factors) == 0 {
			return nil, m.loginFailed(ctx, email, opError("login", "", ErrSessionMissing, nil))
		}
		m.metricInc(MetricMFARequired)
		return &LoginResult{MFARequired: true, Factors: toFactors(factors)}, nil
	}

	user, err := m.resolveProfile(ctx, res.Session.Email)
	if err != nil {
		return nil, m.loginFailed(ctx, email, withOp("login", "", err))
	}

	if err := m.commitSignIn(ctx, user, since, "login", true); err != nil {
		return nil, m.loginFailed(ctx, email, withOp("login", "", err))
	}

	m.metricInc(MetricLoginSuccess)
	return &LoginResult{User: user}, nil
}

func (m *Manager) loginFailed(ctx context.Context, email string, err *OpError) error {
	m.metricInc(MetricLoginFailure)
	m.emitAudit(ctx, AuditSignInFailed, false, "", entityUser, "", err, func() map[string]string {
		details := map[string]string{"email": email}
		if err.Err != nil {
			details["error"] = err.Err.Error()
		}
		return details
	})
	return err
}
