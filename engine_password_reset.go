package goIdentity

import (
	"context"
	"strings"
)

// ForgotPassword asks the backend to e-mail a recovery link that lands on
// Config.PasswordReset.RedirectURL.
func (m *Manager) ForgotPassword(ctx context.Context, email string) error {
	if err := m.ready(); err != nil {
		return err
	}
	email = strings.TrimSpace(email)
	if email == "" {
		return ErrInvalidInput
	}

	done := m.timeBackend()
	err := m.backend.ResetPasswordForEmail(ctx, email, m.config.PasswordReset.RedirectURL)
	done()
	if err != nil {
		m.metricInc(MetricPasswordResetFailure)
		return opError("forgot_password", "", classify(err), err)
	}

	m.metricInc(MetricPasswordResetRequest)
	m.emitAudit(ctx, AuditPasswordResetRequested, true, "", entityUser, "", nil, func() map[string]string {
		return map[string]string{"email": email}
	})
	return nil
}

// ResetPassword sets a new password for the signed-in user, typically after
// following a recovery link.
func (m *Manager) ResetPassword(ctx context.Context, newPassword string) error {
	if err := m.ready(); err != nil {
		return err
	}
	if newPassword == "" {
		return ErrInvalidInput
	}
	user := m.store.Snapshot().User
	if user == nil {
		return ErrNotAuthenticated
	}

	done := m.timeBackend()
	err := m.backend.UpdatePassword(ctx, newPassword)
	done()
	if err != nil {
		m.metricInc(MetricPasswordResetFailure)
		return opError("reset_password", "", classify(err), err)
	}

	m.metricInc(MetricPasswordResetSuccess)
	m.emitAudit(ctx, AuditPasswordReset, true, user.ID, entityUser, user.ID, nil, nil)
	return nil
}
