package goIdentity

import "context"

// Logout ends the session on the backend and clears local state. Local state
// is cleared even when the backend call fails; the returned error then
// reports that server-side invalidation may not have happened.
func (m *Manager) Logout(ctx context.Context) error {
	if err := m.ready(); err != nil {
		return err
	}

	done := m.timeBackend()
	remoteErr := m.backend.SignOut(ctx)
	done()

	var opErr *OpError
	if remoteErr != nil {
		opErr = opError("logout", "", classify(remoteErr), remoteErr)
		m.metricInc(MetricLogoutRemoteFailure)
		m.log.Warn().Err(remoteErr).Str("op", "logout").Msg("remote sign-out failed, clearing local session")
	}

	// A successful backend sign-out usually notifies the listener first, which
	// already cleared the store and recorded auth.sign_out.
	var auditErr error
	if opErr != nil {
		auditErr = opErr
	}
	m.signOutLocal(ctx, auditErr)
	m.enroll.Reset()
	m.metricInc(MetricLogout)

	if opErr != nil {
		return opErr
	}
	return nil
}
