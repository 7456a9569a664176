package goIdentity

import (
	"context"
	"errors"

	"github.com/MrEthical07/goIdentity/backend"
	"github.com/MrEthical07/goIdentity/profile"
	"github.com/MrEthical07/goIdentity/session"
)

// restore publishes the user behind sess, or the backend's current session
// when sess is nil. Every path ends with loading cleared. A sign-out applied
// while the lookup was in flight wins over the restored session.
func (m *Manager) restore(ctx context.Context, sess *backend.Session) error {
	since := m.store.Epoch()
	if sess == nil {
		done := m.timeBackend()
		current, err := m.backend.GetSession(ctx)
		done()
		if err != nil {
			m.settle()
			m.log.Warn().Err(err).Str("op", "restore").Msg("session lookup failed")
			return opError("restore", "", classify(err), err)
		}
		sess = current
	}
	if sess == nil {
		m.settle()
		return nil
	}

	user, err := m.resolveProfile(ctx, sess.Email)
	if err != nil {
		m.signOutLocal(ctx, nil)
		m.log.Warn().Err(err).Str("op", "restore").Str("user_id", sess.UserID).Msg("no profile for restored session")
		return withOp("restore", "", err)
	}

	_, err = m.store.Apply(session.Transition{
		Kind:    session.KindRestore,
		User:    user,
		Since:   since,
		Guarded: true,
	})
	if errors.Is(err, session.ErrStaleTransition) {
		m.metricInc(MetricStaleTransition)
		// The sign-out that won already ended loading.
		m.log.Info().Str("op", "restore").Str("user_id", user.ID).Msg("restore discarded, signed out meanwhile")
		return nil
	}
	if err != nil {
		return opError("restore", "", ErrBackendUnavailable, err)
	}
	m.metricInc(MetricSessionRestored)
	return nil
}

func (m *Manager) settle() {
	_, _ = m.store.Apply(session.Transition{Kind: session.KindSettle})
}

// handleSessionEvent is registered with the backend. It runs on whatever
// goroutine the backend delivers on.
func (m *Manager) handleSessionEvent(ev backend.SessionEvent) {
	ctx := context.Background()
	switch ev.Kind {
	case backend.EventRestored:
		_ = m.restore(ctx, ev.Session)
	case backend.EventSignedIn:
		m.signInFromEvent(ctx, ev.Session)
	case backend.EventSignedOut:
		m.signOutLocal(ctx, nil)
	default:
		m.log.Debug().Uint8("kind", uint8(ev.Kind)).Msg("ignoring unknown session event")
	}
}

func (m *Manager) signInFromEvent(ctx context.Context, sess *backend.Session) {
	if sess == nil {
		return
	}
	user, err := m.resolveProfile(ctx, sess.Email)
	if err != nil {
		m.signOutLocal(ctx, nil)
		m.log.Warn().Err(err).Str("op", "session_event").Str("user_id", sess.UserID).Msg("no profile for signed-in session")
		return
	}
	res, err := m.store.Apply(session.Transition{Kind: session.KindSignIn, User: user})
	if err != nil {
		return
	}
	if res.Changed {
		m.recordSignIn(ctx, user, "session_event")
	}
}

// commitSignIn publishes user unless a sign-out happened after epoch since.
// When announce is set and the store changed, auth.sign_in is recorded; a
// listener that got there first has already recorded it.
func (m *Manager) commitSignIn(ctx context.Context, user *profile.Profile, since uint64, via string, announce bool) error {
	res, err := m.store.Apply(session.Transition{
		Kind:    session.KindSignIn,
		User:    user,
		Since:   since,
		Guarded: true,
	})
	if errors.Is(err, session.ErrStaleTransition) {
		m.metricInc(MetricStaleTransition)
		m.log.Info().Str("op", via).Str("user_id", user.ID).Msg("sign-in discarded, signed out meanwhile")
		return ErrSessionSuperseded
	}
	if err != nil {
		return err
	}
	if res.Changed && announce {
		m.recordSignIn(ctx, user, via)
	}
	return nil
}

func (m *Manager) recordSignIn(ctx context.Context, user *profile.Profile, via string) {
	m.metricInc(MetricSessionSignedIn)
	m.emitAudit(ctx, AuditSignIn, true, user.ID, entityUser, user.ID, nil, func() map[string]string {
		return map[string]string{"email": user.Email, "via": via}
	})
}

// signOutLocal clears the store and records auth.sign_out for whoever was
// signed in. remoteErr marks the event failed when server-side invalidation
// did not happen. It reports whether a user was signed out.
func (m *Manager) signOutLocal(ctx context.Context, remoteErr error) bool {
	res, err := m.store.Apply(session.Transition{Kind: session.KindSignOut})
	if err != nil || res.Previous == nil {
		return false
	}
	prev := res.Previous
	m.metricInc(MetricSessionSignedOut)
	m.emitAudit(ctx, AuditSignOut, remoteErr == nil, prev.ID, entityUser, prev.ID, remoteErr, func() map[string]string {
		return map[string]string{"email": prev.Email}
	})
	return true
}

// resolveProfile maps an authenticated e-mail to an application profile.
// Inactive profiles are treated as missing.
func (m *Manager) resolveProfile(ctx context.Context, email string) (*profile.Profile, error) {
	email = profile.NormalizeEmail(email)
	if email == "" {
		m.metricInc(MetricProfileMissing)
		return nil, ErrProfileNotFound
	}
	p, err := m.profiles.FindByEmail(ctx, email)
	if errors.Is(err, profile.ErrNotFound) || (err == nil && (p == nil || !p.Active)) {
		m.metricInc(MetricProfileMissing)
		return nil, ErrProfileNotFound
	}
	if err != nil {
		return nil, opError("resolve_profile", "", ErrBackendUnavailable, err)
	}
	return p, nil
}
