package goIdentity

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/MrEthical07/goIdentity/backend"
	"github.com/MrEthical07/goIdentity/internal/audit"
	"github.com/MrEthical07/goIdentity/internal/enroll"
	"github.com/MrEthical07/goIdentity/profile"
	"github.com/MrEthical07/goIdentity/session"
	"github.com/rs/zerolog"
)

// Manager owns the session state of one application instance and drives the
// login, MFA, enrollment and password flows against a [backend.Client].
type Manager struct {
	config   Config
	backend  backend.Client
	profiles profile.Resolver
	store    *session.Store
	enroll   *enroll.Controller
	audit    *audit.Dispatcher
	metrics  *Metrics
	log      zerolog.Logger
	now      func() time.Time

	started     atomic.Bool
	subMu       sync.Mutex
	unsubscribe func()
	closeOnce   sync.Once
}

func (m *Manager) ready() error {
	if m == nil || m.backend == nil || m.profiles == nil || m.store == nil || m.enroll == nil {
		return ErrManagerNotReady
	}
	return nil
}

// Start subscribes to backend session changes and then restores any existing
// session. Until Start settles, IsLoading reports true. A second call is a
// no-op.
//
// A failed restore still settles the store (no user) and returns the error.
func (m *Manager) Start(ctx context.Context) error {
	if err := m.ready(); err != nil {
		return err
	}
	if !m.started.CompareAndSwap(false, true) {
		return nil
	}

	unsubscribe := m.backend.OnSessionChange(m.handleSessionEvent)
	m.subMu.Lock()
	m.unsubscribe = unsubscribe
	m.subMu.Unlock()

	return m.restore(ctx, nil)
}

// Close releases the backend subscription and flushes pending audit events.
// It is safe to call more than once.
func (m *Manager) Close() {
	if m == nil {
		return
	}
	m.closeOnce.Do(func() {
		m.subMu.Lock()
		unsubscribe := m.unsubscribe
		m.unsubscribe = nil
		m.subMu.Unlock()
		if unsubscribe != nil {
			unsubscribe()
		}
		m.audit.Close()
	})
}

// State returns a copy of the current session state.
func (m *Manager) State() SessionState {
	s := m.store.Snapshot()
	return SessionState{User: s.User, Loading: s.Loading}
}

// User returns the signed-in user's profile, or nil.
func (m *Manager) User() *profile.Profile {
	return m.store.Snapshot().User
}

func (m *Manager) IsAuthenticated() bool {
	return m.store.Snapshot().IsAuthenticated()
}

// IsLoading reports whether session bootstrap has not settled yet.
func (m *Manager) IsLoading() bool {
	return m.store.Snapshot().Loading
}

// Subscribe registers fn for every change of user or loading flag. fn runs
// synchronously on the goroutine that caused the change and must not call
// back into Manager methods that mutate the session.
func (m *Manager) Subscribe(fn func(SessionState)) (unsubscribe func()) {
	if fn == nil {
		return func() {}
	}
	return m.store.Subscribe(func(s session.State) {
		fn(SessionState{User: s.User, Loading: s.Loading})
	})
}

// EnrollmentState reports the TOTP enrollment controller's current step.
func (m *Manager) EnrollmentState() EnrollmentStatus {
	s := m.enroll.Snapshot()
	return EnrollmentStatus{
		State:      s.State.String(),
		FactorID:   s.FactorID,
		QRCode:     s.QRCode,
		OTPAuthURL: s.OTPAuthURL,
	}
}

func (m *Manager) currentUserID() string {
	if u := m.store.Snapshot().User; u != nil {
		return u.ID
	}
	return ""
}
