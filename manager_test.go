package goIdentity

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/MrEthical07/goIdentity/backend"
	"github.com/MrEthical07/goIdentity/backend/memory"
	"github.com/MrEthical07/goIdentity/profile"
)

func TestBuildRequiresCollaborators(t *testing.T) {
	if _, err := New().WithProfileResolver(profile.NewDirectory()).Build(); err == nil {
		t.Fatal("expected error without backend")
	}
	b, _ := memory.New(memory.Options{})
	if _, err := New().WithBackend(b).Build(); err == nil {
		t.Fatal("expected error without profile resolver")
	}

	builder := New().WithBackend(b).WithProfileResolver(profile.NewDirectory())
	if _, err := builder.Build(); err != nil {
		t.Fatalf("Build: %v", err)
	}
	if _, err := builder.Build(); err == nil {
		t.Fatal("expected builder reuse to fail")
	}
}

func TestZeroManagerIsNotReady(t *testing.T) {
	var m Manager
	if _, err := m.Login(context.Background(), "a@example.com", "pw"); !errors.Is(err, ErrManagerNotReady) {
		t.Fatalf("expected ErrManagerNotReady, got %v", err)
	}
}

func TestStartSettlesWithoutSession(t *testing.T) {
	f := newFixture(t, withoutStart())
	if !f.m.IsLoading() {
		t.Fatal("expected loading before Start")
	}
	if err := f.m.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if f.m.IsLoading() || f.m.IsAuthenticated() {
		t.Fatalf("expected settled anonymous state, got %+v", f.m.State())
	}
}

func TestStartRestoresExistingSession(t *testing.T) {
	f := newFixture(t, withoutStart())
	if _, err := f.b.SignInWithPassword(context.Background(), "alice@example.com", testPassword); err != nil {
		t.Fatalf("backend sign-in: %v", err)
	}

	if err := f.m.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	u := f.m.User()
	if u == nil || u.ID != f.aliceID || u.Role != profile.RoleManager {
		t.Fatalf("expected alice restored, got %+v", u)
	}
	if f.m.IsLoading() {
		t.Fatal("expected loading cleared")
	}
	if got := f.m.MetricsSnapshot().Counters[MetricSessionRestored]; got != 1 {
		t.Fatalf("expected one restore, got %d", got)
	}
	if n := len(f.events()); n != 0 {
		t.Fatalf("restore must not audit, got %d events", n)
	}
}

func TestStartRestoreWithoutProfileClearsState(t *testing.T) {
	f := newFixture(t, withoutStart())
	if _, err := f.b.SignInWithPassword(context.Background(), "stranger@example.com", testPassword); err != nil {
		t.Fatalf("backend sign-in: %v", err)
	}

	err := f.m.Start(context.Background())
	if !errors.Is(err, ErrProfileNotFound) {
		t.Fatalf("expected ErrProfileNotFound, got %v", err)
	}
	if f.m.IsAuthenticated() || f.m.IsLoading() {
		t.Fatalf("expected settled anonymous state, got %+v", f.m.State())
	}
}

func TestStartSettlesOnBackendFailure(t *testing.T) {
	f := newFixture(t, withoutStart())
	f.b.Inject(memory.OpGetSession, errors.New("connection refused"), 1)

	err := f.m.Start(context.Background())
	if !errors.Is(err, ErrBackendUnavailable) {
		t.Fatalf("expected ErrBackendUnavailable, got %v", err)
	}
	if f.m.IsLoading() {
		t.Fatal("expected loading cleared after failed restore")
	}
}

func TestStartIsIdempotentAndCloseReleasesSubscription(t *testing.T) {
	f := newFixture(t)
	if err := f.m.Start(context.Background()); err != nil {
		t.Fatalf("second Start: %v", err)
	}
	if got := f.b.Subscribers(); got != 1 {
		t.Fatalf("expected one subscription, got %d", got)
	}
	f.m.Close()
	f.m.Close()
	if got := f.b.Subscribers(); got != 0 {
		t.Fatalf("expected subscription released, got %d", got)
	}
}

func TestBackendSessionEventsDriveState(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.b.SignInWithPassword(ctx, "alice@example.com", testPassword); err != nil {
		t.Fatalf("backend sign-in: %v", err)
	}
	if u := f.m.User(); u == nil || u.ID != f.aliceID {
		t.Fatalf("expected alice after signed_in event, got %+v", u)
	}

	f.b.Restore()
	if !f.m.IsAuthenticated() {
		t.Fatal("restored event must keep alice signed in")
	}

	if err := f.b.SignOut(ctx); err != nil {
		t.Fatalf("backend sign-out: %v", err)
	}
	if f.m.IsAuthenticated() {
		t.Fatal("expected signed_out event to clear the user")
	}

	events := f.events()
	if countAction(events, AuditSignIn) != 1 || countAction(events, AuditSignOut) != 1 {
		t.Fatalf("unexpected audit trail %v", actions(events))
	}
	out := findAction(t, events, AuditSignOut)
	if out.UserID != f.aliceID || !out.Success {
		t.Fatalf("sign-out must carry the previous user, got %+v", out)
	}
}

func TestSignedInEventWithoutProfileIsIgnored(t *testing.T) {
	f := newFixture(t)
	if _, err := f.b.SignInWithPassword(context.Background(), "stranger@example.com", testPassword); err != nil {
		t.Fatalf("backend sign-in: %v", err)
	}
	if f.m.IsAuthenticated() {
		t.Fatal("a user without profile must never be published")
	}
	if got := f.m.MetricsSnapshot().Counters[MetricProfileMissing]; got != 1 {
		t.Fatalf("expected profile-missing metric, got %d", got)
	}
}

func TestSubscribeObservesTransitions(t *testing.T) {
	f := newFixture(t)

	var (
		mu     sync.Mutex
		states []SessionState
	)
	unsubscribe := f.m.Subscribe(func(s SessionState) {
		mu.Lock()
		states = append(states, s)
		mu.Unlock()
	})

	ctx := context.Background()
	if _, err := f.m.Login(ctx, "alice@example.com", testPassword); err != nil {
		t.Fatalf("Login: %v", err)
	}
	if err := f.m.Logout(ctx); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	unsubscribe()
	if _, err := f.m.Login(ctx, "alice@example.com", testPassword); err != nil {
		t.Fatalf("Login: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(states) != 2 {
		t.Fatalf("expected sign-in and sign-out notifications, got %d", len(states))
	}
	if states[0].User == nil || states[1].User != nil {
		t.Fatalf("unexpected notification order %+v", states)
	}
}

type enrollOverride struct {
	backend.Client
	resp *backend.EnrollResponse
}

func (e enrollOverride) Enroll(context.Context, backend.EnrollRequest) (*backend.EnrollResponse, error) {
	return e.resp, nil
}

// interruptingSignIn signs the user out between the password check and the
// manager publishing the result.
type interruptingSignIn struct {
	backend.Client
	interrupt func()
}

func (s interruptingSignIn) SignInWithPassword(ctx context.Context, email, password string) (*backend.SignInResult, error) {
	res, err := s.Client.SignInWithPassword(ctx, email, password)
	if err == nil && s.interrupt != nil {
		s.interrupt()
	}
	return res, err
}

// signOutDuringLookup reads the current session and then ends it before
// returning, so the caller holds a session that no longer exists.
type signOutDuringLookup struct {
	*memory.Backend
}

func (s signOutDuringLookup) GetSession(ctx context.Context) (*backend.Session, error) {
	sess, err := s.Backend.GetSession(ctx)
	if err != nil || sess == nil {
		return sess, err
	}
	if err := s.Backend.SignOut(ctx); err != nil {
		return nil, err
	}
	return sess, nil
}

func TestStartRestoreLosesToSignOutDuringLookup(t *testing.T) {
	f := newFixture(t, withoutStart(), withClient(func(b *memory.Backend) backend.Client {
		return signOutDuringLookup{Backend: b}
	}))
	ctx := context.Background()
	if _, err := f.b.SignInWithPassword(ctx, "alice@example.com", testPassword); err != nil {
		t.Fatalf("backend sign-in: %v", err)
	}

	if err := f.m.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if sess, _ := f.b.GetSession(ctx); sess != nil {
		t.Fatalf("expected backend signed out, got %+v", sess)
	}
	if f.m.IsAuthenticated() || f.m.IsLoading() {
		t.Fatalf("stale restore must not publish a user, got %+v", f.m.State())
	}
	counters := f.m.MetricsSnapshot().Counters
	if counters[MetricStaleTransition] != 1 || counters[MetricSessionRestored] != 0 {
		t.Fatalf("expected one stale transition and no restore, got %v", counters)
	}
}

func TestSignedInEventWithoutProfileSignsOutPreviousUser(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	if _, err := f.m.Login(ctx, "alice@example.com", testPassword); err != nil {
		t.Fatalf("Login: %v", err)
	}

	if _, err := f.b.SignInWithPassword(ctx, "stranger@example.com", testPassword); err != nil {
		t.Fatalf("backend sign-in: %v", err)
	}
	if f.m.IsAuthenticated() {
		t.Fatalf("previous user must be cleared, got %+v", f.m.User())
	}

	events := f.events()
	if n := countAction(events, AuditSignOut); n != 1 {
		t.Fatalf("expected one sign_out event, got %v", actions(events))
	}
	if ev := findAction(t, events, AuditSignOut); ev.UserID != f.aliceID || !ev.Success {
		t.Fatalf("unexpected sign_out event %+v", ev)
	}
}
