package goIdentity

import (
	"context"
	"errors"
	"testing"

	"github.com/MrEthical07/goIdentity/backend"
	"github.com/MrEthical07/goIdentity/backend/memory"
)

func TestLoginPublishesUserAndAuditsOnce(t *testing.T) {
	f := newFixture(t)

	res, err := f.m.Login(context.Background(), "  alice@example.com ", testPassword)
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if res.MFARequired || res.User == nil || res.User.ID != f.aliceID {
		t.Fatalf("unexpected result %+v", res)
	}
	if !f.m.IsAuthenticated() {
		t.Fatal("expected authenticated state")
	}

	snap := f.m.MetricsSnapshot()
	if snap.Counters[MetricLoginSuccess] != 1 {
		t.Fatalf("expected login success metric, got %d", snap.Counters[MetricLoginSuccess])
	}

	events := f.events()
	if got := countAction(events, AuditSignIn); got != 1 {
		t.Fatalf("expected exactly one sign-in event, got %v", actions(events))
	}
	ev := findAction(t, events, AuditSignIn)
	if ev.UserID != f.aliceID || ev.EntityType != "user" || !ev.Success || ev.ID == "" {
		t.Fatalf("unexpected event %+v", ev)
	}
}

func TestLoginRejectsEmptyInputWithoutBackendCall(t *testing.T) {
	f := newFixture(t)
	f.b.Inject(memory.OpSignIn, errors.New("must not be called"), -1)

	for _, tc := range [][2]string{{"", "pw"}, {"alice@example.com", ""}, {"   ", "pw"}} {
		if _, err := f.m.Login(context.Background(), tc[0], tc[1]); !errors.Is(err, ErrInvalidInput) {
			t.Fatalf("%q: expected ErrInvalidInput, got %v", tc, err)
		}
	}
	if n := len(f.events()); n != 0 {
		t.Fatalf("input validation must not audit, got %d events", n)
	}
}

func TestLoginInvalidCredentials(t *testing.T) {
	f := newFixture(t)

	_, err := f.m.Login(context.Background(), "alice@example.com", "wrong-password")
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if !errors.Is(err, backend.ErrInvalidCredentials) {
		t.Fatal("expected backend cause to be preserved")
	}
	var opErr *OpError
	if !errors.As(err, &opErr) || opErr.Op != "login" {
		t.Fatalf("expected login OpError, got %T", err)
	}
	if f.m.IsAuthenticated() {
		t.Fatal("failed login must not publish a user")
	}

	ev := findAction(t, f.events(), AuditSignInFailed)
	if ev.Success || ev.Error != "invalid_credentials" || ev.Details["email"] != "alice@example.com" {
		t.Fatalf("unexpected failure event %+v", ev)
	}
}

func TestLoginProfileNotFound(t *testing.T) {
	f := newFixture(t)

	_, err := f.m.Login(context.Background(), "stranger@example.com", testPassword)
	if !errors.Is(err, ErrProfileNotFound) {
		t.Fatalf("expected ErrProfileNotFound, got %v", err)
	}
	if f.m.IsAuthenticated() {
		t.Fatal("must not publish a user without profile")
	}
	events := f.events()
	if countAction(events, AuditSignIn) != 0 {
		t.Fatalf("unexpected sign-in event in %v", actions(events))
	}
	if ev := findAction(t, events, AuditSignInFailed); ev.Error != "profile_not_found" {
		t.Fatalf("unexpected failure code %q", ev.Error)
	}
}

func TestLoginInactiveProfileTreatedAsMissing(t *testing.T) {
	f := newFixture(t)
	p, _ := f.dir.FindByEmail(context.Background(), "alice@example.com")
	p.Active = false
	f.dir.Put(*p)

	if _, err := f.m.Login(context.Background(), "alice@example.com", testPassword); !errors.Is(err, ErrProfileNotFound) {
		t.Fatalf("expected ErrProfileNotFound, got %v", err)
	}
}

func TestLoginBackendUnavailable(t *testing.T) {
	f := newFixture(t)
	f.b.Inject(memory.OpSignIn, errors.New("dial tcp: connection refused"), 1)

	_, err := f.m.Login(context.Background(), "alice@example.com", testPassword)
	if !errors.Is(err, ErrBackendUnavailable) {
		t.Fatalf("expected ErrBackendUnavailable, got %v", err)
	}
	if f.m.MetricsSnapshot().Counters[MetricLoginFailure] != 1 {
		t.Fatal("expected login failure metric")
	}
}

func TestLoginRequiresMFAWhenFactorVerified(t *testing.T) {
	f := newFixture(t)
	factorID := f.enrollVerified(t)

	res, err := f.m.Login(context.Background(), "alice@example.com", testPassword)
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if !res.MFARequired || res.User != nil {
		t.Fatalf("expected step-up result, got %+v", res)
	}
	if len(res.Factors) != 1 || res.Factors[0].ID != factorID || !res.Factors[0].Verified() {
		t.Fatalf("unexpected factors %+v", res.Factors)
	}
	if f.m.IsAuthenticated() {
		t.Fatal("step-up must not publish a user")
	}
	if f.m.MetricsSnapshot().Counters[MetricMFARequired] != 1 {
		t.Fatal("expected MFA required metric")
	}
}

func TestLoginDiscardedWhenSignedOutMeanwhile(t *testing.T) {
	var m *Manager
	f := newFixture(t, withClient(func(b *memory.Backend) backend.Client {
		return interruptingSignIn{Client: b, interrupt: func() {
			_ = m.Logout(context.Background())
		}}
	}))
	m = f.m

	_, err := f.m.Login(context.Background(), "alice@example.com", testPassword)
	if !errors.Is(err, ErrSessionSuperseded) {
		t.Fatalf("expected ErrSessionSuperseded, got %v", err)
	}
	if f.m.IsAuthenticated() {
		t.Fatal("stale login must not be published")
	}
	if f.m.MetricsSnapshot().Counters[MetricStaleTransition] != 1 {
		t.Fatal("expected stale transition metric")
	}
}

func TestAuditSinkFailureDoesNotFailOperation(t *testing.T) {
	f := newFixture(t, withSink(failingSink{}))

	if _, err := f.m.Login(context.Background(), "alice@example.com", testPassword); err != nil {
		t.Fatalf("Login must succeed despite sink failure: %v", err)
	}
	f.m.Close()
	if got := f.m.MetricsSnapshot().Counters[MetricAuditWriteFailure]; got == 0 {
		t.Fatal("expected audit write failures to be counted")
	}
}

type failingSink struct{}

func (failingSink) Emit(context.Context, AuditEvent) error {
	return errors.New("disk full")
}
