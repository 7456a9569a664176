package goIdentity

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/MrEthical07/goIdentity/backend"
	"github.com/MrEthical07/goIdentity/backend/memory"
	"github.com/MrEthical07/goIdentity/profile"
	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
	"golang.org/x/time/rate"
)

const testPassword = "correct-password"

type fixture struct {
	m       *Manager
	b       *memory.Backend
	sink    *ChannelSink
	dir     *profile.Directory
	clock   *testClock
	aliceID string
}

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Millisecond)
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type fixtureOption func(*fixtureConfig)

type fixtureConfig struct {
	wrap    func(*memory.Backend) backend.Client
	cfg     Config
	sink    AuditSink
	noStart bool
}

func withClient(wrap func(*memory.Backend) backend.Client) fixtureOption {
	return func(c *fixtureConfig) { c.wrap = wrap }
}

func withConfig(mutate func(*Config)) fixtureOption {
	return func(c *fixtureConfig) { mutate(&c.cfg) }
}

func withSink(s AuditSink) fixtureOption {
	return func(c *fixtureConfig) { c.sink = s }
}

func withoutStart() fixtureOption {
	return func(c *fixtureConfig) { c.noStart = true }
}

func newFixture(t testing.TB, opts ...fixtureOption) *fixture {
	t.Helper()

	fc := fixtureConfig{cfg: DefaultConfig()}
	fc.cfg.Metrics.Enabled = true
	fc.cfg.Metrics.EnableLatencyHistograms = true
	for _, opt := range opts {
		opt(&fc)
	}

	clk := &testClock{now: time.Now()}
	b, err := memory.New(memory.Options{Clock: clk.Now, SignInRate: rate.Inf})
	if err != nil {
		t.Fatalf("memory.New: %v", err)
	}
	aliceID, err := b.AddUser("alice@example.com", testPassword)
	if err != nil {
		t.Fatalf("AddUser: %v", err)
	}
	if _, err := b.AddUser("stranger@example.com", testPassword); err != nil {
		t.Fatalf("AddUser: %v", err)
	}

	dir := profile.NewDirectory(profile.Profile{
		ID:     aliceID,
		Name:   "Alice",
		Email:  "alice@example.com",
		Role:   profile.RoleManager,
		Active: true,
	})

	var client backend.Client = b
	if fc.wrap != nil {
		client = fc.wrap(b)
	}

	sink := NewChannelSink(256)
	var auditSink AuditSink = sink
	if fc.sink != nil {
		auditSink = MultiSink{sink, fc.sink}
	}

	m, err := New().
		WithConfig(fc.cfg).
		WithBackend(client).
		WithProfileResolver(dir).
		WithAuditSink(auditSink).
		WithClock(clk.Now).
		Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	t.Cleanup(m.Close)

	if !fc.noStart {
		if err := m.Start(context.Background()); err != nil {
			t.Fatalf("Start: %v", err)
		}
	}

	return &fixture{m: m, b: b, sink: sink, dir: dir, clock: clk, aliceID: aliceID}
}

// events closes the manager and returns every audit event it recorded.
func (f *fixture) events() []AuditEvent {
	f.m.Close()
	var out []AuditEvent
	for {
		select {
		case ev := <-f.sink.Events():
			out = append(out, ev)
		default:
			return out
		}
	}
}

func actions(events []AuditEvent) []string {
	out := make([]string, 0, len(events))
	for _, ev := range events {
		out = append(out, ev.Action)
	}
	return out
}

func countAction(events []AuditEvent, action string) int {
	n := 0
	for _, ev := range events {
		if ev.Action == action {
			n++
		}
	}
	return n
}

func findAction(t *testing.T, events []AuditEvent, action string) AuditEvent {
	t.Helper()
	for _, ev := range events {
		if ev.Action == action {
			return ev
		}
	}
	t.Fatalf("no %s event in %v", action, actions(events))
	return AuditEvent{}
}

func codeAt(t *testing.T, otpauthURL string, at time.Time) string {
	t.Helper()
	key, err := otp.NewKeyFromURL(otpauthURL)
	if err != nil {
		t.Fatalf("parse otpauth url: %v", err)
	}
	code, err := totp.GenerateCode(key.Secret(), at)
	if err != nil {
		t.Fatalf("generate code: %v", err)
	}
	return code
}

func secretCode(t *testing.T, b *memory.Backend, factorID string, at time.Time) string {
	t.Helper()
	secret, ok := b.FactorSecret(factorID)
	if !ok {
		t.Fatalf("no secret for factor %s", factorID)
	}
	code, err := totp.GenerateCode(secret, at)
	if err != nil {
		t.Fatalf("generate code: %v", err)
	}
	return code
}

// enrollVerified gives alice a verified TOTP factor and signs out again.
func (f *fixture) enrollVerified(t *testing.T) string {
	t.Helper()
	ctx := context.Background()
	if _, err := f.m.Login(ctx, "alice@example.com", testPassword); err != nil {
		t.Fatalf("Login: %v", err)
	}
	enrollment, err := f.m.StartEnrollTOTP(ctx)
	if err != nil {
		t.Fatalf("StartEnrollTOTP: %v", err)
	}
	if err := f.m.VerifyEnrollTOTP(ctx, codeAt(t, enrollment.OTPAuthURL, f.clock.Now())); err != nil {
		t.Fatalf("VerifyEnrollTOTP: %v", err)
	}
	if err := f.m.Logout(ctx); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	return enrollment.FactorID
}
