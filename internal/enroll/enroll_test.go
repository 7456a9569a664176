package enroll

import (
	"errors"
	"testing"
)

func TestHappyPath(t *testing.T) {
	c := NewController()
	if err := c.Begin("f1", "", "otpauth://totp/x"); err != nil {
		t.Fatalf("Begin failed: %v", err)
	}
	factorID, code, err := c.Submit(" 12 34\t56 ")
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	if factorID != "f1" || code != "123456" {
		t.Fatalf("unexpected submit result %q %q", factorID, code)
	}
	if err := c.Accept(); err != nil {
		t.Fatalf("Accept failed: %v", err)
	}
	if got := c.Snapshot(); got.State != Enabled || got.Code != "" || got.FactorID != "f1" {
		t.Fatalf("unexpected session %+v", got)
	}
}

func TestRejectReturnsToEnrollingAndKeepsFactor(t *testing.T) {
	c := NewController()
	_ = c.Begin("f1", "data:image/png;base64,AAAA", "otpauth://totp/x")
	_, _, _ = c.Submit("000000")
	if err := c.Reject(); err != nil {
		t.Fatalf("Reject failed: %v", err)
	}
	got := c.Snapshot()
	if got.State != Enrolling || got.FactorID != "f1" || got.QRCode == "" {
		t.Fatalf("expected enrolling with factor kept, got %+v", got)
	}
	if _, _, err := c.Submit("111111"); err != nil {
		t.Fatalf("retry Submit failed: %v", err)
	}
}

func TestIllegalTransitionsAreRejected(t *testing.T) {
	c := NewController()

	if _, _, err := c.Submit("123456"); !errors.Is(err, ErrIllegalTransition) {
		t.Fatalf("expected illegal submit from idle, got %v", err)
	}
	if err := c.Accept(); !errors.Is(err, ErrIllegalTransition) {
		t.Fatalf("expected illegal accept from idle, got %v", err)
	}
	if err := c.Reject(); !errors.Is(err, ErrIllegalTransition) {
		t.Fatalf("expected illegal reject from idle, got %v", err)
	}
	if got := c.Snapshot(); got != (Session{}) {
		t.Fatalf("rejected transition must leave idle untouched, got %+v", got)
	}

	_ = c.Begin("f1", "", "")
	if err := c.Accept(); !errors.Is(err, ErrIllegalTransition) {
		t.Fatalf("expected illegal accept from enrolling, got %v", err)
	}
	if err := c.Reject(); !errors.Is(err, ErrIllegalTransition) {
		t.Fatalf("expected illegal reject from enrolling, got %v", err)
	}

	_, _, _ = c.Submit("123456")
	_ = c.Accept()
	if err := c.Begin("f2", "", ""); !errors.Is(err, ErrIllegalTransition) {
		t.Fatalf("expected illegal begin from enabled, got %v", err)
	}
	if got := c.Snapshot(); got.State != Enabled || got.FactorID != "f1" {
		t.Fatalf("rejected transition must not change state, got %+v", got)
	}
}

func TestResetIsAlwaysLegal(t *testing.T) {
	for _, s := range []State{Idle, Enrolling, Verifying, Enabled} {
		if to, ok := Next(s, EventReset); !ok || to != Idle {
			t.Fatalf("expected reset in %s to lead to idle, got %s %v", s, to, ok)
		}
	}
	c := NewController()
	_ = c.Begin("f1", "", "")
	c.Reset()
	if got := c.Snapshot(); got != (Session{}) {
		t.Fatalf("expected empty session after reset, got %+v", got)
	}
}

func TestRestartWhileEnrollingReplacesFactor(t *testing.T) {
	c := NewController()
	_ = c.Begin("f1", "", "uri-1")
	if err := c.Begin("f2", "qr-2", "uri-2"); err != nil {
		t.Fatalf("expected restart from enrolling, got %v", err)
	}
	if got := c.Snapshot(); got.FactorID != "f2" || got.OTPAuthURL != "uri-2" {
		t.Fatalf("unexpected session %+v", got)
	}
}

func TestStateString(t *testing.T) {
	if Verifying.String() != "verifying" || State(9).String() != "state(9)" || EventReject.String() != "reject" {
		t.Fatal("unexpected state names")
	}
}

func TestBeginWhileVerifyingIsIllegal(t *testing.T) {
	c := NewController()
	_ = c.Begin("f1", "", "uri-1")
	_, _, _ = c.Submit("123456")

	if err := c.Begin("f2", "", "uri-2"); !errors.Is(err, ErrIllegalTransition) {
		t.Fatalf("expected illegal begin from verifying, got %v", err)
	}
	if err := c.Accept(); err != nil {
		t.Fatalf("verification in flight must still complete, got %v", err)
	}
	if got := c.Snapshot(); got.State != Enabled || got.FactorID != "f1" {
		t.Fatalf("unexpected session %+v", got)
	}
}

func TestTransitionTable(t *testing.T) {
	cases := []struct {
		from State
		ev   Event
		to   State
		ok   bool
	}{
		{Idle, EventBegin, Enrolling, true},
		{Enrolling, EventBegin, Enrolling, true},
		{Verifying, EventBegin, 0, false},
		{Enabled, EventBegin, 0, false},
		{Enrolling, EventSubmit, Verifying, true},
		{Idle, EventSubmit, 0, false},
		{Verifying, EventAccept, Enabled, true},
		{Enrolling, EventAccept, 0, false},
		{Verifying, EventReject, Enrolling, true},
		{Idle, EventReject, 0, false},
		{Enrolling, EventReject, 0, false},
		{Enabled, EventReject, 0, false},
	}
	for _, tc := range cases {
		to, ok := Next(tc.from, tc.ev)
		if ok != tc.ok || (ok && to != tc.to) {
			t.Fatalf("%s in %s: expected (%s, %v), got (%s, %v)", tc.ev, tc.from, tc.to, tc.ok, to, ok)
		}
	}
}
