package backend

import (
	"errors"
	"fmt"
	"testing"
)

func TestCategoryPrefersStructuredCode(t *testing.T) {
	err := &Error{Status: 422, Code: CodeFactorNameConflict, Message: "something unrelated"}
	if !errors.Is(err, ErrFactorExists) {
		t.Fatalf("expected ErrFactorExists from code, got %v", Category(err))
	}
	if errors.Is(err, ErrChallengeExpired) {
		t.Fatal("structured code must win over message heuristics")
	}
}

func TestCategoryFallsBackToMessage(t *testing.T) {
	cases := []struct {
		msg  string
		want error
	}{
		{"A factor with the friendly name \"x\" already exists", ErrFactorExists},
		{"MFA challenge expired", ErrChallengeExpired},
		{"challenge id is invalid", ErrChallengeExpired},
		{"Invalid login credentials", ErrInvalidCredentials},
		{"Invalid TOTP code entered", ErrInvalidCode},
		{"boom", nil},
	}
	for _, tc := range cases {
		got := Category(&Error{Status: 400, Message: tc.msg})
		if got != tc.want {
			t.Fatalf("%q: expected %v, got %v", tc.msg, tc.want, got)
		}
	}
}

func TestCategoryServerErrorIsUnavailable(t *testing.T) {
	if got := Category(&Error{Status: 503, Message: "upstream"}); got != ErrUnavailable {
		t.Fatalf("expected ErrUnavailable, got %v", got)
	}
}

func TestCategoryOfWrappedSentinel(t *testing.T) {
	err := fmt.Errorf("unenroll: %w", ErrFactorNotFound)
	if got := Category(err); got != ErrFactorNotFound {
		t.Fatalf("expected ErrFactorNotFound, got %v", got)
	}
	if Category(errors.New("plain")) != nil {
		t.Fatal("expected nil category for unknown error")
	}
}

func TestEventKindString(t *testing.T) {
	if EventSignedOut.String() != "signed_out" || EventKind(0).String() != "unknown" {
		t.Fatal("unexpected event kind names")
	}
}
