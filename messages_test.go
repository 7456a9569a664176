package goIdentity

import (
	"errors"
	"fmt"
	"testing"
)

func TestUserMessageForSentinels(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{ErrInvalidCredentials, "Incorrect email or password."},
		{ErrProfileNotFound, "Your account is not registered in this application. Contact an administrator."},
		{ErrEnrollmentExpired, "The setup session expired. Start the authenticator setup again."},
		{ErrMFACodeRejected, "The code is incorrect. Check your authenticator app and try again."},
		{ErrFactorAlreadyExists, "An authenticator is already registered. Disable it before adding a new one."},
		{opError("verify_enroll_totp", "f1", ErrChallengeExpired, errors.New("raw")), "The verification session expired. Request a new code and try again."},
	}
	for _, tc := range cases {
		if got := UserMessage(tc.err); got != tc.want {
			t.Fatalf("%v: expected %q, got %q", tc.err, tc.want, got)
		}
	}
}

func TestUserMessageForRemoteLogout(t *testing.T) {
	err := opError("logout", "", ErrBackendUnavailable, errors.New("timeout"))
	if got := UserMessage(err); got != "You have been signed out on this device, but the server could not confirm it." {
		t.Fatalf("unexpected message %q", got)
	}
}

func TestUserMessageFallback(t *testing.T) {
	if UserMessage(nil) != "" {
		t.Fatal("nil error must map to empty message")
	}
	if got := UserMessage(errors.New("odd")); got != "odd" {
		t.Fatalf("expected raw text, got %q", got)
	}
}

func TestRetryable(t *testing.T) {
	retry := []error{
		ErrChallengeExpired,
		ErrEnrollmentExpired,
		ErrRateLimited,
		fmt.Errorf("wrapped: %w", ErrBackendUnavailable),
		ErrPartialDisable,
	}
	for _, err := range retry {
		if !Retryable(err) {
			t.Fatalf("expected %v to be retryable", err)
		}
	}

	final := []error{nil, ErrInvalidCredentials, ErrMFACodeRejected, ErrAccountLocked, ErrProfileNotFound, ErrVerificationUnsupported}
	for _, err := range final {
		if Retryable(err) {
			t.Fatalf("expected %v to be final", err)
		}
	}
}
