package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	identity "github.com/MrEthical07/goIdentity"
	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
	"github.com/rs/zerolog"
)

// walkthrough drives the manager the way a sign-in screen would. It plays the
// authenticator app by computing codes from the enrollment URL.
func walkthrough(ctx context.Context, e *env, opts options, log zerolog.Logger) error {
	m := e.manager
	unsubscribe := m.Subscribe(func(s identity.SessionState) {
		ev := log.Debug().Bool("loading", s.Loading)
		if s.User != nil {
			ev = ev.Str("user", s.User.Email).Str("role", string(s.User.Role))
		}
		ev.Msg("session state")
	})
	defer unsubscribe()

	step := func(name string) { log.Info().Msgf("== %s", name) }

	step("wrong password")
	_, err := m.Login(ctx, opts.email, "not-the-password")
	log.Info().Str("message", identity.UserMessage(err)).Msg("login rejected")

	step("password login")
	res, err := m.Login(ctx, opts.email, opts.password)
	if err != nil {
		return fmt.Errorf("login: %w", err)
	}
	if res.MFARequired {
		log.Info().Msg("account already has a second factor; removing it first")
		if err := stepUp(ctx, m, res.Factors, nil); err != nil {
			return err
		}
		if _, err := m.DisableAllTOTP(ctx); err != nil {
			return fmt.Errorf("disable existing factors: %w", err)
		}
	}
	log.Info().Str("user", m.User().Email).Msg("signed in")

	step("enroll authenticator")
	enrollment, err := m.StartEnrollTOTP(ctx)
	if err != nil {
		return fmt.Errorf("start enrollment: %w", err)
	}
	key, err := otp.NewKeyFromURL(enrollment.OTPAuthURL)
	if err != nil {
		return fmt.Errorf("parse otpauth url: %w", err)
	}
	log.Info().Str("factor", enrollment.FactorID).Str("name", enrollment.FriendlyName).
		Int("qr_bytes", len(enrollment.QRCode)).Msg("scan the QR code")

	if err := m.VerifyEnrollTOTP(ctx, "000000"); err != nil {
		log.Info().Str("message", identity.UserMessage(err)).Str("state", m.EnrollmentState().State).Msg("typo rejected")
	}
	code, err := totp.GenerateCode(key.Secret(), time.Now())
	if err != nil {
		return err
	}
	if err := m.VerifyEnrollTOTP(ctx, code); err != nil {
		return fmt.Errorf("verify enrollment: %w", err)
	}
	log.Info().Str("state", m.EnrollmentState().State).Msg("authenticator enabled")

	step("logout")
	if err := m.Logout(ctx); err != nil {
		log.Warn().Str("message", identity.UserMessage(err)).Msg("logout")
	}

	step("login with step-up")
	res, err = m.Login(ctx, opts.email, opts.password)
	if err != nil {
		return fmt.Errorf("login: %w", err)
	}
	if !res.MFARequired {
		return errors.New("expected a second factor to be required")
	}
	if err := stepUp(ctx, m, res.Factors, key); err != nil {
		return err
	}
	log.Info().Str("user", m.User().Email).Msg("signed in with second factor")

	step("password recovery")
	if err := m.ForgotPassword(ctx, opts.email); err != nil {
		return fmt.Errorf("forgot password: %w", err)
	}
	if e.memory != nil {
		for _, mail := range e.memory.Outbox() {
			log.Info().Str("to", mail.Email).Str("redirect", mail.RedirectTo).Msg("recovery mail queued")
		}
	}
	if err := m.ResetPassword(ctx, opts.password); err != nil {
		return fmt.Errorf("reset password: %w", err)
	}

	step("remove authenticator")
	remaining, err := m.DisableAllTOTP(ctx)
	if err != nil {
		return fmt.Errorf("disable factors: %w", err)
	}
	log.Info().Int("remaining", len(remaining)).Msg("factors removed")

	if err := m.Logout(ctx); err != nil {
		log.Warn().Str("message", identity.UserMessage(err)).Msg("logout")
	}

	snap := m.MetricsSnapshot()
	log.Info().
		Uint64("logins", snap.Counters[identity.MetricLoginSuccess]).
		Uint64("login_failures", snap.Counters[identity.MetricLoginFailure]).
		Uint64("mfa_verified", snap.Counters[identity.MetricMFAVerifySuccess]).
		Uint64("audit_dropped", m.AuditDropped()).
		Uint64("audit_sink_failures", m.AuditFailed()).
		Msg("walkthrough complete")
	return nil
}

// stepUp completes a pending MFA login. Without a key the factor cannot be
// answered, which only happens for accounts enrolled outside the demo.
func stepUp(ctx context.Context, m *identity.Manager, factors []identity.Factor, key *otp.Key) error {
	if len(factors) == 0 {
		return errors.New("no factor to verify")
	}
	if key == nil {
		return errors.New("account has an authenticator the demo cannot answer; remove it and retry")
	}
	code, err := totp.GenerateCode(key.Secret(), time.Now())
	if err != nil {
		return err
	}
	if _, err := m.VerifyMFA(ctx, factors[0].ID, code, ""); err != nil {
		return fmt.Errorf("verify mfa: %w", err)
	}
	return nil
}
