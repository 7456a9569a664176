package internaldefs

import (
	identity "github.com/MrEthical07/goIdentity"
)

// CounterDef names one manager counter for export.
type CounterDef struct {
	ID   identity.MetricID
	Name string
	Help string
}

// HistogramDef names one manager histogram for export.
type HistogramDef struct {
	ID   identity.MetricID
	Name string
	Help string
}

// CounterDefs lists every exported counter in render order.
var CounterDefs = []CounterDef{
	{ID: identity.MetricLoginSuccess, Name: "identity_login_success_total", Help: "Password logins that produced a session."},
	{ID: identity.MetricLoginFailure, Name: "identity_login_failure_total", Help: "Password logins rejected or failed."},
	{ID: identity.MetricMFARequired, Name: "identity_mfa_required_total", Help: "Password logins that required a second factor."},
	{ID: identity.MetricMFAVerifySuccess, Name: "identity_mfa_verify_success_total", Help: "Successful MFA step-up verifications."},
	{ID: identity.MetricMFAVerifyFailure, Name: "identity_mfa_verify_failure_total", Help: "Failed MFA step-up verifications."},
	{ID: identity.MetricChallengeFailure, Name: "identity_challenge_failure_total", Help: "MFA challenges the backend could not create."},
	{ID: identity.MetricEnrollStart, Name: "identity_enroll_start_total", Help: "TOTP enrollments started."},
	{ID: identity.MetricEnrollStartFailure, Name: "identity_enroll_start_failure_total", Help: "TOTP enrollments that failed to start."},
	{ID: identity.MetricEnrollVerifySuccess, Name: "identity_enroll_verify_success_total", Help: "TOTP enrollments confirmed."},
	{ID: identity.MetricEnrollVerifyFailure, Name: "identity_enroll_verify_failure_total", Help: "TOTP enrollment confirmations rejected."},
	{ID: identity.MetricEnrollCancelled, Name: "identity_enroll_cancelled_total", Help: "TOTP enrollments cancelled."},
	{ID: identity.MetricFactorDisabled, Name: "identity_factor_disabled_total", Help: "Factors removed."},
	{ID: identity.MetricFactorDisableFailure, Name: "identity_factor_disable_failure_total", Help: "Factor removals that failed."},
	{ID: identity.MetricLogout, Name: "identity_logout_total", Help: "Logout operations."},
	{ID: identity.MetricLogoutRemoteFailure, Name: "identity_logout_remote_failure_total", Help: "Logouts the backend could not confirm."},
	{ID: identity.MetricPasswordResetRequest, Name: "identity_password_reset_request_total", Help: "Recovery e-mails requested."},
	{ID: identity.MetricPasswordResetSuccess, Name: "identity_password_reset_success_total", Help: "Passwords replaced."},
	{ID: identity.MetricPasswordResetFailure, Name: "identity_password_reset_failure_total", Help: "Password reset steps that failed."},
	{ID: identity.MetricSessionRestored, Name: "identity_session_restored_total", Help: "Sessions restored from the backend."},
	{ID: identity.MetricSessionSignedIn, Name: "identity_session_signed_in_total", Help: "Sessions published as signed in."},
	{ID: identity.MetricSessionSignedOut, Name: "identity_session_signed_out_total", Help: "Sessions cleared."},
	{ID: identity.MetricStaleTransition, Name: "identity_stale_transition_total", Help: "Sign-ins discarded because a sign-out happened meanwhile."},
	{ID: identity.MetricProfileMissing, Name: "identity_profile_missing_total", Help: "Authenticated principals without an active profile."},
	{ID: identity.MetricAuditWriteFailure, Name: "identity_audit_write_failure_total", Help: "Audit events the sink rejected."},
}

// HistogramDefs lists every exported histogram.
var HistogramDefs = []HistogramDef{
	{ID: identity.MetricBackendLatency, Name: "identity_backend_latency_seconds", Help: "Identity backend call latency."},
}

// HistogramBounds are the Prometheus le labels matching identity.LatencyBucketBounds.
// AuditDefs names the dispatcher counters, which are read outside the
// metrics snapshot.
var AuditDefs = struct {
	Dropped CounterDef
	Failed  CounterDef
}{
	Dropped: CounterDef{Name: "identity_audit_dropped_total", Help: "Dropped audit events due to dispatcher backpressure."},
	Failed:  CounterDef{Name: "identity_audit_sink_failures_total", Help: "Audit events the sink rejected."},
}

// Session gauges. Each reads 0 or 1.
const (
	SessionAuthenticatedName = "identity_session_authenticated"
	SessionAuthenticatedHelp = "Whether a user is currently published."
	SessionLoadingName       = "identity_session_loading"
	SessionLoadingHelp       = "Whether the initial session restore is still running."
	EnrollmentStateName      = "identity_enrollment_state"
	EnrollmentStateHelp      = "Current TOTP enrollment phase, one series per state."
	EnrollmentStateLabel     = "state"
)

// EnrollmentStates lists the label values of EnrollmentStateName.
var EnrollmentStates = []string{
	identity.EnrollmentIdle,
	identity.EnrollmentEnrolling,
	identity.EnrollmentVerifying,
	identity.EnrollmentEnabled,
}

// Flag maps a boolean gauge to its exported value.
func Flag(b bool) int64 {
	if b {
		return 1
	}
	return 0
}

var HistogramBounds = []string{
	"0.005",
	"0.01",
	"0.025",
	"0.05",
	"0.1",
	"0.25",
	"0.5",
	"+Inf",
}

// HistogramBoundSuffix is HistogramBounds in instrument-name form.
var HistogramBoundSuffix = []string{
	"0_005",
	"0_01",
	"0_025",
	"0_05",
	"0_1",
	"0_25",
	"0_5",
	"inf",
}

// NormalizeBuckets pads or truncates raw to the fixed bucket count.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
