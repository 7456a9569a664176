package goIdentity

import (
	"github.com/MrEthical07/goIdentity/internal/enroll"
	"github.com/MrEthical07/goIdentity/internal/normalize"
	"github.com/MrEthical07/goIdentity/profile"
)

// Factor status values reported on [Factor.Status].
const (
	FactorStatusVerified   = normalize.StatusVerified
	FactorStatusUnverified = normalize.StatusUnverified
)

// Factor is a registered second factor.
type Factor struct {
	ID           string `json:"id"`
	Type         string `json:"type"`
	FriendlyName string `json:"friendly_name,omitempty"`
	Status       string `json:"status"`
}

// Verified reports whether the factor completed enrollment.
func (f Factor) Verified() bool {
	return f.Status == FactorStatusVerified
}

// LoginResult is the outcome of a password login. When MFARequired is set,
// User is nil and the caller must complete [Manager.VerifyMFA] with one of
// Factors.
type LoginResult struct {
	User        *profile.Profile
	MFARequired bool
	Factors     []Factor
}

// Enrollment is the material a user needs to register an authenticator.
type Enrollment struct {
	FactorID     string `json:"factor_id"`
	FriendlyName string `json:"friendly_name"`
	// QRCode is an image (usually a data URI) and is preferred for display.
	QRCode string `json:"qr_code,omitempty"`
	// OTPAuthURL is always kept for manual entry.
	OTPAuthURL string `json:"otpauth_url,omitempty"`
}

// EnrollmentStatus is a read-only view of the enrollment controller.
type EnrollmentStatus struct {
	State      string
	FactorID   string
	QRCode     string
	OTPAuthURL string
}

// Enrollment controller states as reported by [EnrollmentStatus.State].
var (
	EnrollmentIdle      = enroll.Idle.String()
	EnrollmentEnrolling = enroll.Enrolling.String()
	EnrollmentVerifying = enroll.Verifying.String()
	EnrollmentEnabled   = enroll.Enabled.String()
)

// SessionState is what observers registered with [Manager.Subscribe] receive.
type SessionState struct {
	User    *profile.Profile
	Loading bool
}

func toFactors(in []normalize.Factor) []Factor {
	out := make([]Factor, 0, len(in))
	for _, f := range in {
		out = append(out, Factor{
			ID:           f.ID,
			Type:         f.Type,
			FriendlyName: f.FriendlyName,
			Status:       f.Status,
		})
	}
	return out
}
