// Package normalize is the single boundary where loosely shaped backend
// payloads become the canonical shapes the manager works with.
package normalize

import (
	"sort"
	"strings"

	"github.com/MrEthical07/goIdentity/backend"
)

const (
	StatusVerified   = "verified"
	StatusUnverified = "unverified"
)

// Enrollment is the canonical result of a factor enrollment.
type Enrollment struct {
	FactorID   string
	QRCode     string
	OTPAuthURL string
}

// Factor is the canonical factor listing entry.
type Factor struct {
	ID           string
	Type         string
	FriendlyName string
	Status       string
}

// EnrollResponse picks the factor id, QR image and otpauth URI out of resp.
// A missing factor id leaves FactorID empty; callers decide how to fail.
func EnrollResponse(resp *backend.EnrollResponse) Enrollment {
	if resp == nil {
		return Enrollment{}
	}
	out := Enrollment{
		FactorID: firstNonEmpty(resp.ID, resp.FactorID),
	}
	if resp.TOTP != nil {
		out.QRCode = resp.TOTP.QRCode
		out.OTPAuthURL = resp.TOTP.URI
	}
	out.QRCode = firstNonEmpty(out.QRCode, resp.QRCode, resp.QRImage)
	out.OTPAuthURL = firstNonEmpty(out.OTPAuthURL, resp.OTPAuthURI, resp.URI)
	return out
}

// FactorPayload maps one listing entry onto the canonical factor.
func FactorPayload(p backend.FactorPayload) Factor {
	return Factor{
		ID:           strings.TrimSpace(p.ID),
		Type:         strings.ToLower(firstNonEmpty(p.FactorType, p.Type)),
		FriendlyName: firstNonEmpty(p.FriendlyName, p.Name),
		Status:       Status(firstNonEmpty(p.Status, p.FactorStatus)),
	}
}

// FactorList normalizes a listing, drops entries without an id and orders the
// result by id.
func FactorList(payloads []backend.FactorPayload) []Factor {
	out := make([]Factor, 0, len(payloads))
	for _, p := range payloads {
		f := FactorPayload(p)
		if f.ID == "" {
			continue
		}
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Status folds the status vocabularies backends use into verified/unverified.
func Status(s string) string {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "verified", "enabled", "active":
		return StatusVerified
	default:
		return StatusUnverified
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
