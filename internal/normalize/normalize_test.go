package normalize

import (
	"testing"

	"github.com/MrEthical07/goIdentity/backend"
)

func TestEnrollResponseShapes(t *testing.T) {
	cases := []struct {
		name string
		in   *backend.EnrollResponse
		want Enrollment
	}{
		{
			name: "nested totp block",
			in:   &backend.EnrollResponse{ID: "f1", TOTP: &backend.TOTPPayload{QRCode: "data:image/svg+xml;utf-8,<svg/>", URI: "otpauth://totp/a"}},
			want: Enrollment{FactorID: "f1", QRCode: "data:image/svg+xml;utf-8,<svg/>", OTPAuthURL: "otpauth://totp/a"},
		},
		{
			name: "flat uri only",
			in:   &backend.EnrollResponse{FactorID: "f1", OTPAuthURI: "otpauth://totp/b"},
			want: Enrollment{FactorID: "f1", OTPAuthURL: "otpauth://totp/b"},
		},
		{
			name: "flat qr image and uri",
			in:   &backend.EnrollResponse{ID: "f2", QRImage: "data:image/png;base64,AA", URI: "otpauth://totp/c"},
			want: Enrollment{FactorID: "f2", QRCode: "data:image/png;base64,AA", OTPAuthURL: "otpauth://totp/c"},
		},
		{
			name: "missing id",
			in:   &backend.EnrollResponse{URI: "otpauth://totp/d"},
			want: Enrollment{OTPAuthURL: "otpauth://totp/d"},
		},
		{
			name: "nil",
			in:   nil,
			want: Enrollment{},
		},
	}
	for _, tc := range cases {
		if got := EnrollResponse(tc.in); got != tc.want {
			t.Fatalf("%s: expected %+v, got %+v", tc.name, tc.want, got)
		}
	}
}

func TestFactorListNormalizesAndSorts(t *testing.T) {
	got := FactorList([]backend.FactorPayload{
		{ID: "b", Type: "TOTP", Name: "phone", FactorStatus: "verified"},
		{ID: "", FactorType: "totp"},
		{ID: "a", FactorType: "totp", FriendlyName: "laptop", Status: "pending"},
	})
	if len(got) != 2 {
		t.Fatalf("expected 2 factors, got %d", len(got))
	}
	if got[0] != (Factor{ID: "a", Type: "totp", FriendlyName: "laptop", Status: StatusUnverified}) {
		t.Fatalf("unexpected first factor %+v", got[0])
	}
	if got[1] != (Factor{ID: "b", Type: "totp", FriendlyName: "phone", Status: StatusVerified}) {
		t.Fatalf("unexpected second factor %+v", got[1])
	}
}

func TestStatusVocabulary(t *testing.T) {
	for in, want := range map[string]string{
		"verified":   StatusVerified,
		" Enabled ":  StatusVerified,
		"unverified": StatusUnverified,
		"pending":    StatusUnverified,
		"":           StatusUnverified,
	} {
		if got := Status(in); got != want {
			t.Fatalf("Status(%q) = %q, want %q", in, got, want)
		}
	}
}
