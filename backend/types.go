package backend

import "time"

// FactorTypeTOTP is the only factor type the manager drives.
const FactorTypeTOTP = "totp"

// Session is the backend's authenticated principal.
type Session struct {
	UserID       string    `json:"user_id"`
	Email        string    `json:"email"`
	AccessToken  string    `json:"access_token,omitempty"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// Principal identifies who passed primary authentication, even when no session
// was issued yet because a second factor is pending.
type Principal struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// SignInResult is the outcome of a successful password check. Session is nil
// when step-up is required; Factors then lists what the principal can use.
type SignInResult struct {
	Session   *Session
	Principal *Principal
	Factors   []FactorPayload
}

// EventKind classifies a session-change notification.
type EventKind uint8

const (
	// EventRestored reports a session recovered from persisted state.
	EventRestored EventKind = iota + 1
	// EventSignedIn reports a newly established session.
	EventSignedIn
	// EventSignedOut reports that the session ended.
	EventSignedOut
)

func (k EventKind) String() string {
	switch k {
	case EventRestored:
		return "restored"
	case EventSignedIn:
		return "signed_in"
	case EventSignedOut:
		return "signed_out"
	default:
		return "unknown"
	}
}

// SessionEvent is delivered to OnSessionChange handlers.
type SessionEvent struct {
	Kind    EventKind
	Session *Session
}

// ChallengeResponse carries the id that must accompany a verification code.
type ChallengeResponse struct {
	ID        string    `json:"id"`
	ExpiresAt time.Time `json:"expires_at"`
}

// EnrollRequest asks the backend to create a pending factor.
type EnrollRequest struct {
	FactorType   string `json:"factor_type"`
	FriendlyName string `json:"friendly_name"`
}

// TOTPPayload is the nested totp block some backends return on enrollment.
type TOTPPayload struct {
	QRCode string `json:"qr_code,omitempty"`
	URI    string `json:"uri,omitempty"`
	Secret string `json:"secret,omitempty"`
}

// EnrollResponse holds every shape a factor enrollment reply has been seen in.
// At most a few fields are populated by any given backend.
type EnrollResponse struct {
	ID         string       `json:"id,omitempty"`
	FactorID   string       `json:"factor_id,omitempty"`
	Type       string       `json:"type,omitempty"`
	TOTP       *TOTPPayload `json:"totp,omitempty"`
	QRCode     string       `json:"qr_code,omitempty"`
	QRImage    string       `json:"qr_image,omitempty"`
	URI        string       `json:"uri,omitempty"`
	OTPAuthURI string       `json:"otpauth_uri,omitempty"`
}

// FactorPayload is one entry of a factor listing, again in every shape seen.
type FactorPayload struct {
	ID           string `json:"id"`
	FactorType   string `json:"factor_type,omitempty"`
	Type         string `json:"type,omitempty"`
	FriendlyName string `json:"friendly_name,omitempty"`
	Name         string `json:"name,omitempty"`
	Status       string `json:"status,omitempty"`
	FactorStatus string `json:"factor_status,omitempty"`
}
