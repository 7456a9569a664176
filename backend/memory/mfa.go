package memory

import (
	"context"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/MrEthical07/goIdentity/backend"
	"github.com/google/uuid"
	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

var validateOpts = totp.ValidateOpts{
	Period:    30,
	Skew:      1,
	Digits:    otp.DigitsSix,
	Algorithm: otp.AlgorithmSHA1,
}

func (b *Backend) Enroll(ctx context.Context, req backend.EnrollRequest) (*backend.EnrollResponse, error) {
	if err := b.fault(ctx, OpEnroll); err != nil {
		return nil, err
	}
	if req.FactorType != backend.FactorTypeTOTP {
		return nil, &backend.Error{Status: http.StatusBadRequest, Code: "validation_failed", Message: "unsupported factor type " + req.FactorType}
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	a, err := b.sessionAccountLocked()
	if err != nil {
		return nil, err
	}
	for _, f := range a.factors {
		if f.verified {
			return nil, &backend.Error{Status: http.StatusUnprocessableEntity, Code: backend.CodeFactorExists, Message: "a verified TOTP factor already exists"}
		}
		if req.FriendlyName != "" && f.friendlyName == req.FriendlyName {
			return nil, &backend.Error{Status: http.StatusUnprocessableEntity, Code: backend.CodeFactorNameConflict,
				Message: "A factor with the friendly name \"" + req.FriendlyName + "\" for this user already exists"}
		}
	}

	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      b.opts.Issuer,
		AccountName: a.email,
		Period:      validateOpts.Period,
		Digits:      validateOpts.Digits,
		Algorithm:   validateOpts.Algorithm,
	})
	if err != nil {
		return nil, err
	}
	qr, err := qrDataURI(key, b.opts.QRSize)
	if err != nil {
		return nil, err
	}

	f := &factor{
		id:           uuid.NewString(),
		friendlyName: req.FriendlyName,
		key:          key,
		createdAt:    b.opts.Clock(),
	}
	a.factors[f.id] = f

	if b.opts.FlatEnrollPayload {
		return &backend.EnrollResponse{
			FactorID:   f.id,
			Type:       backend.FactorTypeTOTP,
			QRImage:    qr,
			OTPAuthURI: key.URL(),
		}, nil
	}
	return &backend.EnrollResponse{
		ID:   f.id,
		Type: backend.FactorTypeTOTP,
		TOTP: &backend.TOTPPayload{QRCode: qr, URI: key.URL(), Secret: key.Secret()},
	}, nil
}

func (b *Backend) Challenge(ctx context.Context, factorID string) (*backend.ChallengeResponse, error) {
	if err := b.fault(ctx, OpChallenge); err != nil {
		return nil, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.challengeLocked(factorID)
}

func (b *Backend) challengeLocked(factorID string) (*backend.ChallengeResponse, error) {
	a, err := b.principalLocked()
	if err != nil {
		return nil, err
	}
	if _, ok := a.factors[factorID]; !ok {
		return nil, factorNotFound(factorID)
	}
	b.pruneChallengesLocked()

	c := &challenge{
		id:        uuid.NewString(),
		factorID:  factorID,
		userID:    a.id,
		expiresAt: b.opts.Clock().Add(b.opts.ChallengeTTL),
	}
	b.challenges[c.id] = c
	return &backend.ChallengeResponse{ID: c.id, ExpiresAt: c.expiresAt}, nil
}

func (b *Backend) Verify(ctx context.Context, factorID, challengeID, code string) error {
	if err := b.fault(ctx, OpVerify); err != nil {
		return err
	}
	b.mu.Lock()
	sess, err := b.verifyLocked(factorID, challengeID, code)
	b.mu.Unlock()
	if err != nil {
		return err
	}
	if sess != nil {
		b.emit(backend.SessionEvent{Kind: backend.EventSignedIn, Session: sess})
	}
	return nil
}

// VerifyFactor creates a challenge and verifies code against it in one step.
func (b *Backend) VerifyFactor(ctx context.Context, factorID, code string) error {
	if err := b.fault(ctx, OpVerifyFactor); err != nil {
		return err
	}
	b.mu.Lock()
	ch, err := b.challengeLocked(factorID)
	if err != nil {
		b.mu.Unlock()
		return err
	}
	sess, err := b.verifyLocked(factorID, ch.ID, code)
	b.mu.Unlock()
	if err != nil {
		return err
	}
	if sess != nil {
		b.emit(backend.SessionEvent{Kind: backend.EventSignedIn, Session: sess})
	}
	return nil
}

// verifyLocked checks code and marks the factor verified. It returns the new
// session when verification completed a pending step-up sign-in.
func (b *Backend) verifyLocked(factorID, challengeID, code string) (*backend.Session, error) {
	a, err := b.principalLocked()
	if err != nil {
		return nil, err
	}
	now := b.opts.Clock()
	c, ok := b.challenges[challengeID]
	if !ok || c.factorID != factorID || c.userID != a.id {
		return nil, &backend.Error{Status: http.StatusUnprocessableEntity, Code: backend.CodeChallengeExpired, Message: "MFA challenge " + challengeID + " not found or invalid"}
	}
	if !now.Before(c.expiresAt) {
		delete(b.challenges, challengeID)
		return nil, &backend.Error{Status: http.StatusUnprocessableEntity, Code: backend.CodeChallengeExpired, Message: "MFA challenge " + challengeID + " has expired, verify against another challenge or create a new factor"}
	}
	f, ok := a.factors[factorID]
	if !ok {
		return nil, factorNotFound(factorID)
	}

	valid, err := totp.ValidateCustom(strings.TrimSpace(code), f.key.Secret(), now, validateOpts)
	if err != nil || !valid {
		return nil, &backend.Error{Status: http.StatusUnprocessableEntity, Code: backend.CodeVerificationFailed, Message: "Invalid TOTP code entered"}
	}
	delete(b.challenges, challengeID)
	f.verified = true

	if b.current == nil && b.pendingID == a.id {
		return b.issueLocked(a, "aal2")
	}
	return nil, nil
}

func (b *Backend) Unenroll(ctx context.Context, factorID string) error {
	if err := b.fault(ctx, OpUnenroll); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	a, err := b.sessionAccountLocked()
	if err != nil {
		return err
	}
	if _, ok := a.factors[factorID]; !ok {
		return factorNotFound(factorID)
	}
	delete(a.factors, factorID)
	for id, c := range b.challenges {
		if c.factorID == factorID {
			delete(b.challenges, id)
		}
	}
	return nil
}

func (b *Backend) ListFactors(ctx context.Context) ([]backend.FactorPayload, error) {
	if err := b.fault(ctx, OpListFactors); err != nil {
		return nil, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	a, err := b.sessionAccountLocked()
	if err != nil {
		return nil, err
	}
	out := make([]backend.FactorPayload, 0, len(a.factors))
	for _, f := range a.factors {
		out = append(out, payload(f))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (b *Backend) pruneChallengesLocked() {
	now := b.opts.Clock()
	for id, c := range b.challenges {
		if now.Sub(c.expiresAt) > time.Minute {
			delete(b.challenges, id)
		}
	}
}

func factorNotFound(factorID string) error {
	return &backend.Error{Status: http.StatusNotFound, Code: backend.CodeFactorNotFound, Message: "Factor " + factorID + " not found"}
}

type legacyClient struct {
	backend.Client
	b *Backend
}

func (l legacyClient) VerifyEnrollment(ctx context.Context, factorID, code string) error {
	return l.b.VerifyFactor(ctx, factorID, code)
}

// Legacy exposes b through the older single-call enrollment verifier only.
func Legacy(b *Backend) backend.Client {
	return legacyClient{Client: b, b: b}
}

// Bare exposes b without any enrollment verifier.
func Bare(b *Backend) backend.Client {
	return struct{ backend.Client }{b}
}
