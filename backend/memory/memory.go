package memory

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"image/png"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/MrEthical07/goIdentity/backend"
	"github.com/MrEthical07/goIdentity/password"
	"github.com/google/uuid"
	"github.com/pquerna/otp"
	"golang.org/x/time/rate"
)

// Options configures a Backend. Zero values take the defaults noted per field.
type Options struct {
	// Issuer labels TOTP entries in authenticator apps. Default "goIdentity".
	Issuer string
	// SigningKey signs access tokens. Default: a random 32-byte key.
	SigningKey []byte
	// SessionTTL bounds access token lifetime. Default 1h.
	SessionTTL time.Duration
	// ChallengeTTL bounds how long an MFA challenge accepts codes. Default 5m.
	ChallengeTTL time.Duration
	// SignInRate and SignInBurst throttle password attempts per e-mail.
	// Default 1 per second with a burst of 5.
	SignInRate  rate.Limit
	SignInBurst int
	// QRSize is the edge length of generated QR images. Default 200.
	QRSize int
	// FlatEnrollPayload returns enrollment data in the older flat shape
	// (factor_id, qr_image, otpauth_uri) instead of the nested totp block.
	FlatEnrollPayload bool
	// Password sets hashing cost. Default: the cheapest accepted parameters.
	Password *password.Config
	// Clock overrides time.Now.
	Clock func() time.Time
}

// RecoveryMail records a password recovery request.
type RecoveryMail struct {
	Email      string
	RedirectTo string
	SentAt     time.Time
}

type account struct {
	id           string
	email        string
	passwordHash string
	locked       bool
	factors      map[string]*factor
}

type factor struct {
	id           string
	friendlyName string
	key          *otp.Key
	verified     bool
	createdAt    time.Time
}

type challenge struct {
	id        string
	factorID  string
	userID    string
	expiresAt time.Time
}

// Backend is safe for concurrent use.
type Backend struct {
	opts   Options
	hasher *password.Hasher
	tokens *tokenIssuer

	mu         sync.Mutex
	accounts   map[string]*account // by normalized email
	byID       map[string]*account
	current    *backend.Session
	pendingID  string
	challenges map[string]*challenge
	limiters   map[string]*rate.Limiter
	outbox     []RecoveryMail
	faults     map[Op]*fault

	hmu       sync.Mutex
	handlers  map[uint64]func(backend.SessionEvent)
	nextHdlID uint64
}

func New(opts Options) (*Backend, error) {
	if opts.Issuer == "" {
		opts.Issuer = "goIdentity"
	}
	if opts.SessionTTL <= 0 {
		opts.SessionTTL = time.Hour
	}
	if opts.ChallengeTTL <= 0 {
		opts.ChallengeTTL = 5 * time.Minute
	}
	if opts.SignInRate == 0 {
		opts.SignInRate = rate.Limit(1)
	}
	if opts.SignInBurst <= 0 {
		opts.SignInBurst = 5
	}
	if opts.QRSize <= 0 {
		opts.QRSize = 200
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}

	pwCfg := password.Config{Memory: 8 * 1024, Time: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32, MinLength: 6}
	if opts.Password != nil {
		pwCfg = *opts.Password
	}
	hasher, err := password.New(pwCfg)
	if err != nil {
		return nil, err
	}
	tokens, err := newTokenIssuer(opts.Issuer, opts.SigningKey, opts.SessionTTL)
	if err != nil {
		return nil, err
	}

	return &Backend{
		opts:       opts,
		hasher:     hasher,
		tokens:     tokens,
		accounts:   make(map[string]*account),
		byID:       make(map[string]*account),
		challenges: make(map[string]*challenge),
		limiters:   make(map[string]*rate.Limiter),
		faults:     make(map[Op]*fault),
		handlers:   make(map[uint64]func(backend.SessionEvent)),
	}, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// AddUser registers a principal and returns its id.
func (b *Backend) AddUser(email, pw string) (string, error) {
	email = normalizeEmail(email)
	if email == "" {
		return "", errors.New("memory: email required")
	}
	hash, err := b.hasher.Hash(pw)
	if err != nil {
		return "", err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.accounts[email]; ok {
		return "", fmt.Errorf("memory: user %s already exists", email)
	}
	a := &account{
		id:           uuid.NewString(),
		email:        email,
		passwordHash: hash,
		factors:      make(map[string]*factor),
	}
	b.accounts[email] = a
	b.byID[a.id] = a
	return a.id, nil
}

// SetLocked bans or unbans a principal.
func (b *Backend) SetLocked(email string, locked bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if a, ok := b.accounts[normalizeEmail(email)]; ok {
		a.locked = locked
	}
}

// Outbox returns every recovery mail sent so far.
func (b *Backend) Outbox() []RecoveryMail {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]RecoveryMail(nil), b.outbox...)
}

// FactorSecret returns the base32 TOTP secret of a factor, for provisioning
// test authenticators.
func (b *Backend) FactorSecret(factorID string) (string, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, a := range b.byID {
		if f, ok := a.factors[factorID]; ok {
			return f.key.Secret(), true
		}
	}
	return "", false
}

// ParseAccessToken validates a token issued by this backend.
func (b *Backend) ParseAccessToken(token string) (*Claims, error) {
	return b.tokens.parse(token, b.opts.Clock())
}

func (b *Backend) GetSession(ctx context.Context) (*backend.Session, error) {
	if err := b.fault(ctx, OpGetSession); err != nil {
		return nil, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.current == nil {
		return nil, nil
	}
	if !b.current.ExpiresAt.After(b.opts.Clock()) {
		b.current = nil
		return nil, nil
	}
	s := *b.current
	return &s, nil
}

func (b *Backend) SignInWithPassword(ctx context.Context, email, pw string) (*backend.SignInResult, error) {
	if err := b.fault(ctx, OpSignIn); err != nil {
		return nil, err
	}
	email = normalizeEmail(email)

	b.mu.Lock()
	if !b.limiterLocked(email).AllowN(b.opts.Clock(), 1) {
		b.mu.Unlock()
		return nil, &backend.Error{Status: http.StatusTooManyRequests, Code: backend.CodeRateLimited, Message: "too many sign-in attempts"}
	}
	a, ok := b.accounts[email]
	var stored string
	if ok {
		stored = a.passwordHash
	}
	b.mu.Unlock()

	// argon2 runs outside the lock.
	if !ok || b.hasher.Verify(pw, stored) != nil {
		return nil, &backend.Error{Status: http.StatusBadRequest, Code: backend.CodeInvalidCredentials, Message: "Invalid login credentials"}
	}

	b.mu.Lock()
	if a.locked {
		b.mu.Unlock()
		return nil, &backend.Error{Status: http.StatusBadRequest, Code: backend.CodeUserLocked, Message: "User is banned"}
	}
	if verified := verifiedFactors(a); len(verified) > 0 {
		b.pendingID = a.id
		b.current = nil
		b.mu.Unlock()
		return &backend.SignInResult{
			Principal: &backend.Principal{ID: a.id, Email: a.email},
			Factors:   verified,
		}, nil
	}
	sess, err := b.issueLocked(a, "aal1")
	b.mu.Unlock()
	if err != nil {
		return nil, err
	}

	b.emit(backend.SessionEvent{Kind: backend.EventSignedIn, Session: sess})
	out := *sess
	return &backend.SignInResult{
		Session:   &out,
		Principal: &backend.Principal{ID: a.id, Email: a.email},
	}, nil
}

func (b *Backend) SignOut(ctx context.Context) error {
	if err := b.fault(ctx, OpSignOut); err != nil {
		return err
	}
	b.mu.Lock()
	had := b.current != nil
	b.current = nil
	b.pendingID = ""
	b.mu.Unlock()

	if had {
		b.emit(backend.SessionEvent{Kind: backend.EventSignedOut})
	}
	return nil
}

// OnSessionChange registers handler. Events are delivered synchronously.
func (b *Backend) OnSessionChange(handler func(backend.SessionEvent)) func() {
	if handler == nil {
		return func() {}
	}
	b.hmu.Lock()
	b.nextHdlID++
	id := b.nextHdlID
	b.handlers[id] = handler
	b.hmu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.hmu.Lock()
			delete(b.handlers, id)
			b.hmu.Unlock()
		})
	}
}

// Subscribers reports how many session-change handlers are registered.
func (b *Backend) Subscribers() int {
	b.hmu.Lock()
	defer b.hmu.Unlock()
	return len(b.handlers)
}

// Restore re-announces the current session as if it had been recovered from
// storage, the way a client SDK does on page load.
func (b *Backend) Restore() {
	b.mu.Lock()
	var sess *backend.Session
	if b.current != nil {
		s := *b.current
		sess = &s
	}
	b.mu.Unlock()
	b.emit(backend.SessionEvent{Kind: backend.EventRestored, Session: sess})
}

func (b *Backend) emit(ev backend.SessionEvent) {
	b.hmu.Lock()
	ids := make([]uint64, 0, len(b.handlers))
	for id := range b.handlers {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	fns := make([]func(backend.SessionEvent), 0, len(ids))
	for _, id := range ids {
		fns = append(fns, b.handlers[id])
	}
	b.hmu.Unlock()

	for _, fn := range fns {
		ev := ev
		if ev.Session != nil {
			s := *ev.Session
			ev.Session = &s
		}
		fn(ev)
	}
}

func (b *Backend) ResetPasswordForEmail(ctx context.Context, email, redirectTo string) error {
	if err := b.fault(ctx, OpResetPassword); err != nil {
		return err
	}
	email = normalizeEmail(email)
	b.mu.Lock()
	defer b.mu.Unlock()
	// Unknown addresses succeed silently so the endpoint cannot be used to
	// enumerate accounts.
	if _, ok := b.accounts[email]; ok {
		b.outbox = append(b.outbox, RecoveryMail{Email: email, RedirectTo: redirectTo, SentAt: b.opts.Clock()})
	}
	return nil
}

func (b *Backend) UpdatePassword(ctx context.Context, pw string) error {
	if err := b.fault(ctx, OpUpdatePassword); err != nil {
		return err
	}
	hash, err := b.hasher.Hash(pw)
	if errors.Is(err, password.ErrTooShort) {
		return &backend.Error{Status: http.StatusUnprocessableEntity, Code: "weak_password", Message: "Password should be at least 6 characters"}
	}
	if err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	a, err := b.sessionAccountLocked()
	if err != nil {
		return err
	}
	a.passwordHash = hash
	return nil
}

func (b *Backend) limiterLocked(email string) *rate.Limiter {
	l, ok := b.limiters[email]
	if !ok {
		l = rate.NewLimiter(b.opts.SignInRate, b.opts.SignInBurst)
		b.limiters[email] = l
	}
	return l
}

func (b *Backend) issueLocked(a *account, aal string) (*backend.Session, error) {
	now := b.opts.Clock()
	access, err := b.tokens.issue(a.id, a.email, aal, now)
	if err != nil {
		return nil, err
	}
	b.current = &backend.Session{
		UserID:       a.id,
		Email:        a.email,
		AccessToken:  access,
		RefreshToken: uuid.NewString(),
		ExpiresAt:    now.Add(b.opts.SessionTTL),
	}
	b.pendingID = ""
	s := *b.current
	return &s, nil
}

func (b *Backend) sessionAccountLocked() (*account, error) {
	if b.current == nil || !b.current.ExpiresAt.After(b.opts.Clock()) {
		return nil, &backend.Error{Status: http.StatusUnauthorized, Code: backend.CodeSessionMissing, Message: "Auth session missing"}
	}
	a, ok := b.byID[b.current.UserID]
	if !ok {
		return nil, &backend.Error{Status: http.StatusUnauthorized, Code: backend.CodeSessionMissing, Message: "user no longer exists"}
	}
	return a, nil
}

// principalLocked is the signed-in account or, during step-up, the account
// that passed the password check.
func (b *Backend) principalLocked() (*account, error) {
	if b.current != nil {
		return b.sessionAccountLocked()
	}
	if a, ok := b.byID[b.pendingID]; ok && b.pendingID != "" {
		return a, nil
	}
	return nil, &backend.Error{Status: http.StatusUnauthorized, Code: backend.CodeSessionMissing, Message: "Auth session missing"}
}

func verifiedFactors(a *account) []backend.FactorPayload {
	out := make([]backend.FactorPayload, 0, len(a.factors))
	for _, f := range a.factors {
		if f.verified {
			out = append(out, payload(f))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func payload(f *factor) backend.FactorPayload {
	status := "unverified"
	if f.verified {
		status = "verified"
	}
	return backend.FactorPayload{
		ID:           f.id,
		FactorType:   backend.FactorTypeTOTP,
		FriendlyName: f.friendlyName,
		Status:       status,
	}
}

func qrDataURI(key *otp.Key, size int) (string, error) {
	img, err := key.Image(size, size)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", err
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}
