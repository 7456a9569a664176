package gotrue

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/MrEthical07/goIdentity/backend"
	"github.com/golang-jwt/jwt/v5"
)

const (
	aal1 = "aal1"
	aal2 = "aal2"

	maxErrorBody = 64 << 10
)

// ErrNoEndpoint is returned by New when the base URL is missing or relative.
var ErrNoEndpoint = errors.New("gotrue: base URL must be absolute")

// Options configures a Client.
type Options struct {
	// BaseURL is the auth API root, e.g. https://project.supabase.co/auth/v1.
	BaseURL string
	// APIKey is sent as the apikey header on every request.
	APIKey string
	// HTTPClient defaults to a client with a 10s timeout.
	HTTPClient *http.Client
	// Clock overrides time.Now for expiry checks.
	Clock func() time.Time
}

// Client is safe for concurrent use.
type Client struct {
	base   *url.URL
	apiKey string
	http   *http.Client
	now    func() time.Time

	mu      sync.Mutex
	current *tokenSet
	pending *tokenSet

	hmu       sync.Mutex
	handlers  map[uint64]func(backend.SessionEvent)
	nextHdlID uint64
}

type tokenSet struct {
	session *backend.Session
	aal     string
}

func New(opts Options) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(opts.BaseURL, "/"))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, ErrNoEndpoint
	}
	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: 10 * time.Second}
	}
	now := opts.Clock
	if now == nil {
		now = time.Now
	}
	return &Client{
		base:     u,
		apiKey:   opts.APIKey,
		http:     hc,
		now:      now,
		handlers: make(map[uint64]func(backend.SessionEvent)),
	}, nil
}

/*
====================================
WIRE TYPES
====================================
*/

type tokenResponse struct {
	AccessToken  string   `json:"access_token"`
	RefreshToken string   `json:"refresh_token"`
	ExpiresIn    int64    `json:"expires_in"`
	ExpiresAt    int64    `json:"expires_at"`
	User         userBody `json:"user"`
}

type userBody struct {
	ID      string                  `json:"id"`
	Email   string                  `json:"email"`
	Factors []backend.FactorPayload `json:"factors"`
}

type challengeBody struct {
	ID        string `json:"id"`
	ExpiresAt int64  `json:"expires_at"`
}

type errorBody struct {
	Code             json.RawMessage `json:"code"`
	ErrorCode        string          `json:"error_code"`
	Msg              string          `json:"msg"`
	Message          string          `json:"message"`
	Error            string          `json:"error"`
	ErrorDescription string          `json:"error_description"`
}

type accessClaims struct {
	Email string `json:"email"`
	AAL   string `json:"aal"`
	jwt.RegisteredClaims
}

/*
====================================
SESSION
====================================
*/

// GetSession returns the current session, refreshing it first when the access
// token has expired. A refresh the server rejects clears the session.
func (c *Client) GetSession(ctx context.Context) (*backend.Session, error) {
	c.mu.Lock()
	cur := c.current
	c.mu.Unlock()
	if cur == nil {
		return nil, nil
	}
	if cur.session.ExpiresAt.IsZero() || c.now().Before(cur.session.ExpiresAt) {
		return copySession(cur.session), nil
	}

	var tr tokenResponse
	err := c.do(ctx, http.MethodPost, "/token", url.Values{"grant_type": {"refresh_token"}},
		"", map[string]string{"refresh_token": cur.session.RefreshToken}, &tr)
	if err != nil {
		var be *backend.Error
		if errors.As(err, &be) && be.Status < 500 {
			c.clear()
			return nil, nil
		}
		return nil, err
	}
	ts, err := c.tokenSet(tr)
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	c.current = ts
	c.mu.Unlock()
	return copySession(ts.session), nil
}

// SignInWithPassword runs the password grant.
func (c *Client) SignInWithPassword(ctx context.Context, email, password string) (*backend.SignInResult, error) {
	var tr tokenResponse
	err := c.do(ctx, http.MethodPost, "/token", url.Values{"grant_type": {"password"}},
		"", map[string]string{"email": email, "password": password}, &tr)
	if err != nil {
		return nil, err
	}
	ts, err := c.tokenSet(tr)
	if err != nil {
		return nil, err
	}

	principal := &backend.Principal{ID: tr.User.ID, Email: tr.User.Email}
	verified := verifiedFactors(tr.User.Factors)
	if ts.aal != aal2 && len(verified) > 0 {
		c.mu.Lock()
		c.pending = ts
		c.mu.Unlock()
		return &backend.SignInResult{Principal: principal, Factors: verified}, nil
	}

	c.mu.Lock()
	c.current = ts
	c.pending = nil
	c.mu.Unlock()
	c.emit(backend.SessionEvent{Kind: backend.EventSignedIn, Session: copySession(ts.session)})
	return &backend.SignInResult{Session: copySession(ts.session), Principal: principal}, nil
}

// SignOut revokes the session server-side. The local session is cleared even
// when the request fails.
func (c *Client) SignOut(ctx context.Context) error {
	token := c.bearer()
	had := c.clear()

	var err error
	if token != "" {
		err = c.do(ctx, http.MethodPost, "/logout", nil, token, nil, nil)
	}
	if had {
		c.emit(backend.SessionEvent{Kind: backend.EventSignedOut})
	}
	return err
}

func (c *Client) OnSessionChange(handler func(backend.SessionEvent)) func() {
	c.hmu.Lock()
	id := c.nextHdlID
	c.nextHdlID++
	c.handlers[id] = handler
	c.hmu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			c.hmu.Lock()
			delete(c.handlers, id)
			c.hmu.Unlock()
		})
	}
}

// Restore installs a persisted session, as loaded from storage at startup,
// and announces it.
func (c *Client) Restore(sess backend.Session) {
	ts := &tokenSet{session: copySession(&sess), aal: aalOf(sess.AccessToken)}
	c.mu.Lock()
	c.current = ts
	c.mu.Unlock()
	c.emit(backend.SessionEvent{Kind: backend.EventRestored, Session: copySession(ts.session)})
}

/*
====================================
PASSWORD
====================================
*/

func (c *Client) ResetPasswordForEmail(ctx context.Context, email, redirectTo string) error {
	var q url.Values
	if redirectTo != "" {
		q = url.Values{"redirect_to": {redirectTo}}
	}
	return c.do(ctx, http.MethodPost, "/recover", q, "", map[string]string{"email": email}, nil)
}

func (c *Client) UpdatePassword(ctx context.Context, password string) error {
	token := c.bearer()
	if token == "" {
		return backend.ErrNoSession
	}
	return c.do(ctx, http.MethodPut, "/user", nil, token, map[string]string{"password": password}, nil)
}

/*
====================================
MFA
====================================
*/

func (c *Client) Challenge(ctx context.Context, factorID string) (*backend.ChallengeResponse, error) {
	token := c.stepUpBearer()
	if token == "" {
		return nil, backend.ErrNoSession
	}
	var cb challengeBody
	if err := c.do(ctx, http.MethodPost, "/factors/"+url.PathEscape(factorID)+"/challenge", nil, token, struct{}{}, &cb); err != nil {
		return nil, err
	}
	out := &backend.ChallengeResponse{ID: cb.ID}
	if cb.ExpiresAt > 0 {
		out.ExpiresAt = time.Unix(cb.ExpiresAt, 0).UTC()
	}
	return out, nil
}

// Verify submits code against a challenge. A successful reply carries an aal2
// session, which replaces the current one and is announced as signed in.
func (c *Client) Verify(ctx context.Context, factorID, challengeID, code string) error {
	token := c.stepUpBearer()
	if token == "" {
		return backend.ErrNoSession
	}
	var tr tokenResponse
	err := c.do(ctx, http.MethodPost, "/factors/"+url.PathEscape(factorID)+"/verify", nil, token,
		map[string]string{"challenge_id": challengeID, "code": code}, &tr)
	if err != nil {
		return err
	}
	ts, err := c.tokenSet(tr)
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.current = ts
	c.pending = nil
	c.mu.Unlock()
	c.emit(backend.SessionEvent{Kind: backend.EventSignedIn, Session: copySession(ts.session)})
	return nil
}

// VerifyFactor challenges and verifies in one step.
func (c *Client) VerifyFactor(ctx context.Context, factorID, code string) error {
	ch, err := c.Challenge(ctx, factorID)
	if err != nil {
		return err
	}
	return c.Verify(ctx, factorID, ch.ID, code)
}

func (c *Client) Enroll(ctx context.Context, req backend.EnrollRequest) (*backend.EnrollResponse, error) {
	token := c.bearer()
	if token == "" {
		return nil, backend.ErrNoSession
	}
	var out backend.EnrollResponse
	if err := c.do(ctx, http.MethodPost, "/factors", nil, token, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Unenroll(ctx context.Context, factorID string) error {
	token := c.bearer()
	if token == "" {
		return backend.ErrNoSession
	}
	return c.do(ctx, http.MethodDelete, "/factors/"+url.PathEscape(factorID), nil, token, nil, nil)
}

// ListFactors reads the factors attached to the signed-in user.
func (c *Client) ListFactors(ctx context.Context) ([]backend.FactorPayload, error) {
	token := c.stepUpBearer()
	if token == "" {
		return nil, backend.ErrNoSession
	}
	var u userBody
	if err := c.do(ctx, http.MethodGet, "/user", nil, token, nil, &u); err != nil {
		return nil, err
	}
	return u.Factors, nil
}

/*
====================================
TRANSPORT
====================================
*/

func (c *Client) do(ctx context.Context, method, path string, query url.Values, bearer string, in, out any) error {
	u := *c.base
	u.Path = c.base.Path + path
	if query != nil {
		u.RawQuery = query.Encode()
	}

	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("gotrue: encode %s %s: %w", method, path, err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return fmt.Errorf("gotrue: build %s %s: %w", method, path, err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("apikey", c.apiKey)
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return fmt.Errorf("gotrue: %s %s: %w", method, path, errors.Join(backend.ErrUnavailable, err))
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return decodeError(resp)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("gotrue: decode %s %s: %w", method, path, err)
	}
	return nil
}

func decodeError(resp *http.Response) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	be := &backend.Error{Status: resp.StatusCode}

	var eb errorBody
	if json.Unmarshal(data, &eb) != nil {
		be.Message = strings.TrimSpace(string(data))
		if be.Message == "" {
			be.Message = http.StatusText(resp.StatusCode)
		}
		return be
	}

	be.Code = eb.ErrorCode
	if be.Code == "" && len(eb.Code) > 0 && eb.Code[0] == '"' {
		_ = json.Unmarshal(eb.Code, &be.Code)
	}
	for _, msg := range []string{eb.Msg, eb.Message, eb.ErrorDescription, eb.Error} {
		if msg != "" {
			be.Message = msg
			break
		}
	}
	if be.Message == "" {
		be.Message = http.StatusText(resp.StatusCode)
	}
	return be
}

/*
====================================
HELPERS
====================================
*/

func (c *Client) tokenSet(tr tokenResponse) (*tokenSet, error) {
	if tr.AccessToken == "" {
		return nil, &backend.Error{Status: http.StatusBadGateway, Code: backend.CodeUnavailable, Message: "token response without access_token"}
	}
	sess := &backend.Session{
		UserID:       tr.User.ID,
		Email:        tr.User.Email,
		AccessToken:  tr.AccessToken,
		RefreshToken: tr.RefreshToken,
	}
	switch {
	case tr.ExpiresAt > 0:
		sess.ExpiresAt = time.Unix(tr.ExpiresAt, 0).UTC()
	case tr.ExpiresIn > 0:
		sess.ExpiresAt = c.now().Add(time.Duration(tr.ExpiresIn) * time.Second).UTC()
	}

	claims := parseClaims(tr.AccessToken)
	if sess.UserID == "" {
		sess.UserID = claims.Subject
	}
	if sess.Email == "" {
		sess.Email = claims.Email
	}
	aal := claims.AAL
	if aal == "" {
		aal = aal1
	}
	return &tokenSet{session: sess, aal: aal}, nil
}

// parseClaims reads the access token payload without checking the signature;
// the server that issued it is the only party that can verify it.
func parseClaims(token string) accessClaims {
	var claims accessClaims
	_, _, _ = jwt.NewParser().ParseUnverified(token, &claims)
	return claims
}

func aalOf(token string) string {
	if aal := parseClaims(token).AAL; aal != "" {
		return aal
	}
	return aal1
}

func (c *Client) bearer() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current == nil {
		return ""
	}
	return c.current.session.AccessToken
}

// stepUpBearer prefers the held-back aal1 token of a pending step-up.
func (c *Client) stepUpBearer() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pending != nil {
		return c.pending.session.AccessToken
	}
	if c.current == nil {
		return ""
	}
	return c.current.session.AccessToken
}

func (c *Client) clear() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	had := c.current != nil
	c.current = nil
	c.pending = nil
	return had
}

func (c *Client) emit(ev backend.SessionEvent) {
	c.hmu.Lock()
	hs := make([]func(backend.SessionEvent), 0, len(c.handlers))
	for _, h := range c.handlers {
		hs = append(hs, h)
	}
	c.hmu.Unlock()

	for _, h := range hs {
		h(ev)
	}
}

func verifiedFactors(in []backend.FactorPayload) []backend.FactorPayload {
	var out []backend.FactorPayload
	for _, f := range in {
		status := f.Status
		if status == "" {
			status = f.FactorStatus
		}
		if status == "verified" {
			out = append(out, f)
		}
	}
	return out
}

func copySession(s *backend.Session) *backend.Session {
	if s == nil {
		return nil
	}
	out := *s
	return &out
}
