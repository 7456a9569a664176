package memory

import (
	"crypto/rand"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Claims are carried by access tokens.
type Claims struct {
	Email string `json:"email"`
	AAL   string `json:"aal"`
	jwt.RegisteredClaims
}

type tokenIssuer struct {
	issuer string
	key    []byte
	ttl    time.Duration
}

func newTokenIssuer(issuer string, key []byte, ttl time.Duration) (*tokenIssuer, error) {
	if len(key) == 0 {
		key = make([]byte, 32)
		if _, err := rand.Read(key); err != nil {
			return nil, err
		}
	}
	if len(key) < 32 {
		return nil, errors.New("memory: signing key must be at least 32 bytes")
	}
	return &tokenIssuer{issuer: issuer, key: append([]byte(nil), key...), ttl: ttl}, nil
}

func (t *tokenIssuer) issue(userID, email, aal string, now time.Time) (string, error) {
	claims := Claims{
		Email: email,
		AAL:   aal,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    t.issuer,
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.key)
}

func (t *tokenIssuer) parse(token string, now time.Time) (*Claims, error) {
	var claims Claims
	_, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return t.key, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(t.issuer),
		jwt.WithTimeFunc(func() time.Time { return now }),
	)
	if err != nil {
		return nil, err
	}
	return &claims, nil
}
