// Package token signs and verifies the self-contained credentials issued to
// API clients. Tokens carry a subject (the account email), a kind that keeps
// access and refresh credentials from being swapped for one another, and an
// absolute expiry.
package token

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Kind distinguishes the two credentials minted per login.
type Kind string

const (
	// KindAccess is the short-lived credential presented on API calls.
	KindAccess Kind = "access"
	// KindRefresh is the longer-lived credential used only to mint new pairs.
	KindRefresh Kind = "refresh"
)

var (
	// ErrMalformed indicates the token could not be parsed at all.
	ErrMalformed = errors.New("token: malformed")
	// ErrSignatureInvalid indicates the signature does not match the secret.
	ErrSignatureInvalid = errors.New("token: invalid signature")
	// ErrExpired indicates the token was valid but its expiry has passed.
	ErrExpired = errors.New("token: expired")
)

// Claims are the verified assertions carried by a token.
type Claims struct {
	Kind Kind `json:"token_type"`
	jwt.RegisteredClaims
}

// Codec issues and decodes HS256-signed tokens with a process-wide symmetric
// secret. The secret is loaded once at startup and never rotated at runtime.
type Codec struct {
	secret []byte
	issuer string
	now    func() time.Time
}

// Option configures a Codec.
type Option func(*Codec)

// WithIssuer overrides the issuer claim stamped into tokens.
func WithIssuer(issuer string) Option {
	return func(c *Codec) {
		if issuer = strings.TrimSpace(issuer); issuer != "" {
			c.issuer = issuer
		}
	}
}

// WithClock overrides the time source (useful for tests).
func WithClock(fn func() time.Time) Option {
	return func(c *Codec) {
		if fn != nil {
			c.now = fn
		}
	}
}

// NewCodec constructs a Codec from the signing secret.
func NewCodec(secret string, opts ...Option) (*Codec, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, errors.New("token: signing secret is required")
	}
	c := &Codec{
		secret: []byte(secret),
		issuer: "trove",
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Issue signs a token of the given kind for subject, expiring ttl from now.
func (c *Codec) Issue(subject string, kind Kind, ttl time.Duration) (string, time.Time, error) {
	subject = strings.TrimSpace(subject)
	if subject == "" {
		return "", time.Time{}, errors.New("token: subject is required")
	}
	if kind != KindAccess && kind != KindRefresh {
		return "", time.Time{}, errors.New("token: unknown kind")
	}
	if ttl <= 0 {
		return "", time.Time{}, errors.New("token: ttl must be greater than zero")
	}

	now := c.now().UTC()
	exp := now.Add(ttl)
	claims := Claims{
		Kind: kind,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    c.issuer,
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
			ID:        uuid.NewString(),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, exp, nil
}

// Decode verifies signature and expiry and returns the embedded claims.
// Failures map to exactly one of ErrMalformed, ErrSignatureInvalid or
// ErrExpired; unsigned or tampered claims are never returned.
func (c *Codec) Decode(raw string) (*Claims, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, ErrMalformed
	}

	var claims Claims
	_, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (any, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, ErrSignatureInvalid
		}
		return c.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(c.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(func() time.Time { return c.now().UTC() }),
	)
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, ErrExpired
		case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrSignatureInvalid):
			return nil, ErrSignatureInvalid
		default:
			return nil, ErrMalformed
		}
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return nil, ErrMalformed
	}
	if claims.Kind != KindAccess && claims.Kind != KindRefresh {
		return nil, ErrMalformed
	}
	return &claims, nil
}
