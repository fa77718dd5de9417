package auth

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/oklog/ulid/v2"
)

// Purpose tags what a token may be used for. A token is only accepted
// where its purpose matches the one the caller expects.
type Purpose string

const (
	PurposeAccess      Purpose = "access"
	PurposeReset       Purpose = "reset"
	PurposeVerifyEmail Purpose = "verify_email"
)

// IsValid reports whether p is a known purpose.
func (p Purpose) IsValid() bool {
	switch p {
	case PurposeAccess, PurposeReset, PurposeVerifyEmail:
		return true
	}
	return false
}

var (
	// ErrInvalidSignature covers any token that cannot be authenticated:
	// bad signature, wrong algorithm, truncated or malformed input.
	ErrInvalidSignature = errors.New("invalid token signature")
	// ErrExpired is returned for an authentic token past its expiry.
	ErrExpired = errors.New("token expired")
	// ErrPurposeMismatch is returned for an authentic, unexpired token
	// issued for a different purpose.
	ErrPurposeMismatch = errors.New("token purpose mismatch")
	// ErrEmptySecret is returned when constructing an issuer without a secret.
	ErrEmptySecret = errors.New("token secret must not be empty")
	// ErrEmptySubject is returned when issuing a token without a subject.
	ErrEmptySubject = errors.New("token subject must not be empty")
	// ErrStaleBinding is returned when a bound token no longer matches the
	// state it was issued against.
	ErrStaleBinding = errors.New("token binding no longer matches")
)

// Claims are the validated contents of a token.
type Claims struct {
	Subject   string
	Purpose   Purpose
	IssuedAt  time.Time
	ExpiresAt time.Time
	ID        string
	// Binding is set for tokens issued with IssueBound.
	Binding string
}

type tokenClaims struct {
	jwt.RegisteredClaims
	Purpose Purpose `json:"purpose"`
	Binding string  `json:"bnd,omitempty"`
}

// TokenIssuer signs and validates HS256 tokens with a process-wide secret.
// The secret is injected at construction and never read from the environment.
type TokenIssuer struct {
	secret []byte
	now    func() time.Time
}

// NewTokenIssuer creates a TokenIssuer for the given secret.
func NewTokenIssuer(secret []byte) (*TokenIssuer, error) {
	if len(secret) == 0 {
		return nil, ErrEmptySecret
	}
	key := make([]byte, len(secret))
	copy(key, secret)
	return &TokenIssuer{secret: key, now: time.Now}, nil
}

// WithClock returns a copy of the issuer that reads the current time from now.
func (i *TokenIssuer) WithClock(now func() time.Time) *TokenIssuer {
	cp := *i
	cp.now = now
	return &cp
}

// Issue creates a signed token for subject that is valid for ttl.
func (i *TokenIssuer) Issue(subject string, purpose Purpose, ttl time.Duration) (string, error) {
	return i.issue(subject, purpose, ttl, "")
}

// IssueBound is like Issue but ties the token to state. The token only passes
// CheckBinding while the caller still presents the same state, so changing
// the state revokes every token bound to it. state never appears in the token.
func (i *TokenIssuer) IssueBound(subject string, purpose Purpose, ttl time.Duration, state string) (string, error) {
	if state == "" {
		return "", errors.New("token binding state must not be empty")
	}
	return i.issue(subject, purpose, ttl, i.bind(state))
}

// CheckBinding reports ErrStaleBinding unless claims were issued by
// IssueBound with the same state.
func (i *TokenIssuer) CheckBinding(claims *Claims, state string) error {
	if claims == nil || claims.Binding == "" || state == "" {
		return ErrStaleBinding
	}
	if !hmac.Equal([]byte(claims.Binding), []byte(i.bind(state))) {
		return ErrStaleBinding
	}
	return nil
}

// bind returns 16 bytes of HMAC-SHA256(secret, state) as hex.
func (i *TokenIssuer) bind(state string) string {
	mac := hmac.New(sha256.New, i.secret)
	mac.Write([]byte("binding:"))
	mac.Write([]byte(state))
	return hex.EncodeToString(mac.Sum(nil)[:16])
}

func (i *TokenIssuer) issue(subject string, purpose Purpose, ttl time.Duration, binding string) (string, error) {
	if subject == "" {
		return "", ErrEmptySubject
	}
	if !purpose.IsValid() {
		return "", fmt.Errorf("unknown token purpose %q", purpose)
	}

	now := i.now()
	id, err := ulid.New(ulid.Timestamp(now), rand.Reader)
	if err != nil {
		return "", fmt.Errorf("generate token id: %w", err)
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, tokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        id.String(),
		},
		Purpose: purpose,
		Binding: binding,
	})

	signed, err := token.SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Validate authenticates token and checks it is unexpired and issued for want.
// Checks run in order: signature, expiry, purpose.
func (i *TokenIssuer) Validate(token string, want Purpose) (*Claims, error) {
	var claims tokenClaims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return i.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithoutClaimsValidation(),
	)
	if err != nil || !parsed.Valid {
		return nil, ErrInvalidSignature
	}

	if claims.ExpiresAt == nil || claims.Subject == "" {
		return nil, ErrInvalidSignature
	}
	if !i.now().Before(claims.ExpiresAt.Time) {
		return nil, ErrExpired
	}

	if claims.Purpose != want {
		return nil, ErrPurposeMismatch
	}

	out := &Claims{
		Subject:   claims.Subject,
		Purpose:   claims.Purpose,
		ExpiresAt: claims.ExpiresAt.Time,
		ID:        claims.ID,
		Binding:   claims.Binding,
	}
	if claims.IssuedAt != nil {
		out.IssuedAt = claims.IssuedAt.Time
	}
	return out, nil
}
