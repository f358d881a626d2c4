package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"quizhub-api/internal/domain"
)

const tokenTTL = 24 * time.Hour

// TokenCodec signs and verifies the compact credential carried by clients.
// The signing secret is the authority boundary; it is injected from config
// and must never be logged.
type TokenCodec struct {
	secret []byte
	now    func() time.Time
}

type claims struct {
	Email string      `json:"email"`
	Role  domain.Role `json:"role"`
	jwt.RegisteredClaims
}

// NewTokenCodec builds a codec around the shared secret. The clock is
// injectable for expiry tests.
func NewTokenCodec(secret string, now func() time.Time) *TokenCodec {
	if now == nil {
		now = time.Now
	}
	return &TokenCodec{secret: []byte(secret), now: now}
}

// Issue encodes {id, email, role} into a signed token valid for one day.
func (c *TokenCodec) Issue(identity domain.Identity) (string, error) {
	issuedAt := c.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		Email: identity.Email,
		Role:  identity.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   identity.ID,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(issuedAt.Add(tokenTTL)),
		},
	})
	return token.SignedString(c.secret)
}

// Verify decodes and validates a token. Malformed envelopes, bad signatures
// and elapsed expiries all collapse to the same authentication error.
func (c *TokenCodec) Verify(token string) (domain.Identity, error) {
	parsed, err := jwt.ParseWithClaims(token, &claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return c.secret, nil
	}, jwt.WithTimeFunc(c.now))
	if err != nil {
		return domain.Identity{}, domain.Unauthenticated("")
	}
	decoded, ok := parsed.Claims.(*claims)
	if !ok || !parsed.Valid {
		return domain.Identity{}, domain.Unauthenticated("")
	}
	return domain.Identity{
		ID:    decoded.Subject,
		Email: decoded.Email,
		Role:  decoded.Role,
	}, nil
}
