package auth

import (
	"errors"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"

	"github.com/spec-kit/mission-service/internal/domain"
)

// DefaultTokenTTL is used when no positive TTL is configured.
const DefaultTokenTTL = 24 * time.Hour

// ErrInvalidToken is the only failure Verify reports. Expired, malformed
// and badly signed tokens are indistinguishable to callers.
var ErrInvalidToken = errors.New("invalid or expired token")

// TokenCodec issues and verifies HS256 bearer tokens.
type TokenCodec struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenCodec builds a codec signing with secret.
func NewTokenCodec(secret string, ttl time.Duration) *TokenCodec {
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &TokenCodec{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Claims describes the JWT payload.
type Claims struct {
	UserID    string      `json:"id"`
	Email     string      `json:"email"`
	Role      domain.Role `json:"role"`
	FirstName string      `json:"firstName"`
	LastName  string      `json:"lastName"`
	jwt.RegisteredClaims
}

// Identity returns the identity fields carried by the claims.
func (c *Claims) Identity() domain.Identity {
	return domain.Identity{
		ID:        c.UserID,
		Email:     c.Email,
		Role:      c.Role,
		FirstName: c.FirstName,
		LastName:  c.LastName,
	}
}

// Issue signs a token for identity using the configured TTL.
func (tc *TokenCodec) Issue(identity domain.Identity) (string, time.Time, error) {
	return tc.IssueWithTTL(identity, tc.ttl)
}

// IssueWithTTL signs a token expiring ttl from now. A zero ttl yields a
// token that is already expired.
func (tc *TokenCodec) IssueWithTTL(identity domain.Identity, ttl time.Duration) (string, time.Time, error) {
	issuedAt := tc.now()
	expiresAt := issuedAt.Add(ttl)
	claims := &Claims{
		UserID:    identity.ID,
		Email:     identity.Email,
		Role:      identity.Role,
		FirstName: identity.FirstName,
		LastName:  identity.LastName,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   identity.ID,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(tc.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return tokenString, expiresAt, nil
}

// Verify checks signature and expiry and returns the claims.
func (tc *TokenCodec) Verify(tokenStr string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return tc.secret, nil
	},
		jwt.WithTimeFunc(tc.now),
		jwt.WithExpirationRequired(),
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
	)
	if err != nil {
		return nil, ErrInvalidToken
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// decodeUnsafe reads the claims of a token without checking signature or
// expiry. Diagnostics only; nothing in the request path may call it.
func decodeUnsafe(tokenStr string) *Claims {
	claims := &Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(tokenStr, claims); err != nil {
		return nil
	}
	return claims
}
