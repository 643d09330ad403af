package auth

import (
	"testing"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/mission-service/internal/domain"
)

var testIdentity = domain.Identity{
	ID:        "7f1c3e0a-0000-4000-8000-000000000001",
	Email:     "a@x.com",
	Role:      domain.RoleFinance,
	FirstName: "Ana",
	LastName:  "Lopes",
}

func fixedCodec(secret string, at time.Time) *TokenCodec {
	codec := NewTokenCodec(secret, 0)
	codec.now = func() time.Time { return at }
	return codec
}

func TestNewTokenCodecDefaultsTTL(t *testing.T) {
	assert.Equal(t, DefaultTokenTTL, NewTokenCodec("s", 0).ttl)
	assert.Equal(t, DefaultTokenTTL, NewTokenCodec("s", -time.Minute).ttl)
	assert.Equal(t, time.Hour, NewTokenCodec("s", time.Hour).ttl)
}

func TestIssueVerifyRoundTrip(t *testing.T) {
	issuedAt := time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC)
	codec := fixedCodec("secret", issuedAt)

	token, exp, err := codec.Issue(testIdentity)
	require.NoError(t, err)
	assert.Equal(t, issuedAt.Add(DefaultTokenTTL), exp)

	codec.now = func() time.Time { return issuedAt.Add(23 * time.Hour) }
	claims, err := codec.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, testIdentity, claims.Identity())
	assert.True(t, exp.Equal(claims.ExpiresAt.Time))
}

func TestVerifyRejectsExpiredToken(t *testing.T) {
	issuedAt := time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC)
	codec := fixedCodec("secret", issuedAt)

	token, _, err := codec.IssueWithTTL(testIdentity, 0)
	require.NoError(t, err)

	codec.now = func() time.Time { return issuedAt.Add(time.Second) }
	claims, err := codec.Verify(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
	assert.Nil(t, claims)
}

func TestVerifyFailuresAreUniform(t *testing.T) {
	issuedAt := time.Now()
	codec := fixedCodec("secret", issuedAt)
	good, _, err := codec.Issue(testIdentity)
	require.NoError(t, err)

	otherKey, _, err := fixedCodec("other-secret", issuedAt).Issue(testIdentity)
	require.NoError(t, err)

	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, &Claims{
		UserID:           testIdentity.ID,
		Role:             domain.RoleAdmin,
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(issuedAt.Add(time.Hour))},
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	noExpiry, err := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{UserID: testIdentity.ID}).SignedString([]byte("secret"))
	require.NoError(t, err)

	cases := map[string]string{
		"empty":         "",
		"garbage":       "not-a-token",
		"truncated":     good[:len(good)-4],
		"wrong key":     otherKey,
		"alg none":      unsigned,
		"missing exp":   noExpiry,
		"two segments":  "a.b",
		"tampered body": good[:10] + "x" + good[11:],
	}
	for name, token := range cases {
		t.Run(name, func(t *testing.T) {
			claims, err := codec.Verify(token)
			assert.Same(t, ErrInvalidToken, err)
			assert.Nil(t, claims)
		})
	}
}

func TestDecodeUnsafeSkipsVerification(t *testing.T) {
	issuedAt := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	token, _, err := fixedCodec("some-other-key", issuedAt).IssueWithTTL(testIdentity, time.Minute)
	require.NoError(t, err)

	claims := decodeUnsafe(token)
	require.NotNil(t, claims)
	assert.Equal(t, testIdentity, claims.Identity())

	_, err = NewTokenCodec("secret", time.Hour).Verify(token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	assert.Nil(t, decodeUnsafe("only.two"))
	assert.Nil(t, decodeUnsafe("a.!!!.c"))
}
