package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-0123456789"

func newTestIssuer(t *testing.T) *Issuer {
	t.Helper()
	iss, err := NewIssuer(testSecret, "HS256", 30*time.Minute, 14*24*time.Hour)
	require.NoError(t, err)
	return iss
}

func TestNewIssuer_RejectsBadConfig(t *testing.T) {
	_, err := NewIssuer(testSecret, "RS256", time.Minute, time.Hour)
	assert.Error(t, err)
	_, err = NewIssuer(testSecret, "none", time.Minute, time.Hour)
	assert.Error(t, err)
	_, err = NewIssuer("", "HS256", time.Minute, time.Hour)
	assert.Error(t, err)
	_, err = NewIssuer(testSecret, "HS512", 0, time.Hour)
	assert.Error(t, err)
}

func TestIssuer_IsDeterministic(t *testing.T) {
	iss := newTestIssuer(t)
	at := time.Date(2024, 3, 10, 8, 0, 0, 400_000_000, time.UTC)

	a, err := iss.IssueAccess(42, at)
	require.NoError(t, err)
	b, err := iss.IssueAccess(42, at)
	require.NoError(t, err)

	assert.Equal(t, a.Token, b.Token)
	assert.Equal(t, time.Date(2024, 3, 10, 8, 0, 0, 0, time.UTC), a.IssuedAt)
	assert.Equal(t, a.IssuedAt.Add(30*time.Minute), a.ExpiresAt)

	pair, err := iss.IssuePair(42, at)
	require.NoError(t, err)
	assert.Equal(t, a.Token, pair.Access.Token)
	assert.Equal(t, a.IssuedAt.Add(14*24*time.Hour), pair.Refresh.ExpiresAt)
	assert.NotEqual(t, pair.Access.Token, pair.Refresh.Token)
}

func TestIssuer_DecodeIgnoresExpiryButChecksType(t *testing.T) {
	iss := newTestIssuer(t)
	at := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	pair, err := iss.IssuePair(7, at)
	require.NoError(t, err)

	claims, err := iss.Decode(pair.Access.Token, AccessToken)
	require.NoError(t, err)
	sub, err := claims.UserID()
	require.NoError(t, err)
	assert.Equal(t, uint64(7), sub)
	assert.True(t, Expired(claims, time.Now()))
	assert.False(t, Expired(claims, at.Add(time.Minute)))
	assert.ErrorIs(t, Live(claims, time.Now()), ErrTokenExpired)
	assert.NoError(t, Live(claims, at.Add(time.Minute)))

	_, err = iss.Decode(pair.Refresh.Token, AccessToken)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestIssuer_DecodeRejectsTampering(t *testing.T) {
	iss := newTestIssuer(t)
	tok, err := iss.IssueAccess(7, time.Now())
	require.NoError(t, err)

	parts := strings.Split(tok.Token, ".")
	require.Len(t, parts, 3)
	sig := []byte(parts[2])
	if sig[0] == 'A' {
		sig[0] = 'B'
	} else {
		sig[0] = 'A'
	}
	tampered := parts[0] + "." + parts[1] + "." + string(sig)

	_, err = iss.Decode(tampered, AccessToken)
	assert.ErrorIs(t, err, ErrTokenInvalid)

	_, err = iss.Decode("not-a-jwt", AccessToken)
	assert.ErrorIs(t, err, ErrTokenInvalid)

	other, err := NewIssuer("another-secret", "HS256", time.Minute, time.Hour)
	require.NoError(t, err)
	foreign, err := other.IssueAccess(7, time.Now())
	require.NoError(t, err)
	_, err = iss.Decode(foreign.Token, AccessToken)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestIssuer_DecodeRejectsOtherAlgorithms(t *testing.T) {
	iss := newTestIssuer(t)
	claims := Claims{Type: AccessToken, RegisteredClaims: jwt.RegisteredClaims{
		Subject:   "7",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)

	_, err = iss.Decode(signed, AccessToken)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}
