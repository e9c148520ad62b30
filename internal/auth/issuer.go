// Package auth issues and verifies the access/refresh JWT pair and resolves
// a presented pair into an authenticated session.
package auth

import (
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenType distinguishes the two halves of a pair in the "typ" claim.
type TokenType string

const (
	AccessToken  TokenType = "access"
	RefreshToken TokenType = "refresh"
)

// Claims are the registered claims plus the token type.
type Claims struct {
	Type TokenType `json:"typ"`
	jwt.RegisteredClaims
}

// UserID parses the subject claim.
func (c *Claims) UserID() (uint64, error) { return strconv.ParseUint(c.Subject, 10, 64) }

// IssuedToken is a signed token and the instants it carries.
type IssuedToken struct {
	Token     string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Pair is what login and registration hand out.
type Pair struct {
	Access  IssuedToken
	Refresh IssuedToken
}

// Issuer signs tokens with one HMAC key.  Issuing is pure: the same
// subject, instant and key always yield the same string.
type Issuer struct {
	method     *jwt.SigningMethodHMAC
	key        []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
}

// NewIssuer accepts HS256, HS384 or HS512.  Anything else is a
// configuration error.
func NewIssuer(secret, alg string, accessTTL, refreshTTL time.Duration) (*Issuer, error) {
	if secret == "" {
		return nil, fmt.Errorf("auth: empty signing secret")
	}
	m, ok := jwt.GetSigningMethod(alg).(*jwt.SigningMethodHMAC)
	if !ok {
		return nil, fmt.Errorf("auth: unsupported signing algorithm %q", alg)
	}
	if accessTTL <= 0 || refreshTTL <= 0 {
		return nil, fmt.Errorf("auth: token lifetimes must be positive")
	}
	return &Issuer{method: m, key: []byte(secret), accessTTL: accessTTL, refreshTTL: refreshTTL}, nil
}

func (i *Issuer) IssueAccess(subject uint64, issuedAt time.Time) (IssuedToken, error) {
	return i.issue(AccessToken, subject, issuedAt, i.accessTTL)
}

func (i *Issuer) IssueRefresh(subject uint64, issuedAt time.Time) (IssuedToken, error) {
	return i.issue(RefreshToken, subject, issuedAt, i.refreshTTL)
}

// IssuePair issues both halves at the same instant.
func (i *Issuer) IssuePair(subject uint64, issuedAt time.Time) (Pair, error) {
	access, err := i.IssueAccess(subject, issuedAt)
	if err != nil {
		return Pair{}, err
	}
	refresh, err := i.IssueRefresh(subject, issuedAt)
	if err != nil {
		return Pair{}, err
	}
	return Pair{Access: access, Refresh: refresh}, nil
}

func (i *Issuer) issue(typ TokenType, subject uint64, issuedAt time.Time, ttl time.Duration) (IssuedToken, error) {
	// NumericDate has second precision; truncate so the returned instants
	// match what a verifier reads back.
	iat := issuedAt.UTC().Truncate(time.Second)
	exp := iat.Add(ttl)
	claims := Claims{
		Type: typ,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(subject, 10),
			IssuedAt:  jwt.NewNumericDate(iat),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	signed, err := jwt.NewWithClaims(i.method, claims).SignedString(i.key)
	if err != nil {
		return IssuedToken{}, err
	}
	return IssuedToken{Token: signed, IssuedAt: iat, ExpiresAt: exp}, nil
}

// Decode verifies signature, algorithm and type, but not expiry; callers
// compare ExpiresAt against their own clock.  Every failure is
// ErrTokenInvalid.
func (i *Issuer) Decode(raw string, want TokenType) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(raw, claims,
		func(*jwt.Token) (any, error) { return i.key, nil },
		jwt.WithValidMethods([]string{i.method.Alg()}),
		jwt.WithoutClaimsValidation(),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}
	if claims.Type != want || claims.ExpiresAt == nil {
		return nil, ErrTokenInvalid
	}
	if _, err := claims.UserID(); err != nil {
		return nil, ErrTokenInvalid
	}
	return claims, nil
}

// Expired reports whether claims are past expiry at now.
func Expired(c *Claims, now time.Time) bool { return !now.Before(c.ExpiresAt.Time) }

// Live returns ErrTokenExpired once claims are past expiry at now.
func Live(c *Claims, now time.Time) error {
	if Expired(c, now) {
		return ErrTokenExpired
	}
	return nil
}
