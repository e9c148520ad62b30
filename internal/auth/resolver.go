package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/iliyamo/wellness-api/internal/clock"
	"github.com/iliyamo/wellness-api/internal/model"
	"github.com/iliyamo/wellness-api/internal/repository"
)

// Presented is what a client sent: the bearer access token and, optionally,
// the refresh token it holds.
type Presented struct {
	Access  string
	Refresh string
}

// Session is the resolved identity.  Rotated is set when the presented
// access token had expired and a new one replaced it; the caller must hand
// it back to the client.
type Session struct {
	User    model.User
	Rotated *IssuedToken
}

// adoptWindow bounds how long after a rotation a request still holding the
// replaced token may pick up its successor.
const adoptWindow = 10 * time.Second

// Resolver turns a presented token pair into a Session, rotating the access
// token when it has expired and the refresh token still holds.
type Resolver struct {
	db     *sql.DB
	issuer *Issuer
	creds  *repository.CredentialRepo
	users  *repository.UserRepo
	clock  clock.Clock
}

func NewResolver(db *sql.DB, issuer *Issuer, creds *repository.CredentialRepo, users *repository.UserRepo, clk clock.Clock) *Resolver {
	return &Resolver{db: db, issuer: issuer, creds: creds, users: users, clock: clk}
}

// Resolve verifies p.Access.  A live token must still be held by a
// credential row; an expired one is rotated under a row lock.
func (r *Resolver) Resolve(ctx context.Context, p Presented) (Session, error) {
	claims, err := r.issuer.Decode(p.Access, AccessToken)
	if err != nil {
		return Session{}, err
	}
	now := r.clock.Now()
	if err := Live(claims, now); errors.Is(err, ErrTokenExpired) {
		return r.rotate(ctx, claims, p, now)
	}

	cred, err := r.creds.GetByAccessToken(ctx, p.Access)
	if errors.Is(err, repository.ErrNotFound) {
		return Session{}, ErrTokenNotFound
	}
	if err != nil {
		return Session{}, fmt.Errorf("lookup credential: %w", err)
	}
	if sub, _ := claims.UserID(); sub != cred.UserID {
		return Session{}, ErrTokenNotFound
	}
	u, err := r.users.GetByID(ctx, cred.UserID)
	if err != nil {
		return Session{}, err
	}
	return Session{User: u}, nil
}

func (r *Resolver) rotate(ctx context.Context, claims *Claims, p Presented, now time.Time) (Session, error) {
	sub, _ := claims.UserID()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return Session{}, fmt.Errorf("begin rotate: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	cred, err := r.creds.GetByUserIDForUpdateTx(ctx, tx, sub)
	if errors.Is(err, repository.ErrNotFound) {
		return Session{}, ErrRefreshExpired
	}
	if err != nil {
		return Session{}, fmt.Errorf("lock credential: %w", err)
	}
	if p.Refresh != "" && p.Refresh != cred.RefreshToken {
		return Session{}, ErrRefreshExpired
	}
	if !now.Before(cred.RefreshExpiresAt) {
		return Session{}, ErrRefreshExpired
	}
	rc, err := r.issuer.Decode(cred.RefreshToken, RefreshToken)
	if err != nil {
		return Session{}, ErrRefreshInvalid
	}
	if rsub, _ := rc.UserID(); rsub != sub {
		return Session{}, ErrRefreshInvalid
	}

	u, err := r.users.GetByIDTx(ctx, tx, sub)
	if err != nil {
		return Session{}, err
	}

	if cred.AccessToken != p.Access {
		if rotatedConcurrently(cred, claims, p, now) {
			if err := tx.Commit(); err != nil {
				return Session{}, fmt.Errorf("commit rotate: %w", err)
			}
			committed = true
			return Session{User: u, Rotated: &IssuedToken{
				Token: cred.AccessToken, IssuedAt: cred.AccessIssuedAt, ExpiresAt: cred.AccessExpiresAt,
			}}, nil
		}
		return Session{}, ErrTokenNotFound
	}

	next, err := r.issuer.IssueAccess(sub, now)
	if err != nil {
		return Session{}, fmt.Errorf("issue access: %w", err)
	}
	if err := r.creds.UpdateAccessTx(ctx, tx, sub, next.Token, next.IssuedAt, next.ExpiresAt); err != nil {
		return Session{}, fmt.Errorf("store rotated access: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return Session{}, fmt.Errorf("commit rotate: %w", err)
	}
	committed = true
	log.Printf("auth: rotated access token user_id=%d expires_at=%s", sub, next.ExpiresAt.Format(time.RFC3339))
	return Session{User: u, Rotated: &next}, nil
}

// rotatedConcurrently reports whether cred holds a token minted moments ago
// by another request that rotated the same expired token.  Adoption hands
// out a live token, so it needs the matching refresh token (already checked
// against the row by the caller), no login since the presented token was
// issued, and a rotation no older than adoptWindow.  Anything older is a
// superseded token and is not found.
func rotatedConcurrently(cred model.Credential, claims *Claims, p Presented, now time.Time) bool {
	if p.Refresh == "" || claims.IssuedAt == nil || cred.RefreshIssuedAt.After(claims.IssuedAt.Time) {
		return false
	}
	if cred.AccessIssuedAt.Before(claims.ExpiresAt.Time) || now.Sub(cred.AccessIssuedAt) > adoptWindow {
		return false
	}
	return now.Before(cred.AccessExpiresAt)
}
