package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/iliyamo/wellness-api/internal/model"
)

// CredentialRepo persists the one-row-per-user token pair.  Tokens are
// stored as issued so a presented bearer string can be matched exactly.
type CredentialRepo struct{ DB *sql.DB }

func NewCredentialRepo(db *sql.DB) *CredentialRepo { return &CredentialRepo{DB: db} }

const credentialColumns = "user_id,access_token,access_issued_at,access_expires_at,refresh_token,refresh_issued_at,refresh_expires_at"

// Upsert stores a freshly issued pair, replacing whatever the user held.
func (r *CredentialRepo) Upsert(ctx context.Context, c model.Credential) error {
	return r.upsert(ctx, r.DB, c)
}

// UpsertTx is Upsert inside tx.
func (r *CredentialRepo) UpsertTx(ctx context.Context, tx *sql.Tx, c model.Credential) error {
	return r.upsert(ctx, tx, c)
}

func (r *CredentialRepo) upsert(ctx context.Context, q querier, c model.Credential) error {
	_, err := q.ExecContext(ctx,
		`INSERT INTO credentials (`+credentialColumns+`) VALUES (?,?,?,?,?,?,?)
		 ON DUPLICATE KEY UPDATE
		   access_token=VALUES(access_token), access_issued_at=VALUES(access_issued_at), access_expires_at=VALUES(access_expires_at),
		   refresh_token=VALUES(refresh_token), refresh_issued_at=VALUES(refresh_issued_at), refresh_expires_at=VALUES(refresh_expires_at)`,
		c.UserID, c.AccessToken, c.AccessIssuedAt, c.AccessExpiresAt,
		c.RefreshToken, c.RefreshIssuedAt, c.RefreshExpiresAt)
	if IsMissingReference(err) {
		return ErrUserNotFound
	}
	return err
}

// GetByAccessToken finds the row currently holding token.  Returns
// ErrNotFound when no row matches.
func (r *CredentialRepo) GetByAccessToken(ctx context.Context, token string) (model.Credential, error) {
	return scanCredential(r.DB.QueryRowContext(ctx,
		"SELECT "+credentialColumns+" FROM credentials WHERE access_token=? LIMIT 1", token))
}

// GetByUserIDForUpdateTx reads and locks the user's row until tx ends.
func (r *CredentialRepo) GetByUserIDForUpdateTx(ctx context.Context, tx *sql.Tx, userID uint64) (model.Credential, error) {
	return scanCredential(tx.QueryRowContext(ctx,
		"SELECT "+credentialColumns+" FROM credentials WHERE user_id=? FOR UPDATE", userID))
}

// UpdateAccessTx replaces the access half of the user's row in place.
func (r *CredentialRepo) UpdateAccessTx(ctx context.Context, tx *sql.Tx, userID uint64, token string, issuedAt, expiresAt time.Time) error {
	res, err := tx.ExecContext(ctx,
		"UPDATE credentials SET access_token=?, access_issued_at=?, access_expires_at=? WHERE user_id=?",
		token, issuedAt, expiresAt, userID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func scanCredential(row *sql.Row) (model.Credential, error) {
	var c model.Credential
	err := row.Scan(&c.UserID, &c.AccessToken, &c.AccessIssuedAt, &c.AccessExpiresAt,
		&c.RefreshToken, &c.RefreshIssuedAt, &c.RefreshExpiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Credential{}, ErrNotFound
	}
	return c, err
}
