package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/iliyamo/wellness-api/internal/model"
)

type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

const userColumns = "id,email,password_hash,nickname,birth_date,sex,height_cm,weight_kg,age,created_at,updated_at"

// NormalizeEmail lower-cases and trims an address before it is stored or
// looked up.
func NormalizeEmail(email string) string { return strings.ToLower(strings.TrimSpace(email)) }

// CreateTx inserts u and sets its ID.  The caller supplies the hash and
// timestamps.
func (r *UserRepo) CreateTx(ctx context.Context, tx *sql.Tx, u *model.User) error {
	return r.create(ctx, tx, u)
}

// Create is CreateTx outside a transaction.
func (r *UserRepo) Create(ctx context.Context, u *model.User) error { return r.create(ctx, r.DB, u) }

func (r *UserRepo) create(ctx context.Context, q querier, u *model.User) error {
	u.Email = NormalizeEmail(u.Email)
	res, err := q.ExecContext(ctx,
		"INSERT INTO users (email,password_hash,nickname,birth_date,sex,height_cm,weight_kg,age,created_at,updated_at) VALUES (?,?,?,?,?,?,?,?,?,?)",
		u.Email, u.PasswordHash, u.Nickname, u.BirthDate, string(u.Sex), u.HeightCm, u.WeightKg, u.Age, u.CreatedAt, u.UpdatedAt)
	if err != nil {
		if IsDuplicate(err) {
			return ErrEmailExists
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	u.ID = uint64(id)
	return nil
}

// GetByEmail fetches a user by normalized email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (model.User, error) {
	return scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE email=? LIMIT 1", NormalizeEmail(email)))
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (model.User, error) {
	return r.getByID(ctx, r.DB, id)
}

// GetByIDTx reads the user inside tx.
func (r *UserRepo) GetByIDTx(ctx context.Context, tx *sql.Tx, id uint64) (model.User, error) {
	return r.getByID(ctx, tx, id)
}

func (r *UserRepo) getByID(ctx context.Context, q querier, id uint64) (model.User, error) {
	return scanUser(q.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE id=? LIMIT 1", id))
}

// UpdateProfile writes the mutable profile fields and updated_at.
func (r *UserRepo) UpdateProfile(ctx context.Context, u model.User) error {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE users SET nickname=?, birth_date=?, sex=?, height_cm=?, weight_kg=?, age=?, updated_at=? WHERE id=?",
		u.Nickname, u.BirthDate, string(u.Sex), u.HeightCm, u.WeightKg, u.Age, u.UpdatedAt, u.ID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrUserNotFound
	}
	return nil
}

func scanUser(row *sql.Row) (model.User, error) {
	var (
		u   model.User
		sex string
	)
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Nickname, &u.BirthDate, &sex,
		&u.HeightCm, &u.WeightKg, &u.Age, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.User{}, ErrUserNotFound
	}
	if err != nil {
		return model.User{}, err
	}
	u.Sex = model.Sex(sex)
	return u, nil
}
