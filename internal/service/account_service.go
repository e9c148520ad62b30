package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iliyamo/wellness-api/internal/auth"
	"github.com/iliyamo/wellness-api/internal/clock"
	"github.com/iliyamo/wellness-api/internal/model"
	"github.com/iliyamo/wellness-api/internal/repository"
	"github.com/iliyamo/wellness-api/internal/utils"
)

// Registration is a validated sign-up request.
type Registration struct {
	Email     string
	Password  string
	Nickname  string
	BirthDate clock.Date
	Sex       model.Sex
	HeightCm  decimal.Decimal
	WeightKg  decimal.Decimal
}

// ProfileChange carries the fields a PATCH touches; nil means unchanged.
type ProfileChange struct {
	Nickname  *string
	BirthDate *clock.Date
	Sex       *model.Sex
	HeightCm  *decimal.Decimal
	WeightKg  *decimal.Decimal
}

// AuthResult is returned by register and login.
type AuthResult struct {
	User model.User
	Pair auth.Pair
}

// AccountService owns users and their credential row.  It is the only
// place that issues a full token pair.
type AccountService struct {
	db         *sql.DB
	users      *repository.UserRepo
	creds      *repository.CredentialRepo
	issuer     *auth.Issuer
	recs       *RecommendationService
	intake     *IntakeService
	clock      clock.Clock
	bcryptCost int
}

func NewAccountService(db *sql.DB, users *repository.UserRepo, creds *repository.CredentialRepo, issuer *auth.Issuer,
	recs *RecommendationService, intake *IntakeService, clk clock.Clock, bcryptCost int) *AccountService {
	return &AccountService{db: db, users: users, creds: creds, issuer: issuer, recs: recs,
		intake: intake, clock: clk, bcryptCost: bcryptCost}
}

// validateProfile checks biometrics and returns the age on today.
func validateProfile(sex model.Sex, height, weight decimal.Decimal, birth clock.Date, today clock.Date) (int, error) {
	if !sex.Valid() {
		return 0, fmt.Errorf("%w: sex must be male or female", ErrInvalidProfile)
	}
	if !height.IsPositive() || !weight.IsPositive() {
		return 0, fmt.Errorf("%w: height and weight must be positive", ErrInvalidProfile)
	}
	if birth.IsZero() || !birth.Before(today) {
		return 0, fmt.Errorf("%w: birth date must be in the past", ErrInvalidProfile)
	}
	age := birth.YearsUntil(today)
	if age < 1 {
		return 0, fmt.Errorf("%w: age must be at least one year", ErrInvalidProfile)
	}
	return age, nil
}

// Register creates the user and its credential row in one transaction, then
// seeds the recommendation and today's total.
func (s *AccountService) Register(ctx context.Context, r Registration) (AuthResult, error) {
	r.Email = repository.NormalizeEmail(r.Email)
	if r.Email == "" || !strings.Contains(r.Email, "@") || r.Password == "" {
		return AuthResult{}, fmt.Errorf("%w: email and password required", ErrInvalidProfile)
	}
	now := s.clock.Now().Truncate(time.Microsecond)
	age, err := validateProfile(r.Sex, r.HeightCm, r.WeightKg, r.BirthDate, s.intake.DayOf(now))
	if err != nil {
		return AuthResult{}, err
	}
	hash, err := utils.HashPassword(r.Password, s.bcryptCost)
	if err != nil {
		return AuthResult{}, fmt.Errorf("hash password: %w", err)
	}
	u := model.User{
		Email: r.Email, PasswordHash: hash, Nickname: strings.TrimSpace(r.Nickname),
		BirthDate: r.BirthDate, Sex: r.Sex, HeightCm: r.HeightCm, WeightKg: r.WeightKg, Age: age,
		CreatedAt: now, UpdatedAt: now,
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return AuthResult{}, fmt.Errorf("begin register: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	if err := s.users.CreateTx(ctx, tx, &u); err != nil {
		return AuthResult{}, err
	}
	pair, err := s.issuer.IssuePair(u.ID, now)
	if err != nil {
		return AuthResult{}, fmt.Errorf("issue tokens: %w", err)
	}
	if err := s.creds.UpsertTx(ctx, tx, credentialOf(u.ID, pair)); err != nil {
		return AuthResult{}, fmt.Errorf("store credential: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return AuthResult{}, fmt.Errorf("commit register: %w", err)
	}
	committed = true

	// both are recreated lazily on first read, so a failure here only
	// costs latency later
	if _, err := s.recs.GetOrRefresh(ctx, u.ID); err != nil {
		log.Printf("account: seed recommendation user_id=%d: %v", u.ID, err)
	}
	if _, err := s.intake.GetOrCreate(ctx, u.ID, s.intake.DayOf(now)); err != nil {
		log.Printf("account: seed daily total user_id=%d: %v", u.ID, err)
	}
	return AuthResult{User: u, Pair: pair}, nil
}

// Login verifies the password and replaces the user's token pair.
func (s *AccountService) Login(ctx context.Context, email, password string) (AuthResult, error) {
	u, err := s.users.GetByEmail(ctx, email)
	if errors.Is(err, repository.ErrUserNotFound) {
		return AuthResult{}, ErrInvalidCredentials
	}
	if err != nil {
		return AuthResult{}, fmt.Errorf("load user: %w", err)
	}
	if !utils.VerifyPassword(u.PasswordHash, password) {
		return AuthResult{}, ErrInvalidCredentials
	}
	pair, err := s.issuer.IssuePair(u.ID, s.clock.Now())
	if err != nil {
		return AuthResult{}, fmt.Errorf("issue tokens: %w", err)
	}
	if err := s.creds.Upsert(ctx, credentialOf(u.ID, pair)); err != nil {
		return AuthResult{}, fmt.Errorf("store credential: %w", err)
	}
	return AuthResult{User: u, Pair: pair}, nil
}

// UpdateProfile applies ch and moves updated_at strictly forward, which
// marks the stored recommendation stale.
func (s *AccountService) UpdateProfile(ctx context.Context, userID uint64, ch ProfileChange) (model.User, error) {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return model.User{}, err
	}
	if ch.Nickname != nil {
		u.Nickname = strings.TrimSpace(*ch.Nickname)
	}
	if ch.BirthDate != nil {
		u.BirthDate = *ch.BirthDate
	}
	if ch.Sex != nil {
		u.Sex = *ch.Sex
	}
	if ch.HeightCm != nil {
		u.HeightCm = *ch.HeightCm
	}
	if ch.WeightKg != nil {
		u.WeightKg = *ch.WeightKg
	}
	now := s.clock.Now().Truncate(time.Microsecond)
	age, err := validateProfile(u.Sex, u.HeightCm, u.WeightKg, u.BirthDate, s.intake.DayOf(now))
	if err != nil {
		return model.User{}, err
	}
	u.Age = age
	if floor := u.UpdatedAt.Add(time.Microsecond); now.Before(floor) {
		now = floor
	}
	u.UpdatedAt = now
	if err := s.users.UpdateProfile(ctx, u); err != nil {
		return model.User{}, err
	}
	return u, nil
}

func credentialOf(userID uint64, p auth.Pair) model.Credential {
	return model.Credential{
		UserID:           userID,
		AccessToken:      p.Access.Token,
		AccessIssuedAt:   p.Access.IssuedAt,
		AccessExpiresAt:  p.Access.ExpiresAt,
		RefreshToken:     p.Refresh.Token,
		RefreshIssuedAt:  p.Refresh.IssuedAt,
		RefreshExpiresAt: p.Refresh.ExpiresAt,
	}
}
