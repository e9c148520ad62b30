package model

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/iliyamo/wellness-api/internal/clock"
)

// Sex selects the BMR coefficient set.
type Sex string

const (
	SexMale   Sex = "male"
	SexFemale Sex = "female"
)

func (s Sex) Valid() bool { return s == SexMale || s == SexFemale }

// User represents a row of the `users` table.  Age is derived from BirthDate
// whenever the profile is written and stored alongside it.  UpdatedAt moves
// strictly forward on every profile mutation; recommendations compare
// against it to decide staleness.
type User struct {
	ID           uint64          // users.id
	Email        string          // users.email (unique, lower-cased)
	PasswordHash string          // users.password_hash (bcrypt)
	Nickname     string          // users.nickname
	BirthDate    clock.Date      // users.birth_date
	Sex          Sex             // users.sex
	HeightCm     decimal.Decimal // users.height_cm
	WeightKg     decimal.Decimal // users.weight_kg
	Age          int             // users.age
	CreatedAt    time.Time       // users.created_at
	UpdatedAt    time.Time       // users.updated_at
}

// Credential is the single token row a user owns in `credentials`.  Login
// and registration overwrite both halves; access rotation overwrites only
// the access half.  Rows are never deleted.
type Credential struct {
	UserID           uint64
	AccessToken      string
	AccessIssuedAt   time.Time
	AccessExpiresAt  time.Time
	RefreshToken     string
	RefreshIssuedAt  time.Time
	RefreshExpiresAt time.Time
}
