package model

import (
	"time"

	"github.com/iliyamo/wellness-api/internal/clock"
)

// MealType is reference data seeded into `meal_types`.
type MealType uint8

const (
	MealBreakfast MealType = 1
	MealLunch     MealType = 2
	MealDinner    MealType = 3
	MealOther     MealType = 4
)

func (m MealType) String() string {
	switch m {
	case MealBreakfast:
		return "breakfast"
	case MealLunch:
		return "lunch"
	case MealDinner:
		return "dinner"
	}
	return "other"
}

// MealTypeForHour buckets a local wall-clock hour: 06-08 breakfast,
// 11-13 lunch, 17-19 dinner, anything else other.
func MealTypeForHour(hour int) MealType {
	switch {
	case hour >= 6 && hour <= 8:
		return MealBreakfast
	case hour >= 11 && hour <= 13:
		return MealLunch
	case hour >= 17 && hour <= 19:
		return MealDinner
	}
	return MealOther
}

// Food is a classifier category with nutrients per serving.
type Food struct {
	CategoryID   uint32
	CategoryName string
	FoodName     string
	PerServing   Nutrients
}

// MealLog is an append-only record of one classified photo.
type MealLog struct {
	ID         uint64
	UserID     uint64
	CategoryID uint32
	MealType   MealType
	ImageURL   string
	CapturedAt time.Time
	LoggedDate clock.Date
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// MealEntry is a meal log joined with its food, used for listings.
type MealEntry struct {
	MealLog
	Food Food
}

// RequestLog is one handled HTTP request in `request_logs`.
type RequestLog struct {
	ID         uint64
	Method     string
	URL        string
	Query      string
	StatusCode int
	Message    string
	CreatedAt  time.Time
}
