package model

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/iliyamo/wellness-api/internal/clock"
)

// Nutrients is the kcal/carbohydrate/protein/fat quadruple shared by foods,
// recommendations and daily totals.
type Nutrients struct {
	Kcal    decimal.Decimal
	Carb    decimal.Decimal
	Protein decimal.Decimal
	Fat     decimal.Decimal
}

// Round rounds every component half away from zero.
func (n Nutrients) Round(places int32) Nutrients {
	return Nutrients{
		Kcal:    n.Kcal.Round(places),
		Carb:    n.Carb.Round(places),
		Protein: n.Protein.Round(places),
		Fat:     n.Fat.Round(places),
	}
}

// Recommendation is the daily target stored in `recommendations`.
type Recommendation struct {
	UserID    uint64
	Target    Nutrients // stored rounded to 2 places
	UpdatedAt time.Time
}

// DailyTotal is one user's running intake for one local calendar date.
// Totals keep full precision; callers round for display only.
type DailyTotal struct {
	ID         uint64
	UserID     uint64
	Date       clock.Date
	Totals     Nutrients
	OverTarget bool     // total kcal strictly above the recommendation
	MealIDs    []uint64 // meal logs folded into the totals, in insertion order
	CreatedAt  time.Time
	UpdatedAt  time.Time
}
