package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/iliyamo/wellness-api/internal/clock"
	"github.com/iliyamo/wellness-api/internal/model"
	"github.com/iliyamo/wellness-api/internal/repository"
)

// Harris-Benedict (revised) coefficients and the moderate activity factor.
var (
	maleBase     = decimal.RequireFromString("88.362")
	maleWeight   = decimal.RequireFromString("13.397")
	maleHeight   = decimal.RequireFromString("4.799")
	maleAge      = decimal.RequireFromString("5.677")
	femaleBase   = decimal.RequireFromString("447.593")
	femaleWeight = decimal.RequireFromString("9.247")
	femaleHeight = decimal.RequireFromString("3.098")
	femaleAge    = decimal.RequireFromString("4.330")

	activityFactor = decimal.RequireFromString("1.55")
	carbShare      = decimal.RequireFromString("0.5")
	proteinShare   = decimal.RequireFromString("0.3")
	fatShare       = decimal.RequireFromString("0.2")
	kcalPerGramCP  = decimal.NewFromInt(4)
	kcalPerGramFat = decimal.NewFromInt(9)
)

// ComputeTargets derives daily targets from biometrics.  Every component is
// computed from the unrounded kcal and rounded half-up to 2 places at the
// end.
func ComputeTargets(sex model.Sex, weightKg, heightCm decimal.Decimal, age int) (model.Nutrients, error) {
	if !weightKg.IsPositive() || !heightCm.IsPositive() || age <= 0 {
		return model.Nutrients{}, ErrInvalidProfile
	}
	a := decimal.NewFromInt(int64(age))
	var bmr decimal.Decimal
	switch sex {
	case model.SexMale:
		bmr = maleBase.Add(maleWeight.Mul(weightKg)).Add(maleHeight.Mul(heightCm)).Sub(maleAge.Mul(a))
	case model.SexFemale:
		bmr = femaleBase.Add(femaleWeight.Mul(weightKg)).Add(femaleHeight.Mul(heightCm)).Sub(femaleAge.Mul(a))
	default:
		return model.Nutrients{}, ErrInvalidProfile
	}
	if !bmr.IsPositive() {
		return model.Nutrients{}, ErrInvalidProfile
	}
	kcal := bmr.Mul(activityFactor)
	return model.Nutrients{
		Kcal:    kcal,
		Carb:    kcal.Mul(carbShare).Div(kcalPerGramCP),
		Protein: kcal.Mul(proteinShare).Div(kcalPerGramCP),
		Fat:     kcal.Mul(fatShare).Div(kcalPerGramFat),
	}.Round(2), nil
}

// RecommendationService keeps each user's stored recommendation in step
// with their profile.
type RecommendationService struct {
	users *repository.UserRepo
	recs  *repository.RecommendationRepo
	clock clock.Clock
}

func NewRecommendationService(users *repository.UserRepo, recs *repository.RecommendationRepo, clk clock.Clock) *RecommendationService {
	return &RecommendationService{users: users, recs: recs, clock: clk}
}

// GetOrRefresh returns the stored recommendation, recomputing it first when
// it is missing or older than the user's last profile change.
func (s *RecommendationService) GetOrRefresh(ctx context.Context, userID uint64) (model.Recommendation, error) {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return model.Recommendation{}, err
	}
	rec, err := s.recs.GetByUserID(ctx, userID)
	switch {
	case err == nil:
		if !rec.UpdatedAt.Before(u.UpdatedAt) {
			return rec, nil
		}
	case !errors.Is(err, repository.ErrNotFound):
		return model.Recommendation{}, fmt.Errorf("load recommendation: %w", err)
	}

	target, err := ComputeTargets(u.Sex, u.WeightKg, u.HeightCm, u.Age)
	if err != nil {
		return model.Recommendation{}, fmt.Errorf("%w: user_id=%d: %v", ErrRecommendationCompute, userID, err)
	}
	now := s.clock.Now()
	if now.Before(u.UpdatedAt) {
		now = u.UpdatedAt
	}
	rec = model.Recommendation{UserID: userID, Target: target, UpdatedAt: now}
	if err := s.recs.Upsert(ctx, rec); err != nil {
		return model.Recommendation{}, fmt.Errorf("store recommendation: %w", err)
	}
	return rec, nil
}
