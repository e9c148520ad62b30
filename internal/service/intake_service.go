package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/iliyamo/wellness-api/internal/clock"
	"github.com/iliyamo/wellness-api/internal/model"
	"github.com/iliyamo/wellness-api/internal/repository"
)

// IntakeService maintains the per-day running totals.  It is the only code
// that turns an instant into a calendar date.
type IntakeService struct {
	db       *sql.DB
	totals   *repository.DailyTotalRepo
	recs     *RecommendationService
	calendar clock.Calendar
	clock    clock.Clock
}

func NewIntakeService(db *sql.DB, totals *repository.DailyTotalRepo, recs *RecommendationService, cal clock.Calendar, clk clock.Clock) *IntakeService {
	return &IntakeService{db: db, totals: totals, recs: recs, calendar: cal, clock: clk}
}

// DayOf maps an instant to the configured local calendar date.
func (s *IntakeService) DayOf(t time.Time) clock.Date { return s.calendar.DayOf(t) }

// Today is DayOf(now).
func (s *IntakeService) Today() clock.Date { return s.calendar.DayOf(s.clock.Now()) }

// GetOrCreate returns the (user, date) row, creating an empty one if needed.
// Losing the insert race to a concurrent creator is retried once by
// re-reading; a second failure is ErrStorageUnavailable.
func (s *IntakeService) GetOrCreate(ctx context.Context, userID uint64, date clock.Date) (model.DailyTotal, error) {
	t, err := s.totals.Get(ctx, userID, date)
	if err == nil {
		return t, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return model.DailyTotal{}, fmt.Errorf("load daily total: %w", err)
	}

	t, err = s.totals.Insert(ctx, userID, date, s.clock.Now())
	if err == nil {
		t.MealIDs = []uint64{}
		return t, nil
	}
	if errors.Is(err, repository.ErrUserNotFound) {
		return model.DailyTotal{}, err
	}
	if !errors.Is(err, repository.ErrDuplicate) {
		return model.DailyTotal{}, fmt.Errorf("create daily total: %w", err)
	}

	err = fmt.Errorf("%w: daily total user_id=%d date=%s", ErrConflictRetryable, userID, date)
	t, rerr := s.totals.Get(ctx, userID, date)
	if rerr != nil {
		return model.DailyTotal{}, fmt.Errorf("%w: %v (after %v)", ErrStorageUnavailable, rerr, err)
	}
	return t, nil
}

// RecordMeal folds food into the user's total for date and links the meal
// log, all in one transaction.  The day row is created first if missing.
func (s *IntakeService) RecordMeal(ctx context.Context, userID uint64, date clock.Date, food model.Food, mealLogID uint64) (model.DailyTotal, error) {
	if _, err := s.GetOrCreate(ctx, userID, date); err != nil {
		return model.DailyTotal{}, err
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return model.DailyTotal{}, fmt.Errorf("begin record meal: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	t, err := s.RecordMealTx(ctx, tx, userID, date, food, mealLogID)
	if err != nil {
		return model.DailyTotal{}, err
	}
	if err := tx.Commit(); err != nil {
		return model.DailyTotal{}, fmt.Errorf("commit record meal: %w", err)
	}
	committed = true
	return t, nil
}

// RecordMealTx is RecordMeal inside a caller-owned transaction.  The day
// row must already exist (see GetOrCreate).
func (s *IntakeService) RecordMealTx(ctx context.Context, tx *sql.Tx, userID uint64, date clock.Date, food model.Food, mealLogID uint64) (model.DailyTotal, error) {
	day, err := s.totals.GetForUpdateTx(ctx, tx, userID, date)
	if err != nil {
		return model.DailyTotal{}, fmt.Errorf("lock daily total: %w", err)
	}
	now := s.clock.Now()
	if err := s.totals.AddTx(ctx, tx, day.ID, food.PerServing, now); err != nil {
		return model.DailyTotal{}, fmt.Errorf("add to daily total: %w", err)
	}
	if err := s.totals.AppendMealTx(ctx, tx, day.ID, mealLogID); err != nil {
		return model.DailyTotal{}, fmt.Errorf("link meal %d: %w", mealLogID, err)
	}
	t, err := s.totals.GetByIDTx(ctx, tx, day.ID)
	if err != nil {
		return model.DailyTotal{}, fmt.Errorf("reread daily total: %w", err)
	}
	return t, nil
}

// RefreshCondition sets t.OverTarget to total kcal > recommended kcal and
// persists it only when the flag flips.
func (s *IntakeService) RefreshCondition(ctx context.Context, t *model.DailyTotal, rec model.Recommendation) error {
	over := t.Totals.Kcal.GreaterThan(rec.Target.Kcal)
	if over == t.OverTarget {
		return nil
	}
	now := s.clock.Now()
	if err := s.totals.SetOverTarget(ctx, t.ID, over, now); err != nil {
		return fmt.Errorf("store condition: %w", err)
	}
	t.OverTarget = over
	t.UpdatedAt = now
	return nil
}

// DailySummary is what the nutrients endpoint reports for one day.
type DailySummary struct {
	Recommendation model.Recommendation
	Total          model.DailyTotal
}

// Summary refreshes the recommendation if stale, ensures the day row and
// re-evaluates the condition flag.
func (s *IntakeService) Summary(ctx context.Context, userID uint64, date clock.Date) (DailySummary, error) {
	rec, err := s.recs.GetOrRefresh(ctx, userID)
	if err != nil {
		return DailySummary{}, err
	}
	t, err := s.GetOrCreate(ctx, userID, date)
	if err != nil {
		return DailySummary{}, err
	}
	if err := s.RefreshCondition(ctx, &t, rec); err != nil {
		return DailySummary{}, err
	}
	return DailySummary{Recommendation: rec, Total: t}, nil
}
