package service

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/wellness-api/internal/clock"
	"github.com/iliyamo/wellness-api/internal/model"
	"github.com/iliyamo/wellness-api/internal/repository"
)

var march10 = clock.Date{Year: 2024, Month: time.March, Day: 10}

func TestIntake_DayOfUsesLocalZone(t *testing.T) {
	// 15:30 UTC is already the next morning in Seoul
	f := newFixture(t, time.Date(2024, 3, 9, 15, 30, 0, 0, time.UTC))
	assert.Equal(t, march10, f.intake.Today())
	assert.Equal(t, clock.Date{Year: 2024, Month: time.March, Day: 9},
		f.intake.DayOf(time.Date(2024, 3, 9, 14, 59, 59, 0, time.UTC)))
}

func TestGetOrCreate_Existing(t *testing.T) {
	now := time.Date(2024, 3, 10, 3, 0, 0, 0, time.UTC)
	f := newFixture(t, now)

	f.mock.ExpectQuery(regexp.QuoteMeta(qDay)).WithArgs(uint64(1), "2024-03-10").
		WillReturnRows(dayRow(5, 1, "2024-03-10", "300.5", false, now))
	f.mock.ExpectQuery(regexp.QuoteMeta(qDayMealIDs)).WithArgs(uint64(5)).WillReturnRows(mealIDRows(11, 12))

	d, err := f.intake.GetOrCreate(context.Background(), 1, march10)
	require.NoError(t, err)
	assert.Equal(t, uint64(5), d.ID)
	assert.Equal(t, []uint64{11, 12}, d.MealIDs)
	require.NoError(t, f.mock.ExpectationsWereMet())
}

func TestGetOrCreate_Creates(t *testing.T) {
	now := time.Date(2024, 3, 10, 3, 0, 0, 0, time.UTC)
	f := newFixture(t, now)

	f.mock.ExpectQuery(regexp.QuoteMeta(qDay)).WithArgs(uint64(1), "2024-03-10").WillReturnRows(sqlmock.NewRows(totalCols))
	f.mock.ExpectExec(regexp.QuoteMeta("INSERT INTO daily_totals")).WithArgs(uint64(1), "2024-03-10", now, now).
		WillReturnResult(sqlmock.NewResult(8, 1))

	d, err := f.intake.GetOrCreate(context.Background(), 1, march10)
	require.NoError(t, err)
	assert.Equal(t, uint64(8), d.ID)
	assert.True(t, d.Totals.Kcal.IsZero())
	assert.Empty(t, d.MealIDs)
	assert.False(t, d.OverTarget)
	require.NoError(t, f.mock.ExpectationsWereMet())
}

func TestGetOrCreate_LostRaceRereads(t *testing.T) {
	now := time.Date(2024, 3, 10, 3, 0, 0, 0, time.UTC)
	f := newFixture(t, now)

	f.mock.ExpectQuery(regexp.QuoteMeta(qDay)).WillReturnRows(sqlmock.NewRows(totalCols))
	f.mock.ExpectExec(regexp.QuoteMeta("INSERT INTO daily_totals")).
		WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry"})
	f.mock.ExpectQuery(regexp.QuoteMeta(qDay)).WillReturnRows(dayRow(5, 1, "2024-03-10", "0", false, now))
	f.mock.ExpectQuery(regexp.QuoteMeta(qDayMealIDs)).WillReturnRows(mealIDRows())

	d, err := f.intake.GetOrCreate(context.Background(), 1, march10)
	require.NoError(t, err)
	assert.Equal(t, uint64(5), d.ID)
	require.NoError(t, f.mock.ExpectationsWereMet())
}

func TestGetOrCreate_Failures(t *testing.T) {
	now := time.Date(2024, 3, 10, 3, 0, 0, 0, time.UTC)

	t.Run("reread fails", func(t *testing.T) {
		f := newFixture(t, now)
		f.mock.ExpectQuery(regexp.QuoteMeta(qDay)).WillReturnRows(sqlmock.NewRows(totalCols))
		f.mock.ExpectExec(regexp.QuoteMeta("INSERT INTO daily_totals")).
			WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry"})
		f.mock.ExpectQuery(regexp.QuoteMeta(qDay)).WillReturnError(errors.New("connection reset"))

		_, err := f.intake.GetOrCreate(context.Background(), 1, march10)
		assert.ErrorIs(t, err, ErrStorageUnavailable)
	})

	t.Run("unknown user", func(t *testing.T) {
		f := newFixture(t, now)
		f.mock.ExpectQuery(regexp.QuoteMeta(qDay)).WillReturnRows(sqlmock.NewRows(totalCols))
		f.mock.ExpectExec(regexp.QuoteMeta("INSERT INTO daily_totals")).
			WillReturnError(&mysql.MySQLError{Number: 1452, Message: "foreign key"})

		_, err := f.intake.GetOrCreate(context.Background(), 99, march10)
		assert.ErrorIs(t, err, repository.ErrUserNotFound)
	})
}

func TestRecordMeal_AddsInOneTransaction(t *testing.T) {
	now := time.Date(2024, 3, 10, 3, 0, 0, 0, time.UTC)
	f := newFixture(t, now)
	food := model.Food{CategoryID: 3, PerServing: model.Nutrients{
		Kcal: decimal.RequireFromString("200.25"), Carb: decimal.RequireFromString("30"),
		Protein: decimal.RequireFromString("10"), Fat: decimal.RequireFromString("5.5")}}

	f.mock.ExpectQuery(regexp.QuoteMeta(qDay)).WillReturnRows(dayRow(5, 1, "2024-03-10", "800.5", false, now))
	f.mock.ExpectQuery(regexp.QuoteMeta(qDayMealIDs)).WillReturnRows(mealIDRows(1, 2))
	f.mock.ExpectBegin()
	f.mock.ExpectQuery(regexp.QuoteMeta(qDayLock)).WithArgs(uint64(1), "2024-03-10").
		WillReturnRows(dayRow(5, 1, "2024-03-10", "800.5", false, now))
	f.mock.ExpectExec(regexp.QuoteMeta("UPDATE daily_totals")).
		WithArgs("200.25", "30", "10", "5.5", now, uint64(5)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	f.mock.ExpectExec(regexp.QuoteMeta("INSERT INTO daily_total_meals")).WithArgs(uint64(5), uint64(3)).
		WillReturnResult(sqlmock.NewResult(3, 1))
	f.mock.ExpectQuery(regexp.QuoteMeta(qDayByID)).WithArgs(uint64(5)).
		WillReturnRows(dayRow(5, 1, "2024-03-10", "1000.750000", false, now))
	f.mock.ExpectQuery(regexp.QuoteMeta(qDayMealIDs)).WillReturnRows(mealIDRows(1, 2, 3))
	f.mock.ExpectCommit()

	d, err := f.intake.RecordMeal(context.Background(), 1, march10, food, 3)
	require.NoError(t, err)
	assert.Equal(t, "1000.75", d.Totals.Kcal.StringFixed(2))
	assert.Equal(t, []uint64{1, 2, 3}, d.MealIDs)
	require.NoError(t, f.mock.ExpectationsWereMet())
}

func TestRecordMeal_RollsBackOnLinkFailure(t *testing.T) {
	now := time.Date(2024, 3, 10, 3, 0, 0, 0, time.UTC)
	f := newFixture(t, now)

	f.mock.ExpectQuery(regexp.QuoteMeta(qDay)).WillReturnRows(dayRow(5, 1, "2024-03-10", "0", false, now))
	f.mock.ExpectQuery(regexp.QuoteMeta(qDayMealIDs)).WillReturnRows(mealIDRows())
	f.mock.ExpectBegin()
	f.mock.ExpectQuery(regexp.QuoteMeta(qDayLock)).WillReturnRows(dayRow(5, 1, "2024-03-10", "0", false, now))
	f.mock.ExpectExec(regexp.QuoteMeta("UPDATE daily_totals")).WillReturnResult(sqlmock.NewResult(0, 1))
	f.mock.ExpectExec(regexp.QuoteMeta("INSERT INTO daily_total_meals")).
		WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry"})
	f.mock.ExpectRollback()

	_, err := f.intake.RecordMeal(context.Background(), 1, march10, model.Food{}, 3)
	assert.ErrorIs(t, err, repository.ErrDuplicate)
	require.NoError(t, f.mock.ExpectationsWereMet())
}

func TestRefreshCondition(t *testing.T) {
	now := time.Date(2024, 3, 10, 3, 0, 0, 0, time.UTC)
	rec := model.Recommendation{Target: model.Nutrients{Kcal: decimal.RequireFromString("2000.00")}}

	t.Run("under target and unchanged does not write", func(t *testing.T) {
		f := newFixture(t, now)
		d := model.DailyTotal{ID: 5, Totals: model.Nutrients{Kcal: decimal.RequireFromString("1000.75")}}

		require.NoError(t, f.intake.RefreshCondition(context.Background(), &d, rec))
		assert.False(t, d.OverTarget)
		require.NoError(t, f.mock.ExpectationsWereMet())
	})

	t.Run("equal to target is not over", func(t *testing.T) {
		f := newFixture(t, now)
		d := model.DailyTotal{ID: 5, Totals: model.Nutrients{Kcal: decimal.RequireFromString("2000")}}

		require.NoError(t, f.intake.RefreshCondition(context.Background(), &d, rec))
		assert.False(t, d.OverTarget)
	})

	t.Run("crossing the target writes once", func(t *testing.T) {
		f := newFixture(t, now)
		d := model.DailyTotal{ID: 5, Totals: model.Nutrients{Kcal: decimal.RequireFromString("2000.01")}}
		f.mock.ExpectExec(regexp.QuoteMeta("UPDATE daily_totals SET over_target=?")).WithArgs(true, now, uint64(5)).
			WillReturnResult(sqlmock.NewResult(0, 1))

		require.NoError(t, f.intake.RefreshCondition(context.Background(), &d, rec))
		assert.True(t, d.OverTarget)
		assert.Equal(t, now, d.UpdatedAt)
		require.NoError(t, f.intake.RefreshCondition(context.Background(), &d, rec))
		require.NoError(t, f.mock.ExpectationsWereMet())
	})

	t.Run("raised target clears the flag", func(t *testing.T) {
		f := newFixture(t, now)
		d := model.DailyTotal{ID: 5, OverTarget: true, Totals: model.Nutrients{Kcal: decimal.RequireFromString("1500")}}
		f.mock.ExpectExec(regexp.QuoteMeta("UPDATE daily_totals SET over_target=?")).WithArgs(false, now, uint64(5)).
			WillReturnResult(sqlmock.NewResult(0, 1))

		require.NoError(t, f.intake.RefreshCondition(context.Background(), &d, rec))
		assert.False(t, d.OverTarget)
		require.NoError(t, f.mock.ExpectationsWereMet())
	})
}

func TestSummary(t *testing.T) {
	now := time.Date(2024, 3, 10, 3, 0, 0, 0, time.UTC)
	f := newFixture(t, now)

	f.mock.ExpectQuery(regexp.QuoteMeta(qUser)).WillReturnRows(userRow(1, "male", now.Add(-time.Hour)))
	f.mock.ExpectQuery(regexp.QuoteMeta(qRec)).WillReturnRows(recRow(1, "2000.00", now.Add(-time.Minute)))
	f.mock.ExpectQuery(regexp.QuoteMeta(qDay)).WillReturnRows(dayRow(5, 1, "2024-03-10", "100.005000", true, now))
	f.mock.ExpectQuery(regexp.QuoteMeta(qDayMealIDs)).WillReturnRows(mealIDRows(1))
	f.mock.ExpectExec(regexp.QuoteMeta("UPDATE daily_totals SET over_target=?")).WithArgs(false, now, uint64(5)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	s, err := f.intake.Summary(context.Background(), 1, march10)
	require.NoError(t, err)
	assert.Equal(t, "2000.00", s.Recommendation.Target.Kcal.StringFixed(2))
	assert.Equal(t, "100.01", s.Total.Totals.Kcal.StringFixed(2))
	assert.False(t, s.Total.OverTarget)
	require.NoError(t, f.mock.ExpectationsWereMet())
}

func TestRecordMeal_SumsAtFullPrecisionAndRoundsOnce(t *testing.T) {
	now := time.Date(2024, 3, 10, 3, 0, 0, 0, time.UTC)
	f := newFixture(t, now)
	foods := repository.NewFoodRepo(f.db)

	meals := []struct {
		category uint32
		kcal     string
		sent     string
		before   string
		after    string
	}{
		{1, "100.005000", "100.005", "0", "100.005000"},
		{2, "250.333000", "250.333", "100.005000", "350.338000"},
		{3, "75.000000", "75", "350.338000", "425.338000"},
	}

	var got model.DailyTotal
	for i, m := range meals {
		mealID := uint64(i + 1)
		f.mock.ExpectQuery(regexp.QuoteMeta("FROM food_categories WHERE category_id=?")).WithArgs(m.category).
			WillReturnRows(sqlmock.NewRows(foodCols).AddRow(m.category, "c", "f", m.kcal, "0", "0", "0"))
		food, err := foods.GetByCategory(context.Background(), m.category)
		require.NoError(t, err)

		f.mock.ExpectQuery(regexp.QuoteMeta(qDay)).WillReturnRows(dayRow(5, 1, "2024-03-10", m.before, false, now))
		f.mock.ExpectQuery(regexp.QuoteMeta(qDayMealIDs)).WillReturnRows(mealIDRows())
		f.mock.ExpectBegin()
		f.mock.ExpectQuery(regexp.QuoteMeta(qDayLock)).WillReturnRows(dayRow(5, 1, "2024-03-10", m.before, false, now))
		// the per-serving value reaches the store unrounded
		f.mock.ExpectExec(regexp.QuoteMeta("UPDATE daily_totals")).
			WithArgs(m.sent, "0", "0", "0", now, uint64(5)).
			WillReturnResult(sqlmock.NewResult(0, 1))
		f.mock.ExpectExec(regexp.QuoteMeta("INSERT INTO daily_total_meals")).WithArgs(uint64(5), mealID).
			WillReturnResult(sqlmock.NewResult(int64(mealID), 1))
		f.mock.ExpectQuery(regexp.QuoteMeta(qDayByID)).WithArgs(uint64(5)).
			WillReturnRows(dayRow(5, 1, "2024-03-10", m.after, false, now))
		f.mock.ExpectQuery(regexp.QuoteMeta(qDayMealIDs)).WillReturnRows(mealIDRows())
		f.mock.ExpectCommit()

		got, err = f.intake.RecordMeal(context.Background(), 1, march10, food, mealID)
		require.NoError(t, err)
	}

	assert.True(t, decimal.RequireFromString("425.338").Equal(got.Totals.Kcal))
	assert.Equal(t, "425.34", got.Totals.Round(2).Kcal.StringFixed(2))
	require.NoError(t, f.mock.ExpectationsWereMet())
}
