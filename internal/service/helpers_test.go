package service

import (
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/wellness-api/internal/clock"
	"github.com/iliyamo/wellness-api/internal/repository"
)

var (
	userCols  = []string{"id", "email", "password_hash", "nickname", "birth_date", "sex", "height_cm", "weight_kg", "age", "created_at", "updated_at"}
	recCols   = []string{"user_id", "rec_kcal", "rec_carb", "rec_protein", "rec_fat", "updated_at"}
	totalCols = []string{"id", "user_id", "local_date", "total_kcal", "total_carb", "total_protein", "total_fat", "over_target", "created_at", "updated_at"}
	foodCols  = []string{"category_id", "category_name", "food_name", "kcal", "carb", "protein", "fat"}
)

const (
	qUser       = "FROM users WHERE id=?"
	qRec        = "FROM recommendations WHERE user_id=?"
	qDay        = "FROM daily_totals WHERE user_id=? AND local_date=?"
	qDayLock    = "FROM daily_totals WHERE user_id=? AND local_date=? FOR UPDATE"
	qDayByID    = "FROM daily_totals WHERE id=?"
	qDayMealIDs = "FROM daily_total_meals WHERE daily_total_id=?"
)

// fixture wires real repositories and services over one sqlmock connection.
type fixture struct {
	db     *sql.DB
	mock   sqlmock.Sqlmock
	clock  *clock.Manual
	cal    clock.Calendar
	users  *repository.UserRepo
	recs   *RecommendationService
	intake *IntakeService
}

func newFixture(t *testing.T, now time.Time) *fixture {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	seoul, err := time.LoadLocation("Asia/Seoul")
	require.NoError(t, err)

	f := &fixture{db: db, mock: mock, clock: clock.NewManual(now), cal: clock.NewCalendar(seoul)}
	f.users = repository.NewUserRepo(db)
	f.recs = NewRecommendationService(f.users, repository.NewRecommendationRepo(db), f.clock)
	f.intake = NewIntakeService(db, repository.NewDailyTotalRepo(db), f.recs, f.cal, f.clock)
	return f
}

func userRow(id uint64, sex string, updated time.Time) *sqlmock.Rows {
	return sqlmock.NewRows(userCols).AddRow(id, "kim@example.com", "hash", "kim",
		[]byte("1994-03-01"), sex, "175.0", "70.0", 30, updated, updated)
}

func recRow(userID uint64, kcal string, updated time.Time) *sqlmock.Rows {
	return sqlmock.NewRows(recCols).AddRow(userID, kcal, "250.00", "150.00", "44.44", updated)
}

func dayRow(id, userID uint64, date string, kcal string, over bool, updated time.Time) *sqlmock.Rows {
	return sqlmock.NewRows(totalCols).AddRow(id, userID, []byte(date), kcal, "0", "0", "0", over, updated, updated)
}

func mealIDRows(ids ...uint64) *sqlmock.Rows {
	rows := sqlmock.NewRows([]string{"meal_log_id"})
	for _, id := range ids {
		rows.AddRow(id)
	}
	return rows
}
