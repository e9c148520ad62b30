package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/iliyamo/wellness-api/internal/clock"
	"github.com/iliyamo/wellness-api/internal/model"
)

// DailyTotalRepo stores one running total per (user, local date).  Sums are
// incremented by the database itself so concurrent meals never lose updates.
type DailyTotalRepo struct{ DB *sql.DB }

func NewDailyTotalRepo(db *sql.DB) *DailyTotalRepo { return &DailyTotalRepo{DB: db} }

const dailyTotalColumns = "id, user_id, local_date, total_kcal, total_carb, total_protein, total_fat, over_target, created_at, updated_at"

// Get returns ErrNotFound when the day has no row yet.
func (r *DailyTotalRepo) Get(ctx context.Context, userID uint64, date clock.Date) (model.DailyTotal, error) {
	t, err := scanDailyTotal(r.DB.QueryRowContext(ctx,
		"SELECT "+dailyTotalColumns+" FROM daily_totals WHERE user_id=? AND local_date=?", userID, date))
	if err != nil {
		return t, err
	}
	t.MealIDs, err = r.mealIDs(ctx, r.DB, t.ID)
	return t, err
}

// Insert creates an empty row.  A concurrent creator surfaces as
// ErrDuplicate, a missing user as ErrUserNotFound.
func (r *DailyTotalRepo) Insert(ctx context.Context, userID uint64, date clock.Date, now time.Time) (model.DailyTotal, error) {
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO daily_totals (user_id, local_date, created_at, updated_at) VALUES (?,?,?,?)",
		userID, date, now, now)
	switch {
	case IsDuplicate(err):
		return model.DailyTotal{}, ErrDuplicate
	case IsMissingReference(err):
		return model.DailyTotal{}, ErrUserNotFound
	case err != nil:
		return model.DailyTotal{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.DailyTotal{}, err
	}
	return model.DailyTotal{ID: uint64(id), UserID: userID, Date: date, CreatedAt: now, UpdatedAt: now}, nil
}

// GetForUpdateTx locks the day row for the rest of tx.
func (r *DailyTotalRepo) GetForUpdateTx(ctx context.Context, tx *sql.Tx, userID uint64, date clock.Date) (model.DailyTotal, error) {
	return scanDailyTotal(tx.QueryRowContext(ctx,
		"SELECT "+dailyTotalColumns+" FROM daily_totals WHERE user_id=? AND local_date=? FOR UPDATE", userID, date))
}

// GetByIDTx rereads a row with its meal ids inside tx.
func (r *DailyTotalRepo) GetByIDTx(ctx context.Context, tx *sql.Tx, id uint64) (model.DailyTotal, error) {
	t, err := scanDailyTotal(tx.QueryRowContext(ctx,
		"SELECT "+dailyTotalColumns+" FROM daily_totals WHERE id=?", id))
	if err != nil {
		return t, err
	}
	t.MealIDs, err = r.mealIDs(ctx, tx, t.ID)
	return t, err
}

// AddTx increments the four sums by n.
func (r *DailyTotalRepo) AddTx(ctx context.Context, tx *sql.Tx, id uint64, n model.Nutrients, now time.Time) error {
	_, err := tx.ExecContext(ctx,
		`UPDATE daily_totals
		    SET total_kcal = total_kcal + ?, total_carb = total_carb + ?,
		        total_protein = total_protein + ?, total_fat = total_fat + ?, updated_at = ?
		  WHERE id = ?`,
		n.Kcal, n.Carb, n.Protein, n.Fat, now, id)
	return err
}

// AppendMealTx links a meal log to the day.
func (r *DailyTotalRepo) AppendMealTx(ctx context.Context, tx *sql.Tx, id, mealLogID uint64) error {
	_, err := tx.ExecContext(ctx,
		"INSERT INTO daily_total_meals (daily_total_id, meal_log_id) VALUES (?,?)", id, mealLogID)
	if IsDuplicate(err) {
		return ErrDuplicate
	}
	return err
}

// SetOverTarget stores the kcal-exceeded flag.
func (r *DailyTotalRepo) SetOverTarget(ctx context.Context, id uint64, over bool, now time.Time) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE daily_totals SET over_target=?, updated_at=? WHERE id=?", over, now, id)
	return err
}

func (r *DailyTotalRepo) mealIDs(ctx context.Context, q querier, id uint64) ([]uint64, error) {
	rows, err := q.QueryContext(ctx,
		"SELECT meal_log_id FROM daily_total_meals WHERE daily_total_id=? ORDER BY id", id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := []uint64{}
	for rows.Next() {
		var mid uint64
		if err := rows.Scan(&mid); err != nil {
			return nil, err
		}
		ids = append(ids, mid)
	}
	return ids, rows.Err()
}

func scanDailyTotal(row *sql.Row) (model.DailyTotal, error) {
	var t model.DailyTotal
	err := row.Scan(&t.ID, &t.UserID, &t.Date, &t.Totals.Kcal, &t.Totals.Carb, &t.Totals.Protein, &t.Totals.Fat,
		&t.OverTarget, &t.CreatedAt, &t.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.DailyTotal{}, ErrNotFound
	}
	return t, err
}
