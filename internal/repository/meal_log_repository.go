package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/wellness-api/internal/clock"
	"github.com/iliyamo/wellness-api/internal/model"
)

// MealLogRepo appends and lists meal logs.  Rows are never updated.
type MealLogRepo struct{ DB *sql.DB }

func NewMealLogRepo(db *sql.DB) *MealLogRepo { return &MealLogRepo{DB: db} }

// InsertTx appends m inside tx and sets its ID.
func (r *MealLogRepo) InsertTx(ctx context.Context, tx *sql.Tx, m *model.MealLog) error {
	res, err := tx.ExecContext(ctx,
		`INSERT INTO meal_logs (user_id, category_id, meal_type_id, image_url, captured_at, logged_date, created_at, updated_at)
		 VALUES (?,?,?,?,?,?,?,?)`,
		m.UserID, m.CategoryID, uint8(m.MealType), m.ImageURL, m.CapturedAt, m.LoggedDate, m.CreatedAt, m.UpdatedAt)
	if err != nil {
		if IsMissingReference(err) {
			return ErrUserNotFound
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	m.ID = uint64(id)
	return nil
}

// ListByUserDate returns the user's meals for one local date with their
// food rows, oldest first.
func (r *MealLogRepo) ListByUserDate(ctx context.Context, userID uint64, date clock.Date) ([]model.MealEntry, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT m.id, m.user_id, m.category_id, m.meal_type_id, m.image_url, m.captured_at, m.logged_date, m.created_at, m.updated_at,
		        f.category_name, f.food_name, f.kcal, f.carb, f.protein, f.fat
		   FROM meal_logs m
		   JOIN food_categories f ON f.category_id = m.category_id
		  WHERE m.user_id = ? AND m.logged_date = ?
		  ORDER BY m.id`,
		userID, date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.MealEntry
	for rows.Next() {
		var (
			e  model.MealEntry
			mt uint8
		)
		if err := rows.Scan(&e.ID, &e.UserID, &e.CategoryID, &mt, &e.ImageURL, &e.CapturedAt, &e.LoggedDate,
			&e.CreatedAt, &e.UpdatedAt, &e.Food.CategoryName, &e.Food.FoodName,
			&e.Food.PerServing.Kcal, &e.Food.PerServing.Carb, &e.Food.PerServing.Protein, &e.Food.PerServing.Fat); err != nil {
			return nil, err
		}
		e.MealType = model.MealType(mt)
		e.Food.CategoryID = e.CategoryID
		out = append(out, e)
	}
	return out, rows.Err()
}
