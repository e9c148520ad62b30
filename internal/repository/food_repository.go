package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/wellness-api/internal/model"
)

// FoodRepo reads the classifier's category catalog.
type FoodRepo struct{ DB *sql.DB }

func NewFoodRepo(db *sql.DB) *FoodRepo { return &FoodRepo{DB: db} }

const foodColumns = "category_id, category_name, food_name, kcal, carb, protein, fat"

// GetByCategory returns ErrNotFound for an unknown category id.
func (r *FoodRepo) GetByCategory(ctx context.Context, categoryID uint32) (model.Food, error) {
	var f model.Food
	err := r.DB.QueryRowContext(ctx,
		"SELECT "+foodColumns+" FROM food_categories WHERE category_id=?", categoryID).
		Scan(&f.CategoryID, &f.CategoryName, &f.FoodName,
			&f.PerServing.Kcal, &f.PerServing.Carb, &f.PerServing.Protein, &f.PerServing.Fat)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Food{}, ErrNotFound
	}
	return f, err
}

// List returns the whole catalog ordered by category id.
func (r *FoodRepo) List(ctx context.Context) ([]model.Food, error) {
	rows, err := r.DB.QueryContext(ctx, "SELECT "+foodColumns+" FROM food_categories ORDER BY category_id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Food
	for rows.Next() {
		var f model.Food
		if err := rows.Scan(&f.CategoryID, &f.CategoryName, &f.FoodName,
			&f.PerServing.Kcal, &f.PerServing.Carb, &f.PerServing.Protein, &f.PerServing.Fat); err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}
