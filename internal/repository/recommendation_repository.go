package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/wellness-api/internal/model"
)

type RecommendationRepo struct{ DB *sql.DB }

func NewRecommendationRepo(db *sql.DB) *RecommendationRepo { return &RecommendationRepo{DB: db} }

// GetByUserID returns ErrNotFound when the user has no recommendation yet.
func (r *RecommendationRepo) GetByUserID(ctx context.Context, userID uint64) (model.Recommendation, error) {
	var rec model.Recommendation
	err := r.DB.QueryRowContext(ctx,
		"SELECT user_id, rec_kcal, rec_carb, rec_protein, rec_fat, updated_at FROM recommendations WHERE user_id=?",
		userID).Scan(&rec.UserID, &rec.Target.Kcal, &rec.Target.Carb, &rec.Target.Protein, &rec.Target.Fat, &rec.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Recommendation{}, ErrNotFound
	}
	return rec, err
}

// Upsert writes rec keyed by user_id.  Concurrent writers compute the same
// values from the same profile, so last-writer-wins is harmless.
func (r *RecommendationRepo) Upsert(ctx context.Context, rec model.Recommendation) error {
	_, err := r.DB.ExecContext(ctx,
		`INSERT INTO recommendations (user_id, rec_kcal, rec_carb, rec_protein, rec_fat, updated_at)
		 VALUES (?,?,?,?,?,?)
		 ON DUPLICATE KEY UPDATE rec_kcal=VALUES(rec_kcal), rec_carb=VALUES(rec_carb),
		   rec_protein=VALUES(rec_protein), rec_fat=VALUES(rec_fat), updated_at=VALUES(updated_at)`,
		rec.UserID, rec.Target.Kcal, rec.Target.Carb, rec.Target.Protein, rec.Target.Fat, rec.UpdatedAt)
	if IsMissingReference(err) {
		return ErrUserNotFound
	}
	return err
}
