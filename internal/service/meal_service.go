package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/wellness-api/internal/clock"
	"github.com/iliyamo/wellness-api/internal/model"
	"github.com/iliyamo/wellness-api/internal/queue"
	"github.com/iliyamo/wellness-api/internal/repository"
	"github.com/iliyamo/wellness-api/internal/utils"
)

// ObjectStore persists a blob and returns its public URL.
type ObjectStore interface {
	Store(ctx context.Context, data []byte, bucket, key string) (string, error)
}

// Classifier maps an image URL to a food category id.
type Classifier interface {
	Classify(ctx context.Context, imageURL string) (uint32, error)
}

// MealEventPublisher announces recorded meals.
type MealEventPublisher interface {
	PublishMealLogged(ctx context.Context, ev queue.MealLoggedEvent) error
}

// Photo is an uploaded meal image.
type Photo struct {
	Filename string
	Data     []byte
}

// MealResult is what a successful photo upload reports back.
type MealResult struct {
	Meal           model.MealLog
	Food           model.Food
	Recommendation model.Recommendation
	Total          model.DailyTotal
}

// MealService turns meal photos into meal logs and keeps the day's totals
// current.
type MealService struct {
	db         *sql.DB
	meals      *repository.MealLogRepo
	foods      *repository.FoodRepo
	recs       *RecommendationService
	intake     *IntakeService
	store      ObjectStore
	bucket     string
	classifier Classifier
	publisher  MealEventPublisher
	calendar   clock.Calendar
	clock      clock.Clock
}

func NewMealService(db *sql.DB, meals *repository.MealLogRepo, foods *repository.FoodRepo, recs *RecommendationService,
	intake *IntakeService, store ObjectStore, bucket string, classifier Classifier, publisher MealEventPublisher,
	cal clock.Calendar, clk clock.Clock) *MealService {
	return &MealService{db: db, meals: meals, foods: foods, recs: recs, intake: intake, store: store, bucket: bucket,
		classifier: classifier, publisher: publisher, calendar: cal, clock: clk}
}

// LogMealPhoto stores the photo, classifies it and records the matching
// food against the local day the photo was taken.  A photo without EXIF
// capture time counts as taken now.
func (s *MealService) LogMealPhoto(ctx context.Context, userID uint64, p Photo) (MealResult, error) {
	if len(p.Data) == 0 {
		return MealResult{}, ErrEmptyPhoto
	}
	key := "meals/" + uuid.NewString() + strings.ToLower(filepath.Ext(p.Filename))
	imageURL, err := s.store.Store(ctx, p.Data, s.bucket, key)
	if err != nil {
		return MealResult{}, fmt.Errorf("%w: %v", ErrUploadFailed, err)
	}

	now := s.clock.Now().Truncate(time.Microsecond)
	capturedAt, ok := utils.CaptureTime(p.Data, s.calendar.Location())
	if ok {
		capturedAt = capturedAt.UTC()
	} else {
		capturedAt = now
	}
	mealType := model.MealTypeForHour(s.calendar.HourOf(capturedAt))

	categoryID, err := s.classifier.Classify(ctx, imageURL)
	if err != nil {
		return MealResult{}, fmt.Errorf("%w: %v", ErrClassifierFailed, err)
	}
	food, err := s.foods.GetByCategory(ctx, categoryID)
	if errors.Is(err, repository.ErrNotFound) {
		return MealResult{}, fmt.Errorf("%w: category_id=%d", ErrFoodNotFound, categoryID)
	}
	if err != nil {
		return MealResult{}, fmt.Errorf("load food: %w", err)
	}

	rec, err := s.recs.GetOrRefresh(ctx, userID)
	if err != nil {
		return MealResult{}, err
	}
	date := s.intake.DayOf(capturedAt)
	if _, err := s.intake.GetOrCreate(ctx, userID, date); err != nil {
		return MealResult{}, err
	}

	meal := model.MealLog{
		UserID: userID, CategoryID: categoryID, MealType: mealType, ImageURL: imageURL,
		CapturedAt: capturedAt, LoggedDate: date, CreatedAt: now, UpdatedAt: now,
	}
	total, err := s.recordTx(ctx, &meal, food)
	if err != nil {
		return MealResult{}, err
	}
	// the meal is committed; a failed flag write is repaired by the next Summary
	if err := s.intake.RefreshCondition(ctx, &total, rec); err != nil {
		log.Printf("meal: condition not stored daily_total_id=%d: %v", total.ID, err)
		total.OverTarget = total.Totals.Kcal.GreaterThan(rec.Target.Kcal)
	}

	log.Printf("meal: recorded meal_log_id=%d user_id=%d date=%s category_id=%d", meal.ID, userID, date, categoryID)
	if s.publisher != nil {
		if err := s.publisher.PublishMealLogged(ctx, mealEvent(meal, food, rec, total)); err != nil {
			log.Printf("meal: publish event meal_log_id=%d: %v", meal.ID, err)
		}
	}
	return MealResult{Meal: meal, Food: food, Recommendation: rec, Total: total}, nil
}

// recordTx appends the meal log and folds it into the day total atomically.
func (s *MealService) recordTx(ctx context.Context, meal *model.MealLog, food model.Food) (model.DailyTotal, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return model.DailyTotal{}, fmt.Errorf("begin meal: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	if err := s.meals.InsertTx(ctx, tx, meal); err != nil {
		return model.DailyTotal{}, fmt.Errorf("insert meal log: %w", err)
	}
	total, err := s.intake.RecordMealTx(ctx, tx, meal.UserID, meal.LoggedDate, food, meal.ID)
	if err != nil {
		return model.DailyTotal{}, err
	}
	if err := tx.Commit(); err != nil {
		return model.DailyTotal{}, fmt.Errorf("commit meal: %w", err)
	}
	committed = true
	return total, nil
}

// ListMeals returns the user's meals for a local date, oldest first.
func (s *MealService) ListMeals(ctx context.Context, userID uint64, date clock.Date) ([]model.MealEntry, error) {
	entries, err := s.meals.ListByUserDate(ctx, userID, date)
	if err != nil {
		return nil, fmt.Errorf("list meals: %w", err)
	}
	if entries == nil {
		entries = []model.MealEntry{}
	}
	return entries, nil
}

func mealEvent(m model.MealLog, f model.Food, rec model.Recommendation, t model.DailyTotal) queue.MealLoggedEvent {
	return queue.MealLoggedEvent{
		MealLogID:    m.ID,
		UserID:       m.UserID,
		Date:         m.LoggedDate.String(),
		MealType:     m.MealType.String(),
		CategoryID:   f.CategoryID,
		CategoryName: f.CategoryName,
		FoodKcal:     f.PerServing.Kcal.StringFixed(2),
		TotalKcal:    t.Totals.Kcal.StringFixed(2),
		TargetKcal:   rec.Target.Kcal.StringFixed(2),
		OverTarget:   t.OverTarget,
		ImageURL:     m.ImageURL,
		LoggedAt:     m.CreatedAt.Format(time.RFC3339),
	}
}
