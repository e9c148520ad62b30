// Package queue defines message payloads exchanged over the message broker.
package queue

// MealLoggedQueue carries one message per recorded meal photo.
const MealLoggedQueue = "meal.logged"

// MealLoggedEvent is published after a meal has been folded into the user's
// daily total.  Nutrient values are rounded strings as shown to the user.
type MealLoggedEvent struct {
	MealLogID    uint64 `json:"meal_log_id"`
	UserID       uint64 `json:"user_id"`
	Date         string `json:"date"`
	MealType     string `json:"meal_type"`
	CategoryID   uint32 `json:"category_id"`
	CategoryName string `json:"category_name"`
	FoodKcal     string `json:"food_kcal"`
	TotalKcal    string `json:"total_kcal"`
	TargetKcal   string `json:"target_kcal"`
	OverTarget   bool   `json:"over_target"`
	ImageURL     string `json:"image_url"`
	LoggedAt     string `json:"logged_at"`
}
