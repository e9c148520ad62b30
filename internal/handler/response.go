package handler

import (
	"encoding/json"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"github.com/iliyamo/wellness-api/internal/auth"
	"github.com/iliyamo/wellness-api/internal/middleware"
	"github.com/iliyamo/wellness-api/internal/model"
)

// ----- DTOs -----

type tokenPart struct {
	Token   string    `json:"token"`
	Expires time.Time `json:"expires"`
}

type userPart struct {
	ID        uint64      `json:"id"`
	Email     string      `json:"email"`
	Nickname  string      `json:"nickname"`
	BirthDate string      `json:"birth_date"`
	Sex       string      `json:"sex"`
	HeightCm  json.Number `json:"height_cm"`
	WeightKg  json.Number `json:"weight_kg"`
	Age       int         `json:"age"`
	UpdatedAt time.Time   `json:"updated_at"`
}

type nutrientsPart struct {
	Kcal    json.Number `json:"kcal"`
	Carb    json.Number `json:"carb"`
	Protein json.Number `json:"protein"`
	Fat     json.Number `json:"fat"`
}

type foodPart struct {
	CategoryID   uint32        `json:"category_id"`
	CategoryName string        `json:"category_name"`
	FoodName     string        `json:"food_name"`
	PerServing   nutrientsPart `json:"per_serving"`
}

type recommendationPart struct {
	Target    nutrientsPart `json:"target"`
	UpdatedAt time.Time     `json:"updated_at"`
}

type dailyTotalPart struct {
	Date      string        `json:"date"`
	Totals    nutrientsPart `json:"totals"`
	Condition bool          `json:"condition"` // true once kcal exceeds the recommendation
	MealIDs   []uint64      `json:"meal_ids"`
}

type mealPart struct {
	ID         uint64    `json:"id"`
	MealType   string    `json:"meal_type"`
	ImageURL   string    `json:"image_url"`
	CapturedAt time.Time `json:"captured_at"`
	Date       string    `json:"date"`
	Food       *foodPart `json:"food,omitempty"`
}

func fixed(d decimal.Decimal) json.Number { return json.Number(d.StringFixed(2)) }

func tokenOf(t auth.IssuedToken) tokenPart { return tokenPart{Token: t.Token, Expires: t.ExpiresAt} }

func userOf(u model.User) userPart {
	return userPart{
		ID: u.ID, Email: u.Email, Nickname: u.Nickname, BirthDate: u.BirthDate.String(), Sex: string(u.Sex),
		HeightCm: json.Number(u.HeightCm.String()), WeightKg: json.Number(u.WeightKg.String()),
		Age: u.Age, UpdatedAt: u.UpdatedAt,
	}
}

func nutrientsOf(n model.Nutrients) nutrientsPart {
	return nutrientsPart{Kcal: fixed(n.Kcal), Carb: fixed(n.Carb), Protein: fixed(n.Protein), Fat: fixed(n.Fat)}
}

func foodOf(f model.Food) foodPart {
	return foodPart{CategoryID: f.CategoryID, CategoryName: f.CategoryName, FoodName: f.FoodName,
		PerServing: nutrientsOf(f.PerServing)}
}

func recommendationOf(r model.Recommendation) recommendationPart {
	return recommendationPart{Target: nutrientsOf(r.Target), UpdatedAt: r.UpdatedAt}
}

func dailyTotalOf(t model.DailyTotal) dailyTotalPart {
	ids := t.MealIDs
	if ids == nil {
		ids = []uint64{}
	}
	return dailyTotalPart{Date: t.Date.String(), Totals: nutrientsOf(t.Totals), Condition: t.OverTarget, MealIDs: ids}
}

func mealOf(m model.MealLog) mealPart {
	return mealPart{ID: m.ID, MealType: m.MealType.String(), ImageURL: m.ImageURL, CapturedAt: m.CapturedAt,
		Date: m.LoggedDate.String()}
}

// respond writes body as JSON, adding the rotated access token under
// "access" when Session minted one for this request.
func respond(c echo.Context, code int, body echo.Map) error {
	if t, ok := middleware.RotatedAccess(c); ok {
		body["access"] = tokenOf(t)
	}
	return c.JSON(code, body)
}
