package models

import (
	"time"

	"gorm.io/datatypes"
)

// MealDetails holds the descriptive fields shared by catalog and upcoming meals.
type MealDetails struct {
	Title            string                      `gorm:"size:255;not null;index" json:"title"`
	Category         string                      `gorm:"size:100;index" json:"category"`
	Price            float64                     `gorm:"not null" json:"price"`
	Description      string                      `gorm:"type:text" json:"description"`
	Ingredients      datatypes.JSONSlice[string] `json:"ingredients"`
	Image            string                      `gorm:"type:text" json:"image"`
	DistributorName  string                      `gorm:"size:255" json:"distributor_name"`
	DistributorEmail string                      `gorm:"size:255;index" json:"distributor_email"`
}

// RatingHistogram counts ratings per star value.
type RatingHistogram struct {
	One   int `gorm:"not null;default:0" json:"1"`
	Two   int `gorm:"not null;default:0" json:"2"`
	Three int `gorm:"not null;default:0" json:"3"`
	Four  int `gorm:"not null;default:0" json:"4"`
	Five  int `gorm:"not null;default:0" json:"5"`
}

// Total returns the number of ratings recorded.
func (h RatingHistogram) Total() int {
	return h.One + h.Two + h.Three + h.Four + h.Five
}

// Average returns the mean star value, or 0 without ratings.
func (h RatingHistogram) Average() float64 {
	total := h.Total()
	if total == 0 {
		return 0
	}
	sum := h.One + 2*h.Two + 3*h.Three + 4*h.Four + 5*h.Five
	return float64(sum) / float64(total)
}

// Meal represents a published catalog meal.
type Meal struct {
	ID uint `gorm:"primaryKey" json:"id"`
	MealDetails
	Rating       float64         `gorm:"not null;default:0" json:"rating"`
	Likes        int             `gorm:"not null;default:0;index" json:"likes"`
	ReviewsCount int             `gorm:"not null;default:0" json:"reviews_count"`
	Ratings      RatingHistogram `gorm:"embedded;embeddedPrefix:ratings_" json:"ratings"`
	PostTime     time.Time       `gorm:"not null;index" json:"post_time"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// TableName specifies the table name for Meal model.
func (Meal) TableName() string {
	return "meals"
}

// MealLike records that a user likes a meal. Presence is the liked state.
type MealLike struct {
	MealID  uint      `gorm:"primaryKey" json:"meal_id"`
	Email   string    `gorm:"primaryKey;size:255" json:"email"`
	LikedAt time.Time `gorm:"not null" json:"liked_at"`
}

// TableName specifies the table name for MealLike model.
func (MealLike) TableName() string {
	return "meal_likes"
}

// MealRating records the latest star value a user gave a meal.
type MealRating struct {
	MealID    uint      `gorm:"primaryKey" json:"meal_id"`
	Email     string    `gorm:"primaryKey;size:255" json:"email"`
	Value     int       `gorm:"not null" json:"value"`
	RatedAt   time.Time `gorm:"not null" json:"rated_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName specifies the table name for MealRating model.
func (MealRating) TableName() string {
	return "meal_ratings"
}

// UpcomingMeal is a candidate meal collecting votes before publication.
type UpcomingMeal struct {
	ID uint `gorm:"primaryKey" json:"id"`
	MealDetails
	Likes     int       `gorm:"not null;default:0;index" json:"likes"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName specifies the table name for UpcomingMeal model.
func (UpcomingMeal) TableName() string {
	return "upcoming_meals"
}

// UpcomingLike records a vote for an upcoming meal.
type UpcomingLike struct {
	UpcomingMealID uint      `gorm:"primaryKey" json:"upcoming_meal_id"`
	Email          string    `gorm:"primaryKey;size:255" json:"email"`
	LikedAt        time.Time `gorm:"not null" json:"liked_at"`
}

// TableName specifies the table name for UpcomingLike model.
func (UpcomingLike) TableName() string {
	return "upcoming_likes"
}
