package models

import (
	"time"
)

// Review is a user's written review of a catalog meal.
type Review struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	MealID    uint      `gorm:"not null;index" json:"meal_id"`
	MealTitle string    `gorm:"size:255" json:"meal_title"` // snapshot at creation
	Email     string    `gorm:"size:255;not null;index" json:"email"`
	Username  string    `gorm:"size:255" json:"username"`
	PhotoURL  string    `gorm:"type:text" json:"photo_url"`
	Text      string    `gorm:"type:text;not null" json:"text"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName specifies the table name for Review model.
func (Review) TableName() string {
	return "reviews"
}

// MealRequest is a subscriber's request to be served a meal.
type MealRequest struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	MealID      uint       `gorm:"not null;uniqueIndex:idx_meal_requests_pending,where:status = 'pending'" json:"meal_id"`
	MealTitle   string     `gorm:"size:255" json:"meal_title"` // snapshot, never refreshed
	UserEmail   string     `gorm:"size:255;not null;index;uniqueIndex:idx_meal_requests_pending,where:status = 'pending'" json:"user_email"`
	UserName    string     `gorm:"size:255" json:"user_name"`
	PhotoURL    string     `gorm:"type:text" json:"photo_url"`
	Status      string     `gorm:"size:20;not null;default:pending;index" json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
	DeliveredAt *time.Time `json:"delivered_at"`
}

// TableName specifies the table name for MealRequest model.
func (MealRequest) TableName() string {
	return "meal_requests"
}

// MealRequest status constants.
const (
	RequestStatusPending   = "pending"
	RequestStatusDelivered = "delivered"
)
