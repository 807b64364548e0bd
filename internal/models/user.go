// Package models defines the persisted domain records of the BiteLog service.
package models

import (
	"time"
)

// User represents a signed-in member of the site.
type User struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	Email      string    `gorm:"uniqueIndex;not null;size:255" json:"email"`
	Name       string    `gorm:"size:255;index" json:"name"`
	Photo      string    `gorm:"type:text" json:"photo"`
	Role       string    `gorm:"size:20;not null;default:user" json:"role"` // 'user' or 'admin'
	MealsAdded int       `gorm:"not null;default:0" json:"meals_added"`
	Badge      string    `gorm:"size:50;not null;default:Bronze" json:"badge"`
	LastLogIn  time.Time `json:"last_log_in"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// TableName specifies the table name for User model.
func (User) TableName() string {
	return "users"
}

// IsAdmin reports whether the user holds the admin role.
func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}

// Role constants.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// DefaultBadge is assigned to every new user.
const DefaultBadge = "Bronze"
