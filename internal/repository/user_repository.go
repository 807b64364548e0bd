package repository

import (
	"context"
	"fmt"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/bitelog/bitelog-api/internal/apperr"
	"github.com/bitelog/bitelog-api/internal/models"
)

// UserRepository handles user-related database operations.
type UserRepository struct {
	db *DB
}

// NewUserRepository creates a new user repository.
func NewUserRepository(db *DB) *UserRepository {
	return &UserRepository{db: db}
}

// CreateIfAbsent inserts the user unless one with the same email exists.
// It returns the stored record and whether it was inserted by this call.
// An existing record is returned untouched.
func (r *UserRepository) CreateIfAbsent(ctx context.Context, user *models.User) (*models.User, bool, error) {
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "email"}}, DoNothing: true}).
		Create(user)
	if result.Error != nil {
		return nil, false, fmt.Errorf("failed to create user: %w", result.Error)
	}
	if result.RowsAffected == 1 {
		return user, true, nil
	}

	existing, err := r.GetByEmail(ctx, user.Email)
	if err != nil {
		return nil, false, err
	}
	return existing, false, nil
}

// GetByEmail retrieves a user by email.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		return nil, fmt.Errorf("failed to get user by email %s: %w", email, translateError(err, "user", email))
	}
	return &user, nil
}

// List retrieves users whose name or email contains search, newest first.
func (r *UserRepository) List(ctx context.Context, search string, offset, limit int) ([]models.User, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.User{})
	if search = strings.TrimSpace(search); search != "" {
		pattern := likePattern(search)
		query = query.Where("LOWER(name) LIKE ? ESCAPE '\\' OR LOWER(email) LIKE ? ESCAPE '\\'", pattern, pattern)
	}

	query = query.Session(&gorm.Session{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count users: %w", err)
	}

	var users []models.User
	if err := query.Order("created_at DESC").Order("id DESC").Offset(offset).Limit(limit).Find(&users).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list users: %w", err)
	}
	return users, total, nil
}

// SetRole changes a user's role.
func (r *UserRepository) SetRole(ctx context.Context, email, role string) error {
	result := r.db.WithContext(ctx).Model(&models.User{}).Where("email = ?", email).Update("role", role)
	if result.Error != nil {
		return fmt.Errorf("failed to set role for %s: %w", email, result.Error)
	}
	if result.RowsAffected == 0 {
		return apperr.NotFound("user", email)
	}
	return nil
}

// likePattern lower-cases term and escapes LIKE wildcards for a substring match.
func likePattern(term string) string {
	replacer := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + replacer.Replace(strings.ToLower(term)) + "%"
}
