package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/bitelog/bitelog-api/internal/apperr"
	"github.com/bitelog/bitelog-api/internal/models"
)

// ReviewRepository handles review-related database operations.
type ReviewRepository struct {
	db *DB
}

// NewReviewRepository creates a new review repository.
func NewReviewRepository(db *DB) *ReviewRepository {
	return &ReviewRepository{db: db}
}

// Create stores a review, snapshots the meal title and bumps the meal's review count.
func (r *ReviewRepository) Create(ctx context.Context, review *models.Review) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var meal models.Meal
		if err := tx.Select("id", "title").First(&meal, review.MealID).Error; err != nil {
			return translateError(err, "meal", review.MealID)
		}
		review.MealTitle = meal.Title

		if err := tx.Create(review).Error; err != nil {
			return fmt.Errorf("failed to create review: %w", err)
		}

		err := tx.Model(&models.Meal{}).Where("id = ?", review.MealID).
			UpdateColumn("reviews_count", increment("reviews_count", 1)).Error
		if err != nil {
			return fmt.Errorf("failed to increment reviews_count: %w", err)
		}
		return nil
	})
}

// GetByID retrieves a review by ID.
func (r *ReviewRepository) GetByID(ctx context.Context, id uint) (*models.Review, error) {
	var review models.Review
	if err := r.db.WithContext(ctx).First(&review, id).Error; err != nil {
		return nil, fmt.Errorf("failed to get review %d: %w", id, translateError(err, "review", id))
	}
	return &review, nil
}

// UpdateText replaces the review text and returns the updated record.
func (r *ReviewRepository) UpdateText(ctx context.Context, id uint, text string) (*models.Review, error) {
	result := r.db.WithContext(ctx).Model(&models.Review{ID: id}).Update("text", text)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to update review %d: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, apperr.NotFound("review", id)
	}
	return r.GetByID(ctx, id)
}

// Delete removes a review and decrements its meal's review count, floored at zero.
func (r *ReviewRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var review models.Review
		if err := tx.Select("id", "meal_id").First(&review, id).Error; err != nil {
			return translateError(err, "review", id)
		}

		result := tx.Delete(&models.Review{}, id)
		if result.Error != nil {
			return fmt.Errorf("failed to delete review %d: %w", id, result.Error)
		}
		if result.RowsAffected == 0 {
			return apperr.NotFound("review", id)
		}

		err := tx.Model(&models.Meal{}).Where("id = ?", review.MealID).
			UpdateColumn("reviews_count", clampedDecrement("reviews_count")).Error
		if err != nil {
			return fmt.Errorf("failed to decrement reviews_count: %w", err)
		}
		return nil
	})
}

// ListByMeal returns a meal's reviews, newest first.
func (r *ReviewRepository) ListByMeal(ctx context.Context, mealID uint) ([]models.Review, error) {
	var reviews []models.Review
	err := r.db.WithContext(ctx).Where("meal_id = ?", mealID).Order("created_at DESC").Order("id DESC").Find(&reviews).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list reviews for meal %d: %w", mealID, err)
	}
	return reviews, nil
}

// ListByEmail returns the reviews written by email, newest first.
func (r *ReviewRepository) ListByEmail(ctx context.Context, email string) ([]models.Review, error) {
	var reviews []models.Review
	err := r.db.WithContext(ctx).Where("email = ?", email).Order("created_at DESC").Order("id DESC").Find(&reviews).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list reviews by %s: %w", email, err)
	}
	return reviews, nil
}

// List returns one page of all reviews and the total count.
func (r *ReviewRepository) List(ctx context.Context, offset, limit int) ([]models.Review, int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&models.Review{}).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count reviews: %w", err)
	}

	var reviews []models.Review
	err := r.db.WithContext(ctx).Order("created_at DESC").Order("id DESC").Offset(offset).Limit(limit).Find(&reviews).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list reviews: %w", err)
	}
	return reviews, total, nil
}
