package repository

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/bitelog/bitelog-api/internal/models"
)

var upcomingLikes = likeTarget{
	entity:    "upcoming meal",
	counter:   &models.UpcomingMeal{},
	join:      &models.UpcomingLike{},
	keyColumn: "upcoming_meal_id",
}

// UpcomingRepository handles upcoming meal database operations.
type UpcomingRepository struct {
	db *DB
}

// NewUpcomingRepository creates a new upcoming meal repository.
func NewUpcomingRepository(db *DB) *UpcomingRepository {
	return &UpcomingRepository{db: db}
}

// Create stores a new upcoming meal.
func (r *UpcomingRepository) Create(ctx context.Context, meal *models.UpcomingMeal) error {
	if err := r.db.WithContext(ctx).Create(meal).Error; err != nil {
		return fmt.Errorf("failed to create upcoming meal: %w", err)
	}
	return nil
}

// GetByID retrieves an upcoming meal by ID.
func (r *UpcomingRepository) GetByID(ctx context.Context, id uint) (*models.UpcomingMeal, error) {
	var meal models.UpcomingMeal
	if err := r.db.WithContext(ctx).First(&meal, id).Error; err != nil {
		return nil, fmt.Errorf("failed to get upcoming meal %d: %w", id, translateError(err, "upcoming meal", id))
	}
	return &meal, nil
}

// List returns all upcoming meals, most liked first.
func (r *UpcomingRepository) List(ctx context.Context) ([]models.UpcomingMeal, error) {
	var meals []models.UpcomingMeal
	err := r.db.WithContext(ctx).Order("likes DESC").Order("created_at DESC").Order("id DESC").Find(&meals).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list upcoming meals: %w", err)
	}
	return meals, nil
}

// ListAtThreshold returns upcoming meals whose likes reached threshold.
func (r *UpcomingRepository) ListAtThreshold(ctx context.Context, threshold int) ([]models.UpcomingMeal, error) {
	var meals []models.UpcomingMeal
	err := r.db.WithContext(ctx).Where("likes >= ?", threshold).Order("likes DESC").Order("id ASC").Find(&meals).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list upcoming meals at threshold: %w", err)
	}
	return meals, nil
}

// ToggleLike flips the (upcoming meal, email) vote and returns the resulting count and state.
func (r *UpcomingRepository) ToggleLike(ctx context.Context, id uint, email string) (likes int, liked bool, err error) {
	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		likes, liked, err = toggleLike(tx, upcomingLikes, id, email,
			&models.UpcomingLike{UpcomingMealID: id, Email: email, LikedAt: time.Now().UTC()})
		return err
	})
	return likes, liked, err
}

// Promote moves an upcoming meal into the catalog. The source row is removed
// with a conditional delete, so only one caller can win; losers get
// promoted=false and no catalog row.
func (r *UpcomingRepository) Promote(ctx context.Context, id uint) (meal *models.Meal, promoted bool, err error) {
	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var upcoming models.UpcomingMeal
		if err := tx.First(&upcoming, id).Error; err != nil {
			return translateError(err, "upcoming meal", id)
		}

		removed := tx.Where("id = ?", id).Delete(&models.UpcomingMeal{})
		if removed.Error != nil {
			return fmt.Errorf("failed to remove upcoming meal %d: %w", id, removed.Error)
		}
		if removed.RowsAffected == 0 {
			return nil
		}

		published := &models.Meal{
			MealDetails: upcoming.MealDetails,
			Likes:       upcoming.Likes,
			PostTime:    time.Now().UTC(),
		}
		if err := tx.Create(published).Error; err != nil {
			return fmt.Errorf("failed to publish upcoming meal %d: %w", id, err)
		}

		// Votes follow the meal so every voter keeps their like.
		moved := tx.Exec(
			"INSERT INTO meal_likes (meal_id, email, liked_at) "+
				"SELECT ?, email, liked_at FROM upcoming_likes WHERE upcoming_meal_id = ?",
			published.ID, id,
		)
		if moved.Error != nil {
			return fmt.Errorf("failed to carry votes of upcoming meal %d: %w", id, moved.Error)
		}
		if int(moved.RowsAffected) != published.Likes {
			if err := tx.Model(published).UpdateColumn("likes", moved.RowsAffected).Error; err != nil {
				return fmt.Errorf("failed to sync likes of meal %d: %w", published.ID, err)
			}
			published.Likes = int(moved.RowsAffected)
		}

		if err := tx.Where("upcoming_meal_id = ?", id).Delete(&models.UpcomingLike{}).Error; err != nil {
			return fmt.Errorf("failed to remove votes of upcoming meal %d: %w", id, err)
		}
		if err := adjustMealsAdded(tx, published.DistributorEmail, 1); err != nil {
			return err
		}

		meal, promoted = published, true
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return meal, promoted, nil
}
