package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/bitelog/bitelog-api/internal/apperr"
	"github.com/bitelog/bitelog-api/internal/models"
)

// Sortable meal columns.
var mealSortColumns = map[string]string{
	"post_time":     "post_time",
	"price":         "price",
	"likes":         "likes",
	"rating":        "rating",
	"reviews_count": "reviews_count",
}

// IsMealSortField reports whether field can be used to order the catalog.
func IsMealSortField(field string) bool {
	_, ok := mealSortColumns[field]
	return ok
}

// MealQuery describes a catalog search.
type MealQuery struct {
	Search     string
	Category   string
	MinPrice   *float64
	MaxPrice   *float64
	HasReviews bool
	SortField  string
	SortDesc   bool
	Offset     int
	Limit      int
}

// relevanceExpr weights a substring hit per field: title 8, category 4, ingredients 2, description 1.
const relevanceExpr = "(CASE WHEN LOWER(title) LIKE ? ESCAPE '\\' THEN 8 ELSE 0 END" +
	" + CASE WHEN LOWER(COALESCE(category, '')) LIKE ? ESCAPE '\\' THEN 4 ELSE 0 END" +
	" + CASE WHEN LOWER(CAST(COALESCE(ingredients, '[]') AS TEXT)) LIKE ? ESCAPE '\\' THEN 2 ELSE 0 END" +
	" + CASE WHEN LOWER(COALESCE(description, '')) LIKE ? ESCAPE '\\' THEN 1 ELSE 0 END)"

var mealLikes = likeTarget{
	entity:    "meal",
	counter:   &models.Meal{},
	join:      &models.MealLike{},
	keyColumn: "meal_id",
}

// MealRepository handles meal catalog database operations.
type MealRepository struct {
	db *DB
}

// NewMealRepository creates a new meal repository.
func NewMealRepository(db *DB) *MealRepository {
	return &MealRepository{db: db}
}

// Search returns one page of meals matching q and the total match count.
func (r *MealRepository) Search(ctx context.Context, q MealQuery) ([]models.Meal, int64, error) {
	base := r.db.WithContext(ctx).Model(&models.Meal{})

	var pattern string
	if q.Search != "" {
		pattern = likePattern(q.Search)
		base = base.Where(relevanceExpr+" > 0", pattern, pattern, pattern, pattern)
	}
	if q.Category != "" {
		base = base.Where("category = ?", q.Category)
	}
	if q.MinPrice != nil {
		base = base.Where("price >= ?", *q.MinPrice)
	}
	if q.MaxPrice != nil {
		base = base.Where("price <= ?", *q.MaxPrice)
	}
	if q.HasReviews {
		base = base.Where("reviews_count > 0")
	}

	var total int64
	if err := base.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count meals: %w", err)
	}

	query := base.Session(&gorm.Session{})
	if q.Search != "" {
		query = query.
			Select("meals.*, "+relevanceExpr+" AS relevance", pattern, pattern, pattern, pattern).
			Order("relevance DESC").
			Order("post_time DESC")
	} else {
		column, ok := mealSortColumns[q.SortField]
		if !ok {
			column = "post_time"
		}
		query = query.Order(clause.OrderByColumn{Column: clause.Column{Name: column}, Desc: q.SortDesc})
	}

	var meals []models.Meal
	if err := query.Order("id DESC").Offset(q.Offset).Limit(q.Limit).Find(&meals).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to search meals: %w", err)
	}
	return meals, total, nil
}

// GetByID retrieves a meal by ID.
func (r *MealRepository) GetByID(ctx context.Context, id uint) (*models.Meal, error) {
	var meal models.Meal
	if err := r.db.WithContext(ctx).First(&meal, id).Error; err != nil {
		return nil, fmt.Errorf("failed to get meal %d: %w", id, translateError(err, "meal", id))
	}
	return &meal, nil
}

// Create inserts a meal and credits its distributor's meal counter.
func (r *MealRepository) Create(ctx context.Context, meal *models.Meal) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(meal).Error; err != nil {
			return fmt.Errorf("failed to create meal: %w", err)
		}
		return adjustMealsAdded(tx, meal.DistributorEmail, 1)
	})
}

// Update applies the given column changes and returns the fresh record.
func (r *MealRepository) Update(ctx context.Context, id uint, changes map[string]interface{}) (*models.Meal, error) {
	if len(changes) > 0 {
		result := r.db.WithContext(ctx).Model(&models.Meal{ID: id}).Updates(changes)
		if result.Error != nil {
			return nil, fmt.Errorf("failed to update meal %d: %w", id, result.Error)
		}
		if result.RowsAffected == 0 {
			return nil, apperr.NotFound("meal", id)
		}
	}
	return r.GetByID(ctx, id)
}

// Delete removes a meal with its likes, ratings and reviews, and debits the
// distributor's meal counter.
func (r *MealRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var meal models.Meal
		if err := tx.Select("id", "distributor_email").First(&meal, id).Error; err != nil {
			return translateError(err, "meal", id)
		}
		for _, model := range []interface{}{&models.MealLike{}, &models.MealRating{}, &models.Review{}} {
			if err := tx.Where("meal_id = ?", id).Delete(model).Error; err != nil {
				return fmt.Errorf("failed to delete dependents of meal %d: %w", id, err)
			}
		}
		result := tx.Delete(&models.Meal{}, id)
		if result.Error != nil {
			return fmt.Errorf("failed to delete meal %d: %w", id, result.Error)
		}
		if result.RowsAffected == 0 {
			return apperr.NotFound("meal", id)
		}
		return adjustMealsAdded(tx, meal.DistributorEmail, -1)
	})
}

// CountByDistributor counts meals posted by a distributor.
func (r *MealRepository) CountByDistributor(ctx context.Context, email string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Meal{}).Where("distributor_email = ?", email).Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count meals for %s: %w", email, err)
	}
	return count, nil
}

// ListByDistributor lists a distributor's meals, newest first.
func (r *MealRepository) ListByDistributor(ctx context.Context, email string) ([]models.Meal, error) {
	var meals []models.Meal
	err := r.db.WithContext(ctx).Where("distributor_email = ?", email).Order("post_time DESC").Find(&meals).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list meals for %s: %w", email, err)
	}
	return meals, nil
}

// Categories returns the distinct meal categories in alphabetical order.
func (r *MealRepository) Categories(ctx context.Context) ([]string, error) {
	var categories []string
	err := r.db.WithContext(ctx).Model(&models.Meal{}).
		Where("category IS NOT NULL AND category <> ''").
		Distinct().
		Order("category ASC").
		Pluck("category", &categories).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	return categories, nil
}

// ToggleLike flips the (meal, email) like and returns the resulting count and state.
func (r *MealRepository) ToggleLike(ctx context.Context, mealID uint, email string) (likes int, liked bool, err error) {
	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		likes, liked, err = toggleLike(tx, mealLikes, mealID, email,
			&models.MealLike{MealID: mealID, Email: email, LikedAt: time.Now().UTC()})
		return err
	})
	return likes, liked, err
}

// IsLiked reports whether email currently likes the meal.
func (r *MealRepository) IsLiked(ctx context.Context, mealID uint, email string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.MealLike{}).
		Where("meal_id = ? AND email = ?", mealID, email).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check like: %w", err)
	}
	return count > 0, nil
}

// GetRating returns the value email gave the meal, or 0 when unrated.
func (r *MealRepository) GetRating(ctx context.Context, mealID uint, email string) (int, error) {
	var rating models.MealRating
	err := r.db.WithContext(ctx).Where("meal_id = ? AND email = ?", mealID, email).Take(&rating).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to get rating: %w", err)
	}
	return rating.Value, nil
}

// Rate records or changes email's rating of a meal and refreshes the aggregate.
// A first rating bumps the histogram bucket and reviews_count; a change moves
// one count from the old bucket to the new one.
func (r *MealRepository) Rate(ctx context.Context, mealID uint, email string, value int) (*models.Meal, error) {
	newBucket, err := ratingBucket(value)
	if err != nil {
		return nil, err
	}

	var meal models.Meal
	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Select("id").First(&models.Meal{}, mealID).Error; err != nil {
			return translateError(err, "meal", mealID)
		}

		now := time.Now().UTC()
		var existing models.MealRating
		// The row lock serializes re-ratings by the same user so two changes
		// never both move a count out of the same old bucket.
		lookup := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("meal_id = ? AND email = ?", mealID, email).
			Take(&existing)

		switch {
		case errors.Is(lookup.Error, gorm.ErrRecordNotFound):
			rating := &models.MealRating{MealID: mealID, Email: email, Value: value, RatedAt: now, UpdatedAt: now}
			if err := tx.Create(rating).Error; err != nil {
				return translateError(err, "rating", mealID)
			}
			if err := tx.Model(&models.Meal{}).Where("id = ?", mealID).UpdateColumns(map[string]interface{}{
				newBucket:       increment(newBucket, 1),
				"reviews_count": increment("reviews_count", 1),
			}).Error; err != nil {
				return fmt.Errorf("failed to record rating: %w", err)
			}
		case lookup.Error != nil:
			return fmt.Errorf("failed to load rating: %w", lookup.Error)
		case existing.Value != value:
			oldBucket, err := ratingBucket(existing.Value)
			if err != nil {
				return err
			}
			changed := tx.Model(&models.MealRating{}).
				Where("meal_id = ? AND email = ? AND value = ?", mealID, email, existing.Value).
				UpdateColumns(map[string]interface{}{"value": value, "updated_at": now})
			if changed.Error != nil {
				return fmt.Errorf("failed to change rating: %w", changed.Error)
			}
			if changed.RowsAffected == 0 {
				return apperr.Conflict("rating of meal %d changed concurrently, retry", mealID)
			}
			if err := tx.Model(&models.Meal{}).Where("id = ?", mealID).UpdateColumns(map[string]interface{}{
				oldBucket: clampedDecrement(oldBucket),
				newBucket: increment(newBucket, 1),
			}).Error; err != nil {
				return fmt.Errorf("failed to move rating bucket: %w", err)
			}
		}

		if err := tx.Model(&models.Meal{}).Where("id = ?", mealID).
			UpdateColumn("rating", gorm.Expr(averageRatingExpr)).Error; err != nil {
			return fmt.Errorf("failed to refresh rating average: %w", err)
		}
		return tx.First(&meal, mealID).Error
	})
	if err != nil {
		return nil, err
	}
	return &meal, nil
}

const ratingTotalExpr = "(ratings_one + ratings_two + ratings_three + ratings_four + ratings_five)"

const averageRatingExpr = "CASE WHEN " + ratingTotalExpr + " = 0 THEN 0 ELSE " +
	"(1.0 * ratings_one + 2.0 * ratings_two + 3.0 * ratings_three + 4.0 * ratings_four + 5.0 * ratings_five) / " +
	ratingTotalExpr + " END"

// ratingBucket maps a star value to its histogram column.
func ratingBucket(value int) (string, error) {
	switch value {
	case 1:
		return "ratings_one", nil
	case 2:
		return "ratings_two", nil
	case 3:
		return "ratings_three", nil
	case 4:
		return "ratings_four", nil
	case 5:
		return "ratings_five", nil
	default:
		return "", apperr.Validation("rating must be an integer between 1 and 5")
	}
}
