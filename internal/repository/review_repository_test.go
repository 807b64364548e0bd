package repository_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bitelog/bitelog-api/internal/apperr"
	"github.com/bitelog/bitelog-api/internal/models"
)

func TestReviewRepository_CreateSnapshotsTitleAndCounts(t *testing.T) {
	f := newFixture(t)
	meal := f.createMeal(t, "Soup", "Lunch", 5)

	review := &models.Review{MealID: meal.ID, Email: "ann@example.com", Username: "Ann", Text: "Lovely"}
	require.NoError(t, f.reviews.Create(f.ctx, review))
	assert.NotZero(t, review.ID)
	assert.Equal(t, "Soup", review.MealTitle)

	_, err := f.meals.Update(f.ctx, meal.ID, map[string]interface{}{"title": "Tomato Soup"})
	require.NoError(t, err)

	stored, err := f.reviews.GetByID(f.ctx, review.ID)
	require.NoError(t, err)
	assert.Equal(t, "Soup", stored.MealTitle)

	refreshed, err := f.meals.GetByID(f.ctx, meal.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, refreshed.ReviewsCount)
}

func TestReviewRepository_CreateForMissingMeal(t *testing.T) {
	f := newFixture(t)

	err := f.reviews.Create(f.ctx, &models.Review{MealID: 42, Email: "ann@example.com", Text: "Where is it?"})
	assert.True(t, apperr.IsNotFound(err))

	_, total, err := f.reviews.List(f.ctx, 0, 10)
	require.NoError(t, err)
	assert.Zero(t, total)
}

func TestReviewRepository_UpdateText(t *testing.T) {
	f := newFixture(t)
	meal := f.createMeal(t, "Soup", "Lunch", 5)
	review := &models.Review{MealID: meal.ID, Email: "ann@example.com", Text: "Lovely"}
	require.NoError(t, f.reviews.Create(f.ctx, review))

	updated, err := f.reviews.UpdateText(f.ctx, review.ID, "Even better cold")
	require.NoError(t, err)
	assert.Equal(t, "Even better cold", updated.Text)

	_, err = f.reviews.UpdateText(f.ctx, 999, "nothing")
	assert.True(t, apperr.IsNotFound(err))
}

func TestReviewRepository_DeleteDecrementsWithFloor(t *testing.T) {
	f := newFixture(t)
	meal := f.createMeal(t, "Soup", "Lunch", 5)
	first := &models.Review{MealID: meal.ID, Email: "ann@example.com", Text: "One"}
	second := &models.Review{MealID: meal.ID, Email: "bob@example.com", Text: "Two"}
	require.NoError(t, f.reviews.Create(f.ctx, first))
	require.NoError(t, f.reviews.Create(f.ctx, second))

	require.NoError(t, f.reviews.Delete(f.ctx, first.ID))
	stored, err := f.meals.GetByID(f.ctx, meal.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, stored.ReviewsCount)

	require.NoError(t, f.db.Model(&models.Meal{}).Where("id = ?", meal.ID).UpdateColumn("reviews_count", 0).Error)
	require.NoError(t, f.reviews.Delete(f.ctx, second.ID))
	stored, err = f.meals.GetByID(f.ctx, meal.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, stored.ReviewsCount)

	err = f.reviews.Delete(f.ctx, second.ID)
	assert.True(t, apperr.IsNotFound(err))
}

func TestReviewRepository_Listing(t *testing.T) {
	f := newFixture(t)
	soup := f.createMeal(t, "Soup", "Lunch", 5)
	bread := f.createMeal(t, "Bread", "Bakery", 2)

	require.NoError(t, f.reviews.Create(f.ctx, &models.Review{MealID: soup.ID, Email: "ann@example.com", Text: "a"}))
	require.NoError(t, f.reviews.Create(f.ctx, &models.Review{MealID: bread.ID, Email: "ann@example.com", Text: "b"}))
	require.NoError(t, f.reviews.Create(f.ctx, &models.Review{MealID: soup.ID, Email: "bob@example.com", Text: "c"}))

	bySoup, err := f.reviews.ListByMeal(f.ctx, soup.ID)
	require.NoError(t, err)
	require.Len(t, bySoup, 2)
	assert.Equal(t, "c", bySoup[0].Text)

	byAnn, err := f.reviews.ListByEmail(f.ctx, "ann@example.com")
	require.NoError(t, err)
	assert.Len(t, byAnn, 2)

	page, total, err := f.reviews.List(f.ctx, 1, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	require.Len(t, page, 1)
	assert.Equal(t, "b", page[0].Text)
}
