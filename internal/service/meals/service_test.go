package meals

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bitelog/bitelog-api/internal/apperr"
	"github.com/bitelog/bitelog-api/internal/auth"
	"github.com/bitelog/bitelog-api/internal/models"
	"github.com/bitelog/bitelog-api/internal/repository"
	"github.com/bitelog/bitelog-api/pkg/logger"
	"github.com/bitelog/bitelog-api/test/mocks"
	"github.com/bitelog/bitelog-api/test/testdb"
)

var (
	admin = &auth.Principal{Email: "chef@example.com", Role: models.RoleAdmin}
	rival = &auth.Principal{Email: "other@example.com", Role: models.RoleAdmin}
	ann   = &auth.Principal{Email: "ann@example.com", Role: models.RoleUser}
)

type testEnv struct {
	svc     *Service
	db      *repository.DB
	reviews *repository.ReviewRepository
	cache   *mocks.MockCache
	ctx     context.Context
	clock   time.Time
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db := testdb.New(t)
	env := &testEnv{
		db:      db,
		reviews: repository.NewReviewRepository(db),
		cache:   mocks.NewMockCache(),
		ctx:     context.Background(),
		clock:   time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC),
	}
	env.svc = NewService(
		repository.NewMealRepository(db),
		env.reviews,
		env.cache,
		10,
		time.Minute,
		logger.New("debug", "text", "stdout"),
	)
	env.svc.now = func() time.Time {
		env.clock = env.clock.Add(time.Minute)
		return env.clock
	}
	return env
}

func (e *testEnv) addMeal(t *testing.T, title, category string, price float64) *models.Meal {
	t.Helper()

	meal, err := e.svc.Create(e.ctx, admin, Input{
		Title:       title,
		Category:    category,
		Price:       price,
		Ingredients: []string{"flour", "water"},
	})
	require.NoError(t, err)
	return meal
}

func TestService_CreateRequiresAdminAndValidInput(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.svc.Create(env.ctx, ann, Input{Title: "Soup", Category: "Lunch", Price: 5})
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	_, err = env.svc.Create(env.ctx, admin, Input{Title: "Soup", Category: "Lunch", Price: 0})
	assert.ErrorIs(t, err, apperr.ErrValidation)

	meal, err := env.svc.Create(env.ctx, admin, Input{Title: " Soup ", Category: "Lunch", Price: 5})
	require.NoError(t, err)
	assert.Equal(t, "Soup", meal.Title)
	assert.Equal(t, "chef@example.com", meal.DistributorEmail)
	assert.Equal(t, "chef@example.com", meal.DistributorName)
	assert.Zero(t, meal.Likes)
	assert.False(t, meal.PostTime.IsZero())
}

func TestService_ListPagesAndSorts(t *testing.T) {
	env := newTestEnv(t)
	for i, price := range []float64{12, 4, 8} {
		env.addMeal(t, []string{"Pasta", "Toast", "Salad"}[i], "Lunch", price)
	}

	page, err := env.svc.List(env.ctx, ListInput{Sort: "price", Order: "asc"})
	require.NoError(t, err)
	assert.Equal(t, int64(3), page.Total)
	assert.Equal(t, 1, page.Page)
	assert.Equal(t, 10, page.PageSize)
	assert.Equal(t, 1, page.TotalPages)
	require.Len(t, page.Meals, 3)
	assert.Equal(t, "Toast", page.Meals[0].Title)
	assert.Equal(t, "Pasta", page.Meals[2].Title)

	newest, err := env.svc.List(env.ctx, ListInput{Page: -3})
	require.NoError(t, err)
	assert.Equal(t, 1, newest.Page)
	assert.Equal(t, "Salad", newest.Meals[0].Title)

	empty, err := env.svc.List(env.ctx, ListInput{Page: 5})
	require.NoError(t, err)
	assert.NotNil(t, empty.Meals)
	assert.Empty(t, empty.Meals)
	assert.Equal(t, int64(3), empty.Total)
}

func TestService_ListFilters(t *testing.T) {
	env := newTestEnv(t)
	env.addMeal(t, "Pasta", "Dinner", 12)
	env.addMeal(t, "Toast", "Breakfast", 4)
	env.addMeal(t, "Omelette", "Breakfast", 7)

	page, err := env.svc.List(env.ctx, ListInput{Category: "Breakfast", PriceRange: "5-10"})
	require.NoError(t, err)
	require.Len(t, page.Meals, 1)
	assert.Equal(t, "Omelette", page.Meals[0].Title)

	page, err = env.svc.List(env.ctx, ListInput{Search: "TOAST"})
	require.NoError(t, err)
	require.Len(t, page.Meals, 1)
	assert.Equal(t, "Toast", page.Meals[0].Title)

	page, err = env.svc.List(env.ctx, ListInput{HasReviews: true})
	require.NoError(t, err)
	assert.Empty(t, page.Meals)
}

func TestService_ListRejectsInvalidInput(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name  string
		input ListInput
	}{
		{name: "unknown sort field", input: ListInput{Sort: "calories"}},
		{name: "unknown order", input: ListInput{Order: "sideways"}},
		{name: "reversed price range", input: ListInput{PriceRange: "10-5"}},
		{name: "non numeric price range", input: ListInput{PriceRange: "cheap-10"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.svc.List(env.ctx, tt.input)
			assert.ErrorIs(t, err, apperr.ErrValidation)
		})
	}
}

func TestService_GetIncludesCallerState(t *testing.T) {
	env := newTestEnv(t)
	meal := env.addMeal(t, "Pasta", "Dinner", 12)
	require.NoError(t, env.reviews.Create(env.ctx, &models.Review{MealID: meal.ID, Email: "bob@example.com", Text: "Great"}))

	_, err := env.svc.ToggleLike(env.ctx, ann, meal.ID, "")
	require.NoError(t, err)
	_, err = env.svc.Rate(env.ctx, ann, meal.ID, 4, "")
	require.NoError(t, err)

	anonymous, err := env.svc.Get(env.ctx, meal.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, anonymous.ReviewCount)
	assert.Nil(t, anonymous.Liked)
	assert.Nil(t, anonymous.UserRating)

	detail, err := env.svc.Get(env.ctx, meal.ID, ann)
	require.NoError(t, err)
	require.NotNil(t, detail.Liked)
	assert.True(t, *detail.Liked)
	require.NotNil(t, detail.UserRating)
	assert.Equal(t, 4, *detail.UserRating)
	assert.Equal(t, 1, detail.Meal.Likes)

	_, err = env.svc.Get(env.ctx, 999, nil)
	assert.True(t, apperr.IsNotFound(err))
}

func TestService_UpdateChecksExistenceBeforeOwnership(t *testing.T) {
	env := newTestEnv(t)
	meal := env.addMeal(t, "Pasta", "Dinner", 12)
	title := "Fresh Pasta"

	_, err := env.svc.Update(env.ctx, ann, 999, Patch{Title: &title})
	assert.True(t, apperr.IsNotFound(err))

	_, err = env.svc.Update(env.ctx, &auth.Principal{Email: "ann@example.com"}, meal.ID, Patch{Title: &title})
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	_, err = env.svc.Update(env.ctx, admin, meal.ID, Patch{})
	assert.ErrorIs(t, err, apperr.ErrValidation)

	updated, err := env.svc.Update(env.ctx, admin, meal.ID, Patch{Title: &title})
	require.NoError(t, err)
	assert.Equal(t, "Fresh Pasta", updated.Title)
	assert.Equal(t, "Dinner", updated.Category)
}

func TestService_AdminsMayEditAnyMeal(t *testing.T) {
	env := newTestEnv(t)
	meal := env.addMeal(t, "Pasta", "Dinner", 12)
	price := 15.5

	updated, err := env.svc.Update(env.ctx, rival, meal.ID, Patch{Price: &price})
	require.NoError(t, err)
	assert.Equal(t, 15.5, updated.Price)

	require.NoError(t, env.svc.Delete(env.ctx, rival, meal.ID))
	assert.True(t, apperr.IsNotFound(env.svc.Delete(env.ctx, rival, meal.ID)))
}

func TestService_ToggleLikeChecksAssertedEmail(t *testing.T) {
	env := newTestEnv(t)
	meal := env.addMeal(t, "Pasta", "Dinner", 12)

	_, err := env.svc.ToggleLike(env.ctx, ann, meal.ID, "mallory@example.com")
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	_, err = env.svc.ToggleLike(env.ctx, nil, meal.ID, "")
	assert.ErrorIs(t, err, apperr.ErrUnauthenticated)

	result, err := env.svc.ToggleLike(env.ctx, ann, meal.ID, "ANN@example.com")
	require.NoError(t, err)
	assert.True(t, result.Liked)
	assert.Equal(t, 1, result.Likes)

	result, err = env.svc.ToggleLike(env.ctx, ann, meal.ID, "")
	require.NoError(t, err)
	assert.False(t, result.Liked)
	assert.Equal(t, 0, result.Likes)

	_, err = env.svc.ToggleLike(env.ctx, ann, 999, "")
	assert.True(t, apperr.IsNotFound(err))
}

func TestService_RateAggregates(t *testing.T) {
	env := newTestEnv(t)
	meal := env.addMeal(t, "Pasta", "Dinner", 12)

	_, err := env.svc.Rate(env.ctx, ann, meal.ID, 6, "")
	assert.ErrorIs(t, err, apperr.ErrValidation)

	rated, err := env.svc.Rate(env.ctx, ann, meal.ID, 5, "")
	require.NoError(t, err)
	assert.Equal(t, 5.0, rated.Rating)

	rated, err = env.svc.Rate(env.ctx, &auth.Principal{Email: "bob@example.com"}, meal.ID, 2, "")
	require.NoError(t, err)
	assert.InDelta(t, 3.5, rated.Rating, 0.0001)
	assert.Equal(t, 2, rated.Ratings.Total())

	rated, err = env.svc.Rate(env.ctx, ann, meal.ID, 4, "")
	require.NoError(t, err)
	assert.InDelta(t, 3.0, rated.Rating, 0.0001)
	assert.Equal(t, 2, rated.Ratings.Total())
	assert.Zero(t, rated.Ratings.Five)
}

func TestService_CategoriesAreCached(t *testing.T) {
	env := newTestEnv(t)
	env.addMeal(t, "Pasta", "Dinner", 12)
	env.addMeal(t, "Toast", "Breakfast", 4)

	categories, err := env.svc.Categories(env.ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Breakfast", "Dinner"}, categories)
	assert.True(t, env.cache.Has(categoriesCacheKey))

	env.addMeal(t, "Cake", "Dessert", 6)
	assert.False(t, env.cache.Has(categoriesCacheKey))

	categories, err = env.svc.Categories(env.ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Breakfast", "Dessert", "Dinner"}, categories)
}

func TestService_CategoriesFallBackWhenCacheFails(t *testing.T) {
	env := newTestEnv(t)
	env.addMeal(t, "Pasta", "Dinner", 12)
	env.cache.GetErr = errors.New("redis: connection refused")

	categories, err := env.svc.Categories(env.ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Dinner"}, categories)
}

func TestService_DistributorQueries(t *testing.T) {
	env := newTestEnv(t)
	env.addMeal(t, "Pasta", "Dinner", 12)
	env.addMeal(t, "Toast", "Breakfast", 4)

	count, err := env.svc.CountByDistributor(env.ctx, " CHEF@example.com ")
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	meals, err := env.svc.ListByDistributor(env.ctx, "nobody@example.com")
	require.NoError(t, err)
	assert.NotNil(t, meals)
	assert.Empty(t, meals)
}
