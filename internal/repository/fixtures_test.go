package repository_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/bitelog/bitelog-api/internal/models"
	"github.com/bitelog/bitelog-api/internal/repository"
	"github.com/bitelog/bitelog-api/test/testdb"
)

type fixture struct {
	db        *repository.DB
	users     *repository.UserRepository
	meals     *repository.MealRepository
	reviews   *repository.ReviewRepository
	requests  *repository.RequestRepository
	upcoming  *repository.UpcomingRepository
	packages  *repository.MembershipRepository
	ctx       context.Context
	postClock time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db := testdb.New(t)
	return &fixture{
		db:        db,
		users:     repository.NewUserRepository(db),
		meals:     repository.NewMealRepository(db),
		reviews:   repository.NewReviewRepository(db),
		requests:  repository.NewRequestRepository(db),
		upcoming:  repository.NewUpcomingRepository(db),
		packages:  repository.NewMembershipRepository(db),
		ctx:       context.Background(),
		postClock: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func (f *fixture) createUser(t *testing.T, email, role string) *models.User {
	t.Helper()

	user, inserted, err := f.users.CreateIfAbsent(f.ctx, &models.User{
		Email: email,
		Name:  "User " + email,
		Role:  role,
		Badge: models.DefaultBadge,
	})
	require.NoError(t, err)
	require.True(t, inserted)
	return user
}

// createMeal stores a meal; each call posts one minute after the previous one.
func (f *fixture) createMeal(t *testing.T, title, category string, price float64) *models.Meal {
	t.Helper()

	f.postClock = f.postClock.Add(time.Minute)
	meal := &models.Meal{
		MealDetails: models.MealDetails{
			Title:            title,
			Category:         category,
			Price:            price,
			Description:      fmt.Sprintf("%s served fresh", title),
			Ingredients:      []string{"salt"},
			DistributorName:  "Chef",
			DistributorEmail: "chef@example.com",
		},
		PostTime: f.postClock,
	}
	require.NoError(t, f.meals.Create(f.ctx, meal))
	return meal
}
