// Package upcoming runs the community vote on candidate meals and publishes
// the winners into the catalog.
package upcoming

import (
	"context"

	"github.com/bitelog/bitelog-api/internal/apperr"
	"github.com/bitelog/bitelog-api/internal/auth"
	prommetrics "github.com/bitelog/bitelog-api/internal/metrics"
	"github.com/bitelog/bitelog-api/internal/models"
	"github.com/bitelog/bitelog-api/internal/repository"
	"github.com/bitelog/bitelog-api/internal/service/meals"
	"github.com/bitelog/bitelog-api/pkg/logger"
)

// Promotion triggers.
const (
	TriggerThreshold = "threshold"
	TriggerAdmin     = "admin"
	TriggerSweep     = "sweep"
)

// DefaultThreshold is the number of likes that publishes an upcoming meal.
const DefaultThreshold = 10

// UpcomingRepository interface for upcoming meal operations.
type UpcomingRepository interface {
	Create(ctx context.Context, meal *models.UpcomingMeal) error
	List(ctx context.Context) ([]models.UpcomingMeal, error)
	ListAtThreshold(ctx context.Context, threshold int) ([]models.UpcomingMeal, error)
	ToggleLike(ctx context.Context, id uint, email string) (int, bool, error)
	Promote(ctx context.Context, id uint) (*models.Meal, bool, error)
}

// Notifier announces newly published meals.
type Notifier interface {
	SendMealPublished(ctx context.Context, meal *models.Meal, trigger string) error
}

// LikeResult is the state after a vote toggle.
type LikeResult struct {
	UpcomingMealID uint         `json:"upcoming_meal_id"`
	Likes          int          `json:"likes"`
	Liked          bool         `json:"liked"`
	Promoted       bool         `json:"promoted"`
	Meal           *models.Meal `json:"meal,omitempty"`
}

// Service handles upcoming meals.
type Service struct {
	upcomingRepo UpcomingRepository
	notifier     Notifier
	threshold    int
	log          *logger.Logger
}

// NewService creates a new upcoming meal service. notifier may be nil.
func NewService(upcomingRepo *repository.UpcomingRepository, notifier Notifier, threshold int, log *logger.Logger) *Service {
	return NewServiceWithInterfaces(upcomingRepo, notifier, threshold, log)
}

// NewServiceWithInterfaces creates a new upcoming meal service with interface dependencies (useful for testing).
func NewServiceWithInterfaces(upcomingRepo UpcomingRepository, notifier Notifier, threshold int, log *logger.Logger) *Service {
	if threshold < 1 {
		threshold = DefaultThreshold
	}
	return &Service{
		upcomingRepo: upcomingRepo,
		notifier:     notifier,
		threshold:    threshold,
		log:          log,
	}
}

// Threshold returns the like count that publishes an upcoming meal.
func (s *Service) Threshold() int {
	return s.threshold
}

// Create adds a candidate meal. Only admins may propose meals.
func (s *Service) Create(ctx context.Context, principal *auth.Principal, in meals.Input) (*models.UpcomingMeal, error) {
	if !principal.IsAdmin() {
		return nil, apperr.Forbidden("only admins can add upcoming meals")
	}
	if err := in.Validate(); err != nil {
		return nil, err
	}

	meal := &models.UpcomingMeal{MealDetails: in.Details(principal.Email)}
	if err := s.upcomingRepo.Create(ctx, meal); err != nil {
		return nil, err
	}

	s.log.Info().Uint("upcoming_meal_id", meal.ID).Str("title", meal.Title).Msg("Upcoming meal created")
	return meal, nil
}

// List returns the upcoming meals, most liked first.
func (s *Service) List(ctx context.Context) ([]models.UpcomingMeal, error) {
	upcoming, err := s.upcomingRepo.List(ctx)
	if err != nil {
		return nil, err
	}
	if upcoming == nil {
		upcoming = []models.UpcomingMeal{}
	}
	return upcoming, nil
}

// ToggleLike flips the caller's vote. A like that brings the meal to the
// threshold publishes it.
func (s *Service) ToggleLike(ctx context.Context, principal *auth.Principal, id uint, assertedEmail string) (*LikeResult, error) {
	if err := principal.CheckAsserted(assertedEmail); err != nil {
		return nil, err
	}

	likes, liked, err := s.upcomingRepo.ToggleLike(ctx, id, principal.Email)
	if err != nil {
		return nil, err
	}
	prommetrics.RecordLikeToggled("upcoming", liked)

	result := &LikeResult{UpcomingMealID: id, Likes: likes, Liked: liked}
	if !liked || likes < s.threshold {
		return result, nil
	}

	meal, promoted, err := s.promote(ctx, id, TriggerThreshold)
	if apperr.IsNotFound(err) {
		// Another vote already published it.
		return result, nil
	}
	if err != nil {
		return nil, err
	}
	result.Promoted, result.Meal = promoted, meal
	return result, nil
}

// Publish moves an upcoming meal into the catalog regardless of its likes.
func (s *Service) Publish(ctx context.Context, id uint) (*models.Meal, error) {
	meal, promoted, err := s.promote(ctx, id, TriggerAdmin)
	if err != nil {
		return nil, err
	}
	if !promoted {
		return nil, apperr.NotFound("upcoming meal", id)
	}
	return meal, nil
}

// Sweep publishes every upcoming meal already at or over the threshold and
// returns how many were published.
func (s *Service) Sweep(ctx context.Context) (int, error) {
	candidates, err := s.upcomingRepo.ListAtThreshold(ctx, s.threshold)
	if err != nil {
		return 0, err
	}

	published := 0
	for _, candidate := range candidates {
		_, promoted, err := s.promote(ctx, candidate.ID, TriggerSweep)
		if apperr.IsNotFound(err) {
			continue
		}
		if err != nil {
			return published, err
		}
		if promoted {
			published++
		}
	}
	return published, nil
}

func (s *Service) promote(ctx context.Context, id uint, trigger string) (*models.Meal, bool, error) {
	meal, promoted, err := s.upcomingRepo.Promote(ctx, id)
	if err != nil || !promoted {
		return nil, false, err
	}

	prommetrics.RecordPromotion(trigger)
	prommetrics.RecordMealCreated("upcoming")
	s.log.Info().
		Uint("upcoming_meal_id", id).
		Uint("meal_id", meal.ID).
		Str("trigger", trigger).
		Msg("Upcoming meal published")

	if s.notifier != nil {
		if err := s.notifier.SendMealPublished(ctx, meal, trigger); err != nil {
			s.log.Warn().Err(err).Uint("meal_id", meal.ID).Msg("Failed to announce published meal")
		}
	}
	return meal, true, nil
}
