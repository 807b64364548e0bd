// Package reviews manages the written reviews attached to catalog meals.
package reviews

import (
	"context"
	"strings"

	"github.com/bitelog/bitelog-api/internal/apperr"
	"github.com/bitelog/bitelog-api/internal/auth"
	prommetrics "github.com/bitelog/bitelog-api/internal/metrics"
	"github.com/bitelog/bitelog-api/internal/models"
	"github.com/bitelog/bitelog-api/internal/repository"
	"github.com/bitelog/bitelog-api/internal/service/paging"
	"github.com/bitelog/bitelog-api/pkg/logger"
)

// PageSize is the number of reviews per admin listing page.
const PageSize = 10

// ReviewRepository interface for review operations.
type ReviewRepository interface {
	Create(ctx context.Context, review *models.Review) error
	GetByID(ctx context.Context, id uint) (*models.Review, error)
	UpdateText(ctx context.Context, id uint, text string) (*models.Review, error)
	Delete(ctx context.Context, id uint) error
	ListByMeal(ctx context.Context, mealID uint) ([]models.Review, error)
	ListByEmail(ctx context.Context, email string) ([]models.Review, error)
	List(ctx context.Context, offset, limit int) ([]models.Review, int64, error)
}

// UserRepository interface for author lookups.
type UserRepository interface {
	GetByEmail(ctx context.Context, email string) (*models.User, error)
}

// CreateInput is a new review as sent by a client.
type CreateInput struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	PhotoURL string `json:"photo_url"`
	Text     string `json:"text"`
}

// Page is one page of reviews.
type Page struct {
	Reviews    []models.Review `json:"reviews"`
	Total      int64           `json:"total"`
	Page       int             `json:"page"`
	PageSize   int             `json:"page_size"`
	TotalPages int             `json:"total_pages"`
}

// Service handles meal reviews.
type Service struct {
	reviewRepo ReviewRepository
	userRepo   UserRepository
	log        *logger.Logger
}

// NewService creates a new review service.
func NewService(reviewRepo *repository.ReviewRepository, userRepo *repository.UserRepository, log *logger.Logger) *Service {
	return NewServiceWithInterfaces(reviewRepo, userRepo, log)
}

// NewServiceWithInterfaces creates a new review service with interface dependencies (useful for testing).
func NewServiceWithInterfaces(reviewRepo ReviewRepository, userRepo UserRepository, log *logger.Logger) *Service {
	return &Service{reviewRepo: reviewRepo, userRepo: userRepo, log: log}
}

// Create adds a review by the caller to a meal.
func (s *Service) Create(ctx context.Context, principal *auth.Principal, mealID uint, in CreateInput) (*models.Review, error) {
	if err := principal.CheckAsserted(in.Email); err != nil {
		return nil, err
	}
	text := strings.TrimSpace(in.Text)
	if text == "" {
		return nil, apperr.Validation("review text is required")
	}

	review := &models.Review{
		MealID:   mealID,
		Email:    principal.Email,
		Username: strings.TrimSpace(in.Username),
		PhotoURL: strings.TrimSpace(in.PhotoURL),
		Text:     text,
	}

	// Stored profile wins over what the client sent.
	user, err := s.userRepo.GetByEmail(ctx, principal.Email)
	switch {
	case err == nil:
		if user.Name != "" {
			review.Username = user.Name
		}
		if user.Photo != "" {
			review.PhotoURL = user.Photo
		}
	case !apperr.IsNotFound(err):
		return nil, err
	}

	if err := s.reviewRepo.Create(ctx, review); err != nil {
		return nil, err
	}

	prommetrics.RecordReview("created")
	s.log.Debug().Uint("review_id", review.ID).Uint("meal_id", mealID).Str("email", principal.Email).Msg("Review created")
	return review, nil
}

// Update replaces the text of the caller's review.
func (s *Service) Update(ctx context.Context, principal *auth.Principal, id uint, text string) (*models.Review, error) {
	if _, err := s.owned(ctx, principal, id); err != nil {
		return nil, err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, apperr.Validation("review text is required")
	}

	review, err := s.reviewRepo.UpdateText(ctx, id, text)
	if err != nil {
		return nil, err
	}
	prommetrics.RecordReview("updated")
	return review, nil
}

// Delete removes the caller's review.
func (s *Service) Delete(ctx context.Context, principal *auth.Principal, id uint) error {
	if _, err := s.owned(ctx, principal, id); err != nil {
		return err
	}
	if err := s.reviewRepo.Delete(ctx, id); err != nil {
		return err
	}
	prommetrics.RecordReview("deleted")
	return nil
}

// ListByMeal returns a meal's reviews, newest first.
func (s *Service) ListByMeal(ctx context.Context, mealID uint) ([]models.Review, error) {
	reviews, err := s.reviewRepo.ListByMeal(ctx, mealID)
	if err != nil {
		return nil, err
	}
	return nonNil(reviews), nil
}

// ListByAuthor returns the reviews written by email. Callers may list their
// own reviews, admins anyone's.
func (s *Service) ListByAuthor(ctx context.Context, principal *auth.Principal, email string) ([]models.Review, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if !principal.CanActFor(email) {
		return nil, apperr.Forbidden("cannot list another user's reviews")
	}
	reviews, err := s.reviewRepo.ListByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	return nonNil(reviews), nil
}

// List returns one page of all reviews.
func (s *Service) List(ctx context.Context, page int) (*Page, error) {
	page, offset := paging.Normalize(page, PageSize)
	reviews, total, err := s.reviewRepo.List(ctx, offset, PageSize)
	if err != nil {
		return nil, err
	}
	return &Page{
		Reviews:    nonNil(reviews),
		Total:      total,
		Page:       page,
		PageSize:   PageSize,
		TotalPages: paging.TotalPages(total, PageSize),
	}, nil
}

// owned loads a review and checks the caller wrote it. Existence is checked first.
func (s *Service) owned(ctx context.Context, principal *auth.Principal, id uint) (*models.Review, error) {
	if principal == nil {
		return nil, apperr.Unauthenticated("authentication required")
	}
	review, err := s.reviewRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !strings.EqualFold(review.Email, principal.Email) {
		return nil, apperr.Forbidden("review %d belongs to another user", id)
	}
	return review, nil
}

func nonNil(reviews []models.Review) []models.Review {
	if reviews == nil {
		return []models.Review{}
	}
	return reviews
}
