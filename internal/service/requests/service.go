// Package requests handles subscribers' requests to be served catalog meals.
package requests

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

// PageSize is the number of requests per admin listing page.
const PageSize = 10

// RequestRepository interface for meal request operations.
type RequestRepository interface {
	Create(ctx context.Context, request *models.MealRequest) error
	MarkDelivered(ctx context.Context, id uint) (*models.MealRequest, error)
	DeleteOwned(ctx context.Context, id uint, email string) error
	ListByUser(ctx context.Context, email string) ([]models.MealRequest, error)
	List(ctx context.Context, search string, offset, limit int) ([]models.MealRequest, int64, error)
	ListPending(ctx context.Context) ([]models.MealRequest, error)
}

// UserRepository interface for requester lookups.
type UserRepository interface {
	GetByEmail(ctx context.Context, email string) (*models.User, error)
}

// CreateInput is a meal request as sent by a client.
type CreateInput struct {
	Email    string `json:"email"`
	UserName string `json:"user_name"`
	PhotoURL string `json:"photo_url"`
}

// Page is one page of meal requests.
type Page struct {
	Requests   []models.MealRequest `json:"requests"`
	Total      int64                `json:"total"`
	Page       int                  `json:"page"`
	PageSize   int                  `json:"page_size"`
	TotalPages int                  `json:"total_pages"`
}

// Service handles the meal request lifecycle.
type Service struct {
	requestRepo RequestRepository
	userRepo    UserRepository
	log         *logger.Logger
}

// NewService creates a new meal request service.
func NewService(requestRepo *repository.RequestRepository, userRepo *repository.UserRepository, log *logger.Logger) *Service {
	return NewServiceWithInterfaces(requestRepo, userRepo, log)
}

// NewServiceWithInterfaces creates a new meal request service with interface dependencies (useful for testing).
func NewServiceWithInterfaces(requestRepo RequestRepository, userRepo UserRepository, log *logger.Logger) *Service {
	return &Service{requestRepo: requestRepo, userRepo: userRepo, log: log}
}

// Create files a pending request by the caller for a meal.
func (s *Service) Create(ctx context.Context, principal *auth.Principal, mealID uint, in CreateInput) (*models.MealRequest, error) {
	if err := principal.CheckAsserted(in.Email); err != nil {
		return nil, err
	}

	request := &models.MealRequest{
		MealID:    mealID,
		UserEmail: principal.Email,
		UserName:  strings.TrimSpace(in.UserName),
		PhotoURL:  strings.TrimSpace(in.PhotoURL),
	}

	user, err := s.userRepo.GetByEmail(ctx, principal.Email)
	switch {
	case err == nil:
		if user.Name != "" {
			request.UserName = user.Name
		}
		if user.Photo != "" {
			request.PhotoURL = user.Photo
		}
	case !apperr.IsNotFound(err):
		return nil, err
	}

	if err := s.requestRepo.Create(ctx, request); err != nil {
		return nil, err
	}

	prommetrics.RecordMealRequest("created")
	s.log.Info().Uint("request_id", request.ID).Uint("meal_id", mealID).Str("email", principal.Email).Msg("Meal requested")
	return request, nil
}

// Serve marks a pending request delivered.
func (s *Service) Serve(ctx context.Context, id uint) (*models.MealRequest, error) {
	request, err := s.requestRepo.MarkDelivered(ctx, id)
	if err != nil {
		return nil, err
	}

	prommetrics.RecordMealRequest("served")
	s.log.Info().Uint("request_id", id).Str("email", request.UserEmail).Msg("Meal request served")
	return request, nil
}

// Delete removes one of the caller's own requests. A request owned by
// someone else is reported as not found.
func (s *Service) Delete(ctx context.Context, principal *auth.Principal, id uint) error {
	if principal == nil {
		return apperr.Unauthenticated("authentication required")
	}
	if err := s.requestRepo.DeleteOwned(ctx, id, principal.Email); err != nil {
		return err
	}
	prommetrics.RecordMealRequest("deleted")
	return nil
}

// ListOwn returns the caller's requests, newest first.
func (s *Service) ListOwn(ctx context.Context, principal *auth.Principal) ([]models.MealRequest, error) {
	if principal == nil {
		return nil, apperr.Unauthenticated("authentication required")
	}
	requests, err := s.requestRepo.ListByUser(ctx, principal.Email)
	if err != nil {
		return nil, err
	}
	if requests == nil {
		requests = []models.MealRequest{}
	}
	return requests, nil
}

// List returns one page of all requests matching search.
func (s *Service) List(ctx context.Context, search string, page int) (*Page, error) {
	page, offset := paging.Normalize(page, PageSize)
	requests, total, err := s.requestRepo.List(ctx, search, offset, PageSize)
	if err != nil {
		return nil, err
	}
	if requests == nil {
		requests = []models.MealRequest{}
	}
	return &Page{
		Requests:   requests,
		Total:      total,
		Page:       page,
		PageSize:   PageSize,
		TotalPages: paging.TotalPages(total, PageSize),
	}, nil
}

// Pending returns every request still waiting to be served, oldest first.
func (s *Service) Pending(ctx context.Context) ([]models.MealRequest, error) {
	return s.requestRepo.ListPending(ctx)
}
