// Package meals provides the meal catalog: queries, administration, likes and ratings.
package meals

import (
	"context"
	"strings"
	"time"

	"github.com/bitelog/bitelog-api/internal/apperr"
	"github.com/bitelog/bitelog-api/internal/auth"
	"github.com/bitelog/bitelog-api/internal/cache"
	prommetrics "github.com/bitelog/bitelog-api/internal/metrics"
	"github.com/bitelog/bitelog-api/internal/models"
	"github.com/bitelog/bitelog-api/internal/repository"
	"github.com/bitelog/bitelog-api/internal/service/paging"
	"github.com/bitelog/bitelog-api/pkg/logger"
)

const categoriesCacheKey = "meals:categories"

// MealRepository interface for catalog operations.
type MealRepository interface {
	Search(ctx context.Context, q repository.MealQuery) ([]models.Meal, int64, error)
	GetByID(ctx context.Context, id uint) (*models.Meal, error)
	Create(ctx context.Context, meal *models.Meal) error
	Update(ctx context.Context, id uint, changes map[string]interface{}) (*models.Meal, error)
	Delete(ctx context.Context, id uint) error
	CountByDistributor(ctx context.Context, email string) (int64, error)
	ListByDistributor(ctx context.Context, email string) ([]models.Meal, error)
	Categories(ctx context.Context) ([]string, error)
	ToggleLike(ctx context.Context, mealID uint, email string) (int, bool, error)
	IsLiked(ctx context.Context, mealID uint, email string) (bool, error)
	GetRating(ctx context.Context, mealID uint, email string) (int, error)
	Rate(ctx context.Context, mealID uint, email string, value int) (*models.Meal, error)
}

// ReviewRepository interface for the reviews shown with a meal.
type ReviewRepository interface {
	ListByMeal(ctx context.Context, mealID uint) ([]models.Review, error)
}

// ListInput is a catalog query as received from a client.
type ListInput struct {
	Page       int
	Search     string
	Category   string
	PriceRange string
	Sort       string
	Order      string
	HasReviews bool
}

// Page is one page of catalog results.
type Page struct {
	Meals      []models.Meal `json:"meals"`
	Total      int64         `json:"total"`
	Page       int           `json:"page"`
	PageSize   int           `json:"page_size"`
	TotalPages int           `json:"total_pages"`
}

// Detail is a meal with its reviews and, for a signed-in caller, their own state.
type Detail struct {
	Meal        *models.Meal    `json:"meal"`
	Reviews     []models.Review `json:"reviews"`
	ReviewCount int             `json:"review_count"`
	Liked       *bool           `json:"liked,omitempty"`
	UserRating  *int            `json:"user_rating,omitempty"`
}

// LikeResult is the state after a like toggle.
type LikeResult struct {
	MealID uint `json:"meal_id"`
	Likes  int  `json:"likes"`
	Liked  bool `json:"liked"`
}

// Service handles the meal catalog.
type Service struct {
	mealRepo   MealRepository
	reviewRepo ReviewRepository
	cache      cache.Cache
	pageSize   int
	cacheTTL   time.Duration
	log        *logger.Logger
	now        func() time.Time
}

// NewService creates a new meal service.
func NewService(
	mealRepo *repository.MealRepository,
	reviewRepo *repository.ReviewRepository,
	c cache.Cache,
	pageSize int,
	cacheTTL time.Duration,
	log *logger.Logger,
) *Service {
	return NewServiceWithInterfaces(mealRepo, reviewRepo, c, pageSize, cacheTTL, log)
}

// NewServiceWithInterfaces creates a new meal service with interface dependencies (useful for testing).
func NewServiceWithInterfaces(
	mealRepo MealRepository,
	reviewRepo ReviewRepository,
	c cache.Cache,
	pageSize int,
	cacheTTL time.Duration,
	log *logger.Logger,
) *Service {
	if pageSize < 1 {
		pageSize = 10
	}
	return &Service{
		mealRepo:   mealRepo,
		reviewRepo: reviewRepo,
		cache:      c,
		pageSize:   pageSize,
		cacheTTL:   cacheTTL,
		log:        log,
		now:        time.Now,
	}
}

// List runs a catalog query. An active search orders by relevance and
// overrides the requested sort.
func (s *Service) List(ctx context.Context, in ListInput) (*Page, error) {
	sortField := strings.TrimSpace(in.Sort)
	if sortField == "" {
		sortField = "post_time"
	}
	if !repository.IsMealSortField(sortField) {
		return nil, apperr.Validation("unsupported sort field %q", sortField)
	}

	var desc bool
	switch strings.ToLower(strings.TrimSpace(in.Order)) {
	case "", "desc":
		desc = true
	case "asc":
		desc = false
	default:
		return nil, apperr.Validation("order must be asc or desc")
	}

	minPrice, maxPrice, err := ParsePriceRange(in.PriceRange)
	if err != nil {
		return nil, err
	}

	page, offset := paging.Normalize(in.Page, s.pageSize)
	meals, total, err := s.mealRepo.Search(ctx, repository.MealQuery{
		Search:     strings.TrimSpace(in.Search),
		Category:   strings.TrimSpace(in.Category),
		MinPrice:   minPrice,
		MaxPrice:   maxPrice,
		HasReviews: in.HasReviews,
		SortField:  sortField,
		SortDesc:   desc,
		Offset:     offset,
		Limit:      s.pageSize,
	})
	if err != nil {
		return nil, err
	}
	if meals == nil {
		meals = []models.Meal{}
	}

	return &Page{
		Meals:      meals,
		Total:      total,
		Page:       page,
		PageSize:   s.pageSize,
		TotalPages: paging.TotalPages(total, s.pageSize),
	}, nil
}

// Get returns a meal with its reviews. principal may be nil for anonymous callers.
func (s *Service) Get(ctx context.Context, id uint, principal *auth.Principal) (*Detail, error) {
	meal, err := s.mealRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	reviews, err := s.reviewRepo.ListByMeal(ctx, id)
	if err != nil {
		return nil, err
	}
	if reviews == nil {
		reviews = []models.Review{}
	}

	detail := &Detail{Meal: meal, Reviews: reviews, ReviewCount: len(reviews)}
	if principal != nil {
		liked, err := s.mealRepo.IsLiked(ctx, id, principal.Email)
		if err != nil {
			return nil, err
		}
		rating, err := s.mealRepo.GetRating(ctx, id, principal.Email)
		if err != nil {
			return nil, err
		}
		detail.Liked = &liked
		detail.UserRating = &rating
	}
	return detail, nil
}

// Create adds a meal owned by the calling admin.
func (s *Service) Create(ctx context.Context, principal *auth.Principal, in Input) (*models.Meal, error) {
	if !principal.IsAdmin() {
		return nil, apperr.Forbidden("only admins can add meals")
	}
	if err := in.Validate(); err != nil {
		return nil, err
	}

	meal := &models.Meal{
		MealDetails: in.Details(principal.Email),
		PostTime:    s.now().UTC(),
	}
	if err := s.mealRepo.Create(ctx, meal); err != nil {
		return nil, err
	}

	s.invalidateCategories(ctx)
	prommetrics.RecordMealCreated("admin")
	s.log.Info().Uint("meal_id", meal.ID).Str("distributor", principal.Email).Msg("Meal created")
	return meal, nil
}

// Update edits a meal. The meal must exist before ownership is checked.
func (s *Service) Update(ctx context.Context, principal *auth.Principal, id uint, patch Patch) (*models.Meal, error) {
	meal, err := s.mealRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !principal.CanActFor(meal.DistributorEmail) {
		return nil, apperr.Forbidden("meal %d belongs to another distributor", id)
	}

	changes, err := patch.Changes()
	if err != nil {
		return nil, err
	}

	updated, err := s.mealRepo.Update(ctx, id, changes)
	if err != nil {
		return nil, err
	}
	if _, ok := changes["category"]; ok {
		s.invalidateCategories(ctx)
	}
	return updated, nil
}

// Delete removes a meal with its likes, ratings and reviews.
func (s *Service) Delete(ctx context.Context, principal *auth.Principal, id uint) error {
	meal, err := s.mealRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if !principal.CanActFor(meal.DistributorEmail) {
		return apperr.Forbidden("meal %d belongs to another distributor", id)
	}

	if err := s.mealRepo.Delete(ctx, id); err != nil {
		return err
	}

	s.invalidateCategories(ctx)
	s.log.Info().Uint("meal_id", id).Str("by", principal.Email).Msg("Meal deleted")
	return nil
}

// CountByDistributor counts the meals posted by email.
func (s *Service) CountByDistributor(ctx context.Context, email string) (int64, error) {
	return s.mealRepo.CountByDistributor(ctx, strings.ToLower(strings.TrimSpace(email)))
}

// ListByDistributor lists the meals posted by email.
func (s *Service) ListByDistributor(ctx context.Context, email string) ([]models.Meal, error) {
	meals, err := s.mealRepo.ListByDistributor(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return nil, err
	}
	if meals == nil {
		meals = []models.Meal{}
	}
	return meals, nil
}

// Categories returns the distinct meal categories, served from cache when fresh.
func (s *Service) Categories(ctx context.Context) ([]string, error) {
	var categories []string
	found, err := cache.GetJSON(ctx, s.cache, categoriesCacheKey, &categories)
	if err != nil {
		s.log.Warn().Err(err).Msg("Failed to read categories from cache")
	}
	if found {
		return categories, nil
	}

	categories, err = s.mealRepo.Categories(ctx)
	if err != nil {
		return nil, err
	}
	if categories == nil {
		categories = []string{}
	}
	if err := cache.SetJSON(ctx, s.cache, categoriesCacheKey, categories, s.cacheTTL); err != nil {
		s.log.Warn().Err(err).Msg("Failed to cache categories")
	}
	return categories, nil
}

// ToggleLike flips the caller's like on a meal. assertedEmail, when given,
// must match the verified caller.
func (s *Service) ToggleLike(ctx context.Context, principal *auth.Principal, id uint, assertedEmail string) (*LikeResult, error) {
	if err := principal.CheckAsserted(assertedEmail); err != nil {
		return nil, err
	}

	likes, liked, err := s.mealRepo.ToggleLike(ctx, id, principal.Email)
	if err != nil {
		return nil, err
	}

	prommetrics.RecordLikeToggled("meal", liked)
	return &LikeResult{MealID: id, Likes: likes, Liked: liked}, nil
}

// Rate records or changes the caller's 1..5 rating of a meal.
func (s *Service) Rate(ctx context.Context, principal *auth.Principal, id uint, value int, assertedEmail string) (*models.Meal, error) {
	if err := principal.CheckAsserted(assertedEmail); err != nil {
		return nil, err
	}
	if value < 1 || value > 5 {
		return nil, apperr.Validation("rating must be an integer between 1 and 5")
	}

	previous, err := s.mealRepo.GetRating(ctx, id, principal.Email)
	if err != nil {
		return nil, err
	}

	meal, err := s.mealRepo.Rate(ctx, id, principal.Email, value)
	if err != nil {
		return nil, err
	}

	switch previous {
	case 0:
		prommetrics.RecordRating("created")
	case value:
		prommetrics.RecordRating("unchanged")
	default:
		prommetrics.RecordRating("changed")
	}
	return meal, nil
}

func (s *Service) invalidateCategories(ctx context.Context) {
	if err := s.cache.Del(ctx, categoriesCacheKey); err != nil {
		s.log.Warn().Err(err).Msg("Failed to invalidate categories cache")
	}
}
