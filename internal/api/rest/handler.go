// Package rest exposes the BiteLog domain operations as a JSON HTTP API.
package rest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/bitelog/bitelog-api/internal/apperr"
	"github.com/bitelog/bitelog-api/internal/auth"
	"github.com/bitelog/bitelog-api/internal/models"
	"github.com/bitelog/bitelog-api/internal/service/meals"
	"github.com/bitelog/bitelog-api/internal/service/membership"
	"github.com/bitelog/bitelog-api/internal/service/requests"
	"github.com/bitelog/bitelog-api/internal/service/reviews"
	"github.com/bitelog/bitelog-api/internal/service/upcoming"
	"github.com/bitelog/bitelog-api/internal/service/users"
	"github.com/bitelog/bitelog-api/pkg/logger"
)

// UserService interface for account operations.
type UserService interface {
	Bootstrap(ctx context.Context, input users.BootstrapInput) (*models.User, bool, error)
	Get(ctx context.Context, principal *auth.Principal, email string) (*models.User, error)
	List(ctx context.Context, search string, page int) (*users.Page, error)
	MakeAdmin(ctx context.Context, email string) (*models.User, error)
	Role(ctx context.Context, email string) (string, error)
}

// MealService interface for catalog operations.
type MealService interface {
	List(ctx context.Context, in meals.ListInput) (*meals.Page, error)
	Get(ctx context.Context, id uint, principal *auth.Principal) (*meals.Detail, error)
	Create(ctx context.Context, principal *auth.Principal, in meals.Input) (*models.Meal, error)
	Update(ctx context.Context, principal *auth.Principal, id uint, patch meals.Patch) (*models.Meal, error)
	Delete(ctx context.Context, principal *auth.Principal, id uint) error
	CountByDistributor(ctx context.Context, email string) (int64, error)
	ListByDistributor(ctx context.Context, email string) ([]models.Meal, error)
	Categories(ctx context.Context) ([]string, error)
	ToggleLike(ctx context.Context, principal *auth.Principal, id uint, assertedEmail string) (*meals.LikeResult, error)
	Rate(ctx context.Context, principal *auth.Principal, id uint, value int, assertedEmail string) (*models.Meal, error)
}

// ReviewService interface for review operations.
type ReviewService interface {
	Create(ctx context.Context, principal *auth.Principal, mealID uint, in reviews.CreateInput) (*models.Review, error)
	Update(ctx context.Context, principal *auth.Principal, id uint, text string) (*models.Review, error)
	Delete(ctx context.Context, principal *auth.Principal, id uint) error
	ListByMeal(ctx context.Context, mealID uint) ([]models.Review, error)
	ListByAuthor(ctx context.Context, principal *auth.Principal, email string) ([]models.Review, error)
	List(ctx context.Context, page int) (*reviews.Page, error)
}

// RequestService interface for meal request operations.
type RequestService interface {
	Create(ctx context.Context, principal *auth.Principal, mealID uint, in requests.CreateInput) (*models.MealRequest, error)
	Serve(ctx context.Context, id uint) (*models.MealRequest, error)
	Delete(ctx context.Context, principal *auth.Principal, id uint) error
	ListOwn(ctx context.Context, principal *auth.Principal) ([]models.MealRequest, error)
	List(ctx context.Context, search string, page int) (*requests.Page, error)
}

// UpcomingService interface for upcoming meal operations.
type UpcomingService interface {
	Create(ctx context.Context, principal *auth.Principal, in meals.Input) (*models.UpcomingMeal, error)
	List(ctx context.Context) ([]models.UpcomingMeal, error)
	ToggleLike(ctx context.Context, principal *auth.Principal, id uint, assertedEmail string) (*upcoming.LikeResult, error)
	Publish(ctx context.Context, id uint) (*models.Meal, error)
}

// MembershipService interface for membership and payment operations.
type MembershipService interface {
	ListPackages(ctx context.Context) ([]models.MembershipPackage, error)
	CreatePaymentIntent(ctx context.Context, principal *auth.Principal, in membership.IntentInput) (*membership.Intent, error)
	RecordPayment(ctx context.Context, principal *auth.Principal, in membership.PaymentInput) (*models.Payment, error)
	ListPayments(ctx context.Context, principal *auth.Principal) ([]models.Payment, error)
}

// HealthChecker reports whether a backing store is reachable.
type HealthChecker interface {
	Health(ctx context.Context) error
}

// Services groups the domain services served by the API.
type Services struct {
	Users      UserService
	Meals      MealService
	Reviews    ReviewService
	Requests   RequestService
	Upcoming   UpcomingService
	Membership MembershipService
}

// Handler handles BiteLog API requests.
type Handler struct {
	users      UserService
	meals      MealService
	reviews    ReviewService
	requests   RequestService
	upcoming   UpcomingService
	membership MembershipService
	checks     map[string]HealthChecker
	log        *logger.Logger
}

// NewHandler creates a new API handler. checks maps a component name to its
// health check.
func NewHandler(services Services, checks map[string]HealthChecker, log *logger.Logger) *Handler {
	return &Handler{
		users:      services.Users,
		meals:      services.Meals,
		reviews:    services.Reviews,
		requests:   services.Requests,
		upcoming:   services.Upcoming,
		membership: services.Membership,
		checks:     checks,
		log:        log,
	}
}

// Health reports the state of every backing store.
// GET /health.
func (h *Handler) Health(c *gin.Context) {
	status := http.StatusOK
	components := make(map[string]string, len(h.checks))
	for name, check := range h.checks {
		if err := check.Health(c.Request.Context()); err != nil {
			h.log.Warn().Err(err).Str("component", name).Msg("Health check failed")
			components[name] = "unhealthy"
			status = http.StatusServiceUnavailable
			continue
		}
		components[name] = "healthy"
	}

	state := "ok"
	if status != http.StatusOK {
		state = "degraded"
	}
	c.JSON(status, gin.H{
		"status":     state,
		"components": components,
		"timestamp":  time.Now().UTC(),
	})
}

// Helper functions

// respondError maps a domain error onto its status code. Unclassified errors
// are logged and answered with a generic message.
func (h *Handler) respondError(c *gin.Context, err error) {
	status := apperr.HTTPStatus(err)
	if errors.Is(err, context.DeadlineExceeded) {
		status = http.StatusGatewayTimeout
	}
	if status >= http.StatusInternalServerError {
		h.log.Error().
			Err(err).
			Str("method", c.Request.Method).
			Str("path", c.FullPath()).
			Str("request_id", c.GetString(requestIDKey)).
			Msg("Request failed")
	}

	message := apperr.PublicMessage(err)
	if status == http.StatusGatewayTimeout {
		message = "request timed out"
	}
	h.errorResponse(c, status, message)
}

// errorResponse sends a standardized error response.
func (h *Handler) errorResponse(c *gin.Context, statusCode int, message string) {
	c.JSON(statusCode, gin.H{
		"error":     message,
		"timestamp": time.Now().UTC(),
	})
}

// bind decodes the JSON body into dest.
func (h *Handler) bind(c *gin.Context, dest interface{}) bool {
	if err := c.ShouldBindJSON(dest); err != nil {
		h.errorResponse(c, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return false
	}
	return true
}

// bindOptional decodes a JSON body when one was sent. Bodies of unknown
// length (chunked) are read too; only a truly empty body is skipped.
func (h *Handler) bindOptional(c *gin.Context, dest interface{}) bool {
	body := c.Request.Body
	if body == nil || body == http.NoBody || c.Request.ContentLength == 0 {
		return true
	}
	if err := c.ShouldBindJSON(dest); err != nil && !errors.Is(err, io.EOF) {
		h.errorResponse(c, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return false
	}
	return true
}

// parseID reads a positive integer path parameter.
func (h *Handler) parseID(c *gin.Context, name string) (uint, bool) {
	raw := c.Param(name)
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		h.errorResponse(c, http.StatusBadRequest, fmt.Sprintf("invalid %s %q", name, raw))
		return 0, false
	}
	return uint(id), true
}

// parsePage reads the optional page query parameter.
func (h *Handler) parsePage(c *gin.Context) (int, bool) {
	raw := c.Query("page")
	if raw == "" {
		return 1, true
	}
	page, err := strconv.Atoi(raw)
	if err != nil {
		h.errorResponse(c, http.StatusBadRequest, fmt.Sprintf("invalid page %q", raw))
		return 0, false
	}
	return page, true
}
