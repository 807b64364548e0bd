package rest

import (
	"time"

	"github.com/gin-gonic/gin"

	prommetrics "github.com/bitelog/bitelog-api/internal/metrics"
	"github.com/bitelog/bitelog-api/pkg/logger"
)

// RouterConfig holds the cross-cutting settings of the HTTP surface.
type RouterConfig struct {
	RequestTimeout time.Duration
	RateLimiter    *RateLimiter // nil disables rate limiting
}

// NewRouter builds the gin engine with global middleware and every route.
func NewRouter(h *Handler, authn *Authenticator, cfg RouterConfig, log *logger.Logger) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(RequestID())
	router.Use(AccessLog(log))
	router.Use(prommetrics.GinMiddleware())
	if cfg.RateLimiter != nil {
		router.Use(cfg.RateLimiter.Middleware())
	}
	if cfg.RequestTimeout > 0 {
		router.Use(RequestTimeout(cfg.RequestTimeout))
	}

	router.GET("/health", h.Health)

	requireAuth := authn.RequireAuth()
	requireAdmin := authn.RequireAdmin()
	optionalAuth := authn.OptionalAuth()

	api := router.Group("/api/v1")

	// Users
	api.POST("/users", h.BootstrapUser)
	api.GET("/users", requireAuth, requireAdmin, h.ListUsers)
	api.GET("/users/me", requireAuth, h.CurrentUser)
	api.GET("/users/:email/role", requireAuth, h.GetUserRole)
	api.PATCH("/users/:email/admin", requireAuth, requireAdmin, h.MakeAdmin)

	// Meal catalog
	api.GET("/meals", h.ListMeals)
	api.GET("/meals/categories", h.ListCategories)
	api.GET("/meals/count/:email", h.CountMealsByDistributor)
	api.GET("/meals/distributor/:email", requireAuth, requireAdmin, h.ListMealsByDistributor)
	api.GET("/meals/:id", optionalAuth, h.GetMeal)
	api.POST("/meals", requireAuth, requireAdmin, h.CreateMeal)
	api.PATCH("/meals/:id", requireAuth, requireAdmin, h.UpdateMeal)
	api.DELETE("/meals/:id", requireAuth, requireAdmin, h.DeleteMeal)
	api.POST("/meals/:id/like", requireAuth, h.ToggleMealLike)
	api.POST("/meals/:id/rating", requireAuth, h.RateMeal)

	// Reviews
	api.GET("/meals/:id/reviews", h.ListMealReviews)
	api.POST("/meals/:id/reviews", requireAuth, h.CreateReview)
	api.GET("/reviews", requireAuth, requireAdmin, h.ListReviews)
	api.GET("/reviews/user/:email", requireAuth, h.ListReviewsByAuthor)
	api.PATCH("/reviews/:id", requireAuth, h.UpdateReview)
	api.DELETE("/reviews/:id", requireAuth, h.DeleteReview)

	// Meal requests
	api.POST("/meals/:id/request", requireAuth, h.CreateMealRequest)
	api.GET("/requests/me", requireAuth, h.ListOwnRequests)
	api.GET("/requests", requireAuth, requireAdmin, h.ListRequests)
	api.PATCH("/requests/:id/serve", requireAuth, requireAdmin, h.ServeRequest)
	api.DELETE("/requests/:id", requireAuth, h.DeleteRequest)

	// Upcoming meals
	api.GET("/upcoming", h.ListUpcoming)
	api.POST("/upcoming", requireAuth, requireAdmin, h.CreateUpcoming)
	api.POST("/upcoming/:id/like", requireAuth, h.ToggleUpcomingLike)
	api.POST("/upcoming/:id/publish", requireAuth, requireAdmin, h.PublishUpcoming)

	// Membership and payments
	api.GET("/membership/packages", h.ListPackages)
	api.POST("/payments/intent", requireAuth, h.CreatePaymentIntent)
	api.POST("/payments", requireAuth, h.RecordPayment)
	api.GET("/payments", requireAuth, h.ListPayments)

	return router
}
