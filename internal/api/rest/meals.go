package rest

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/bitelog/bitelog-api/internal/service/meals"
)

type emailAssertion struct {
	Email string `json:"email"`
}

type ratingRequest struct {
	Rating *int   `json:"rating"`
	Email  string `json:"email"`
}

// ListMeals runs a catalog query.
// GET /api/v1/meals?page=1&search=soup&category=Lunch&price_range=5-10&sort=price&order=asc&has_reviews=true.
func (h *Handler) ListMeals(c *gin.Context) {
	page, ok := h.parsePage(c)
	if !ok {
		return
	}

	hasReviews := false
	if raw := c.Query("has_reviews"); raw != "" {
		parsed, err := strconv.ParseBool(raw)
		if err != nil {
			h.errorResponse(c, http.StatusBadRequest, "has_reviews must be true or false")
			return
		}
		hasReviews = parsed
	}

	result, err := h.meals.List(c.Request.Context(), meals.ListInput{
		Page:       page,
		Search:     c.Query("search"),
		Category:   c.Query("category"),
		PriceRange: c.Query("price_range"),
		Sort:       c.Query("sort"),
		Order:      c.Query("order"),
		HasReviews: hasReviews,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// GetMeal returns a meal with its reviews.
// GET /api/v1/meals/:id.
func (h *Handler) GetMeal(c *gin.Context) {
	id, ok := h.parseID(c, "id")
	if !ok {
		return
	}

	detail, err := h.meals.Get(c.Request.Context(), id, principalFrom(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, detail)
}

// CreateMeal adds a meal to the catalog.
// POST /api/v1/meals.
func (h *Handler) CreateMeal(c *gin.Context) {
	var input meals.Input
	if !h.bind(c, &input) {
		return
	}

	meal, err := h.meals.Create(c.Request.Context(), principalFrom(c), input)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, meal)
}

// UpdateMeal patches a meal.
// PATCH /api/v1/meals/:id.
func (h *Handler) UpdateMeal(c *gin.Context) {
	id, ok := h.parseID(c, "id")
	if !ok {
		return
	}
	var patch meals.Patch
	if !h.bind(c, &patch) {
		return
	}

	meal, err := h.meals.Update(c.Request.Context(), principalFrom(c), id, patch)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, meal)
}

// DeleteMeal removes a meal.
// DELETE /api/v1/meals/:id.
func (h *Handler) DeleteMeal(c *gin.Context) {
	id, ok := h.parseID(c, "id")
	if !ok {
		return
	}

	if err := h.meals.Delete(c.Request.Context(), principalFrom(c), id); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": true, "id": id})
}

// CountMealsByDistributor counts the meals posted by a distributor.
// GET /api/v1/meals/count/:email.
func (h *Handler) CountMealsByDistributor(c *gin.Context) {
	email := c.Param("email")
	count, err := h.meals.CountByDistributor(c.Request.Context(), email)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"email": email, "count": count})
}

// ListMealsByDistributor lists the meals posted by a distributor.
// GET /api/v1/meals/distributor/:email.
func (h *Handler) ListMealsByDistributor(c *gin.Context) {
	list, err := h.meals.ListByDistributor(c.Request.Context(), c.Param("email"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"meals": list, "total": len(list)})
}

// ListCategories returns the distinct meal categories.
// GET /api/v1/meals/categories.
func (h *Handler) ListCategories(c *gin.Context) {
	categories, err := h.meals.Categories(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"categories": categories})
}

// ToggleMealLike likes or unlikes a meal for the caller.
// POST /api/v1/meals/:id/like.
func (h *Handler) ToggleMealLike(c *gin.Context) {
	id, ok := h.parseID(c, "id")
	if !ok {
		return
	}
	var body emailAssertion
	if !h.bindOptional(c, &body) {
		return
	}

	result, err := h.meals.ToggleLike(c.Request.Context(), principalFrom(c), id, body.Email)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// RateMeal records the caller's 1..5 rating.
// POST /api/v1/meals/:id/rating.
func (h *Handler) RateMeal(c *gin.Context) {
	id, ok := h.parseID(c, "id")
	if !ok {
		return
	}
	var body ratingRequest
	if !h.bind(c, &body) {
		return
	}
	if body.Rating == nil {
		h.errorResponse(c, http.StatusBadRequest, "rating is required")
		return
	}

	meal, err := h.meals.Rate(c.Request.Context(), principalFrom(c), id, *body.Rating, body.Email)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, meal)
}
