package rest

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/bitelog/bitelog-api/internal/service/meals"
)

// ListUpcoming returns the upcoming meals, most liked first.
// GET /api/v1/upcoming.
func (h *Handler) ListUpcoming(c *gin.Context) {
	list, err := h.upcoming.List(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"upcoming": list, "total": len(list)})
}

// CreateUpcoming proposes a meal for the community vote.
// POST /api/v1/upcoming.
func (h *Handler) CreateUpcoming(c *gin.Context) {
	var input meals.Input
	if !h.bind(c, &input) {
		return
	}

	meal, err := h.upcoming.Create(c.Request.Context(), principalFrom(c), input)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, meal)
}

// ToggleUpcomingLike votes for or against an upcoming meal.
// POST /api/v1/upcoming/:id/like.
func (h *Handler) ToggleUpcomingLike(c *gin.Context) {
	id, ok := h.parseID(c, "id")
	if !ok {
		return
	}
	var body emailAssertion
	if !h.bindOptional(c, &body) {
		return
	}

	result, err := h.upcoming.ToggleLike(c.Request.Context(), principalFrom(c), id, body.Email)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// PublishUpcoming moves an upcoming meal into the catalog.
// POST /api/v1/upcoming/:id/publish.
func (h *Handler) PublishUpcoming(c *gin.Context) {
	id, ok := h.parseID(c, "id")
	if !ok {
		return
	}

	meal, err := h.upcoming.Publish(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, meal)
}
