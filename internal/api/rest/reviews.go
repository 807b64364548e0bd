package rest

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/bitelog/bitelog-api/internal/service/reviews"
)

type reviewTextRequest struct {
	Text string `json:"text"`
}

// ListMealReviews returns a meal's reviews.
// GET /api/v1/meals/:id/reviews.
func (h *Handler) ListMealReviews(c *gin.Context) {
	id, ok := h.parseID(c, "id")
	if !ok {
		return
	}

	list, err := h.reviews.ListByMeal(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"reviews": list, "review_count": len(list)})
}

// CreateReview adds the caller's review to a meal.
// POST /api/v1/meals/:id/reviews.
func (h *Handler) CreateReview(c *gin.Context) {
	id, ok := h.parseID(c, "id")
	if !ok {
		return
	}
	var input reviews.CreateInput
	if !h.bind(c, &input) {
		return
	}

	review, err := h.reviews.Create(c.Request.Context(), principalFrom(c), id, input)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, review)
}

// UpdateReview replaces the text of the caller's review.
// PATCH /api/v1/reviews/:id.
func (h *Handler) UpdateReview(c *gin.Context) {
	id, ok := h.parseID(c, "id")
	if !ok {
		return
	}
	var body reviewTextRequest
	if !h.bind(c, &body) {
		return
	}

	review, err := h.reviews.Update(c.Request.Context(), principalFrom(c), id, body.Text)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, review)
}

// DeleteReview removes the caller's review.
// DELETE /api/v1/reviews/:id.
func (h *Handler) DeleteReview(c *gin.Context) {
	id, ok := h.parseID(c, "id")
	if !ok {
		return
	}

	if err := h.reviews.Delete(c.Request.Context(), principalFrom(c), id); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": true, "id": id})
}

// ListReviewsByAuthor returns the reviews written by a user.
// GET /api/v1/reviews/user/:email.
func (h *Handler) ListReviewsByAuthor(c *gin.Context) {
	list, err := h.reviews.ListByAuthor(c.Request.Context(), principalFrom(c), c.Param("email"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"reviews": list, "total": len(list)})
}

// ListReviews returns one page of all reviews.
// GET /api/v1/reviews?page=1.
func (h *Handler) ListReviews(c *gin.Context) {
	page, ok := h.parsePage(c)
	if !ok {
		return
	}

	result, err := h.reviews.List(c.Request.Context(), page)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}
