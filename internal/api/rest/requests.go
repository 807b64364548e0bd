package rest

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/bitelog/bitelog-api/internal/service/requests"
)

// CreateMealRequest files the caller's request for a meal.
// POST /api/v1/meals/:id/request.
func (h *Handler) CreateMealRequest(c *gin.Context) {
	id, ok := h.parseID(c, "id")
	if !ok {
		return
	}
	var input requests.CreateInput
	if !h.bindOptional(c, &input) {
		return
	}

	request, err := h.requests.Create(c.Request.Context(), principalFrom(c), id, input)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, request)
}

// ListOwnRequests returns the caller's meal requests.
// GET /api/v1/requests/me.
func (h *Handler) ListOwnRequests(c *gin.Context) {
	list, err := h.requests.ListOwn(c.Request.Context(), principalFrom(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"requests": list, "total": len(list)})
}

// ListRequests returns one page of all meal requests.
// GET /api/v1/requests?search=ann&page=1.
func (h *Handler) ListRequests(c *gin.Context) {
	page, ok := h.parsePage(c)
	if !ok {
		return
	}

	result, err := h.requests.List(c.Request.Context(), c.Query("search"), page)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// ServeRequest marks a pending meal request delivered.
// PATCH /api/v1/requests/:id/serve.
func (h *Handler) ServeRequest(c *gin.Context) {
	id, ok := h.parseID(c, "id")
	if !ok {
		return
	}

	request, err := h.requests.Serve(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, request)
}

// DeleteRequest removes one of the caller's meal requests.
// DELETE /api/v1/requests/:id.
func (h *Handler) DeleteRequest(c *gin.Context) {
	id, ok := h.parseID(c, "id")
	if !ok {
		return
	}

	if err := h.requests.Delete(c.Request.Context(), principalFrom(c), id); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": true, "id": id})
}
