package rest

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/bitelog/bitelog-api/internal/models"
	"github.com/bitelog/bitelog-api/internal/service/users"
)

// BootstrapUser creates the user on first sign-in.
// POST /api/v1/users.
func (h *Handler) BootstrapUser(c *gin.Context) {
	var input users.BootstrapInput
	if !h.bind(c, &input) {
		return
	}

	user, inserted, err := h.users.Bootstrap(c.Request.Context(), input)
	if err != nil {
		h.respondError(c, err)
		return
	}

	status := http.StatusOK
	if inserted {
		status = http.StatusCreated
	}
	c.JSON(status, gin.H{"user": user, "inserted": inserted})
}

// CurrentUser returns the caller's profile.
// GET /api/v1/users/me.
func (h *Handler) CurrentUser(c *gin.Context) {
	principal := principalFrom(c)
	user, err := h.users.Get(c.Request.Context(), principal, principal.Email)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

// ListUsers returns one page of users.
// GET /api/v1/users?search=ann&page=1.
func (h *Handler) ListUsers(c *gin.Context) {
	page, ok := h.parsePage(c)
	if !ok {
		return
	}

	result, err := h.users.List(c.Request.Context(), c.Query("search"), page)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// GetUserRole returns a user's role.
// GET /api/v1/users/:email/role.
func (h *Handler) GetUserRole(c *gin.Context) {
	email := c.Param("email")
	role, err := h.users.Role(c.Request.Context(), email)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"email": email, "role": role, "admin": role == models.RoleAdmin})
}

// MakeAdmin grants the admin role.
// PATCH /api/v1/users/:email/admin.
func (h *Handler) MakeAdmin(c *gin.Context) {
	user, err := h.users.MakeAdmin(c.Request.Context(), c.Param("email"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}
