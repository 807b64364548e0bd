package rest

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/bitelog/bitelog-api/internal/service/membership"
)

// ListPackages returns the membership packages.
// GET /api/v1/membership/packages.
func (h *Handler) ListPackages(c *gin.Context) {
	packages, err := h.membership.ListPackages(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"packages": packages})
}

// CreatePaymentIntent starts a card payment for a package.
// POST /api/v1/payments/intent.
func (h *Handler) CreatePaymentIntent(c *gin.Context) {
	var input membership.IntentInput
	if !h.bind(c, &input) {
		return
	}

	intent, err := h.membership.CreatePaymentIntent(c.Request.Context(), principalFrom(c), input)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, intent)
}

// RecordPayment stores a completed payment.
// POST /api/v1/payments.
func (h *Handler) RecordPayment(c *gin.Context) {
	var input membership.PaymentInput
	if !h.bind(c, &input) {
		return
	}

	payment, err := h.membership.RecordPayment(c.Request.Context(), principalFrom(c), input)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, payment)
}

// ListPayments returns the caller's payments, or all of them for admins.
// GET /api/v1/payments.
func (h *Handler) ListPayments(c *gin.Context) {
	payments, err := h.membership.ListPayments(c.Request.Context(), principalFrom(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"payments": payments, "total": len(payments)})
}
