package auth

import (
	"strings"

	"github.com/bitelog/bitelog-api/internal/apperr"
	"github.com/bitelog/bitelog-api/internal/models"
)

// Principal is the verified caller of an operation.
type Principal struct {
	Email string
	Role  string
}

// IsAdmin reports whether the principal holds the admin role.
func (p *Principal) IsAdmin() bool {
	return p != nil && p.Role == models.RoleAdmin
}

// CheckAsserted fails when a caller-supplied email differs from the verified one.
// An empty assertion is accepted.
func (p *Principal) CheckAsserted(email string) error {
	if p == nil {
		return apperr.Unauthenticated("authentication required")
	}
	email = strings.TrimSpace(email)
	if email != "" && !strings.EqualFold(email, p.Email) {
		return apperr.Forbidden("email does not match the authenticated user")
	}
	return nil
}

// CanActFor reports whether the principal may act on a resource owned by email.
func (p *Principal) CanActFor(email string) bool {
	return p != nil && (p.IsAdmin() || strings.EqualFold(p.Email, email))
}
