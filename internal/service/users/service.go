// Package users provides account bootstrap, lookup and role management.
package users

import (
	"context"
	"strings"
	"time"

	"github.com/bitelog/bitelog-api/internal/apperr"
	"github.com/bitelog/bitelog-api/internal/auth"
	"github.com/bitelog/bitelog-api/internal/models"
	"github.com/bitelog/bitelog-api/internal/repository"
	"github.com/bitelog/bitelog-api/internal/service/paging"
	"github.com/bitelog/bitelog-api/pkg/logger"
)

// PageSize is the number of users per listing page.
const PageSize = 10

// UserRepository interface for user operations.
type UserRepository interface {
	CreateIfAbsent(ctx context.Context, user *models.User) (*models.User, bool, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	List(ctx context.Context, search string, offset, limit int) ([]models.User, int64, error)
	SetRole(ctx context.Context, email, role string) error
}

// BootstrapInput is the profile sent on first sign-in.
type BootstrapInput struct {
	Email string `json:"email"`
	Name  string `json:"name"`
	Photo string `json:"photo"`
}

// Page is one page of users.
type Page struct {
	Users      []models.User `json:"users"`
	Total      int64         `json:"total"`
	Page       int           `json:"page"`
	PageSize   int           `json:"page_size"`
	TotalPages int           `json:"total_pages"`
}

// Service handles user accounts.
type Service struct {
	userRepo UserRepository
	log      *logger.Logger
	now      func() time.Time
}

// NewService creates a new user service.
func NewService(userRepo *repository.UserRepository, log *logger.Logger) *Service {
	return NewServiceWithInterfaces(userRepo, log)
}

// NewServiceWithInterfaces creates a new user service with interface dependencies (useful for testing).
func NewServiceWithInterfaces(userRepo UserRepository, log *logger.Logger) *Service {
	return &Service{userRepo: userRepo, log: log, now: time.Now}
}

// Bootstrap creates the user on first sign-in. A repeat call returns the
// stored record untouched and inserted=false.
func (s *Service) Bootstrap(ctx context.Context, input BootstrapInput) (*models.User, bool, error) {
	email := normalizeEmail(input.Email)
	if email == "" {
		return nil, false, apperr.Validation("email is required")
	}

	user, inserted, err := s.userRepo.CreateIfAbsent(ctx, &models.User{
		Email:     email,
		Name:      strings.TrimSpace(input.Name),
		Photo:     strings.TrimSpace(input.Photo),
		Role:      models.RoleUser,
		Badge:     models.DefaultBadge,
		LastLogIn: s.now().UTC(),
	})
	if err != nil {
		return nil, false, err
	}

	if inserted {
		s.log.Info().Str("email", email).Msg("User created")
	}
	return user, inserted, nil
}

// Get returns a user; callers may read themselves, admins anyone.
func (s *Service) Get(ctx context.Context, principal *auth.Principal, email string) (*models.User, error) {
	email = normalizeEmail(email)
	if !principal.CanActFor(email) {
		return nil, apperr.Forbidden("cannot read another user's profile")
	}
	return s.userRepo.GetByEmail(ctx, email)
}

// List returns a page of users matching search.
func (s *Service) List(ctx context.Context, search string, page int) (*Page, error) {
	page, offset := paging.Normalize(page, PageSize)
	users, total, err := s.userRepo.List(ctx, search, offset, PageSize)
	if err != nil {
		return nil, err
	}
	return &Page{
		Users:      users,
		Total:      total,
		Page:       page,
		PageSize:   PageSize,
		TotalPages: paging.TotalPages(total, PageSize),
	}, nil
}

// MakeAdmin grants the admin role to an existing user.
func (s *Service) MakeAdmin(ctx context.Context, email string) (*models.User, error) {
	email = normalizeEmail(email)
	if email == "" {
		return nil, apperr.Validation("email is required")
	}
	if err := s.userRepo.SetRole(ctx, email, models.RoleAdmin); err != nil {
		return nil, err
	}

	s.log.Info().Str("email", email).Msg("User promoted to admin")
	return s.userRepo.GetByEmail(ctx, email)
}

// Role returns the role of email; unknown users are plain users.
func (s *Service) Role(ctx context.Context, email string) (string, error) {
	user, err := s.userRepo.GetByEmail(ctx, normalizeEmail(email))
	if apperr.IsNotFound(err) {
		return models.RoleUser, nil
	}
	if err != nil {
		return "", err
	}
	return user.Role, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
