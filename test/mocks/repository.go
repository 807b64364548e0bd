package mocks

import (
	"context"

	"github.com/bitelog/bitelog-api/internal/apperr"
	"github.com/bitelog/bitelog-api/internal/models"
)

// MockUserRepository is a simple mock for user repository
type MockUserRepository struct {
	CreateIfAbsentFunc func(ctx context.Context, user *models.User) (*models.User, bool, error)
	GetByEmailFunc     func(ctx context.Context, email string) (*models.User, error)
	ListFunc           func(ctx context.Context, search string, offset, limit int) ([]models.User, int64, error)
	SetRoleFunc        func(ctx context.Context, email, role string) error
}

func (m *MockUserRepository) CreateIfAbsent(ctx context.Context, user *models.User) (*models.User, bool, error) {
	if m.CreateIfAbsentFunc != nil {
		return m.CreateIfAbsentFunc(ctx, user)
	}
	return user, true, nil
}

func (m *MockUserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	if m.GetByEmailFunc != nil {
		return m.GetByEmailFunc(ctx, email)
	}
	return nil, apperr.NotFound("user", email)
}

func (m *MockUserRepository) List(ctx context.Context, search string, offset, limit int) ([]models.User, int64, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx, search, offset, limit)
	}
	return []models.User{}, 0, nil
}

func (m *MockUserRepository) SetRole(ctx context.Context, email, role string) error {
	if m.SetRoleFunc != nil {
		return m.SetRoleFunc(ctx, email, role)
	}
	return nil
}
