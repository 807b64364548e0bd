package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/bitelog/bitelog-api/internal/apperr"
	"github.com/bitelog/bitelog-api/internal/models"
)

// RequestRepository handles meal request database operations.
type RequestRepository struct {
	db *DB
}

// NewRequestRepository creates a new meal request repository.
func NewRequestRepository(db *DB) *RequestRepository {
	return &RequestRepository{db: db}
}

// Create stores a pending request with a snapshot of the meal title.
// A second pending request for the same meal and user is a conflict.
func (r *RequestRepository) Create(ctx context.Context, request *models.MealRequest) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var meal models.Meal
		if err := tx.Select("id", "title").First(&meal, request.MealID).Error; err != nil {
			return translateError(err, "meal", request.MealID)
		}

		var pending int64
		err := tx.Model(&models.MealRequest{}).
			Where("meal_id = ? AND user_email = ? AND status = ?", request.MealID, request.UserEmail, models.RequestStatusPending).
			Count(&pending).Error
		if err != nil {
			return fmt.Errorf("failed to check pending requests: %w", err)
		}
		if pending > 0 {
			return apperr.Conflict("meal %d already has a pending request from %s", request.MealID, request.UserEmail)
		}

		request.MealTitle = meal.Title
		request.Status = models.RequestStatusPending
		request.DeliveredAt = nil
		if err := tx.Create(request).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return apperr.Conflict("meal %d already has a pending request from %s", request.MealID, request.UserEmail)
			}
			return fmt.Errorf("failed to create meal request: %w", err)
		}
		return nil
	})
}

// GetByID retrieves a meal request by ID.
func (r *RequestRepository) GetByID(ctx context.Context, id uint) (*models.MealRequest, error) {
	var request models.MealRequest
	if err := r.db.WithContext(ctx).First(&request, id).Error; err != nil {
		return nil, fmt.Errorf("failed to get request %d: %w", id, translateError(err, "request", id))
	}
	return &request, nil
}

// MarkDelivered moves a pending request to delivered. Delivered requests
// never move back.
func (r *RequestRepository) MarkDelivered(ctx context.Context, id uint) (*models.MealRequest, error) {
	now := time.Now().UTC()
	result := r.db.WithContext(ctx).Model(&models.MealRequest{}).
		Where("id = ? AND status = ?", id, models.RequestStatusPending).
		Updates(map[string]interface{}{"status": models.RequestStatusDelivered, "delivered_at": now})
	if result.Error != nil {
		return nil, fmt.Errorf("failed to serve request %d: %w", id, result.Error)
	}

	request, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if result.RowsAffected == 0 {
		return nil, apperr.Conflict("request %d is already %s", id, request.Status)
	}
	return request, nil
}

// DeleteOwned removes a request only when it belongs to email.
func (r *RequestRepository) DeleteOwned(ctx context.Context, id uint, email string) error {
	result := r.db.WithContext(ctx).Where("id = ? AND user_email = ?", id, email).Delete(&models.MealRequest{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete request %d: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return apperr.NotFound("request", id)
	}
	return nil
}

// ListByUser returns email's requests, newest first.
func (r *RequestRepository) ListByUser(ctx context.Context, email string) ([]models.MealRequest, error) {
	var requests []models.MealRequest
	err := r.db.WithContext(ctx).Where("user_email = ?", email).Order("created_at DESC").Order("id DESC").Find(&requests).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list requests for %s: %w", email, err)
	}
	return requests, nil
}

// List returns one page of all requests whose requester name or email
// contains search, pending first.
func (r *RequestRepository) List(ctx context.Context, search string, offset, limit int) ([]models.MealRequest, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.MealRequest{})
	if search = strings.TrimSpace(search); search != "" {
		pattern := likePattern(search)
		query = query.Where("LOWER(user_name) LIKE ? ESCAPE '\\' OR LOWER(user_email) LIKE ? ESCAPE '\\'", pattern, pattern)
	}

	query = query.Session(&gorm.Session{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count requests: %w", err)
	}

	var requests []models.MealRequest
	err := query.
		Order("status DESC"). // pending sorts before delivered
		Order("created_at DESC").
		Order("id DESC").
		Offset(offset).Limit(limit).
		Find(&requests).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list requests: %w", err)
	}
	return requests, total, nil
}

// ListPending returns every pending request, oldest first.
func (r *RequestRepository) ListPending(ctx context.Context) ([]models.MealRequest, error) {
	var requests []models.MealRequest
	err := r.db.WithContext(ctx).Where("status = ?", models.RequestStatusPending).Order("created_at ASC").Order("id ASC").Find(&requests).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list pending requests: %w", err)
	}
	return requests, nil
}
