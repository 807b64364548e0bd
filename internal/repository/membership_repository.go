package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/bitelog/bitelog-api/internal/apperr"
	"github.com/bitelog/bitelog-api/internal/models"
)

// MembershipRepository handles membership package and payment database operations.
type MembershipRepository struct {
	db *DB
}

// NewMembershipRepository creates a new membership repository.
func NewMembershipRepository(db *DB) *MembershipRepository {
	return &MembershipRepository{db: db}
}

// ListPackages returns all packages ordered by level.
func (r *MembershipRepository) ListPackages(ctx context.Context) ([]models.MembershipPackage, error) {
	var packages []models.MembershipPackage
	if err := r.db.WithContext(ctx).Order("level ASC").Order("id ASC").Find(&packages).Error; err != nil {
		return nil, fmt.Errorf("failed to list membership packages: %w", err)
	}
	return packages, nil
}

// GetPackage retrieves a package by ID.
func (r *MembershipRepository) GetPackage(ctx context.Context, id uint) (*models.MembershipPackage, error) {
	var pkg models.MembershipPackage
	if err := r.db.WithContext(ctx).First(&pkg, id).Error; err != nil {
		return nil, fmt.Errorf("failed to get membership package %d: %w", id, translateError(err, "membership package", id))
	}
	return &pkg, nil
}

// UpsertPackage creates the package or refreshes the one with the same name.
func (r *MembershipRepository) UpsertPackage(ctx context.Context, pkg *models.MembershipPackage) error {
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		DoUpdates: clause.AssignmentColumns([]string{"level", "price", "description", "perks"}),
	}).Create(pkg).Error
	if err != nil {
		return fmt.Errorf("failed to upsert membership package %s: %w", pkg.Name, err)
	}
	return nil
}

// CreatePayment appends a payment and sets the payer's badge to the package
// name in the same transaction.
func (r *MembershipRepository) CreatePayment(ctx context.Context, payment *models.Payment) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(payment).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return apperr.Conflict("transaction %s already recorded", payment.TransactionID)
			}
			return fmt.Errorf("failed to record payment: %w", err)
		}

		result := tx.Model(&models.User{}).Where("email = ?", payment.Email).Update("badge", payment.PackageName)
		if result.Error != nil {
			return fmt.Errorf("failed to update badge for %s: %w", payment.Email, result.Error)
		}
		if result.RowsAffected == 0 {
			return apperr.NotFound("user", payment.Email)
		}
		return nil
	})
}

// ListPayments returns payments, newest first. An empty email lists everyone's.
func (r *MembershipRepository) ListPayments(ctx context.Context, email string) ([]models.Payment, error) {
	query := r.db.WithContext(ctx)
	if email != "" {
		query = query.Where("email = ?", email)
	}

	var payments []models.Payment
	if err := query.Order("paid_at DESC").Order("id DESC").Find(&payments).Error; err != nil {
		return nil, fmt.Errorf("failed to list payments: %w", err)
	}
	return payments, nil
}
