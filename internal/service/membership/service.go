// Package membership sells membership packages and records their payments.
package membership

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/bitelog/bitelog-api/internal/apperr"
	"github.com/bitelog/bitelog-api/internal/auth"
	"github.com/bitelog/bitelog-api/internal/cache"
	prommetrics "github.com/bitelog/bitelog-api/internal/metrics"
	"github.com/bitelog/bitelog-api/internal/models"
	"github.com/bitelog/bitelog-api/internal/payment"
	"github.com/bitelog/bitelog-api/internal/repository"
	"github.com/bitelog/bitelog-api/pkg/logger"
)

const packagesCacheKey = "membership:packages"

// MembershipRepository interface for package and payment operations.
type MembershipRepository interface {
	ListPackages(ctx context.Context) ([]models.MembershipPackage, error)
	GetPackage(ctx context.Context, id uint) (*models.MembershipPackage, error)
	UpsertPackage(ctx context.Context, pkg *models.MembershipPackage) error
	CreatePayment(ctx context.Context, payment *models.Payment) error
	ListPayments(ctx context.Context, email string) ([]models.Payment, error)
}

// IntentInput selects the package to pay for.
type IntentInput struct {
	PackageID uint `json:"package_id"`
}

// Intent is a created payment intent.
type Intent struct {
	ClientSecret string  `json:"client_secret"`
	Amount       float64 `json:"amount"`
	AmountCents  int64   `json:"amount_cents"`
	PackageID    uint    `json:"package_id"`
}

// PaymentInput is a completed payment reported by the client.
type PaymentInput struct {
	Email         string `json:"email"`
	TransactionID string `json:"transaction_id"`
	MembershipID  uint   `json:"membership_id"`
	PaymentMethod string `json:"payment_method"`
}

// seedFile is the layout of the membership package seed YAML.
type seedFile struct {
	Packages []models.MembershipPackage `yaml:"packages"`
}

// Service handles membership packages and payments.
type Service struct {
	repo     MembershipRepository
	gateway  payment.Gateway
	cache    cache.Cache
	cacheTTL time.Duration
	log      *logger.Logger
	now      func() time.Time
}

// NewService creates a new membership service.
func NewService(
	repo *repository.MembershipRepository,
	gateway payment.Gateway,
	c cache.Cache,
	cacheTTL time.Duration,
	log *logger.Logger,
) *Service {
	return NewServiceWithInterfaces(repo, gateway, c, cacheTTL, log)
}

// NewServiceWithInterfaces creates a new membership service with interface dependencies (useful for testing).
func NewServiceWithInterfaces(
	repo MembershipRepository,
	gateway payment.Gateway,
	c cache.Cache,
	cacheTTL time.Duration,
	log *logger.Logger,
) *Service {
	return &Service{
		repo:     repo,
		gateway:  gateway,
		cache:    c,
		cacheTTL: cacheTTL,
		log:      log,
		now:      time.Now,
	}
}

// ListPackages returns all packages ordered by level, served from cache when fresh.
func (s *Service) ListPackages(ctx context.Context) ([]models.MembershipPackage, error) {
	var packages []models.MembershipPackage
	found, err := cache.GetJSON(ctx, s.cache, packagesCacheKey, &packages)
	if err != nil {
		s.log.Warn().Err(err).Msg("Failed to read membership packages from cache")
	}
	if found {
		return packages, nil
	}

	packages, err = s.repo.ListPackages(ctx)
	if err != nil {
		return nil, err
	}
	if packages == nil {
		packages = []models.MembershipPackage{}
	}
	if err := cache.SetJSON(ctx, s.cache, packagesCacheKey, packages, s.cacheTTL); err != nil {
		s.log.Warn().Err(err).Msg("Failed to cache membership packages")
	}
	return packages, nil
}

// CreatePaymentIntent starts a card payment for a package's price.
func (s *Service) CreatePaymentIntent(ctx context.Context, principal *auth.Principal, in IntentInput) (*Intent, error) {
	if principal == nil {
		return nil, apperr.Unauthenticated("authentication required")
	}
	if in.PackageID == 0 {
		return nil, apperr.Validation("package_id is required")
	}

	pkg, err := s.repo.GetPackage(ctx, in.PackageID)
	if err != nil {
		return nil, err
	}

	amount := pkg.PriceCents()
	secret, err := s.gateway.CreateIntent(ctx, amount)
	if err != nil {
		prommetrics.RecordPaymentIntent("error")
		return nil, fmt.Errorf("payment gateway: %w", err)
	}

	prommetrics.RecordPaymentIntent("created")
	s.log.Info().Str("email", principal.Email).Str("package", pkg.Name).Int64("amount_cents", amount).Msg("Payment intent created")
	return &Intent{ClientSecret: secret, Amount: pkg.Price, AmountCents: amount, PackageID: pkg.ID}, nil
}

// RecordPayment stores a completed payment by the caller and upgrades their badge.
// The transaction must be a succeeded payment for the package's price at the
// payment provider. The amount and package name come from the stored package.
func (s *Service) RecordPayment(ctx context.Context, principal *auth.Principal, in PaymentInput) (*models.Payment, error) {
	if principal == nil {
		return nil, apperr.Unauthenticated("authentication required")
	}
	email := strings.TrimSpace(in.Email)
	if email == "" {
		email = principal.Email
	}
	if !strings.EqualFold(email, principal.Email) {
		return nil, apperr.Forbidden("payments can only be recorded for yourself")
	}
	transactionID := strings.TrimSpace(in.TransactionID)
	if transactionID == "" {
		return nil, apperr.Validation("transaction_id is required")
	}
	if in.MembershipID == 0 {
		return nil, apperr.Validation("membership_id is required")
	}

	pkg, err := s.repo.GetPackage(ctx, in.MembershipID)
	if err != nil {
		return nil, err
	}
	if err := s.verifyPayment(ctx, transactionID, pkg); err != nil {
		prommetrics.RecordPaymentIntent("unverified")
		s.log.Warn().Err(err).
			Str("email", principal.Email).
			Str("transaction_id", transactionID).
			Msg("Payment rejected")
		return nil, err
	}

	method := strings.TrimSpace(in.PaymentMethod)
	if method == "" {
		method = "card"
	}
	record := &models.Payment{
		Email:         principal.Email,
		Amount:        pkg.Price,
		TransactionID: transactionID,
		MembershipID:  pkg.ID,
		PackageName:   pkg.Name,
		PaymentMethod: method,
		PaidAt:        s.now().UTC(),
	}
	if err := s.repo.CreatePayment(ctx, record); err != nil {
		return nil, err
	}

	prommetrics.RecordPayment(pkg.Name)
	s.log.Info().
		Str("email", record.Email).
		Str("package", pkg.Name).
		Str("transaction_id", transactionID).
		Msg("Payment recorded")
	return record, nil
}

// verifyPayment checks the transaction with the payment provider.
func (s *Service) verifyPayment(ctx context.Context, transactionID string, pkg *models.MembershipPackage) error {
	verification, err := s.gateway.VerifyIntent(ctx, transactionID)
	if errors.Is(err, payment.ErrUnknownIntent) {
		return apperr.Validation("transaction %s is unknown to the payment provider", transactionID)
	}
	if err != nil {
		return fmt.Errorf("payment gateway: %w", err)
	}
	if !verification.Succeeded() {
		return apperr.Validation("transaction %s has not succeeded (status %s)", transactionID, verification.Status)
	}
	if verification.AmountCents != pkg.PriceCents() {
		return apperr.Validation("transaction %s paid %d cents, package %s costs %d",
			transactionID, verification.AmountCents, pkg.Name, pkg.PriceCents())
	}
	return nil
}

// ListPayments returns the caller's payment history; admins see every payment.
func (s *Service) ListPayments(ctx context.Context, principal *auth.Principal) ([]models.Payment, error) {
	if principal == nil {
		return nil, apperr.Unauthenticated("authentication required")
	}
	email := principal.Email
	if principal.IsAdmin() {
		email = ""
	}

	payments, err := s.repo.ListPayments(ctx, email)
	if err != nil {
		return nil, err
	}
	if payments == nil {
		payments = []models.Payment{}
	}
	return payments, nil
}

// SeedPackages upserts the packages listed in a YAML file by name and
// returns how many were written.
func (s *Service) SeedPackages(ctx context.Context, path string) (int, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("failed to read membership seed file: %w", err)
	}

	var seed seedFile
	if err := yaml.Unmarshal(raw, &seed); err != nil {
		return 0, fmt.Errorf("failed to parse membership seed file: %w", err)
	}

	for i := range seed.Packages {
		pkg := &seed.Packages[i]
		pkg.Name = strings.TrimSpace(pkg.Name)
		if pkg.Name == "" {
			return i, fmt.Errorf("membership package %d has no name", i+1)
		}
		if pkg.Price <= 0 {
			return i, fmt.Errorf("membership package %s must have a positive price", pkg.Name)
		}
		if err := s.repo.UpsertPackage(ctx, pkg); err != nil {
			return i, err
		}
	}

	if err := s.cache.Del(ctx, packagesCacheKey); err != nil {
		s.log.Warn().Err(err).Msg("Failed to invalidate membership packages cache")
	}
	s.log.Info().Int("count", len(seed.Packages)).Str("path", path).Msg("Membership packages seeded")
	return len(seed.Packages), nil
}
