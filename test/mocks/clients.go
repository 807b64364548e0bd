package mocks

import (
	"context"
	"sync"
	"time"

	"github.com/bitelog/bitelog-api/internal/models"
	"github.com/bitelog/bitelog-api/internal/payment"
)

// MockPaymentGateway is a simple mock for the payment gateway. Without a
// VerifyIntentFunc every transaction verifies as a succeeded payment of the
// last amount passed to CreateIntent.
type MockPaymentGateway struct {
	CreateIntentFunc func(ctx context.Context, amountCents int64) (string, error)
	VerifyIntentFunc func(ctx context.Context, intentID string) (*payment.Verification, error)

	mu         sync.Mutex
	lastAmount int64
}

func (m *MockPaymentGateway) CreateIntent(ctx context.Context, amountCents int64) (string, error) {
	m.mu.Lock()
	m.lastAmount = amountCents
	m.mu.Unlock()

	if m.CreateIntentFunc != nil {
		return m.CreateIntentFunc(ctx, amountCents)
	}
	return "pi_mock_secret", nil
}

func (m *MockPaymentGateway) VerifyIntent(ctx context.Context, intentID string) (*payment.Verification, error) {
	if m.VerifyIntentFunc != nil {
		return m.VerifyIntentFunc(ctx, intentID)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	return &payment.Verification{ID: intentID, Status: payment.StatusSucceeded, AmountCents: m.lastAmount, Currency: "usd"}, nil
}

// MockNotifier is a simple mock for the chat notifier
type MockNotifier struct {
	SendMealPublishedFunc        func(ctx context.Context, meal *models.Meal, trigger string) error
	SendPendingRequestDigestFunc func(ctx context.Context, requests []models.MealRequest, now time.Time) error
}

func (m *MockNotifier) SendMealPublished(ctx context.Context, meal *models.Meal, trigger string) error {
	if m.SendMealPublishedFunc != nil {
		return m.SendMealPublishedFunc(ctx, meal, trigger)
	}
	return nil
}

func (m *MockNotifier) SendPendingRequestDigest(ctx context.Context, requests []models.MealRequest, now time.Time) error {
	if m.SendPendingRequestDigestFunc != nil {
		return m.SendPendingRequestDigestFunc(ctx, requests, now)
	}
	return nil
}
