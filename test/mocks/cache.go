package mocks

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// MockCache is an in-memory cache.Cache. Expirations are recorded but never enforced.
type MockCache struct {
	mu   sync.RWMutex
	data map[string]string
	ttls map[string]time.Duration

	// GetErr, when set, is returned by Get.
	GetErr error
	// SetNXErr, when set, is returned by SetNX.
	SetNXErr error
	// HealthErr, when set, is returned by Health.
	HealthErr error
}

// NewMockCache creates a new mock cache instance
func NewMockCache() *MockCache {
	return &MockCache{
		data: make(map[string]string),
		ttls: make(map[string]time.Duration),
	}
}

// Get returns "" for missing keys, like the Redis implementation.
func (m *MockCache) Get(_ context.Context, key string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.GetErr != nil {
		return "", m.GetErr
	}
	return m.data[key], nil
}

// Set stores value using its string form.
func (m *MockCache) Set(_ context.Context, key string, value interface{}, expiration time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.store(key, value, expiration)
	return nil
}

// Del deletes keys from the mock cache
func (m *MockCache) Del(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, key := range keys {
		delete(m.data, key)
		delete(m.ttls, key)
	}
	return nil
}

// SetNX stores value only when key is absent.
func (m *MockCache) SetNX(_ context.Context, key string, value interface{}, expiration time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.SetNXErr != nil {
		return false, m.SetNXErr
	}
	if _, exists := m.data[key]; exists {
		return false, nil
	}
	m.store(key, value, expiration)
	return true, nil
}

// Health returns HealthErr.
func (m *MockCache) Health(context.Context) error {
	return m.HealthErr
}

// Close is a no-op for mock
func (m *MockCache) Close() error {
	return nil
}

// Clear drops every key.
func (m *MockCache) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.data = make(map[string]string)
	m.ttls = make(map[string]time.Duration)
}

// Has reports whether key is currently stored.
func (m *MockCache) Has(key string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	_, ok := m.data[key]
	return ok
}

// TTL returns the expiration key was last stored with.
func (m *MockCache) TTL(key string) time.Duration {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.ttls[key]
}

func (m *MockCache) store(key string, value interface{}, expiration time.Duration) {
	switch v := value.(type) {
	case string:
		m.data[key] = v
	case []byte:
		m.data[key] = string(v)
	default:
		m.data[key] = fmt.Sprint(v)
	}
	m.ttls[key] = expiration
}
