package mocks

import (
	"context"
	"sync"
	"time"

	"github.com/qadhya-labs/qanun-core/internal/core/domain"
)

// MockCorrectionStore is a mock implementation of CorrectionStore for testing
type MockCorrectionStore struct {
	mu          sync.RWMutex
	corrections map[string]*domain.Correction
}

// NewMockCorrectionStore creates a new MockCorrectionStore
func NewMockCorrectionStore() *MockCorrectionStore {
	return &MockCorrectionStore{
		corrections: make(map[string]*domain.Correction),
	}
}

func (m *MockCorrectionStore) Save(ctx context.Context, correction *domain.Correction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if correction.ID == "" {
		correction.ID = domain.GenerateID()
	}
	if correction.CreatedAt.IsZero() {
		correction.CreatedAt = time.Now()
	}
	m.corrections[correction.ID] = correction
	return nil
}

func (m *MockCorrectionStore) ListUnconsumed(ctx context.Context, webSourceID string) ([]*domain.Correction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []*domain.Correction
	for _, c := range m.corrections {
		if c.Consumed {
			continue
		}
		if webSourceID != "" && c.WebSourceID != webSourceID {
			continue
		}
		result = append(result, c)
	}
	return result, nil
}

func (m *MockCorrectionStore) MarkConsumed(ctx context.Context, ids []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range ids {
		if c, ok := m.corrections[id]; ok {
			c.Consumed = true
		}
	}
	return nil
}

// Helper methods for testing

func (m *MockCorrectionStore) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.corrections = make(map[string]*domain.Correction)
}
