package mocks

import (
	"context"
	"sync"
	"time"

	"github.com/qadhya-labs/qanun-core/internal/core/domain"
)

// MockHistoryStore is a mock implementation of HistoryStore for testing
type MockHistoryStore struct {
	mu          sync.RWMutex
	transitions []*domain.StageTransition
}

// NewMockHistoryStore creates a new MockHistoryStore
func NewMockHistoryStore() *MockHistoryStore {
	return &MockHistoryStore{}
}

func (m *MockHistoryStore) Record(ctx context.Context, transition *domain.StageTransition) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if transition.ID == "" {
		transition.ID = domain.GenerateID()
	}
	if transition.CreatedAt.IsZero() {
		transition.CreatedAt = time.Now()
	}
	m.transitions = append(m.transitions, transition)
	return nil
}

func (m *MockHistoryStore) ListByDocument(ctx context.Context, documentID string, limit int) ([]*domain.StageTransition, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []*domain.StageTransition
	// Newest first
	for i := len(m.transitions) - 1; i >= 0; i-- {
		if m.transitions[i].DocumentID == documentID {
			result = append(result, m.transitions[i])
			if limit > 0 && len(result) >= limit {
				break
			}
		}
	}
	return result, nil
}

// Helper methods for testing

func (m *MockHistoryStore) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.transitions = nil
}

func (m *MockHistoryStore) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.transitions)
}
