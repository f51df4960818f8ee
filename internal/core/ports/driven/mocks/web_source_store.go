package mocks

import (
	"context"
	"sync"

	"github.com/qadhya-labs/qanun-core/internal/core/domain"
)

// MockWebSourceStore is a mock implementation of WebSourceStore for testing
type MockWebSourceStore struct {
	mu      sync.RWMutex
	sources map[string]*domain.WebSource
	byHost  map[string]*domain.WebSource
}

// NewMockWebSourceStore creates a new MockWebSourceStore
func NewMockWebSourceStore() *MockWebSourceStore {
	return &MockWebSourceStore{
		sources: make(map[string]*domain.WebSource),
		byHost:  make(map[string]*domain.WebSource),
	}
}

func (m *MockWebSourceStore) Save(ctx context.Context, source *domain.WebSource) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if source.ID == "" {
		source.ID = domain.GenerateID()
	}
	m.sources[source.ID] = source
	m.byHost[source.Host] = source
	return nil
}

func (m *MockWebSourceStore) Get(ctx context.Context, id string) (*domain.WebSource, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	source, ok := m.sources[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return source, nil
}

func (m *MockWebSourceStore) GetByHost(ctx context.Context, host string) (*domain.WebSource, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	source, ok := m.byHost[host]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return source, nil
}

func (m *MockWebSourceStore) List(ctx context.Context) ([]*domain.WebSource, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []*domain.WebSource
	for _, source := range m.sources {
		result = append(result, source)
	}
	return result, nil
}

func (m *MockWebSourceStore) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	source, ok := m.sources[id]
	if !ok {
		return domain.ErrNotFound
	}
	delete(m.byHost, source.Host)
	delete(m.sources, id)
	return nil
}
