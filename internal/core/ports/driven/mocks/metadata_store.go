package mocks

import (
	"context"
	"sync"
	"time"

	"github.com/qadhya-labs/qanun-core/internal/core/domain"
)

// MockMetadataStore is a mock implementation of MetadataStore for testing
type MockMetadataStore struct {
	mu       sync.RWMutex
	versions map[string][]*domain.Metadata // key: pageID, oldest first
}

// NewMockMetadataStore creates a new MockMetadataStore
func NewMockMetadataStore() *MockMetadataStore {
	return &MockMetadataStore{
		versions: make(map[string][]*domain.Metadata),
	}
}

func (m *MockMetadataStore) SaveVersion(ctx context.Context, meta *domain.Metadata) (*domain.Metadata, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored := *meta
	if stored.ID == "" {
		stored.ID = domain.GenerateID()
	}
	stored.Version = len(m.versions[meta.PageID]) + 1
	stored.CreatedAt = time.Now()
	m.versions[meta.PageID] = append(m.versions[meta.PageID], &stored)
	return &stored, nil
}

func (m *MockMetadataStore) GetLatest(ctx context.Context, pageID string) (*domain.Metadata, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	versions := m.versions[pageID]
	if len(versions) == 0 {
		return nil, domain.ErrNotFound
	}
	return versions[len(versions)-1], nil
}

func (m *MockMetadataStore) ListVersions(ctx context.Context, pageID string) ([]*domain.Metadata, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	versions := m.versions[pageID]
	// Newest first
	result := make([]*domain.Metadata, 0, len(versions))
	for i := len(versions) - 1; i >= 0; i-- {
		result = append(result, versions[i])
	}
	return result, nil
}

// Helper methods for testing

func (m *MockMetadataStore) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.versions = make(map[string][]*domain.Metadata)
}
