package mocks

import (
	"context"
	"sync"
)

// MockChunkIndex is a mock implementation of ChunkIndex for testing
type MockChunkIndex struct {
	mu     sync.RWMutex
	counts map[string]int

	// CountFn overrides the default behavior when set
	CountFn func(documentID string) (int, error)
}

// NewMockChunkIndex creates a new MockChunkIndex
func NewMockChunkIndex() *MockChunkIndex {
	return &MockChunkIndex{
		counts: make(map[string]int),
	}
}

func (m *MockChunkIndex) CountForDocument(ctx context.Context, documentID string) (int, error) {
	if m.CountFn != nil {
		return m.CountFn(documentID)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.counts[documentID], nil
}

// SetCount fixes the chunk count reported for a document
func (m *MockChunkIndex) SetCount(documentID string, count int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counts[documentID] = count
}
