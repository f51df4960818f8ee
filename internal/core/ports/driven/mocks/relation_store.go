package mocks

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/qadhya-labs/qanun-core/internal/core/domain"
	"github.com/qadhya-labs/qanun-core/internal/core/ports/driven"
)

// Ensure MockRelationStore implements RelationStore
var _ driven.RelationStore = (*MockRelationStore)(nil)

// MockRelationStore is a mock implementation of RelationStore for testing
type MockRelationStore struct {
	mu        sync.RWMutex
	relations map[string]*domain.Relation
	byTriple  map[string]*domain.Relation // key: source:target:type
}

// NewMockRelationStore creates a new MockRelationStore
func NewMockRelationStore() *MockRelationStore {
	return &MockRelationStore{
		relations: make(map[string]*domain.Relation),
		byTriple:  make(map[string]*domain.Relation),
	}
}

func tripleKey(r *domain.Relation) string {
	return r.SourceDocumentID + ":" + r.TargetDocumentID + ":" + string(r.Type)
}

func (m *MockRelationStore) Upsert(ctx context.Context, relation *domain.Relation) (*domain.Relation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := tripleKey(relation)
	if existing, ok := m.byTriple[key]; ok {
		existing.Similarity = relation.Similarity
		existing.Severity = relation.Severity
		existing.SourceExcerpt = relation.SourceExcerpt
		existing.TargetExcerpt = relation.TargetExcerpt
		existing.SuggestedResolution = relation.SuggestedResolution
		existing.UpdatedAt = time.Now()
		return existing, nil
	}
	stored := *relation
	if stored.ID == "" {
		stored.ID = domain.GenerateID()
	}
	if stored.Status == "" {
		stored.Status = domain.RelationPending
	}
	now := time.Now()
	stored.CreatedAt = now
	stored.UpdatedAt = now
	m.relations[stored.ID] = &stored
	m.byTriple[key] = &stored
	return &stored, nil
}

func (m *MockRelationStore) Get(ctx context.Context, id string) (*domain.Relation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	relation, ok := m.relations[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return relation, nil
}

func (m *MockRelationStore) List(ctx context.Context, filter driven.RelationFilter) ([]*domain.Relation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []*domain.Relation
	for _, r := range m.relations {
		if filter.Status != "" && r.Status != filter.Status {
			continue
		}
		if filter.Type != "" && r.Type != filter.Type {
			continue
		}
		result = append(result, r)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.After(result[j].CreatedAt) })
	if filter.Offset >= len(result) {
		return []*domain.Relation{}, nil
	}
	end := filter.Offset + filter.Limit
	if filter.Limit <= 0 || end > len(result) {
		end = len(result)
	}
	return result[filter.Offset:end], nil
}

func (m *MockRelationStore) UpdateStatus(ctx context.Context, id string, status domain.RelationStatus, reviewer string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	relation, ok := m.relations[id]
	if !ok {
		return domain.ErrNotFound
	}
	now := time.Now()
	relation.Status = status
	relation.ReviewedBy = reviewer
	relation.ReviewedAt = &now
	relation.UpdatedAt = now
	return nil
}

func (m *MockRelationStore) ListForDocument(ctx context.Context, documentID string) ([]*domain.Relation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []*domain.Relation
	for _, r := range m.relations {
		if r.SourceDocumentID == documentID || r.TargetDocumentID == documentID {
			result = append(result, r)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

// Helper methods for testing

func (m *MockRelationStore) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.relations = make(map[string]*domain.Relation)
	m.byTriple = make(map[string]*domain.Relation)
}
