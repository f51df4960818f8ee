package mocks

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/qadhya-labs/qanun-core/internal/core/domain"
)

// MockPageStore is a mock implementation of PageStore for testing
type MockPageStore struct {
	mu    sync.RWMutex
	pages map[string]*domain.Page
}

// NewMockPageStore creates a new MockPageStore
func NewMockPageStore() *MockPageStore {
	return &MockPageStore{
		pages: make(map[string]*domain.Page),
	}
}

func (m *MockPageStore) Save(ctx context.Context, page *domain.Page) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if page.ID == "" {
		page.ID = domain.GenerateID()
	}
	m.pages[page.ID] = page
	return nil
}

func (m *MockPageStore) Get(ctx context.Context, id string) (*domain.Page, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	page, ok := m.pages[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return page, nil
}

func (m *MockPageStore) GetBatch(ctx context.Context, ids []string) ([]*domain.Page, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var pages []*domain.Page
	for _, id := range ids {
		if page, ok := m.pages[id]; ok {
			pages = append(pages, page)
		}
	}
	return pages, nil
}

func (m *MockPageStore) ListBySource(ctx context.Context, sourceID string, limit, offset int) ([]*domain.Page, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var pages []*domain.Page
	for _, page := range m.pages {
		if page.SourceID == sourceID {
			pages = append(pages, page)
		}
	}
	sort.Slice(pages, func(i, j int) bool { return pages[i].ID < pages[j].ID })
	if offset >= len(pages) {
		return []*domain.Page{}, nil
	}
	end := offset + limit
	if limit <= 0 || end > len(pages) {
		end = len(pages)
	}
	return pages[offset:end], nil
}

func (m *MockPageStore) ListUnclassified(ctx context.Context, limit int) ([]*domain.Page, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var pages []*domain.Page
	for _, page := range m.pages {
		if page.Category == "" {
			pages = append(pages, page)
		}
	}
	sort.Slice(pages, func(i, j int) bool { return pages[i].ID < pages[j].ID })
	if limit > 0 && len(pages) > limit {
		pages = pages[:limit]
	}
	return pages, nil
}

func (m *MockPageStore) UpdateClassification(ctx context.Context, id, category, subcategory, docType string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	page, ok := m.pages[id]
	if !ok {
		return domain.ErrNotFound
	}
	page.Category = category
	page.Subcategory = subcategory
	page.DocType = docType
	page.UpdatedAt = time.Now()
	return nil
}

func (m *MockPageStore) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.pages[id]; !ok {
		return domain.ErrNotFound
	}
	delete(m.pages, id)
	return nil
}

// Helper methods for testing

func (m *MockPageStore) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pages = make(map[string]*domain.Page)
}
