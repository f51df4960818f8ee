package mocks

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/qadhya-labs/qanun-core/internal/core/domain"
)

// MockRuleStore is a mock implementation of RuleStore for testing
type MockRuleStore struct {
	mu    sync.RWMutex
	rules map[string]*domain.ClassificationRule
}

// NewMockRuleStore creates a new MockRuleStore
func NewMockRuleStore() *MockRuleStore {
	return &MockRuleStore{
		rules: make(map[string]*domain.ClassificationRule),
	}
}

func (m *MockRuleStore) Save(ctx context.Context, rule *domain.ClassificationRule) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if rule.ID == "" {
		rule.ID = domain.GenerateID()
	}
	if rule.CreatedAt.IsZero() {
		rule.CreatedAt = time.Now()
	}
	rule.UpdatedAt = time.Now()
	m.rules[rule.ID] = rule
	return nil
}

func (m *MockRuleStore) Get(ctx context.Context, id string) (*domain.ClassificationRule, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rule, ok := m.rules[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return rule, nil
}

func (m *MockRuleStore) ListForSource(ctx context.Context, webSourceID string) ([]*domain.ClassificationRule, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var rules []*domain.ClassificationRule
	for _, rule := range m.rules {
		if !rule.Enabled {
			continue
		}
		if rule.WebSourceID == webSourceID || rule.WebSourceID == "" {
			rules = append(rules, rule)
		}
	}
	// Source-scoped before global, then priority descending, then oldest first
	sort.SliceStable(rules, func(i, j int) bool {
		iScoped := rules[i].WebSourceID != ""
		jScoped := rules[j].WebSourceID != ""
		if iScoped != jScoped {
			return iScoped
		}
		if rules[i].Priority != rules[j].Priority {
			return rules[i].Priority > rules[j].Priority
		}
		return rules[i].CreatedAt.Before(rules[j].CreatedAt)
	})
	return rules, nil
}

func (m *MockRuleStore) ListAll(ctx context.Context, limit, offset int) ([]*domain.ClassificationRule, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var rules []*domain.ClassificationRule
	for _, rule := range m.rules {
		rules = append(rules, rule)
	}
	sort.Slice(rules, func(i, j int) bool { return rules[i].ID < rules[j].ID })
	if offset >= len(rules) {
		return []*domain.ClassificationRule{}, nil
	}
	end := offset + limit
	if limit <= 0 || end > len(rules) {
		end = len(rules)
	}
	return rules[offset:end], nil
}

func (m *MockRuleStore) ListSuggested(ctx context.Context) ([]*domain.ClassificationRule, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var rules []*domain.ClassificationRule
	for _, rule := range m.rules {
		if rule.Suggested {
			rules = append(rules, rule)
		}
	}
	sort.Slice(rules, func(i, j int) bool { return rules[i].ID < rules[j].ID })
	return rules, nil
}

func (m *MockRuleStore) IncrementMatched(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rule, ok := m.rules[id]
	if !ok {
		return domain.ErrNotFound
	}
	rule.TimesMatched++
	return nil
}

func (m *MockRuleStore) IncrementCorrect(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rule, ok := m.rules[id]
	if !ok {
		return domain.ErrNotFound
	}
	rule.TimesCorrect++
	return nil
}

func (m *MockRuleStore) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rules[id]; !ok {
		return domain.ErrNotFound
	}
	delete(m.rules, id)
	return nil
}

// Helper methods for testing

func (m *MockRuleStore) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rules = make(map[string]*domain.ClassificationRule)
}
