package mocks

import (
	"context"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/qadhya-labs/qanun-core/internal/core/domain"
)

// MockDocumentStore is a mock implementation of DocumentStore for testing
type MockDocumentStore struct {
	mu        sync.RWMutex
	documents map[string]*domain.Document
	byKey     map[string]*domain.Document
	links     map[string]*domain.PageLink // key: pageID

	// Pages backs GetWithPages; tests populate it via a MockPageStore
	Pages *MockPageStore
}

// NewMockDocumentStore creates a new MockDocumentStore
func NewMockDocumentStore() *MockDocumentStore {
	return &MockDocumentStore{
		documents: make(map[string]*domain.Document),
		byKey:     make(map[string]*domain.Document),
		links:     make(map[string]*domain.PageLink),
	}
}

func (m *MockDocumentStore) FindOrCreate(ctx context.Context, identity domain.DocumentIdentity) (*domain.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if doc, ok := m.byKey[identity.CitationKey]; ok {
		return doc, nil
	}
	now := time.Now()
	doc := &domain.Document{
		ID:            domain.GenerateID(),
		CitationKey:   identity.CitationKey,
		DocType:       identity.DocType,
		LegalDomain:   identity.LegalDomain,
		TitleAr:       identity.TitleAr,
		TitleFr:       identity.TitleFr,
		Category:      identity.Category,
		Subcategory:   identity.Subcategory,
		Stage:         domain.StageCrawled,
		Active:        true,
		Consolidation: domain.ConsolidationStatusPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	m.documents[doc.ID] = doc
	m.byKey[doc.CitationKey] = doc
	return doc, nil
}

func (m *MockDocumentStore) Get(ctx context.Context, id string) (*domain.Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	doc, ok := m.documents[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return doc, nil
}

func (m *MockDocumentStore) GetByCitationKey(ctx context.Context, key string) (*domain.Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	doc, ok := m.byKey[key]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return doc, nil
}

func (m *MockDocumentStore) GetWithPages(ctx context.Context, id string) (*domain.DocumentWithPages, error) {
	m.mu.RLock()
	doc, ok := m.documents[id]
	if !ok {
		m.mu.RUnlock()
		return nil, domain.ErrNotFound
	}
	var links []*domain.PageLink
	for _, link := range m.links {
		if link.DocumentID == id {
			links = append(links, link)
		}
	}
	m.mu.RUnlock()

	sortLinksByArticle(links)
	result := &domain.DocumentWithPages{Document: doc}
	for _, link := range links {
		lp := &domain.LinkedPage{Link: link}
		if m.Pages != nil {
			if page, err := m.Pages.Get(ctx, link.PageID); err == nil {
				lp.Page = page
			}
		}
		result.Pages = append(result.Pages, lp)
	}
	return result, nil
}

func (m *MockDocumentStore) ListByStage(ctx context.Context, stage domain.PipelineStage, limit, offset int) ([]*domain.Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var docs []*domain.Document
	for _, doc := range m.documents {
		if doc.Stage == stage {
			docs = append(docs, doc)
		}
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].ID < docs[j].ID })
	if offset >= len(docs) {
		return []*domain.Document{}, nil
	}
	end := offset + limit
	if limit <= 0 || end > len(docs) {
		end = len(docs)
	}
	return docs[offset:end], nil
}

func (m *MockDocumentStore) ListIDsBelowStage(ctx context.Context, stage domain.PipelineStage, limit int) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ceiling := domain.StageIndex(stage)
	var ids []string
	for _, doc := range m.documents {
		if domain.StageIndex(doc.Stage) < ceiling {
			ids = append(ids, doc.ID)
		}
	}
	sort.Strings(ids)
	if limit > 0 && len(ids) > limit {
		ids = ids[:limit]
	}
	return ids, nil
}

func (m *MockDocumentStore) LinkPage(ctx context.Context, link *domain.PageLink) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.links[link.PageID]; ok {
		link.ID = existing.ID
		link.CreatedAt = existing.CreatedAt
	} else {
		if link.ID == "" {
			link.ID = domain.GenerateID()
		}
		link.CreatedAt = time.Now()
	}
	m.links[link.PageID] = link
	return nil
}

func (m *MockDocumentStore) UnlinkPage(ctx context.Context, pageID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.links, pageID)
	return nil
}

func (m *MockDocumentStore) GetLinkByPage(ctx context.Context, pageID string) (*domain.PageLink, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	link, ok := m.links[pageID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return link, nil
}

func (m *MockDocumentStore) GetLinks(ctx context.Context, documentID string) ([]*domain.PageLink, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var links []*domain.PageLink
	for _, link := range m.links {
		if link.DocumentID == documentID {
			links = append(links, link)
		}
	}
	sortLinksByArticle(links)
	return links, nil
}

func (m *MockDocumentStore) RefreshPageCount(ctx context.Context, documentID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.documents[documentID]
	if !ok {
		return domain.ErrNotFound
	}
	count := 0
	for _, link := range m.links {
		if link.DocumentID == documentID {
			count++
		}
	}
	doc.PageCount = count
	doc.UpdatedAt = time.Now()
	return nil
}

func (m *MockDocumentStore) UpdateStage(ctx context.Context, id string, stage domain.PipelineStage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.documents[id]
	if !ok {
		return domain.ErrNotFound
	}
	doc.Stage = stage
	doc.UpdatedAt = time.Now()
	return nil
}

func (m *MockDocumentStore) UpdateClassification(ctx context.Context, id, category, subcategory, docType string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.documents[id]
	if !ok {
		return domain.ErrNotFound
	}
	doc.Category = category
	doc.Subcategory = subcategory
	doc.DocType = docType
	doc.UpdatedAt = time.Now()
	return nil
}

func (m *MockDocumentStore) UpdateConsolidation(ctx context.Context, id string, text string, structure *domain.DocumentStructure, status domain.ConsolidationStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.documents[id]
	if !ok {
		return domain.ErrNotFound
	}
	now := time.Now()
	doc.ConsolidatedText = text
	doc.Structure = structure
	doc.Consolidation = status
	doc.ConsolidatedAt = &now
	doc.UpdatedAt = now
	return nil
}

func (m *MockDocumentStore) UpdateQuality(ctx context.Context, id string, score float64, needsReview bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.documents[id]
	if !ok {
		return domain.ErrNotFound
	}
	doc.QualityScore = &score
	doc.NeedsReview = needsReview
	doc.UpdatedAt = time.Now()
	return nil
}

func (m *MockDocumentStore) SetNeedsReview(ctx context.Context, id string, needsReview bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.documents[id]
	if !ok {
		return domain.ErrNotFound
	}
	doc.NeedsReview = needsReview
	doc.UpdatedAt = time.Now()
	return nil
}

func (m *MockDocumentStore) SetActive(ctx context.Context, id string, active bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.documents[id]
	if !ok {
		return domain.ErrNotFound
	}
	doc.Active = active
	doc.UpdatedAt = time.Now()
	return nil
}

func (m *MockDocumentStore) SetVerified(ctx context.Context, id string, verified bool, reviewer string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.documents[id]
	if !ok {
		return domain.ErrNotFound
	}
	doc.Verified = verified
	if verified {
		now := time.Now()
		doc.VerifiedBy = reviewer
		doc.VerifiedAt = &now
	} else {
		doc.VerifiedBy = ""
		doc.VerifiedAt = nil
	}
	doc.UpdatedAt = time.Now()
	return nil
}

func (m *MockDocumentStore) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.documents[id]
	if !ok {
		return domain.ErrNotFound
	}
	for pageID, link := range m.links {
		if link.DocumentID == id {
			delete(m.links, pageID)
		}
	}
	delete(m.byKey, doc.CitationKey)
	delete(m.documents, id)
	return nil
}

func (m *MockDocumentStore) Count(ctx context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.documents), nil
}

// Helper methods for testing

func (m *MockDocumentStore) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.documents = make(map[string]*domain.Document)
	m.byKey = make(map[string]*domain.Document)
	m.links = make(map[string]*domain.PageLink)
}

func (m *MockDocumentStore) Put(doc *domain.Document) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.documents[doc.ID] = doc
	m.byKey[doc.CitationKey] = doc
}

// sortLinksByArticle orders links by numeric article locator, locator-less
// links last, ties broken by page order.
func sortLinksByArticle(links []*domain.PageLink) {
	sort.SliceStable(links, func(i, j int) bool {
		a, aerr := strconv.Atoi(links[i].ArticleLocator)
		b, berr := strconv.Atoi(links[j].ArticleLocator)
		if aerr == nil && berr == nil {
			return a < b
		}
		if aerr == nil {
			return true
		}
		if berr == nil {
			return false
		}
		ai, bi := 0, 0
		if links[i].PageOrder != nil {
			ai = *links[i].PageOrder
		}
		if links[j].PageOrder != nil {
			bi = *links[j].PageOrder
		}
		return ai < bi
	})
}
