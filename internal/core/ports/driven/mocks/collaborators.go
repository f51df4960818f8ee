package mocks

import (
	"context"
	"sync"

	"github.com/qadhya-labs/qanun-core/internal/core/domain"
	"github.com/qadhya-labs/qanun-core/internal/core/ports/driven"
)

// Ensure the collaborator mocks implement their ports
var (
	_ driven.MetadataExtractor     = (*MockMetadataExtractor)(nil)
	_ driven.SimilarityComparer    = (*MockSimilarityComparer)(nil)
	_ driven.ContradictionAnalyzer = (*MockContradictionAnalyzer)(nil)
	_ driven.QualityScorer         = (*MockQualityScorer)(nil)
)

// MockMetadataExtractor is a mock implementation of MetadataExtractor.
// Set ExtractFn to control the result; the default returns an empty
// llm-method result.
type MockMetadataExtractor struct {
	mu       sync.Mutex
	calls    int
	Extracts []string // titles seen, in call order

	ExtractFn func(category, title, text string) (*domain.ExtractionResult, error)
	PingFn    func() error
}

// NewMockMetadataExtractor creates a new MockMetadataExtractor
func NewMockMetadataExtractor() *MockMetadataExtractor {
	return &MockMetadataExtractor{}
}

func (m *MockMetadataExtractor) Extract(ctx context.Context, category, title, text string) (*domain.ExtractionResult, error) {
	m.mu.Lock()
	m.calls++
	m.Extracts = append(m.Extracts, title)
	m.mu.Unlock()
	if m.ExtractFn != nil {
		return m.ExtractFn(category, title, text)
	}
	return domain.NewExtractionResult(domain.ExtractionLLM), nil
}

func (m *MockMetadataExtractor) Ping(ctx context.Context) error {
	if m.PingFn != nil {
		return m.PingFn()
	}
	return nil
}

func (m *MockMetadataExtractor) Close() error { return nil }

// Calls returns how many times Extract was invoked
func (m *MockMetadataExtractor) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// MockSimilarityComparer is a mock implementation of SimilarityComparer.
// Pair scores are set with SetSimilarity; unset pairs score 0.
type MockSimilarityComparer struct {
	mu         sync.RWMutex
	scores     map[string]float64 // key: textA + "\x00" + textB
	candidates map[string][]string

	SimilarityFn func(textA, textB string) (float64, error)
	CandidatesFn func(documentID string, limit int) ([]string, error)
}

// NewMockSimilarityComparer creates a new MockSimilarityComparer
func NewMockSimilarityComparer() *MockSimilarityComparer {
	return &MockSimilarityComparer{
		scores:     make(map[string]float64),
		candidates: make(map[string][]string),
	}
}

func (m *MockSimilarityComparer) Similarity(ctx context.Context, textA, textB string) (float64, error) {
	if m.SimilarityFn != nil {
		return m.SimilarityFn(textA, textB)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if score, ok := m.scores[textA+"\x00"+textB]; ok {
		return score, nil
	}
	return m.scores[textB+"\x00"+textA], nil
}

func (m *MockSimilarityComparer) Candidates(ctx context.Context, documentID string, limit int) ([]string, error) {
	if m.CandidatesFn != nil {
		return m.CandidatesFn(documentID, limit)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := m.candidates[documentID]
	if limit > 0 && len(ids) > limit {
		ids = ids[:limit]
	}
	return ids, nil
}

func (m *MockSimilarityComparer) Ping(ctx context.Context) error { return nil }

// SetSimilarity fixes the score for a text pair (order-insensitive)
func (m *MockSimilarityComparer) SetSimilarity(textA, textB string, score float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.scores[textA+"\x00"+textB] = score
}

// SetCandidates fixes the candidate list for a document
func (m *MockSimilarityComparer) SetCandidates(documentID string, ids []string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.candidates[documentID] = ids
}

// MockContradictionAnalyzer is a mock implementation of ContradictionAnalyzer.
// The default verdict is "not a contradiction".
type MockContradictionAnalyzer struct {
	AnalyzeFn func(source, target *domain.Document) (*domain.ContradictionAnalysis, error)
}

// NewMockContradictionAnalyzer creates a new MockContradictionAnalyzer
func NewMockContradictionAnalyzer() *MockContradictionAnalyzer {
	return &MockContradictionAnalyzer{}
}

func (m *MockContradictionAnalyzer) Analyze(ctx context.Context, source, target *domain.Document) (*domain.ContradictionAnalysis, error) {
	if m.AnalyzeFn != nil {
		return m.AnalyzeFn(source, target)
	}
	return &domain.ContradictionAnalysis{IsContradiction: false}, nil
}

// MockQualityScorer is a mock implementation of QualityScorer.
// Per-document scores are set with SetScore; unset documents score 75.
type MockQualityScorer struct {
	mu     sync.RWMutex
	scores map[string]float64

	ScoreFn func(doc *domain.Document) (float64, error)
}

// NewMockQualityScorer creates a new MockQualityScorer
func NewMockQualityScorer() *MockQualityScorer {
	return &MockQualityScorer{
		scores: make(map[string]float64),
	}
}

func (m *MockQualityScorer) Score(ctx context.Context, doc *domain.Document) (float64, error) {
	if m.ScoreFn != nil {
		return m.ScoreFn(doc)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if score, ok := m.scores[doc.ID]; ok {
		return score, nil
	}
	return 75, nil
}

// SetScore fixes the score for a document
func (m *MockQualityScorer) SetScore(documentID string, score float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.scores[documentID] = score
}
