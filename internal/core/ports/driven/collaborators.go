package driven

import (
	"context"

	"github.com/qadhya-labs/qanun-core/internal/core/domain"
)

// MetadataExtractor is the LLM collaborator used when regex extraction
// leaves required fields missing. Failures are propagated; the caller
// falls back to the regex result alone.
type MetadataExtractor interface {
	// Extract asks the collaborator for structured metadata
	Extract(ctx context.Context, category, title, text string) (*domain.ExtractionResult, error)

	// Ping checks the collaborator is reachable
	Ping(ctx context.Context) error

	// Close cleans up resources
	Close() error
}

// SimilarityComparer scores semantic similarity between two texts in [0, 1]
type SimilarityComparer interface {
	// Similarity returns the semantic similarity of two texts
	Similarity(ctx context.Context, textA, textB string) (float64, error)

	// Candidates returns IDs of documents worth comparing against the
	// given document, ranked by rough similarity
	Candidates(ctx context.Context, documentID string, limit int) ([]string, error)

	// Ping checks the comparer backend is healthy
	Ping(ctx context.Context) error
}

// ContradictionAnalyzer judges whether two similar legal texts contradict
// each other. Verdicts (severity, excerpts, suggested resolution) are
// stored verbatim.
type ContradictionAnalyzer interface {
	Analyze(ctx context.Context, source, target *domain.Document) (*domain.ContradictionAnalysis, error)
}

// QualityScorer computes a quality score in [0, 100] for a consolidated
// document
type QualityScorer interface {
	Score(ctx context.Context, doc *domain.Document) (float64, error)
}
