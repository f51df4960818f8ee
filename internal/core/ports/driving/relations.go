package driving

import (
	"context"

	"github.com/qadhya-labs/qanun-core/internal/core/domain"
)

// DetectReport summarises a relation detection pass
type DetectReport struct {
	// Compared is the number of candidate pairs scored
	Compared int `json:"compared"`

	// Duplicates is the number of duplicate relations recorded
	Duplicates int `json:"duplicates"`

	// NearDuplicates is the number of near-duplicate relations recorded
	NearDuplicates int `json:"near_duplicates"`

	// Contradictions is the number of contradiction relations recorded
	Contradictions int `json:"contradictions"`

	// Errors holds per-document failures
	Errors []domain.ItemError `json:"errors,omitempty"`
}

// RelationService detects and reviews relations between documents
type RelationService interface {
	// DetectForDocument compares a document against its candidates and
	// records any relations crossing the similarity thresholds
	DetectForDocument(ctx context.Context, documentID string) (*DetectReport, error)

	// DetectBatch runs detection for a batch of documents
	DetectBatch(ctx context.Context, documentIDs []string) (*DetectReport, error)

	// Get retrieves a relation by ID
	Get(ctx context.Context, id string) (*domain.Relation, error)

	// List lists relations matching a filter
	List(ctx context.Context, status domain.RelationStatus, relType domain.RelationType, limit, offset int) ([]*domain.Relation, error)

	// ListForDocument lists relations touching a document
	ListForDocument(ctx context.Context, documentID string) ([]*domain.Relation, error)

	// Confirm marks a pending relation as confirmed
	Confirm(ctx context.Context, id, reviewer string) error

	// Dismiss marks a pending relation as dismissed
	Dismiss(ctx context.Context, id, reviewer string) error

	// Resolve marks a confirmed relation as resolved
	Resolve(ctx context.Context, id, reviewer string) error
}
