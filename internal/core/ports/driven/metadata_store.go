package driven

import (
	"context"

	"github.com/qadhya-labs/qanun-core/internal/core/domain"
)

// MetadataStore handles versioned structured metadata (PostgreSQL).
// Each save writes the next version for the page; versions are immutable.
type MetadataStore interface {
	// SaveVersion persists a new metadata version for a page and returns
	// the stored record with its assigned version number.
	SaveVersion(ctx context.Context, meta *domain.Metadata) (*domain.Metadata, error)

	// GetLatest retrieves the newest metadata version for a page
	GetLatest(ctx context.Context, pageID string) (*domain.Metadata, error)

	// ListVersions retrieves all metadata versions for a page, newest first
	ListVersions(ctx context.Context, pageID string) ([]*domain.Metadata, error)
}

// RelationStore handles document relation persistence (PostgreSQL)
type RelationStore interface {
	// Upsert inserts or refreshes a relation keyed on the canonical
	// (source, target, type) triple. Similarity and analysis fields are
	// refreshed; review status is preserved on conflict.
	Upsert(ctx context.Context, relation *domain.Relation) (*domain.Relation, error)

	// Get retrieves a relation by ID
	Get(ctx context.Context, id string) (*domain.Relation, error)

	// List retrieves relations matching the filter, newest first
	List(ctx context.Context, filter RelationFilter) ([]*domain.Relation, error)

	// UpdateStatus sets the review status with reviewer attribution.
	// Transition validity is checked by the caller.
	UpdateStatus(ctx context.Context, id string, status domain.RelationStatus, reviewer string) error

	// ListForDocument retrieves relations touching a document
	ListForDocument(ctx context.Context, documentID string) ([]*domain.Relation, error)
}

// RelationFilter specifies criteria for listing relations
type RelationFilter struct {
	// Status filters by review status (optional)
	Status domain.RelationStatus

	// Type filters by relation type (optional)
	Type domain.RelationType

	// Limit is the maximum number of relations to return
	Limit int

	// Offset is the number of relations to skip
	Offset int
}
