package driven

import (
	"context"

	"github.com/qadhya-labs/qanun-core/internal/core/domain"
)

// DocumentStore handles canonical document persistence (PostgreSQL).
// FindOrCreate and LinkPage rely on upserts against unique constraints;
// they are the only correctness mechanism for concurrent linkers.
type DocumentStore interface {
	// FindOrCreate upserts a document by citation key and returns the
	// surviving row. Concurrent calls with the same key all return the
	// same document.
	FindOrCreate(ctx context.Context, identity domain.DocumentIdentity) (*domain.Document, error)

	// Get retrieves a document by ID
	Get(ctx context.Context, id string) (*domain.Document, error)

	// GetByCitationKey retrieves a document by citation key
	GetByCitationKey(ctx context.Context, key string) (*domain.Document, error)

	// GetWithPages retrieves a document with its linked pages in article order
	GetWithPages(ctx context.Context, id string) (*domain.DocumentWithPages, error)

	// ListByStage retrieves documents at a stage with pagination
	ListByStage(ctx context.Context, stage domain.PipelineStage, limit, offset int) ([]*domain.Document, error)

	// ListIDsByStage retrieves IDs of documents at any non-terminal stage,
	// for sweep batching
	ListIDsBelowStage(ctx context.Context, stage domain.PipelineStage, limit int) ([]string, error)

	// LinkPage upserts the page link keyed on page ID. If the page was
	// linked to another document the link moves atomically.
	LinkPage(ctx context.Context, link *domain.PageLink) error

	// UnlinkPage removes the link for a page
	UnlinkPage(ctx context.Context, pageID string) error

	// GetLinkByPage retrieves the link of a page, ErrNotFound when unlinked
	GetLinkByPage(ctx context.Context, pageID string) (*domain.PageLink, error)

	// GetLinks retrieves the links of a document
	GetLinks(ctx context.Context, documentID string) ([]*domain.PageLink, error)

	// RefreshPageCount recomputes and stores the page count for a document
	RefreshPageCount(ctx context.Context, documentID string) error

	// UpdateStage moves a document to a stage
	UpdateStage(ctx context.Context, id string, stage domain.PipelineStage) error

	// UpdateClassification sets category fields on a document
	UpdateClassification(ctx context.Context, id, category, subcategory, docType string) error

	// UpdateConsolidation stores the consolidated text, structure and status
	UpdateConsolidation(ctx context.Context, id string, text string, structure *domain.DocumentStructure, status domain.ConsolidationStatus) error

	// UpdateQuality stores the quality score and the needs-review flag
	UpdateQuality(ctx context.Context, id string, score float64, needsReview bool) error

	// SetNeedsReview toggles the needs-review flag without touching the score
	SetNeedsReview(ctx context.Context, id string, needsReview bool) error

	// SetActive toggles the active flag. Deactivation hides a document
	// without moving it out of its stage.
	SetActive(ctx context.Context, id string, active bool) error

	// SetVerified toggles the verified flag with reviewer attribution
	SetVerified(ctx context.Context, id string, verified bool, reviewer string) error

	// Delete deletes a document and its links
	Delete(ctx context.Context, id string) error

	// Count returns total document count
	Count(ctx context.Context) (int, error)
}

// PageStore handles crawled page persistence (PostgreSQL)
type PageStore interface {
	// Save creates or updates a page
	Save(ctx context.Context, page *domain.Page) error

	// Get retrieves a page by ID
	Get(ctx context.Context, id string) (*domain.Page, error)

	// GetBatch retrieves multiple pages by ID, skipping missing ones
	GetBatch(ctx context.Context, ids []string) ([]*domain.Page, error)

	// ListBySource retrieves pages for a web source with pagination
	ListBySource(ctx context.Context, sourceID string, limit, offset int) ([]*domain.Page, error)

	// ListUnclassified retrieves pages without a category
	ListUnclassified(ctx context.Context, limit int) ([]*domain.Page, error)

	// UpdateClassification sets category fields on a page
	UpdateClassification(ctx context.Context, id, category, subcategory, docType string) error

	// Delete deletes a page
	Delete(ctx context.Context, id string) error
}

// HistoryStore records pipeline stage transitions (PostgreSQL, append-only)
type HistoryStore interface {
	// Record appends one stage transition
	Record(ctx context.Context, transition *domain.StageTransition) error

	// ListByDocument retrieves transitions for a document, newest first
	ListByDocument(ctx context.Context, documentID string, limit int) ([]*domain.StageTransition, error)
}

// ChunkIndex exposes read-only chunk counts from the indexing subsystem.
// The pipeline checks counts to gate the indexed stage; it never writes
// chunks itself.
type ChunkIndex interface {
	// CountForDocument returns the number of indexed chunks for a document
	CountForDocument(ctx context.Context, documentID string) (int, error)
}

// WebSourceStore handles web source persistence (PostgreSQL)
type WebSourceStore interface {
	// Save creates or updates a web source
	Save(ctx context.Context, source *domain.WebSource) error

	// Get retrieves a web source by ID
	Get(ctx context.Context, id string) (*domain.WebSource, error)

	// GetByHost retrieves a web source by host name
	GetByHost(ctx context.Context, host string) (*domain.WebSource, error)

	// List retrieves all web sources
	List(ctx context.Context) ([]*domain.WebSource, error)

	// Delete deletes a web source
	Delete(ctx context.Context, id string) error
}
