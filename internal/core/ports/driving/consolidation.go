package driving

import (
	"context"

	"github.com/qadhya-labs/qanun-core/internal/core/domain"
)

// ConsolidationResult summarises a consolidation pass over a batch of pages
type ConsolidationResult struct {
	// PagesLinked is the number of pages attached to a document
	PagesLinked int `json:"pages_linked"`

	// PagesSkipped is the number of pages ignored (no identity or no text)
	PagesSkipped int `json:"pages_skipped"`

	// DocumentsCreated is the number of new documents
	DocumentsCreated int `json:"documents_created"`

	// DocumentsTouched is the number of distinct documents that gained pages
	DocumentsTouched int `json:"documents_touched"`

	// Errors holds per-page failures
	Errors []domain.ItemError `json:"errors,omitempty"`
}

// ConsolidationService groups crawled pages into canonical legal documents
type ConsolidationService interface {
	// FindOrCreateDocument resolves a page to its canonical document,
	// creating the document when the citation key is new
	FindOrCreateDocument(ctx context.Context, page *domain.Page) (*domain.Document, error)

	// LinkPage attaches a page to its canonical document. Relinking a page
	// moves it; pages with fewer than 10 characters of text are skipped.
	LinkPage(ctx context.Context, page *domain.Page) (*domain.PageLink, error)

	// ConsolidateBatch links a batch of pages concurrently
	ConsolidateBatch(ctx context.Context, pageIDs []string) (*ConsolidationResult, error)

	// RebuildStructure recomputes a document's book/chapter tree and
	// consolidated text from its linked pages
	RebuildStructure(ctx context.Context, documentID string) (*domain.DocumentStructure, error)

	// GetDocument retrieves a document with its linked pages
	GetDocument(ctx context.Context, documentID string) (*domain.DocumentWithPages, error)

	// ListDocuments lists documents at a pipeline stage
	ListDocuments(ctx context.Context, stage domain.PipelineStage, limit, offset int) ([]*domain.Document, error)

	// Approve marks a document's consolidation as verified
	Approve(ctx context.Context, documentID, reviewer string) error

	// Revoke clears a document's verified flag
	Revoke(ctx context.Context, documentID, reviewer string) error
}
