package driven

import (
	"github.com/qadhya-labs/qanun-core/internal/core/domain"
)

// CitationNormaliser extracts a stable document identity from a crawled page.
// Each normaliser knows one or more source hosts; the registry picks the
// highest-priority normaliser claiming the page's host.
type CitationNormaliser interface {
	// Normalise derives the identity for a page. A zero identity means the
	// normaliser could not recognise the page.
	Normalise(page *domain.Page) domain.DocumentIdentity

	// Hosts returns the source hosts this normaliser handles.
	// Can include wildcards like "*" for a generic fallback.
	Hosts() []string

	// Priority returns the normaliser priority (higher = more specific).
	// Priority ranges:
	//   90-100: Source-specific (e.g., the 9anoun.tn normaliser)
	//   10-49:  Generic (URL and breadcrumb heuristics)
	//   1-9:    Fallback (raw slug extraction)
	Priority() int
}

// CitationRegistry manages citation normalisers.
// When multiple normalisers claim a host, the highest priority one is used.
type CitationRegistry interface {
	// Get retrieves the best-matching normaliser for a host.
	// Returns nil if no normaliser claims the host.
	Get(host string) CitationNormaliser

	// Normalise derives the identity for a page by walking the normalisers
	// claiming the page's host in priority order and returning the first
	// non-zero identity.
	Normalise(page *domain.Page) domain.DocumentIdentity

	// GetAll retrieves all normalisers claiming a host, sorted by priority
	// (highest first).
	GetAll(host string) []CitationNormaliser

	// Register registers a normaliser.
	Register(normaliser CitationNormaliser)

	// List returns all registered hosts.
	List() []string
}
