package driving

import (
	"context"

	"github.com/qadhya-labs/qanun-core/internal/core/domain"
)

// ExtractOptions selects the strategy for an extraction pass.
// The zero value is the hybrid default: regex first, LLM gap-fill,
// and reuse of an existing metadata version when one is present.
type ExtractOptions struct {
	// ForceReextract writes a new version even when one already exists
	ForceReextract bool `json:"force_reextract"`

	// UseRegexOnly never consults the LLM collaborator
	UseRegexOnly bool `json:"use_regex_only"`

	// UseLLMOnly skips the regex pass and relies on the collaborator alone
	UseLLMOnly bool `json:"use_llm_only"`
}

// ExtractReport summarises an extraction pass over a batch of pages
type ExtractReport struct {
	// Extracted is the number of pages with at least one field extracted
	Extracted int `json:"extracted"`

	// Empty is the number of pages yielding no fields
	Empty int `json:"empty"`

	// Skipped is the number of pages reusing an existing version
	Skipped int `json:"skipped"`

	// LLMUsed is the number of pages where the collaborator filled gaps
	LLMUsed int `json:"llm_used"`

	// Errors holds per-page failures
	Errors []domain.ItemError `json:"errors,omitempty"`
}

// ExtractionService pulls structured metadata out of page text
type ExtractionService interface {
	// ExtractPage extracts metadata for a page using the strategy in
	// opts and persists the result as a new metadata version
	ExtractPage(ctx context.Context, pageID string, opts ExtractOptions) (*domain.Metadata, error)

	// ExtractBatch extracts metadata for a batch of pages
	ExtractBatch(ctx context.Context, pageIDs []string, opts ExtractOptions) (*ExtractReport, error)

	// GetMetadata retrieves the latest metadata version for a page
	GetMetadata(ctx context.Context, pageID string) (*domain.Metadata, error)

	// ListVersions lists all metadata versions for a page, newest first
	ListVersions(ctx context.Context, pageID string) ([]*domain.Metadata, error)
}
