package driving

import (
	"context"

	"github.com/qadhya-labs/qanun-core/internal/core/domain"
)

// ClassifyReport summarises a classification pass over a batch of pages
type ClassifyReport struct {
	// Classified is the number of pages that matched a rule
	Classified int `json:"classified"`

	// Unmatched is the number of pages no rule claimed
	Unmatched int `json:"unmatched"`

	// Skipped holds pages whose document is not ready for reprocessing
	Skipped []domain.ItemError `json:"skipped,omitempty"`

	// Errors holds per-page failures
	Errors []domain.ItemError `json:"errors,omitempty"`
}

// ClassificationService assigns categories to crawled pages via rules
type ClassificationService interface {
	// ClassifyPage runs the rule set against a single page.
	// Returns nil when no rule matches.
	ClassifyPage(ctx context.Context, pageID string) (*domain.Classification, error)

	// ClassifyBatch classifies a batch of pages
	ClassifyBatch(ctx context.Context, pageIDs []string) (*ClassifyReport, error)

	// SaveRule validates and persists a rule
	SaveRule(ctx context.Context, rule *domain.ClassificationRule) error

	// GetRule retrieves a rule by ID
	GetRule(ctx context.Context, id string) (*domain.ClassificationRule, error)

	// ListRules lists rules for a source, or all rules when webSourceID is empty
	ListRules(ctx context.Context, webSourceID string) ([]*domain.ClassificationRule, error)

	// DeleteRule removes a rule
	DeleteRule(ctx context.Context, id string) error

	// RecordCorrection registers a human correction of a rule's output.
	// Corrections feed rule suggestion.
	RecordCorrection(ctx context.Context, correction *domain.Correction) error

	// SuggestRules derives disabled candidate rules from accumulated
	// corrections for a source
	SuggestRules(ctx context.Context, webSourceID string) ([]*domain.ClassificationRule, error)

	// ListSuggestions lists suggested rules awaiting activation
	ListSuggestions(ctx context.Context) ([]*domain.ClassificationRule, error)

	// ActivateSuggestion enables a suggested rule
	ActivateSuggestion(ctx context.Context, ruleID string) error
}
