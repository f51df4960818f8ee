package driven

import (
	"context"

	"github.com/qadhya-labs/qanun-core/internal/core/domain"
)

// RuleStore handles classification rule persistence (PostgreSQL)
type RuleStore interface {
	// Save creates or updates a rule
	Save(ctx context.Context, rule *domain.ClassificationRule) error

	// Get retrieves a rule by ID
	Get(ctx context.Context, id string) (*domain.ClassificationRule, error)

	// ListForSource retrieves enabled rules applicable to a web source in
	// matching order: source-scoped rules first, then global rules, each
	// group by priority descending, then creation time ascending.
	ListForSource(ctx context.Context, webSourceID string) ([]*domain.ClassificationRule, error)

	// ListAll retrieves every rule including disabled and suggested ones
	ListAll(ctx context.Context, limit, offset int) ([]*domain.ClassificationRule, error)

	// ListSuggested retrieves suggested rules awaiting activation
	ListSuggested(ctx context.Context) ([]*domain.ClassificationRule, error)

	// IncrementMatched bumps the times_matched counter
	IncrementMatched(ctx context.Context, id string) error

	// IncrementCorrect bumps the times_correct counter
	IncrementCorrect(ctx context.Context, id string) error

	// Delete deletes a rule
	Delete(ctx context.Context, id string) error
}

// CorrectionStore handles manual classification corrections (PostgreSQL)
type CorrectionStore interface {
	// Save records a correction
	Save(ctx context.Context, correction *domain.Correction) error

	// ListUnconsumed retrieves corrections not yet folded into a rule
	// suggestion, optionally filtered by web source
	ListUnconsumed(ctx context.Context, webSourceID string) ([]*domain.Correction, error)

	// MarkConsumed flags corrections as used by a suggestion
	MarkConsumed(ctx context.Context, ids []string) error
}
