package driving

import (
	"context"

	"github.com/qadhya-labs/qanun-core/internal/core/domain"
)

// SweepReport summarises an advance sweep over the corpus
type SweepReport struct {
	// Scanned is the number of documents examined
	Scanned int `json:"scanned"`

	// Advanced is the number of documents that moved at least one stage
	Advanced int `json:"advanced"`

	// Blocked is the number of documents held back by a gate
	Blocked int `json:"blocked"`

	// DryRun indicates no stage changes were persisted
	DryRun bool `json:"dry_run"`

	// Results holds the per-document outcomes
	Results []*domain.AdvanceResult `json:"results,omitempty"`
}

// PipelineOrchestrator drives documents through the review pipeline
type PipelineOrchestrator interface {
	// CheckGate reports whether a document may leave its current stage
	CheckGate(ctx context.Context, documentID string) (*domain.GateResult, error)

	// Advance moves a document one stage forward if its gate passes
	Advance(ctx context.Context, documentID string, actor string) (*domain.AdvanceResult, error)

	// AutoAdvance moves a document forward through every passing gate
	AutoAdvance(ctx context.Context, documentID string) (*domain.AdvanceResult, error)

	// Override forces a document to a stage regardless of gates (admin only)
	Override(ctx context.Context, documentID string, stage domain.PipelineStage, actor, reason string) error

	// Reject sends a document back to the previous stage and flags it for review
	Reject(ctx context.Context, documentID string, actor, reason string) error

	// BulkAdvance advances up to 100 documents, reporting per-item outcomes
	BulkAdvance(ctx context.Context, documentIDs []string, actor string) (*domain.BatchResult, error)

	// BulkReject rejects up to 100 documents, reporting per-item outcomes
	BulkReject(ctx context.Context, documentIDs []string, actor, reason string) (*domain.BatchResult, error)

	// Sweep auto-advances every document below the terminal stage.
	// With dryRun set, gates are evaluated but nothing is persisted.
	Sweep(ctx context.Context, dryRun bool) (*SweepReport, error)

	// History lists the recorded stage transitions for a document
	History(ctx context.Context, documentID string) ([]*domain.StageTransition, error)
}
