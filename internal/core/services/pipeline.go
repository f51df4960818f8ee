package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/qadhya-labs/qanun-core/internal/core/domain"
	"github.com/qadhya-labs/qanun-core/internal/core/ports/driven"
	"github.com/qadhya-labs/qanun-core/internal/core/ports/driving"
)

// Ensure pipelineOrchestrator implements PipelineOrchestrator
var _ driving.PipelineOrchestrator = (*pipelineOrchestrator)(nil)

const (
	// minTextLength is the gate threshold for leaving the crawled stage
	minTextLength = 100

	// qualityReviewThreshold flags documents for review without blocking
	// their advance to the terminal stage
	qualityReviewThreshold = 50.0

	// maxAutoAdvanceHops caps one auto-advance pass
	maxAutoAdvanceHops = 5

	// maxBulkSize caps bulk advance and reject batches
	maxBulkSize = 100

	// sweepLockName guards concurrent sweeps across instances
	sweepLockName = "pipeline_sweep"

	// sweepLockTTL bounds how long a crashed sweeper blocks the next one
	sweepLockTTL = 10 * time.Minute

	// sweepBatchSize caps how many documents one sweep examines
	sweepBatchSize = 500

	// defaultSweepWorkers bounds the parallelism of a sweep
	defaultSweepWorkers = 4

	// historyPageSize caps history listings
	historyPageSize = 100
)

// pipelineOrchestrator drives documents through the review pipeline stages
type pipelineOrchestrator struct {
	documentStore driven.DocumentStore
	historyStore  driven.HistoryStore
	chunkIndex    driven.ChunkIndex
	scorer        driven.QualityScorer // nil means scores must arrive externally
	lock          driven.DistributedLock
	lockRequired  bool
	workers       int
	logger        *slog.Logger
}

// PipelineOrchestratorConfig holds dependencies for the pipeline orchestrator
type PipelineOrchestratorConfig struct {
	DocumentStore driven.DocumentStore
	HistoryStore  driven.HistoryStore
	ChunkIndex    driven.ChunkIndex
	Scorer        driven.QualityScorer
	Lock          driven.DistributedLock

	// LockRequired fails sweeps when no lock is configured.
	// Single-instance deployments can leave it false.
	LockRequired bool

	Workers int
	Logger  *slog.Logger
}

// NewPipelineOrchestrator creates a new PipelineOrchestrator
func NewPipelineOrchestrator(cfg PipelineOrchestratorConfig) driving.PipelineOrchestrator {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	workers := cfg.Workers
	if workers <= 0 {
		workers = defaultSweepWorkers
	}

	return &pipelineOrchestrator{
		documentStore: cfg.DocumentStore,
		historyStore:  cfg.HistoryStore,
		chunkIndex:    cfg.ChunkIndex,
		scorer:        cfg.Scorer,
		lock:          cfg.Lock,
		lockRequired:  cfg.LockRequired,
		workers:       workers,
		logger:        logger,
	}
}

// CheckGate reports whether a document may leave its current stage
func (o *pipelineOrchestrator) CheckGate(ctx context.Context, documentID string) (*domain.GateResult, error) {
	doc, err := o.documentStore.Get(ctx, documentID)
	if err != nil {
		return nil, err
	}
	return o.checkGate(ctx, doc, true)
}

// checkGate evaluates the gate for leaving the document's current stage.
// allowScoring permits computing and persisting a missing quality score;
// dry runs pass false.
func (o *pipelineOrchestrator) checkGate(ctx context.Context, doc *domain.Document, allowScoring bool) (*domain.GateResult, error) {
	switch doc.Stage {
	case domain.StageCrawled:
		if len(doc.ConsolidatedText) < minTextLength {
			return &domain.GateResult{Reason: "text < 100 chars"}, nil
		}

	case domain.StageContentReviewed:
		if doc.Category == "" {
			return &domain.GateResult{Reason: "category missing"}, nil
		}

	case domain.StageClassified:
		count, err := o.chunkIndex.CountForDocument(ctx, doc.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to count chunks: %w", err)
		}
		if count == 0 {
			return &domain.GateResult{Reason: "no indexed chunks"}, nil
		}

	case domain.StageIndexed:
		if doc.QualityScore == nil {
			if o.scorer == nil || !allowScoring {
				return &domain.GateResult{Reason: "quality score missing"}, nil
			}
			score, err := o.scorer.Score(ctx, doc)
			if err != nil {
				return nil, fmt.Errorf("failed to score document: %w", err)
			}
			// A low score flags the document but never blocks the gate
			if err := o.documentStore.UpdateQuality(ctx, doc.ID, score, score < qualityReviewThreshold); err != nil {
				return nil, fmt.Errorf("failed to store quality score: %w", err)
			}
			// Documents whose source text shrank below the minimum are
			// deactivated regardless of the score. The flag is orthogonal
			// to the stage and never blocks the gate either.
			if doc.Active && len(doc.ConsolidatedText) < minTextLength {
				if err := o.documentStore.SetActive(ctx, doc.ID, false); err != nil {
					return nil, fmt.Errorf("failed to deactivate document: %w", err)
				}
				o.logger.Info("document deactivated, source text below minimum",
					"document_id", doc.ID, "text_len", len(doc.ConsolidatedText))
			}
		}

	case domain.StageQualityAnalyzed:
		return &domain.GateResult{Reason: "terminal stage"}, nil

	default:
		return nil, fmt.Errorf("%w: unknown stage %q", domain.ErrInvalidInput, doc.Stage)
	}

	return &domain.GateResult{Eligible: true}, nil
}

// Advance moves a document one stage forward if its gate passes
func (o *pipelineOrchestrator) Advance(ctx context.Context, documentID string, actor string) (*domain.AdvanceResult, error) {
	doc, err := o.documentStore.Get(ctx, documentID)
	if err != nil {
		return nil, err
	}

	gate, err := o.checkGate(ctx, doc, true)
	if err != nil {
		return nil, err
	}
	if !gate.Eligible {
		return nil, fmt.Errorf("%w: %s", domain.ErrGateFailed, gate.Reason)
	}

	action := domain.ActionAdminApprove
	if actor == "" {
		action = domain.ActionAutoAdvance
	}
	next := doc.Stage.Next()
	if err := o.moveStage(ctx, doc, next, action, actor, ""); err != nil {
		return nil, err
	}

	return &domain.AdvanceResult{
		DocumentID: documentID,
		Advanced:   []domain.PipelineStage{next},
		StoppedAt:  next,
	}, nil
}

// AutoAdvance moves a document forward through every passing gate,
// re-reading the document each hop
func (o *pipelineOrchestrator) AutoAdvance(ctx context.Context, documentID string) (*domain.AdvanceResult, error) {
	result := &domain.AdvanceResult{DocumentID: documentID}

	for hop := 0; hop < maxAutoAdvanceHops; hop++ {
		doc, err := o.documentStore.Get(ctx, documentID)
		if err != nil {
			return nil, err
		}
		result.StoppedAt = doc.Stage

		gate, err := o.checkGate(ctx, doc, true)
		if err != nil {
			return nil, err
		}
		if !gate.Eligible {
			result.Reason = gate.Reason
			return result, nil
		}

		next := doc.Stage.Next()
		if err := o.moveStage(ctx, doc, next, domain.ActionAutoAdvance, "", ""); err != nil {
			return nil, err
		}
		result.Advanced = append(result.Advanced, next)
		result.StoppedAt = next
	}

	return result, nil
}

// Override forces a document to a stage regardless of gates
func (o *pipelineOrchestrator) Override(ctx context.Context, documentID string, stage domain.PipelineStage, actor, reason string) error {
	if !stage.IsValid() {
		return fmt.Errorf("%w: unknown stage %q", domain.ErrInvalidInput, stage)
	}
	if actor == "" {
		return fmt.Errorf("%w: override requires an actor", domain.ErrInvalidInput)
	}

	doc, err := o.documentStore.Get(ctx, documentID)
	if err != nil {
		return err
	}
	if doc.Stage == stage {
		return fmt.Errorf("%w: document already at stage %q", domain.ErrInvalidTransition, stage)
	}

	return o.moveStage(ctx, doc, stage, domain.ActionAdminOverride, actor, reason)
}

// Reject sends a document back to the previous stage and flags it for review
func (o *pipelineOrchestrator) Reject(ctx context.Context, documentID string, actor, reason string) error {
	doc, err := o.documentStore.Get(ctx, documentID)
	if err != nil {
		return err
	}

	idx := domain.StageIndex(doc.Stage)
	if idx <= 0 {
		return fmt.Errorf("%w: cannot reject from stage %q", domain.ErrInvalidTransition, doc.Stage)
	}
	previous := domain.StageOrder[idx-1]

	if err := o.moveStage(ctx, doc, previous, domain.ActionAdminReject, actor, reason); err != nil {
		return err
	}
	if err := o.documentStore.SetNeedsReview(ctx, documentID, true); err != nil {
		return fmt.Errorf("failed to flag document for review: %w", err)
	}
	return nil
}

// BulkAdvance advances up to 100 documents, reporting per-item outcomes.
// Documents not yet approved with complete consolidation are skipped.
func (o *pipelineOrchestrator) BulkAdvance(ctx context.Context, documentIDs []string, actor string) (*domain.BatchResult, error) {
	if len(documentIDs) > maxBulkSize {
		return nil, fmt.Errorf("%w: bulk operations are capped at %d documents", domain.ErrInvalidInput, maxBulkSize)
	}

	result := &domain.BatchResult{}
	for _, id := range documentIDs {
		doc, err := o.documentStore.Get(ctx, id)
		if err != nil {
			result.AddFailure(id, err)
			continue
		}
		if !doc.ReadyForReprocessing() {
			result.AddSkipped(id, "requires approval and complete consolidation")
			continue
		}
		if _, err := o.Advance(ctx, id, actor); err != nil {
			result.AddFailure(id, err)
		} else {
			result.AddSuccess(id)
		}
	}
	return result, nil
}

// BulkReject rejects up to 100 documents, reporting per-item outcomes
func (o *pipelineOrchestrator) BulkReject(ctx context.Context, documentIDs []string, actor, reason string) (*domain.BatchResult, error) {
	if len(documentIDs) > maxBulkSize {
		return nil, fmt.Errorf("%w: bulk operations are capped at %d documents", domain.ErrInvalidInput, maxBulkSize)
	}

	result := &domain.BatchResult{}
	for _, id := range documentIDs {
		if err := o.Reject(ctx, id, actor, reason); err != nil {
			result.AddFailure(id, err)
		} else {
			result.AddSuccess(id)
		}
	}
	return result, nil
}

// Sweep auto-advances every document below the terminal stage. The sweep
// runs under the distributed lock so concurrent instances never double-run.
// With dryRun set, gates are evaluated but nothing is persisted.
func (o *pipelineOrchestrator) Sweep(ctx context.Context, dryRun bool) (*driving.SweepReport, error) {
	report := &driving.SweepReport{DryRun: dryRun}

	if o.lock != nil {
		acquired, err := o.lock.Acquire(ctx, sweepLockName, sweepLockTTL)
		if err != nil {
			return nil, fmt.Errorf("failed to acquire sweep lock: %w", err)
		}
		if !acquired {
			o.logger.Info("sweep already running elsewhere, skipping")
			return report, nil
		}
		defer func() {
			if err := o.lock.Release(context.WithoutCancel(ctx), sweepLockName); err != nil {
				o.logger.Warn("failed to release sweep lock", "error", err)
			}
		}()
	} else if o.lockRequired {
		return nil, errors.New("sweep requires a distributed lock but none is configured")
	}

	ids, err := o.documentStore.ListIDsBelowStage(ctx, domain.StageQualityAnalyzed, sweepBatchSize)
	if err != nil {
		return nil, fmt.Errorf("failed to list sweep candidates: %w", err)
	}
	report.Scanned = len(ids)

	var mu sync.Mutex
	sem := make(chan struct{}, o.workers)
	var wg sync.WaitGroup

	for _, id := range ids {
		select {
		case <-ctx.Done():
			wg.Wait()
			return report, ctx.Err()
		case sem <- struct{}{}:
		}

		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			defer func() { <-sem }()

			var result *domain.AdvanceResult
			var err error
			if dryRun {
				result, err = o.dryAdvance(ctx, id)
			} else {
				result, err = o.AutoAdvance(ctx, id)
			}

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				o.logger.Warn("sweep failed for document", "document_id", id, "error", err)
				return
			}
			report.Results = append(report.Results, result)
			if len(result.Advanced) > 0 {
				report.Advanced++
			} else {
				report.Blocked++
			}
		}(id)
	}

	wg.Wait()

	o.logger.Info("sweep done",
		"scanned", report.Scanned,
		"advanced", report.Advanced,
		"blocked", report.Blocked,
		"dry_run", dryRun)

	return report, nil
}

// dryAdvance evaluates the document's current gate without persisting.
// Only the first hop is simulated; later gates depend on state the dry
// run never writes.
func (o *pipelineOrchestrator) dryAdvance(ctx context.Context, documentID string) (*domain.AdvanceResult, error) {
	doc, err := o.documentStore.Get(ctx, documentID)
	if err != nil {
		return nil, err
	}

	result := &domain.AdvanceResult{DocumentID: documentID, StoppedAt: doc.Stage}
	gate, err := o.checkGate(ctx, doc, false)
	if err != nil {
		return nil, err
	}
	if !gate.Eligible {
		result.Reason = gate.Reason
		return result, nil
	}
	next := doc.Stage.Next()
	result.Advanced = []domain.PipelineStage{next}
	result.StoppedAt = next
	return result, nil
}

// History lists the recorded stage transitions for a document, newest first
func (o *pipelineOrchestrator) History(ctx context.Context, documentID string) ([]*domain.StageTransition, error) {
	return o.historyStore.ListByDocument(ctx, documentID, historyPageSize)
}

// moveStage persists the stage change and its audit entry
func (o *pipelineOrchestrator) moveStage(ctx context.Context, doc *domain.Document, to domain.PipelineStage, action domain.HistoryAction, actor, reason string) error {
	// The store may hand back the same struct it mutates, so the origin
	// stage has to be captured before the update.
	from := doc.Stage

	if err := o.documentStore.UpdateStage(ctx, doc.ID, to); err != nil {
		return fmt.Errorf("failed to update stage: %w", err)
	}

	transition := &domain.StageTransition{
		ID:         domain.GenerateID(),
		DocumentID: doc.ID,
		FromStage:  from,
		ToStage:    to,
		Action:     action,
		Actor:      actor,
		Reason:     reason,
		CreatedAt:  time.Now(),
	}
	if err := o.historyStore.Record(ctx, transition); err != nil {
		return fmt.Errorf("failed to record transition: %w", err)
	}

	o.logger.Info("stage transition",
		"document_id", doc.ID,
		"from", from,
		"to", to,
		"action", action)

	return nil
}
