package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/qadhya-labs/qanun-core/internal/core/domain"
	"github.com/qadhya-labs/qanun-core/internal/core/ports/driven"
	"github.com/qadhya-labs/qanun-core/internal/core/ports/driving"
)

// Ensure relationService implements RelationService
var _ driving.RelationService = (*relationService)(nil)

// Similarity thresholds. Scores at or above duplicateThreshold mean the
// pair is the same text; the contradiction band only applies to pairs in
// the same legal domain.
const (
	duplicateThreshold     = 0.95
	nearDuplicateThreshold = 0.85
	contradictionFloor     = 0.70

	// duplicateLengthRatio is the minimum shorter/longer text length
	// ratio for a duplicate; high similarity over very different lengths
	// means containment, not duplication
	duplicateLengthRatio = 0.9

	// defaultCandidateLimit caps the candidate set per document
	defaultCandidateLimit = 20
)

// relationService detects duplicates, near-duplicates and contradictions
// between canonical documents
type relationService struct {
	relationStore driven.RelationStore
	documentStore driven.DocumentStore
	comparer      driven.SimilarityComparer
	analyzer      driven.ContradictionAnalyzer // nil disables contradiction analysis
	logger        *slog.Logger
}

// RelationServiceConfig holds dependencies for the relation service
type RelationServiceConfig struct {
	RelationStore driven.RelationStore
	DocumentStore driven.DocumentStore
	Comparer      driven.SimilarityComparer
	Analyzer      driven.ContradictionAnalyzer
	Logger        *slog.Logger
}

// NewRelationService creates a new RelationService
func NewRelationService(cfg RelationServiceConfig) driving.RelationService {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &relationService{
		relationStore: cfg.RelationStore,
		documentStore: cfg.DocumentStore,
		comparer:      cfg.Comparer,
		analyzer:      cfg.Analyzer,
		logger:        logger,
	}
}

// DetectForDocument compares a document against its candidates and records
// any relations crossing the similarity thresholds
func (s *relationService) DetectForDocument(ctx context.Context, documentID string) (*driving.DetectReport, error) {
	report := &driving.DetectReport{}
	if err := s.detect(ctx, documentID, report); err != nil {
		return nil, err
	}
	return report, nil
}

// DetectBatch runs detection for a batch of documents sequentially.
// Candidate pairs canonicalize onto the same row, so batch members
// rediscovering each other upsert rather than duplicate.
func (s *relationService) DetectBatch(ctx context.Context, documentIDs []string) (*driving.DetectReport, error) {
	report := &driving.DetectReport{}
	for _, id := range documentIDs {
		select {
		case <-ctx.Done():
			return report, ctx.Err()
		default:
		}
		if err := s.detect(ctx, id, report); err != nil {
			report.Errors = append(report.Errors, domain.ItemError{ID: id, Error: err.Error()})
		}
	}
	return report, nil
}

func (s *relationService) detect(ctx context.Context, documentID string, report *driving.DetectReport) error {
	doc, err := s.documentStore.Get(ctx, documentID)
	if err != nil {
		return err
	}

	candidateIDs, err := s.comparer.Candidates(ctx, documentID, defaultCandidateLimit)
	if err != nil {
		return fmt.Errorf("failed to fetch candidates: %w", err)
	}

	for _, candidateID := range candidateIDs {
		if candidateID == documentID {
			continue
		}

		candidate, err := s.documentStore.Get(ctx, candidateID)
		if err != nil {
			report.Errors = append(report.Errors, domain.ItemError{ID: candidateID, Error: err.Error()})
			continue
		}

		similarity, err := s.comparer.Similarity(ctx, doc.ConsolidatedText, candidate.ConsolidatedText)
		if err != nil {
			report.Errors = append(report.Errors, domain.ItemError{ID: candidateID, Error: err.Error()})
			continue
		}
		report.Compared++

		relation, err := s.classifyPair(ctx, doc, candidate, similarity)
		if err != nil {
			report.Errors = append(report.Errors, domain.ItemError{ID: candidateID, Error: err.Error()})
			continue
		}
		if relation == nil {
			continue
		}

		relation.Canonicalize()
		stored, err := s.relationStore.Upsert(ctx, relation)
		if err != nil {
			report.Errors = append(report.Errors, domain.ItemError{ID: candidateID, Error: err.Error()})
			continue
		}

		switch stored.Type {
		case domain.RelationDuplicate:
			report.Duplicates++
		case domain.RelationNearDuplicate:
			report.NearDuplicates++
		case domain.RelationContradiction:
			report.Contradictions++
		}
	}

	return nil
}

// classifyPair maps a similarity score to a relation, consulting the
// contradiction analyzer for same-domain pairs in the ambiguous band.
// Returns nil when the pair warrants no relation.
func (s *relationService) classifyPair(ctx context.Context, doc, candidate *domain.Document, similarity float64) (*domain.Relation, error) {
	relation := &domain.Relation{
		ID:               domain.GenerateID(),
		SourceDocumentID: doc.ID,
		TargetDocumentID: candidate.ID,
		Similarity:       similarity,
		Status:           domain.RelationPending,
	}

	switch {
	case similarity >= duplicateThreshold:
		if nearIdenticalLength(doc.ConsolidatedText, candidate.ConsolidatedText) {
			relation.Type = domain.RelationDuplicate
		} else {
			relation.Type = domain.RelationNearDuplicate
		}
		return relation, nil

	case similarity >= nearDuplicateThreshold:
		relation.Type = domain.RelationNearDuplicate
		return relation, nil

	case similarity >= contradictionFloor:
		if s.analyzer == nil || doc.LegalDomain == "" || doc.LegalDomain != candidate.LegalDomain {
			return nil, nil
		}
		if !articleRangesOverlap(doc, candidate) {
			return nil, nil
		}
		analysis, err := s.analyzer.Analyze(ctx, doc, candidate)
		if err != nil {
			return nil, fmt.Errorf("contradiction analysis failed: %w", err)
		}
		if !analysis.IsContradiction {
			return nil, nil
		}
		relation.Type = domain.RelationContradiction
		relation.Severity = analysis.Severity
		relation.SourceExcerpt = analysis.SourceExcerpt
		relation.TargetExcerpt = analysis.TargetExcerpt
		relation.SuggestedResolution = analysis.SuggestedResolution
		return relation, nil

	default:
		return nil, nil
	}
}

// Get retrieves a relation by ID
func (s *relationService) Get(ctx context.Context, id string) (*domain.Relation, error) {
	return s.relationStore.Get(ctx, id)
}

// List lists relations matching a filter
func (s *relationService) List(ctx context.Context, status domain.RelationStatus, relType domain.RelationType, limit, offset int) ([]*domain.Relation, error) {
	return s.relationStore.List(ctx, driven.RelationFilter{
		Status: status,
		Type:   relType,
		Limit:  limit,
		Offset: offset,
	})
}

// ListForDocument lists relations touching a document
func (s *relationService) ListForDocument(ctx context.Context, documentID string) ([]*domain.Relation, error) {
	return s.relationStore.ListForDocument(ctx, documentID)
}

// Confirm marks a pending relation as confirmed
func (s *relationService) Confirm(ctx context.Context, id, reviewer string) error {
	return s.transition(ctx, id, domain.RelationConfirmed, reviewer)
}

// Dismiss marks a pending relation as dismissed
func (s *relationService) Dismiss(ctx context.Context, id, reviewer string) error {
	return s.transition(ctx, id, domain.RelationDismissed, reviewer)
}

// Resolve marks a confirmed relation as resolved
func (s *relationService) Resolve(ctx context.Context, id, reviewer string) error {
	return s.transition(ctx, id, domain.RelationResolved, reviewer)
}

func (s *relationService) transition(ctx context.Context, id string, to domain.RelationStatus, reviewer string) error {
	relation, err := s.relationStore.Get(ctx, id)
	if err != nil {
		return err
	}
	if !relation.Status.CanTransition(to) {
		return fmt.Errorf("%w: relation %s is %s, cannot move to %s",
			domain.ErrInvalidTransition, id, relation.Status, to)
	}
	if err := s.relationStore.UpdateStatus(ctx, id, to, reviewer); err != nil {
		return fmt.Errorf("failed to update relation status: %w", err)
	}

	s.logger.Info("relation reviewed",
		"relation_id", id,
		"from", relation.Status,
		"to", to,
		"reviewer", reviewer)

	return nil
}

// nearIdenticalLength reports whether the shorter of the two texts is at
// least duplicateLengthRatio of the longer one
func nearIdenticalLength(a, b string) bool {
	shorter, longer := len(a), len(b)
	if shorter > longer {
		shorter, longer = longer, shorter
	}
	if longer == 0 {
		return true
	}
	return float64(shorter) >= duplicateLengthRatio*float64(longer)
}

// articleRangesOverlap reports whether the article ranges of two
// consolidated documents intersect. A document without an assembled
// structure has no range; detection tolerates incomplete metadata and
// treats it as overlapping.
func articleRangesOverlap(a, b *domain.Document) bool {
	if a.Structure == nil || b.Structure == nil {
		return true
	}
	aLow, aHigh, ok := a.Structure.ArticleRange()
	if !ok {
		return true
	}
	bLow, bHigh, ok := b.Structure.ArticleRange()
	if !ok {
		return true
	}
	return aLow <= bHigh && bLow <= aHigh
}
