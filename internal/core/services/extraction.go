package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/qadhya-labs/qanun-core/internal/core/domain"
	"github.com/qadhya-labs/qanun-core/internal/core/ports/driven"
	"github.com/qadhya-labs/qanun-core/internal/core/ports/driving"
	"github.com/qadhya-labs/qanun-core/internal/textsignals"
)

// Ensure extractionService implements ExtractionService
var _ driving.ExtractionService = (*extractionService)(nil)

// requiredFields lists the fields the regex pass must cover per category
// before the LLM collaborator is skipped
var requiredFields = map[string][]string{
	"jurisprudence": {domain.FieldDecisionNumber, domain.FieldDecisionDate, domain.FieldTribunal},
	"legislation":   {domain.FieldLoiNumber},
	"jort":          {domain.FieldJortNumber},
	"doctrine":      {domain.FieldAuthor},
}

// defaultExtractWorkers bounds the parallelism of batch extraction
const defaultExtractWorkers = 4

// extractionService runs regex-first metadata extraction with an optional
// LLM collaborator filling the gaps
type extractionService struct {
	metadataStore driven.MetadataStore
	pageStore     driven.PageStore
	extractor     driven.MetadataExtractor // nil disables the LLM pass
	workers       int
	logger        *slog.Logger
}

// ExtractionServiceConfig holds dependencies for the extraction service
type ExtractionServiceConfig struct {
	MetadataStore driven.MetadataStore
	PageStore     driven.PageStore
	Extractor     driven.MetadataExtractor
	Workers       int
	Logger        *slog.Logger
}

// NewExtractionService creates a new ExtractionService
func NewExtractionService(cfg ExtractionServiceConfig) driving.ExtractionService {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	workers := cfg.Workers
	if workers <= 0 {
		workers = defaultExtractWorkers
	}

	return &extractionService{
		metadataStore: cfg.MetadataStore,
		pageStore:     cfg.PageStore,
		extractor:     cfg.Extractor,
		workers:       workers,
		logger:        logger,
	}
}

// ExtractPage extracts metadata for a page using the strategy in opts
// and persists the result as a new metadata version
func (s *extractionService) ExtractPage(ctx context.Context, pageID string, opts driving.ExtractOptions) (*domain.Metadata, error) {
	meta, _, _, err := s.extractPage(ctx, pageID, opts)
	return meta, err
}

// extractPage additionally reports whether the LLM collaborator
// contributed and whether an existing version was reused
func (s *extractionService) extractPage(ctx context.Context, pageID string, opts driving.ExtractOptions) (*domain.Metadata, bool, bool, error) {
	if opts.UseRegexOnly && opts.UseLLMOnly {
		return nil, false, false, fmt.Errorf("regex-only and llm-only are mutually exclusive: %w", domain.ErrInvalidInput)
	}

	if !opts.ForceReextract {
		if existing, err := s.metadataStore.GetLatest(ctx, pageID); err == nil {
			s.logger.Debug("reusing existing metadata version",
				"page_id", pageID, "version", existing.Version)
			return existing, false, true, nil
		}
	}

	page, err := s.pageStore.Get(ctx, pageID)
	if err != nil {
		return nil, false, false, err
	}

	var result *domain.ExtractionResult
	llmUsed := false

	switch {
	case opts.UseLLMOnly:
		if s.extractor == nil {
			return nil, false, false, domain.ErrCollaboratorUnavailable
		}
		result, err = s.extractor.Extract(ctx, page.Category, page.Title, page.ExtractedText)
		if err != nil {
			return nil, false, false, fmt.Errorf("llm extraction failed: %w", err)
		}
		if result == nil {
			result = domain.NewExtractionResult(domain.ExtractionLLM)
		}
		llmUsed = true

	default:
		result = textsignals.Extract(page.Category, page.Title, page.ExtractedText)

		if !opts.UseRegexOnly && s.extractor != nil && !coversRequired(page.Category, result) {
			llmResult, err := s.extractor.Extract(ctx, page.Category, page.Title, page.ExtractedText)
			if err != nil {
				// The collaborator never fabricates fields on failure; the
				// regex result stands.
				s.logger.Warn("llm extraction failed, keeping regex result",
					"page_id", pageID, "error", err)
			} else if llmResult != nil && len(llmResult.Fields) > 0 {
				result = result.Merge(llmResult)
				llmUsed = true
			}
		}
	}

	meta := &domain.Metadata{
		ID:         domain.GenerateID(),
		PageID:     pageID,
		Category:   page.Category,
		Fields:     result.Fields,
		Confidence: result.Confidence,
		Language:   result.Language,
		Method:     result.Method,
	}
	stored, err := s.metadataStore.SaveVersion(ctx, meta)
	if err != nil {
		return nil, llmUsed, false, fmt.Errorf("failed to save metadata version: %w", err)
	}

	s.logger.Debug("metadata extracted",
		"page_id", pageID,
		"version", stored.Version,
		"fields", len(stored.Fields),
		"method", stored.Method)

	return stored, llmUsed, false, nil
}

// ExtractBatch extracts metadata for a batch of pages with bounded
// parallelism
func (s *extractionService) ExtractBatch(ctx context.Context, pageIDs []string, opts driving.ExtractOptions) (*driving.ExtractReport, error) {
	report := &driving.ExtractReport{}
	var mu sync.Mutex

	sem := make(chan struct{}, s.workers)
	var wg sync.WaitGroup

	for _, pageID := range pageIDs {
		select {
		case <-ctx.Done():
			wg.Wait()
			return report, ctx.Err()
		case sem <- struct{}{}:
		}

		wg.Add(1)
		go func(pageID string) {
			defer wg.Done()
			defer func() { <-sem }()

			meta, llmUsed, reused, err := s.extractPage(ctx, pageID, opts)

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err != nil:
				report.Errors = append(report.Errors, domain.ItemError{ID: pageID, Error: err.Error()})
			case reused:
				report.Skipped++
			case len(meta.Fields) == 0:
				report.Empty++
			default:
				report.Extracted++
			}
			if llmUsed {
				report.LLMUsed++
			}
		}(pageID)
	}

	wg.Wait()

	s.logger.Info("extraction batch done",
		"pages", len(pageIDs),
		"extracted", report.Extracted,
		"empty", report.Empty,
		"skipped", report.Skipped,
		"llm_used", report.LLMUsed,
		"errors", len(report.Errors))

	return report, nil
}

// GetMetadata retrieves the latest metadata version for a page
func (s *extractionService) GetMetadata(ctx context.Context, pageID string) (*domain.Metadata, error) {
	return s.metadataStore.GetLatest(ctx, pageID)
}

// ListVersions lists all metadata versions for a page, newest first
func (s *extractionService) ListVersions(ctx context.Context, pageID string) ([]*domain.Metadata, error) {
	return s.metadataStore.ListVersions(ctx, pageID)
}

// coversRequired reports whether the regex pass produced every required
// field for the category. Categories without a requirement list never
// trigger the LLM pass on their own; an empty regex result always does.
func coversRequired(category string, result *domain.ExtractionResult) bool {
	if len(result.Fields) == 0 {
		return false
	}
	for _, field := range requiredFields[category] {
		if _, ok := result.Fields[field]; !ok {
			return false
		}
	}
	return true
}
