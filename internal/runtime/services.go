package runtime

import (
	"context"
	"sync"

	"github.com/qadhya-labs/qanun-core/internal/core/domain"
	"github.com/qadhya-labs/qanun-core/internal/core/ports/driven"
)

// Services holds references to the LLM and indexing collaborators.
// Collaborators can be absent (nil); extraction then runs regex-only and
// relation detection is disabled. Thread-safe for concurrent access.
type Services struct {
	mu sync.RWMutex

	// Config tracks capability flags
	config *domain.RuntimeConfig

	// Collaborators (can be nil)
	extractor driven.MetadataExtractor
	comparer  driven.SimilarityComparer
}

// NewServices creates a new Services registry
func NewServices(config *domain.RuntimeConfig) *Services {
	return &Services{
		config: config,
	}
}

// Config returns the runtime configuration
func (s *Services) Config() *domain.RuntimeConfig {
	return s.config
}

// Extractor returns the current LLM extraction collaborator (may be nil)
func (s *Services) Extractor() driven.MetadataExtractor {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.extractor
}

// Comparer returns the current similarity comparer (may be nil)
func (s *Services) Comparer() driven.SimilarityComparer {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.comparer
}

// SetExtractor updates the extraction collaborator.
// Closes the old collaborator if present. Updates config flags.
func (s *Services) SetExtractor(svc driven.MetadataExtractor) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.extractor != nil {
		_ = s.extractor.Close()
	}

	s.extractor = svc
	s.config.SetExtractorAvailable(svc != nil)
}

// SetComparer updates the similarity comparer. Updates config flags.
func (s *Services) SetComparer(svc driven.SimilarityComparer) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.comparer = svc
	s.config.SetComparerAvailable(svc != nil)
}

// Close shuts down all collaborators
func (s *Services) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.extractor != nil {
		_ = s.extractor.Close()
		s.extractor = nil
	}
	s.comparer = nil

	s.config.SetExtractorAvailable(false)
	s.config.SetComparerAvailable(false)

	return nil
}

// ValidateAndSetExtractor validates connectivity before setting the
// extraction collaborator
func (s *Services) ValidateAndSetExtractor(ctx context.Context, svc driven.MetadataExtractor) error {
	if svc == nil {
		s.SetExtractor(nil)
		return nil
	}

	if err := svc.Ping(ctx); err != nil {
		_ = svc.Close()
		return err
	}

	s.SetExtractor(svc)
	return nil
}

// ValidateAndSetComparer validates connectivity before setting the
// similarity comparer
func (s *Services) ValidateAndSetComparer(ctx context.Context, svc driven.SimilarityComparer) error {
	if svc == nil {
		s.SetComparer(nil)
		return nil
	}

	if err := svc.Ping(ctx); err != nil {
		return err
	}

	s.SetComparer(svc)
	return nil
}
