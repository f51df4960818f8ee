package domain

import "sync"

// RuntimeConfig tracks which collaborators are available at runtime.
// Backends are fixed at startup; collaborator flags change when a
// collaborator is attached or torn down. Thread-safe for concurrent access.
type RuntimeConfig struct {
	mu sync.RWMutex

	// Static (set at startup, read-only)
	SessionBackend string // "redis" or "postgres"
	QueueBackend   string // "redis" or "postgres"

	// Dynamic capability flags
	extractorAvailable bool
	comparerAvailable  bool
}

// NewRuntimeConfig creates a new RuntimeConfig with initial values
func NewRuntimeConfig(sessionBackend, queueBackend string) *RuntimeConfig {
	return &RuntimeConfig{
		SessionBackend: sessionBackend,
		QueueBackend:   queueBackend,
	}
}

// ExtractorAvailable returns whether the LLM extraction collaborator is available
func (c *RuntimeConfig) ExtractorAvailable() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.extractorAvailable
}

// ComparerAvailable returns whether the similarity comparer is available
func (c *RuntimeConfig) ComparerAvailable() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.comparerAvailable
}

// SetExtractorAvailable updates the extractor availability flag
func (c *RuntimeConfig) SetExtractorAvailable(available bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.extractorAvailable = available
}

// SetComparerAvailable updates the comparer availability flag
func (c *RuntimeConfig) SetComparerAvailable(available bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.comparerAvailable = available
}

// CanFillExtractionGaps returns true if the LLM collaborator can be
// consulted when regex extraction leaves required fields missing
func (c *RuntimeConfig) CanFillExtractionGaps() bool {
	return c.ExtractorAvailable()
}

// CanDetectRelations returns true if relation detection is possible
func (c *RuntimeConfig) CanDetectRelations() bool {
	return c.ComparerAvailable()
}

// EffectiveExtractionMethod returns the best extraction method the
// current collaborator set supports
func (c *RuntimeConfig) EffectiveExtractionMethod() ExtractionMethod {
	if c.ExtractorAvailable() {
		return ExtractionHybrid
	}
	return ExtractionRegex
}
