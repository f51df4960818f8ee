package domain

import (
	"sync"
	"testing"
)

func TestNewRuntimeConfig(t *testing.T) {
	config := NewRuntimeConfig("postgres", "redis")

	if config == nil {
		t.Fatal("expected non-nil config")
	}
	if config.SessionBackend != "postgres" {
		t.Errorf("expected postgres, got %s", config.SessionBackend)
	}
	if config.QueueBackend != "redis" {
		t.Errorf("expected redis, got %s", config.QueueBackend)
	}
	if config.ExtractorAvailable() {
		t.Error("expected extractor to be unavailable initially")
	}
	if config.ComparerAvailable() {
		t.Error("expected comparer to be unavailable initially")
	}
}

func TestRuntimeConfig_ExtractorAvailable(t *testing.T) {
	config := NewRuntimeConfig("redis", "redis")

	if config.ExtractorAvailable() {
		t.Error("expected extractor to be unavailable initially")
	}

	config.SetExtractorAvailable(true)
	if !config.ExtractorAvailable() {
		t.Error("expected extractor to be available after setting")
	}

	config.SetExtractorAvailable(false)
	if config.ExtractorAvailable() {
		t.Error("expected extractor to be unavailable after clearing")
	}
}

func TestRuntimeConfig_ComparerAvailable(t *testing.T) {
	config := NewRuntimeConfig("postgres", "postgres")

	if config.ComparerAvailable() {
		t.Error("expected comparer to be unavailable initially")
	}

	config.SetComparerAvailable(true)
	if !config.ComparerAvailable() {
		t.Error("expected comparer to be available after setting")
	}
	if !config.CanDetectRelations() {
		t.Error("expected relation detection to be possible with a comparer")
	}
}

func TestRuntimeConfig_EffectiveExtractionMethod(t *testing.T) {
	config := NewRuntimeConfig("postgres", "postgres")

	if got := config.EffectiveExtractionMethod(); got != ExtractionRegex {
		t.Errorf("expected regex without an extractor, got %s", got)
	}

	config.SetExtractorAvailable(true)
	if got := config.EffectiveExtractionMethod(); got != ExtractionHybrid {
		t.Errorf("expected hybrid with an extractor, got %s", got)
	}
	if !config.CanFillExtractionGaps() {
		t.Error("expected gap filling to be possible with an extractor")
	}
}

func TestRuntimeConfig_ConcurrentAccess(t *testing.T) {
	config := NewRuntimeConfig("redis", "redis")

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(2)
		go func(on bool) {
			defer wg.Done()
			config.SetExtractorAvailable(on)
		}(i%2 == 0)
		go func() {
			defer wg.Done()
			_ = config.ExtractorAvailable()
			_ = config.ComparerAvailable()
		}()
	}
	wg.Wait()
}
