package worker

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
	"github.com/qadhya-labs/qanun-core/internal/core/services"
)

// Worker processes tasks from the task queue, dispatching each task type
// to the owning service.
type Worker struct {
	taskQueue      driven.TaskQueue
	consolidation  driving.ConsolidationService
	classification driving.ClassificationService
	extraction     driving.ExtractionService
	pipeline       driving.PipelineOrchestrator
	relations      driving.RelationService
	scheduler      *services.Scheduler
	logger         *slog.Logger

	// Configuration
	concurrency    int
	dequeueTimeout int // seconds

	// Internal state
	mu      sync.RWMutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// WorkerConfig holds configuration for the worker.
type WorkerConfig struct {
	TaskQueue      driven.TaskQueue
	Consolidation  driving.ConsolidationService
	Classification driving.ClassificationService
	Extraction     driving.ExtractionService
	Pipeline       driving.PipelineOrchestrator
	Relations      driving.RelationService
	Scheduler      *services.Scheduler
	Logger         *slog.Logger
	Concurrency    int // Number of concurrent task processors
	DequeueTimeout int // Seconds to wait for a task before checking again
}

// NewWorker creates a new task worker.
func NewWorker(cfg WorkerConfig) *Worker {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = 1
	}

	dequeueTimeout := cfg.DequeueTimeout
	if dequeueTimeout <= 0 {
		dequeueTimeout = 5
	}

	return &Worker{
		taskQueue:      cfg.TaskQueue,
		consolidation:  cfg.Consolidation,
		classification: cfg.Classification,
		extraction:     cfg.Extraction,
		pipeline:       cfg.Pipeline,
		relations:      cfg.Relations,
		scheduler:      cfg.Scheduler,
		logger:         logger,
		concurrency:    concurrency,
		dequeueTimeout: dequeueTimeout,
	}
}

// Start begins the worker loop.
// It runs until Stop is called or context is cancelled.
func (w *Worker) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.stopCh = make(chan struct{})
	w.doneCh = make(chan struct{})
	w.mu.Unlock()

	w.logger.Info("worker starting",
		"concurrency", w.concurrency,
		"dequeue_timeout", w.dequeueTimeout,
	)

	// Start the scheduler if provided
	if w.scheduler != nil {
		if err := w.scheduler.Start(ctx); err != nil {
			w.logger.Error("failed to start scheduler", "error", err)
		}
	}

	// Start worker goroutines
	var wg sync.WaitGroup
	for i := 0; i < w.concurrency; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			w.processLoop(ctx, workerID)
		}(i)
	}

	// Wait for all workers to finish
	go func() {
		wg.Wait()
		close(w.doneCh)
	}()

	return nil
}

// Stop gracefully stops the worker.
func (w *Worker) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	close(w.stopCh)
	w.mu.Unlock()

	// Stop the scheduler
	if w.scheduler != nil {
		w.scheduler.Stop()
	}

	// Wait for workers to finish
	<-w.doneCh

	w.mu.Lock()
	w.running = false
	w.mu.Unlock()

	w.logger.Info("worker stopped")
}

// Wait blocks until the worker stops.
func (w *Worker) Wait() {
	<-w.doneCh
}

// processLoop is the main processing loop for a worker goroutine.
func (w *Worker) processLoop(ctx context.Context, workerID int) {
	logger := w.logger.With("worker_id", workerID)
	logger.Info("worker goroutine started")

	for {
		select {
		case <-ctx.Done():
			logger.Info("worker context cancelled")
			return
		case <-w.stopCh:
			logger.Info("worker stop signal received")
			return
		default:
		}

		// Dequeue a task with timeout
		task, err := w.taskQueue.DequeueWithTimeout(ctx, w.dequeueTimeout)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				continue
			}
			logger.Error("failed to dequeue task", "error", err)
			time.Sleep(time.Second) // Back off on error
			continue
		}

		if task == nil {
			// No task available, continue
			continue
		}

		// Process the task
		w.processTask(ctx, task, logger)
	}
}

// processTask processes a single task.
func (w *Worker) processTask(ctx context.Context, task *domain.Task, logger *slog.Logger) {
	logger = logger.With("task_id", task.ID, "task_type", task.Type)
	logger.Info("processing task")

	startTime := time.Now()
	var err error

	switch task.Type {
	case domain.TaskTypeConsolidate:
		err = w.handleConsolidate(ctx, task)
	case domain.TaskTypeClassifyBatch:
		err = w.handleClassifyBatch(ctx, task, logger)
	case domain.TaskTypeExtractBatch:
		err = w.handleExtractBatch(ctx, task, logger)
	case domain.TaskTypeDetectRelations:
		err = w.handleDetectRelations(ctx, task, logger)
	case domain.TaskTypeAdvanceSweep:
		err = w.handleAdvanceSweep(ctx, task, logger)
	case domain.TaskTypeSuggestRules:
		err = w.handleSuggestRules(ctx, task, logger)
	default:
		err = fmt.Errorf("unknown task type: %s", task.Type)
	}

	duration := time.Since(startTime)

	if err != nil {
		logger.Error("task failed",
			"duration", duration,
			"error", err,
		)

		// Nack the task so it can be retried
		if nackErr := w.taskQueue.Nack(ctx, task.ID, err.Error()); nackErr != nil {
			logger.Error("failed to nack task", "nack_error", nackErr)
		}
		return
	}

	logger.Info("task completed", "duration", duration)

	// Ack the task
	if ackErr := w.taskQueue.Ack(ctx, task.ID); ackErr != nil {
		logger.Error("failed to ack task", "ack_error", ackErr)
	}
}

// handleConsolidate rebuilds one canonical document from its linked pages.
func (w *Worker) handleConsolidate(ctx context.Context, task *domain.Task) error {
	documentID := task.DocumentID()
	if documentID == "" {
		return fmt.Errorf("document_id not found in task payload")
	}

	_, err := w.consolidation.RebuildStructure(ctx, documentID)
	return err
}

// handleClassifyBatch classifies a batch of pages. Per-page failures are
// reported but do not fail the task.
func (w *Worker) handleClassifyBatch(ctx context.Context, task *domain.Task, logger *slog.Logger) error {
	pageIDs := task.PageIDs()
	if len(pageIDs) == 0 {
		return fmt.Errorf("page_ids not found in task payload")
	}

	report, err := w.classification.ClassifyBatch(ctx, pageIDs)
	if err != nil {
		return err
	}

	if len(report.Errors) > 0 {
		logger.Warn("some pages failed classification",
			"classified", report.Classified,
			"unmatched", report.Unmatched,
			"failed", len(report.Errors),
		)
	}

	return nil
}

// handleExtractBatch extracts metadata for a batch of pages.
func (w *Worker) handleExtractBatch(ctx context.Context, task *domain.Task, logger *slog.Logger) error {
	pageIDs := task.PageIDs()
	if len(pageIDs) == 0 {
		return fmt.Errorf("page_ids not found in task payload")
	}

	opts := driving.ExtractOptions{
		ForceReextract: task.Flag("force_reextract"),
		UseRegexOnly:   task.Flag("use_regex_only"),
		UseLLMOnly:     task.Flag("use_llm_only"),
	}
	report, err := w.extraction.ExtractBatch(ctx, pageIDs, opts)
	if err != nil {
		return err
	}

	if len(report.Errors) > 0 {
		logger.Warn("some pages failed extraction",
			"extracted", report.Extracted,
			"empty", report.Empty,
			"failed", len(report.Errors),
		)
	}

	return nil
}

// handleDetectRelations runs relation detection for one document.
func (w *Worker) handleDetectRelations(ctx context.Context, task *domain.Task, logger *slog.Logger) error {
	documentID := task.DocumentID()
	if documentID == "" {
		return fmt.Errorf("document_id not found in task payload")
	}

	report, err := w.relations.DetectForDocument(ctx, documentID)
	if err != nil {
		return err
	}

	logger.Info("relation detection finished",
		"compared", report.Compared,
		"duplicates", report.Duplicates,
		"near_duplicates", report.NearDuplicates,
		"contradictions", report.Contradictions,
	)

	return nil
}

// handleAdvanceSweep auto-advances every eligible document.
func (w *Worker) handleAdvanceSweep(ctx context.Context, task *domain.Task, logger *slog.Logger) error {
	report, err := w.pipeline.Sweep(ctx, task.DryRun())
	if err != nil {
		return err
	}

	logger.Info("advance sweep finished",
		"scanned", report.Scanned,
		"advanced", report.Advanced,
		"blocked", report.Blocked,
		"dry_run", report.DryRun,
	)

	return nil
}

// handleSuggestRules derives rule suggestions from accumulated corrections.
// An empty web_source_id considers corrections from every source.
func (w *Worker) handleSuggestRules(ctx context.Context, task *domain.Task, logger *slog.Logger) error {
	webSourceID := ""
	if task.Payload != nil {
		webSourceID = task.Payload["web_source_id"]
	}

	suggested, err := w.classification.SuggestRules(ctx, webSourceID)
	if err != nil {
		return err
	}

	logger.Info("rule suggestion finished",
		"web_source_id", webSourceID,
		"suggested", len(suggested),
	)

	return nil
}

// Health returns health status of the worker.
type Health struct {
	Running     bool   `json:"running"`
	QueueHealth bool   `json:"queue_health"`
	Error       string `json:"error,omitempty"`
}

// Health returns the health status of the worker.
func (w *Worker) Health(ctx context.Context) Health {
	w.mu.RLock()
	running := w.running
	w.mu.RUnlock()

	health := Health{
		Running: running,
	}

	// Check queue health
	if err := w.taskQueue.Ping(ctx); err != nil {
		health.QueueHealth = false
		health.Error = err.Error()
	} else {
		health.QueueHealth = true
	}

	return health
}
