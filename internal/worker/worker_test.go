package worker

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/qadhya-labs/qanun-core/internal/core/domain"
	"github.com/qadhya-labs/qanun-core/internal/core/ports/driven"
	"github.com/qadhya-labs/qanun-core/internal/core/ports/driving"
)

// mockTaskQueue implements driven.TaskQueue for testing
type mockTaskQueue struct {
	mu           sync.Mutex
	tasks        []*domain.Task
	dequeueDelay time.Duration
	enqueueFn    func(*domain.Task) error
	dequeueFn    func() (*domain.Task, error)
	ackFn        func(string) error
	nackFn       func(string, string) error
	pingFn       func() error
}

func newMockTaskQueue() *mockTaskQueue {
	return &mockTaskQueue{
		tasks: make([]*domain.Task, 0),
	}
}

func (m *mockTaskQueue) Enqueue(ctx context.Context, task *domain.Task) error {
	if m.enqueueFn != nil {
		return m.enqueueFn(task)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tasks = append(m.tasks, task)
	return nil
}

func (m *mockTaskQueue) EnqueueBatch(ctx context.Context, tasks []*domain.Task) error {
	for _, t := range tasks {
		if err := m.Enqueue(ctx, t); err != nil {
			return err
		}
	}
	return nil
}

func (m *mockTaskQueue) Dequeue(ctx context.Context) (*domain.Task, error) {
	if m.dequeueFn != nil {
		return m.dequeueFn()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.tasks) == 0 {
		return nil, nil
	}
	task := m.tasks[0]
	m.tasks = m.tasks[1:]
	return task, nil
}

func (m *mockTaskQueue) DequeueWithTimeout(ctx context.Context, timeout int) (*domain.Task, error) {
	if m.dequeueDelay > 0 {
		select {
		case <-time.After(m.dequeueDelay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return m.Dequeue(ctx)
}

func (m *mockTaskQueue) Ack(ctx context.Context, taskID string) error {
	if m.ackFn != nil {
		return m.ackFn(taskID)
	}
	return nil
}

func (m *mockTaskQueue) Nack(ctx context.Context, taskID string, reason string) error {
	if m.nackFn != nil {
		return m.nackFn(taskID, reason)
	}
	return nil
}

func (m *mockTaskQueue) GetTask(ctx context.Context, taskID string) (*domain.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.tasks {
		if t.ID == taskID {
			return t, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *mockTaskQueue) ListTasks(ctx context.Context, filter driven.TaskFilter) ([]*domain.Task, error) {
	return m.tasks, nil
}

func (m *mockTaskQueue) CancelTask(ctx context.Context, taskID string) error {
	return nil
}

func (m *mockTaskQueue) PurgeTasks(ctx context.Context, olderThan int) (int, error) {
	return 0, nil
}

func (m *mockTaskQueue) Stats(ctx context.Context) (*driven.QueueStats, error) {
	return &driven.QueueStats{
		PendingCount: int64(len(m.tasks)),
	}, nil
}

func (m *mockTaskQueue) Ping(ctx context.Context) error {
	if m.pingFn != nil {
		return m.pingFn()
	}
	return nil
}

func (m *mockTaskQueue) Close() error {
	return nil
}

// stubConsolidation implements driving.ConsolidationService; only
// RebuildStructure is exercised by the worker
type stubConsolidation struct {
	rebuildFn func(string) (*domain.DocumentStructure, error)
}

func (s *stubConsolidation) FindOrCreateDocument(ctx context.Context, page *domain.Page) (*domain.Document, error) {
	return nil, nil
}

func (s *stubConsolidation) LinkPage(ctx context.Context, page *domain.Page) (*domain.PageLink, error) {
	return nil, nil
}

func (s *stubConsolidation) ConsolidateBatch(ctx context.Context, pageIDs []string) (*driving.ConsolidationResult, error) {
	return nil, nil
}

func (s *stubConsolidation) RebuildStructure(ctx context.Context, documentID string) (*domain.DocumentStructure, error) {
	if s.rebuildFn != nil {
		return s.rebuildFn(documentID)
	}
	return &domain.DocumentStructure{}, nil
}

func (s *stubConsolidation) GetDocument(ctx context.Context, documentID string) (*domain.DocumentWithPages, error) {
	return nil, nil
}

func (s *stubConsolidation) ListDocuments(ctx context.Context, stage domain.PipelineStage, limit, offset int) ([]*domain.Document, error) {
	return nil, nil
}

func (s *stubConsolidation) Approve(ctx context.Context, documentID, reviewer string) error {
	return nil
}

func (s *stubConsolidation) Revoke(ctx context.Context, documentID, reviewer string) error {
	return nil
}

// stubClassification implements driving.ClassificationService
type stubClassification struct {
	classifyBatchFn func([]string) (*driving.ClassifyReport, error)
	suggestFn       func(string) ([]*domain.ClassificationRule, error)
}

func (s *stubClassification) ClassifyPage(ctx context.Context, pageID string) (*domain.Classification, error) {
	return nil, nil
}

func (s *stubClassification) ClassifyBatch(ctx context.Context, pageIDs []string) (*driving.ClassifyReport, error) {
	if s.classifyBatchFn != nil {
		return s.classifyBatchFn(pageIDs)
	}
	return &driving.ClassifyReport{}, nil
}

func (s *stubClassification) SaveRule(ctx context.Context, rule *domain.ClassificationRule) error {
	return nil
}

func (s *stubClassification) GetRule(ctx context.Context, id string) (*domain.ClassificationRule, error) {
	return nil, nil
}

func (s *stubClassification) ListRules(ctx context.Context, webSourceID string) ([]*domain.ClassificationRule, error) {
	return nil, nil
}

func (s *stubClassification) DeleteRule(ctx context.Context, id string) error {
	return nil
}

func (s *stubClassification) RecordCorrection(ctx context.Context, correction *domain.Correction) error {
	return nil
}

func (s *stubClassification) SuggestRules(ctx context.Context, webSourceID string) ([]*domain.ClassificationRule, error) {
	if s.suggestFn != nil {
		return s.suggestFn(webSourceID)
	}
	return nil, nil
}

func (s *stubClassification) ListSuggestions(ctx context.Context) ([]*domain.ClassificationRule, error) {
	return nil, nil
}

func (s *stubClassification) ActivateSuggestion(ctx context.Context, ruleID string) error {
	return nil
}

// stubExtraction implements driving.ExtractionService
type stubExtraction struct {
	extractBatchFn func([]string, driving.ExtractOptions) (*driving.ExtractReport, error)
}

func (s *stubExtraction) ExtractPage(ctx context.Context, pageID string, opts driving.ExtractOptions) (*domain.Metadata, error) {
	return nil, nil
}

func (s *stubExtraction) ExtractBatch(ctx context.Context, pageIDs []string, opts driving.ExtractOptions) (*driving.ExtractReport, error) {
	if s.extractBatchFn != nil {
		return s.extractBatchFn(pageIDs, opts)
	}
	return &driving.ExtractReport{}, nil
}

func (s *stubExtraction) GetMetadata(ctx context.Context, pageID string) (*domain.Metadata, error) {
	return nil, nil
}

func (s *stubExtraction) ListVersions(ctx context.Context, pageID string) ([]*domain.Metadata, error) {
	return nil, nil
}

// stubPipeline implements driving.PipelineOrchestrator
type stubPipeline struct {
	sweepFn func(bool) (*driving.SweepReport, error)
}

func (s *stubPipeline) CheckGate(ctx context.Context, documentID string) (*domain.GateResult, error) {
	return nil, nil
}

func (s *stubPipeline) Advance(ctx context.Context, documentID string, actor string) (*domain.AdvanceResult, error) {
	return nil, nil
}

func (s *stubPipeline) AutoAdvance(ctx context.Context, documentID string) (*domain.AdvanceResult, error) {
	return nil, nil
}

func (s *stubPipeline) Override(ctx context.Context, documentID string, stage domain.PipelineStage, actor, reason string) error {
	return nil
}

func (s *stubPipeline) Reject(ctx context.Context, documentID string, actor, reason string) error {
	return nil
}

func (s *stubPipeline) BulkAdvance(ctx context.Context, documentIDs []string, actor string) (*domain.BatchResult, error) {
	return nil, nil
}

func (s *stubPipeline) BulkReject(ctx context.Context, documentIDs []string, actor, reason string) (*domain.BatchResult, error) {
	return nil, nil
}

func (s *stubPipeline) Sweep(ctx context.Context, dryRun bool) (*driving.SweepReport, error) {
	if s.sweepFn != nil {
		return s.sweepFn(dryRun)
	}
	return &driving.SweepReport{DryRun: dryRun}, nil
}

func (s *stubPipeline) History(ctx context.Context, documentID string) ([]*domain.StageTransition, error) {
	return nil, nil
}

// stubRelations implements driving.RelationService
type stubRelations struct {
	detectFn func(string) (*driving.DetectReport, error)
}

func (s *stubRelations) DetectForDocument(ctx context.Context, documentID string) (*driving.DetectReport, error) {
	if s.detectFn != nil {
		return s.detectFn(documentID)
	}
	return &driving.DetectReport{}, nil
}

func (s *stubRelations) DetectBatch(ctx context.Context, documentIDs []string) (*driving.DetectReport, error) {
	return nil, nil
}

func (s *stubRelations) Get(ctx context.Context, id string) (*domain.Relation, error) {
	return nil, nil
}

func (s *stubRelations) List(ctx context.Context, status domain.RelationStatus, relType domain.RelationType, limit, offset int) ([]*domain.Relation, error) {
	return nil, nil
}

func (s *stubRelations) ListForDocument(ctx context.Context, documentID string) ([]*domain.Relation, error) {
	return nil, nil
}

func (s *stubRelations) Confirm(ctx context.Context, id, reviewer string) error {
	return nil
}

func (s *stubRelations) Dismiss(ctx context.Context, id, reviewer string) error {
	return nil
}

func (s *stubRelations) Resolve(ctx context.Context, id, reviewer string) error {
	return nil
}

func TestNewWorker(t *testing.T) {
	queue := newMockTaskQueue()
	logger := slog.Default()

	w := NewWorker(WorkerConfig{
		TaskQueue:      queue,
		Logger:         logger,
		Concurrency:    2,
		DequeueTimeout: 5,
	})

	if w == nil {
		t.Fatal("expected non-nil worker")
	}
	if w.concurrency != 2 {
		t.Errorf("expected concurrency 2, got %d", w.concurrency)
	}
	if w.dequeueTimeout != 5 {
		t.Errorf("expected dequeue timeout 5, got %d", w.dequeueTimeout)
	}
}

func TestNewWorker_Defaults(t *testing.T) {
	queue := newMockTaskQueue()

	w := NewWorker(WorkerConfig{
		TaskQueue:      queue,
		Concurrency:    0, // Should default to 1
		DequeueTimeout: 0, // Should default to 5
	})

	if w.concurrency != 1 {
		t.Errorf("expected default concurrency 1, got %d", w.concurrency)
	}
	if w.dequeueTimeout != 5 {
		t.Errorf("expected default dequeue timeout 5, got %d", w.dequeueTimeout)
	}
	if w.logger == nil {
		t.Error("expected default logger")
	}
}

func TestWorker_StartStop(t *testing.T) {
	queue := newMockTaskQueue()
	// Add delay so workers don't spin too fast
	queue.dequeueDelay = 100 * time.Millisecond

	w := NewWorker(WorkerConfig{
		TaskQueue:      queue,
		Concurrency:    1,
		DequeueTimeout: 1,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	err := w.Start(ctx)
	if err != nil {
		t.Fatalf("failed to start worker: %v", err)
	}

	// Verify worker is running
	health := w.Health(ctx)
	if !health.Running {
		t.Error("expected worker to be running")
	}

	// Start again should be no-op
	err = w.Start(ctx)
	if err != nil {
		t.Errorf("second start should not error: %v", err)
	}

	// Stop the worker
	w.Stop()

	// Verify worker is stopped
	health = w.Health(ctx)
	if health.Running {
		t.Error("expected worker to be stopped")
	}

	// Stop again should be no-op
	w.Stop() // Should not panic
}

func TestWorker_Health(t *testing.T) {
	queue := newMockTaskQueue()

	w := NewWorker(WorkerConfig{
		TaskQueue:   queue,
		Concurrency: 1,
	})

	ctx := context.Background()

	// Not running initially
	health := w.Health(ctx)
	if health.Running {
		t.Error("expected not running")
	}
	if !health.QueueHealth {
		t.Error("expected queue to be healthy")
	}
}

func TestWorker_Health_QueueError(t *testing.T) {
	queue := newMockTaskQueue()
	queue.pingFn = func() error {
		return errors.New("connection failed")
	}

	w := NewWorker(WorkerConfig{
		TaskQueue:   queue,
		Concurrency: 1,
	})

	ctx := context.Background()

	health := w.Health(ctx)
	if health.QueueHealth {
		t.Error("expected queue to be unhealthy")
	}
	if health.Error != "connection failed" {
		t.Errorf("expected error message, got %q", health.Error)
	}
}

func TestWorker_ProcessTask_UnknownType(t *testing.T) {
	queue := newMockTaskQueue()

	var nacked []string
	queue.nackFn = func(taskID, reason string) error {
		nacked = append(nacked, taskID)
		return nil
	}

	// Create task with unknown type
	task := &domain.Task{
		ID:   "task-123",
		Type: domain.TaskType("unknown_type"),
	}

	w := NewWorker(WorkerConfig{
		TaskQueue:   queue,
		Concurrency: 1,
	})

	ctx := context.Background()

	// Process the task directly
	w.processTask(ctx, task, slog.Default())

	// Should be nacked due to unknown type
	if len(nacked) != 1 {
		t.Errorf("expected 1 nack for unknown type, got %d", len(nacked))
	}
}

func TestWorker_ProcessTask_Consolidate(t *testing.T) {
	queue := newMockTaskQueue()

	var acked []string
	queue.ackFn = func(taskID string) error {
		acked = append(acked, taskID)
		return nil
	}

	var rebuilt []string
	consolidation := &stubConsolidation{
		rebuildFn: func(documentID string) (*domain.DocumentStructure, error) {
			rebuilt = append(rebuilt, documentID)
			return &domain.DocumentStructure{}, nil
		},
	}

	w := NewWorker(WorkerConfig{
		TaskQueue:     queue,
		Consolidation: consolidation,
		Concurrency:   1,
	})

	task := domain.NewConsolidateTask("doc-1")
	w.processTask(context.Background(), task, slog.Default())

	if len(rebuilt) != 1 || rebuilt[0] != "doc-1" {
		t.Errorf("expected rebuild of doc-1, got %v", rebuilt)
	}
	if len(acked) != 1 {
		t.Errorf("expected 1 ack, got %d", len(acked))
	}
}

func TestWorker_ProcessTask_Consolidate_MissingDocumentID(t *testing.T) {
	queue := newMockTaskQueue()

	var nacked []string
	queue.nackFn = func(taskID, reason string) error {
		nacked = append(nacked, taskID)
		return nil
	}

	task := &domain.Task{
		ID:      "task-123",
		Type:    domain.TaskTypeConsolidate,
		Payload: nil, // No document_id
	}

	w := NewWorker(WorkerConfig{
		TaskQueue:     queue,
		Consolidation: &stubConsolidation{},
		Concurrency:   1,
	})

	w.processTask(context.Background(), task, slog.Default())

	if len(nacked) != 1 {
		t.Errorf("expected 1 nack for missing document_id, got %d", len(nacked))
	}
}

func TestWorker_ProcessTask_ClassifyBatch(t *testing.T) {
	queue := newMockTaskQueue()

	var gotPages []string
	classification := &stubClassification{
		classifyBatchFn: func(pageIDs []string) (*driving.ClassifyReport, error) {
			gotPages = pageIDs
			return &driving.ClassifyReport{Classified: len(pageIDs)}, nil
		},
	}

	w := NewWorker(WorkerConfig{
		TaskQueue:      queue,
		Classification: classification,
		Concurrency:    1,
	})

	task := domain.NewClassifyBatchTask([]string{"page-1", "page-2"})
	w.processTask(context.Background(), task, slog.Default())

	if len(gotPages) != 2 || gotPages[0] != "page-1" {
		t.Errorf("expected page batch, got %v", gotPages)
	}
}

func TestWorker_ProcessTask_ExtractBatch_ServiceError(t *testing.T) {
	queue := newMockTaskQueue()

	var nacked []string
	var reasons []string
	queue.nackFn = func(taskID, reason string) error {
		nacked = append(nacked, taskID)
		reasons = append(reasons, reason)
		return nil
	}

	extraction := &stubExtraction{
		extractBatchFn: func(pageIDs []string, opts driving.ExtractOptions) (*driving.ExtractReport, error) {
			return nil, errors.New("store unavailable")
		},
	}

	w := NewWorker(WorkerConfig{
		TaskQueue:   queue,
		Extraction:  extraction,
		Concurrency: 1,
	})

	task := domain.NewExtractBatchTask([]string{"page-1"})
	w.processTask(context.Background(), task, slog.Default())

	if len(nacked) != 1 {
		t.Fatalf("expected 1 nack, got %d", len(nacked))
	}
	if reasons[0] != "store unavailable" {
		t.Errorf("expected failure reason on nack, got %q", reasons[0])
	}
}

func TestWorker_ProcessTask_ExtractBatch_StrategyFlags(t *testing.T) {
	queue := newMockTaskQueue()

	var gotOpts driving.ExtractOptions
	extraction := &stubExtraction{
		extractBatchFn: func(pageIDs []string, opts driving.ExtractOptions) (*driving.ExtractReport, error) {
			gotOpts = opts
			return &driving.ExtractReport{Extracted: len(pageIDs)}, nil
		},
	}

	w := NewWorker(WorkerConfig{
		TaskQueue:   queue,
		Extraction:  extraction,
		Concurrency: 1,
	})

	task := domain.NewExtractBatchTask([]string{"page-1"})
	task.Payload["force_reextract"] = "true"
	task.Payload["use_regex_only"] = "true"
	w.processTask(context.Background(), task, slog.Default())

	if !gotOpts.ForceReextract || !gotOpts.UseRegexOnly || gotOpts.UseLLMOnly {
		t.Errorf("task flags not forwarded: %+v", gotOpts)
	}
}

func TestWorker_ProcessTask_DetectRelations(t *testing.T) {
	queue := newMockTaskQueue()

	var detected []string
	relations := &stubRelations{
		detectFn: func(documentID string) (*driving.DetectReport, error) {
			detected = append(detected, documentID)
			return &driving.DetectReport{Compared: 3, Duplicates: 1}, nil
		},
	}

	w := NewWorker(WorkerConfig{
		TaskQueue:   queue,
		Relations:   relations,
		Concurrency: 1,
	})

	task := domain.NewDetectRelationsTask("doc-7")
	w.processTask(context.Background(), task, slog.Default())

	if len(detected) != 1 || detected[0] != "doc-7" {
		t.Errorf("expected detection for doc-7, got %v", detected)
	}
}

func TestWorker_ProcessTask_AdvanceSweep_DryRun(t *testing.T) {
	queue := newMockTaskQueue()

	var gotDryRun bool
	pipeline := &stubPipeline{
		sweepFn: func(dryRun bool) (*driving.SweepReport, error) {
			gotDryRun = dryRun
			return &driving.SweepReport{DryRun: dryRun}, nil
		},
	}

	w := NewWorker(WorkerConfig{
		TaskQueue:   queue,
		Pipeline:    pipeline,
		Concurrency: 1,
	})

	task := domain.NewAdvanceSweepTask(true)
	w.processTask(context.Background(), task, slog.Default())

	if !gotDryRun {
		t.Error("expected dry run flag to be passed through")
	}
}

func TestWorker_ProcessTask_SuggestRules(t *testing.T) {
	queue := newMockTaskQueue()

	var gotSource string
	classification := &stubClassification{
		suggestFn: func(webSourceID string) ([]*domain.ClassificationRule, error) {
			gotSource = webSourceID
			return []*domain.ClassificationRule{{ID: "rule-1"}}, nil
		},
	}

	w := NewWorker(WorkerConfig{
		TaskQueue:      queue,
		Classification: classification,
		Concurrency:    1,
	})

	task := domain.NewTask(domain.TaskTypeSuggestRules, map[string]string{
		"web_source_id": "source-9",
	})
	w.processTask(context.Background(), task, slog.Default())

	if gotSource != "source-9" {
		t.Errorf("expected web_source_id source-9, got %q", gotSource)
	}
}

func TestWorker_ContextCancellation(t *testing.T) {
	queue := newMockTaskQueue()
	// Slow dequeue so we can cancel
	queue.dequeueDelay = 500 * time.Millisecond

	w := NewWorker(WorkerConfig{
		TaskQueue:      queue,
		Concurrency:    1,
		DequeueTimeout: 10,
	})

	ctx, cancel := context.WithCancel(context.Background())

	err := w.Start(ctx)
	if err != nil {
		t.Fatalf("failed to start worker: %v", err)
	}

	// Cancel context after short delay
	go func() {
		time.Sleep(100 * time.Millisecond)
		cancel()
	}()

	// Wait for worker to stop
	done := make(chan struct{})
	go func() {
		w.Wait()
		close(done)
	}()

	select {
	case <-done:
		// Good, worker stopped
	case <-time.After(2 * time.Second):
		t.Error("worker did not stop after context cancellation")
		w.Stop() // Force stop
	}
}

func TestWorker_EndToEnd_ProcessesQueuedTask(t *testing.T) {
	queue := newMockTaskQueue()

	processed := make(chan string, 1)
	relations := &stubRelations{
		detectFn: func(documentID string) (*driving.DetectReport, error) {
			processed <- documentID
			return &driving.DetectReport{}, nil
		},
	}

	_ = queue.Enqueue(context.Background(), domain.NewDetectRelationsTask("doc-42"))

	w := NewWorker(WorkerConfig{
		TaskQueue:      queue,
		Relations:      relations,
		Concurrency:    1,
		DequeueTimeout: 1,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := w.Start(ctx); err != nil {
		t.Fatalf("failed to start worker: %v", err)
	}
	defer w.Stop()

	select {
	case documentID := <-processed:
		if documentID != "doc-42" {
			t.Errorf("expected doc-42, got %s", documentID)
		}
	case <-time.After(2 * time.Second):
		t.Error("task was not processed")
	}
}
