package domain

import (
	"crypto/rand"
	"encoding/base64"
	"strings"
	"time"
)

// GenerateID creates a unique random ID.
func GenerateID() string {
	b := make([]byte, 16)
	_, _ = rand.Read(b)
	return base64.RawURLEncoding.EncodeToString(b)
}

// TaskType identifies the type of background task
type TaskType string

const (
	// TaskTypeClassifyBatch classifies a batch of pages
	TaskTypeClassifyBatch TaskType = "classify_batch"
	// TaskTypeExtractBatch extracts metadata for a batch of pages
	TaskTypeExtractBatch TaskType = "extract_batch"
	// TaskTypeConsolidate rebuilds one canonical document
	TaskTypeConsolidate TaskType = "consolidate"
	// TaskTypeAdvanceSweep auto-advances all eligible documents
	TaskTypeAdvanceSweep TaskType = "advance_sweep"
	// TaskTypeDetectRelations runs relation detection for one document
	TaskTypeDetectRelations TaskType = "detect_relations"
	// TaskTypeSuggestRules derives rule suggestions from corrections
	TaskTypeSuggestRules TaskType = "suggest_rules"
)

// TaskStatus represents the current state of a task
type TaskStatus string

const (
	TaskStatusPending    TaskStatus = "pending"
	TaskStatusProcessing TaskStatus = "processing"
	TaskStatusCompleted  TaskStatus = "completed"
	TaskStatusFailed     TaskStatus = "failed"
)

// Task represents a background job to be processed by workers
type Task struct {
	// ID is the unique identifier for this task
	ID string `json:"id"`

	// Type identifies what kind of task this is
	Type TaskType `json:"type"`

	// Payload contains task-specific data
	// For consolidate / detect_relations: {"document_id": "doc-123"}
	// For classify_batch / extract_batch: {"page_ids": "p1,p2,p3"}
	// For suggest_rules: {"web_source_id": "src-123"}
	// For advance_sweep: {"dry_run": "true"} (optional)
	Payload map[string]string `json:"payload"`

	// Status is the current state of the task
	Status TaskStatus `json:"status"`

	// Priority determines processing order (higher = more urgent)
	Priority int `json:"priority"`

	// Attempts is how many times this task has been attempted
	Attempts int `json:"attempts"`

	// MaxAttempts is the maximum retry count before giving up
	MaxAttempts int `json:"max_attempts"`

	// Error contains the last error message if failed
	Error string `json:"error,omitempty"`

	// CreatedAt is when the task was enqueued
	CreatedAt time.Time `json:"created_at"`

	// UpdatedAt is when the task was last modified
	UpdatedAt time.Time `json:"updated_at"`

	// StartedAt is when processing began (nil if not started)
	StartedAt *time.Time `json:"started_at,omitempty"`

	// CompletedAt is when processing finished (nil if not complete)
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	// ScheduledFor is when the task should be processed (for delayed tasks)
	ScheduledFor time.Time `json:"scheduled_for"`
}

// NewTask creates a new task with default values
func NewTask(taskType TaskType, payload map[string]string) *Task {
	now := time.Now()
	return &Task{
		ID:           GenerateID(),
		Type:         taskType,
		Payload:      payload,
		Status:       TaskStatusPending,
		Priority:     0,
		Attempts:     0,
		MaxAttempts:  3,
		CreatedAt:    now,
		UpdatedAt:    now,
		ScheduledFor: now,
	}
}

// NewConsolidateTask creates a task to rebuild one canonical document
func NewConsolidateTask(documentID string) *Task {
	return NewTask(TaskTypeConsolidate, map[string]string{
		"document_id": documentID,
	})
}

// NewClassifyBatchTask creates a task to classify a batch of pages
func NewClassifyBatchTask(pageIDs []string) *Task {
	return NewTask(TaskTypeClassifyBatch, map[string]string{
		"page_ids": strings.Join(pageIDs, ","),
	})
}

// NewExtractBatchTask creates a task to extract metadata for a batch of pages
func NewExtractBatchTask(pageIDs []string) *Task {
	return NewTask(TaskTypeExtractBatch, map[string]string{
		"page_ids": strings.Join(pageIDs, ","),
	})
}

// NewDetectRelationsTask creates a task to detect relations for a document
func NewDetectRelationsTask(documentID string) *Task {
	return NewTask(TaskTypeDetectRelations, map[string]string{
		"document_id": documentID,
	})
}

// NewAdvanceSweepTask creates a task to auto-advance all eligible documents
func NewAdvanceSweepTask(dryRun bool) *Task {
	payload := map[string]string{}
	if dryRun {
		payload["dry_run"] = "true"
	}
	return NewTask(TaskTypeAdvanceSweep, payload)
}

// DocumentID extracts the document_id from the payload
func (t *Task) DocumentID() string {
	if t.Payload == nil {
		return ""
	}
	return t.Payload["document_id"]
}

// PageIDs extracts the page_ids list from the payload
func (t *Task) PageIDs() []string {
	if t.Payload == nil || t.Payload["page_ids"] == "" {
		return nil
	}
	return strings.Split(t.Payload["page_ids"], ",")
}

// DryRun reports whether the task asks for a dry run
func (t *Task) DryRun() bool {
	return t.Payload != nil && t.Payload["dry_run"] == "true"
}

// Flag reports whether a boolean payload entry is set
func (t *Task) Flag(key string) bool {
	return t.Payload != nil && t.Payload[key] == "true"
}

// CanRetry returns true if the task can be retried
func (t *Task) CanRetry() bool {
	return t.Attempts < t.MaxAttempts
}

// IsReady returns true if the task is ready to be processed
func (t *Task) IsReady() bool {
	return t.Status == TaskStatusPending && time.Now().After(t.ScheduledFor)
}

// MarkProcessing updates the task to processing state
func (t *Task) MarkProcessing() {
	now := time.Now()
	t.Status = TaskStatusProcessing
	t.StartedAt = &now
	t.UpdatedAt = now
	t.Attempts++
}

// MarkCompleted updates the task to completed state
func (t *Task) MarkCompleted() {
	now := time.Now()
	t.Status = TaskStatusCompleted
	t.CompletedAt = &now
	t.UpdatedAt = now
	t.Error = ""
}

// MarkFailed updates the task to failed state
func (t *Task) MarkFailed(err string) {
	now := time.Now()
	t.Status = TaskStatusFailed
	t.UpdatedAt = now
	t.Error = err
}

// Retry resets the task for retry with exponential backoff
func (t *Task) Retry(err string) {
	now := time.Now()
	t.Status = TaskStatusPending
	t.UpdatedAt = now
	t.Error = err

	// Exponential backoff: 1s, 2s, 4s, 8s, etc.
	backoff := time.Duration(1<<t.Attempts) * time.Second
	if backoff > 5*time.Minute {
		backoff = 5 * time.Minute // Cap at 5 minutes
	}
	t.ScheduledFor = now.Add(backoff)
}

// TaskResult represents the outcome of processing a task
type TaskResult struct {
	TaskID      string        `json:"task_id"`
	Success     bool          `json:"success"`
	Error       string        `json:"error,omitempty"`
	Duration    time.Duration `json:"duration"`
	ItemsCount  int           `json:"items_count,omitempty"`
	ErrorsCount int           `json:"errors_count,omitempty"`
}

// ScheduledTask represents a recurring task configuration
type ScheduledTask struct {
	// ID is the unique identifier for this scheduled task
	ID string `json:"id"`

	// Name is a human-readable name for the task
	Name string `json:"name"`

	// Type is the task type to create when triggered
	Type TaskType `json:"type"`

	// Payload is copied onto tasks created from this schedule
	Payload map[string]string `json:"payload,omitempty"`

	// Interval is how often to run the task
	Interval time.Duration `json:"interval"`

	// Enabled indicates if the schedule is active
	Enabled bool `json:"enabled"`

	// LastRun is when the task was last triggered
	LastRun *time.Time `json:"last_run,omitempty"`

	// NextRun is when the task should next be triggered
	NextRun time.Time `json:"next_run"`

	// LastError contains the last error if the scheduled task failed
	LastError string `json:"last_error,omitempty"`
}

// NewScheduledTask creates a new scheduled task
func NewScheduledTask(id, name string, taskType TaskType, interval time.Duration) *ScheduledTask {
	return &ScheduledTask{
		ID:       id,
		Name:     name,
		Type:     taskType,
		Interval: interval,
		Enabled:  true,
		NextRun:  time.Now().Add(interval),
	}
}

// IsDue returns true if the scheduled task should be triggered
func (s *ScheduledTask) IsDue() bool {
	return s.Enabled && time.Now().After(s.NextRun)
}

// UpdateNextRun calculates the next run time after execution
func (s *ScheduledTask) UpdateNextRun() {
	now := time.Now()
	s.LastRun = &now
	s.NextRun = now.Add(s.Interval)
}

// DefaultSchedulerConfig returns the default scheduled tasks
func DefaultSchedulerConfig() []*ScheduledTask {
	return []*ScheduledTask{
		NewScheduledTask(
			"advance-sweep",
			"Pipeline Advance Sweep",
			TaskTypeAdvanceSweep,
			15*time.Minute,
		),
		NewScheduledTask(
			"suggest-rules",
			"Classification Rule Suggestions",
			TaskTypeSuggestRules,
			6*time.Hour,
		),
	}
}
