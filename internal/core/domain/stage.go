package domain

import "time"

// PipelineStage is the lifecycle position of a document in the ingestion
// pipeline. Stages form a strict linear order; normal advancement moves
// one step at a time.
type PipelineStage string

const (
	StageCrawled         PipelineStage = "crawled"
	StageContentReviewed PipelineStage = "content_reviewed"
	StageClassified      PipelineStage = "classified"
	StageIndexed         PipelineStage = "indexed"
	StageQualityAnalyzed PipelineStage = "quality_analyzed"
)

// StageOrder lists the pipeline stages in ascending order.
var StageOrder = []PipelineStage{
	StageCrawled,
	StageContentReviewed,
	StageClassified,
	StageIndexed,
	StageQualityAnalyzed,
}

// StageIndex returns the position of a stage in the pipeline order,
// or -1 if the stage is unknown.
func StageIndex(s PipelineStage) int {
	for i, stage := range StageOrder {
		if stage == s {
			return i
		}
	}
	return -1
}

// IsValid reports whether the stage is one of the known pipeline stages
func (s PipelineStage) IsValid() bool {
	return StageIndex(s) >= 0
}

// Next returns the following stage, or empty string at the terminal stage
func (s PipelineStage) Next() PipelineStage {
	idx := StageIndex(s)
	if idx < 0 || idx == len(StageOrder)-1 {
		return ""
	}
	return StageOrder[idx+1]
}

// IsTerminal reports whether the stage is the last pipeline stage
func (s PipelineStage) IsTerminal() bool {
	return s == StageQualityAnalyzed
}

// HistoryAction identifies what caused a stage transition
type HistoryAction string

const (
	ActionAutoAdvance   HistoryAction = "auto_advance"
	ActionAdminApprove  HistoryAction = "admin_approve"
	ActionAdminReject   HistoryAction = "admin_reject"
	ActionAdminOverride HistoryAction = "admin_override"
)

// StageTransition is one audit entry in the pipeline history of a document
type StageTransition struct {
	ID         string        `json:"id"`
	DocumentID string        `json:"document_id"`
	FromStage  PipelineStage `json:"from_stage"`
	ToStage    PipelineStage `json:"to_stage"`
	Action     HistoryAction `json:"action"`
	Actor      string        `json:"actor,omitempty"` // empty for automated transitions
	Reason     string        `json:"reason,omitempty"`
	CreatedAt  time.Time     `json:"created_at"`
}

// GateResult is the outcome of checking whether a document may advance to
// the next stage
type GateResult struct {
	Eligible bool   `json:"eligible"`
	Reason   string `json:"reason,omitempty"`
}

// AdvanceResult reports what an auto-advance pass achieved for one document
type AdvanceResult struct {
	DocumentID string          `json:"document_id"`
	Advanced   []PipelineStage `json:"advanced"`
	StoppedAt  PipelineStage   `json:"stopped_at"`
	Reason     string          `json:"reason,omitempty"`
}

// ItemError is a per-item failure inside a batch operation
type ItemError struct {
	ID    string `json:"id"`
	Error string `json:"error"`
}

// BatchResult reports the per-item outcomes of a batch operation.
// A failed item never aborts the rest of the batch.
type BatchResult struct {
	Succeeded []string    `json:"succeeded"`
	Skipped   []ItemError `json:"skipped,omitempty"`
	Failed    []ItemError `json:"failed"`
}

// AddSuccess records one succeeded item
func (r *BatchResult) AddSuccess(id string) {
	r.Succeeded = append(r.Succeeded, id)
}

// AddSkipped records one item left untouched, with the reason
func (r *BatchResult) AddSkipped(id, reason string) {
	r.Skipped = append(r.Skipped, ItemError{ID: id, Error: reason})
}

// AddFailure records one failed item
func (r *BatchResult) AddFailure(id string, err error) {
	r.Failed = append(r.Failed, ItemError{ID: id, Error: err.Error()})
}
