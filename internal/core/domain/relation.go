package domain

import "time"

// RelationType classifies how two canonical documents relate
type RelationType string

const (
	RelationDuplicate     RelationType = "duplicate"
	RelationNearDuplicate RelationType = "near_duplicate"
	RelationContradiction RelationType = "contradiction"
)

// RelationStatus is the review state of a detected relation
type RelationStatus string

const (
	RelationPending   RelationStatus = "pending"
	RelationConfirmed RelationStatus = "confirmed"
	RelationDismissed RelationStatus = "dismissed"
	RelationResolved  RelationStatus = "resolved"
)

// relationTransitions is the allowed status graph:
// pending moves to confirmed or dismissed; only confirmed relations
// can be resolved. Dismissed and resolved are terminal.
var relationTransitions = map[RelationStatus][]RelationStatus{
	RelationPending:   {RelationConfirmed, RelationDismissed},
	RelationConfirmed: {RelationResolved},
}

// CanTransition reports whether a relation may move from its current
// status to the target status.
func (s RelationStatus) CanTransition(to RelationStatus) bool {
	for _, next := range relationTransitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

// ContradictionSeverity grades a contradiction as assessed by the
// analysis collaborator. Stored verbatim.
type ContradictionSeverity string

const (
	SeverityLow      ContradictionSeverity = "low"
	SeverityMedium   ContradictionSeverity = "medium"
	SeverityHigh     ContradictionSeverity = "high"
	SeverityCritical ContradictionSeverity = "critical"
)

// Relation links two canonical documents. Source and target are stored in
// canonical order (smaller ID first) so re-detection upserts onto the same
// row regardless of comparison direction.
type Relation struct {
	ID                  string                `json:"id"`
	SourceDocumentID    string                `json:"source_document_id"`
	TargetDocumentID    string                `json:"target_document_id"`
	Type                RelationType          `json:"relation_type"`
	Similarity          float64               `json:"similarity"`
	Status              RelationStatus        `json:"status"`
	Severity            ContradictionSeverity `json:"severity,omitempty"`
	SourceExcerpt       string                `json:"source_excerpt,omitempty"`
	TargetExcerpt       string                `json:"target_excerpt,omitempty"`
	SuggestedResolution string                `json:"suggested_resolution,omitempty"`
	ReviewedBy          string                `json:"reviewed_by,omitempty"`
	ReviewedAt          *time.Time            `json:"reviewed_at,omitempty"`
	CreatedAt           time.Time             `json:"created_at"`
	UpdatedAt           time.Time             `json:"updated_at"`
}

// Canonicalize orders the document pair so the lexicographically smaller
// ID is the source. Idempotent.
func (r *Relation) Canonicalize() {
	if r.TargetDocumentID < r.SourceDocumentID {
		r.SourceDocumentID, r.TargetDocumentID = r.TargetDocumentID, r.SourceDocumentID
		r.SourceExcerpt, r.TargetExcerpt = r.TargetExcerpt, r.SourceExcerpt
	}
}

// ContradictionAnalysis is the collaborator's verdict on a candidate
// contradiction pair
type ContradictionAnalysis struct {
	IsContradiction     bool                  `json:"is_contradiction"`
	Severity            ContradictionSeverity `json:"severity,omitempty"`
	SourceExcerpt       string                `json:"source_excerpt,omitempty"`
	TargetExcerpt       string                `json:"target_excerpt,omitempty"`
	SuggestedResolution string                `json:"suggested_resolution,omitempty"`
}
