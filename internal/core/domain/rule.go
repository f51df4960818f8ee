package domain

import (
	"fmt"
	"regexp"
	"time"
)

// ConditionField identifies which page attribute a rule condition inspects
type ConditionField string

const (
	FieldURL        ConditionField = "url"
	FieldTitle      ConditionField = "title"
	FieldDomain     ConditionField = "domain"
	FieldBreadcrumb ConditionField = "breadcrumb"
)

// ConditionOp is the closed set of match operators for rule conditions.
// Unknown operators are rejected when the rule is saved, not silently
// ignored at match time.
type ConditionOp string

const (
	OpContains   ConditionOp = "contains"
	OpStartsWith ConditionOp = "starts_with"
	OpEndsWith   ConditionOp = "ends_with"
	OpEquals     ConditionOp = "equals"
	OpRegex      ConditionOp = "regex"
	OpSegment    ConditionOp = "segment" // exact match of one URL path segment
)

var knownConditionFields = map[ConditionField]bool{
	FieldURL:        true,
	FieldTitle:      true,
	FieldDomain:     true,
	FieldBreadcrumb: true,
}

var knownConditionOps = map[ConditionOp]bool{
	OpContains:   true,
	OpStartsWith: true,
	OpEndsWith:   true,
	OpEquals:     true,
	OpRegex:      true,
	OpSegment:    true,
}

// RuleCondition is one predicate of a classification rule.
// Negate inverts the predicate: a matching negated condition fails the rule.
type RuleCondition struct {
	Field  ConditionField `json:"field"`
	Op     ConditionOp    `json:"op"`
	Value  string         `json:"value"`
	Negate bool           `json:"negate,omitempty"`
}

// Validate checks the condition against the closed field and operator sets.
// Regex values must compile.
func (c RuleCondition) Validate() error {
	if !knownConditionFields[c.Field] {
		return fmt.Errorf("%w: unknown field %q", ErrInvalidCondition, c.Field)
	}
	if !knownConditionOps[c.Op] {
		return fmt.Errorf("%w: unknown op %q", ErrInvalidCondition, c.Op)
	}
	if c.Value == "" {
		return fmt.Errorf("%w: empty value", ErrInvalidCondition)
	}
	if c.Op == OpRegex {
		if _, err := regexp.Compile(c.Value); err != nil {
			return fmt.Errorf("%w: bad regex %q: %v", ErrInvalidCondition, c.Value, err)
		}
	}
	if c.Op == OpSegment && c.Field != FieldURL {
		return fmt.Errorf("%w: segment op requires url field", ErrInvalidCondition)
	}
	return nil
}

// ClassificationRule assigns a category outcome to pages whose attributes
// match every condition. Rules scoped to a web source are tried before
// global rules; within a scope, higher priority wins.
type ClassificationRule struct {
	ID              string          `json:"id"`
	Name            string          `json:"name"`
	WebSourceID     string          `json:"web_source_id,omitempty"` // empty means global
	Priority        int             `json:"priority"`
	Conditions      []RuleCondition `json:"conditions"`
	Category        string          `json:"category"`
	Subcategory     string          `json:"subcategory,omitempty"`
	DocType         string          `json:"doc_type,omitempty"`
	ConfidenceBoost float64         `json:"confidence_boost"`
	Enabled         bool            `json:"enabled"`
	Suggested       bool            `json:"suggested"` // created by the learning loop, awaiting activation
	TimesMatched    int             `json:"times_matched"`
	TimesCorrect    int             `json:"times_correct"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// Validate checks the rule and each of its conditions
func (r *ClassificationRule) Validate() error {
	if r.Name == "" {
		return fmt.Errorf("%w: rule name is required", ErrInvalidInput)
	}
	if r.Category == "" {
		return fmt.Errorf("%w: rule category is required", ErrInvalidInput)
	}
	if len(r.Conditions) == 0 {
		return fmt.Errorf("%w: rule needs at least one condition", ErrInvalidInput)
	}
	if r.ConfidenceBoost < 0 || r.ConfidenceBoost > 1 {
		return fmt.Errorf("%w: confidence boost out of range", ErrInvalidInput)
	}
	for i, cond := range r.Conditions {
		if err := cond.Validate(); err != nil {
			return fmt.Errorf("condition %d: %w", i, err)
		}
	}
	return nil
}

// Accuracy returns the fraction of matches later confirmed correct,
// or 0 when the rule has never matched.
func (r *ClassificationRule) Accuracy() float64 {
	if r.TimesMatched == 0 {
		return 0
	}
	return float64(r.TimesCorrect) / float64(r.TimesMatched)
}

// Classification is the outcome of running the rule engine on one page
type Classification struct {
	PageID      string  `json:"page_id"`
	RuleID      string  `json:"rule_id,omitempty"` // empty when no rule matched
	Category    string  `json:"category"`
	Subcategory string  `json:"subcategory,omitempty"`
	DocType     string  `json:"doc_type,omitempty"`
	Confidence  float64 `json:"confidence"`
}

// Correction is a manual category fix recorded by a reviewer.
// Corrections feed the rule suggestion loop; Consumed marks ones already
// folded into a suggestion.
type Correction struct {
	ID                   string    `json:"id"`
	PageID               string    `json:"page_id"`
	PageURL              string    `json:"page_url"`
	WebSourceID          string    `json:"web_source_id,omitempty"`
	MatchedRuleID        string    `json:"matched_rule_id,omitempty"`
	OriginalCategory     string    `json:"original_category"`
	CorrectedCategory    string    `json:"corrected_category"`
	CorrectedSubcategory string    `json:"corrected_subcategory,omitempty"`
	CorrectedDocType     string    `json:"corrected_doc_type,omitempty"`
	Consumed             bool      `json:"consumed"`
	CreatedAt            time.Time `json:"created_at"`
}
