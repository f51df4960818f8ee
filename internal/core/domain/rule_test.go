package domain

import (
	"errors"
	"testing"
)

func validRule() *ClassificationRule {
	return &ClassificationRule{
		Name:     "codes section",
		Category: "legislation",
		Conditions: []RuleCondition{
			{Field: FieldURL, Op: OpSegment, Value: "codes"},
		},
		ConfidenceBoost: 0.1,
		Enabled:         true,
	}
}

func TestRuleValidate_OK(t *testing.T) {
	if err := validRule().Validate(); err != nil {
		t.Fatalf("expected valid rule, got %v", err)
	}
}

func TestRuleValidate_UnknownOp(t *testing.T) {
	rule := validRule()
	rule.Conditions = []RuleCondition{{Field: FieldURL, Op: "fuzzy", Value: "codes"}}

	err := rule.Validate()
	if !errors.Is(err, ErrInvalidCondition) {
		t.Fatalf("expected ErrInvalidCondition, got %v", err)
	}
}

func TestRuleValidate_UnknownField(t *testing.T) {
	rule := validRule()
	rule.Conditions = []RuleCondition{{Field: "body", Op: OpContains, Value: "x"}}

	if err := rule.Validate(); !errors.Is(err, ErrInvalidCondition) {
		t.Fatalf("expected ErrInvalidCondition, got %v", err)
	}
}

func TestRuleValidate_BadRegex(t *testing.T) {
	rule := validRule()
	rule.Conditions = []RuleCondition{{Field: FieldURL, Op: OpRegex, Value: "("}}

	if err := rule.Validate(); !errors.Is(err, ErrInvalidCondition) {
		t.Fatalf("expected ErrInvalidCondition for bad regex, got %v", err)
	}
}

func TestRuleValidate_SegmentRequiresURL(t *testing.T) {
	rule := validRule()
	rule.Conditions = []RuleCondition{{Field: FieldTitle, Op: OpSegment, Value: "codes"}}

	if err := rule.Validate(); !errors.Is(err, ErrInvalidCondition) {
		t.Fatalf("expected ErrInvalidCondition for segment on title, got %v", err)
	}
}

func TestRuleValidate_MissingBasics(t *testing.T) {
	rule := validRule()
	rule.Name = ""
	if err := rule.Validate(); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput for missing name, got %v", err)
	}

	rule = validRule()
	rule.Category = ""
	if err := rule.Validate(); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput for missing category, got %v", err)
	}

	rule = validRule()
	rule.Conditions = nil
	if err := rule.Validate(); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput for no conditions, got %v", err)
	}

	rule = validRule()
	rule.ConfidenceBoost = 1.5
	if err := rule.Validate(); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput for boost out of range, got %v", err)
	}
}

func TestRuleAccuracy(t *testing.T) {
	rule := validRule()
	if acc := rule.Accuracy(); acc != 0 {
		t.Errorf("expected 0 accuracy for unmatched rule, got %f", acc)
	}

	rule.TimesMatched = 4
	rule.TimesCorrect = 3
	if acc := rule.Accuracy(); acc != 0.75 {
		t.Errorf("expected 0.75 accuracy, got %f", acc)
	}
}
