package domain

import "testing"

func TestStageOrder(t *testing.T) {
	expected := []PipelineStage{
		StageCrawled,
		StageContentReviewed,
		StageClassified,
		StageIndexed,
		StageQualityAnalyzed,
	}
	if len(StageOrder) != len(expected) {
		t.Fatalf("expected %d stages, got %d", len(expected), len(StageOrder))
	}
	for i, stage := range expected {
		if StageOrder[i] != stage {
			t.Errorf("position %d: expected %s, got %s", i, stage, StageOrder[i])
		}
	}
}

func TestStageNext(t *testing.T) {
	if next := StageCrawled.Next(); next != StageContentReviewed {
		t.Errorf("expected content_reviewed after crawled, got %s", next)
	}
	if next := StageIndexed.Next(); next != StageQualityAnalyzed {
		t.Errorf("expected quality_analyzed after indexed, got %s", next)
	}
	if next := StageQualityAnalyzed.Next(); next != "" {
		t.Errorf("expected no stage after terminal, got %s", next)
	}
	if next := PipelineStage("bogus").Next(); next != "" {
		t.Errorf("expected no stage after unknown, got %s", next)
	}
}

func TestStageIsValid(t *testing.T) {
	for _, stage := range StageOrder {
		if !stage.IsValid() {
			t.Errorf("expected %s to be valid", stage)
		}
	}
	if PipelineStage("published").IsValid() {
		t.Error("expected unknown stage to be invalid")
	}
}

func TestStageIsTerminal(t *testing.T) {
	if !StageQualityAnalyzed.IsTerminal() {
		t.Error("expected quality_analyzed to be terminal")
	}
	if StageCrawled.IsTerminal() {
		t.Error("expected crawled not to be terminal")
	}
}

func TestBatchResult(t *testing.T) {
	var result BatchResult
	result.AddSuccess("doc-1")
	result.AddFailure("doc-2", ErrNotFound)

	if len(result.Succeeded) != 1 || result.Succeeded[0] != "doc-1" {
		t.Errorf("unexpected succeeded list: %v", result.Succeeded)
	}
	if len(result.Failed) != 1 {
		t.Fatalf("expected 1 failure, got %d", len(result.Failed))
	}
	if result.Failed[0].ID != "doc-2" || result.Failed[0].Error != "not found" {
		t.Errorf("unexpected failure entry: %+v", result.Failed[0])
	}
}
