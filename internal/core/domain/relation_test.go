package domain

import "testing"

func TestRelationStatusTransitions(t *testing.T) {
	cases := []struct {
		from    RelationStatus
		to      RelationStatus
		allowed bool
	}{
		{RelationPending, RelationConfirmed, true},
		{RelationPending, RelationDismissed, true},
		{RelationPending, RelationResolved, false},
		{RelationConfirmed, RelationResolved, true},
		{RelationConfirmed, RelationDismissed, false},
		{RelationDismissed, RelationResolved, false},
		{RelationDismissed, RelationConfirmed, false},
		{RelationResolved, RelationPending, false},
	}

	for _, tc := range cases {
		if got := tc.from.CanTransition(tc.to); got != tc.allowed {
			t.Errorf("%s -> %s: expected allowed=%t, got %t", tc.from, tc.to, tc.allowed, got)
		}
	}
}

func TestRelationCanonicalize(t *testing.T) {
	rel := &Relation{
		SourceDocumentID: "doc-b",
		TargetDocumentID: "doc-a",
		SourceExcerpt:    "from b",
		TargetExcerpt:    "from a",
	}
	rel.Canonicalize()

	if rel.SourceDocumentID != "doc-a" || rel.TargetDocumentID != "doc-b" {
		t.Errorf("expected canonical order doc-a/doc-b, got %s/%s",
			rel.SourceDocumentID, rel.TargetDocumentID)
	}
	if rel.SourceExcerpt != "from a" || rel.TargetExcerpt != "from b" {
		t.Error("expected excerpts to swap with the document order")
	}

	// Already canonical pairs stay put
	rel.Canonicalize()
	if rel.SourceDocumentID != "doc-a" {
		t.Error("expected canonicalize to be idempotent")
	}
}
