package domain

import "testing"

func TestDocumentIdentityIsZero(t *testing.T) {
	if !(DocumentIdentity{}).IsZero() {
		t.Error("expected empty identity to be zero")
	}

	identity := DocumentIdentity{
		CitationKey:    "code-penal-tunisien",
		ArticleLocator: "201",
		DocType:        "loi",
		LegalDomain:    "penal",
	}
	if identity.IsZero() {
		t.Error("expected keyed identity not to be zero")
	}
}

func TestDocumentStructureShape(t *testing.T) {
	structure := &DocumentStructure{
		Books: []Book{
			{
				Number: 1,
				Chapters: []Chapter{
					{Number: 1, Articles: []ArticleRef{{Number: 1, PageID: "p1", Words: 40}}},
					{Number: 2, Articles: []ArticleRef{{Number: 16, PageID: "p2", Words: 55}}},
				},
			},
		},
		TotalArticles: 2,
		TotalWords:    95,
	}

	if len(structure.Books) != 1 {
		t.Fatalf("expected 1 book, got %d", len(structure.Books))
	}
	if len(structure.Books[0].Chapters) != 2 {
		t.Errorf("expected 2 chapters, got %d", len(structure.Books[0].Chapters))
	}
	if structure.Books[0].Chapters[1].Articles[0].Number != 16 {
		t.Errorf("unexpected article in second chapter: %+v", structure.Books[0].Chapters[1].Articles[0])
	}
}
