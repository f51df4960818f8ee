package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/qadhya-labs/qanun-core/internal/citation"
	"github.com/qadhya-labs/qanun-core/internal/core/domain"
	"github.com/qadhya-labs/qanun-core/internal/core/ports/driven/mocks"
)

func newTestConsolidation() (*consolidationService, *mocks.MockDocumentStore, *mocks.MockPageStore) {
	docs := mocks.NewMockDocumentStore()
	pages := mocks.NewMockPageStore()
	docs.Pages = pages

	svc := NewConsolidationService(ConsolidationServiceConfig{
		DocumentStore: docs,
		PageStore:     pages,
		Registry:      citation.DefaultRegistry(),
	}).(*consolidationService)

	return svc, docs, pages
}

func codePage(id, url, text string) *domain.Page {
	return &domain.Page{
		ID:            id,
		SourceID:      "src-9anoun",
		URL:           url,
		Title:         "page " + id,
		ExtractedText: text,
		CrawledAt:     time.Now(),
	}
}

func TestConsolidation_LinkPage(t *testing.T) {
	svc, docs, _ := newTestConsolidation()
	ctx := context.Background()

	page := codePage("p1", "https://9anoun.tn/kb/codes/code-penal/article-201",
		"يعاقب بالإعدام كل من قتل نفسا عمدا مع سابقية القصد")

	link, err := svc.LinkPage(ctx, page)
	if err != nil {
		t.Fatalf("LinkPage failed: %v", err)
	}
	if link == nil {
		t.Fatal("expected a link, got nil")
	}
	if link.ArticleLocator != "201" {
		t.Errorf("ArticleLocator = %q, want %q", link.ArticleLocator, "201")
	}
	if link.Contribution != domain.ContributionArticle {
		t.Errorf("Contribution = %q, want %q", link.Contribution, domain.ContributionArticle)
	}
	if link.PageOrder == nil || *link.PageOrder != 201 {
		t.Errorf("PageOrder = %v, want article number 201", link.PageOrder)
	}

	doc, err := docs.GetByCitationKey(ctx, "code-penal-tunisien")
	if err != nil {
		t.Fatalf("document was not created: %v", err)
	}
	if doc.ID != link.DocumentID {
		t.Errorf("link points at %q, want %q", link.DocumentID, doc.ID)
	}
	if doc.PageCount != 1 {
		t.Errorf("PageCount = %d, want 1", doc.PageCount)
	}
	if doc.Stage != domain.StageCrawled {
		t.Errorf("Stage = %q, want %q", doc.Stage, domain.StageCrawled)
	}
}

func TestConsolidation_LinkPageSkipsShortText(t *testing.T) {
	svc, docs, _ := newTestConsolidation()
	ctx := context.Background()

	page := codePage("p1", "https://9anoun.tn/kb/codes/code-penal/article-1", "ok")

	link, err := svc.LinkPage(ctx, page)
	if err != nil {
		t.Fatalf("LinkPage failed: %v", err)
	}
	if link != nil {
		t.Fatal("expected short page to be skipped")
	}

	if count, _ := docs.Count(ctx); count != 0 {
		t.Errorf("document count = %d, want 0", count)
	}
}

func TestConsolidation_LinkPageNoIdentity(t *testing.T) {
	svc, _, _ := newTestConsolidation()
	ctx := context.Background()

	page := codePage("p1", "https://example.org/fiche_technique", "some text long enough to pass the gate")

	_, err := svc.LinkPage(ctx, page)
	if !errors.Is(err, domain.ErrNoIdentity) {
		t.Errorf("expected ErrNoIdentity, got %v", err)
	}
}

func TestConsolidation_RelinkMovesPage(t *testing.T) {
	svc, docs, _ := newTestConsolidation()
	ctx := context.Background()

	first := codePage("p1", "https://9anoun.tn/kb/codes/code-penal/article-5",
		"نص الفصل الخامس من المجلة الجزائية")
	if _, err := svc.LinkPage(ctx, first); err != nil {
		t.Fatalf("first link failed: %v", err)
	}

	// Same page recrawled under the labour code
	moved := codePage("p1", "https://9anoun.tn/kb/codes/code-travail/article-5",
		"نص الفصل الخامس من مجلة الشغل")
	link, err := svc.LinkPage(ctx, moved)
	if err != nil {
		t.Fatalf("relink failed: %v", err)
	}

	travail, err := docs.GetByCitationKey(ctx, "code-travail-tunisien")
	if err != nil {
		t.Fatalf("target document missing: %v", err)
	}
	if link.DocumentID != travail.ID {
		t.Errorf("link moved to %q, want %q", link.DocumentID, travail.ID)
	}
	if travail.PageCount != 1 {
		t.Errorf("target PageCount = %d, want 1", travail.PageCount)
	}

	penal, err := docs.GetByCitationKey(ctx, "code-penal-tunisien")
	if err != nil {
		t.Fatalf("source document missing: %v", err)
	}
	if penal.PageCount != 0 {
		t.Errorf("source PageCount = %d, want 0", penal.PageCount)
	}
}

func TestConsolidation_ConsolidateBatch(t *testing.T) {
	svc, _, pages := newTestConsolidation()
	ctx := context.Background()

	fixtures := []*domain.Page{
		codePage("p1", "https://9anoun.tn/kb/codes/code-penal/article-1", "الفصل الأول من المجلة الجزائية"),
		codePage("p2", "https://9anoun.tn/kb/codes/code-penal/article-2", "الفصل الثاني من المجلة الجزائية"),
		codePage("p3", "https://9anoun.tn/kb/codes/code-travail/article-1", "الفصل الأول من مجلة الشغل"),
		codePage("p4", "https://9anoun.tn/kb/codes/code-penal/article-3", "قصير"),                       // too short
		codePage("p5", "https://example.org/fiche_technique", "du texte sans identité citationnelle"), // no identity
	}
	ids := make([]string, 0, len(fixtures))
	for _, p := range fixtures {
		if err := pages.Save(ctx, p); err != nil {
			t.Fatalf("failed to save page: %v", err)
		}
		ids = append(ids, p.ID)
	}

	result, err := svc.ConsolidateBatch(ctx, ids)
	if err != nil {
		t.Fatalf("ConsolidateBatch failed: %v", err)
	}

	if result.PagesLinked != 3 {
		t.Errorf("PagesLinked = %d, want 3", result.PagesLinked)
	}
	if result.PagesSkipped != 2 {
		t.Errorf("PagesSkipped = %d, want 2", result.PagesSkipped)
	}
	if result.DocumentsCreated != 2 {
		t.Errorf("DocumentsCreated = %d, want 2", result.DocumentsCreated)
	}
	if result.DocumentsTouched != 2 {
		t.Errorf("DocumentsTouched = %d, want 2", result.DocumentsTouched)
	}
	if len(result.Errors) != 0 {
		t.Errorf("unexpected errors: %v", result.Errors)
	}
}

func TestConsolidation_RebuildStructureCodePenal(t *testing.T) {
	svc, docs, pages := newTestConsolidation()
	ctx := context.Background()

	fixtures := map[string]string{
		"https://9anoun.tn/kb/codes/code-penal/article-1":   "لا يعاقب أحد إلا بمقتضى نص سابق الوضع",
		"https://9anoun.tn/kb/codes/code-penal/article-20":  "العقوبات المقررة هي الإعدام والسجن والعمل الاجتماعي",
		"https://9anoun.tn/kb/codes/code-penal/article-201": "يعاقب بالإعدام كل من قتل نفسا عمدا مع سابقية القصد",
	}
	i := 0
	for url, text := range fixtures {
		i++
		page := codePage("p"+string(rune('0'+i)), url, text)
		if err := pages.Save(ctx, page); err != nil {
			t.Fatalf("failed to save page: %v", err)
		}
		if _, err := svc.LinkPage(ctx, page); err != nil {
			t.Fatalf("failed to link page: %v", err)
		}
	}

	doc, err := docs.GetByCitationKey(ctx, "code-penal-tunisien")
	if err != nil {
		t.Fatalf("document missing: %v", err)
	}

	structure, err := svc.RebuildStructure(ctx, doc.ID)
	if err != nil {
		t.Fatalf("RebuildStructure failed: %v", err)
	}

	if structure.TotalArticles != 3 {
		t.Errorf("TotalArticles = %d, want 3", structure.TotalArticles)
	}
	if len(structure.Books) != 2 {
		t.Fatalf("books = %d, want 2", len(structure.Books))
	}

	book1 := structure.Books[0]
	if book1.TitleFr != "Livre Premier - Dispositions Générales" {
		t.Errorf("book 1 title = %q", book1.TitleFr)
	}
	// Articles 1 and 20 fall in chapters 1 and 2; empty chapters are omitted
	if len(book1.Chapters) != 2 {
		t.Fatalf("book 1 chapters = %d, want 2", len(book1.Chapters))
	}
	if book1.Chapters[0].Number != 1 || len(book1.Chapters[0].Articles) != 1 || book1.Chapters[0].Articles[0].Number != 1 {
		t.Errorf("chapter 1 = %+v", book1.Chapters[0])
	}
	if book1.Chapters[1].Number != 2 || len(book1.Chapters[1].Articles) != 1 || book1.Chapters[1].Articles[0].Number != 20 {
		t.Errorf("chapter 2 = %+v", book1.Chapters[1])
	}
	if book1.Chapters[0].TitleAr == "" {
		t.Error("chapter 1 should carry an Arabic title")
	}

	book2 := structure.Books[1]
	if len(book2.Chapters) != 1 || len(book2.Chapters[0].Articles) != 1 || book2.Chapters[0].Articles[0].Number != 201 {
		t.Errorf("book 2 = %+v", book2)
	}

	updated, _ := docs.Get(ctx, doc.ID)
	if updated.Consolidation != domain.ConsolidationStatusComplete {
		t.Errorf("status = %q, want %q", updated.Consolidation, domain.ConsolidationStatusComplete)
	}
	if !strings.Contains(updated.ConsolidatedText, "الفصل 201") {
		t.Error("consolidated text should contain the article heading")
	}
	if !strings.Contains(updated.ConsolidatedText, "الكتاب الأول - أحكام عامة") {
		t.Error("consolidated text should contain the book heading")
	}
	if updated.ConsolidatedAt == nil {
		t.Error("ConsolidatedAt should be set")
	}
}

func TestConsolidation_RebuildStructureGeneric(t *testing.T) {
	svc, docs, pages := newTestConsolidation()
	ctx := context.Background()

	page := codePage("p1", "https://9anoun.tn/kb/codes/code-travail/article-6",
		"نص الفصل السادس من مجلة الشغل")
	if err := pages.Save(ctx, page); err != nil {
		t.Fatalf("failed to save page: %v", err)
	}
	if _, err := svc.LinkPage(ctx, page); err != nil {
		t.Fatalf("failed to link page: %v", err)
	}

	doc, _ := docs.GetByCitationKey(ctx, "code-travail-tunisien")
	structure, err := svc.RebuildStructure(ctx, doc.ID)
	if err != nil {
		t.Fatalf("RebuildStructure failed: %v", err)
	}

	if len(structure.Books) != 1 || len(structure.Books[0].Chapters) != 1 {
		t.Fatalf("expected one flat book, got %+v", structure.Books)
	}
	if structure.Books[0].Chapters[0].Articles[0].Number != 6 {
		t.Errorf("article = %+v", structure.Books[0].Chapters[0].Articles[0])
	}
}

func TestConsolidation_RebuildStructurePartial(t *testing.T) {
	svc, docs, pages := newTestConsolidation()
	ctx := context.Background()

	// Code landing page carries the identity but no article locator
	located := codePage("p1", "https://9anoun.tn/kb/codes/code-penal/article-1",
		"لا يعاقب أحد إلا بمقتضى نص سابق الوضع")
	landing := codePage("p2", "https://9anoun.tn/kb/codes/code-penal",
		"المجلة الجزائية التونسية الصادرة سنة 1913")

	for _, p := range []*domain.Page{located, landing} {
		if err := pages.Save(ctx, p); err != nil {
			t.Fatalf("failed to save page: %v", err)
		}
		if _, err := svc.LinkPage(ctx, p); err != nil {
			t.Fatalf("failed to link page: %v", err)
		}
	}

	doc, _ := docs.GetByCitationKey(ctx, "code-penal-tunisien")
	if _, err := svc.RebuildStructure(ctx, doc.ID); err != nil {
		t.Fatalf("RebuildStructure failed: %v", err)
	}

	updated, _ := docs.Get(ctx, doc.ID)
	if updated.Consolidation != domain.ConsolidationStatusPartial {
		t.Errorf("status = %q, want %q", updated.Consolidation, domain.ConsolidationStatusPartial)
	}
}

func TestConsolidation_ApproveRevoke(t *testing.T) {
	svc, docs, _ := newTestConsolidation()
	ctx := context.Background()

	doc, err := docs.FindOrCreate(ctx, domain.DocumentIdentity{CitationKey: "code-penal-tunisien"})
	if err != nil {
		t.Fatalf("FindOrCreate failed: %v", err)
	}

	if err := svc.Approve(ctx, doc.ID, "admin@qadhya.tn"); err != nil {
		t.Fatalf("Approve failed: %v", err)
	}
	approved, _ := docs.Get(ctx, doc.ID)
	if !approved.Verified || approved.VerifiedBy != "admin@qadhya.tn" || approved.VerifiedAt == nil {
		t.Errorf("approve did not set verification: %+v", approved)
	}

	if err := svc.Revoke(ctx, doc.ID, "admin@qadhya.tn"); err != nil {
		t.Fatalf("Revoke failed: %v", err)
	}
	revoked, _ := docs.Get(ctx, doc.ID)
	if revoked.Verified || revoked.VerifiedBy != "" {
		t.Errorf("revoke did not clear verification: %+v", revoked)
	}
}

func TestConsolidation_ListDocumentsRejectsUnknownStage(t *testing.T) {
	svc, _, _ := newTestConsolidation()

	_, err := svc.ListDocuments(context.Background(), "archived", 10, 0)
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
}
