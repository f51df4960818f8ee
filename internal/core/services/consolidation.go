package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/qadhya-labs/qanun-core/internal/core/domain"
	"github.com/qadhya-labs/qanun-core/internal/core/ports/driven"
	"github.com/qadhya-labs/qanun-core/internal/core/ports/driving"
)

// Ensure consolidationService implements ConsolidationService
var _ driving.ConsolidationService = (*consolidationService)(nil)

// minPageTextLength is the minimum extracted text length for a page to be
// worth linking. Shorter pages are navigation stubs or crawl artefacts.
const minPageTextLength = 10

// defaultConsolidateWorkers bounds the parallelism of batch consolidation
const defaultConsolidateWorkers = 4

// consolidationService groups crawled pages into canonical documents and
// assembles their consolidated text
type consolidationService struct {
	documentStore driven.DocumentStore
	pageStore     driven.PageStore
	registry      driven.CitationRegistry
	workers       int
	logger        *slog.Logger
}

// ConsolidationServiceConfig holds dependencies for the consolidation service
type ConsolidationServiceConfig struct {
	DocumentStore driven.DocumentStore
	PageStore     driven.PageStore
	Registry      driven.CitationRegistry
	Workers       int
	Logger        *slog.Logger
}

// NewConsolidationService creates a new ConsolidationService
func NewConsolidationService(cfg ConsolidationServiceConfig) driving.ConsolidationService {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	workers := cfg.Workers
	if workers <= 0 {
		workers = defaultConsolidateWorkers
	}

	return &consolidationService{
		documentStore: cfg.DocumentStore,
		pageStore:     cfg.PageStore,
		registry:      cfg.Registry,
		workers:       workers,
		logger:        logger,
	}
}

// FindOrCreateDocument resolves a page to its canonical document
func (s *consolidationService) FindOrCreateDocument(ctx context.Context, page *domain.Page) (*domain.Document, error) {
	identity := s.registry.Normalise(page)
	if identity.IsZero() {
		return nil, fmt.Errorf("page %s: %w", page.ID, domain.ErrNoIdentity)
	}

	doc, err := s.documentStore.FindOrCreate(ctx, identity)
	if err != nil {
		return nil, fmt.Errorf("failed to find or create document for %q: %w", identity.CitationKey, err)
	}
	return doc, nil
}

// LinkPage attaches a page to its canonical document. A nil link with a nil
// error means the page was skipped for having too little text.
func (s *consolidationService) LinkPage(ctx context.Context, page *domain.Page) (*domain.PageLink, error) {
	if len(strings.TrimSpace(page.ExtractedText)) < minPageTextLength {
		s.logger.Debug("skipping page with too little text", "page_id", page.ID, "url", page.URL)
		return nil, nil
	}

	identity := s.registry.Normalise(page)
	if identity.IsZero() {
		return nil, fmt.Errorf("page %s: %w", page.ID, domain.ErrNoIdentity)
	}

	doc, err := s.documentStore.FindOrCreate(ctx, identity)
	if err != nil {
		return nil, fmt.Errorf("failed to find or create document for %q: %w", identity.CitationKey, err)
	}

	// A relink moves the page; the previous document's page count must be
	// refreshed as well.
	var previousDocID string
	if existing, err := s.documentStore.GetLinkByPage(ctx, page.ID); err == nil {
		if existing.DocumentID != doc.ID {
			previousDocID = existing.DocumentID
		}
	}

	contribution := domain.ContributionFullText
	if identity.ArticleLocator != "" {
		contribution = domain.ContributionArticle
	}

	link := &domain.PageLink{
		PageID:         page.ID,
		DocumentID:     doc.ID,
		ArticleLocator: identity.ArticleLocator,
		Contribution:   contribution,
	}
	// Article pages sort by article number; full-text pages keep insertion
	// order under a nil page order.
	if n, err := strconv.Atoi(identity.ArticleLocator); err == nil {
		link.PageOrder = &n
	}
	if err := s.documentStore.LinkPage(ctx, link); err != nil {
		return nil, fmt.Errorf("failed to link page %s: %w", page.ID, err)
	}

	if err := s.documentStore.RefreshPageCount(ctx, doc.ID); err != nil {
		s.logger.Warn("failed to refresh page count", "document_id", doc.ID, "error", err)
	}
	if previousDocID != "" {
		if err := s.documentStore.RefreshPageCount(ctx, previousDocID); err != nil {
			s.logger.Warn("failed to refresh page count", "document_id", previousDocID, "error", err)
		}
	}

	return link, nil
}

// ConsolidateBatch links a batch of pages with bounded parallelism
func (s *consolidationService) ConsolidateBatch(ctx context.Context, pageIDs []string) (*driving.ConsolidationResult, error) {
	pages, err := s.pageStore.GetBatch(ctx, pageIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to load pages: %w", err)
	}

	result := &driving.ConsolidationResult{}
	var mu sync.Mutex
	keysSeen := make(map[string]bool)
	docsTouched := make(map[string]bool)

	sem := make(chan struct{}, s.workers)
	var wg sync.WaitGroup

	for _, page := range pages {
		select {
		case <-ctx.Done():
			wg.Wait()
			return result, ctx.Err()
		case sem <- struct{}{}:
		}

		wg.Add(1)
		go func(page *domain.Page) {
			defer wg.Done()
			defer func() { <-sem }()

			// Detect creations before linking: a key is "created" when its
			// document did not exist before the first linkable page hit it.
			created := false
			if len(strings.TrimSpace(page.ExtractedText)) >= minPageTextLength {
				if identity := s.registry.Normalise(page); !identity.IsZero() {
					mu.Lock()
					if !keysSeen[identity.CitationKey] {
						keysSeen[identity.CitationKey] = true
						if _, err := s.documentStore.GetByCitationKey(ctx, identity.CitationKey); errors.Is(err, domain.ErrNotFound) {
							created = true
						}
					}
					mu.Unlock()
				}
			}

			link, err := s.LinkPage(ctx, page)

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err != nil && isSkippableLinkError(err):
				result.PagesSkipped++
			case err != nil:
				result.Errors = append(result.Errors, domain.ItemError{ID: page.ID, Error: err.Error()})
			case link == nil:
				result.PagesSkipped++
			default:
				result.PagesLinked++
				if created {
					result.DocumentsCreated++
				}
				docsTouched[link.DocumentID] = true
			}
		}(page)
	}

	wg.Wait()
	result.DocumentsTouched = len(docsTouched)

	s.logger.Info("consolidation batch done",
		"pages", len(pages),
		"linked", result.PagesLinked,
		"skipped", result.PagesSkipped,
		"created", result.DocumentsCreated,
		"errors", len(result.Errors))

	return result, nil
}

// RebuildStructure recomputes the book/chapter tree and consolidated text
// of a document from its linked pages
func (s *consolidationService) RebuildStructure(ctx context.Context, documentID string) (*domain.DocumentStructure, error) {
	dwp, err := s.documentStore.GetWithPages(ctx, documentID)
	if err != nil {
		return nil, err
	}
	doc := dwp.Document

	articles, allLocated := collectArticles(dwp.Pages)
	structure := buildStructure(doc.CitationKey, articles)

	status := domain.ConsolidationStatusComplete
	if !allLocated || len(articles) == 0 {
		status = domain.ConsolidationStatusPartial
	}

	text := renderConsolidatedText(doc, structure, dwp.Pages)

	if err := s.documentStore.UpdateConsolidation(ctx, documentID, text, structure, status); err != nil {
		return nil, fmt.Errorf("failed to store consolidation: %w", err)
	}

	s.logger.Info("structure rebuilt",
		"document_id", documentID,
		"articles", structure.TotalArticles,
		"words", structure.TotalWords,
		"status", status)

	return structure, nil
}

// GetDocument retrieves a document with its linked pages
func (s *consolidationService) GetDocument(ctx context.Context, documentID string) (*domain.DocumentWithPages, error) {
	return s.documentStore.GetWithPages(ctx, documentID)
}

// ListDocuments lists documents at a pipeline stage
func (s *consolidationService) ListDocuments(ctx context.Context, stage domain.PipelineStage, limit, offset int) ([]*domain.Document, error) {
	if !stage.IsValid() {
		return nil, fmt.Errorf("%w: unknown stage %q", domain.ErrInvalidInput, stage)
	}
	return s.documentStore.ListByStage(ctx, stage, limit, offset)
}

// Approve marks a document's consolidation as verified
func (s *consolidationService) Approve(ctx context.Context, documentID, reviewer string) error {
	return s.documentStore.SetVerified(ctx, documentID, true, reviewer)
}

// Revoke clears a document's verified flag
func (s *consolidationService) Revoke(ctx context.Context, documentID, reviewer string) error {
	return s.documentStore.SetVerified(ctx, documentID, false, reviewer)
}

func isSkippableLinkError(err error) bool {
	return errors.Is(err, domain.ErrNoIdentity)
}

// article is one located page during structure assembly
type article struct {
	number int
	pageID string
	words  int
}

// collectArticles extracts located articles from linked pages, sorted by
// article number. allLocated reports whether every page carried a locator.
func collectArticles(pages []*domain.LinkedPage) ([]article, bool) {
	var articles []article
	allLocated := true
	for _, lp := range pages {
		if lp.Link.ArticleLocator == "" {
			allLocated = false
			continue
		}
		num, err := strconv.Atoi(lp.Link.ArticleLocator)
		if err != nil {
			allLocated = false
			continue
		}
		words := 0
		if lp.Page != nil {
			words = countWords(lp.Page.ExtractedText)
		}
		articles = append(articles, article{number: num, pageID: lp.Link.PageID, words: words})
	}
	sort.Slice(articles, func(i, j int) bool { return articles[i].number < articles[j].number })
	return articles, allLocated
}

// chapterDef is one threshold in a known code structure
type chapterDef struct {
	maxArticle int
	titleAr    string
}

// codePenalChapters is the known chapter layout of book one of the Tunisian
// penal code
var codePenalChapters = []chapterDef{
	{15, "الباب الأول - في الجرائم وأنواعها"},
	{30, "الباب الثاني - في العقوبات"},
	{45, "الباب الثالث - في المسؤولية الجزائية"},
	{60, "الباب الرابع - في أسباب الإباحة والتخفيف والتشديد"},
}

// buildStructure assembles the book/chapter tree. The Tunisian penal code
// has a known two-book layout; everything else gets a single flat book.
func buildStructure(citationKey string, articles []article) *domain.DocumentStructure {
	var books []domain.Book
	if strings.Contains(citationKey, "code-penal") {
		books = buildCodePenalBooks(articles)
	} else {
		books = []domain.Book{{
			Number:   1,
			Chapters: []domain.Chapter{{Number: 1, Articles: toRefs(articles)}},
		}}
	}

	totalWords := 0
	for _, a := range articles {
		totalWords += a.words
	}

	return &domain.DocumentStructure{
		Books:          books,
		TotalArticles:  len(articles),
		TotalWords:     totalWords,
		ConsolidatedAt: time.Now(),
	}
}

func buildCodePenalBooks(articles []article) []domain.Book {
	var book1, book2 []article
	for _, a := range articles {
		if a.number >= 1 && a.number <= 60 {
			book1 = append(book1, a)
		} else if a.number > 60 {
			book2 = append(book2, a)
		}
	}

	var chapters []domain.Chapter
	prevMax := 0
	for i, def := range codePenalChapters {
		var group []article
		for _, a := range book1 {
			if a.number > prevMax && a.number <= def.maxArticle {
				group = append(group, a)
			}
		}
		if len(group) > 0 {
			chapters = append(chapters, domain.Chapter{
				Number:   i + 1,
				TitleAr:  def.titleAr,
				Articles: toRefs(group),
			})
		}
		prevMax = def.maxArticle
	}

	return []domain.Book{
		{
			Number:   1,
			TitleAr:  "الكتاب الأول - أحكام عامة",
			TitleFr:  "Livre Premier - Dispositions Générales",
			Chapters: chapters,
		},
		{
			Number:   2,
			TitleAr:  "الكتاب الثاني - في مختلف الجرائم",
			TitleFr:  "Livre Deuxième - Des Diverses Infractions",
			Chapters: []domain.Chapter{{Number: 1, Articles: toRefs(book2)}},
		},
	}
}

func toRefs(articles []article) []domain.ArticleRef {
	refs := make([]domain.ArticleRef, 0, len(articles))
	for _, a := range articles {
		refs = append(refs, domain.ArticleRef{Number: a.number, PageID: a.pageID, Words: a.words})
	}
	return refs
}

// renderConsolidatedText produces the plain-text rendition of a structured
// document: title header, book and chapter headings, one block per article.
func renderConsolidatedText(doc *domain.Document, structure *domain.DocumentStructure, pages []*domain.LinkedPage) string {
	textByPage := make(map[string]string, len(pages))
	for _, lp := range pages {
		if lp.Page != nil {
			textByPage[lp.Link.PageID] = cleanArticleText(lp.Page.ExtractedText)
		}
	}

	var b strings.Builder
	if doc.TitleAr != "" {
		b.WriteString(doc.TitleAr + "\n")
		b.WriteString(strings.Repeat("=", len([]rune(doc.TitleAr))) + "\n")
	}
	if doc.TitleFr != "" {
		b.WriteString(doc.TitleFr + "\n")
	}

	for _, book := range structure.Books {
		if book.TitleAr != "" {
			b.WriteString("\n" + strings.Repeat("-", 40) + "\n")
			b.WriteString(book.TitleAr + "\n")
			if book.TitleFr != "" {
				b.WriteString(book.TitleFr + "\n")
			}
			b.WriteString(strings.Repeat("-", 40) + "\n")
		}
		for _, chapter := range book.Chapters {
			if chapter.TitleAr != "" {
				b.WriteString("\n" + chapter.TitleAr + "\n")
				b.WriteString(strings.Repeat("-", 30) + "\n")
			}
			for _, ref := range chapter.Articles {
				b.WriteString("\nالفصل " + strconv.Itoa(ref.Number) + "\n")
				b.WriteString(textByPage[ref.PageID] + "\n")
			}
		}
	}

	return b.String()
}

var (
	multiNewline = regexp.MustCompile(`\n{3,}`)
	multiSpace   = regexp.MustCompile(`[ \t]+`)
)

// cleanArticleText trims and collapses whitespace in extracted page text
func cleanArticleText(text string) string {
	text = strings.TrimSpace(text)
	text = multiNewline.ReplaceAllString(text, "\n\n")
	text = multiSpace.ReplaceAllString(text, " ")
	return text
}

// countWords counts whitespace-separated words
func countWords(text string) int {
	return len(strings.Fields(text))
}
