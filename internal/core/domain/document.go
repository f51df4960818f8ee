package domain

import "time"

// ConsolidationStatus tracks how far a canonical document's text assembly has progressed
type ConsolidationStatus string

const (
	ConsolidationStatusPending  ConsolidationStatus = "pending"
	ConsolidationStatusPartial  ConsolidationStatus = "partial"
	ConsolidationStatusComplete ConsolidationStatus = "complete"
)

// ContributionType describes what role a page plays within a canonical document
type ContributionType string

const (
	ContributionArticle  ContributionType = "article"
	ContributionPreamble ContributionType = "preamble"
	ContributionAnnex    ContributionType = "annex"
	ContributionFullText ContributionType = "full_text"
)

// Document represents a canonical legal document assembled from crawled pages.
// Identity is the citation key; all crawled pages of the same legal text
// converge on one row via upsert on the citation key.
type Document struct {
	ID               string              `json:"id"`
	CitationKey      string              `json:"citation_key"`
	DocType          string              `json:"doc_type"`
	LegalDomain      string              `json:"legal_domain"`
	TitleAr          string              `json:"title_ar"`
	TitleFr          string              `json:"title_fr"`
	Category         string              `json:"category"`
	Subcategory      string              `json:"subcategory"`
	Stage            PipelineStage       `json:"stage"`
	Active           bool                `json:"active"`
	NeedsReview      bool                `json:"needs_review"`
	QualityScore     *float64            `json:"quality_score,omitempty"`
	Verified         bool                `json:"verified"`
	VerifiedBy       string              `json:"verified_by,omitempty"`
	VerifiedAt       *time.Time          `json:"verified_at,omitempty"`
	ConsolidatedText string              `json:"consolidated_text,omitempty"`
	Structure        *DocumentStructure  `json:"structure,omitempty"`
	PageCount        int                 `json:"page_count"`
	Consolidation    ConsolidationStatus `json:"consolidation_status"`
	ConsolidatedAt   *time.Time          `json:"consolidated_at,omitempty"`
	CreatedAt        time.Time           `json:"created_at"`
	UpdatedAt        time.Time           `json:"updated_at"`
}

// ReadyForReprocessing reports whether bulk reclassify and reindex
// operations may pick the document up: approved by a reviewer and fully
// consolidated
func (d *Document) ReadyForReprocessing() bool {
	return d.Verified && d.Consolidation == ConsolidationStatusComplete
}

// Page represents a single crawled page before and after it is linked to a
// canonical document
type Page struct {
	ID            string    `json:"id"`
	SourceID      string    `json:"source_id"`
	URL           string    `json:"url"`
	Title         string    `json:"title"`
	Breadcrumbs   []string  `json:"breadcrumbs,omitempty"`
	ExtractedText string    `json:"extracted_text"`
	Category      string    `json:"category,omitempty"`
	Subcategory   string    `json:"subcategory,omitempty"`
	DocType       string    `json:"doc_type,omitempty"`
	CrawledAt     time.Time `json:"crawled_at"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// PageLink ties a page to a canonical document.
// A page belongs to at most one document; relinking moves it atomically.
type PageLink struct {
	ID             string           `json:"id"`
	PageID         string           `json:"page_id"`
	DocumentID     string           `json:"document_id"`
	ArticleLocator string           `json:"article_locator,omitempty"` // pure integer string or empty
	PageOrder      *int             `json:"page_order,omitempty"`
	Contribution   ContributionType `json:"contribution_type"`
	CreatedAt      time.Time        `json:"created_at"`
}

// DocumentWithPages combines a document with its linked pages
type DocumentWithPages struct {
	Document *Document   `json:"document"`
	Pages    []*LinkedPage `json:"pages"`
}

// LinkedPage is a page together with its link metadata
type LinkedPage struct {
	Page *Page     `json:"page"`
	Link *PageLink `json:"link"`
}

// DocumentStructure is the assembled book/chapter/article tree of a
// consolidated document
type DocumentStructure struct {
	Books          []Book    `json:"books"`
	TotalArticles  int       `json:"total_articles"`
	TotalWords     int       `json:"total_words"`
	ConsolidatedAt time.Time `json:"consolidated_at"`
}

// ArticleRange returns the lowest and highest article numbers in the
// assembled structure; ok is false when it holds no articles
func (s *DocumentStructure) ArticleRange() (low, high int, ok bool) {
	for _, book := range s.Books {
		for _, chapter := range book.Chapters {
			for _, article := range chapter.Articles {
				if !ok || article.Number < low {
					low = article.Number
				}
				if !ok || article.Number > high {
					high = article.Number
				}
				ok = true
			}
		}
	}
	return low, high, ok
}

// Book is a top-level division of a legal code
type Book struct {
	Number   int       `json:"number"`
	TitleAr  string    `json:"title_ar,omitempty"`
	TitleFr  string    `json:"title_fr,omitempty"`
	Chapters []Chapter `json:"chapters"`
}

// Chapter groups a contiguous range of articles
type Chapter struct {
	Number   int          `json:"number"`
	TitleAr  string       `json:"title_ar,omitempty"`
	TitleFr  string       `json:"title_fr,omitempty"`
	Articles []ArticleRef `json:"articles"`
}

// ArticleRef points at one article within the structure
type ArticleRef struct {
	Number int    `json:"number"`
	PageID string `json:"page_id"`
	Words  int    `json:"words"`
}

// DocumentIdentity is the result of citation key normalisation for a page.
// It is pure data; normalising an identity-bearing page twice yields the
// same value.
type DocumentIdentity struct {
	CitationKey    string `json:"citation_key"`
	ArticleLocator string `json:"article_locator,omitempty"` // pure integer string or empty
	DocType        string `json:"doc_type,omitempty"`
	LegalDomain    string `json:"legal_domain,omitempty"`
	TitleAr        string `json:"title_ar,omitempty"`
	TitleFr        string `json:"title_fr,omitempty"`
	Category       string `json:"category,omitempty"`
	Subcategory    string `json:"subcategory,omitempty"`
}

// IsZero reports whether the identity carries no citation key
func (i DocumentIdentity) IsZero() bool {
	return i.CitationKey == ""
}
