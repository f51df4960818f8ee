package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/qadhya-labs/qanun-core/internal/core/domain"
	"github.com/qadhya-labs/qanun-core/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.DocumentStore = (*DocumentStore)(nil)

// DocumentStore implements driven.DocumentStore using PostgreSQL
type DocumentStore struct {
	db *DB
}

// NewDocumentStore creates a new DocumentStore
func NewDocumentStore(db *DB) *DocumentStore {
	return &DocumentStore{db: db}
}

const documentColumns = `id, citation_key, doc_type, legal_domain, title_ar, title_fr,
		category, subcategory, stage, active, needs_review, quality_score,
		verified, verified_by, verified_at,
		consolidated_text, structure, page_count, consolidation_status, consolidated_at,
		created_at, updated_at`

// FindOrCreate upserts a document by citation key and returns the surviving
// row. The no-op conflict update makes RETURNING yield the existing row, so
// concurrent linkers all converge on the same document.
func (s *DocumentStore) FindOrCreate(ctx context.Context, identity domain.DocumentIdentity) (*domain.Document, error) {
	query := `
		INSERT INTO documents (id, citation_key, doc_type, legal_domain, title_ar, title_fr,
			category, subcategory, stage, consolidation_status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $11)
		ON CONFLICT (citation_key) DO UPDATE SET
			citation_key = EXCLUDED.citation_key
		RETURNING ` + documentColumns

	now := time.Now()
	row := s.db.QueryRowContext(ctx, query,
		domain.GenerateID(),
		identity.CitationKey,
		identity.DocType,
		identity.LegalDomain,
		identity.TitleAr,
		identity.TitleFr,
		identity.Category,
		identity.Subcategory,
		string(domain.StageCrawled),
		string(domain.ConsolidationStatusPending),
		now,
	)
	return s.scanDocument(row)
}

// Get retrieves a document by ID
func (s *DocumentStore) Get(ctx context.Context, id string) (*domain.Document, error) {
	query := `SELECT ` + documentColumns + ` FROM documents WHERE id = $1`
	return s.scanDocument(s.db.QueryRowContext(ctx, query, id))
}

// GetByCitationKey retrieves a document by citation key
func (s *DocumentStore) GetByCitationKey(ctx context.Context, key string) (*domain.Document, error) {
	query := `SELECT ` + documentColumns + ` FROM documents WHERE citation_key = $1`
	return s.scanDocument(s.db.QueryRowContext(ctx, query, key))
}

// GetWithPages retrieves a document with its linked pages in article order
func (s *DocumentStore) GetWithPages(ctx context.Context, id string) (*domain.DocumentWithPages, error) {
	doc, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	query := `
		SELECT l.id, l.page_id, l.document_id, l.article_locator, l.page_order, l.contribution_type, l.created_at,
			p.id, p.source_id, p.url, p.title, p.breadcrumbs, p.extracted_text,
			p.category, p.subcategory, p.doc_type, p.crawled_at, p.created_at, p.updated_at
		FROM page_links l
		JOIN pages p ON p.id = l.page_id
		WHERE l.document_id = $1
		ORDER BY
			CASE WHEN l.article_locator ~ '^[0-9]+$' THEN l.article_locator::int END NULLS LAST,
			l.page_order NULLS LAST,
			l.created_at ASC
	`

	rows, err := s.db.QueryContext(ctx, query, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var pages []*domain.LinkedPage
	for rows.Next() {
		var link domain.PageLink
		var page domain.Page
		var locator sql.NullString
		var pageOrder sql.NullInt64
		var breadcrumbs []byte

		err := rows.Scan(
			&link.ID, &link.PageID, &link.DocumentID, &locator, &pageOrder, &link.Contribution, &link.CreatedAt,
			&page.ID, &page.SourceID, &page.URL, &page.Title, &breadcrumbs, &page.ExtractedText,
			&page.Category, &page.Subcategory, &page.DocType, &page.CrawledAt, &page.CreatedAt, &page.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}

		link.ArticleLocator = locator.String
		if pageOrder.Valid {
			order := int(pageOrder.Int64)
			link.PageOrder = &order
		}
		if len(breadcrumbs) > 0 {
			if err := json.Unmarshal(breadcrumbs, &page.Breadcrumbs); err != nil {
				return nil, err
			}
		}

		pages = append(pages, &domain.LinkedPage{Page: &page, Link: &link})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return &domain.DocumentWithPages{Document: doc, Pages: pages}, nil
}

// ListByStage retrieves documents at a stage with pagination
func (s *DocumentStore) ListByStage(ctx context.Context, stage domain.PipelineStage, limit, offset int) ([]*domain.Document, error) {
	query := `
		SELECT ` + documentColumns + `
		FROM documents
		WHERE stage = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := s.db.QueryContext(ctx, query, string(stage), limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return s.scanDocuments(rows)
}

// ListIDsBelowStage retrieves IDs of documents not yet at the given stage
func (s *DocumentStore) ListIDsBelowStage(ctx context.Context, stage domain.PipelineStage, limit int) ([]string, error) {
	query := `
		SELECT id FROM documents
		WHERE stage <> $1
		ORDER BY created_at ASC
		LIMIT $2
	`

	rows, err := s.db.QueryContext(ctx, query, string(stage), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return ids, nil
}

// LinkPage upserts the page link keyed on page ID. A relinked page moves to
// the new document in one statement.
func (s *DocumentStore) LinkPage(ctx context.Context, link *domain.PageLink) error {
	query := `
		INSERT INTO page_links (id, page_id, document_id, article_locator, page_order, contribution_type, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (page_id) DO UPDATE SET
			document_id = EXCLUDED.document_id,
			article_locator = EXCLUDED.article_locator,
			page_order = EXCLUDED.page_order,
			contribution_type = EXCLUDED.contribution_type
	`

	var pageOrder sql.NullInt64
	if link.PageOrder != nil {
		pageOrder = sql.NullInt64{Int64: int64(*link.PageOrder), Valid: true}
	}

	_, err := s.db.ExecContext(ctx, query,
		link.ID,
		link.PageID,
		link.DocumentID,
		link.ArticleLocator,
		pageOrder,
		string(link.Contribution),
		link.CreatedAt,
	)
	return err
}

// UnlinkPage removes the link for a page
func (s *DocumentStore) UnlinkPage(ctx context.Context, pageID string) error {
	query := `DELETE FROM page_links WHERE page_id = $1`
	_, err := s.db.ExecContext(ctx, query, pageID)
	return err
}

// GetLinkByPage retrieves the link of a page
func (s *DocumentStore) GetLinkByPage(ctx context.Context, pageID string) (*domain.PageLink, error) {
	query := `
		SELECT id, page_id, document_id, article_locator, page_order, contribution_type, created_at
		FROM page_links
		WHERE page_id = $1
	`
	return s.scanLink(s.db.QueryRowContext(ctx, query, pageID))
}

// GetLinks retrieves the links of a document
func (s *DocumentStore) GetLinks(ctx context.Context, documentID string) ([]*domain.PageLink, error) {
	query := `
		SELECT id, page_id, document_id, article_locator, page_order, contribution_type, created_at
		FROM page_links
		WHERE document_id = $1
		ORDER BY created_at ASC
	`

	rows, err := s.db.QueryContext(ctx, query, documentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var links []*domain.PageLink
	for rows.Next() {
		var link domain.PageLink
		var locator sql.NullString
		var pageOrder sql.NullInt64

		err := rows.Scan(&link.ID, &link.PageID, &link.DocumentID, &locator, &pageOrder, &link.Contribution, &link.CreatedAt)
		if err != nil {
			return nil, err
		}

		link.ArticleLocator = locator.String
		if pageOrder.Valid {
			order := int(pageOrder.Int64)
			link.PageOrder = &order
		}

		links = append(links, &link)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return links, nil
}

// RefreshPageCount recomputes and stores the page count for a document
func (s *DocumentStore) RefreshPageCount(ctx context.Context, documentID string) error {
	query := `
		UPDATE documents
		SET page_count = (SELECT COUNT(*) FROM page_links WHERE document_id = $1),
			updated_at = $2
		WHERE id = $1
	`
	result, err := s.db.ExecContext(ctx, query, documentID, time.Now())
	if err != nil {
		return err
	}
	return requireRow(result)
}

// UpdateStage moves a document to a stage
func (s *DocumentStore) UpdateStage(ctx context.Context, id string, stage domain.PipelineStage) error {
	query := `UPDATE documents SET stage = $1, updated_at = $2 WHERE id = $3`
	result, err := s.db.ExecContext(ctx, query, string(stage), time.Now(), id)
	if err != nil {
		return err
	}
	return requireRow(result)
}

// UpdateClassification sets category fields on a document
func (s *DocumentStore) UpdateClassification(ctx context.Context, id, category, subcategory, docType string) error {
	query := `
		UPDATE documents
		SET category = $1, subcategory = $2, doc_type = $3, updated_at = $4
		WHERE id = $5
	`
	result, err := s.db.ExecContext(ctx, query, category, subcategory, docType, time.Now(), id)
	if err != nil {
		return err
	}
	return requireRow(result)
}

// UpdateConsolidation stores the consolidated text, structure and status
func (s *DocumentStore) UpdateConsolidation(ctx context.Context, id string, text string, structure *domain.DocumentStructure, status domain.ConsolidationStatus) error {
	var structureJSON []byte
	if structure != nil {
		var err error
		structureJSON, err = json.Marshal(structure)
		if err != nil {
			return err
		}
	}

	query := `
		UPDATE documents
		SET consolidated_text = $1, structure = $2, consolidation_status = $3,
			consolidated_at = $4, updated_at = $4
		WHERE id = $5
	`
	result, err := s.db.ExecContext(ctx, query, text, structureJSON, string(status), time.Now(), id)
	if err != nil {
		return err
	}
	return requireRow(result)
}

// UpdateQuality stores the quality score and the needs-review flag
func (s *DocumentStore) UpdateQuality(ctx context.Context, id string, score float64, needsReview bool) error {
	query := `
		UPDATE documents
		SET quality_score = $1, needs_review = $2, updated_at = $3
		WHERE id = $4
	`
	result, err := s.db.ExecContext(ctx, query, score, needsReview, time.Now(), id)
	if err != nil {
		return err
	}
	return requireRow(result)
}

// SetNeedsReview toggles the needs-review flag without touching the score
func (s *DocumentStore) SetNeedsReview(ctx context.Context, id string, needsReview bool) error {
	query := `UPDATE documents SET needs_review = $1, updated_at = $2 WHERE id = $3`
	result, err := s.db.ExecContext(ctx, query, needsReview, time.Now(), id)
	if err != nil {
		return err
	}
	return requireRow(result)
}

// SetActive toggles the active flag
func (s *DocumentStore) SetActive(ctx context.Context, id string, active bool) error {
	query := `UPDATE documents SET active = $1, updated_at = $2 WHERE id = $3`
	result, err := s.db.ExecContext(ctx, query, active, time.Now(), id)
	if err != nil {
		return err
	}
	return requireRow(result)
}

// SetVerified toggles the verified flag with reviewer attribution
func (s *DocumentStore) SetVerified(ctx context.Context, id string, verified bool, reviewer string) error {
	query := `
		UPDATE documents
		SET verified = $1, verified_by = $2, verified_at = $3, updated_at = $3
		WHERE id = $4
	`

	var verifiedAt sql.NullTime
	if verified {
		verifiedAt = sql.NullTime{Time: time.Now(), Valid: true}
	}

	result, err := s.db.ExecContext(ctx, query, verified, reviewer, verifiedAt, id)
	if err != nil {
		return err
	}
	return requireRow(result)
}

// Delete deletes a document and its links
func (s *DocumentStore) Delete(ctx context.Context, id string) error {
	return s.db.Transaction(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM page_links WHERE document_id = $1`, id); err != nil {
			return err
		}

		result, err := tx.ExecContext(ctx, `DELETE FROM documents WHERE id = $1`, id)
		if err != nil {
			return err
		}
		return requireRow(result)
	})
}

// Count returns total document count
func (s *DocumentStore) Count(ctx context.Context) (int, error) {
	query := `SELECT COUNT(*) FROM documents`
	var count int
	err := s.db.QueryRowContext(ctx, query).Scan(&count)
	return count, err
}

func (s *DocumentStore) scanDocument(row *sql.Row) (*domain.Document, error) {
	var doc domain.Document
	var qualityScore sql.NullFloat64
	var verifiedBy, consolidatedText sql.NullString
	var verifiedAt, consolidatedAt sql.NullTime
	var structureJSON []byte

	err := row.Scan(
		&doc.ID,
		&doc.CitationKey,
		&doc.DocType,
		&doc.LegalDomain,
		&doc.TitleAr,
		&doc.TitleFr,
		&doc.Category,
		&doc.Subcategory,
		&doc.Stage,
		&doc.Active,
		&doc.NeedsReview,
		&qualityScore,
		&doc.Verified,
		&verifiedBy,
		&verifiedAt,
		&consolidatedText,
		&structureJSON,
		&doc.PageCount,
		&doc.Consolidation,
		&consolidatedAt,
		&doc.CreatedAt,
		&doc.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	if qualityScore.Valid {
		doc.QualityScore = &qualityScore.Float64
	}
	doc.VerifiedBy = verifiedBy.String
	doc.VerifiedAt = TimePtr(verifiedAt)
	doc.ConsolidatedText = consolidatedText.String
	doc.ConsolidatedAt = TimePtr(consolidatedAt)

	if len(structureJSON) > 0 {
		doc.Structure = &domain.DocumentStructure{}
		if err := json.Unmarshal(structureJSON, doc.Structure); err != nil {
			return nil, err
		}
	}

	return &doc, nil
}

func (s *DocumentStore) scanDocuments(rows *sql.Rows) ([]*domain.Document, error) {
	var docs []*domain.Document
	for rows.Next() {
		var doc domain.Document
		var qualityScore sql.NullFloat64
		var verifiedBy, consolidatedText sql.NullString
		var verifiedAt, consolidatedAt sql.NullTime
		var structureJSON []byte

		err := rows.Scan(
			&doc.ID,
			&doc.CitationKey,
			&doc.DocType,
			&doc.LegalDomain,
			&doc.TitleAr,
			&doc.TitleFr,
			&doc.Category,
			&doc.Subcategory,
			&doc.Stage,
			&doc.Active,
			&doc.NeedsReview,
			&qualityScore,
			&doc.Verified,
			&verifiedBy,
			&verifiedAt,
			&consolidatedText,
			&structureJSON,
			&doc.PageCount,
			&doc.Consolidation,
			&consolidatedAt,
			&doc.CreatedAt,
			&doc.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}

		if qualityScore.Valid {
			doc.QualityScore = &qualityScore.Float64
		}
		doc.VerifiedBy = verifiedBy.String
		doc.VerifiedAt = TimePtr(verifiedAt)
		doc.ConsolidatedText = consolidatedText.String
		doc.ConsolidatedAt = TimePtr(consolidatedAt)

		if len(structureJSON) > 0 {
			doc.Structure = &domain.DocumentStructure{}
			if err := json.Unmarshal(structureJSON, doc.Structure); err != nil {
				return nil, err
			}
		}

		docs = append(docs, &doc)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return docs, nil
}

func (s *DocumentStore) scanLink(row *sql.Row) (*domain.PageLink, error) {
	var link domain.PageLink
	var locator sql.NullString
	var pageOrder sql.NullInt64

	err := row.Scan(&link.ID, &link.PageID, &link.DocumentID, &locator, &pageOrder, &link.Contribution, &link.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	link.ArticleLocator = locator.String
	if pageOrder.Valid {
		order := int(pageOrder.Int64)
		link.PageOrder = &order
	}

	return &link, nil
}

// requireRow converts a zero-row update into ErrNotFound
func requireRow(result sql.Result) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}
