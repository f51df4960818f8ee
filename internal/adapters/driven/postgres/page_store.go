package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/qadhya-labs/qanun-core/internal/core/domain"
	"github.com/qadhya-labs/qanun-core/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.PageStore = (*PageStore)(nil)

// PageStore implements driven.PageStore using PostgreSQL
type PageStore struct {
	db *DB
}

// NewPageStore creates a new PageStore
func NewPageStore(db *DB) *PageStore {
	return &PageStore{db: db}
}

const pageColumns = `id, source_id, url, title, breadcrumbs, extracted_text,
		category, subcategory, doc_type, crawled_at, created_at, updated_at`

// Save creates or updates a page
func (s *PageStore) Save(ctx context.Context, page *domain.Page) error {
	breadcrumbs, err := json.Marshal(page.Breadcrumbs)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO pages (id, source_id, url, title, breadcrumbs, extracted_text,
			category, subcategory, doc_type, crawled_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (id) DO UPDATE SET
			url = EXCLUDED.url,
			title = EXCLUDED.title,
			breadcrumbs = EXCLUDED.breadcrumbs,
			extracted_text = EXCLUDED.extracted_text,
			category = EXCLUDED.category,
			subcategory = EXCLUDED.subcategory,
			doc_type = EXCLUDED.doc_type,
			crawled_at = EXCLUDED.crawled_at,
			updated_at = EXCLUDED.updated_at
	`

	_, err = s.db.ExecContext(ctx, query,
		page.ID,
		page.SourceID,
		page.URL,
		page.Title,
		breadcrumbs,
		page.ExtractedText,
		page.Category,
		page.Subcategory,
		page.DocType,
		page.CrawledAt,
		page.CreatedAt,
		page.UpdatedAt,
	)
	return err
}

// Get retrieves a page by ID
func (s *PageStore) Get(ctx context.Context, id string) (*domain.Page, error) {
	query := `SELECT ` + pageColumns + ` FROM pages WHERE id = $1`

	rows, err := s.db.QueryContext(ctx, query, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	pages, err := s.scanPages(rows)
	if err != nil {
		return nil, err
	}
	if len(pages) == 0 {
		return nil, domain.ErrNotFound
	}
	return pages[0], nil
}

// GetBatch retrieves multiple pages by ID, skipping missing ones
func (s *PageStore) GetBatch(ctx context.Context, ids []string) ([]*domain.Page, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	placeholders := make([]string, len(ids))
	args := make([]any, len(ids))
	for i, id := range ids {
		placeholders[i] = "$" + strconv.Itoa(i+1)
		args[i] = id
	}

	query := `SELECT ` + pageColumns + ` FROM pages WHERE id IN (` + strings.Join(placeholders, ",") + `)`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return s.scanPages(rows)
}

// ListBySource retrieves pages for a web source with pagination
func (s *PageStore) ListBySource(ctx context.Context, sourceID string, limit, offset int) ([]*domain.Page, error) {
	query := `
		SELECT ` + pageColumns + `
		FROM pages
		WHERE source_id = $1
		ORDER BY crawled_at DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := s.db.QueryContext(ctx, query, sourceID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return s.scanPages(rows)
}

// ListUnclassified retrieves pages without a category
func (s *PageStore) ListUnclassified(ctx context.Context, limit int) ([]*domain.Page, error) {
	query := `
		SELECT ` + pageColumns + `
		FROM pages
		WHERE category = ''
		ORDER BY crawled_at ASC
		LIMIT $1
	`

	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return s.scanPages(rows)
}

// UpdateClassification sets category fields on a page
func (s *PageStore) UpdateClassification(ctx context.Context, id, category, subcategory, docType string) error {
	query := `
		UPDATE pages
		SET category = $1, subcategory = $2, doc_type = $3, updated_at = $4
		WHERE id = $5
	`
	result, err := s.db.ExecContext(ctx, query, category, subcategory, docType, time.Now(), id)
	if err != nil {
		return err
	}
	return requireRow(result)
}

// Delete deletes a page
func (s *PageStore) Delete(ctx context.Context, id string) error {
	query := `DELETE FROM pages WHERE id = $1`
	result, err := s.db.ExecContext(ctx, query, id)
	if err != nil {
		return err
	}
	return requireRow(result)
}

func (s *PageStore) scanPages(rows *sql.Rows) ([]*domain.Page, error) {
	var pages []*domain.Page
	for rows.Next() {
		var page domain.Page
		var breadcrumbs []byte

		err := rows.Scan(
			&page.ID,
			&page.SourceID,
			&page.URL,
			&page.Title,
			&breadcrumbs,
			&page.ExtractedText,
			&page.Category,
			&page.Subcategory,
			&page.DocType,
			&page.CrawledAt,
			&page.CreatedAt,
			&page.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}

		if len(breadcrumbs) > 0 {
			if err := json.Unmarshal(breadcrumbs, &page.Breadcrumbs); err != nil {
				return nil, err
			}
		}

		pages = append(pages, &page)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return pages, nil
}
