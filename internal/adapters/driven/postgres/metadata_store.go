package postgres

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/qadhya-labs/qanun-core/internal/core/domain"
	"github.com/qadhya-labs/qanun-core/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.MetadataStore = (*MetadataStore)(nil)

// MetadataStore implements driven.MetadataStore using PostgreSQL.
// Versions are immutable; each save inserts the next version for the page.
type MetadataStore struct {
	db *DB
}

// NewMetadataStore creates a new MetadataStore
func NewMetadataStore(db *DB) *MetadataStore {
	return &MetadataStore{db: db}
}

const metadataColumns = `id, page_id, version, category, fields, confidence, language, method, created_at`

// SaveVersion persists a new metadata version for a page. The version
// number is assigned inside the insert so concurrent extractions cannot
// collide on the same version.
func (s *MetadataStore) SaveVersion(ctx context.Context, meta *domain.Metadata) (*domain.Metadata, error) {
	fields, err := json.Marshal(meta.Fields)
	if err != nil {
		return nil, err
	}
	confidence, err := json.Marshal(meta.Confidence)
	if err != nil {
		return nil, err
	}

	query := `
		INSERT INTO metadata_versions (id, page_id, version, category, fields, confidence, language, method, created_at)
		SELECT $1, $2, COALESCE(MAX(version), 0) + 1, $3, $4, $5, $6, $7, $8
		FROM metadata_versions
		WHERE page_id = $2
		RETURNING ` + metadataColumns

	row := s.db.QueryRowContext(ctx, query,
		meta.ID,
		meta.PageID,
		meta.Category,
		fields,
		confidence,
		meta.Language,
		string(meta.Method),
		meta.CreatedAt,
	)
	return s.scanMetadata(row)
}

// GetLatest retrieves the newest metadata version for a page
func (s *MetadataStore) GetLatest(ctx context.Context, pageID string) (*domain.Metadata, error) {
	query := `
		SELECT ` + metadataColumns + `
		FROM metadata_versions
		WHERE page_id = $1
		ORDER BY version DESC
		LIMIT 1
	`
	return s.scanMetadata(s.db.QueryRowContext(ctx, query, pageID))
}

// ListVersions retrieves all metadata versions for a page, newest first
func (s *MetadataStore) ListVersions(ctx context.Context, pageID string) ([]*domain.Metadata, error) {
	query := `
		SELECT ` + metadataColumns + `
		FROM metadata_versions
		WHERE page_id = $1
		ORDER BY version DESC
	`

	rows, err := s.db.QueryContext(ctx, query, pageID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var versions []*domain.Metadata
	for rows.Next() {
		var meta domain.Metadata
		var fields, confidence []byte

		err := rows.Scan(
			&meta.ID,
			&meta.PageID,
			&meta.Version,
			&meta.Category,
			&fields,
			&confidence,
			&meta.Language,
			&meta.Method,
			&meta.CreatedAt,
		)
		if err != nil {
			return nil, err
		}

		if err := unmarshalMetadataMaps(&meta, fields, confidence); err != nil {
			return nil, err
		}
		versions = append(versions, &meta)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return versions, nil
}

func (s *MetadataStore) scanMetadata(row *sql.Row) (*domain.Metadata, error) {
	var meta domain.Metadata
	var fields, confidence []byte

	err := row.Scan(
		&meta.ID,
		&meta.PageID,
		&meta.Version,
		&meta.Category,
		&fields,
		&confidence,
		&meta.Language,
		&meta.Method,
		&meta.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	if err := unmarshalMetadataMaps(&meta, fields, confidence); err != nil {
		return nil, err
	}
	return &meta, nil
}

func unmarshalMetadataMaps(meta *domain.Metadata, fields, confidence []byte) error {
	if len(fields) > 0 {
		if err := json.Unmarshal(fields, &meta.Fields); err != nil {
			return err
		}
	}
	if len(confidence) > 0 {
		if err := json.Unmarshal(confidence, &meta.Confidence); err != nil {
			return err
		}
	}
	return nil
}
