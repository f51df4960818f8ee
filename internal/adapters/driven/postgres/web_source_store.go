package postgres

import (
	"context"
	"database/sql"

	"github.com/qadhya-labs/qanun-core/internal/core/domain"
	"github.com/qadhya-labs/qanun-core/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.WebSourceStore = (*WebSourceStore)(nil)

// WebSourceStore implements driven.WebSourceStore using PostgreSQL
type WebSourceStore struct {
	db *DB
}

// NewWebSourceStore creates a new WebSourceStore
func NewWebSourceStore(db *DB) *WebSourceStore {
	return &WebSourceStore{db: db}
}

// Save creates or updates a web source
func (s *WebSourceStore) Save(ctx context.Context, source *domain.WebSource) error {
	query := `
		INSERT INTO web_sources (id, name, base_url, host, enabled, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			base_url = EXCLUDED.base_url,
			host = EXCLUDED.host,
			enabled = EXCLUDED.enabled,
			updated_at = EXCLUDED.updated_at
	`

	_, err := s.db.ExecContext(ctx, query,
		source.ID,
		source.Name,
		source.BaseURL,
		source.Host,
		source.Enabled,
		source.CreatedAt,
		source.UpdatedAt,
	)
	return err
}

// Get retrieves a web source by ID
func (s *WebSourceStore) Get(ctx context.Context, id string) (*domain.WebSource, error) {
	query := `
		SELECT id, name, base_url, host, enabled, created_at, updated_at
		FROM web_sources
		WHERE id = $1
	`
	return s.scanSource(s.db.QueryRowContext(ctx, query, id))
}

// GetByHost retrieves a web source by host name
func (s *WebSourceStore) GetByHost(ctx context.Context, host string) (*domain.WebSource, error) {
	query := `
		SELECT id, name, base_url, host, enabled, created_at, updated_at
		FROM web_sources
		WHERE host = $1
	`
	return s.scanSource(s.db.QueryRowContext(ctx, query, host))
}

// List retrieves all web sources
func (s *WebSourceStore) List(ctx context.Context) ([]*domain.WebSource, error) {
	query := `
		SELECT id, name, base_url, host, enabled, created_at, updated_at
		FROM web_sources
		ORDER BY name ASC
	`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sources []*domain.WebSource
	for rows.Next() {
		var source domain.WebSource
		err := rows.Scan(
			&source.ID,
			&source.Name,
			&source.BaseURL,
			&source.Host,
			&source.Enabled,
			&source.CreatedAt,
			&source.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		sources = append(sources, &source)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return sources, nil
}

// Delete deletes a web source
func (s *WebSourceStore) Delete(ctx context.Context, id string) error {
	query := `DELETE FROM web_sources WHERE id = $1`
	result, err := s.db.ExecContext(ctx, query, id)
	if err != nil {
		return err
	}
	return requireRow(result)
}

func (s *WebSourceStore) scanSource(row *sql.Row) (*domain.WebSource, error) {
	var source domain.WebSource
	err := row.Scan(
		&source.ID,
		&source.Name,
		&source.BaseURL,
		&source.Host,
		&source.Enabled,
		&source.CreatedAt,
		&source.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &source, nil
}
