package postgres

import (
	"context"
	"database/sql"
	"strconv"
	"time"

	"github.com/qadhya-labs/qanun-core/internal/core/domain"
	"github.com/qadhya-labs/qanun-core/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.RelationStore = (*RelationStore)(nil)

// RelationStore implements driven.RelationStore using PostgreSQL
type RelationStore struct {
	db *DB
}

// NewRelationStore creates a new RelationStore
func NewRelationStore(db *DB) *RelationStore {
	return &RelationStore{db: db}
}

const relationColumns = `id, source_document_id, target_document_id, relation_type,
		similarity, status, severity, source_excerpt, target_excerpt, suggested_resolution,
		reviewed_by, reviewed_at, created_at, updated_at`

// Upsert inserts or refreshes a relation keyed on the canonical
// (source, target, type) triple. Review fields survive the conflict so
// re-detection never undoes a reviewer's verdict.
func (s *RelationStore) Upsert(ctx context.Context, relation *domain.Relation) (*domain.Relation, error) {
	query := `
		INSERT INTO document_relations (id, source_document_id, target_document_id, relation_type,
			similarity, status, severity, source_excerpt, target_excerpt, suggested_resolution,
			created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $11)
		ON CONFLICT (source_document_id, target_document_id, relation_type) DO UPDATE SET
			similarity = EXCLUDED.similarity,
			severity = EXCLUDED.severity,
			source_excerpt = EXCLUDED.source_excerpt,
			target_excerpt = EXCLUDED.target_excerpt,
			suggested_resolution = EXCLUDED.suggested_resolution,
			updated_at = EXCLUDED.updated_at
		RETURNING ` + relationColumns

	row := s.db.QueryRowContext(ctx, query,
		relation.ID,
		relation.SourceDocumentID,
		relation.TargetDocumentID,
		string(relation.Type),
		relation.Similarity,
		string(relation.Status),
		string(relation.Severity),
		relation.SourceExcerpt,
		relation.TargetExcerpt,
		relation.SuggestedResolution,
		time.Now(),
	)
	return s.scanRelation(row)
}

// Get retrieves a relation by ID
func (s *RelationStore) Get(ctx context.Context, id string) (*domain.Relation, error) {
	query := `SELECT ` + relationColumns + ` FROM document_relations WHERE id = $1`
	return s.scanRelation(s.db.QueryRowContext(ctx, query, id))
}

// List retrieves relations matching the filter, newest first
func (s *RelationStore) List(ctx context.Context, filter driven.RelationFilter) ([]*domain.Relation, error) {
	query := `SELECT ` + relationColumns + ` FROM document_relations WHERE 1=1`
	args := []any{}

	if filter.Status != "" {
		args = append(args, string(filter.Status))
		query += ` AND status = $` + strconv.Itoa(len(args))
	}
	if filter.Type != "" {
		args = append(args, string(filter.Type))
		query += ` AND relation_type = $` + strconv.Itoa(len(args))
	}

	query += ` ORDER BY created_at DESC`

	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += ` LIMIT $` + strconv.Itoa(len(args))
		args = append(args, filter.Offset)
		query += ` OFFSET $` + strconv.Itoa(len(args))
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return s.scanRelations(rows)
}

// UpdateStatus sets the review status with reviewer attribution
func (s *RelationStore) UpdateStatus(ctx context.Context, id string, status domain.RelationStatus, reviewer string) error {
	query := `
		UPDATE document_relations
		SET status = $1, reviewed_by = $2, reviewed_at = $3, updated_at = $3
		WHERE id = $4
	`
	result, err := s.db.ExecContext(ctx, query, string(status), reviewer, time.Now(), id)
	if err != nil {
		return err
	}
	return requireRow(result)
}

// ListForDocument retrieves relations touching a document
func (s *RelationStore) ListForDocument(ctx context.Context, documentID string) ([]*domain.Relation, error) {
	query := `
		SELECT ` + relationColumns + `
		FROM document_relations
		WHERE source_document_id = $1 OR target_document_id = $1
		ORDER BY created_at DESC
	`

	rows, err := s.db.QueryContext(ctx, query, documentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return s.scanRelations(rows)
}

func (s *RelationStore) scanRelation(row *sql.Row) (*domain.Relation, error) {
	var relation domain.Relation
	var severity, sourceExcerpt, targetExcerpt, resolution, reviewedBy sql.NullString
	var reviewedAt sql.NullTime

	err := row.Scan(
		&relation.ID,
		&relation.SourceDocumentID,
		&relation.TargetDocumentID,
		&relation.Type,
		&relation.Similarity,
		&relation.Status,
		&severity,
		&sourceExcerpt,
		&targetExcerpt,
		&resolution,
		&reviewedBy,
		&reviewedAt,
		&relation.CreatedAt,
		&relation.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	relation.Severity = domain.ContradictionSeverity(severity.String)
	relation.SourceExcerpt = sourceExcerpt.String
	relation.TargetExcerpt = targetExcerpt.String
	relation.SuggestedResolution = resolution.String
	relation.ReviewedBy = reviewedBy.String
	relation.ReviewedAt = TimePtr(reviewedAt)

	return &relation, nil
}

func (s *RelationStore) scanRelations(rows *sql.Rows) ([]*domain.Relation, error) {
	var relations []*domain.Relation
	for rows.Next() {
		var relation domain.Relation
		var severity, sourceExcerpt, targetExcerpt, resolution, reviewedBy sql.NullString
		var reviewedAt sql.NullTime

		err := rows.Scan(
			&relation.ID,
			&relation.SourceDocumentID,
			&relation.TargetDocumentID,
			&relation.Type,
			&relation.Similarity,
			&relation.Status,
			&severity,
			&sourceExcerpt,
			&targetExcerpt,
			&resolution,
			&reviewedBy,
			&reviewedAt,
			&relation.CreatedAt,
			&relation.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}

		relation.Severity = domain.ContradictionSeverity(severity.String)
		relation.SourceExcerpt = sourceExcerpt.String
		relation.TargetExcerpt = targetExcerpt.String
		relation.SuggestedResolution = resolution.String
		relation.ReviewedBy = reviewedBy.String
		relation.ReviewedAt = TimePtr(reviewedAt)

		relations = append(relations, &relation)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return relations, nil
}
