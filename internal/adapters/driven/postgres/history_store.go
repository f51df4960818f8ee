package postgres

import (
	"context"

	"github.com/qadhya-labs/qanun-core/internal/core/domain"
	"github.com/qadhya-labs/qanun-core/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.HistoryStore = (*HistoryStore)(nil)

// HistoryStore implements driven.HistoryStore using PostgreSQL.
// The table is append-only; transitions are never updated or deleted.
type HistoryStore struct {
	db *DB
}

// NewHistoryStore creates a new HistoryStore
func NewHistoryStore(db *DB) *HistoryStore {
	return &HistoryStore{db: db}
}

// Record appends one stage transition
func (s *HistoryStore) Record(ctx context.Context, transition *domain.StageTransition) error {
	query := `
		INSERT INTO stage_history (id, document_id, from_stage, to_stage, action, actor, reason, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := s.db.ExecContext(ctx, query,
		transition.ID,
		transition.DocumentID,
		string(transition.FromStage),
		string(transition.ToStage),
		string(transition.Action),
		transition.Actor,
		transition.Reason,
		transition.CreatedAt,
	)
	return err
}

// ListByDocument retrieves transitions for a document, newest first
func (s *HistoryStore) ListByDocument(ctx context.Context, documentID string, limit int) ([]*domain.StageTransition, error) {
	query := `
		SELECT id, document_id, from_stage, to_stage, action, actor, reason, created_at
		FROM stage_history
		WHERE document_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`

	rows, err := s.db.QueryContext(ctx, query, documentID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var transitions []*domain.StageTransition
	for rows.Next() {
		var t domain.StageTransition
		err := rows.Scan(
			&t.ID,
			&t.DocumentID,
			&t.FromStage,
			&t.ToStage,
			&t.Action,
			&t.Actor,
			&t.Reason,
			&t.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		transitions = append(transitions, &t)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return transitions, nil
}
