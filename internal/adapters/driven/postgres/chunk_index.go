package postgres

import (
	"context"

	"github.com/qadhya-labs/qanun-core/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.ChunkIndex = (*ChunkIndex)(nil)

// ChunkIndex implements driven.ChunkIndex against the chunks table written
// by the indexing subsystem. The pipeline only ever reads counts from it.
type ChunkIndex struct {
	db *DB
}

// NewChunkIndex creates a new ChunkIndex
func NewChunkIndex(db *DB) *ChunkIndex {
	return &ChunkIndex{db: db}
}

// CountForDocument returns the number of indexed chunks for a document
func (c *ChunkIndex) CountForDocument(ctx context.Context, documentID string) (int, error) {
	query := `SELECT COUNT(*) FROM chunks WHERE document_id = $1`
	var count int
	err := c.db.QueryRowContext(ctx, query, documentID).Scan(&count)
	return count, err
}
