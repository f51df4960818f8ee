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
var (
	_ driven.RuleStore       = (*RuleStore)(nil)
	_ driven.CorrectionStore = (*CorrectionStore)(nil)
)

// RuleStore implements driven.RuleStore using PostgreSQL
type RuleStore struct {
	db *DB
}

// NewRuleStore creates a new RuleStore
func NewRuleStore(db *DB) *RuleStore {
	return &RuleStore{db: db}
}

const ruleColumns = `id, name, web_source_id, priority, conditions,
		category, subcategory, doc_type, confidence_boost,
		enabled, suggested, times_matched, times_correct, created_at, updated_at`

// Save creates or updates a rule
func (s *RuleStore) Save(ctx context.Context, rule *domain.ClassificationRule) error {
	conditions, err := json.Marshal(rule.Conditions)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO classification_rules (id, name, web_source_id, priority, conditions,
			category, subcategory, doc_type, confidence_boost,
			enabled, suggested, times_matched, times_correct, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			web_source_id = EXCLUDED.web_source_id,
			priority = EXCLUDED.priority,
			conditions = EXCLUDED.conditions,
			category = EXCLUDED.category,
			subcategory = EXCLUDED.subcategory,
			doc_type = EXCLUDED.doc_type,
			confidence_boost = EXCLUDED.confidence_boost,
			enabled = EXCLUDED.enabled,
			suggested = EXCLUDED.suggested,
			updated_at = EXCLUDED.updated_at
	`

	_, err = s.db.ExecContext(ctx, query,
		rule.ID,
		rule.Name,
		rule.WebSourceID,
		rule.Priority,
		conditions,
		rule.Category,
		rule.Subcategory,
		rule.DocType,
		rule.ConfidenceBoost,
		rule.Enabled,
		rule.Suggested,
		rule.TimesMatched,
		rule.TimesCorrect,
		rule.CreatedAt,
		rule.UpdatedAt,
	)
	return err
}

// Get retrieves a rule by ID
func (s *RuleStore) Get(ctx context.Context, id string) (*domain.ClassificationRule, error) {
	query := `SELECT ` + ruleColumns + ` FROM classification_rules WHERE id = $1`

	rows, err := s.db.QueryContext(ctx, query, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	rules, err := s.scanRules(rows)
	if err != nil {
		return nil, err
	}
	if len(rules) == 0 {
		return nil, domain.ErrNotFound
	}
	return rules[0], nil
}

// ListForSource retrieves enabled rules in matching order: source-scoped
// before global, then priority descending, then creation time ascending.
func (s *RuleStore) ListForSource(ctx context.Context, webSourceID string) ([]*domain.ClassificationRule, error) {
	query := `
		SELECT ` + ruleColumns + `
		FROM classification_rules
		WHERE enabled = true AND (web_source_id = $1 OR web_source_id = '')
		ORDER BY (web_source_id = '') ASC, priority DESC, created_at ASC
	`

	rows, err := s.db.QueryContext(ctx, query, webSourceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return s.scanRules(rows)
}

// ListAll retrieves every rule including disabled and suggested ones
func (s *RuleStore) ListAll(ctx context.Context, limit, offset int) ([]*domain.ClassificationRule, error) {
	query := `
		SELECT ` + ruleColumns + `
		FROM classification_rules
		ORDER BY created_at DESC
	`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT $1 OFFSET $2`
		args = append(args, limit, offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return s.scanRules(rows)
}

// ListSuggested retrieves suggested rules awaiting activation
func (s *RuleStore) ListSuggested(ctx context.Context) ([]*domain.ClassificationRule, error) {
	query := `
		SELECT ` + ruleColumns + `
		FROM classification_rules
		WHERE suggested = true
		ORDER BY created_at DESC
	`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return s.scanRules(rows)
}

// IncrementMatched bumps the times_matched counter
func (s *RuleStore) IncrementMatched(ctx context.Context, id string) error {
	query := `UPDATE classification_rules SET times_matched = times_matched + 1, updated_at = $1 WHERE id = $2`
	result, err := s.db.ExecContext(ctx, query, time.Now(), id)
	if err != nil {
		return err
	}
	return requireRow(result)
}

// IncrementCorrect bumps the times_correct counter
func (s *RuleStore) IncrementCorrect(ctx context.Context, id string) error {
	query := `UPDATE classification_rules SET times_correct = times_correct + 1, updated_at = $1 WHERE id = $2`
	result, err := s.db.ExecContext(ctx, query, time.Now(), id)
	if err != nil {
		return err
	}
	return requireRow(result)
}

// Delete deletes a rule
func (s *RuleStore) Delete(ctx context.Context, id string) error {
	query := `DELETE FROM classification_rules WHERE id = $1`
	result, err := s.db.ExecContext(ctx, query, id)
	if err != nil {
		return err
	}
	return requireRow(result)
}

func (s *RuleStore) scanRules(rows *sql.Rows) ([]*domain.ClassificationRule, error) {
	var rules []*domain.ClassificationRule
	for rows.Next() {
		var rule domain.ClassificationRule
		var conditions []byte

		err := rows.Scan(
			&rule.ID,
			&rule.Name,
			&rule.WebSourceID,
			&rule.Priority,
			&conditions,
			&rule.Category,
			&rule.Subcategory,
			&rule.DocType,
			&rule.ConfidenceBoost,
			&rule.Enabled,
			&rule.Suggested,
			&rule.TimesMatched,
			&rule.TimesCorrect,
			&rule.CreatedAt,
			&rule.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}

		if len(conditions) > 0 {
			if err := json.Unmarshal(conditions, &rule.Conditions); err != nil {
				return nil, err
			}
		}

		rules = append(rules, &rule)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return rules, nil
}

// CorrectionStore implements driven.CorrectionStore using PostgreSQL
type CorrectionStore struct {
	db *DB
}

// NewCorrectionStore creates a new CorrectionStore
func NewCorrectionStore(db *DB) *CorrectionStore {
	return &CorrectionStore{db: db}
}

// Save records a correction
func (s *CorrectionStore) Save(ctx context.Context, correction *domain.Correction) error {
	query := `
		INSERT INTO corrections (id, page_id, page_url, web_source_id, matched_rule_id,
			original_category, corrected_category, corrected_subcategory, corrected_doc_type,
			consumed, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	_, err := s.db.ExecContext(ctx, query,
		correction.ID,
		correction.PageID,
		correction.PageURL,
		correction.WebSourceID,
		correction.MatchedRuleID,
		correction.OriginalCategory,
		correction.CorrectedCategory,
		correction.CorrectedSubcategory,
		correction.CorrectedDocType,
		correction.Consumed,
		correction.CreatedAt,
	)
	return err
}

// ListUnconsumed retrieves corrections not yet folded into a suggestion
func (s *CorrectionStore) ListUnconsumed(ctx context.Context, webSourceID string) ([]*domain.Correction, error) {
	query := `
		SELECT id, page_id, page_url, web_source_id, matched_rule_id,
			original_category, corrected_category, corrected_subcategory, corrected_doc_type,
			consumed, created_at
		FROM corrections
		WHERE consumed = false
	`
	args := []any{}
	if webSourceID != "" {
		query += ` AND web_source_id = $1`
		args = append(args, webSourceID)
	}
	query += ` ORDER BY created_at ASC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var corrections []*domain.Correction
	for rows.Next() {
		var c domain.Correction
		err := rows.Scan(
			&c.ID,
			&c.PageID,
			&c.PageURL,
			&c.WebSourceID,
			&c.MatchedRuleID,
			&c.OriginalCategory,
			&c.CorrectedCategory,
			&c.CorrectedSubcategory,
			&c.CorrectedDocType,
			&c.Consumed,
			&c.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		corrections = append(corrections, &c)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return corrections, nil
}

// MarkConsumed flags corrections as used by a suggestion
func (s *CorrectionStore) MarkConsumed(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	placeholders := make([]string, len(ids))
	args := make([]any, len(ids))
	for i, id := range ids {
		placeholders[i] = "$" + strconv.Itoa(i+1)
		args[i] = id
	}

	query := `UPDATE corrections SET consumed = true WHERE id IN (` + strings.Join(placeholders, ",") + `)`
	_, err := s.db.ExecContext(ctx, query, args...)
	return err
}
