package services

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"regexp"
	"strings"
	"sync"

	"github.com/qadhya-labs/qanun-core/internal/core/domain"
	"github.com/qadhya-labs/qanun-core/internal/core/ports/driven"
	"github.com/qadhya-labs/qanun-core/internal/core/ports/driving"
)

// Ensure classificationService implements ClassificationService
var _ driving.ClassificationService = (*classificationService)(nil)

// Suggestion heuristics. A suggestion needs at least minCorrections
// corrections agreeing on the same outcome; a URL segment shared by more
// than segmentShare of their URLs becomes the rule condition.
const (
	minCorrections     = 3
	segmentShare       = 0.7
	minCommonSubstring = 3
	suggestedPriority  = 10
	suggestedBoost     = 0.15
)

// baseConfidence is the confidence of any full rule match before the
// rule's boost is applied
const baseConfidence = 0.9

// defaultClassifyWorkers bounds the parallelism of batch classification
const defaultClassifyWorkers = 4

// classificationService runs the rule engine over crawled pages and learns
// new rules from reviewer corrections
type classificationService struct {
	ruleStore       driven.RuleStore
	correctionStore driven.CorrectionStore
	pageStore       driven.PageStore
	documentStore   driven.DocumentStore      // nil disables the batch readiness check
	extraction      driving.ExtractionService // nil disables the no-match fallback
	workers         int
	logger          *slog.Logger
}

// ClassificationServiceConfig holds dependencies for the classification service
type ClassificationServiceConfig struct {
	RuleStore       driven.RuleStore
	CorrectionStore driven.CorrectionStore
	PageStore       driven.PageStore
	DocumentStore   driven.DocumentStore
	Extraction      driving.ExtractionService
	Workers         int
	Logger          *slog.Logger
}

// NewClassificationService creates a new ClassificationService
func NewClassificationService(cfg ClassificationServiceConfig) driving.ClassificationService {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	workers := cfg.Workers
	if workers <= 0 {
		workers = defaultClassifyWorkers
	}

	return &classificationService{
		ruleStore:       cfg.RuleStore,
		correctionStore: cfg.CorrectionStore,
		pageStore:       cfg.PageStore,
		documentStore:   cfg.DocumentStore,
		extraction:      cfg.Extraction,
		workers:         workers,
		logger:          logger,
	}
}

// ClassifyPage runs the rule set against a single page. The first matching
// rule wins. When no rule matches, the page falls through to hybrid
// metadata extraction and nil is returned.
func (s *classificationService) ClassifyPage(ctx context.Context, pageID string) (*domain.Classification, error) {
	page, err := s.pageStore.Get(ctx, pageID)
	if err != nil {
		return nil, err
	}

	rules, err := s.ruleStore.ListForSource(ctx, page.SourceID)
	if err != nil {
		return nil, fmt.Errorf("failed to load rules: %w", err)
	}

	for _, rule := range rules {
		if !evaluateRule(rule, page) {
			continue
		}

		confidence := baseConfidence + rule.ConfidenceBoost
		if confidence > 1.0 {
			confidence = 1.0
		}

		if err := s.ruleStore.IncrementMatched(ctx, rule.ID); err != nil {
			s.logger.Warn("failed to bump match counter", "rule_id", rule.ID, "error", err)
		}
		if err := s.pageStore.UpdateClassification(ctx, pageID, rule.Category, rule.Subcategory, rule.DocType); err != nil {
			return nil, fmt.Errorf("failed to store classification: %w", err)
		}

		return &domain.Classification{
			PageID:      pageID,
			RuleID:      rule.ID,
			Category:    rule.Category,
			Subcategory: rule.Subcategory,
			DocType:     rule.DocType,
			Confidence:  confidence,
		}, nil
	}

	if s.extraction != nil {
		if _, err := s.extraction.ExtractPage(ctx, pageID, driving.ExtractOptions{}); err != nil {
			s.logger.Warn("no-match extraction fallback failed", "page_id", pageID, "error", err)
		}
	}

	return nil, nil
}

// ClassifyBatch classifies a batch of pages with bounded parallelism.
// Pages already linked to a document are reclassifications; they are
// skipped unless the document is approved with complete consolidation.
func (s *classificationService) ClassifyBatch(ctx context.Context, pageIDs []string) (*driving.ClassifyReport, error) {
	report := &driving.ClassifyReport{}
	var mu sync.Mutex

	sem := make(chan struct{}, s.workers)
	var wg sync.WaitGroup

	for _, pageID := range pageIDs {
		select {
		case <-ctx.Done():
			wg.Wait()
			return report, ctx.Err()
		case sem <- struct{}{}:
		}

		wg.Add(1)
		go func(pageID string) {
			defer wg.Done()
			defer func() { <-sem }()

			if !s.readyToReclassify(ctx, pageID) {
				mu.Lock()
				report.Skipped = append(report.Skipped, domain.ItemError{
					ID: pageID, Error: "requires approval and complete consolidation"})
				mu.Unlock()
				return
			}

			classification, err := s.ClassifyPage(ctx, pageID)

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err != nil:
				report.Errors = append(report.Errors, domain.ItemError{ID: pageID, Error: err.Error()})
			case classification == nil:
				report.Unmatched++
			default:
				report.Classified++
			}
		}(pageID)
	}

	wg.Wait()

	s.logger.Info("classification batch done",
		"pages", len(pageIDs),
		"classified", report.Classified,
		"unmatched", report.Unmatched,
		"skipped", len(report.Skipped),
		"errors", len(report.Errors))

	return report, nil
}

// readyToReclassify reports whether a batch may touch the page. Pages
// without a document link are first-time classifications and always pass;
// linked pages pass only when their document is ready for reprocessing.
func (s *classificationService) readyToReclassify(ctx context.Context, pageID string) bool {
	if s.documentStore == nil {
		return true
	}
	link, err := s.documentStore.GetLinkByPage(ctx, pageID)
	if err != nil {
		return true
	}
	doc, err := s.documentStore.Get(ctx, link.DocumentID)
	if err != nil {
		return true
	}
	return doc.ReadyForReprocessing()
}

// SaveRule validates and persists a rule
func (s *classificationService) SaveRule(ctx context.Context, rule *domain.ClassificationRule) error {
	if err := rule.Validate(); err != nil {
		return err
	}
	if rule.ID == "" {
		rule.ID = domain.GenerateID()
	}
	return s.ruleStore.Save(ctx, rule)
}

// GetRule retrieves a rule by ID
func (s *classificationService) GetRule(ctx context.Context, id string) (*domain.ClassificationRule, error) {
	return s.ruleStore.Get(ctx, id)
}

// ListRules lists rules for a source, or all rules when webSourceID is empty
func (s *classificationService) ListRules(ctx context.Context, webSourceID string) ([]*domain.ClassificationRule, error) {
	if webSourceID == "" {
		return s.ruleStore.ListAll(ctx, 0, 0)
	}
	return s.ruleStore.ListForSource(ctx, webSourceID)
}

// DeleteRule removes a rule
func (s *classificationService) DeleteRule(ctx context.Context, id string) error {
	return s.ruleStore.Delete(ctx, id)
}

// RecordCorrection registers a human correction. A correction that keeps
// the original category confirms the rule that fired and bumps its
// times_correct counter; a changed category leaves the counter alone so
// the rule's accuracy drops.
func (s *classificationService) RecordCorrection(ctx context.Context, correction *domain.Correction) error {
	if correction.PageID == "" || correction.CorrectedCategory == "" {
		return fmt.Errorf("%w: page ID and corrected category are required", domain.ErrInvalidInput)
	}
	if correction.ID == "" {
		correction.ID = domain.GenerateID()
	}

	if err := s.correctionStore.Save(ctx, correction); err != nil {
		return fmt.Errorf("failed to save correction: %w", err)
	}

	if correction.MatchedRuleID != "" && correction.CorrectedCategory == correction.OriginalCategory {
		if err := s.ruleStore.IncrementCorrect(ctx, correction.MatchedRuleID); err != nil {
			s.logger.Warn("failed to bump correct counter", "rule_id", correction.MatchedRuleID, "error", err)
		}
	}

	if err := s.pageStore.UpdateClassification(ctx, correction.PageID,
		correction.CorrectedCategory, correction.CorrectedSubcategory, correction.CorrectedDocType); err != nil {
		return fmt.Errorf("failed to apply correction: %w", err)
	}

	return nil
}

// outcome groups corrections agreeing on the same corrected labels
type outcome struct {
	category    string
	subcategory string
	docType     string
}

// SuggestRules derives disabled candidate rules from accumulated
// corrections. Suggestions are never auto-activated.
func (s *classificationService) SuggestRules(ctx context.Context, webSourceID string) ([]*domain.ClassificationRule, error) {
	corrections, err := s.correctionStore.ListUnconsumed(ctx, webSourceID)
	if err != nil {
		return nil, fmt.Errorf("failed to load corrections: %w", err)
	}

	groups := make(map[outcome][]*domain.Correction)
	for _, c := range corrections {
		key := outcome{c.CorrectedCategory, c.CorrectedSubcategory, c.CorrectedDocType}
		groups[key] = append(groups[key], c)
	}

	var suggested []*domain.ClassificationRule
	for key, group := range groups {
		if len(group) < minCorrections {
			continue
		}

		condition, ok := deriveCondition(group)
		if !ok {
			s.logger.Debug("no common pattern in correction group",
				"category", key.category, "corrections", len(group))
			continue
		}

		rule := &domain.ClassificationRule{
			ID:              domain.GenerateID(),
			Name:            fmt.Sprintf("suggested: %s from %d corrections", key.category, len(group)),
			WebSourceID:     webSourceID,
			Priority:        suggestedPriority,
			Conditions:      []domain.RuleCondition{condition},
			Category:        key.category,
			Subcategory:     key.subcategory,
			DocType:         key.docType,
			ConfidenceBoost: suggestedBoost,
			Enabled:         false,
			Suggested:       true,
		}
		if err := s.ruleStore.Save(ctx, rule); err != nil {
			return nil, fmt.Errorf("failed to save suggestion: %w", err)
		}

		ids := make([]string, 0, len(group))
		for _, c := range group {
			ids = append(ids, c.ID)
		}
		if err := s.correctionStore.MarkConsumed(ctx, ids); err != nil {
			return nil, fmt.Errorf("failed to mark corrections consumed: %w", err)
		}

		suggested = append(suggested, rule)
		s.logger.Info("rule suggested",
			"rule_id", rule.ID,
			"category", key.category,
			"corrections", len(group))
	}

	return suggested, nil
}

// ListSuggestions lists suggested rules awaiting activation
func (s *classificationService) ListSuggestions(ctx context.Context) ([]*domain.ClassificationRule, error) {
	return s.ruleStore.ListSuggested(ctx)
}

// ActivateSuggestion enables a suggested rule
func (s *classificationService) ActivateSuggestion(ctx context.Context, ruleID string) error {
	rule, err := s.ruleStore.Get(ctx, ruleID)
	if err != nil {
		return err
	}
	if !rule.Suggested {
		return fmt.Errorf("%w: rule %s is not a suggestion", domain.ErrInvalidInput, ruleID)
	}
	rule.Suggested = false
	rule.Enabled = true
	return s.ruleStore.Save(ctx, rule)
}

// evaluateRule checks every condition of a rule against a page. The rule
// matches when all non-negated conditions match and no negated condition
// does.
func evaluateRule(rule *domain.ClassificationRule, page *domain.Page) bool {
	for _, cond := range rule.Conditions {
		matches := evaluateCondition(cond, page)
		if cond.Negate {
			matches = !matches
		}
		if !matches {
			return false
		}
	}
	return true
}

func evaluateCondition(cond domain.RuleCondition, page *domain.Page) bool {
	for _, subject := range conditionSubjects(cond.Field, page) {
		if matchOp(cond.Op, subject, cond.Value) {
			return true
		}
	}
	return false
}

// conditionSubjects resolves the page attributes a condition field inspects.
// Breadcrumb conditions test each breadcrumb entry.
func conditionSubjects(field domain.ConditionField, page *domain.Page) []string {
	switch field {
	case domain.FieldURL:
		return []string{page.URL}
	case domain.FieldTitle:
		return []string{page.Title}
	case domain.FieldDomain:
		if u, err := url.Parse(page.URL); err == nil {
			return []string{u.Hostname()}
		}
		return nil
	case domain.FieldBreadcrumb:
		return page.Breadcrumbs
	default:
		return nil
	}
}

func matchOp(op domain.ConditionOp, subject, value string) bool {
	subject = strings.ToLower(subject)
	value = strings.ToLower(value)

	switch op {
	case domain.OpContains:
		return strings.Contains(subject, value)
	case domain.OpStartsWith:
		return strings.HasPrefix(subject, value)
	case domain.OpEndsWith:
		return strings.HasSuffix(subject, value)
	case domain.OpEquals:
		return subject == value
	case domain.OpRegex:
		re, err := regexp.Compile(value)
		if err != nil {
			return false
		}
		return re.MatchString(subject)
	case domain.OpSegment:
		for _, segment := range urlSegments(subject) {
			if segment == value {
				return true
			}
		}
		return false
	default:
		return false
	}
}

func urlSegments(rawURL string) []string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil
	}
	var segments []string
	for _, s := range strings.Split(u.Path, "/") {
		if s != "" {
			segments = append(segments, s)
		}
	}
	return segments
}

var pureNumeric = regexp.MustCompile(`^\d+$`)

// deriveCondition finds the pattern shared by a group of corrected pages:
// a URL path segment present in more than 70% of the URLs, or failing
// that the longest common substring of the URLs when longer than 3 chars.
func deriveCondition(group []*domain.Correction) (domain.RuleCondition, bool) {
	counts := make(map[string]int)
	for _, c := range group {
		seen := make(map[string]bool)
		for _, segment := range urlSegments(strings.ToLower(c.PageURL)) {
			if pureNumeric.MatchString(segment) || seen[segment] {
				continue
			}
			seen[segment] = true
			counts[segment]++
		}
	}

	var best string
	bestCount := 0
	for segment, count := range counts {
		if count > bestCount || (count == bestCount && segment < best) {
			best = segment
			bestCount = count
		}
	}
	if bestCount > 0 && float64(bestCount) > segmentShare*float64(len(group)) {
		return domain.RuleCondition{
			Field: domain.FieldURL,
			Op:    domain.OpSegment,
			Value: best,
		}, true
	}

	common := strings.ToLower(group[0].PageURL)
	for _, c := range group[1:] {
		common = longestCommonSubstring(common, strings.ToLower(c.PageURL))
		if len(common) <= minCommonSubstring {
			return domain.RuleCondition{}, false
		}
	}
	return domain.RuleCondition{
		Field: domain.FieldURL,
		Op:    domain.OpContains,
		Value: common,
	}, true
}

func longestCommonSubstring(a, b string) string {
	if a == "" || b == "" {
		return ""
	}
	ra, rb := []rune(a), []rune(b)
	prev := make([]int, len(rb)+1)
	best, bestEnd := 0, 0
	for i := 1; i <= len(ra); i++ {
		curr := make([]int, len(rb)+1)
		for j := 1; j <= len(rb); j++ {
			if ra[i-1] == rb[j-1] {
				curr[j] = prev[j-1] + 1
				if curr[j] > best {
					best = curr[j]
					bestEnd = i
				}
			}
		}
		prev = curr
	}
	return string(ra[bestEnd-best : bestEnd])
}
