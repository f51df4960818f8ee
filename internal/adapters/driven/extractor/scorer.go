package extractor

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/qadhya-labs/qanun-core/internal/core/domain"
	"github.com/qadhya-labs/qanun-core/internal/core/ports/driven"
)

// Ensure LLMScorer implements QualityScorer
var _ driven.QualityScorer = (*LLMScorer)(nil)

// LLMScorer scores consolidation quality on a 0-100 scale.
type LLMScorer struct {
	client *Client
}

// NewLLMScorer creates a chat-backed quality scorer.
func NewLLMScorer(apiKey, model, baseURL string) (*LLMScorer, error) {
	client, err := NewClient(apiKey, model, baseURL)
	if err != nil {
		return nil, err
	}
	return &LLMScorer{client: client}, nil
}

const scoreSystemPrompt = `You assess the quality of a consolidated Tunisian legal document: completeness, article ordering, absence of navigation noise or duplicated passages.
Respond with a JSON object: {"score": <number in [0,100]>}. 100 means publication quality.`

type scorePayload struct {
	Score float64 `json:"score"`
}

// Score returns the model's quality assessment for the document.
func (s *LLMScorer) Score(ctx context.Context, doc *domain.Document) (float64, error) {
	var prompt strings.Builder
	fmt.Fprintf(&prompt, "Citation key: %s\n", doc.CitationKey)
	fmt.Fprintf(&prompt, "Pages consolidated: %d\n", doc.PageCount)
	fmt.Fprintf(&prompt, "Consolidated text:\n%s", truncate(doc.ConsolidatedText))

	raw, err := s.client.CompleteJSON(ctx, scoreSystemPrompt, prompt.String())
	if err != nil {
		return 0, fmt.Errorf("quality scoring failed: %w", err)
	}

	var payload scorePayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return 0, fmt.Errorf("quality scoring returned invalid JSON: %w", err)
	}

	score := payload.Score
	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}

	return score, nil
}
