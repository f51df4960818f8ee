package extractor

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/qadhya-labs/qanun-core/internal/core/domain"
	"github.com/qadhya-labs/qanun-core/internal/core/ports/driven"
)

// Ensure LLMAnalyzer implements ContradictionAnalyzer
var _ driven.ContradictionAnalyzer = (*LLMAnalyzer)(nil)

// LLMAnalyzer asks the model whether two similar legal texts contradict
// each other. Its verdict is stored on the relation unchanged.
type LLMAnalyzer struct {
	client *Client
}

// NewLLMAnalyzer creates a chat-backed contradiction analyzer.
func NewLLMAnalyzer(apiKey, model, baseURL string) (*LLMAnalyzer, error) {
	client, err := NewClient(apiKey, model, baseURL)
	if err != nil {
		return nil, err
	}
	return &LLMAnalyzer{client: client}, nil
}

const analyzeSystemPrompt = `You compare two Tunisian legal texts from the same legal domain and decide whether they contradict each other.
Respond with a JSON object: {"is_contradiction": <bool>, "severity": "low"|"medium"|"high"|"critical", "source_excerpt": <string>, "target_excerpt": <string>, "suggested_resolution": <string>}.
Excerpts quote the conflicting passages in their original language. When there is no contradiction, set is_contradiction to false and leave the other fields empty.`

// analysisPayload is the JSON contract with the model
type analysisPayload struct {
	IsContradiction     bool   `json:"is_contradiction"`
	Severity            string `json:"severity"`
	SourceExcerpt       string `json:"source_excerpt"`
	TargetExcerpt       string `json:"target_excerpt"`
	SuggestedResolution string `json:"suggested_resolution"`
}

// Analyze returns the model's contradiction verdict for the pair.
func (a *LLMAnalyzer) Analyze(ctx context.Context, source, target *domain.Document) (*domain.ContradictionAnalysis, error) {
	var prompt strings.Builder
	fmt.Fprintf(&prompt, "Legal domain: %s\n\n", source.LegalDomain)
	fmt.Fprintf(&prompt, "Text A (%s):\n%s\n\n", documentLabel(source), truncate(source.ConsolidatedText))
	fmt.Fprintf(&prompt, "Text B (%s):\n%s", documentLabel(target), truncate(target.ConsolidatedText))

	raw, err := a.client.CompleteJSON(ctx, analyzeSystemPrompt, prompt.String())
	if err != nil {
		return nil, fmt.Errorf("contradiction analysis failed: %w", err)
	}

	var payload analysisPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("contradiction analysis returned invalid JSON: %w", err)
	}

	analysis := &domain.ContradictionAnalysis{
		IsContradiction: payload.IsContradiction,
	}
	if !payload.IsContradiction {
		return analysis, nil
	}

	analysis.Severity = parseSeverity(payload.Severity)
	analysis.SourceExcerpt = payload.SourceExcerpt
	analysis.TargetExcerpt = payload.TargetExcerpt
	analysis.SuggestedResolution = payload.SuggestedResolution

	return analysis, nil
}

// documentLabel prefers the French title, then the Arabic one, then the
// citation key
func documentLabel(doc *domain.Document) string {
	switch {
	case doc.TitleFr != "":
		return doc.TitleFr
	case doc.TitleAr != "":
		return doc.TitleAr
	default:
		return doc.CitationKey
	}
}

func parseSeverity(s string) domain.ContradictionSeverity {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "low":
		return domain.SeverityLow
	case "medium":
		return domain.SeverityMedium
	case "high":
		return domain.SeverityHigh
	case "critical":
		return domain.SeverityCritical
	default:
		return domain.SeverityMedium
	}
}
