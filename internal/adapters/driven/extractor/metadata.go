package extractor

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/qadhya-labs/qanun-core/internal/core/domain"
	"github.com/qadhya-labs/qanun-core/internal/core/ports/driven"
)

// Ensure LLMExtractor implements MetadataExtractor
var _ driven.MetadataExtractor = (*LLMExtractor)(nil)

// LLMExtractor fills metadata fields the regex pass could not find. It
// never invents confidence: values come from the model, clamped to [0, 1].
type LLMExtractor struct {
	client *Client
}

// NewLLMExtractor creates a chat-backed metadata extractor.
func NewLLMExtractor(apiKey, model, baseURL string) (*LLMExtractor, error) {
	client, err := NewClient(apiKey, model, baseURL)
	if err != nil {
		return nil, err
	}
	return &LLMExtractor{client: client}, nil
}

// categoryFields names the fields to request per document category. The
// field names match the regex extractors so results merge cleanly.
var categoryFields = map[string][]string{
	"jurisprudence": {
		domain.FieldDecisionNumber,
		domain.FieldDecisionDate,
		domain.FieldTribunal,
		domain.FieldChambre,
		domain.FieldLegalBasis,
	},
	"legislation": {
		domain.FieldLoiNumber,
		domain.FieldCodeName,
		domain.FieldArticleRange,
	},
	"jort": {
		domain.FieldJortNumber,
	},
	"doctrine": {
		domain.FieldAuthor,
		domain.FieldPublication,
		domain.FieldUniversity,
	},
}

const extractSystemPrompt = `You extract structured metadata from Tunisian legal documents written in Arabic or French.
Respond with a JSON object of the form {"fields": {<name>: <string value>}, "confidence": {<name>: <number in [0,1]>}}.
Only include fields you actually found in the text. Dates use the YYYY-MM-DD format. Never guess.`

// extractPayload is the JSON contract with the model
type extractPayload struct {
	Fields     map[string]string  `json:"fields"`
	Confidence map[string]float64 `json:"confidence"`
}

// Extract asks the model for the category's metadata fields.
func (e *LLMExtractor) Extract(ctx context.Context, category, title, text string) (*domain.ExtractionResult, error) {
	fields := categoryFields[category]
	if len(fields) == 0 {
		// Unknown category: ask for everything the contract knows about
		for _, names := range categoryFields {
			fields = append(fields, names...)
		}
	}

	var prompt strings.Builder
	fmt.Fprintf(&prompt, "Category: %s\n", category)
	fmt.Fprintf(&prompt, "Fields to extract: %s\n", strings.Join(fields, ", "))
	if title != "" {
		fmt.Fprintf(&prompt, "Title: %s\n", title)
	}
	fmt.Fprintf(&prompt, "Document text:\n%s", truncate(text))

	raw, err := e.client.CompleteJSON(ctx, extractSystemPrompt, prompt.String())
	if err != nil {
		return nil, fmt.Errorf("llm extraction failed: %w", err)
	}

	var payload extractPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("llm extraction returned invalid JSON: %w", err)
	}

	result := domain.NewExtractionResult(domain.ExtractionLLM)
	for name, value := range payload.Fields {
		value = strings.TrimSpace(value)
		if value == "" {
			continue
		}
		confidence := payload.Confidence[name]
		if confidence <= 0 {
			// Model reported a value without a confidence; treat as weak
			confidence = 0.5
		}
		if confidence > 1 {
			confidence = 1
		}
		result.SetField(name, value, confidence)
	}

	return result, nil
}

// Ping checks the collaborator is reachable
func (e *LLMExtractor) Ping(ctx context.Context) error {
	return e.client.Ping(ctx)
}

// Close cleans up resources
func (e *LLMExtractor) Close() error {
	return e.client.Close()
}
