package domain

import "time"

// ExtractionMethod records how a metadata version was produced
type ExtractionMethod string

const (
	ExtractionRegex  ExtractionMethod = "regex"
	ExtractionLLM    ExtractionMethod = "llm"
	ExtractionHybrid ExtractionMethod = "hybrid"
	ExtractionManual ExtractionMethod = "manual"
)

// Language codes detected in legal texts
const (
	LangArabic    = "ar"
	LangFrench    = "fr"
	LangBilingual = "bi"
)

// Metadata field names shared between the regex extractors, the LLM
// collaborator contract and the stores.
const (
	FieldDecisionNumber = "decision_number"
	FieldDecisionDate   = "decision_date"
	FieldTribunal       = "tribunal"
	FieldChambre        = "chambre"
	FieldLegalBasis     = "legal_basis"
	FieldLoiNumber      = "loi_number"
	FieldJortNumber     = "jort_number"
	FieldCodeName       = "code_name"
	FieldArticleRange   = "article_range"
	FieldAuthor         = "author"
	FieldPublication    = "publication"
	FieldUniversity     = "university"
)

// ExtractionResult is one extractor's output: field values plus a
// per-field confidence map. Confidence values are in [0, 1].
type ExtractionResult struct {
	Fields     map[string]string  `json:"fields"`
	Confidence map[string]float64 `json:"confidence"`
	Language   string             `json:"language,omitempty"`
	LangScore  float64            `json:"lang_score,omitempty"`
	Method     ExtractionMethod   `json:"method"`
}

// NewExtractionResult creates an empty result for the given method
func NewExtractionResult(method ExtractionMethod) *ExtractionResult {
	return &ExtractionResult{
		Fields:     make(map[string]string),
		Confidence: make(map[string]float64),
		Method:     method,
	}
}

// SetField records a field value with its confidence
func (r *ExtractionResult) SetField(name, value string, confidence float64) {
	if value == "" {
		return
	}
	r.Fields[name] = value
	r.Confidence[name] = confidence
}

// Merge folds another result into this one, keeping whichever side has
// the higher confidence for each field. The merged result is hybrid when
// both sides contributed fields.
func (r *ExtractionResult) Merge(other *ExtractionResult) *ExtractionResult {
	if other == nil || len(other.Fields) == 0 {
		return r
	}
	merged := NewExtractionResult(r.Method)
	for name, value := range r.Fields {
		merged.Fields[name] = value
		merged.Confidence[name] = r.Confidence[name]
	}
	tookOther := false
	for name, value := range other.Fields {
		if existing, ok := merged.Confidence[name]; !ok || other.Confidence[name] > existing {
			merged.Fields[name] = value
			merged.Confidence[name] = other.Confidence[name]
			tookOther = true
		}
	}
	if len(r.Fields) > 0 && tookOther {
		merged.Method = ExtractionHybrid
	} else if len(r.Fields) == 0 {
		merged.Method = other.Method
	}
	merged.Language = r.Language
	merged.LangScore = r.LangScore
	if merged.Language == "" {
		merged.Language = other.Language
		merged.LangScore = other.LangScore
	}
	return merged
}

// Metadata is a persisted, versioned snapshot of structured metadata for
// a page. Re-extraction writes a new version rather than mutating the old
// one.
type Metadata struct {
	ID         string             `json:"id"`
	PageID     string             `json:"page_id"`
	Version    int                `json:"version"`
	Category   string             `json:"category"`
	Fields     map[string]string  `json:"fields"`
	Confidence map[string]float64 `json:"confidence"`
	Language   string             `json:"language,omitempty"`
	Method     ExtractionMethod   `json:"method"`
	CreatedAt  time.Time          `json:"created_at"`
}
