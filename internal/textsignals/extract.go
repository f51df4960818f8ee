// Package textsignals extracts structured metadata from legal page text
// using category-specific regular expressions. It is the cheap first pass
// of the hybrid extraction strategy; the LLM collaborator only fills the
// fields this package cannot.
package textsignals

import (
	"regexp"
	"strings"

	"github.com/qadhya-labs/qanun-core/internal/core/domain"
)

// Per-field confidence of the regex extractors. Patterns anchored on
// court names are near-certain; free-text references less so.
const (
	confCassation  = 0.95
	confChambre    = 0.90
	confAppel      = 0.85
	confLegalBasis = 0.80
	confNumber     = 0.90
	confDate       = 0.85
	confGeneric    = 0.75
)

var (
	// Jurisprudence signals, Arabic and French forms
	cassationPattern = regexp.MustCompile(`(?i)(محكمة التعقيب|cour de cassation)`)
	appelPattern     = regexp.MustCompile(`(?i)(محكمة الاستئناف|cour d'appel)`)
	chambrePattern   = regexp.MustCompile(`(?i)(chambre (?:civile|pénale|criminelle|commerciale|sociale|immobilière)|الدائرة (?:المدنية|الجزائية|التجارية|الاجتماعية|العقارية))`)
	decisionNumber   = regexp.MustCompile(`(?i)(?:قرار عدد|حكم عدد|arrêt n[°o]\s*|décision n[°o]\s*|jugement n[°o]\s*)\s*(\d+)`)
	decisionDate     = regexp.MustCompile(`(\d{1,2}[/-]\d{1,2}[/-]\d{4})`)
	legalBasis       = regexp.MustCompile(`(?i)(الفصل \d+ من [^\n.،]+|article \d+ du code [^\n.,]+)`)

	// Legislation signals
	loiNumber  = regexp.MustCompile(`(?i)(?:loi n[°o]\s*(\d{4}-\d+)|قانون عدد\s*(\d+)\s*لسنة\s*(\d{4}))`)
	jortNumber = regexp.MustCompile(`(?i)(?:jort|الرائد الرسمي)[^\d]{0,20}(\d+)`)
	codeName   = regexp.MustCompile(`(?i)(code (?:de la |de l'|des |du |de )?[a-zéèêàçûôî' -]{3,40}|مجلة [\p{Arabic} ]{3,40})`)

	// Doctrine signals
	authorPattern      = regexp.MustCompile(`(?:[Pp]ar|بقلم)\s+([A-ZÉÈ][a-zéèêàçûôî]+(?:\s+[A-ZÉÈ][a-zéèêàçûôî]+){1,2})`)
	publicationPattern = regexp.MustCompile(`(?i)(revue [a-zéèêàçûôî' -]{3,60}|مجلة القضاء والتشريع)`)
	universityPattern  = regexp.MustCompile(`(?i)(universit[ée] de [a-zéèêàçûôî' -]{3,40}|facult[ée] de [a-zéèêàçûôî' -]{3,40}|كلية الحقوق[\p{Arabic} ]{0,30}|جامعة [\p{Arabic} ]{3,30})`)
)

// Extract runs the category's regex extractors over a page and returns
// the fields they recognised. The result always carries the detected
// language; it may hold no fields at all.
func Extract(category, title, text string) *domain.ExtractionResult {
	result := domain.NewExtractionResult(domain.ExtractionRegex)

	combined := title + "\n" + text
	result.Language, result.LangScore = DetectLanguage(text)

	switch category {
	case "jurisprudence":
		extractJurisprudence(result, combined)
	case "legislation", "jort":
		extractLegislation(result, combined)
	case "doctrine":
		extractDoctrine(result, combined)
	default:
		// Unknown categories still get the cross-cutting signals
		extractJurisprudence(result, combined)
		extractLegislation(result, combined)
	}

	return result
}

func extractJurisprudence(result *domain.ExtractionResult, text string) {
	if m := cassationPattern.FindString(text); m != "" {
		result.SetField(domain.FieldTribunal, normaliseSpace(m), confCassation)
	} else if m := appelPattern.FindString(text); m != "" {
		result.SetField(domain.FieldTribunal, normaliseSpace(m), confAppel)
	}

	if m := chambrePattern.FindString(text); m != "" {
		result.SetField(domain.FieldChambre, normaliseSpace(m), confChambre)
	}

	if m := decisionNumber.FindStringSubmatch(text); m != nil {
		result.SetField(domain.FieldDecisionNumber, m[1], confNumber)
	}

	if m := decisionDate.FindStringSubmatch(text); m != nil {
		result.SetField(domain.FieldDecisionDate, m[1], confDate)
	}

	if m := legalBasis.FindString(text); m != "" {
		result.SetField(domain.FieldLegalBasis, normaliseSpace(m), confLegalBasis)
	}
}

func extractLegislation(result *domain.ExtractionResult, text string) {
	if m := loiNumber.FindStringSubmatch(text); m != nil {
		value := m[1]
		if value == "" && m[2] != "" && m[3] != "" {
			// Arabic form gives year and number separately
			value = m[3] + "-" + m[2]
		}
		result.SetField(domain.FieldLoiNumber, value, confNumber)
	}

	if m := jortNumber.FindStringSubmatch(text); m != nil {
		result.SetField(domain.FieldJortNumber, m[1], confGeneric)
	}

	if m := codeName.FindString(text); m != "" {
		result.SetField(domain.FieldCodeName, normaliseSpace(m), confGeneric)
	}
}

func extractDoctrine(result *domain.ExtractionResult, text string) {
	if m := authorPattern.FindStringSubmatch(text); m != nil {
		result.SetField(domain.FieldAuthor, m[1], confGeneric)
	}

	if m := publicationPattern.FindString(text); m != "" {
		result.SetField(domain.FieldPublication, normaliseSpace(m), confGeneric)
	}

	if m := universityPattern.FindString(text); m != "" {
		result.SetField(domain.FieldUniversity, normaliseSpace(m), confGeneric)
	}
}

func normaliseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
