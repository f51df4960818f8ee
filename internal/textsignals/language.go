package textsignals

import (
	"unicode"

	"github.com/qadhya-labs/qanun-core/internal/core/domain"
)

// DetectLanguage classifies a legal text as Arabic, French or bilingual
// from its script ratio. Mixed texts are common: Tunisian codes carry an
// Arabic body with French headings.
func DetectLanguage(text string) (lang string, score float64) {
	var arabic, latin int
	for _, r := range text {
		switch {
		case unicode.Is(unicode.Arabic, r):
			arabic++
		case unicode.IsLetter(r) && r < 0x250:
			latin++
		}
	}

	total := arabic + latin
	if total == 0 {
		return "", 0
	}

	ratio := float64(arabic) / float64(total)
	switch {
	case ratio > 0.7:
		return domain.LangArabic, 1.0
	case ratio < 0.3:
		return domain.LangFrench, 1.0
	default:
		return domain.LangBilingual, 0.8
	}
}
