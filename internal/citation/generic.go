package citation

import (
	"regexp"
	"strings"

	"github.com/qadhya-labs/qanun-core/internal/core/domain"
)

// slugPattern accepts lowercase ASCII slugs with hyphen separators.
var slugPattern = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)

// GenericNormaliser is the fallback for hosts without a dedicated
// normaliser. It derives a citation key from the last slug-like path
// segment; pages without one get a zero identity and land in the
// unclassified bucket.
type GenericNormaliser struct{}

func (n *GenericNormaliser) Hosts() []string {
	return []string{"*"}
}

func (n *GenericNormaliser) Priority() int {
	return 1 // Fallback
}

func (n *GenericNormaliser) Normalise(page *domain.Page) domain.DocumentIdentity {
	segments := pathSegments(page.URL)

	var slug, locator string
	for i := len(segments) - 1; i >= 0; i-- {
		s := strings.ToLower(segments[i])
		if numericPattern.MatchString(s) {
			// A trailing number is an article locator, not an identity
			if locator == "" && slug == "" {
				locator = stripLeadingZeros(s)
			}
			continue
		}
		if slugPattern.MatchString(s) && len(s) > 3 {
			slug = s
			break
		}
	}

	if slug == "" {
		return domain.DocumentIdentity{}
	}

	return domain.DocumentIdentity{
		CitationKey:    slug,
		ArticleLocator: locator,
		TitleFr:        page.Title,
	}
}
