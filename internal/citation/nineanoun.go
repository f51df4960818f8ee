package citation

import (
	"regexp"
	"strings"

	"github.com/qadhya-labs/qanun-core/internal/core/domain"
)

// codeDef describes one Tunisian legal code published under /kb/codes/{slug}
// on 9anoun.tn.
type codeDef struct {
	LegalDomain string
	DocType     string
	TitleAr     string
	TitleFr     string
}

// nineAnounCodes maps the /kb/codes/{slug} paths of 9anoun.tn to their
// legal domain and bilingual titles. The slug list mirrors the site's
// published code index.
var nineAnounCodes = map[string]codeDef{
	// Civil
	"code-obligations-contrats": {"civil", "loi", "مجلة الالتزامات والعقود", "Code des Obligations et des Contrats"},
	"code-nationalite":          {"civil", "loi", "مجلة الجنسية", "Code de la Nationalité"},

	// Immobilier
	"code-droits-reels": {"immobilier", "loi", "مجلة الحقوق العينية", "Code des Droits Réels"},
	"code-foncier":      {"immobilier", "loi", "مجلة الحقوق العينية", "Code Foncier"},

	// Famille
	"code-statut-personnel":  {"famille", "loi", "مجلة الأحوال الشخصية", "Code du Statut Personnel"},
	"code-protection-enfant": {"famille", "loi", "مجلة حماية الطفل", "Code de Protection de l'Enfant"},

	// Commercial
	"code-commerce":                    {"commercial", "loi", "المجلة التجارية", "Code de Commerce"},
	"code-changes-commerce-exterieur":  {"commercial", "loi", "مجلة الصرف و التجارة الخارجية", "Code des Changes et du Commerce Extérieur"},
	"projet-code-des-changes-2024":     {"commercial", "loi", "Projet du Code des Changes 2024", "Projet du Code des Changes 2024"},
	"code-societes-commerciales":       {"societes", "loi", "مجلة الشركات التجارية", "Code des Sociétés Commerciales"},

	// Maritime
	"code-commerce-maritime":                {"maritime", "loi", "مجلة التجارة البحرية", "Code de Commerce Maritime"},
	"code-ports-maritimes":                  {"maritime", "loi", "مجلة الموانئ البحرية", "Code des Ports Maritimes"},
	"code-organisation-navigation-maritime": {"maritime", "loi", "مجلة التنظيم الإداري للملاحة البحرية", "Code de l'Organisation Administrative de la Navigation Maritime"},
	"code-peche-maritime":                   {"maritime", "loi", "مجلة الصياد البحري", "Code de la Pêche Maritime"},

	// Pénal
	"code-penal":                       {"penal", "loi", "المجلة الجزائية", "Code Pénal"},
	"code-justice-militaire":           {"penal", "loi", "مجلة المرافعات والعقوبات العسكرية", "Code de Justice Militaire"},
	"code-disciplinaire-penal-maritime": {"penal", "loi", "المجلة التأديبية والجزائية البحرية", "Code Disciplinaire et Pénal Maritime"},

	// Procédure
	"code-procedure-civile-commerciale": {"procedure_civile", "loi", "مجلة المرافعات المدنية والتجارية", "Code de Procédure Civile et Commerciale"},
	"code-procedure-penale":             {"procedure_penale", "loi", "مجلة الإجراءات الجزائية", "Code de Procédure Pénale"},
	"code-arbitrage":                    {"arbitrage", "loi", "مجلة التحكيم", "Code de l'Arbitrage"},

	// Social
	"code-travail":                              {"social", "loi", "مجلة الشغل", "Code du Travail"},
	"code-travail-maritime":                     {"social", "loi", "مجلة الشغل البحري", "Code du Travail Maritime"},
	"code-travail-proposition-amendements-2025": {"social", "loi", "مشروع قانون يتعلق بتنظيم عقود الشغل ومنع المناولة", "Projet de loi sur les contrats de travail"},

	// Fiscal
	"code-impot-sur-revenu-personnes-physiques-impot-sur-les-societes": {"fiscal", "loi", "مجلة الضريبة على دخل الأشخاص الطبيعيين والضريبة على الشركات", "Code de l'Impôt sur le Revenu et sur les Sociétés"},
	"code-tva":                         {"fiscal", "loi", "مجلة الأداء على القيمة المضافة", "Code de la TVA"},
	"code-droits-procedures-fiscales":  {"fiscal", "loi", "مجلة الحقوق والإجراءات الجبائية", "Code des Droits et Procédures Fiscales"},
	"code-enregistrement-timbre-fiscal": {"fiscal", "loi", "مجلة معاليم التسجيل والطابع الجبائي", "Code de l'Enregistrement et du Timbre Fiscal"},
	"code-fiscalite-locale":            {"fiscal", "loi", "مجلة الجباية المحلية", "Code de la Fiscalité Locale"},

	// Douanier
	"code-douanes": {"douanier", "loi", "مجلة الديوانة", "Code des Douanes"},

	// Administratif
	"code-comptabilite-publique":           {"administratif", "loi", "مجلة المحاسبة العمومية", "Code de Comptabilité Publique"},
	"code-collectivites-locales":           {"administratif", "loi", "مجلة الجماعات المحلية", "Code des Collectivités Locales"},
	"code-amenagement-territoire-urbanisme": {"administratif", "loi", "مجلة التهيئة الترابية والتعمير", "Code de l'Aménagement du Territoire et de l'Urbanisme"},
	"code-decorations":                     {"administratif", "loi", "مجلة الأوسمة", "Code des Décorations"},
	"code-presse":                          {"administratif", "loi", "مجلة الصحافة", "Code de la Presse"},
	"code-patrimoine":                      {"administratif", "loi", "مجلة حماية التراث الأثرى و التاريخى و الفنون التقليدية", "Code du Patrimoine"},
	"code-cinema":                          {"administratif", "loi", "مجلة تنطيم الصناعة السينمائية", "Code du Cinéma"},
	"code-route":                           {"administratif", "loi", "مجلة الطرقات", "Code de la Route"},
	"code-postal":                          {"administratif", "loi", "مجلة البريد", "Code Postal"},
	"code-deontologie-medicale":            {"administratif", "loi", "مجلة واجبات الطبيب", "Code de Déontologie Médicale"},
	"code-deontologie-veterinaire":         {"administratif", "loi", "مجلة واجبات الطبيب البيطرى", "Code de Déontologie Vétérinaire"},
	"code-deontologie-architectes":         {"administratif", "loi", "مجلة الواجبات المهنية للمهندسين المعماريين", "Code de Déontologie des Architectes"},
	"code-prevention-incendies":            {"administratif", "loi", "مجلة السلامة والوقاية من أخطار الحريق والانفجار والفزع بالبنايات", "Code de Prévention des Incendies"},

	// Assurance
	"code-assurances": {"assurance", "loi", "مجلة التأمين", "Code des Assurances"},

	// International privé
	"code-droit-international-prive": {"international_prive", "loi", "مجلة القانون الدولي الخاص", "Code de Droit International Privé"},

	// Bancaire / financier
	"code-services-financiers-non-residents": {"bancaire", "loi", "مجلة إسداء الخدمات المالية لغير المقيمين", "Code des Services Financiers aux Non-Résidents"},
	"code-opcvm":           {"bancaire", "loi", "مجلة مؤسسات التوظيف الجماعي", "Code des Organismes de Placement Collectif"},
	"code-investissements": {"bancaire", "loi", "مجلة تشجيع الإستثمارات", "Code des Investissements"},

	// Environnement
	"code-forestier": {"environnement", "loi", "مجلة الغابات", "Code Forestier"},
	"code-eaux":      {"environnement", "loi", "مجلة المياه", "Code des Eaux"},

	// Énergie
	"code-minier":        {"energie", "loi", "مجلة المناجم", "Code Minier"},
	"code-hydrocarbures": {"energie", "loi", "مجلة المحروقات", "Code des Hydrocarbures"},

	// Aérien
	"code-aviation-civile": {"aerien", "loi", "مجلة الطيران المدني", "Code de l'Aviation Civile"},

	// Télécom / numérique
	"code-telecommunications": {"numerique", "loi", "مجلة الاتصالات", "Code des Télécommunications"},
}

// sectionDef describes one non-code knowledge-base section under /kb/{section}
type sectionDef struct {
	Category    string
	LegalDomain string
	DocType     string
}

// nineAnounSections maps /kb/{section} paths to their category and
// document type.
var nineAnounSections = map[string]sectionDef{
	"jurisprudence": {"jurisprudence", "", "arret"},
	"doctrine":      {"doctrine", "", "article_doctrine"},
	"jorts":         {"jort", "", "jort_publication"},
	"constitutions": {"legislation", "constitutionnel", "constitution"},
	"conventions":   {"legislation", "international_public", "convention"},
	"lois":          {"legislation", "", "loi"},
}

// articlePattern matches an article path segment like "article-201",
// "article_201" or "article201".
var articlePattern = regexp.MustCompile(`^article[-_]?(\d+)$`)

// numericPattern matches a pure-number path segment.
var numericPattern = regexp.MustCompile(`^\d+$`)

// NineAnounNormaliser derives document identities for 9anoun.tn pages.
// Code pages get a stable "{slug}-tunisien" citation key so every crawled
// article of one code converges on the same canonical document.
type NineAnounNormaliser struct{}

// NewNineAnounNormaliser creates the 9anoun.tn normaliser.
func NewNineAnounNormaliser() *NineAnounNormaliser {
	return &NineAnounNormaliser{}
}

func (n *NineAnounNormaliser) Hosts() []string {
	return []string{"9anoun.tn", "www.9anoun.tn"}
}

func (n *NineAnounNormaliser) Priority() int {
	return 90 // Source-specific
}

func (n *NineAnounNormaliser) Normalise(page *domain.Page) domain.DocumentIdentity {
	segments := pathSegments(page.URL)
	if len(segments) < 2 || segments[0] != "kb" {
		return domain.DocumentIdentity{}
	}

	if segments[1] == "codes" && len(segments) >= 3 {
		return n.normaliseCode(segments[2:])
	}

	if section, ok := nineAnounSections[segments[1]]; ok && len(segments) >= 3 {
		return n.normaliseSection(section, segments[2:], page.Title)
	}

	return domain.DocumentIdentity{}
}

// normaliseCode handles /kb/codes/{slug}[/...] paths.
func (n *NineAnounNormaliser) normaliseCode(segments []string) domain.DocumentIdentity {
	slug := segments[0]
	def, ok := nineAnounCodes[slug]
	if !ok {
		return domain.DocumentIdentity{}
	}

	return domain.DocumentIdentity{
		CitationKey:    slug + "-tunisien",
		ArticleLocator: articleLocator(segments[1:]),
		DocType:        def.DocType,
		LegalDomain:    def.LegalDomain,
		TitleAr:        def.TitleAr,
		TitleFr:        def.TitleFr,
		Category:       "legislation",
		Subcategory:    "codes",
	}
}

// normaliseSection handles the non-code KB sections. The final path
// segment is the document's own slug; no article locator applies.
func (n *NineAnounNormaliser) normaliseSection(section sectionDef, segments []string, title string) domain.DocumentIdentity {
	slug := segments[len(segments)-1]
	if slug == "" || numericPattern.MatchString(slug) && len(segments) > 1 {
		slug = segments[len(segments)-2]
	}

	return domain.DocumentIdentity{
		CitationKey: slug,
		DocType:     section.DocType,
		LegalDomain: section.LegalDomain,
		TitleFr:     title,
		Category:    section.Category,
	}
}

// articleLocator extracts a numeric article locator from the remaining
// path segments. The locator is a pure integer string with leading zeros
// stripped, or empty when no segment carries one.
func articleLocator(segments []string) string {
	for _, s := range segments {
		s = strings.ToLower(s)
		if m := articlePattern.FindStringSubmatch(s); m != nil {
			return stripLeadingZeros(m[1])
		}
		if numericPattern.MatchString(s) {
			return stripLeadingZeros(s)
		}
	}
	return ""
}

func stripLeadingZeros(s string) string {
	trimmed := strings.TrimLeft(s, "0")
	if trimmed == "" {
		return "0"
	}
	return trimmed
}
