package compress

import "regexp"

// Entity types produced by pattern extraction
const (
	EntityPerson = "PERSON"
	EntityOrg    = "ORG"
	EntityGPE    = "GPE"
	EntityMoney  = "MONEY"
	EntityDate   = "DATE"
)

// EntityPattern pairs an entity type with the regexp that detects it.
// Group selects the submatch to keep; 0 keeps the whole match.
type EntityPattern struct {
	Type    string
	Pattern *regexp.Regexp
	Group   int
}

// LanguageProfile bundles the language-specific tables the compressor needs.
// Adding a language means registering one profile, not branching in every
// function.
type LanguageProfile struct {
	Code           string
	StopWords      map[string]bool
	EntityPatterns []EntityPattern
}

// IsStopWord reports whether the token is in the profile's stop-word set.
func (p *LanguageProfile) IsStopWord(token string) bool {
	return p.StopWords[token]
}

var profiles = map[string]*LanguageProfile{}

// RegisterProfile adds a language profile to the registry, replacing any
// existing profile with the same code.
func RegisterProfile(p *LanguageProfile) {
	profiles[p.Code] = p
}

// Profile returns the registered profile for the language code, falling back
// to English for unknown codes.
func Profile(code string) *LanguageProfile {
	if p, ok := profiles[code]; ok {
		return p
	}
	return profiles["en"]
}

func stopWordSet(words ...string) map[string]bool {
	set := make(map[string]bool, len(words))
	for _, w := range words {
		set[w] = true
	}
	return set
}

func init() {
	// Go's \b is ASCII-only, so the Ukrainian patterns anchor on the
	// character classes themselves instead of word boundaries.
	RegisterProfile(&LanguageProfile{
		Code: "uk",
		StopWords: stopWordSet(
			"і", "в", "на", "з", "до", "за", "під", "над", "між", "про", "для",
			"від", "при", "по", "у", "та", "або", "але", "а", "чи", "не", "ні",
			"що", "який", "яка", "яке", "які", "хто", "де", "коли", "як", "чому",
			"це", "той", "те", "ті", "він", "вона", "воно", "вони", "я",
			"ти", "ми", "ви", "мій", "твій", "його", "її", "наш", "ваш", "їх",
			"є", "був", "була", "було", "були", "буде", "будуть", "мати", "має",
			"мав", "мала", "мало", "мали", "можна", "треба", "потрібно",
		),
		EntityPatterns: []EntityPattern{
			{EntityPerson, regexp.MustCompile(`[А-ЯІЇЄҐ][а-яіїєґ']+(?:\s[А-ЯІЇЄҐ][а-яіїєґ']+){1,2}`), 0},
			{EntityOrg, regexp.MustCompile(`[А-ЯІЇЄҐ][а-яіїєґ\s]*(?:підприємство|компанія|корпорація|організація|агентство|департамент|міністерство|служба|установа|фонд|партія)`), 0},
			{EntityGPE, regexp.MustCompile(`(?:у|в|з|до|від)\s+([А-ЯІЇЄҐ][а-яіїєґ']+(?:\s[А-ЯІЇЄҐ][а-яіїєґ']+)?)`), 1},
			{EntityMoney, regexp.MustCompile(`(?i)(?:₴|грн\.?|\$|€)\s?[\d][\d\s,]*(?:\.\d{2})?(?:\s*(?:мільйон|мільярд|трильйон|тисяч|млн|млрд))?`), 0},
			{EntityDate, regexp.MustCompile(`(?i)\d{1,2}\s+(?:січня|лютого|березня|квітня|травня|червня|липня|серпня|вересня|жовтня|листопада|грудня)(?:\s+\d{4})?`), 0},
		},
	})

	RegisterProfile(&LanguageProfile{
		Code: "en",
		StopWords: stopWordSet(
			"the", "a", "an", "and", "or", "but", "in", "on", "at", "to", "for",
			"of", "with", "by", "is", "are", "was", "were", "be", "been", "being",
			"have", "has", "had", "do", "does", "did", "will", "would", "could",
			"should", "may", "might", "must", "can", "this", "that", "these", "those",
		),
		EntityPatterns: []EntityPattern{
			{EntityPerson, regexp.MustCompile(`\b[A-Z][a-z]+ [A-Z][a-z]+(?:\s[A-Z][a-z]+)?\b`), 0},
			{EntityOrg, regexp.MustCompile(`\b[A-Z][a-zA-Z\s]*(?:Corp|Inc|Ltd|LLC|Company|Organization|Agency|Department|Ministry)\b`), 0},
			{EntityGPE, regexp.MustCompile(`\b(?:in|at|from)\s+([A-Z][a-z]+(?:\s[A-Z][a-z]+)?)`), 1},
			{EntityMoney, regexp.MustCompile(`(?i)\$[\d,]+(?:\.\d{2})?(?:\s*(?:million|billion|trillion))?`), 0},
			{EntityDate, regexp.MustCompile(`(?i)\b(?:January|February|March|April|May|June|July|August|September|October|November|December)\s+\d{1,2},?\s+\d{4}\b`), 0},
		},
	})
}
