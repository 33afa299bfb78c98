package analyzer

import "strings"

// builtinStopwords holds the default per-language stop lists. They are
// intentionally compact — core function words, not an exhaustive corpus
// stoplist — and are meant to be extended via stopword_overrides in the
// YAML config, overlaid the same way other override-over-default config
// files in this module are loaded.
var builtinStopwords = map[string][]string{
	"english": {
		"a", "an", "the", "and", "or", "but", "if", "then", "else", "of",
		"at", "by", "for", "with", "about", "against", "between", "into",
		"through", "during", "before", "after", "above", "below", "to",
		"from", "up", "down", "in", "out", "on", "off", "over", "under",
		"again", "further", "is", "are", "was", "were", "be", "been",
		"being", "have", "has", "had", "having", "do", "does", "did",
		"doing", "this", "that", "these", "those", "it", "its", "as",
		"not", "no", "so", "than", "too", "very", "can", "will", "just",
	},
	"spanish": {
		"el", "la", "los", "las", "un", "una", "unos", "unas", "y", "o",
		"pero", "si", "de", "del", "en", "por", "para", "con", "sin",
		"sobre", "entre", "hacia", "hasta", "desde", "es", "son", "era",
		"eran", "ser", "estar", "fue", "fueron", "ha", "han", "haber",
		"este", "esta", "estos", "estas", "ese", "esa", "esos", "esas",
		"no", "se", "lo", "le", "su", "sus", "al", "como", "mas", "muy",
	},
	"french": {
		"le", "la", "les", "un", "une", "des", "et", "ou", "mais", "si",
		"de", "du", "dans", "par", "pour", "avec", "sans", "sur", "entre",
		"vers", "jusque", "depuis", "est", "sont", "etait", "etaient",
		"etre", "avoir", "a", "au", "aux", "ce", "cet", "cette", "ces",
		"ne", "pas", "se", "son", "sa", "ses", "comme", "plus", "tres",
	},
	"german": {
		"der", "die", "das", "ein", "eine", "einen", "und", "oder",
		"aber", "wenn", "von", "im", "in", "bei", "fuer", "mit", "ohne",
		"ueber", "zwischen", "zu", "seit", "ist", "sind", "war", "waren",
		"sein", "haben", "hat", "hatte", "dieser", "diese", "dieses",
		"nicht", "sich", "sein", "ihre", "als", "mehr", "sehr", "auch",
	},
	"italian": {
		"il", "lo", "la", "i", "gli", "le", "un", "uno", "una", "e", "o",
		"ma", "se", "di", "del", "in", "per", "con", "senza", "su", "tra",
		"fra", "verso", "fino", "da", "e", "sono", "era", "erano",
		"essere", "avere", "ha", "hanno", "questo", "questa", "questi",
		"queste", "non", "si", "suo", "sua", "come", "piu", "molto",
	},
	"portuguese": {
		"o", "a", "os", "as", "um", "uma", "uns", "umas", "e", "ou",
		"mas", "se", "de", "do", "da", "em", "por", "para", "com", "sem",
		"sobre", "entre", "ate", "desde", "e", "sao", "era", "eram",
		"ser", "estar", "foi", "foram", "tem", "tinha", "este", "esta",
		"estes", "estas", "nao", "se", "seu", "sua", "como", "mais",
	},
}

// stopwordSet is the per-language lookup built from builtinStopwords
// plus any caller-supplied overrides.
type stopwordSet struct {
	byLang map[string]map[string]struct{}
}

func newStopwordSet(overrides map[string][]string) *stopwordSet {
	s := &stopwordSet{byLang: make(map[string]map[string]struct{}, len(builtinStopwords))}
	for lang, words := range builtinStopwords {
		s.byLang[lang] = toSet(words)
	}
	for lang, words := range overrides {
		lang = strings.ToLower(lang)
		set, ok := s.byLang[lang]
		if !ok {
			set = make(map[string]struct{}, len(words))
			s.byLang[lang] = set
		}
		for _, w := range words {
			set[strings.ToLower(w)] = struct{}{}
		}
	}
	return s
}

func toSet(words []string) map[string]struct{} {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}

func (s *stopwordSet) supports(lang string) bool {
	_, ok := s.byLang[lang]
	return ok
}

func (s *stopwordSet) isStop(lang, token string) bool {
	set, ok := s.byLang[lang]
	if !ok {
		return false
	}
	_, stop := set[token]
	return stop
}
