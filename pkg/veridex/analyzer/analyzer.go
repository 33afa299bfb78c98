// Package analyzer implements the Analyzer contract: normalize, tokenize,
// remove stopwords, filter meaningful tokens, and stem, parameterized by
// a detected language code. The contract never raises; an unsupported
// language degrades to the identity behavior at every step.
package analyzer

// Analyzer is the pluggable text-analysis contract consumed by the SPIMI
// worker. All operations are total and side-effect free.
type Analyzer interface {
	// Normalize applies Unicode compatibility normalization, lowercases,
	// collapses whitespace runs, and trims.
	Normalize(text string) string

	// Tokenize extracts the ordered sequence of word-like runs from
	// already-normalized text.
	Tokenize(normalized string) []string

	// RemoveStopwords filters tokens present in lang's stop list. An
	// unsupported language is a pass-through.
	RemoveStopwords(tokens []string, lang string) []string

	// FilterMeaningful drops tokens shorter than minLen and tokens made
	// entirely of digits.
	FilterMeaningful(tokens []string, minLen int) []string

	// Stem applies Snowball-family stemming for lang. An unsupported
	// language is a pass-through.
	Stem(tokens []string, lang string) []string
}

// Default is the concrete Analyzer described in the component design:
// NFKC normalization, a Latin-accented-letter tokenizer regex, static
// per-language stop lists (with optional overrides), digit/length
// filtering, and github.com/kljensen/snowball stemming.
type Default struct {
	stops *stopwordSet
}

// New builds a Default analyzer. overrides adds to (never replaces) the
// built-in stop lists, keyed by language code.
func New(overrides map[string][]string) *Default {
	return &Default{stops: newStopwordSet(overrides)}
}

func (d *Default) Normalize(text string) string {
	return normalize(text)
}

func (d *Default) Tokenize(normalized string) []string {
	return tokenize(normalized)
}

func (d *Default) RemoveStopwords(tokens []string, lang string) []string {
	if d.stops == nil || !d.stops.supports(lang) {
		return tokens
	}
	out := tokens[:0:0]
	for _, tok := range tokens {
		if !d.stops.isStop(lang, tok) {
			out = append(out, tok)
		}
	}
	return out
}

func (d *Default) FilterMeaningful(tokens []string, minLen int) []string {
	out := tokens[:0:0]
	for _, tok := range tokens {
		if len([]rune(tok)) < minLen {
			continue
		}
		if isNumeric(tok) {
			continue
		}
		out = append(out, tok)
	}
	return out
}

func (d *Default) Stem(tokens []string, lang string) []string {
	out := make([]string, len(tokens))
	for i, tok := range tokens {
		out[i] = stem(tok, lang)
	}
	return out
}

func isNumeric(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// Pipeline composes the five Analyzer operations for one piece of text
// already tagged with a detected language, returning the final term
// sequence the SPIMI worker tallies.
type Pipeline struct {
	A           Analyzer
	MinTokenLen int
}

// NewPipeline builds a Pipeline around an Analyzer.
func NewPipeline(a Analyzer, minTokenLen int) *Pipeline {
	if minTokenLen <= 0 {
		minTokenLen = 2
	}
	return &Pipeline{A: a, MinTokenLen: minTokenLen}
}

// Run executes the full normalize → tokenize → stopwords → filter → stem
// chain for text in the given language.
func (p *Pipeline) Run(text, lang string) []string {
	return p.RunNormalized(p.A.Normalize(text), lang)
}

// RunNormalized runs tokenize → stopwords → filter → stem over text that
// has already been normalized (the SPIMI worker normalizes once and
// reuses the result both to detect the language and to feed this call).
func (p *Pipeline) RunNormalized(normalized, lang string) []string {
	tokens := p.A.Tokenize(normalized)
	tokens = p.A.RemoveStopwords(tokens, lang)
	tokens = p.A.FilterMeaningful(tokens, p.MinTokenLen)
	tokens = p.A.Stem(tokens, lang)
	return tokens
}
