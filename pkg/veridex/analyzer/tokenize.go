package analyzer

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// wordPattern matches maximal runs of ASCII letters plus the Latin-1
// accented vowels, ñ and ç that appear across the six supported languages,
// with an optional trailing apostrophe-joined run (contractions,
// possessives).
var wordPattern = regexp.MustCompile(
	`[A-Za-zÁÉÍÓÚáéíóúÀÈÌÒÙàèìòùÂÊÎÔÛâêîôûÄËÏÖÜäëïöüÑñÇç]+(?:'[A-Za-zÁÉÍÓÚáéíóúÀÈÌÒÙàèìòùÂÊÎÔÛâêîôûÄËÏÖÜäëïöüÑñÇç]+)?`,
)

// normalize applies NFKC normalization, lowercases, collapses whitespace
// runs, and trims — the full Normalize step of the Analyzer contract.
func normalize(text string) string {
	n := norm.NFKC.String(text)
	n = strings.ToLower(n)
	return collapseSpace(n)
}

func collapseSpace(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	inSpace := false
	for _, r := range s {
		if unicode.IsSpace(r) {
			if !inSpace && b.Len() > 0 {
				b.WriteByte(' ')
			}
			inSpace = true
			continue
		}
		inSpace = false
		b.WriteRune(r)
	}
	return strings.TrimSpace(b.String())
}

// tokenize extracts the ordered sequence of word runs matched by
// wordPattern from already-normalized text.
func tokenize(normalized string) []string {
	return wordPattern.FindAllString(normalized, -1)
}
