package analyzer

import (
	"github.com/kljensen/snowball/english"
	"github.com/kljensen/snowball/french"
	"github.com/kljensen/snowball/spanish"
)

// stem dispatches to the Snowball-family stemmer for lang. kljensen/snowball
// only ports english, spanish, and french (plus russian, swedish, norwegian,
// hungarian, none of which this analyzer's supported-language set uses);
// german, italian, and portuguese have no stemmer here and fall through to
// the identity function, same as any other unsupported language — the
// Analyzer contract degrades gracefully rather than raising. Stopword
// removal is handled upstream by RemoveStopwords, so stemStopWords is
// always false here.
func stem(token, lang string) string {
	switch lang {
	case "english":
		return english.Stem(token, false)
	case "spanish":
		return spanish.Stem(token, false)
	case "french":
		return french.Stem(token, false)
	default:
		return token
	}
}
