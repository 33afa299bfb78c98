// Package langdetect resolves a text sample to one of the engine's
// supported language codes, or "unknown".
package langdetect

import (
	"strings"
	"sync"

	"github.com/pemistahl/lingua-go"
)

// Threshold is the minimum confidence below which a detection result is
// reported as unknown, per the language detector contract.
const Threshold = 0.60

// MinSampleLen is the minimum trimmed-text length below which detection
// is not attempted at all.
const MinSampleLen = 20

var supported = []lingua.Language{
	lingua.Spanish,
	lingua.English,
	lingua.French,
	lingua.German,
	lingua.Italian,
	lingua.Portuguese,
}

var (
	once     sync.Once
	detector lingua.LanguageDetector
)

func build() {
	detector = lingua.NewLanguageDetectorBuilder().
		FromLanguages(supported...).
		Build()
}

// Detect maps a text sample to (language_code, confidence). Detector
// construction happens once per process and is cached for its lifetime.
func Detect(text string) (string, float64) {
	trimmed := strings.TrimSpace(text)
	if len([]rune(trimmed)) < MinSampleLen {
		return "unknown", 0.0
	}

	once.Do(build)

	values := detector.ComputeLanguageConfidenceValues(trimmed)
	if len(values) == 0 {
		return "unknown", 0.0
	}

	best := values[0]
	if best.Value() < Threshold {
		return "unknown", best.Value()
	}
	return code(best.Language()), best.Value()
}

func code(l lingua.Language) string {
	switch l {
	case lingua.Spanish:
		return "spanish"
	case lingua.English:
		return "english"
	case lingua.French:
		return "french"
	case lingua.German:
		return "german"
	case lingua.Italian:
		return "italian"
	case lingua.Portuguese:
		return "portuguese"
	default:
		return "unknown"
	}
}
