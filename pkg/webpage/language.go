package webpage

import (
	"strings"
	"sync"

	"github.com/pemistahl/lingua-go"
)

// The detector is expensive to build (language models load lazily but
// the builder itself is not free), so it is shared and built once.
var (
	detectorOnce sync.Once
	detector     lingua.LanguageDetector
)

// candidateLanguages keeps the model set small; bookmarks outside this
// set simply get no language field.
var candidateLanguages = []lingua.Language{
	lingua.English,
	lingua.German,
	lingua.French,
	lingua.Spanish,
	lingua.Portuguese,
	lingua.Italian,
	lingua.Dutch,
	lingua.Russian,
	lingua.Japanese,
	lingua.Chinese,
	lingua.Korean,
}

// minSampleRunes guards against classifying boilerplate-only pages.
const minSampleRunes = 40

// maxSampleRunes caps detection cost on huge articles.
const maxSampleRunes = 4000

// DetectLanguage returns the ISO 639-1 code of the text's language.
func DetectLanguage(text string) (string, bool) {
	sample := strings.TrimSpace(text)
	if len([]rune(sample)) < minSampleRunes {
		return "", false
	}
	if runes := []rune(sample); len(runes) > maxSampleRunes {
		sample = string(runes[:maxSampleRunes])
	}

	detectorOnce.Do(func() {
		detector = lingua.NewLanguageDetectorBuilder().
			FromLanguages(candidateLanguages...).
			Build()
	})

	lang, ok := detector.DetectLanguageOf(sample)
	if !ok {
		return "", false
	}
	return strings.ToLower(lang.IsoCode639_1().String()), true
}
