package voice

import "unicode"

// FallbackLanguage is used when no script gives a confident signal.
const FallbackLanguage = "en"

var scriptLanguages = []struct {
	lang   string
	ranges []*unicode.RangeTable
}{
	{"ja", []*unicode.RangeTable{unicode.Hiragana, unicode.Katakana}},
	{"zh", []*unicode.RangeTable{unicode.Han}},
	{"ko", []*unicode.RangeTable{unicode.Hangul}},
	{"ru", []*unicode.RangeTable{unicode.Cyrillic}},
	{"ar", []*unicode.RangeTable{unicode.Arabic}},
	{"he", []*unicode.RangeTable{unicode.Hebrew}},
	{"el", []*unicode.RangeTable{unicode.Greek}},
	{"hi", []*unicode.RangeTable{unicode.Devanagari}},
	{"th", []*unicode.RangeTable{unicode.Thai}},
}

// DetectLanguage guesses a language code from the dominant script of the
// text. Kana beats Han so Japanese text with kanji still detects as
// Japanese. Latin-script languages are indistinguishable here and fall
// back to English.
func DetectLanguage(text string) string {
	counts := make([]int, len(scriptLanguages))
	letters := 0

	for _, r := range text {
		if !unicode.IsLetter(r) {
			continue
		}
		letters++

		for i, script := range scriptLanguages {
			for _, table := range script.ranges {
				if unicode.Is(table, r) {
					counts[i]++
					break
				}
			}
		}
	}

	if letters == 0 {
		return FallbackLanguage
	}

	best := -1
	for i, count := range counts {
		if count == 0 {
			continue
		}
		if best < 0 || count > counts[best] {
			best = i
		}
	}

	// Require a meaningful share of the letters before overriding the
	// fallback; a lone emoji-adjacent symbol should not flip the language.
	if best >= 0 && counts[best]*10 >= letters {
		return scriptLanguages[best].lang
	}

	return FallbackLanguage
}
