package metadata

import "github.com/abadojack/whatlanggo"

const detectSampleLen = 1000

// DetectLanguage returns "en", "ja", or "zh" for the given text. Statistical
// detection runs on the first 1000 characters; results outside the supported
// set fall through to a Japanese character-range scan, then to "en".
func DetectLanguage(text string) string {
	sample := []rune(text)
	if len(sample) > detectSampleLen {
		sample = sample[:detectSampleLen]
	}

	if lang, ok := detectStatistical(string(sample)); ok {
		return lang
	}

	if containsJapanese(string(sample)) {
		return "ja"
	}

	return "en"
}

// DetectStatistical runs only the statistical detector, reporting whether the
// result is one of the supported languages. Callers with their own fallback
// chain (the site classifier) use this directly.
func DetectStatistical(sample string) (string, bool) {
	return detectStatistical(sample)
}

func detectStatistical(sample string) (lang string, ok bool) {
	// The detector panics on some degenerate inputs; treat that the same as
	// an unsupported result and continue to the range scan.
	defer func() {
		if recover() != nil {
			ok = false
		}
	}()

	info := whatlanggo.Detect(sample)
	switch info.Lang {
	case whatlanggo.Eng:
		return "en", true
	case whatlanggo.Jpn:
		return "ja", true
	case whatlanggo.Cmn:
		return "zh", true
	}
	return "", false
}

// containsJapanese reports whether any rune falls in the Hiragana, Katakana,
// or common Kanji ranges.
func containsJapanese(text string) bool {
	for _, r := range text {
		if (r >= 0x3040 && r <= 0x309F) ||
			(r >= 0x30A0 && r <= 0x30FF) ||
			(r >= 0x4E00 && r <= 0x9FAF) {
			return true
		}
	}
	return false
}
