package matchers

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// MatchesWholeWord returns true if the keyword appears in the text bounded by
// non-word runes or the start/end of the text on both sides.
func MatchesWholeWord(text, keyword string) bool {
	if keyword == "" {
		return false
	}

	for offset := 0; offset < len(text); {
		pos := strings.Index(text[offset:], keyword)
		if pos == -1 {
			return false
		}
		start := offset + pos
		end := start + len(keyword)

		before, _ := utf8.DecodeLastRuneInString(text[:start])
		after, _ := utf8.DecodeRuneInString(text[end:])
		leftOk := start == 0 || !isWordRune(before)
		rightOk := end == len(text) || !isWordRune(after)
		if leftOk && rightOk {
			return true
		}

		_, size := utf8.DecodeRuneInString(text[start:])
		offset = start + size
	}

	return false
}

func MatchesPartially(text, keyword string) bool {
	return strings.Contains(text, keyword)
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_'
}
