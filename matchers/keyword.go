package matchers

import (
	"fmt"
	"strings"

	"github.com/kova98/redditlookup/enums"
)

const andSeparator = " AND "

// Keyword is a configured search term. Parts are separated by " AND " and
// every part must appear in a title for the keyword to count as matched.
// A part containing spaces is a phrase.
type Keyword struct {
	Raw   string
	Parts []string
}

func ParseKeyword(raw string) Keyword {
	raw = strings.TrimSpace(raw)
	parts := make([]string, 0, 2)
	for _, part := range strings.Split(raw, andSeparator) {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		parts = append(parts, part)
	}

	return Keyword{Raw: raw, Parts: parts}
}

// Query builds the search query sent to reddit: every word of the keyword
// becomes a title term, so "panic attack" searches title:panic AND title:attack.
func (k Keyword) Query() string {
	terms := make([]string, 0, len(k.Parts)*2)
	for _, word := range strings.Fields(k.Raw) {
		if word == "AND" {
			continue
		}
		terms = append(terms, "title:"+word)
	}
	return strings.Join(terms, andSeparator)
}

// MatchesTitle reports whether every part of the keyword appears in the title,
// ignoring case.
func (k Keyword) MatchesTitle(title string, mode enums.MatchMode) (bool, error) {
	match := MatchesPartially
	switch mode {
	case enums.MatchModeBroad:
	case enums.MatchModeExact:
		match = MatchesWholeWord
	default:
		return false, fmt.Errorf("invalid match mode: %q", mode)
	}

	titleLower := strings.ToLower(title)
	for _, part := range k.Parts {
		if !match(titleLower, strings.ToLower(part)) {
			return false, nil
		}
	}

	return len(k.Parts) > 0, nil
}
