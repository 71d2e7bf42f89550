package enums

import "strings"

type MatchMode string

const (
	MatchModeInvalid MatchMode = ""

	// MatchModeBroad allows partial matches within words.
	// For example, the keyword part "panic" will match "panic", "panicked" and "panics".
	MatchModeBroad MatchMode = "broad"

	// MatchModeExact requires every keyword part to appear as whole words.
	// For example, the keyword part "panic" will match "panic" but not "panicked".
	MatchModeExact MatchMode = "exact"
)

func ParseMatchMode(s string) MatchMode {
	s = strings.ToLower(strings.TrimSpace(s))
	switch MatchMode(s) {
	case MatchModeBroad, MatchModeExact:
		return MatchMode(s)
	}
	return MatchModeInvalid
}
