package enums

import "strings"

// InsertMode selects how a record set is written by the staged writer.
type InsertMode string

const (
	InsertModeInvalid InsertMode = ""

	// InsertModeBatch writes the record set in as few multi-row statements as
	// the bind parameter limit allows. A malformed row fails its statement.
	InsertModeBatch InsertMode = "batch"

	// InsertModeRow writes one statement per record so a failing row does not
	// abort its siblings.
	InsertModeRow InsertMode = "row"
)

func ParseInsertMode(s string) InsertMode {
	s = strings.ToLower(strings.TrimSpace(s))
	switch InsertMode(s) {
	case InsertModeBatch, InsertModeRow:
		return InsertMode(s)
	}
	return InsertModeInvalid
}
