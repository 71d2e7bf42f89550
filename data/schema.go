package data

import (
	"errors"
	"fmt"
)

var (
	ErrUnknownTable  = errors.New("unknown table")
	ErrUnknownColumn = errors.New("unknown column")
)

// Schema describes one of the tables the pipeline writes. Column names coming
// from callers are only ever interpolated into SQL after being checked
// against Columns.
type Schema struct {
	Name     string
	IDColumn string
	Columns  []string
}

var Subreddits = Schema{
	Name:     "subreddits",
	IDColumn: "subreddit_id",
	Columns: []string{
		"subreddit_id", "display_name", "description", "subscribers", "over18",
		"created_utc", "created_at",
	},
}

var Redditors = Schema{
	Name:     "redditors",
	IDColumn: "redditor_id",
	Columns: []string{
		"redditor_id", "username", "link_karma", "comment_karma", "icon_img",
		"has_verified_email", "is_employee", "is_mod", "is_gold", "is_suspended",
		"created_utc", "created_at",
	},
}

var Submissions = Schema{
	Name:     "submissions",
	IDColumn: "submission_id",
	Columns: []string{
		"submission_id", "author", "subreddit", "keyword", "has_exact_keyword",
		"title", "score", "selftext", "upvote_ratio", "num_comments", "url",
		"permalink", "author_flair_text", "link_flair_text", "distinguished",
		"is_self", "locked", "over_18", "created_utc", "created_at",
	},
}

var Comments = Schema{
	Name:     "comments",
	IDColumn: "comment_id",
	Columns: []string{
		"comment_id", "author", "submission", "subreddit", "body", "score",
		"distinguished", "is_submitter", "parent_id", "permalink",
		"created_utc", "created_at",
	},
}

var schemas = map[string]Schema{
	Subreddits.Name:  Subreddits,
	Redditors.Name:   Redditors,
	Submissions.Name: Submissions,
	Comments.Name:    Comments,
}

func SchemaFor(table string) (Schema, error) {
	s, ok := schemas[table]
	if !ok {
		return Schema{}, fmt.Errorf("%w: %q", ErrUnknownTable, table)
	}
	return s, nil
}

func (s Schema) HasColumn(name string) bool {
	for _, c := range s.Columns {
		if c == name {
			return true
		}
	}
	return false
}

// Validate checks every name against the table's columns. "*" is accepted so
// lookups can fetch whole rows.
func (s Schema) Validate(columns ...string) error {
	if len(columns) == 0 {
		return fmt.Errorf("%s: no columns given", s.Name)
	}
	for _, c := range columns {
		if c == "*" || s.HasColumn(c) {
			continue
		}
		return fmt.Errorf("%w: %s.%s", ErrUnknownColumn, s.Name, c)
	}
	return nil
}
