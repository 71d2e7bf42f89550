package repos

import (
	"fmt"

	"github.com/kova98/redditlookup/data"
	"github.com/kova98/redditlookup/enums"
)

type SubredditRepo struct {
	gw *data.Gateway
}

func NewSubredditRepo(gw *data.Gateway) *SubredditRepo {
	return &SubredditRepo{gw}
}

// FindByName returns the id of the subreddit registered under displayName.
// ok is false when it is not registered.
func (r *SubredditRepo) FindByName(displayName string) (id string, ok bool, err error) {
	rows, err := r.gw.Lookup(data.Subreddits.Name,
		[]string{"subreddit_id"}, []string{"display_name"}, []any{displayName}, enums.FetchOne)
	if err != nil {
		return "", false, fmt.Errorf("find subreddit by name: %w", err)
	}
	if data.IsEmpty(rows) {
		return "", false, nil
	}

	id, _ = rows[0].String("subreddit_id")
	return id, true, nil
}

// Insert registers subreddit records and reports whether any row was new.
func (r *SubredditRepo) Insert(records *data.Table) (bool, error) {
	rows, err := r.gw.InsertBatch(data.Subreddits.Name, records, data.Subreddits.IDColumn, enums.FetchAll)
	if err != nil {
		return false, fmt.Errorf("insert subreddit: %w", err)
	}
	return !data.IsEmpty(rows), nil
}

// All loads every registered subreddit with all of its columns, in table
// column order.
func (r *SubredditRepo) All() (*data.Table, error) {
	columns, err := r.gw.ColumnsOf(data.Subreddits.Name)
	if err != nil {
		return nil, fmt.Errorf("get subreddit columns: %w", err)
	}

	rows, _, err := r.gw.Execute("SELECT * FROM subreddits;", enums.FetchAll)
	if err != nil {
		return nil, fmt.Errorf("get all subreddits: %w", err)
	}

	table := data.NewTable(columns...)
	for _, row := range rows {
		values := make([]any, len(columns))
		for i, c := range columns {
			values[i] = row[c]
		}
		if err := table.AppendRow(values...); err != nil {
			return nil, err
		}
	}
	return table, nil
}
