package data

import (
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/kova98/redditlookup/enums"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

func openTestGateway(t *testing.T) *Gateway {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	g := NewGateway(logger, "sqlite", filepath.Join(t.TempDir(), "crawl.db"))

	db, err := g.DB()
	require.NoError(t, err)
	require.NoError(t, RunMigrations(db.DB, g.Driver()))

	t.Cleanup(func() { g.Close() })
	return g
}

func countRows(t *testing.T, g *Gateway, table string) int64 {
	t.Helper()
	rows, _, err := g.Execute("SELECT COUNT(*) AS n FROM "+table+";", enums.FetchOne)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	return rows[0]["n"].(int64)
}

func subredditTable(rows ...[]any) *Table {
	t := NewTable("subreddit_id", "display_name", "subscribers")
	for _, r := range rows {
		t.Rows = append(t.Rows, r)
	}
	return t
}

func TestColumnsOf(t *testing.T) {
	g := openTestGateway(t)

	columns, err := g.ColumnsOf("subreddits")
	require.NoError(t, err)
	assert.Equal(t, Subreddits.Columns, columns)

	columns, err = g.ColumnsOf("comments")
	require.NoError(t, err)
	assert.Equal(t, Comments.Columns, columns)
}

func TestColumnsOf_UnknownTable(t *testing.T) {
	g := openTestGateway(t)

	_, err := g.ColumnsOf("users; DROP TABLE subreddits")
	assert.ErrorIs(t, err, ErrUnknownTable)
}

func TestInsertAndLookupByDisplayName(t *testing.T) {
	g := openTestGateway(t)

	_, err := g.InsertBatch("subreddits", subredditTable([]any{"t5_abc", "example", 100}), "subreddit_id", enums.FetchNone)
	require.NoError(t, err)

	rows, err := g.Lookup("subreddits", []string{"subreddit_id"}, []string{"display_name"}, []any{"example"}, enums.FetchOne)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	id, ok := rows[0].String("subreddit_id")
	assert.True(t, ok)
	assert.Equal(t, "t5_abc", id)
}

func TestLookup_NoMatchIsEmpty(t *testing.T) {
	g := openTestGateway(t)

	rows, err := g.Lookup("subreddits", []string{"subreddit_id"}, []string{"display_name"}, []any{"missing"}, enums.FetchOne)
	require.NoError(t, err)
	assert.True(t, IsEmpty(rows))
}

func TestLookup_AllColumnsMustMatch(t *testing.T) {
	g := openTestGateway(t)
	_, err := g.InsertBatch("subreddits", subredditTable(
		[]any{"t5_a", "anxiety", 10},
		[]any{"t5_b", "anxiety", 20},
		[]any{"t5_c", "ocd", 10},
	), "subreddit_id", enums.FetchNone)
	require.NoError(t, err)

	rows, err := g.Lookup("subreddits", []string{"subreddit_id"}, []string{"display_name", "subscribers"}, []any{"anxiety", 20}, enums.FetchAll)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "t5_b", rows[0]["subreddit_id"])
}

func TestLookup_MismatchedFilters(t *testing.T) {
	g := openTestGateway(t)

	_, err := g.Lookup("subreddits", []string{"subreddit_id"}, []string{"display_name"}, nil, enums.FetchOne)
	assert.Error(t, err)

	_, err = g.Lookup("subreddits", []string{"subreddit_id"}, nil, nil, enums.FetchOne)
	assert.Error(t, err)

	_, err = g.Lookup("subreddits", []string{"password"}, []string{"display_name"}, []any{"x"}, enums.FetchOne)
	assert.ErrorIs(t, err, ErrUnknownColumn)
}

func TestLookupIn(t *testing.T) {
	g := openTestGateway(t)
	_, err := g.InsertBatch("subreddits", subredditTable(
		[]any{"t5_a", "anxiety", 10},
		[]any{"t5_b", "ocd", 20},
		[]any{"t5_c", "adhd", 30},
	), "subreddit_id", enums.FetchNone)
	require.NoError(t, err)

	rows, err := g.LookupIn("subreddits", []string{"subreddit_id", "display_name"}, "display_name", []any{"anxiety", "adhd", "missing"})
	require.NoError(t, err)
	require.Len(t, rows, 2)

	ids := []string{}
	for _, r := range rows {
		id, _ := r.String("subreddit_id")
		ids = append(ids, id)
	}
	assert.ElementsMatch(t, []string{"t5_a", "t5_c"}, ids)
}

func TestLookupIn_NoValues(t *testing.T) {
	g := openTestGateway(t)

	rows, err := g.LookupIn("subreddits", []string{"subreddit_id"}, "display_name", nil)
	require.NoError(t, err)
	assert.True(t, IsEmpty(rows))

	_, err = g.LookupIn("subreddits", []string{"subreddit_id"}, "*", []any{"x"})
	assert.ErrorIs(t, err, ErrUnknownColumn)
}

func TestInsertBatch_Idempotent(t *testing.T) {
	g := openTestGateway(t)
	first := subredditTable([]any{"t5_a", "anxiety", 10}, []any{"t5_b", "ocd", 20})

	_, err := g.InsertBatch("subreddits", first, "subreddit_id", enums.FetchNone)
	require.NoError(t, err)
	_, err = g.InsertBatch("subreddits", first, "subreddit_id", enums.FetchNone)
	require.NoError(t, err)
	assert.Equal(t, int64(2), countRows(t, g, "subreddits"))

	overlapping := subredditTable([]any{"t5_b", "changed", 99}, []any{"t5_c", "adhd", 30})
	_, err = g.InsertBatch("subreddits", overlapping, "subreddit_id", enums.FetchNone)
	require.NoError(t, err)
	assert.Equal(t, int64(3), countRows(t, g, "subreddits"))

	rows, err := g.Lookup("subreddits", []string{"display_name"}, []string{"subreddit_id"}, []any{"t5_b"}, enums.FetchOne)
	require.NoError(t, err)
	assert.Equal(t, "ocd", rows[0]["display_name"], "existing rows are never updated")
}

func TestInsertBatch_DuplicatesWithinBatch(t *testing.T) {
	g := openTestGateway(t)
	records := NewTable("redditor_id", "username")
	records.Rows = [][]any{{"t2_x", "alice"}, {"t2_x", "alice"}, {"t2_y", "bob"}}

	_, err := g.InsertBatch("redditors", records, "redditor_id", enums.FetchNone)
	require.NoError(t, err)
	assert.Equal(t, int64(2), countRows(t, g, "redditors"))
}

func TestInsertBatch_ReturningOnlyInsertedKeys(t *testing.T) {
	g := openTestGateway(t)
	_, err := g.InsertBatch("subreddits", subredditTable([]any{"t5_a", "anxiety", 10}), "subreddit_id", enums.FetchNone)
	require.NoError(t, err)

	rows, err := g.InsertBatch("subreddits", subredditTable(
		[]any{"t5_a", "anxiety", 10},
		[]any{"t5_b", "ocd", 20},
	), "subreddit_id", enums.FetchAll)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "t5_b", rows[0]["subreddit_id"])
}

func TestInsertBatch_NullIdentityNeverConflicts(t *testing.T) {
	g := openTestGateway(t)
	records := NewTable("redditor_id", "username")
	records.Rows = [][]any{{nil, nil}, {nil, nil}}

	_, err := g.InsertBatch("redditors", records, "redditor_id", enums.FetchNone)
	require.NoError(t, err)
	assert.Equal(t, int64(2), countRows(t, g, "redditors"))
}

func TestInsertBatch_EmptyIsNoop(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	g := NewGateway(logger, "sqlite", filepath.Join(t.TempDir(), "missing", "never.db"))

	rows, err := g.InsertBatch("subreddits", NewTable("subreddit_id"), "subreddit_id", enums.FetchAll)
	assert.NoError(t, err)
	assert.Nil(t, rows)
	assert.Nil(t, g.db, "an empty insert must not connect")
}

func TestInsertBatch_RejectsUnknownColumns(t *testing.T) {
	g := openTestGateway(t)
	records := NewTable("subreddit_id", "display_name) VALUES ('x'); --")
	records.Rows = [][]any{{"t5_a", "x"}}

	_, err := g.InsertBatch("subreddits", records, "subreddit_id", enums.FetchNone)
	assert.ErrorIs(t, err, ErrUnknownColumn)

	_, err = g.InsertBatch("subreddits", subredditTable([]any{"t5_a", "a", 1}), "owner", enums.FetchNone)
	assert.ErrorIs(t, err, ErrUnknownColumn)
}

func TestInsertBatch_ValuesAreNotRewritten(t *testing.T) {
	g := openTestGateway(t)
	description := "it's   a place'); DROP TABLE subreddits; --"
	records := NewTable("subreddit_id", "description")
	records.Rows = [][]any{{"t5_a", description}}

	_, err := g.InsertBatch("subreddits", records, "subreddit_id", enums.FetchNone)
	require.NoError(t, err)

	rows, err := g.Lookup("subreddits", []string{"description"}, []string{"subreddit_id"}, []any{"t5_a"}, enums.FetchOne)
	require.NoError(t, err)
	assert.Equal(t, description, rows[0]["description"])
}

func TestExecute_FailureClosesAndReconnects(t *testing.T) {
	g := openTestGateway(t)

	_, _, err := g.Execute("SELECT * FROM does_not_exist;", enums.FetchAll)
	require.Error(t, err)
	assert.Nil(t, g.db, "failed statement must tear the connection down")

	_, err = g.InsertBatch("subreddits", subredditTable([]any{"t5_a", "anxiety", 10}), "subreddit_id", enums.FetchNone)
	require.NoError(t, err)
	assert.NotNil(t, g.db)
	assert.Equal(t, int64(1), countRows(t, g, "subreddits"))
}

func TestExecute_AffectedRows(t *testing.T) {
	g := openTestGateway(t)
	_, err := g.InsertBatch("subreddits", subredditTable(
		[]any{"t5_a", "anxiety", 10},
		[]any{"t5_b", "ocd", 20},
	), "subreddit_id", enums.FetchNone)
	require.NoError(t, err)

	_, affected, err := g.Execute("UPDATE subreddits SET subscribers = ? WHERE subscribers < ?;", enums.FetchNone, 0, 100)
	require.NoError(t, err)
	assert.Equal(t, int64(2), affected)

	rows, count, err := g.Execute("SELECT subreddit_id FROM subreddits ORDER BY subreddit_id;", enums.FetchOne)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
	require.Len(t, rows, 1)
	assert.Equal(t, "t5_a", rows[0]["subreddit_id"])

	rows, count, err = g.Execute("SELECT subreddit_id FROM subreddits WHERE subreddit_id = ?;", enums.FetchAll, "none")
	require.NoError(t, err)
	assert.Zero(t, count)
	assert.Nil(t, rows)
}

func TestConnectFailureIsReturned(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	g := NewGateway(logger, "sqlite", filepath.Join(t.TempDir(), "missing", "crawl.db"))

	_, err := g.ColumnsOf("subreddits")
	assert.ErrorIs(t, err, ErrConnection)
}

func TestIsEmpty(t *testing.T) {
	assert.True(t, IsEmpty(nil))
	assert.True(t, IsEmpty(Rows{}))
	assert.False(t, IsEmpty(Rows{{"subreddit_id": "t5_a"}}))
}
