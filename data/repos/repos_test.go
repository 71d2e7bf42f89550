package repos

import (
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/kova98/redditlookup/data"
	"github.com/kova98/redditlookup/enums"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

func openTestGateway(t *testing.T) *data.Gateway {
	t.Helper()
	gw := data.NewGateway(discard, "sqlite", filepath.Join(t.TempDir(), "crawl.db"))

	db, err := gw.DB()
	require.NoError(t, err)
	require.NoError(t, data.RunMigrations(db.DB, gw.Driver()))

	t.Cleanup(func() { gw.Close() })
	return gw
}

func selectAll(t *testing.T, gw *data.Gateway, query string) data.Rows {
	t.Helper()
	rows, _, err := gw.Execute(query, enums.FetchAll)
	require.NoError(t, err)
	return rows
}

func TestSubredditRepo(t *testing.T) {
	gw := openTestGateway(t)
	repo := NewSubredditRepo(gw)

	_, ok, err := repo.FindByName("example")
	require.NoError(t, err)
	assert.False(t, ok)

	records := data.NewTable("subreddit_id", "display_name", "subscribers")
	require.NoError(t, records.AppendRow("t5_abc", "example", 100))
	inserted, err := repo.Insert(records)
	require.NoError(t, err)
	assert.True(t, inserted)

	inserted, err = repo.Insert(records)
	require.NoError(t, err)
	assert.False(t, inserted)

	id, ok, err := repo.FindByName("example")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "t5_abc", id)

	all, err := repo.All()
	require.NoError(t, err)
	assert.Equal(t, data.Subreddits.Columns, all.Columns)
	require.Equal(t, 1, all.Len())
	assert.Equal(t, "example", all.Column("display_name")[0])
	assert.Nil(t, all.Column("description")[0])
}

func redditors(rows ...[]any) *data.Table {
	t := data.NewTable("redditor_id", "username")
	t.Rows = append(t.Rows, rows...)
	return t
}

func submissions(rows ...[]any) *data.Table {
	t := data.NewTable("submission_id", "keyword", "title")
	t.Rows = append(t.Rows, rows...)
	return t
}

func TestWriter_SharedAuthorIsStoredOnce(t *testing.T) {
	for _, mode := range []enums.InsertMode{enums.InsertModeRow, enums.InsertModeBatch} {
		t.Run(string(mode), func(t *testing.T) {
			gw := openTestGateway(t)
			w := NewWriter(discard, gw, mode)

			stage, report, err := w.Subreddit("t5_sub").WriteRedditors(redditors(
				[]any{"t2_a", "alice"},
				[]any{"t2_a", "alice"},
			))
			require.NoError(t, err)
			assert.Equal(t, Report{Table: "redditors", Attempted: 2, Inserted: 1, Skipped: 1}, report)

			_, report, err = stage.WriteSubmissions(submissions(
				[]any{"t3_1", "anxiety", "one"},
				[]any{"t3_2", "anxiety", "two"},
			))
			require.NoError(t, err)
			assert.Equal(t, 2, report.Inserted)

			assert.Len(t, selectAll(t, gw, "SELECT * FROM redditors;"), 1)
			rows := selectAll(t, gw, "SELECT submission_id, author, subreddit FROM submissions ORDER BY submission_id;")
			require.Len(t, rows, 2)
			for _, r := range rows {
				assert.Equal(t, "t2_a", r["author"])
				assert.Equal(t, "t5_sub", r["subreddit"])
			}
		})
	}
}

func TestWriter_UnresolvedAuthorStillStoresSubmission(t *testing.T) {
	gw := openTestGateway(t)
	w := NewWriter(discard, gw, enums.InsertModeRow)

	stage, report, err := w.Subreddit("t5_sub").WriteRedditors(redditors([]any{nil, nil}))
	require.NoError(t, err)
	assert.Equal(t, 1, report.Inserted)

	_, report, err = stage.WriteSubmissions(submissions([]any{"t3_1", "anxiety", "one"}))
	require.NoError(t, err)
	assert.Equal(t, 1, report.Inserted)

	rows := selectAll(t, gw, "SELECT author FROM submissions;")
	require.Len(t, rows, 1)
	assert.Nil(t, rows[0]["author"])
}

func TestWriter_MismatchedAuthors(t *testing.T) {
	gw := openTestGateway(t)
	w := NewWriter(discard, gw, enums.InsertModeRow)

	stage, _, err := w.Subreddit("t5_sub").WriteRedditors(redditors([]any{"t2_a", "alice"}))
	require.NoError(t, err)

	_, _, err = stage.WriteSubmissions(submissions())
	assert.Error(t, err)
}

func TestWriter_RowModeIsolatesFailures(t *testing.T) {
	gw := openTestGateway(t)
	w := NewWriter(discard, gw, enums.InsertModeRow)

	_, report, err := w.Subreddit("t5_sub").WriteRedditors(redditors(
		[]any{"t2_a", "alice"},
		[]any{"t2_b", struct{}{}},
		[]any{"t2_c", "carol"},
	))
	require.NoError(t, err)
	assert.Equal(t, Report{Table: "redditors", Attempted: 3, Inserted: 2, Failed: 1}, report)
	assert.Len(t, selectAll(t, gw, "SELECT * FROM redditors;"), 2)
}

func TestWriter_BatchModeLosesWholeBatch(t *testing.T) {
	gw := openTestGateway(t)
	w := NewWriter(discard, gw, enums.InsertModeBatch)

	_, report, err := w.Subreddit("t5_sub").WriteRedditors(redditors(
		[]any{"t2_a", "alice"},
		[]any{"t2_b", struct{}{}},
	))
	require.NoError(t, err)
	assert.Equal(t, Report{Table: "redditors", Attempted: 2, Failed: 2}, report)
	assert.Empty(t, selectAll(t, gw, "SELECT * FROM redditors;"))
}

func TestWriter_UnknownColumn(t *testing.T) {
	gw := openTestGateway(t)
	w := NewWriter(discard, gw, enums.InsertModeRow)

	bad := data.NewTable("redditor_id", "password")
	bad.Rows = [][]any{{"t2_a", "x"}}
	_, _, err := w.Subreddit("t5_sub").WriteRedditors(bad)
	assert.ErrorIs(t, err, data.ErrUnknownColumn)
}

func TestWriter_Comments(t *testing.T) {
	gw := openTestGateway(t)
	w := NewWriter(discard, gw, enums.InsertModeBatch)

	stage, _, err := w.Subreddit("t5_sub").WriteRedditors(redditors())
	require.NoError(t, err)
	submissionStage, _, err := stage.WriteSubmissions(submissions())
	require.NoError(t, err)

	comments := data.NewTable("comment_id", "submission", "body")
	comments.Rows = [][]any{{"t1_a", "t3_1", "hi"}, {"t1_b", "t3_1", "there"}}
	report, err := submissionStage.WriteComments(comments)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Inserted)

	rows := selectAll(t, gw, "SELECT comment_id, subreddit FROM comments ORDER BY comment_id;")
	require.Len(t, rows, 2)
	assert.Equal(t, "t5_sub", rows[1]["subreddit"])

	missing := data.NewTable("comment_id", "body")
	missing.Rows = [][]any{{"t1_c", "x"}}
	_, err = submissionStage.WriteComments(missing)
	assert.Error(t, err)
}

func TestWriter_EmptyStages(t *testing.T) {
	gw := openTestGateway(t)
	w := NewWriter(discard, gw, enums.InsertModeRow)

	stage, report, err := w.Subreddit("").WriteRedditors(data.NewTable("redditor_id"))
	require.NoError(t, err)
	assert.Zero(t, report.Attempted)

	next, _, err := stage.WriteSubmissions(data.NewTable("submission_id"))
	require.NoError(t, err)
	report, err = next.WriteComments(data.NewTable("comment_id", "submission"))
	require.NoError(t, err)
	assert.Zero(t, report.Attempted)
}

func TestWriter_StopsWhenDatabaseIsUnreachable(t *testing.T) {
	gw := data.NewGateway(discard, "sqlite", filepath.Join(t.TempDir(), "missing", "crawl.db"))
	w := NewWriter(discard, gw, enums.InsertModeRow)

	_, report, err := w.Subreddit("t5_sub").WriteRedditors(redditors(
		[]any{"t2_a", "alice"},
		[]any{"t2_b", "bob"},
	))
	assert.ErrorIs(t, err, data.ErrConnection)
	assert.Equal(t, 1, report.Attempted, "the write stops at the first connection failure")
}
