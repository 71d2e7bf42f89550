package data

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTable_SetColumnAppendsAndReplaces(t *testing.T) {
	table := NewTable("comment_id")
	require.NoError(t, table.AppendRow("t1_a"))
	require.NoError(t, table.AppendRow("t1_b"))

	require.NoError(t, table.SetColumn("submission", []any{"t3_x", "t3_y"}))
	assert.Equal(t, []string{"comment_id", "submission"}, table.Columns)
	assert.Equal(t, []any{"t3_x", "t3_y"}, table.Column("submission"))

	require.NoError(t, table.SetColumn("submission", []any{"t3_z", nil}))
	assert.Equal(t, []any{"t3_z", nil}, table.Column("submission"))
}

func TestTable_SetColumnRequiresOneValuePerRow(t *testing.T) {
	table := NewTable("comment_id")
	require.NoError(t, table.AppendRow("t1_a"))

	assert.Error(t, table.SetColumn("submission", []any{"t3_x", "t3_y"}))
	assert.Equal(t, []string{"comment_id"}, table.Columns)
}

func TestTable_Fill(t *testing.T) {
	table := NewTable("submission_id")
	require.NoError(t, table.AppendRow("t3_a"))
	require.NoError(t, table.AppendRow("t3_b"))

	table.Fill("subreddit", "t5_x")
	assert.Equal(t, []any{"t5_x", "t5_x"}, table.Column("subreddit"))
}

func TestTable_AppendRowChecksWidth(t *testing.T) {
	table := NewTable("a", "b")
	assert.Error(t, table.AppendRow("only one"))
	assert.True(t, table.Empty())
}

func TestTable_SliceAndRecord(t *testing.T) {
	table := NewTable("a", "b")
	require.NoError(t, table.AppendRow(1, "x"))
	require.NoError(t, table.AppendRow(2, "y"))

	one := table.Slice(1)
	assert.Equal(t, 1, one.Len())
	assert.Equal(t, map[string]any{"a": 2, "b": "y"}, one.Record(0))
	assert.Nil(t, table.Column("missing"))
}
