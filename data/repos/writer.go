package repos

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/kova98/redditlookup/data"
	"github.com/kova98/redditlookup/enums"
	"github.com/kova98/redditlookup/metrics"
)

// Report summarizes one stage write. Skipped rows already existed.
type Report struct {
	Table     string
	Attempted int
	Inserted  int
	Skipped   int
	Failed    int
}

func (r *Report) add(o Report) {
	r.Attempted += o.Attempted
	r.Inserted += o.Inserted
	r.Skipped += o.Skipped
	r.Failed += o.Failed
}

// Writer persists one search result set. Writes go through stages that must
// be taken in order: subreddit, redditors, submissions, comments. Each stage
// carries the identifiers the next one needs.
type Writer struct {
	logger *slog.Logger
	gw     *data.Gateway
	mode   enums.InsertMode
}

func NewWriter(logger *slog.Logger, gw *data.Gateway, mode enums.InsertMode) *Writer {
	if mode == enums.InsertModeInvalid {
		mode = enums.InsertModeRow
	}
	return &Writer{logger: logger, gw: gw, mode: mode}
}

type SubredditStage struct {
	w           *Writer
	subredditID any
}

type RedditorStage struct {
	SubredditStage
	authorIDs []any
}

type SubmissionStage struct {
	SubredditStage
}

// Subreddit starts a write for content of the given subreddit. An empty id
// is stored as NULL.
func (w *Writer) Subreddit(id string) SubredditStage {
	var subredditID any
	if id != "" {
		subredditID = id
	}
	return SubredditStage{w: w, subredditID: subredditID}
}

// WriteRedditors stores one author record per submission, in submission
// order. The returned stage remembers the author ids for WriteSubmissions.
func (s SubredditStage) WriteRedditors(redditors *data.Table) (RedditorStage, Report, error) {
	next := RedditorStage{SubredditStage: s, authorIDs: redditors.Column(data.Redditors.IDColumn)}
	if redditors.Len() > 0 && next.authorIDs == nil {
		return RedditorStage{}, Report{}, fmt.Errorf("write redditors: missing %s column", data.Redditors.IDColumn)
	}

	report, err := s.w.write(data.Redditors, redditors)
	return next, report, err
}

// WriteSubmissions stores submissions, filling in the author and subreddit
// columns. The table must have one row per author record.
func (s RedditorStage) WriteSubmissions(submissions *data.Table) (SubmissionStage, Report, error) {
	next := SubmissionStage{SubredditStage: s.SubredditStage}
	if submissions.Len() != len(s.authorIDs) {
		return next, Report{}, fmt.Errorf("write submissions: %d submissions for %d authors", submissions.Len(), len(s.authorIDs))
	}
	if submissions.Len() > 0 {
		if err := submissions.SetColumn("author", s.authorIDs); err != nil {
			return next, Report{}, err
		}
		submissions.Fill("subreddit", s.subredditID)
	}

	report, err := s.w.write(data.Submissions, submissions)
	return next, report, err
}

// WriteComments stores comments, filling in the subreddit column. Each
// comment must already carry its submission id.
func (s SubmissionStage) WriteComments(comments *data.Table) (Report, error) {
	if comments.Len() > 0 {
		if comments.ColumnIndex("submission") == -1 {
			return Report{}, errors.New("write comments: missing submission column")
		}
		comments.Fill("subreddit", s.subredditID)
	}
	return s.w.write(data.Comments, comments)
}

func (w *Writer) write(schema data.Schema, records *data.Table) (Report, error) {
	report := Report{Table: schema.Name}
	if records.Empty() {
		return report, nil
	}
	if err := schema.Validate(records.Columns...); err != nil {
		return report, fmt.Errorf("write %s: %w", schema.Name, err)
	}

	var written Report
	var err error
	if w.mode == enums.InsertModeBatch {
		written, err = w.writeBatches(schema, records)
	} else {
		written, err = w.writeRows(schema, records)
	}
	report.add(written)

	metrics.RecordsWritten.WithLabelValues(schema.Name, "inserted").Add(float64(report.Inserted))
	metrics.RecordsWritten.WithLabelValues(schema.Name, "skipped").Add(float64(report.Skipped))
	metrics.RecordsWritten.WithLabelValues(schema.Name, "failed").Add(float64(report.Failed))
	w.logger.Info("stored records", "table", schema.Name, "attempted", report.Attempted,
		"inserted", report.Inserted, "skipped", report.Skipped, "failed", report.Failed)

	if err != nil {
		return report, fmt.Errorf("write %s: %w", schema.Name, err)
	}
	return report, nil
}

// writeRows inserts one row per statement so a bad row only loses itself.
// Losing the database connection stops the write.
func (w *Writer) writeRows(schema data.Schema, records *data.Table) (Report, error) {
	var report Report
	for i := range records.Rows {
		report.Attempted++
		rows, err := w.gw.InsertBatch(schema.Name, records.Slice(i), schema.IDColumn, enums.FetchAll)
		if err != nil {
			report.Failed++
			if errors.Is(err, data.ErrConnection) {
				return report, err
			}
			w.logger.Error("cannot register record", "table", schema.Name, "record", records.Record(i), "error", err)
			continue
		}
		if data.IsEmpty(rows) {
			report.Skipped++
		} else {
			report.Inserted++
		}
	}
	return report, nil
}

// writeBatches inserts as many rows per statement as the bind parameter
// limit allows. A failed statement loses its whole batch.
func (w *Writer) writeBatches(schema data.Schema, records *data.Table) (Report, error) {
	var report Report
	size := max(1, data.MaxParams/len(records.Columns))

	for start := 0; start < records.Len(); start += size {
		end := min(start+size, records.Len())
		batch := &data.Table{Columns: records.Columns, Rows: records.Rows[start:end]}
		report.Attempted += batch.Len()

		rows, err := w.gw.InsertBatch(schema.Name, batch, schema.IDColumn, enums.FetchAll)
		if err != nil {
			report.Failed += batch.Len()
			if errors.Is(err, data.ErrConnection) {
				return report, err
			}
			w.logger.Error("cannot register batch", "table", schema.Name, "rows", batch.Len(), "error", err)
			continue
		}
		report.Inserted += len(rows)
		report.Skipped += batch.Len() - len(rows)
	}
	return report, nil
}
