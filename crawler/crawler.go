package crawler

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/kova98/redditlookup/data"
	"github.com/kova98/redditlookup/data/repos"
	"github.com/kova98/redditlookup/enums"
	"github.com/kova98/redditlookup/extract"
	"github.com/kova98/redditlookup/matchers"
)

type Options struct {
	Keywords   []string
	MatchMode  enums.MatchMode
	TimeFilter string
}

// Crawler searches every registered subreddit for every keyword and stores
// the results: authors, submissions, then comments.
type Crawler struct {
	logger     *slog.Logger
	source     Source
	subreddits *repos.SubredditRepo
	writer     *repos.Writer
	builder    *extract.Builder
	keywords   []matchers.Keyword
	matchMode  enums.MatchMode
	timeFilter string
}

// Result holds the records built from one search, row aligned where the
// tables describe the same submission: Redditors[i] is the author of
// Submissions[i].
type Result struct {
	Redditors   *data.Table
	Submissions *data.Table
	Comments    *data.Table
}

func New(logger *slog.Logger, source Source, subreddits *repos.SubredditRepo, writer *repos.Writer, builder *extract.Builder, opts Options) *Crawler {
	keywords := make([]matchers.Keyword, 0, len(opts.Keywords))
	for _, raw := range opts.Keywords {
		kw := matchers.ParseKeyword(raw)
		if len(kw.Parts) == 0 {
			continue
		}
		keywords = append(keywords, kw)
	}

	matchMode := opts.MatchMode
	if matchMode == enums.MatchModeInvalid {
		matchMode = enums.MatchModeBroad
	}
	timeFilter := opts.TimeFilter
	if timeFilter == "" {
		timeFilter = "year"
	}

	return &Crawler{
		logger:     logger,
		source:     source,
		subreddits: subreddits,
		writer:     writer,
		builder:    builder,
		keywords:   keywords,
		matchMode:  matchMode,
		timeFilter: timeFilter,
	}
}

// RegisterSubreddits stores every named subreddit that is not registered
// yet. A subreddit that cannot be fetched is logged and skipped; a database
// failure stops registration.
func (c *Crawler) RegisterSubreddits(names []string) error {
	for _, name := range names {
		_, ok, err := c.subreddits.FindByName(name)
		if err != nil {
			return errors.Wrap(err, "register subreddits")
		}
		if ok {
			c.logger.Debug("subreddit already registered", "subreddit", name)
			continue
		}

		sub, err := c.source.Subreddit(name)
		if err != nil {
			c.logger.Error("register subreddits: fetch subreddit", "subreddit", name, "error", err)
			continue
		}

		records := c.builder.Build([]extract.Object{sub}, SubredditMapping)
		inserted, err := c.subreddits.Insert(records)
		if err != nil {
			if errors.Is(err, data.ErrConnection) {
				return errors.Wrap(err, "register subreddits")
			}
			c.logger.Error("register subreddits: insert subreddit", "subreddit", name, "error", err)
			continue
		}
		c.logger.Info("registered subreddit", "subreddit", name, "new", inserted)
	}

	return nil
}

// Run searches all registered subreddits. Search and insert failures are
// logged and skipped; Run only returns early when ctx is done or the
// database cannot be reached.
func (c *Crawler) Run(ctx context.Context) error {
	run := c.withLogger(c.logger.With("run_id", uuid.New().String()))

	subs, err := run.subreddits.All()
	if err != nil {
		return errors.Wrap(err, "run: load subreddits")
	}
	run.logger.Info("starting crawl", "subreddits", subs.Len(), "keywords", len(run.keywords))

	names := subs.Column("display_name")
	ids := subs.Column("subreddit_id")
	for i := range names {
		name, ok := names[i].(string)
		if !ok || name == "" {
			run.logger.Warn("skipping subreddit without display name", "subreddit_id", ids[i])
			continue
		}
		id, _ := ids[i].(string)

		run.logger.Info("now searching", "subreddit", name)
		for _, kw := range run.keywords {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := run.SearchKeyword(name, id, kw); err != nil {
				if errors.Is(err, data.ErrConnection) {
					return err
				}
				run.logger.Error("search keyword failed", "subreddit", name, "keyword", kw.Raw, "error", err)
			}
		}
	}

	run.logger.Info("crawl finished")
	return nil
}

func (c *Crawler) withLogger(logger *slog.Logger) *Crawler {
	copied := *c
	copied.logger = logger
	return &copied
}

// SearchKeyword searches one subreddit for one keyword and stores the
// results in dependency order.
func (c *Crawler) SearchKeyword(subreddit, subredditID string, kw matchers.Keyword) error {
	c.logger.Info("searching for keyword", "subreddit", subreddit, "keyword", kw.Raw)

	result, err := c.PerformQuery(subreddit, kw)
	if err != nil {
		return err
	}

	redditorStage, _, err := c.writer.Subreddit(subredditID).WriteRedditors(result.Redditors)
	if err != nil {
		return errors.Wrap(err, "store search results")
	}
	submissionStage, _, err := redditorStage.WriteSubmissions(result.Submissions)
	if err != nil {
		return errors.Wrap(err, "store search results")
	}
	if _, err := submissionStage.WriteComments(result.Comments); err != nil {
		return errors.Wrap(err, "store search results")
	}

	return nil
}

// PerformQuery runs the search for kw and builds the records for the
// submissions found, their authors and all of their comments. A submission
// whose comments cannot be loaded is kept without comments.
func (c *Crawler) PerformQuery(subreddit string, kw matchers.Keyword) (*Result, error) {
	found, err := c.source.Search(subreddit, kw.Query(), c.timeFilter)
	if err != nil {
		return nil, errors.Wrapf(err, "search %s for %q", subreddit, kw.Raw)
	}

	extractor := c.builder.Extractor()
	submissions := make([]extract.Object, len(found))
	authors := make([]extract.Object, len(found))
	exact := make([]any, len(found))
	for i, s := range found {
		submissions[i] = s
		authors[i] = extractor.Related(s, "author")
		if authors[i] == nil {
			c.logger.Debug("cannot get author from submission", "subreddit", subreddit, "keyword", kw.Raw, "index", i)
		}
		exact[i] = c.hasExactKeyword(s, kw)
	}

	result := &Result{
		Redditors:   c.builder.Build(authors, RedditorMapping),
		Submissions: c.builder.Build(submissions, SubmissionMapping, extract.Constant{Name: "keyword", Value: kw.Raw}),
	}
	if err := result.Submissions.SetColumn("has_exact_keyword", exact); err != nil {
		return nil, err
	}

	submissionIDs := result.Submissions.Column(SubmissionMapping.IDColumn)
	var comments []extract.Object
	var tags []any
	for i, s := range found {
		thread, err := s.Thread()
		if err != nil {
			c.logger.Error("cannot replace more comments", "submission", submissionIDs[i], "error", err)
			continue
		}
		for _, comment := range thread {
			comments = append(comments, comment)
			tags = append(tags, submissionIDs[i])
		}
	}

	result.Comments = c.builder.Build(comments, CommentMapping(c.builder.Resolver()))
	if err := result.Comments.SetColumn("submission", tags); err != nil {
		return nil, err
	}

	c.logger.Debug("query performed", "subreddit", subreddit, "keyword", kw.Raw,
		"submissions", result.Submissions.Len(), "comments", result.Comments.Len())
	return result, nil
}

// hasExactKeyword is nil when the title cannot be read.
func (c *Crawler) hasExactKeyword(s Submission, kw matchers.Keyword) any {
	title, err := s.Title()
	if err != nil {
		return nil
	}
	match, err := kw.MatchesTitle(title, c.matchMode)
	if err != nil {
		c.logger.Error("failed to check match", "keyword", kw.Raw, "error", err)
		return nil
	}
	return match
}
