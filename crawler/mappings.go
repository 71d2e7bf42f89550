package crawler

import "github.com/kova98/redditlookup/extract"

// createdAt derives the calendar timestamp from the raw epoch seconds.
var createdAt = extract.Column{Name: "created_at", Attr: "created_utc", Convert: extract.UnixTime}

var SubredditMapping = extract.Mapping{
	IDColumn: "subreddit_id",
	Columns: []extract.Column{
		{Name: "display_name", Attr: "display_name"},
		{Name: "description", Attr: "public_description"},
		{Name: "subscribers", Attr: "subscribers"},
		{Name: "over18", Attr: "over18"},
		{Name: "created_utc", Attr: "created_utc"},
		createdAt,
	},
}

var RedditorMapping = extract.Mapping{
	IDColumn: "redditor_id",
	Columns: []extract.Column{
		{Name: "username", Attr: "name"},
		{Name: "link_karma", Attr: "link_karma"},
		{Name: "comment_karma", Attr: "comment_karma"},
		{Name: "icon_img", Attr: "icon_img"},
		{Name: "has_verified_email", Attr: "has_verified_email"},
		{Name: "is_employee", Attr: "is_employee"},
		{Name: "is_mod", Attr: "is_mod"},
		{Name: "is_gold", Attr: "is_gold"},
		{Name: "is_suspended", Attr: "is_suspended"},
		{Name: "created_utc", Attr: "created_utc"},
		createdAt,
	},
}

// SubmissionMapping leaves out author and subreddit; the writer fills them
// from the earlier stages.
var SubmissionMapping = extract.Mapping{
	IDColumn: "submission_id",
	Columns: []extract.Column{
		{Name: "title", Attr: "title"},
		{Name: "score", Attr: "score"},
		{Name: "selftext", Attr: "selftext"},
		{Name: "upvote_ratio", Attr: "upvote_ratio"},
		{Name: "num_comments", Attr: "num_comments"},
		{Name: "url", Attr: "url"},
		{Name: "permalink", Attr: "permalink"},
		{Name: "author_flair_text", Attr: "author_flair_text"},
		{Name: "link_flair_text", Attr: "link_flair_text"},
		{Name: "distinguished", Attr: "distinguished"},
		{Name: "is_self", Attr: "is_self"},
		{Name: "locked", Attr: "locked"},
		{Name: "over_18", Attr: "over_18"},
		{Name: "created_utc", Attr: "created_utc"},
		createdAt,
	},
}

// CommentMapping resolves the comment author to its identity with r.
// The submission and subreddit columns are added by the crawler and writer.
func CommentMapping(r *extract.Resolver) extract.Mapping {
	return extract.Mapping{
		IDColumn: "comment_id",
		Columns: []extract.Column{
			{Name: "author", Attr: "author", Convert: r.Converter()},
			{Name: "body", Attr: "body"},
			{Name: "score", Attr: "score"},
			{Name: "distinguished", Attr: "distinguished"},
			{Name: "is_submitter", Attr: "is_submitter"},
			{Name: "parent_id", Attr: "parent_id"},
			{Name: "permalink", Attr: "permalink"},
			{Name: "created_utc", Attr: "created_utc"},
			createdAt,
		},
	}
}
