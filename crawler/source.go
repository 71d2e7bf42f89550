package crawler

import (
	"github.com/kova98/redditlookup/extract"
	"github.com/kova98/redditlookup/sources"
)

// Submission is a search result: a record source that can also report its
// title and load its full comment thread.
type Submission interface {
	extract.Object
	Title() (string, error)
	// Thread returns every comment of the submission, stubs expanded,
	// breadth first.
	Thread() ([]extract.Object, error)
}

// Source is the content API the crawler reads from.
type Source interface {
	// Subreddit returns a loaded subreddit, or an error when it does not
	// exist or cannot be fetched.
	Subreddit(name string) (extract.Object, error)
	Search(subreddit, query, timeFilter string) ([]Submission, error)
}

// RedditSource serves a Crawler from the Reddit API.
type RedditSource struct {
	client *sources.Client
}

func NewRedditSource(client *sources.Client) *RedditSource {
	return &RedditSource{client: client}
}

func (s *RedditSource) Subreddit(name string) (extract.Object, error) {
	sub := s.client.Subreddit(name)
	if err := sub.Load(); err != nil {
		return nil, err
	}
	return sub, nil
}

func (s *RedditSource) Search(subreddit, query, timeFilter string) ([]Submission, error) {
	found, err := s.client.Search(subreddit, query, timeFilter)
	if err != nil {
		return nil, err
	}

	submissions := make([]Submission, len(found))
	for i, f := range found {
		submissions[i] = redditSubmission{f}
	}
	return submissions, nil
}

type redditSubmission struct {
	*sources.Submission
}

func (s redditSubmission) Thread() ([]extract.Object, error) {
	forest, err := s.Comments()
	if err != nil {
		return nil, err
	}
	if forest.Stubs() > 0 {
		if err := forest.ReplaceMore(); err != nil {
			return nil, err
		}
	}

	comments := forest.List()
	thread := make([]extract.Object, len(comments))
	for i, c := range comments {
		thread[i] = c
	}
	return thread, nil
}
