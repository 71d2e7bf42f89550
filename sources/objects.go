package sources

import (
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/kova98/redditlookup/models"
)

const deletedAuthor = "[deleted]"

// Subreddit is loaded from /r/{name}/about on first use. A failed load is
// remembered and returned by every later read.
type Subreddit struct {
	client      *Client
	displayName string
	attrs       attrs
	loaded      bool
	err         error
}

func (s *Subreddit) Load() error {
	if s.loaded {
		return s.err
	}
	s.loaded = true

	var thing models.RedditThing
	if err := s.client.get("/r/"+url.PathEscape(s.displayName)+"/about.json", nil, &thing); err != nil {
		s.err = fmt.Errorf("load subreddit %s: %w", s.displayName, err)
		return s.err
	}
	if thing.Kind != models.KindSubreddit {
		s.err = fmt.Errorf("load subreddit %s: got %q: %w", s.displayName, thing.Kind, ErrNotFound)
		return s.err
	}

	s.attrs, s.err = decodeAttrs(thing.Data)
	if s.err != nil {
		s.err = fmt.Errorf("decode subreddit %s: %w", s.displayName, s.err)
	}
	return s.err
}

func (s *Subreddit) Attr(name string) (any, error) {
	if err := s.Load(); err != nil {
		return nil, err
	}
	return s.attrs.get(name)
}

func (s *Subreddit) Fullname() (string, error) {
	if err := s.Load(); err != nil {
		return "", err
	}
	return s.attrs.str("name")
}

func (s *Subreddit) ID() (string, error) {
	if err := s.Load(); err != nil {
		return "", err
	}
	return s.attrs.str("id")
}

// Redditor is an account known by name. The profile is fetched from
// /user/{name}/about the first time an attribute other than the name is read.
type Redditor struct {
	client   *Client
	name     string
	fullname string
	attrs    attrs
	loaded   bool
	err      error
}

// load fetches the profile once per Redditor. A failed load is kept on this
// value but the Redditor is dropped from the client cache, so later content
// by the same author gets a fresh attempt.
func (r *Redditor) load() error {
	if r.loaded {
		return r.err
	}
	r.loaded = true

	r.attrs, r.err = r.fetch()
	if r.err != nil {
		r.client.forgetRedditor(r)
	}
	return r.err
}

func (r *Redditor) fetch() (attrs, error) {
	var thing models.RedditThing
	if err := r.client.get("/user/"+url.PathEscape(r.name)+"/about.json", nil, &thing); err != nil {
		return nil, fmt.Errorf("load redditor %s: %w", r.name, err)
	}
	if thing.Kind != models.KindRedditor {
		return nil, fmt.Errorf("load redditor %s: got %q: %w", r.name, thing.Kind, ErrNotFound)
	}

	a, err := decodeAttrs(thing.Data)
	if err != nil {
		return nil, fmt.Errorf("decode redditor %s: %w", r.name, err)
	}
	return a, nil
}

func (r *Redditor) Attr(name string) (any, error) {
	if name == "name" {
		return r.name, nil
	}
	if err := r.load(); err != nil {
		return nil, err
	}
	return r.attrs.get(name)
}

// Fullname uses the author fullname seen on content when there is one and
// falls back to the profile. Suspended accounts have no id and fail here.
func (r *Redditor) Fullname() (string, error) {
	if r.fullname != "" {
		return r.fullname, nil
	}
	id, err := r.ID()
	if err != nil {
		return "", err
	}
	return models.KindRedditor + "_" + id, nil
}

func (r *Redditor) Name() (string, error) {
	if r.name == "" {
		return "", fmt.Errorf("redditor without name: %w", ErrNotFound)
	}
	return r.name, nil
}

func (r *Redditor) ID() (string, error) {
	if r.fullname != "" {
		return stripPrefix(r.fullname), nil
	}
	if err := r.load(); err != nil {
		return "", err
	}
	return r.attrs.str("id")
}

// authorOf resolves the author attribute of content to a Redditor.
func authorOf(c *Client, a attrs) (any, error) {
	name, err := a.str("author")
	if err != nil {
		return nil, err
	}
	if name == deletedAuthor {
		return nil, ErrDeleted
	}

	r := c.Redditor(name)
	if r.fullname == "" {
		if fullname, err := a.str("author_fullname"); err == nil {
			r.fullname = fullname
		}
	}
	return r, nil
}

type Submission struct {
	client *Client
	attrs  attrs
}

func newSubmission(c *Client, raw json.RawMessage) (*Submission, error) {
	a, err := decodeAttrs(raw)
	if err != nil {
		return nil, fmt.Errorf("decode submission: %w", err)
	}
	return &Submission{client: c, attrs: a}, nil
}

// Attr reads a field of the submission. "author" yields a *Redditor, or
// ErrDeleted when the author deleted their account.
func (s *Submission) Attr(name string) (any, error) {
	if name == "author" {
		return authorOf(s.client, s.attrs)
	}
	return s.attrs.get(name)
}

func (s *Submission) Fullname() (string, error) {
	return s.attrs.str("name")
}

func (s *Submission) ID() (string, error) {
	return s.attrs.str("id")
}

func (s *Submission) Title() (string, error) {
	v, err := s.attrs.get("title")
	if err != nil {
		return "", err
	}
	title, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("title is %T", v)
	}
	return title, nil
}

// Comments fetches the comment tree of the submission. Stubs are left in
// place until ReplaceMore is called on the forest.
func (s *Submission) Comments() (*CommentForest, error) {
	id, err := s.ID()
	if err != nil {
		return nil, err
	}
	return s.client.Comments(id)
}

type Comment struct {
	client  *Client
	attrs   attrs
	replies []*Comment
}

func newComment(c *Client, raw json.RawMessage) (*Comment, error) {
	a, err := decodeAttrs(raw)
	if err != nil {
		return nil, fmt.Errorf("decode comment: %w", err)
	}
	delete(a, "replies")
	return &Comment{client: c, attrs: a}, nil
}

func (c *Comment) Attr(name string) (any, error) {
	if name == "author" {
		return authorOf(c.client, c.attrs)
	}
	return c.attrs.get(name)
}

func (c *Comment) Fullname() (string, error) {
	return c.attrs.str("name")
}

func (c *Comment) ID() (string, error) {
	return c.attrs.str("id")
}

func (c *Comment) ParentID() string {
	id, _ := c.attrs.str("parent_id")
	return id
}
