package sources

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/kova98/redditlookup/metrics"
	"github.com/kova98/redditlookup/models"
)

// moreChildrenBatch is the most ids the API expands in one morechildren call.
const moreChildrenBatch = 100

type pendingMore struct {
	stub   models.RedditMore
	parent *Comment
}

// CommentForest is the comment tree of one submission, possibly still
// holding "more" stubs.
type CommentForest struct {
	client   *Client
	linkID   string
	comments []*Comment
	pending  []pendingMore
	index    map[string]*Comment
}

// Comments fetches the comment tree of a submission by id or fullname.
func (c *Client) Comments(submissionID string) (*CommentForest, error) {
	id := stripPrefix(submissionID)

	var listings []models.RedditListing
	if err := c.get("/comments/"+url.PathEscape(id)+".json", nil, &listings); err != nil {
		return nil, err
	}
	if len(listings) < 2 {
		return nil, fmt.Errorf("comments of %s: expected 2 listings, got %d", id, len(listings))
	}

	f := &CommentForest{
		client: c,
		linkID: models.KindLink + "_" + id,
		index:  make(map[string]*Comment),
	}
	f.addThings(listings[1].Data.Children, nil)
	return f, nil
}

// Stubs reports how many "more" placeholders are still unresolved.
func (f *CommentForest) Stubs() int {
	return len(f.pending)
}

// ReplaceMore resolves every "more" stub, including stubs returned while
// resolving others, until none remain. It stops at the first failed request.
func (f *CommentForest) ReplaceMore() error {
	for len(f.pending) > 0 {
		next := f.pending[0]
		f.pending = f.pending[1:]

		var err error
		if len(next.stub.Children) == 0 {
			err = f.continueThread(next)
		} else {
			err = f.expand(next.stub)
		}
		if err != nil {
			return fmt.Errorf("replace more in %s: %w", f.linkID, err)
		}
	}
	return nil
}

// List flattens the forest breadth first: all top level comments, then their
// replies, and so on.
func (f *CommentForest) List() []*Comment {
	list := make([]*Comment, 0, len(f.index))
	queue := append([]*Comment(nil), f.comments...)
	for len(queue) > 0 {
		c := queue[0]
		queue = queue[1:]
		list = append(list, c)
		queue = append(queue, c.replies...)
	}
	return list
}

func (f *CommentForest) expand(stub models.RedditMore) error {
	for start := 0; start < len(stub.Children); start += moreChildrenBatch {
		end := min(start+moreChildrenBatch, len(stub.Children))

		params := url.Values{}
		params.Set("api_type", "json")
		params.Set("link_id", f.linkID)
		params.Set("children", strings.Join(stub.Children[start:end], ","))
		params.Set("limit_children", "false")

		var resp models.RedditMoreChildrenResponse
		if err := f.client.get("/api/morechildren.json", params, &resp); err != nil {
			return err
		}
		if len(resp.JSON.Errors) > 0 {
			return fmt.Errorf("morechildren: %v", resp.JSON.Errors)
		}

		// Things arrive flat, parents before their replies.
		for _, thing := range resp.JSON.Data.Things {
			parentID := parentOf(thing)
			f.addThings([]models.RedditThing{thing}, f.index[parentID])
		}
	}
	return nil
}

// continueThread loads a "continue this thread" link: the parent comment is
// fetched again together with its replies.
func (f *CommentForest) continueThread(next pendingMore) error {
	parentID := stripPrefix(next.stub.ParentID)
	path := "/comments/" + url.PathEscape(stripPrefix(f.linkID)) + "/_/" + url.PathEscape(parentID) + ".json"

	var listings []models.RedditListing
	if err := f.client.get(path, nil, &listings); err != nil {
		return err
	}
	if len(listings) < 2 || len(listings[1].Data.Children) == 0 {
		return nil
	}

	root := listings[1].Data.Children[0]
	replies, err := repliesOf(root.Data)
	if err != nil {
		return err
	}
	if replies != nil {
		f.addThings(replies.Data.Children, next.parent)
	}
	return nil
}

// addThings attaches comments and stubs under parent, or at the top level
// when parent is nil. Comments already in the forest are skipped.
func (f *CommentForest) addThings(things []models.RedditThing, parent *Comment) {
	for _, thing := range things {
		switch thing.Kind {
		case models.KindComment:
			c, err := newComment(f.client, thing.Data)
			if err != nil {
				f.client.logger.Warn("failed to decode comment", "link", f.linkID, "error", err)
				continue
			}
			fullname, _ := c.Fullname()
			if _, seen := f.index[fullname]; seen && fullname != "" {
				continue
			}
			f.index[fullname] = c
			metrics.Fetched.WithLabelValues("comment").Inc()

			if parent == nil {
				f.comments = append(f.comments, c)
			} else {
				parent.replies = append(parent.replies, c)
			}

			replies, err := repliesOf(thing.Data)
			if err != nil {
				f.client.logger.Warn("failed to decode replies", "comment", fullname, "error", err)
				continue
			}
			if replies != nil {
				f.addThings(replies.Data.Children, c)
			}
		case models.KindMore:
			var stub models.RedditMore
			if err := json.Unmarshal(thing.Data, &stub); err != nil {
				f.client.logger.Warn("failed to decode more stub", "link", f.linkID, "error", err)
				continue
			}
			f.pending = append(f.pending, pendingMore{stub: stub, parent: parent})
		default:
			f.client.logger.Warn("unexpected thing in comment tree", "kind", thing.Kind, "link", f.linkID)
		}
	}
}

// repliesOf decodes the replies of a comment. The API sends an empty string
// instead of a listing when there are none.
func repliesOf(raw json.RawMessage) (*models.RedditListing, error) {
	var holder struct {
		Replies json.RawMessage `json:"replies"`
	}
	if err := json.Unmarshal(raw, &holder); err != nil {
		return nil, err
	}
	if !bytes.HasPrefix(bytes.TrimSpace(holder.Replies), []byte("{")) {
		return nil, nil
	}

	var listing models.RedditListing
	if err := json.Unmarshal(holder.Replies, &listing); err != nil {
		return nil, err
	}
	return &listing, nil
}

func parentOf(thing models.RedditThing) string {
	var holder struct {
		ParentID string `json:"parent_id"`
	}
	_ = json.Unmarshal(thing.Data, &holder)
	return holder.ParentID
}
