package models

import "encoding/json"

// Kind prefixes used by the Reddit API for things and fullnames.
const (
	KindComment   = "t1"
	KindRedditor  = "t2"
	KindLink      = "t3"
	KindSubreddit = "t5"
	KindMore      = "more"
	KindListing   = "Listing"
)

// RedditThing is any object returned by the API. Data is decoded later,
// depending on Kind.
type RedditThing struct {
	Kind string          `json:"kind"`
	Data json.RawMessage `json:"data"`
}

type RedditListing struct {
	Kind string `json:"kind"`
	Data struct {
		After    string        `json:"after"`
		Before   string        `json:"before"`
		Children []RedditThing `json:"children"`
	} `json:"data"`
}

// RedditMore is a placeholder for comments that were not included in a
// response. A stub with no children is a "continue this thread" link.
type RedditMore struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	ParentID string   `json:"parent_id"`
	Count    int      `json:"count"`
	Depth    int      `json:"depth"`
	Children []string `json:"children"`
}

type RedditMoreChildrenResponse struct {
	JSON struct {
		Errors [][]any `json:"errors"`
		Data   struct {
			Things []RedditThing `json:"things"`
		} `json:"data"`
	} `json:"json"`
}
