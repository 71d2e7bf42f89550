package sources

import (
	"net/url"
	"strconv"

	"github.com/kova98/redditlookup/metrics"
	"github.com/kova98/redditlookup/models"
)

const searchPageSize = 100

// Search returns every submission in subreddit matching query within the
// time window, following the listing's after token until it runs out.
// Results that are not submissions are logged and skipped.
func (c *Client) Search(subreddit, query, timeFilter string) ([]*Submission, error) {
	path := "/r/" + url.PathEscape(subreddit) + "/search.json"
	submissions := make([]*Submission, 0, searchPageSize)
	after := ""

	for {
		params := url.Values{}
		params.Set("q", query)
		params.Set("restrict_sr", "on")
		params.Set("sort", "relevance")
		params.Set("syntax", "lucene")
		params.Set("t", timeFilter)
		params.Set("limit", strconv.Itoa(searchPageSize))
		if after != "" {
			params.Set("after", after)
		}

		var listing models.RedditListing
		if err := c.get(path, params, &listing); err != nil {
			return nil, err
		}

		for _, child := range listing.Data.Children {
			if child.Kind != models.KindLink {
				c.logger.Warn("search result is not a submission", "kind", child.Kind, "query", query, "subreddit", subreddit)
				continue
			}
			submission, err := newSubmission(c, child.Data)
			if err != nil {
				c.logger.Warn("failed to decode search result", "query", query, "subreddit", subreddit, "error", err)
				continue
			}
			submissions = append(submissions, submission)
		}

		next := listing.Data.After
		if next == "" || next == after {
			break
		}
		after = next
	}

	metrics.Fetched.WithLabelValues("submission").Add(float64(len(submissions)))
	c.logger.Debug("search finished", "query", query, "subreddit", subreddit, "results", len(submissions))
	return submissions, nil
}
