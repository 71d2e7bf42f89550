package sources

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/kova98/redditlookup/extract"
	"github.com/kova98/redditlookup/metrics"
)

const (
	PublicBaseURL = "https://www.reddit.com"
	OAuthBaseURL  = "https://oauth.reddit.com"

	defaultUserAgent = "redditlookup/0.1"
	maxErrorBody     = 300

	maxCachedRedditors = 10000
)

var (
	// ErrNotFound is returned for objects the API reports as missing, such as
	// deleted or shadowbanned accounts.
	ErrNotFound = fmt.Errorf("not found: %w", extract.ErrUnavailable)
	// ErrForbidden is returned for private, quarantined or banned objects.
	ErrForbidden = fmt.Errorf("forbidden: %w", extract.ErrUnavailable)
	// ErrDeleted is returned when reading the author of deleted content.
	ErrDeleted = fmt.Errorf("deleted: %w", extract.ErrUnavailable)
)

type ClientConfig struct {
	BaseURL      string
	UserAgent    string
	RequestDelay time.Duration
}

// Client talks to the Reddit JSON API. Requests are spaced by RequestDelay.
// Client is not safe for concurrent use.
type Client struct {
	logger      *slog.Logger
	httpClient  *http.Client
	baseURL     string
	userAgent   string
	delay       time.Duration
	lastRequest time.Time
	redditors   map[string]*Redditor
}

func NewClient(logger *slog.Logger, httpClient *http.Client, cfg ClientConfig) *Client {
	baseURL := strings.TrimSuffix(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = PublicBaseURL
	}
	userAgent := cfg.UserAgent
	if userAgent == "" {
		userAgent = defaultUserAgent
	}

	return &Client{
		logger:     logger,
		httpClient: httpClient,
		baseURL:    baseURL,
		userAgent:  userAgent,
		delay:      cfg.RequestDelay,
		redditors:  make(map[string]*Redditor),
	}
}

// Subreddit returns a lazily loaded subreddit. Nothing is fetched until one
// of its attributes is read or Load is called.
func (c *Client) Subreddit(name string) *Subreddit {
	return &Subreddit{client: c, displayName: name}
}

// Redditor returns a lazily loaded account. Accounts are cached by name so
// an author shared by several posts is fetched once. The cache is cleared
// when it reaches maxCachedRedditors.
func (c *Client) Redditor(name string) *Redditor {
	if r, ok := c.redditors[name]; ok {
		return r
	}
	if len(c.redditors) >= maxCachedRedditors {
		clear(c.redditors)
	}
	r := &Redditor{client: c, name: name}
	c.redditors[name] = r
	return r
}

func (c *Client) forgetRedditor(r *Redditor) {
	if c.redditors[r.name] == r {
		delete(c.redditors, r.name)
	}
}

func (c *Client) get(path string, query url.Values, out any) error {
	if query == nil {
		query = url.Values{}
	}
	query.Set("raw_json", "1")
	endpoint := c.baseURL + path + "?" + query.Encode()

	c.wait()
	req, err := http.NewRequest(http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.RemoteFailures.WithLabelValues(operation(path)).Inc()
		return fmt.Errorf("get %s: %w", path, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return fmt.Errorf("get %s: %w", path, ErrNotFound)
	case http.StatusForbidden:
		return fmt.Errorf("get %s: %w", path, ErrForbidden)
	default:
		metrics.RemoteFailures.WithLabelValues(operation(path)).Inc()
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return fmt.Errorf("reddit returned status %d: %s", resp.StatusCode, string(body))
	}

	dec := json.NewDecoder(resp.Body)
	dec.UseNumber()
	if err := dec.Decode(out); err != nil {
		metrics.RemoteFailures.WithLabelValues(operation(path)).Inc()
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

func (c *Client) wait() {
	if c.delay <= 0 {
		return
	}
	if elapsed := time.Since(c.lastRequest); elapsed < c.delay {
		time.Sleep(c.delay - elapsed)
	}
	c.lastRequest = time.Now()
}

// operation reduces a request path to a low-cardinality metric label.
func operation(path string) string {
	switch {
	case strings.HasSuffix(path, "/search.json"):
		return "search"
	case strings.HasPrefix(path, "/api/morechildren"):
		return "morechildren"
	case strings.HasPrefix(path, "/comments/"):
		return "comments"
	case strings.HasPrefix(path, "/user/"):
		return "redditor"
	case strings.HasPrefix(path, "/r/"):
		return "subreddit"
	}
	return "other"
}

// attrs holds the decoded data of one thing. Numbers are stored as int64 when
// integral and float64 otherwise.
type attrs map[string]any

func decodeAttrs(raw json.RawMessage) (attrs, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var m map[string]any
	if err := dec.Decode(&m); err != nil {
		return nil, err
	}
	if m == nil {
		return nil, errors.New("empty object")
	}
	for k, v := range m {
		m[k] = normalize(v)
	}
	return m, nil
}

func normalize(v any) any {
	switch t := v.(type) {
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return i
		}
		if f, err := t.Float64(); err == nil {
			return f
		}
		return t.String()
	case map[string]any:
		for k, inner := range t {
			t[k] = normalize(inner)
		}
		return t
	case []any:
		for i, inner := range t {
			t[i] = normalize(inner)
		}
		return t
	}
	return v
}

func (a attrs) get(name string) (any, error) {
	v, ok := a[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", extract.ErrUnavailable, name)
	}
	return v, nil
}

// str reads a non-empty string attribute.
func (a attrs) str(name string) (string, error) {
	v, err := a.get(name)
	if err != nil {
		return "", err
	}
	s, ok := v.(string)
	if !ok || s == "" {
		return "", fmt.Errorf("%w: %s is not a string", extract.ErrUnavailable, name)
	}
	return s, nil
}

// stripPrefix turns a fullname such as "t3_abc" into its bare id.
func stripPrefix(fullname string) string {
	if _, id, ok := strings.Cut(fullname, "_"); ok {
		return id
	}
	return fullname
}
