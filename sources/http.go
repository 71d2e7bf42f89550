package sources

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/net/proxy"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

const (
	TokenURL       = "https://www.reddit.com/api/v1/access_token"
	requestTimeout = 10 * time.Second
)

type Credentials struct {
	ClientID     string
	ClientSecret string
	Username     string
	Password     string
	UserAgent    string
	// TokenURL overrides the Reddit token endpoint.
	TokenURL string
}

// Authenticated reports whether requests should go through OAuth.
func (c Credentials) Authenticated() bool {
	return c.ClientID != ""
}

// NewHTTPClient builds the client used for Reddit requests. Without a client
// id requests are anonymous. With a username the password grant is used,
// otherwise the client credentials grant. proxyURL may name a socks5 proxy.
func NewHTTPClient(ctx context.Context, creds Credentials, proxyURL string) (*http.Client, error) {
	base, err := proxiedClient(proxyURL)
	if err != nil {
		return nil, err
	}
	base.Transport = &userAgentTransport{next: base.Transport, userAgent: creds.UserAgent}

	if !creds.Authenticated() {
		return base, nil
	}

	tokenURL := creds.TokenURL
	if tokenURL == "" {
		tokenURL = TokenURL
	}
	ctx = context.WithValue(ctx, oauth2.HTTPClient, base)

	var client *http.Client
	if creds.Username != "" {
		conf := &oauth2.Config{
			ClientID:     creds.ClientID,
			ClientSecret: creds.ClientSecret,
			Endpoint: oauth2.Endpoint{
				TokenURL:  tokenURL,
				AuthStyle: oauth2.AuthStyleInHeader,
			},
		}
		src := &passwordTokenSource{ctx: ctx, conf: conf, username: creds.Username, password: creds.Password}
		client = oauth2.NewClient(ctx, oauth2.ReuseTokenSource(nil, src))
	} else {
		conf := &clientcredentials.Config{
			ClientID:     creds.ClientID,
			ClientSecret: creds.ClientSecret,
			TokenURL:     tokenURL,
			AuthStyle:    oauth2.AuthStyleInHeader,
		}
		client = conf.Client(ctx)
	}
	client.Timeout = requestTimeout

	return client, nil
}

// passwordTokenSource runs the password grant again whenever the token
// expires; Reddit does not issue refresh tokens for this grant.
type passwordTokenSource struct {
	ctx      context.Context
	conf     *oauth2.Config
	username string
	password string
}

func (s *passwordTokenSource) Token() (*oauth2.Token, error) {
	token, err := s.conf.PasswordCredentialsToken(s.ctx, s.username, s.password)
	if err != nil {
		return nil, fmt.Errorf("reddit password grant: %w", err)
	}
	return token, nil
}

// userAgentTransport sets the User-Agent on requests that lack one, token
// requests included.
type userAgentTransport struct {
	next      http.RoundTripper
	userAgent string
}

func (t *userAgentTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	next := t.next
	if next == nil {
		next = http.DefaultTransport
	}
	if t.userAgent == "" || req.Header.Get("User-Agent") != "" {
		return next.RoundTrip(req)
	}

	clone := req.Clone(req.Context())
	clone.Header.Set("User-Agent", t.userAgent)
	return next.RoundTrip(clone)
}

func proxiedClient(proxyURL string) (*http.Client, error) {
	client := &http.Client{Timeout: requestTimeout}

	if proxyURL == "" {
		return client, nil
	}

	parsedURL, err := url.Parse(proxyURL)
	if err != nil {
		return nil, fmt.Errorf("parse proxy url: %w", err)
	}
	if parsedURL.Scheme != "socks5" {
		slog.Warn("ignoring proxy with unsupported scheme", "scheme", parsedURL.Scheme)
		return client, nil
	}

	var auth *proxy.Auth
	if parsedURL.User != nil {
		password, _ := parsedURL.User.Password()
		auth = &proxy.Auth{
			User:     parsedURL.User.Username(),
			Password: password,
		}
	}

	dialer, err := proxy.SOCKS5("tcp", parsedURL.Host, auth, proxy.Direct)
	if err != nil {
		return nil, fmt.Errorf("socks5 dialer: %w", err)
	}

	client.Transport = &http.Transport{
		DialContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
			return dialer.Dial(network, addr)
		},
	}
	slog.Info("using SOCKS5 proxy", "proxy", parsedURL.Host)

	return client, nil
}
