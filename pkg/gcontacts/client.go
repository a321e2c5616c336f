package gcontacts

import (
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"golang.org/x/oauth2"
)

const (
	// DefaultUser is the feed alias for the authenticated user.
	DefaultUser = "default"

	ProjectionThin = "thin"
	ProjectionFull = "full"

	defaultLimit = 200
)

// Client fetches a user's contact feed. All fields are set at construction
// and read-only afterwards, so one Client is safe for concurrent use.
type Client struct {
	token      string
	tokens     oauth2.TokenSource
	userID     string
	projection string
	base       string
	hc         *http.Client
}

type Option func(*Client)

// WithUser sets the feed owner. Default is the "default" alias.
func WithUser(id string) Option { return func(c *Client) { c.userID = id } }

// WithProjection sets the server-side detail level, thin or full.
func WithProjection(p string) Option { return func(c *Client) { c.projection = p } }

func WithHTTPClient(hc *http.Client) Option { return func(c *Client) { c.hc = hc } }

// WithBaseURL points the client at a different feed endpoint. Used by tests.
func WithBaseURL(u string) Option { return func(c *Client) { c.base = u } }

// WithTokenSource switches authorization from AuthSub to an OAuth2 bearer
// token drawn from ts on every request.
func WithTokenSource(ts oauth2.TokenSource) Option {
	return func(c *Client) { c.tokens = ts }
}

// New creates a client around an AuthSub session token. Pass an empty token
// when using WithTokenSource.
func New(token string, opts ...Option) *Client {
	c := &Client{
		token:      token,
		userID:     DefaultUser,
		projection: ProjectionThin,
		base:       FeedBase,
		hc:         http.DefaultClient,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *Client) authorization() (string, error) {
	if c.tokens != nil {
		tok, err := c.tokens.Token()
		if err != nil {
			return "", errors.Wrap(err, "getting bearer token")
		}
		return "Bearer " + tok.AccessToken, nil
	}
	return `AuthSub token="` + c.token + `"`, nil
}

// FetchError is returned when the feed endpoint answers with a non-2xx
// status. The response body is kept for diagnostics.
type FetchError struct {
	StatusCode int
	Status     string
	Body       []byte
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetching contacts: %s", e.Status)
}

// Fetch retrieves and parses one page of the contact feed. A limit of 200 is
// applied unless opts carries its own.
func (c *Client) Fetch(ctx context.Context, opts Params) (*Feed, error) {
	if !opts.hasKey("limit") {
		opts = append(Params{{"limit", Int(defaultLimit)}}, opts...)
	}
	u := c.base + "/" + url.QueryEscape(c.userID) + "/" + c.projection
	if q := translate(opts).Encode(); q != "" {
		u += "?" + q
	}
	req, err := http.NewRequestWithContext(ctx, "GET", u, nil)
	if err != nil {
		return nil, err
	}
	auth, err := c.authorization()
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", auth)
	req.Header.Set("Accept-Encoding", "gzip")
	req.Header.Set("User-Agent", userAgent)

	log.Debugf("Fetching %s", u)
	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, errors.Wrapf(err, "fetching contacts for %q", c.userID)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(resp.Body)
		return nil, &FetchError{
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Body:       body,
		}
	}
	body, err := decodeBody(resp)
	if err != nil {
		return nil, err
	}
	feed, err := parseFeed(body)
	if err != nil {
		return nil, err
	}
	log.Infof("Fetched %d contacts for %q", len(feed.Contacts), c.userID)
	return feed, nil
}

// decodeBody reads the response body, reversing gzip transport compression
// when the server applied it.
func decodeBody(resp *http.Response) ([]byte, error) {
	var r io.Reader = resp.Body
	if strings.Contains(resp.Header.Get("Content-Encoding"), "gzip") {
		zr, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, errors.Wrap(err, "decompressing response")
		}
		defer zr.Close()
		r = zr
	}
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(err, "reading response body")
	}
	return b, nil
}
