package osmapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"osmautolink/internal/osm"
	"osmautolink/internal/services"
)

const (
	defaultRequestTimeout = 30 * time.Second
	defaultUploadTimeout  = 180 * time.Second
	maxResponseBody       = 8 << 20
)

// Config captures connection settings.
type Config struct {
	BaseURL        string
	Token          string
	RequestTimeout time.Duration
	UploadTimeout  time.Duration
}

// User is the authenticated account.
type User struct {
	ID          int64  `json:"id"`
	DisplayName string `json:"display_name"`
}

// Client is an OSM API 0.6 client.
type Client struct {
	cfg        Config
	httpClient *http.Client
	retry      services.RetryPolicy
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithRetryPolicy overrides the retry policy used for reads.
func WithRetryPolicy(policy services.RetryPolicy) Option {
	return func(c *Client) {
		c.retry = policy
	}
}

// NewClient constructs a client. Per-request deadlines come from the
// configured timeouts rather than the HTTP client so uploads can run longer.
func NewClient(cfg Config, opts ...Option) *Client {
	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	cfg.Token = strings.TrimSpace(cfg.Token)
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = defaultRequestTimeout
	}
	if cfg.UploadTimeout <= 0 {
		cfg.UploadTimeout = defaultUploadTimeout
	}
	client := &Client{
		cfg:        cfg,
		httpClient: &http.Client{},
		retry:      services.DefaultRetryPolicy(),
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// UserDetails returns the account owning the token.
func (c *Client) UserDetails(ctx context.Context) (User, error) {
	var payload struct {
		User User `json:"user"`
	}
	err := c.retry.Do(ctx, "user details", func(ctx context.Context) error {
		body, err := c.do(ctx, http.MethodGet, "user/details.json", nil, "", c.cfg.RequestTimeout)
		if err != nil {
			return err
		}
		return json.Unmarshal(body, &payload)
	})
	if err != nil {
		return User{}, classify(err, "user details", false)
	}
	return payload.User, nil
}

// FetchElement downloads the current version of id.
func (c *Client) FetchElement(ctx context.Context, id osm.ObjectID) (osm.Element, error) {
	var el osm.Element
	path := string(id.Kind) + "/" + strconv.FormatInt(id.Ref, 10)
	err := c.retry.Do(ctx, "fetch "+id.String(), func(ctx context.Context) error {
		body, err := c.do(ctx, http.MethodGet, path, nil, "", c.cfg.RequestTimeout)
		if err != nil {
			return err
		}
		decoded, err := osm.DecodeElement(bytes.NewReader(body), id)
		if err != nil {
			return err
		}
		el = decoded
		return nil
	})
	if err != nil {
		return osm.Element{}, classify(err, "fetch "+id.String(), false)
	}
	return el, nil
}

// OpenChangeset creates a changeset carrying tags and returns its id.
func (c *Client) OpenChangeset(ctx context.Context, tags osm.ChangesetTags) (osm.ChangesetID, error) {
	doc, err := tags.Encode()
	if err != nil {
		return 0, err
	}
	body, err := c.do(ctx, http.MethodPut, "changeset/create", doc, "text/xml; charset=utf-8", c.cfg.RequestTimeout)
	if err != nil {
		return 0, classify(err, "open changeset", true)
	}
	raw := strings.TrimSpace(string(body))
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, services.Wrap(services.ErrTransport, "osm", "open changeset", "unexpected response "+services.Snippet(raw), err)
	}
	return osm.ChangesetID(id), nil
}

// UploadChange submits the osmChange document to an open changeset.
func (c *Client) UploadChange(ctx context.Context, change *osm.Change) error {
	if change == nil || change.Changeset <= 0 {
		return errors.New("upload change: document is not bound to a changeset")
	}
	doc, err := change.Encode()
	if err != nil {
		return err
	}
	path := "changeset/" + change.Changeset.String() + "/upload"
	if _, err := c.do(ctx, http.MethodPost, path, doc, "text/xml; charset=utf-8", c.cfg.UploadTimeout); err != nil {
		return classify(err, "upload changeset "+change.Changeset.String(), true)
	}
	return nil
}

// CloseChangeset closes an open changeset.
func (c *Client) CloseChangeset(ctx context.Context, id osm.ChangesetID) error {
	if _, err := c.do(ctx, http.MethodPut, "changeset/"+id.String()+"/close", nil, "", c.cfg.RequestTimeout); err != nil {
		return classify(err, "close changeset "+id.String(), true)
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, body []byte, contentType string, timeout time.Duration) ([]byte, error) {
	endpoint, err := url.JoinPath(c.cfg.BaseURL, path)
	if err != nil {
		return nil, fmt.Errorf("build url: %w", err)
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("User-Agent", services.UserAgent)
	if c.cfg.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.Token)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if err := services.CheckResponse(method+" "+path, resp); err != nil {
		return nil, err
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return data, nil
}

// classify tags err with a service marker. Client errors on writes mean the
// API refused the change.
func classify(err error, operation string, write bool) error {
	if errors.Is(err, context.Canceled) {
		return err
	}
	var statusErr *services.HTTPStatusError
	if errors.As(err, &statusErr) {
		switch {
		case statusErr.StatusCode == http.StatusUnauthorized || statusErr.StatusCode == http.StatusForbidden:
			return services.Wrap(services.ErrConfiguration, "osm", operation, "check osm.token", err)
		case write && statusErr.StatusCode >= 400 && statusErr.StatusCode < 500:
			return services.Wrap(services.ErrRejected, "osm", operation, "", err)
		case statusErr.StatusCode == http.StatusNotFound || statusErr.StatusCode == http.StatusGone:
			return services.Wrap(services.ErrNotFound, "osm", operation, "", err)
		}
	}
	return services.Wrap(services.ErrTransport, "osm", operation, "", err)
}
