package overpass

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"osmautolink/internal/osm"
	"osmautolink/internal/services"
)

// Element is one result of an "out tags" query.
type Element struct {
	Type string `json:"type"`
	ID   int64  `json:"id"`
	Tags Tags   `json:"tags"`
}

// ObjectID converts the element reference.
func (e Element) ObjectID() (osm.ObjectID, error) {
	return osm.NewObjectID(osm.Kind(e.Type), e.ID)
}

// Tags is an ordered tag list decoded from a JSON object.
type Tags []osm.Tag

// UnmarshalJSON preserves key order, which a map would lose.
func (t *Tags) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		*t = nil
		return nil
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("overpass tags: expected object, got %v", tok)
	}
	var out Tags
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("overpass tags: unexpected key %v", keyTok)
		}
		var value string
		if err := dec.Decode(&value); err != nil {
			return fmt.Errorf("overpass tags: value for %q: %w", key, err)
		}
		out = append(out, osm.Tag{Key: key, Value: value})
	}
	*t = out
	return nil
}

// Get returns the value stored under key.
func (t Tags) Get(key string) (string, bool) {
	for _, tag := range t {
		if tag.Key == key {
			return tag.Value, true
		}
	}
	return "", false
}

// Has reports whether key is present.
func (t Tags) Has(key string) bool {
	_, ok := t.Get(key)
	return ok
}

// MissingWebsiteQuery selects named POIs inside the area of relation
// areaRelationID that carry no brand, wikidata, website or url tags.
func MissingWebsiteQuery(areaRelationID int64, timeoutSeconds int) string {
	return fmt.Sprintf(
		"[out:json][timeout:%d];"+
			"relation(id:%d);"+
			"map_to_area;"+
			"nwr[name][!highway][!place][!brand][!wikidata][!website][!url](area);"+
			"out tags qt;",
		timeoutSeconds, areaRelationID,
	)
}

// Client posts queries to an interpreter endpoint.
type Client struct {
	endpoint   string
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

// WithRetryPolicy overrides the default retry policy.
func WithRetryPolicy(policy services.RetryPolicy) Option {
	return func(c *Client) {
		c.retry = policy
	}
}

// NewClient builds a client for endpoint. The HTTP timeout is twice the
// server-side query timeout.
func NewClient(endpoint string, queryTimeout time.Duration, opts ...Option) *Client {
	client := &Client{
		endpoint:   strings.TrimSpace(endpoint),
		httpClient: &http.Client{Timeout: 2 * queryTimeout},
		retry:      services.DefaultRetryPolicy(),
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// Query runs query and returns its elements.
func (c *Client) Query(ctx context.Context, query string) ([]Element, error) {
	if strings.TrimSpace(query) == "" {
		return nil, errors.New("overpass query: empty query")
	}
	var payload struct {
		Elements []Element `json:"elements"`
		Remark   string    `json:"remark"`
	}
	err := c.retry.Do(ctx, "overpass query", func(ctx context.Context) error {
		form := url.Values{"data": {query}}
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, strings.NewReader(form.Encode()))
		if err != nil {
			return fmt.Errorf("new request: %w", err)
		}
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		req.Header.Set("User-Agent", services.UserAgent)
		resp, err := c.httpClient.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		if err := services.CheckResponse("overpass query", resp); err != nil {
			return err
		}
		return json.NewDecoder(resp.Body).Decode(&payload)
	})
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return nil, err
		}
		return nil, services.Wrap(services.ErrTransport, "discovery", "overpass query", "", err)
	}
	// The interpreter reports runtime errors (timeouts, memory) as a remark
	// alongside a truncated element list.
	if strings.Contains(strings.ToLower(payload.Remark), "error") {
		return nil, services.Wrap(services.ErrTransport, "discovery", "overpass query", payload.Remark, nil)
	}
	return payload.Elements, nil
}
