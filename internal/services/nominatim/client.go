package nominatim

import (
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

// MaxLookupIDs is the server-side limit on osm_ids per request.
const MaxLookupIDs = 50

// Place is a lookup result.
type Place struct {
	OSMType     string            `json:"osm_type"`
	OSMID       int64             `json:"osm_id"`
	DisplayName string            `json:"display_name"`
	Address     map[string]string `json:"address"`
}

// ObjectID converts the result reference.
func (p Place) ObjectID() (osm.ObjectID, error) {
	return osm.NewObjectID(osm.Kind(p.OSMType), p.OSMID)
}

// Client queries a Nominatim instance.
type Client struct {
	baseURL    string
	batchSize  int
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

// WithBatchSize caps ids per request (at most MaxLookupIDs).
func WithBatchSize(size int) Option {
	return func(c *Client) {
		if size > 0 && size <= MaxLookupIDs {
			c.batchSize = size
		}
	}
}

// NewClient builds a client for the instance at baseURL.
func NewClient(baseURL string, opts ...Option) *Client {
	client := &Client{
		baseURL:    strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		batchSize:  MaxLookupIDs,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		retry:      services.DefaultRetryPolicy(),
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// Lookup resolves ids in chunks. Objects Nominatim does not know are
// simply absent from the result.
func (c *Client) Lookup(ctx context.Context, ids []osm.ObjectID) ([]Place, error) {
	var places []Place
	for start := 0; start < len(ids); start += c.batchSize {
		chunk := ids[start:min(start+c.batchSize, len(ids))]
		found, err := c.lookupChunk(ctx, chunk)
		if err != nil {
			return nil, err
		}
		places = append(places, found...)
	}
	return places, nil
}

func (c *Client) lookupChunk(ctx context.Context, ids []osm.ObjectID) ([]Place, error) {
	refs := make([]string, len(ids))
	for i, id := range ids {
		refs[i] = id.NominatimRef()
	}
	params := url.Values{
		"format":         {"jsonv2"},
		"addressdetails": {"1"},
		"osm_ids":        {strings.Join(refs, ",")},
	}
	endpoint := c.baseURL + "/lookup?" + params.Encode()

	var places []Place
	err := c.retry.Do(ctx, "nominatim lookup", func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return fmt.Errorf("new request: %w", err)
		}
		req.Header.Set("User-Agent", services.UserAgent)
		resp, err := c.httpClient.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		if err := services.CheckResponse("nominatim lookup", resp); err != nil {
			return err
		}
		places = places[:0]
		return json.NewDecoder(resp.Body).Decode(&places)
	})
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return nil, err
		}
		return nil, services.Wrap(services.ErrTransport, "discovery", "nominatim lookup", "", err)
	}
	return places, nil
}
