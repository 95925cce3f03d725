package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"google.golang.org/genai"

	"osmautolink/internal/services"
)

// Config captures the settings required to reach the Gemini API.
type Config struct {
	APIKey      string
	Model       string
	Temperature float32
	// BaseURL overrides the API endpoint; empty uses the SDK default.
	BaseURL    string
	HTTPClient *http.Client
}

// Client wraps a lazily created genai client.
type Client struct {
	cfg   Config
	retry services.RetryPolicy

	mu     sync.Mutex
	client *genai.Client
}

// NewClient constructs a client. No network activity happens until the
// first request.
func NewClient(cfg Config) *Client {
	cfg.APIKey = strings.TrimSpace(cfg.APIKey)
	cfg.Model = strings.TrimSpace(cfg.Model)
	return &Client{cfg: cfg, retry: services.DefaultRetryPolicy()}
}

// WithRetryPolicy replaces the retry policy and returns the client.
func (c *Client) WithRetryPolicy(policy services.RetryPolicy) *Client {
	c.retry = policy
	return c
}

func (c *Client) genaiClient(ctx context.Context) (*genai.Client, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.client != nil {
		return c.client, nil
	}
	if c.cfg.APIKey == "" {
		return nil, services.Wrap(services.ErrConfiguration, "linkfinder", "gemini", "api key required", nil)
	}
	config := &genai.ClientConfig{
		Backend:    genai.BackendGeminiAPI,
		APIKey:     c.cfg.APIKey,
		HTTPClient: c.cfg.HTTPClient,
	}
	if c.cfg.BaseURL != "" {
		config.HTTPOptions = genai.HTTPOptions{BaseURL: c.cfg.BaseURL}
	}
	client, err := genai.NewClient(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("gemini client: %w", err)
	}
	c.client = client
	return client, nil
}

// Complete sends the prompts with Google Search grounding enabled and
// returns the answer text.
func (c *Client) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	if strings.TrimSpace(userPrompt) == "" {
		return "", errors.New("gemini complete: user prompt required")
	}
	client, err := c.genaiClient(ctx)
	if err != nil {
		return "", err
	}
	config := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(c.cfg.Temperature),
		Tools:       []*genai.Tool{{GoogleSearch: &genai.GoogleSearch{}}},
	}
	if strings.TrimSpace(systemPrompt) != "" {
		config.SystemInstruction = genai.NewContentFromText(systemPrompt, genai.RoleUser)
	}

	var text string
	err = c.retry.Do(ctx, "gemini complete", func(ctx context.Context) error {
		resp, err := client.Models.GenerateContent(ctx, c.cfg.Model, genai.Text(userPrompt), config)
		if err != nil {
			return asStatusError(err)
		}
		text = strings.TrimSpace(resp.Text())
		return nil
	})
	if err != nil {
		return "", err
	}
	return text, nil
}

// asStatusError maps SDK API errors onto the shared status error so the
// retry policy treats them like any other HTTP failure.
func asStatusError(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return &services.HTTPStatusError{
			Op:         "gemini generate",
			StatusCode: apiErr.Code,
			Body:       apiErr.Message,
		}
	}
	return err
}
