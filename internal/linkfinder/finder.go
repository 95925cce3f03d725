package linkfinder

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"osmautolink/internal/config"
	"osmautolink/internal/services"
	"osmautolink/internal/services/gemini"
	"osmautolink/internal/services/llm"
)

// SystemPrompt instructs the model to answer with a single URL or nothing.
const SystemPrompt = "You try to find homepage websites for requested POIs. " +
	"Those links will be added to the POIs on OpenStreetMap. " +
	"You must ignore non-exact matches and false positives! " +
	"If there isn't a high-quality match, say nothing. " +
	"If there is, say just the single best-matching fully qualified URL in plain text."

const userPromptPrefix = "Can you search for a homepage website for this POI? "

// LinkFinder returns the homepage URL for a POI described by query, or ""
// when none was found.
type LinkFinder interface {
	FindLink(ctx context.Context, query string) (string, error)
}

// Completer answers a system/user prompt pair with free text.
type Completer interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// Finder adapts a Completer into a LinkFinder.
type Finder struct {
	completer Completer
	name      string
}

// NewFinder wraps completer; name identifies the backend in logs.
func NewFinder(completer Completer, name string) *Finder {
	return &Finder{completer: completer, name: name}
}

// Name identifies the backend.
func (f *Finder) Name() string {
	return f.name
}

// FindLink asks the model and extracts the answer.
func (f *Finder) FindLink(ctx context.Context, query string) (string, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return "", fmt.Errorf("%s: empty query", f.name)
	}
	answer, err := f.completer.Complete(ctx, SystemPrompt, UserPrompt(query))
	if err != nil {
		return "", fmt.Errorf("%s: %w", f.name, err)
	}
	return ExtractLink(answer), nil
}

// UserPrompt renders the question sent for query.
func UserPrompt(query string) string {
	return userPromptPrefix + query
}

var (
	linkPattern   = regexp.MustCompile(`https?://\S+`)
	suffixPattern = regexp.MustCompile(`(?:\[\d+]|[,.)])+$`)
)

// ExtractLink returns the first URL in answer after any </think> block,
// without trailing punctuation or citation markers.
func ExtractLink(answer string) string {
	if idx := strings.LastIndex(answer, "</think>"); idx >= 0 {
		answer = answer[idx+len("</think>"):]
	}
	match := linkPattern.FindString(strings.TrimSpace(answer))
	if match == "" {
		return ""
	}
	return suffixPattern.ReplaceAllString(match, "")
}

// New builds the finder selected by cfg.LLM.Provider.
func New(cfg *config.Config) (*Finder, error) {
	if err := cfg.RequireLLM(); err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "linkfinder", "init", "", err)
	}
	switch cfg.LLM.Provider {
	case config.ProviderGemini:
		client := gemini.NewClient(gemini.Config{
			APIKey:      cfg.LLM.GeminiAPIKey,
			Model:       cfg.LLM.GeminiModel,
			Temperature: float32(cfg.LLM.Temperature),
		})
		return NewFinder(client, "gemini/"+cfg.LLM.GeminiModel), nil
	case config.ProviderPerplexity, "":
		client := llm.NewClient(llm.Config{
			APIKey:         cfg.LLM.APIKey,
			BaseURL:        cfg.LLM.BaseURL,
			Model:          cfg.LLM.Model,
			Temperature:    cfg.LLM.Temperature,
			TimeoutSeconds: cfg.LLM.TimeoutSeconds,
		})
		return NewFinder(client, "perplexity/"+client.Model()), nil
	default:
		return nil, services.Wrap(services.ErrConfiguration, "linkfinder", "init",
			fmt.Sprintf("unknown provider %q", cfg.LLM.Provider), nil)
	}
}
