package linkfinder_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"osmautolink/internal/config"
	"osmautolink/internal/linkfinder"
	"osmautolink/internal/services"
	"osmautolink/internal/testsupport"
)

func TestExtractLink(t *testing.T) {
	cases := []struct {
		name   string
		answer string
		want   string
	}{
		{"plain", "https://example.pl", "https://example.pl"},
		{"sentence", "The homepage is https://example.pl/kontakt.", "https://example.pl/kontakt"},
		{"citations", "https://example.pl/[1][2]", "https://example.pl/"},
		{"mixed suffix", "(see https://example.pl/o-nas),[3].", "https://example.pl/o-nas"},
		{"nothing", "I could not find a reliable match.", ""},
		{"empty", "", ""},
		{"think block", "<think>maybe http://wrong.example</think>\nhttp://right.example", "http://right.example"},
		{"last think wins", "<think>a</think>b<think>http://x.example</think> none", ""},
		{"query string kept", "https://example.pl/?id=5&x=1", "https://example.pl/?id=5&x=1"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := linkfinder.ExtractLink(tc.answer); got != tc.want {
				t.Fatalf("ExtractLink(%q) = %q, want %q", tc.answer, got, tc.want)
			}
		})
	}
}

type stubCompleter struct {
	answer string
	err    error
	system string
	user   string
}

func (s *stubCompleter) Complete(_ context.Context, system, user string) (string, error) {
	s.system, s.user = system, user
	return s.answer, s.err
}

func TestFinderBuildsPrompts(t *testing.T) {
	stub := &stubCompleter{answer: "<think>searching</think> https://cafe.example/."}
	finder := linkfinder.NewFinder(stub, "stub")

	got, err := finder.FindLink(context.Background(), "'Cafe' near addr:city='Radom'")
	if err != nil {
		t.Fatalf("FindLink: %v", err)
	}
	if got != "https://cafe.example/" {
		t.Fatalf("link = %q", got)
	}
	if stub.system != linkfinder.SystemPrompt {
		t.Fatalf("system prompt = %q", stub.system)
	}
	if stub.user != "Can you search for a homepage website for this POI? 'Cafe' near addr:city='Radom'" {
		t.Fatalf("user prompt = %q", stub.user)
	}
}

func TestFinderPropagatesErrors(t *testing.T) {
	boom := errors.New("boom")
	finder := linkfinder.NewFinder(&stubCompleter{err: boom}, "stub")
	if _, err := finder.FindLink(context.Background(), "q"); !errors.Is(err, boom) {
		t.Fatalf("expected wrapped error, got %v", err)
	}
}

func TestNewPerplexityBackend(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Model    string `json:"model"`
			Messages []struct {
				Content string `json:"content"`
			} `json:"messages"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req.Model != "sonar-reasoning" || !strings.Contains(req.Messages[1].Content, "Piekarnia") {
			t.Errorf("unexpected request %+v", req)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []any{map[string]any{"message": map[string]any{"content": "https://piekarnia.example"}}},
		})
	}))
	defer server.Close()

	cfg := testsupport.NewConfig(t, testsupport.WithLLM(server.URL))
	finder, err := linkfinder.New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if finder.Name() != "perplexity/sonar-reasoning" {
		t.Fatalf("name = %q", finder.Name())
	}
	got, err := finder.FindLink(context.Background(), "'Piekarnia'")
	if err != nil || got != "https://piekarnia.example" {
		t.Fatalf("FindLink = %q, %v", got, err)
	}
}

func TestNewRequiresKey(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.LLM.APIKey = ""
	if _, err := linkfinder.New(cfg); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}

	cfg.LLM.Provider = config.ProviderGemini
	cfg.LLM.GeminiAPIKey = "g"
	finder, err := linkfinder.New(cfg)
	if err != nil {
		t.Fatalf("New gemini: %v", err)
	}
	if !strings.HasPrefix(finder.Name(), "gemini/") {
		t.Fatalf("name = %q", finder.Name())
	}
}
