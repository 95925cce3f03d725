// Package llm provides an OpenAI-compatible chat-completions client.
//
// The default endpoint is Perplexity, whose sonar models search the web
// before answering; any other OpenAI-compatible endpoint works as long as the
// model can browse. The client knows nothing about links or POIs: callers
// supply the system and user prompts and receive the raw answer text.
//
// # Retry Behaviour
//
// Requests retry on HTTP 408/429/5xx and transport errors with exponential
// backoff (base 1s, max 10s, up to 5 attempts by default) using
// services.RetryPolicy. Context cancellation aborts retries immediately.
package llm
