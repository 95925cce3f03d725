// Package linkfinder asks a search-capable language model for the homepage of
// a point of interest.
//
// The model answers in free text. ExtractLink pulls the first URL out of the
// answer, ignoring any reasoning emitted before a closing </think> tag and
// stripping trailing punctuation and citation markers such as "[1]". An
// answer without a URL means the model found no confident match.
//
// Two backends are available: an OpenAI-compatible chat-completions endpoint
// (Perplexity sonar models by default) and Gemini with Google Search
// grounding. New selects one from configuration.
package linkfinder
