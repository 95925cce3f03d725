// Package gemini answers prompts with Google's Gemini models, grounded with
// Google Search so the model can look up live web pages.
package gemini
