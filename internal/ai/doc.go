// Package ai sends a snapshot to an LLM provider and returns its analysis.
//
// Two providers are supported:
//   - openai: the Responses API, called over plain HTTP with 429 retry
//   - google: Gemini through the generative-ai-go client
//
// Both receive the same prompt (see BuildPrompt) and return free-form
// Markdown text. Provider failures are returned as errors; turning them
// into an error report is left to the caller.
package ai
