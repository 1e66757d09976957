// Package extraction provides interfaces and error types for interacting
// with the external language-understanding service. It abstracts the
// details of the LLM API integration (Gemini), allowing the application to
// extract actionable tasks from chat messages without coupling to specific
// external services.
package extraction
