// Package gemini implements the extraction.Extractor interface using
// Google's Gemini API via the genai client library. It handles prompt
// construction, retry with exponential backoff for transient failures, and
// parsing of the structured extraction response.
package gemini
