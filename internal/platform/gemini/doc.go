// Package gemini implements venue data extraction using Google's Gemini API.
// It renders page content into an extraction prompt, calls the model with
// retry and backoff on transient failures, and maps the JSON response onto
// the domain venue schema.
package gemini
