package scraper

import "errors"

// Common errors returned by the scraper package
var (
	// ErrFetchFailed is returned when the page could not be retrieved
	// (network error, timeout, DNS failure).
	ErrFetchFailed = errors.New("failed to fetch page")

	// ErrBadStatus is returned when the server responds with a non-2xx status.
	ErrBadStatus = errors.New("page returned unexpected status")

	// ErrUnsupportedContent is returned when the response body is not HTML
	// or cannot be parsed.
	ErrUnsupportedContent = errors.New("unsupported page content")

	// ErrEmptyURL is returned when an empty URL is passed to Fetch.
	ErrEmptyURL = errors.New("url cannot be empty")
)
