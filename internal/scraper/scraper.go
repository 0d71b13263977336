package scraper

import "context"

// PageMetadata holds document-level metadata extracted from a fetched page.
type PageMetadata struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// PageContent is the result of fetching a venue page: the cleaned text
// content, candidate image URLs (absolute), and page metadata.
type PageContent struct {
	Text     string       `json:"text"`
	Images   []string     `json:"images"`
	Metadata PageMetadata `json:"metadata"`
	URL      string       `json:"url"`
}

// Fetcher defines the interface for retrieving venue page content.
// This interface is the boundary between the task pipeline and the concrete
// scraping implementation, so the executor can be tested without network
// access and alternative fetchers (headless browser, cache) can be swapped in.
type Fetcher interface {
	// Fetch retrieves and parses the page at the given URL.
	// The context bounds the whole operation; exceeding the caller's
	// deadline is reported as a fetch failure.
	Fetch(ctx context.Context, url string) (*PageContent, error)
}
