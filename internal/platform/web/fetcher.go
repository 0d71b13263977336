// Package web provides the scraper.Fetcher implementation backed by net/http
// and goquery. It retrieves a venue page, strips non-content markup, and
// extracts the cleaned text, candidate images, and metadata the extraction
// step consumes.
package web

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/phrazzld/venue-scraper/internal/config"
	"github.com/phrazzld/venue-scraper/internal/scraper"
)

// maxImages caps how many candidate image URLs one fetch yields.
const maxImages = 20

// minImageDimension filters out small images (icons, buttons) when the
// markup declares explicit dimensions.
const minImageDimension = 150

// skipPatterns marks images that are almost never venue photos.
var skipPatterns = []string{
	"icon", "logo", "favicon", "sprite", "button", "arrow",
	"social", "share", "nav", "menu", "avatar", "thumbnail",
}

// priorityKeywords marks images likely to be hero/venue photos.
var priorityKeywords = []string{"jpeg", "jpg", "resort", "beach", "venue", "upload"}

// backgroundImageRegex pulls the URL out of an inline background-image style.
var backgroundImageRegex = regexp.MustCompile(`url\(["']?([^"')]+)["']?\)`)

// Fetcher implements scraper.Fetcher over plain HTTP.
type Fetcher struct {
	client    *http.Client
	userAgent string
	logger    *slog.Logger
}

// NewFetcher creates a Fetcher using the scraper configuration.
// If logger is nil, the default logger is used.
func NewFetcher(cfg config.ScraperConfig, logger *slog.Logger) *Fetcher {
	if logger == nil {
		logger = slog.Default()
	}

	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &Fetcher{
		client:    &http.Client{Timeout: timeout},
		userAgent: cfg.UserAgent,
		logger:    logger.With(slog.String("component", "web_fetcher")),
	}
}

// Ensure Fetcher implements scraper.Fetcher
var _ scraper.Fetcher = (*Fetcher)(nil)

// Fetch retrieves and parses the page at the given URL.
func (f *Fetcher) Fetch(ctx context.Context, pageURL string) (*scraper.PageContent, error) {
	if pageURL == "" {
		return nil, scraper.ErrEmptyURL
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", scraper.ErrFetchFailed, err)
	}
	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}

	f.logger.InfoContext(ctx, "fetching page", slog.String("url", pageURL))

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", scraper.ErrFetchFailed, err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			f.logger.Warn("failed to close response body", slog.String("error", err.Error()))
		}
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: %d", scraper.ErrBadStatus, resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", scraper.ErrUnsupportedContent, err)
	}

	base, err := url.Parse(pageURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", scraper.ErrFetchFailed, err)
	}

	metadata := extractMetadata(doc)
	images := extractImages(doc, base)

	// Strip non-content elements before text extraction.
	doc.Find("script, style, noscript").Remove()
	text := extractText(doc)

	f.logger.InfoContext(ctx, "page fetched",
		slog.String("url", pageURL),
		slog.Int("text_length", len(text)),
		slog.Int("image_count", len(images)))

	return &scraper.PageContent{
		Text:     text,
		Images:   images,
		Metadata: metadata,
		URL:      pageURL,
	}, nil
}

// extractText returns the document's visible text with whitespace collapsed
// to single spaces.
func extractText(doc *goquery.Document) string {
	return strings.Join(strings.Fields(doc.Text()), " ")
}

// extractMetadata pulls the title and description, preferring explicit tags
// and falling back to Open Graph equivalents.
func extractMetadata(doc *goquery.Document) scraper.PageMetadata {
	metadata := scraper.PageMetadata{
		Title:       strings.TrimSpace(doc.Find("title").First().Text()),
		Description: metaContent(doc, `meta[name="description"]`),
	}

	if metadata.Title == "" {
		metadata.Title = metaContent(doc, `meta[property="og:title"]`)
	}
	if metadata.Description == "" {
		metadata.Description = metaContent(doc, `meta[property="og:description"]`)
	}

	return metadata
}

// metaContent returns the trimmed content attribute of the first element
// matching the selector.
func metaContent(doc *goquery.Document, selector string) string {
	content, _ := doc.Find(selector).First().Attr("content")
	return strings.TrimSpace(content)
}

// extractImages collects candidate venue image URLs: the Open Graph image
// first, then img tags that survive the icon/logo filters (images whose
// attributes carry a priority keyword jump the queue), then inline
// background images. All URLs are resolved against the page URL.
func extractImages(doc *goquery.Document, base *url.URL) []string {
	priority := make([]string, 0, maxImages)
	regular := make([]string, 0, maxImages)
	seen := make(map[string]bool)

	add := func(list *[]string, raw string) {
		resolved := resolveURL(base, raw)
		if resolved == "" || seen[resolved] {
			return
		}
		seen[resolved] = true
		*list = append(*list, resolved)
	}

	if ogImage := metaContent(doc, `meta[property="og:image"]`); ogImage != "" {
		add(&priority, ogImage)
	}

	doc.Find("img").Each(func(_ int, sel *goquery.Selection) {
		src := firstAttr(sel, "src", "data-src", "data-lazy-src")
		if src == "" {
			return
		}

		resolved := resolveURL(base, src)
		if resolved == "" {
			return
		}

		lower := strings.ToLower(resolved)
		// PNG and ICO files are usually icons or logos, not venue photos.
		if strings.HasSuffix(lower, ".png") || strings.HasSuffix(lower, ".ico") {
			return
		}

		class, _ := sel.Attr("class")
		id, _ := sel.Attr("id")
		alt, _ := sel.Attr("alt")
		attrText := strings.ToLower(class + " " + id + " " + alt)

		for _, pattern := range skipPatterns {
			if strings.Contains(lower, pattern) || strings.Contains(attrText, pattern) {
				return
			}
		}

		if isSmallImage(sel) {
			return
		}

		for _, keyword := range priorityKeywords {
			if strings.Contains(attrText, keyword) {
				add(&priority, src)
				return
			}
		}
		add(&regular, src)
	})

	doc.Find("[style]").Each(func(_ int, sel *goquery.Selection) {
		style, _ := sel.Attr("style")
		if !strings.Contains(style, "background-image") {
			return
		}
		if match := backgroundImageRegex.FindStringSubmatch(style); match != nil {
			add(&regular, match[1])
		}
	})

	images := append(priority, regular...)
	if len(images) > maxImages {
		images = images[:maxImages]
	}
	return images
}

// firstAttr returns the first non-empty attribute among names.
func firstAttr(sel *goquery.Selection, names ...string) string {
	for _, name := range names {
		if value, ok := sel.Attr(name); ok && strings.TrimSpace(value) != "" {
			return strings.TrimSpace(value)
		}
	}
	return ""
}

// isSmallImage reports whether the markup declares the image smaller than
// the minimum venue-photo dimensions. Images without declared dimensions
// are kept.
func isSmallImage(sel *goquery.Selection) bool {
	widthAttr, _ := sel.Attr("width")
	heightAttr, _ := sel.Attr("height")
	if widthAttr == "" || heightAttr == "" {
		return false
	}

	width, werr := strconv.Atoi(widthAttr)
	height, herr := strconv.Atoi(heightAttr)
	if werr != nil || herr != nil {
		return false
	}

	return width < minImageDimension || height < minImageDimension
}

// resolveURL resolves a possibly-relative URL against the page URL.
// Returns "" for empty input and data: URIs.
func resolveURL(base *url.URL, raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" || strings.HasPrefix(raw, "data:") {
		return ""
	}

	ref, err := url.Parse(raw)
	if err != nil {
		return ""
	}

	return base.ResolveReference(ref).String()
}
