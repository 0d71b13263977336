package web

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/phrazzld/venue-scraper/internal/config"
	"github.com/phrazzld/venue-scraper/internal/scraper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const venuePage = `<!DOCTYPE html>
<html>
<head>
<title>Test Hall | Weddings</title>
<meta name="description" content="A beachside wedding venue.">
<meta property="og:image" content="/media/hero.jpg">
<style>body { color: red; }</style>
</head>
<body>
<script>console.log("tracking");</script>
<h1>Test Hall</h1>
<p>Seated capacity   200 guests.</p>
<img src="/media/ballroom.jpg" alt="venue ballroom" width="800" height="600">
<img src="/media/logo.png" alt="site logo">
<img src="icons/share.jpg" alt="share icon">
<img src="/media/tiny.jpg" width="40" height="40">
<img data-src="/media/lazy-garden.jpg" alt="garden">
<div style="background-image: url('/media/background.webp')"></div>
</body>
</html>`

func newTestFetcher() *Fetcher {
	return NewFetcher(config.ScraperConfig{
		TimeoutSeconds: 5,
		UserAgent:      "venue-scraper-test",
	}, nil)
}

func TestFetcherFetch(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "venue-scraper-test", r.Header.Get("User-Agent"))
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(venuePage))
	}))
	defer server.Close()

	content, err := newTestFetcher().Fetch(context.Background(), server.URL)
	require.NoError(t, err)

	assert.Equal(t, "Test Hall | Weddings", content.Metadata.Title)
	assert.Equal(t, "A beachside wedding venue.", content.Metadata.Description)
	assert.Equal(t, server.URL, content.URL)

	// Script and style bodies must not leak into the text.
	assert.Contains(t, content.Text, "Seated capacity 200 guests.")
	assert.NotContains(t, content.Text, "tracking")
	assert.NotContains(t, content.Text, "color: red")

	// og:image first, then surviving img tags, then background images.
	// The logo (png), the share icon and the tiny image are filtered out.
	assert.Equal(t, []string{
		server.URL + "/media/hero.jpg",
		server.URL + "/media/ballroom.jpg",
		server.URL + "/media/lazy-garden.jpg",
		server.URL + "/media/background.webp",
	}, content.Images)
}

func TestFetcherFetchErrors(t *testing.T) {
	t.Parallel()

	t.Run("empty url", func(t *testing.T) {
		t.Parallel()

		content, err := newTestFetcher().Fetch(context.Background(), "")

		assert.ErrorIs(t, err, scraper.ErrEmptyURL)
		assert.Nil(t, content)
	})

	t.Run("server error status", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		}))
		defer server.Close()

		content, err := newTestFetcher().Fetch(context.Background(), server.URL)

		assert.ErrorIs(t, err, scraper.ErrBadStatus)
		assert.Nil(t, content)
	})

	t.Run("unreachable host", func(t *testing.T) {
		t.Parallel()

		content, err := newTestFetcher().Fetch(context.Background(), "http://127.0.0.1:1")

		assert.ErrorIs(t, err, scraper.ErrFetchFailed)
		assert.Nil(t, content)
	})

	t.Run("context deadline", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			time.Sleep(200 * time.Millisecond)
		}))
		defer server.Close()

		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()

		content, err := newTestFetcher().Fetch(ctx, server.URL)

		assert.ErrorIs(t, err, scraper.ErrFetchFailed)
		assert.Nil(t, content)
	})
}
