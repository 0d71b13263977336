package extraction

import (
	"context"

	"github.com/phrazzld/venue-scraper/internal/domain"
	"github.com/phrazzld/venue-scraper/internal/scraper"
)

// Extractor defines the interface for turning fetched page content into
// structured venue data. This interface serves as a boundary between the
// task pipeline and external AI/LLM services, so the executor can be tested
// without model access.
type Extractor interface {
	// Extract produces venue data conforming to the domain.VenueData schema
	// from the fetched page content. The returned data is normalized and
	// ready to persist.
	//
	// Returns an error from errors.go when extraction fails: transport
	// failures, unparseable model output, and schema violations are all
	// terminal for the task being processed.
	Extract(ctx context.Context, content *scraper.PageContent) (*domain.VenueData, error)
}
