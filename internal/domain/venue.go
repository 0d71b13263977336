package domain

import "strings"

// maxCoverImages caps how many cover image URLs are retained on a venue.
const maxCoverImages = 3

// DefaultVenueName is used when extraction could not determine a name.
const DefaultVenueName = "Unknown Venue"

// VenueLocation holds the location portion of extracted venue data.
type VenueLocation struct {
	City  string `json:"city"`
	Area  string `json:"area"`
	State string `json:"state"`
}

// GuestCapacity holds seated and floating guest counts, when known.
type GuestCapacity struct {
	Seated   *int `json:"seated"`
	Floating *int `json:"floating"`
}

// PricePerPlate holds starting per-plate prices, when known.
type PricePerPlate struct {
	Veg    *float64 `json:"veg"`
	NonVeg *float64 `json:"non_veg"`
}

// VenueData is the structured result produced by the extraction step.
// It is the fixed schema carried by a ready task's result payload and is
// validated at the store boundary before being persisted.
type VenueData struct {
	Name            string        `json:"name"`
	Location        VenueLocation `json:"location"`
	Rating          string        `json:"rating,omitempty"`
	GuestCapacity   GuestCapacity `json:"guest_capacity"`
	PricePerPlate   PricePerPlate `json:"price_per_plate_starting"`
	VenueTypes      []string      `json:"venue_type"`
	SpacesAvailable []string      `json:"spaces_available"`
	RoomsAvailable  *int          `json:"rooms_available"`
	CoverImageURLs  []string      `json:"cover_image_url"`
}

// Normalize cleans extracted venue data in place: the name is trimmed and
// defaulted when empty, nil slices become empty slices, and cover images are
// reordered so .jpg/.jpeg URLs come first and then capped at maxCoverImages.
func (v *VenueData) Normalize() {
	v.Name = strings.TrimSpace(v.Name)
	if v.Name == "" {
		v.Name = DefaultVenueName
	}

	if v.VenueTypes == nil {
		v.VenueTypes = []string{}
	}
	if v.SpacesAvailable == nil {
		v.SpacesAvailable = []string{}
	}
	if v.CoverImageURLs == nil {
		v.CoverImageURLs = []string{}
	}

	v.CoverImageURLs = prioritizeJPEG(v.CoverImageURLs)
	if len(v.CoverImageURLs) > maxCoverImages {
		v.CoverImageURLs = v.CoverImageURLs[:maxCoverImages]
	}
}

// prioritizeJPEG returns the URLs reordered so that .jpg/.jpeg links appear
// before all others. The relative order within each group is preserved.
func prioritizeJPEG(urls []string) []string {
	jpegs := make([]string, 0, len(urls))
	others := make([]string, 0, len(urls))

	for _, u := range urls {
		lower := strings.ToLower(u)
		if strings.HasSuffix(lower, ".jpg") || strings.HasSuffix(lower, ".jpeg") {
			jpegs = append(jpegs, u)
		} else {
			others = append(others, u)
		}
	}

	return append(jpegs, others...)
}
