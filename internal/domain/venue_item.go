package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Common validation errors for VenueItem
var (
	ErrEmptyVenueItemID     = errors.New("venue item ID cannot be empty")
	ErrEmptyVenueItemTaskID = errors.New("venue item task ID cannot be empty")
	ErrNilVenueData         = errors.New("venue data cannot be nil")
)

// venueCategories is the fixed set of categories a venue type may map to.
// Anything else becomes "other".
var venueCategories = map[string]string{
	"beach":    "beach",
	"indoor":   "indoor",
	"farm":     "farm",
	"garden":   "garden",
	"ballroom": "ballroom",
	"outdoor":  "outdoor",
	"barn":     "barn",
	"estate":   "estate",
	"resort":   "resort",
}

// VenueItem is the downstream artifact created once per successfully
// extracted task. It links back to the originating task and is never
// mutated by this service after creation.
type VenueItem struct {
	ID              uuid.UUID  `json:"id"`
	TaskID          uuid.UUID  `json:"task_id"`
	Name            string     `json:"name"`
	Address         string     `json:"address,omitempty"`
	Price           *float64   `json:"price,omitempty"`
	Notes           string     `json:"notes,omitempty"`
	Category        string     `json:"category,omitempty"`
	Images          []string   `json:"images"`
	Rating          string     `json:"rating,omitempty"`
	SpacesAvailable []string   `json:"spaces_available"`
	Link            string     `json:"link"`
	VenueData       *VenueData `json:"venue_data"`
	CreatedAt       time.Time  `json:"created_at"`
}

// NewVenueItem builds a VenueItem from extracted venue data, flattening the
// structured payload into the denormalized columns the catalog consumes.
func NewVenueItem(taskID uuid.UUID, data *VenueData, sourceURL string) (*VenueItem, error) {
	if taskID == uuid.Nil {
		return nil, ErrEmptyVenueItemTaskID
	}
	if data == nil {
		return nil, ErrNilVenueData
	}

	item := &VenueItem{
		ID:              uuid.New(),
		TaskID:          taskID,
		Name:            data.Name,
		Address:         formatAddress(data.Location),
		Price:           pickPrice(data.PricePerPlate),
		Notes:           formatNotes(data),
		Category:        categoryFor(data.VenueTypes),
		Images:          data.CoverImageURLs,
		Rating:          data.Rating,
		SpacesAvailable: data.SpacesAvailable,
		Link:            sourceURL,
		VenueData:       data,
		CreatedAt:       time.Now().UTC(),
	}

	if item.Name == "" {
		item.Name = DefaultVenueName
	}
	if item.Images == nil {
		item.Images = []string{}
	}
	if item.SpacesAvailable == nil {
		item.SpacesAvailable = []string{}
	}

	return item, nil
}

// Validate checks if the VenueItem has valid data.
func (v *VenueItem) Validate() error {
	if v.ID == uuid.Nil {
		return ErrEmptyVenueItemID
	}
	if v.TaskID == uuid.Nil {
		return ErrEmptyVenueItemTaskID
	}
	if v.VenueData == nil {
		return ErrNilVenueData
	}
	return nil
}

// formatAddress joins the non-empty location parts as "Area, City, State".
func formatAddress(loc VenueLocation) string {
	parts := make([]string, 0, 3)
	if loc.Area != "" {
		parts = append(parts, loc.Area)
	}
	if loc.City != "" {
		parts = append(parts, loc.City)
	}
	if loc.State != "" {
		parts = append(parts, loc.State)
	}
	return strings.Join(parts, ", ")
}

// pickPrice prefers the non-veg starting price, falling back to veg.
func pickPrice(p PricePerPlate) *float64 {
	if p.NonVeg != nil {
		return p.NonVeg
	}
	return p.Veg
}

// formatNotes assembles a human-readable summary of the fields that have no
// dedicated column, pipe-separated.
func formatNotes(data *VenueData) string {
	parts := make([]string, 0, 4)

	if data.Rating != "" {
		parts = append(parts, fmt.Sprintf("Rating: %s", data.Rating))
	}

	capacity := make([]string, 0, 2)
	if data.GuestCapacity.Seated != nil {
		capacity = append(capacity, fmt.Sprintf("Seated: %d", *data.GuestCapacity.Seated))
	}
	if data.GuestCapacity.Floating != nil {
		capacity = append(capacity, fmt.Sprintf("Floating: %d", *data.GuestCapacity.Floating))
	}
	if len(capacity) > 0 {
		parts = append(parts, fmt.Sprintf("Capacity: %s", strings.Join(capacity, ", ")))
	}

	if len(data.SpacesAvailable) > 0 {
		parts = append(parts, fmt.Sprintf("Spaces: %s", strings.Join(data.SpacesAvailable, ", ")))
	}
	if data.RoomsAvailable != nil {
		parts = append(parts, fmt.Sprintf("Rooms: %d", *data.RoomsAvailable))
	}

	return strings.Join(parts, " | ")
}

// categoryFor maps the first venue type through the fixed category set.
// Returns an empty string when no venue type was extracted.
func categoryFor(venueTypes []string) string {
	if len(venueTypes) == 0 {
		return ""
	}
	if category, ok := venueCategories[strings.ToLower(venueTypes[0])]; ok {
		return category
	}
	return "other"
}
