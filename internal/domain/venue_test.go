package domain

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(v int) *int           { return &v }
func floatPtr(v float64) *float64 { return &v }

func TestVenueDataNormalize(t *testing.T) {
	t.Parallel()

	t.Run("defaults empty name", func(t *testing.T) {
		t.Parallel()

		data := &VenueData{Name: "   "}
		data.Normalize()

		assert.Equal(t, DefaultVenueName, data.Name)
	})

	t.Run("trims name", func(t *testing.T) {
		t.Parallel()

		data := &VenueData{Name: "  Test Hall  "}
		data.Normalize()

		assert.Equal(t, "Test Hall", data.Name)
	})

	t.Run("nil slices become empty", func(t *testing.T) {
		t.Parallel()

		data := &VenueData{Name: "Test Hall"}
		data.Normalize()

		assert.NotNil(t, data.VenueTypes)
		assert.NotNil(t, data.SpacesAvailable)
		assert.NotNil(t, data.CoverImageURLs)
	})

	t.Run("jpeg images first, capped at three", func(t *testing.T) {
		t.Parallel()

		data := &VenueData{
			Name: "Test Hall",
			CoverImageURLs: []string{
				"https://cdn.test/a.png",
				"https://cdn.test/b.JPG",
				"https://cdn.test/c.webp",
				"https://cdn.test/d.jpeg",
				"https://cdn.test/e.jpg",
			},
		}
		data.Normalize()

		require.Len(t, data.CoverImageURLs, 3)
		assert.Equal(t, []string{
			"https://cdn.test/b.JPG",
			"https://cdn.test/d.jpeg",
			"https://cdn.test/e.jpg",
		}, data.CoverImageURLs)
	})
}

func TestNewVenueItem(t *testing.T) {
	t.Parallel()

	taskID := uuid.New()
	data := &VenueData{
		Name: "Test Hall",
		Location: VenueLocation{
			City:  "Goa",
			Area:  "Candolim",
			State: "Goa",
		},
		Rating: "4.8",
		GuestCapacity: GuestCapacity{
			Seated:   intPtr(200),
			Floating: intPtr(350),
		},
		PricePerPlate: PricePerPlate{
			Veg:    floatPtr(1200),
			NonVeg: floatPtr(1500),
		},
		VenueTypes:      []string{"Beach", "outdoor"},
		SpacesAvailable: []string{"Indoor", "Outdoor"},
		RoomsAvailable:  intPtr(40),
		CoverImageURLs:  []string{"https://cdn.test/a.jpg"},
	}

	t.Run("maps extracted data", func(t *testing.T) {
		t.Parallel()

		item, err := NewVenueItem(taskID, data, "https://example.test/venue")

		require.NoError(t, err)
		assert.Equal(t, taskID, item.TaskID)
		assert.Equal(t, "Test Hall", item.Name)
		assert.Equal(t, "Candolim, Goa, Goa", item.Address)
		require.NotNil(t, item.Price)
		assert.Equal(t, 1500.0, *item.Price)
		assert.Equal(t, "beach", item.Category)
		assert.Equal(t, "4.8", item.Rating)
		assert.Equal(t, "https://example.test/venue", item.Link)
		assert.Equal(t,
			"Rating: 4.8 | Capacity: Seated: 200, Floating: 350 | Spaces: Indoor, Outdoor | Rooms: 40",
			item.Notes)
		assert.NoError(t, item.Validate())
	})

	t.Run("veg price fallback", func(t *testing.T) {
		t.Parallel()

		vegOnly := *data
		vegOnly.PricePerPlate = PricePerPlate{Veg: floatPtr(900)}

		item, err := NewVenueItem(taskID, &vegOnly, "https://example.test/venue")

		require.NoError(t, err)
		require.NotNil(t, item.Price)
		assert.Equal(t, 900.0, *item.Price)
	})

	t.Run("unmapped venue type becomes other", func(t *testing.T) {
		t.Parallel()

		odd := *data
		odd.VenueTypes = []string{"rooftop"}

		item, err := NewVenueItem(taskID, &odd, "https://example.test/venue")

		require.NoError(t, err)
		assert.Equal(t, "other", item.Category)
	})

	t.Run("no venue types leaves category empty", func(t *testing.T) {
		t.Parallel()

		bare := *data
		bare.VenueTypes = nil

		item, err := NewVenueItem(taskID, &bare, "https://example.test/venue")

		require.NoError(t, err)
		assert.Empty(t, item.Category)
	})

	t.Run("nil venue data", func(t *testing.T) {
		t.Parallel()

		item, err := NewVenueItem(taskID, nil, "https://example.test/venue")

		assert.ErrorIs(t, err, ErrNilVenueData)
		assert.Nil(t, item)
	})

	t.Run("missing task ID", func(t *testing.T) {
		t.Parallel()

		item, err := NewVenueItem(uuid.Nil, data, "https://example.test/venue")

		assert.ErrorIs(t, err, ErrEmptyVenueItemTaskID)
		assert.Nil(t, item)
	})
}
