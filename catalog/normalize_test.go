package catalog

import (
	"bytes"
	"encoding/json"
	"io"
	"log"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cinease/models"
)

func price(p float64) *float64 { return &p }

func flag(b bool) *bool { return &b }

func TestGenreShapesNormalizeIdentically(t *testing.T) {
	fromString := ParseGenres(json.RawMessage(`" Action ,Drama,, action "`))
	fromArray := ParseGenres(json.RawMessage(`["Action", " Drama"]`))
	assert.Equal(t, []string{"Action", "Drama"}, fromString)
	assert.Equal(t, fromString, fromArray)
	assert.Nil(t, ParseGenres(nil))
	assert.Nil(t, ParseGenres(json.RawMessage(`42`)))
}

func TestNormalizeFieldAliases(t *testing.T) {
	m, err := Normalize(models.RawMovie{
		MongoID:     "abc",
		Title:       "  Dune ",
		Genres:      json.RawMessage(`["Sci-Fi"]`),
		Runtime:     166,
		Rating:      json.RawMessage(`8.5`),
		TicketPrice: price(209.6),
		IsFeatured:  flag(true),
		Synopsis:    "Spice.",
		PosterURL:   "/p.jpg",
	})
	require.NoError(t, err)
	assert.Equal(t, "abc", m.ID)
	assert.Equal(t, "Dune", m.Title)
	assert.Equal(t, []string{"Sci-Fi"}, m.Genres)
	assert.Equal(t, 166, m.Runtime)
	assert.Equal(t, "8.5", m.Rating)
	assert.Equal(t, 210, m.Price)
	assert.True(t, m.Featured)
	assert.Equal(t, "Spice.", m.Description)
	assert.Equal(t, "/p.jpg", m.Poster)
	assert.Equal(t, "/p.jpg", m.Banner)
}

func TestNormalizeIDs(t *testing.T) {
	m, err := Normalize(models.RawMovie{ID: json.RawMessage(`17`), Title: "X", Price: price(100)})
	require.NoError(t, err)
	assert.Equal(t, "17", m.ID)

	m, err = Normalize(models.RawMovie{Title: "Dune: Part Two", Price: price(100)})
	require.NoError(t, err)
	assert.Equal(t, "dune-part-two", m.ID)
}

func TestNormalizeRejects(t *testing.T) {
	_, err := Normalize(models.RawMovie{Title: "  ", Price: price(100)})
	assert.ErrorIs(t, err, ErrNoTitle)

	_, err = Normalize(models.RawMovie{Title: "Free"})
	assert.ErrorIs(t, err, ErrMissingPrice)

	_, err = Normalize(models.RawMovie{Title: "Zero", Price: price(0)})
	assert.ErrorIs(t, err, ErrMissingPrice)
}

func TestScheduleShapesShareOneShowtime(t *testing.T) {
	m, err := Normalize(models.RawMovie{
		Title: "X",
		Price: price(100),
		Showtimes: []string{"2025-06-01T18:30:00.000Z", "garbage"},
		Schedules: []models.RawSchedule{
			{Date: "2025-06-01", Time: "7:00 PM", Cinema: "Hall 2"},
			{Datetime: "2025-06-01T09:00:00"},
		},
	})
	require.NoError(t, err)
	require.Len(t, m.Showtimes, 3)
	assert.Equal(t, time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC), m.Showtimes[0].Start)
	assert.Equal(t, "2025-06-01T18:30:00Z", m.Showtimes[1].String())
	assert.Equal(t, time.Date(2025, 6, 1, 19, 0, 0, 0, time.UTC), m.Showtimes[2].Start)
	assert.Equal(t, "Hall 2", m.Showtimes[2].Cinema)
}

func TestMergeBackendOverridesFallback(t *testing.T) {
	backend := []models.RawMovie{
		{MongoID: "b1", Title: "DUNE", Price: price(250)},
		{MongoID: "b2", Title: "Backend Only", Price: price(100)},
	}
	fallback := []models.RawMovie{
		{Title: "Fallback Only", Price: price(120)},
		{Title: "dune", Genre: json.RawMessage(`"Sci-Fi"`), Price: price(210), Featured: flag(true), Description: "old"},
	}

	merged := Merge(backend, fallback)
	require.Len(t, merged, 3)
	assert.Equal(t, "DUNE", merged[0].Title)
	assert.Equal(t, "b1", merged[0].MongoID)
	assert.Equal(t, 250.0, *merged[0].Price)
	assert.Equal(t, json.RawMessage(`"Sci-Fi"`), merged[0].Genre)
	assert.True(t, *merged[0].Featured)
	assert.Equal(t, "old", merged[0].Description)
	assert.Equal(t, "Backend Only", merged[1].Title)
	assert.Equal(t, "Fallback Only", merged[2].Title)
}

func TestBuildDropsAndLogsBadRecords(t *testing.T) {
	var buf bytes.Buffer
	movies := Build([]models.RawMovie{{Title: "No Price"}, {Title: "Ok", Price: price(90)}}, nil, log.New(&buf, "", 0))
	require.Len(t, movies, 1)
	assert.Equal(t, "Ok", movies[0].Title)
	assert.Contains(t, buf.String(), "No Price")
}

func TestFallbackDatasetNormalizes(t *testing.T) {
	raw, err := Fallback()
	require.NoError(t, err)
	movies := Build(nil, raw, log.New(io.Discard, "", 0))
	assert.Len(t, movies, len(raw))
	for _, m := range movies {
		assert.Positive(t, m.Price, m.Title)
		assert.NotEmpty(t, m.Showtimes, m.Title)
	}
}
