package models

import (
	"encoding/json"
	"time"
)

// Movie is the canonical catalog entry. Every record coming from the backend
// or the fallback dataset goes through catalog.Normalize before it reaches
// anything else, so nothing downstream branches on record shape.
type Movie struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Genres      []string   `json:"genres"`
	Runtime     int        `json:"runtime,omitempty"` // minutes
	Rating      string     `json:"rating,omitempty"`
	Price       int        `json:"price"`
	Featured    bool       `json:"featured"`
	Showtimes   []Showtime `json:"showtimes"`
	Description string     `json:"description,omitempty"`
	Poster      string     `json:"poster,omitempty"`
	Banner      string     `json:"banner,omitempty"`
}

// Showtime is a single screening of a movie.
type Showtime struct {
	Start  time.Time `json:"start"`
	Cinema string    `json:"cinema,omitempty"`
}

// String is the wire form sent with bookings.
func (s Showtime) String() string {
	return s.Start.UTC().Format(time.RFC3339)
}

// RawMovie is a movie record as the backend or the fallback file sends it.
// Field names and shapes vary between sources.
type RawMovie struct {
	ID          json.RawMessage `json:"id,omitempty"`
	MongoID     string          `json:"_id,omitempty"`
	Title       string          `json:"title"`
	Genre       json.RawMessage `json:"genre,omitempty"`
	Genres      json.RawMessage `json:"genres,omitempty"`
	Duration    int             `json:"duration,omitempty"`
	Runtime     int             `json:"runtime,omitempty"`
	Rating      json.RawMessage `json:"rating,omitempty"`
	Price       *float64        `json:"price,omitempty"`
	TicketPrice *float64        `json:"ticketPrice,omitempty"`
	Featured    *bool           `json:"featured,omitempty"`
	IsFeatured  *bool           `json:"isFeatured,omitempty"`
	Showtimes   []string        `json:"showtimes,omitempty"`
	Schedules   []RawSchedule   `json:"schedules,omitempty"`
	Description string          `json:"description,omitempty"`
	Synopsis    string          `json:"synopsis,omitempty"`
	Poster      string          `json:"poster,omitempty"`
	PosterURL   string          `json:"posterUrl,omitempty"`
	Image       string          `json:"image,omitempty"`
	Banner      string          `json:"banner,omitempty"`
	BannerURL   string          `json:"bannerUrl,omitempty"`
}

// RawSchedule covers both schedule shapes the backend has used: a single
// ISO datetime, or separate date, time and cinema fields.
type RawSchedule struct {
	Datetime string `json:"datetime,omitempty"`
	Date     string `json:"date,omitempty"`
	Time     string `json:"time,omitempty"`
	Cinema   string `json:"cinema,omitempty"`
}

// MovieInput is the body of admin create and update calls.
type MovieInput struct {
	Title       string   `json:"title"`
	Genre       string   `json:"genre"`
	Duration    int      `json:"duration"`
	Rating      string   `json:"rating,omitempty"`
	Price       int      `json:"price"`
	Featured    bool     `json:"featured"`
	Showtimes   []string `json:"showtimes"`
	Description string   `json:"description,omitempty"`
	Poster      string   `json:"poster,omitempty"`
	Banner      string   `json:"banner,omitempty"`
}
