package catalog

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"cinease/models"
)

var (
	ErrNoTitle      = errors.New("movie has no title")
	ErrMissingPrice = errors.New("movie has no unit price")
)

// Normalize maps a raw record onto the canonical movie. Genre may arrive as
// an array or a comma separated string, price as price or ticketPrice, and
// schedules in either of the two shapes the backend has used.
func Normalize(raw models.RawMovie) (models.Movie, error) {
	m := models.Movie{
		ID:          firstNonEmpty(raw.MongoID, rawString(raw.ID)),
		Title:       strings.TrimSpace(raw.Title),
		Genres:      ParseGenres(raw.Genre),
		Runtime:     raw.Duration,
		Rating:      rawString(raw.Rating),
		Description: firstNonEmpty(raw.Description, raw.Synopsis),
		Poster:      firstNonEmpty(raw.Poster, raw.PosterURL, raw.Image),
		Showtimes:   parseShowtimes(raw),
	}
	if m.Title == "" {
		return models.Movie{}, ErrNoTitle
	}
	if m.ID == "" {
		m.ID = slug(m.Title)
	}
	if len(m.Genres) == 0 {
		m.Genres = ParseGenres(raw.Genres)
	}
	if m.Runtime == 0 {
		m.Runtime = raw.Runtime
	}
	m.Banner = firstNonEmpty(raw.Banner, raw.BannerURL, m.Poster)
	if raw.Featured != nil {
		m.Featured = *raw.Featured
	} else if raw.IsFeatured != nil {
		m.Featured = *raw.IsFeatured
	}

	price := raw.Price
	if price == nil {
		price = raw.TicketPrice
	}
	if price == nil || *price <= 0 {
		return m, fmt.Errorf("%q: %w", m.Title, ErrMissingPrice)
	}
	m.Price = int(math.Round(*price))
	return m, nil
}

// ParseGenres accepts a JSON array of strings or a single comma separated
// string. Entries are trimmed; blanks and repeats are dropped.
func ParseGenres(raw json.RawMessage) []string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return nil
	}
	var parts []string
	if raw[0] == '[' {
		if json.Unmarshal(raw, &parts) != nil {
			return nil
		}
	} else {
		var s string
		if json.Unmarshal(raw, &s) != nil {
			return nil
		}
		parts = strings.Split(s, ",")
	}
	return uniqueTrimmed(parts)
}

func uniqueTrimmed(parts []string) []string {
	var out []string
	seen := make(map[string]bool, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		key := strings.ToLower(p)
		if p == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, p)
	}
	return out
}

var showtimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
}

var clockLayouts = []string{"15:04", "15:04:05", "3:04 PM", "3:04PM"}

// ParseShowtime reads an ISO-8601 datetime. Values without a zone are UTC.
func ParseShowtime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range showtimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised showtime %q", s)
}

func parseShowtimes(raw models.RawMovie) []models.Showtime {
	var out []models.Showtime
	for _, s := range raw.Showtimes {
		if t, err := ParseShowtime(s); err == nil {
			out = append(out, models.Showtime{Start: t})
		}
	}
	for _, sc := range raw.Schedules {
		if st, ok := scheduleShowtime(sc); ok {
			out = append(out, st)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Start.Before(out[j].Start) })
	return out
}

func scheduleShowtime(sc models.RawSchedule) (models.Showtime, bool) {
	if sc.Datetime != "" {
		t, err := ParseShowtime(sc.Datetime)
		return models.Showtime{Start: t, Cinema: sc.Cinema}, err == nil
	}
	day, err := time.Parse("2006-01-02", strings.TrimSpace(sc.Date))
	if err != nil {
		return models.Showtime{}, false
	}
	for _, layout := range clockLayouts {
		if c, err := time.Parse(layout, strings.TrimSpace(sc.Time)); err == nil {
			start := day.Add(time.Duration(c.Hour())*time.Hour + time.Duration(c.Minute())*time.Minute)
			return models.Showtime{Start: start.UTC(), Cinema: sc.Cinema}, true
		}
	}
	return models.Showtime{}, false
}

// Merge overlays backend records on the fallback dataset. Records match by
// case-insensitive title; backend fields win and missing ones fall back.
// Backend order comes first, then fallback-only records in their own order.
func Merge(backend, fallback []models.RawMovie) []models.RawMovie {
	byTitle := make(map[string]int, len(fallback))
	for i, f := range fallback {
		byTitle[titleKey(f.Title)] = i
	}
	used := make(map[int]bool)
	out := make([]models.RawMovie, 0, len(backend)+len(fallback))
	for _, b := range backend {
		if i, ok := byTitle[titleKey(b.Title)]; ok && !used[i] {
			used[i] = true
			out = append(out, overlay(b, fallback[i]))
			continue
		}
		out = append(out, b)
	}
	for i, f := range fallback {
		if !used[i] {
			out = append(out, f)
		}
	}
	return out
}

func overlay(b, f models.RawMovie) models.RawMovie {
	out := b
	if len(out.ID) == 0 && out.MongoID == "" {
		out.ID, out.MongoID = f.ID, f.MongoID
	}
	if len(out.Genre) == 0 && len(out.Genres) == 0 {
		out.Genre, out.Genres = f.Genre, f.Genres
	}
	if out.Duration == 0 && out.Runtime == 0 {
		out.Duration, out.Runtime = f.Duration, f.Runtime
	}
	if len(out.Rating) == 0 {
		out.Rating = f.Rating
	}
	if out.Price == nil && out.TicketPrice == nil {
		out.Price, out.TicketPrice = f.Price, f.TicketPrice
	}
	if out.Featured == nil && out.IsFeatured == nil {
		out.Featured, out.IsFeatured = f.Featured, f.IsFeatured
	}
	if len(out.Showtimes) == 0 && len(out.Schedules) == 0 {
		out.Showtimes, out.Schedules = f.Showtimes, f.Schedules
	}
	if out.Description == "" && out.Synopsis == "" {
		out.Description, out.Synopsis = f.Description, f.Synopsis
	}
	if out.Poster == "" && out.PosterURL == "" && out.Image == "" {
		out.Poster, out.PosterURL, out.Image = f.Poster, f.PosterURL, f.Image
	}
	if out.Banner == "" && out.BannerURL == "" {
		out.Banner, out.BannerURL = f.Banner, f.BannerURL
	}
	return out
}

// Build merges and normalizes. Records that fail normalization are logged
// and left out.
func Build(backend, fallback []models.RawMovie, logger *log.Logger) []models.Movie {
	merged := Merge(backend, fallback)
	out := make([]models.Movie, 0, len(merged))
	for _, raw := range merged {
		m, err := Normalize(raw)
		if err != nil {
			logger.Printf("[ERROR]: dropping catalog record: %v", err)
			continue
		}
		out = append(out, m)
	}
	return out
}

func titleKey(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func rawString(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return ""
	}
	var s string
	if json.Unmarshal(raw, &s) == nil {
		return strings.TrimSpace(s)
	}
	var f float64
	if json.Unmarshal(raw, &f) == nil {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	return ""
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

func slug(title string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(title) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			dash = false
		case !dash && b.Len() > 0:
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
