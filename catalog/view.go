package catalog

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"

	"cinease/models"
)

// Source is where the catalog view pulls movies from.
type Source interface {
	Movies(ctx context.Context) ([]models.RawMovie, error)
}

// GenreGroup is one row of the movie grid.
type GenreGroup struct {
	Genre  string         `json:"genre"`
	Movies []models.Movie `json:"movies"`
}

// View is the catalog page: the merged movie list, its genres, the featured
// carousel and the active filter.
type View struct {
	src      Source
	fallback []models.RawMovie
	rotation *Rotation
	log      *log.Logger

	mu      sync.RWMutex
	movies  []models.Movie
	genres  []string
	genre   string
	query   string
	loadGen uint64
}

func NewView(src Source, fallback []models.RawMovie, rotation *Rotation, logger *log.Logger) *View {
	if logger == nil {
		logger = log.Default()
	}
	v := &View{src: src, fallback: fallback, rotation: rotation, log: logger, genre: AllGenres}
	v.apply(Build(nil, fallback, logger))
	return v
}

// Load fetches the backend catalog and merges it with the fallback. When the
// backend fails the fallback alone is shown and the error is returned. A
// load overtaken by a newer one, or whose context ended, is discarded.
func (v *View) Load(ctx context.Context) error {
	v.mu.Lock()
	v.loadGen++
	gen := v.loadGen
	v.mu.Unlock()

	raw, err := v.src.Movies(ctx)
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if err != nil {
		v.log.Printf("[ERROR]: loading catalog, showing fallback: %v", err)
		raw = nil
	}
	movies := Build(raw, v.fallback, v.log)

	v.mu.Lock()
	if gen != v.loadGen {
		v.mu.Unlock()
		return nil
	}
	v.setLocked(movies)
	v.mu.Unlock()
	if v.rotation != nil {
		v.rotation.SetMovies(movies)
	}
	if err != nil {
		return fmt.Errorf("load catalog: %w", err)
	}
	return nil
}

func (v *View) apply(movies []models.Movie) {
	v.mu.Lock()
	v.setLocked(movies)
	v.mu.Unlock()
	if v.rotation != nil {
		v.rotation.SetMovies(movies)
	}
}

func (v *View) setLocked(movies []models.Movie) {
	v.movies = movies
	v.genres = DeriveGenres(movies)
	if !v.hasGenreLocked(v.genre) {
		v.genre = AllGenres
	}
}

func (v *View) hasGenreLocked(genre string) bool {
	for _, g := range v.genres {
		if strings.EqualFold(g, genre) {
			return true
		}
	}
	return false
}

func (v *View) Movies() []models.Movie {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return append([]models.Movie(nil), v.movies...)
}

func (v *View) Genres() []string {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return append([]string(nil), v.genres...)
}

func (v *View) Rotation() *Rotation {
	return v.rotation
}

// SetFilter selects a genre and a title search. An unknown genre resets to
// AllGenres.
func (v *View) SetFilter(genre, query string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.genre = AllGenres
	if genre != "" && v.hasGenreLocked(genre) {
		v.genre = genre
	}
	v.query = strings.TrimSpace(query)
}

func (v *View) Filter() (genre, query string) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.genre, v.query
}

// Filtered applies the active genre and search to the catalog.
func (v *View) Filtered() []models.Movie {
	v.mu.RLock()
	defer v.mu.RUnlock()
	q := strings.ToLower(v.query)
	var out []models.Movie
	for _, m := range v.movies {
		if !HasGenre(m, v.genre) {
			continue
		}
		if q != "" && !strings.Contains(strings.ToLower(m.Title), q) {
			continue
		}
		out = append(out, m)
	}
	return out
}

// Grouped lays the filtered movies out by genre, in genre order. A movie
// with several genres appears in each of their rows.
func (v *View) Grouped() []GenreGroup {
	movies := v.Filtered()
	genre, _ := v.Filter()
	var out []GenreGroup
	for _, g := range v.Genres()[1:] {
		if !strings.EqualFold(genre, AllGenres) && !strings.EqualFold(genre, g) {
			continue
		}
		grp := GenreGroup{Genre: g}
		for _, m := range movies {
			if HasGenre(m, g) {
				grp.Movies = append(grp.Movies, m)
			}
		}
		if len(grp.Movies) > 0 {
			out = append(out, grp)
		}
	}
	return out
}

// Find looks a movie up by id.
func (v *View) Find(id string) (models.Movie, bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	for _, m := range v.movies {
		if m.ID == id {
			return m, true
		}
	}
	return models.Movie{}, false
}

// Lookup resolves the navigation search box: an id, an exact title, then the
// first title containing the text, all case-insensitive.
func (v *View) Lookup(text string) (models.Movie, bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return models.Movie{}, false
	}
	if m, ok := v.Find(text); ok {
		return m, true
	}
	v.mu.RLock()
	defer v.mu.RUnlock()
	for _, m := range v.movies {
		if strings.EqualFold(m.Title, text) {
			return m, true
		}
	}
	lower := strings.ToLower(text)
	for _, m := range v.movies {
		if strings.Contains(strings.ToLower(m.Title), lower) {
			return m, true
		}
	}
	return models.Movie{}, false
}
