package catalog

import (
	"strings"

	"cinease/models"
)

// AllGenres is the filter entry that matches every movie.
const AllGenres = "All"

// DeriveGenres lists every genre in the catalog once, in first-seen order,
// behind AllGenres. Labels compare case-insensitively.
func DeriveGenres(movies []models.Movie) []string {
	out := []string{AllGenres}
	seen := map[string]bool{strings.ToLower(AllGenres): true}
	for _, m := range movies {
		for _, g := range m.Genres {
			g = strings.TrimSpace(g)
			key := strings.ToLower(g)
			if g == "" || seen[key] {
				continue
			}
			seen[key] = true
			out = append(out, g)
		}
	}
	return out
}

// HasGenre reports whether m is tagged with genre. AllGenres matches anything.
func HasGenre(m models.Movie, genre string) bool {
	if genre == "" || strings.EqualFold(genre, AllGenres) {
		return true
	}
	for _, g := range m.Genres {
		if strings.EqualFold(g, genre) {
			return true
		}
	}
	return false
}
