package catalog

import (
	_ "embed"
	"encoding/json"
	"fmt"

	"cinease/models"
)

//go:embed fallback.json
var fallbackJSON []byte

// Fallback is the bundled catalog shown when the backend is short of data.
func Fallback() ([]models.RawMovie, error) {
	var out []models.RawMovie
	if err := json.Unmarshal(fallbackJSON, &out); err != nil {
		return nil, fmt.Errorf("decode fallback catalog: %w", err)
	}
	return out, nil
}
