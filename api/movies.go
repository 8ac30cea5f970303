package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"

	"cinease/models"
)

// Movies lists the public catalog as raw records; callers normalize them.
func (c *Client) Movies(ctx context.Context) ([]models.RawMovie, error) {
	var raw json.RawMessage
	if err := c.do(ctx, http.MethodGet, "/movies", nil, &raw); err != nil {
		return nil, err
	}
	var out []models.RawMovie
	return out, unwrapList(raw, "movies", &out)
}

func (c *Client) Movie(ctx context.Context, id string) (models.RawMovie, error) {
	var raw json.RawMessage
	var out models.RawMovie
	if err := c.do(ctx, http.MethodGet, "/movies/"+url.PathEscape(id), nil, &raw); err != nil {
		return out, err
	}
	return out, unwrapOne(raw, "movie", &out)
}
