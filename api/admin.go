package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"

	"cinease/models"
)

func (c *Client) AdminMovies(ctx context.Context) ([]models.RawMovie, error) {
	var raw json.RawMessage
	if err := c.do(ctx, http.MethodGet, "/admin/movies", nil, &raw); err != nil {
		return nil, err
	}
	var out []models.RawMovie
	return out, unwrapList(raw, "movies", &out)
}

func (c *Client) AdminMovie(ctx context.Context, id string) (models.RawMovie, error) {
	var raw json.RawMessage
	var out models.RawMovie
	if err := c.do(ctx, http.MethodGet, "/admin/movies/"+url.PathEscape(id), nil, &raw); err != nil {
		return out, err
	}
	return out, unwrapOne(raw, "movie", &out)
}

func (c *Client) CreateMovie(ctx context.Context, in models.MovieInput) error {
	return c.do(ctx, http.MethodPost, "/admin/movies", in, nil)
}

func (c *Client) UpdateMovie(ctx context.Context, id string, in models.MovieInput) error {
	return c.do(ctx, http.MethodPut, "/admin/movies/"+url.PathEscape(id), in, nil)
}

func (c *Client) DeleteMovie(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/admin/movies/"+url.PathEscape(id), nil, nil)
}

func (c *Client) AdminUsers(ctx context.Context) ([]models.User, error) {
	var raw json.RawMessage
	if err := c.do(ctx, http.MethodGet, "/admin/users", nil, &raw); err != nil {
		return nil, err
	}
	var out []models.User
	return out, unwrapList(raw, "users", &out)
}

func (c *Client) AdminUser(ctx context.Context, id string) (models.User, error) {
	var raw json.RawMessage
	var out models.User
	if err := c.do(ctx, http.MethodGet, "/admin/users/"+url.PathEscape(id), nil, &raw); err != nil {
		return out, err
	}
	return out, unwrapOne(raw, "user", &out)
}

func (c *Client) UpdateUser(ctx context.Context, id string, p models.UserPatch) error {
	return c.do(ctx, http.MethodPut, "/admin/users/"+url.PathEscape(id), p, nil)
}

func (c *Client) DeleteUser(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/admin/users/"+url.PathEscape(id), nil, nil)
}

func (c *Client) AdminReservations(ctx context.Context) ([]models.Booking, error) {
	var raw json.RawMessage
	if err := c.do(ctx, http.MethodGet, "/admin/reservations", nil, &raw); err != nil {
		return nil, err
	}
	var out []models.Booking
	return out, unwrapList(raw, "reservations", &out)
}

func (c *Client) AdminReservation(ctx context.Context, id string) (models.Booking, error) {
	var raw json.RawMessage
	var out models.Booking
	if err := c.do(ctx, http.MethodGet, "/admin/reservations/"+url.PathEscape(id), nil, &raw); err != nil {
		return out, err
	}
	return out, unwrapOne(raw, "reservation", &out)
}

func (c *Client) UpdateReservation(ctx context.Context, id string, p models.ReservationPatch) error {
	return c.do(ctx, http.MethodPut, "/admin/reservations/"+url.PathEscape(id), p, nil)
}

func (c *Client) DeleteReservation(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/admin/reservations/"+url.PathEscape(id), nil, nil)
}
