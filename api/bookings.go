package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/url"

	"github.com/google/uuid"

	"cinease/models"
)

// CreateBooking submits a seat selection. Each call carries a fresh
// Idempotency-Key so a retried transport does not double book.
func (c *Client) CreateBooking(ctx context.Context, br models.BookingRequest) (models.Booking, error) {
	b, err := json.Marshal(br)
	if err != nil {
		return models.Booking{}, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+"/bookings", bytes.NewReader(b))
	if err != nil {
		return models.Booking{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Idempotency-Key", uuid.NewString())

	var raw json.RawMessage
	if err := c.send(req, "/bookings", &raw); err != nil {
		return models.Booking{}, err
	}
	var out models.Booking
	if len(raw) == 0 {
		return out, nil
	}
	return out, unwrapOne(raw, "booking", &out)
}

func (c *Client) MyBookings(ctx context.Context) ([]models.Booking, error) {
	var raw json.RawMessage
	if err := c.do(ctx, http.MethodGet, "/bookings/my-bookings", nil, &raw); err != nil {
		return nil, err
	}
	var out []models.Booking
	return out, unwrapList(raw, "bookings", &out)
}

// BookedSeats lists the seat codes already taken for a screening.
func (c *Client) BookedSeats(ctx context.Context, movieTitle, showtime string) ([]string, error) {
	q := url.Values{"movieTitle": {movieTitle}, "showtime": {showtime}}
	var raw json.RawMessage
	if err := c.do(ctx, http.MethodGet, "/bookings/booked-seats?"+q.Encode(), nil, &raw); err != nil {
		return nil, err
	}
	var out []string
	return out, unwrapList(raw, "bookedSeats", &out)
}

func (c *Client) DeleteBooking(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/bookings/"+url.PathEscape(id), nil, nil)
}
