package models

import (
	"encoding/json"
	"time"
)

const (
	BookingConfirmed = "confirmed"
	BookingCancelled = "cancelled"
)

type BookingRequest struct {
	MovieTitle string   `json:"movieTitle"`
	Showtime   string   `json:"showtime"`
	Seats      []string `json:"seats"`
	TotalPrice int      `json:"totalPrice"`
}

// Booking is a server-confirmed reservation. User is only populated on the
// admin reservations listing.
type Booking struct {
	ID          string    `json:"id"`
	MovieTitle  string    `json:"movieTitle"`
	Showtime    string    `json:"showtime"`
	Seats       []string  `json:"seats"`
	TotalPrice  int       `json:"totalPrice"`
	Status      string    `json:"status"`
	BookingDate time.Time `json:"bookingDate"`
	User        *User     `json:"user,omitempty"`
}

// UnmarshalJSON accepts the backend's Mongo "_id" when "id" is absent.
func (b *Booking) UnmarshalJSON(data []byte) error {
	type plain Booking
	var aux struct {
		plain
		MongoID string `json:"_id"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*b = Booking(aux.plain)
	if b.ID == "" {
		b.ID = aux.MongoID
	}
	return nil
}

type BookingResponse struct {
	Message string  `json:"message"`
	Booking Booking `json:"booking"`
}

// ReservationPatch carries the fields an admin may change on a reservation.
type ReservationPatch struct {
	Status   *string  `json:"status,omitempty"`
	Seats    []string `json:"seats,omitempty"`
	Showtime *string  `json:"showtime,omitempty"`
}
