package booking

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"cinease/models"
)

var (
	ErrNoSuchBooking   = errors.New("booking not found")
	ErrNothingToCancel = errors.New("no cancellation awaiting confirmation")
)

type BookingsAPI interface {
	MyBookings(ctx context.Context) ([]models.Booking, error)
	DeleteBooking(ctx context.Context, id string) error
}

// Dashboard is the "my bookings" page. Cancelling takes two steps, a request
// and a confirmation, and a confirmed cancellation drops the booking from the
// list as soon as the server accepts it.
type Dashboard struct {
	api BookingsAPI

	mu       sync.Mutex
	bookings []models.Booking
	pending  string
	gen      uint64
}

func NewDashboard(b BookingsAPI) *Dashboard {
	return &Dashboard{api: b}
}

func (d *Dashboard) Load(ctx context.Context) error {
	d.mu.Lock()
	d.gen++
	gen := d.gen
	d.mu.Unlock()

	list, err := d.api.MyBookings(ctx)
	if err != nil {
		return fmt.Errorf("load bookings: %w", err)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if gen == d.gen && ctx.Err() == nil {
		d.bookings = list
	}
	return nil
}

func (d *Dashboard) Bookings() []models.Booking {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]models.Booking(nil), d.bookings...)
}

// Pending is the id awaiting cancellation confirmation, or "".
func (d *Dashboard) Pending() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pending
}

func (d *Dashboard) RequestCancel(id string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.indexLocked(id) < 0 {
		return ErrNoSuchBooking
	}
	d.pending = id
	return nil
}

func (d *Dashboard) AbortCancel() {
	d.mu.Lock()
	d.pending = ""
	d.mu.Unlock()
}

// ConfirmCancel deletes the booking awaiting confirmation.
func (d *Dashboard) ConfirmCancel(ctx context.Context) error {
	d.mu.Lock()
	id := d.pending
	d.pending = ""
	d.mu.Unlock()
	if id == "" {
		return ErrNothingToCancel
	}

	if err := d.api.DeleteBooking(ctx, id); err != nil {
		return fmt.Errorf("cancel booking %s: %w", id, err)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if i := d.indexLocked(id); i >= 0 {
		d.bookings = append(d.bookings[:i:i], d.bookings[i+1:]...)
	}
	return nil
}

func (d *Dashboard) indexLocked(id string) int {
	for i, b := range d.bookings {
		if b.ID == id {
			return i
		}
	}
	return -1
}
