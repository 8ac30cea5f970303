// Package booking holds the steps between picking a movie and holding
// confirmed seats: the details/schedule modal, the seat picker and the
// user's bookings dashboard.
package booking

import (
	"errors"
	"sync"

	"cinease/models"
)

type Step int

const (
	Closed Step = iota
	Details
	Schedule
)

func (s Step) String() string {
	switch s {
	case Details:
		return "details"
	case Schedule:
		return "schedule"
	default:
		return "closed"
	}
}

func (s Step) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

var (
	ErrAdminBooking    = errors.New("administrators manage movies and cannot book tickets")
	ErrWrongStep       = errors.New("action not available at this step")
	ErrUnknownShowtime = errors.New("showtime is not scheduled for this movie")
)

// Handoff is what the schedule step passes on to the seat picker.
type Handoff struct {
	Movie    models.Movie
	Showtime models.Showtime
}

type FlowState struct {
	Step  Step          `json:"step"`
	Movie *models.Movie `json:"movie,omitempty"`
}

// Flow is the movie modal: Closed, Details, Schedule. Whatever step it is
// in, a different movie always lands on Details.
type Flow struct {
	mu    sync.Mutex
	step  Step
	movie *models.Movie
}

func (f *Flow) State() FlowState {
	f.mu.Lock()
	defer f.mu.Unlock()
	st := FlowState{Step: f.step}
	if f.movie != nil {
		m := *f.movie
		st.Movie = &m
	}
	return st
}

// Open shows the details of m, from the catalog grid or the carousel.
func (f *Flow) Open(m models.Movie) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.movie = &m
	f.step = Details
}

// SetMovie follows the parent's movie reference. nil closes the modal; a
// different movie restarts at Details; the same movie changes nothing.
func (f *Flow) SetMovie(m *models.Movie) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if m == nil {
		f.movie, f.step = nil, Closed
		return
	}
	if f.movie != nil && f.movie.ID == m.ID && f.step != Closed {
		return
	}
	mv := *m
	f.movie, f.step = &mv, Details
}

// BookNow moves from Details to the schedule list. Admins stay on Details.
func (f *Flow) BookNow(viewer *models.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.step != Details {
		return ErrWrongStep
	}
	if viewer.IsAdmin() {
		return ErrAdminBooking
	}
	f.step = Schedule
	return nil
}

func (f *Flow) Back() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.step != Schedule {
		return ErrWrongStep
	}
	f.step = Details
	return nil
}

func (f *Flow) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.movie, f.step = nil, Closed
}

// SelectSchedule picks one of the movie's showtimes and closes the modal,
// handing off to the seat picker. It is the only way into seat selection.
func (f *Flow) SelectSchedule(start string) (Handoff, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.step != Schedule || f.movie == nil {
		return Handoff{}, ErrWrongStep
	}
	for _, st := range f.movie.Showtimes {
		if st.String() == start {
			h := Handoff{Movie: *f.movie, Showtime: st}
			f.movie, f.step = nil, Closed
			return h, nil
		}
	}
	return Handoff{}, ErrUnknownShowtime
}

// Return puts a handed-off movie back on its schedule list, for when the seat
// picker could not take the handoff.
func (f *Flow) Return(h Handoff) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m := h.Movie
	f.movie, f.step = &m, Schedule
}
