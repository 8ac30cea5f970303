package booking

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"cinease/api"
	"cinease/models"
)

var (
	ErrNoSeats       = errors.New("please select at least one seat")
	ErrBusy          = errors.New("a booking is already being submitted")
	ErrNotOpen       = errors.New("no showtime selected")
	ErrSeatTaken     = errors.New("seat is already booked")
	ErrLoginRequired = errors.New("please log in to book tickets")
	ErrBookingFailed = errors.New("booking failed, please try again")
)

// Booker is the part of the API the seat picker calls.
type Booker interface {
	CreateBooking(ctx context.Context, br models.BookingRequest) (models.Booking, error)
	BookedSeats(ctx context.Context, movieTitle, showtime string) ([]string, error)
}

type SeatView struct {
	Code     string `json:"code"`
	Selected bool   `json:"selected"`
	Taken    bool   `json:"taken"`
}

type PickerState struct {
	Open       bool       `json:"open"`
	MovieTitle string     `json:"movieTitle,omitempty"`
	Showtime   string     `json:"showtime,omitempty"`
	Rows       []string   `json:"rows"`
	Seats      []SeatView `json:"seats"`
	Selected   []string   `json:"selected"`
	UnitPrice  int        `json:"unitPrice"`
	Total      int        `json:"total"`
	Loading    bool       `json:"loading"`
}

// SeatPicker is the booking draft for one (movie, showtime) pair. The draft
// lives only in memory and is dropped on confirm, cancel or any change of
// movie or showtime.
type SeatPicker struct {
	api          Booker
	theatre      models.Theatre
	defaultPrice int
	log          *log.Logger

	mu       sync.Mutex
	open     bool
	movie    models.Movie
	showtime models.Showtime
	selected []string
	taken    map[string]bool
	loading  bool
	gen      uint64
}

func NewSeatPicker(b Booker, theatre models.Theatre, defaultPrice int, logger *log.Logger) *SeatPicker {
	if logger == nil {
		logger = log.Default()
	}
	return &SeatPicker{api: b, theatre: theatre, defaultPrice: defaultPrice, log: logger}
}

// Open starts or resumes the draft for h. A different movie or showtime
// empties the selection. Seats booked by others are fetched; failing to get
// them is logged and leaves every seat selectable.
func (p *SeatPicker) Open(ctx context.Context, h Handoff) error {
	p.mu.Lock()
	if p.loading {
		p.mu.Unlock()
		return ErrBusy
	}
	same := p.open && p.movie.ID == h.Movie.ID && p.movie.Title == h.Movie.Title && p.showtime.Start.Equal(h.Showtime.Start)
	if !same {
		p.gen++
		p.selected = nil
		p.taken = nil
	}
	p.open, p.movie, p.showtime = true, h.Movie, h.Showtime
	gen := p.gen
	p.mu.Unlock()

	if same {
		return nil
	}
	booked, err := p.api.BookedSeats(ctx, h.Movie.Title, h.Showtime.String())
	if err != nil {
		p.log.Printf("[ERROR]: booked seats for %q at %s: %v", h.Movie.Title, h.Showtime, err)
		return nil
	}
	taken := make(map[string]bool, len(booked))
	for _, code := range booked {
		if row, col, err := p.theatre.ParseSeat(code); err == nil {
			taken[models.SeatCode(row, col)] = true
		}
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if gen != p.gen {
		return nil
	}
	p.taken = taken
	kept := p.selected[:0]
	for _, s := range p.selected {
		if !taken[s] {
			kept = append(kept, s)
		}
	}
	p.selected = kept
	return nil
}

// Toggle selects code, or deselects it if already selected.
func (p *SeatPicker) Toggle(code string) error {
	row, col, err := p.theatre.ParseSeat(code)
	if err != nil {
		return err
	}
	code = models.SeatCode(row, col)

	p.mu.Lock()
	defer p.mu.Unlock()
	switch {
	case !p.open:
		return ErrNotOpen
	case p.loading:
		return ErrBusy
	}
	for i, s := range p.selected {
		if s == code {
			p.selected = append(p.selected[:i:i], p.selected[i+1:]...)
			return nil
		}
	}
	if p.taken[code] {
		return fmt.Errorf("%s: %w", code, ErrSeatTaken)
	}
	p.selected = append(p.selected, code)
	return nil
}

func (p *SeatPicker) Selected() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.selected...)
}

func (p *SeatPicker) Loading() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.loading
}

// UnitPrice is the movie's price, or the configured default when the movie
// carries none.
func (p *SeatPicker) UnitPrice() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.unitPriceLocked()
}

func (p *SeatPicker) unitPriceLocked() int {
	if p.movie.Price > 0 {
		return p.movie.Price
	}
	return p.defaultPrice
}

func (p *SeatPicker) Total() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.selected) * p.unitPriceLocked()
}

func (p *SeatPicker) State() PickerState {
	p.mu.Lock()
	defer p.mu.Unlock()
	st := PickerState{
		Open:      p.open,
		Rows:      p.theatre.Rows,
		Selected:  append([]string{}, p.selected...),
		UnitPrice: p.unitPriceLocked(),
		Total:     len(p.selected) * p.unitPriceLocked(),
		Loading:   p.loading,
	}
	if !p.open {
		return st
	}
	st.MovieTitle, st.Showtime = p.movie.Title, p.showtime.String()
	sel := make(map[string]bool, len(p.selected))
	for _, s := range p.selected {
		sel[s] = true
	}
	for _, code := range p.theatre.Seats() {
		st.Seats = append(st.Seats, SeatView{Code: code, Selected: sel[code], Taken: p.taken[code]})
	}
	return st
}

// Confirm submits the draft. With no seats selected it fails before any
// request. On success onConfirm receives exactly the seats submitted and
// the picker closes. Loading is cleared on every path.
func (p *SeatPicker) Confirm(ctx context.Context, onConfirm func(seats []string)) error {
	p.mu.Lock()
	switch {
	case !p.open:
		p.mu.Unlock()
		return ErrNotOpen
	case p.loading:
		p.mu.Unlock()
		return ErrBusy
	case len(p.selected) == 0:
		p.mu.Unlock()
		return ErrNoSeats
	}
	p.loading = true
	seats := append([]string(nil), p.selected...)
	req := models.BookingRequest{
		MovieTitle: p.movie.Title,
		Showtime:   p.showtime.String(),
		Seats:      seats,
		TotalPrice: len(seats) * p.unitPriceLocked(),
	}
	gen := p.gen
	p.mu.Unlock()

	defer func() {
		p.mu.Lock()
		p.loading = false
		p.mu.Unlock()
	}()

	if _, err := p.api.CreateBooking(ctx, req); err != nil {
		if api.IsUnauthorized(err) {
			return ErrLoginRequired
		}
		p.log.Printf("[ERROR]: booking %v for %q: %v", seats, req.MovieTitle, err)
		return fmt.Errorf("%w: %v", ErrBookingFailed, err)
	}

	p.mu.Lock()
	if gen == p.gen {
		p.open, p.selected, p.taken = false, nil, nil
		p.gen++
	}
	p.mu.Unlock()
	p.log.Printf("[SYSTEM]: booked %v for %q at %s", seats, req.MovieTitle, req.Showtime)

	if onConfirm != nil {
		onConfirm(seats)
	}
	return nil
}

// Cancel drops the draft without any request. It reports false and does
// nothing while a submission is in flight.
func (p *SeatPicker) Cancel() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.loading {
		return false
	}
	p.open, p.selected, p.taken = false, nil, nil
	p.gen++
	return true
}

// Message turns a picker error into the text shown to the user.
func Message(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNoSeats):
		return "Please select at least one seat."
	case errors.Is(err, ErrLoginRequired):
		return "Please log in to book tickets."
	case errors.Is(err, ErrSeatTaken):
		return "That seat has already been booked."
	case errors.Is(err, ErrBusy):
		return "Your booking is being processed."
	case errors.Is(err, ErrNotOpen):
		return "Please choose a showtime first."
	default:
		return "Booking failed. Please try again."
	}
}
