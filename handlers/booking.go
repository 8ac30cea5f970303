package handlers

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"cinease/api"
	"cinease/booking"
	"cinease/models"
)

func (s *Shell) SeatState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.Picker.State())
}

func (s *Shell) ToggleSeat(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Seat string `json:"seat"`
	}
	if err := readJSON(r, &req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if err := s.Picker.Toggle(req.Seat); err != nil {
		seatsFailed(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.Picker.State())
}

// ConfirmSeats submits the booking draft. The picker clears its own loading
// state whatever happens.
func (s *Shell) ConfirmSeats(w http.ResponseWriter, r *http.Request) {
	var booked []string
	err := s.Picker.Confirm(r.Context(), func(seats []string) {
		booked = seats
	})
	if err != nil {
		seatsFailed(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"message": "Booking confirmed!",
		"seats":   booked,
	})
}

func (s *Shell) CancelSeats(w http.ResponseWriter, r *http.Request) {
	if !s.Picker.Cancel() {
		seatsFailed(w, booking.ErrBusy)
		return
	}
	writeJSON(w, http.StatusOK, s.Picker.State())
}

func seatsFailed(w http.ResponseWriter, err error) {
	status := http.StatusBadGateway
	switch {
	case errors.Is(err, booking.ErrNoSeats):
		status = http.StatusBadRequest
	case errors.Is(err, booking.ErrLoginRequired):
		status = http.StatusUnauthorized
	case errors.Is(err, booking.ErrBusy), errors.Is(err, booking.ErrNotOpen), errors.Is(err, booking.ErrSeatTaken):
		status = http.StatusConflict
	case !errors.Is(err, booking.ErrBookingFailed):
		// seat code that is not on the layout
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, status, map[string]string{"error": booking.Message(err)})
}

type dashboardView struct {
	User     *models.User     `json:"user"`
	Bookings []models.Booking `json:"bookings"`
	Pending  string           `json:"pendingCancel,omitempty"`
}

func (s *Shell) dashboardView() dashboardView {
	return dashboardView{
		User:     s.Session.User(),
		Bookings: s.Dashboard.Bookings(),
		Pending:  s.Dashboard.Pending(),
	}
}

// DashboardPage lists the user's bookings. Admins have none and land on
// their own dashboard.
func (s *Shell) DashboardPage(w http.ResponseWriter, r *http.Request) {
	if s.Session.IsAdmin() {
		http.Redirect(w, r, "/admin", http.StatusSeeOther)
		return
	}
	if err := s.Dashboard.Load(r.Context()); err != nil {
		s.log.Printf("[ERROR]: %v", err)
		writeError(w, apiStatus(err), api.Message(err, "Failed to load your bookings."))
		return
	}
	writeJSON(w, http.StatusOK, s.dashboardView())
}

// RequestCancel asks for confirmation before a booking is cancelled.
func (s *Shell) RequestCancel(w http.ResponseWriter, r *http.Request) {
	if err := s.Dashboard.RequestCancel(mux.Vars(r)["id"]); err != nil {
		writeError(w, http.StatusNotFound, "Booking not found.")
		return
	}
	writeJSON(w, http.StatusOK, s.dashboardView())
}

func (s *Shell) ConfirmCancel(w http.ResponseWriter, r *http.Request) {
	err := s.Dashboard.ConfirmCancel(r.Context())
	switch {
	case errors.Is(err, booking.ErrNothingToCancel):
		writeError(w, http.StatusConflict, "No cancellation is awaiting confirmation.")
		return
	case err != nil:
		s.log.Printf("[ERROR]: %v", err)
		writeError(w, apiStatus(err), api.Message(err, "Failed to cancel booking."))
		return
	}
	v := s.dashboardView()
	writeJSON(w, http.StatusOK, map[string]any{
		"message":  "Booking cancelled successfully.",
		"bookings": v.Bookings,
	})
}

func (s *Shell) AbortCancel(w http.ResponseWriter, r *http.Request) {
	s.Dashboard.AbortCancel()
	writeJSON(w, http.StatusOK, s.dashboardView())
}
