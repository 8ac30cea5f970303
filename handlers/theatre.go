package handlers

import (
	"net/http"
)

// TheatreLayout describes the seat grid every showtime is booked against.
func (s *Shell) TheatreLayout(w http.ResponseWriter, r *http.Request) {
	var theatre struct {
		Rows        []string `json:"rows"`
		SeatsPerRow int      `json:"seatsPerRow"`
		TotalSeats  int      `json:"totalSeats"`
		Seats       []string `json:"seats"`
	}
	theatre.Rows = s.Theatre.Rows
	theatre.SeatsPerRow = s.Theatre.SeatsPerRow
	theatre.TotalSeats = s.Theatre.TotalSeats()
	theatre.Seats = s.Theatre.Seats()
	writeJSON(w, http.StatusOK, theatre)
}
