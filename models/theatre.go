package models

import (
	"fmt"
	"strconv"
	"strings"
)

// Theatre is the seat layout of a screening room: every row label holds
// SeatsPerRow seats numbered from 1.
type Theatre struct {
	Name        string   `json:"name,omitempty"`
	Rows        []string `json:"rows"`
	SeatsPerRow int      `json:"seats_per_row"`
}

// DefaultTheatre is the 5 x 6 room the booking screen has always shown.
func DefaultTheatre() Theatre {
	return Theatre{Rows: []string{"A", "B", "C", "D", "E"}, SeatsPerRow: 6}
}

func (t Theatre) TotalSeats() int {
	return len(t.Rows) * t.SeatsPerRow
}

// SeatCode joins a row label and a 1-based column, e.g. "C4".
func SeatCode(row string, col int) string {
	return row + strconv.Itoa(col)
}

// Seats lists every seat code in row-major order.
func (t Theatre) Seats() []string {
	out := make([]string, 0, t.TotalSeats())
	for _, r := range t.Rows {
		for c := 1; c <= t.SeatsPerRow; c++ {
			out = append(out, SeatCode(r, c))
		}
	}
	return out
}

// ParseSeat splits a seat code and checks it against the layout.
func (t Theatre) ParseSeat(code string) (row string, col int, err error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	for _, r := range t.Rows {
		if !strings.HasPrefix(code, r) {
			continue
		}
		n, convErr := strconv.Atoi(code[len(r):])
		if convErr != nil {
			continue
		}
		if n < 1 || n > t.SeatsPerRow {
			return "", 0, fmt.Errorf("seat %q: column out of range 1..%d", code, t.SeatsPerRow)
		}
		return r, n, nil
	}
	return "", 0, fmt.Errorf("seat %q: no such row", code)
}

func (t Theatre) Validate() error {
	if len(t.Rows) == 0 {
		return fmt.Errorf("theatre needs at least one row")
	}
	if t.SeatsPerRow <= 0 {
		return fmt.Errorf("seats per row must be a positive integer")
	}
	seen := make(map[string]bool, len(t.Rows))
	for _, r := range t.Rows {
		if r == "" || seen[r] {
			return fmt.Errorf("row labels must be unique and non-empty")
		}
		seen[r] = true
	}
	return nil
}
