package handlers

import (
	"encoding/json"
	"net/http"
	"strings"
	"sync"

	"github.com/gorilla/mux"

	"cinease/models"
)

// backend is an in-memory stand-in for the CinEase REST API.
type backend struct {
	mu          sync.Mutex
	moviesDown  bool
	rejectToken bool
	booked      []string
	requests    []models.BookingRequest
	bookings    []models.Booking
	cancelled   []string
	users       []models.User
	userDeletes []string
	// hold, when set, keeps booking creation waiting until it is closed.
	hold        chan struct{}
}

func newBackend() *backend {
	return &backend{
		booked: []string{"A1"},
		bookings: []models.Booking{
			{ID: "b1", MovieTitle: "Arrival", Seats: []string{"B1"}, TotalPrice: 200, Status: models.BookingConfirmed},
			{ID: "b2", MovieTitle: "Arrival", Seats: []string{"B2"}, TotalPrice: 200, Status: models.BookingConfirmed},
		},
		users: []models.User{
			{ID: "u1", Name: "Ann", Email: "ann@example.com", Role: models.RoleUser},
			{ID: "u2", Name: "Bob", Email: "bob@example.com", Role: models.RoleUser},
			{ID: "u3", Name: "Root", Email: "admin@example.com", Role: models.RoleAdmin},
		},
	}
}

const arrival = `{"_id":"m1","title":"Arrival","genre":"Sci-Fi, Drama","duration":116,"price":200,"showtimes":["2025-07-01T19:00:00Z"]}`

func reply(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write([]byte(body))
}

// mongo re-encodes v the way the real backend sends records, keyed by "_id".
func mongo(v any) map[string]any {
	var m map[string]any
	b, _ := json.Marshal(v)
	json.Unmarshal(b, &m)
	if id, ok := m["id"]; ok {
		m["_id"] = id
		delete(m, "id")
	}
	return m
}

func mongoAll[T any](list []T) []map[string]any {
	out := make([]map[string]any, 0, len(list))
	for _, v := range list {
		out = append(out, mongo(v))
	}
	return out
}

// with runs fn while holding the backend lock.
func (b *backend) with(fn func(b *backend)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	fn(b)
}

func (b *backend) authorized(r *http.Request) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return strings.HasPrefix(r.Header.Get("Authorization"), "Bearer tok-") && !b.rejectToken
}

func (b *backend) handler() http.Handler {
	r := mux.NewRouter()
	api := r.PathPrefix("/api").Subrouter()

	api.HandleFunc("/auth/login", func(w http.ResponseWriter, r *http.Request) {
		var creds models.Credentials
		json.NewDecoder(r.Body).Decode(&creds)
		if creds.Password != "secret" {
			reply(w, http.StatusUnauthorized, `{"message":"Invalid credentials"}`)
			return
		}
		b.mu.Lock()
		defer b.mu.Unlock()
		for _, u := range b.users {
			if u.Email == creds.Email {
				json.NewEncoder(w).Encode(models.AuthResponse{User: u, Token: "tok-" + u.ID})
				return
			}
		}
		reply(w, http.StatusUnauthorized, `{"message":"Invalid credentials"}`)
	}).Methods(http.MethodPost)

	api.HandleFunc("/movies", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		down := b.moviesDown
		b.mu.Unlock()
		if down {
			reply(w, http.StatusInternalServerError, `{"message":"database offline"}`)
			return
		}
		reply(w, http.StatusOK, `[`+arrival+`]`)
	}).Methods(http.MethodGet)

	api.HandleFunc("/movies/{id}", func(w http.ResponseWriter, r *http.Request) {
		reply(w, http.StatusNotFound, `{"message":"Movie not found"}`)
	}).Methods(http.MethodGet)

	api.HandleFunc("/bookings/booked-seats", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		defer b.mu.Unlock()
		json.NewEncoder(w).Encode(map[string][]string{"bookedSeats": b.booked})
	}).Methods(http.MethodGet)

	api.HandleFunc("/bookings", func(w http.ResponseWriter, r *http.Request) {
		if !b.authorized(r) {
			reply(w, http.StatusUnauthorized, `{"message":"Token expired"}`)
			return
		}
		var req models.BookingRequest
		json.NewDecoder(r.Body).Decode(&req)
		b.mu.Lock()
		hold := b.hold
		b.mu.Unlock()
		if hold != nil {
			<-hold
		}
		b.mu.Lock()
		b.requests = append(b.requests, req)
		b.mu.Unlock()
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(models.BookingResponse{Message: "ok", Booking: models.Booking{ID: "b9", MovieTitle: req.MovieTitle, Seats: req.Seats}})
	}).Methods(http.MethodPost)

	api.HandleFunc("/bookings/my-bookings", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		defer b.mu.Unlock()
		json.NewEncoder(w).Encode(map[string]any{"bookings": mongoAll(b.bookings)})
	}).Methods(http.MethodGet)

	api.HandleFunc("/bookings/{id}", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		defer b.mu.Unlock()
		b.cancelled = append(b.cancelled, mux.Vars(r)["id"])
		w.WriteHeader(http.StatusNoContent)
	}).Methods(http.MethodDelete)

	api.HandleFunc("/admin/users", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		defer b.mu.Unlock()
		json.NewEncoder(w).Encode(map[string]any{"users": mongoAll(b.users)})
	}).Methods(http.MethodGet)

	api.HandleFunc("/admin/users/{id}", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		defer b.mu.Unlock()
		for _, u := range b.users {
			if u.ID == mux.Vars(r)["id"] {
				json.NewEncoder(w).Encode(map[string]any{"user": mongo(u)})
				return
			}
		}
		reply(w, http.StatusNotFound, `{"message":"User not found"}`)
	}).Methods(http.MethodGet)

	api.HandleFunc("/admin/users/{id}", func(w http.ResponseWriter, r *http.Request) {
		id := mux.Vars(r)["id"]
		b.mu.Lock()
		defer b.mu.Unlock()
		b.userDeletes = append(b.userDeletes, id)
		kept := b.users[:0]
		for _, u := range b.users {
			if u.ID != id {
				kept = append(kept, u)
			}
		}
		b.users = kept
		w.WriteHeader(http.StatusNoContent)
	}).Methods(http.MethodDelete)

	api.HandleFunc("/admin/movies", func(w http.ResponseWriter, r *http.Request) {
		reply(w, http.StatusOK, `{"movies":[`+arrival+`]}`)
	}).Methods(http.MethodGet)

	api.HandleFunc("/admin/reservations", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		defer b.mu.Unlock()
		json.NewEncoder(w).Encode(map[string]any{"reservations": mongoAll(b.bookings)})
	}).Methods(http.MethodGet)

	api.HandleFunc("/admin/reservations/{id}", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		defer b.mu.Unlock()
		for _, bk := range b.bookings {
			if bk.ID == mux.Vars(r)["id"] {
				json.NewEncoder(w).Encode(mongo(bk))
				return
			}
		}
		reply(w, http.StatusNotFound, `{"message":"Reservation not found"}`)
	}).Methods(http.MethodGet)

	return r
}
