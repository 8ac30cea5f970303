// Package handlers serves the client shell: the site's pages as JSON views
// and its buttons as actions, all backed by one user session.
package handlers

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"cinease/admin"
	"cinease/api"
	"cinease/booking"
	"cinease/catalog"
	"cinease/config"
	"cinease/models"
	"cinease/session"
)

// Shell owns every screen of the client.
type Shell struct {
	Session      *session.Session
	API          *api.Client
	Catalog      *catalog.View
	Flow         *booking.Flow
	Picker       *booking.SeatPicker
	Dashboard    *booking.Dashboard
	Movies       *admin.Movies
	Users        *admin.Users
	Reservations *admin.Reservations
	Theatre      models.Theatre

	log *log.Logger
}

// NewShell builds the screens on top of an API client and a loaded session.
// The featured carousel is created but not started.
func NewShell(cfg config.Config, sess *session.Session, client *api.Client, logger *log.Logger) (*Shell, error) {
	if logger == nil {
		logger = log.Default()
	}
	fallback, err := catalog.Fallback()
	if err != nil {
		return nil, err
	}
	theatre := cfg.Theatre()
	rotation := catalog.NewRotation(nil, cfg.FeaturedSettle, cfg.FeaturedEvery)
	return &Shell{
		Session:      sess,
		API:          client,
		Catalog:      catalog.NewView(client, fallback, rotation, logger),
		Flow:         &booking.Flow{},
		Picker:       booking.NewSeatPicker(client, theatre, cfg.DefaultPrice, logger),
		Dashboard:    booking.NewDashboard(client),
		Movies:       admin.NewMovies(client, cfg.PageSize, logger),
		Users:        admin.NewUsers(client, cfg.PageSize, logger),
		Reservations: admin.NewReservations(client, cfg.PageSize, logger),
		Theatre:      theatre,
		log:          logger,
	}, nil
}

// NewRouter lays out the page paths and the actions behind them.
func NewRouter(s *Shell) *mux.Router {
	r := mux.NewRouter()
	r.Use(s.logRequests)

	r.HandleFunc("/", s.Home).Methods(http.MethodGet)
	r.HandleFunc("/movie/{id}", s.MoviePage).Methods(http.MethodGet)
	r.HandleFunc("/theatre", s.TheatreLayout).Methods(http.MethodGet)

	r.HandleFunc("/auth", s.AuthState).Methods(http.MethodGet)
	r.HandleFunc("/auth/login", s.Login).Methods(http.MethodPost)
	r.HandleFunc("/auth/register", s.Register).Methods(http.MethodPost)
	r.HandleFunc("/auth/logout", s.Logout).Methods(http.MethodPost)

	r.HandleFunc("/catalog/reload", s.ReloadCatalog).Methods(http.MethodPost)
	r.HandleFunc("/catalog/filter", s.FilterCatalog).Methods(http.MethodPost)
	r.HandleFunc("/catalog/search", s.SearchCatalog).Methods(http.MethodPost)
	r.HandleFunc("/featured/goto", s.FeaturedGoTo).Methods(http.MethodPost)

	r.HandleFunc("/movie/{id}/open", s.OpenMovie).Methods(http.MethodPost)
	r.HandleFunc("/flow/book-now", s.BookNow).Methods(http.MethodPost)
	r.HandleFunc("/flow/back", s.FlowBack).Methods(http.MethodPost)
	r.HandleFunc("/flow/close", s.FlowClose).Methods(http.MethodPost)
	r.HandleFunc("/flow/schedule", s.SelectSchedule).Methods(http.MethodPost)

	r.HandleFunc("/seats", s.SeatState).Methods(http.MethodGet)
	r.HandleFunc("/seats/toggle", s.ToggleSeat).Methods(http.MethodPost)
	r.HandleFunc("/seats/confirm", s.Authenticate(s.ConfirmSeats)).Methods(http.MethodPost)
	r.HandleFunc("/seats/cancel", s.CancelSeats).Methods(http.MethodPost)

	r.HandleFunc("/dashboard", s.Authenticate(s.DashboardPage)).Methods(http.MethodGet)
	r.HandleFunc("/dashboard/bookings/{id}/cancel", s.Authenticate(s.RequestCancel)).Methods(http.MethodPost)
	r.HandleFunc("/dashboard/cancel", s.Authenticate(s.ConfirmCancel)).Methods(http.MethodPost)
	r.HandleFunc("/dashboard/cancel", s.Authenticate(s.AbortCancel)).Methods(http.MethodDelete)

	r.HandleFunc("/admin", s.AdminOnly(s.AdminHome)).Methods(http.MethodGet)
	r.HandleFunc("/admin/movies", s.AdminOnly(s.CreateMovie)).Methods(http.MethodPost)
	r.HandleFunc("/admin/movie/{id}", s.AdminOnly(s.EditMovie)).Methods(http.MethodGet)
	r.HandleFunc("/admin/movie/{id}", s.AdminOnly(s.UpdateMovie)).Methods(http.MethodPut)
	r.HandleFunc("/admin/users/{id}", s.AdminOnly(s.UpdateUser)).Methods(http.MethodPut)
	r.HandleFunc("/admin/reservations/{id}", s.AdminOnly(s.UpdateReservation)).Methods(http.MethodPut)
	r.HandleFunc("/admin/upload", s.AdminOnly(s.UploadImage)).Methods(http.MethodPost)
	mountScreen(r, s, "movies", s.Movies.Screen)
	mountScreen(r, s, "users", s.Users.Screen)
	mountScreen(r, s, "reservations", s.Reservations.Screen)
	// After the screens so /edit is not taken for an id.
	r.HandleFunc("/admin/users/{id}", s.AdminOnly(s.EditUser)).Methods(http.MethodGet)
	r.HandleFunc("/admin/reservations/{id}", s.AdminOnly(s.EditReservation)).Methods(http.MethodGet)

	return r
}

func (s *Shell) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.log.Printf("[API]: %s %s (%s)", r.Method, r.URL.Path, time.Since(start).Round(time.Millisecond))
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func readJSON(r *http.Request, dst any) error {
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}
