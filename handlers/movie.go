package handlers

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"cinease/api"
	"cinease/booking"
	"cinease/catalog"
	"cinease/models"
)

type homeView struct {
	User     *models.User          `json:"user"`
	Genres   []string              `json:"genres"`
	Genre    string                `json:"genre"`
	Query    string                `json:"query"`
	Groups   []catalog.GenreGroup  `json:"groups"`
	Featured catalog.RotationState `json:"featured"`
	Modal    booking.FlowState     `json:"modal"`
	Seats    booking.PickerState   `json:"seats"`
	Warning  string                `json:"warning,omitempty"`
}

func (s *Shell) homeView() homeView {
	genre, query := s.Catalog.Filter()
	return homeView{
		User:     s.Session.User(),
		Genres:   s.Catalog.Genres(),
		Genre:    genre,
		Query:    query,
		Groups:   s.Catalog.Grouped(),
		Featured: s.Catalog.Rotation().State(),
		Modal:    s.Flow.State(),
		Seats:    s.Picker.State(),
	}
}

// Home is the catalog page. Admins are sent to their dashboard instead.
func (s *Shell) Home(w http.ResponseWriter, r *http.Request) {
	if s.Session.IsAdmin() {
		http.Redirect(w, r, "/admin", http.StatusSeeOther)
		return
	}
	err := s.Catalog.Load(r.Context())
	v := s.homeView()
	if err != nil {
		v.Warning = "Could not reach the server. Showing the offline catalog."
	}
	writeJSON(w, http.StatusOK, v)
}

func (s *Shell) ReloadCatalog(w http.ResponseWriter, r *http.Request) {
	s.Home(w, r)
}

func (s *Shell) FilterCatalog(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Genre string `json:"genre"`
		Query string `json:"query"`
	}
	if err := readJSON(r, &req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	s.Catalog.SetFilter(req.Genre, req.Query)
	writeJSON(w, http.StatusOK, s.homeView())
}

// SearchCatalog is the navigation search box: it opens the first movie that
// matches instead of filtering the grid.
func (s *Shell) SearchCatalog(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Text string `json:"text"`
	}
	if err := readJSON(r, &req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	m, ok := s.Catalog.Lookup(req.Text)
	if !ok {
		writeError(w, http.StatusNotFound, "No movie matches your search.")
		return
	}
	s.Flow.SetMovie(&m)
	writeJSON(w, http.StatusOK, s.Flow.State())
}

func (s *Shell) FeaturedGoTo(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Index int `json:"index"`
	}
	if err := readJSON(r, &req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	s.Catalog.Rotation().GoTo(req.Index)
	writeJSON(w, http.StatusOK, s.Catalog.Rotation().State())
}

// MoviePage shows one movie by id, asking the backend when the catalog does
// not have it. An unknown id gets the not-found view.
func (s *Shell) MoviePage(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	m, ok := s.Catalog.Find(id)
	if !ok {
		m, ok = s.fetchMovie(r, id)
	}
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{
			"error": "Movie not found",
			"home":  "/",
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"movie":   m,
		"canBook": !s.Session.IsAdmin(),
	})
}

func (s *Shell) fetchMovie(r *http.Request, id string) (models.Movie, bool) {
	raw, err := s.API.Movie(r.Context(), id)
	if err != nil {
		if !api.IsNotFound(err) {
			s.log.Printf("[ERROR]: movie %s: %v", id, err)
		}
		return models.Movie{}, false
	}
	m, err := catalog.Normalize(raw)
	if err != nil {
		s.log.Printf("[ERROR]: movie %s: %v", id, err)
		return models.Movie{}, false
	}
	return m, true
}

// OpenMovie shows the details modal for a catalog or carousel movie.
func (s *Shell) OpenMovie(w http.ResponseWriter, r *http.Request) {
	m, ok := s.Catalog.Find(mux.Vars(r)["id"])
	if !ok {
		writeError(w, http.StatusNotFound, "Movie not found")
		return
	}
	s.Flow.SetMovie(&m)
	writeJSON(w, http.StatusOK, s.Flow.State())
}

func (s *Shell) BookNow(w http.ResponseWriter, r *http.Request) {
	if err := s.Flow.BookNow(s.Session.User()); err != nil {
		flowFailed(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.Flow.State())
}

func (s *Shell) FlowBack(w http.ResponseWriter, r *http.Request) {
	if err := s.Flow.Back(); err != nil {
		flowFailed(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.Flow.State())
}

func (s *Shell) FlowClose(w http.ResponseWriter, r *http.Request) {
	s.Flow.Close()
	writeJSON(w, http.StatusOK, s.Flow.State())
}

// SelectSchedule hands the chosen showtime to the seat picker.
func (s *Shell) SelectSchedule(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Showtime string `json:"showtime"`
	}
	if err := readJSON(r, &req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	// A submission in flight keeps the picker; the schedule choice stays put.
	if s.Picker.Loading() {
		seatsFailed(w, booking.ErrBusy)
		return
	}
	h, err := s.Flow.SelectSchedule(req.Showtime)
	if err != nil {
		flowFailed(w, err)
		return
	}
	if err := s.Picker.Open(r.Context(), h); err != nil {
		s.Flow.Return(h)
		seatsFailed(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.Picker.State())
}

func flowFailed(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, booking.ErrAdminBooking):
		writeError(w, http.StatusForbidden, "Administrators manage movies and cannot book tickets.")
	case errors.Is(err, booking.ErrUnknownShowtime):
		writeError(w, http.StatusBadRequest, "That showtime is not available for this movie.")
	default:
		writeError(w, http.StatusConflict, err.Error())
	}
}
