package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"cinease/admin"
	"cinease/api"
	"cinease/models"
)

// AdminHome is the admin dashboard: every list is loaded and counted.
func (s *Shell) AdminHome(w http.ResponseWriter, r *http.Request) {
	counts := map[string]int{}
	var failed []string
	load := func(name string, refresh func(context.Context) error, n func() int) {
		if err := refresh(r.Context()); err != nil {
			s.log.Printf("[ERROR]: %v", err)
			failed = append(failed, name)
			return
		}
		counts[name] = n()
	}
	load("movies", s.Movies.Refresh, func() int { return len(s.Movies.Filtered()) })
	load("users", s.Users.Refresh, func() int { return len(s.Users.Filtered()) })
	load("reservations", s.Reservations.Refresh, func() int { return len(s.Reservations.Filtered()) })

	writeJSON(w, http.StatusOK, map[string]any{
		"user":   s.Session.User(),
		"counts": counts,
		"failed": failed,
	})
}

type screenView[T any] struct {
	Query         string        `json:"query"`
	Page          int           `json:"page"`
	Pages         int           `json:"pages"`
	Rows          []T           `json:"rows"`
	Selected      []int         `json:"selected"`
	CanEdit       bool          `json:"canEdit"`
	CanDelete     bool          `json:"canDelete"`
	PendingDelete []string      `json:"pendingDelete,omitempty"`
	Notice        *admin.Notice `json:"notice,omitempty"`
}

func viewOf[T any](sc *admin.Screen[T]) screenView[T] {
	page, pages := sc.Page()
	return screenView[T]{
		Query:         sc.Query(),
		Page:          page + 1,
		Pages:         pages,
		Rows:          sc.Visible(),
		Selected:      sc.SelectedRows(),
		CanEdit:       sc.CanEdit(),
		CanDelete:     sc.CanDelete(),
		PendingDelete: sc.PendingDelete(),
		Notice:        sc.Notice(),
	}
}

// mountScreen wires one admin list: loading it, searching, paging, row
// selection and the two-step delete. Pages are 1-based on the wire.
func mountScreen[T any](router *mux.Router, s *Shell, name string, sc *admin.Screen[T]) {
	base := "/admin/" + name
	show := func(w http.ResponseWriter, status int) {
		writeJSON(w, status, viewOf(sc))
	}

	router.HandleFunc(base, s.AdminOnly(func(w http.ResponseWriter, r *http.Request) {
		if err := sc.Refresh(r.Context()); err != nil {
			writeError(w, apiStatus(err), api.Message(err, "Failed to load "+name+"."))
			return
		}
		show(w, http.StatusOK)
	})).Methods(http.MethodGet)

	router.HandleFunc(base+"/query", s.AdminOnly(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Query string `json:"query"`
		}
		if err := readJSON(r, &req); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}
		sc.SetQuery(req.Query)
		show(w, http.StatusOK)
	})).Methods(http.MethodPost)

	router.HandleFunc(base+"/page", s.AdminOnly(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Page int `json:"page"`
		}
		if err := readJSON(r, &req); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}
		sc.SetPage(req.Page - 1)
		show(w, http.StatusOK)
	})).Methods(http.MethodPost)

	router.HandleFunc(base+"/select", s.AdminOnly(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Row int `json:"row"`
		}
		if err := readJSON(r, &req); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}
		if err := sc.Toggle(req.Row); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		show(w, http.StatusOK)
	})).Methods(http.MethodPost)

	router.HandleFunc(base+"/edit", s.AdminOnly(func(w http.ResponseWriter, r *http.Request) {
		row, err := sc.EditTarget()
		if err != nil {
			writeError(w, http.StatusConflict, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, row)
	})).Methods(http.MethodGet)

	router.HandleFunc(base+"/delete", s.AdminOnly(func(w http.ResponseWriter, r *http.Request) {
		if _, err := sc.RequestDelete(); err != nil {
			writeError(w, http.StatusConflict, err.Error())
			return
		}
		show(w, http.StatusOK)
	})).Methods(http.MethodPost)

	router.HandleFunc(base+"/delete", s.AdminOnly(func(w http.ResponseWriter, r *http.Request) {
		sc.AbortDelete()
		show(w, http.StatusOK)
	})).Methods(http.MethodDelete)

	router.HandleFunc(base+"/delete/confirm", s.AdminOnly(func(w http.ResponseWriter, r *http.Request) {
		_, err := sc.ConfirmDelete(r.Context())
		if errors.Is(err, admin.ErrNothingToDelete) {
			writeError(w, http.StatusConflict, err.Error())
			return
		}
		show(w, http.StatusOK)
	})).Methods(http.MethodPost)

	router.HandleFunc(base+"/notice", s.AdminOnly(func(w http.ResponseWriter, r *http.Request) {
		sc.DismissNotice()
		show(w, http.StatusOK)
	})).Methods(http.MethodDelete)
}

func (s *Shell) CreateMovie(w http.ResponseWriter, r *http.Request) {
	var in models.MovieInput
	if err := readJSON(r, &in); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	n, err := s.Movies.Create(r.Context(), in)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeNotice(w, n, http.StatusCreated)
}

// EditMovie prefills the movie form from the backend's current record.
func (s *Shell) EditMovie(w http.ResponseWriter, r *http.Request) {
	in, err := s.Movies.Form(r.Context(), mux.Vars(r)["id"])
	s.writeForm(w, in, err, "Movie", "movies")
}

func (s *Shell) EditUser(w http.ResponseWriter, r *http.Request) {
	p, err := s.Users.Form(r.Context(), mux.Vars(r)["id"])
	s.writeForm(w, p, err, "User", "users")
}

func (s *Shell) EditReservation(w http.ResponseWriter, r *http.Request) {
	p, err := s.Reservations.Form(r.Context(), mux.Vars(r)["id"])
	s.writeForm(w, p, err, "Reservation", "reservations")
}

// writeForm answers an edit page. A record the backend does not know gets the
// not-found view pointing back at its list.
func (s *Shell) writeForm(w http.ResponseWriter, form any, err error, kind, list string) {
	if err != nil {
		if api.IsNotFound(err) {
			writeJSON(w, http.StatusNotFound, map[string]string{
				"error": kind + " not found",
				"home":  "/admin/" + list,
			})
			return
		}
		s.log.Printf("[ERROR]: %v", err)
		writeError(w, apiStatus(err), api.Message(err, "Failed to load "+strings.ToLower(kind)+"."))
		return
	}
	writeJSON(w, http.StatusOK, form)
}

func (s *Shell) UpdateMovie(w http.ResponseWriter, r *http.Request) {
	var in models.MovieInput
	if err := readJSON(r, &in); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	n, err := s.Movies.Update(r.Context(), mux.Vars(r)["id"], in)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeNotice(w, n, http.StatusOK)
}

func (s *Shell) UpdateUser(w http.ResponseWriter, r *http.Request) {
	var p models.UserPatch
	if err := readJSON(r, &p); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	n, err := s.Users.Update(r.Context(), mux.Vars(r)["id"], p)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeNotice(w, n, http.StatusOK)
}

func (s *Shell) UpdateReservation(w http.ResponseWriter, r *http.Request) {
	var p models.ReservationPatch
	if err := readJSON(r, &p); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	n, err := s.Reservations.Update(r.Context(), mux.Vars(r)["id"], p)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeNotice(w, n, http.StatusOK)
}

const maxUpload = 10 << 20

// UploadImage takes a multipart form with "file" and "folder" and returns
// the stored image URL for the movie form.
func (s *Shell) UploadImage(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUpload); err != nil {
		http.Error(w, "Invalid upload", http.StatusBadRequest)
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "Missing file", http.StatusBadRequest)
		return
	}
	defer file.Close()

	url, err := s.Movies.UploadImage(r.Context(), r.FormValue("folder"), header.Filename, file)
	if errors.Is(err, admin.ErrUnknownFolder) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		s.log.Printf("[ERROR]: upload %s: %v", header.Filename, err)
		writeError(w, apiStatus(err), api.Message(err, "Image upload failed."))
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"url": url})
}

// writeNotice answers a mutation with its status modal, failed ones included.
func writeNotice(w http.ResponseWriter, n admin.Notice, okStatus int) {
	status := okStatus
	if n.Kind == admin.NoticeError {
		status = http.StatusBadGateway
	}
	writeJSON(w, status, n)
}
