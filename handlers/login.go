package handlers

import (
	"errors"
	"net/http"

	"cinease/api"
	"cinease/models"
	"cinease/session"
)

type authView struct {
	LoggedIn bool         `json:"loggedIn"`
	User     *models.User `json:"user"`
	Redirect string       `json:"redirect,omitempty"`
}

// home is where each role lands after signing in.
func home(u *models.User) string {
	if u.IsAdmin() {
		return "/admin"
	}
	return "/"
}

func (s *Shell) AuthState(w http.ResponseWriter, r *http.Request) {
	u := s.Session.User()
	v := authView{LoggedIn: u != nil, User: u}
	if u != nil {
		v.Redirect = home(u)
	}
	writeJSON(w, http.StatusOK, v)
}

func (s *Shell) Login(w http.ResponseWriter, r *http.Request) {
	var credentials struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := readJSON(r, &credentials); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	u, err := s.Session.Login(r.Context(), s.API, credentials.Email, credentials.Password)
	if err != nil {
		s.authFailed(w, err, "Login failed. Please try again.")
		return
	}
	writeJSON(w, http.StatusOK, authView{LoggedIn: true, User: &u, Redirect: home(&u)})
}

func (s *Shell) Register(w http.ResponseWriter, r *http.Request) {
	var creds models.Credentials
	if err := readJSON(r, &creds); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	u, err := s.Session.Register(r.Context(), s.API, creds)
	if err != nil {
		s.authFailed(w, err, "Registration failed. Please try again.")
		return
	}
	writeJSON(w, http.StatusCreated, authView{LoggedIn: true, User: &u, Redirect: home(&u)})
}

func (s *Shell) authFailed(w http.ResponseWriter, err error, fallback string) {
	switch {
	case errors.Is(err, session.ErrMissingCredentials), errors.Is(err, session.ErrMissingName), errors.Is(err, session.ErrInvalidEmail):
		writeError(w, http.StatusBadRequest, err.Error())
	case api.IsUnauthorized(err):
		writeError(w, http.StatusUnauthorized, api.Message(err, "Invalid email or password."))
	default:
		s.log.Printf("[ERROR]: authentication: %v", err)
		writeError(w, apiStatus(err), api.Message(err, fallback))
	}
}

// Logout ends the session and drops whatever booking was in progress.
func (s *Shell) Logout(w http.ResponseWriter, r *http.Request) {
	err := s.Session.Logout(r.Context())
	s.Flow.Close()
	s.Picker.Cancel()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Signed out, but the saved session could not be cleared.")
		return
	}
	writeJSON(w, http.StatusOK, authView{Redirect: "/auth"})
}

// Authenticate lets only a signed-in user through.
func (s *Shell) Authenticate(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !s.Session.LoggedIn() {
			http.Error(w, "Unauthorized: please log in", http.StatusUnauthorized)
			return
		}
		next(w, r)
	}
}

// AdminOnly gates the management screens on the admin role.
func (s *Shell) AdminOnly(next http.HandlerFunc) http.HandlerFunc {
	return s.Authenticate(func(w http.ResponseWriter, r *http.Request) {
		if !s.Session.IsAdmin() {
			http.Error(w, "Forbidden: Admins only", http.StatusForbidden)
			return
		}
		next(w, r)
	})
}

// apiStatus maps a backend failure onto the status this surface answers with.
func apiStatus(err error) int {
	var e *api.Error
	if !errors.As(err, &e) {
		return http.StatusBadGateway
	}
	switch e.Status {
	case http.StatusUnauthorized, http.StatusForbidden, http.StatusNotFound, http.StatusConflict, http.StatusBadRequest:
		return e.Status
	}
	return http.StatusBadGateway
}
