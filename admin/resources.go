package admin

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"

	"cinease/catalog"
	"cinease/models"
)

var ErrUnknownFolder = errors.New("unknown image folder")

type MoviesAPI interface {
	AdminMovies(ctx context.Context) ([]models.RawMovie, error)
	AdminMovie(ctx context.Context, id string) (models.RawMovie, error)
	CreateMovie(ctx context.Context, in models.MovieInput) error
	UpdateMovie(ctx context.Context, id string, in models.MovieInput) error
	DeleteMovie(ctx context.Context, id string) error
	Upload(ctx context.Context, folder, filename string, r io.Reader) (string, error)
}

type UsersAPI interface {
	AdminUsers(ctx context.Context) ([]models.User, error)
	AdminUser(ctx context.Context, id string) (models.User, error)
	UpdateUser(ctx context.Context, id string, p models.UserPatch) error
	DeleteUser(ctx context.Context, id string) error
}

type ReservationsAPI interface {
	AdminReservations(ctx context.Context) ([]models.Booking, error)
	AdminReservation(ctx context.Context, id string) (models.Booking, error)
	UpdateReservation(ctx context.Context, id string, p models.ReservationPatch) error
	DeleteReservation(ctx context.Context, id string) error
}

// MovieResource lists every movie the backend has. Records missing a price
// are still listed so an admin can fix them.
func MovieResource(a MoviesAPI, logger *log.Logger) Resource[models.Movie] {
	return Resource[models.Movie]{
		Singular: "movie",
		Plural:   "movies",
		List: func(ctx context.Context) ([]models.Movie, error) {
			raw, err := a.AdminMovies(ctx)
			if err != nil {
				return nil, err
			}
			out := make([]models.Movie, 0, len(raw))
			for _, r := range raw {
				m, err := catalog.Normalize(r)
				if errors.Is(err, catalog.ErrNoTitle) {
					logger.Printf("[ERROR]: admin movie list: %v", err)
					continue
				}
				out = append(out, m)
			}
			return out, nil
		},
		Delete: a.DeleteMovie,
		ID:     func(m models.Movie) string { return m.ID },
		Search: func(m models.Movie) []string { return []string{m.Title, strings.Join(m.Genres, ", ")} },
	}
}

func UserResource(a UsersAPI) Resource[models.User] {
	return Resource[models.User]{
		Singular: "user",
		Plural:   "users",
		List:     a.AdminUsers,
		Delete:   a.DeleteUser,
		ID:       func(u models.User) string { return u.ID },
		Search:   func(u models.User) []string { return []string{u.Name, u.Email, u.Role} },
	}
}

func ReservationResource(a ReservationsAPI) Resource[models.Booking] {
	return Resource[models.Booking]{
		Singular: "reservation",
		Plural:   "reservations",
		List:     a.AdminReservations,
		Delete:   a.DeleteReservation,
		ID:       func(b models.Booking) string { return b.ID },
		Search: func(b models.Booking) []string {
			fields := []string{b.MovieTitle, b.Status}
			if b.User != nil {
				fields = append(fields, b.User.Name, b.User.Email)
			}
			return fields
		},
	}
}

// ValidateMovie checks an admin movie form before anything is sent.
func ValidateMovie(in models.MovieInput) error {
	var problems []string
	if strings.TrimSpace(in.Title) == "" {
		problems = append(problems, "title is required")
	}
	if strings.TrimSpace(in.Genre) == "" {
		problems = append(problems, "genre is required")
	}
	if in.Duration <= 0 {
		problems = append(problems, "duration must be greater than zero")
	}
	if in.Price <= 0 {
		problems = append(problems, "price must be greater than zero")
	}
	for _, st := range in.Showtimes {
		if _, err := catalog.ParseShowtime(st); err != nil {
			problems = append(problems, err.Error())
		}
	}
	if len(problems) > 0 {
		return fmt.Errorf("invalid movie: %s", strings.Join(problems, "; "))
	}
	return nil
}

// MovieForm prefills the edit form from a listed movie.
func MovieForm(m models.Movie) models.MovieInput {
	in := models.MovieInput{
		Title:       m.Title,
		Genre:       strings.Join(m.Genres, ", "),
		Duration:    m.Runtime,
		Rating:      m.Rating,
		Price:       m.Price,
		Featured:    m.Featured,
		Description: m.Description,
		Poster:      m.Poster,
		Banner:      m.Banner,
	}
	for _, st := range m.Showtimes {
		in.Showtimes = append(in.Showtimes, st.String())
	}
	return in
}

// Movies bundles the movie list with the form actions that feed it.
type Movies struct {
	*Screen[models.Movie]
	api MoviesAPI
}

func NewMovies(a MoviesAPI, pageSize int, logger *log.Logger) *Movies {
	if logger == nil {
		logger = log.Default()
	}
	return &Movies{Screen: NewScreen(MovieResource(a, logger), pageSize, logger), api: a}
}

// Form fetches one movie fresh from the backend and prefills the edit form.
func (m *Movies) Form(ctx context.Context, id string) (models.MovieInput, error) {
	raw, err := m.api.AdminMovie(ctx, id)
	if err != nil {
		return models.MovieInput{}, err
	}
	mv, err := catalog.Normalize(raw)
	if errors.Is(err, catalog.ErrNoTitle) {
		return models.MovieInput{}, fmt.Errorf("movie %s: %w", id, err)
	}
	return MovieForm(mv), nil
}

// Create validates and creates a movie. Validation failures never reach the
// backend and return an error instead of a notice.
func (m *Movies) Create(ctx context.Context, in models.MovieInput) (Notice, error) {
	if err := ValidateMovie(in); err != nil {
		return Notice{}, err
	}
	return m.Mutate(ctx, "Movie added successfully.", "Failed to add movie.", func(ctx context.Context) error {
		return m.api.CreateMovie(ctx, in)
	}), nil
}

func (m *Movies) Update(ctx context.Context, id string, in models.MovieInput) (Notice, error) {
	if err := ValidateMovie(in); err != nil {
		return Notice{}, err
	}
	return m.Mutate(ctx, "Movie updated successfully.", "Failed to update movie.", func(ctx context.Context) error {
		return m.api.UpdateMovie(ctx, id, in)
	}), nil
}

// UploadImage stores a poster or banner and returns its URL for the form.
func (m *Movies) UploadImage(ctx context.Context, folder, filename string, r io.Reader) (string, error) {
	if folder != "posters" && folder != "banners" {
		return "", fmt.Errorf("%w %q", ErrUnknownFolder, folder)
	}
	return m.api.Upload(ctx, folder, filename, r)
}

type Users struct {
	*Screen[models.User]
	api UsersAPI
}

func NewUsers(a UsersAPI, pageSize int, logger *log.Logger) *Users {
	return &Users{Screen: NewScreen(UserResource(a), pageSize, logger), api: a}
}

// Form loads one user as the patch its edit form starts from.
func (u *Users) Form(ctx context.Context, id string) (models.UserPatch, error) {
	usr, err := u.api.AdminUser(ctx, id)
	if err != nil {
		return models.UserPatch{}, err
	}
	return models.UserPatch{Name: &usr.Name, Email: &usr.Email, Role: &usr.Role}, nil
}

func (u *Users) Update(ctx context.Context, id string, p models.UserPatch) (Notice, error) {
	if p.Role != nil && *p.Role != models.RoleAdmin && *p.Role != models.RoleUser {
		return Notice{}, fmt.Errorf("unknown role %q", *p.Role)
	}
	if p.Email != nil && !strings.Contains(*p.Email, "@") {
		return Notice{}, fmt.Errorf("email address is not valid")
	}
	return u.Mutate(ctx, "User updated successfully.", "Failed to update user.", func(ctx context.Context) error {
		return u.api.UpdateUser(ctx, id, p)
	}), nil
}

type Reservations struct {
	*Screen[models.Booking]
	api ReservationsAPI
}

func NewReservations(a ReservationsAPI, pageSize int, logger *log.Logger) *Reservations {
	return &Reservations{Screen: NewScreen(ReservationResource(a), pageSize, logger), api: a}
}

// Form loads one reservation as the patch its edit form starts from.
func (r *Reservations) Form(ctx context.Context, id string) (models.ReservationPatch, error) {
	b, err := r.api.AdminReservation(ctx, id)
	if err != nil {
		return models.ReservationPatch{}, err
	}
	return models.ReservationPatch{Status: &b.Status, Seats: b.Seats, Showtime: &b.Showtime}, nil
}

func (r *Reservations) Update(ctx context.Context, id string, p models.ReservationPatch) (Notice, error) {
	if p.Status != nil && *p.Status != models.BookingConfirmed && *p.Status != models.BookingCancelled {
		return Notice{}, fmt.Errorf("unknown status %q", *p.Status)
	}
	return r.Mutate(ctx, "Reservation updated successfully.", "Failed to update reservation.", func(ctx context.Context) error {
		return r.api.UpdateReservation(ctx, id, p)
	}), nil
}
