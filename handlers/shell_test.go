package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cinease/admin"
	"cinease/api"
	"cinease/booking"
	"cinease/catalog"
	"cinease/config"
	"cinease/models"
	"cinease/session"
	"cinease/storage"
)

type harness struct {
	t       *testing.T
	backend *backend
	store   *storage.MemoryStore
	shell   *Shell
	router  http.Handler
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	be := newBackend()
	srv := httptest.NewServer(be.handler())
	t.Cleanup(srv.Close)

	quiet := log.New(io.Discard, "", 0)
	cfg, err := config.Load(nil, func(string) string { return "" })
	require.NoError(t, err)

	store := storage.NewMemoryStore()
	sess := session.New(store, quiet)
	client := api.New(srv.URL+"/api", api.WithTokens(sess), api.WithLogger(quiet))
	shell, err := NewShell(cfg, sess, client, quiet)
	require.NoError(t, err)
	return &harness{t: t, backend: be, store: store, shell: shell, router: NewRouter(shell)}
}

func (h *harness) do(method, path string, body any) *httptest.ResponseRecorder {
	h.t.Helper()
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(h.t, err)
		rd = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, rd)
	rec := httptest.NewRecorder()
	h.router.ServeHTTP(rec, req)
	return rec
}

func (h *harness) login(email string) {
	h.t.Helper()
	rec := h.do(http.MethodPost, "/auth/login", map[string]string{"email": email, "password": "secret"})
	require.Equal(h.t, http.StatusOK, rec.Code, rec.Body.String())
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

type homeBody struct {
	Genres []string `json:"genres"`
	Groups []struct {
		Genre  string         `json:"genre"`
		Movies []models.Movie `json:"movies"`
	} `json:"groups"`
	Featured struct {
		Count int `json:"count"`
	} `json:"featured"`
	Warning string `json:"warning"`
}

func titles(b homeBody) map[string]bool {
	out := map[string]bool{}
	for _, g := range b.Groups {
		for _, m := range g.Movies {
			out[m.Title] = true
		}
	}
	return out
}

func TestHomeMergesBackendWithFallback(t *testing.T) {
	h := newHarness(t)
	rec := h.do(http.MethodGet, "/", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	body := decode[homeBody](t, rec)
	assert.Equal(t, "All", body.Genres[0])
	assert.Empty(t, body.Warning)
	got := titles(body)
	assert.True(t, got["Arrival"])
	assert.True(t, got["Dune: Part Two"])
	assert.Equal(t, 3, body.Featured.Count)
}

func TestHomeShowsFallbackWhenBackendFails(t *testing.T) {
	h := newHarness(t)
	h.backend.with(func(b *backend) { b.moviesDown = true })

	rec := h.do(http.MethodGet, "/", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode[homeBody](t, rec)
	assert.NotEmpty(t, body.Warning)
	assert.False(t, titles(body)["Arrival"])
	assert.True(t, titles(body)["Oppenheimer"])
}

func TestFilterByGenre(t *testing.T) {
	h := newHarness(t)
	h.do(http.MethodGet, "/", nil)

	rec := h.do(http.MethodPost, "/catalog/filter", map[string]string{"genre": "Horror"})
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode[homeBody](t, rec)
	require.Len(t, body.Groups, 1)
	assert.Equal(t, "Horror", body.Groups[0].Genre)
	assert.Equal(t, "Longlegs", body.Groups[0].Movies[0].Title)
}

func TestRoleDispatch(t *testing.T) {
	h := newHarness(t)
	assert.Equal(t, http.StatusUnauthorized, h.do(http.MethodGet, "/admin", nil).Code)
	assert.Equal(t, http.StatusUnauthorized, h.do(http.MethodGet, "/dashboard", nil).Code)

	h.login("ann@example.com")
	assert.Equal(t, http.StatusForbidden, h.do(http.MethodGet, "/admin", nil).Code)

	h.login("admin@example.com")
	rec := h.do(http.MethodGet, "/", nil)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/admin", rec.Header().Get("Location"))

	rec = h.do(http.MethodGet, "/admin", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode[struct {
		Counts map[string]int `json:"counts"`
	}](t, rec)
	assert.Equal(t, map[string]int{"movies": 1, "users": 3, "reservations": 2}, body.Counts)
}

func TestLoginFailures(t *testing.T) {
	h := newHarness(t)

	rec := h.do(http.MethodPost, "/auth/login", map[string]string{"email": "", "password": ""})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = h.do(http.MethodPost, "/auth/login", map[string]string{"email": "ann@example.com", "password": "nope"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Invalid credentials", decode[map[string]string](t, rec)["error"])
	assert.False(t, h.shell.Session.LoggedIn())
}

func TestLogoutClearsEverything(t *testing.T) {
	h := newHarness(t)
	h.login("ann@example.com")
	tok, err := h.store.Get(context.Background(), storage.KeyToken)
	require.NoError(t, err)
	assert.Equal(t, "tok-u1", tok)

	rec := h.do(http.MethodPost, "/auth/logout", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	for _, k := range []string{storage.KeyToken, storage.KeyUser, storage.KeyLegacyBookings} {
		_, err := h.store.Get(context.Background(), k)
		assert.ErrorIs(t, err, storage.ErrNotFound, k)
	}
	state := decode[authView](t, h.do(http.MethodGet, "/auth", nil))
	assert.False(t, state.LoggedIn)
}

func openSchedule(t *testing.T, h *harness) booking.PickerState {
	t.Helper()
	h.do(http.MethodGet, "/", nil)
	require.Equal(t, http.StatusOK, h.do(http.MethodPost, "/movie/m1/open", nil).Code)
	require.Equal(t, http.StatusOK, h.do(http.MethodPost, "/flow/book-now", nil).Code)
	rec := h.do(http.MethodPost, "/flow/schedule", map[string]string{"showtime": "2025-07-01T19:00:00Z"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	return decode[booking.PickerState](t, rec)
}

func TestBookingJourney(t *testing.T) {
	h := newHarness(t)
	h.login("ann@example.com")

	st := openSchedule(t, h)
	assert.True(t, st.Open)
	assert.Equal(t, "Arrival", st.MovieTitle)
	assert.Equal(t, 200, st.UnitPrice)
	assert.Equal(t, booking.FlowState{Step: booking.Closed}, h.shell.Flow.State())

	rec := h.do(http.MethodPost, "/seats/toggle", map[string]string{"seat": "A1"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	h.do(http.MethodPost, "/seats/toggle", map[string]string{"seat": "a2"})
	rec = h.do(http.MethodPost, "/seats/toggle", map[string]string{"seat": "A3"})
	st = decode[booking.PickerState](t, rec)
	assert.Equal(t, []string{"A2", "A3"}, st.Selected)
	assert.Equal(t, 400, st.Total)

	rec = h.do(http.MethodPost, "/seats/toggle", map[string]string{"seat": "Z9"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = h.do(http.MethodPost, "/seats/confirm", nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	body := decode[struct {
		Seats []string `json:"seats"`
	}](t, rec)
	assert.Equal(t, []string{"A2", "A3"}, body.Seats)

	var sent []models.BookingRequest
	h.backend.with(func(b *backend) { sent = b.requests })
	require.Len(t, sent, 1)
	assert.Equal(t, models.BookingRequest{
		MovieTitle: "Arrival",
		Showtime:   "2025-07-01T19:00:00Z",
		Seats:      []string{"A2", "A3"},
		TotalPrice: 400,
	}, sent[0])
	assert.False(t, h.shell.Picker.State().Open)
}

func TestConfirmWithoutSeatsSendsNothing(t *testing.T) {
	h := newHarness(t)
	h.login("ann@example.com")
	openSchedule(t, h)

	rec := h.do(http.MethodPost, "/seats/confirm", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Please select at least one seat.", decode[map[string]string](t, rec)["error"])
	h.backend.with(func(b *backend) { assert.Empty(t, b.requests) })
	assert.False(t, h.shell.Picker.Loading())
}

func TestExpiredTokenAsksForLogin(t *testing.T) {
	h := newHarness(t)
	h.login("ann@example.com")
	openSchedule(t, h)
	h.do(http.MethodPost, "/seats/toggle", map[string]string{"seat": "B4"})
	h.backend.with(func(b *backend) { b.rejectToken = true })

	rec := h.do(http.MethodPost, "/seats/confirm", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Please log in to book tickets.", decode[map[string]string](t, rec)["error"])
	assert.False(t, h.shell.Picker.Loading())
	assert.Equal(t, []string{"B4"}, h.shell.Picker.Selected())
}

func TestAdminCannotBook(t *testing.T) {
	h := newHarness(t)
	h.login("admin@example.com")
	require.NoError(t, h.shell.Catalog.Load(context.Background()))
	require.Equal(t, http.StatusOK, h.do(http.MethodPost, "/movie/m1/open", nil).Code)

	rec := h.do(http.MethodPost, "/flow/book-now", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, booking.Details, h.shell.Flow.State().Step)
}

func TestMoviePage(t *testing.T) {
	h := newHarness(t)
	h.do(http.MethodGet, "/", nil)

	rec := h.do(http.MethodGet, "/movie/m1", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = h.do(http.MethodGet, "/movie/nope", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "/", decode[map[string]string](t, rec)["home"])
}

func TestDashboardCancellation(t *testing.T) {
	h := newHarness(t)
	h.login("ann@example.com")

	rec := h.do(http.MethodGet, "/dashboard", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[dashboardView](t, rec).Bookings, 2)

	rec = h.do(http.MethodPost, "/dashboard/bookings/b1/cancel", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "b1", decode[dashboardView](t, rec).Pending)
	h.backend.with(func(b *backend) { assert.Empty(t, b.cancelled, "nothing is cancelled before confirmation") })

	rec = h.do(http.MethodPost, "/dashboard/cancel", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode[struct {
		Bookings []models.Booking `json:"bookings"`
	}](t, rec)
	require.Len(t, body.Bookings, 1)
	assert.Equal(t, "b2", body.Bookings[0].ID)
	h.backend.with(func(b *backend) { assert.Equal(t, []string{"b1"}, b.cancelled) })

	assert.Equal(t, http.StatusNotFound, h.do(http.MethodPost, "/dashboard/bookings/zz/cancel", nil).Code)
	assert.Equal(t, http.StatusConflict, h.do(http.MethodPost, "/dashboard/cancel", nil).Code)
}

func TestAdminBulkDeleteNeedsConfirmation(t *testing.T) {
	h := newHarness(t)
	h.login("admin@example.com")

	rec := h.do(http.MethodGet, "/admin/users", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	view := decode[screenView[models.User]](t, rec)
	assert.Len(t, view.Rows, 3)
	assert.False(t, view.CanDelete)

	h.do(http.MethodPost, "/admin/users/select", map[string]int{"row": 0})
	rec = h.do(http.MethodPost, "/admin/users/select", map[string]int{"row": 1})
	view = decode[screenView[models.User]](t, rec)
	assert.Equal(t, []int{0, 1}, view.Selected)
	assert.False(t, view.CanEdit)
	assert.True(t, view.CanDelete)

	rec = h.do(http.MethodPost, "/admin/users/delete", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"u1", "u2"}, decode[screenView[models.User]](t, rec).PendingDelete)
	h.backend.with(func(b *backend) { assert.Empty(t, b.userDeletes) })

	rec = h.do(http.MethodPost, "/admin/users/delete/confirm", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	view = decode[screenView[models.User]](t, rec)
	h.backend.with(func(b *backend) { assert.ElementsMatch(t, []string{"u1", "u2"}, b.userDeletes) })
	assert.Equal(t, &admin.Notice{Kind: admin.NoticeSuccess, Message: "2 users deleted successfully."}, view.Notice)
	assert.Len(t, view.Rows, 1)
	assert.Empty(t, view.Selected)
}

func TestAdminSearchResetsSelection(t *testing.T) {
	h := newHarness(t)
	h.login("admin@example.com")
	h.do(http.MethodGet, "/admin/users", nil)
	h.do(http.MethodPost, "/admin/users/select", map[string]int{"row": 2})

	rec := h.do(http.MethodPost, "/admin/users/query", map[string]string{"query": "EXAMPLE.COM"})
	view := decode[screenView[models.User]](t, rec)
	assert.Empty(t, view.Selected)
	assert.Len(t, view.Rows, 3)

	rec = h.do(http.MethodPost, "/admin/users/query", map[string]string{"query": "bob"})
	view = decode[screenView[models.User]](t, rec)
	require.Len(t, view.Rows, 1)
	assert.Equal(t, "u2", view.Rows[0].ID)
}

func TestCreateMovieValidatesFirst(t *testing.T) {
	h := newHarness(t)
	h.login("admin@example.com")

	rec := h.do(http.MethodPost, "/admin/movies", models.MovieInput{Title: "No price", Genre: "Drama", Duration: 90})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decode[map[string]string](t, rec)["error"], "price")
}

func TestReloadKeepsFeaturedMove(t *testing.T) {
	h := newHarness(t)
	require.Equal(t, http.StatusOK, h.do(http.MethodGet, "/", nil).Code)

	rec := h.do(http.MethodPost, "/featured/goto", map[string]int{"index": 1})
	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, decode[catalog.RotationState](t, rec).Transitioning)

	require.Equal(t, http.StatusOK, h.do(http.MethodGet, "/", nil).Code)
	require.Eventually(t, func() bool {
		st := h.shell.Catalog.Rotation().State()
		return !st.Transitioning && st.Index == 1
	}, 2*time.Second, 10*time.Millisecond)
}

func TestScheduleChoiceSurvivesBusyPicker(t *testing.T) {
	h := newHarness(t)
	h.login("ann@example.com")
	openSchedule(t, h)
	h.do(http.MethodPost, "/seats/toggle", map[string]string{"seat": "C1"})

	hold := make(chan struct{})
	release := sync.OnceFunc(func() { close(hold) })
	t.Cleanup(release)
	h.backend.with(func(b *backend) { b.hold = hold })
	done := make(chan int)
	go func() {
		rec := httptest.NewRecorder()
		h.router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/seats/confirm", nil))
		done <- rec.Code
	}()
	require.Eventually(t, h.shell.Picker.Loading, time.Second, 5*time.Millisecond)

	require.Equal(t, http.StatusOK, h.do(http.MethodPost, "/movie/m1/open", nil).Code)
	require.Equal(t, http.StatusOK, h.do(http.MethodPost, "/flow/book-now", nil).Code)
	rec := h.do(http.MethodPost, "/flow/schedule", map[string]string{"showtime": "2025-07-01T19:00:00Z"})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, booking.Schedule, h.shell.Flow.State().Step)

	release()
	assert.Equal(t, http.StatusCreated, <-done)

	rec = h.do(http.MethodPost, "/flow/schedule", map[string]string{"showtime": "2025-07-01T19:00:00Z"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.True(t, decode[booking.PickerState](t, rec).Open)
}

func TestAdminEditForms(t *testing.T) {
	h := newHarness(t)
	h.login("admin@example.com")

	rec := h.do(http.MethodGet, "/admin/users/u2", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	user := decode[models.UserPatch](t, rec)
	require.NotNil(t, user.Name)
	require.NotNil(t, user.Role)
	assert.Equal(t, "Bob", *user.Name)
	assert.Equal(t, models.RoleUser, *user.Role)

	rec = h.do(http.MethodGet, "/admin/users/u9", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, map[string]string{"error": "User not found", "home": "/admin/users"}, decode[map[string]string](t, rec))

	rec = h.do(http.MethodGet, "/admin/reservations/b2", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	res := decode[models.ReservationPatch](t, rec)
	require.NotNil(t, res.Status)
	assert.Equal(t, models.BookingConfirmed, *res.Status)
	assert.Equal(t, []string{"B2"}, res.Seats)

	rec = h.do(http.MethodGet, "/admin/reservations/zz", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "/admin/reservations", decode[map[string]string](t, rec)["home"])

	// the screen's edit action is not mistaken for a record id
	h.do(http.MethodGet, "/admin/users", nil)
	assert.Equal(t, http.StatusConflict, h.do(http.MethodGet, "/admin/users/edit", nil).Code)
	h.do(http.MethodPost, "/admin/users/select", map[string]int{"row": 1})
	rec = h.do(http.MethodGet, "/admin/users/edit", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "u2", decode[models.User](t, rec).ID)
}

func TestEditFormsAreAdminOnly(t *testing.T) {
	h := newHarness(t)
	h.login("ann@example.com")

	assert.Equal(t, http.StatusForbidden, h.do(http.MethodGet, "/admin/users/u1", nil).Code)
	assert.Equal(t, http.StatusForbidden, h.do(http.MethodGet, "/admin/reservations/b1", nil).Code)
}
