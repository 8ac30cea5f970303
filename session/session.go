// Package session owns the authenticated user. Login, registration and
// logout are the only writers; they update local storage and memory together.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v4"

	"cinease/models"
	"cinease/storage"
)

var (
	ErrMissingCredentials = errors.New("email and password are required")
	ErrMissingName        = errors.New("name is required")
	ErrInvalidEmail       = errors.New("email address is not valid")
)

// Authenticator is the slice of the API client the session needs.
type Authenticator interface {
	Login(ctx context.Context, email, password string) (models.AuthResponse, error)
	Register(ctx context.Context, creds models.Credentials) (models.AuthResponse, error)
}

type Session struct {
	mu    sync.RWMutex
	store storage.Store
	log   *log.Logger
	now   func() time.Time

	token string
	user  *models.User
}

func New(store storage.Store, logger *log.Logger) *Session {
	if logger == nil {
		logger = log.Default()
	}
	return &Session{store: store, log: logger, now: time.Now}
}

// Load reads the persisted token and user once. An expired token or a user
// record that no longer decodes clears everything.
func (s *Session) Load(ctx context.Context) error {
	tok, err := s.store.Get(ctx, storage.KeyToken)
	if errors.Is(err, storage.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("load token: %w", err)
	}
	raw, err := s.store.Get(ctx, storage.KeyUser)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("load user: %w", err)
	}

	var u models.User
	if raw == "" || json.Unmarshal([]byte(raw), &u) != nil {
		s.log.Printf("[SYSTEM]: stored user unreadable, clearing session")
		return s.Logout(ctx)
	}
	if exp, ok := tokenExpiry(tok); ok && !exp.After(s.now()) {
		s.log.Printf("[SYSTEM]: stored token expired at %s, clearing session", exp.Format(time.RFC3339))
		return s.Logout(ctx)
	}

	s.mu.Lock()
	s.token, s.user = tok, &u
	s.mu.Unlock()
	return nil
}

// Token implements api.TokenSource.
func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// User returns a copy of the signed in user, or nil.
func (s *Session) User() *models.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return nil
	}
	u := *s.user
	return &u
}

func (s *Session) LoggedIn() bool {
	return s.User() != nil
}

func (s *Session) IsAdmin() bool {
	return s.User().IsAdmin()
}

func (s *Session) Login(ctx context.Context, auth Authenticator, email, password string) (models.User, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return models.User{}, ErrMissingCredentials
	}
	res, err := auth.Login(ctx, email, password)
	if err != nil {
		return models.User{}, err
	}
	return res.User, s.establish(ctx, res)
}

func (s *Session) Register(ctx context.Context, auth Authenticator, creds models.Credentials) (models.User, error) {
	creds.Name = strings.TrimSpace(creds.Name)
	creds.Email = strings.TrimSpace(creds.Email)
	if creds.Name == "" {
		return models.User{}, ErrMissingName
	}
	if creds.Email == "" || creds.Password == "" {
		return models.User{}, ErrMissingCredentials
	}
	if !strings.Contains(creds.Email, "@") {
		return models.User{}, ErrInvalidEmail
	}
	res, err := auth.Register(ctx, creds)
	if err != nil {
		return models.User{}, err
	}
	return res.User, s.establish(ctx, res)
}

// Logout removes the token, the user and the legacy bookings key in one
// storage operation. Memory is cleared even when storage fails.
func (s *Session) Logout(ctx context.Context) error {
	err := s.store.Delete(ctx, storage.KeyToken, storage.KeyUser, storage.KeyLegacyBookings)
	s.mu.Lock()
	s.token, s.user = "", nil
	s.mu.Unlock()
	if err != nil {
		s.log.Printf("[ERROR]: clearing stored session: %v", err)
		return fmt.Errorf("logout: %w", err)
	}
	return nil
}

func (s *Session) establish(ctx context.Context, res models.AuthResponse) error {
	if res.Token == "" {
		return errors.New("server returned no token")
	}
	b, err := json.Marshal(res.User)
	if err != nil {
		return err
	}
	if err := s.store.Set(ctx, map[string]string{storage.KeyToken: res.Token, storage.KeyUser: string(b)}); err != nil {
		return fmt.Errorf("persist session: %w", err)
	}
	u := res.User
	s.mu.Lock()
	s.token, s.user = res.Token, &u
	s.mu.Unlock()
	s.log.Printf("[SYSTEM]: signed in as %s (%s)", u.Email, u.Role)
	return nil
}

// tokenExpiry reads the exp claim without verifying the signature; the
// client has no key and the backend verifies anyway. Opaque tokens report
// no expiry.
func tokenExpiry(tok string) (time.Time, bool) {
	claims := &jwt.RegisteredClaims{}
	if _, _, err := new(jwt.Parser).ParseUnverified(tok, claims); err != nil {
		return time.Time{}, false
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, false
	}
	return claims.ExpiresAt.Time, true
}
