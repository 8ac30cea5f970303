// Package storage is the client's local key-value persistence: the place the
// session token, the serialized user and legacy keys live between runs.
// Writes are last-writer-wins; readers load once and keep their own copy.
package storage

import (
	"context"
	"errors"
)

// Keys used by the client.
const (
	KeyToken = "token"
	KeyUser  = "user"
	// KeyLegacyBookings held locally cached bookings in older releases. It is
	// never read, only cleared on logout.
	KeyLegacyBookings = "bookings"
)

var ErrNotFound = errors.New("storage: key not found")

type Store interface {
	Get(ctx context.Context, key string) (string, error)
	// Set writes every pair in one operation.
	Set(ctx context.Context, values map[string]string) error
	// Delete removes every key in one operation. Missing keys are not an error.
	Delete(ctx context.Context, keys ...string) error
}
