// Package endpoint persists the DevTools address of the shared browser.
//
// The broker is the only writer: it publishes the address once after the
// browser has started and removes it at shutdown. Render clients only read
// it. There is no locking; the record is write-once, read-many.
//
// Two backends are provided:
//   - file: the record is the full contents of a plain UTF-8 file (default)
//   - redis: the record is a string key, selected by a redis:// location
//
// # Usage
//
//	store, err := endpoint.Open("/tmp/build/browser.ws")
//	if err != nil {
//	    return err
//	}
//	defer store.Close()
//
//	addr, err := store.Lookup(ctx)
//	if errors.Is(err, endpoint.ErrNotFound) {
//	    // no shared browser
//	}
package endpoint

import (
	"context"
	"errors"
	"strings"
)

// Sentinel errors for endpoint lookups.
var (
	// ErrNotFound is returned when no endpoint record exists.
	ErrNotFound = errors.New("endpoint not found")

	// ErrEmpty is returned when the record exists but holds only whitespace.
	ErrEmpty = errors.New("endpoint record is empty")
)

// Store reads and writes the endpoint record.
type Store interface {
	// Publish durably writes addr as the complete record.
	Publish(ctx context.Context, addr string) error

	// Lookup returns the address with surrounding whitespace removed.
	// It returns ErrNotFound or ErrEmpty when there is nothing usable.
	Lookup(ctx context.Context) (string, error)

	// Remove deletes the record. Removing an absent record is not an error.
	Remove(ctx context.Context) error

	// Location describes where the record lives, for logs.
	Location() string

	Close() error
}

// Open returns the store for location. A redis:// or rediss:// URL selects
// the Redis backend; anything else is treated as a file path.
func Open(location string) (Store, error) {
	if strings.HasPrefix(location, "redis://") || strings.HasPrefix(location, "rediss://") {
		return NewRedisStore(location)
	}
	return NewFileStore(location)
}
