// Package kvstore contains key-value stores used to persist client state,
// such as the session token, across runs.
package kvstore

import "errors"

// ErrNoSuchKey indicates that there's no value for the given key.
var ErrNoSuchKey = errors.New("no such key")

// KeyValueStore is a simple persistent key-value store.
type KeyValueStore interface {
	// Get returns the value for key. In case of a missing key, the
	// error is such that errors.Is(err, ErrNoSuchKey).
	Get(key string) ([]byte, error)

	// Set sets the value of key.
	Set(key string, value []byte) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(key string) error
}
