// Package store provides the byte-level backends a weave library keeps
// its files in, plus WeaveFile, which ties a weave to one entry in a
// store and persists it after every mutation.
package store

import "errors"

// ErrNotFound is returned when a store has no entry under the requested key.
var ErrNotFound = errors.New("store: key not found")

// Store is a flat keyspace of byte blobs.
//
// Keys are file-name-like strings. PutBytes replaces the previous value
// atomically: a reader never observes a partially written entry.
type Store interface {
	// GetBytes returns the value stored under key, or ErrNotFound.
	GetBytes(key string) ([]byte, error)

	// PutBytes stores value under key, replacing any previous value.
	PutBytes(key string, value []byte) error

	// Exists reports whether key has a value.
	Exists(key string) (bool, error)
}
