// Package store defines the opaque key-value boundary the core engine runs
// against. Values are JSON documents; the store never interprets them. Every
// read-modify-write the engine performs goes through Update, which is an
// atomic conditional write (optimistic CAS), never a bare read-then-set pair.
package store

import (
	"context"
	"errors"
)

var (
	// ErrNotFound is returned by Get when the key is absent.
	ErrNotFound = errors.New("store: key not found")
	// ErrConflict is returned by Update when the optimistic retry budget is
	// exhausted by concurrent writers.
	ErrConflict = errors.New("store: concurrent modification")
)

// updateRetries bounds the optimistic CAS loop in every backend.
const updateRetries = 5

// UpdateFunc computes the replacement value for a key. old is nil when the
// key is absent. Returning (nil, nil) skips the write and leaves the key
// untouched; returning an error aborts the update and surfaces the error.
type UpdateFunc func(old []byte) ([]byte, error)

// Store is the minimal persistence contract. Implementations must make
// CreateIfAbsent and Update atomic with respect to concurrent callers on the
// same key; no cross-key transactions are assumed.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	// ScanByPrefix returns every key/value pair whose key starts with prefix.
	ScanByPrefix(ctx context.Context, prefix string) (map[string][]byte, error)
	// CreateIfAbsent writes the value only when the key does not exist and
	// reports whether the write happened.
	CreateIfAbsent(ctx context.Context, key string, value []byte) (bool, error)
	// Update atomically applies fn to the current value and returns the value
	// left in the store (the new value, or the old one when fn skipped).
	Update(ctx context.Context, key string, fn UpdateFunc) ([]byte, error)
}
