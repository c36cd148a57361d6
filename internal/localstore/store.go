// Package localstore persists each collection on the device under its own key
// as a serialized JSON document. Reads are resilient per key: a missing or
// corrupt value for one collection never blocks loading the others.
package localstore

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
)

const (
	// LastSyncKey holds the RFC 3339 time of the last successful sync. Display only.
	LastSyncKey = "lastSyncTimestamp"

	// OutboxKey holds the collections with local changes the backend has not acknowledged
	OutboxKey = "outbox"
)

// ErrClosed is returned by operations on a closed store
var ErrClosed = errors.New("local store closed")

// Store is key-indexed durable storage of raw collection documents
type Store interface {
	// LoadAll returns every stored key with its raw value
	LoadAll(ctx context.Context) (map[string]string, error)
	// Write stores one key
	Write(ctx context.Context, key, raw string) error
	// WriteSet stores several keys at once
	WriteSet(ctx context.Context, values map[string]string) error
	Close() error
}

// IsAbsent reports whether raw is one of the never-written sentinels
func IsAbsent(raw string) bool {
	switch strings.TrimSpace(raw) {
	case "", "null", "undefined":
		return true
	}
	return false
}

// Decode parses raw into a T. Absent values yield fallback with no error; a
// value that fails to parse yields fallback together with the parse error so
// the caller can log it.
func Decode[T any](raw string, fallback T) (T, error) {
	if IsAbsent(raw) {
		return fallback, nil
	}
	var out T
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return fallback, err
	}
	return out, nil
}

// Encode serializes v for storage
func Encode(v interface{}) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
