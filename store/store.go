// Package store provides durable storage for the bot's persisted documents.
// Each document is saved and loaded whole, keyed by name.
package store

import "errors"

// ErrNotFound is returned by Load when no document exists under the given name.
var ErrNotFound = errors.New("store: document not found")

type Store interface {
	Load(name string) ([]byte, error)
	Save(name string, data []byte) error
	Close() error
}
