// Package storage persists small client-side values such as the client id
// and the cached room list. Backends are key-value stores keyed by a dotted
// name, e.g. "factory-chatbot.clientId".
package storage

import (
	"context"
)

// Driver defines the interface for a key-value storage backend.
// Implementations must be safe for concurrent use.
type Driver interface {
	// Get returns the value stored under key, or NotFoundError.
	Get(ctx context.Context, key string) (string, error)

	// Set stores value under key, replacing any previous value.
	Set(ctx context.Context, key, value string) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close closes the store and releases any resources.
	Close() error
}
