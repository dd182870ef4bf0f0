// Package inmemory provides a map backed storage driver for tests and
// ephemeral sessions.
package inmemory

import (
	"context"
	"sync"

	"github.com/papercomputeco/factorychat/pkg/storage"
)

// Driver implements storage.Driver using an in-memory map.
type Driver struct {
	// mu is a read write sync mutex for locking the mapping of values
	mu sync.RWMutex

	values map[string]string
}

// NewDriver creates a new in-memory driver.
func NewDriver() *Driver {
	return &Driver{
		values: make(map[string]string),
	}
}

func (d *Driver) Get(_ context.Context, key string) (string, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	v, ok := d.values[key]
	if !ok {
		return "", storage.NotFoundError{Key: key}
	}
	return v, nil
}

func (d *Driver) Set(_ context.Context, key, value string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.values[key] = value
	return nil
}

func (d *Driver) Delete(_ context.Context, key string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	delete(d.values, key)
	return nil
}

// Close is a no-op for the in-memory driver.
func (d *Driver) Close() error {
	return nil
}
