// Package store is railid's local persistence: a string key-value store and
// the ticket collection kept as one serialized list under a single key.
package store

import (
	"errors"
	"sync"
)

var (
	// ErrKeyNotFound is returned by KV.Get for a key that was never set.
	ErrKeyNotFound = errors.New("store: key not found")
	// ErrCorrupt is returned when a stored value cannot be decoded.
	ErrCorrupt = errors.New("store: corrupt data")
)

// KV is the device-local key-value store.
type KV interface {
	Get(key string) (string, error)
	Set(key, value string) error
}

// MemoryKV keeps values in a map. It is safe for concurrent use.
type MemoryKV struct {
	mu   sync.RWMutex
	data map[string]string
}

// NewMemoryKV function
func NewMemoryKV() *MemoryKV {
	return &MemoryKV{data: make(map[string]string)}
}

// Get function
func (m *MemoryKV) Get(key string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	v, ok := m.data[key]
	if !ok {
		return "", ErrKeyNotFound
	}
	return v, nil
}

// Set function
func (m *MemoryKV) Set(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.data[key] = value
	return nil
}
