// Package prefs provides named, flat string key-value preference sets.
//
// Each Store is bound to one preference set (for example "stories"). A
// PutString is all-or-nothing: readers observe either the previous value or
// the new one, never a partial write.
package prefs

import (
	"context"
	"fmt"
	"sync"
)

// Store is a named set of string preferences.
type Store interface {
	// GetString returns the stored value and whether the key was present.
	GetString(ctx context.Context, key string) (string, bool, error)
	PutString(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
	Close() error
}

type Backend string

const (
	BackendSQLite Backend = "sqlite"
	BackendFile   Backend = "file"
	BackendMemory Backend = "memory"
)

// Open opens the preference set name using the given backend. path is a
// directory for both the sqlite and file backends and is ignored for memory.
func Open(backend Backend, path, name string) (Store, error) {
	switch backend {
	case BackendSQLite:
		return OpenSQLite(path, name)
	case BackendFile:
		return OpenFile(path, name)
	case BackendMemory:
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("unsupported preference backend: %s", backend)
	}
}

// Memory is an in-process Store. Handy for tests and throwaway sessions.
type Memory struct {
	mu     sync.RWMutex
	values map[string]string
}

func NewMemory() *Memory {
	return &Memory{values: make(map[string]string)}
}

func (m *Memory) GetString(_ context.Context, key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.values[key]
	return v, ok, nil
}

func (m *Memory) PutString(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	return nil
}

func (m *Memory) Remove(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, key)
	return nil
}

func (m *Memory) Close() error { return nil }
