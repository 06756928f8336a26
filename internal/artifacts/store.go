// Package artifacts keeps generated credential documents until they are
// downloaded.
package artifacts

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"time"
)

var ErrNotFound = errors.New("artifact not found")

type Object struct {
	Key         string
	Filename    string
	ContentType string
	Data        []byte
	CreatedAt   time.Time
}

type Store interface {
	Put(ctx context.Context, obj Object) error
	Get(ctx context.Context, key string) (*Object, error)
	Delete(ctx context.Context, key string) error
}

// MemoryStore keeps objects in a map guarded by an RWMutex.
type MemoryStore struct {
	mu      sync.RWMutex
	objects map[string]Object
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{objects: make(map[string]Object)}
}

func (m *MemoryStore) Put(ctx context.Context, obj Object) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if obj.CreatedAt.IsZero() {
		obj.CreatedAt = time.Now().UTC()
	}
	obj.Data = bytes.Clone(obj.Data)
	m.objects[obj.Key] = obj
	return nil
}

// Get returns a copy; callers cannot modify the stored bytes.
func (m *MemoryStore) Get(ctx context.Context, key string) (*Object, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	obj, ok := m.objects[key]
	if !ok {
		return nil, ErrNotFound
	}
	obj.Data = bytes.Clone(obj.Data)
	return &obj, nil
}

func (m *MemoryStore) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.objects[key]; !ok {
		return ErrNotFound
	}
	delete(m.objects, key)
	return nil
}

// Len reports how many objects are held.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.objects)
}
