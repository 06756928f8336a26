package employees

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

var (
	ErrNotFound  = errors.New("employee not found")
	ErrDuplicate = errors.New("employee id already exists")
)

// Store is the employee collection the credential surfaces read from.
// Implementations hand out copies; callers never share records with the
// store.
type Store interface {
	List(ctx context.Context) ([]Employee, error)
	Get(ctx context.Context, id string) (Employee, error)
	Create(ctx context.Context, e Employee) (Employee, error)
	Update(ctx context.Context, e Employee) (Employee, error)
	Delete(ctx context.Context, id string) error
	// Replace swaps the whole collection, as a roster import does.
	Replace(ctx context.Context, list []Employee) error
}

var (
	_ Store = (*MemoryStore)(nil)
	_ Store = (*PostgresStore)(nil)
)

// MemoryStore keeps employees in insertion order behind an RWMutex.
type MemoryStore struct {
	mu    sync.RWMutex
	order []string
	byID  map[string]Employee
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{byID: make(map[string]Employee)}
}

func (m *MemoryStore) List(ctx context.Context) ([]Employee, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Employee, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, m.byID[id])
	}
	return out, nil
}

func (m *MemoryStore) Get(ctx context.Context, id string) (Employee, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.byID[id]
	if !ok {
		return Employee{}, ErrNotFound
	}
	return e, nil
}

func (m *MemoryStore) Create(ctx context.Context, e Employee) (Employee, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if _, ok := m.byID[e.ID]; ok {
		return Employee{}, fmt.Errorf("%w: %s", ErrDuplicate, e.ID)
	}
	m.byID[e.ID] = e
	m.order = append(m.order, e.ID)
	return e, nil
}

func (m *MemoryStore) Update(ctx context.Context, e Employee) (Employee, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byID[e.ID]; !ok {
		return Employee{}, ErrNotFound
	}
	m.byID[e.ID] = e
	return e, nil
}

func (m *MemoryStore) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byID[id]; !ok {
		return ErrNotFound
	}
	delete(m.byID, id)
	for i, v := range m.order {
		if v == id {
			m.order = append(m.order[:i:i], m.order[i+1:]...)
			break
		}
	}
	return nil
}

func (m *MemoryStore) Replace(ctx context.Context, list []Employee) error {
	byID := make(map[string]Employee, len(list))
	order := make([]string, 0, len(list))
	for _, e := range list {
		if e.ID == "" {
			e.ID = uuid.NewString()
		}
		if _, ok := byID[e.ID]; ok {
			return fmt.Errorf("%w: %s", ErrDuplicate, e.ID)
		}
		byID[e.ID] = e
		order = append(order, e.ID)
	}
	m.mu.Lock()
	m.byID = byID
	m.order = order
	m.mu.Unlock()
	return nil
}

// Lookup finds an employee by id or, failing that, by rut.
func Lookup(list []Employee, key string) (Employee, error) {
	for _, e := range list {
		if e.ID == key {
			return e, nil
		}
	}
	for _, e := range list {
		if e.RUT == key {
			return e, nil
		}
	}
	return Employee{}, fmt.Errorf("%w: %s", ErrNotFound, key)
}
