package site

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/yanizio/zitefy/internal/assemble"
	"github.com/yanizio/zitefy/internal/errs"
)

// Store persists site records.
type Store interface {
	// Insert stores a new record.  rec.ID must be set.
	Insert(ctx context.Context, rec *Record) error
	// Get returns the record with id or errs.ErrNotFound.
	Get(ctx context.Context, id string) (*Record, error)
	// ListByOwner returns the owner's sites, oldest first.
	ListByOwner(ctx context.Context, ownerID string) ([]Record, error)
	// SaveBindings replaces the ordered binding list of id.
	SaveBindings(ctx context.Context, id string, bindings []assemble.Binding) error
	// Rename sets the display name of id.
	Rename(ctx context.Context, id, name string) error
}

// MemoryStore is an in-process Store for development and tests.
type MemoryStore struct {
	mu    sync.RWMutex
	sites map[string]Record
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sites: make(map[string]Record)}
}

func (m *MemoryStore) Insert(_ context.Context, rec *Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, dup := m.sites[rec.ID]; dup {
		return fmt.Errorf("site %s already exists", rec.ID)
	}
	r := *rec
	r.Bindings = append([]assemble.Binding(nil), rec.Bindings...)
	m.sites[rec.ID] = r
	return nil
}

func (m *MemoryStore) Get(_ context.Context, id string) (*Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.sites[id]
	if !ok {
		return nil, fmt.Errorf("site %s: %w", id, errs.ErrNotFound)
	}
	r.Bindings = append([]assemble.Binding(nil), r.Bindings...)
	return &r, nil
}

func (m *MemoryStore) ListByOwner(_ context.Context, ownerID string) ([]Record, error) {
	m.mu.RLock()
	var out []Record
	for _, r := range m.sites {
		if r.OwnerID == ownerID {
			out = append(out, r)
		}
	}
	m.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Meta.CreatedAt.Before(out[j].Meta.CreatedAt) })
	return out, nil
}

func (m *MemoryStore) SaveBindings(_ context.Context, id string, bindings []assemble.Binding) error {
	return m.update(id, func(r *Record) {
		r.Bindings = append([]assemble.Binding(nil), bindings...)
	})
}

func (m *MemoryStore) Rename(_ context.Context, id, name string) error {
	return m.update(id, func(r *Record) { r.Meta.Name = name })
}

func (m *MemoryStore) update(id string, fn func(*Record)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.sites[id]
	if !ok {
		return fmt.Errorf("site %s: %w", id, errs.ErrNotFound)
	}
	fn(&r)
	m.sites[id] = r
	return nil
}

// Len reports how many sites are stored.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sites)
}
