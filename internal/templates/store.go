package templates

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/yanizio/zitefy/internal/errs"
)

// Store persists template records.
type Store interface {
	// Get returns the record with id or errs.ErrNotFound.
	Get(ctx context.Context, id string) (*Record, error)
	// ByName returns the record with name or errs.ErrNotFound.
	ByName(ctx context.Context, name string) (*Record, error)
	// List returns every record, newest first.
	List(ctx context.Context) ([]Record, error)
	// Upsert inserts rec or replaces every field of the record with the
	// same name.  rec.ID is set to the stored, stable id.
	Upsert(ctx context.Context, rec *Record) error
}

// MemoryStore is an in-process Store for development and tests.
type MemoryStore struct {
	mu     sync.RWMutex
	byName map[string]Record
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{byName: make(map[string]Record)}
}

func (m *MemoryStore) Get(_ context.Context, id string) (*Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, r := range m.byName {
		if r.ID == id {
			return &r, nil
		}
	}
	return nil, fmt.Errorf("template %s: %w", id, errs.ErrNotFound)
}

func (m *MemoryStore) ByName(_ context.Context, name string) (*Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if r, ok := m.byName[name]; ok {
		return &r, nil
	}
	return nil, fmt.Errorf("template %q: %w", name, errs.ErrNotFound)
}

func (m *MemoryStore) List(_ context.Context) ([]Record, error) {
	m.mu.RLock()
	out := make([]Record, 0, len(m.byName))
	for _, r := range m.byName {
		out = append(out, r)
	}
	m.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Time.After(out[j].Time) })
	return out, nil
}

func (m *MemoryStore) Upsert(_ context.Context, rec *Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if old, ok := m.byName[rec.Name]; ok {
		rec.ID = old.ID
	} else if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	m.byName[rec.Name] = *rec
	return nil
}
