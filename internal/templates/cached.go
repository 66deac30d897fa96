package templates

import (
	"context"
	"sync"

	"github.com/yanizio/zitefy/internal/cache"
)

// CachedStore serves Get from an LRU in front of another Store.  Upserts
// made through it invalidate the whole cache, so records stay current as
// long as every writer in the process goes through the same CachedStore.
type CachedStore struct {
	Store
	byID *cache.LRU[string, Record]

	// gen is bumped before and after every inner Upsert.  A Get whose read
	// overlapped one does not cache what it read.
	mu  sync.Mutex
	gen uint64
}

// NewCachedStore wraps s with room for size records.
func NewCachedStore(s Store, size int) *CachedStore {
	return &CachedStore{Store: s, byID: cache.New[string, Record](size)}
}

func (c *CachedStore) Get(ctx context.Context, id string) (*Record, error) {
	if r, ok := c.byID.Get(id); ok {
		return &r, nil
	}
	c.mu.Lock()
	gen := c.gen
	c.mu.Unlock()

	r, err := c.Store.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	if c.gen == gen {
		c.byID.Add(id, *r)
	}
	c.mu.Unlock()
	return r, nil
}

func (c *CachedStore) Upsert(ctx context.Context, rec *Record) error {
	c.bump(false)
	err := c.Store.Upsert(ctx, rec)
	c.bump(true)
	return err
}

func (c *CachedStore) bump(purge bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gen++
	if purge {
		c.byID.Purge()
	}
}
