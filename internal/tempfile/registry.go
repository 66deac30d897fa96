// internal/tempfile/registry.go
//
// Ephemeral artifact registry: opaque token → file path, for a short time.
//
// Context
// -------
// Live previews are rendered into scratch directories that no persisted
// entity points at.  To let a browser fetch them, the registry hands out a
// random UUIDv4 token per file.  Tokens stay readable any number of times
// until they expire, then disappear for good.
//
// Token life-cycle
// ----------------
//
//	Active ──(TTL elapses)──▶ Expired ──(Get or sweep)──▶ Evicted
//
// A token never returns to Active.  Get evicts lazily: an expired entry is
// removed by the first Get that sees it.  The optional sweeper (see
// sweeper.go) removes expired entries nobody reads.  Neither changes what
// Add and Get return.
//
// Notes
// -----
//   - One mutex guards the whole map.  Every Get may delete, so there is no
//     read-only path worth an RWMutex.
//   - No method deletes an unexpired entry and there is no update.
package tempfile

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/yanizio/zitefy/internal/metrics"
)

// DefaultTTL is how long a token stays valid.
const DefaultTTL = 120 * time.Second

type entry struct {
	path   string
	expiry time.Time
}

// Registry is safe for concurrent use.
type Registry struct {
	mu    sync.Mutex
	files map[string]entry
	ttl   time.Duration
	now   func() time.Time

	sweepMu   sync.Mutex
	sweepStop func()
}

// Option customises a Registry.
type Option func(*Registry)

// WithTTL overrides DefaultTTL.
func WithTTL(d time.Duration) Option {
	return func(r *Registry) {
		if d > 0 {
			r.ttl = d
		}
	}
}

// WithClock injects the time source (tests).
func WithClock(now func() time.Time) Option {
	return func(r *Registry) { r.now = now }
}

// New returns an empty Registry.
func New(opts ...Option) *Registry {
	r := &Registry{
		files: make(map[string]entry),
		ttl:   DefaultTTL,
		now:   time.Now,
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Add registers path and returns a fresh token.  It never fails.
func (r *Registry) Add(path string) string {
	tok := uuid.NewString()

	r.mu.Lock()
	r.files[tok] = entry{path: path, expiry: r.now().Add(r.ttl)}
	n := len(r.files)
	r.mu.Unlock()

	metrics.TokensIssuedTotal.Inc()
	metrics.TokensActive.Set(float64(n))
	return tok
}

// Get returns the path for token while it is valid.  An expired entry is
// removed as a side effect.
func (r *Registry) Get(token string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.files[token]
	if !ok {
		return "", false
	}
	if r.now().Before(e.expiry) {
		return e.path, true
	}
	delete(r.files, token)
	metrics.TokensEvictedTotal.Inc()
	metrics.TokensActive.Set(float64(len(r.files)))
	return "", false
}

// Len reports the number of entries held, expired or not.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.files)
}
