// internal/gate/gate.go
//
// Counting semaphore in front of every external build and screenshot
// subprocess.
//
// Context
// -------
// Rendering a preview means spawning a headless browser.  Without a bound
// a burst of editor requests would fork one browser per request, so the
// assembler and the renderer share a single Gate sized to the host's
// rendering capacity.  Waiting callers honour their context, which means a
// cancelled HTTP request gives up its place in the queue.
//
// Notes
// -----
//   - n <= 0 falls back to runtime.NumCPU().
//   - In-flight count is exported as zitefy_process_in_flight.
package gate

import (
	"context"
	"runtime"

	"golang.org/x/sync/semaphore"

	"github.com/yanizio/zitefy/internal/metrics"
)

// Gate bounds concurrent subprocesses.  Safe for concurrent use.
type Gate struct {
	sem *semaphore.Weighted
	n   int64
}

// New returns a Gate admitting n holders at once.
func New(n int) *Gate {
	if n <= 0 {
		n = runtime.NumCPU()
	}
	return &Gate{sem: semaphore.NewWeighted(int64(n)), n: int64(n)}
}

// Acquire blocks until a slot is free or ctx is done.  The returned func
// releases the slot and must be called exactly once.
func (g *Gate) Acquire(ctx context.Context) (func(), error) {
	if err := g.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	metrics.ProcessInFlight.Inc()
	return func() {
		metrics.ProcessInFlight.Dec()
		g.sem.Release(1)
	}, nil
}

// Size reports the configured capacity.
func (g *Gate) Size() int { return int(g.n) }
