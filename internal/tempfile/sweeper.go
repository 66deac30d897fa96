// sweeper.go houses the optional eviction loop for Registry.  Every
// interval it scans the map and removes entries whose expiry has passed.
// Observable Add and Get behaviour is unchanged: an entry the sweeper
// removes would have read as absent anyway.
package tempfile

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/yanizio/zitefy/internal/metrics"
)

// StartSweeper launches the eviction loop.  It stops when ctx is done or
// StopSweeper is called.  Calling it again replaces the running loop.
func (r *Registry) StartSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	r.StopSweeper()

	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	r.sweepMu.Lock()
	r.sweepStop = func() {
		cancel()
		<-done
	}
	r.sweepMu.Unlock()

	go func() {
		defer close(done)
		t := time.NewTicker(interval)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				if n := r.Sweep(); n > 0 {
					zap.S().Debugw("token sweep", "evicted", n)
				}
			}
		}
	}()
}

// StopSweeper stops the loop started by StartSweeper and waits for it.
func (r *Registry) StopSweeper() {
	r.sweepMu.Lock()
	stop := r.sweepStop
	r.sweepStop = nil
	r.sweepMu.Unlock()

	if stop != nil {
		stop()
	}
}

// Sweep removes every expired entry and returns how many it removed.
func (r *Registry) Sweep() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	var n int
	for tok, e := range r.files {
		if !now.Before(e.expiry) {
			delete(r.files, tok)
			n++
		}
	}
	if n > 0 {
		metrics.TokensEvictedTotal.Add(float64(n))
		metrics.TokensActive.Set(float64(len(r.files)))
	}
	return n
}
