// internal/scratch/scratch.go
//
// Scratch workspaces and the deferred cleanup scheduler.
//
// Context
// -------
// Each assembly or render request gets a fresh temporary directory that it
// owns exclusively.  The directory cannot be removed as soon as the request
// returns, because the rendered images may still be streamed back through
// an ephemeral token.  Instead the owner hands it to ScheduleDelete, which
// removes it after a fixed grace period.
//
// Scheduling model
// ----------------
//   - Fire-and-forget.  Every call is independent: no cancellation, no
//     de-duplication, and no ordering between scheduled deletions.
//   - A directory that is already gone counts as success.
//   - Failures are logged and counted; they never reach the caller.
//   - Wait blocks until every deletion that has already fired completes.
//     Pending timers are left alone, so Wait is safe at shutdown.
package scratch

import (
	"errors"
	"io/fs"
	"os"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/yanizio/zitefy/internal/errs"
	"github.com/yanizio/zitefy/internal/metrics"
)

// Grace periods used by the pipeline.
const (
	RenderGrace   = 120 * time.Second
	AssembleGrace = 60 * time.Second
)

// NewWorkspace creates a fresh directory under base (os.TempDir when
// empty).  pattern follows os.MkdirTemp.
func NewWorkspace(base, pattern string) (string, error) {
	if base != "" {
		if err := os.MkdirAll(base, 0o755); err != nil {
			return "", errs.IO("create scratch root", err)
		}
	}
	dir, err := os.MkdirTemp(base, pattern)
	if err != nil {
		return "", errs.IO("create scratch workspace", err)
	}
	return dir, nil
}

// Scheduler deletes directories after a delay.  The zero value is ready
// to use.
type Scheduler struct {
	// remove is swapped in tests; defaults to os.RemoveAll.
	remove func(string) error

	mu     sync.Mutex
	active int
	idle   chan struct{} // closed when active drops to zero
}

// NewScheduler returns a Scheduler that deletes with os.RemoveAll.
func NewScheduler() *Scheduler { return &Scheduler{} }

// ScheduleDelete removes dir after delay.  It returns immediately.
func (s *Scheduler) ScheduleDelete(dir string, delay time.Duration) {
	if dir == "" {
		return
	}
	metrics.CleanupScheduledTotal.Inc()
	time.AfterFunc(delay, func() {
		s.begin()
		defer s.end()
		s.deleteNow(dir)
	})
}

// Wait blocks until deletions that have already fired are finished.
func (s *Scheduler) Wait() {
	s.mu.Lock()
	if s.active == 0 {
		s.mu.Unlock()
		return
	}
	ch := s.idle
	s.mu.Unlock()
	<-ch
}

func (s *Scheduler) begin() {
	s.mu.Lock()
	if s.active == 0 {
		s.idle = make(chan struct{})
	}
	s.active++
	s.mu.Unlock()
}

func (s *Scheduler) end() {
	s.mu.Lock()
	s.active--
	if s.active == 0 {
		close(s.idle)
	}
	s.mu.Unlock()
}

func (s *Scheduler) deleteNow(dir string) {
	rm := s.remove
	if rm == nil {
		rm = os.RemoveAll
	}
	if err := rm(dir); err != nil && !errors.Is(err, fs.ErrNotExist) {
		metrics.CleanupErrorsTotal.Inc()
		zap.S().Warnw("scratch cleanup failed", "dir", dir, "err", err)
		return
	}
	zap.S().Debugw("scratch cleaned", "dir", dir)
}
