// internal/templates/sync.go
//
// Template synchronizer: template root on disk → persisted records.
//
// Context
// -------
// Templates are published by dropping a directory into the template root.
// The Synchronizer reconciles that root into the Store on a fixed period
// (one hour by default).  Each tick:
//
//  1. Lists the immediate subdirectories of the root, sorted by name.
//  2. Reads metadata.json from each.  Missing or invalid descriptors, and
//     names already claimed by an earlier directory, skip that directory.
//  3. For every remaining candidate, in parallel up to Parallelism:
//     stamps the absolute directory path, assembles index.html, renders the
//     preview pair into <dir>/previews/, and upserts the record by name.
//
// Failure isolation
// -----------------
// An error in one directory is logged, counted, and recorded in the
// Report.  It never affects other directories, and neither it nor a failed
// root listing ever stops the loop.  Run returns only when its context is
// cancelled.
package templates

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/yanizio/zitefy/internal/assemble"
	"github.com/yanizio/zitefy/internal/errs"
	"github.com/yanizio/zitefy/internal/fsutil"
	"github.com/yanizio/zitefy/internal/metrics"
	"github.com/yanizio/zitefy/internal/preview"
)

// DefaultInterval is the reconciliation period.
const DefaultInterval = time.Hour

// Synchronizer reconciles Root into Store.
type Synchronizer struct {
	Root        string
	Store       Store
	Assembler   assemble.Assembler
	Renderer    preview.Renderer
	Interval    time.Duration    // DefaultInterval when zero
	Parallelism int              // directories rendered at once; 1 when <= 0
	Now         func() time.Time // time.Now when nil

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// Report summarises one tick.
type Report struct {
	Upserted []string         // template names
	Skipped  map[string]error // directory → reason
}

func (r *Report) skip(dir string, err error) {
	if r.Skipped == nil {
		r.Skipped = make(map[string]error)
	}
	r.Skipped[dir] = err
	metrics.TemplatesSkippedTotal.Inc()
	zap.S().Warnw("template skipped", "dir", dir, "err", err)
}

type candidate struct {
	dir  string
	meta Metadata
}

// Tick runs one reconciliation pass.
func (s *Synchronizer) Tick(ctx context.Context) Report {
	metrics.SyncTicksTotal.Inc()
	var rep Report

	dirs, err := fsutil.SubDirs(s.Root)
	if err != nil {
		zap.S().Errorw("template root unreadable", "root", s.Root, "err", err)
		return rep
	}

	// Metadata is cheap to read, so claim names sequentially; first
	// directory in sort order wins a contested name.
	var todo []candidate
	owner := make(map[string]string, len(dirs))
	for _, dir := range dirs {
		m, err := LoadMetadata(dir)
		if err != nil {
			rep.skip(dir, err)
			continue
		}
		if first, taken := owner[m.Name]; taken {
			rep.skip(dir, fmt.Errorf("%q already declared by %s: %w", m.Name, first, errs.ErrDuplicateName))
			continue
		}
		owner[m.Name] = dir
		todo = append(todo, candidate{dir: dir, meta: m})
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(s.Parallelism, 1))
	for _, c := range todo {
		c := c
		g.Go(func() error {
			err := s.syncOne(gctx, c)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				rep.skip(c.dir, err)
				return nil
			}
			rep.Upserted = append(rep.Upserted, c.meta.Name)
			return nil
		})
	}
	_ = g.Wait() // workers never return an error

	zap.S().Infow("template sync done",
		"root", s.Root,
		"upserted", len(rep.Upserted),
		"skipped", len(rep.Skipped),
	)
	return rep
}

func (s *Synchronizer) syncOne(ctx context.Context, c candidate) error {
	now := time.Now
	if s.Now != nil {
		now = s.Now
	}
	rec := c.meta.Record(c.dir, now())

	if err := os.MkdirAll(filepath.Dir(rec.Previews.Mobile), 0o755); err != nil {
		return errs.IO("create previews dir", err)
	}

	html, err := s.Assembler.Assemble(ctx, assemble.DirSources(c.dir))
	if err != nil {
		return fmt.Errorf("assemble: %w", err)
	}
	target := rec.Previews
	pair, err := s.Renderer.Render(ctx, html, &target)
	if err != nil {
		return fmt.Errorf("render: %w", err)
	}
	if err := pair.Verify(); err != nil {
		return err
	}
	rec.Previews = pair

	if err := s.Store.Upsert(ctx, &rec); err != nil {
		return err
	}
	metrics.TemplatesUpsertedTotal.Inc()
	zap.S().Debugw("template upserted", "name", rec.Name, "id", rec.ID, "dir", c.dir)
	return nil
}

// Run ticks immediately and then every Interval until ctx is done.
func (s *Synchronizer) Run(ctx context.Context) {
	every := s.Interval
	if every <= 0 {
		every = DefaultInterval
	}
	t := time.NewTicker(every)
	defer t.Stop()

	for {
		s.Tick(ctx)
		select {
		case <-ctx.Done():
			zap.S().Infow("template sync stopped", "root", s.Root)
			return
		case <-t.C:
		}
	}
}

// Start runs the loop in the background.  Stop cancels and joins it.
func (s *Synchronizer) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return
	}
	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})
	go func(done chan struct{}) {
		defer close(done)
		s.Run(ctx)
	}(s.done)
}

// Stop cancels the background loop and waits for the current tick to
// finish.  It is a no-op when the loop is not running.
func (s *Synchronizer) Stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}
