// cmd/zitefy/main.go
//
// Zitefy – artifact service entry point.
//
// Boot sequence
// -------------
//
//  1. Load configuration (conf/.env → conf/global.yaml → ZITEFY_ env).
//
//  2. Start the daily rotating logger (tees to console in a TTY).
//
//  3. Resolve `vault:` secrets when the config holds any.
//
//  4. Open the control-plane DB and ensure the schema.
//
//  5. Wire the core: one subprocess gate shared by the builder and the
//     screenshot script, the cleanup scheduler, the token registry and
//     its sweeper, the template synchronizer, and the site services.
//
//  6. Serve HTTP until SIGINT or SIGTERM, then shut down in reverse:
//     HTTP, synchronizer, sweeper, pending scratch cleanups.
package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/yanizio/zitefy/internal/assemble"
	"github.com/yanizio/zitefy/internal/config"
	"github.com/yanizio/zitefy/internal/database"
	"github.com/yanizio/zitefy/internal/gate"
	"github.com/yanizio/zitefy/internal/logger"
	"github.com/yanizio/zitefy/internal/preview"
	"github.com/yanizio/zitefy/internal/process"
	"github.com/yanizio/zitefy/internal/scratch"
	"github.com/yanizio/zitefy/internal/server"
	"github.com/yanizio/zitefy/internal/site"
	"github.com/yanizio/zitefy/internal/templates"
	"github.com/yanizio/zitefy/internal/tempfile"
	"github.com/yanizio/zitefy/internal/vault"
)

const shutdownTimeout = 30 * time.Second

// runningInTTY returns true when stdout is a character device.
func runningInTTY() bool {
	fi, err := os.Stdout.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		zap.S().Errorw("zitefy exited", "err", err)
		_ = zap.S().Sync()
		log.Fatalf("zitefy: %v", err)
	}
}

func run(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logOut, err := logger.New(cfg.Paths.Root, cfg.Log.Level, runningInTTY())
	if err != nil {
		return err
	}
	defer logOut.Sync() //nolint:errcheck

	//
	// ── 1.  Secrets and database ────────────────────────────────────────
	//
	if cfg.HasSecrets() {
		vc, err := vault.New(ctx)
		if err != nil {
			return err
		}
		if err := cfg.ResolveSecrets(ctx, vc); err != nil {
			return err
		}
	}

	db, err := database.OpenWithOptions(ctx, cfg.Database.ConnString(), cfg.Database.MaxOpen, cfg.Database.MaxIdle)
	if err != nil {
		return err
	}
	defer db.Close()
	if err := database.Migrate(ctx, db); err != nil {
		return err
	}
	logOut.Infow("database online")

	//
	// ── 2.  Core wiring ─────────────────────────────────────────────────
	//
	g := gate.New(cfg.Render.MaxConcurrent)
	cleaner := scratch.NewScheduler()

	assembler := &assemble.Command{
		Spec: process.Spec{
			Argv: cfg.Render.BuildCmd, Dir: cfg.Paths.Root,
			Timeout: cfg.Render.Timeout, Gate: g,
		},
		DefaultData: cfg.Paths.DefaultData,
	}
	renderer := &preview.Command{
		Spec: process.Spec{
			Argv: cfg.Render.ScreenshotCmd, Dir: cfg.Paths.Root,
			Timeout: cfg.Render.Timeout, Gate: g,
		},
		ScratchRoot: cfg.Paths.ScratchRoot,
		Cleaner:     cleaner,
		Grace:       max(cfg.Tokens.TTL, scratch.RenderGrace),
	}

	registry := tempfile.New(tempfile.WithTTL(cfg.Tokens.TTL))
	if cfg.Tokens.SweepInterval > 0 {
		registry.StartSweeper(ctx, cfg.Tokens.SweepInterval)
		defer registry.StopSweeper()
	}

	tplStore := templates.NewCachedStore(templates.NewSQLStore(db), 256)
	siteStore := site.NewSQLStore(db)

	if err := os.MkdirAll(cfg.Paths.SiteRoot, 0o755); err != nil {
		return err
	}

	syncer := &templates.Synchronizer{
		Root:        cfg.Paths.TemplateRoot,
		Store:       tplStore,
		Assembler:   assembler,
		Renderer:    renderer,
		Interval:    cfg.Sync.Interval,
		Parallelism: cfg.Sync.Parallelism,
	}
	if !cfg.Sync.Disabled {
		syncer.Start(ctx)
		defer syncer.Stop()
	}

	api := &server.API{
		Tokens: registry,
		Live: &preview.Live{
			Assembler:   assembler,
			Renderer:    renderer,
			Registry:    registry,
			ScratchRoot: cfg.Paths.ScratchRoot,
			Cleaner:     cleaner,
		},
		Creator: &site.Materializer{
			SiteRoot:  cfg.Paths.SiteRoot,
			Templates: tplStore,
			Sites:     siteStore,
			Assembler: assembler,
			Renderer:  renderer,
		},
		Sites: &site.Service{
			Sites:          siteStore,
			Assembler:      assembler,
			Renderer:       renderer,
			ScratchRoot:    cfg.Paths.ScratchRoot,
			Cleaner:        cleaner,
			RefreshTimeout: 2 * cfg.Render.Timeout, // build plus render
		},
		Templates:    tplStore,
		ForceHTTPS:   cfg.HTTP.ForceHTTPS,
		MaxBodyBytes: cfg.HTTP.MaxBodyBytes,
	}

	//
	// ── 3.  Serve until signalled ───────────────────────────────────────
	//
	srv := server.New(cfg.HTTP.ListenAddr, api.Routes(), cfg.HTTP.WriteTimeout)
	errc := make(chan error, 1)
	go func() {
		logOut.Infow("listening", "addr", cfg.HTTP.ListenAddr, "subprocess_slots", g.Size())
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	case <-ctx.Done():
		logOut.Infow("shutdown requested")
	}

	sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		logOut.Warnw("http shutdown", "err", err)
	}
	syncer.Stop()

	done := make(chan struct{})
	go func() { cleaner.Wait(); close(done) }()
	select {
	case <-done:
		logOut.Infow("scratch cleanup drained")
	case <-sctx.Done():
		logOut.Warnw("scratch cleanup still pending at exit")
	}
	return nil
}
