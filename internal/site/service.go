package site

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/yanizio/zitefy/internal/assemble"
	"github.com/yanizio/zitefy/internal/errs"
	"github.com/yanizio/zitefy/internal/preview"
)

// Service covers the request-time work on an existing site: building its
// page with the stored content and keeping its preview pair current.
type Service struct {
	Sites       Store
	Assembler   assemble.Assembler
	Renderer    preview.Renderer
	ScratchRoot string
	Cleaner     assemble.Cleaner

	// RefreshTimeout bounds one shared preview refresh.  Zero leaves only
	// the per-subprocess deadlines.
	RefreshTimeout time.Duration

	refresh singleflight.Group
}

// HTML builds the page of rec with its bindings.  The data file is staged
// in scratch and removed after scratch.AssembleGrace.
func (s *Service) HTML(ctx context.Context, rec *Record) (string, error) {
	data, err := assemble.StageBindings(s.ScratchRoot, s.Cleaner, rec.Bindings)
	if err != nil {
		return "", err
	}
	src := assemble.DirSources(rec.DirPath)
	src.Data = data
	return s.Assembler.Assemble(ctx, src)
}

// RefreshPreview re-renders the preview pair of site id in place.
// Concurrent refreshes of the same site share one render.  The shared
// render keeps running when the caller that started it goes away.
func (s *Service) RefreshPreview(ctx context.Context, id string) (preview.Pair, error) {
	v, err, shared := s.refresh.Do(id, func() (any, error) {
		rctx := context.WithoutCancel(ctx)
		if s.RefreshTimeout > 0 {
			var cancel context.CancelFunc
			rctx, cancel = context.WithTimeout(rctx, s.RefreshTimeout)
			defer cancel()
		}
		return s.refreshPreview(rctx, id)
	})
	if shared {
		zap.S().Debugw("preview refresh shared", "site", id)
	}
	if err != nil {
		return preview.Pair{}, err
	}
	return v.(preview.Pair), nil
}

func (s *Service) refreshPreview(ctx context.Context, id string) (preview.Pair, error) {
	rec, err := s.Sites.Get(ctx, id)
	if err != nil {
		return preview.Pair{}, err
	}
	html, err := s.HTML(ctx, rec)
	if err != nil {
		return preview.Pair{}, fmt.Errorf("build site %s: %w", id, err)
	}

	target := preview.In(rec.DirPath)
	if err := os.MkdirAll(filepath.Dir(target.Mobile), 0o755); err != nil {
		return preview.Pair{}, errs.IO("create previews dir", err)
	}
	pair, err := s.Renderer.Render(ctx, html, &target)
	if err != nil {
		return preview.Pair{}, fmt.Errorf("render site %s: %w", id, err)
	}
	if err := pair.Verify(); err != nil {
		return preview.Pair{}, err
	}
	zap.S().Infow("site preview refreshed", "site", id)
	return pair, nil
}

// UpdateContent stores bindings for site id and refreshes its preview.
func (s *Service) UpdateContent(ctx context.Context, id string, bindings []assemble.Binding) (preview.Pair, error) {
	if err := s.Sites.SaveBindings(ctx, id, bindings); err != nil {
		return preview.Pair{}, err
	}
	return s.RefreshPreview(ctx, id)
}

// PreviewPath returns the desktop image of site id when wide, the mobile
// one otherwise.
func (s *Service) PreviewPath(ctx context.Context, id string, wide bool) (string, error) {
	rec, err := s.Sites.Get(ctx, id)
	if err != nil {
		return "", err
	}
	return preview.In(rec.DirPath).Pick(wide), nil
}

// ListByOwner returns the owner's sites, oldest first.
func (s *Service) ListByOwner(ctx context.Context, ownerID string) ([]Record, error) {
	list, err := s.Sites.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list sites of %s: %w", ownerID, err)
	}
	if list == nil {
		list = []Record{}
	}
	return list, nil
}

// Rename sets the display name of site id.  The working directory and
// previews are untouched.
func (s *Service) Rename(ctx context.Context, id, name string) error {
	if err := s.Sites.Rename(ctx, id, name); err != nil {
		return err
	}
	zap.S().Infow("site renamed", "site", id, "name", name)
	return nil
}
