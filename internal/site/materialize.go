// internal/site/materialize.go
//
// Site materializer: template → new site directory + record.
//
// Context
// -------
// Creating a site copies the template tree (minus its cached previews),
// renders the site's own first preview pair and stores a record with no
// content bindings.  The work is all-or-nothing:
//
//  1. Allocate a fresh id.  Final dir = <site_root>/<id>.
//  2. Look up the template (errs.ErrNotFound when absent).
//  3. Copy the template tree into <site_root>/.staging-<id>, skipping the
//     top-level previews directory.
//  4. Assemble with the default data file, render into the staging
//     previews/ and verify both images exist.
//  5. Rename staging to the final dir.
//  6. Insert the record.
//
// Any failure before step 5 removes the staging dir.  A failed insert
// removes the final dir.  A site record therefore never exists without its
// directory and a failed request leaves nothing behind.
package site

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/yanizio/zitefy/internal/assemble"
	"github.com/yanizio/zitefy/internal/errs"
	"github.com/yanizio/zitefy/internal/fsutil"
	"github.com/yanizio/zitefy/internal/metrics"
	"github.com/yanizio/zitefy/internal/preview"
	"github.com/yanizio/zitefy/internal/templates"
)

// StagingPrefix marks half-built site directories under the site root.
const StagingPrefix = ".staging-"

// Materializer creates sites from templates.
type Materializer struct {
	SiteRoot  string
	Templates templates.Store
	Sites     Store
	Assembler assemble.Assembler
	Renderer  preview.Renderer
	Now       func() time.Time // time.Now when nil
	NewID     func() string    // uuid.NewString when nil
}

// Materialize creates a site for ownerID from templateID and returns the
// new site id.
func (m *Materializer) Materialize(ctx context.Context, templateID, ownerID string) (string, error) {
	id, err := m.materialize(ctx, templateID, ownerID)
	if err != nil {
		metrics.SiteMaterializeErrorsTotal.Inc()
		zap.S().Warnw("site materialize failed",
			"template", templateID, "owner", ownerID, "err", err)
		return "", err
	}
	metrics.SitesMaterializedTotal.Inc()
	zap.S().Infow("site materialized", "site", id, "template", templateID, "owner", ownerID)
	return id, nil
}

func (m *Materializer) materialize(ctx context.Context, templateID, ownerID string) (_ string, err error) {
	id := uuid.NewString()
	if m.NewID != nil {
		id = m.NewID()
	}
	final := Dir(m.SiteRoot, id)
	staging := filepath.Join(m.SiteRoot, StagingPrefix+id)

	tpl, err := m.Templates.Get(ctx, templateID)
	if err != nil {
		return "", err
	}

	defer func() {
		if err != nil {
			removeAll(staging)
		}
	}()

	if err := fsutil.CopyTree(tpl.DirPath, staging, "previews"); err != nil {
		return "", fmt.Errorf("copy template %s: %w", templateID, err)
	}

	target := preview.In(staging)
	if err := os.MkdirAll(filepath.Dir(target.Mobile), 0o755); err != nil {
		return "", errs.IO("create previews dir", err)
	}
	html, err := m.Assembler.Assemble(ctx, assemble.DirSources(staging))
	if err != nil {
		return "", fmt.Errorf("assemble site %s: %w", id, err)
	}
	pair, err := m.Renderer.Render(ctx, html, &target)
	if err != nil {
		return "", fmt.Errorf("render site %s: %w", id, err)
	}
	if err := pair.Verify(); err != nil {
		return "", err
	}

	if err := os.Rename(staging, final); err != nil {
		return "", errs.IO("publish site dir", err)
	}

	now := time.Now
	if m.Now != nil {
		now = m.Now
	}
	rec := Record{
		ID:       id,
		OwnerID:  ownerID,
		DirPath:  final,
		Bindings: []assemble.Binding{},
		Meta:     Meta{Name: tpl.Name, Category: tpl.Category, CreatedAt: now().UTC()},
	}
	if err := m.Sites.Insert(ctx, &rec); err != nil {
		removeAll(final)
		return "", fmt.Errorf("store site %s: %w", id, err)
	}
	return id, nil
}

func removeAll(dir string) {
	if err := os.RemoveAll(dir); err != nil {
		zap.S().Errorw("site rollback failed", "dir", dir, "err", err)
	}
}
