// internal/preview/preview.go
//
// Preview renderer: HTML string → mobile and desktop screenshots.
//
// Context
// -------
// Screenshots are produced by an external headless-browser script invoked
// as
//
//	<screenshot_cmd…> <page.html> <mobile.png> <desktop.png>
//
// Render follows the same steps for every caller:
//
//  1. Create a fresh scratch workspace.
//  2. Write the HTML into it as preview.html.
//  3. Pick outputs: the caller's Pair, or two files inside the workspace.
//  4. Run the script.
//  5. Schedule deletion of the workspace after Grace (scratch.RenderGrace
//     when unset), whether or not step 4 succeeded.
//  6. Return the Pair.
//
// Render does not check that the images exist afterwards.  Callers that
// persist a Pair call Verify themselves.
package preview

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/yanizio/zitefy/internal/assemble"
	"github.com/yanizio/zitefy/internal/errs"
	"github.com/yanizio/zitefy/internal/process"
	"github.com/yanizio/zitefy/internal/scratch"
)

// Pair holds the two screenshot paths of one render.
type Pair struct {
	Mobile  string `json:"mobile"`
	Desktop string `json:"desktop"`
}

// In returns the conventional pair inside dir/previews.
func In(dir string) Pair {
	base := filepath.Join(dir, "previews")
	return Pair{
		Mobile:  filepath.Join(base, "mobile.png"),
		Desktop: filepath.Join(base, "desktop.png"),
	}
}

// Pick returns Desktop when wide, Mobile otherwise.
func (p Pair) Pick(wide bool) string {
	if wide {
		return p.Desktop
	}
	return p.Mobile
}

// Verify reports ErrIO unless both images exist as regular files.
func (p Pair) Verify() error {
	for _, f := range []string{p.Mobile, p.Desktop} {
		fi, err := os.Stat(f)
		if err != nil {
			return errs.IO("verify preview", err)
		}
		if !fi.Mode().IsRegular() {
			return fmt.Errorf("verify preview %s: %w: not a regular file", f, errs.ErrIO)
		}
	}
	return nil
}

// Renderer turns a page into a preview pair.  A nil target renders into a
// scratch location.
type Renderer interface {
	Render(ctx context.Context, html string, target *Pair) (Pair, error)
}

// Command runs the external screenshot script.
type Command struct {
	Spec        process.Spec
	ScratchRoot string           // parent of per-render workspaces
	Cleaner     assemble.Cleaner // receives every workspace
	Grace       time.Duration    // workspace lifetime; scratch.RenderGrace when zero
}

// Render implements Renderer.
func (c *Command) Render(ctx context.Context, html string, target *Pair) (Pair, error) {
	dir, err := scratch.NewWorkspace(c.ScratchRoot, "render-*")
	if err != nil {
		return Pair{}, err
	}
	grace := c.Grace
	if grace <= 0 {
		grace = scratch.RenderGrace
	}
	defer c.Cleaner.ScheduleDelete(dir, grace)

	page := filepath.Join(dir, "preview.html")
	if err := os.WriteFile(page, []byte(html), 0o644); err != nil {
		return Pair{}, errs.IO("write preview page", err)
	}

	out := Pair{
		Mobile:  filepath.Join(dir, "mobile_preview.png"),
		Desktop: filepath.Join(dir, "desktop_preview.png"),
	}
	if target != nil {
		out = *target
	}

	if _, err := process.Run(ctx, "render", c.Spec, page, out.Mobile, out.Desktop); err != nil {
		return Pair{}, err
	}
	return out, nil
}
