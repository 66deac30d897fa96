// internal/assemble/assemble.go
//
// Content assembler: HTML + CSS + JS + bindings → one self-contained page.
//
// Context
// -------
// The page builder is an external script invoked as
//
//	<build_cmd…> <index.html> <styles.css> <script.js> <data.json>
//
// which prints the finished document on stdout.  This package wraps that
// contract behind the narrow Assembler interface so the renderer, the site
// materializer, and the template synchronizer never touch exec directly
// and tests can swap in a fake.
//
// Error mapping
// -------------
//   - non-zero exit or spawn failure → *errs.ProcessError (stderr kept)
//   - stdout is not valid UTF-8      → errs.ErrEncoding
//
// There are no retries; the caller decides.
package assemble

import (
	"context"
	"fmt"
	"path/filepath"
	"unicode/utf8"

	"github.com/yanizio/zitefy/internal/errs"
	"github.com/yanizio/zitefy/internal/process"
)

// Assembler builds a page from source paths.
type Assembler interface {
	Assemble(ctx context.Context, src Sources) (string, error)
}

// Sources names the four inputs of one build.  An empty Data means the
// configured default binding file.
type Sources struct {
	HTML string
	CSS  string
	JS   string
	Data string
}

// DirSources returns the conventional source paths of a template or site
// directory.
func DirSources(dir string) Sources {
	return Sources{
		HTML: filepath.Join(dir, "index.html"),
		CSS:  filepath.Join(dir, "styles", "styles.css"),
		JS:   filepath.Join(dir, "js", "script.js"),
	}
}

// Command runs the external builder.
type Command struct {
	Spec        process.Spec
	DefaultData string // used when Sources.Data is empty
}

// Assemble implements Assembler.
func (c *Command) Assemble(ctx context.Context, src Sources) (string, error) {
	data := src.Data
	if data == "" {
		data = c.DefaultData
	}

	out, err := process.Run(ctx, "assemble", c.Spec, src.HTML, src.CSS, src.JS, data)
	if err != nil {
		return "", err
	}
	if !utf8.Valid(out) {
		return "", fmt.Errorf("assemble %s: %w", src.HTML, errs.ErrEncoding)
	}
	return string(out), nil
}
