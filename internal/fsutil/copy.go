// Package fsutil holds small filesystem helpers shared by the template
// synchronizer and the site materializer.
//
// The key export is CopyTree, which mirrors a template directory into a
// new site directory while leaving out named top-level folders (the
// template's cached previews).
package fsutil

import (
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/yanizio/zitefy/internal/errs"
)

// CopyTree copies src into dst recursively.  Directories directly under
// src whose name is in exclude are skipped; the same name deeper in the
// tree is copied.  dst is created when missing.  File modes are kept.
func CopyTree(src, dst string, exclude ...string) error {
	skip := make(map[string]struct{}, len(exclude))
	for _, e := range exclude {
		skip[e] = struct{}{}
	}

	err := filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil { // propagate filesystem errors immediately
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)

		if d.IsDir() {
			if _, ok := skip[d.Name()]; ok && filepath.Dir(rel) == "." && rel != "." {
				return filepath.SkipDir
			}
			info, err := d.Info()
			if err != nil {
				return err
			}
			return os.MkdirAll(target, info.Mode().Perm()|0o700)
		}
		if !d.Type().IsRegular() {
			return nil // sockets, symlinks, and devices are not part of a template
		}
		return copyFile(path, target)
	})
	return errs.IO("copy "+src, err)
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return err
	}
	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

// SubDirs returns the absolute paths of the immediate subdirectories of
// root, sorted by name.
func SubDirs(root string) ([]string, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, errs.IO("resolve "+root, err)
	}
	entries, err := os.ReadDir(abs)
	if err != nil {
		return nil, errs.IO("list "+root, err)
	}
	var dirs []string
	for _, e := range entries {
		if e.IsDir() {
			dirs = append(dirs, filepath.Join(abs, e.Name()))
		}
	}
	sort.Strings(dirs)
	return dirs, nil
}
