package site

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/yanizio/zitefy/internal/assemble"
	"github.com/yanizio/zitefy/internal/errs"
	"github.com/yanizio/zitefy/internal/preview"
	"github.com/yanizio/zitefy/internal/templates"
)

// pageAssembler concatenates index.html and the data file, if any.
type pageAssembler struct{}

func (pageAssembler) Assemble(_ context.Context, src assemble.Sources) (string, error) {
	html, err := os.ReadFile(src.HTML)
	if err != nil {
		return "", err
	}
	if src.Data == "" {
		return string(html), nil
	}
	data, err := os.ReadFile(src.Data)
	if err != nil {
		return "", err
	}
	return string(html) + string(data), nil
}

// shotRenderer writes the page into both targets.  fail makes it exit
// like a crashed browser; skip makes it "succeed" without output.
type shotRenderer struct {
	fail  bool
	skip  bool
	calls atomic.Int32
	delay time.Duration
}

func (r *shotRenderer) Render(_ context.Context, html string, target *preview.Pair) (preview.Pair, error) {
	r.calls.Add(1)
	time.Sleep(r.delay)
	if r.fail {
		return preview.Pair{}, &errs.ProcessError{Op: "render", Stderr: "boom"}
	}
	if !r.skip {
		for _, p := range []string{target.Mobile, target.Desktop} {
			if err := os.WriteFile(p, []byte(html), 0o644); err != nil {
				return preview.Pair{}, err
			}
		}
	}
	return *target, nil
}

// recCleaner records scheduled deletions instead of running them.
type recCleaner struct {
	mu   sync.Mutex
	dirs []string
}

func (c *recCleaner) ScheduleDelete(dir string, _ time.Duration) {
	c.mu.Lock()
	c.dirs = append(c.dirs, dir)
	c.mu.Unlock()
}

type failInsert struct{ *MemoryStore }

func (failInsert) Insert(context.Context, *Record) error { return errors.New("db down") }

func seedTemplate(t *testing.T, store templates.Store) string {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "abc")
	files := map[string]string{
		"index.html":           "<h1>abc</h1>",
		"styles/styles.css":    "h1{}",
		"js/script.js":         "",
		"resources/logo.png":   "png",
		"previews/mobile.png":  "old",
		"previews/desktop.png": "old",
	}
	for rel, body := range files {
		p := filepath.Join(dir, rel)
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
	}
	rec := templates.Record{ID: "abc", Name: "Ocean", Category: "portfolio", DirPath: dir}
	require.NoError(t, store.Upsert(context.Background(), &rec))
	return dir
}

func listFiles(t *testing.T, root string) []string {
	t.Helper()
	var out []string
	require.NoError(t, filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			rel, _ := filepath.Rel(root, p)
			out = append(out, filepath.ToSlash(rel))
		}
		return nil
	}))
	sort.Strings(out)
	return out
}

func newMaterializer(t *testing.T, r *shotRenderer) (*Materializer, *MemoryStore) {
	t.Helper()
	tpls := templates.NewMemoryStore()
	seedTemplate(t, tpls)
	sites := NewMemoryStore()
	return &Materializer{
		SiteRoot:  t.TempDir(),
		Templates: tpls,
		Sites:     sites,
		Assembler: pageAssembler{},
		Renderer:  r,
	}, sites
}

func TestMaterialize_CopiesTreeAndRendersOwnPreviews(t *testing.T) {
	m, sites := newMaterializer(t, &shotRenderer{})

	id, err := m.Materialize(context.Background(), "abc", "u1")
	require.NoError(t, err)

	dir := Dir(m.SiteRoot, id)
	require.Equal(t, []string{
		"index.html",
		"js/script.js",
		"previews/desktop.png",
		"previews/mobile.png",
		"resources/logo.png",
		"styles/styles.css",
	}, listFiles(t, dir))

	shot, err := os.ReadFile(filepath.Join(dir, "previews", "mobile.png"))
	require.NoError(t, err)
	require.Equal(t, "<h1>abc</h1>", string(shot), "template previews must not be copied")

	require.Equal(t, 1, sites.Len())
	rec, err := sites.Get(context.Background(), id)
	require.NoError(t, err)
	require.Empty(t, rec.Bindings)
	require.Equal(t, "u1", rec.OwnerID)
	require.Equal(t, dir, rec.DirPath)
	require.Equal(t, "Ocean", rec.Meta.Name)
	require.Equal(t, "portfolio", rec.Meta.Category)

	entries, err := os.ReadDir(m.SiteRoot)
	require.NoError(t, err)
	require.Len(t, entries, 1, "no staging directory left behind")
}

func TestMaterialize_FreshIdentityPerCall(t *testing.T) {
	m, sites := newMaterializer(t, &shotRenderer{})
	a, err := m.Materialize(context.Background(), "abc", "u1")
	require.NoError(t, err)
	b, err := m.Materialize(context.Background(), "abc", "u1")
	require.NoError(t, err)
	require.NotEqual(t, a, b)

	list, err := sites.ListByOwner(context.Background(), "u1")
	require.NoError(t, err)
	require.Len(t, list, 2)
}

func TestMaterialize_UnknownTemplate(t *testing.T) {
	m, sites := newMaterializer(t, &shotRenderer{})
	_, err := m.Materialize(context.Background(), "nope", "u1")
	require.ErrorIs(t, err, errs.ErrNotFound)
	require.Zero(t, sites.Len())
}

func TestMaterialize_RollsBack(t *testing.T) {
	cases := []struct {
		name  string
		r     *shotRenderer
		store func(*MemoryStore) Store
		is    error
	}{
		{name: "render fails", r: &shotRenderer{fail: true}, is: errs.ErrProcessFailed},
		{name: "render leaves no images", r: &shotRenderer{skip: true}, is: errs.ErrIO},
		{
			name:  "insert fails",
			r:     &shotRenderer{},
			store: func(s *MemoryStore) Store { return failInsert{s} },
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			m, sites := newMaterializer(t, tc.r)
			if tc.store != nil {
				m.Sites = tc.store(sites)
			}

			_, err := m.Materialize(context.Background(), "abc", "u1")
			require.Error(t, err)
			if tc.is != nil {
				require.ErrorIs(t, err, tc.is)
			}

			entries, err := os.ReadDir(m.SiteRoot)
			require.NoError(t, err)
			require.Empty(t, entries)
			require.Zero(t, sites.Len())
		})
	}
}
