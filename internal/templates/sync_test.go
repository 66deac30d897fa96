package templates

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/yanizio/zitefy/internal/assemble"
	"github.com/yanizio/zitefy/internal/errs"
	"github.com/yanizio/zitefy/internal/preview"
)

// fakeAssembler returns the HTML file's contents.
type fakeAssembler struct{}

func (fakeAssembler) Assemble(_ context.Context, src assemble.Sources) (string, error) {
	b, err := os.ReadFile(src.HTML)
	return string(b), err
}

// fakeRenderer writes the page into both targets.  Pages containing
// "crash" fail like a broken headless browser.
type fakeRenderer struct{ calls atomic.Int32 }

func (f *fakeRenderer) Render(_ context.Context, html string, target *preview.Pair) (preview.Pair, error) {
	f.calls.Add(1)
	if html == "crash" {
		return preview.Pair{}, &errs.ProcessError{Op: "render", Stderr: "crashed"}
	}
	for _, p := range []string{target.Mobile, target.Desktop} {
		if err := os.WriteFile(p, []byte(html), 0o644); err != nil {
			return preview.Pair{}, err
		}
	}
	return *target, nil
}

func writeTemplate(t *testing.T, root, dir, metadata, html string) string {
	t.Helper()
	d := filepath.Join(root, dir)
	require.NoError(t, os.MkdirAll(filepath.Join(d, "styles"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(d, "js"), 0o755))
	if metadata != "" {
		require.NoError(t, os.WriteFile(filepath.Join(d, MetadataFile), []byte(metadata), 0o644))
	}
	require.NoError(t, os.WriteFile(filepath.Join(d, "index.html"), []byte(html), 0o644))
	return d
}

func meta(name string) string {
	return `{"name":"` + name + `","author":"ana","author_link":"https://ana.dev","category":"portfolio"}`
}

func newSync(root string, store Store) (*Synchronizer, *fakeRenderer) {
	r := &fakeRenderer{}
	return &Synchronizer{
		Root:        root,
		Store:       store,
		Assembler:   fakeAssembler{},
		Renderer:    r,
		Parallelism: 2,
		Now:         func() time.Time { return time.Date(2026, 10, 17, 9, 0, 0, 0, time.UTC) },
	}, r
}

func TestTick_UpsertsAndRendersInPlace(t *testing.T) {
	root := t.TempDir()
	dir := writeTemplate(t, root, "ocean", meta("Ocean"), "<h1>ocean</h1>")
	store := NewMemoryStore()
	s, _ := newSync(root, store)

	rep := s.Tick(context.Background())
	require.Equal(t, []string{"Ocean"}, rep.Upserted)
	require.Empty(t, rep.Skipped)

	rec, err := store.ByName(context.Background(), "Ocean")
	require.NoError(t, err)
	require.NotEmpty(t, rec.ID)
	require.Equal(t, dir, rec.DirPath)
	require.True(t, filepath.IsAbs(rec.DirPath))
	require.Equal(t, filepath.Join(dir, "previews", "mobile.png"), rec.Previews.Mobile)
	require.NoError(t, rec.Previews.Verify())
	require.Equal(t, "portfolio", rec.Category)
}

func TestTick_IdempotentReconciliation(t *testing.T) {
	root := t.TempDir()
	writeTemplate(t, root, "ocean", meta("Ocean"), "a")
	writeTemplate(t, root, "forest", meta("Forest"), "b")
	store := NewMemoryStore()
	s, _ := newSync(root, store)

	s.Tick(context.Background())
	first, err := store.List(context.Background())
	require.NoError(t, err)

	s.Tick(context.Background())
	second, err := store.List(context.Background())
	require.NoError(t, err)

	require.Len(t, second, 2)
	ids := map[string]string{}
	for _, r := range first {
		ids[r.Name] = r.ID
	}
	for _, r := range second {
		require.Equal(t, ids[r.Name], r.ID, "upsert must keep the id of %s", r.Name)
	}
}

func TestTick_PartialFailureIsolation(t *testing.T) {
	root := t.TempDir()
	writeTemplate(t, root, "a-good", meta("Good"), "a")
	bad := writeTemplate(t, root, "b-bad", `{"name": "Bad", "author": }`, "b")
	writeTemplate(t, root, "c-fine", meta("Fine"), "c")
	store := NewMemoryStore()
	s, _ := newSync(root, store)

	rep := s.Tick(context.Background())
	require.ElementsMatch(t, []string{"Good", "Fine"}, rep.Upserted)
	require.Len(t, rep.Skipped, 1)
	require.ErrorIs(t, rep.Skipped[bad], errs.ErrMalformedMetadata)

	all, _ := store.List(context.Background())
	require.Len(t, all, 2)
}

func TestTick_SkipsMissingMetadataAndRenderFailures(t *testing.T) {
	root := t.TempDir()
	noMeta := writeTemplate(t, root, "draft", "", "x")
	crash := writeTemplate(t, root, "broken", meta("Broken"), "crash")
	writeTemplate(t, root, "ok", meta("Ok"), "fine")
	require.NoError(t, os.WriteFile(filepath.Join(root, "notes.txt"), nil, 0o644))

	store := NewMemoryStore()
	s, _ := newSync(root, store)
	rep := s.Tick(context.Background())

	require.Equal(t, []string{"Ok"}, rep.Upserted)
	require.ErrorIs(t, rep.Skipped[noMeta], errs.ErrMalformedMetadata)
	require.ErrorIs(t, rep.Skipped[crash], errs.ErrProcessFailed)

	_, err := store.ByName(context.Background(), "Broken")
	require.ErrorIs(t, err, errs.ErrNotFound)
}

func TestTick_DuplicateNameFirstDirectoryWins(t *testing.T) {
	root := t.TempDir()
	first := writeTemplate(t, root, "alpha", meta("Same"), "first")
	second := writeTemplate(t, root, "beta", meta("Same"), "second")
	store := NewMemoryStore()
	s, _ := newSync(root, store)

	rep := s.Tick(context.Background())
	require.Equal(t, []string{"Same"}, rep.Upserted)
	require.ErrorIs(t, rep.Skipped[second], errs.ErrDuplicateName)

	rec, err := store.ByName(context.Background(), "Same")
	require.NoError(t, err)
	require.Equal(t, first, rec.DirPath)
}

func TestTick_MissingRootDoesNotPanic(t *testing.T) {
	s, r := newSync(filepath.Join(t.TempDir(), "nope"), NewMemoryStore())
	rep := s.Tick(context.Background())
	require.Empty(t, rep.Upserted)
	require.Zero(t, r.calls.Load())
}

type failingStore struct{ *MemoryStore }

func (failingStore) Upsert(context.Context, *Record) error { return errors.New("db down") }

func TestTick_StoreErrorSkipsDirectory(t *testing.T) {
	root := t.TempDir()
	dir := writeTemplate(t, root, "ocean", meta("Ocean"), "x")
	s, _ := newSync(root, failingStore{NewMemoryStore()})

	rep := s.Tick(context.Background())
	require.Empty(t, rep.Upserted)
	require.EqualError(t, rep.Skipped[dir], "db down")
}

func TestStartStop_TicksImmediatelyAndJoins(t *testing.T) {
	root := t.TempDir()
	writeTemplate(t, root, "ocean", meta("Ocean"), "x")
	store := NewMemoryStore()
	s, r := newSync(root, store)
	s.Interval = time.Hour

	s.Start(context.Background())
	require.Eventually(t, func() bool { return r.calls.Load() == 1 },
		time.Second, 5*time.Millisecond)
	s.Stop()
	s.Stop() // second call is a no-op

	_, err := store.ByName(context.Background(), "Ocean")
	require.NoError(t, err)
}

func TestRun_RepeatsOnInterval(t *testing.T) {
	root := t.TempDir()
	writeTemplate(t, root, "ocean", meta("Ocean"), "x")
	s, r := newSync(root, NewMemoryStore())
	s.Interval = 10 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() { s.Run(ctx); close(done) }()

	require.Eventually(t, func() bool { return r.calls.Load() >= 3 },
		2*time.Second, 5*time.Millisecond)
	cancel()
	<-done
}
