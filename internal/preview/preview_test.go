package preview

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/yanizio/zitefy/internal/assemble"
	"github.com/yanizio/zitefy/internal/errs"
	"github.com/yanizio/zitefy/internal/process"
	"github.com/yanizio/zitefy/internal/scratch"
	"github.com/yanizio/zitefy/internal/tempfile"
)

type recordingCleaner struct {
	mu     sync.Mutex
	dirs   []string
	delays []time.Duration
}

func (r *recordingCleaner) ScheduleDelete(dir string, d time.Duration) {
	r.mu.Lock()
	r.dirs = append(r.dirs, dir)
	r.delays = append(r.delays, d)
	r.mu.Unlock()
}

// screenshotScript copies the page into both outputs so tests can check
// which HTML was rendered.
func screenshotScript(t *testing.T) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "shot.sh")
	body := "#!/bin/sh\ncp \"$1\" \"$2\" && cp \"$1\" \"$3\"\n"
	require.NoError(t, os.WriteFile(p, []byte(body), 0o755))
	return p
}

func newCommand(t *testing.T, argv ...string) (*Command, *recordingCleaner) {
	cl := &recordingCleaner{}
	return &Command{
		Spec:        process.Spec{Argv: argv},
		ScratchRoot: t.TempDir(),
		Cleaner:     cl,
	}, cl
}

func TestRender_ScratchOutputs(t *testing.T) {
	c, cl := newCommand(t, "sh", screenshotScript(t))

	pair, err := c.Render(context.Background(), "<p>hi</p>", nil)
	require.NoError(t, err)
	require.NoError(t, pair.Verify())

	ws := filepath.Dir(pair.Mobile)
	require.Equal(t, ws, filepath.Dir(pair.Desktop))
	require.Equal(t, "mobile_preview.png", filepath.Base(pair.Mobile))
	require.Equal(t, []string{ws}, cl.dirs)
	require.Equal(t, []time.Duration{scratch.RenderGrace}, cl.delays)

	b, err := os.ReadFile(pair.Desktop)
	require.NoError(t, err)
	require.Equal(t, "<p>hi</p>", string(b))
}

func TestRender_GraceFollowsConfiguredLifetime(t *testing.T) {
	c, cl := newCommand(t, "sh", screenshotScript(t))
	c.Grace = 10 * time.Minute

	_, err := c.Render(context.Background(), "<p>hi</p>", nil)
	require.NoError(t, err)
	require.Equal(t, []time.Duration{10 * time.Minute}, cl.delays)
}

func TestRender_InPlaceTarget(t *testing.T) {
	c, cl := newCommand(t, "sh", screenshotScript(t))
	site := t.TempDir()
	target := In(site)
	require.NoError(t, os.MkdirAll(filepath.Dir(target.Mobile), 0o755))

	got, err := c.Render(context.Background(), "<p>site</p>", &target)
	require.NoError(t, err)
	require.Equal(t, target, got)
	require.NoError(t, got.Verify())

	// The scratch workspace is separate from the target and still scheduled.
	require.Len(t, cl.dirs, 1)
	require.NotEqual(t, filepath.Join(site, "previews"), cl.dirs[0])
}

func TestRender_FailureStillSchedulesCleanup(t *testing.T) {
	c, cl := newCommand(t, "sh", "-c", "echo 'chromium crashed' >&2; exit 1")

	_, err := c.Render(context.Background(), "<p/>", nil)
	require.ErrorIs(t, err, errs.ErrProcessFailed)
	require.Len(t, cl.dirs, 1)
}

func TestRender_DoesNotVerifyOutputs(t *testing.T) {
	c, _ := newCommand(t, "true")

	pair, err := c.Render(context.Background(), "<p/>", nil)
	require.NoError(t, err)
	require.ErrorIs(t, pair.Verify(), errs.ErrIO)
}

func TestPair_Pick(t *testing.T) {
	p := In("/sites/abc")
	require.Equal(t, "/sites/abc/previews/desktop.png", p.Pick(true))
	require.Equal(t, "/sites/abc/previews/mobile.png", p.Pick(false))
}

type doctypeAssembler struct{}

func (doctypeAssembler) Assemble(_ context.Context, src assemble.Sources) (string, error) {
	b, err := os.ReadFile(src.HTML)
	return "<!doctype html>" + string(b), err
}

func TestLive_IssuesTwoTokens(t *testing.T) {
	c, cl := newCommand(t, "sh", screenshotScript(t))
	reg := tempfile.New()
	live := &Live{
		Assembler:   doctypeAssembler{},
		Renderer:    c,
		Registry:    reg,
		ScratchRoot: t.TempDir(),
		Cleaner:     cl,
	}

	toks, err := live.Preview(context.Background(), assemble.RawSource{HTML: "<main/>"})
	require.NoError(t, err)
	require.NotEqual(t, toks.Mobile, toks.Desktop)

	mobile, ok := reg.Get(toks.Mobile)
	require.True(t, ok)
	b, err := os.ReadFile(mobile)
	require.NoError(t, err)
	require.Equal(t, "<!doctype html><main/>", string(b))

	// One assemble workspace plus one render workspace.
	require.Len(t, cl.dirs, 2)
}

func TestLive_RenderFailureIssuesNoTokens(t *testing.T) {
	c, cl := newCommand(t, "false")
	reg := tempfile.New()
	live := &Live{Assembler: doctypeAssembler{}, Renderer: c, Registry: reg,
		ScratchRoot: t.TempDir(), Cleaner: cl}

	_, err := live.Preview(context.Background(), assemble.RawSource{HTML: "x"})
	require.ErrorIs(t, err, errs.ErrProcessFailed)
	require.Equal(t, 0, reg.Len())
}
