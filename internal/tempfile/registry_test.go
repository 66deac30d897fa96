package tempfile

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// fakeClock is a manually advanced time source.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2026, 10, 17, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func TestRegistry_AddGetThenExpire(t *testing.T) {
	clk := newFakeClock()
	r := New(WithClock(clk.Now))

	tok := r.Add("/tmp/x.png")
	got, ok := r.Get(tok)
	require.True(t, ok)
	require.Equal(t, "/tmp/x.png", got)

	clk.Advance(121 * time.Second)
	_, ok = r.Get(tok)
	require.False(t, ok)
}

func TestRegistry_TTLBoundary(t *testing.T) {
	clk := newFakeClock()
	r := New(WithClock(clk.Now))
	tok := r.Add("/tmp/a.png")

	// Readable any number of times strictly before expiry.
	for _, step := range []time.Duration{0, time.Second, 60 * time.Second, 58*time.Second + 999*time.Millisecond} {
		clk.Advance(step)
		p, ok := r.Get(tok)
		require.True(t, ok, "elapsed step %v", step)
		require.Equal(t, "/tmp/a.png", p)
	}

	// Exactly at insertion + TTL the token is gone.
	clk.Advance(time.Millisecond)
	_, ok := r.Get(tok)
	require.False(t, ok)
}

func TestRegistry_SingleEviction(t *testing.T) {
	clk := newFakeClock()
	r := New(WithClock(clk.Now))
	tok := r.Add("/tmp/b.png")
	require.Equal(t, 1, r.Len())

	clk.Advance(DefaultTTL)
	_, ok := r.Get(tok)
	require.False(t, ok)
	require.Equal(t, 0, r.Len())

	// No resurrection, even if the clock were to move backwards.
	clk.Advance(-time.Hour)
	_, ok = r.Get(tok)
	require.False(t, ok)
}

func TestRegistry_UnreadExpiredEntriesStay(t *testing.T) {
	clk := newFakeClock()
	r := New(WithClock(clk.Now))
	r.Add("/tmp/1.png")
	r.Add("/tmp/2.png")

	clk.Advance(time.Hour)
	require.Equal(t, 2, r.Len(), "lazy eviction only removes on read")
}

func TestRegistry_UnknownToken(t *testing.T) {
	r := New()
	_, ok := r.Get("not-a-token")
	require.False(t, ok)
}

func TestRegistry_TokensUnique(t *testing.T) {
	r := New()
	seen := make(map[string]struct{})
	for i := 0; i < 1000; i++ {
		tok := r.Add("/tmp/same.png")
		_, dup := seen[tok]
		require.False(t, dup)
		seen[tok] = struct{}{}
	}
	require.Equal(t, 1000, r.Len())
}

func TestRegistry_WithTTL(t *testing.T) {
	clk := newFakeClock()
	r := New(WithClock(clk.Now), WithTTL(10*time.Second))
	tok := r.Add("/tmp/c.png")

	clk.Advance(9 * time.Second)
	_, ok := r.Get(tok)
	require.True(t, ok)

	clk.Advance(time.Second)
	_, ok = r.Get(tok)
	require.False(t, ok)
}

func TestRegistry_ConcurrentAddGet(t *testing.T) {
	r := New()
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				tok := r.Add("/tmp/p.png")
				if p, ok := r.Get(tok); !ok || p != "/tmp/p.png" {
					t.Errorf("lost token %s", tok)
					return
				}
			}
		}()
	}
	wg.Wait()
	require.Equal(t, 3200, r.Len())
}

func TestRegistry_Sweep(t *testing.T) {
	clk := newFakeClock()
	r := New(WithClock(clk.Now))
	old := r.Add("/tmp/old.png")
	clk.Advance(100 * time.Second)
	fresh := r.Add("/tmp/fresh.png")
	clk.Advance(30 * time.Second)

	require.Equal(t, 1, r.Sweep())
	require.Equal(t, 1, r.Len())

	_, ok := r.Get(old)
	require.False(t, ok)
	p, ok := r.Get(fresh)
	require.True(t, ok)
	require.Equal(t, "/tmp/fresh.png", p)
}

func TestRegistry_SweeperLoop(t *testing.T) {
	clk := newFakeClock()
	r := New(WithClock(clk.Now))
	r.Add("/tmp/x.png")
	clk.Advance(time.Hour)

	r.StartSweeper(context.Background(), 5*time.Millisecond)
	defer r.StopSweeper()

	require.Eventually(t, func() bool { return r.Len() == 0 },
		time.Second, 5*time.Millisecond)
}
