package monitor

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"systemdstat/pkg/logx"
)

func TestUnitCacheResolvesOnce(t *testing.T) {
	bus := newFakeBus()
	bus.set("foo.service", serviceUnit("running", "simple", 0))
	c := NewUnitCache(bus, time.Second, logx.Nop())
	ctx := context.Background()

	h1, ok := c.Get(ctx, "foo.service")
	require.True(t, ok)
	h2, ok := c.Get(ctx, "foo.service")
	require.True(t, ok)

	require.Same(t, h1, h2)
	require.Equal(t, 1, bus.calls("foo.service"))
	require.Equal(t, 1, c.Len())
}

func TestUnitCacheRetriesFailures(t *testing.T) {
	bus := newFakeBus()
	buf, log := bufferLogger()
	c := NewUnitCache(bus, 0, log)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		h, ok := c.Get(ctx, "missing.service")
		require.False(t, ok)
		require.Nil(t, h)
	}
	require.Equal(t, 3, bus.calls("missing.service"))
	require.Equal(t, 0, c.Len())
	require.Contains(t, buf.String(), "failed to monitor unit")
	require.Contains(t, buf.String(), "missing.service")
	require.Contains(t, buf.String(), "NoSuchUnit")

	// The unit shows up later: the next lookup succeeds and sticks.
	bus.set("missing.service", serviceUnit("running", "simple", 0))
	_, ok := c.Get(ctx, "missing.service")
	require.True(t, ok)
	_, ok = c.Get(ctx, "missing.service")
	require.True(t, ok)
	require.Equal(t, 4, bus.calls("missing.service"))
}

func TestUnitCacheKeepsHandleAfterUnitGoesAway(t *testing.T) {
	bus := newFakeBus()
	bus.set("foo.service", serviceUnit("running", "simple", 0))
	c := NewUnitCache(bus, 0, logx.Nop())
	ctx := context.Background()

	_, ok := c.Get(ctx, "foo.service")
	require.True(t, ok)

	bus.mu.Lock()
	delete(bus.units, "foo.service")
	bus.mu.Unlock()

	_, ok = c.Get(ctx, "foo.service")
	require.True(t, ok)
	require.Equal(t, 1, bus.calls("foo.service"))
}

func TestUnitCacheConcurrentGet(t *testing.T) {
	bus := newFakeBus()
	bus.set("foo.service", serviceUnit("running", "simple", 0))
	c := NewUnitCache(bus, 0, logx.Nop())

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = c.Get(context.Background(), "foo.service")
		}()
	}
	wg.Wait()
	require.Equal(t, 1, bus.calls("foo.service"))
}
