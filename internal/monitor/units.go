package monitor

import (
	"context"
	"sync"
	"time"

	"systemdstat/pkg/logx"
)

// UnitCache memoizes successful unit lookups for the life of the process.
//
// Failures are not cached: a unit that is missing or unreachable is looked up
// again on the next call, so a transient outage heals without a restart.
// A cached handle is never evicted; systemd keeps the object path addressable
// across stop/start of the unit.
type UnitCache struct {
	lookup  UnitLookup
	log     logx.Logger
	timeout time.Duration

	// mu is held across the lookup so concurrent callers never resolve the
	// same name twice.
	mu    sync.Mutex
	units map[string]Handle
}

// NewUnitCache creates a cache in front of lookup. timeout bounds each lookup
// RPC; zero means the caller's context alone decides.
func NewUnitCache(lookup UnitLookup, timeout time.Duration, log logx.Logger) *UnitCache {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &UnitCache{
		lookup:  lookup,
		log:     log,
		timeout: timeout,
		units:   map[string]Handle{},
	}
}

// Get returns the handle for the full unit name, or false if it could not be resolved.
func (c *UnitCache) Get(ctx context.Context, name string) (Handle, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if h, ok := c.units[name]; ok {
		return h, true
	}

	lctx, cancel := withTimeout(ctx, c.timeout)
	h, err := c.lookup.GetUnit(lctx, name)
	cancel()
	if err != nil || h == nil {
		c.log.Warn("failed to monitor unit", logx.String("unit", name), logx.Err(err))
		return nil, false
	}
	c.units[name] = h
	return h, true
}

// Len returns the number of cached handles.
func (c *UnitCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.units)
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
