package monitor

import (
	"bytes"
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog"

	"systemdstat/pkg/logx"
	sm "systemdstat/pkg/systemdmanager"
)

var errNoSuchUnit = errors.New("org.freedesktop.systemd1.NoSuchUnit")

// fakeUnit serves properties keyed by "<iface>.<name>".
type fakeUnit struct {
	props map[string]any
	errs  map[string]error
	panic bool
}

func (u *fakeUnit) PropertyContext(_ context.Context, iface, name string) (any, error) {
	if u.panic {
		panic("bus exploded")
	}
	key := iface + "." + name
	if err := u.errs[key]; err != nil {
		return nil, err
	}
	v, ok := u.props[key]
	if !ok {
		return nil, errors.New("unknown property " + key)
	}
	return v, nil
}

func serviceUnit(subState, typ string, status int32) *fakeUnit {
	return &fakeUnit{props: map[string]any{
		sm.UnitIface + ".SubState":          subState,
		sm.ServiceIface + ".Type":           typ,
		sm.ServiceIface + ".ExecMainStatus": status,
	}}
}

// fakeBus is an in-memory Backend that records calls.
type fakeBus struct {
	mu sync.Mutex

	units     map[string]*fakeUnit
	inventory []sm.UnitEntry
	listErr   error

	getCalls  map[string]int
	listCalls int
	closed    bool
}

func newFakeBus() *fakeBus {
	return &fakeBus{units: map[string]*fakeUnit{}, getCalls: map[string]int{}}
}

func (b *fakeBus) GetUnit(_ context.Context, name string) (Handle, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.getCalls[name]++
	u, ok := b.units[name]
	if !ok {
		return nil, errNoSuchUnit
	}
	return u, nil
}

func (b *fakeBus) ListUnitsContext(context.Context) ([]sm.UnitEntry, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.listCalls++
	if b.listErr != nil {
		return nil, b.listErr
	}
	return append([]sm.UnitEntry(nil), b.inventory...), nil
}

func (b *fakeBus) Close() error {
	b.mu.Lock()
	b.closed = true
	b.mu.Unlock()
	return nil
}

func (b *fakeBus) set(name string, u *fakeUnit) {
	b.mu.Lock()
	b.units[name] = u
	b.mu.Unlock()
}

func (b *fakeBus) calls(name string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.getCalls[name]
}

func bufferLogger() (*bytes.Buffer, logx.Logger) {
	var buf bytes.Buffer
	return &buf, logx.New(zerolog.New(&buf))
}
