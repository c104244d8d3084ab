//go:build !linux

package systemdmanager

import "context"

type Bus struct{}

type Unit struct {
	Name string
}

func NewBusContext(ctx context.Context, opts Options) (*Bus, error) {
	return nil, ErrUnsupported
}

func (b *Bus) Close() error { return nil }

func (b *Bus) GetUnitContext(ctx context.Context, name string) (*Unit, error) {
	return nil, ErrUnsupported
}

func (b *Bus) ListUnitsContext(ctx context.Context) ([]UnitEntry, error) {
	return nil, ErrUnsupported
}

func (u *Unit) PropertyContext(ctx context.Context, iface, name string) (any, error) {
	return nil, ErrUnsupported
}
