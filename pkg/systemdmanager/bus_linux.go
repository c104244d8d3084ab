//go:build linux

package systemdmanager

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	sddbus "github.com/coreos/go-systemd/v22/dbus"
	"github.com/godbus/dbus/v5"
)

// Bus handles systemd manager lookups.
//
// Listing goes through go-systemd; GetUnit and Properties.Get go through a
// private godbus connection because go-systemd only addresses units by name,
// while the monitor keeps the resolved object around.
type Bus struct {
	mu   sync.RWMutex
	conn *sddbus.Conn
	raw  *dbus.Conn
}

// Unit is a resolved unit object on the bus.
type Unit struct {
	Name string
	Path dbus.ObjectPath

	obj dbus.BusObject
}

//
// Construction & lifecycle
//

// NewBusContext connects to systemd using ctx for the initial D-Bus handshake.
// If ctx is nil, context.Background() is used.
func NewBusContext(ctx context.Context, opts Options) (*Bus, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	var (
		conn *sddbus.Conn
		raw  *dbus.Conn
		err  error
	)
	if opts.User {
		conn, err = sddbus.NewUserConnectionContext(ctx)
	} else {
		conn, err = sddbus.NewSystemConnectionContext(ctx)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to connect to systemd: %w", err)
	}

	if opts.User {
		raw, err = dbus.ConnectSessionBus(dbus.WithContext(ctx))
	} else {
		raw, err = dbus.ConnectSystemBus(dbus.WithContext(ctx))
	}
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to connect to systemd: %w", err)
	}

	return &Bus{conn: conn, raw: raw}, nil
}

// Close closes both connections.
func (b *Bus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.conn != nil {
		b.conn.Close()
		b.conn = nil
	}
	var err error
	if b.raw != nil {
		err = b.raw.Close()
		b.raw = nil
	}
	return err
}

//
// Manager calls
//

// GetUnitContext resolves a full unit name (e.g. "sshd.service") to its object.
// systemd only answers for loaded units; anything else yields ErrNoSuchUnit.
func (b *Bus) GetUnitContext(ctx context.Context, name string) (*Unit, error) {
	b.mu.RLock()
	raw := b.raw
	b.mu.RUnlock()
	if raw == nil {
		return nil, ErrClosed
	}

	var path dbus.ObjectPath
	err := raw.Object(systemdDest, dbus.ObjectPath(systemdPath)).
		CallWithContext(ctx, managerIface+".GetUnit", 0, name).
		Store(&path)
	if err != nil {
		if isNoSuchUnitErr(err) {
			return nil, fmt.Errorf("%w: %s: %v", ErrNoSuchUnit, name, err)
		}
		return nil, fmt.Errorf("get unit %s: %w", name, err)
	}
	if !path.IsValid() {
		return nil, fmt.Errorf("get unit %s: invalid object path %q", name, path)
	}

	return &Unit{Name: name, Path: path, obj: raw.Object(systemdDest, path)}, nil
}

// ListUnitsContext returns the currently loaded units in manager order.
func (b *Bus) ListUnitsContext(ctx context.Context) ([]UnitEntry, error) {
	b.mu.RLock()
	conn := b.conn
	b.mu.RUnlock()
	if conn == nil {
		return nil, ErrClosed
	}

	units, err := conn.ListUnitsContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("list units: %w", err)
	}
	return entriesFrom(units), nil
}

//
// Unit calls
//

// PropertyContext reads iface.name off the unit object and returns the
// variant's Go value (string, int32, uint64, ...).
func (u *Unit) PropertyContext(ctx context.Context, iface, name string) (any, error) {
	if u == nil || u.obj == nil {
		return nil, ErrClosed
	}
	var v dbus.Variant
	if err := u.obj.CallWithContext(ctx, propertiesGet, 0, iface, name).Store(&v); err != nil {
		return nil, fmt.Errorf("get %s.%s on %s: %w", iface, name, u.Name, err)
	}
	return v.Value(), nil
}

//
// Internal helpers
//

func entriesFrom(units []sddbus.UnitStatus) []UnitEntry {
	out := make([]UnitEntry, 0, len(units))
	for _, u := range units {
		out = append(out, UnitEntry{Name: u.Name, Description: u.Description})
	}
	return out
}

func isNoSuchUnitErr(err error) bool {
	if err == nil {
		return false
	}
	// systemd returns org.freedesktop.systemd1.NoSuchUnit for units that are not loaded.
	var de dbus.Error
	if errors.As(err, &de) && de.Name == "org.freedesktop.systemd1.NoSuchUnit" {
		return true
	}
	return strings.Contains(err.Error(), "NoSuchUnit")
}
