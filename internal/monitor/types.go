package monitor

import (
	"context"

	"systemdstat/pkg/logx"
	sm "systemdstat/pkg/systemdmanager"
)

const (
	// ServiceSuffix is appended to every monitored base name. Not configurable.
	ServiceSuffix = sm.ServiceSuffix

	PluginName   = "systemd"
	MetricType   = "gauge"
	TypeInstance = "running"

	// broken stands in for every property of a unit that could not be read.
	broken = "broken"
)

// Outcome is the binary health signal for one unit.
type Outcome int

const (
	NotRunning Outcome = iota
	Running
)

// Value returns the gauge value for o (1 or 0).
func (o Outcome) Value() float64 {
	if o == Running {
		return 1
	}
	return 0
}

func (o Outcome) String() string {
	if o == Running {
		return "running"
	}
	return "not-running"
}

// Handle is a resolved unit object that properties can be read from.
type Handle interface {
	PropertyContext(ctx context.Context, iface, name string) (any, error)
}

// UnitLookup resolves a full unit name to a Handle.
type UnitLookup interface {
	GetUnit(ctx context.Context, name string) (Handle, error)
}

// Inventory lists every unit the manager currently knows about.
type Inventory interface {
	ListUnitsContext(ctx context.Context) ([]sm.UnitEntry, error)
}

// Backend is everything the monitor needs from the service manager.
type Backend interface {
	UnitLookup
	Inventory
	Close() error
}

type busBackend struct {
	*sm.Bus
}

// WrapBus adapts a systemd bus connection to Backend.
func WrapBus(b *sm.Bus) Backend { return busBackend{Bus: b} }

func (b busBackend) GetUnit(ctx context.Context, name string) (Handle, error) {
	u, err := b.GetUnitContext(ctx, name)
	if err != nil {
		return nil, err
	}
	return u, nil
}

// Verbose logs plugin chatter only when the Verbose key is set.
type Verbose struct {
	Enabled bool
	Log     logx.Logger
}

func (v Verbose) Info(msg string, fields ...logx.Field) {
	if !v.Enabled {
		return
	}
	v.Log.Info(msg, append(fields, logx.Bool("verbose", true))...)
}
