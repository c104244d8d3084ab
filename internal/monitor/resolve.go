package monitor

import (
	"context"
	"fmt"
	"time"

	"systemdstat/pkg/logx"
	sm "systemdstat/pkg/systemdmanager"
)

// Snapshot is the raw state the classification works on.
//
// If any property cannot be read the whole snapshot is broken: SubState and
// Type hold "broken" and StatusOK is false.
type Snapshot struct {
	SubState       string
	Type           string
	ExecMainStatus int32
	StatusOK       bool
}

// brokenSnapshot is used when the unit has no handle or a property read fails.
var brokenSnapshot = Snapshot{SubState: broken, Type: broken}

// Classify maps a snapshot to an outcome. First match wins:
//   - SubState "running"
//   - Type "oneshot" that last exited 0
func Classify(s Snapshot) Outcome {
	if s.SubState == "running" {
		return Running
	}
	if s.Type == "oneshot" && s.StatusOK && s.ExecMainStatus == 0 {
		return Running
	}
	return NotRunning
}

// Resolver reads unit state through the cache and classifies it.
type Resolver struct {
	units   *UnitCache
	log     logx.Logger
	timeout time.Duration
}

func NewResolver(units *UnitCache, timeout time.Duration, log logx.Logger) *Resolver {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Resolver{units: units, log: log, timeout: timeout}
}

// Resolve returns the outcome for a full unit name. It never fails; anything
// that goes wrong reads as NotRunning.
func (r *Resolver) Resolve(ctx context.Context, name string) Outcome {
	return Classify(r.Snapshot(ctx, name))
}

// Snapshot reads SubState, Type and ExecMainStatus for a full unit name.
func (r *Resolver) Snapshot(ctx context.Context, name string) Snapshot {
	h, ok := r.units.Get(ctx, name)
	if !ok {
		return brokenSnapshot
	}

	subState, err := r.stringProperty(ctx, h, sm.UnitIface, "SubState")
	if err != nil {
		r.readFailed(name, "SubState", err)
		return brokenSnapshot
	}
	typ, err := r.stringProperty(ctx, h, sm.ServiceIface, "Type")
	if err != nil {
		r.readFailed(name, "Type", err)
		return brokenSnapshot
	}
	status, err := r.int32Property(ctx, h, sm.ServiceIface, "ExecMainStatus")
	if err != nil {
		r.readFailed(name, "ExecMainStatus", err)
		return brokenSnapshot
	}
	return Snapshot{SubState: subState, Type: typ, ExecMainStatus: status, StatusOK: true}
}

func (r *Resolver) readFailed(unit, prop string, err error) {
	r.log.Warn("failed to read unit property",
		logx.String("unit", unit),
		logx.String("property", prop),
		logx.Err(err),
	)
}

func (r *Resolver) property(ctx context.Context, h Handle, iface, name string) (any, error) {
	pctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()
	return h.PropertyContext(pctx, iface, name)
}

func (r *Resolver) stringProperty(ctx context.Context, h Handle, iface, name string) (string, error) {
	v, err := r.property(ctx, h, iface, name)
	if err != nil {
		return "", err
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("%s: unexpected type %T", name, v)
	}
	return s, nil
}

func (r *Resolver) int32Property(ctx context.Context, h Handle, iface, name string) (int32, error) {
	v, err := r.property(ctx, h, iface, name)
	if err != nil {
		return 0, err
	}
	// systemd sends this as a D-Bus "i"; anything else is not trusted.
	n, ok := v.(int32)
	if !ok {
		return 0, fmt.Errorf("%s: unexpected type %T", name, v)
	}
	return n, nil
}
