// Package sink delivers gauge samples to their destinations.
package sink

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/multierr"
)

// Sample is one gauge reading, identified the way collectd names values:
// plugin[-plugin_instance]/type[-type_instance].
type Sample struct {
	Plugin         string
	PluginInstance string
	Type           string
	TypeInstance   string
	Value          float64
	Time           time.Time
	Interval       time.Duration
}

// Identifier returns the collectd identifier without the host part.
func (s Sample) Identifier() string {
	return join(s.Plugin, s.PluginInstance) + "/" + join(s.Type, s.TypeInstance)
}

func join(name, instance string) string {
	if instance == "" {
		return name
	}
	return name + "-" + instance
}

// Sink receives samples. Implementations must be safe for sequential use
// from the poll goroutine; they are not required to be concurrent-safe.
type Sink interface {
	Dispatch(ctx context.Context, s Sample) error
}

// Func adapts a function to Sink.
type Func func(ctx context.Context, s Sample) error

func (f Func) Dispatch(ctx context.Context, s Sample) error { return f(ctx, s) }

// Multi dispatches to every sink in order. A failing sink does not stop
// the others; all errors are returned combined.
type Multi []Sink

func (m Multi) Dispatch(ctx context.Context, s Sample) error {
	var err error
	for i, sk := range m {
		if sk == nil {
			continue
		}
		if e := sk.Dispatch(ctx, s); e != nil {
			err = multierr.Append(err, fmt.Errorf("sink %d: %w", i, e))
		}
	}
	return err
}

// Discard drops every sample.
var Discard Sink = Func(func(context.Context, Sample) error { return nil })
