package monitor

import (
	"context"
	"fmt"
	"time"

	"systemdstat/internal/sink"
	"systemdstat/pkg/logx"
)

// Poller emits one "running" gauge per monitored service each time Tick runs.
//
// The service list is fixed at construction. Tick processes services
// sequentially and is not meant to be called concurrently; the scheduler
// guarantees that.
type Poller struct {
	services []string
	interval time.Duration

	resolver *Resolver
	sink     sink.Sink
	log      logx.Logger
	verbose  Verbose

	now func() time.Time
}

// PollerConfig describes what a poller watches.
type PollerConfig struct {
	Services []string
	Interval time.Duration
	Verbose  bool
}

func NewPoller(cfg PollerConfig, r *Resolver, s sink.Sink, log logx.Logger) *Poller {
	if log.IsZero() {
		log = logx.Nop()
	}
	if s == nil {
		s = sink.Discard
	}
	return &Poller{
		services: append([]string(nil), cfg.Services...),
		interval: cfg.Interval,
		resolver: r,
		sink:     s,
		log:      log,
		verbose:  Verbose{Enabled: cfg.Verbose, Log: log},
		now:      time.Now,
	}
}

// Services returns a copy of the monitored base names.
func (p *Poller) Services() []string {
	return append([]string(nil), p.services...)
}

// Tick polls every service once. It never fails: a service that cannot be
// resolved reads as 0, and a failure for one service does not affect the rest.
// A cancelled ctx ends the tick before the next service.
func (p *Poller) Tick(ctx context.Context) {
	p.verbose.Info("read callback called")
	for _, name := range p.services {
		// shutdown mid-tick: stop rather than emit false zeros
		if ctx.Err() != nil {
			return
		}
		if err := p.pollOne(ctx, name); err != nil {
			p.log.Warn("failed to dispatch value", logx.String("service", name), logx.Err(err))
		}
	}
}

func (p *Poller) pollOne(ctx context.Context, name string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic while polling %s: %v", name, r)
		}
	}()

	value := p.resolver.Resolve(ctx, name+ServiceSuffix).Value()
	p.verbose.Info("sending value",
		logx.String("metric", PluginName+"."+name),
		logx.Float64("value", value),
	)
	return p.sink.Dispatch(ctx, sink.Sample{
		Plugin:         PluginName,
		PluginInstance: name,
		Type:           MetricType,
		TypeInstance:   TypeInstance,
		Value:          value,
		Time:           p.now(),
		Interval:       p.interval,
	})
}
