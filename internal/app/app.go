package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/multierr"

	"systemdstat/internal/config"
	"systemdstat/internal/httpserver"
	"systemdstat/internal/monitor"
	"systemdstat/internal/runtime/supervisor"
	"systemdstat/internal/scheduler"
	"systemdstat/internal/sink"
	"systemdstat/internal/storage"
	"systemdstat/pkg/logx"
	sm "systemdstat/pkg/systemdmanager"
)

// Output names accepted by Options.Outputs.
const (
	OutputPutVal     = "putval"
	OutputPrometheus = "prometheus"
	OutputStore      = "store"
	OutputRedis      = "redis"
)

const (
	DefaultRPCTimeout = 5 * time.Second
	pollJobName       = "systemd.read"
)

// DialFunc opens the service-manager backend.
type DialFunc func(ctx context.Context, opts sm.Options) (monitor.Backend, error)

// DialBus connects to systemd over D-Bus.
func DialBus(ctx context.Context, opts sm.Options) (monitor.Backend, error) {
	b, err := sm.NewBusContext(ctx, opts)
	if err != nil {
		return nil, err
	}
	return monitor.WrapBus(b), nil
}

// Options carries everything the command line decides.
type Options struct {
	ConfigPath string

	Outputs  []string
	Hostname string
	Listen   string

	StoreDriver string
	StorePath   string

	RedisAddr string

	RPCTimeout time.Duration
	UserBus    bool
	// Pprof mounts /debug/pprof on the HTTP listener.
	Pprof bool

	// Stdout receives the putval stream. Defaults to os.Stdout.
	Stdout io.Writer
	// Dial defaults to DialBus.
	Dial DialFunc
}

type App struct {
	opts    Options
	cfg     config.Plugin
	log     logx.Logger
	verbose monitor.Verbose

	sink  sink.Sink
	prom  *sink.Prometheus
	store storage.Store
	redis *redis.Client
	http  *httpserver.Server

	backend monitor.Backend
	poller  *monitor.Poller
	sched   *scheduler.Service

	sup *supervisor.Supervisor
}

// New loads the plugin configuration and prepares the outputs. It does not
// touch the bus: a configuration error is reported before any connection.
func New(opts Options, log logx.Logger) (*App, error) {
	if log.IsZero() {
		log = logx.Nop()
	}
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Dial == nil {
		opts.Dial = DialBus
	}
	if opts.RPCTimeout <= 0 {
		opts.RPCTimeout = DefaultRPCTimeout
	}

	cfg, err := config.LoadFile(opts.ConfigPath)
	if err != nil {
		return nil, err
	}

	a := &App{
		opts:    opts,
		cfg:     cfg,
		log:     log.With(logx.String("comp", "app")),
		verbose: monitor.Verbose{Enabled: cfg.Verbose, Log: log.With(logx.String("comp", monitor.PluginName))},
	}
	if err := a.buildSinks(); err != nil {
		_ = a.closeOutputs()
		return nil, err
	}
	if strings.TrimSpace(opts.Listen) != "" {
		a.http = httpserver.New(httpserver.Config{
			Addr:       opts.Listen,
			RatePerSec: 10,
			Burst:      20,
			Pprof:      opts.Pprof,
		}, a.promHandler(), log.With(logx.String("comp", "http")))
	}
	return a, nil
}

func (a *App) buildSinks() error {
	outputs := a.opts.Outputs
	if len(outputs) == 0 {
		outputs = []string{OutputPutVal}
	}
	seen := map[string]bool{}
	var multi sink.Multi
	for _, raw := range outputs {
		name := strings.ToLower(strings.TrimSpace(raw))
		if seen[name] {
			continue
		}
		seen[name] = true

		switch name {
		case OutputPutVal:
			multi = append(multi, sink.NewPutVal(a.opts.Stdout, a.opts.Hostname))
		case OutputPrometheus:
			a.prom = sink.NewPrometheus()
			multi = append(multi, a.prom)
			if strings.TrimSpace(a.opts.Listen) == "" {
				a.log.Warn("prometheus output without --listen; gauges are not exported")
			}
		case OutputStore:
			sc, enabled, err := mapStorageConfig(a.opts)
			if err != nil {
				return err
			}
			if !enabled {
				return fmt.Errorf("output %q requires --store-driver", OutputStore)
			}
			st, err := storage.Open(sc, a.log.With(logx.String("comp", "storage")))
			if err != nil {
				return err
			}
			a.store = st
			multi = append(multi, sink.NewStore(st))
			a.log.Info("storage enabled", logx.String("driver", sc.Driver))
		case OutputRedis:
			if strings.TrimSpace(a.opts.RedisAddr) == "" {
				return fmt.Errorf("output %q requires --redis-addr", OutputRedis)
			}
			a.redis = newRedisClient(a.opts.RedisAddr, a.opts.RPCTimeout, a.log.With(logx.String("comp", "redis")))
			multi = append(multi, sink.NewRedis(a.redis, a.opts.Hostname))
		default:
			return fmt.Errorf("unknown output %q", raw)
		}
	}
	if len(multi) == 1 {
		a.sink = multi[0]
	} else {
		a.sink = multi
	}
	return nil
}

func (a *App) promHandler() http.Handler {
	if a.prom == nil {
		return nil
	}
	return a.prom.Handler()
}

// Config returns the parsed plugin configuration.
func (a *App) Config() config.Plugin { return a.cfg }

// Poller is nil until Start registers the poll job.
func (a *App) Poller() *monitor.Poller { return a.poller }

// Done is closed when the app context is cancelled: a fatal runtime failure
// (the HTTP listener dying) or the parent context ending. Nil before Start.
func (a *App) Done() <-chan struct{} {
	if a.sup == nil {
		return nil
	}
	return a.sup.Context().Done()
}

// Err returns the fatal runtime failure, if any.
func (a *App) Err() error {
	if a.sup == nil {
		return nil
	}
	return a.sup.Err()
}

// Start connects to the service manager, expands the configured patterns
// once and registers the poll job. With no patterns it neither connects nor
// registers anything.
func (a *App) Start(ctx context.Context) error {
	a.sup = supervisor.New(ctx,
		supervisor.WithLogger(a.log.With(logx.String("comp", "supervisor"))),
		supervisor.WithCancelOnError(true),
	)
	if a.http != nil {
		a.sup.Go("http server", func(context.Context) error { return a.http.Start() })
	}

	if len(a.cfg.Services) == 0 {
		a.verbose.Info("no services defined")
		return nil
	}

	backend, err := a.opts.Dial(ctx, sm.Options{User: a.opts.UserBus})
	if err != nil {
		return fmt.Errorf("connect to systemd: %w", err)
	}
	a.backend = backend

	listCtx, cancel := context.WithTimeout(ctx, a.opts.RPCTimeout)
	services, err := monitor.Discover(listCtx, backend, a.cfg.Services)
	cancel()
	if err != nil {
		return fmt.Errorf("expand services: %w", err)
	}
	a.verbose.Info("configured",
		logx.Strings("services", services),
		logx.Duration("interval", a.cfg.Interval),
	)
	if len(services) == 0 {
		a.log.Warn("no unit matches the configured patterns", logx.Strings("patterns", a.cfg.Services))
	}

	monLog := a.log.With(logx.String("comp", monitor.PluginName))
	units := monitor.NewUnitCache(backend, a.opts.RPCTimeout, monLog)
	resolver := monitor.NewResolver(units, a.opts.RPCTimeout, monLog)
	a.poller = monitor.NewPoller(monitor.PollerConfig{
		Services: services,
		Interval: a.cfg.Interval,
		Verbose:  a.cfg.Verbose,
	}, resolver, a.sink, monLog)

	a.sched = scheduler.New(a.log.With(logx.String("comp", "scheduler")))
	a.sched.Start(a.sup.Context())
	if err := a.sched.AddInterval(pollJobName, a.cfg.Interval, a.poller.Tick); err != nil {
		return err
	}
	a.log.Info("monitoring services",
		logx.Int("count", len(services)),
		logx.Duration("interval", a.cfg.Interval),
	)
	return nil
}

// Stop shuts everything down in reverse start order. It is safe to call
// after a failed Start.
func (a *App) Stop(ctx context.Context, reason StopReason) error {
	a.log.Info("stopping", logx.String("reason", reason.String()))

	var err error
	if a.sched != nil {
		err = multierr.Append(err, a.sched.Stop(ctx))
	}
	if a.http != nil {
		if e := a.http.Stop(ctx); e != nil && !errors.Is(e, context.Canceled) {
			err = multierr.Append(err, fmt.Errorf("http server: %w", e))
		}
	}
	if a.sup != nil {
		err = multierr.Append(err, a.sup.Stop(ctx))
	}
	if a.backend != nil {
		err = multierr.Append(err, a.backend.Close())
		a.backend = nil
	}
	err = multierr.Append(err, a.closeOutputs())
	return err
}

func (a *App) closeOutputs() error {
	var err error
	if a.store != nil {
		err = multierr.Append(err, a.store.Close())
		a.store = nil
	}
	if a.redis != nil {
		err = multierr.Append(err, a.redis.Close())
		a.redis = nil
	}
	return err
}
