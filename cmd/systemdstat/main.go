package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	flags "github.com/jessevdk/go-flags"

	"systemdstat/internal/app"
	"systemdstat/pkg/logx"
)

type flagOptions struct {
	Config     string        `short:"c" long:"config" description:"plugin configuration file (YAML or JSON)" required:"true"`
	LogLevel   string        `long:"log-level" description:"trace, debug, info, warn or error" default:"info"`
	LogFile    string        `long:"log-file" description:"also write JSON logs to this file"`
	Output     []string      `long:"output" description:"putval, prometheus, store or redis (repeatable)" default:"putval"`
	Listen     string        `long:"listen" description:"serve /metrics and /healthz on this address"`
	StoreDrv   string        `long:"store-driver" description:"file or sqlite; needed by --output=store"`
	StorePath  string        `long:"store-path" description:"storage file path"`
	RedisAddr  string        `long:"redis-addr" description:"redis server for --output=redis (host:port)"`
	Hostname   string        `long:"hostname" description:"host part of PUTVAL identifiers (default $COLLECTD_HOSTNAME, then the OS hostname)"`
	RPCTimeout time.Duration `long:"rpc-timeout" description:"timeout for each call to systemd" default:"5s"`
	UserBus    bool          `long:"user-bus" description:"talk to the user service manager instead of the system one"`
	Pprof      bool          `long:"pprof" description:"serve /debug/pprof on the --listen address"`
}

const stopTimeout = 10 * time.Second

func main() {
	var opts flagOptions
	parser := flags.NewParser(&opts, flags.HelpFlag)
	if _, err := parser.ParseArgs(os.Args[1:]); err != nil {
		var ferr *flags.Error
		if errors.As(err, &ferr) && ferr.Type == flags.ErrHelp {
			fmt.Println(err)
			return
		}
		fmt.Fprintf(os.Stderr, "command line flags parsing failed: %v\n", err)
		os.Exit(2)
	}

	logs, log := logx.NewService(logx.Config{
		Level:   opts.LogLevel,
		Console: true,
		File: logx.FileConfig{
			Enabled: opts.LogFile != "",
			Path:    opts.LogFile,
		},
	})

	code := run(opts, log)
	_ = logs.Close()
	os.Exit(code)
}

func run(opts flagOptions, log logx.Logger) int {
	a, err := app.New(app.Options{
		ConfigPath:  opts.Config,
		Outputs:     opts.Output,
		Hostname:    opts.Hostname,
		Listen:      opts.Listen,
		StoreDriver: opts.StoreDrv,
		StorePath:   opts.StorePath,
		RedisAddr:   opts.RedisAddr,
		RPCTimeout:  opts.RPCTimeout,
		UserBus:     opts.UserBus,
		Pprof:       opts.Pprof,
	}, log)
	if err != nil {
		log.Error("configuration failed", logx.Err(err))
		return 1
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	code := 0
	reason := app.StopAppStop
	if err := a.Start(ctx); err != nil {
		log.Error("start failed", logx.Err(err))
		code, reason = 1, app.StopFatalError
	} else {
		select {
		case sig := <-sigCh:
			reason = app.StopSIGTERM
			if sig == os.Interrupt {
				reason = app.StopSIGINT
			}
		case <-a.Done():
			log.Error("fatal error", logx.Err(a.Err()))
			code, reason = 1, app.StopFatalError
		}
	}
	cancel()

	stopCtx, stopCancel := context.WithTimeout(context.Background(), stopTimeout)
	defer stopCancel()
	if err := a.Stop(stopCtx, reason); err != nil {
		log.Warn("shutdown incomplete", logx.Err(err))
	}
	return code
}
