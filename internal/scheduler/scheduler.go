// Package scheduler runs jobs at fixed intervals on top of robfig/cron.
//
// Each job runs on the cron goroutine wrapped in SkipIfStillRunning, so a
// job never overlaps with itself. Jobs receive a context that is cancelled
// by Stop.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"systemdstat/pkg/logx"
)

var (
	ErrNotStarted      = errors.New("scheduler not started")
	ErrInvalidInterval = errors.New("interval must be > 0")
)

// Job is one scheduled unit of work.
type Job func(ctx context.Context)

type Service struct {
	mu sync.Mutex

	log logx.Logger
	c   *cron.Cron

	runCtx    context.Context
	runCancel context.CancelFunc

	jobs map[string]cron.EntryID
}

func New(log logx.Logger) *Service {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Service{log: log, jobs: map[string]cron.EntryID{}}
}

// Start launches the cron goroutine. Calling Start twice is a no-op.
func (s *Service) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.c != nil {
		return
	}
	s.runCtx, s.runCancel = context.WithCancel(ctx)
	cl := cronLogger{log: s.log}
	s.c = cron.New(
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)
	s.c.Start()
	s.log.Debug("scheduler started")
}

// Stop cancels running jobs and waits for them to return.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	c := s.c
	cancel := s.runCancel
	s.c = nil
	s.runCancel = nil
	s.jobs = map[string]cron.EntryID{}
	s.mu.Unlock()
	if c == nil {
		return nil
	}
	if cancel != nil {
		cancel()
	}
	select {
	case <-c.Stop().Done():
		s.log.Debug("scheduler stopped")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("scheduler stop: %w", ctx.Err())
	}
}

// AddInterval registers job to run every `every`, first after one period.
// Sub-second periods are honored.
func (s *Service) AddInterval(name string, every time.Duration, job Job) error {
	if every <= 0 {
		return fmt.Errorf("%s: %w", name, ErrInvalidInterval)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.c == nil {
		return ErrNotStarted
	}
	if id, ok := s.jobs[name]; ok {
		s.c.Remove(id)
	}
	runCtx := s.runCtx
	log := s.log.With(logx.String("job", name))
	id := s.c.Schedule(interval(every), cron.FuncJob(func() {
		if runCtx.Err() != nil {
			return
		}
		start := time.Now()
		job(runCtx)
		log.Trace("job done", logx.Duration("took", time.Since(start)))
	}))
	s.jobs[name] = id
	s.log.Debug("job scheduled", logx.String("job", name), logx.Duration("every", every))
	return nil
}

// Jobs returns the number of registered jobs.
func (s *Service) Jobs() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.jobs)
}

// interval is a cron.Schedule without cron.Every's whole-second rounding.
type interval time.Duration

func (d interval) Next(t time.Time) time.Time { return t.Add(time.Duration(d)) }

// cronLogger routes cron's own messages into logx.
type cronLogger struct {
	log logx.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debug("cron: "+msg, kvFields(keysAndValues)...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Error("cron: "+msg, append(kvFields(keysAndValues), logx.Err(err))...)
}

func kvFields(kv []interface{}) []logx.Field {
	out := make([]logx.Field, 0, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		k, ok := kv[i].(string)
		if !ok {
			k = fmt.Sprint(kv[i])
		}
		out = append(out, logx.Any(k, kv[i+1]))
	}
	return out
}
