package app

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"systemdstat/internal/config"
	"systemdstat/internal/monitor"
	"systemdstat/pkg/logx"
	sm "systemdstat/pkg/systemdmanager"
)

type stubUnit struct {
	subState string
}

func (u stubUnit) PropertyContext(_ context.Context, iface, name string) (any, error) {
	switch iface + "." + name {
	case sm.UnitIface + ".SubState":
		return u.subState, nil
	case sm.ServiceIface + ".Type":
		return "simple", nil
	case sm.ServiceIface + ".ExecMainStatus":
		return int32(0), nil
	}
	return nil, errors.New("no such property")
}

type stubBackend struct {
	mu     sync.Mutex
	units  map[string]string
	closed bool
}

func (b *stubBackend) GetUnit(_ context.Context, name string) (monitor.Handle, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	sub, ok := b.units[name]
	if !ok {
		return nil, sm.ErrNoSuchUnit
	}
	return stubUnit{subState: sub}, nil
}

func (b *stubBackend) ListUnitsContext(context.Context) ([]sm.UnitEntry, error) {
	return []sm.UnitEntry{
		{Name: "sshd.service"},
		{Name: "cron.service"},
		{Name: "dbus.socket"},
	}, nil
}

func (b *stubBackend) Close() error {
	b.mu.Lock()
	b.closed = true
	b.mu.Unlock()
	return nil
}

func (b *stubBackend) isClosed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.closed
}

// syncBuffer is written by the scheduler goroutine and read by the test.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (s *syncBuffer) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buf.Write(p)
}

func (s *syncBuffer) String() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buf.String()
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "systemd.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

type dialRecorder struct {
	backend *stubBackend
	err     error
	calls   int
}

func (d *dialRecorder) dial(context.Context, sm.Options) (monitor.Backend, error) {
	d.calls++
	if d.err != nil {
		return nil, d.err
	}
	return d.backend, nil
}

func TestNoServicesSkipsBus(t *testing.T) {
	d := &dialRecorder{backend: &stubBackend{}}
	a, err := New(Options{ConfigPath: writeConfig(t, "Verbose: true\n"), Dial: d.dial, Stdout: &syncBuffer{}}, logx.Nop())
	require.NoError(t, err)

	require.NoError(t, a.Start(context.Background()))
	require.Equal(t, 0, d.calls)
	require.Nil(t, a.Poller())
	require.Nil(t, a.sched)
	require.NoError(t, a.Stop(context.Background(), StopAppStop))
}

func TestUnknownKeyFailsBeforeDial(t *testing.T) {
	d := &dialRecorder{backend: &stubBackend{}}
	_, err := New(Options{ConfigPath: writeConfig(t, "Service: sshd\nTimeout: 5\n"), Dial: d.dial}, logx.Nop())
	require.ErrorIs(t, err, config.ErrUnknownKey)
	require.Equal(t, 0, d.calls)
}

func TestStartPollsAndWritesPutVal(t *testing.T) {
	backend := &stubBackend{units: map[string]string{"sshd.service": "running", "cron.service": "dead"}}
	d := &dialRecorder{backend: backend}
	out := &syncBuffer{}
	a, err := New(Options{
		ConfigPath: writeConfig(t, "Service: [sshd, 'c.*']\nInterval: 0.02\n"),
		Hostname:   "testhost",
		Stdout:     out,
		Dial:       d.dial,
	}, logx.Nop())
	require.NoError(t, err)

	require.NoError(t, a.Start(context.Background()))
	require.Equal(t, 1, d.calls)
	require.Equal(t, []string{"sshd", "cron"}, a.Poller().Services())

	require.Eventually(t, func() bool {
		s := out.String()
		return bytes.Contains([]byte(s), []byte(`PUTVAL "testhost/systemd-sshd/gauge-running" interval=0.02 `)) &&
			bytes.Contains([]byte(s), []byte(`PUTVAL "testhost/systemd-cron/gauge-running" interval=0.02 `))
	}, 2*time.Second, 5*time.Millisecond)
	require.Regexp(t, `systemd-sshd/gauge-running" interval=0\.02 \d+:1\n`, out.String())
	require.Regexp(t, `systemd-cron/gauge-running" interval=0\.02 \d+:0\n`, out.String())

	require.NoError(t, a.Stop(context.Background(), StopSIGTERM))
	require.True(t, backend.isClosed())
}

func TestInvalidPatternFailsStart(t *testing.T) {
	backend := &stubBackend{}
	d := &dialRecorder{backend: backend}
	a, err := New(Options{ConfigPath: writeConfig(t, "Service: 'bad(['\n"), Dial: d.dial, Stdout: &syncBuffer{}}, logx.Nop())
	require.NoError(t, err)

	err = a.Start(context.Background())
	require.ErrorContains(t, err, "invalid service pattern")
	require.Nil(t, a.Poller())
	require.NoError(t, a.Stop(context.Background(), StopFatalError))
	require.True(t, backend.isClosed())
}

func TestDialFailureIsFatal(t *testing.T) {
	d := &dialRecorder{err: errors.New("no bus")}
	a, err := New(Options{ConfigPath: writeConfig(t, "Service: sshd\n"), Dial: d.dial, Stdout: &syncBuffer{}}, logx.Nop())
	require.NoError(t, err)
	require.ErrorIs(t, a.Start(context.Background()), d.err)
}

func TestOutputs(t *testing.T) {
	cfg := writeConfig(t, "Service: sshd\n")

	_, err := New(Options{ConfigPath: cfg, Outputs: []string{"graphite"}}, logx.Nop())
	require.ErrorContains(t, err, `unknown output "graphite"`)

	_, err = New(Options{ConfigPath: cfg, Outputs: []string{"store"}}, logx.Nop())
	require.ErrorContains(t, err, "requires --store-driver")

	_, err = New(Options{ConfigPath: cfg, Outputs: []string{"store"}, StoreDriver: "sqlite"}, logx.Nop())
	require.ErrorContains(t, err, "--store-path is required")

	_, err = New(Options{ConfigPath: cfg, Outputs: []string{"redis"}}, logx.Nop())
	require.ErrorContains(t, err, "requires --redis-addr")

	path := filepath.Join(t.TempDir(), "samples.jsonl")
	a, err := New(Options{
		ConfigPath:  cfg,
		Outputs:     []string{"putval", "prometheus", "store", "putval"},
		StoreDriver: "file",
		StorePath:   path,
		Stdout:      &syncBuffer{},
	}, logx.Nop())
	require.NoError(t, err)
	require.NotNil(t, a.prom)
	require.NotNil(t, a.store)
	require.NoError(t, a.Stop(context.Background(), StopAppStop))
	require.Nil(t, a.store)
}

func TestRedisOutputToleratesDownServer(t *testing.T) {
	a, err := New(Options{
		ConfigPath: writeConfig(t, "Service: sshd\n"),
		Outputs:    []string{"redis"},
		RedisAddr:  "127.0.0.1:1",
		RPCTimeout: 200 * time.Millisecond,
	}, logx.Nop())
	require.NoError(t, err)
	require.NotNil(t, a.redis)
	require.NoError(t, a.Stop(context.Background(), StopAppStop))
	require.Nil(t, a.redis)
}

func TestStopReasonString(t *testing.T) {
	require.Equal(t, "sigint", StopSIGINT.String())
	require.Equal(t, "unknown", StopReason(99).String())
}

func TestListenFailureIsReported(t *testing.T) {
	a, err := New(Options{
		ConfigPath: writeConfig(t, "Verbose: false\n"),
		Listen:     "127.0.0.1:-1",
		Outputs:    []string{"prometheus"},
	}, logx.Nop())
	require.NoError(t, err)
	require.NoError(t, a.Start(context.Background()))

	select {
	case <-a.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("listener failure not reported")
	}
	require.ErrorContains(t, a.Err(), "http server")
	require.NoError(t, a.Stop(context.Background(), StopFatalError))
}
